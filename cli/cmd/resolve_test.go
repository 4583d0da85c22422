package cmd

import (
	"flag"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/shardkit/cli/config"
)

// newTestCLIContext builds a minimal *cli.Context with the given flags set.
// flagValues maps flag names to their string values. All listed flags are
// registered and marked as explicitly set (c.IsSet returns true).
// defaultFlags maps flag names to default values (not explicitly set).
func newTestCLIContext(t *testing.T, flagValues map[string]string, defaultFlags map[string]string) *cli.Context {
	t.Helper()
	app := cli.NewApp()

	allFlags := make(map[string]string)
	for k, v := range defaultFlags {
		allFlags[k] = v
	}
	for k, v := range flagValues {
		allFlags[k] = v
	}

	var cliFlags []cli.Flag
	for name, val := range allFlags {
		cliFlags = append(cliFlags, &cli.StringFlag{Name: name, Value: val})
	}
	app.Flags = cliFlags

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	for name, val := range allFlags {
		fs.String(name, val, "")
	}

	// Only set the flagValues (not defaults) so c.IsSet works
	for name, val := range flagValues {
		if err := fs.Set(name, val); err != nil {
			t.Fatalf("failed to set flag %s: %v", name, err)
		}
	}

	return cli.NewContext(app, fs, nil)
}

func TestResolveString(t *testing.T) {
	tests := []struct {
		name      string
		flag      string
		set       map[string]string
		defaults  map[string]string
		configVal string
		want      string
	}{
		{"cli wins", "pattern", map[string]string{"pattern": "cli-%d.tar"}, nil, "cfg-%d.tar", "cli-%d.tar"},
		{"config fallback", "pattern", nil, map[string]string{"pattern": ""}, "cfg-%d.tar", "cfg-%d.tar"},
		{"urfave default", "counter", nil, map[string]string{"counter": "local"}, "", "local"},
		{"config beats default", "counter", nil, map[string]string{"counter": "local"}, "redis", "redis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCLIContext(t, tt.set, tt.defaults)
			if got := resolveString(c, tt.flag, tt.configVal); got != tt.want {
				t.Errorf("resolveString = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigVal(t *testing.T) {
	get := func(c *config.Config) string { return c.Pattern }

	if got := configVal(nil, get); got != "" {
		t.Errorf("expected empty for nil config, got %q", got)
	}
	if got := configVal(&config.Config{Pattern: "p-%d.tar"}, get); got != "p-%d.tar" {
		t.Errorf("expected p-%%d.tar, got %q", got)
	}
}

func TestResolveInt64(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.Int64Flag{Name: "max-count"}}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int64("max-count", 100, "")
	c := cli.NewContext(app, fs, nil)
	if got := resolveInt64(c, "max-count", 7); got != 7 {
		t.Errorf("expected config fallback 7, got %d", got)
	}
	if got := resolveInt64(c, "max-count", 0); got != 100 {
		t.Errorf("expected default 100, got %d", got)
	}

	_ = fs.Set("max-count", "3")
	if got := resolveInt64(c, "max-count", 7); got != 3 {
		t.Errorf("expected CLI 3 to win, got %d", got)
	}
}

func TestResolveInt_CLIWins(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.IntFlag{Name: "workers"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int("workers", 1, "")
	_ = fs.Set("workers", "8")
	c := cli.NewContext(app, fs, nil)

	if got := resolveInt(c, "workers", 4); got != 8 {
		t.Errorf("expected CLI to win with 8, got %d", got)
	}
}

func TestResolveBool(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.BoolFlag{Name: "keep-meta"}}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Bool("keep-meta", false, "")
	c := cli.NewContext(app, fs, nil)
	if !resolveBool(c, "keep-meta", true) {
		t.Error("expected config true when flag unset")
	}

	_ = fs.Set("keep-meta", "false")
	if resolveBool(c, "keep-meta", true) {
		t.Error("expected explicit --keep-meta=false to win")
	}
}

func TestResolveDuration(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.DurationFlag{Name: "counter-lock-ttl"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Duration("counter-lock-ttl", 10*time.Second, "")
	c := cli.NewContext(app, fs, nil)

	if got := resolveDuration(c, "counter-lock-ttl", 5*time.Second); got != 5*time.Second {
		t.Errorf("expected config fallback 5s, got %v", got)
	}

	_ = fs.Set("counter-lock-ttl", "30s")
	if got := resolveDuration(c, "counter-lock-ttl", 5*time.Second); got != 30*time.Second {
		t.Errorf("expected CLI 30s to win, got %v", got)
	}
}

package cmd

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/shardkit/cli/config"
)

// Precedence for every write setting: an explicitly set flag, then a
// non-zero config value, then the flag's default.

func resolveString(c *cli.Context, name, configValue string) string {
	if c.IsSet(name) || configValue == "" {
		return c.String(name)
	}
	return configValue
}

func resolveInt(c *cli.Context, name string, configValue int) int {
	if c.IsSet(name) || configValue == 0 {
		return c.Int(name)
	}
	return configValue
}

func resolveInt64(c *cli.Context, name string, configValue int64) int64 {
	if c.IsSet(name) || configValue == 0 {
		return c.Int64(name)
	}
	return configValue
}

func resolveBool(c *cli.Context, name string, configValue bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return configValue || c.Bool(name)
}

func resolveDuration(c *cli.Context, name string, configValue time.Duration) time.Duration {
	if c.IsSet(name) || configValue == 0 {
		return c.Duration(name)
	}
	return configValue
}

// configVal reads a value from an optional config.
func configVal[T any](cfg *config.Config, get func(*config.Config) T) T {
	if cfg == nil {
		var zero T
		return zero
	}
	return get(cfg)
}

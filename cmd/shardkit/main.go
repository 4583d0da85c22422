// Package main provides the shardkit CLI entrypoint.
//
// Usage:
//
//	shardkit <command> [options]
//
// write is the only command that creates shards; inspect, verify and
// version are read-only.
//
// Exit codes:
//   - 0: success
//   - 1: error
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/shardkit/cli/cmd"
	"github.com/justapithecus/shardkit/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already exited for every error; this is a fallback.
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "shardkit",
		Usage:          "Write and check count/size-bounded tar shards",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.WriteCommand(),
			cmd.InspectCommand(),
			cmd.VerifyCommand(),
			cmd.VersionCommand(commit),
		},
	}
}

// exitErrHandler handles errors from the CLI, preserving exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	os.Exit(reportError(os.Stderr, err))
}

// reportError prints err to w and returns the process exit code.
// cli.Exit("", N) carries no message and prints nothing.
func reportError(w io.Writer, err error) int {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(w, msg)
		}
		return code
	}

	fmt.Fprintf(w, "Error: %v\n", err)
	return 1
}

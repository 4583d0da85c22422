package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/shardkit/cli/reader"
	"github.com/justapithecus/shardkit/cli/render"
	"github.com/justapithecus/shardkit/cli/tui"
)

// VerifyCommand returns the verify command.
// Verify reads every given shard to the end and exits non-zero if any
// of them cannot be read.
func VerifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Check that shards are readable and count their samples",
		ArgsUsage: "<shard> [shard...]",
		Flags:     ReadOnlyFlags(),
		Action:    verifyAction,
	}
}

func verifyAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("at least one shard path required", exitError)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	stats := reader.VerifyShards(c.Args().Slice())

	if c.Bool("tui") {
		if err := r.RenderTUI(tui.ViewStatsShards, stats); err != nil {
			return err
		}
	} else if err := r.Render(stats); err != nil {
		return err
	}

	if stats.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d shards failed verification", stats.Failed, stats.Shards), exitError)
	}
	return nil
}

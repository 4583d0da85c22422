package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/shardkit/cli/reader"
	"github.com/justapithecus/shardkit/cli/render"
	"github.com/justapithecus/shardkit/cli/tui"
)

// InspectCommand returns the inspect command.
// Inspect returns a deep view of a single shard.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Inspect the samples of one shard",
		ArgsUsage: "<shard>",
		Flags: append(ReadOnlyFlags(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Max sample rows to list (0 = all)",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "files",
				Usage: "Include the raw tar entry listing",
			},
		),
		Action: inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("shard path required", exitError)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	resp, err := reader.InspectShard(c.Args().First(), reader.Options{
		Limit: c.Int("limit"),
		Files: c.Bool("files"),
	})
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewInspectShard, resp)
	}
	return r.Render(resp)
}

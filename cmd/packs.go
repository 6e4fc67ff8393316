package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/githistory/internal/git"
)

// PacksCmd returns the packs command.
func PacksCmd() *cli.Command {
	return &cli.Command{
		Name:      "packs",
		Usage:     "List the mirror's packfiles, oldest first",
		ArgsUsage: "[uri]",
		Flags: append(mirrorFlags(),
			&cli.BoolFlag{
				Name:  "commits",
				Usage: "Also list the commits stored in each pack",
			},
		),
		Action: packsAction,
	}
}

func packsAction(c *cli.Context) error {
	return executeWithContext(c, func(ctx *CommandContext, c *cli.Context) error {
		mirror, err := git.Open(ctx.URI, ctx.Path, ctx.MirrorOptions())
		if err != nil {
			return err
		}

		packs, err := mirror.PacksByDate()
		if err != nil {
			return fmt.Errorf("failed to list packs: %w", err)
		}
		loose, err := mirror.HasLooseObjects(c.Context)
		if err != nil {
			return err
		}

		out := c.App.Writer
		for _, p := range packs {
			fmt.Fprintln(out, color.CyanString(p))
			if !c.Bool("commits") {
				continue
			}
			commits, err := mirror.CommitsFromPacks(c.Context, []string{p}, "")
			if err != nil {
				return err
			}
			for _, h := range commits {
				fmt.Fprintf(out, "  %s\n", h)
			}
		}
		fmt.Fprintf(out, "%d packs, loose objects: %t\n", len(packs), loose)
		return nil
	})
}

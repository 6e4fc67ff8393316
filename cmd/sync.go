package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/githistory/internal/git"
)

// SyncCmd returns the sync command.
func SyncCmd() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Fetch new objects into the mirror and print the new commit hashes",
		ArgsUsage: "<uri>",
		Flags:     mirrorFlags(),
		Action:    syncAction,
	}
}

func syncAction(c *cli.Context) error {
	return executeWithContext(c, func(ctx *CommandContext, c *cli.Context) error {
		repo, err := ctx.OpenMirror(c.Context)
		if err != nil {
			return fmt.Errorf("failed to open mirror: %w", err)
		}

		hashes, err := repo.Sync(c.Context)
		if git.IsEmptyRepository(err) {
			color.Yellow("%s is empty", ctx.URI)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to sync: %w", err)
		}

		for _, h := range hashes {
			fmt.Fprintln(c.App.Writer, h)
		}
		ctx.Logger.Info("sync completed", "uri", ctx.URI, "commits", len(hashes))
		return nil
	})
}

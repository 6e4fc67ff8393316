package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/githistory/internal/git"
)

// RevListCmd returns the revlist command.
func RevListCmd() *cli.Command {
	return &cli.Command{
		Name:      "revlist",
		Usage:     "List the commits of the mirror in topological order",
		ArgsUsage: "<uri>",
		Flags:     append(mirrorFlags(), branchesFlag()),
		Action:    revListAction,
	}
}

func revListAction(c *cli.Context) error {
	return executeWithContext(c, func(ctx *CommandContext, c *cli.Context) error {
		repo, err := ctx.OpenMirror(c.Context)
		if err != nil {
			return fmt.Errorf("failed to open mirror: %w", err)
		}

		stream, err := repo.RevList(c.Context, ctx.Config.Fetch.Branches)
		if git.IsEmptyRepository(err) {
			return nil
		}
		if err != nil {
			return err
		}
		defer stream.Close()

		for {
			line, err := stream.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, line)
		}
	})
}

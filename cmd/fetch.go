package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/githistory/internal/extract"
	"github.com/masmgr/githistory/internal/output"
)

// FetchCmd returns the fetch command.
func FetchCmd() *cli.Command {
	flags := append(mirrorFlags(),
		&cli.StringFlag{
			Name:  "git-log",
			Usage: "Read a captured 'git log' file instead of a mirror",
		},
		&cli.StringFlag{
			Name:  "from-date",
			Usage: "Fetch commits since this date (YYYY-MM-DD or RFC3339)",
		},
		&cli.StringFlag{
			Name:  "to-date",
			Usage: "Fetch commits until this date (YYYY-MM-DD or RFC3339)",
		},
		branchesFlag(),
		&cli.BoolFlag{
			Name:  "latest-items",
			Usage: "Fetch only the commits received since the last sync",
		},
		&cli.StringFlag{
			Name:  "recovery",
			Usage: "Resume from this commit hash (inclusive)",
		},
		&cli.BoolFlag{
			Name:  "no-update",
			Usage: "Read the mirror without updating it",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (console, json, ndjson, csv, markdown)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file path (default: stdout)",
		},
		&cli.StringSliceFlag{
			Name:  "include",
			Usage: "Glob patterns of files to include (can be specified multiple times)",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Glob patterns of files to exclude (can be specified multiple times)",
		},
	)

	return &cli.Command{
		Name:      "fetch",
		Usage:     "Extract commit records from a repository",
		ArgsUsage: "<uri>",
		Flags:     flags,
		Action:    fetchAction,
	}
}

func fetchAction(c *cli.Context) error {
	return executeWithContext(c, func(ctx *CommandContext, c *cli.Context) error {
		opts, err := fetchOptions(c, ctx)
		if err != nil {
			return err
		}

		report := output.ReportInfo{
			URI:         ctx.URI,
			Since:       opts.Since,
			Until:       opts.Until,
			GeneratedAt: time.Now(),
		}
		writer, err := output.Open(ctx.OutputOptions(c), report)
		if err != nil {
			return fmt.Errorf("failed to open output: %w", err)
		}

		extractor := extract.New(ctx.MirrorOptions(),
			extract.WithTrailers(ctx.Config.Parser.Trailers...),
			extract.WithLogger(ctx.Logger),
		)
		ctx.Logger.Info("fetching commits", "uri", ctx.URI, "path", ctx.Path, "mode", opts.Mode)

		_, err = extractor.Each(c.Context, ctx.Target(), opts, writer.WriteCommit)
		return errors.Join(err, writer.Close())
	})
}

func fetchOptions(c *cli.Context, ctx *CommandContext) (extract.Options, error) {
	since, err := parseDateFlag(c.String("from-date"))
	if err != nil {
		return extract.Options{}, fmt.Errorf("invalid from-date: %w", err)
	}
	until, err := parseDateFlag(c.String("to-date"))
	if err != nil {
		return extract.Options{}, fmt.Errorf("invalid to-date: %w", err)
	}

	recovery := c.String("recovery")
	if recovery != "" && !plumbing.IsHash(recovery) {
		return extract.Options{}, fmt.Errorf("invalid recovery commit: %s", recovery)
	}

	mode := extract.ModeFull
	switch {
	case c.Bool("latest-items") && (recovery != "" || c.Bool("no-update")):
		return extract.Options{}, fmt.Errorf("--latest-items cannot be combined with --recovery or --no-update")
	case c.Bool("latest-items"):
		mode = extract.ModeLatest
	case c.Bool("no-update"):
		mode = extract.ModeNoUpdate
	}

	return extract.Options{
		Mode:           mode,
		Since:          since,
		Until:          until,
		Branches:       ctx.Config.Fetch.Branches,
		RecoveryCommit: recovery,
	}, nil
}

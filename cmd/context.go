package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/githistory/config"
	"github.com/masmgr/githistory/internal/extract"
	"github.com/masmgr/githistory/internal/git"
	"github.com/masmgr/githistory/internal/output"
)

// CommandContext holds common state for command execution.
// It encapsulates the shared setup logic across all mirror commands.
type CommandContext struct {
	Config *config.Config
	URI    string
	// Path is the mirror directory, or a log file for fetch --git-log.
	Path   string
	Logger *slog.Logger
}

// NewCommandContext creates a context from CLI flags.
// It loads the configuration and resolves where the mirror lives.
func NewCommandContext(c *cli.Context) (*CommandContext, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	uri := c.Args().First()
	path := c.String("git-path")
	if logFile := c.String("git-log"); logFile != "" {
		path = logFile
	}
	if path == "" {
		if uri == "" {
			return nil, fmt.Errorf("a repository URI or --git-path is required")
		}
		path = extract.DefaultMirrorPath(config.ExpandHome(cfg.Mirror.BasePath), uri)
	}
	if uri == "" {
		uri = path
	}

	return &CommandContext{
		Config: cfg,
		URI:    uri,
		Path:   path,
		Logger: slog.Default(),
	}, nil
}

// MirrorOptions builds mirror options from the configuration.
func (ctx *CommandContext) MirrorOptions() git.MirrorOptions {
	return git.MirrorOptions{
		GitBinary: ctx.Config.Mirror.GitBinary,
		SSLVerify: ctx.Config.Mirror.SSLVerify,
		Logger:    ctx.Logger,
	}
}

// Target is what fetch reads from.
func (ctx *CommandContext) Target() extract.Target {
	return extract.Target{URI: ctx.URI, Path: ctx.Path}
}

// OpenMirror opens the mirror, cloning it first when it does not exist.
func (ctx *CommandContext) OpenMirror(runCtx context.Context) (git.Repository, error) {
	return extract.MirrorOpener(ctx.MirrorOptions())(runCtx, ctx.URI, ctx.Path)
}

// OutputOptions creates OutputOptions from CLI flags and configuration.
func (ctx *CommandContext) OutputOptions(c *cli.Context) output.OutputOptions {
	return output.OutputOptions{
		Format:     getOutputFormat(ctx.Config.Fetch.Format),
		OutputPath: c.String("output"),
		Filter: output.FileFilter{
			Include: ctx.Config.Filters.Include,
			Exclude: ctx.Config.Filters.Exclude,
		},
	}
}

func executeWithContext(c *cli.Context, fn func(ctx *CommandContext, c *cli.Context) error) error {
	ctx, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	return fn(ctx, c)
}

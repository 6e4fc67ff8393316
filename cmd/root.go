package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/githistory/config"
	"github.com/masmgr/githistory/internal/output"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "githistory",
		Usage:   "Extract commit history from Git repositories",
		Version: "1.0.0",
		Commands: []*cli.Command{
			FetchCmd(),
			SyncCmd(),
			RevListCmd(),
			PacksCmd(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				EnvVars: []string{"GITHISTORY_CONFIG"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
				EnvVars: []string{"GITHISTORY_VERBOSE"},
			},
		},
		Before: setupLogging,
	}
}

// Mirror location flags shared across commands
func mirrorFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "git-path",
			Usage: "Path to the bare mirror (default: <base-path>/<uri>-git)",
		},
		&cli.StringFlag{
			Name:    "base-path",
			Usage:   "Directory holding mirrors (default: from config)",
			EnvVars: []string{"GITHISTORY_BASE_PATH"},
		},
		&cli.BoolFlag{
			Name:  "no-ssl-verify",
			Usage: "Disable TLS certificate verification",
		},
	}
}

func branchesFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:  "branches",
		Usage: "Branches to read; glob patterns allowed (can be specified multiple times)",
	}
}

func setupLogging(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// parseDateFlag parses a date string flag. Empty yields the zero time.
func parseDateFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD or RFC3339)", s)
	}
	return t, nil
}

// getOutputFormat parses the output format flag.
func getOutputFormat(s string) output.OutputFormat {
	switch s {
	case "json":
		return output.FormatJSON
	case "csv":
		return output.FormatCSV
	case "markdown", "md":
		return output.FormatMarkdown
	case "ci", "ndjson":
		return output.FormatCI
	default:
		return output.FormatConsole
	}
}

// loadConfig loads configuration from file or defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Apply overrides from CLI
	if includes := c.StringSlice("include"); len(includes) > 0 {
		cfg.Filters.Include = includes
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.Filters.Exclude = excludes
	}
	if c.IsSet("branches") {
		cfg.Fetch.Branches = c.StringSlice("branches")
	}
	if c.IsSet("format") {
		cfg.Fetch.Format = c.String("format")
	}
	if base := c.String("base-path"); base != "" {
		cfg.Mirror.BasePath = base
	}
	if c.Bool("no-ssl-verify") {
		cfg.Mirror.SSLVerify = false
	}

	return cfg, nil
}

// Run executes the CLI application.
func Run() {
	// .env is optional
	_ = godotenv.Load()

	if err := App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/ljbook/internal"
)

const defaultConfigFile = "config/config.yaml"

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg, err := internal.LoadConfig(cmd.String("config"), defaultConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func scrape(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if _, err := internal.RunScrape(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("scrape: %w", err)
	}
	return nil
}

func build(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	req := internal.BuildRequest{EachYear: cmd.Bool("each-year")}
	for _, s := range cmd.StringSlice("year") {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1000 || y > 9999 {
			return fmt.Errorf("build: invalid --year %q", s)
		}
		req.Years = append(req.Years, y)
	}
	if _, err := internal.RunBuild(ctx, req, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	return nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunServe(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

func main() {
	cmd := &cli.Command{
		Name:    "ljbook",
		Usage:   "Archive a LiveJournal blog as Markdown files and bind it into EPUB books",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: defaultConfigFile,
				Value:       defaultConfigFile,
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "scrape",
				Usage:  "Crawl the journal and save posts within the configured date range and tags",
				Action: scrape,
			},
			{
				Name:  "build",
				Usage: "Assemble saved posts into EPUB books",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "year",
						Usage: "Build a book for this year only (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "each-year",
						Usage: "Build one book per year found in the saved posts",
					},
				},
				Action: build,
			},
			{
				Name:   "serve",
				Usage:  "Browse and search saved posts over HTTP",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Expose saved posts to MCP clients over stdio",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

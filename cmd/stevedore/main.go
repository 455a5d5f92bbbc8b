package main

import (
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/urfave/cli/v2"

	"stevedore/internal/config"
	"stevedore/internal/lsp"
)

// Version is set during the build process using ldflags.
var Version = "(dev) v0.0.0"

func main() {
	app := &cli.App{
		Name:    "stevedore",
		Usage:   "Language server tracking crate versions in Cargo manifests",
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log verbosity, higher is chattier",
				Value:   1,
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "append logs to this file instead of stderr",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML configuration file",
			},
			&cli.StringFlag{
				Name:  "cache-dir",
				Usage: "directory for the persistent version cache",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if path := c.String("log-file"); path != "" {
		commonlog.Configure(c.Int("verbose"), &path)
	} else {
		commonlog.Configure(c.Int("verbose"), nil)
	}

	settings := config.NewSettings()
	if path := c.String("config"); path != "" {
		if err := settings.LoadFile(path); err != nil {
			return err
		}
	}
	if dir := c.String("cache-dir"); dir != "" {
		settings.SetCacheRoot(dir)
	}

	server, err := lsp.NewServer(settings)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return server.RunStdio()
}

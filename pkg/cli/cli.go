// Package cli provides the command-line interface for webpilot.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pilotlab-dev/webpilot/pkg/browser"
	"github.com/pilotlab-dev/webpilot/pkg/config"
	"github.com/pilotlab-dev/webpilot/pkg/logger"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "endpoint",
		Aliases: []string{"w"},
		Usage:   "ws:// endpoint of the browser server",
		EnvVars: []string{"WEBPILOT_ENDPOINT"},
	},
	&cli.StringFlag{
		Name:  "config",
		Usage: "Path to webpilot.yaml",
	},
	&cli.IntFlag{
		Name:  "slow-mo",
		Usage: "Delay in ms before each page's first command",
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"WEBPILOT_VERBOSE"},
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Write logs to a file instead of stderr",
		EnvVars: []string{"WEBPILOT_LOG"},
	},
}

// Execute runs the CLI.
func Execute() {
	app := &cli.App{
		Name:    "webpilot",
		Usage:   "Drive a remote browser over the webpilot protocol",
		Version: Version,
		Description: `Webpilot connects to a running browser server and drives pages through
lazy selectors with automatic actionability waiting.

Examples:
  webpilot run checkout.yaml
  webpilot run scenarios/ --include-tags smoke
  webpilot screenshot --selector "#chart" --out chart.png
  webpilot demo`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			runCommand,
			validateCommand,
			screenshotCommand,
			checkCommand,
			demoCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig merges the config file with the global flags; flags win.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	if endpoint := c.String("endpoint"); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if slowMo := c.Int("slow-mo"); slowMo > 0 {
		cfg.SlowMo = slowMo
	}
	if c.Bool("verbose") {
		cfg.Verbose = true
	}
	if logFile := c.String("log-file"); logFile != "" {
		cfg.LogPath = logFile
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) error {
	if err := logger.Init(cfg.LogPath); err != nil {
		return err
	}
	logger.SetVerbose(cfg.Verbose)
	return nil
}

// connectOptions maps the file config onto the browser connect options. A
// configured actionTimeout of -1 means unbounded polling.
func connectOptions(cfg *config.Config) browser.ConnectOptions {
	action := cfg.ActionTimeoutOrDefault()
	if cfg.ActionTimeout < 0 {
		action = -1
	}
	return browser.ConnectOptions{
		Timeout:       cfg.ConnectTimeoutOrDefault(),
		SlowMo:        time.Duration(cfg.SlowMo) * time.Millisecond,
		Headers:       cfg.Headers,
		ActionTimeout: action,
		PollInterval:  cfg.PollIntervalOrDefault(),
		SettleGrace:   cfg.SettleGraceOrDefault(),
	}
}

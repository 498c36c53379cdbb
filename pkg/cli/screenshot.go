package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pilotlab-dev/webpilot/pkg/browser"
	"github.com/pilotlab-dev/webpilot/pkg/logger"
)

var screenshotCommand = &cli.Command{
	Name:  "screenshot",
	Usage: "Capture a screenshot of one element",
	Description: `Screenshot connects to the browser server, optionally navigates, waits
for the selector to become actionable, and writes the image to a file.

Examples:
  webpilot screenshot --selector "#chart" --out chart.png
  webpilot screenshot --url https://example.com --selector ".hero" --out hero.png`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "selector",
			Usage:    "Selector of the element to capture",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "Output file",
			Value: "screenshot.png",
		},
		&cli.StringFlag{
			Name:  "url",
			Usage: "Navigate here before capturing",
		},
	},
	Action: screenshotAction,
}

func screenshotAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}
	defer logger.Close()

	if cfg.Endpoint == "" {
		return fmt.Errorf("no endpoint configured, use --endpoint or webpilot.yaml")
	}

	ctx := context.Background()
	b, err := browser.Connect(ctx, cfg.Endpoint, connectOptions(cfg))
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Endpoint, err)
	}
	defer b.Close()

	page, err := b.NewPage(ctx)
	if err != nil {
		return err
	}
	if url := c.String("url"); url != "" {
		if err := page.Navigate(ctx, url); err != nil {
			return fmt.Errorf("navigate to %s: %w", url, err)
		}
	}

	data, err := page.Locator(c.String("selector")).Screenshot(ctx)
	if err != nil {
		return err
	}

	out := c.String("out")
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Printf("Saved screenshot to %s (%d bytes)\n", out, len(data))
	return nil
}

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pilotlab-dev/webpilot/pkg/browser"
	"github.com/pilotlab-dev/webpilot/pkg/logger"
)

var checkCommand = &cli.Command{
	Name:  "check",
	Usage: "Verify that a browser server is reachable",
	Description: `Check dials the configured endpoint, opens a page and closes it again,
reporting how long the round trip took.`,
	Action: checkAction,
}

func checkAction(c *cli.Context) error {
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
	start := time.Now()
	b, err := browser.Connect(ctx, cfg.Endpoint, connectOptions(cfg))
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Endpoint, err)
	}
	defer b.Close()

	page, err := b.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	if err := page.Close(ctx); err != nil {
		return fmt.Errorf("close page: %w", err)
	}

	fmt.Printf("OK: %s answered in %s\n", cfg.Endpoint, time.Since(start).Round(time.Millisecond))
	return nil
}

package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pilotlab-dev/webpilot/pkg/browser"
	"github.com/pilotlab-dev/webpilot/pkg/core"
	"github.com/pilotlab-dev/webpilot/pkg/logger"
	"github.com/pilotlab-dev/webpilot/pkg/mockdom"
	"github.com/pilotlab-dev/webpilot/pkg/script"
)

var demoCommand = &cli.Command{
	Name:  "demo",
	Usage: "Run a built-in scenario against an in-process fake browser",
	Description: `Demo starts an in-process browser server with a small form page, runs a
bundled scenario against it and prints the result. No real browser is
needed; use it to try webpilot out or to sanity-check an install.`,
	Action: demoAction,
}

const demoScenario = `
name: demo
---
- fill:
    selector: "#name"
    value: "Ada Lovelace"
- check: "#subscribe"
- click: "#submit"
- assertValue:
    selector: "#name"
    value: "Ada Lovelace"
- assertChecked:
    selector: "#subscribe"
- assertText:
    selector: "#submit"
    contains: "Sign up"
`

func demoPage(p *mockdom.Page) {
	p.Add(&mockdom.Element{
		ID: "name", Tag: "input",
		Attrs:   map[string]string{"id": "name"},
		Visible: true, Enabled: true, Editable: true,
		Box: core.Rect{X: 20, Y: 20, Width: 240, Height: 32},
	})
	p.Add(&mockdom.Element{
		ID: "subscribe", Tag: "input", TogglesOnClick: true,
		Attrs:   map[string]string{"id": "subscribe"},
		Visible: true, Enabled: true,
		Box: core.Rect{X: 20, Y: 64, Width: 20, Height: 20},
	})
	p.Add(&mockdom.Element{
		ID: "submit", Tag: "button", Text: "Sign up",
		Attrs:   map[string]string{"id": "submit"},
		Visible: true, Enabled: true,
		Box: core.Rect{X: 20, Y: 100, Width: 120, Height: 40},
	})
}

func demoAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}
	defer logger.Close()

	srv := mockdom.NewServer()
	srv.OnPage = demoPage
	endpoint, err := srv.Start()
	if err != nil {
		return fmt.Errorf("start demo server: %w", err)
	}
	defer srv.Stop()
	fmt.Printf("Demo server listening on %s\n", endpoint)

	cfg.Endpoint = endpoint
	ctx := context.Background()
	b, err := browser.Connect(ctx, endpoint, connectOptions(cfg))
	if err != nil {
		return err
	}
	defer b.Close()

	sc, err := script.Parse([]byte(demoScenario), "demo.yaml")
	if err != nil {
		return err
	}

	page, err := b.NewPage(ctx)
	if err != nil {
		return err
	}
	result := script.NewRunner(page).Run(ctx, sc)

	printSummary([]*script.Result{result})
	if !result.Passed() {
		return cli.Exit("", 1)
	}
	return nil
}

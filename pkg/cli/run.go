package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pilotlab-dev/webpilot/pkg/browser"
	"github.com/pilotlab-dev/webpilot/pkg/logger"
	"github.com/pilotlab-dev/webpilot/pkg/report"
	"github.com/pilotlab-dev/webpilot/pkg/script"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run scenario files against a browser server",
	ArgsUsage: "<scenario.yaml | directory> ...",
	Description: `Run executes one or more YAML scenarios. Arguments may be files or
directories; directories are scanned recursively for .yaml/.yml files.

Examples:
  webpilot run checkout.yaml
  webpilot run scenarios/ --include-tags smoke --exclude-tags flaky
  webpilot run scenarios/ --output ./artifacts`,
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "include-tags",
			Usage: "Only run scenarios carrying one of these tags",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-tags",
			Usage: "Skip scenarios carrying one of these tags",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Directory for failure screenshots and other artifacts",
		},
		&cli.BoolFlag{
			Name:  "no-capture",
			Usage: "Disable automatic screenshots of failing steps",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write report.json and report.html into this directory",
		},
	},
	Action: runAction,
}

func runAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("no scenario files given, see 'webpilot run --help'")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}
	defer logger.Close()

	scenarios, err := collectScenarios(c.Args().Slice(), c.StringSlice("include-tags"), c.StringSlice("exclude-tags"))
	if err != nil {
		return err
	}
	if len(scenarios) == 0 {
		return fmt.Errorf("no scenarios matched")
	}

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

	results, runErr := runScenarios(ctx, b, scenarios, artifactOverrides(c))

	if dir := c.String("report"); dir != "" && len(results) > 0 {
		client := report.ClientInfo{Version: Version, Endpoint: cfg.Endpoint}
		if err := report.Write(dir, report.Build(results, client, start)); err != nil {
			logger.Warn("failed to write report: %v", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	printSummary(results)
	for _, r := range results {
		if !r.Passed() {
			return cli.Exit("", 1)
		}
	}
	return nil
}

type artifactOpts struct {
	outputDir string
	noCapture bool
}

func artifactOverrides(c *cli.Context) artifactOpts {
	return artifactOpts{
		outputDir: c.String("output"),
		noCapture: c.Bool("no-capture"),
	}
}

// collectScenarios expands file and directory arguments into parsed scenarios.
func collectScenarios(args, includeTags, excludeTags []string) ([]*script.Scenario, error) {
	var scenarios []*script.Scenario
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			found, err := script.ParseDirectory(arg, includeTags, excludeTags)
			if err != nil {
				return nil, err
			}
			scenarios = append(scenarios, found...)
			continue
		}
		sc, err := script.ParseFile(arg)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// runScenarios runs each scenario on its own fresh page.
func runScenarios(ctx context.Context, b *browser.Browser, scenarios []*script.Scenario, artifacts artifactOpts) ([]*script.Result, error) {
	results := make([]*script.Result, 0, len(scenarios))
	for _, sc := range scenarios {
		page, err := b.NewPage(ctx)
		if err != nil {
			return results, fmt.Errorf("create page: %w", err)
		}

		runner := script.NewRunner(page)
		if artifacts.outputDir != "" {
			runner.Artifacts.OutputDir = artifacts.outputDir
		}
		if artifacts.noCapture {
			runner.Artifacts.CaptureOnFailure = false
		}

		results = append(results, runner.Run(ctx, sc))
		_ = page.Close(ctx)
	}
	return results, nil
}

const timeRound = time.Millisecond

func printSummary(results []*script.Result) {
	passed := 0
	for _, r := range results {
		mark := "FAIL"
		if r.Passed() {
			mark = "PASS"
			passed++
		}
		fmt.Printf("%s  %s (%d steps, %s)\n", mark, r.Name, len(r.Steps), r.Elapsed.Round(timeRound))
		if r.Passed() {
			continue
		}
		for _, sr := range r.Steps {
			if sr.Error == "" {
				continue
			}
			fmt.Printf("      %s: %s\n", sr.Description, sr.Error)
		}
	}
	fmt.Printf("\n%d/%d scenarios passed\n", passed, len(results))
}

package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pilotlab-dev/webpilot/pkg/validator"
)

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "Check scenario files without running them",
	ArgsUsage: "<scenario.yaml | directory> ...",
	Description: `Validate parses every scenario file and reports all problems at once:
syntax errors, unknown steps, missing selectors, duplicate names.`,
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "include-tags",
			Usage: "Only validate scenarios carrying one of these tags",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-tags",
			Usage: "Skip scenarios carrying one of these tags",
		},
	},
	Action: validateAction,
}

func validateAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("no scenario files given, see 'webpilot validate --help'")
	}

	v := validator.New(c.StringSlice("include-tags"), c.StringSlice("exclude-tags"))

	valid := 0
	var problems []error
	for _, arg := range c.Args().Slice() {
		result := v.Validate(arg)
		valid += len(result.Scenarios)
		problems = append(problems, result.Errors...)
	}

	for _, err := range problems {
		fmt.Printf("error: %v\n", err)
	}
	fmt.Printf("%d scenarios valid, %d problems\n", valid, len(problems))

	if len(problems) > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

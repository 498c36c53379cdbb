package main

import "github.com/pilotlab-dev/webpilot/pkg/cli"

func main() {
	cli.Execute()
}

package main

import (
	"os"

	"github.com/iliyamo/larp-planner/cmd/larpctl/commands"
)

var version = "dev"

func main() {
	// Errors are already printed in colour by the printer package.
	if err := commands.Execute(version); err != nil {
		os.Exit(1)
	}
}

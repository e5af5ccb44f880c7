// Command dockctl runs blind docking jobs from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/turtacn/BlindDock/internal/interfaces/cli"
)

// Set with -ldflags "-X main.version=...".
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := cli.Execute(cli.BuildInfo{Version: version, Commit: commit, BuildDate: buildDate}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

//Personal.AI order the ending

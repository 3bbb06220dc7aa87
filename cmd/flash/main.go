// Command flash is the CLI entry point for the deploy-and-dispatch control plane.
package main

import (
	"os"

	"github.com/runpod/flash/internal/cli"
	"github.com/runpod/flash/internal/output"
)

func main() {
	if err := cli.Execute(); err != nil {
		output.PrintError(err)
		os.Exit(1)
	}
}

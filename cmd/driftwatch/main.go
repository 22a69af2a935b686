// Package main is the entry point for the driftwatch CLI.
package main

import (
	"os"

	"github.com/driftwatch/driftwatch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

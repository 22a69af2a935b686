// Package cli wires the driftwatch commands.
package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/driftwatch/driftwatch/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"     _      _  __ _               _       _\n" +
		"  __| |_ __(_)/ _| |___      ____ _| |_ ___| |__\n" +
		" / _` | '__| | |_| __\\ \\ /\\ / / _` | __/ __| '_ \\\n" +
		"| (_| | |  | |  _| |_ \\ V  V / (_| | || (__| | | |\n" +
		" \\__,_|_|  |_|_|  \\__| \\_/\\_/ \\__,_|\\__\\___|_| |_|\n"
)

var rootCmd = &cobra.Command{
	Use:   "driftwatch",
	Short: "DriftWatch - behavioral pattern supervisor",
	Long:  color.CyanString(logo) + "\nBatch supervisor that scores productivity cycles, detects behavioral patterns, and fires throttled interventions.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(statusCmd)
}

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("driftwatch %s\n", version)
	},
}

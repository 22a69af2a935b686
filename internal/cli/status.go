package cli

import (
	"fmt"
	"os"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/store"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent runs and active patterns",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("DriftWatch Status")
		fmt.Printf("Version: %s\n", version)

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Config error: %v\n", err)
			os.Exit(1)
		}
		if path, err := config.ConfigPath(); err == nil {
			if _, statErr := os.Stat(path); statErr == nil {
				fmt.Println("Config:  ✓ Found (" + path + ")")
			} else {
				fmt.Println("Config:  ✗ Not found (defaults in effect)")
			}
		}

		st, err := store.Open(cfg.Paths.DBPath)
		if err != nil {
			fmt.Printf("Store error: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		runs, err := st.ListSupervisorRuns(5)
		if err != nil {
			fmt.Printf("Run log error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("\nRecent runs:")
		if len(runs) == 0 {
			fmt.Println("  (none)")
		}
		for _, r := range runs {
			line := fmt.Sprintf("  %s  processed=%d failed=%d (%dms)",
				r.RunAt.Format("2006-01-02 15:04"), r.Processed, r.Failed, r.DurationMs)
			if r.Failed > 0 {
				fmt.Println(color.YellowString(line))
			} else {
				fmt.Println(line)
			}
		}

		patterns, err := st.ListActivePatterns()
		if err != nil {
			fmt.Printf("Pattern query error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("\nActive patterns:")
		if len(patterns) == 0 {
			fmt.Println("  (none)")
		}
		for _, p := range patterns {
			fmt.Printf("  %s/%s  %s severity=%d occurrences=%d last_seen=%s\n",
				p.TenantID, p.UserID, p.PatternKey, p.Severity, p.Occurrences,
				p.LastSeenAt.Format("2006-01-02"))
		}
	},
}

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/driftwatch/driftwatch/internal/supervisor"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	runTenantID string
	runUserID   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the supervisor batch once",
	Run:   runOnce,
}

func init() {
	runCmd.Flags().StringVar(&runTenantID, "tenant", "", "Restrict the run to one tenant")
	runCmd.Flags().StringVar(&runUserID, "user", "", "Restrict the run to one user")
}

func runOnce(cmd *cobra.Command, args []string) {
	printHeader("DriftWatch Supervisor Run")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := buildRuntime(ctx)
	if err != nil {
		fmt.Printf("Setup error: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	summary, err := rt.sup.Run(ctx, supervisor.Filter{TenantID: runTenantID, UserID: runUserID})
	if err != nil {
		fmt.Println(color.RedString("Run failed: %v", err))
		os.Exit(1)
	}

	fmt.Printf("Processed: %s\n", color.GreenString("%d", summary.Processed))
	if len(summary.Errors) > 0 {
		fmt.Printf("Failed:    %s\n", color.RedString("%d", len(summary.Errors)))
		for _, e := range summary.Errors {
			fmt.Printf("  %s/%s: %s\n", e.TenantID, e.UserID, e.Error)
		}
	}
	fmt.Printf("Duration:  %s\n", summary.Duration)
}

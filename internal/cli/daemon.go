package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/driftwatch/driftwatch/internal/scheduler"
	"github.com/driftwatch/driftwatch/internal/supervisor"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the cron scheduler until interrupted",
	Run:   runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) {
	printHeader("DriftWatch Daemon")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := buildRuntime(ctx)
	if err != nil {
		fmt.Printf("Setup error: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	cron, err := scheduler.ParseCron(rt.cfg.Scheduler.Cron)
	if err != nil {
		fmt.Printf("Cron error: %v\n", err)
		os.Exit(1)
	}

	sched := scheduler.New(scheduler.Config{
		TickInterval: rt.cfg.Scheduler.TickInterval,
		LockPath:     rt.cfg.Scheduler.LockPath,
	})
	sched.Register(&scheduler.Job{
		Name: "supervisor",
		Cron: cron,
		Run: func(ctx context.Context) error {
			_, err := rt.sup.Run(ctx, supervisor.Filter{})
			return err
		},
	})

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		cancel()
	}()

	fmt.Printf("Scheduler running (cron %q). Ctrl-C to stop.\n", rt.cfg.Scheduler.Cron)
	sched.Run(ctx)
}

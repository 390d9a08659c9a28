package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"thumbsweep/internal/media"
	"thumbsweep/internal/memory"
	"thumbsweep/internal/runner"
	"thumbsweep/internal/startup"
	"thumbsweep/internal/workers"
)

var (
	runTasks      []string
	runRegenerate bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run generation once and exit",
	Long: `Run generation for every task, or for the tasks named with --task, then
exit. Without --regenerate only originals changed since each task's last run
(or missing a derivative) are processed.

Examples:
  thumbsweep run
  thumbsweep run --task photos --task logos
  thumbsweep run --task photos --regenerate`,
	Args: cobra.NoArgs,
	RunE: runOnce,
}

func init() {
	runCmd.Flags().StringSliceVarP(&runTasks, "task", "t", nil, "Task id to run (repeatable; default: all tasks)")
	runCmd.Flags().BoolVar(&runRegenerate, "regenerate", false, "Ignore last run times and regenerate every derivative")
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	memory.ApplyBudget(workers.ForCPU(0))

	config, err := startup.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, config)
	if err != nil {
		return err
	}
	defer media.ShutdownVips()
	defer a.Close()

	a.monitor.Start()

	err = a.runner.RunNow(ctx, runner.Request{
		TaskIDs:    runTasks,
		Regenerate: runRegenerate,
		Trigger:    runner.TriggerManual,
	})

	out := cmd.OutOrStdout()
	progress, ok := a.runner.Progress()
	if ok {
		fmt.Fprintln(out, progress.Message)
		for _, e := range progress.Errors {
			fmt.Fprintf(out, "  error: %s\n", e)
		}
	}
	if err != nil {
		return err
	}
	if ok && len(progress.Errors) > 0 {
		return fmt.Errorf("%d item(s) failed", len(progress.Errors))
	}
	return nil
}

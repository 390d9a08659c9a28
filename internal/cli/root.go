package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"thumbsweep/internal/logging"
	"thumbsweep/internal/startup"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:     "thumbsweep",
	Short:   "Incremental thumbnail generation for a blob store",
	Version: startup.Version,
	Long: `thumbsweep keeps thumbnail derivatives next to the originals they were
made from. Tasks map a folder of the store to a set of thumbnail options;
each run regenerates only what changed since the task last ran.

Configuration comes from environment variables (STORAGE_DIR, DATABASE_DIR,
TASKS_FILE, ...); flags override them for a single invocation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if logLevel == "" {
			return nil
		}
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logging.SetLevel(level)
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
}

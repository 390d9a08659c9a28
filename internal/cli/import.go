package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"thumbsweep/internal/startup"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Sync options and tasks from a YAML definitions file",
	Long: `Validate a task definitions file and upsert its options and tasks into
the task store. Existing tasks keep their last run time; entries missing
from the file are left untouched.

Example file:

  options:
    - id: small
      suffix: sm
      method: FixedWidth
      width: 160
  tasks:
    - id: photos
      work_path: photos
      options: [small]`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	config, err := startup.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := openDatabase(ctx, config)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := importTasks(ctx, db, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %s\n", args[0])
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"thumbsweep/internal/startup"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		info := startup.GetBuildInfo()
		fmt.Fprintf(cmd.OutOrStdout(), "thumbsweep %s (commit %s, built %s, %s %s/%s)\n",
			info.Version, info.Commit, info.BuildTime, info.GoVersion, info.OS, info.Arch)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gzhole/lastlayer/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print lastlayer version",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "lastlayer %s\n", version.Version)
		fmt.Fprintf(out, "  Commit: %s\n", version.GitCommit)
		fmt.Fprintf(out, "  Built:  %s\n", version.BuildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

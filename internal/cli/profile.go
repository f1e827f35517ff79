package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gzhole/lastlayer/internal/scoring"
)

var profileDefaults bool

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Print the active scoring profile as YAML",
	Long: `Print the weight and interaction tables in scoring-profile YAML. The
output can be edited and passed back with --profile.

  lastlayer profile > ~/.lastlayer/strict.yaml
  lastlayer profile --defaults`,
	Args: cobra.NoArgs,
	RunE: profileCommand,
}

func init() {
	profileCmd.Flags().BoolVar(&profileDefaults, "defaults", false, "Print the built-in tables, ignoring any configured profile")
	rootCmd.AddCommand(profileCmd)
}

func profileCommand(cmd *cobra.Command, args []string) error {
	model := scoring.Default()
	if !profileDefaults {
		env, err := loadEnv()
		if err != nil {
			return err
		}
		defer env.close()
		if model, err = env.cfg.ScoringModel(); err != nil {
			return fmt.Errorf("failed to load scoring profile: %w", err)
		}
	}

	data, err := scoring.MarshalProfile(model)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gzhole/lastlayer/internal/threat"
)

var showInteractions bool

var threatsCmd = &cobra.Command{
	Use:   "threats",
	Short: "List threat kinds with their wire index and weight",
	Long: `List every threat kind the detection backend can report, with its wire
index, the weight it adds to a score and a short description. Weights come
from the active scoring profile.

  lastlayer threats
  lastlayer threats --interactions --profile strict.yaml`,
	Args: cobra.NoArgs,
	RunE: threatsCommand,
}

func init() {
	threatsCmd.Flags().BoolVar(&showInteractions, "interactions", false, "Also list the interaction pairs")
	rootCmd.AddCommand(threatsCmd)
}

func threatsCommand(cmd *cobra.Command, args []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer env.close()

	model, err := env.cfg.ScoringModel()
	if err != nil {
		return fmt.Errorf("failed to load scoring profile: %w", err)
	}

	out := cmd.OutOrStdout()
	c := newPalette(out)

	fmt.Fprintln(out, c.bold(fmt.Sprintf("%-5s %-26s %-7s %s", "INDEX", "THREAT", "WEIGHT", "DESCRIPTION")))
	for _, k := range threat.All() {
		fmt.Fprintf(out, "%-5d %-26s %-7.2f %s\n", k.Index(), k, model.Weight(k), k.Description())
	}
	fmt.Fprintf(out, "\nKinds without an explicit weight score %.2f.\n", model.DefaultWeight())

	if showInteractions {
		fmt.Fprintln(out)
		fmt.Fprintln(out, c.bold("INTERACTIONS"))
		fmt.Fprintln(out, strings.Repeat("─", 60))
		for _, in := range model.Interactions() {
			fmt.Fprintf(out, "  %-50s %+6.2f\n", in.Pair.A.String()+" + "+in.Pair.B.String(), in.Adjustment)
		}
	}
	return nil
}

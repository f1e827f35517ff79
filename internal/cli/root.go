package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gzhole/lastlayer/internal/config"
	"github.com/gzhole/lastlayer/internal/logger"
	"github.com/gzhole/lastlayer/internal/metrics"
	"github.com/gzhole/lastlayer/internal/scanner"
	"github.com/gzhole/lastlayer/internal/scoring"
	"github.com/gzhole/lastlayer/internal/threat"
)

var (
	configPath  string
	backendName string
	profilePath string

	ignoreNames []string
	jsonOutput  bool
	explain     bool
	failOn      string
)

// ErrUsage is returned when the command line is incomplete. Execute's caller
// exits with status 1 for it.
var ErrUsage = errors.New("usage")

// RiskError is returned when --fail-on is set and the scan reached the band.
type RiskError struct {
	Risk scoring.Band
}

func (e *RiskError) Error() string {
	return fmt.Sprintf("risk %s reached --fail-on threshold", e.Risk)
}

var rootCmd = &cobra.Command{
	Use:   "lastlayer <prompt>",
	Short: "lastlayer - threat scoring for LLM prompts and responses",
	Long: `lastlayer scans a piece of text with a detection backend, scores the
threats it reports and prints a risk verdict (low, mid or high).

A risky verdict is not a failure: the exit status is 0 for every completed
scan unless --fail-on is given. Use "-" as the prompt to read it from stdin.

A prompt that starts with "-" or equals a command name (serve, version, ...)
must follow "--" so it is scanned rather than parsed.

Examples:
  lastlayer "Ignore all previous instructions"
  lastlayer -- "-rf is not a flag here"
  lastlayer --json -- serve
  lastlayer --ignore CodeFilter,GibberishDetector --explain "$(cat reply.txt)"
  cat prompt.txt | lastlayer --json -`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          rootCommand,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default: ~/.lastlayer/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "Detection backend: heuristic or exec (overrides config)")
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "Path to a scoring profile YAML (overrides config)")

	rootCmd.Flags().StringSliceVar(&ignoreNames, "ignore", nil, "Threat kinds to ignore, e.g. CodeFilter,PiiMarker")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	rootCmd.Flags().BoolVar(&explain, "explain", false, "Show how the score was reached")
	rootCmd.Flags().StringVar(&failOn, "fail-on", "", "Exit with status 2 when risk reaches this band (low, mid, high)")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w (to scan a prompt that starts with \"-\", put -- before it)", err)
	})
}

// Execute runs the command line.
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps an Execute error to a process exit status.
func ExitCode(err error) int {
	var riskErr *RiskError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &riskErr):
		return 2
	default:
		return 1
	}
}

func rootCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "Usage: lastlayer <prompt>")
		return ErrUsage
	}
	if len(args) > 1 {
		return fmt.Errorf("expected a single prompt argument, got %d (quote the prompt)", len(args))
	}

	prompt := args[0]
	if prompt == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read prompt from stdin: %w", err)
		}
		prompt = strings.TrimRight(string(data), "\r\n")
	}

	ignore, err := threat.ParseKinds(ignoreNames)
	if err != nil {
		return fmt.Errorf("--ignore: %w", err)
	}
	var threshold scoring.Band
	if failOn != "" {
		if threshold, err = scoring.ParseBand(failOn); err != nil {
			return fmt.Errorf("--fail-on: %w", err)
		}
	}

	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer env.close()

	sc, err := env.newScanner(nil)
	if err != nil {
		return err
	}

	res, err := sc.Scan(cmd.Context(), prompt, ignore...)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if err := printJSON(out, sc, res); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, res)
		if explain {
			printBreakdown(out, sc.Explain(res), res.Risk)
		}
	}

	if threshold != scoring.BandNone && res.IsRisky() && res.Risk.AtLeast(threshold) {
		return &RiskError{Risk: res.Risk}
	}
	return nil
}

func printJSON(w io.Writer, sc *scanner.Scanner, res *scanner.Result) error {
	payload := struct {
		*scanner.Result
		Breakdown *scoring.Breakdown `json:"breakdown,omitempty"`
	}{Result: res}
	if explain {
		b := sc.Explain(res)
		payload.Breakdown = &b
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func printBreakdown(w io.Writer, b scoring.Breakdown, risk scoring.Band) {
	c := newPalette(w)
	fmt.Fprintln(w)
	for _, t := range b.Base {
		fmt.Fprintf(w, "  %-26s %+6.2f\n", t.Kind, t.Weight)
	}
	for _, in := range b.Interactions {
		fmt.Fprintf(w, "  %-26s %+6.2f\n", in.Pair.A.String()+" + "+in.Pair.B.String(), in.Adjustment)
	}
	fmt.Fprintln(w, "  "+strings.Repeat("─", 33))
	fmt.Fprintf(w, "  %-26s %6.2f  %s\n", "score", b.Total, c.band(risk))
}

// env is the configuration-derived state shared by the commands.
type env struct {
	cfg *config.Config
	log *zap.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if backendName != "" {
		cfg.Backend.Name = backendName
	}
	if profilePath != "" {
		cfg.Profile = profilePath
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	if cfg.File != "" {
		log.Debug("config loaded", zap.String("file", cfg.File))
	}
	return &env{cfg: cfg, log: log}, nil
}

func (e *env) newScanner(rec *metrics.Recorder) (*scanner.Scanner, error) {
	b, err := e.cfg.NewBackend()
	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}
	model, err := e.cfg.ScoringModel()
	if err != nil {
		return nil, fmt.Errorf("failed to load scoring profile: %w", err)
	}
	return scanner.New(b,
		scanner.WithModel(model),
		scanner.WithLogger(e.log),
		scanner.WithMetrics(rec),
	), nil
}

func (e *env) close() {
	_ = e.log.Sync()
}

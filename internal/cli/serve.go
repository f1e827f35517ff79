package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gzhole/lastlayer/internal/metrics"
	"github.com/gzhole/lastlayer/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP scan API",
	Long: `Serve the scanner over HTTP until interrupted.

  POST /v1/scan      {"text": "...", "ignore": ["CodeFilter"]}
  GET  /v1/threats   threat catalogue and scoring tables
  GET  /healthz      liveness probe
  GET  /metrics      Prometheus metrics

  lastlayer serve --addr 127.0.0.1:8088`,
	Args: cobra.NoArgs,
	RunE: serveCommand,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func serveCommand(cmd *cobra.Command, args []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer env.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sc, err := env.newScanner(metrics.New(reg))
	if err != nil {
		return err
	}

	addr := env.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env.log.Info("starting server",
		zap.String("addr", addr),
		zap.String("backend", sc.Backend().Name()),
		zap.Int("rate_limit", env.cfg.Server.RateLimit),
	)
	if err := server.Run(ctx, sc, server.Options{
		Addr:           addr,
		RateLimit:      env.cfg.Server.RateLimit,
		Burst:          env.cfg.Server.Burst,
		CORSOrigins:    env.cfg.Server.CORSOrigins,
		TrustedProxies: env.cfg.Server.TrustedProxies,
		Gatherer:       reg,
		Logger:         env.log,
	}); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

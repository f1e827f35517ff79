// Package server exposes the scanner over HTTP with gin.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/gzhole/lastlayer/internal/logger"
	"github.com/gzhole/lastlayer/internal/metrics"
	"github.com/gzhole/lastlayer/internal/scanner"
)

const shutdownTimeout = 15 * time.Second

// Options configures the router. Zero RateLimit disables rate limiting.
type Options struct {
	Addr        string
	RateLimit   int
	Burst       int
	CORSOrigins []string
	// TrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-For is
	// believed. Empty trusts none and keys rate limits on the peer address.
	TrustedProxies []string
	// Gatherer backs /metrics. Nil leaves the endpoint out.
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewRouter builds the HTTP handler:
//
//	POST /v1/scan     scan a text
//	GET  /v1/threats  threat catalogue and scoring tables
//	GET  /healthz     liveness
//	GET  /metrics     Prometheus exposition
func NewRouter(sc *scanner.Scanner, opts Options) *gin.Engine {
	log := logger.OrNop(opts.Logger)
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
		log.Error("invalid trusted proxies, trusting none", zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery())
	router.Use(requestID())

	if len(opts.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", requestIDHeader},
			ExposeHeaders:    []string{"Content-Length", requestIDHeader},
			AllowCredentials: !containsWildcard(opts.CORSOrigins),
			MaxAge:           12 * time.Hour,
		}))
	}

	router.Use(bodyLimit())
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = opts.RateLimit * 2
		}
		router.Use(rateLimiter(opts.RateLimit, burst))
	}
	router.Use(requestLogger(log))

	h := &handler{scanner: sc, logger: log}
	router.GET("/healthz", h.healthz)
	if opts.Gatherer != nil {
		mh := metrics.Handler(opts.Gatherer)
		router.GET("/metrics", gin.WrapH(mh))
	}

	v1 := router.Group("/v1")
	v1.POST("/scan", h.scan)
	v1.GET("/threats", h.threats)

	return router
}

// Run serves the router on opts.Addr until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, sc *scanner.Scanner, opts Options) error {
	log := logger.OrNop(opts.Logger)
	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           NewRouter(sc, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("lastlayer HTTP listening", zap.String("addr", opts.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("stopped")
	return nil
}

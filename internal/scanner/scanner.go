// Package scanner is the scan facade: it calls the detection backend once,
// decodes its answer, drops ignored threats and scores what is left.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gzhole/lastlayer/internal/backend"
	"github.com/gzhole/lastlayer/internal/logger"
	"github.com/gzhole/lastlayer/internal/metrics"
	"github.com/gzhole/lastlayer/internal/scoring"
	"github.com/gzhole/lastlayer/internal/threat"
	"github.com/gzhole/lastlayer/internal/wire"
)

// Scanner is safe for concurrent use as long as its backend is.
type Scanner struct {
	backend backend.Backend
	model   *scoring.Model
	log     *zap.Logger
	metrics *metrics.Recorder
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithModel replaces the built-in weight and interaction tables.
func WithModel(m *scoring.Model) Option {
	return func(s *Scanner) {
		if m != nil {
			s.model = m
		}
	}
}

// WithLogger sets the logger. Scanned text is logged redacted at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) { s.log = logger.OrNop(l) }
}

// WithMetrics records every scan on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Scanner) { s.metrics = r }
}

// New returns a scanner over b using the default scoring model.
func New(b backend.Backend, opts ...Option) *Scanner {
	s := &Scanner{
		backend: b,
		model:   scoring.Default(),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Model returns the scoring model in use.
func (s *Scanner) Model() *scoring.Model { return s.model }

// Backend returns the detection backend in use.
func (s *Scanner) Backend() backend.Backend { return s.backend }

// Scan runs the backend over text exactly once and returns the scored result.
// Kinds in ignore are removed before scoring.
//
// Errors wrap threat.ErrInvalidThreatKind (bad ignore kind, reported before
// the backend is called), backend.ErrUnavailable or wire.ErrMalformedResponse.
// No error is ever turned into a passed result.
func (s *Scanner) Scan(ctx context.Context, text string, ignore ...threat.Kind) (*Result, error) {
	start := time.Now()

	res, err := s.scan(ctx, text, ignore)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.ObserveError(err, elapsed)
		s.log.Debug("scan failed",
			zap.String("backend", s.backend.Name()),
			logger.Text("text", text),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.ObserveScan(string(res.Risk), res.Markers, elapsed)
	s.log.Debug("scan",
		zap.String("backend", s.backend.Name()),
		logger.Text("text", text),
		zap.Strings("markers", res.Markers.Names()),
		zap.Float64("score", res.Score),
		zap.String("risk", string(res.Risk)),
		zap.Duration("elapsed", elapsed),
	)
	return res, nil
}

func (s *Scanner) scan(ctx context.Context, text string, ignore []threat.Kind) (*Result, error) {
	if err := threat.Validate(ignore...); err != nil {
		return nil, fmt.Errorf("ignore: %w", err)
	}

	name := s.backend.Name()
	raw, err := s.backend.Detect(ctx, text)
	if err != nil {
		if errors.Is(err, backend.ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", backend.ErrUnavailable, name, err)
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: %s returned no data", backend.ErrUnavailable, name)
	}

	markers, backendPassed, err := wire.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s backend: %w", name, err)
	}
	if backendPassed != (len(markers) == 0) {
		s.log.Debug("backend pass flag disagrees with markers",
			zap.String("backend", name),
			zap.Bool("backend_passed", backendPassed),
		)
	}

	if len(ignore) > 0 {
		markers, _ = threat.Suppress(markers, ignore...)
	}
	return newResult(text, markers, s.model), nil
}

// Explain returns the score breakdown of r under the scanner's model.
func (s *Scanner) Explain(r *Result) scoring.Breakdown {
	return s.model.Breakdown(r.Markers)
}

package scanner

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gzhole/lastlayer/internal/logger"
	"github.com/gzhole/lastlayer/internal/scoring"
	"github.com/gzhole/lastlayer/internal/threat"
)

// ErrBlocked is returned by Guard when a handler refuses a risky text.
var ErrBlocked = errors.New("blocked by risk policy")

// Generator is a text model that Guard wraps.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Handler is called with every scanned text and its result. A non-nil error
// stops the guarded call.
type Handler func(ctx context.Context, text string, r *Result) error

// LogRisky returns a handler that logs risky results as warnings and lets
// everything through.
func LogRisky(l *zap.Logger) Handler {
	l = logger.OrNop(l)
	return func(_ context.Context, text string, r *Result) error {
		if r.Passed {
			return nil
		}
		l.Warn("security risk detected",
			zap.Strings("markers", r.Markers.Names()),
			zap.Float64("score", r.Score),
			zap.String("risk", string(r.Risk)),
			logger.Text("text", text),
		)
		return nil
	}
}

// BlockAt returns a handler that fails with ErrBlocked once the risk band
// reaches min.
func BlockAt(min scoring.Band) Handler {
	return func(_ context.Context, _ string, r *Result) error {
		if r.IsRisky() && r.Risk.AtLeast(min) {
			return fmt.Errorf("%w: %s risk (%v)", ErrBlocked, r.Risk, r.Markers.Names())
		}
		return nil
	}
}

// Guard scans the prompt before and the response after each Generate call.
type Guard struct {
	gen     Generator
	scanner *Scanner

	// OnPrompt and OnResponse default to LogRisky with the scanner's logger.
	OnPrompt   Handler
	OnResponse Handler
	// Ignore is applied to both scans.
	Ignore []threat.Kind
}

// NewGuard wraps gen so that traffic through it is scanned by s.
func NewGuard(gen Generator, s *Scanner) *Guard {
	return &Guard{
		gen:        gen,
		scanner:    s,
		OnPrompt:   LogRisky(s.log),
		OnResponse: LogRisky(s.log),
	}
}

// Generate scans prompt, calls the wrapped generator and scans its output.
// Scan errors abort the call; the prompt is never forwarded unscanned.
func (g *Guard) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.check(ctx, prompt, g.OnPrompt); err != nil {
		return "", fmt.Errorf("prompt: %w", err)
	}
	out, err := g.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if err := g.check(ctx, out, g.OnResponse); err != nil {
		return "", fmt.Errorf("response: %w", err)
	}
	return out, nil
}

func (g *Guard) check(ctx context.Context, text string, h Handler) error {
	r, err := g.scanner.Scan(ctx, text, g.Ignore...)
	if err != nil {
		return err
	}
	if h == nil {
		return nil
	}
	return h(ctx, text, r)
}

// Package lastlayer scores LLM prompts and responses for security risk.
//
//	res, err := lastlayer.Scan(ctx, prompt)
//	if err != nil {
//		return err
//	}
//	if res.IsRisky() {
//		log.Printf("blocked: %s risk, %v", res.Risk, res.Markers)
//	}
//
// Scan uses the built-in heuristic detectors and scoring tables. NewScanner
// accepts any Backend, such as an external detector run with NewExecBackend.
package lastlayer

import (
	"context"
	"sync"

	"github.com/gzhole/lastlayer/internal/backend"
	"github.com/gzhole/lastlayer/internal/scanner"
	"github.com/gzhole/lastlayer/internal/scoring"
	"github.com/gzhole/lastlayer/internal/threat"
	"github.com/gzhole/lastlayer/internal/version"
	"github.com/gzhole/lastlayer/internal/wire"
)

type (
	Threat     = threat.Kind
	Markers    = threat.Markers
	RiskResult = scanner.Result
	Band       = scoring.Band
	Model      = scoring.Model
	Backend    = backend.Backend
	Scanner    = scanner.Scanner
	Option     = scanner.Option
	Guard      = scanner.Guard
	Generator  = scanner.Generator
)

const (
	MixedLangMarker          = threat.MixedLangMarker
	InvisibleUnicodeDetector = threat.InvisibleUnicodeDetector
	MarkdownLinkDetector     = threat.MarkdownLinkDetector
	HiddenTextDetector       = threat.HiddenTextDetector
	Base64Detector           = threat.Base64Detector
	SecretsMarker            = threat.SecretsMarker
	ProfanityDetector        = threat.ProfanityDetector
	PiiMarker                = threat.PiiMarker
	ExploitClassifier        = threat.ExploitClassifier
	ObfuscationDetector      = threat.ObfuscationDetector
	CodeFilter               = threat.CodeFilter
	GibberishDetector        = threat.GibberishDetector
	IntellectualPropertyLeak = threat.IntellectualPropertyLeak
)

const (
	RiskNone = scoring.BandNone
	RiskLow  = scoring.BandLow
	RiskMid  = scoring.BandMid
	RiskHigh = scoring.BandHigh
)

var (
	ErrBackendUnavailable = backend.ErrUnavailable
	ErrMalformedResponse  = wire.ErrMalformedResponse
	ErrInvalidThreatKind  = threat.ErrInvalidThreatKind
	ErrBlocked            = scanner.ErrBlocked
)

var (
	WithModel   = scanner.WithModel
	WithLogger  = scanner.WithLogger
	WithMetrics = scanner.WithMetrics
)

var (
	defaultOnce    sync.Once
	defaultScanner *scanner.Scanner
)

func defaultInstance() *scanner.Scanner {
	defaultOnce.Do(func() {
		defaultScanner = scanner.New(backend.NewHeuristic())
	})
	return defaultScanner
}

// Scan scores text with the built-in detectors. Threats in ignore are dropped
// before scoring. A risky verdict is a normal return; err is non-nil only when
// the scan itself failed.
func Scan(ctx context.Context, text string, ignore ...Threat) (*RiskResult, error) {
	return defaultInstance().Scan(ctx, text, ignore...)
}

// ScanLLM scans model output. It is Scan under a name that reads better at
// response call sites.
func ScanLLM(ctx context.Context, text string, ignore ...Threat) (*RiskResult, error) {
	return Scan(ctx, text, ignore...)
}

// NewScanner returns a scanner over b.
func NewScanner(b Backend, opts ...Option) *Scanner {
	return scanner.New(b, opts...)
}

// NewHeuristicBackend returns the built-in detectors as a Backend.
func NewHeuristicBackend() Backend {
	return backend.NewHeuristic()
}

// NewExecBackend returns a Backend that runs command once per scan, passing
// the text on stdin and reading the wire response from stdout.
func NewExecBackend(command string, args ...string) Backend {
	return backend.NewExec(command, args...)
}

// NewGuard wraps gen so its prompts and responses are scanned by s.
func NewGuard(gen Generator, s *Scanner) *Guard {
	return scanner.NewGuard(gen, s)
}

// LoadProfile reads a YAML scoring profile for use with WithModel.
func LoadProfile(path string) (*Model, error) {
	return scoring.LoadProfile(path)
}

// ParseThreat resolves a threat kind by name, case-insensitively.
func ParseThreat(name string) (Threat, error) {
	return threat.ParseKind(name)
}

// Version returns the library version.
func Version() string {
	return version.Version
}

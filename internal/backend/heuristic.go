package backend

import (
	"context"
	"fmt"

	"github.com/gzhole/lastlayer/internal/threat"
	"github.com/gzhole/lastlayer/internal/wire"
)

// Heuristic detects threats with pattern matching. It needs no external
// process and runs synchronously.
type Heuristic struct {
	rules []heuristicRule
}

// heuristicRule is the detector for one threat kind. detect returns the
// diagnostic message when the rule fires.
type heuristicRule struct {
	kind   threat.Kind
	detect func(text string) (string, bool)
}

// NewHeuristic returns a heuristic backend with one rule per threat kind.
func NewHeuristic() *Heuristic {
	return &Heuristic{rules: []heuristicRule{
		{threat.MixedLangMarker, detectMixedLanguage},
		{threat.InvisibleUnicodeDetector, detectInvisibleUnicode},
		{threat.MarkdownLinkDetector, detectMarkdownLink},
		{threat.HiddenTextDetector, detectHiddenText},
		{threat.Base64Detector, detectBase64},
		{threat.SecretsMarker, detectSecrets},
		{threat.ProfanityDetector, detectProfanity},
		{threat.PiiMarker, detectPII},
		{threat.ExploitClassifier, detectExploit},
		{threat.ObfuscationDetector, detectObfuscation},
		{threat.CodeFilter, detectCode},
		{threat.GibberishDetector, detectGibberish},
		{threat.IntellectualPropertyLeak, detectIPLeak},
	}}
}

func (h *Heuristic) Name() string { return "heuristic" }

// Detect runs every rule over text and encodes the markers that fired.
func (h *Heuristic) Detect(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return wire.Encode(h.Markers(text)), nil
}

// Markers runs every rule over text.
func (h *Heuristic) Markers(text string) threat.Markers {
	markers := threat.Markers{}
	for _, r := range h.rules {
		if msg, ok := r.detect(text); ok {
			markers[r.kind] = msg
		}
	}
	return markers
}

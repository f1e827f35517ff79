// Package scoring turns a set of triggered threat markers into a numeric risk
// score and a coarse risk band.
//
// The score is additive: every triggered kind contributes its weight, and
// every interaction pair whose two kinds are both present contributes its
// adjustment (positive amplifies, negative dampens). The tables are data; a
// Model is built once and shared read-only between goroutines.
package scoring

import (
	"github.com/gzhole/lastlayer/internal/threat"
)

// DefaultWeight applies to kinds that have no entry in the weight table.
const DefaultWeight = 0.5

// Pair is an unordered pair of threat kinds. Use NewPair to get the
// normalised form (A <= B) that Model lookups rely on.
type Pair struct {
	A threat.Kind `json:"a"`
	B threat.Kind `json:"b"`
}

// NewPair returns the normalised pair {a, b}.
func NewPair(a, b threat.Kind) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Interaction is a score adjustment applied when both kinds of Pair are present.
type Interaction struct {
	Pair       Pair    `json:"pair"`
	Adjustment float64 `json:"adjustment"`
}

// Model holds the weight and interaction tables. The zero value scores every
// kind at 0; use NewModel or Default.
type Model struct {
	defaultWeight float64
	weights       map[threat.Kind]float64
	interactions  []Interaction
}

// NewModel builds a Model from copies of the given tables. Interaction pairs
// are normalised, and a pair listed twice keeps the sum of its adjustments
// at the position of its first occurrence.
func NewModel(defaultWeight float64, weights map[threat.Kind]float64, interactions []Interaction) *Model {
	w := make(map[threat.Kind]float64, len(weights))
	for k, v := range weights {
		w[k] = v
	}

	pos := make(map[Pair]int, len(interactions))
	merged := make([]Interaction, 0, len(interactions))
	for _, in := range interactions {
		p := NewPair(in.Pair.A, in.Pair.B)
		if i, seen := pos[p]; seen {
			merged[i].Adjustment += in.Adjustment
			continue
		}
		pos[p] = len(merged)
		merged = append(merged, Interaction{Pair: p, Adjustment: in.Adjustment})
	}

	return &Model{
		defaultWeight: defaultWeight,
		weights:       w,
		interactions:  merged,
	}
}

// Default returns the built-in tables.
func Default() *Model {
	return NewModel(DefaultWeight, DefaultWeights(), DefaultInteractions())
}

// DefaultWeights returns the built-in per-kind severity weights.
// IntellectualPropertyLeak is deliberately absent and scores DefaultWeight.
func DefaultWeights() map[threat.Kind]float64 {
	return map[threat.Kind]float64{
		threat.MixedLangMarker:          1.0,
		threat.InvisibleUnicodeDetector: 1.2,
		threat.MarkdownLinkDetector:     0.8,
		threat.HiddenTextDetector:       1.1,
		threat.Base64Detector:           0.5,
		threat.SecretsMarker:            1.5,
		threat.ProfanityDetector:        0.7,
		threat.PiiMarker:                1.4,
		threat.ExploitClassifier:        2.0,
		threat.ObfuscationDetector:      1.3,
		threat.CodeFilter:               0.6,
		threat.GibberishDetector:        0.9,
	}
}

// DefaultInteractions returns the built-in interaction table.
func DefaultInteractions() []Interaction {
	return []Interaction{
		{Pair: NewPair(threat.PiiMarker, threat.SecretsMarker), Adjustment: 1.5},
		{Pair: NewPair(threat.PiiMarker, threat.ExploitClassifier), Adjustment: 5.5},
		{Pair: NewPair(threat.ObfuscationDetector, threat.ExploitClassifier), Adjustment: 2.0},
		// Gibberish next to a code block usually is the code block.
		{Pair: NewPair(threat.GibberishDetector, threat.CodeFilter), Adjustment: -0.5},
		{Pair: NewPair(threat.InvisibleUnicodeDetector, threat.HiddenTextDetector), Adjustment: 1.0},
		{Pair: NewPair(threat.Base64Detector, threat.SecretsMarker), Adjustment: 1.2},
		{Pair: NewPair(threat.MarkdownLinkDetector, threat.ExploitClassifier), Adjustment: 2.5},
		{Pair: NewPair(threat.MarkdownLinkDetector, threat.ObfuscationDetector), Adjustment: 1.8},
		{Pair: NewPair(threat.MarkdownLinkDetector, threat.GibberishDetector), Adjustment: -0.2},
		{Pair: NewPair(threat.HiddenTextDetector, threat.Base64Detector), Adjustment: 2.0},
	}
}

// Weight returns the weight of k, falling back to the model's default.
func (m *Model) Weight(k threat.Kind) float64 {
	if w, ok := m.weights[k]; ok {
		return w
	}
	return m.defaultWeight
}

// DefaultWeight returns the weight used for kinds absent from the table.
func (m *Model) DefaultWeight() float64 { return m.defaultWeight }

// Weights returns a copy of the explicit weight table.
func (m *Model) Weights() map[threat.Kind]float64 {
	out := make(map[threat.Kind]float64, len(m.weights))
	for k, v := range m.weights {
		out[k] = v
	}
	return out
}

// Interactions returns a copy of the interaction table in evaluation order.
func (m *Model) Interactions() []Interaction {
	out := make([]Interaction, len(m.interactions))
	copy(out, m.interactions)
	return out
}

// Score computes base weight plus interaction adjustments for markers.
// Kinds are summed in index order so the result is bit-for-bit reproducible.
func (m *Model) Score(markers threat.Markers) float64 {
	return m.Breakdown(markers).Total
}

// Contribution is one term of a score.
type Contribution struct {
	Kind   threat.Kind `json:"kind"`
	Weight float64     `json:"weight"`
}

// Breakdown itemises how a score was reached.
type Breakdown struct {
	Base         []Contribution `json:"base"`
	Interactions []Interaction  `json:"interactions"` // only the pairs that fired
	BaseScore    float64        `json:"base_score"`
	Interaction  float64        `json:"interaction_score"`
	Total        float64        `json:"total"`
}

// Breakdown scores markers and returns every term that contributed.
func (m *Model) Breakdown(markers threat.Markers) Breakdown {
	var b Breakdown
	for _, k := range markers.Kinds() {
		w := m.Weight(k)
		b.Base = append(b.Base, Contribution{Kind: k, Weight: w})
		b.BaseScore += w
	}
	for _, in := range m.interactions {
		if markers.Has(in.Pair.A) && markers.Has(in.Pair.B) {
			b.Interactions = append(b.Interactions, in)
			b.Interaction += in.Adjustment
		}
	}
	b.Total = b.BaseScore + b.Interaction
	return b
}

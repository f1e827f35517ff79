package scoring

import (
	"math"
	"testing"

	"github.com/gzhole/lastlayer/internal/threat"
)

const epsilon = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func markers(kinds ...threat.Kind) threat.Markers {
	m := threat.Markers{}
	for _, k := range kinds {
		m[k] = "x"
	}
	return m
}

func TestModel_Score(t *testing.T) {
	m := Default()

	tests := []struct {
		name  string
		kinds []threat.Kind
		want  float64
	}{
		{"empty", nil, 0},
		{"secrets only", []threat.Kind{threat.SecretsMarker}, 1.5},
		{"pii and secrets", []threat.Kind{threat.PiiMarker, threat.SecretsMarker}, 1.4 + 1.5 + 1.5},
		{"unlisted kind uses default", []threat.Kind{threat.IntellectualPropertyLeak}, 0.5},
		{"dampening pair", []threat.Kind{threat.GibberishDetector, threat.CodeFilter}, 0.9 + 0.6 - 0.5},
		{
			"pii exploit obfuscation",
			[]threat.Kind{threat.PiiMarker, threat.ExploitClassifier, threat.ObfuscationDetector},
			1.4 + 2.0 + 1.3 + 5.5 + 2.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Score(markers(tt.kinds...))
			if !approxEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestModel_EveryDefaultInteractionFires(t *testing.T) {
	m := Default()
	for _, in := range DefaultInteractions() {
		pair := markers(in.Pair.A, in.Pair.B)
		want := m.Weight(in.Pair.A) + m.Weight(in.Pair.B) + in.Adjustment
		if got := m.Score(pair); !approxEqual(got, want) {
			t.Errorf("%s+%s: expected %v, got %v", in.Pair.A, in.Pair.B, want, got)
		}

		// One side alone contributes only its weight.
		if got := m.Score(markers(in.Pair.A)); !approxEqual(got, m.Weight(in.Pair.A)) {
			t.Errorf("%s alone: expected %v, got %v", in.Pair.A, m.Weight(in.Pair.A), got)
		}
	}
	if len(DefaultInteractions()) != 10 {
		t.Errorf("expected 10 default interactions, got %d", len(DefaultInteractions()))
	}
}

func TestModel_PairsAreUnordered(t *testing.T) {
	a := NewModel(0, nil, []Interaction{{Pair: Pair{A: threat.SecretsMarker, B: threat.PiiMarker}, Adjustment: 1}})
	b := NewModel(0, nil, []Interaction{{Pair: Pair{A: threat.PiiMarker, B: threat.SecretsMarker}, Adjustment: 1}})
	mk := markers(threat.PiiMarker, threat.SecretsMarker)
	if a.Score(mk) != b.Score(mk) {
		t.Errorf("pair order changed the score: %v vs %v", a.Score(mk), b.Score(mk))
	}
	if NewPair(threat.SecretsMarker, threat.PiiMarker) != NewPair(threat.PiiMarker, threat.SecretsMarker) {
		t.Error("NewPair should normalise order")
	}
}

func TestNewModel_MergesDuplicatePairs(t *testing.T) {
	m := NewModel(0, nil, []Interaction{
		{Pair: NewPair(threat.PiiMarker, threat.SecretsMarker), Adjustment: 1},
		{Pair: Pair{A: threat.SecretsMarker, B: threat.PiiMarker}, Adjustment: 0.5},
	})
	if len(m.Interactions()) != 1 {
		t.Fatalf("expected 1 merged interaction, got %d", len(m.Interactions()))
	}
	if got := m.Score(markers(threat.PiiMarker, threat.SecretsMarker)); !approxEqual(got, 1.5) {
		t.Errorf("expected 1.5, got %v", got)
	}
}

func TestNewModel_CopiesTables(t *testing.T) {
	w := map[threat.Kind]float64{threat.PiiMarker: 1}
	m := NewModel(0.5, w, nil)
	w[threat.PiiMarker] = 100
	if m.Weight(threat.PiiMarker) != 1 {
		t.Error("model shares the caller's weight map")
	}
	got := m.Weights()
	got[threat.PiiMarker] = 7
	if m.Weight(threat.PiiMarker) != 1 {
		t.Error("Weights() leaked the internal map")
	}
}

func TestModel_ScoreIsDeterministic(t *testing.T) {
	m := Default()
	mk := markers(threat.All()...)
	first := m.Score(mk)
	for i := 0; i < 100; i++ {
		if got := m.Score(mk); got != first {
			t.Fatalf("iteration %d: %v != %v", i, got, first)
		}
	}
}

func TestModel_Breakdown(t *testing.T) {
	b := Default().Breakdown(markers(threat.PiiMarker, threat.SecretsMarker, threat.CodeFilter))
	if len(b.Base) != 3 {
		t.Fatalf("expected 3 base contributions, got %d", len(b.Base))
	}
	if b.Base[0].Kind != threat.SecretsMarker {
		t.Errorf("expected contributions in index order, got %v first", b.Base[0].Kind)
	}
	if len(b.Interactions) != 1 || b.Interactions[0].Adjustment != 1.5 {
		t.Errorf("expected only the PII+secrets interaction, got %+v", b.Interactions)
	}
	if !approxEqual(b.Total, b.BaseScore+b.Interaction) {
		t.Errorf("total %v != base %v + interaction %v", b.Total, b.BaseScore, b.Interaction)
	}
}

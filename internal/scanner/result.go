package scanner

import (
	"fmt"
	"strconv"

	"github.com/gzhole/lastlayer/internal/scoring"
	"github.com/gzhole/lastlayer/internal/threat"
)

// Result is the verdict for one scanned text. It is built once per scan and
// never modified afterwards.
//
// Invariants: Passed == (len(Markers) == 0), Risk == scoring.Classify(Score),
// and Score == 0 whenever Passed.
type Result struct {
	Query   string         `json:"query"`
	Markers threat.Markers `json:"markers"`
	Score   float64        `json:"score"`
	Passed  bool           `json:"passed"`
	Risk    scoring.Band   `json:"risk"`
}

func newResult(query string, markers threat.Markers, model *scoring.Model) *Result {
	markers = markers.Clone()
	score := 0.0
	if len(markers) > 0 {
		score = model.Score(markers)
	}
	return &Result{
		Query:   query,
		Markers: markers,
		Score:   score,
		Passed:  len(markers) == 0,
		Risk:    scoring.Classify(score),
	}
}

// Has reports whether kind triggered.
func (r *Result) Has(kind threat.Kind) bool {
	return r.Markers.Has(kind)
}

// IsRisky is the negation of Passed.
func (r *Result) IsRisky() bool {
	return !r.Passed
}

func (r *Result) String() string {
	return fmt.Sprintf("RiskResult(query=%s, markers=%s, score=%s, passed=%t, risk=%s)",
		strconv.Quote(r.Query),
		r.Markers,
		strconv.FormatFloat(r.Score, 'f', -1, 64),
		r.Passed,
		strconv.Quote(string(r.Risk)),
	)
}

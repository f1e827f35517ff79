package scoring

import (
	"fmt"
	"math"
	"strings"
)

// Band is a coarse risk classification of a score.
type Band string

const (
	BandNone Band = ""
	BandLow  Band = "low"
	BandMid  Band = "mid"
	BandHigh Band = "high"
)

// Classify maps a score to its band:
//
//	score <= 0 or NaN → ""
//	0 < score < 1     → low
//	1 <= score < 2    → mid
//	score >= 2        → high
func Classify(score float64) Band {
	switch {
	case math.IsNaN(score) || score <= 0:
		return BandNone
	case score < 1:
		return BandLow
	case score < 2:
		return BandMid
	default:
		return BandHigh
	}
}

func (b Band) String() string { return string(b) }

var bandRank = map[Band]int{BandNone: 0, BandLow: 1, BandMid: 2, BandHigh: 3}

// AtLeast reports whether b is as severe as min or more.
func (b Band) AtLeast(min Band) bool {
	return bandRank[b] >= bandRank[min]
}

// ParseBand accepts "low", "mid" or "high", case-insensitively.
func ParseBand(s string) (Band, error) {
	b := Band(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := bandRank[b]; !ok || b == BandNone {
		return BandNone, fmt.Errorf("unknown risk band %q (want low, mid or high)", s)
	}
	return b, nil
}

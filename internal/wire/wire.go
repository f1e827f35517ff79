// Package wire decodes and encodes the detection backend's response format:
//
//	pass_flag ('0'|'1') [ '|' index ':' message ]*
//
// The pass flag is "1" when nothing triggered. Each following segment names
// a threat kind by its wire index; the message runs to the next '|' and may
// itself contain ':'.
package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gzhole/lastlayer/internal/threat"
)

// ErrMalformedResponse is returned when a backend response violates the format.
var ErrMalformedResponse = errors.New("malformed backend response")

const (
	segmentSep = "|"
	indexSep   = ":"

	flagPassed = "1"
	flagFailed = "0"
)

// Decode parses a raw backend response. backendPassed is the flag the backend
// reported; callers should treat len(markers) == 0 as the authoritative verdict.
// On error no markers are returned.
func Decode(raw string) (markers threat.Markers, backendPassed bool, err error) {
	parts := strings.Split(raw, segmentSep)

	switch parts[0] {
	case flagPassed:
		if len(parts) > 1 {
			return nil, false, fmt.Errorf("%w: pass flag %q followed by %d segment(s)", ErrMalformedResponse, flagPassed, len(parts)-1)
		}
		return threat.Markers{}, true, nil
	case flagFailed:
	default:
		return nil, false, fmt.Errorf("%w: unknown pass flag %q", ErrMalformedResponse, parts[0])
	}

	markers = make(threat.Markers, len(parts)-1)
	for i, part := range parts[1:] {
		idx, msg, ok := strings.Cut(part, indexSep)
		if !ok {
			return nil, false, fmt.Errorf("%w: segment %d %q has no %q separator", ErrMalformedResponse, i+1, part, indexSep)
		}
		n, ok := parseIndex(idx)
		if !ok {
			return nil, false, fmt.Errorf("%w: segment %d index %q is not a canonical integer", ErrMalformedResponse, i+1, idx)
		}
		kind, kindErr := threat.FromIndex(n)
		if kindErr != nil {
			return nil, false, fmt.Errorf("%w: segment %d: %v", ErrMalformedResponse, i+1, kindErr)
		}
		markers[kind] = msg
	}
	return markers, false, nil
}

// parseIndex accepts only the form Encode writes: decimal digits with no
// sign and no leading zero.
func parseIndex(s string) (int, bool) {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// Encode renders markers in wire format, kinds in index order. Messages
// containing '|' cannot be represented and have it replaced with '/'.
func Encode(markers threat.Markers) string {
	if len(markers) == 0 {
		return flagPassed
	}
	var b strings.Builder
	b.WriteString(flagFailed)
	for _, k := range markers.Kinds() {
		b.WriteString(segmentSep)
		b.WriteString(strconv.Itoa(k.Index()))
		b.WriteString(indexSep)
		b.WriteString(strings.ReplaceAll(markers[k], segmentSep, "/"))
	}
	return b.String()
}

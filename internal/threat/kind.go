// Package threat defines the closed taxonomy of threat kinds a scan can
// report, the marker mapping produced by a scan, and suppression of kinds
// the caller chooses to ignore.
//
// The integer value of every Kind is its wire index. Adding, removing or
// reordering a kind is a breaking change to the detection backend protocol.
package threat

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidThreatKind is returned when a name or index does not belong to
// the taxonomy.
var ErrInvalidThreatKind = errors.New("invalid threat kind")

// Kind identifies one threat category.
type Kind int

const (
	MixedLangMarker Kind = iota
	InvisibleUnicodeDetector
	MarkdownLinkDetector
	HiddenTextDetector
	Base64Detector
	SecretsMarker
	ProfanityDetector
	PiiMarker
	ExploitClassifier
	ObfuscationDetector
	CodeFilter
	GibberishDetector
	IntellectualPropertyLeak

	kindCount
)

var kindNames = [kindCount]string{
	MixedLangMarker:          "MixedLangMarker",
	InvisibleUnicodeDetector: "InvisibleUnicodeDetector",
	MarkdownLinkDetector:     "MarkdownLinkDetector",
	HiddenTextDetector:       "HiddenTextDetector",
	Base64Detector:           "Base64Detector",
	SecretsMarker:            "SecretsMarker",
	ProfanityDetector:        "ProfanityDetector",
	PiiMarker:                "PiiMarker",
	ExploitClassifier:        "ExploitClassifier",
	ObfuscationDetector:      "ObfuscationDetector",
	CodeFilter:               "CodeFilter",
	GibberishDetector:        "GibberishDetector",
	IntellectualPropertyLeak: "IntellectualPropertyLeak",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, kindCount)
	for k, name := range kindNames {
		m[strings.ToLower(name)] = Kind(k)
	}
	return m
}()

// All returns every kind in wire-index order.
func All() []Kind {
	kinds := make([]Kind, kindCount)
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

// Valid reports whether k is a member of the taxonomy.
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

// Index returns the wire index of k.
func (k Kind) Index() int { return int(k) }

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// FromIndex resolves a wire index.
func FromIndex(i int) (Kind, error) {
	k := Kind(i)
	if !k.Valid() {
		return 0, fmt.Errorf("%w: index %d", ErrInvalidThreatKind, i)
	}
	return k, nil
}

// ParseKind resolves a kind name. Matching is case-insensitive.
func ParseKind(name string) (Kind, error) {
	k, ok := kindsByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidThreatKind, name)
	}
	return k, nil
}

// ParseKinds resolves a list of names, failing on the first unknown one.
func ParseKinds(names []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(names))
	for _, n := range names {
		k, err := ParseKind(n)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Validate returns ErrInvalidThreatKind for the first kind outside the taxonomy.
func Validate(kinds ...Kind) error {
	for _, k := range kinds {
		if !k.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidThreatKind, int(k))
		}
	}
	return nil
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidThreatKind, int(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

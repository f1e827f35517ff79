// Package unicode finds characters in prompt text that hide or disguise
// content: zero-width and bidi controls, tag characters, C0/C1 controls,
// Latin look-alikes from other scripts, and words that mix scripts.
package unicode

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Category classifies a finding.
type Category string

const (
	ZeroWidth         Category = "zero-width"
	BidiOverride      Category = "bidi-override"
	TagChar           Category = "tag-char"
	ControlChar       Category = "control-char"
	InvalidUTF8       Category = "invalid-utf8"
	HomoglyphCyrillic Category = "homoglyph-cyrillic"
	HomoglyphGreek    Category = "homoglyph-greek"
)

// Invisible reports whether c hides content from a reader.
func (c Category) Invisible() bool {
	switch c {
	case ZeroWidth, BidiOverride, TagChar, ControlChar, InvalidUTF8:
		return true
	}
	return false
}

// Homoglyph reports whether c is a look-alike substitution.
func (c Category) Homoglyph() bool {
	return c == HomoglyphCyrillic || c == HomoglyphGreek
}

// Finding is one suspicious character.
type Finding struct {
	Category    Category
	Description string
	Position    int    // byte offset in the input
	Codepoint   string // e.g. "U+200B"
}

// ScanResult holds the output of a scan.
type ScanResult struct {
	Clean    bool
	Findings []Finding
	// Sanitized is the input with every flagged character removed.
	Sanitized string
}

// Count returns how many findings satisfy match.
func (r ScanResult) Count(match func(Category) bool) int {
	n := 0
	for _, f := range r.Findings {
		if match(f.Category) {
			n++
		}
	}
	return n
}

// First returns the first finding satisfying match.
func (r ScanResult) First(match func(Category) bool) (Finding, bool) {
	for _, f := range r.Findings {
		if match(f.Category) {
			return f, true
		}
	}
	return Finding{}, false
}

// Scan inspects input for Unicode smuggling indicators.
func Scan(input string) ScanResult {
	result := ScanResult{Clean: true}
	var sanitized strings.Builder

	i := 0
	for i < len(input) {
		r, size := utf8.DecodeRuneInString(input[i:])

		if r == utf8.RuneError && size == 1 {
			result.Clean = false
			result.Findings = append(result.Findings, Finding{
				Category:    InvalidUTF8,
				Description: "invalid UTF-8 byte sequence",
				Position:    i,
				Codepoint:   fmt.Sprintf("0x%02X", input[i]),
			})
			i++
			continue
		}

		if f, found := classifyRune(r, i); found {
			result.Clean = false
			result.Findings = append(result.Findings, f)
			i += size
			continue
		}

		sanitized.WriteRune(r)
		i += size
	}

	result.Sanitized = sanitized.String()
	return result
}

func classifyRune(r rune, pos int) (Finding, bool) {
	cp := fmt.Sprintf("U+%04X", r)

	switch {
	case isZeroWidth(r):
		return Finding{ZeroWidth, fmt.Sprintf("zero-width character %s", cp), pos, cp}, true
	case isBidiOverride(r):
		return Finding{BidiOverride, fmt.Sprintf("bidirectional override %s", cp), pos, cp}, true
	case isTagCharacter(r):
		return Finding{TagChar, fmt.Sprintf("unicode tag character %s", cp), pos, cp}, true
	case isUnsafeControl(r):
		return Finding{ControlChar, fmt.Sprintf("control character %s", cp), pos, cp}, true
	}

	if cat, desc := checkHomoglyph(r); cat != "" {
		return Finding{cat, desc, pos, cp}, true
	}
	return Finding{}, false
}

func isZeroWidth(r rune) bool {
	switch r {
	case '\u200B', // ZERO WIDTH SPACE
		'\u200C', // ZERO WIDTH NON-JOINER
		'\u200D', // ZERO WIDTH JOINER
		'\uFEFF', // ZERO WIDTH NO-BREAK SPACE (BOM)
		'\u2060', // WORD JOINER
		'\u180E', // MONGOLIAN VOWEL SEPARATOR
		'\u200E', // LEFT-TO-RIGHT MARK
		'\u200F': // RIGHT-TO-LEFT MARK
		return true
	}
	return false
}

// isBidiOverride covers the embeddings/overrides U+202A..U+202E and the
// isolates U+2066..U+2069.
func isBidiOverride(r rune) bool {
	return (r >= '\u202A' && r <= '\u202E') || (r >= '\u2066' && r <= '\u2069')
}

func isTagCharacter(r rune) bool {
	return r >= 0xE0001 && r <= 0xE007F
}

func isUnsafeControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return r <= 0x1F || r == 0x7F || (r >= 0x80 && r <= 0x9F)
}

func checkHomoglyph(r rune) (Category, string) {
	cp := fmt.Sprintf("U+%04X", r)
	if confusable, ok := cyrillicHomoglyphs[r]; ok {
		return HomoglyphCyrillic, fmt.Sprintf("Cyrillic %s looks like Latin '%c'", cp, confusable)
	}
	if confusable, ok := greekHomoglyphs[r]; ok {
		return HomoglyphGreek, fmt.Sprintf("Greek %s looks like Latin '%c'", cp, confusable)
	}
	return "", ""
}

var cyrillicHomoglyphs = map[rune]rune{
	'а': 'a', 'А': 'A', 'В': 'B', 'с': 'c', 'С': 'C', 'е': 'e', 'Е': 'E',
	'Н': 'H', 'і': 'i', 'І': 'I', 'К': 'K', 'М': 'M', 'о': 'o', 'О': 'O',
	'р': 'p', 'Р': 'P', 'Т': 'T', 'х': 'x', 'Х': 'X', 'у': 'y', 'У': 'Y',
}

var greekHomoglyphs = map[rune]rune{
	'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Η': 'H', 'Ι': 'I', 'Κ': 'K', 'Μ': 'M',
	'Ν': 'N', 'Ο': 'O', 'ο': 'o', 'Ρ': 'P', 'Τ': 'T', 'Χ': 'X', 'Υ': 'Y',
	'Ζ': 'Z',
}

var scripts = []struct {
	name  string
	table *unicode.RangeTable
}{
	{"Latin", unicode.Latin},
	{"Cyrillic", unicode.Cyrillic},
	{"Greek", unicode.Greek},
	{"Armenian", unicode.Armenian},
	{"Hebrew", unicode.Hebrew},
	{"Arabic", unicode.Arabic},
	{"Han", unicode.Han},
	{"Hiragana", unicode.Hiragana},
	{"Katakana", unicode.Katakana},
	{"Hangul", unicode.Hangul},
	{"Thai", unicode.Thai},
	{"Devanagari", unicode.Devanagari},
}

func scriptOf(r rune) string {
	for _, s := range scripts {
		if unicode.Is(s.table, r) {
			return s.name
		}
	}
	return ""
}

// MixedScriptWords returns the words of input whose letters come from more
// than one script, e.g. "pаypal" with a Cyrillic 'а'.
func MixedScriptWords(input string) []string {
	var mixed []string
	for _, word := range strings.FieldsFunc(input, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsMark(r)
	}) {
		first := ""
		for _, r := range word {
			s := scriptOf(r)
			if s == "" {
				continue
			}
			if first == "" {
				first = s
				continue
			}
			if s != first {
				mixed = append(mixed, word)
				break
			}
		}
	}
	return mixed
}

// Scripts returns the scripts of the letters in input in order of first
// appearance. Letters outside the known scripts are reported as "Other".
func Scripts(input string) []string {
	var found []string
	seen := map[string]bool{}
	for _, r := range input {
		if !unicode.IsLetter(r) {
			continue
		}
		s := scriptOf(r)
		if s == "" {
			s = "Other"
		}
		if !seen[s] {
			seen[s] = true
			found = append(found, s)
		}
	}
	return found
}

// misdecodings are the single-byte charsets UTF-8 text is most often
// wrongly decoded as.
var misdecodings = []*charmap.Charmap{charmap.Windows1252, charmap.ISO8859_1}

// Mojibake reports whether word is UTF-8 text that was decoded as
// Windows-1252 or Latin-1, e.g. "\u00d0\u00ba" for "\u043a", and returns the
// repaired text.
func Mojibake(word string) (string, bool) {
	if isASCII(word) {
		return "", false
	}
	for _, cm := range misdecodings {
		raw, err := cm.NewEncoder().String(word)
		if err != nil {
			continue
		}
		if utf8.ValidString(raw) {
			return raw, true
		}
	}
	return "", false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// FirstMojibake returns the first whitespace-separated word of input that
// Mojibake repairs.
func FirstMojibake(input string) (word, repaired string, ok bool) {
	for _, w := range strings.Fields(input) {
		if fixed, ok := Mojibake(w); ok {
			return w, fixed, true
		}
	}
	return "", "", false
}

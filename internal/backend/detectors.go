package backend

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gzhole/lastlayer/internal/redact"
	uniscan "github.com/gzhole/lastlayer/internal/unicode"
)

// ---------------------------------------------------------------------------
// Character-level detectors
// ---------------------------------------------------------------------------

// detectMixedLanguage flags words that mix scripts, text mis-decoded from
// UTF-8 as Latin-1, and prompts written in a script other than Latin.
func detectMixedLanguage(text string) (string, bool) {
	if words := uniscan.MixedScriptWords(text); len(words) > 0 {
		return fmt.Sprintf("%d word(s) mix scripts, first %q", len(words), words[0]), true
	}
	if word, fixed, ok := uniscan.FirstMojibake(text); ok {
		return fmt.Sprintf("mis-decoded text %q reads as %q", redact.Truncate(word, 24), redact.Truncate(fixed, 24)), true
	}
	var foreign []string
	for _, s := range uniscan.Scripts(text) {
		if s != "Latin" {
			foreign = append(foreign, s)
		}
	}
	if len(foreign) == 0 {
		return "", false
	}
	return "non-Latin script: " + strings.Join(foreign, ", "), true
}

func detectInvisibleUnicode(text string) (string, bool) {
	result := uniscan.Scan(text)
	n := result.Count(uniscan.Category.Invisible)
	if n == 0 {
		return "", false
	}
	first, _ := result.First(uniscan.Category.Invisible)
	return fmt.Sprintf("%d invisible character(s), first %s at byte %d", n, first.Codepoint, first.Position), true
}

// ---------------------------------------------------------------------------
// Markup detectors
// ---------------------------------------------------------------------------

var markdownLinkPattern = regexp.MustCompile(`!?\[[^\]\n]*\]\(\s*<?([^\s)>]+)`)

func detectMarkdownLink(text string) (string, bool) {
	m := markdownLinkPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return "markdown link to " + m[1], true
}

var hiddenTextPatterns = []struct {
	re   *regexp.Regexp
	what string
}{
	{regexp.MustCompile(`<!--[\s\S]*?-->`), "html comment"},
	{regexp.MustCompile(`(?i)display\s*:\s*none`), "display:none styling"},
	{regexp.MustCompile(`(?i)visibility\s*:\s*hidden`), "visibility:hidden styling"},
	{regexp.MustCompile(`(?i)font-size\s*:\s*0(px|pt|em|rem)?\s*[;"']`), "zero font size"},
	{regexp.MustCompile(`(?i)color\s*:\s*(white|#fff\b|#ffffff\b|transparent)`), "text coloured to vanish"},
	{regexp.MustCompile(`(?i)BEGIN\s+HIDDEN\s+INSTRUCTIONS?`), "hidden instruction block"},
}

func detectHiddenText(text string) (string, bool) {
	for _, p := range hiddenTextPatterns {
		if p.re.MatchString(text) {
			return p.what, true
		}
	}
	return "", false
}

// ---------------------------------------------------------------------------
// Encoding detectors
// ---------------------------------------------------------------------------

// base64CandidatePattern matches runs long enough to carry a payload.
var base64CandidatePattern = regexp.MustCompile(`[A-Za-z0-9+/]{16,}={0,2}`)

func detectBase64(text string) (string, bool) {
	for _, candidate := range base64CandidatePattern.FindAllString(text, -1) {
		if decoded, ok := decodePrintableBase64(candidate); ok {
			return fmt.Sprintf("base64 payload decodes to %q", redact.Truncate(decoded, 40)), true
		}
	}
	return "", false
}

// decodePrintableBase64 accepts s only when it decodes to mostly printable
// UTF-8. Long plain words fail the decode or decode to binary noise.
func decodePrintableBase64(s string) (string, bool) {
	if len(s)%4 != 0 {
		return "", false
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(raw) < 8 || !utf8.Valid(raw) {
		return "", false
	}
	printable := 0
	total := 0
	for _, r := range string(raw) {
		total++
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			printable++
		}
	}
	if printable*10 < total*9 {
		return "", false
	}
	return string(raw), true
}

var hexEscapePattern = regexp.MustCompile(`(\\\\?x[0-9a-fA-F]{2}){4,}`)
var unicodeEscapePattern = regexp.MustCompile(`(\\u[0-9a-fA-F]{4}){4,}`)
var percentEncodingPattern = regexp.MustCompile(`(%[0-9a-fA-F]{2}){6,}`)

func detectObfuscation(text string) (string, bool) {
	switch {
	case hexEscapePattern.MatchString(text):
		return "hex escape sequences", true
	case unicodeEscapePattern.MatchString(text):
		return "unicode escape sequences", true
	case percentEncodingPattern.MatchString(text):
		return "percent-encoded run", true
	}
	result := uniscan.Scan(text)
	if n := result.Count(uniscan.Category.Homoglyph); n > 0 {
		first, _ := result.First(uniscan.Category.Homoglyph)
		return fmt.Sprintf("%d homoglyph(s): %s", n, first.Description), true
	}
	return "", false
}

// ---------------------------------------------------------------------------
// Sensitive data detectors
// ---------------------------------------------------------------------------

func detectSecrets(text string) (string, bool) {
	found := redact.Find(text)
	if len(found) == 0 {
		return "", false
	}
	return "looks like " + strings.Join(found, ", "), true
}

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	cardPattern  = regexp.MustCompile(`\b\d(?:[ -]?\d){12,18}\b`)
	phonePattern = regexp.MustCompile(`(?:\+\d{1,3}[ .-]?)?\(?\b\d{3}\)?[ .-]\d{3}[ .-]\d{4}\b`)
)

func detectPII(text string) (string, bool) {
	var kinds []string
	if emailPattern.MatchString(text) {
		kinds = append(kinds, "email address")
	}
	if ssnPattern.MatchString(text) {
		kinds = append(kinds, "social security number")
	}
	for _, c := range cardPattern.FindAllString(text, -1) {
		if luhnValid(c) {
			kinds = append(kinds, "payment card number")
			break
		}
	}
	if phonePattern.MatchString(text) {
		kinds = append(kinds, "phone number")
	}
	if len(kinds) == 0 {
		return "", false
	}
	return strings.Join(kinds, ", "), true
}

// luhnValid runs the Luhn checksum over the digits of s.
func luhnValid(s string) bool {
	sum, n := 0, 0
	double := false
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if c < '0' || c > '9' {
			continue
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
		n++
	}
	return n >= 13 && sum%10 == 0
}

var ipLeakPattern = regexp.MustCompile(`(?i)\b(strictly confidential|confidential|proprietary|internal use only|trade secret|do not distribute|under nda|all rights reserved)\b`)

func detectIPLeak(text string) (string, bool) {
	m := ipLeakPattern.FindString(text)
	if m == "" {
		return "", false
	}
	return fmt.Sprintf("marked %q", strings.ToLower(m)), true
}

// ---------------------------------------------------------------------------
// Language detectors
// ---------------------------------------------------------------------------

var exploitRules = []struct {
	what     string
	patterns []*regexp.Regexp
}{
	{"instruction override", compilePatterns([]string{
		`(?i)ignore\s+(all\s+)?(the\s+)?(previous|prior|above)\s+(instructions?|rules?|prompts?)`,
		`(?i)disregard\s+(all\s+|any\s+)?(previous|prior|your)\s+(previous\s+)?(instructions?|rules?|guidelines?|guardrails?)`,
		`(?i)forget\s+(all\s+)?(your|previous)\s+(instructions?|rules?)`,
		`(?i)override\s+(all\s+)?(safety|security)\s+(rules?|protocols?|guidelines?)`,
		`(?i)new\s+instructions?:\s+`,
	})},
	{"prompt exfiltration", compilePatterns([]string{
		`(?i)(show|reveal|display|print|output)\s+(me\s+)?(your|the)\s+(system\s+)?prompt`,
		`(?i)repeat\s+(your\s+)?(system\s+)?(prompt|instructions?)`,
	})},
	{"indirect injection", compilePatterns([]string{
		`(?i)SYSTEM:\s*(ignore|forget|override|you\s+are)`,
		`(?i)\[INST\]`,
		`(?i)<\|im_start\|>system`,
		`(?i)IMPORTANT:\s*(ignore|disregard|override)`,
	})},
	{"jailbreak persona", compilePatterns([]string{
		`(?i)you\s+are\s+now\s+(free|unrestricted|unfiltered|jailbroken)`,
		`(?i)\b(evil|developer|god|jailbreak)\s+mode\b`,
		`(?i)\bdo\s+anything\s+now\b`,
		`(?i)\bevil\s+(trusted\s+)?confidant\b`,
		`(?i)irresponsible\s+(and\s+unethical\s+)?(manner|ai|assistant|language\s+model)`,
		`(?i)without\s+any\s+(remorse|ethics|restrictions|filters)`,
	})},
	{"guardrail bypass", compilePatterns([]string{
		`(?i)(disable|turn\s+off|bypass|skip)\s+(your\s+)?(safety|content\s+filters?|guardrails?|moderation)`,
	})},
}

func detectExploit(text string) (string, bool) {
	var hits []string
	for _, r := range exploitRules {
		if matchesAnyPattern(text, r.patterns) {
			hits = append(hits, r.what)
		}
	}
	if len(hits) == 0 {
		return "", false
	}
	return strings.Join(hits, ", "), true
}

var profanityPattern = regexp.MustCompile(`(?i)\b(fuck\w*|shit\w*|bitch\w*|asshole\w*|bastard\w*|cunt\w*|motherfuck\w*|dickhead\w*|bullshit)\b`)

func detectProfanity(text string) (string, bool) {
	n := len(profanityPattern.FindAllStringIndex(text, -1))
	if n == 0 {
		return "", false
	}
	return fmt.Sprintf("%d profane word(s)", n), true
}

var (
	codeFencePattern = regexp.MustCompile("(?m)^\\s*```")
	codeLinePattern  = regexp.MustCompile(`(?m)^\s*(def |class |function\s|func |import |package |#include|public\s+(static\s+)?\w+|(const|let|var)\s+\w+\s*=|.*[;{}]\s*$)`)
)

// minCodeLines is the number of code-shaped lines that count as a code block
// when the text has no fence.
const minCodeLines = 4

func detectCode(text string) (string, bool) {
	if codeFencePattern.MatchString(text) {
		return "fenced code block", true
	}
	if n := len(codeLinePattern.FindAllStringIndex(text, -1)); n >= minCodeLines {
		return fmt.Sprintf("%d lines of code", n), true
	}
	return "", false
}

const vowels = "aeiouyàáâãäåæèéêëìíîïòóôõöøùúûüýÿ"

// detectGibberish flags text where at least 30% of the Latin words look
// unpronounceable: long consonant runs, no vowels, or one letter repeated.
// Mis-decoded words are left to detectMixedLanguage.
func detectGibberish(text string) (string, bool) {
	words, odd := 0, 0
	var example string
	for _, w := range strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) }) {
		if utf8.RuneCountInString(w) < 4 || !isLatinWord(w) {
			continue
		}
		if _, mis := uniscan.Mojibake(w); mis {
			continue
		}
		words++
		if looksGibberish(strings.ToLower(w)) {
			odd++
			if example == "" {
				example = w
			}
		}
	}
	if odd == 0 || odd*10 < words*3 {
		return "", false
	}
	return fmt.Sprintf("%d of %d words unpronounceable, e.g. %q", odd, words, redact.Truncate(example, 24)), true
}

func isLatinWord(w string) bool {
	for _, r := range w {
		if !unicode.Is(unicode.Latin, r) {
			return false
		}
	}
	return true
}

func looksGibberish(w string) bool {
	consonants, maxConsonants := 0, 0
	repeat, maxRepeat := 0, 0
	hasVowel := false
	var prev rune
	for _, r := range w {
		if strings.ContainsRune(vowels, r) {
			hasVowel = true
			consonants = 0
		} else {
			consonants++
			if consonants > maxConsonants {
				maxConsonants = consonants
			}
		}
		if r == prev {
			repeat++
		} else {
			repeat = 1
		}
		if repeat > maxRepeat {
			maxRepeat = repeat
		}
		prev = r
	}
	n := utf8.RuneCountInString(w)
	return maxConsonants >= 6 || maxRepeat >= 4 || (!hasVowel && n >= 5)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}

func matchesAnyPattern(s string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

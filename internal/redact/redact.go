package redact

import (
	"regexp"
	"unicode/utf8"
)

// Pattern is a named secret shape.
type Pattern struct {
	Name string
	re   *regexp.Regexp
}

var sensitivePatterns = []Pattern{
	// AWS
	{"aws credential assignment", regexp.MustCompile(`(?i)(aws_access_key_id|aws_secret_access_key|aws_session_token)\s*[=:]\s*['"]?[A-Za-z0-9/+=]{20,}['"]?`)},
	{"aws access key id", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},

	// GitHub
	{"github token assignment", regexp.MustCompile(`(?i)(github_token|gh_token|github_pat)\s*[=:]\s*['"]?[A-Za-z0-9_-]{30,}['"]?`)},
	{"github token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36}`)},

	// OpenAI-style keys
	{"api key", regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{20,}`)},

	// Generic API keys
	{"api key assignment", regexp.MustCompile(`(?i)(api_key|apikey|api-key|secret_key|secretkey|secret-key|access_token|auth_token)\s*[=:]\s*['"]?[A-Za-z0-9_-]{16,}['"]?`)},

	{"private key", regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`)},
	{"bearer token", regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._-]{20,}`)},
	{"url credentials", regexp.MustCompile(`https?://[^:/\s]+:[^@\s]+@`)},
	{"slack token", regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}[a-zA-Z0-9-]*`)},

	// Stripe
	{"stripe key", regexp.MustCompile(`[sr]k_live_[0-9a-zA-Z]{24}`)},

	{"password assignment", regexp.MustCompile(`(?i)(password|passwd|pwd|secret)\s*[=:]\s*['"]?[^\s'"]{8,}['"]?`)},
}

const redactedPlaceholder = "[REDACTED]"

// Redact replaces every secret-shaped substring of input with a placeholder.
func Redact(input string) string {
	result := input
	for _, p := range sensitivePatterns {
		result = p.re.ReplaceAllString(result, redactedPlaceholder)
	}
	return result
}

// Find returns the names of the patterns that match input, in table order.
func Find(input string) []string {
	var names []string
	for _, p := range sensitivePatterns {
		if p.re.MatchString(input) {
			names = append(names, p.Name)
		}
	}
	return names
}

// Truncate redacts input and cuts it to at most max runes, marking the cut.
func Truncate(input string, max int) string {
	s := Redact(input)
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "…"
}

package threat

var descriptions = [kindCount]string{
	MixedLangMarker:          "Detects mixed language content within prompts which might indicate an attempt to bypass language-based content filters or obfuscate intent.",
	InvisibleUnicodeDetector: "Identifies the use of invisible Unicode characters which can be used for obfuscation, to hide malicious content, or to create misleading representations of code or text.",
	MarkdownLinkDetector:     "Finds markdown link syntax that could be used to embed potentially malicious URLs or to disguise the destination of a hyperlink.",
	HiddenTextDetector:       "Detects text that is formatted in a way to be hidden from view, potentially used to embed undesired content without making it visible to casual inspection.",
	Base64Detector:           "Identifies Base64 encoded strings which might be used to obfuscate malicious URLs, code, or other data within the prompt.",
	SecretsMarker:            "Detects patterns that resemble secrets, such as API keys or passwords, which could inadvertently expose sensitive information.",
	ProfanityDetector:        "Finds and flags use of profanity or inappropriate language that might not be suitable for all audiences or could violate content guidelines.",
	PiiMarker:                "Identifies potentially personally identifiable information (PII), safeguarding against unintentional data exposure or privacy violations.",
	ExploitClassifier:        "Detects patterns or signatures indicative of exploitation attempts against language models, such as jailbreaks, instruction overrides and attempts to extract the system prompt.",
	ObfuscationDetector:      "Identifies techniques used to obfuscate intent or code, such as complex encoding or character substitution that hides the true purpose.",
	CodeFilter:               "Flags large blocks of code that might be irrelevant or potentially harmful, keeping prompts focused and safe for execution.",
	GibberishDetector:        "Identifies nonsensical input that lacks meaningful information, potentially indicating spam or automated content generation.",
	IntellectualPropertyLeak: "Detects potential leaks of intellectual property, such as proprietary code, documents or confidential information included in the data.",
}

// Description returns a human-readable explanation of what k detects.
func (k Kind) Description() string {
	if !k.Valid() {
		return ""
	}
	return descriptions[k]
}

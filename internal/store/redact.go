package store

import "regexp"

// PII patterns collapsed to fixed placeholders before chunking. The set covers
// the identifiers that show up in clinical policy documents; it is not an
// exhaustive scrubber.
var (
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	phonePattern = regexp.MustCompile(`\b(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	emailPattern = regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)
	mrnPattern   = regexp.MustCompile(`(?i)\b(?:MRN|Medical\s*Record\s*Number)\s*[:#]?\s*[A-Z0-9-]{4,}\b`)
	dobPattern   = regexp.MustCompile(`(?i)\b(?:DOB|Date\s*of\s*Birth)\s*[:#]?\s*\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)
)

// redactPII replaces sensitive-looking patterns with placeholder tokens.
func redactPII(text string) string {
	redacted := ssnPattern.ReplaceAllString(text, "[REDACTED_SSN]")
	redacted = phonePattern.ReplaceAllString(redacted, "[REDACTED_PHONE]")
	redacted = emailPattern.ReplaceAllString(redacted, "[REDACTED_EMAIL]")
	redacted = mrnPattern.ReplaceAllString(redacted, "MRN [REDACTED]")
	redacted = dobPattern.ReplaceAllString(redacted, "DOB [REDACTED]")
	return redacted
}

package audit

import (
	"regexp"
	"strings"
)

// patterns pair a compiled detector with the category tag that replaces the
// match. Order matters: more specific patterns run before broader ones so a
// patient identifier is tagged as such rather than as a generic number.
var patterns = []struct {
	re  *regexp.Regexp
	tag string
}{
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[SSN]"},
	{regexp.MustCompile(`\b\d{3}\.\d{2}\.\d{4}\b`), "[SSN]"},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[EMAIL]"},
	{regexp.MustCompile(`(?:\+?1[-. ]?)?\(?\d{3}\)?[-. ]\d{3}[-. ]\d{4}\b`), "[PHONE]"},
	{regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`), "[CARD]"},
	{regexp.MustCompile(`(?i)\bpatient[-_]?\d+\b`), "[PATIENT_ID]"},
	{regexp.MustCompile(`(?i)\buser[-_]?\d+\b`), "[USER_ID]"},
}

// sensitiveKeyFragments mark map keys whose values are dropped wholesale,
// whatever shape the value has.
var sensitiveKeyFragments = []string{
	"password", "secret", "token", "apikey", "api_key",
	"authorization", "credential", "private_key", "privatekey",
}

// Redactor scrubs audit payloads before they leave the process. Detected
// identifiers are replaced with category tags so the entry stays useful for
// investigation without carrying the identifier itself.
type Redactor struct{}

// NewRedactor creates a redactor with the built-in detector set.
func NewRedactor() *Redactor {
	return &Redactor{}
}

// RedactString replaces every detected identifier in s with its category tag.
func (r *Redactor) RedactString(s string) string {
	for _, p := range patterns {
		s = p.re.ReplaceAllString(s, p.tag)
	}
	return s
}

// RedactValue scrubs an arbitrary payload value, recursing through maps and
// slices. Maps keyed by a sensitive name have the whole value replaced.
func (r *Redactor) RedactValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return r.RedactString(val)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			if sensitiveKey(k) {
				out[k] = "[REDACTED]"
				continue
			}
			out[k] = r.RedactValue(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = r.RedactValue(inner)
		}
		return out
	case []string:
		out := make([]string, len(val))
		for i, inner := range val {
			out[i] = r.RedactString(inner)
		}
		return out
	default:
		return v
	}
}

func sensitiveKey(k string) bool {
	lower := strings.ToLower(k)
	for _, frag := range sensitiveKeyFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

package process

import (
	"regexp"
	"strings"
)

// sensitiveKeys are object keys (case-insensitive) whose values are always
// redacted, per spec §4.10.
var sensitiveKeys = map[string]bool{
	"token": true, "secret": true, "password": true, "authorization": true,
	"api_key": true, "email": true, "phone": true, "ssn": true, "session": true,
}

var (
	highEntropyRun = regexp.MustCompile(`^[A-Za-z0-9]{24,}$`)
	jwtPattern     = regexp.MustCompile(`^[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+$`)
	ccPattern      = regexp.MustCompile(`^\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}$`)

	// Unanchored counterparts for scanning free-form text bodies.
	jwtPatternText   = regexp.MustCompile(`\b[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\b`)
	ccPatternText    = regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`)
	tokenPatternText = regexp.MustCompile(`\b[A-Za-z0-9]{24,}\b`)
)

const redactedValue = "<redacted>"

// redactValue walks a decoded JSON value (map[string]any, []any, or scalar)
// and replaces sensitive fields/patterns with redactedValue in place,
// reporting whether any substitution occurred.
func redactValue(v interface{}, parentKey string) (interface{}, bool) {
	switch val := v.(type) {
	case map[string]interface{}:
		changed := false
		for k, child := range val {
			if sensitiveKeys[strings.ToLower(k)] {
				if _, isString := child.(string); !isString || child != redactedValue {
					val[k] = redactedValue
					changed = true
					continue
				}
			}
			newChild, childChanged := redactValue(child, k)
			if childChanged {
				val[k] = newChild
				changed = true
			}
		}
		return val, changed
	case []interface{}:
		changed := false
		for i, child := range val {
			newChild, childChanged := redactValue(child, parentKey)
			if childChanged {
				val[i] = newChild
				changed = true
			}
		}
		return val, changed
	case string:
		if isSensitiveString(val) {
			return redactedValue, true
		}
		return val, false
	default:
		return val, false
	}
}

func isSensitiveString(s string) bool {
	return highEntropyRun.MatchString(s) || jwtPattern.MatchString(s) || ccPattern.MatchString(s)
}

// redactText applies the string-level fallback redaction used when the body
// is not valid JSON: opaque high-entropy/JWT/credit-card runs are replaced
// wherever they appear.
func redactText(body []byte) ([]byte, bool) {
	text := string(body)
	changed := false
	for _, pat := range []*regexp.Regexp{jwtPatternText, ccPatternText, tokenPatternText} {
		if pat.MatchString(text) {
			text = pat.ReplaceAllString(text, redactedValue)
			changed = true
		}
	}
	return []byte(text), changed
}

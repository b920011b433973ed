package observability

import (
	"strings"
	"unicode"
)

const defaultStringLimit = 256

// sanitizeString strips control runes so attacker-supplied values cannot
// forge log lines, then caps the length.
func sanitizeString(value string, limit int) string {
	if limit <= 0 {
		limit = defaultStringLimit
	}

	var b strings.Builder
	b.Grow(len(value))
	kept := 0
	for _, r := range value {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		if kept == limit {
			break
		}
		b.WriteRune(r)
		kept++
	}
	return b.String()
}

// SanitizeRoute cleans a request path before it reaches the access log.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return sanitizeString(route, 180)
}

// SanitizeMethod cleans an HTTP method string.
func SanitizeMethod(method string) string {
	return sanitizeString(method, 10)
}

// SanitizeActorID caps identifiers logged alongside requests.
func SanitizeActorID(id string) string {
	if id == "" {
		return ""
	}
	return sanitizeString(id, 64)
}

package observability

import (
	"strings"
	"unicode"
)

const (
	maxFieldLen  = 256
	maxRouteLen  = 180
	maxMethodLen = 10
)

// SanitizeRoute strips control characters from a route template and caps
// its length so hostile paths cannot pollute log output.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return clip(route, maxRouteLen)
}

// SanitizeMethod does the same for HTTP method names.
func SanitizeMethod(method string) string {
	return clip(method, maxMethodLen)
}

func clip(value string, limit int) string {
	if limit <= 0 {
		limit = maxFieldLen
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

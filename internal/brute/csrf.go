package brute

import "strings"

// ExtractCSRFToken scans body for name="<field>" and returns the text
// between the first value=" that follows it and the next quote. It is a
// plain substring scan, not an HTML parser, and reports false when either
// marker is missing or the value is unterminated.
func ExtractCSRFToken(body, field string) (string, bool) {
	if field == "" {
		return "", false
	}
	marker := `name="` + field + `"`
	at := strings.Index(body, marker)
	if at < 0 {
		return "", false
	}
	rest := body[at+len(marker):]

	const valueAttr = `value="`
	v := strings.Index(rest, valueAttr)
	if v < 0 {
		return "", false
	}
	rest = rest[v+len(valueAttr):]

	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

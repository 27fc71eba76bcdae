// Package llm - util.go provides shared response cleanup helpers.
package llm

import "strings"

// CleanJSONBlock isolates the JSON value in a model reply. Models wrap JSON
// in markdown fences or conversational preamble often enough that every JSON
// call site needs this; the first balanced object or array wins. Replies
// without a complete JSON value come back unchanged.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	objStart := strings.IndexByte(text, '{')
	arrStart := strings.IndexByte(text, '[')

	start := objStart
	extract := extractJSONObject
	if start < 0 || (arrStart >= 0 && arrStart < start) {
		start = arrStart
		extract = extractJSONArray
	}
	if start < 0 {
		return text
	}

	if value := extract(text[start:]); value != "" {
		return value
	}
	return text
}

// extractJSONObject returns the balanced object at the start of text, or ""
// when text does not begin with one.
func extractJSONObject(text string) string {
	return extractBalanced(text, '{', '}')
}

// extractJSONArray returns the balanced array at the start of text, or ""
// when text does not begin with one.
func extractJSONArray(text string) string {
	return extractBalanced(text, '[', ']')
}

// extractBalanced scans for the delimiter that closes text[0], tracking
// string literals so braces inside values do not count.
func extractBalanced(text string, open, closing byte) string {
	if len(text) == 0 || text[0] != open {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// characters inside strings never affect depth
		case c == open:
			depth++
		case c == closing:
			depth--
			if depth == 0 {
				return text[:i+1]
			}
		}
	}
	return ""
}

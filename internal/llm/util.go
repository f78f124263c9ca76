package llm

import "strings"

// CleanJSONBlock strips a markdown code fence from a model response.
// Fenced output still shows up even with a JSON response MIME type
// configured, so every JSON call path runs responses through here before
// decoding.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	body, fenced := strings.CutPrefix(text, "```")
	if !fenced {
		return text
	}
	body = strings.TrimPrefix(body, "json")

	// Any other info string left on the fence line is noise, not payload.
	if line, rest, ok := strings.Cut(body, "\n"); ok && isInfoString(line) {
		body = rest
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

// isInfoString reports whether the first fenced line is a language tag
// rather than the start of the payload.
func isInfoString(line string) bool {
	return len(line) < 20 && !strings.ContainsAny(line, " {[")
}

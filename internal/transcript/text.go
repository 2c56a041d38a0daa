package transcript

import (
	"html"
	"strings"
)

// stageDirections are whole-segment bracketed annotations worth dropping.
var stageDirections = map[string]struct{}{
	"music":            {},
	"applause":         {},
	"laughter":         {},
	"silence":          {},
	"background music": {},
}

// JoinSegments assembles caption segments into cleaned plaintext: entities
// unescaped, stage directions dropped, whitespace collapsed.
func JoinSegments(segments []string) string {
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		text := strings.TrimSpace(segment)
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
			inner := strings.ToLower(strings.TrimSpace(text[1 : len(text)-1]))
			if _, ok := stageDirections[inner]; ok {
				continue
			}
		}
		parts = append(parts, html.UnescapeString(text))
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

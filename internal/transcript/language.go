package transcript

import "golang.org/x/text/language"

// matchRank returns the index of the first wanted tag the given language code
// satisfies, or -1 when none do. Region variants count as matches, so an
// "en" track serves a wanted "en-US".
func matchRank(code string, wanted []language.Tag) int {
	tag, err := language.Parse(code)
	if err != nil {
		return -1
	}
	matcher := language.NewMatcher([]language.Tag{tag})
	for i, want := range wanted {
		if _, _, conf := matcher.Match(want); conf >= language.High {
			return i
		}
	}
	return -1
}

// parseWanted converts configured language codes into tags, dropping
// unparseable entries.
func parseWanted(codes []string) []language.Tag {
	tags := make([]language.Tag, 0, len(codes))
	for _, code := range codes {
		if tag, err := language.Parse(code); err == nil {
			tags = append(tags, tag)
		}
	}
	return tags
}

package patterns

import "strings"

// LibraryFilter narrows a fetched set of published patterns. Zero values
// are identity: an empty query matches every pattern and empty craft/skill
// filters are ignored.
type LibraryFilter struct {
	Query string
	Craft string
	Skill string
}

// FilterLibrary applies the search text and the two select-filters to an
// in-memory list. The search text matches case-insensitively as a substring
// of title or author; craft and skill match exactly, case-insensitively.
// The predicates are independent, so applying them in any order or in
// combination yields the intersection of their individual results.
func FilterLibrary(published []PublishedPattern, filter LibraryFilter) []PublishedPattern {
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	craft := strings.ToLower(strings.TrimSpace(filter.Craft))
	skill := strings.ToLower(strings.TrimSpace(filter.Skill))

	matched := make([]PublishedPattern, 0, len(published))
	for _, pattern := range published {
		if query != "" &&
			!strings.Contains(strings.ToLower(pattern.Title), query) &&
			!strings.Contains(strings.ToLower(pattern.Author), query) {
			continue
		}
		if craft != "" && strings.ToLower(string(pattern.Craft)) != craft {
			continue
		}
		if skill != "" && strings.ToLower(string(pattern.Skill)) != skill {
			continue
		}
		matched = append(matched, pattern)
	}
	return matched
}

// SplitList converts the comma-separated tag/material input format into a
// trimmed list, dropping empty entries.
func SplitList(rawInput string) []string {
	parts := strings.Split(rawInput, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

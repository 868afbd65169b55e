package commentary

import (
	"sort"
	"strings"
)

// attribute splits a batched response into per-participant sections keyed by
// display name. Each participant's section starts immediately after the first
// occurrence of their "[Name]" tag (matched case-insensitively and literally,
// no pattern syntax) and ends at the start of the next participant's tag, or
// at the end of the response. A leading colon and surrounding whitespace are
// stripped. Participants whose tag is absent, or whose section is empty after
// trimming, have no entry in the result.
func attribute(response string, names []string) map[string]string {
	lower := strings.ToLower(response)

	type tagMatch struct {
		name  string
		start int // index of '['
		end   int // index just past ']'
	}
	var tags []tagMatch
	claimed := make(map[int]bool, len(names))
	for _, name := range names {
		tag := "[" + strings.ToLower(name) + "]"
		idx := strings.Index(lower, tag)
		// Duplicate display names resolve to the same tag occurrence; the
		// section is recorded once and shared through the name key.
		if idx < 0 || claimed[idx] {
			continue
		}
		claimed[idx] = true
		tags = append(tags, tagMatch{name: name, start: idx, end: idx + len(tag)})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].start < tags[j].start })

	out := make(map[string]string, len(tags))
	for i, t := range tags {
		end := len(response)
		if i+1 < len(tags) {
			end = tags[i+1].start
		}
		text := strings.TrimSpace(response[t.end:end])
		text = strings.TrimSpace(strings.TrimPrefix(text, ":"))
		if text != "" {
			out[t.name] = text
		}
	}
	return out
}

package ai

import "strings"

// MaxSuggestions caps how many parsed lines a single completion may
// yield.
const MaxSuggestions = 10

// bullet characters stripped from the start of each line, including
// numbering like "1." or "2)".
const bulletChars = "-•*0123456789.) "

// ParseSuggestions splits provider output into clean suggestion lines.
// This is best-effort text cleanup of opaque prose, not a structured
// protocol: split on newlines, trim, drop empties, strip a leading
// bullet/numbering run, cap the result.
func ParseSuggestions(text string) []string {
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(strings.TrimLeft(line, bulletChars))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

package pipeline

import "strings"

// LineSequence is the trimmed, ordered line view of a document. Blank lines stay
// in place because next-line rules depend on adjacency.
type LineSequence []string

func Lines(text string) LineSequence {
	if text == "" {
		return LineSequence{}
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	parts := strings.Split(text, "\n")
	out := make(LineSequence, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// NextNonBlank returns the index of the first non-blank line at or after from.
func (l LineSequence) NextNonBlank(from int) (int, bool) {
	for j := from; j < len(l); j++ {
		if l[j] != "" {
			return j, true
		}
	}
	return 0, false
}

func (l LineSequence) Text() string {
	return strings.Join(l, "\n")
}

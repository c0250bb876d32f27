package segment

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
)

// breakRules are the four terminal-punctuation rules that mark chunk break
// points. Each rule's first group is the punctuation; the break point is the
// byte position immediately after it. The second group is the character that
// must follow for the rule to fire: closing quotes (” ’) suppress the first
// three rules, and a punctuation-plus-quote pair breaks only when not
// followed by a comma or more terminal punctuation.
var breakRules = [...]*regexp.Regexp{
	regexp.MustCompile(`([。！？?])([^”’])`),
	regexp.MustCompile(`(\.{6})([^”’])`),
	regexp.MustCompile(`(…{2})([^”’])`),
	regexp.MustCompile(`([。！？?][”’])([^，。！？?])`),
}

// breakPoints computes the chunk break points of s against the unmodified
// input: the end-of-punctuation byte index of every rule match, across all
// four rules, sorted and de-duplicated. Both the text-splitting and the
// offset-preserving paths derive from this single function so the two can
// never drift apart.
func breakPoints(s string) []int {
	var points []int
	for _, re := range breakRules {
		for _, m := range re.FindAllStringSubmatchIndex(s, -1) {
			points = append(points, m[3]) // end of group 1
		}
	}
	slices.Sort(points)
	return slices.Compact(points)
}

// chunk is a maximal span between two break points, trimmed of surrounding
// whitespace, with the byte offset of its first retained byte.
type chunk struct {
	text string
	base int
}

// chunks partitions s at its break points into trimmed, non-empty chunks in
// left-to-right order. A break point at or before the previous accepted one
// is discarded; the tail after the last break point is always considered.
func chunks(s string) []chunk {
	points := breakPoints(s)
	out := make([]chunk, 0, len(points)+1)
	prev := 0
	for _, p := range points {
		if p <= prev {
			continue
		}
		out = appendChunk(out, s, prev, p)
		prev = p
	}
	if prev < len(s) {
		out = appendChunk(out, s, prev, len(s))
	}
	return out
}

// appendChunk trims s[start:end] and appends it as a chunk unless it trims
// to nothing. The base offset accounts for the leading whitespace removed;
// trailing trimming never moves offsets of sentences found before it.
func appendChunk(out []chunk, s string, start, end int) []chunk {
	piece := s[start:end]
	trimmed := strings.TrimLeftFunc(piece, unicode.IsSpace)
	if trimmed == "" {
		return out
	}
	base := start + len(piece) - len(trimmed)
	trimmed = strings.TrimRightFunc(trimmed, unicode.IsSpace)
	return append(out, chunk{text: trimmed, base: base})
}

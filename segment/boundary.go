package segment

import (
	"unicode"
	"unicode/utf8"
)

// match is one boundary-matcher result within a guarded chunk.
type match struct {
	text  string
	start int // byte offset within the chunk
}

// boundaryMatches scans guarded chunk text left to right for non-overlapping
// sentence spans. At each non-space position the terminal-punctuation form
// is tried first: the shortest span of at least three runes, staying within
// the current line, ending in . ! or ? with whitespace or end-of-text after
// it. Failing that, the span runs to the next line break or end-of-text,
// provided it covers at least two runes. A position where neither form
// matches is skipped, exactly as a regex engine would retry one rune later.
func boundaryMatches(s string) []match {
	var out []match
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) {
			i += size
			continue
		}
		m, next, ok := matchAt(s, i)
		if !ok {
			i += size
			continue
		}
		out = append(out, m)
		i = next
	}
	return out
}

// matchAt attempts both boundary forms at byte position start, which must be
// a non-space rune. Returns the match and the position to resume scanning.
func matchAt(s string, start int) (match, int, bool) {
	runeIdx := 0
	j := start
	for j < len(s) {
		r, size := utf8.DecodeRuneInString(s[j:])
		if r == '\n' {
			break
		}
		if runeIdx >= 2 && isTerminal(r) && spaceOrEnd(s, j+size) {
			return match{text: s[start : j+size], start: start}, j + size, true
		}
		j += size
		runeIdx++
	}
	// Line-end form: at least two runes before the break.
	if runeIdx >= 2 {
		return match{text: s[start:j], start: start}, j, true
	}
	return match{}, 0, false
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func spaceOrEnd(s string, pos int) bool {
	if pos >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[pos:])
	return unicode.IsSpace(r)
}

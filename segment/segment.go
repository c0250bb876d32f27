// Package segment splits mixed Chinese/Latin text into sentences, with an
// offset-preserving variant for span-sensitive consumers such as search
// indexing and span highlighting.
//
// Sentence boundaries come from two cooperating layers:
//
//   - Chunking: terminal CJK punctuation (。！？ plus ASCII ?), six-dot runs,
//     and doubled ellipsis characters mark chunk break points, except when
//     followed by a closing quote (” or ’). A punctuation-plus-quote pair
//     breaks unless followed by further punctuation or a comma.
//   - Matching: within a chunk, Advanced mode protects title abbreviations
//     ("Mr. Smith") and pairwise acronyms ("U.S.A.") from false breaks,
//     then matches spans ending in . ! ? before whitespace, falling back to
//     spans running to the next line break.
//
// Two API layers:
//
//   - Offset-preserving: Spans and SpanSeq return Sentence values with byte
//     offsets into the original input. Abbreviation-guard substitutions are
//     length-preserving, so input[s.Start:s.End] equals s.Text except where
//     a guarded tab or newline is restored as a single ASCII space.
//   - Convenience: Split, SplitSeq, and Sentences return plain strings.
//
// All functions are safe for concurrent use by multiple goroutines.
//
// Known limitations (v1.0):
//
//   - Titles of four or more letters (Prof.) are not protected and split
//     after the period. "Mrs." is protected because its trailing "rs"
//     satisfies the one-or-two lowercase letter rule.
//   - Acronyms are guarded pairwise; very long dotted runs can still break
//     at periods outside any period-letter-period-space window.
//   - Restoration collapses the guarded whitespace to a single ASCII
//     space, even when the original separator was a tab or newline.
//   - Quote tracking recognizes ” and ’ only; straight ASCII quotes are
//     ordinary characters.
package segment

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"unicode/utf8"
)

// Mode selects the boundary-matching strategy within a chunk.
type Mode int

const (
	Advanced Mode = iota // abbreviation-aware matching inside each chunk
	Naive                // chunk-level splitting only, no protection
)

// String returns the name of the mode.
func (m Mode) String() string {
	switch m {
	case Advanced:
		return "Advanced"
	case Naive:
		return "Naive"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Sentence is one segmented sentence with its position in the original input.
//
// Byte-offset invariant: End-Start == len(Text), and input[s.Start:s.End]
// equals s.Text except at bytes where abbreviation-guard restoration replaced
// an original whitespace byte with an ASCII space.
type Sentence struct {
	Text  string `json:"text"`
	Start int    `json:"start"` // byte offset in the original input (inclusive)
	End   int    `json:"end"`   // byte offset in the original input (exclusive)
}

// String returns a debug representation, e.g. Sentence("你好。")[0:9].
func (s Sentence) String() string {
	return fmt.Sprintf("Sentence(%q)[%d:%d]", s.Text, s.Start, s.End)
}

// maxDirectRunes is the length budget above which callers should chunk text
// before handing it to downstream per-sentence consumers.
const maxDirectRunes = 120

// validInput checks the precondition shared by all entry points.
// Returns false if the input should be rejected (caller returns nothing).
func validInput(s string) bool {
	return s != "" && utf8.ValidString(s)
}

// SplitSeq returns an iterator over the sentences of s.
//
// The input is partitioned at punctuation break points and at explicit line
// breaks; each chunk is trimmed of surrounding whitespace and dropped if
// empty. In Advanced mode chunks are further divided by the boundary matcher
// with abbreviation protection; a chunk with no boundary match is yielded
// verbatim as a single sentence. In Naive mode chunks are yielded as-is.
//
// Empty input, all-whitespace input, and invalid UTF-8 yield nothing.
func SplitSeq(s string, mode Mode) iter.Seq[string] {
	return func(yield func(string) bool) {
		if !validInput(s) {
			return
		}
		prev := 0
		points := breakPoints(s)
		for i := 0; i <= len(points); i++ {
			end := len(s)
			if i < len(points) {
				end = points[i]
			}
			if end <= prev {
				continue
			}
			piece := s[prev:end]
			prev = end
			for line := range strings.SplitSeq(piece, "\n") {
				if !yieldChunkSentences(line, mode, yield) {
					return
				}
			}
		}
	}
}

// yieldChunkSentences trims one chunk and yields its sentences.
// Returns false when the consumer stopped the iteration.
func yieldChunkSentences(text string, mode Mode, yield func(string) bool) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return true
	}
	if mode == Naive {
		return yield(text)
	}
	matches := boundaryMatches(guardAbbreviations(text))
	if len(matches) == 0 {
		return yield(text)
	}
	for _, m := range matches {
		if !yield(restoreAbbreviations(m.text)) {
			return false
		}
	}
	return true
}

// Split returns the sentences of s. See SplitSeq for the splitting rules.
func Split(s string, mode Mode) []string {
	return slices.Collect(SplitSeq(s, mode))
}

// Sentences returns the sentences of s using Advanced mode.
func Sentences(s string) []string {
	return Split(s, Advanced)
}

// SpanSeq returns an iterator over the sentences of s with byte offsets into
// the original input.
//
// Break points are computed against the unmodified input, so character
// positions stay stable. Each chunk carries the offset of its first retained
// byte after leading-whitespace trimming, and every sentence found inside the
// chunk reports Start = chunk base + match start. Offsets are non-decreasing
// across the sequence.
//
// Unlike SplitSeq, explicit line breaks do not form chunk boundaries here;
// in Advanced mode the boundary matcher still ends sentences at line breaks
// inside a chunk, while Naive mode yields whole chunks.
//
// Empty input, all-whitespace input, and invalid UTF-8 yield nothing.
func SpanSeq(s string, mode Mode) iter.Seq[Sentence] {
	return func(yield func(Sentence) bool) {
		if !validInput(s) {
			return
		}
		for _, c := range chunks(s) {
			if mode == Naive {
				if !yield(Sentence{Text: c.text, Start: c.base, End: c.base + len(c.text)}) {
					return
				}
				continue
			}
			matches := boundaryMatches(guardAbbreviations(c.text))
			if len(matches) == 0 {
				if !yield(Sentence{Text: c.text, Start: c.base, End: c.base + len(c.text)}) {
					return
				}
				continue
			}
			for _, m := range matches {
				text := restoreAbbreviations(m.text)
				start := c.base + m.start
				if !yield(Sentence{Text: text, Start: start, End: start + len(text)}) {
					return
				}
			}
		}
	}
}

// Spans returns the sentences of s with byte offsets. See SpanSeq.
func Spans(s string, mode Mode) []Sentence {
	return slices.Collect(SpanSeq(s, mode))
}

// ShouldChunk reports whether s exceeds the 120-rune budget for direct
// per-sentence processing, in which case callers should run it through a
// chunking layer first.
func ShouldChunk(s string) bool {
	return utf8.RuneCountInString(s) > maxDirectRunes
}

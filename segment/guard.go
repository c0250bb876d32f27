package segment

import "regexp"

// separator is the reserved placeholder substituted for the whitespace after
// a detected abbreviation so the boundary matcher cannot break there. It is
// a single ASCII byte, so the substitution never shifts byte offsets; a
// literal '@' in the input is untouched because the restore patterns require
// the full abbreviation shape around it.
const separator = "@"

// Guard rules and their inverses. The title rule is one uppercase letter,
// one or two lowercase letters, and a period ("Mr.", "Dr.", and "Mrs." via
// its trailing "rs"; four-letter titles like "Prof." do not match). The
// acronym rule is a period-letter-period window, so chained acronyms are
// guarded pairwise. The guarded whitespace is restricted to single-byte
// ASCII whitespace to keep the substitution length-preserving.
var (
	reTitleGuard     = regexp.MustCompile(`([A-Z][a-z]{1,2}\.)\s([\p{L}\p{N}_])`)
	reAcronymGuard   = regexp.MustCompile(`(\.[a-zA-Z]\.)\s([\p{L}\p{N}_])`)
	reTitleRestore   = regexp.MustCompile(`([A-Z][a-z]{1,2}\.)` + separator + `([\p{L}\p{N}_])`)
	reAcronymRestore = regexp.MustCompile(`(\.[a-zA-Z]\.)` + separator + `([\p{L}\p{N}_])`)
)

// guardAbbreviations replaces the whitespace after detected titles and
// acronyms with the placeholder, title rule first, each rule seeing the
// previous rule's output.
func guardAbbreviations(s string) string {
	s = reTitleGuard.ReplaceAllString(s, "${1}"+separator+"${2}")
	return reAcronymGuard.ReplaceAllString(s, "${1}"+separator+"${2}")
}

// restoreAbbreviations reverts every placeholder back to a single ASCII
// space. The original separator is not recorded, so a guarded tab comes back
// as a space; this lossy collapse is part of the documented contract.
func restoreAbbreviations(s string) string {
	s = reTitleRestore.ReplaceAllString(s, "${1} ${2}")
	return reAcronymRestore.ReplaceAllString(s, "${1} ${2}")
}

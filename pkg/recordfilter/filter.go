// Package recordfilter narrows the record list view by a free-text query.
// The query is canonicalized, stripped of short English stopwords, and compiled
// into a single Aho-Corasick automaton that scans each record once.
package recordfilter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"
	"github.com/orsinium-labs/stopwords"

	"github.com/kittclouds/usergrid/pkg/records"
)

var english = stopwords.MustGet("en")

// maxStopwordLen bounds which stopwords are dropped. The English list also
// carries words like "bill", "fire" or "sincere" that are real names.
const maxStopwordLen = 3

// Filter matches records containing every query term.
// A Filter with no terms matches everything.
type Filter struct {
	terms []string
	ac    *ahocorasick.Automaton
}

// Compile builds a filter from a free-text query. Short stopwords ("the",
// "and", "of") are dropped unless the query consists of nothing else.
func Compile(query string) (*Filter, error) {
	tokens := strings.Fields(Canonicalize(query))

	terms := make([]string, 0, len(tokens))
	seen := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		if seen[tok] || isStopword(tok) {
			continue
		}
		seen[tok] = true
		terms = append(terms, tok)
	}
	if len(terms) == 0 {
		for _, tok := range tokens {
			if !seen[tok] {
				seen[tok] = true
				terms = append(terms, tok)
			}
		}
	}

	f := &Filter{terms: terms}
	if len(terms) == 0 {
		return f, nil
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(terms).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	f.ac = automaton
	return f, nil
}

// Terms returns the search terms left after canonicalization.
func (f *Filter) Terms() []string {
	out := make([]string, len(f.terms))
	copy(out, f.terms)
	return out
}

// Match reports whether r contains every term in any of its text fields.
func (f *Filter) Match(r records.Record) bool {
	if f.ac == nil {
		return true
	}

	haystack := []byte(Canonicalize(r.Name + " " + r.Username + " " + r.Email))
	found := make([]bool, len(f.terms))
	remaining := len(f.terms)
	for _, m := range f.ac.FindAllOverlapping(haystack) {
		if m.PatternID < 0 || m.PatternID >= len(found) || found[m.PatternID] {
			continue
		}
		found[m.PatternID] = true
		remaining--
		if remaining == 0 {
			return true
		}
	}
	return false
}

// Apply returns the records that match, in list order.
func (f *Filter) Apply(list []records.Record) []records.Record {
	out := make([]records.Record, 0, len(list))
	for _, r := range list {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Canonicalize lowercases s, keeps letters, digits and the joiners that show
// up inside names and addresses, and collapses everything else to one space.
func Canonicalize(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	lastWasSpace := true
	for _, ch := range s {
		c := unicode.ToLower(ch)
		if c == '’' || c == '‘' {
			c = '\''
		}
		if unicode.IsLetter(c) || unicode.IsDigit(c) || isJoiner(c) {
			out.WriteRune(c)
			lastWasSpace = false
		} else if !lastWasSpace {
			out.WriteRune(' ')
			lastWasSpace = true
		}
	}
	return strings.TrimRight(out.String(), " ")
}

func isStopword(tok string) bool {
	return utf8.RuneCountInString(tok) <= maxStopwordLen && english.Contains(tok)
}

// isJoiner is punctuation kept inside a term: "O'Brien", "jean-luc",
// "first.last", "user_name".
func isJoiner(r rune) bool {
	switch r {
	case '\'', '-', '.', '_':
		return true
	default:
		return false
	}
}

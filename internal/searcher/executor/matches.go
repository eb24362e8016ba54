package executor

import (
	"iter"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
)

// Matches is a finite, restartable sequence of ranked results. The results
// are computed up front, so iterating never touches the index.
//
// A Matches value is not safe for concurrent iteration with Next; All may
// be ranged over from several goroutines.
type Matches struct {
	query string
	terms []string
	items []DocumentMatch
	total int
	pos   int
}

func newMatches(plan *parser.QueryPlan, items []DocumentMatch, total int) *Matches {
	m := &Matches{items: items, total: total, pos: -1}
	if plan != nil {
		m.query = plan.RawQuery
		m.terms = plan.Terms
	}
	return m
}

// Next advances to the next match and reports whether there is one.
func (m *Matches) Next() bool {
	if m.pos+1 >= len(m.items) {
		m.pos = len(m.items)
		return false
	}
	m.pos++
	return true
}

// Match returns the current match. It must only be called after Next
// returned true.
func (m *Matches) Match() DocumentMatch {
	return m.items[m.pos]
}

// Reset rewinds the iterator to before the first match.
func (m *Matches) Reset() {
	m.pos = -1
}

// Len returns the number of matches in the sequence.
func (m *Matches) Len() int {
	return len(m.items)
}

// Total returns the number of documents that qualified before any limit.
func (m *Matches) Total() int {
	return m.total
}

// Query returns the raw query text.
func (m *Matches) Query() string {
	return m.query
}

// Terms returns the normalised query terms.
func (m *Matches) Terms() []string {
	return m.terms
}

// All returns an iterator over every match, independent of Next's cursor.
func (m *Matches) All() iter.Seq[DocumentMatch] {
	return func(yield func(DocumentMatch) bool) {
		for _, dm := range m.items {
			if !yield(dm) {
				return
			}
		}
	}
}

// Slice returns a copy of the matches.
func (m *Matches) Slice() []DocumentMatch {
	out := make([]DocumentMatch, len(m.items))
	copy(out, m.items)
	return out
}

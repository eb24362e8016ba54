package executor

import (
	"context"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

// DefaultMinPrefixLength is used when prefix or substring matching is
// enabled without a minimum.
const DefaultMinPrefixLength = 3

// Options tunes a single execution.
type Options struct {
	// Prefix lets a query term also match every index term it prefixes.
	Prefix bool
	// Substring lets a query term also match every index term containing
	// it.
	Substring bool
	// MinPrefixLength is the minimum rune length of a term eligible for
	// prefix or substring expansion.
	MinPrefixLength int
	// Limit caps the number of matches; zero means unlimited.
	Limit int
}

// DocumentMatch is one ranked result.
type DocumentMatch struct {
	Ref   int    `json:"ref"`
	Title string `json:"title"`
	Path  string `json:"path"`
	// MatchedTerms are the query terms the document matched, in query order.
	MatchedTerms []string `json:"matched_terms"`
	// TitleMatch is set when at least one term matched through the title
	// postings.
	TitleMatch bool `json:"title_match"`
	// Sections whose titles contain a matched term.
	Sections []index.Section `json:"sections,omitempty"`
}

type Executor struct {
	tok *tokenizer.Tokenizer
}

// New returns an Executor. tok normalises section titles when picking the
// sections to report and must match the tokenizer the query was parsed
// with; nil selects the default.
func New(tok *tokenizer.Tokenizer) *Executor {
	if tok == nil {
		tok = tokenizer.Default()
	}
	return &Executor{tok: tok}
}

// termMatch is the resolved lookup for one query term.
type termMatch struct {
	term     string
	expanded map[string]struct{}
	docs     *roaring.Bitmap
	titles   *roaring.Bitmap
}

// Execute runs plan against idx. The index is only read; no I/O happens.
func (e *Executor) Execute(ctx context.Context, idx *index.Index, plan *parser.QueryPlan, opts Options) (*Matches, error) {
	if idx == nil {
		return nil, &apperrors.NotLoadedError{}
	}
	if plan == nil || plan.Empty() {
		return newMatches(plan, nil, 0), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	if (opts.Prefix || opts.Substring) && opts.MinPrefixLength <= 0 {
		opts.MinPrefixLength = DefaultMinPrefixLength
	}
	matches := make([]termMatch, 0, len(plan.Terms))
	for _, term := range plan.Terms {
		matches = append(matches, e.lookup(idx, term, lookupKeys(idx, plan, term), opts))
	}

	var candidates *roaring.Bitmap
	switch plan.Type {
	case parser.QueryOR:
		candidates = unionPostings(matches)
	default:
		candidates = intersectPostings(matches)
	}
	for _, term := range plan.ExcludeTerms {
		for _, key := range lookupKeys(idx, plan, term) {
			candidates.AndNot(idx.Lookup(key))
		}
	}

	scored := make([]ranker.ScoredDoc, 0, candidates.GetCardinality())
	it := candidates.Iterator()
	for it.HasNext() {
		ref := it.Next()
		score := 0
		for i := range matches {
			if matches[i].docs.Contains(ref) {
				score++
			}
		}
		scored = append(scored, ranker.ScoredDoc{Ref: int(ref), Score: score})
	}
	total := len(scored)
	ranked := ranker.Rank(scored, opts.Limit)

	results := make([]DocumentMatch, 0, len(ranked))
	for _, sd := range ranked {
		results = append(results, e.describe(idx, sd, matches))
	}

	logger.FromContext(ctx).Debug("query executed",
		"component", "query-executor",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"excluded", plan.ExcludeTerms,
		"type", plan.Type.String(),
		"candidates", total,
		"results", len(results),
		"duration", time.Since(start),
	)
	return newMatches(plan, results, total), nil
}

// lookupKeys returns the index terms a query term is looked up under. A
// generic index does not say how its vocabulary was normalised, so the
// unstemmed words are tried alongside the stem.
func lookupKeys(idx *index.Index, plan *parser.QueryPlan, term string) []string {
	if idx.Dialect() != index.DialectGeneric {
		return []string{term}
	}
	return plan.Keys(term)
}

func (e *Executor) lookup(idx *index.Index, term string, keys []string, opts Options) termMatch {
	m := termMatch{
		term:     term,
		expanded: make(map[string]struct{}),
		docs:     roaring.New(),
		titles:   roaring.New(),
	}
	for _, key := range keys {
		m.add(idx, key)
		if utf8.RuneCountInString(key) < opts.MinPrefixLength {
			continue
		}
		if opts.Prefix {
			for _, t := range idx.TermsWithPrefix(key) {
				m.add(idx, t)
			}
		}
		if opts.Substring {
			for _, t := range idx.TermsContaining(key) {
				m.add(idx, t)
			}
		}
	}
	return m
}

func (m *termMatch) add(idx *index.Index, t string) {
	if _, dup := m.expanded[t]; dup {
		return
	}
	m.expanded[t] = struct{}{}
	if p := idx.Postings(t); p != nil {
		m.docs.Or(p)
	}
	if tp := idx.TitlePostings(t); tp != nil {
		m.docs.Or(tp)
		m.titles.Or(tp)
	}
}

func (e *Executor) describe(idx *index.Index, sd ranker.ScoredDoc, matches []termMatch) DocumentMatch {
	doc, _ := idx.Document(sd.Ref)
	ref := uint32(sd.Ref)
	dm := DocumentMatch{
		Ref:          sd.Ref,
		Title:        doc.Title,
		Path:         doc.Path,
		MatchedTerms: make([]string, 0, sd.Score),
	}
	for i := range matches {
		if !matches[i].docs.Contains(ref) {
			continue
		}
		dm.MatchedTerms = append(dm.MatchedTerms, matches[i].term)
		if matches[i].titles.Contains(ref) {
			dm.TitleMatch = true
		}
	}
	for _, s := range doc.Sections {
		if e.sectionMatches(s, matches, ref) {
			dm.Sections = append(dm.Sections, s)
		}
	}
	return dm
}

func (e *Executor) sectionMatches(s index.Section, matches []termMatch, ref uint32) bool {
	for _, t := range e.tok.Terms(s.Title) {
		for i := range matches {
			if !matches[i].docs.Contains(ref) {
				continue
			}
			if _, ok := matches[i].expanded[t]; ok {
				return true
			}
		}
	}
	return false
}

// intersectPostings returns the documents every term matched. Sets are
// intersected smallest first.
func intersectPostings(matches []termMatch) *roaring.Bitmap {
	if len(matches) == 0 {
		return roaring.New()
	}
	sets := make([]*roaring.Bitmap, len(matches))
	for i := range matches {
		if matches[i].docs.IsEmpty() {
			return roaring.New()
		}
		sets[i] = matches[i].docs
	}
	sort.Slice(sets, func(i, j int) bool {
		return sets[i].GetCardinality() < sets[j].GetCardinality()
	})
	return roaring.FastAnd(sets...)
}

func unionPostings(matches []termMatch) *roaring.Bitmap {
	sets := make([]*roaring.Bitmap, len(matches))
	for i := range matches {
		sets[i] = matches[i].docs
	}
	return roaring.FastOr(sets...)
}

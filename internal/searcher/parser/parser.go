package parser

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

type QueryType int

const (
	QueryAND QueryType = iota
	QueryOR
)

func (t QueryType) String() string {
	if t == QueryOR {
		return "any"
	}
	return "all"
}

// TypeFor maps a configured match policy ("all" or "any") to a QueryType.
func TypeFor(policy string) (QueryType, error) {
	switch strings.ToLower(policy) {
	case "all", "":
		return QueryAND, nil
	case "any":
		return QueryOR, nil
	default:
		return QueryAND, fmt.Errorf("unknown match policy %q", policy)
	}
}

// QueryPlan is a parsed query. Terms and ExcludeTerms hold normalised,
// distinct terms in query order.
type QueryPlan struct {
	Terms        []string
	Type         QueryType
	ExcludeTerms []string
	RawQuery     string
	// Explicit is set when an inline AND / OR chose Type.
	Explicit bool
	// Variants maps a term to the lower-cased unstemmed words it came
	// from, when they differ from the term. Indexes that did not stem
	// their vocabulary are searched with these as well.
	Variants map[string][]string
}

// Keys returns term followed by its unstemmed variants.
func (p *QueryPlan) Keys(term string) []string {
	return append([]string{term}, p.Variants[term]...)
}

func (p *QueryPlan) addVariant(tok tokenizer.Token) {
	if tok.Word == "" || tok.Word == tok.Term {
		return
	}
	for _, v := range p.Variants[tok.Term] {
		if v == tok.Word {
			return
		}
	}
	p.Variants[tok.Term] = append(p.Variants[tok.Term], tok.Word)
}

// Empty reports whether the plan has nothing to match.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}

type Parser struct {
	tok         *tokenizer.Tokenizer
	defaultType QueryType
}

// New returns a Parser normalising with tok (the default tokenizer when
// nil) and combining terms with defaultType unless the query says
// otherwise.
func New(tok *tokenizer.Tokenizer, defaultType QueryType) *Parser {
	if tok == nil {
		tok = tokenizer.Default()
	}
	return &Parser{tok: tok, defaultType: defaultType}
}

var defaultParser = New(nil, QueryAND)

// Parse parses query with the default tokenizer and AND semantics.
func Parse(query string) *QueryPlan {
	return defaultParser.Parse(query)
}

// Parse splits query on whitespace. Upper-case AND / OR switch the merge
// type, NOT excludes the following word, and a leading '-' excludes the
// word it prefixes. Remaining words are normalised; stop-words vanish.
func (p *Parser) Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		Terms:        make([]string, 0),
		ExcludeTerms: make([]string, 0),
		Type:         p.defaultType,
		RawQuery:     query,
		Variants:     make(map[string][]string),
	}
	if strings.TrimSpace(query) == "" {
		return plan
	}
	seen := make(map[string]struct{})
	excluded := make(map[string]struct{})
	words := strings.Fields(query)
	excludeNext := false
	for i := 0; i < len(words); i++ {
		switch words[i] {
		case "AND":
			plan.Type = QueryAND
			plan.Explicit = true
			continue
		case "OR":
			plan.Type = QueryOR
			plan.Explicit = true
			continue
		case "NOT":
			excludeNext = true
			continue
		}
		word := words[i]
		exclude := excludeNext
		excludeNext = false
		if len(word) > 1 && word[0] == '-' {
			exclude = true
			word = word[1:]
		}
		for _, tok := range p.tok.Tokenize(word) {
			plan.addVariant(tok)
			if exclude {
				if _, dup := excluded[tok.Term]; !dup {
					excluded[tok.Term] = struct{}{}
					plan.ExcludeTerms = append(plan.ExcludeTerms, tok.Term)
				}
				continue
			}
			if _, dup := seen[tok.Term]; !dup {
				seen[tok.Term] = struct{}{}
				plan.Terms = append(plan.Terms, tok.Term)
			}
		}
	}
	return plan
}

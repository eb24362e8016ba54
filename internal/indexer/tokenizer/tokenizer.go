// Package tokenizer provides text tokenisation matching the normalisation a
// documentation generator applies when it writes its search index. It
// lower-cases input, splits on non-word boundaries, removes stop-words, and
// applies a Porter or Snowball stemmer.
package tokenizer

import (
	"fmt"
	"strings"
	"unicode"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/english"
)

// Stemmer names accepted by New.
const (
	Porter  = "porter"
	English = "english"
	None    = "none"
)

var stopWords = map[string]struct{}{
	"a": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "but": {}, "by": {}, "for": {}, "if": {},
	"in": {}, "into": {}, "is": {}, "it": {}, "near": {},
	"no": {}, "not": {}, "of": {}, "on": {}, "or": {},
	"such": {}, "that": {}, "the": {}, "their": {}, "then": {},
	"there": {}, "these": {}, "they": {}, "this": {}, "to": {},
	"was": {}, "will": {}, "with": {},
}

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
	// Word is the lower-cased word before stemming.
	Word string
}

// Tokenizer turns free text into normalised terms.
type Tokenizer struct {
	name string
	stem func(string) string
}

var defaultTokenizer = &Tokenizer{name: Porter, stem: porterStem}

// Default returns the Porter tokenizer, the normalisation Sphinx uses for
// English documentation.
func Default() *Tokenizer {
	return defaultTokenizer
}

// New returns a Tokenizer for the named stemmer.
func New(stemmer string) (*Tokenizer, error) {
	switch stemmer {
	case Porter, "":
		return defaultTokenizer, nil
	case English:
		return &Tokenizer{name: English, stem: snowballStem}, nil
	case None:
		return &Tokenizer{name: None, stem: func(w string) string { return w }}, nil
	default:
		return nil, fmt.Errorf("unknown stemmer %q", stemmer)
	}
}

// Name reports the stemmer this tokenizer applies.
func (t *Tokenizer) Name() string {
	return t.name
}

// Tokenize breaks text into a slice of stemmed, lowercased Tokens with
// stop-words removed.
func (t *Tokenizer) Tokenize(text string) []Token {
	words := Words(text)
	tokens := make([]Token, 0, len(words))
	pos := 0
	for _, word := range words {
		term, ok := t.Normalize(word)
		if !ok {
			continue
		}
		tokens = append(tokens, Token{
			Term:     term,
			Position: pos,
			Word:     word,
		})
		pos++
	}
	return tokens
}

// Terms returns the distinct terms of text in first-occurrence order.
func (t *Tokenizer) Terms(text string) []string {
	tokens := t.Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, dup := seen[tok.Term]; dup {
			continue
		}
		seen[tok.Term] = struct{}{}
		terms = append(terms, tok.Term)
	}
	return terms
}

// Normalize lower-cases and stems a single word. It reports false for empty
// words and stop-words.
func (t *Tokenizer) Normalize(word string) (string, bool) {
	word = strings.ToLower(word)
	if word == "" || IsStopWord(word) {
		return "", false
	}
	stemmed := t.stem(word)
	if stemmed == "" {
		return "", false
	}
	return stemmed, true
}

// Words splits text into raw lower-cased words. Letters, digits and the
// underscore are word characters.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

// IsStopWord reports whether the lower-cased word is ignored at query time.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

func porterStem(word string) string {
	return porterstemmer.StemString(word)
}

func snowballStem(word string) string {
	env := snowballstem.NewEnv(word)
	english.Stem(env)
	return env.Current()
}

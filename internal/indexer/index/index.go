package index

import (
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

// Dialect identifies the serialized layout an index was read from.
type Dialect string

const (
	// DialectGeneric uses the documentTitles / documentPaths / termPostings
	// field names.
	DialectGeneric Dialect = "generic"
	// DialectSphinx is the searchindex.js layout written by Sphinx.
	DialectSphinx Dialect = "sphinx"
)

// Index is an immutable, loaded search index. It is safe for concurrent use
// by any number of readers.
type Index struct {
	docs       []Document
	terms      map[string]PostingList
	titleTerms map[string]PostingList
	// sorted union of terms and titleTerms keys, for prefix and substring
	// lookups
	vocabulary []string
	checksum   uint64
	dialect    Dialect
}

func newIndex(docs []Document, terms, titleTerms map[string]PostingList, dialect Dialect) *Index {
	if terms == nil {
		terms = make(map[string]PostingList)
	}
	if titleTerms == nil {
		titleTerms = make(map[string]PostingList)
	}
	for _, bm := range terms {
		bm.RunOptimize()
	}
	for _, bm := range titleTerms {
		bm.RunOptimize()
	}
	vocab := make([]string, 0, len(terms)+len(titleTerms))
	for t := range terms {
		vocab = append(vocab, t)
	}
	for t := range titleTerms {
		if _, dup := terms[t]; !dup {
			vocab = append(vocab, t)
		}
	}
	sort.Strings(vocab)
	return &Index{
		docs:       docs,
		terms:      terms,
		titleTerms: titleTerms,
		vocabulary: vocab,
		dialect:    dialect,
	}
}

// Len returns the number of documents.
func (x *Index) Len() int {
	return len(x.docs)
}

// Document returns the descriptor for ref.
func (x *Index) Document(ref int) (Document, bool) {
	if ref < 0 || ref >= len(x.docs) {
		return Document{}, false
	}
	return x.docs[ref], true
}

// Documents returns a copy of the ordered document descriptors.
func (x *Index) Documents() []Document {
	out := make([]Document, len(x.docs))
	copy(out, x.docs)
	return out
}

// Postings returns the body posting list for term, or nil.
func (x *Index) Postings(term string) PostingList {
	return x.terms[term]
}

// TitlePostings returns the title posting list for term, or nil.
func (x *Index) TitlePostings(term string) PostingList {
	return x.titleTerms[term]
}

// Lookup returns a fresh set of every document whose body or title contains
// term. The caller owns the result.
func (x *Index) Lookup(term string) *roaring.Bitmap {
	body, title := x.terms[term], x.titleTerms[term]
	switch {
	case body != nil && title != nil:
		return roaring.Or(body, title)
	case body != nil:
		return body.Clone()
	case title != nil:
		return title.Clone()
	default:
		return roaring.New()
	}
}

// TermsWithPrefix returns every indexed term (body or title) starting with
// prefix, in lexical order.
func (x *Index) TermsWithPrefix(prefix string) []string {
	start := sort.SearchStrings(x.vocabulary, prefix)
	end := start
	for end < len(x.vocabulary) && strings.HasPrefix(x.vocabulary[end], prefix) {
		end++
	}
	if start == end {
		return nil
	}
	out := make([]string, end-start)
	copy(out, x.vocabulary[start:end])
	return out
}

// TermsContaining returns every indexed term (body or title) with sub
// anywhere inside it, in lexical order.
func (x *Index) TermsContaining(sub string) []string {
	var out []string
	for _, t := range x.vocabulary {
		if strings.Contains(t, sub) {
			out = append(out, t)
		}
	}
	return out
}

// Terms returns the body term entries sorted by term.
func (x *Index) Terms() []TermEntry {
	return entries(x.terms)
}

// TitleTerms returns the title term entries sorted by term.
func (x *Index) TitleTerms() []TermEntry {
	return entries(x.titleTerms)
}

// TermCount returns the number of distinct body terms.
func (x *Index) TermCount() int {
	return len(x.terms)
}

// TitleTermCount returns the number of distinct title terms.
func (x *Index) TitleTermCount() int {
	return len(x.titleTerms)
}

// Checksum is the xxhash64 of the raw bytes the index was parsed from, or
// zero for a built index.
func (x *Index) Checksum() uint64 {
	return x.checksum
}

// Dialect reports the layout the index was parsed from.
func (x *Index) Dialect() Dialect {
	return x.dialect
}

func entries(m map[string]PostingList) []TermEntry {
	keys := sortedKeys(m)
	out := make([]TermEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, TermEntry{Term: k, Postings: m[k]})
	}
	return out
}

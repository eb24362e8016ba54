package index

import (
	"log/slog"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

// Builder accumulates documents into a new Index. It is safe for concurrent
// use; documents receive references in the order they are added.
type Builder struct {
	mu         sync.Mutex
	tok        *tokenizer.Tokenizer
	docs       []Document
	terms      map[string]*roaring.Bitmap
	titleTerms map[string]*roaring.Bitmap
	logger     *slog.Logger
}

// NewBuilder returns a Builder normalising text with tok, or with the
// default tokenizer when tok is nil.
func NewBuilder(tok *tokenizer.Tokenizer) *Builder {
	if tok == nil {
		tok = tokenizer.Default()
	}
	return &Builder{
		tok:        tok,
		terms:      make(map[string]*roaring.Bitmap),
		titleTerms: make(map[string]*roaring.Bitmap),
		logger:     slog.Default().With("component", "index-builder"),
	}
}

// AddDocument indexes doc's title and section titles as title terms and body
// as body terms, returning the document's reference.
func (b *Builder) AddDocument(doc Document, body string) int {
	titleTerms := b.tok.Terms(doc.Title)
	for _, s := range doc.Sections {
		titleTerms = append(titleTerms, b.tok.Terms(s.Title)...)
	}
	bodyTerms := b.tok.Terms(body)

	doc.Sections = append([]Section(nil), doc.Sections...)
	sortSections(doc.Sections)

	b.mu.Lock()
	defer b.mu.Unlock()
	ref := len(b.docs)
	b.docs = append(b.docs, doc)
	for _, t := range titleTerms {
		addPosting(b.titleTerms, t, ref)
	}
	for _, t := range bodyTerms {
		addPosting(b.terms, t, ref)
	}
	b.logger.Debug("document added",
		"ref", ref,
		"path", doc.Path,
		"title_terms", len(titleTerms),
		"body_terms", len(bodyTerms),
	)
	return ref
}

// Len returns the number of documents added so far.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.docs)
}

// Build snapshots the accumulated documents into an immutable Index. The
// Builder remains usable afterwards.
func (b *Builder) Build() *Index {
	b.mu.Lock()
	defer b.mu.Unlock()
	docs := make([]Document, len(b.docs))
	copy(docs, b.docs)
	return newIndex(docs, cloneAll(b.terms), cloneAll(b.titleTerms), DialectGeneric)
}

func addPosting(m map[string]*roaring.Bitmap, term string, ref int) {
	bm, ok := m[term]
	if !ok {
		bm = roaring.New()
		m[term] = bm
	}
	bm.Add(uint32(ref))
}

func cloneAll(m map[string]*roaring.Bitmap) map[string]PostingList {
	out := make(map[string]PostingList, len(m))
	for t, bm := range m {
		out[t] = bm.Clone()
	}
	return out
}

// Package docsearch answers keyword queries against documentation search
// indices produced by a static-site generator.
//
// An index is a mapping from normalised terms to document references plus
// the per-document metadata needed to render a result: title, page path and
// section anchors. Both Sphinx's searchindex.js and a plain JSON dialect are
// understood.
//
// # Single index
//
//	f, _ := os.Open("_build/html/searchindex.js")
//	idx, err := docsearch.Load(f)
//	if err != nil {
//	    return err
//	}
//	matches, err := docsearch.Query(idx, "coverage tox")
//	for m := range matches.All() {
//	    fmt.Println(m.Title, m.Path)
//	}
//
// # Several versions
//
// A Library serves one index per documentation version, fetched from local
// files, HTTP origins or S3-compatible buckets:
//
//	cfg, _ := config.Load("docsearch.yaml")
//	lib, err := docsearch.New(ctx, cfg, prometheus.DefaultRegisterer)
//	matches, err := lib.Query(ctx, "stable", "install poetry")
//
// Loaded indices are immutable. Queries never perform I/O and are safe to
// run concurrently with each other and with reloads.
package docsearch

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/source"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

type (
	// Index is a loaded, immutable search index.
	Index = index.Index
	// Document describes one indexed page.
	Document = index.Document
	// Section is a titled anchor within a document.
	Section = index.Section
	// Dialect names a serialized index layout.
	Dialect = index.Dialect
	// DocumentMatch is one ranked query result.
	DocumentMatch = executor.DocumentMatch
	// Matches is a finite, restartable sequence of ranked results.
	Matches = executor.Matches
	// LoadOption configures Load and Parse.
	LoadOption = index.LoadOption
	// Builder assembles an Index from document text.
	Builder = index.Builder
)

const (
	DialectGeneric = index.DialectGeneric
	DialectSphinx  = index.DialectSphinx
)

// Load reads a serialized index from r.
func Load(r io.Reader, opts ...LoadOption) (*Index, error) {
	return index.Load(r, opts...)
}

// Parse decodes a serialized index held in memory.
func Parse(data []byte, opts ...LoadOption) (*Index, error) {
	return index.Parse(data, opts...)
}

// LoadFile reads the index at path. Names ending in .gz, .zst or .lz4 are
// decompressed first.
func LoadFile(ctx context.Context, path string, opts ...LoadOption) (*Index, error) {
	data, err := source.Fetch(ctx, source.NewFile(path), source.FetchOptions{})
	if err != nil {
		return nil, err
	}
	return index.Parse(data, opts...)
}

// Encode writes idx to w in the given dialect.
func Encode(w io.Writer, idx *Index, dialect Dialect) error {
	if idx == nil {
		return &apperrors.NotLoadedError{}
	}
	return index.Encode(w, idx, dialect)
}

// WriteFile encodes idx to path, replacing any existing file.
func WriteFile(path string, idx *Index, dialect Dialect) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Encode(f, idx, dialect); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WithSchemaValidation toggles JSON-Schema validation of the payload before
// decoding. It is on by default.
func WithSchemaValidation(enabled bool) LoadOption {
	return index.WithSchemaValidation(enabled)
}

// NewBuilder returns a Builder that normalises text with the named stemmer
// ("porter", "english" or "none").
func NewBuilder(stemmer string) (*Builder, error) {
	tok, err := tokenizerFor(stemmer)
	if err != nil {
		return nil, err
	}
	return index.NewBuilder(tok), nil
}

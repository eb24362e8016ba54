package index

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

type genericPayload struct {
	DocumentTitles   []string       `json:"documentTitles"`
	DocumentPaths    []string       `json:"documentPaths"`
	DocumentNames    []string       `json:"documentNames,omitempty"`
	DocumentSources  []string       `json:"documentSources,omitempty"`
	DocumentSections [][]Section    `json:"documentSections,omitempty"`
	TermPostings     map[string]any `json:"termPostings"`
	TitlePostings    map[string]any `json:"titlePostings,omitempty"`
}

type sphinxPayload struct {
	AllTitles  map[string][][2]any `json:"alltitles"`
	DocNames   []string            `json:"docnames"`
	Filenames  []string            `json:"filenames,omitempty"`
	Terms      map[string]any      `json:"terms"`
	Titles     []string            `json:"titles"`
	TitleTerms map[string]any      `json:"titleterms"`
}

// Encode writes idx to w in the given dialect. The Sphinx dialect is written
// as a complete searchindex.js, including the Search.setIndex wrapper.
// Encoding is deterministic: map keys are sorted and postings ascend.
//
// Sphinx serves every document at its docname plus ".html", so a document
// whose Path has another form cannot be written in that dialect and Encode
// fails with ErrInvalidInput before writing anything.
func Encode(w io.Writer, idx *Index, dialect Dialect) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)

	switch dialect {
	case DialectGeneric:
		if err := enc.Encode(genericFrom(idx)); err != nil {
			return fmt.Errorf("encoding generic index: %w", err)
		}
	case DialectSphinx:
		p, err := sphinxFrom(idx)
		if err != nil {
			return err
		}
		if _, err := bw.WriteString(sphinxWrapper); err != nil {
			return err
		}
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("encoding sphinx index: %w", err)
		}
		if _, err := bw.WriteString(")"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown index dialect %q", dialect)
	}
	return bw.Flush()
}

func genericFrom(idx *Index) genericPayload {
	n := idx.Len()
	p := genericPayload{
		DocumentTitles: make([]string, n),
		DocumentPaths:  make([]string, n),
		TermPostings:   postingsFrom(idx.terms, false),
	}
	var hasNames, hasSources, hasSections bool
	for _, d := range idx.docs {
		hasNames = hasNames || d.Name != ""
		hasSources = hasSources || d.Source != ""
		hasSections = hasSections || len(d.Sections) > 0
	}
	if hasNames {
		p.DocumentNames = make([]string, n)
	}
	if hasSources {
		p.DocumentSources = make([]string, n)
	}
	if hasSections {
		p.DocumentSections = make([][]Section, n)
	}
	for i, d := range idx.docs {
		p.DocumentTitles[i] = d.Title
		p.DocumentPaths[i] = d.Path
		if hasNames {
			p.DocumentNames[i] = d.Name
		}
		if hasSources {
			p.DocumentSources[i] = d.Source
		}
		if hasSections {
			p.DocumentSections[i] = d.Sections
		}
	}
	if len(idx.titleTerms) > 0 {
		p.TitlePostings = postingsFrom(idx.titleTerms, false)
	}
	return p
}

func sphinxFrom(idx *Index) (sphinxPayload, error) {
	n := idx.Len()
	p := sphinxPayload{
		AllTitles:  make(map[string][][2]any),
		DocNames:   make([]string, n),
		Titles:     make([]string, n),
		Terms:      postingsFrom(idx.terms, true),
		TitleTerms: postingsFrom(idx.titleTerms, true),
	}
	var hasSources bool
	for _, d := range idx.docs {
		hasSources = hasSources || d.Source != ""
	}
	if hasSources {
		p.Filenames = make([]string, n)
	}
	for i, d := range idx.docs {
		name := docName(d)
		if name == "" || name+htmlSuffix != d.Path {
			return sphinxPayload{}, fmt.Errorf("%w: document %d path %q is not a Sphinx docname plus %s",
				apperrors.ErrInvalidInput, i, d.Path, htmlSuffix)
		}
		p.Titles[i] = d.Title
		p.DocNames[i] = name
		if hasSources {
			p.Filenames[i] = d.Source
		}
		for _, s := range d.Sections {
			var anchor any
			if s.Anchor != "" {
				anchor = s.Anchor
			}
			p.AllTitles[s.Title] = append(p.AllTitles[s.Title], [2]any{i, anchor})
		}
	}
	return p, nil
}

func docName(d Document) string {
	if d.Name != "" {
		return d.Name
	}
	return strings.TrimSuffix(d.Path, htmlSuffix)
}

func postingsFrom(m map[string]PostingList, compact bool) map[string]any {
	out := make(map[string]any, len(m))
	for term, bm := range m {
		out[term] = encodePostings(bm, compact)
	}
	return out
}

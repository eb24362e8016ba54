package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cespare/xxhash/v2"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

const sphinxWrapper = "Search.setIndex("

// Sphinx serves each document at docname + htmlSuffix.
const htmlSuffix = ".html"

type loadOptions struct {
	validateSchema bool
	logger         *slog.Logger
}

// LoadOption configures Load and Parse.
type LoadOption func(*loadOptions)

// WithSchemaValidation toggles JSON-Schema validation of the payload before
// it is decoded.
func WithSchemaValidation(enabled bool) LoadOption {
	return func(o *loadOptions) {
		o.validateSchema = enabled
	}
}

// WithLogger sets the logger used for load diagnostics.
func WithLogger(logger *slog.Logger) LoadOption {
	return func(o *loadOptions) {
		o.logger = logger
	}
}

// Load reads a serialized index from r. See Parse.
func Load(r io.Reader, opts ...LoadOption) (*Index, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	return Parse(data, opts...)
}

// Parse decodes and validates a serialized index. Both the generic layout
// and Sphinx's searchindex.js (optionally wrapped in Search.setIndex(...))
// are accepted; unrecognised keys are ignored. Any structural problem is
// reported as a *errors.MalformedIndexError and no index is returned.
func Parse(data []byte, opts ...LoadOption) (*Index, error) {
	o := loadOptions{
		validateSchema: true,
		logger:         slog.Default().With("component", "index-loader"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	payload, err := unwrap(data)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, &apperrors.MalformedIndexError{
			Field:  "payload",
			Reason: "not a JSON object",
			Err:    err,
		}
	}
	if fields == nil {
		return nil, apperrors.Malformed("payload", "not a JSON object")
	}

	dialect, err := detectDialect(fields)
	if err != nil {
		return nil, err
	}
	for _, name := range requiredFields[dialect] {
		if raw, ok := fields[name]; !ok || isNull(raw) {
			return nil, apperrors.Malformed(name, "required field is missing")
		}
	}
	if o.validateSchema {
		if err := validateSchema(dialect, payload); err != nil {
			return nil, err
		}
	}

	var idx *Index
	switch dialect {
	case DialectSphinx:
		idx, err = decodeSphinx(fields)
	default:
		idx, err = decodeGeneric(fields)
	}
	if err != nil {
		return nil, err
	}
	idx.checksum = xxhash.Sum64(data)

	o.logger.Debug("index parsed",
		"dialect", dialect,
		"documents", idx.Len(),
		"terms", idx.TermCount(),
		"title_terms", idx.TitleTermCount(),
		"bytes", len(data),
	)
	return idx, nil
}

// unwrap strips an optional UTF-8 BOM and the Search.setIndex(...) call.
func unwrap(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	data = bytes.TrimSpace(data)
	if !bytes.HasPrefix(data, []byte(sphinxWrapper)) {
		return data, nil
	}
	data = bytes.TrimSpace(data[len(sphinxWrapper):])
	data = bytes.TrimSpace(bytes.TrimSuffix(data, []byte(";")))
	if !bytes.HasSuffix(data, []byte(")")) {
		return nil, apperrors.Malformed("payload", "unterminated %s call", strings.TrimSuffix(sphinxWrapper, "("))
	}
	return bytes.TrimSpace(data[:len(data)-1]), nil
}

var requiredFields = map[Dialect][]string{
	DialectGeneric: {"documentTitles", "documentPaths", "termPostings"},
	DialectSphinx:  {"titles", "docnames", "terms"},
}

func detectDialect(fields map[string]json.RawMessage) (Dialect, error) {
	for _, dialect := range []Dialect{DialectGeneric, DialectSphinx} {
		for _, k := range requiredFields[dialect] {
			if _, ok := fields[k]; ok {
				return dialect, nil
			}
		}
	}
	return "", apperrors.Malformed("payload", "no document list or term mapping present")
}

func decodeGeneric(fields map[string]json.RawMessage) (*Index, error) {
	var titles, paths []string
	if err := requireField(fields, "documentTitles", &titles); err != nil {
		return nil, err
	}
	if err := requireField(fields, "documentPaths", &paths); err != nil {
		return nil, err
	}
	if len(titles) != len(paths) {
		return nil, apperrors.Malformed("documentPaths",
			"has %d entries but documentTitles has %d", len(paths), len(titles))
	}
	var names, sources []string
	if err := optionalField(fields, "documentNames", &names); err != nil {
		return nil, err
	}
	if err := optionalField(fields, "documentSources", &sources); err != nil {
		return nil, err
	}
	if err := sameLength("documentNames", names, len(titles)); err != nil {
		return nil, err
	}
	if err := sameLength("documentSources", sources, len(titles)); err != nil {
		return nil, err
	}
	var sections [][]Section
	if err := optionalField(fields, "documentSections", &sections); err != nil {
		return nil, err
	}
	if sections != nil && len(sections) != len(titles) {
		return nil, apperrors.Malformed("documentSections",
			"has %d entries but documentTitles has %d", len(sections), len(titles))
	}

	docs := make([]Document, len(titles))
	for i := range titles {
		docs[i] = Document{Title: titles[i], Path: paths[i]}
		if names != nil {
			docs[i].Name = names[i]
		}
		if sources != nil {
			docs[i].Source = sources[i]
		}
		if sections != nil {
			docs[i].Sections = sections[i]
		}
	}

	terms, err := decodePostings(fields, "termPostings", true, len(docs))
	if err != nil {
		return nil, err
	}
	titleTerms, err := decodePostings(fields, "titlePostings", false, len(docs))
	if err != nil {
		return nil, err
	}
	return newIndex(docs, terms, titleTerms, DialectGeneric), nil
}

func decodeSphinx(fields map[string]json.RawMessage) (*Index, error) {
	var titles, docnames []string
	if err := requireField(fields, "titles", &titles); err != nil {
		return nil, err
	}
	if err := requireField(fields, "docnames", &docnames); err != nil {
		return nil, err
	}
	if len(titles) != len(docnames) {
		return nil, apperrors.Malformed("docnames",
			"has %d entries but titles has %d", len(docnames), len(titles))
	}
	var filenames []string
	if err := optionalField(fields, "filenames", &filenames); err != nil {
		return nil, err
	}
	if err := sameLength("filenames", filenames, len(titles)); err != nil {
		return nil, err
	}

	docs := make([]Document, len(titles))
	for i := range titles {
		docs[i] = Document{
			Title: titles[i],
			Name:  docnames[i],
			Path:  docnames[i] + htmlSuffix,
		}
		if filenames != nil {
			docs[i].Source = filenames[i]
		}
	}
	if err := decodeAllTitles(fields, docs); err != nil {
		return nil, err
	}

	terms, err := decodePostings(fields, "terms", true, len(docs))
	if err != nil {
		return nil, err
	}
	titleTerms, err := decodePostings(fields, "titleterms", false, len(docs))
	if err != nil {
		return nil, err
	}
	return newIndex(docs, terms, titleTerms, DialectSphinx), nil
}

// decodeAllTitles attaches Sphinx alltitles entries ({title: [[ref, anchor|null], ...]})
// to their documents as sections.
func decodeAllTitles(fields map[string]json.RawMessage, docs []Document) error {
	var all map[string][][]json.RawMessage
	if err := optionalField(fields, "alltitles", &all); err != nil {
		return err
	}
	for title, refs := range all {
		for _, pair := range refs {
			if len(pair) != 2 {
				return &apperrors.MalformedIndexError{
					Field:  "alltitles",
					Term:   title,
					Reason: fmt.Sprintf("entry must be [document, anchor], got %d elements", len(pair)),
				}
			}
			ref, err := decodeRef(pair[0])
			if err != nil {
				return &apperrors.MalformedIndexError{Field: "alltitles", Term: title, Reason: err.Error()}
			}
			if err := checkRef("alltitles", title, ref, len(docs)); err != nil {
				return err
			}
			var anchor *string
			if err := json.Unmarshal(pair[1], &anchor); err != nil {
				return &apperrors.MalformedIndexError{
					Field:  "alltitles",
					Term:   title,
					Reason: "anchor must be a string or null",
					Err:    err,
				}
			}
			section := Section{Title: title}
			if anchor != nil {
				section.Anchor = *anchor
			}
			docs[ref].Sections = append(docs[ref].Sections, section)
		}
	}
	for i := range docs {
		sortSections(docs[i].Sections)
	}
	return nil
}

func decodePostings(fields map[string]json.RawMessage, field string, required bool, numDocs int) (map[string]PostingList, error) {
	var raw map[string]json.RawMessage
	var err error
	if required {
		err = requireField(fields, field, &raw)
	} else {
		err = optionalField(fields, field, &raw)
	}
	if err != nil {
		return nil, err
	}
	out := make(map[string]PostingList, len(raw))
	for term, value := range raw {
		var refs postingRefs
		if err := json.Unmarshal(value, &refs); err != nil {
			return nil, &apperrors.MalformedIndexError{Field: field, Term: term, Reason: err.Error()}
		}
		bm := roaring.New()
		for _, ref := range refs {
			if err := checkRef(field, term, ref, numDocs); err != nil {
				return nil, err
			}
			bm.Add(uint32(ref))
		}
		out[term] = bm
	}
	return out, nil
}

func checkRef(field, term string, ref int64, numDocs int) error {
	if ref < 0 || ref >= int64(numDocs) || ref > math.MaxUint32 {
		return &apperrors.MalformedIndexError{
			Field:  field,
			Term:   term,
			Reason: fmt.Sprintf("document reference %d out of range [0, %d)", ref, numDocs),
		}
	}
	return nil
}

func requireField(fields map[string]json.RawMessage, name string, dst any) error {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return apperrors.Malformed(name, "required field is missing")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &apperrors.MalformedIndexError{Field: name, Reason: "unexpected type", Err: err}
	}
	return nil
}

func optionalField(fields map[string]json.RawMessage, name string, dst any) error {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &apperrors.MalformedIndexError{Field: name, Reason: "unexpected type", Err: err}
	}
	return nil
}

func sameLength(field string, values []string, want int) error {
	if values != nil && len(values) != want {
		return apperrors.Malformed(field, "has %d entries but there are %d documents", len(values), want)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func sortSections(sections []Section) {
	sort.SliceStable(sections, func(i, j int) bool {
		if sections[i].Title != sections[j].Title {
			return sections[i].Title < sections[j].Title
		}
		return sections[i].Anchor < sections[j].Anchor
	})
}

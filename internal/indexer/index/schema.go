package index

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var schemaFiles = map[Dialect]struct {
	file string
	url  string
}{
	DialectGeneric: {"schemas/generic.json", "https://schemas.docsearch.dev/generic-index.json"},
	DialectSphinx:  {"schemas/sphinx.json", "https://schemas.docsearch.dev/sphinx-index.json"},
}

// Fields whose object keys are index terms or titles.
var keyedFields = map[string]bool{
	"termPostings":  true,
	"titlePostings": true,
	"terms":         true,
	"titleterms":    true,
	"alltitles":     true,
}

// maxSchemaCauses bounds how many violation locations are reported.
const maxSchemaCauses = 5

var (
	schemasOnce sync.Once
	schemas     map[Dialect]*jsonschema.Schema
	schemasErr  error
)

func compiledSchemas() (map[Dialect]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		for _, s := range schemaFiles {
			raw, err := schemaFS.ReadFile(s.file)
			if err != nil {
				schemasErr = fmt.Errorf("reading schema %s: %w", s.file, err)
				return
			}
			doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
			if err != nil {
				schemasErr = fmt.Errorf("parsing schema %s: %w", s.file, err)
				return
			}
			if err := compiler.AddResource(s.url, doc); err != nil {
				schemasErr = fmt.Errorf("adding schema %s: %w", s.url, err)
				return
			}
		}
		compiled := make(map[Dialect]*jsonschema.Schema, len(schemaFiles))
		for dialect, s := range schemaFiles {
			sch, err := compiler.Compile(s.url)
			if err != nil {
				schemasErr = fmt.Errorf("compiling schema %s: %w", s.url, err)
				return
			}
			compiled[dialect] = sch
		}
		schemas = compiled
	})
	return schemas, schemasErr
}

// validateSchema checks payload against the JSON Schema for dialect.
func validateSchema(dialect Dialect, payload []byte) error {
	compiled, err := compiledSchemas()
	if err != nil {
		return err
	}
	sch, ok := compiled[dialect]
	if !ok {
		return fmt.Errorf("no schema for dialect %q", dialect)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return &apperrors.MalformedIndexError{Field: "payload", Reason: "not valid JSON", Err: err}
	}
	err = sch.Validate(doc)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return &apperrors.MalformedIndexError{Field: "payload", Reason: "schema validation failed", Err: err}
	}
	return schemaViolation(verr)
}

// schemaViolation converts a validation tree into a MalformedIndexError
// pointing at the first leaf violation.
func schemaViolation(verr *jsonschema.ValidationError) error {
	leaves := leafViolations(verr, nil)
	first := verr
	if len(leaves) > 0 {
		first = leaves[0]
	}

	merr := &apperrors.MalformedIndexError{
		Field:  "payload",
		Reason: "does not match schema at " + pointer(first.InstanceLocation),
		Err:    verr,
	}
	if loc := first.InstanceLocation; len(loc) > 0 {
		merr.Field = loc[0]
		if keyedFields[loc[0]] && len(loc) > 1 {
			merr.Term = loc[1]
		}
	}
	for i, leaf := range leaves {
		if i == maxSchemaCauses {
			merr.Causes = append(merr.Causes, fmt.Sprintf("and %d more", len(leaves)-i))
			break
		}
		merr.Causes = append(merr.Causes, pointer(leaf.InstanceLocation))
	}
	return merr
}

func leafViolations(verr *jsonschema.ValidationError, out []*jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(verr.Causes) == 0 {
		return append(out, verr)
	}
	for _, c := range verr.Causes {
		out = leafViolations(c, out)
	}
	return out
}

func pointer(loc []string) string {
	if len(loc) == 0 {
		return "/"
	}
	return "/" + strings.Join(loc, "/")
}

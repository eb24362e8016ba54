// Package errors defines the sentinel errors and typed errors surfaced by
// the search-index loader, the query engine and the registry.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedIndex    = errors.New("malformed index")
	ErrNotLoaded         = errors.New("index not loaded")
	ErrUnknownVersion    = errors.New("unknown index version")
	ErrSourceUnavailable = errors.New("index source unavailable")
	ErrInvalidInput      = errors.New("invalid input")
)

// MalformedIndexError reports a structural violation found while loading a
// serialized index. Load is all-or-nothing, so one of these means no index
// was produced.
type MalformedIndexError struct {
	Field  string
	Term   string
	Reason string
	Causes []string
	Err    error
}

func (e *MalformedIndexError) Error() string {
	var b strings.Builder
	b.WriteString(ErrMalformedIndex.Error())
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	if e.Term != "" {
		fmt.Fprintf(&b, "[%q]", e.Term)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if len(e.Causes) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Causes, "; "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *MalformedIndexError) Is(target error) bool {
	return target == ErrMalformedIndex
}

func (e *MalformedIndexError) Unwrap() error {
	return e.Err
}

// Malformed builds a MalformedIndexError for the given top-level field.
func Malformed(field string, format string, args ...any) *MalformedIndexError {
	return &MalformedIndexError{
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

// NotLoadedError is returned when a query reaches an index that has not been
// successfully loaded.
type NotLoadedError struct {
	Version string
}

func (e *NotLoadedError) Error() string {
	if e.Version == "" {
		return ErrNotLoaded.Error()
	}
	return fmt.Sprintf("%s: version %q", ErrNotLoaded.Error(), e.Version)
}

func (e *NotLoadedError) Is(target error) bool {
	return target == ErrNotLoaded
}

// Kind maps an error to a short stable label used in logs and metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMalformedIndex):
		return "malformed"
	case errors.Is(err, ErrNotLoaded):
		return "not_loaded"
	case errors.Is(err, ErrUnknownVersion):
		return "unknown_version"
	case errors.Is(err, ErrSourceUnavailable):
		return "source_unavailable"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}

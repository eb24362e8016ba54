package docsearch

import (
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

var (
	// ErrMalformedIndex is matched by every MalformedIndexError.
	ErrMalformedIndex = apperrors.ErrMalformedIndex
	// ErrNotLoaded is matched by every NotLoadedError.
	ErrNotLoaded = apperrors.ErrNotLoaded
	// ErrUnknownVersion is returned for a version a Library does not serve.
	ErrUnknownVersion = apperrors.ErrUnknownVersion
	// ErrSourceUnavailable wraps every failure to fetch an index.
	ErrSourceUnavailable = apperrors.ErrSourceUnavailable
	// ErrInvalidInput reports a bad option or configuration value.
	ErrInvalidInput = apperrors.ErrInvalidInput
)

// MalformedIndexError reports a structural violation found while loading.
// Field names the offending top-level key and Term the posting key when
// one is involved.
type MalformedIndexError = apperrors.MalformedIndexError

// NotLoadedError is returned when a query reaches an index that has not
// been loaded.
type NotLoadedError = apperrors.NotLoadedError

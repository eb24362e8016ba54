package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

func TestMalformedIndexErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("loading: %w", &apperrors.MalformedIndexError{
		Field:  "termPostings",
		Term:   "black",
		Reason: "document reference 5 out of range [0, 2)",
	})

	assert.ErrorIs(t, err, apperrors.ErrMalformedIndex)
	assert.NotErrorIs(t, err, apperrors.ErrNotLoaded)

	var malformed *apperrors.MalformedIndexError
	assert.True(t, errors.As(err, &malformed))
	assert.Equal(t, "black", malformed.Term)
	assert.Contains(t, err.Error(), `termPostings["black"]`)
}

func TestMalformedIndexErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := &apperrors.MalformedIndexError{Field: "payload", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, apperrors.ErrMalformedIndex)
}

func TestNotLoadedError(t *testing.T) {
	assert.Equal(t, "index not loaded", (&apperrors.NotLoadedError{}).Error())

	err := &apperrors.NotLoadedError{Version: "1.2"}
	assert.ErrorIs(t, err, apperrors.ErrNotLoaded)
	assert.Contains(t, err.Error(), `"1.2"`)
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{apperrors.Malformed("documentTitles", "missing"), "malformed"},
		{&apperrors.NotLoadedError{}, "not_loaded"},
		{fmt.Errorf("get: %w", apperrors.ErrUnknownVersion), "unknown_version"},
		{fmt.Errorf("open: %w", apperrors.ErrSourceUnavailable), "source_unavailable"},
		{apperrors.ErrInvalidInput, "invalid_input"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, apperrors.Kind(tt.err))
	}
}

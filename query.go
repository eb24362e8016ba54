package docsearch

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/registry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// Match policies.
const (
	MatchAll = config.MatchAll
	MatchAny = config.MatchAny
)

type queryOptions struct {
	policy    string
	prefix    *bool
	substring *bool
	minPrefix int
	limit     int
	stemmer   string
}

// QueryOption tunes a single query.
type QueryOption func(*queryOptions)

// WithMatchPolicy selects MatchAll (every term must match, the default) or
// MatchAny. Inline AND / OR in the query text still take precedence.
func WithMatchPolicy(policy string) QueryOption {
	return func(o *queryOptions) { o.policy = policy }
}

// WithPrefix lets each query term also match every index term it prefixes.
func WithPrefix(enabled bool) QueryOption {
	return func(o *queryOptions) { o.prefix = &enabled }
}

// WithSubstring lets each query term also match every index term that
// contains it, the partial matching the Sphinx search page offers.
func WithSubstring(enabled bool) QueryOption {
	return func(o *queryOptions) { o.substring = &enabled }
}

// WithMinPrefixLength sets the shortest term eligible for prefix or
// substring expansion.
func WithMinPrefixLength(n int) QueryOption {
	return func(o *queryOptions) { o.minPrefix = n }
}

// WithLimit keeps only the n best matches. Zero means unlimited.
func WithLimit(n int) QueryOption {
	return func(o *queryOptions) { o.limit = n }
}

// WithStemmer normalises query text with the named stemmer. It must match
// the stemmer the index was generated with. Library queries ignore it and
// use search.stemmer from the configuration.
func WithStemmer(name string) QueryOption {
	return func(o *queryOptions) { o.stemmer = name }
}

// Query runs text against idx.
func Query(idx *Index, text string, opts ...QueryOption) (*Matches, error) {
	return QueryContext(context.Background(), idx, text, opts...)
}

// QueryContext is Query with a caller-supplied context, used for
// cancellation and for the query id carried into logs.
func QueryContext(ctx context.Context, idx *Index, text string, opts ...QueryOption) (*Matches, error) {
	o := queryOptions{policy: MatchAll}
	for _, opt := range opts {
		opt(&o)
	}
	if o.limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", apperrors.ErrInvalidInput, o.limit)
	}
	policy, err := parser.TypeFor(o.policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	tok, err := tokenizerFor(o.stemmer)
	if err != nil {
		return nil, err
	}

	eo := executor.Options{
		MinPrefixLength: o.minPrefix,
		Limit:           o.limit,
	}
	if o.prefix != nil {
		eo.Prefix = *o.prefix
	}
	if o.substring != nil {
		eo.Substring = *o.substring
	}
	plan := parser.New(tok, policy).Parse(text)
	return executor.New(tok).Execute(ctx, idx, plan, eo)
}

func tokenizerFor(stemmer string) (*tokenizer.Tokenizer, error) {
	tok, err := tokenizer.New(stemmer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	return tok, nil
}

func (o queryOptions) registryOptions() []registry.QueryOption {
	var out []registry.QueryOption
	if o.policy != "" {
		out = append(out, registry.WithMatchPolicy(o.policy))
	}
	if o.prefix != nil {
		out = append(out, registry.WithPrefix(*o.prefix))
	}
	if o.substring != nil {
		out = append(out, registry.WithSubstring(*o.substring))
	}
	if o.minPrefix > 0 {
		out = append(out, registry.WithMinPrefixLength(o.minPrefix))
	}
	if o.limit != 0 {
		out = append(out, registry.WithLimit(o.limit))
	}
	return out
}

package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

// unknownVersionLabel stands in for version names that were never
// registered, keeping metric label cardinality bounded.
const unknownVersionLabel = "unknown"

// QueryOption overrides a configured search default for one query.
type QueryOption func(*queryOptions)

type queryOptions struct {
	policy    string
	prefix    *bool
	substring *bool
	minPrefix int
	limit     int
}

// WithMatchPolicy selects "all" or "any" merging for this query.
func WithMatchPolicy(policy string) QueryOption {
	return func(o *queryOptions) { o.policy = policy }
}

// WithPrefix turns prefix expansion on or off.
func WithPrefix(enabled bool) QueryOption {
	return func(o *queryOptions) { o.prefix = &enabled }
}

// WithSubstring turns substring expansion on or off.
func WithSubstring(enabled bool) QueryOption {
	return func(o *queryOptions) { o.substring = &enabled }
}

// WithMinPrefixLength sets the shortest term eligible for prefix or
// substring expansion.
func WithMinPrefixLength(n int) QueryOption {
	return func(o *queryOptions) { o.minPrefix = n }
}

// WithLimit caps the number of matches. It is still bounded by
// search.maxResults.
func WithLimit(n int) QueryOption {
	return func(o *queryOptions) { o.limit = n }
}

// Query runs text against the index currently served for version. It never
// touches a source; an index that has not loaded yet yields a NotLoadedError.
func (r *Registry) Query(ctx context.Context, version, text string, opts ...QueryOption) (*executor.Matches, error) {
	start := time.Now()
	matches, err := r.query(ctx, version, text, opts)
	elapsed := time.Since(start)

	result := resultType(matches, err)
	if r.metrics != nil {
		label := version
		if errors.Is(err, apperrors.ErrUnknownVersion) {
			label = unknownVersionLabel
		}
		r.metrics.QueriesTotal.WithLabelValues(label, result).Inc()
		r.metrics.QueryLatency.WithLabelValues(label).Observe(elapsed.Seconds())
		if err == nil {
			r.metrics.QueryResultsCount.WithLabelValues(version).Observe(float64(matches.Total()))
		}
	}

	log := logger.FromContext(ctx).With("component", "registry", "version", version)
	if err != nil {
		log.Warn("query failed", "error", err, "kind", apperrors.Kind(err))
		return nil, err
	}
	log.Debug("query served",
		"result", result,
		"total", matches.Total(),
		"returned", matches.Len(),
		"duration", elapsed,
	)
	return matches, nil
}

func (r *Registry) query(ctx context.Context, version, text string, opts []QueryOption) (*executor.Matches, error) {
	o := queryOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	policy := r.policy
	if o.policy != "" {
		p, err := parser.TypeFor(o.policy)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
		}
		policy = p
	}
	if o.limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", apperrors.ErrInvalidInput, o.limit)
	}

	idx, err := r.Get(version)
	if err != nil {
		return nil, err
	}

	plan := parser.New(r.tok, policy).Parse(text)
	return r.exec.Execute(ctx, idx, plan, r.execOptions(o))
}

func (r *Registry) execOptions(o queryOptions) executor.Options {
	eo := executor.Options{
		Prefix:          r.search.PrefixMatch,
		Substring:       r.search.SubstringMatch,
		MinPrefixLength: r.search.MinPrefixLength,
		Limit:           r.search.DefaultLimit,
	}
	if o.prefix != nil {
		eo.Prefix = *o.prefix
	}
	if o.substring != nil {
		eo.Substring = *o.substring
	}
	if o.minPrefix > 0 {
		eo.MinPrefixLength = o.minPrefix
	}
	if o.limit > 0 {
		eo.Limit = o.limit
	}
	if ceiling := r.search.MaxResults; ceiling > 0 && (eo.Limit == 0 || eo.Limit > ceiling) {
		eo.Limit = ceiling
	}
	return eo
}

func resultType(m *executor.Matches, err error) string {
	switch {
	case err != nil:
		return "error"
	case len(m.Terms()) == 0:
		return "empty"
	case m.Total() == 0:
		return "zero_result"
	default:
		return "hit"
	}
}

// Package registry keeps one loaded search index per documentation version.
// Versions are loaded concurrently, reloads of the same version are
// coalesced, and a successful reload swaps the index atomically so queries
// already running keep the index they started with.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/source"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/tracing"
)

// Options configures a Registry. Zero-valued Search and Index sections take
// config.Default values.
type Options struct {
	Search  config.SearchConfig
	Index   config.IndexConfig
	Metrics *metrics.Metrics
}

// Registry maps version names to loaded indices.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	group   singleflight.Group

	search   config.SearchConfig
	indexCfg config.IndexConfig
	tok      *tokenizer.Tokenizer
	policy   parser.QueryType
	exec     *executor.Executor
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type entry struct {
	version  string
	src      source.Source
	breaker  *resilience.CircuitBreaker
	idx      *index.Index
	loadedAt time.Time
	lastErr  error
}

// VersionInfo describes the state of one registered version.
type VersionInfo struct {
	Version   string
	Source    string
	Loaded    bool
	Documents int
	Terms     int
	Checksum  uint64
	LoadedAt  time.Time
	LastError error
}

// New returns an empty Registry.
func New(opts Options) (*Registry, error) {
	defaults := config.Default()
	if opts.Search == (config.SearchConfig{}) {
		opts.Search = defaults.Search
	}
	if opts.Index.MaxSourceBytes == 0 && opts.Index.LoadConcurrency == 0 {
		sources := opts.Index.Sources
		opts.Index = defaults.Index
		opts.Index.Sources = sources
	}
	tok, err := tokenizer.New(opts.Search.Stemmer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	policy, err := parser.TypeFor(opts.Search.MatchPolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	return &Registry{
		entries:  make(map[string]*entry),
		search:   opts.Search,
		indexCfg: opts.Index,
		tok:      tok,
		policy:   policy,
		exec:     executor.New(tok),
		metrics:  opts.Metrics,
		logger:   logger.WithComponent("registry"),
	}, nil
}

// Register adds version with src without loading it. Queries against it fail
// with a NotLoadedError until a load succeeds. Re-registering a version
// replaces its source and keeps any loaded index.
func (r *Registry) Register(version string, src source.Source) error {
	if version == "" {
		return fmt.Errorf("%w: empty version name", apperrors.ErrInvalidInput)
	}
	if src == nil {
		return fmt.Errorf("%w: version %q has no source", apperrors.ErrInvalidInput, version)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[version]; ok {
		if e.src.String() != src.String() {
			e.breaker = r.newBreaker(src)
		}
		e.src = src
		return nil
	}
	r.entries[version] = &entry{
		version: version,
		src:     src,
		breaker: r.newBreaker(src),
	}
	r.logger.Info("version registered", "version", version, "source", src.String())
	return nil
}

func (r *Registry) newBreaker(src source.Source) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(src.String(), resilience.CircuitBreakerConfig{
		FailureThreshold: r.indexCfg.Fetch.BreakerThreshold,
		ResetTimeout:     r.indexCfg.Fetch.BreakerCooldown,
	})
}

// Load registers version with src and loads it, replacing any index already
// held for that version. On failure the previous index, if any, stays in
// service.
func (r *Registry) Load(ctx context.Context, version string, src source.Source) (*index.Index, error) {
	if err := r.Register(version, src); err != nil {
		return nil, err
	}
	idx, _, err := r.load(ctx, version, false)
	return idx, err
}

// LoadAll loads every version in sources, at most index.loadConcurrency at
// a time. All loads are attempted; the returned error joins every failure.
func (r *Registry) LoadAll(ctx context.Context, sources map[string]source.Source) error {
	limit := r.indexCfg.LoadConcurrency
	if limit <= 0 {
		limit = 1
	}
	versions := make([]string, 0, len(sources))
	for v := range sources {
		versions = append(versions, v)
	}
	sort.Strings(versions)

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(limit)
	for _, version := range versions {
		src := sources[version]
		g.Go(func() error {
			if _, err := r.Load(ctx, version, src); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("version %q: %w", version, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	r.logger.Info("versions loaded", "requested", len(versions), "failed", len(errs))
	return errors.Join(errs...)
}

// Reload re-fetches version from its registered source. Concurrent reloads
// of one version share a single fetch. It reports whether the served index
// changed; an unchanged checksum skips decoding entirely.
func (r *Registry) Reload(ctx context.Context, version string) (bool, error) {
	r.mu.RLock()
	_, ok := r.entries[version]
	r.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("%w: %q", apperrors.ErrUnknownVersion, version)
	}
	_, changed, err := r.load(ctx, version, true)
	return changed, err
}

type loadResult struct {
	idx     *index.Index
	changed bool
}

func (r *Registry) load(ctx context.Context, version string, skipUnchanged bool) (*index.Index, bool, error) {
	v, err, shared := r.group.Do(version, func() (interface{}, error) {
		return r.doLoad(ctx, version, skipUnchanged)
	})
	if shared {
		r.logger.Debug("load coalesced", "version", version)
	}
	if err != nil {
		return nil, false, err
	}
	res := v.(loadResult)
	return res.idx, res.changed, nil
}

func (r *Registry) doLoad(ctx context.Context, version string, skipUnchanged bool) (loadResult, error) {
	r.mu.RLock()
	e, ok := r.entries[version]
	var src source.Source
	var breaker *resilience.CircuitBreaker
	var current *index.Index
	if ok {
		src, breaker, current = e.src, e.breaker, e.idx
	}
	r.mu.RUnlock()
	if !ok {
		return loadResult{}, fmt.Errorf("%w: %q", apperrors.ErrUnknownVersion, version)
	}

	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "index.load", "")
	span.SetAttr("version", version)
	logger := r.logger.With("version", version, "source", src.String(), "trace_id", span.TraceID)
	defer func() {
		span.End()
		span.Log(ctx, logger)
	}()

	fetchCtx, fetchSpan := tracing.StartChildSpan(ctx, "fetch")
	data, err := source.Fetch(fetchCtx, src, source.FetchOptions{
		MaxBytes: r.indexCfg.MaxSourceBytes,
		Timeout:  r.indexCfg.Fetch.Timeout,
		Retry: resilience.RetryConfig{
			MaxAttempts:  r.indexCfg.Fetch.Attempts,
			InitialDelay: r.indexCfg.Fetch.InitialBackoff,
		},
		Breaker: breaker,
	})
	fetchSpan.SetAttr("bytes", len(data))
	fetchSpan.End()
	if err != nil {
		span.SetAttr("error", apperrors.Kind(err))
		return loadResult{}, r.loadFailed(logger, version, start, err)
	}

	if skipUnchanged && current != nil && current.Checksum() == xxhash.Sum64(data) {
		logger.Debug("index unchanged, reload skipped")
		if r.metrics != nil {
			r.metrics.ReloadsSkipped.Inc()
		}
		span.SetAttr("skipped", true)
		return loadResult{idx: current}, nil
	}

	_, parseSpan := tracing.StartChildSpan(ctx, "parse")
	idx, err := index.Parse(data,
		index.WithSchemaValidation(r.indexCfg.ValidateSchema),
		index.WithLogger(logger),
	)
	parseSpan.End()
	if err != nil {
		span.SetAttr("error", apperrors.Kind(err))
		return loadResult{}, r.loadFailed(logger, version, start, err)
	}

	r.mu.Lock()
	e, ok = r.entries[version]
	if ok {
		e.idx = idx
		e.loadedAt = time.Now()
		e.lastErr = nil
	}
	loaded := r.loadedCountLocked()
	r.mu.Unlock()
	if !ok {
		return loadResult{}, fmt.Errorf("%w: %q removed during load", apperrors.ErrUnknownVersion, version)
	}

	elapsed := time.Since(start)
	if r.metrics != nil {
		r.metrics.IndexLoadsTotal.WithLabelValues(version, apperrors.Kind(nil)).Inc()
		r.metrics.IndexLoadDuration.WithLabelValues(version).Observe(elapsed.Seconds())
		r.metrics.IndexDocuments.WithLabelValues(version).Set(float64(idx.Len()))
		r.metrics.IndexTerms.WithLabelValues(version).Set(float64(idx.TermCount()))
		r.metrics.LoadedVersions.Set(float64(loaded))
	}
	logger.Info("index loaded",
		"dialect", idx.Dialect(),
		"documents", idx.Len(),
		"terms", idx.TermCount(),
		"bytes", len(data),
		"duration", elapsed,
	)
	return loadResult{idx: idx, changed: true}, nil
}

func (r *Registry) loadFailed(logger *slog.Logger, version string, start time.Time, err error) error {
	r.mu.Lock()
	kept := false
	if e, ok := r.entries[version]; ok {
		e.lastErr = err
		kept = e.idx != nil
	}
	r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.IndexLoadsTotal.WithLabelValues(version, apperrors.Kind(err)).Inc()
		r.metrics.IndexLoadDuration.WithLabelValues(version).Observe(time.Since(start).Seconds())
	}
	logger.Error("index load failed",
		"error", err,
		"kind", apperrors.Kind(err),
		"kept_previous", kept,
	)
	return fmt.Errorf("loading version %q: %w", version, err)
}

func (r *Registry) loadedCountLocked() int {
	n := 0
	for _, e := range r.entries {
		if e.idx != nil {
			n++
		}
	}
	return n
}

// Get returns the index currently served for version.
func (r *Registry) Get(version string) (*index.Index, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[version]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownVersion, version)
	}
	if e.idx == nil {
		return nil, &apperrors.NotLoadedError{Version: version}
	}
	return e.idx, nil
}

// Versions returns the registered version names in sorted order.
func (r *Registry) Versions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for v := range r.entries {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Info describes version's load state.
func (r *Registry) Info(version string) (VersionInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[version]
	if !ok {
		return VersionInfo{}, fmt.Errorf("%w: %q", apperrors.ErrUnknownVersion, version)
	}
	info := VersionInfo{
		Version:   version,
		Source:    e.src.String(),
		Loaded:    e.idx != nil,
		LoadedAt:  e.loadedAt,
		LastError: e.lastErr,
	}
	if e.idx != nil {
		info.Documents = e.idx.Len()
		info.Terms = e.idx.TermCount()
		info.Checksum = e.idx.Checksum()
	}
	return info, nil
}

// Remove drops version. Queries already holding its index are unaffected.
func (r *Registry) Remove(version string) bool {
	r.mu.Lock()
	_, ok := r.entries[version]
	delete(r.entries, version)
	loaded := r.loadedCountLocked()
	r.mu.Unlock()
	if !ok {
		return false
	}
	if r.metrics != nil {
		r.metrics.IndexDocuments.DeleteLabelValues(version)
		r.metrics.IndexTerms.DeleteLabelValues(version)
		r.metrics.LoadedVersions.Set(float64(loaded))
	}
	r.logger.Info("version removed", "version", version)
	return true
}

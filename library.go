package docsearch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/registry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/source"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

// VersionInfo describes the load state of one documentation version.
type VersionInfo = registry.VersionInfo

// Library serves one index per documentation version.
type Library struct {
	cfg      *config.Config
	factory  *source.Factory
	registry *registry.Registry
	checker  *health.Checker
	logger   *slog.Logger
}

// New builds a Library from cfg and loads every configured version. A nil
// cfg uses config.Default. When cfg.Metrics.Enabled, collectors are
// registered on reg, or on the default registerer when reg is nil.
//
// New returns a usable Library even when some versions fail to load; the
// error then joins every failure and those versions answer queries with a
// NotLoadedError until a Reload succeeds.
func New(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*Library, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		var err error
		m, err = metrics.New(cfg.Metrics.Namespace, reg)
		if err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}
	r, err := registry.New(registry.Options{
		Search:  cfg.Search,
		Index:   cfg.Index,
		Metrics: m,
	})
	if err != nil {
		return nil, err
	}

	lib := &Library{
		cfg:      cfg,
		factory:  source.NewFactory(cfg.ObjectStore, nil),
		registry: r,
		checker:  health.NewChecker(),
		logger:   logger.WithComponent("library"),
	}

	sources := make(map[string]source.Source, len(cfg.Index.Sources))
	for _, sc := range cfg.Index.Sources {
		src, err := lib.factory.FromConfig(sc)
		if err != nil {
			return nil, err
		}
		sources[sc.Version] = src
		lib.checker.Register(sc.Version, lib.versionCheck(sc.Version))
	}
	if len(sources) == 0 {
		lib.logger.Warn("no index sources configured")
		return lib, nil
	}
	return lib, r.LoadAll(ctx, sources)
}

// AddVersion loads the version sc describes, replacing it if it exists.
func (l *Library) AddVersion(ctx context.Context, sc config.SourceConfig) error {
	src, err := l.factory.FromConfig(sc)
	if err != nil {
		return err
	}
	l.checker.Register(sc.Version, l.versionCheck(sc.Version))
	_, err = l.registry.Load(ctx, sc.Version, src)
	return err
}

// Query runs text against the index served for version.
func (l *Library) Query(ctx context.Context, version, text string, opts ...QueryOption) (*Matches, error) {
	o := queryOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	return l.registry.Query(ctx, version, text, o.registryOptions()...)
}

// Index returns the index currently served for version.
func (l *Library) Index(version string) (*Index, error) {
	return l.registry.Get(version)
}

// Reload re-fetches version and reports whether its index changed.
func (l *Library) Reload(ctx context.Context, version string) (bool, error) {
	return l.registry.Reload(ctx, version)
}

// Versions lists the configured versions in sorted order.
func (l *Library) Versions() []string {
	return l.registry.Versions()
}

// Info reports the load state of version.
func (l *Library) Info(version string) (VersionInfo, error) {
	return l.registry.Info(version)
}

// Remove stops serving version.
func (l *Library) Remove(version string) bool {
	l.checker.Unregister(version)
	return l.registry.Remove(version)
}

// Health reports every version as up, degraded (serving an older index
// after a failed reload) or down (never loaded).
func (l *Library) Health(ctx context.Context) health.Report {
	return l.checker.Run(ctx)
}

func (l *Library) versionCheck(version string) health.Check {
	return func(context.Context) health.ComponentHealth {
		info, err := l.registry.Info(version)
		switch {
		case err != nil:
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		case !info.Loaded:
			msg := "not loaded"
			if info.LastError != nil {
				msg = info.LastError.Error()
			}
			return health.ComponentHealth{Status: health.StatusDown, Message: msg}
		case info.LastError != nil:
			return health.ComponentHealth{
				Status:  health.StatusDegraded,
				Message: "serving previous index: " + info.LastError.Error(),
			}
		default:
			return health.ComponentHealth{
				Status:  health.StatusUp,
				Message: fmt.Sprintf("%d documents from %s", info.Documents, info.Source),
			}
		}
	}
}

// ConfigureLogging installs the process-wide slog logger described by cfg.
// Libraries embedding docsearch usually leave logging to the host program.
func ConfigureLogging(cfg config.LoggingConfig) {
	logger.Setup(cfg.Level, cfg.Format)
}

// Package config loads and validates configuration from YAML files with
// environment-variable overrides. It provides typed structs for query
// behaviour, index sources, object storage, logging and metrics.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// Match policies for multi-term queries.
const (
	MatchAll = "all"
	MatchAny = "any"
)

// Stemmers understood by the tokenizer.
const (
	StemmerPorter  = "porter"
	StemmerEnglish = "english"
	StemmerNone    = "none"
)

// Config is the top-level configuration.
type Config struct {
	Search      SearchConfig      `yaml:"search"`
	Index       IndexConfig       `yaml:"index"`
	ObjectStore ObjectStoreConfig `yaml:"objectStore"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// SearchConfig controls how query text is normalised, merged and ranked.
type SearchConfig struct {
	MatchPolicy     string `yaml:"matchPolicy"`
	PrefixMatch     bool   `yaml:"prefixMatch"`
	SubstringMatch  bool   `yaml:"substringMatch"`
	MinPrefixLength int    `yaml:"minPrefixLength"`
	DefaultLimit    int    `yaml:"defaultLimit"`
	MaxResults      int    `yaml:"maxResults"`
	Stemmer         string `yaml:"stemmer"`
}

// IndexConfig controls how serialized indices are fetched and validated.
type IndexConfig struct {
	ValidateSchema  bool           `yaml:"validateSchema"`
	MaxSourceBytes  int64          `yaml:"maxSourceBytes"`
	LoadConcurrency int            `yaml:"loadConcurrency"`
	Sources         []SourceConfig `yaml:"sources"`
	Fetch           FetchConfig    `yaml:"fetch"`
}

// FetchConfig bounds how hard a source is tried before a load fails.
type FetchConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	Attempts         int           `yaml:"attempts"`
	InitialBackoff   time.Duration `yaml:"initialBackoff"`
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerCooldown  time.Duration `yaml:"breakerCooldown"`
}

// SourceConfig names one documentation version and where its serialized
// index lives. Exactly one of Path, URL or Object must be set.
type SourceConfig struct {
	Version string `yaml:"version"`
	Path    string `yaml:"path"`
	URL     string `yaml:"url"`
	Bucket  string `yaml:"bucket"`
	Object  string `yaml:"object"`
}

// Location returns a human-readable description of where the source lives.
func (s SourceConfig) Location() string {
	switch {
	case s.Path != "":
		return s.Path
	case s.URL != "":
		return s.URL
	case s.Object != "":
		return fmt.Sprintf("s3://%s/%s", s.Bucket, s.Object)
	default:
		return ""
	}
}

// ObjectStoreConfig holds S3-compatible object storage connection settings.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"useSSL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls Prometheus collector registration.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with defaults suitable for a single local index.
func Default() *Config {
	return &Config{
		Search: SearchConfig{
			MatchPolicy:     MatchAll,
			PrefixMatch:     false,
			SubstringMatch:  false,
			MinPrefixLength: 3,
			DefaultLimit:    0,
			MaxResults:      100,
			Stemmer:         StemmerPorter,
		},
		Index: IndexConfig{
			ValidateSchema:  true,
			MaxSourceBytes:  64 << 20,
			LoadConcurrency: 4,
			Fetch: FetchConfig{
				Timeout:          30 * time.Second,
				Attempts:         3,
				InitialBackoff:   200 * time.Millisecond,
				BreakerThreshold: 5,
				BreakerCooldown:  30 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "docsearch",
		},
	}
}

// Validate checks option values and source definitions.
func (c *Config) Validate() error {
	switch c.Search.MatchPolicy {
	case MatchAll, MatchAny:
	default:
		return fmt.Errorf("%w: search.matchPolicy must be %q or %q, got %q",
			apperrors.ErrInvalidInput, MatchAll, MatchAny, c.Search.MatchPolicy)
	}
	switch c.Search.Stemmer {
	case StemmerPorter, StemmerEnglish, StemmerNone:
	default:
		return fmt.Errorf("%w: unknown search.stemmer %q", apperrors.ErrInvalidInput, c.Search.Stemmer)
	}
	if c.Search.MinPrefixLength < 1 {
		return fmt.Errorf("%w: search.minPrefixLength must be positive", apperrors.ErrInvalidInput)
	}
	if c.Search.DefaultLimit < 0 || c.Search.MaxResults < 0 {
		return fmt.Errorf("%w: search limits must not be negative", apperrors.ErrInvalidInput)
	}
	if c.Index.MaxSourceBytes <= 0 {
		return fmt.Errorf("%w: index.maxSourceBytes must be positive", apperrors.ErrInvalidInput)
	}
	f := c.Index.Fetch
	if f.Timeout < 0 || f.Attempts < 0 || f.InitialBackoff < 0 || f.BreakerThreshold < 0 || f.BreakerCooldown < 0 {
		return fmt.Errorf("%w: index.fetch values must not be negative", apperrors.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(c.Index.Sources))
	for i, src := range c.Index.Sources {
		if src.Version == "" {
			return fmt.Errorf("%w: index.sources[%d] has no version", apperrors.ErrInvalidInput, i)
		}
		if _, dup := seen[src.Version]; dup {
			return fmt.Errorf("%w: duplicate index version %q", apperrors.ErrInvalidInput, src.Version)
		}
		seen[src.Version] = struct{}{}
		set := 0
		if src.Path != "" {
			set++
		}
		if src.URL != "" {
			set++
		}
		if src.Object != "" {
			set++
			if src.Bucket == "" {
				return fmt.Errorf("%w: index version %q sets object without bucket", apperrors.ErrInvalidInput, src.Version)
			}
		}
		if set != 1 {
			return fmt.Errorf("%w: index version %q must set exactly one of path, url or object",
				apperrors.ErrInvalidInput, src.Version)
		}
	}
	return nil
}

// applyEnvOverrides reads DS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DS_SEARCH_MATCH_POLICY"); v != "" {
		cfg.Search.MatchPolicy = strings.ToLower(v)
	}
	if v := os.Getenv("DS_SEARCH_PREFIX_MATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Search.PrefixMatch = b
		}
	}
	if v := os.Getenv("DS_SEARCH_SUBSTRING_MATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Search.SubstringMatch = b
		}
	}
	if v := os.Getenv("DS_SEARCH_MIN_PREFIX_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.MinPrefixLength = n
		}
	}
	if v := os.Getenv("DS_SEARCH_DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.DefaultLimit = n
		}
	}
	if v := os.Getenv("DS_SEARCH_STEMMER"); v != "" {
		cfg.Search.Stemmer = strings.ToLower(v)
	}
	if v := os.Getenv("DS_INDEX_VALIDATE_SCHEMA"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Index.ValidateSchema = b
		}
	}
	if v := os.Getenv("DS_INDEX_MAX_SOURCE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Index.MaxSourceBytes = n
		}
	}
	if v := os.Getenv("DS_INDEX_FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Index.Fetch.Timeout = d
		}
	}
	if v := os.Getenv("DS_INDEX_FETCH_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.Fetch.Attempts = n
		}
	}
	if v := os.Getenv("DS_OBJECT_STORE_ENDPOINT"); v != "" {
		cfg.ObjectStore.Endpoint = v
	}
	if v := os.Getenv("DS_OBJECT_STORE_ACCESS_KEY"); v != "" {
		cfg.ObjectStore.AccessKey = v
	}
	if v := os.Getenv("DS_OBJECT_STORE_SECRET_KEY"); v != "" {
		cfg.ObjectStore.SecretKey = v
	}
	if v := os.Getenv("DS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// Package source fetches serialized search indices from local files, HTTP
// origins and S3-compatible object stores. Payloads whose names end in .gz,
// .zst or .lz4 are decompressed transparently.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

// ErrTooLarge is returned when a payload exceeds the configured size cap.
var ErrTooLarge = errors.New("index source exceeds size limit")

// Source yields the raw bytes of one serialized index.
type Source interface {
	// Open returns a reader over the decompressed payload.
	Open(ctx context.Context) (io.ReadCloser, error)
	// String describes where the payload lives, for logs and errors.
	String() string
}

// FetchOptions bounds a Fetch.
type FetchOptions struct {
	// MaxBytes caps the decompressed payload size; zero means unlimited.
	MaxBytes int64
	// Timeout bounds each attempt; zero means no deadline.
	Timeout time.Duration
	// Retry controls how transient failures are retried.
	Retry resilience.RetryConfig
	// Breaker, when set, guards the origin across fetches.
	Breaker *resilience.CircuitBreaker
}

// Fetch reads src fully. Transient failures are retried; a missing payload
// or an oversize one is not. Every failure wraps ErrSourceUnavailable.
func Fetch(ctx context.Context, src Source, opts FetchOptions) ([]byte, error) {
	logger := slog.Default().With("component", "source", "source", src.String())
	start := time.Now()

	var data []byte
	attempt := func(ctx context.Context) error {
		return resilience.WithTimeout(ctx, opts.Timeout, "fetch "+src.String(), func(ctx context.Context) error {
			b, err := readAll(ctx, src, opts.MaxBytes)
			if err != nil {
				if isPermanent(err) {
					return resilience.Permanent(err)
				}
				return err
			}
			data = b
			return nil
		})
	}
	err := resilience.Retry(ctx, "fetch "+src.String(), opts.Retry, func(ctx context.Context) error {
		if opts.Breaker == nil {
			return attempt(ctx)
		}
		return opts.Breaker.Execute(func() error { return attempt(ctx) })
	})
	if err != nil {
		logger.Warn("fetch failed", "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("fetching %s: %w: %w", src, apperrors.ErrSourceUnavailable, err)
	}
	logger.Debug("fetched", "bytes", len(data), "duration", time.Since(start))
	return data, nil
}

func readAll(ctx context.Context, src Source, maxBytes int64) ([]byte, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if maxBytes > 0 {
		r = io.LimitReader(rc, maxBytes+1)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("reading %s: %w", src, err)
	}
	if maxBytes > 0 && int64(buf.Len()) > maxBytes {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrTooLarge, src, maxBytes)
	}
	return buf.Bytes(), nil
}

func isPermanent(err error) bool {
	var nf *fatalError
	return errors.Is(err, ErrTooLarge) || errors.As(err, &nf) || errors.Is(err, errCorrupt)
}

// fatalError reports an origin failure that retrying will not fix, such as
// a missing payload or a refused credential.
type fatalError struct {
	location string
	err      error
}

func (e *fatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.location, e.err)
}

func (e *fatalError) Unwrap() error { return e.err }

var errCorrupt = errors.New("corrupt compressed stream")

// decoded wraps rc with a decompressor chosen by name's extension.
func decoded(name string, rc io.ReadCloser) (io.ReadCloser, error) {
	origin := &originReader{r: rc}
	switch {
	case strings.HasSuffix(name, ".gz"):
		zr, err := gzip.NewReader(origin)
		if err != nil {
			rc.Close()
			return nil, origin.classify("gzip", name, err)
		}
		return &stackedReader{dec: zr, origin: origin, format: "gzip", name: name,
			closers: []func() error{zr.Close, rc.Close}}, nil
	case strings.HasSuffix(name, ".zst"):
		zr, err := zstd.NewReader(origin)
		if err != nil {
			rc.Close()
			return nil, origin.classify("zstd", name, err)
		}
		return &stackedReader{dec: zr, origin: origin, format: "zstd", name: name,
			closers: []func() error{
				func() error { zr.Close(); return nil },
				rc.Close,
			}}, nil
	case strings.HasSuffix(name, ".lz4"):
		return &stackedReader{dec: lz4.NewReader(origin), origin: origin, format: "lz4", name: name,
			closers: []func() error{rc.Close}}, nil
	default:
		return rc, nil
	}
}

// originReader remembers whether the stream under a decoder failed, so a
// decoder error can be told apart from a transport error.
type originReader struct {
	r      io.Reader
	failed atomic.Bool
}

func (o *originReader) Read(p []byte) (int, error) {
	n, err := o.r.Read(p)
	if err != nil && err != io.EOF {
		o.failed.Store(true)
	}
	return n, err
}

// classify tags a decoder error as corrupt unless the origin itself failed.
// A payload that ends cleanly but mid-frame is corrupt too.
func (o *originReader) classify(format, name string, err error) error {
	if o.failed.Load() {
		return err
	}
	return fmt.Errorf("%w: %s %s: %w", errCorrupt, format, name, err)
}

// stackedReader closes a decoder and the stream beneath it.
type stackedReader struct {
	dec     io.Reader
	origin  *originReader
	format  string
	name    string
	closers []func() error
}

func (s *stackedReader) Read(p []byte) (int, error) {
	n, err := s.dec.Read(p)
	if err != nil && err != io.EOF {
		err = s.origin.classify(s.format, s.name, err)
	}
	return n, err
}

func (s *stackedReader) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

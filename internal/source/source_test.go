package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

const payload = `Search.setIndex({"titles": ["Home"], "docnames": ["index"], "terms": {"home": 0}})`

var quick = FetchOptions{
	Retry: resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond},
}

func gzipped(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func zstded(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func lz4ed(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	_, err := zw.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestFileSource(t *testing.T) {
	ctx := context.Background()
	cases := map[string][]byte{
		"searchindex.js":     []byte(payload),
		"searchindex.js.gz":  gzipped(t, payload),
		"searchindex.js.zst": zstded(t, payload),
		"searchindex.js.lz4": lz4ed(t, payload),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			src := NewFile(writeFile(t, name, data))
			got, err := Fetch(ctx, src, quick)
			require.NoError(t, err)
			assert.Equal(t, payload, string(got))
			assert.True(t, strings.HasSuffix(src.String(), name))
		})
	}
}

func TestFileSourceMissing(t *testing.T) {
	src := NewFile(filepath.Join(t.TempDir(), "absent.js"))
	_, err := Fetch(context.Background(), src, quick)
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, "source_unavailable", apperrors.Kind(err))
}

func TestCorruptCompressedFile(t *testing.T) {
	src := NewFile(writeFile(t, "searchindex.js.gz", []byte("not gzip at all")))
	_, err := Fetch(context.Background(), src, quick)
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
}

// countingSource decodes whatever body returns for the nth open.
type countingSource struct {
	name  string
	body  func(n int32) io.Reader
	opens atomic.Int32
}

func (c *countingSource) Open(context.Context) (io.ReadCloser, error) {
	n := c.opens.Add(1)
	return decoded(c.name, io.NopCloser(c.body(n)))
}

func (c *countingSource) String() string { return c.name }

func fixed(data []byte) func(int32) io.Reader {
	return func(int32) io.Reader { return bytes.NewReader(data) }
}

func TestCorruptStreamsAreNotRetried(t *testing.T) {
	gz := gzipped(t, payload)
	badCRC := append([]byte(nil), gz...)
	badCRC[len(badCRC)-8] ^= 0xff
	zs := zstded(t, payload)

	cases := map[string]*countingSource{
		"lz4 garbage":      {name: "idx.js.lz4", body: fixed([]byte("definitely not an lz4 frame"))},
		"truncated gzip":   {name: "idx.js.gz", body: fixed(gz[:len(gz)/2])},
		"gzip checksum":    {name: "idx.js.gz", body: fixed(badCRC)},
		"truncated zstd":   {name: "idx.js.zst", body: fixed(zs[:len(zs)/2])},
		"gzip header only": {name: "idx.js.gz", body: fixed([]byte("not gzip at all"))},
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Fetch(context.Background(), src, quick)
			require.Error(t, err)
			assert.ErrorIs(t, err, errCorrupt)
			assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
			assert.Equal(t, int32(1), src.opens.Load())
		})
	}
}

func TestTransportErrorUnderDecoderIsRetried(t *testing.T) {
	gz := gzipped(t, payload)
	src := &countingSource{name: "idx.js.gz", body: func(n int32) io.Reader {
		if n < 3 {
			return io.MultiReader(bytes.NewReader(gz[:len(gz)/2]), iotest.ErrReader(errors.New("connection reset")))
		}
		return bytes.NewReader(gz)
	}}
	got, err := Fetch(context.Background(), src, quick)
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
	assert.Equal(t, int32(3), src.opens.Load())
}

func TestMaxBytes(t *testing.T) {
	opts := quick
	opts.MaxBytes = 10
	_, err := Fetch(context.Background(), NewStatic("a.js", []byte(payload)), opts)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)

	opts.MaxBytes = int64(len(payload))
	got, err := Fetch(context.Background(), NewStatic("a.js", []byte(payload)), opts)
	require.NoError(t, err)
	assert.Len(t, got, len(payload))
}

func TestMaxBytesAppliesAfterDecompression(t *testing.T) {
	big := strings.Repeat("a", 4096)
	opts := quick
	opts.MaxBytes = 1024
	_, err := Fetch(context.Background(), NewStatic("big.js.gz", gzipped(t, big)), opts)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestStaticSource(t *testing.T) {
	src := NewStatic("bundle.js.zst", zstded(t, payload))
	got, err := Fetch(context.Background(), src, quick)
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
	assert.Equal(t, "static:bundle.js.zst", src.String())
	assert.Equal(t, "static", NewStatic("", nil).String())
}

func TestHTTPSource(t *testing.T) {
	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.UserAgent())
		switch r.URL.Path {
		case "/latest/searchindex.js":
			w.Write([]byte(payload))
		case "/latest/searchindex.js.gz":
			w.Write(gzipped(t, payload))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	for _, p := range []string{"/latest/searchindex.js", "/latest/searchindex.js.gz"} {
		got, err := Fetch(context.Background(), NewHTTP(srv.URL+p+"?v=1", srv.Client()), quick)
		require.NoError(t, err, p)
		assert.Equal(t, payload, string(got))
	}
	assert.Equal(t, userAgent, gotUA.Load())
}

func TestHTTPSourceNotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), NewHTTP(srv.URL+"/missing.js", nil), quick)
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusNotFound, serr.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestHTTPSourceRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	got, err := Fetch(context.Background(), NewHTTP(srv.URL+"/searchindex.js", nil), quick)
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetchBreakerFailsFast(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	opts := quick
	opts.Retry.MaxAttempts = 1
	opts.Breaker = resilience.NewCircuitBreaker("origin", resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Hour,
	})
	src := NewHTTP(srv.URL+"/searchindex.js", nil)
	for i := 0; i < 2; i++ {
		_, err := Fetch(context.Background(), src, opts)
		assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
	}
	_, err := Fetch(context.Background(), src, opts)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	opts := quick
	opts.Retry.MaxAttempts = 1
	opts.Timeout = 20 * time.Millisecond
	_, err := Fetch(context.Background(), NewHTTP(srv.URL+"/slow.js", nil), opts)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
}

func fakeS3(t *testing.T, objects map[string][]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
				`<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message>` +
				`<Resource>` + r.URL.Path + `</Resource><RequestId>1</RequestId></Error>`))
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		if r.Method == http.MethodHead {
			return
		}
		w.Write(data)
	}))
}

func TestObjectSource(t *testing.T) {
	srv := fakeS3(t, map[string][]byte{
		"/docs/v1/searchindex.js.zst": zstded(t, payload),
	})
	defer srv.Close()

	client, err := minio.New(strings.TrimPrefix(srv.URL, "http://"), &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
		Region: "us-east-1",
	})
	require.NoError(t, err)

	src := NewObject(client, "docs", "v1/searchindex.js.zst")
	assert.Equal(t, "s3://docs/v1/searchindex.js.zst", src.String())
	got, err := Fetch(context.Background(), src, quick)
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))

	_, err = Fetch(context.Background(), NewObject(client, "docs", "v2/searchindex.js"), quick)
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
}

func TestFactory(t *testing.T) {
	f := NewFactory(config.ObjectStoreConfig{Endpoint: "localhost:9000", Region: "us-east-1"}, nil)

	src, err := f.FromConfig(config.SourceConfig{Version: "v", Path: "/tmp/searchindex.js"})
	require.NoError(t, err)
	assert.IsType(t, &File{}, src)

	src, err = f.FromConfig(config.SourceConfig{Version: "v", URL: "https://docs.example.org/searchindex.js"})
	require.NoError(t, err)
	assert.IsType(t, &HTTP{}, src)

	src, err = f.FromConfig(config.SourceConfig{Version: "v", Bucket: "docs", Object: "searchindex.js"})
	require.NoError(t, err)
	assert.Equal(t, "s3://docs/searchindex.js", src.String())

	_, err = f.FromConfig(config.SourceConfig{Version: "v"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = FromConfig(config.SourceConfig{Version: "v", Bucket: "docs", Object: "x"}, config.ObjectStoreConfig{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Fetch(ctx, NewStatic("a.js", []byte(payload)), quick)
	assert.True(t, errors.Is(err, context.Canceled))
}

package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const userAgent = "docsearch-index-fetcher/1.0"

var defaultHTTPClient = &http.Client{Timeout: 60 * time.Second}

// HTTP fetches an index with a GET request.
type HTTP struct {
	URL    string
	Client *http.Client
	Header http.Header
}

// NewHTTP returns an HTTP source using client, or a shared default client
// when nil.
func NewHTTP(rawURL string, client *http.Client) *HTTP {
	if client == nil {
		client = defaultHTTPClient
	}
	return &HTTP{URL: rawURL, Client: client}
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

func (h *HTTP) Open(ctx context.Context) (io.ReadCloser, error) {
	u, err := url.Parse(h.URL)
	if err != nil {
		return nil, &fatalError{location: h.URL, err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", h.URL, err)
	}
	for k, vs := range h.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", h.URL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		serr := &StatusError{URL: h.URL, StatusCode: resp.StatusCode}
		if permanentStatus(resp.StatusCode) {
			return nil, &fatalError{location: h.URL, err: serr}
		}
		return nil, serr
	}
	return decoded(u.Path, resp.Body)
}

func (h *HTTP) String() string {
	return h.URL
}

// permanentStatus reports client errors that a retry will not fix.
func permanentStatus(code int) bool {
	return code >= 400 && code < 500 && code != http.StatusRequestTimeout && code != http.StatusTooManyRequests
}

package source

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/minio/minio-go/v7"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// Factory builds sources from configuration, sharing one HTTP client and
// one object-store client between them.
type Factory struct {
	HTTPClient  *http.Client
	objectStore config.ObjectStoreConfig

	mu     sync.Mutex
	client *minio.Client
}

func NewFactory(objectStore config.ObjectStoreConfig, httpClient *http.Client) *Factory {
	return &Factory{HTTPClient: httpClient, objectStore: objectStore}
}

// FromConfig returns the Source sc describes.
func (f *Factory) FromConfig(sc config.SourceConfig) (Source, error) {
	switch {
	case sc.Path != "":
		return NewFile(sc.Path), nil
	case sc.URL != "":
		return NewHTTP(sc.URL, f.HTTPClient), nil
	case sc.Object != "":
		client, err := f.objectClient()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
		}
		return NewObject(client, sc.Bucket, sc.Object), nil
	default:
		return nil, fmt.Errorf("%w: index version %q has no location", apperrors.ErrInvalidInput, sc.Version)
	}
}

func (f *Factory) objectClient() (*minio.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client != nil {
		return f.client, nil
	}
	client, err := NewObjectClient(f.objectStore)
	if err != nil {
		return nil, err
	}
	f.client = client
	return client, nil
}

// FromConfig is a convenience wrapper around a throwaway Factory.
func FromConfig(sc config.SourceConfig, objectStore config.ObjectStoreConfig) (Source, error) {
	return NewFactory(objectStore, nil).FromConfig(sc)
}

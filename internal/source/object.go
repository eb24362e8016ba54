package source

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

// Object reads an index from an S3-compatible bucket.
type Object struct {
	client *minio.Client
	Bucket string
	Key    string
}

func NewObject(client *minio.Client, bucket, key string) *Object {
	return &Object{client: client, Bucket: bucket, Key: key}
}

// NewObjectClient connects to the object store described by cfg. No request
// is made until a source is opened.
func NewObjectClient(cfg config.ObjectStoreConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("object store endpoint is not configured")
	}
	opts := &minio.Options{
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		opts.Creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}
	client, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("creating object store client for %s: %w", cfg.Endpoint, err)
	}
	return client, nil
}

func (o *Object) Open(ctx context.Context) (io.ReadCloser, error) {
	obj, err := o.client.GetObject(ctx, o.Bucket, o.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, o.classify(err)
	}
	// GetObject is lazy; Stat issues the request so missing keys fail here.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, o.classify(err)
	}
	return decoded(o.Key, obj)
}

func (o *Object) String() string {
	return fmt.Sprintf("s3://%s/%s", o.Bucket, o.Key)
}

func (o *Object) classify(err error) error {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.Code == "NotFound":
		return &fatalError{location: o.String(), err: err}
	case resp.StatusCode == http.StatusForbidden || resp.Code == "AccessDenied":
		return &fatalError{location: o.String(), err: err}
	default:
		return fmt.Errorf("reading %s: %w", o, err)
	}
}

package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// File reads an index from the local filesystem.
type File struct {
	Path string
}

func NewFile(path string) *File {
	return &File{Path: path}
}

func (f *File) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &fatalError{location: f.Path, err: err}
		}
		return nil, fmt.Errorf("opening %s: %w", f.Path, err)
	}
	return decoded(f.Path, fh)
}

func (f *File) String() string {
	return f.Path
}

// Static serves an in-memory payload. Name selects decompression the same
// way a file name would.
type Static struct {
	Name string
	Data []byte
}

func NewStatic(name string, data []byte) *Static {
	return &Static{Name: name, Data: data}
}

func (s *Static) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return decoded(s.Name, io.NopCloser(bytes.NewReader(s.Data)))
}

func (s *Static) String() string {
	if s.Name == "" {
		return "static"
	}
	return "static:" + s.Name
}

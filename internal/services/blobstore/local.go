package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"betaportal/internal/observability"
	contextutils "betaportal/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// LocalStore writes blobs below a directory that the HTTP router serves statically
type LocalStore struct {
	dir     string
	baseURL string
	logger  *observability.Logger
}

// NewLocalStore creates dir if needed. baseURL is the public prefix the directory is served under.
func NewLocalStore(dir, baseURL string, logger *observability.Logger) (*LocalStore, error) {
	if dir == "" {
		return nil, contextutils.ErrorWithContextf("local upload directory is not configured")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to create upload directory %s", dir)
	}
	if baseURL == "" {
		baseURL = "/uploads"
	}
	return &LocalStore{dir: dir, baseURL: baseURL, logger: logger}, nil
}

// Dir is the root directory blobs are written to
func (s *LocalStore) Dir() string {
	return s.dir
}

// Put writes r to dir/key. The file is written to a temporary name first and renamed into place.
func (s *LocalStore) Put(ctx context.Context, key, contentType string, r io.Reader) (result0 string, err error) {
	_, span := observability.TraceAttachmentFunction(ctx, "local_put",
		attribute.String("blob.key", key),
		attribute.String("blob.content_type", contentType),
	)
	defer observability.FinishSpan(span, &err)

	if !validKey(key) {
		return "", contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid blob key %q", key)
	}

	target := filepath.Join(s.dir, filepath.FromSlash(key))
	if err = os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", contextutils.WrapError(err, "failed to create blob directory")
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", contextutils.WrapError(err, "failed to create blob file")
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	written, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", contextutils.WrapError(err, "failed to write blob")
	}
	if err = os.Rename(tmp.Name(), target); err != nil {
		return "", contextutils.WrapError(err, "failed to move blob into place")
	}

	span.SetAttributes(attribute.Int64("blob.size", written))
	return joinURL(s.baseURL, key), nil
}

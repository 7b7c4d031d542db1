// Package blobstore stores uploaded attachment bytes and hands back the URL
// they are served from.
package blobstore

import (
	"context"
	"io"
	"strings"

	"betaportal/internal/config"
	"betaportal/internal/observability"
	contextutils "betaportal/internal/utils"
)

// Store persists a blob under key and returns its public URL
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (url string, err error)
}

// Backends
const (
	BackendLocal = "local"
	BackendHTTP  = "http"
)

// New builds the store selected by cfg.Backend
func New(cfg config.UploadsConfig, logger *observability.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendLocal:
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL, logger)
	case BackendHTTP:
		return NewHTTPStore(cfg.HTTPEndpoint, cfg.HTTPToken, cfg.PublicBaseURL, logger)
	default:
		return nil, contextutils.ErrorWithContextf("unsupported upload backend: %s", cfg.Backend)
	}
}

// joinURL appends key to base with exactly one slash between them
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

// validKey rejects keys that could escape the store root
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}

package blobstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"betaportal/internal/config"
	"betaportal/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
}

func TestValidKey(t *testing.T) {
	assert.True(t, validKey("beta-uploads/123-abc-shot.png"))
	assert.False(t, validKey(""))
	assert.False(t, validKey("/abs/path"))
	assert.False(t, validKey("a/../b"))
	assert.False(t, validKey("a//b"))
	assert.False(t, validKey(`a\b`))
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "/uploads/a/b.png", joinURL("/uploads/", "/a/b.png"))
	assert.Equal(t, "https://cdn.example.com/x", joinURL("https://cdn.example.com", "x"))
}

func TestLocalStore_Put(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/uploads", testLogger())
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "beta-uploads/1-abcd1234-shot.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/beta-uploads/1-abcd1234-shot.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "beta-uploads", "1-abcd1234-shot.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "", testLogger())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../escape.txt", "text/plain", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestNewLocalStore_RequiresDir(t *testing.T) {
	_, err := NewLocalStore("", "/uploads", testLogger())
	assert.Error(t, err)
}

func TestHTTPStore_Put(t *testing.T) {
	var gotPath, gotAuth, gotType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	store, err := NewHTTPStoreWithClient(server.URL, "secret", "https://cdn.example.com", server.Client(), testLogger())
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "beta-uploads/doc.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/beta-uploads/doc.pdf", url)
	assert.Equal(t, "/beta-uploads/doc.pdf", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, "%PDF-1.4", gotBody)
}

func TestHTTPStore_PutFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer server.Close()

	store, err := NewHTTPStoreWithClient(server.URL, "", "", server.Client(), testLogger())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "k/file.png", "image/png", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestNew_SelectsBackend(t *testing.T) {
	s, err := New(config.UploadsConfig{Backend: "local", LocalDir: t.TempDir()}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, s)

	s, err = New(config.UploadsConfig{Backend: "http", HTTPEndpoint: "http://objects.local"}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &HTTPStore{}, s)

	_, err = New(config.UploadsConfig{Backend: "ftp"}, testLogger())
	assert.Error(t, err)
}

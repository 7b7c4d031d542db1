package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"betaportal/internal/config"
	"betaportal/internal/observability"
	contextutils "betaportal/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is a PNG signature followed by the start of an IHDR chunk
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type memoryStore struct {
	keys        []string
	contentType string
	body        []byte
	err         error
}

func (m *memoryStore) Put(_ context.Context, key, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if m.err != nil {
		return "", m.err
	}
	m.keys = append(m.keys, key)
	m.contentType = contentType
	m.body = data
	return "https://files.example.test/" + key, nil
}

func newTestAttachmentService(store *memoryStore, maxBytes int64) *AttachmentService {
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	return NewAttachmentService(config.UploadsConfig{MaxBytes: maxBytes}, store, logger, nil)
}

func TestAttachmentService_Defaults(t *testing.T) {
	svc := newTestAttachmentService(&memoryStore{}, 0)
	assert.Equal(t, config.DefaultMaxUploadBytes, svc.MaxBytes())
	assert.Equal(t, config.DefaultUploadKeyPrefix, svc.cfg.KeyPrefix)
	assert.Equal(t, config.DefaultAllowedUploadTypes, svc.cfg.AllowedTypes)
}

func TestAttachmentService_CheckType(t *testing.T) {
	svc := newTestAttachmentService(&memoryStore{}, 0)

	got, err := svc.CheckType("image/PNG")
	require.NoError(t, err)
	assert.Equal(t, "image/png", got)

	got, err = svc.CheckType("application/pdf; charset=binary")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", got)

	for _, bad := range []string{"", "text/html", "application/x-msdownload", "not a type"} {
		_, err := svc.CheckType(bad)
		require.Error(t, err, bad)
		assert.Equal(t, contextutils.ErrorCodeUnsupportedMediaType, contextutils.GetErrorCode(err))
		assert.Contains(t, err.Error(), "File type not accepted. Allowed: image/png")
	}
}

func TestAttachmentService_Upload(t *testing.T) {
	store := &memoryStore{}
	svc := newTestAttachmentService(store, 0)
	content := append(append([]byte(nil), pngHeader...), bytes.Repeat([]byte{0}, 200)...)

	file, err := svc.Upload(context.Background(), "../Screen Shot 1.png", "image/png", int64(len(content)), bytes.NewReader(content))
	require.NoError(t, err)

	require.Len(t, store.keys, 1)
	key := store.keys[0]
	assert.True(t, strings.HasPrefix(key, "beta-uploads/"), key)
	assert.True(t, strings.HasSuffix(key, "-Screen-Shot-1.png"), key)
	assert.NotContains(t, key, "..")
	assert.Equal(t, "image/png", store.contentType)
	assert.Equal(t, content, store.body)

	assert.Equal(t, "https://files.example.test/"+key, file.URL)
	assert.Equal(t, "../Screen Shot 1.png", file.FileName)
	assert.Equal(t, int64(len(content)), file.FileSize)
	assert.Equal(t, "image/png", file.MimeType)
}

func TestAttachmentService_Upload_Rejections(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		svc := newTestAttachmentService(&memoryStore{}, 0)
		_, err := svc.Upload(context.Background(), "a.png", "image/png", 0, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "No file provided")

		_, err = svc.Upload(context.Background(), "a.png", "image/png", 0, bytes.NewReader(nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "No file provided")
	})

	t.Run("declared size over limit", func(t *testing.T) {
		store := &memoryStore{}
		svc := newTestAttachmentService(store, 0)
		_, err := svc.Upload(context.Background(), "a.png", "image/png", config.DefaultMaxUploadBytes+1, bytes.NewReader(pngHeader))
		require.Error(t, err)
		assert.Equal(t, contextutils.ErrorCodePayloadTooLarge, contextutils.GetErrorCode(err))
		assert.Contains(t, err.Error(), "File too large. Maximum size is 10MB.")
		assert.Empty(t, store.keys)
	})

	t.Run("stream over limit", func(t *testing.T) {
		store := &memoryStore{}
		svc := newTestAttachmentService(store, 1024)
		content := append(append([]byte(nil), pngHeader...), bytes.Repeat([]byte{0}, 4096)...)
		// the client under-reports the size
		_, err := svc.Upload(context.Background(), "a.png", "image/png", 10, bytes.NewReader(content))
		require.Error(t, err)
		assert.Equal(t, contextutils.ErrorCodePayloadTooLarge, contextutils.GetErrorCode(err))
		assert.Empty(t, store.keys)
	})

	t.Run("content does not match declared type", func(t *testing.T) {
		store := &memoryStore{}
		svc := newTestAttachmentService(store, 0)
		html := []byte("<html><body><script>alert(1)</script></body></html>")
		_, err := svc.Upload(context.Background(), "a.png", "image/png", int64(len(html)), bytes.NewReader(html))
		require.Error(t, err)
		assert.Equal(t, contextutils.ErrorCodeUnsupportedMediaType, contextutils.GetErrorCode(err))
		assert.Empty(t, store.keys)
	})

	t.Run("store failure", func(t *testing.T) {
		store := &memoryStore{err: errors.New("bucket unavailable")}
		svc := newTestAttachmentService(store, 0)
		_, err := svc.Upload(context.Background(), "a.png", "image/png", int64(len(pngHeader)), bytes.NewReader(pngHeader))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to store upload")
	})
}

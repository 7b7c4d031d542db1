package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"betaportal/internal/config"
	"betaportal/internal/observability"
	contextutils "betaportal/internal/utils"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// HTTPStore uploads blobs with PUT {endpoint}/{key} to an S3-style object store
// that accepts bearer tokens.
type HTTPStore struct {
	endpoint   string
	token      string
	publicURL  string
	httpClient *http.Client
	logger     *observability.Logger
}

// NewHTTPStore creates an HTTPStore. publicURL defaults to endpoint.
func NewHTTPStore(endpoint, token, publicURL string, logger *observability.Logger) (*HTTPStore, error) {
	return NewHTTPStoreWithClient(endpoint, token, publicURL, &http.Client{
		Timeout: config.BlobStoreRequestTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
		),
	}, logger)
}

// NewHTTPStoreWithClient creates an HTTPStore with a custom client (for testing)
func NewHTTPStoreWithClient(endpoint, token, publicURL string, client *http.Client, logger *observability.Logger) (*HTTPStore, error) {
	if endpoint == "" {
		return nil, contextutils.ErrorWithContextf("upload http endpoint is not configured")
	}
	if publicURL == "" || publicURL == "/uploads" {
		publicURL = endpoint
	}
	return &HTTPStore{endpoint: endpoint, token: token, publicURL: publicURL, httpClient: client, logger: logger}, nil
}

// Put uploads r and returns the object's public URL
func (s *HTTPStore) Put(ctx context.Context, key, contentType string, r io.Reader) (result0 string, err error) {
	ctx, span := observability.TraceAttachmentFunction(ctx, "http_put",
		attribute.String("blob.key", key),
		attribute.String("blob.content_type", contentType),
	)
	defer observability.FinishSpan(span, &err)

	if !validKey(key) {
		return "", contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid blob key %q", key)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, joinURL(s.endpoint, key), r)
	if err != nil {
		return "", contextutils.WrapError(err, "failed to create upload request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	req.Header.Set("User-Agent", "betaportal/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "blob upload failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if s.logger != nil {
			s.logger.Error(ctx, "Blob store rejected upload", fmt.Errorf("status %d", resp.StatusCode), map[string]interface{}{
				"key":    key,
				"status": resp.StatusCode,
				"body":   string(body),
			})
		}
		return "", contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "blob store returned status %d", resp.StatusCode)
	}

	return joinURL(s.publicURL, key), nil
}

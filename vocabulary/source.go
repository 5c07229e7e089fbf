package vocabulary

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/c360studio/semstreams/pkg/retry"
)

// maxDocumentSize bounds a single vocabulary document.
const maxDocumentSize = 16 * 1024 * 1024

// Source fetches the nested JSON document for a top-level concept URI.
type Source interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// HTTPSource reads vocabularies from a term repository that serves
// GET <base>?uri=<concept uri>.
type HTTPSource struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig retry.Config
	logger      *slog.Logger
}

// SourceOption configures an HTTPSource.
type SourceOption func(*HTTPSource)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) SourceOption {
	return func(s *HTTPSource) {
		s.httpClient = c
	}
}

// WithRetryConfig sets the retry policy for fetches.
func WithRetryConfig(cfg retry.Config) SourceOption {
	return func(s *HTTPSource) {
		s.retryConfig = cfg
	}
}

// WithSourceLogger sets the logger.
func WithSourceLogger(logger *slog.Logger) SourceOption {
	return func(s *HTTPSource) {
		s.logger = logger
	}
}

// NewHTTPSource creates a source backed by a term repository.
func NewHTTPSource(baseURL string, opts ...SourceOption) *HTTPSource {
	s := &HTTPSource{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		retryConfig: retry.DefaultConfig(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch downloads a vocabulary document, retrying transport errors and 5xx
// responses.
func (s *HTTPSource) Fetch(ctx context.Context, uri string) ([]byte, error) {
	target, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse repository url: %w", err)
	}
	q := target.Query()
	q.Set("uri", uri)
	target.RawQuery = q.Encode()

	return retry.DoWithResult(ctx, s.retryConfig, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			return nil, retry.NonRetryable(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			s.logger.Debug("Vocabulary fetch failed", slog.String("uri", uri), slog.String("error", err.Error()))
			return nil, fmt.Errorf("fetch %s: %w", uri, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", uri, err)
		}
		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("term repository returned %d for %s", resp.StatusCode, uri)
		default:
			return nil, retry.NonRetryable(fmt.Errorf("term repository returned %d for %s: %s", resp.StatusCode, uri, strings.TrimSpace(string(body))))
		}
	})
}

// DirSource reads vocabularies from a directory of JSON files named after the
// last segment of each concept URI (material.json, materialsample.json,
// anysampledfeature.json).
type DirSource struct {
	Dir string
}

// Fetch reads the file for uri.
func (s DirSource) Fetch(_ context.Context, uri string) ([]byte, error) {
	name := uri[strings.LastIndex(uri, "/")+1:] + ".json"
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", uri, err)
	}
	return data, nil
}

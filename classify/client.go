// Package classify is a client for the iSamples model server, which predicts
// material, sample type, and context categories for records whose source data
// does not name them.
//
// Responses are memoized per (URL, request body) in a bounded LRU so that
// reprocessing a record does not repeat its predictions. A 409 response means
// the model server decided the record is not a sample; it is returned as a
// core.ExclusionError so callers can skip the record.
package classify

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/c360studio/semstreams/pkg/cache"

	"github.com/c360studio/isamples/core"
)

const (
	// DefaultBaseURL is the model server address when none is configured.
	DefaultBaseURL = "http://localhost:9000/"
	// DefaultCacheSize bounds the response cache.
	DefaultCacheSize = 10000
	// UserAgent identifies requests to the model server.
	UserAgent = "iSamples Integration Bot 2000"

	// maxResponseSize limits a model server response body.
	maxResponseSize = 1024 * 1024
)

// ModelType selects which prediction a request asks for.
type ModelType string

// Model types understood by the model server.
const (
	ModelMaterial ModelType = "material"
	ModelSample   ModelType = "sample"
	ModelContext  ModelType = "context"
)

// Model server endpoints, relative to the base URL.
const (
	EndpointSESAR       = "sesar"
	EndpointOpenContext = "opencontext"
	EndpointSmithsonian = "smithsonian"
)

// PredictionResult is one predicted label and its probability.
type PredictionResult struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

type recordRequest struct {
	SourceRecord json.RawMessage `json:"source_record"`
	Type         ModelType       `json:"type"`
}

type inputRequest struct {
	Input []string  `json:"input"`
	Type  ModelType `json:"type"`
}

// Client talks to the model server. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cacheSize  int
	cache      cache.Cache[[]byte]
	metrics    *Metrics
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithCacheSize sets the maximum number of cached responses.
func WithCacheSize(size int) ClientOption {
	return func(client *Client) {
		client.cacheSize = size
	}
}

// WithMetrics records request outcomes.
func WithMetrics(m *Metrics) ClientOption {
	return func(client *Client) {
		client.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates a model server client. An empty baseURL uses
// DefaultBaseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		cacheSize:  DefaultCacheSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cacheSize <= 0 {
		c.cacheSize = DefaultCacheSize
	}

	lru, err := cache.NewLRU[[]byte](c.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create response cache: %w", err)
	}
	c.cache = lru
	return c, nil
}

// Close releases the response cache.
func (c *Client) Close() error {
	return c.cache.Close()
}

// CacheSize reports how many responses are cached.
func (c *Client) CacheSize() int {
	return c.cache.Size()
}

// SESARMaterial predicts material categories for a SESAR record. Values are
// material vocabulary labels.
func (c *Client) SESARMaterial(ctx context.Context, record json.RawMessage) ([]PredictionResult, error) {
	return c.predict(ctx, EndpointSESAR, recordRequest{SourceRecord: record, Type: ModelMaterial}, nil)
}

// OpenContextMaterial predicts material categories for an OpenContext record.
// Values are vocabulary URIs where the label is known.
func (c *Client) OpenContextMaterial(ctx context.Context, record json.RawMessage) ([]PredictionResult, error) {
	return c.predict(ctx, EndpointOpenContext, recordRequest{SourceRecord: record, Type: ModelMaterial}, MaterialURI)
}

// OpenContextSample predicts sample object types for an OpenContext record.
func (c *Client) OpenContextSample(ctx context.Context, record json.RawMessage) ([]PredictionResult, error) {
	return c.predict(ctx, EndpointOpenContext, recordRequest{SourceRecord: record, Type: ModelSample}, MaterialSampleURI)
}

// SmithsonianSampledFeature predicts the context of a Smithsonian record from
// a list of descriptive strings. The model returns a single label, which is
// mapped to a URI where known and returned as is otherwise.
func (c *Client) SmithsonianSampledFeature(ctx context.Context, input []string) (string, error) {
	if input == nil {
		input = []string{}
	}
	body, err := c.post(ctx, EndpointSmithsonian, inputRequest{Input: input, Type: ModelContext})
	if err != nil {
		return "", err
	}
	var label string
	if err := json.Unmarshal(body, &label); err != nil {
		return "", NewFatalError(fmt.Errorf("decode smithsonian prediction: %w", err))
	}
	// Context labels are mostly vocabulary labels, resolved by the caller;
	// only kingdom names need a URI.
	if uri, ok := SampledFeatureURI(label); ok {
		return uri, nil
	}
	return label, nil
}

func (c *Client) predict(ctx context.Context, endpoint string, payload any, mapper func(string) (string, bool)) ([]PredictionResult, error) {
	body, err := c.post(ctx, endpoint, payload)
	if err != nil {
		return nil, err
	}
	var results []PredictionResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, NewFatalError(fmt.Errorf("decode %s prediction: %w", endpoint, err))
	}
	if mapper != nil {
		for i := range results {
			results[i].Value = c.mapLabel(endpoint, results[i].Value, mapper)
		}
	}
	return results, nil
}

func (c *Client) mapLabel(endpoint, label string, mapper func(string) (string, bool)) string {
	if uri, ok := mapper(label); ok {
		return uri
	}
	c.logger.Warn("Model label has no vocabulary mapping",
		slog.String("endpoint", endpoint),
		slog.String("label", label))
	return label
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("marshal %s request: %w", endpoint, err))
	}
	url := c.baseURL + endpoint
	key := cacheKey(url, data)

	if body, ok := c.cache.Get(key); ok {
		c.metrics.recordCacheHit(endpoint)
		return body, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.recordRequest(endpoint, "transport_error")
		return nil, NewTransientError(fmt.Errorf("model server %s: %w", endpoint, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.metrics.recordRequest(endpoint, "transport_error")
		return nil, NewTransientError(fmt.Errorf("read model server response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		c.metrics.recordRequest(endpoint, "ok")
		if _, err := c.cache.Set(key, body); err != nil {
			c.logger.Debug("Failed to cache model server response", slog.String("error", err.Error()))
		}
		return body, nil
	case resp.StatusCode == http.StatusConflict:
		c.metrics.recordRequest(endpoint, "excluded")
		return nil, core.WrapExclusion("model server", errors.New(strings.TrimSpace(string(body))))
	case resp.StatusCode >= 500:
		c.metrics.recordRequest(endpoint, "server_error")
		return nil, NewTransientError(fmt.Errorf("model server %s returned %d: %s", endpoint, resp.StatusCode, body))
	default:
		c.metrics.recordRequest(endpoint, "client_error")
		return nil, NewFatalError(fmt.Errorf("model server %s returned %d: %s", endpoint, resp.StatusCode, body))
	}
}

func cacheKey(url string, body []byte) string {
	sum := sha256.Sum256(body)
	return url + "#" + hex.EncodeToString(sum[:])
}

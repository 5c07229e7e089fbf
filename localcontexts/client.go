// Package localcontexts looks up Local Contexts Hub projects referenced from a
// record's complies_with list, returning the project title, page, and the
// notices a sample carries.
package localcontexts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/c360studio/semstreams/pkg/cache"
	"github.com/c360studio/semstreams/pkg/retry"
)

const (
	// DefaultAPIURL is the Local Contexts Hub projects endpoint.
	DefaultAPIURL = "https://localcontextshub.org/api/v1/projects/"
	// DefaultCacheSize bounds the project cache.
	DefaultCacheSize = 100

	maxResponseSize = 1024 * 1024
)

// CompliesWithPrefix marks a complies_with token that names a Local Contexts project.
const CompliesWithPrefix = "localcontexts:projects/"

var projectIDPattern = regexp.MustCompile(`^localcontexts:projects/(.*)`)

// Notice is a Local Contexts notice attached to a project.
type Notice struct {
	ImgURL string `json:"img_url"`
	Text   string `json:"default_text"`
	Name   string `json:"name"`
}

// ProjectInfo describes a Local Contexts project.
type ProjectInfo struct {
	Title       string   `json:"title"`
	Notices     []Notice `json:"notice"`
	ProjectPage string   `json:"project_page"`
}

// ProjectID extracts the project id from a complies_with token, reporting
// false when the token is not a Local Contexts reference.
func ProjectID(compliesWith string) (string, bool) {
	m := projectIDPattern.FindStringSubmatch(compliesWith)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// CompliesWithToken formats a project id as a complies_with token.
func CompliesWithToken(projectID string) string {
	return CompliesWithPrefix + projectID
}

// Client fetches project details from the Local Contexts Hub.
type Client struct {
	apiURL      string
	httpClient  *http.Client
	retryConfig retry.Config
	cacheSize   int
	cache       cache.Cache[*ProjectInfo]
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRetryConfig sets the retry policy for transport failures.
func WithRetryConfig(cfg retry.Config) Option {
	return func(client *Client) {
		client.retryConfig = cfg
	}
}

// WithCacheSize sets the maximum number of cached projects.
func WithCacheSize(size int) Option {
	return func(client *Client) {
		client.cacheSize = size
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates a Local Contexts client. An empty apiURL uses DefaultAPIURL.
func NewClient(apiURL string, opts ...Option) (*Client, error) {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	c := &Client{
		apiURL:      apiURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		retryConfig: retry.DefaultConfig(),
		cacheSize:   DefaultCacheSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cacheSize <= 0 {
		c.cacheSize = DefaultCacheSize
	}
	lru, err := cache.NewLRU[*ProjectInfo](c.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create project cache: %w", err)
	}
	c.cache = lru
	return c, nil
}

// Close releases the project cache.
func (c *Client) Close() error {
	return c.cache.Close()
}

// ProjectInfo returns the project with the given id. A project the hub does
// not return is logged and reported as nil with no error.
func (c *Client) ProjectInfo(ctx context.Context, projectID string) (*ProjectInfo, error) {
	if info, ok := c.cache.Get(projectID); ok {
		return info, nil
	}

	// The trailing slash avoids a redirect.
	url := c.apiURL + projectID + "/"
	info, err := retry.DoWithResult(ctx, c.retryConfig, func() (*ProjectInfo, error) {
		return c.fetch(ctx, url)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch local contexts project %s: %w", projectID, err)
	}
	if info == nil {
		return nil, nil
	}
	if _, err := c.cache.Set(projectID, info); err != nil {
		c.logger.Debug("Failed to cache local contexts project", slog.String("error", err.Error()))
	}
	return info, nil
}

// InfoForCompliesWith returns the project referenced by the first Local
// Contexts token in compliesWith, or nil when there is none.
func (c *Client) InfoForCompliesWith(ctx context.Context, compliesWith []string) (*ProjectInfo, error) {
	for _, token := range compliesWith {
		if id, ok := ProjectID(token); ok {
			return c.ProjectInfo(ctx, id)
		}
	}
	return nil, nil
}

func (c *Client) fetch(ctx context.Context, url string) (*ProjectInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.NonRetryable(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Unexpected response from local contexts",
			slog.String("url", url),
			slog.Int("status", resp.StatusCode))
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}
	var info ProjectInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, retry.NonRetryable(fmt.Errorf("decode project: %w", err))
	}
	return &info, nil
}

// Package taxonomy resolves the taxonomic kingdom of an organism through the
// GBIF species-match API. GEOME records use the kingdom as their context
// category.
//
// Lookups are rate limited, memoized in an LRU, and optionally persisted in a
// SQLite Store.
package taxonomy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/c360studio/semstreams/pkg/cache"
	"github.com/c360studio/semstreams/pkg/retry"
	"golang.org/x/time/rate"
)

const (
	// DefaultGBIFURL is the GBIF species-match endpoint.
	DefaultGBIFURL = "https://api.gbif.org/v1/species/match"
	// DefaultCacheSize bounds the in-memory lookup cache.
	DefaultCacheSize = 10000
	// DefaultRequestsPerSecond limits outbound GBIF queries.
	DefaultRequestsPerSecond = 10

	maxResponseSize = 1024 * 1024
)

// unidentified is the GEOME placeholder for an unknown rank.
const unidentified = "unidentified"

// Ranks holds the taxonomic ranks of an organism, plus its informal name
// for when the ranks do not resolve.
type Ranks struct {
	Kingdom string
	Phylum  string
	Genus   string
	Name    string
}

type param struct {
	key, value string
}

// params returns the usable rank parameters from most general to most
// specific.
func (r Ranks) params() []param {
	var ps []param
	for _, p := range []param{{"kingdom", r.Kingdom}, {"phylum", r.Phylum}, {"genus", r.Genus}} {
		v := strings.TrimSpace(p.value)
		if v == "" || strings.EqualFold(v, unidentified) {
			continue
		}
		ps = append(ps, param{p.key, v})
	}
	return ps
}

type matchResponse struct {
	Kingdom   string `json:"kingdom"`
	MatchType string `json:"matchType"`
}

// Client queries GBIF for kingdoms. It is safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	retryConfig retry.Config
	cacheSize   int
	cache       cache.Cache[string]
	store       *Store
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

// WithRateLimit caps outbound requests per second. Zero or less disables the
// limit.
func WithRateLimit(perSecond float64) Option {
	return func(client *Client) {
		if perSecond <= 0 {
			client.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		client.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithRetryConfig sets the retry policy for transport and 5xx failures.
func WithRetryConfig(cfg retry.Config) Option {
	return func(client *Client) {
		client.retryConfig = cfg
	}
}

// WithCacheSize sets the maximum number of cached lookups.
func WithCacheSize(size int) Option {
	return func(client *Client) {
		client.cacheSize = size
	}
}

// WithStore persists lookups in a SQLite store.
func WithStore(store *Store) Option {
	return func(client *Client) {
		client.store = store
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates a GBIF client. An empty baseURL uses DefaultGBIFURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultGBIFURL
	}
	c := &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 1),
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
	lru, err := cache.NewLRU[string](c.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create taxonomy cache: %w", err)
	}
	c.cache = lru
	return c, nil
}

// Close releases the cache. The store is owned by the caller.
func (c *Client) Close() error {
	return c.cache.Close()
}

// Kingdom returns the kingdom for the given ranks. It queries with every
// known rank, then drops ranks from the most specific one until GBIF
// returns a kingdom, and finally tries the informal name. An empty string
// with no error means nothing matched.
func (c *Client) Kingdom(ctx context.Context, ranks Ranks) (string, error) {
	ps := ranks.params()
	for n := len(ps); n > 0; n-- {
		q := url.Values{}
		for _, p := range ps[:n] {
			q.Set(p.key, p.value)
		}
		kingdom, err := c.match(ctx, q)
		if err != nil {
			return "", err
		}
		if kingdom != "" {
			return kingdom, nil
		}
	}

	if name := strings.TrimSpace(ranks.Name); name != "" {
		q := url.Values{}
		q.Set("name", name)
		return c.match(ctx, q)
	}
	return "", nil
}

func (c *Client) match(ctx context.Context, q url.Values) (string, error) {
	query := q.Encode()
	if kingdom, ok := c.cache.Get(query); ok {
		return kingdom, nil
	}

	if c.store != nil {
		kingdom, ok, err := c.store.Get(ctx, query)
		if err != nil {
			c.logger.Warn("Taxonomy store read failed", slog.String("error", err.Error()))
		} else if ok {
			c.remember(query, kingdom)
			return kingdom, nil
		}
	}

	kingdom, err := retry.DoWithResult(ctx, c.retryConfig, func() (string, error) {
		return c.fetch(ctx, query)
	})
	if err != nil {
		return "", fmt.Errorf("gbif species match %q: %w", query, err)
	}

	c.remember(query, kingdom)
	if c.store != nil {
		if err := c.store.Put(ctx, query, kingdom); err != nil {
			c.logger.Warn("Taxonomy store write failed", slog.String("error", err.Error()))
		}
	}
	return kingdom, nil
}

func (c *Client) remember(query, kingdom string) {
	if _, err := c.cache.Set(query, kingdom); err != nil {
		c.logger.Debug("Failed to cache kingdom", slog.String("error", err.Error()))
	}
}

func (c *Client) fetch(ctx context.Context, query string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", retry.NonRetryable(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query, nil)
	if err != nil {
		return "", retry.NonRetryable(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", err
	}
	switch {
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", retry.NonRetryable(fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	var match matchResponse
	if err := json.Unmarshal(body, &match); err != nil {
		return "", retry.NonRetryable(fmt.Errorf("decode match: %w", err))
	}
	c.logger.Debug("GBIF species match",
		slog.String("query", query),
		slog.String("kingdom", match.Kingdom),
		slog.String("match_type", match.MatchType))
	return match.Kingdom, nil
}

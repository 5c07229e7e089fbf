package taxonomy_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/c360studio/semstreams/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/isamples/taxonomy"
)

// gbifStub answers species-match queries from a fixed table keyed by the
// encoded query string and records every query it sees.
type gbifStub struct {
	mu      sync.Mutex
	answers map[string]string
	queries []string
}

func (g *gbifStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	q := r.URL.Query().Encode()
	g.queries = append(g.queries, q)
	kingdom := g.answers[q]
	g.mu.Unlock()

	resp := map[string]any{"matchType": "NONE"}
	if kingdom != "" {
		resp = map[string]any{"matchType": "EXACT", "kingdom": kingdom}
	}
	json.NewEncoder(w).Encode(resp)
}

func (g *gbifStub) seen() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.queries...)
}

func encode(kv ...string) string {
	q := url.Values{}
	for i := 0; i < len(kv); i += 2 {
		q.Set(kv[i], kv[i+1])
	}
	return q.Encode()
}

func newClient(t *testing.T, stub *gbifStub, opts ...taxonomy.Option) *taxonomy.Client {
	t.Helper()
	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)
	opts = append([]taxonomy.Option{
		taxonomy.WithRateLimit(0),
		taxonomy.WithRetryConfig(retry.Config{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}),
	}, opts...)
	client, err := taxonomy.NewClient(server.URL, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestKingdom_AllRanks(t *testing.T) {
	stub := &gbifStub{answers: map[string]string{
		encode("kingdom", "Animalia", "phylum", "Chordata", "genus", "Naso"): "Animalia",
	}}
	client := newClient(t, stub)

	kingdom, err := client.Kingdom(context.Background(), taxonomy.Ranks{
		Kingdom: "Animalia", Phylum: "Chordata", Genus: "Naso",
	})
	require.NoError(t, err)
	assert.Equal(t, "Animalia", kingdom)
	assert.Len(t, stub.seen(), 1)
}

func TestKingdom_DropsMostSpecificRankFirst(t *testing.T) {
	stub := &gbifStub{answers: map[string]string{
		encode("phylum", "Mollusca"): "Animalia",
	}}
	client := newClient(t, stub)

	kingdom, err := client.Kingdom(context.Background(), taxonomy.Ranks{
		Kingdom: "unidentified", Phylum: "Mollusca", Genus: "Notagenus",
	})
	require.NoError(t, err)
	assert.Equal(t, "Animalia", kingdom)
	assert.Equal(t, []string{
		encode("phylum", "Mollusca", "genus", "Notagenus"),
		encode("phylum", "Mollusca"),
	}, stub.seen())
}

func TestKingdom_FallsBackToName(t *testing.T) {
	stub := &gbifStub{answers: map[string]string{
		encode("name", "Acropora cytherea"): "Animalia",
	}}
	client := newClient(t, stub)

	kingdom, err := client.Kingdom(context.Background(), taxonomy.Ranks{
		Genus: "unidentified", Name: "Acropora cytherea",
	})
	require.NoError(t, err)
	assert.Equal(t, "Animalia", kingdom)
	assert.Equal(t, []string{encode("name", "Acropora cytherea")}, stub.seen())
}

func TestKingdom_NoMatch(t *testing.T) {
	stub := &gbifStub{answers: map[string]string{}}
	client := newClient(t, stub)

	kingdom, err := client.Kingdom(context.Background(), taxonomy.Ranks{})
	require.NoError(t, err)
	assert.Empty(t, kingdom)
	assert.Empty(t, stub.seen())
}

func TestKingdom_Cached(t *testing.T) {
	stub := &gbifStub{answers: map[string]string{
		encode("genus", "Naso"): "Animalia",
	}}
	client := newClient(t, stub)
	ctx := context.Background()

	for range 3 {
		kingdom, err := client.Kingdom(ctx, taxonomy.Ranks{Genus: "Naso"})
		require.NoError(t, err)
		assert.Equal(t, "Animalia", kingdom)
	}
	assert.Len(t, stub.seen(), 1)
}

func TestKingdom_ServerErrorFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := taxonomy.NewClient(server.URL,
		taxonomy.WithRateLimit(0),
		taxonomy.WithRetryConfig(retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Kingdom(context.Background(), taxonomy.Ranks{Genus: "Naso"})
	assert.Error(t, err)
}

func TestKingdom_PersistsToStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.db")
	store, err := taxonomy.OpenStore(path)
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	stub := &gbifStub{answers: map[string]string{
		encode("genus", "Quercus"): "Plantae",
	}}
	first := newClient(t, stub, taxonomy.WithStore(store))
	kingdom, err := first.Kingdom(ctx, taxonomy.Ranks{Genus: "Quercus"})
	require.NoError(t, err)
	assert.Equal(t, "Plantae", kingdom)

	// A fresh client with an empty cache reads the store instead of GBIF.
	second := newClient(t, stub, taxonomy.WithStore(store))
	kingdom, err = second.Kingdom(ctx, taxonomy.Ranks{Genus: "Quercus"})
	require.NoError(t, err)
	assert.Equal(t, "Plantae", kingdom)
	assert.Len(t, stub.seen(), 1)
}

package vocabulary_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/c360studio/semstreams/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/isamples/vocabulary"
	"github.com/c360studio/isamples/vocabulary/testutil"
)

type countingSource struct {
	calls atomic.Int32
	fail  atomic.Bool
	delay time.Duration
	inner vocabulary.Source
}

func (s *countingSource) Fetch(ctx context.Context, uri string) ([]byte, error) {
	s.calls.Add(1)
	time.Sleep(s.delay)
	if s.fail.Load() {
		return nil, errors.New("repository down")
	}
	return s.inner.Fetch(ctx, uri)
}

func TestSetLoadsOncePerKind(t *testing.T) {
	source := &countingSource{delay: 20 * time.Millisecond, inner: vocabulary.DirSource{Dir: testutil.Dir()}}
	set := vocabulary.NewSet(source)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := set.Material(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "mat:material", v.Root().Key)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), source.calls.Load())

	_, err := set.SampledFeature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestSetRetriesAfterFailure(t *testing.T) {
	source := &countingSource{inner: vocabulary.DirSource{Dir: testutil.Dir()}}
	source.fail.Store(true)
	set := vocabulary.NewSet(source)

	_, err := set.Specimen(context.Background())
	require.Error(t, err)

	source.fail.Store(false)
	v, err := set.Specimen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "spec:materialsample", v.Root().Key)
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestSetUnknownKind(t *testing.T) {
	set := vocabulary.NewSet(vocabulary.DirSource{Dir: testutil.Dir()})
	_, err := set.Get(context.Background(), vocabulary.Kind("colour"))
	assert.Error(t, err)
}

func TestFixtureSetNeedsNoSource(t *testing.T) {
	set := testutil.Set(t)
	for _, kind := range vocabulary.Kinds() {
		v, err := set.Get(context.Background(), kind)
		require.NoError(t, err)
		assert.Equal(t, kind.Prefix(), v.Prefix())
	}
}

func TestHTTPSource(t *testing.T) {
	body, err := os.ReadFile(filepath.Join(testutil.Dir(), "material.json"))
	require.NoError(t, err)

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		assert.Equal(t, vocabulary.MaterialURI, r.URL.Query().Get("uri"))
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	defer server.Close()

	source := vocabulary.NewHTTPSource(server.URL+"/vocabulary",
		vocabulary.WithRetryConfig(retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}))
	set := vocabulary.NewSet(source)

	v, err := set.Material(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Rock", v.TermForKey("mat:rock").Label)
	assert.Equal(t, int32(2), hits.Load())
}

func TestHTTPSourceNotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	source := vocabulary.NewHTTPSource(server.URL,
		vocabulary.WithRetryConfig(retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}))

	_, err := source.Fetch(context.Background(), vocabulary.MaterialURI)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

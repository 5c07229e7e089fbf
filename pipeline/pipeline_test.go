package pipeline_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/isamples/assemble"
	"github.com/c360studio/isamples/core"
	"github.com/c360studio/isamples/pipeline"
	"github.com/c360studio/isamples/schema"
	"github.com/c360studio/isamples/transform"
	vtestutil "github.com/c360studio/isamples/vocabulary/testutil"
)

type memorySink struct {
	mu   sync.Mutex
	docs []assemble.Document
	err  error
}

func (s *memorySink) Write(_ context.Context, doc assemble.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.docs = append(s.docs, doc)
	return nil
}

func (s *memorySink) Close() error { return nil }

func (s *memorySink) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.docs))
	for i, d := range s.docs {
		out[i] = d.ID()
	}
	return out
}

func input(t *testing.T, authority core.Authority, name string) pipeline.Input {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "transform", "testdata", name))
	require.NoError(t, err)
	return pipeline.Input{Authority: authority, Raw: data, Origin: name}
}

func deps(t *testing.T) transform.Dependencies {
	return transform.Dependencies{Vocabularies: vtestutil.Set(t)}
}

func TestRun_CountsEveryOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := pipeline.NewMetrics(reg)
	require.NoError(t, err)
	validator, err := schema.NewValidator()
	require.NoError(t, err)

	sink := &memorySink{}
	p := pipeline.New(deps(t), sink,
		pipeline.WithWorkers(2),
		pipeline.WithValidator(validator),
		pipeline.WithMetrics(metrics))

	stats, err := p.Run(context.Background(), []pipeline.Input{
		input(t, core.AuthoritySESAR, "sesar.json"),
		input(t, core.AuthoritySESAR, "sesar_hole.json"),
		input(t, core.AuthorityGEOME, "geome.json"),
		{Authority: core.AuthoritySESAR, Raw: []byte(`not json`)},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, int64(4), stats.Inputs)
	assert.Equal(t, int64(3), stats.Indexed)
	assert.Equal(t, int64(1), stats.Excluded)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Zero(t, stats.Invalid)
	assert.ElementsMatch(t, []string{
		"IGSN:IEWFS0001",
		"ark:/21547/Car2PIRE_0334",
		"ark:/21547/Cat2PIRE_0334.1",
	}, sink.ids())

	series, err := testutil.GatherAndCount(reg, "isamples_pipeline_records_total")
	require.NoError(t, err)
	assert.Equal(t, 4, series, "SESAR indexed, excluded, failed and GEOME indexed")
}

func TestRun_UnidentifiedRowsAreNotIndexed(t *testing.T) {
	sink := &memorySink{}
	stats, err := pipeline.New(deps(t), sink).Run(context.Background(), []pipeline.Input{
		{Authority: core.AuthoritySmithsonian, Raw: []byte(`{"scientificName": "Sorex cinereus"}`)},
		{Authority: core.AuthoritySmithsonian, Raw: []byte(`{"scientificName": "Sorex palustris"}`)},
		{Authority: core.AuthoritySmithsonian, Raw: []byte(`{"id": "1235", "scientificName": "Sorex"}`)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Failed)
	assert.Equal(t, int64(1), stats.Indexed)
	assert.Equal(t, []string{"1235"}, sink.ids())
}

func TestRun_Identifier(t *testing.T) {
	sink := &memorySink{}
	in := input(t, core.AuthorityGEOME, "geome.json")
	in.Identifier = "ark:/21547/Cat2PIRE_0334.1"

	stats, err := pipeline.New(deps(t), sink).Run(context.Background(), []pipeline.Input{in})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Indexed)
	assert.Equal(t, []string{"ark:/21547/Cat2PIRE_0334.1"}, sink.ids())
}

func TestRun_WithoutH3(t *testing.T) {
	sink := &memorySink{}
	_, err := pipeline.New(deps(t), sink, pipeline.WithIncludeH3(false)).
		Run(context.Background(), []pipeline.Input{input(t, core.AuthoritySESAR, "sesar.json")})
	require.NoError(t, err)
	require.Len(t, sink.docs, 1)
	// The assembler derives cells from the coordinates regardless.
	assert.Contains(t, sink.docs[0], core.H3Field(0))
}

func TestRun_SinkFailureStopsRun(t *testing.T) {
	sink := &memorySink{err: errors.New("disk full")}
	_, err := pipeline.New(deps(t), sink, pipeline.WithWorkers(1)).
		Run(context.Background(), []pipeline.Input{
			input(t, core.AuthoritySESAR, "sesar.json"),
			input(t, core.AuthorityGEOME, "geome.json"),
		})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.New(deps(t), &memorySink{}).
		Run(ctx, []pipeline.Input{input(t, core.AuthoritySESAR, "sesar.json")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJSONLSink(t *testing.T) {
	var buf bytes.Buffer
	sink := pipeline.NewJSONLSink(&buf)
	ctx := context.Background()

	require.NoError(t, sink.Write(ctx, assemble.Document{"id": "a", "label": "first"}))
	require.NoError(t, sink.Write(ctx, assemble.Document{"id": "b"}))
	assert.Zero(t, buf.Len(), "output is buffered until Close")
	require.NoError(t, sink.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "first", first["label"])
}

func TestConnectNATSSink_Unreachable(t *testing.T) {
	_, err := pipeline.ConnectNATSSink("nats://127.0.0.1:1", "isamples.documents")
	assert.Error(t, err)
}

func TestNewMetrics_NilRegisterer(t *testing.T) {
	m, err := pipeline.NewMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, m)
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/isamples/assemble"
	"github.com/c360studio/isamples/config"
	"github.com/c360studio/isamples/core"
	"github.com/c360studio/isamples/pipeline"
	"github.com/c360studio/isamples/transform"
	vtestutil "github.com/c360studio/isamples/vocabulary/testutil"
)

func fixture(name string) string {
	return filepath.Join("..", "..", "transform", "testdata", name)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		want    []string
	}{
		{
			name:    "single document",
			file:    "one.json",
			content: `{"igsn": "a"}`,
			want:    []string{`{"igsn": "a"}`},
		},
		{
			name:    "array",
			file:    "many.json",
			content: ` [{"igsn": "a"}, {"igsn": "b"}]`,
			want:    []string{`{"igsn": "a"}`, `{"igsn": "b"}`},
		},
		{
			name:    "json lines",
			file:    "lines.jsonl",
			content: "{\"igsn\": \"a\"}\n\n  {\"igsn\": \"b\"}  \n",
			want:    []string{`{"igsn": "a"}`, `{"igsn": "b"}`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			inputs, err := readFile(core.AuthoritySESAR, path)
			require.NoError(t, err)
			require.Len(t, inputs, len(tt.want))
			for i, in := range inputs {
				assert.Equal(t, core.AuthoritySESAR, in.Authority)
				assert.Equal(t, tt.want[i], strings.TrimSpace(string(in.Raw)))
				assert.True(t, strings.HasPrefix(in.Origin, path))
			}
		})
	}
}

func TestReadFile_SmithsonianRows(t *testing.T) {
	inputs, err := readFile(core.AuthoritySmithsonian, fixture("smithsonian.tsv"))
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.True(t, strings.HasSuffix(inputs[0].Origin, ":2"))

	var row map[string]string
	require.NoError(t, json.Unmarshal(inputs[0].Raw, &row))
	assert.NotEmpty(t, row)
}

func TestReadFile_RowsNeedSmithsonian(t *testing.T) {
	_, err := readFile(core.AuthoritySESAR, fixture("smithsonian.tsv"))
	assert.Error(t, err)
}

func TestReadFile_BadArray(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.json", `[{"igsn": `)
	_, err := readFile(core.AuthoritySESAR, path)
	assert.Error(t, err)
}

func TestExpandPatterns(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	b := writeFile(t, dir, "b.json", `{}`)
	a := writeFile(t, filepath.Join(dir, "nested"), "a.json", `{}`)
	writeFile(t, dir, "notes.md", ``)

	files, err := expandPatterns([]string{filepath.Join(dir, "**", "*.json"), b})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, files)

	_, err = expandPatterns([]string{filepath.Join(dir, "*.tsv")})
	assert.Error(t, err)
}

func TestPrintRecords(t *testing.T) {
	inputs, err := readInputs(core.AuthoritySESAR, []string{
		fixture("sesar.json"),
		fixture("sesar_hole.json"),
	})
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	var out bytes.Buffer
	deps := transform.Dependencies{Vocabularies: vtestutil.Set(t)}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	require.NoError(t, printRecords(context.Background(), &out, inputs, deps, true, logger))

	dec := json.NewDecoder(&out)
	var records []core.Record
	for dec.More() {
		var rec core.Record
		require.NoError(t, dec.Decode(&rec))
		records = append(records, rec)
	}
	require.Len(t, records, 1, "the drill hole record is excluded")
	assert.Equal(t, "IGSN:IEWFS0001", records[0].SampleIdentifier)
}

func TestWriteTerms(t *testing.T) {
	v, err := vtestutil.Set(t).Material(context.Background())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, writeTerms(&out, v.Terms()))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, len(v.Terms())+1, len(lines))
	assert.True(t, strings.HasPrefix(lines[0], "KEY"))
	assert.Contains(t, out.String(), "mat:rock")
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Pipeline.Workers = 9
	path := filepath.Join(t.TempDir(), "isamples.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := loadConfig(path, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, 9, loaded.Pipeline.Workers)

	cfg.Pipeline.Workers = 0
	require.NoError(t, cfg.SaveToFile(path))
	_, err = loadConfig(path, slog.Default())
	assert.Error(t, err)
}

func TestBuildDependencies_Disabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ModelServer.URL = ""
	cfg.Taxonomy.GBIFURL = ""

	deps, closeDeps, err := buildDependencies(cfg, slog.Default(), nil)
	require.NoError(t, err)
	defer closeDeps()
	assert.NotNil(t, deps.Vocabularies)
	assert.Nil(t, deps.Classifier)
	assert.Nil(t, deps.Taxonomy)
}

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "isamples version "+Version)
}

type recordingSink struct {
	docs   []assemble.Document
	closed int
}

func (s *recordingSink) Write(_ context.Context, doc assemble.Document) error {
	s.docs = append(s.docs, doc)
	return nil
}

func (s *recordingSink) Close() error {
	s.closed++
	return nil
}

func TestIndexRun_SetupFailureOpensNoSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := pipeline.NewMetrics(reg)
	require.NoError(t, err)

	opened := 0
	run := indexRun{
		logger: slog.Default(),
		reg:    reg,
		openSink: func() (pipeline.Sink, error) {
			opened++
			return &recordingSink{}, nil
		},
	}
	data, err := os.ReadFile(fixture("sesar.json"))
	require.NoError(t, err)

	stats, err := run.run(context.Background(), transform.Dependencies{Vocabularies: vtestutil.Set(t)},
		[]pipeline.Input{{Authority: core.AuthoritySESAR, Raw: data}})
	require.Error(t, err)
	assert.Empty(t, stats.RunID)
	assert.Zero(t, opened)
}

func TestIndexRun_ClosesSink(t *testing.T) {
	sink := &recordingSink{}
	run := indexRun{
		logger:   slog.Default(),
		reg:      prometheus.NewRegistry(),
		workers:  1,
		validate: true,
		openSink: func() (pipeline.Sink, error) { return sink, nil },
	}
	data, err := os.ReadFile(fixture("sesar.json"))
	require.NoError(t, err)

	stats, err := run.run(context.Background(), transform.Dependencies{Vocabularies: vtestutil.Set(t)},
		[]pipeline.Input{{Authority: core.AuthoritySESAR, Raw: data}})
	require.NoError(t, err)
	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, int64(1), stats.Indexed)
	assert.Len(t, sink.docs, 1)
	assert.Equal(t, 1, sink.closed)
}

// Package testutil provides fixture vocabularies for tests that need a
// populated vocabulary.Set without a term repository.
package testutil

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c360studio/isamples/vocabulary"
)

// Dir returns the directory holding the fixture vocabulary documents.
func Dir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "testdata", "vocabularies")
}

// Set returns a fully loaded set built from the fixture documents.
func Set(tb testing.TB) *vocabulary.Set {
	tb.Helper()
	source := vocabulary.DirSource{Dir: Dir()}
	ctx := context.Background()

	load := func(kind vocabulary.Kind) *vocabulary.Vocabulary {
		data, err := source.Fetch(ctx, kind.URI())
		require.NoError(tb, err)
		v, err := vocabulary.Parse(data, kind.Prefix())
		require.NoError(tb, err)
		return v
	}

	return vocabulary.NewSetFromVocabularies(
		load(vocabulary.KindMaterial),
		load(vocabulary.KindSpecimen),
		load(vocabulary.KindSampledFeature),
	)
}

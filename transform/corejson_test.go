package transform_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/isamples/transform"
)

func TestCoreJSON_Passthrough(t *testing.T) {
	tr, err := transform.NewCoreJSON(fixture(t, "core.json"))
	require.NoError(t, err)

	rec, err := transform.Transform(context.Background(), tr, false)
	require.NoError(t, err)

	assert.Equal(t, "metadata/28722/k2zz9", rec.ID)
	assert.Equal(t, "ark:/28722/k2zz9", rec.SampleIdentifier)
	assert.Equal(t, []float64{-1}, rec.ContextCategoryConfidences)
	assert.Equal(t, []string{"8055fffffffffff"}, rec.H3, "passthrough keeps the stored cells")

	require.Len(t, rec.Keywords, 1)
	assert.Equal(t, "rock", rec.Keywords[0].Keyword)
	assert.Equal(t, "http://vocab.getty.edu/aat/300011914", rec.Keywords[0].KeywordURI)

	lat := tr.SamplingSiteLatitude()
	require.NotNil(t, lat)
	assert.InDelta(t, 10.5, *lat, 1e-9)
}

func TestCoreJSON_Invalid(t *testing.T) {
	_, err := transform.NewCoreJSON([]byte(`{"label": "no identifiers"}`))
	assert.Error(t, err)
	_, err = transform.NewCoreJSON([]byte(`[]`))
	assert.Error(t, err)
}

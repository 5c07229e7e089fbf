package transform_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/isamples/classify"
	"github.com/c360studio/isamples/core"
	"github.com/c360studio/isamples/transform"
)

func TestOpenContext_Transform(t *testing.T) {
	classifier := &fakeClassifier{
		material: []classify.PredictionResult{
			{Value: "https://w3id.org/isample/opencontext/material/0.1/ceramicclay", Confidence: 0.9},
		},
		sample: []classify.PredictionResult{
			{Value: "https://w3id.org/isample/vocabulary/materialsampleobjecttype/1.0/artifact", Confidence: 0.7},
		},
	}
	tr, err := transform.NewOpenContext(fixture(t, "opencontext.json"), deps(t, classifier, nil))
	require.NoError(t, err)

	rec, err := transform.Transform(context.Background(), tr, true)
	require.NoError(t, err)

	assert.Equal(t, "metadata/28722/k26h4xk1f", rec.ID)
	assert.Equal(t, "ark:/28722/k26h4xk1f", rec.SampleIdentifier)
	assert.Equal(t, "PC 19830002", rec.Label)
	assert.Equal(t,
		"'early bce/ce': -700 | 'late bce/ce': -535 | 'updated': 2020-07-16T11:25:16.123Z | 'Consists of': bronze (metal)",
		rec.Description)

	assert.Equal(t, []string{"sf:pasthumanoccupationsite"}, keys(rec.ContextCategories))
	assert.Equal(t, []float64{-1}, rec.ContextCategoryConfidences)

	require.Len(t, rec.MaterialCategories, 1)
	assert.Equal(t, "ceramicclay", rec.MaterialCategories[0].Label)
	assert.Equal(t, "https://w3id.org/isample/opencontext/material/0.1/ceramicclay", rec.MaterialCategories[0].URI)
	assert.Equal(t, []float64{0.9}, rec.MaterialCategoryConfidences)

	assert.Equal(t, []string{"spec:artifact"}, keys(rec.SpecimenCategories))
	assert.Equal(t, []float64{0.7}, rec.SpecimenCategoryConfidences)
	assert.Equal(t, int32(2), classifier.calls.Load())

	assert.Equal(t, []core.Keyword{{
		Keyword:    "bronze (metal)",
		KeywordURI: "http://vocab.getty.edu/aat/300010900",
		SchemeName: transform.GettySchemeName,
	}}, rec.Keywords)
	assert.Empty(t, rec.InformalClassification)

	pb := rec.ProducedBy
	assert.Equal(t, "Poggio Civitate", pb.Label)
	assert.Equal(t, "https://opencontext.org/projects/DF043419-F23B-41DA-7E4D-EE52AF22F92F", pb.Description)
	assert.Equal(t, []core.Responsibility{{Role: "creator", Name: "Anthony Tuck"}}, pb.Responsibilities)
	assert.Equal(t, "2006-01-01T00:00:00Z", pb.ResultTime)
	assert.Equal(t, "Europe/Italy/Poggio Civitate/Civitate A/Tesoro/Tesoro 1", pb.SamplingSite.Label)
	assert.Equal(t, "https://opencontext.org/subjects/a1b2c3", pb.SamplingSite.Description)
	assert.Equal(t, []string{"Europe", "Italy", "Poggio Civitate", "Civitate A", "Tesoro", "Tesoro 1"}, pb.SamplingSite.PlaceNames)
	assert.Len(t, rec.H3, core.H3Resolutions)

	require.NotNil(t, rec.LastModifiedTime)
	assert.Equal(t, "2020-07-16T11:25:16.123Z", *rec.LastModifiedTime)
}

func TestOpenContext_NoClassifier(t *testing.T) {
	tr, err := transform.NewOpenContext(fixture(t, "opencontext.json"), deps(t, nil, nil))
	require.NoError(t, err)

	rec, err := transform.Transform(context.Background(), tr, false)
	require.NoError(t, err)
	assert.Empty(t, rec.MaterialCategories)
	assert.Nil(t, rec.MaterialCategoryConfidences)
	assert.Empty(t, rec.SpecimenCategories)
}

func TestOpenContext_RequiresCitation(t *testing.T) {
	_, err := transform.NewOpenContext([]byte(`{"label": "x"}`), deps(t, nil, nil))
	assert.Error(t, err)
}

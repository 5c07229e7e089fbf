package transform_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/isamples/core"
	"github.com/c360studio/isamples/transform"
	"github.com/c360studio/isamples/vocabulary"
)

func smithsonianRows(t *testing.T) []map[string]string {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", "smithsonian.tsv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := transform.ReadSmithsonianRows(f)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	return rows
}

func TestSmithsonian_Transform(t *testing.T) {
	classifier := &fakeClassifier{sampled: vocabulary.BioSampledFeatureNS + "Animalia"}
	tr, err := transform.NewSmithsonian(smithsonianRows(t)[0], deps(t, classifier, nil))
	require.NoError(t, err)

	rec, err := transform.Transform(context.Background(), tr, true)
	require.NoError(t, err)

	assert.Equal(t, "metadata/65665/3a1b2c3d4-5e6f", rec.ID)
	assert.Equal(t, "ark:/65665/3a1b2c3d4-5e6f", rec.SampleIdentifier)
	assert.Equal(t, "Peromyscus maniculatus USNM 123456", rec.Label)
	assert.Equal(t, "basisOfRecord: PreservedSpecimen | sex: female", rec.Description)

	require.Len(t, rec.ContextCategories, 1)
	assert.Equal(t, "Animalia", rec.ContextCategories[0].Label)
	assert.Equal(t, []float64{-1}, rec.ContextCategoryConfidences)
	assert.Equal(t, []string{
		"North America, United States, California", "Mount Shasta", "Conifer forest",
		"Animalia", "Chordata", "Mammalia", "Rodentia", "Cricetidae", "Peromyscus maniculatus",
	}, classifier.lastInputs)

	assert.Equal(t, []string{"mat:organicmaterial"}, keys(rec.MaterialCategories))
	assert.Equal(t, []string{"spec:organismpart"}, keys(rec.SpecimenCategories))

	assert.Equal(t, []core.Responsibility{
		{Role: "recorded by", Name: "C. H. Merriam"},
		{Role: "recorded by", Name: "V. Bailey"},
	}, rec.ProducedBy.Responsibilities)
	assert.Equal(t, "CHM-77", rec.ProducedBy.Label)
	assert.Equal(t, "1890-06-12", rec.ProducedBy.ResultTime)
	site := rec.ProducedBy.SamplingSite
	assert.Equal(t, "Mount Shasta", site.Label)
	assert.Equal(t, "Conifer forest", site.Description)
	assert.Equal(t, "1500 m", site.Location.Elevation)
	assert.Equal(t, []string{"California", "United States"}, site.PlaceNames)
	assert.Len(t, rec.H3, core.H3Resolutions)

	assert.Equal(t, "NMNH Mammals", rec.Curation.Location)
	require.NotNil(t, rec.LastModifiedTime)
	assert.Equal(t, "2021-03-04", *rec.LastModifiedTime)
}

func TestSmithsonian_SparseRow(t *testing.T) {
	tr, err := transform.NewSmithsonian(smithsonianRows(t)[1], deps(t, nil, nil))
	require.NoError(t, err)

	rec, err := transform.Transform(context.Background(), tr, true)
	require.NoError(t, err)

	assert.Equal(t, "1235", rec.SampleIdentifier)
	assert.Equal(t, []string{"spec:wholeorganism"}, keys(rec.SpecimenCategories))
	assert.Empty(t, rec.ContextCategories)
	assert.Equal(t, "1891-07", rec.ProducedBy.ResultTime)
	assert.Equal(t, core.NotProvided, rec.ProducedBy.SamplingSite.Label)
	assert.Nil(t, rec.ProducedBy.SamplingSite.Location.Latitude)
	assert.Nil(t, rec.H3)
}

func TestReadSmithsonianRows_HeaderOnly(t *testing.T) {
	rows, err := transform.ReadSmithsonianRows(strings.NewReader("id\toccurrenceID\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = transform.ReadSmithsonianRows(strings.NewReader(""))
	assert.Error(t, err)
}

func TestNewSmithsonian_RequiresIdentifier(t *testing.T) {
	for _, row := range []map[string]string{
		{"scientificName": "Sorex cinereus"},
		{"scientificName": "Sorex palustris", "occurrenceID": "  ", "id": ""},
	} {
		tr, err := transform.NewSmithsonian(row, deps(t, nil, nil))
		assert.Error(t, err)
		assert.Nil(t, tr)
	}

	tr, err := transform.NewSmithsonian(map[string]string{"id": "77"}, deps(t, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, "77", tr.SampleIdentifier())
}

package schema_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/isamples/core"
	"github.com/c360studio/isamples/schema"
	"github.com/c360studio/isamples/transform"
	"github.com/c360studio/isamples/vocabulary/testutil"
)

func sourceFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "transform", "testdata", name))
	require.NoError(t, err)
	return data
}

func TestRoundTrip_EveryAuthority(t *testing.T) {
	deps := transform.Dependencies{Vocabularies: testutil.Set(t)}

	f, err := os.Open(filepath.Join("..", "transform", "testdata", "smithsonian.tsv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := transform.ReadSmithsonianRows(f)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	smithsonianRow, err := json.Marshal(rows[0])
	require.NoError(t, err)

	tests := []struct {
		authority core.Authority
		raw       []byte
	}{
		{core.AuthoritySESAR, sourceFixture(t, "sesar.json")},
		{core.AuthorityGEOME, sourceFixture(t, "geome.json")},
		{core.AuthorityOpenContext, sourceFixture(t, "opencontext.json")},
		{core.AuthoritySmithsonian, smithsonianRow},
		{core.AuthorityCore, sourceFixture(t, "core.json")},
	}
	v, err := schema.NewValidator()
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(string(tt.authority), func(t *testing.T) {
			tr, err := transform.New(tt.authority, tt.raw, deps)
			require.NoError(t, err)
			for _, each := range transform.Expand(tr) {
				rec, err := transform.Transform(context.Background(), each, true)
				require.NoError(t, err)
				assert.NoError(t, v.Validate(rec), each.SampleIdentifier())
			}
		})
	}
}

func TestValidate_RejectsBooleanLatitude(t *testing.T) {
	data := []byte(`{
		"$schema": "iSamplesSchemaCore1.0.json",
		"@id": "metadata/1/x",
		"label": "x",
		"sample_identifier": "ark:/1/x",
		"produced_by": {"sampling_site": {"sample_location": {"latitude": true}}}
	}`)
	v, err := schema.NewValidator()
	require.NoError(t, err)

	err = v.ValidateJSON("ark:/1/x", data)
	var verr *schema.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "ark:/1/x", verr.Identifier)
	assert.NotEmpty(t, verr.Problems)
}

func TestValidate_RequiresIdentifiers(t *testing.T) {
	rec := core.Record{Schema: core.SchemaName, Label: "no ids"}
	err := schema.Validate(rec)
	var verr *schema.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Error(), "not valid iSamples Core")
}

func TestValidate_PlaceholderIdentifier(t *testing.T) {
	rec := core.Record{
		Schema:           core.SchemaName,
		ID:               "metadata/not provided",
		Label:            "Sorex cinereus",
		SampleIdentifier: core.NotProvided,
	}
	var verr *schema.ValidationError
	require.True(t, errors.As(schema.Validate(rec), &verr))
	assert.Contains(t, verr.Error(), "sample_identifier")
}

func TestValidate_UnknownField(t *testing.T) {
	data := []byte(`{"$schema": "x", "@id": "a", "label": "b", "sample_identifier": "c", "colour": "red"}`)
	v, err := schema.NewValidator()
	require.NoError(t, err)
	assert.Error(t, v.ValidateJSON("c", data))
}

func TestCoreSchema_IsACopy(t *testing.T) {
	a := schema.CoreSchema()
	a[0] = 'X'
	assert.NotEqual(t, a[0], schema.CoreSchema()[0])
}

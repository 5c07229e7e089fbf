package transform

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/c360studio/isamples/core"
	"github.com/c360studio/isamples/vocabulary"
)

// CoreJSON passes through a record that is already in iSamples Core form.
type CoreJSON struct {
	rec core.Record
}

// NewCoreJSON decodes a canonical record.
func NewCoreJSON(raw []byte) (*CoreJSON, error) {
	var rec core.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode core record: %w", err)
	}
	if rec.SampleIdentifier == "" && rec.ID == "" {
		return nil, fmt.Errorf("core record has neither @id nor sample_identifier")
	}
	return &CoreJSON{rec: rec}, nil
}

// Record returns the source record unchanged.
func (c *CoreJSON) Record() (core.Record, error) { return c.rec, nil }

func (c *CoreJSON) Authority() core.Authority { return core.AuthorityCore }
func (c *CoreJSON) IDString() string          { return c.rec.ID }
func (c *CoreJSON) SampleIdentifier() string  { return c.rec.SampleIdentifier }
func (c *CoreJSON) Label() string             { return c.rec.Label }
func (c *CoreJSON) Description() string       { return c.rec.Description }

func (c *CoreJSON) MaterialCategories(context.Context) ([]vocabulary.Term, error) {
	return c.rec.MaterialCategories, nil
}

func (c *CoreJSON) MaterialConfidences(context.Context) ([]float64, error) {
	return c.rec.MaterialCategoryConfidences, nil
}

func (c *CoreJSON) ContextCategories(context.Context) ([]vocabulary.Term, error) {
	return c.rec.ContextCategories, nil
}

func (c *CoreJSON) ContextConfidences(context.Context) ([]float64, error) {
	return c.rec.ContextCategoryConfidences, nil
}

func (c *CoreJSON) SpecimenCategories(context.Context) ([]vocabulary.Term, error) {
	return c.rec.SpecimenCategories, nil
}

func (c *CoreJSON) SpecimenConfidences(context.Context) ([]float64, error) {
	return c.rec.SpecimenCategoryConfidences, nil
}

func (c *CoreJSON) InformalClassification() []string { return c.rec.InformalClassification }
func (c *CoreJSON) Keywords() []core.Keyword         { return c.rec.Keywords }

func (c *CoreJSON) ProducedByID() string                { return c.rec.ProducedBy.ID }
func (c *CoreJSON) ProducedByLabel() string             { return c.rec.ProducedBy.Label }
func (c *CoreJSON) ProducedByDescription() string       { return c.rec.ProducedBy.Description }
func (c *CoreJSON) ProducedByFeatureOfInterest() string { return c.rec.ProducedBy.FeatureOfInterest }
func (c *CoreJSON) ProducedByResponsibilities() []core.Responsibility {
	return c.rec.ProducedBy.Responsibilities
}
func (c *CoreJSON) ProducedByResultTime() string { return c.rec.ProducedBy.ResultTime }

func (c *CoreJSON) SamplingSiteDescription() string {
	return c.rec.ProducedBy.SamplingSite.Description
}
func (c *CoreJSON) SamplingSiteLabel() string { return c.rec.ProducedBy.SamplingSite.Label }
func (c *CoreJSON) SamplingSiteElevation() string {
	return c.rec.ProducedBy.SamplingSite.Location.Elevation
}

func (c *CoreJSON) SamplingSiteLatitude() *float64 {
	return coordinateValue(c.rec.ProducedBy.SamplingSite.Location.Latitude)
}

func (c *CoreJSON) SamplingSiteLongitude() *float64 {
	return coordinateValue(c.rec.ProducedBy.SamplingSite.Location.Longitude)
}

func (c *CoreJSON) SamplingSitePlaceNames() []string {
	return c.rec.ProducedBy.SamplingSite.PlaceNames
}

func (c *CoreJSON) Registrant() string                { return c.rec.Registrant.Name }
func (c *CoreJSON) SamplingPurpose() string           { return c.rec.SamplingPurpose }
func (c *CoreJSON) CurationLabel() string             { return c.rec.Curation.Label }
func (c *CoreJSON) CurationDescription() string       { return c.rec.Curation.Description }
func (c *CoreJSON) CurationAccessConstraints() string { return c.rec.Curation.AccessConstraints }
func (c *CoreJSON) CurationLocation() string          { return c.rec.Curation.Location }
func (c *CoreJSON) CurationResponsibilities() []core.Responsibility {
	return c.rec.Curation.Responsibilities
}
func (c *CoreJSON) RelatedResources() []core.RelatedResource { return c.rec.RelatedResources }
func (c *CoreJSON) AuthorizedBy() []string                   { return c.rec.AuthorizedBy }
func (c *CoreJSON) CompliesWith() []string                   { return c.rec.CompliesWith }
func (c *CoreJSON) LastUpdatedTime() *string                 { return c.rec.LastModifiedTime }

func coordinateValue(c *core.Coordinate) *float64 {
	f, ok := c.Float()
	if !ok {
		return nil
	}
	return &f
}

// Package transform turns authority-specific source records into iSamples
// Core records.
//
// Each authority is a Transformer variant. Transform drives a Transformer
// through its accessors and assembles the canonical record, filling in the
// confidence lists and H3 cells. Variants that may reject a record implement
// Excluder; variants whose input is already canonical implement Passthrough.
package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/c360studio/isamples/classify"
	"github.com/c360studio/isamples/core"
	"github.com/c360studio/isamples/geo"
	"github.com/c360studio/isamples/taxonomy"
	"github.com/c360studio/isamples/vocabulary"
)

// RuleConfidence marks a category that came from a rule rather than a model.
const RuleConfidence = -1.0

// Transformer reads one logical sample out of a source record.
type Transformer interface {
	Authority() core.Authority

	IDString() string
	SampleIdentifier() string
	Label() string
	Description() string

	MaterialCategories(ctx context.Context) ([]vocabulary.Term, error)
	MaterialConfidences(ctx context.Context) ([]float64, error)
	ContextCategories(ctx context.Context) ([]vocabulary.Term, error)
	ContextConfidences(ctx context.Context) ([]float64, error)
	SpecimenCategories(ctx context.Context) ([]vocabulary.Term, error)
	SpecimenConfidences(ctx context.Context) ([]float64, error)

	InformalClassification() []string
	Keywords() []core.Keyword

	ProducedByID() string
	ProducedByLabel() string
	ProducedByDescription() string
	ProducedByFeatureOfInterest() string
	ProducedByResponsibilities() []core.Responsibility
	ProducedByResultTime() string

	SamplingSiteDescription() string
	SamplingSiteLabel() string
	SamplingSiteElevation() string
	SamplingSiteLatitude() *float64
	SamplingSiteLongitude() *float64
	SamplingSitePlaceNames() []string

	Registrant() string
	SamplingPurpose() string

	CurationLabel() string
	CurationDescription() string
	CurationAccessConstraints() string
	CurationLocation() string
	CurationResponsibilities() []core.Responsibility

	RelatedResources() []core.RelatedResource
	AuthorizedBy() []string
	CompliesWith() []string
	LastUpdatedTime() *string
}

// Excluder is implemented by transformers that can recognise a record that
// is not a sample. Exclusion returns a core.ExclusionError for such records.
type Excluder interface {
	Exclusion() error
}

// Passthrough is implemented by transformers whose source is already a
// canonical record.
type Passthrough interface {
	Record() (core.Record, error)
}

// Parent is implemented by transformers that yield further records from the
// same source document.
type Parent interface {
	Children() []Transformer
}

// Classifier predicts categories for records that rules cannot place.
// *classify.Client implements it.
type Classifier interface {
	SESARMaterial(ctx context.Context, record json.RawMessage) ([]classify.PredictionResult, error)
	OpenContextMaterial(ctx context.Context, record json.RawMessage) ([]classify.PredictionResult, error)
	OpenContextSample(ctx context.Context, record json.RawMessage) ([]classify.PredictionResult, error)
	SmithsonianSampledFeature(ctx context.Context, input []string) (string, error)
}

// KingdomResolver resolves the taxonomic kingdom of an organism.
// *taxonomy.Client implements it.
type KingdomResolver interface {
	Kingdom(ctx context.Context, ranks taxonomy.Ranks) (string, error)
}

// Dependencies are the shared collaborators handed to every transformer.
// Vocabularies is required; a nil Classifier or Taxonomy leaves the
// categories they would supply empty.
type Dependencies struct {
	Vocabularies *vocabulary.Set
	Classifier   Classifier
	Taxonomy     KingdomResolver
	Logger       *slog.Logger
}

func (d Dependencies) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// New creates the transformer for one source record. GEOME children are
// reachable through the returned transformer's Children.
func New(authority core.Authority, raw []byte, deps Dependencies) (Transformer, error) {
	var (
		t   Transformer
		err error
	)
	switch authority {
	case core.AuthoritySESAR:
		t, err = NewSESAR(raw, deps)
	case core.AuthorityGEOME:
		t, err = NewGEOME(raw, nil, deps)
	case core.AuthorityOpenContext:
		t, err = NewOpenContext(raw, deps)
	case core.AuthoritySmithsonian:
		var row map[string]string
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("decode smithsonian row: %w", err)
		}
		t, err = NewSmithsonian(row, deps)
	case core.AuthorityCore:
		t, err = NewCoreJSON(raw)
	default:
		return nil, fmt.Errorf("no transformer for authority %q", authority)
	}
	// A failed constructor returns a typed nil pointer; never wrap it.
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Expand returns t followed by every transformer it yields.
func Expand(t Transformer) []Transformer {
	out := []Transformer{t}
	if p, ok := t.(Parent); ok {
		out = append(out, p.Children()...)
	}
	return out
}

// Transform builds the canonical record for t. H3 cells are attached only
// when includeH3 is set and the location is usable.
func Transform(ctx context.Context, t Transformer, includeH3 bool) (core.Record, error) {
	if p, ok := t.(Passthrough); ok {
		return p.Record()
	}
	if e, ok := t.(Excluder); ok {
		if err := e.Exclusion(); err != nil {
			return core.Record{}, err
		}
	}

	rec := core.Record{
		Schema:           core.SchemaName,
		ID:               t.IDString(),
		Label:            t.Label(),
		SampleIdentifier: t.SampleIdentifier(),
		Description:      t.Description(),
	}

	var err error
	if rec.ContextCategories, rec.ContextCategoryConfidences, err = categories(ctx, t.ContextCategories, t.ContextConfidences); err != nil {
		return core.Record{}, fmt.Errorf("context categories: %w", err)
	}
	if rec.MaterialCategories, rec.MaterialCategoryConfidences, err = categories(ctx, t.MaterialCategories, t.MaterialConfidences); err != nil {
		return core.Record{}, fmt.Errorf("material categories: %w", err)
	}
	if rec.SpecimenCategories, rec.SpecimenCategoryConfidences, err = categories(ctx, t.SpecimenCategories, t.SpecimenConfidences); err != nil {
		return core.Record{}, fmt.Errorf("specimen categories: %w", err)
	}

	lat, lon := t.SamplingSiteLatitude(), t.SamplingSiteLongitude()
	rec.InformalClassification = nonNil(t.InformalClassification())
	rec.Keywords = nonNil(t.Keywords())
	rec.ProducedBy = core.ProducedBy{
		ID:                t.ProducedByID(),
		Label:             t.ProducedByLabel(),
		Description:       t.ProducedByDescription(),
		FeatureOfInterest: t.ProducedByFeatureOfInterest(),
		Responsibilities:  nonNil(t.ProducedByResponsibilities()),
		ResultTime:        t.ProducedByResultTime(),
		SamplingSite: core.SamplingSite{
			Description: t.SamplingSiteDescription(),
			Label:       t.SamplingSiteLabel(),
			Location: core.Location{
				Elevation: t.SamplingSiteElevation(),
				Latitude:  coordinate(lat),
				Longitude: coordinate(lon),
			},
			PlaceNames: nonNil(t.SamplingSitePlaceNames()),
		},
	}
	rec.Registrant = core.Registrant{Name: t.Registrant()}
	rec.SamplingPurpose = t.SamplingPurpose()
	rec.Curation = core.Curation{
		Label:             t.CurationLabel(),
		Description:       t.CurationDescription(),
		AccessConstraints: t.CurationAccessConstraints(),
		Location:          t.CurationLocation(),
		Responsibilities:  nonNil(t.CurationResponsibilities()),
	}
	rec.RelatedResources = nonNil(t.RelatedResources())
	rec.AuthorizedBy = nonNil(t.AuthorizedBy())
	rec.CompliesWith = nonNil(t.CompliesWith())
	rec.LastModifiedTime = t.LastUpdatedTime()

	if includeH3 {
		rec.H3 = geo.Cells(lat, lon)
	}
	return rec, nil
}

// categories fetches a category list and its confidences. A rule-derived
// list gets RuleConfidence for every entry; an empty list gets none.
func categories(
	ctx context.Context,
	terms func(context.Context) ([]vocabulary.Term, error),
	confidences func(context.Context) ([]float64, error),
) ([]vocabulary.Term, []float64, error) {
	cats, err := terms(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(cats) == 0 {
		return []vocabulary.Term{}, nil, nil
	}
	conf, err := confidences(ctx)
	if err != nil {
		return nil, nil, err
	}
	if conf == nil {
		conf = make([]float64, len(cats))
		for i := range conf {
			conf[i] = RuleConfidence
		}
	}
	if len(conf) != len(cats) {
		return nil, nil, fmt.Errorf("%d confidences for %d categories", len(conf), len(cats))
	}
	return cats, conf, nil
}

func coordinate(v *float64) *core.Coordinate {
	if v == nil {
		return nil
	}
	return core.NewCoordinate(*v)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// defaults supplies the "not provided" answer for accessors a variant has no
// source data for.
type defaults struct{}

func (defaults) Description() string                                    { return core.NotProvided }
func (defaults) MaterialConfidences(context.Context) ([]float64, error) { return nil, nil }
func (defaults) ContextConfidences(context.Context) ([]float64, error)  { return nil, nil }
func (defaults) SpecimenConfidences(context.Context) ([]float64, error) { return nil, nil }
func (defaults) InformalClassification() []string                       { return nil }
func (defaults) Keywords() []core.Keyword                               { return nil }
func (defaults) ProducedByID() string                                   { return core.NotProvided }
func (defaults) ProducedByLabel() string                                { return core.NotProvided }
func (defaults) ProducedByDescription() string                          { return core.NotProvided }
func (defaults) ProducedByFeatureOfInterest() string                    { return core.NotProvided }
func (defaults) ProducedByResponsibilities() []core.Responsibility      { return nil }
func (defaults) ProducedByResultTime() string                           { return core.NotProvided }
func (defaults) SamplingSiteDescription() string                        { return core.NotProvided }
func (defaults) SamplingSiteLabel() string                              { return core.NotProvided }
func (defaults) SamplingSiteElevation() string                          { return core.NotProvided }
func (defaults) SamplingSiteLatitude() *float64                         { return nil }
func (defaults) SamplingSiteLongitude() *float64                        { return nil }
func (defaults) SamplingSitePlaceNames() []string                       { return nil }
func (defaults) Registrant() string                                     { return core.NotProvided }
func (defaults) SamplingPurpose() string                                { return core.NotProvided }
func (defaults) CurationLabel() string                                  { return core.NotProvided }
func (defaults) CurationDescription() string                            { return core.NotProvided }
func (defaults) CurationAccessConstraints() string                      { return core.NotProvided }
func (defaults) CurationLocation() string                               { return core.NotProvided }
func (defaults) CurationResponsibilities() []core.Responsibility        { return nil }
func (defaults) RelatedResources() []core.RelatedResource               { return nil }
func (defaults) AuthorizedBy() []string                                 { return nil }
func (defaults) CompliesWith() []string                                 { return nil }
func (defaults) LastUpdatedTime() *string                               { return nil }

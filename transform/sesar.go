package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/c360studio/isamples/category"
	"github.com/c360studio/isamples/classify"
	"github.com/c360studio/isamples/core"
	"github.com/c360studio/isamples/vocabulary"
)

// FeetPerMeter converts SESAR elevations recorded in feet.
const FeetPerMeter = 3.28084

// sesarDigitalSampleBase prefixes SESAR record ids.
const sesarDigitalSampleBase = "https://data.isamples.org/digitalsample/igsn/"

// excludedSampleTypes are SESAR sample types that describe a place or
// borehole rather than a physical sample.
var excludedSampleTypes = map[string]struct{}{
	"Hole": {},
	"Site": {},
}

// SESAR transforms a SESAR IGSN registry record.
type SESAR struct {
	defaults
	raw  []byte
	doc  gjson.Result
	desc gjson.Result
	supp gjson.Result
	deps Dependencies
	log  *slog.Logger

	predictOnce sync.Once
	predictions []classify.PredictionResult
	predictErr  error
}

// NewSESAR parses a SESAR record.
func NewSESAR(raw []byte, deps Dependencies) (*SESAR, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("sesar record is not valid JSON")
	}
	doc := gjson.ParseBytes(raw)
	if _, ok := text(doc, "igsn"); !ok {
		return nil, fmt.Errorf("sesar record has no igsn")
	}
	desc := doc.Get("description")
	return &SESAR{
		raw:  raw,
		doc:  doc,
		desc: desc,
		supp: desc.Get("supplementMetadata"),
		deps: deps,
		log:  deps.logger().With(slog.String("authority", string(core.AuthoritySESAR))),
	}, nil
}

// NormalizeIGSN strips scheme prefixes and uppercases an IGSN.
func NormalizeIGSN(v string) string {
	v = strings.TrimSpace(v)
	lower := strings.ToLower(v)
	for _, prefix := range []string{"https://doi.org/10.58052/", "http://doi.org/10.58052/", "10.58052/", "https://igsn.org/", "http://igsn.org/", "igsn:", "10273/"} {
		if strings.HasPrefix(lower, prefix) {
			v = v[len(prefix):]
			lower = lower[len(prefix):]
		}
	}
	return strings.ToUpper(v)
}

func (s *SESAR) igsn() string {
	return NormalizeIGSN(s.doc.Get("igsn").String())
}

func (s *SESAR) Authority() core.Authority { return core.AuthoritySESAR }

func (s *SESAR) IDString() string { return sesarDigitalSampleBase + s.igsn() }

func (s *SESAR) SampleIdentifier() string { return "IGSN:" + s.igsn() }

func (s *SESAR) Label() string { return textOr(s.desc, "sampleName", core.NotProvided) }

// Exclusion rejects boreholes and sites.
func (s *SESAR) Exclusion() error {
	sampleType := s.desc.Get("sampleType").String()
	if _, ok := excludedSampleTypes[sampleType]; ok {
		return core.NewExclusionError(fmt.Sprintf("SESAR sampleType %s is not a sample", sampleType))
	}
	return nil
}

func (s *SESAR) material() string {
	return textOr(s.desc, "material", "")
}

// hasMaterial reports whether the record carries a material field, even a
// blank one. Only records without it are sent to the model server.
func (s *SESAR) hasMaterial() bool {
	v := s.desc.Get("material")
	return v.Exists() && v.Type != gjson.Null
}

func (s *SESAR) primaryLocationType() string {
	return textOr(s.supp, "primaryLocationType", "")
}

func (s *SESAR) ContextCategories(ctx context.Context) ([]vocabulary.Term, error) {
	vocab, err := s.deps.Vocabularies.SampledFeature(ctx)
	if err != nil {
		return nil, err
	}
	return category.SESARContext.Categories(vocab, s.material(), s.primaryLocationType()), nil
}

// predict asks the model server for material categories once per
// transformer. Records that name their material are never sent.
func (s *SESAR) predict(ctx context.Context) ([]classify.PredictionResult, error) {
	if s.hasMaterial() || s.deps.Classifier == nil {
		return nil, nil
	}
	s.predictOnce.Do(func() {
		s.predictions, s.predictErr = s.deps.Classifier.SESARMaterial(ctx, json.RawMessage(s.raw))
	})
	return s.predictions, s.predictErr
}

func (s *SESAR) MaterialCategories(ctx context.Context) ([]vocabulary.Term, error) {
	vocab, err := s.deps.Vocabularies.Material(ctx)
	if err != nil {
		return nil, err
	}
	if material := s.material(); material != "" {
		return category.SESARMaterial.Categories(vocab, material, ""), nil
	}
	predictions, err := s.predict(ctx)
	if err != nil {
		return nil, err
	}
	terms := make([]vocabulary.Term, 0, len(predictions))
	for _, p := range predictions {
		terms = append(terms, vocab.TermForLabel(p.Value))
	}
	return terms, nil
}

func (s *SESAR) MaterialConfidences(ctx context.Context) ([]float64, error) {
	predictions, err := s.predict(ctx)
	if err != nil || predictions == nil {
		return nil, err
	}
	conf := make([]float64, len(predictions))
	for i, p := range predictions {
		conf[i] = p.Confidence
	}
	return conf, nil
}

func (s *SESAR) SpecimenCategories(ctx context.Context) ([]vocabulary.Term, error) {
	vocab, err := s.deps.Vocabularies.Specimen(ctx)
	if err != nil {
		return nil, err
	}
	return category.SESARSpecimen.Categories(vocab, textOr(s.desc, "sampleType", ""), ""), nil
}

func (s *SESAR) Keywords() []core.Keyword {
	if sampleType, ok := text(s.desc, "sampleType"); ok {
		return []core.Keyword{{Keyword: sampleType}}
	}
	return nil
}

func (s *SESAR) ProducedByID() string {
	if parent, ok := text(s.desc, "parentIdentifier"); ok {
		return "IGSN:" + NormalizeIGSN(parent)
	}
	return core.NotProvided
}

func (s *SESAR) ProducedByLabel() string {
	return textOr(s.desc, "collectionMethod", core.NotProvided)
}

func (s *SESAR) ProducedByDescription() string {
	var pieces []string
	if v, ok := text(s.supp, "cruiseFieldPrgrm"); ok {
		pieces = append(pieces, "cruiseFieldPrgrm:"+v)
	}
	if v, ok := text(s.supp, "launchPlatformName"); ok {
		pieces = append(pieces, "launchPlatformName:"+v)
	}
	if v, ok := text(s.desc, "collectionMethod"); ok {
		pieces = append(pieces, v)
	}
	if v, ok := text(s.desc, "description"); ok {
		pieces = append(pieces, v)
	}

	var launch []string
	if v, ok := text(s.supp, "launchTypeName"); ok {
		launch = append(launch, "launch type:"+v)
	}
	if v, ok := text(s.supp, "navigationType"); ok {
		launch = append(launch, "navigation type:"+v)
	}
	if len(launch) > 0 {
		pieces = append(pieces, strings.Join(launch, ", "))
	}
	return joinOr(pieces, ". ")
}

func (s *SESAR) ProducedByFeatureOfInterest() string {
	return textOr(s.supp, "primaryLocationType", core.NotProvided)
}

// contributor returns the first contributor name with the given role.
func (s *SESAR) contributor(role string) string {
	for _, c := range s.desc.Get("contributors").Array() {
		if c.Get("roleName").String() == role {
			return c.Get("contributor.0.name").String()
		}
	}
	return ""
}

func (s *SESAR) ProducedByResponsibilities() []core.Responsibility {
	var out []core.Responsibility
	if collector, ok := text(s.desc, "collector"); ok {
		out = append(out, core.Responsibility{Role: "Collector", Name: collector})
	}
	if owner := s.contributor("Sample Owner"); owner != "" {
		out = append(out, core.Responsibility{Role: "Sample Owner", Name: owner})
	}
	return out
}

func (s *SESAR) ProducedByResultTime() string {
	if v, ok := text(s.desc, "collectionStartDate"); ok {
		return v
	}
	return textOr(s.desc, "log.0.timestamp", core.NotProvided)
}

func (s *SESAR) SamplingSiteDescription() string {
	return textOr(s.supp, "locationDescription", core.NotProvided)
}

func (s *SESAR) SamplingSiteLabel() string {
	return textOr(s.supp, "locality", core.NotProvided)
}

// SamplingSiteElevation reports elevation in meters, converting from feet.
// Unknown units are logged and the bare value passed through.
func (s *SESAR) SamplingSiteElevation() string {
	value, ok := text(s.supp, "elevation")
	if !ok {
		return core.NotProvided
	}
	unit := strings.ToLower(strings.TrimSpace(textOr(s.supp, "elevationUnit", "meters")))
	switch unit {
	case "feet":
		feet := parseNumber(value)
		if feet == nil {
			s.log.Error("Elevation in feet is not a number", slog.String("elevation", value))
			return value
		}
		return strconv.FormatFloat(*feet/FeetPerMeter, 'f', -1, 64) + " m"
	case "meters":
		return value + " m"
	default:
		s.log.Error("Received elevation in unexpected unit",
			slog.String("igsn", s.igsn()),
			slog.String("unit", unit))
		return value
	}
}

func (s *SESAR) location() gjson.Result {
	if geo := s.desc.Get("geoLocation"); geo.Exists() {
		return geo.Get("geo.0")
	}
	return s.desc.Get("spatialCoverage.geo.0")
}

func (s *SESAR) SamplingSiteLatitude() *float64 { return number(s.location(), "latitude") }

func (s *SESAR) SamplingSiteLongitude() *float64 { return number(s.location(), "longitude") }

func (s *SESAR) SamplingSitePlaceNames() []string {
	var names []string
	if v, ok := text(s.supp, "primaryLocationName"); ok {
		names = append(names, strings.Split(v, "; ")...)
	}
	for _, key := range []string{"province", "county", "city"} {
		if v, ok := text(s.supp, key); ok {
			names = append(names, v)
		}
	}
	return names
}

func (s *SESAR) Registrant() string {
	if name := s.contributor("Sample Registrant"); name != "" {
		return name
	}
	return core.NotProvided
}

func (s *SESAR) SamplingPurpose() string {
	return textOr(s.desc, "purpose", core.NotProvided)
}

func (s *SESAR) CurationLocation() string {
	return textOr(s.supp, "currentArchive", core.NotProvided)
}

func (s *SESAR) CurationResponsibilities() []core.Responsibility {
	if contact, ok := text(s.supp, "currentArchiveContact"); ok {
		return []core.Responsibility{{Role: "curator", Name: contact}}
	}
	return nil
}

func (s *SESAR) LastUpdatedTime() *string {
	for _, entry := range s.desc.Get("log").Array() {
		if entry.Get("type").String() == "lastUpdated" {
			ts := entry.Get("timestamp").String()
			return &ts
		}
	}
	return nil
}

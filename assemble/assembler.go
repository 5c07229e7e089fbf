// Package assemble flattens canonical sample records into the documents the
// search index consumes.
package assemble

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/c360studio/isamples/core"
	"github.com/c360studio/isamples/geo"
	"github.com/c360studio/isamples/vocabulary"
)

// TimeLayout formats every time field in a search document.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// elevationPattern reads the leading metre value of an elevation string.
var elevationPattern = regexp.MustCompile(`(?i)^\s*(-?\d+\.?\d*)\s*m?`)

// Document is a flat search document keyed by index field name.
type Document map[string]any

// ID returns the document's sample identifier.
func (d Document) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithClock sets the clock used for indexUpdatedTime.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		a.now = now
	}
}

// WithLogger sets the logger for dropped values.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) {
		a.logger = l
	}
}

// Assembler converts canonical records to search documents. It holds no
// per-record state and is safe for concurrent use.
type Assembler struct {
	now    func() time.Time
	logger *slog.Logger
}

// New creates an Assembler.
func New(opts ...Option) *Assembler {
	a := &Assembler{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble flattens rec. Values that are "not provided", blank, or empty
// lists are left out, as are coordinates that are not in-range numbers.
func (a *Assembler) Assemble(rec core.Record, source core.Authority) (Document, error) {
	id := strings.TrimSpace(rec.SampleIdentifier)
	if id == "" || id == core.NotProvided {
		return nil, fmt.Errorf("record %q has no sample identifier", rec.ID)
	}

	d := Document{FieldID: id}
	d.setString(FieldCoreID, rec.ID)
	d.setString(FieldSource, string(source))
	d.setString(FieldLabel, rec.Label)
	d.setString(FieldDescription, rec.Description)

	d.setCategories(FieldContextCategory, FieldContextConfidence, rec.ContextCategories, rec.ContextCategoryConfidences)
	d.setCategories(FieldMaterialCategory, FieldMaterialConfidence, rec.MaterialCategories, rec.MaterialCategoryConfidences)
	d.setCategories(FieldSpecimenCategory, FieldSpecimenConfidence, rec.SpecimenCategories, rec.SpecimenCategoryConfidences)

	keywords := make([]string, 0, len(rec.Keywords))
	for _, k := range rec.Keywords {
		keywords = append(keywords, k.Keyword)
	}
	d.setStrings(FieldKeywords, keywords)
	d.setStrings(FieldInformalClassification, rec.InformalClassification)
	d.setString(FieldRegistrant, rec.Registrant.Name)
	d.setString(FieldSamplingPurpose, rec.SamplingPurpose)
	d.setStrings(FieldAuthorizedBy, rec.AuthorizedBy)
	d.setStrings(FieldCompliesWith, rec.CompliesWith)

	related := make([]string, 0, len(rec.RelatedResources))
	for _, r := range rec.RelatedResources {
		related = append(related, r.Target)
	}
	d.setStrings(FieldRelatedResource, related)

	a.producedBy(d, rec.ProducedBy)
	a.curation(d, rec.Curation)
	d.setSearchText()

	d[FieldIndexUpdatedTime] = a.now().UTC().Format(TimeLayout)
	if rec.LastModifiedTime != nil {
		if t, ok := a.parseTime(*rec.LastModifiedTime); ok {
			d[FieldSourceUpdatedTime] = t
		}
	}
	return d, nil
}

func (a *Assembler) producedBy(d Document, pb core.ProducedBy) {
	d.setString(FieldProducedByID, pb.ID)
	d.setString(FieldProducedByLabel, pb.Label)
	d.setString(FieldProducedByDescription, pb.Description)
	d.setString(FieldProducedByFeatureOfInterest, pb.FeatureOfInterest)
	d.setStrings(FieldProducedByResponsibility, responsibilities(pb.Responsibilities))
	if t, ok := a.parseTime(pb.ResultTime); ok {
		d[FieldProducedByResultTime] = t
	}

	site := pb.SamplingSite
	d.setString(FieldSiteDescription, site.Description)
	d.setString(FieldSiteLabel, site.Label)
	d.setStrings(FieldSitePlaceName, site.PlaceNames)

	if m := elevationPattern.FindStringSubmatch(strings.TrimSpace(site.Location.Elevation)); m != nil {
		if meters, err := strconv.ParseFloat(m[1], 64); err == nil {
			d[FieldSiteElevation] = meters
		}
	}

	lat, latOK := a.coordinate(site.Location.Latitude, "latitude", geo.ValidLatitude)
	lon, lonOK := a.coordinate(site.Location.Longitude, "longitude", geo.ValidLongitude)
	if !latOK || !lonOK {
		return
	}
	d[FieldSiteLatitude] = lat
	d[FieldSiteLongitude] = lon
	d[FieldSiteLatLon] = geo.LatLon(lat, lon)
	d[FieldSiteLL] = geo.LatLon(lat, lon)
	d[FieldSiteRPT] = geo.Point(lat, lon)
	d[FieldSiteBB] = geo.Envelope(lat, lon)
	for field, cell := range geo.Expand(&lat, &lon) {
		d[field] = cell
	}
}

func (a *Assembler) curation(d Document, c core.Curation) {
	d.setString(FieldCurationLabel, c.Label)
	d.setString(FieldCurationDescription, c.Description)
	d.setString(FieldCurationAccessConstraints, c.AccessConstraints)
	d.setString(FieldCurationLocation, c.Location)
	d.setStrings(FieldCurationResponsibility, responsibilities(c.Responsibilities))
}

// coordinate accepts only numbers within range. A boolean passes a naive
// numeric comparison, so the raw JSON type is checked explicitly.
func (a *Assembler) coordinate(c *core.Coordinate, name string, valid func(float64) bool) (float64, bool) {
	if c == nil {
		return 0, false
	}
	v, ok := geo.Coordinate(c.Raw())
	if !ok {
		a.logger.Warn("Non-numeric coordinate dropped", slog.String("axis", name), slog.Any("value", c.Raw()))
		return 0, false
	}
	if !valid(v) {
		a.logger.Error("Invalid coordinate", slog.String("axis", name), slog.Float64("value", v))
		return 0, false
	}
	return v, true
}

// parseTime reads a free-text date. Year-only and year-month values land on
// the first of the period; unparsable values are dropped.
func (a *Assembler) parseTime(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == core.NotProvided {
		return "", false
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		a.logger.Debug("Unparsable date dropped", slog.String("value", raw), slog.String("error", err.Error()))
		return "", false
	}
	return t.UTC().Format(TimeLayout), true
}

func responsibilities(rs []core.Responsibility) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.String())
	}
	return out
}

func (d Document) setString(field, value string) {
	value = strings.TrimSpace(value)
	if value == "" || value == core.NotProvided {
		return
	}
	d[field] = value
}

func (d Document) setStrings(field string, values []string) {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" && v != core.NotProvided {
			out = append(out, v)
		}
	}
	if len(out) > 0 {
		d[field] = out
	}
}

// setCategories writes category labels, and their confidences when the
// record carries a list that lines up with them.
func (d Document) setCategories(field, confidenceField string, terms []vocabulary.Term, confidences []float64) {
	labels := make([]string, 0, len(terms))
	for _, t := range terms {
		labels = append(labels, t.Label)
	}
	d.setStrings(field, labels)
	if _, ok := d[field]; ok && len(confidences) == len(terms) {
		d[confidenceField] = append([]float64(nil), confidences...)
	}
}

// setSearchText joins the free-text fields already in the document.
func (d Document) setSearchText() {
	var parts []string
	for _, field := range []string{FieldLabel, FieldDescription} {
		if v, ok := d[field].(string); ok {
			parts = append(parts, v)
		}
	}
	for _, field := range []string{FieldKeywords, FieldSitePlaceName, FieldInformalClassification} {
		if v, ok := d[field].([]string); ok {
			parts = append(parts, v...)
		}
	}
	if len(parts) > 0 {
		d[FieldSearchText] = strings.Join(parts, " ")
	}
}

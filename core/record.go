package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/c360studio/isamples/vocabulary"
)

// NotProvided is the placeholder for an optional text field the source did not
// supply. It is never mixed with "" for the same field.
const NotProvided = "not provided"

// SchemaName is the $schema value stamped on every canonical record.
const SchemaName = "iSamplesSchemaCore1.0.json"

// H3FieldPrefix prefixes the per-resolution spatial cell fields.
const H3FieldPrefix = "producedBy_samplingSite_location_h3_"

// H3Resolutions is the number of H3 levels carried per record (0 through 15).
const H3Resolutions = 16

// H3Field returns the field name for the cell at the given resolution.
func H3Field(resolution int) string {
	return fmt.Sprintf("%s%d", H3FieldPrefix, resolution)
}

// Record is an iSamples Core canonical sample record.
type Record struct {
	Schema           string `json:"$schema"`
	ID               string `json:"@id"`
	Label            string `json:"label"`
	SampleIdentifier string `json:"sample_identifier"`
	Description      string `json:"description"`

	ContextCategories           []vocabulary.Term `json:"has_context_category"`
	ContextCategoryConfidences  []float64         `json:"has_context_category_confidence,omitempty"`
	MaterialCategories          []vocabulary.Term `json:"has_material_category"`
	MaterialCategoryConfidences []float64         `json:"has_material_category_confidence,omitempty"`
	SpecimenCategories          []vocabulary.Term `json:"has_sample_object_type"`
	SpecimenCategoryConfidences []float64         `json:"has_sample_object_type_confidence,omitempty"`

	InformalClassification []string          `json:"informal_classification"`
	Keywords               []Keyword         `json:"keywords"`
	ProducedBy             ProducedBy        `json:"produced_by"`
	Registrant             Registrant        `json:"registrant"`
	SamplingPurpose        string            `json:"sampling_purpose"`
	Curation               Curation          `json:"curation"`
	RelatedResources       []RelatedResource `json:"related_resource"`
	AuthorizedBy           []string          `json:"authorized_by"`
	CompliesWith           []string          `json:"complies_with"`
	LastModifiedTime       *string           `json:"last_modified_time,omitempty"`

	// H3 holds the cell for each resolution, index-aligned. Empty when the
	// record has no valid location or cells were not requested.
	H3 []string `json:"-"`
}

// ProducedBy describes the sampling event.
type ProducedBy struct {
	ID                string           `json:"@id"`
	Label             string           `json:"label"`
	Description       string           `json:"description"`
	FeatureOfInterest string           `json:"has_feature_of_interest"`
	Responsibilities  []Responsibility `json:"responsibility"`
	ResultTime        string           `json:"result_time"`
	SamplingSite      SamplingSite     `json:"sampling_site"`
}

// SamplingSite is where the sample was collected.
type SamplingSite struct {
	Description string   `json:"description"`
	Label       string   `json:"label"`
	Location    Location `json:"sample_location"`
	PlaceNames  []string `json:"place_name"`
}

// Location is the point location of a sampling site. Elevation is a
// "<value> m" string or NotProvided.
type Location struct {
	Elevation string      `json:"elevation"`
	Latitude  *Coordinate `json:"latitude"`
	Longitude *Coordinate `json:"longitude"`
}

// Registrant is the person who registered the sample.
type Registrant struct {
	Name string `json:"name"`
}

// Curation describes where and how the sample is kept.
type Curation struct {
	Label             string           `json:"label"`
	Description       string           `json:"description"`
	AccessConstraints string           `json:"access_constraints"`
	Location          string           `json:"curation_location"`
	Responsibilities  []Responsibility `json:"responsibility"`
}

// Responsibility is an agent and the role it played.
type Responsibility struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

// String formats the responsibility as "role:name".
func (r Responsibility) String() string {
	return r.Role + ":" + r.Name
}

// RelatedResource links a sample to another identifier.
type RelatedResource struct {
	Label        string `json:"label"`
	Target       string `json:"target"`
	Relationship string `json:"relationship"`
}

// Keyword is a free-text or vocabulary-backed keyword.
type Keyword struct {
	Keyword    string `json:"keyword"`
	KeywordURI string `json:"keyword_uri,omitempty"`
	SchemeName string `json:"scheme_name,omitempty"`
}

// UnmarshalJSON accepts a keyword value that is either a string or an
// {"id", "label"} object. Objects contribute their label, and their id when
// keyword_uri is empty.
func (k *Keyword) UnmarshalJSON(data []byte) error {
	var raw struct {
		Keyword    json.RawMessage `json:"keyword"`
		KeywordURI string          `json:"keyword_uri"`
		SchemeName string          `json:"scheme_name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	k.KeywordURI = raw.KeywordURI
	k.SchemeName = raw.SchemeName
	k.Keyword = ""

	trimmed := bytes.TrimSpace(raw.Keyword)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
	case trimmed[0] == '{':
		var obj struct {
			ID    string `json:"id"`
			Label string `json:"label"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return fmt.Errorf("keyword object: %w", err)
		}
		k.Keyword = obj.Label
		if k.KeywordURI == "" {
			k.KeywordURI = obj.ID
		}
	default:
		if err := json.Unmarshal(trimmed, &k.Keyword); err != nil {
			return fmt.Errorf("keyword value: %w", err)
		}
	}
	return nil
}

// Coordinate is a latitude or longitude exactly as it arrived. Only JSON
// numbers are usable; booleans and strings are kept for round-tripping but
// report as invalid.
type Coordinate struct {
	raw any
}

// NewCoordinate wraps a numeric coordinate.
func NewCoordinate(v float64) *Coordinate {
	return &Coordinate{raw: v}
}

// Float returns the numeric value. ok is false for nil, non-numeric, or NaN
// values.
func (c *Coordinate) Float() (float64, bool) {
	if c == nil {
		return 0, false
	}
	v, ok := c.raw.(float64)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Raw returns the decoded JSON value.
func (c *Coordinate) Raw() any {
	if c == nil {
		return nil
	}
	return c.raw
}

func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.raw)
}

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &c.raw)
}

// MarshalJSON writes the record followed by its flattened H3 fields.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	data, err := json.Marshal(plain(r))
	if err != nil || len(r.H3) == 0 {
		return data, err
	}

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	for res, cell := range r.H3 {
		if cell == "" {
			continue
		}
		fmt.Fprintf(&buf, ",%q:%q", H3Field(res), cell)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a record, collecting any flattened H3 fields.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Record(p)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var cells []string
	for res := 0; res < H3Resolutions; res++ {
		raw, ok := fields[H3Field(res)]
		if !ok {
			continue
		}
		var cell string
		if err := json.Unmarshal(raw, &cell); err != nil {
			return fmt.Errorf("%s: %w", H3Field(res), err)
		}
		if cells == nil {
			cells = make([]string, H3Resolutions)
		}
		cells[res] = cell
	}
	r.H3 = trimTrailingEmpty(cells)
	return nil
}

func trimTrailingEmpty(cells []string) []string {
	end := len(cells)
	for end > 0 && cells[end-1] == "" {
		end--
	}
	if end == 0 {
		return nil
	}
	return cells[:end]
}

// Authority identifies a source registry.
type Authority string

// Supported authorities.
const (
	AuthoritySESAR       Authority = "SESAR"
	AuthorityGEOME       Authority = "GEOME"
	AuthorityOpenContext Authority = "OPENCONTEXT"
	AuthoritySmithsonian Authority = "SMITHSONIAN"
	AuthorityCore        Authority = "CORE"
)

// Authorities lists every authority in a stable order.
func Authorities() []Authority {
	return []Authority{AuthoritySESAR, AuthorityGEOME, AuthorityOpenContext, AuthoritySmithsonian, AuthorityCore}
}

// ParseAuthority resolves an authority name case-insensitively.
func ParseAuthority(s string) (Authority, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for _, a := range Authorities() {
		if string(a) == upper {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown authority %q", s)
}

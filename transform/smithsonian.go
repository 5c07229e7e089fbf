package transform

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/c360studio/isamples/core"
	"github.com/c360studio/isamples/vocabulary"
)

// smithsonianDescriptionKeys are Darwin Core columns folded into the sample
// description.
var smithsonianDescriptionKeys = []string{
	"basisOfRecord",
	"occurrenceRemarks",
	"individualCount",
	"sex",
	"lifeStage",
	"typeStatus",
	"disposition",
	"associatedSequences",
}

// smithsonianContextKeys are the columns sent to the context model, in order.
var smithsonianContextKeys = []string{
	"higherGeography",
	"waterBody",
	"locality",
	"habitat",
	"kingdom",
	"phylum",
	"class",
	"order",
	"family",
	"scientificName",
}

// ReadSmithsonianRows reads a tab-separated Darwin Core export, returning one
// header-keyed map per row.
func ReadSmithsonianRows(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var rows []map[string]string
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(fields) {
				row[strings.TrimSpace(name)] = fields[i]
			}
		}
		rows = append(rows, row)
	}
}

// Smithsonian transforms one row of a Smithsonian Darwin Core export.
type Smithsonian struct {
	defaults
	row  map[string]string
	deps Dependencies
	log  *slog.Logger

	contextOnce sync.Once
	contextURI  string
	contextErr  error
}

// NewSmithsonian wraps a header-keyed row. A row with neither an
// occurrenceID nor an id cannot be identified and is rejected.
func NewSmithsonian(row map[string]string, deps Dependencies) (*Smithsonian, error) {
	s := &Smithsonian{
		row:  row,
		deps: deps,
		log:  deps.logger().With(slog.String("authority", string(core.AuthoritySmithsonian))),
	}
	if s.SampleIdentifier() == "" {
		return nil, fmt.Errorf("smithsonian row has no occurrenceID or id")
	}
	return s, nil
}

// field returns a trimmed column value and whether it is non-empty.
func (s *Smithsonian) field(key string) (string, bool) {
	v := strings.TrimSpace(s.row[key])
	return v, v != ""
}

func (s *Smithsonian) fieldOr(key, fallback string) string {
	if v, ok := s.field(key); ok {
		return v
	}
	return fallback
}

func (s *Smithsonian) Authority() core.Authority { return core.AuthoritySmithsonian }

func (s *Smithsonian) IDString() string { return metadataID(s.SampleIdentifier()) }

// SampleIdentifier is the occurrence ARK, falling back to the row id.
func (s *Smithsonian) SampleIdentifier() string {
	if v, ok := s.field("occurrenceID"); ok {
		return arkFromURL(v)
	}
	return s.fieldOr("id", "")
}

func (s *Smithsonian) Label() string {
	var pieces []string
	if v, ok := s.field("scientificName"); ok {
		pieces = append(pieces, v)
	}
	if v, ok := s.field("catalogNumber"); ok {
		pieces = append(pieces, v)
	}
	return joinOr(pieces, " ")
}

func (s *Smithsonian) Description() string {
	var pieces []string
	for _, key := range smithsonianDescriptionKeys {
		if v, ok := s.field(key); ok {
			pieces = append(pieces, key+": "+v)
		}
	}
	return joinOr(pieces, descriptionSeparator)
}

func (s *Smithsonian) contextInput() []string {
	var input []string
	for _, key := range smithsonianContextKeys {
		if v, ok := s.field(key); ok {
			input = append(input, v)
		}
	}
	return input
}

func (s *Smithsonian) ContextCategories(ctx context.Context) ([]vocabulary.Term, error) {
	vocab, err := s.deps.Vocabularies.SampledFeature(ctx)
	if err != nil {
		return nil, err
	}
	if s.deps.Classifier == nil {
		return nil, nil
	}
	s.contextOnce.Do(func() {
		s.contextURI, s.contextErr = s.deps.Classifier.SmithsonianSampledFeature(ctx, s.contextInput())
	})
	if s.contextErr != nil {
		return nil, s.contextErr
	}
	if s.contextURI == "" {
		return nil, nil
	}
	return []vocabulary.Term{termForPrediction(vocab, s.contextURI)}, nil
}

func (s *Smithsonian) MaterialCategories(ctx context.Context) ([]vocabulary.Term, error) {
	vocab, err := s.deps.Vocabularies.Material(ctx)
	if err != nil {
		return nil, err
	}
	return []vocabulary.Term{vocab.TermForKey("mat:organicmaterial")}, nil
}

// SpecimenCategories is a whole organism unless the preparation is a tissue.
func (s *Smithsonian) SpecimenCategories(ctx context.Context) ([]vocabulary.Term, error) {
	vocab, err := s.deps.Vocabularies.Specimen(ctx)
	if err != nil {
		return nil, err
	}
	if strings.Contains(strings.ToLower(s.row["preparations"]), "tissue") {
		return []vocabulary.Term{vocab.TermForKey("spec:organismpart")}, nil
	}
	return []vocabulary.Term{vocab.TermForKey("spec:wholeorganism")}, nil
}

func (s *Smithsonian) InformalClassification() []string {
	if v, ok := s.field("scientificName"); ok {
		return []string{v}
	}
	return nil
}

func (s *Smithsonian) Keywords() []core.Keyword {
	var out []core.Keyword
	for _, key := range []string{"kingdom", "phylum", "class", "order", "family"} {
		if v, ok := s.field(key); ok {
			out = append(out, core.Keyword{Keyword: v})
		}
	}
	return out
}

func (s *Smithsonian) ProducedByLabel() string {
	return s.fieldOr("fieldNumber", core.NotProvided)
}

func (s *Smithsonian) ProducedByDescription() string {
	var pieces []string
	for _, key := range []string{"samplingProtocol", "verbatimEventDate", "eventRemarks"} {
		if v, ok := s.field(key); ok {
			pieces = append(pieces, key+": "+v)
		}
	}
	return joinOr(pieces, descriptionSeparator)
}

// ProducedByResponsibilities splits recordedBy on "|" or ";".
func (s *Smithsonian) ProducedByResponsibilities() []core.Responsibility {
	recorded, ok := s.field("recordedBy")
	if !ok {
		return nil
	}
	names := []string{recorded}
	switch {
	case strings.Contains(recorded, "|"):
		names = splitNonEmpty(recorded, "|")
	case strings.Contains(recorded, ";"):
		names = splitNonEmpty(recorded, ";")
	}
	out := make([]core.Responsibility, 0, len(names))
	for _, name := range names {
		out = append(out, core.Responsibility{Role: "recorded by", Name: name})
	}
	return out
}

func (s *Smithsonian) ProducedByResultTime() string {
	if v, ok := s.field("eventDate"); ok {
		return v
	}
	return formatDate(s.row["year"], s.row["month"], s.row["day"])
}

func (s *Smithsonian) SamplingSiteDescription() string {
	return s.fieldOr("habitat", core.NotProvided)
}

func (s *Smithsonian) SamplingSiteLabel() string {
	return s.fieldOr("locality", core.NotProvided)
}

func (s *Smithsonian) SamplingSiteElevation() string {
	if v, ok := s.field("minimumElevationInMeters"); ok {
		return v + " m"
	}
	return core.NotProvided
}

func (s *Smithsonian) SamplingSiteLatitude() *float64 {
	return parseNumber(s.row["decimalLatitude"])
}

func (s *Smithsonian) SamplingSiteLongitude() *float64 {
	return parseNumber(s.row["decimalLongitude"])
}

func (s *Smithsonian) SamplingSitePlaceNames() []string {
	var names []string
	for _, key := range []string{"county", "stateProvince", "island", "islandGroup", "waterBody", "country"} {
		if v, ok := s.field(key); ok {
			names = append(names, v)
		}
	}
	return names
}

func (s *Smithsonian) CurationLocation() string {
	var pieces []string
	for _, key := range []string{"institutionCode", "collectionCode"} {
		if v, ok := s.field(key); ok {
			pieces = append(pieces, v)
		}
	}
	return joinOr(pieces, " ")
}

func (s *Smithsonian) CurationResponsibilities() []core.Responsibility {
	if code, ok := s.field("institutionCode"); ok {
		return []core.Responsibility{{Role: "curator", Name: code}}
	}
	return nil
}

func (s *Smithsonian) LastUpdatedTime() *string {
	if v, ok := s.field("modified"); ok {
		return &v
	}
	return nil
}

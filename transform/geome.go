package transform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/c360studio/isamples/classify"
	"github.com/c360studio/isamples/core"
	"github.com/c360studio/isamples/localcontexts"
	"github.com/c360studio/isamples/permit"
	"github.com/c360studio/isamples/taxonomy"
	"github.com/c360studio/isamples/vocabulary"
)

// TissueEntity is the GEOME child entity that becomes its own sample.
const TissueEntity = "Tissue"

// geomeTimeLayout formats a GEOME last-updated time.
const geomeTimeLayout = "2006-01-02T15:04:05-0700"

// Relationships between GEOME samples and their tissue subsamples.
const (
	RelationshipTissueExtract = "tissue extract"
	RelationshipDerivedFrom   = "derived_from"
)

// geomeDescriptionKeys are the main-record fields folded into a sample
// description, in order.
var geomeDescriptionKeys = []string{
	"minimumChronometricAgeReferenceSystem",
	"maximumChronometricAgeReferenceSystem",
	"verbatimAgeValue",
	"ageValue",
	"basisOfRecord",
	"dynamicProperties",
	"establishmentMeans",
	"genbankSpecimenVoucher",
	"identificationRemarks",
	"identificationVerificationStatus",
	"individualCount",
	"morphospeciesDescription",
	"nomenclaturalCode",
	"occurrenceRemarks",
	"organismID",
	"organismQuantity",
	"organismQuantityType",
	"organismRemarks",
	"otherCatalogNumbers",
	"previousIdentifications",
	"taxonRemarks",
	"typeStatus",
	"verbatimLifeStage",
	"weight",
	"weightUnits",
	"lengthUnits",
	"length",
	"sex",
}

// geomeRecord holds the parts of a GEOME document shared by the main sample
// and its tissue children. Field lookups that do not depend on which sample
// is being described live here.
type geomeRecord struct {
	defaults
	doc         gjson.Result
	main        gjson.Result
	parent      gjson.Result
	lastUpdated *time.Time
	deps        Dependencies
	log         *slog.Logger

	kingdomOnce sync.Once
	kingdom     vocabulary.Term
	kingdomErr  error
}

// GEOME transforms the main sample of a GEOME record.
type GEOME struct {
	*geomeRecord
	children []*GEOMEChild
}

// GEOMEChild transforms one tissue subsample of a GEOME record. Fields the
// tissue does not describe come from the main sample's data.
type GEOMEChild struct {
	*geomeRecord
	child gjson.Result
}

// NewGEOME parses a GEOME record and its tissue children. lastUpdated may be
// nil.
func NewGEOME(raw []byte, lastUpdated *time.Time, deps Dependencies) (*GEOME, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("geome record is not valid JSON")
	}
	doc := gjson.ParseBytes(raw)
	main := doc.Get("record")
	if _, ok := text(main, "bcid"); !ok {
		return nil, fmt.Errorf("geome record has no bcid")
	}
	rec := &geomeRecord{
		doc:         doc,
		main:        main,
		parent:      doc.Get("parent"),
		lastUpdated: lastUpdated,
		deps:        deps,
		log:         deps.logger().With(slog.String("authority", string(core.AuthorityGEOME))),
	}
	g := &GEOME{geomeRecord: rec}
	for _, child := range doc.Get("children").Array() {
		if child.Get("entity").String() != TissueEntity {
			continue
		}
		if _, ok := text(child, "bcid"); !ok {
			rec.log.Warn("Skipping tissue without bcid", slog.String("parent", main.Get("bcid").String()))
			continue
		}
		g.children = append(g.children, &GEOMEChild{geomeRecord: rec, child: child})
	}
	return g, nil
}

// Children returns a transformer per tissue subsample.
func (g *GEOME) Children() []Transformer {
	out := make([]Transformer, len(g.children))
	for i, c := range g.children {
		out[i] = c
	}
	return out
}

// ForIdentifier returns the transformer whose sample identifier is id: the
// main sample or one of its tissues.
func (g *GEOME) ForIdentifier(id string) (Transformer, bool) {
	if id == g.SampleIdentifier() {
		return g, true
	}
	for _, c := range g.children {
		if id == c.SampleIdentifier() {
			return c, true
		}
	}
	g.log.Error("No transformer for identifier in GEOME record",
		slog.String("identifier", id),
		slog.String("bcid", g.SampleIdentifier()))
	return nil, false
}

// GEOMEForIdentifier parses raw and resolves id against it.
func GEOMEForIdentifier(raw []byte, id string, deps Dependencies) (Transformer, bool, error) {
	g, err := NewGEOME(raw, nil, deps)
	if err != nil {
		return nil, false, err
	}
	t, ok := g.ForIdentifier(id)
	return t, ok, nil
}

// Shared accessors.

func (r *geomeRecord) Authority() core.Authority { return core.AuthorityGEOME }

// contextTerm resolves the GBIF kingdom into a sampled-feature term. A
// kingdom outside the vocabulary keeps its biology URI; no kingdom falls back
// to the vocabulary root.
func (r *geomeRecord) contextTerm(ctx context.Context) (vocabulary.Term, error) {
	r.kingdomOnce.Do(func() {
		vocab, err := r.deps.Vocabularies.SampledFeature(ctx)
		if err != nil {
			r.kingdomErr = err
			return
		}
		kingdom := ""
		if r.deps.Taxonomy != nil {
			kingdom, err = r.deps.Taxonomy.Kingdom(ctx, taxonomy.Ranks{
				Kingdom: textOr(r.main, "kingdom", ""),
				Phylum:  textOr(r.main, "phylum", ""),
				Genus:   textOr(r.main, "genus", ""),
				Name:    strings.Join(r.InformalClassification(), " "),
			})
			if err != nil {
				r.kingdomErr = err
				return
			}
		}
		if kingdom == "" {
			r.kingdom = vocab.Root()
			return
		}
		uri, ok := classify.SampledFeatureURI(kingdom)
		if !ok {
			r.log.Warn("Kingdom has no sampled feature mapping", slog.String("kingdom", kingdom))
			r.kingdom = vocab.Root()
			return
		}
		if term, ok := vocab.LookupURI(uri); ok {
			r.kingdom = term
			return
		}
		r.kingdom = vocabulary.Term{Label: kingdom, URI: uri}
	})
	return r.kingdom, r.kingdomErr
}

func (r *geomeRecord) ContextCategories(ctx context.Context) ([]vocabulary.Term, error) {
	term, err := r.contextTerm(ctx)
	if err != nil {
		return nil, err
	}
	return []vocabulary.Term{term}, nil
}

func (r *geomeRecord) MaterialCategories(ctx context.Context) ([]vocabulary.Term, error) {
	vocab, err := r.deps.Vocabularies.Material(ctx)
	if err != nil {
		return nil, err
	}
	return []vocabulary.Term{vocab.TermForKey("mat:organicmaterial")}, nil
}

func (r *geomeRecord) InformalClassification() []string {
	if name, ok := text(r.main, "scientificName"); ok {
		return []string{name}
	}
	var pieces []string
	if genus, ok := text(r.main, "genus"); ok {
		pieces = append(pieces, genus)
	}
	if epithet, ok := text(r.main, "specificEpithet"); ok {
		pieces = append(pieces, epithet)
	}
	return pieces
}

// placeNames lists the event's place names from most to least specific.
// general omits the locality.
func (r *geomeRecord) placeNames(general bool) []string {
	var names []string
	keys := []string{"locality", "county", "stateProvince", "island", "islandGroup", "country", "continentOcean"}
	if general {
		keys = keys[1:]
	}
	for _, key := range keys {
		if v, ok := text(r.parent, key); ok {
			names = append(names, v)
		}
	}
	return names
}

func (r *geomeRecord) Keywords() []core.Keyword {
	values := r.placeNames(true)
	if v, ok := text(r.parent, "microHabitat"); ok {
		values = append(values, v)
	}
	for _, key := range []string{"order", "phylum", "family", "class"} {
		if v, ok := text(r.main, key); ok {
			values = append(values, v)
		}
	}
	keywords := make([]core.Keyword, 0, len(values))
	for _, v := range values {
		keywords = append(keywords, core.Keyword{Keyword: v})
	}
	return keywords
}

func (r *geomeRecord) ProducedByID() string {
	return textOr(r.parent, "bcid", core.NotProvided)
}

func (r *geomeRecord) SamplingSiteDescription() string {
	if habitat, ok := text(r.parent, "habitat"); ok {
		return habitat
	}
	if depth, ok := text(r.parent, "depthOfBottomInMeters"); ok {
		return fmt.Sprintf("Depth to bottom %s m", depth)
	}
	return core.NotProvided
}

func (r *geomeRecord) SamplingSiteLabel() string {
	return textOr(r.parent, "locality", core.NotProvided)
}

func (r *geomeRecord) SamplingSiteElevation() string {
	if depth, ok := text(r.parent, "maximumDepthInMeters"); ok {
		return depth + " m"
	}
	return core.NotProvided
}

func (r *geomeRecord) SamplingSiteLatitude() *float64 { return number(r.parent, "decimalLatitude") }

func (r *geomeRecord) SamplingSiteLongitude() *float64 { return number(r.parent, "decimalLongitude") }

func (r *geomeRecord) SamplingSitePlaceNames() []string { return r.placeNames(false) }

func (r *geomeRecord) Registrant() string {
	return textOr(r.main, "sampleEnteredBy", core.NotProvided)
}

func (r *geomeRecord) CurationDescription() string {
	var pieces []string
	pieces = labeled(pieces, r.main, "fixative", "")
	pieces = labeled(pieces, r.main, "preservative", "")
	pieces = labeled(pieces, r.main, "modifiedBy", "record modifiedBy")
	pieces = labeled(pieces, r.main, "modifiedReason", "")

	var identified []string
	if v, ok := text(r.main, "yearIdentified"); ok {
		identified = append(identified, v)
	}
	if v, ok := text(r.main, "monthIdentified"); ok {
		identified = append(identified, pad2(v))
	}
	if v, ok := text(r.main, "dayIdentified"); ok {
		identified = append(identified, pad2(v))
	}
	if len(identified) > 0 {
		pieces = append(pieces, "sample identified: "+strings.Join(identified, "-"))
	}
	return joinOr(pieces, "; ")
}

func (r *geomeRecord) CurationLocation() string {
	return textOr(r.main, "institutionCode", core.NotProvided)
}

func (r *geomeRecord) CurationResponsibilities() []core.Responsibility {
	if code, ok := text(r.main, "institutionCode"); ok {
		return []core.Responsibility{{Role: "curator", Name: code}}
	}
	return nil
}

func (r *geomeRecord) permits() permit.Result {
	return permit.Parse(textOr(r.parent, "permitInformation", ""))
}

func (r *geomeRecord) AuthorizedBy() []string { return r.permits().AuthorizedBy }

// CompliesWith lists the project's Local Contexts reference first, then the
// permit tokens.
func (r *geomeRecord) CompliesWith() []string {
	var out []string
	for _, path := range []string{"localContextsId", "project.localContextsId"} {
		if id, ok := text(r.doc, path); ok {
			out = append(out, localcontexts.CompliesWithToken(id))
			break
		}
	}
	return append(out, r.permits().CompliesWith...)
}

func (r *geomeRecord) LastUpdatedTime() *string {
	if r.lastUpdated == nil {
		return nil
	}
	s := r.lastUpdated.Format(geomeTimeLayout)
	return &s
}

// Main sample.

func (g *GEOME) IDString() string { return metadataID(g.SampleIdentifier()) }

func (g *GEOME) SampleIdentifier() string { return g.main.Get("bcid").String() }

func (g *GEOME) Label() string {
	var pieces []string
	if v, ok := text(g.main, "scientificName"); ok {
		pieces = append(pieces, v)
	}
	if v, ok := text(g.main, "materialSampleID"); ok {
		pieces = append(pieces, v)
	}
	return joinOr(pieces, " ")
}

func (g *GEOME) Description() string {
	var pieces []string
	for _, key := range geomeDescriptionKeys {
		pieces = labeled(pieces, g.main, key, "")
	}
	return joinOr(pieces, descriptionSeparator)
}

func (g *GEOME) SpecimenCategories(ctx context.Context) ([]vocabulary.Term, error) {
	vocab, err := g.deps.Vocabularies.Specimen(ctx)
	if err != nil {
		return nil, err
	}
	return []vocabulary.Term{vocab.TermForKey("spec:wholeorganism")}, nil
}

func (g *GEOME) ProducedByLabel() string {
	var pieces []string
	if v, ok := text(g.parent, "eventID"); ok {
		pieces = append(pieces, v)
	}
	if v, ok := text(g.parent, "expeditionCode"); ok {
		pieces = append(pieces, v)
	}
	return joinOr(pieces, " ")
}

func (g *GEOME) ProducedByDescription() string {
	var pieces []string
	if v, ok := text(g.parent, "eventRemarks"); ok {
		pieces = append(pieces, v)
	}
	pieces = labeled(pieces, g.parent, "samplingProtocol", "")
	pieces = labeled(pieces, g.parent, "permitInformation", "")
	pieces = labeled(pieces, g.parent, "expeditionCode", "")
	pieces = labeled(pieces, g.parent, "taxTeam", "taxonomy team")
	pieces = labeled(pieces, g.parent, "projectId", "")
	return joinOr(pieces, descriptionSeparator)
}

func (g *GEOME) ProducedByFeatureOfInterest() string {
	if v, ok := text(g.parent, "microHabitat"); ok {
		return "microhabitat: " + v
	}
	return core.NotProvided
}

// ProducedByResponsibilities lists collectors, then the event's other agents.
// collectorList is delimited by ", " or "|".
func (g *GEOME) ProducedByResponsibilities() []core.Responsibility {
	var out []core.Responsibility
	if collectors, ok := text(g.parent, "collectorList"); ok {
		sep := ""
		switch {
		case strings.Contains(collectors, ","):
			sep = ","
		case strings.Contains(collectors, "|"):
			sep = "|"
		}
		names := []string{strings.TrimSpace(collectors)}
		if sep != "" {
			names = splitNonEmpty(collectors, sep)
		}
		for _, name := range names {
			out = append(out, core.Responsibility{Role: "Collector", Name: name})
		}
	}
	for _, agent := range []struct{ key, role string }{
		{"principalInvestigator", "principalInvestigator"},
		{"identifiedBy", "identifiedBy"},
		{"taxTeam", "taxonomy team"},
		{"eventEnteredBy", "event registrant"},
	} {
		if v, ok := text(g.parent, agent.key); ok {
			out = append(out, core.Responsibility{Role: agent.role, Name: v})
		}
	}
	return out
}

func (g *GEOME) ProducedByResultTime() string {
	return formatDate(
		textOr(g.parent, "yearCollected", ""),
		textOr(g.parent, "monthCollected", ""),
		textOr(g.parent, "dayCollected", ""),
	)
}

// RelatedResources lists the tissue subsamples.
func (g *GEOME) RelatedResources() []core.RelatedResource {
	out := make([]core.RelatedResource, 0, len(g.children))
	for _, c := range g.children {
		out = append(out, core.RelatedResource{
			Label:        "subsample tissue " + c.Label(),
			Target:       c.SampleIdentifier(),
			Relationship: RelationshipTissueExtract,
		})
	}
	return out
}

// Tissue subsample.

func (c *GEOMEChild) IDString() string { return metadataID(c.SampleIdentifier()) }

func (c *GEOMEChild) SampleIdentifier() string { return c.child.Get("bcid").String() }

func (c *GEOMEChild) Label() string { return textOr(c.child, "tissueID", core.NotProvided) }

func (c *GEOMEChild) SpecimenCategories(ctx context.Context) ([]vocabulary.Term, error) {
	vocab, err := c.deps.Vocabularies.Specimen(ctx)
	if err != nil {
		return nil, err
	}
	return []vocabulary.Term{vocab.TermForKey("spec:organismpart")}, nil
}

func (c *GEOMEChild) ProducedByLabel() string {
	return "tissue subsample from " + textOr(c.main, "materialSampleID", c.main.Get("bcid").String())
}

func (c *GEOMEChild) ProducedByDescription() string {
	return joinOr(labeled(nil, c.child, "tissueCatalogNumber", ""), descriptionSeparator)
}

func (c *GEOMEChild) SamplingPurpose() string { return "genomic analysis" }

func (c *GEOMEChild) CurationLocation() string {
	var pieces []string
	pieces = labeled(pieces, c.child, "tissueWell", "")
	pieces = labeled(pieces, c.child, "tissuePlate", "")
	return joinOr(pieces, ", ")
}

// RelatedResources points back at the main sample.
func (c *GEOMEChild) RelatedResources() []core.RelatedResource {
	return []core.RelatedResource{{
		Label:        "parent sample " + textOr(c.main, "materialSampleID", core.NotProvided),
		Target:       c.main.Get("bcid").String(),
		Relationship: RelationshipDerivedFrom,
	}}
}

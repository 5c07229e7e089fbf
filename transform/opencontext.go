package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/c360studio/isamples/classify"
	"github.com/c360studio/isamples/core"
	"github.com/c360studio/isamples/vocabulary"
)

// GettySchemeName names the Getty Art & Architecture Thesaurus keyword scheme.
const GettySchemeName = "Getty Art & Architecture Thesaurus"

// openContextDescriptionKeys are folded into the description as 'key': value.
var openContextDescriptionKeys = []string{"early bce/ce", "late bce/ce", "updated"}

// openContextSite is the fixed context for OpenContext archaeological samples.
const openContextSite = "sf:pasthumanoccupationsite"

// prediction memoizes one model server call.
type prediction struct {
	once    sync.Once
	results []classify.PredictionResult
	err     error
}

func (p *prediction) get(fn func() ([]classify.PredictionResult, error)) ([]classify.PredictionResult, error) {
	p.once.Do(func() {
		p.results, p.err = fn()
	})
	return p.results, p.err
}

// OpenContext transforms an OpenContext export record. Material and object
// type come from the model server.
type OpenContext struct {
	defaults
	raw  []byte
	doc  gjson.Result
	deps Dependencies
	log  *slog.Logger

	material prediction
	sample   prediction
}

// NewOpenContext parses an OpenContext record.
func NewOpenContext(raw []byte, deps Dependencies) (*OpenContext, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("opencontext record is not valid JSON")
	}
	doc := gjson.ParseBytes(raw)
	if _, ok := text(doc, "citation uri"); !ok {
		return nil, fmt.Errorf("opencontext record has no citation uri")
	}
	return &OpenContext{
		raw:  raw,
		doc:  doc,
		deps: deps,
		log:  deps.logger().With(slog.String("authority", string(core.AuthorityOpenContext))),
	}, nil
}

func (o *OpenContext) Authority() core.Authority { return core.AuthorityOpenContext }

func (o *OpenContext) IDString() string { return metadataID(o.SampleIdentifier()) }

func (o *OpenContext) SampleIdentifier() string {
	return arkFromURL(o.doc.Get("citation uri").String())
}

func (o *OpenContext) Label() string { return textOr(o.doc, "label", core.NotProvided) }

// labels returns the labels of a list of {id, label} objects.
func (o *OpenContext) labels(key string) []string {
	var out []string
	for _, item := range o.doc.Get(gjson.Escape(key)).Array() {
		if label, ok := text(item, "label"); ok {
			out = append(out, label)
		}
	}
	return out
}

func (o *OpenContext) Description() string {
	var pieces []string
	for _, key := range openContextDescriptionKeys {
		if v, ok := text(o.doc, gjson.Escape(key)); ok {
			pieces = append(pieces, fmt.Sprintf("'%s': %s", key, v))
		}
	}
	if consists := o.labels("Consists of"); len(consists) > 0 {
		pieces = append(pieces, fmt.Sprintf("'Consists of': %s", strings.Join(consists, ", ")))
	}
	return joinOr(pieces, descriptionSeparator)
}

func (o *OpenContext) ContextCategories(ctx context.Context) ([]vocabulary.Term, error) {
	vocab, err := o.deps.Vocabularies.SampledFeature(ctx)
	if err != nil {
		return nil, err
	}
	return []vocabulary.Term{vocab.TermForKey(openContextSite)}, nil
}

func (o *OpenContext) predictMaterial(ctx context.Context) ([]classify.PredictionResult, error) {
	if o.deps.Classifier == nil {
		return nil, nil
	}
	return o.material.get(func() ([]classify.PredictionResult, error) {
		return o.deps.Classifier.OpenContextMaterial(ctx, json.RawMessage(o.raw))
	})
}

func (o *OpenContext) predictSample(ctx context.Context) ([]classify.PredictionResult, error) {
	if o.deps.Classifier == nil {
		return nil, nil
	}
	return o.sample.get(func() ([]classify.PredictionResult, error) {
		return o.deps.Classifier.OpenContextSample(ctx, json.RawMessage(o.raw))
	})
}

func predictedTerms(vocab *vocabulary.Vocabulary, results []classify.PredictionResult) []vocabulary.Term {
	terms := make([]vocabulary.Term, 0, len(results))
	for _, r := range results {
		terms = append(terms, termForPrediction(vocab, r.Value))
	}
	return terms
}

func predictedConfidences(results []classify.PredictionResult) []float64 {
	if results == nil {
		return nil
	}
	conf := make([]float64, len(results))
	for i, r := range results {
		conf[i] = r.Confidence
	}
	return conf
}

func (o *OpenContext) MaterialCategories(ctx context.Context) ([]vocabulary.Term, error) {
	vocab, err := o.deps.Vocabularies.Material(ctx)
	if err != nil {
		return nil, err
	}
	results, err := o.predictMaterial(ctx)
	if err != nil {
		return nil, err
	}
	return predictedTerms(vocab, results), nil
}

func (o *OpenContext) MaterialConfidences(ctx context.Context) ([]float64, error) {
	results, err := o.predictMaterial(ctx)
	return predictedConfidences(results), err
}

func (o *OpenContext) SpecimenCategories(ctx context.Context) ([]vocabulary.Term, error) {
	vocab, err := o.deps.Vocabularies.Specimen(ctx)
	if err != nil {
		return nil, err
	}
	results, err := o.predictSample(ctx)
	if err != nil {
		return nil, err
	}
	return predictedTerms(vocab, results), nil
}

func (o *OpenContext) SpecimenConfidences(ctx context.Context) ([]float64, error) {
	results, err := o.predictSample(ctx)
	return predictedConfidences(results), err
}

func (o *OpenContext) InformalClassification() []string {
	return o.labels("Has taxonomic identifier")
}

// Keywords are the Getty material terms the sample consists of.
func (o *OpenContext) Keywords() []core.Keyword {
	var out []core.Keyword
	for _, item := range o.doc.Get(gjson.Escape("Consists of")).Array() {
		label, ok := text(item, "label")
		if !ok {
			continue
		}
		out = append(out, core.Keyword{
			Keyword:    label,
			KeywordURI: item.Get("id").String(),
			SchemeName: GettySchemeName,
		})
	}
	return out
}

func (o *OpenContext) ProducedByLabel() string {
	return textOr(o.doc, gjson.Escape("project label"), core.NotProvided)
}

func (o *OpenContext) ProducedByDescription() string {
	return textOr(o.doc, gjson.Escape("project href"), core.NotProvided)
}

func (o *OpenContext) ProducedByResponsibilities() []core.Responsibility {
	var out []core.Responsibility
	for _, name := range o.labels("Creator") {
		out = append(out, core.Responsibility{Role: "creator", Name: name})
	}
	return out
}

func (o *OpenContext) ProducedByResultTime() string {
	return textOr(o.doc, "published", core.NotProvided)
}

func (o *OpenContext) SamplingSiteDescription() string {
	return textOr(o.doc, gjson.Escape("context href"), core.NotProvided)
}

func (o *OpenContext) SamplingSiteLabel() string {
	return textOr(o.doc, gjson.Escape("context label"), core.NotProvided)
}

// SamplingSitePlaceNames splits the "/"-delimited context path.
func (o *OpenContext) SamplingSitePlaceNames() []string {
	if label, ok := text(o.doc, gjson.Escape("context label")); ok {
		return splitNonEmpty(label, "/")
	}
	return nil
}

func (o *OpenContext) SamplingSiteLatitude() *float64 { return number(o.doc, "latitude") }

func (o *OpenContext) SamplingSiteLongitude() *float64 { return number(o.doc, "longitude") }

func (o *OpenContext) LastUpdatedTime() *string {
	if v, ok := text(o.doc, "updated"); ok {
		return &v
	}
	return nil
}

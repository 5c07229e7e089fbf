package classify

import (
	"github.com/c360studio/isamples/vocabulary"
)

// The deployed models predate the 1.0 vocabulary URIs and retraining them is
// expensive, so their labels are translated to URIs here.

const (
	materialNS       = "https://w3id.org/isample/vocabulary/material/1.0/"
	sampleNS         = "https://w3id.org/isample/vocabulary/materialsampleobjecttype/1.0/"
	ocMaterialNS     = "https://w3id.org/isample/opencontext/material/0.1/"
	ocSampleNS       = "https://w3id.org/isample/opencontext/materialsampleobjecttype/0.1/"
	sampledFeatureNS = "https://w3id.org/isample/vocabulary/sampledfeature/1.0/"
)

var materialCategoryURIs = map[string]string{
	"natural solid material":         materialNS + "earthmaterial",
	"organic material":               materialNS + "organicmaterial",
	"rock":                           materialNS + "rock",
	"sediment":                       materialNS + "sediment",
	"mixed soil":                     materialNS + "mixedsoilsedimentrock",
	"biogenicnonorganicmaterial":     materialNS + "biogenicnonorganicmaterial",
	"material":                       materialNS + "material",
	"mineral":                        materialNS + "mineral",
	"biogenic non-organic material":  materialNS + "biogenicnonorganicmaterial",
	"mat:rock":                       materialNS + "rock",
	"mat:biogenicnonorganicmaterial": materialNS + "biogenicnonorganicmaterial",
	"mat:anthropogenicmetal":         materialNS + "anthropogenicmetal",
	"ocmat:ceramicclay":              ocMaterialNS + "ceramicclay",
	"not provided":                   materialNS + "material",
	"soil":                           materialNS + "soil",
	"organicmaterial":                materialNS + "organicmaterial",
	"liquid water":                   materialNS + "liquidwater",
	"anyanthropogenicmaterial":       materialNS + "anyanthropogenicmaterial",
	"anthropogenic metal":            materialNS + "anthropogenicmetal",
	"gaseous material":               materialNS + "gas",
	"anthropogenic material":         materialNS + "anyanthropogenicmaterial",
	"anthropogenicmetal":             materialNS + "anthropogenicmetal",
	"ocmat:organicanimalproduct":     ocMaterialNS + "organicanimalproduct",
	"biogenic non organic material":  materialNS + "biogenicnonorganicmaterial",
	"particulate":                    materialNS + "particulate",
	"non-aqueous liquid material":    materialNS + "nonaqueousliquid",
	"ice":                            materialNS + "anyice",
	"ocmat:plantmaterial":            ocMaterialNS + "plantmaterial",
}

var materialSampleURIs = map[string]string{
	"other solid object":      sampleNS + "othersolidobject",
	"container":               ocSampleNS + "containerobject",
	"ornament":                ocSampleNS + "ornament",
	"architectural element":   ocSampleNS + "architecturalelement",
	"organism part":           sampleNS + "organismpart",
	"whole organism":          sampleNS + "wholeorganism",
	"physicalspecimen":        sampleNS + "materialsample",
	"artifact":                sampleNS + "artifact",
	"aggregation":             sampleNS + "genericaggregation",
	"not provided":            sampleNS + "materialsample",
	"biologicalspecimen":      sampleNS + "biologicalmaterialsample",
	"analytical preparation":  sampleNS + "analyticalpreparation",
	"tile":                    ocSampleNS + "tile",
	"whole organism specimen": sampleNS + "wholeorganism",
	"":                        sampleNS + "materialsample",
	"clothing":                ocSampleNS + "clothing",
	"fluid in container":      sampleNS + "fluidincontainer",
	"organismproduct":         sampleNS + "organismproduct",
	"organismpart":            sampleNS + "organismpart",
	"experiment product":      sampleNS + "experimentalproduct",
	"biome aggregation":       sampleNS + "biomeaggregation",
	"biomeaggregation":        sampleNS + "biomeaggregation",
	"domestic item":           ocSampleNS + "domesticitem",
	"wholeorganism":           sampleNS + "wholeorganism",
	"biological specimen":     sampleNS + "biologicalmaterialsample",
	"organism product":        sampleNS + "organismproduct",
	"physical specimen":       sampleNS + "materialsample",
}

var sampledFeatureURIs = map[string]string{
	"Animalia":     vocabulary.BioSampledFeatureNS + "Animalia",
	"Plantae":      vocabulary.BioSampledFeatureNS + "Plantae",
	"Fungi":        vocabulary.BioSampledFeatureNS + "Fungi",
	"Bacteria":     vocabulary.BioSampledFeatureNS + "Bacteria",
	"Archaea":      vocabulary.BioSampledFeatureNS + "Archaea",
	"Protozoa":     vocabulary.BioSampledFeatureNS + "Protozoa",
	"Chromista":    vocabulary.BioSampledFeatureNS + "Chromista",
	"Viruses":      vocabulary.BioSampledFeatureNS + "Viruses",
	"not provided": sampledFeatureNS + "anysampledfeature",
}

// MaterialURI maps a material model label to its vocabulary URI.
func MaterialURI(label string) (string, bool) {
	return lookup(materialCategoryURIs, label)
}

// MaterialSampleURI maps a sample-type model label to its vocabulary URI.
func MaterialSampleURI(label string) (string, bool) {
	return lookup(materialSampleURIs, label)
}

// SampledFeatureURI maps a context label or a GBIF kingdom name, as GBIF
// capitalizes it, to its vocabulary URI.
func SampledFeatureURI(label string) (string, bool) {
	return lookup(sampledFeatureURIs, label)
}

// lookup matches labels exactly; the models emit the keys verbatim.
func lookup(m map[string]string, label string) (string, bool) {
	uri, ok := m[label]
	return uri, ok
}

package vocabulary

// Top-level concept URIs for each vocabulary.
const (
	MaterialURI         = "https://w3id.org/isample/vocabulary/material/1.0/material"
	SpecimenURI         = "https://w3id.org/isample/vocabulary/materialsampleobjecttype/1.0/materialsample"
	SampledFeatureURI   = "https://w3id.org/isample/vocabulary/sampledfeature/1.0/anysampledfeature"
	BioSampledFeatureNS = "https://w3id.org/isample/biology/biosampledfeature/1.0/"
)

// Key prefixes for each vocabulary.
const (
	MaterialPrefix       = "mat"
	SpecimenPrefix       = "spec"
	SampledFeaturePrefix = "sf"
)

// Kind names one of the three vocabularies.
type Kind string

// Vocabulary kinds.
const (
	KindMaterial       Kind = "material"
	KindSpecimen       Kind = "specimen"
	KindSampledFeature Kind = "sampledfeature"
)

// Kinds lists the vocabulary kinds in load order.
func Kinds() []Kind {
	return []Kind{KindMaterial, KindSpecimen, KindSampledFeature}
}

// URI returns the top-level concept URI for the kind.
func (k Kind) URI() string {
	switch k {
	case KindMaterial:
		return MaterialURI
	case KindSpecimen:
		return SpecimenURI
	case KindSampledFeature:
		return SampledFeatureURI
	}
	return ""
}

// Prefix returns the key prefix for the kind.
func (k Kind) Prefix() string {
	switch k {
	case KindMaterial:
		return MaterialPrefix
	case KindSpecimen:
		return SpecimenPrefix
	case KindSampledFeature:
		return SampledFeaturePrefix
	}
	return ""
}

// Package vocabulary loads the iSamples controlled vocabularies (material,
// specimen type, and sampled feature) from a term repository and resolves
// namespaced keys, labels, and URIs to canonical terms.
//
// Every lookup falls back to the vocabulary's root term, so a miss degrades a
// category to its most general concept rather than failing a record.
//
// Vocabularies are held by a Set that is constructed once per process and
// passed to transformers:
//
//	set := vocabulary.NewSet(vocabulary.NewHTTPSource(repoURL))
//	material, err := set.Material(ctx)
//	term := material.TermForKey("mat:rock")
package vocabulary

package vocabulary

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
)

// Vocabulary is a flattened controlled-vocabulary tree. It is immutable once
// parsed and safe for concurrent use.
type Vocabulary struct {
	prefix string
	root   Term
	terms  []Term

	byKey   map[string]Term
	byName  map[string]Term
	byLabel map[string]Term
	byURI   map[string]Term
	logger  *slog.Logger
}

// Option configures a Vocabulary.
type Option func(*Vocabulary)

// WithLogger sets the logger used to report lookup misses.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Vocabulary) {
		v.logger = logger
	}
}

// Parse builds a vocabulary from the term repository's nested JSON form:
//
//	{"<uri>": {"label": {"en": "..."}, "children": [{"<uri>": {...}}, ...]}}
//
// Nodes are visited depth-first in document order; the first node visited
// becomes the root term.
func Parse(data []byte, prefix string, opts ...Option) (*Vocabulary, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("vocabulary: invalid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, errors.New("vocabulary: top level must be an object")
	}

	v := &Vocabulary{
		prefix:  prefix,
		byKey:   make(map[string]Term),
		byName:  make(map[string]Term),
		byLabel: make(map[string]Term),
		byURI:   make(map[string]Term),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}

	v.walk(doc)
	if len(v.terms) == 0 {
		return nil, fmt.Errorf("vocabulary %q: no terms", prefix)
	}
	v.root = v.terms[0]
	return v, nil
}

func (v *Vocabulary) walk(node gjson.Result) {
	node.ForEach(func(key, value gjson.Result) bool {
		uri := key.String()
		name := uri[strings.LastIndex(uri, "/")+1:]
		label := value.Get("label.en").String()
		if label == "" {
			label = name
		}
		v.add(Term{Key: v.prefix + ":" + name, Label: label, URI: uri})

		value.Get("children").ForEach(func(_, child gjson.Result) bool {
			v.walk(child)
			return true
		})
		return true
	})
}

func (v *Vocabulary) add(term Term) {
	if _, seen := v.byURI[term.URI]; seen {
		return
	}
	v.terms = append(v.terms, term)
	v.byURI[term.URI] = term
	putFirst(v.byKey, strings.ToLower(term.Key), term)
	putFirst(v.byName, strings.ToLower(term.Key[len(v.prefix)+1:]), term)
	putFirst(v.byLabel, strings.ToLower(term.Label), term)
}

func putFirst(m map[string]Term, k string, term Term) {
	if _, ok := m[k]; !ok {
		m[k] = term
	}
}

// Prefix returns the key prefix ("mat", "spec", or "sf").
func (v *Vocabulary) Prefix() string {
	return v.prefix
}

// Root returns the most general term of the vocabulary.
func (v *Vocabulary) Root() Term {
	return v.root
}

// Terms returns every term in visit order.
func (v *Vocabulary) Terms() []Term {
	out := make([]Term, len(v.terms))
	copy(out, v.terms)
	return out
}

// LookupKey finds a term by namespaced key, then by bare name, without
// falling back.
func (v *Vocabulary) LookupKey(key string) (Term, bool) {
	lower := strings.ToLower(strings.TrimSpace(key))
	if term, ok := v.byKey[lower]; ok {
		return term, true
	}
	if i := strings.LastIndex(lower, ":"); i >= 0 {
		lower = lower[i+1:]
	}
	term, ok := v.byName[lower]
	return term, ok
}

// LookupLabel finds a term by label, ignoring case.
func (v *Vocabulary) LookupLabel(label string) (Term, bool) {
	term, ok := v.byLabel[strings.ToLower(strings.TrimSpace(label))]
	return term, ok
}

// LookupURI finds a term by exact URI.
func (v *Vocabulary) LookupURI(uri string) (Term, bool) {
	term, ok := v.byURI[strings.TrimSpace(uri)]
	return term, ok
}

// TermForKey resolves a key such as "mat:rock" or "rock". Unknown keys
// resolve to the root term.
func (v *Vocabulary) TermForKey(key string) Term {
	if term, ok := v.LookupKey(key); ok {
		return term
	}
	return v.miss("key", key)
}

// TermForLabel resolves a label such as "Rock". Unknown labels resolve to the
// root term.
func (v *Vocabulary) TermForLabel(label string) Term {
	if term, ok := v.LookupLabel(label); ok {
		return term
	}
	return v.miss("label", label)
}

// TermForURI resolves a concept URI. Unknown URIs resolve to the root term.
func (v *Vocabulary) TermForURI(uri string) Term {
	if term, ok := v.LookupURI(uri); ok {
		return term
	}
	return v.miss("uri", uri)
}

func (v *Vocabulary) miss(by, value string) Term {
	v.logger.Warn("Vocabulary lookup missed, using root term",
		slog.String("vocabulary", v.prefix),
		slog.String("by", by),
		slog.String("value", value),
		slog.String("root", v.root.Key))
	return v.root
}

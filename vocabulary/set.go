package vocabulary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Set holds the three vocabularies for the lifetime of a process. Each
// vocabulary is fetched on first use; concurrent first callers wait for the
// single in-flight fetch. A failed fetch is not cached, so the next caller
// tries again.
type Set struct {
	source Source
	logger *slog.Logger

	mu      sync.Mutex
	entries map[Kind]*entry
}

type entry struct {
	mu    sync.Mutex
	vocab *Vocabulary
}

// SetOption configures a Set.
type SetOption func(*Set)

// WithSetLogger sets the logger handed to every loaded vocabulary.
func WithSetLogger(logger *slog.Logger) SetOption {
	return func(s *Set) {
		s.logger = logger
	}
}

// NewSet creates a lazily loaded set backed by source.
func NewSet(source Source, opts ...SetOption) *Set {
	s := &Set{
		source:  source,
		logger:  slog.Default(),
		entries: make(map[Kind]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSetFromVocabularies creates a set with every vocabulary already loaded.
func NewSetFromVocabularies(material, specimen, sampledFeature *Vocabulary) *Set {
	s := NewSet(nil)
	s.entries[KindMaterial] = &entry{vocab: material}
	s.entries[KindSpecimen] = &entry{vocab: specimen}
	s.entries[KindSampledFeature] = &entry{vocab: sampledFeature}
	return s
}

// Get returns the vocabulary of the given kind, loading it if needed.
func (s *Set) Get(ctx context.Context, kind Kind) (*Vocabulary, error) {
	if kind.URI() == "" {
		return nil, fmt.Errorf("unknown vocabulary kind %q", kind)
	}

	s.mu.Lock()
	e, ok := s.entries[kind]
	if !ok {
		e = &entry{}
		s.entries[kind] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.vocab != nil {
		return e.vocab, nil
	}
	if s.source == nil {
		return nil, errors.New("vocabulary set has no source")
	}

	data, err := s.source.Fetch(ctx, kind.URI())
	if err != nil {
		return nil, fmt.Errorf("load %s vocabulary: %w", kind, err)
	}
	vocab, err := Parse(data, kind.Prefix(), WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("load %s vocabulary: %w", kind, err)
	}
	s.logger.Debug("Loaded vocabulary",
		slog.String("kind", string(kind)),
		slog.Int("terms", len(vocab.terms)))
	e.vocab = vocab
	return vocab, nil
}

// Material returns the material vocabulary.
func (s *Set) Material(ctx context.Context) (*Vocabulary, error) {
	return s.Get(ctx, KindMaterial)
}

// Specimen returns the specimen (material sample object type) vocabulary.
func (s *Set) Specimen(ctx context.Context) (*Vocabulary, error) {
	return s.Get(ctx, KindSpecimen)
}

// SampledFeature returns the sampled feature (context) vocabulary.
func (s *Set) SampledFeature(ctx context.Context) (*Vocabulary, error) {
	return s.Get(ctx, KindSampledFeature)
}

package category

import (
	"strings"

	"github.com/c360studio/isamples/vocabulary"
)

// Mapper matches a source value, plus an optional auxiliary value, to a
// vocabulary key.
type Mapper interface {
	Match(value, auxiliary string) (key string, ok bool)
}

type equalsMapper struct {
	key    string
	values map[string]struct{}
}

// Equals matches when the value is exactly one of values. Matching is case
// sensitive, since source vocabularies are matched verbatim.
func Equals(key string, values ...string) Mapper {
	m := &equalsMapper{key: key, values: make(map[string]struct{}, len(values))}
	for _, v := range values {
		m.values[v] = struct{}{}
	}
	return m
}

func (m *equalsMapper) Match(value, _ string) (string, bool) {
	if _, ok := m.values[value]; ok {
		return m.key, true
	}
	return "", false
}

type endsWithMapper struct {
	key    string
	suffix string
}

// EndsWith matches when the value ends with suffix.
func EndsWith(key, suffix string) Mapper {
	return &endsWithMapper{key: key, suffix: suffix}
}

func (m *endsWithMapper) Match(value, _ string) (string, bool) {
	if value != "" && strings.HasSuffix(value, m.suffix) {
		return m.key, true
	}
	return "", false
}

type pairedMapper struct {
	key       string
	primary   string
	auxiliary string
}

// Paired matches when the value equals primary exactly and the auxiliary value
// contains auxiliary, ignoring case. An empty primary only matches an empty
// value.
func Paired(key, primary, auxiliary string) Mapper {
	return &pairedMapper{key: key, primary: primary, auxiliary: strings.ToLower(auxiliary)}
}

func (m *pairedMapper) Match(value, auxiliary string) (string, bool) {
	if value != m.primary || auxiliary == "" {
		return "", false
	}
	if strings.Contains(strings.ToLower(auxiliary), m.auxiliary) {
		return m.key, true
	}
	return "", false
}

type orderedMapper struct {
	mappers []Mapper
}

// Ordered tries mappers in sequence and returns the first match.
func Ordered(mappers ...Mapper) Mapper {
	return &orderedMapper{mappers: mappers}
}

func (m *orderedMapper) Match(value, auxiliary string) (string, bool) {
	for _, mapper := range m.mappers {
		if key, ok := mapper.Match(value, auxiliary); ok {
			return key, true
		}
	}
	return "", false
}

// MetaMapper runs every mapper group and collects their matches.
type MetaMapper struct {
	groups []Mapper
}

// NewMetaMapper creates a MetaMapper over groups, in order.
func NewMetaMapper(groups ...Mapper) *MetaMapper {
	return &MetaMapper{groups: groups}
}

// Keys returns the distinct keys matched by the groups, in group order.
func (m *MetaMapper) Keys(value, auxiliary string) []string {
	var keys []string
	seen := make(map[string]struct{})
	for _, group := range m.groups {
		key, ok := group.Match(value, auxiliary)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// Categories resolves the matched keys against vocab. The result is empty
// when no group matched; callers choose the fallback.
func (m *MetaMapper) Categories(vocab *vocabulary.Vocabulary, value, auxiliary string) []vocabulary.Term {
	keys := m.Keys(value, auxiliary)
	if len(keys) == 0 {
		return nil
	}
	terms := make([]vocabulary.Term, 0, len(keys))
	for _, key := range keys {
		terms = append(terms, vocab.TermForKey(key))
	}
	return terms
}

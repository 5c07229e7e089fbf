package vocabulary

import "strings"

// Term is a single controlled-vocabulary concept. Key is the namespaced
// "<prefix>:<name>" form and is not serialized.
type Term struct {
	Key   string `json:"-"`
	Label string `json:"label"`
	URI   string `json:"identifier,omitempty"`
}

// Equal compares terms case-insensitively on key and label.
func (t Term) Equal(other Term) bool {
	return strings.EqualFold(t.Key, other.Key) && strings.EqualFold(t.Label, other.Label)
}

// IsZero reports whether the term is empty.
func (t Term) IsZero() bool {
	return t.Key == "" && t.Label == "" && t.URI == ""
}

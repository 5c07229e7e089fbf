package transform

import (
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/c360studio/isamples/core"
	"github.com/c360studio/isamples/vocabulary"
)

// descriptionSeparator joins the pieces of a composed description.
const descriptionSeparator = " | "

const arkPrefix = "ark:/"

// text returns the value at path as a string. It reports false when the
// value is absent, null, or blank.
func text(r gjson.Result, p string) (string, bool) {
	v := r.Get(p)
	if !v.Exists() || v.Type == gjson.Null {
		return "", false
	}
	s := v.String()
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// textOr returns the value at path, or fallback when it is missing.
func textOr(r gjson.Result, p, fallback string) string {
	if s, ok := text(r, p); ok {
		return s
	}
	return fallback
}

// number reads a JSON number or numeric string. Booleans, objects, and
// unparsable strings yield nil.
func number(r gjson.Result, p string) *float64 {
	v := r.Get(p)
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// parseNumber is number for a plain string value.
func parseNumber(s string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// labeled appends "label: value" for key when r has a value there. An empty
// label uses the key.
func labeled(pieces []string, r gjson.Result, key, label string) []string {
	v, ok := text(r, key)
	if !ok {
		return pieces
	}
	if label == "" {
		label = key
	}
	return append(pieces, label+": "+v)
}

// joinOr joins pieces with sep, or returns core.NotProvided when there are
// none.
func joinOr(pieces []string, sep string) string {
	if len(pieces) == 0 {
		return core.NotProvided
	}
	return strings.Join(pieces, sep)
}

// formatDate joins year, month, and day into an ISO date, zero-padding the
// month and day. A missing year yields core.NotProvided.
func formatDate(year, month, day string) string {
	year = strings.TrimSpace(year)
	if year == "" {
		return core.NotProvided
	}
	out := year
	month = strings.TrimSpace(month)
	if month == "" {
		return out
	}
	out += "-" + pad2(month)
	day = strings.TrimSpace(day)
	if day == "" {
		return out
	}
	return out + "-" + pad2(day)
}

func pad2(s string) string {
	if n, err := strconv.Atoi(s); err == nil {
		return fmt.Sprintf("%02d", n)
	}
	return s
}

// arkFromURL strips a resolver host from an ARK URL, returning "ark:/...".
func arkFromURL(u string) string {
	if i := strings.Index(u, arkPrefix); i >= 0 {
		return u[i:]
	}
	return u
}

// metadataID is the record id for an ARK identifier.
func metadataID(ark string) string {
	return "metadata/" + strings.TrimPrefix(ark, arkPrefix)
}

// splitNonEmpty splits s on sep, trimming each part and dropping blanks.
func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// termForPrediction resolves a model prediction. Values are URIs after label
// mapping, or labels when the model's label had no mapping. A URI outside
// the vocabulary is kept as is, labelled by its last path segment.
func termForPrediction(vocab *vocabulary.Vocabulary, value string) vocabulary.Term {
	if term, ok := vocab.LookupURI(value); ok {
		return term
	}
	if term, ok := vocab.LookupLabel(value); ok {
		return term
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return vocabulary.Term{Label: path.Base(value), URI: value}
	}
	return vocab.TermForLabel(value)
}

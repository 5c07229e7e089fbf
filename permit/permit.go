// Package permit extracts "authorized by" and "complies with" tokens from the
// free-text permit statements collectors attach to GEOME events.
//
// Parsing is an ordered rule table. The first rule whose predicate accepts the
// text produces the result; the order is policy and must not be rearranged.
//
//  1. structured:  "complies_with: X authorized_by: Y" in either order
//  2. no data:     "na", "unknown", "none_required", ... yield nothing
//  3. single "/":  "DAFF/DEA" splits on "/" when there are no spaces
//  4. many "/":    split on " and " or ", " unless there are several commas
//  5. "; ":        split on "; " unless there are several commas
//  6. otherwise the whole text is one authorizing body
package permit

import (
	"regexp"
	"strings"
)

// Result holds the parsed tokens. Free-text rules only ever fill
// AuthorizedBy.
type Result struct {
	AuthorizedBy []string
	CompliesWith []string
}

type rule struct {
	name  string
	match func(text string) bool
	apply func(text string) Result
}

var (
	compliesFirst   = regexp.MustCompile(`(?is)^\s*complies[\s_-]*with\s*[:=]\s*(.*?)[\s,;|]*authori[sz]ed[\s_-]*by\s*[:=]\s*(.*?)\s*$`)
	authorizedFirst = regexp.MustCompile(`(?is)^\s*authori[sz]ed[\s_-]*by\s*[:=]\s*(.*?)[\s,;|]*complies[\s_-]*with\s*[:=]\s*(.*?)\s*$`)
	structuredSplit = regexp.MustCompile(`\s*[,;|]\s*`)
	andOrComma      = regexp.MustCompile(`\s+and\s+|,\s+`)
)

// noData are permit texts that say nothing about a permit.
var noData = map[string]struct{}{
	"":                   {},
	"na":                 {},
	"n/a":                {},
	"n.a.":               {},
	"none":               {},
	"unknown":            {},
	"none_required":      {},
	"none required":      {},
	"not required":       {},
	"not applicable":     {},
	"not provided":       {},
	"no permit required": {},
}

var rules = []rule{
	{
		name: "structured",
		match: func(text string) bool {
			return compliesFirst.MatchString(text) || authorizedFirst.MatchString(text)
		},
		apply: func(text string) Result {
			if m := compliesFirst.FindStringSubmatch(text); m != nil {
				return Result{CompliesWith: structuredTokens(m[1]), AuthorizedBy: structuredTokens(m[2])}
			}
			m := authorizedFirst.FindStringSubmatch(text)
			return Result{AuthorizedBy: structuredTokens(m[1]), CompliesWith: structuredTokens(m[2])}
		},
	},
	{
		name:  "no data",
		match: isNoData,
		apply: func(string) Result { return Result{} },
	},
	{
		name: "single slash",
		match: func(text string) bool {
			return strings.Count(text, "/") == 1 && !strings.ContainsAny(text, " \t")
		},
		apply: func(text string) Result {
			return Result{AuthorizedBy: tokens(strings.Split(text, "/"))}
		},
	},
	{
		name: "many slashes",
		match: func(text string) bool {
			return strings.Count(text, "/") > 1 && strings.Count(text, ",") <= 1
		},
		apply: func(text string) Result {
			return Result{AuthorizedBy: tokens(andOrComma.Split(text, -1))}
		},
	},
	{
		name: "semicolons",
		match: func(text string) bool {
			return strings.Contains(text, "; ") && strings.Count(text, ",") <= 1
		},
		apply: func(text string) Result {
			return Result{AuthorizedBy: tokens(strings.Split(text, "; "))}
		},
	},
	{
		name:  "whole text",
		match: func(string) bool { return true },
		apply: func(text string) Result {
			return Result{AuthorizedBy: []string{text}}
		},
	},
}

// Parse applies the rule table to text.
func Parse(text string) Result {
	text = strings.TrimSpace(text)
	for _, r := range rules {
		if r.match(text) {
			return r.apply(text)
		}
	}
	return Result{}
}

// AuthorizedBy is shorthand for Parse(text).AuthorizedBy.
func AuthorizedBy(text string) []string {
	return Parse(text).AuthorizedBy
}

// CompliesWith is shorthand for Parse(text).CompliesWith.
func CompliesWith(text string) []string {
	return Parse(text).CompliesWith
}

func isNoData(text string) bool {
	_, ok := noData[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

func structuredTokens(value string) []string {
	var out []string
	for _, t := range structuredSplit.Split(value, -1) {
		t = strings.TrimSpace(t)
		if t == "" || isNoData(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func tokens(parts []string) []string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

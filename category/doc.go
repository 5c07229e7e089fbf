// Package category maps free-text category values from a source registry to
// controlled-vocabulary keys using small, ordered rule tables.
//
// Three match strategies are available: Paired (an exact value together with
// a second, disambiguating value), Equals (membership in an exact set), and
// EndsWith (suffix). Ordered composes mappers so that the first match wins,
// which is how a specific paired rule is tried before a looser suffix rule.
//
// A MetaMapper runs a list of mapper groups and collects the distinct terms
// every group produced. Rule tables are plain package-level data and are never
// modified after initialization.
package category

// Package query implements the Query Normalizer: it turns a noisy,
// free-form product title scraped from a shopping page into a compact
// catalog search string, plus an ordered list of fallback candidates.
package query

import "strings"

// Query is the immutable input to a search plus its derived forms.
type Query struct {
	// Raw is exactly what the caller supplied.
	Raw string

	// Normalized is the cache key and primary search term.
	Normalized string

	// Candidates is an ordered, deduplicated fallback list, always
	// starting with Normalized's year-stripped form when it differs.
	Candidates []string

	// ProductIDHint, when non-empty, is the fetch-failure-with-partial-
	// progress handoff from the Fast Path: a product ID it located
	// during its search phase but could not retrieve or parse a detail
	// page for. A Slow Path executor that sees this set skips its own
	// search phase and navigates straight to the detail page.
	ProductIDHint string
}

// Empty reports whether the query normalized down to nothing searchable.
// An empty query short-circuits the orchestrator straight to no_results
// without touching any executor.
func (q Query) Empty() bool {
	return strings.TrimSpace(q.Normalized) == ""
}

// Detection is the Normalizer's auxiliary classification of a raw
// query, surfaced alongside normalization for the Result Recorder's
// failure records. Any field may be empty when the pipeline found no
// signal for it.
type Detection struct {
	Category string
	Brand    string
	Model    string
}

// Strategy is the normalizer dispatch point. Two implementations exist:
// a policy-driven one (yamlStrategy) and an always-available inline
// heuristic (legacyStrategy). Selecting between them happens once, at
// construction, so a bad policy can never take the normalizer offline
// mid-flight.
type Strategy interface {
	// Normalize reduces raw to its catalog-friendly search form.
	Normalize(raw string) string

	// Candidates derives the fallback search list from raw. Length is
	// 1-8 (0 when raw normalizes to the empty string), no element is
	// empty, and entries are unique case-insensitively.
	Candidates(raw string) []string

	// Detect runs the same domain classification and positional
	// brand/model extraction the normalization and candidate-generation
	// pipelines already compute internally, exposed for failure
	// recording.
	Detect(raw string) Detection
}

// New selects a Strategy. If policy is nil or fails its own validity
// check, the legacy heuristic is used instead: misconfiguration
// degrades normalization quality, it never disables it.
func New(policy *Policy) Strategy {
	if policy != nil && policy.Valid() {
		return &yamlStrategy{ruleset: policy.toRuleset()}
	}

	return &legacyStrategy{ruleset: defaultRuleset()}
}

// Normalize is a package-level convenience that builds a Query using the
// legacy strategy. Callers wiring up the engine normally construct a
// Strategy once via New and reuse it; this exists for simple call sites
// and tests.
func Normalize(raw string) Query {
	s := New(nil)
	return Query{
		Raw:        raw,
		Normalized: s.Normalize(raw),
		Candidates: s.Candidates(raw),
	}
}

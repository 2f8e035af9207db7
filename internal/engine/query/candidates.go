package query

import (
	"sort"
	"strings"
)

const maxCandidates = 8

// buildCandidates implements the fallback candidate list in priority
// order: year-stripped form, full normalized form, brand+model,
// brand+model+chip, model-only, brand-only, synonym substitutions.
// Duplicates (case-insensitive) are dropped, keeping the first-seen
// (highest priority) occurrence.
func buildCandidates(rs ruleset, raw string) []string {
	normalized := normalize(rs, raw)

	var out []string
	seen := map[string]bool{}

	add := func(s string) {
		s = collapseAndTrim(s)
		if s == "" {
			return
		}
		key := strings.ToLower(s)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, s)
	}

	yearStripped := collapseAndTrim(yearRe.ReplaceAllString(normalized, " "))
	if yearStripped != normalized {
		add(yearStripped)
	}

	add(normalized)

	brand, model, chip := extractBrandModelChip(rs, normalized)

	if brand != "" && model != "" {
		add(brand + " " + model)
	}

	if brand != "" && model != "" && chip != "" {
		add(brand + " " + model + " " + chip)
	}

	if model != "" {
		add(modelOnly(model))
	}

	if brand != "" {
		add(brand)
	}

	for _, v := range synonymVariants(rs, normalized) {
		add(v)
	}

	if len(out) == 0 {
		add(normalized)
	}

	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}

	return out
}

// detect runs step 4's domain classification and the candidate
// pipeline's brand/model extraction against raw's normalized form, and
// packages them as a Detection for failure recording.
func detect(rs ruleset, raw string) Detection {
	normalized := normalize(rs, raw)
	domain := classifyDomain(rs, normalized)
	brand, model, _ := extractBrandModelChip(rs, normalized)
	return Detection{Category: domain, Brand: brand, Model: model}
}

// extractBrandModelChip positionally extracts a brand token (first
// matching known brand, skipping year tokens), the following tokens as
// the model, and an optional chip token (M\d+) found anywhere.
func extractBrandModelChip(rs ruleset, normalized string) (brand, model, chip string) {
	tokens := strings.Fields(normalized)

	var filtered []string
	for _, t := range tokens {
		if yearRe.MatchString(t) {
			continue
		}
		filtered = append(filtered, t)
	}

	brandIdx := -1
	for i, t := range filtered {
		for _, b := range rs.brandTokens {
			if strings.EqualFold(t, b) {
				brandIdx = i
				brand = t
				break
			}
		}
		if brandIdx >= 0 {
			break
		}
	}

	if brandIdx >= 0 && brandIdx+1 < len(filtered) {
		model = strings.Join(filtered[brandIdx+1:], " ")
	} else if len(filtered) > 0 {
		model = strings.Join(filtered, " ")
	}

	if m := chipTokenRe.FindString(normalized); m != "" {
		chip = m
	}

	return brand, model, chip
}

// modelOnly keeps the first 2-3 tokens of model.
func modelOnly(model string) string {
	tokens := strings.Fields(model)
	if len(tokens) > 3 {
		tokens = tokens[:3]
	}
	return strings.Join(tokens, " ")
}

// synonymVariants substitutes each Korean synonym occurrence with its
// English counterpart, one substitution per variant to keep the
// candidate list small and ordered. Matched keys are sorted before
// substitution: map iteration order is randomized per call, and the
// candidate list must be order-stable across calls.
func synonymVariants(rs ruleset, normalized string) []string {
	lower := strings.ToLower(normalized)

	var matched []string
	for kr := range rs.synonyms {
		if strings.Contains(lower, kr) {
			matched = append(matched, kr)
		}
	}
	sort.Strings(matched)

	var variants []string
	for _, kr := range matched {
		variants = append(variants, replaceFold(normalized, kr, rs.synonyms[kr]))
	}

	return variants
}

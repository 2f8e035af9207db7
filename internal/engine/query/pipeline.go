package query

import (
	"strings"

	"github.com/darkkaiser/pricesearch/pkg/strutil"
)

// normalize runs the nine-step pipeline from the design document against
// raw, using the tables in rs. It is shared by both strategies.
func normalize(rs ruleset, raw string) string {
	text := raw

	// Step 1: pre-cleaning. Preserve chip tokens (M1-M9) that would
	// otherwise be deleted along with their enclosing bracket, then
	// strip bracketed content and known extension-UI phrases.
	text = preserveAndStripBrackets(text)
	for _, phrase := range rs.extensionUI {
		text = strings.ReplaceAll(text, phrase, " ")
	}

	// Hard-mapping override: before domain classification, consult the
	// exact-or-substring table keyed on a canonical form. Skipped if
	// the input carries an accessory keyword, since hard-mappings name
	// whole products, not their accessories.
	if !containsAny(strings.ToLower(text), rs.accessoryKeys) {
		if mapped, ok := lookupHardMapping(rs, text); ok {
			text = mapped
			// A mapped string re-enters at step 3 (boundary insertion).
			text = insertBoundaries(rs, text)
			text = collapseAndTrim(text)
			return text
		}
	}

	// Step 2: separator truncation.
	if loc := separatorRe.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}

	// Step 3: boundary insertion.
	text = insertBoundaries(rs, text)

	// Step 4: domain classification.
	domain := classifyDomain(rs, text)

	// Step 5 & 6: tag emission + tag policy application.
	text = applyTagRules(rs, text, domain)

	// Step 7: domain policy application.
	text = applyDomainPolicy(rs, domain, text)

	// Step 8: single-letter cleanup (keep "C" for port types).
	text = singleCapRe.ReplaceAllStringFunc(text, func(m string) string {
		if m == "C" {
			return m
		}
		return ""
	})

	// Step 9: whitespace collapse.
	text = collapseAndTrim(text)

	return text
}

// preserveAndStripBrackets implements step 1: chip tokens inside brackets
// are re-emitted just before the bracketed span is deleted.
func preserveAndStripBrackets(text string) string {
	return bracketRe.ReplaceAllStringFunc(text, func(bracketed string) string {
		chips := chipPreserveRe.FindAllString(bracketed, -1)
		if len(chips) == 0 {
			return " "
		}
		return " " + strings.Join(chips, " ") + " "
	})
}

// insertBoundaries implements step 3: a space is inserted between
// adjacent Hangul-Latin and Latin-Hangul runs, and a color token glued
// onto the end of a longer word is split off (스페이스블랙 becomes
// 스페이스 블랙). Splitting only fires on a whole-field suffix so a
// color fragment inside an unrelated word is left alone. Extra spaces
// are swept up by the final collapse step.
func insertBoundaries(rs ruleset, text string) string {
	text = boundaryHangulLatin.ReplaceAllString(text, "$1 $2")
	text = boundaryLatinHangul.ReplaceAllString(text, "$1 $2")

	fields := strings.Fields(text)
	for i, f := range fields {
		for _, c := range rs.colorTokens {
			if strings.HasSuffix(f, c) && len(f) > len(c) {
				fields[i] = strings.TrimSuffix(f, c) + " " + c
				break
			}
		}
	}
	return strings.Join(fields, " ")
}

// classifyDomain implements step 4: score-based domain detection.
// Electronics wins over general if its signal score exceeds the non-IT
// signal score by more than rs.electronicsThreshold.
func classifyDomain(rs ruleset, text string) string {
	lower := strings.ToLower(text)

	var nonIT int
	for token, weight := range rs.nonITSignals {
		if strings.Contains(lower, strings.ToLower(token)) {
			nonIT += weight
		}
	}

	best := "general"
	bestScore := 0
	for domain, signals := range rs.domainSignals {
		var score int
		for token, weight := range signals {
			if strings.Contains(lower, strings.ToLower(token)) {
				score += weight
			}
		}

		if score > 0 && score-nonIT > rs.electronicsThreshold && score > bestScore {
			best = domain
			bestScore = score
		}
	}

	return best
}

// applyTagRules implements steps 5-6: tags are emitted when their
// pattern matches, then the tag's replacement is applied. A rule scoped
// to the detected domain takes priority over a generic rule sharing the
// same tag name.
func applyTagRules(rs ruleset, text, domain string) string {
	fired := map[string]tagRule{}

	for _, rule := range rs.tagRules {
		if !rule.Match.MatchString(text) {
			continue
		}

		existing, seen := fired[rule.Name]
		if !seen {
			fired[rule.Name] = rule
			continue
		}

		// Domain-scoped overrides replace a previously seen generic rule.
		if rule.DomainOverride == domain && existing.DomainOverride == "" {
			fired[rule.Name] = rule
		}
	}

	for _, rule := range fired {
		if rule.ReplaceFrom == "" {
			continue
		}
		text = replaceFold(text, rule.ReplaceFrom, rule.ReplaceTo)
	}

	return text
}

// applyDomainPolicy implements step 7.
func applyDomainPolicy(rs ruleset, domain, text string) string {
	policy, ok := rs.domainPolicy[domain]
	if !ok {
		return text
	}

	if policy.RemoveColors {
		fields := strings.Fields(text)
		kept := fields[:0]
		for _, f := range fields {
			isColor := false
			for _, c := range rs.colorTokens {
				if f == c {
					isColor = true
					break
				}
			}
			if !isColor {
				kept = append(kept, f)
			}
		}
		text = strings.Join(kept, " ")
	}

	if policy.RemoveUnits && rs.unitPattern != nil {
		text = rs.unitPattern.ReplaceAllString(text, " ")
	}

	if policy.RemoveAccessory {
		for _, a := range rs.accessoryKeys {
			text = replaceFold(text, a, "")
		}
	}

	return text
}

// lookupHardMapping performs the exact-or-substring lookup against the
// canonical lowercase-and-whitespace-normalized form of text.
func lookupHardMapping(rs ruleset, text string) (string, bool) {
	canonical := canonicalForm(text)

	if mapped, ok := rs.hardMappings[canonical]; ok {
		return mapped, true
	}

	for key, mapped := range rs.hardMappings {
		if strings.Contains(canonical, key) {
			return mapped, true
		}
	}

	return "", false
}

func canonicalForm(s string) string {
	return strings.ToLower(collapseAndTrim(s))
}

func collapseAndTrim(s string) string {
	return strutil.NormalizeSpace(s)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// replaceFold replaces old with new in text case-insensitively, since
// tag/accessory tables are authored in one case but input text varies.
func replaceFold(text, old, new string) string {
	if old == "" {
		return text
	}

	lowerText := strings.ToLower(text)
	lowerOld := strings.ToLower(old)

	var b strings.Builder
	i := 0
	for {
		idx := strings.Index(lowerText[i:], lowerOld)
		if idx < 0 {
			b.WriteString(text[i:])
			break
		}
		idx += i
		b.WriteString(text[i:idx])
		b.WriteString(new)
		i = idx + len(old)
	}

	return b.String()
}

package query

import "regexp"

// TagPolicyRule is the decoded form of a single tag-emission-plus-
// replacement rule, as it would arrive from a domain/tag policy
// document. Parsing that document is out of scope for this package;
// Policy only models the decoded shape.
type TagPolicyRule struct {
	Name           string
	Pattern        string
	ReplaceFrom    string
	ReplaceTo      string
	DomainOverride string
}

// DomainPolicyRule mirrors domainPolicy but in policy-document form.
type DomainPolicyRule struct {
	RemoveColors    bool
	RemoveUnits     bool
	RemoveAccessory bool
}

// Policy is the decoded domain/tag/hard-mapping configuration the
// yamlStrategy normalizer consumes. Construction (building one of these
// from already-parsed data) is in scope; reading it from disk is not.
type Policy struct {
	DomainSignals        map[string]map[string]int
	NonITSignals         map[string]int
	ElectronicsThreshold int

	TagRules     []TagPolicyRule
	DomainRules  map[string]DomainPolicyRule
	HardMappings map[string]string
	AccessoryKeywords []string
	ColorTokens  []string
	UnitPattern  string
	Synonyms     map[string]string
	BrandTokens  []string
	ExtensionUIPhrases []string
}

// Valid reports whether p is complete enough to drive normalization.
// A policy missing its domain signal table or hard-mapping table is
// considered misconfigured, so New() falls back to legacyStrategy
// instead of normalizing against empty tables.
func (p *Policy) Valid() bool {
	if p == nil {
		return false
	}
	return len(p.DomainSignals) > 0 && p.HardMappings != nil
}

// toRuleset converts a validated Policy into the internal ruleset shape
// the shared pipeline operates on, compiling any regex-bearing fields
// once up front. An invalid regex in UnitPattern degrades to "no unit
// pattern" rather than panicking, so construction never takes the
// normalizer offline.
func (p *Policy) toRuleset() ruleset {
	rs := ruleset{
		domainSignals:         p.DomainSignals,
		nonITSignals:          p.NonITSignals,
		electronicsThreshold:  p.ElectronicsThreshold,
		domainPolicy:          map[string]domainPolicy{},
		hardMappings:          p.HardMappings,
		accessoryKeys:         p.AccessoryKeywords,
		colorTokens:           p.ColorTokens,
		synonyms:              p.Synonyms,
		brandTokens:           p.BrandTokens,
		extensionUI:           p.ExtensionUIPhrases,
	}

	for domain, rule := range p.DomainRules {
		rs.domainPolicy[domain] = domainPolicy{
			RemoveColors:    rule.RemoveColors,
			RemoveUnits:     rule.RemoveUnits,
			RemoveAccessory: rule.RemoveAccessory,
		}
	}

	for _, rule := range p.TagRules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			continue
		}

		rs.tagRules = append(rs.tagRules, tagRule{
			Name:           rule.Name,
			Match:          re,
			ReplaceFrom:    rule.ReplaceFrom,
			ReplaceTo:      rule.ReplaceTo,
			DomainOverride: rule.DomainOverride,
		})
	}

	if p.UnitPattern != "" {
		if re, err := regexp.Compile(p.UnitPattern); err == nil {
			rs.unitPattern = re
		}
	}

	return rs
}

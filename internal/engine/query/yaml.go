package query

// yamlStrategy is the domain/tag-policy-driven normalizer. It only
// ever consumes an already-decoded Policy, never reads a file itself.
type yamlStrategy struct {
	ruleset ruleset
}

func (s *yamlStrategy) Normalize(raw string) string {
	return normalize(s.ruleset, raw)
}

func (s *yamlStrategy) Candidates(raw string) []string {
	return buildCandidates(s.ruleset, raw)
}

func (s *yamlStrategy) Detect(raw string) Detection {
	return detect(s.ruleset, raw)
}

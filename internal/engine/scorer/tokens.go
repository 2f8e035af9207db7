package scorer

import (
	"regexp"
	"strings"
)

var tokenSplitRe = regexp.MustCompile(`[^\p{L}\p{N}]+`)

func tokenize(s string) []string {
	fields := tokenSplitRe.Split(strings.ToLower(s), -1)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[strings.ToLower(t)] = true
	}
	return set
}

func noSpace(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

func bigramSet(s string) map[string]bool {
	runes := []rune(s)
	set := map[string]bool{}
	if len(runes) < 2 {
		if len(runes) == 1 {
			set[string(runes)] = true
		}
		return set
	}
	for i := 0; i < len(runes)-1; i++ {
		set[string(runes[i:i+2])] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	var intersection int
	for k := range a {
		if b[k] {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

func hasOverlap(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
			return true
		}
	}
	return false
}

func setsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func containsAnyFold(text string, vocabulary []string) bool {
	lower := strings.ToLower(text)
	for _, v := range vocabulary {
		if strings.Contains(lower, strings.ToLower(v)) {
			return true
		}
	}
	return false
}

// Package scorer implements the Match Scorer: given a search query and a
// candidate catalog title, it produces a similarity score in [0, 100].
// It is pure and stateless, called identically from the Fast Path
// (ranking parsed search results) and the Slow Path (ranking DOM links).
package scorer

import (
	"regexp"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Scorer scores a candidate title against a query.
type Scorer interface {
	Score(query, candidate string) float64
}

// New returns the primary scorer: a weighted-ratio fuzzy match backed by
// github.com/sahilm/fuzzy, with every structural rule from the design
// document layered on top. If the underlying fuzzy match panics on
// pathological input, the call recovers and falls back to scoreJaccard
// so a single bad string never takes scoring offline. scoreJaccard also
// supplies the base score when the fuzzy matcher finds no in-order match.
func New() Scorer {
	return &scorer{base: fuzzyBaseScore}
}

// NewJaccard returns the zero-dependency fallback scorer directly. It is
// exported so callers (and tests) can pin the fallback and verify that
// orderings on the acceptance scenarios hold under either base scorer.
func NewJaccard() Scorer {
	return &scorer{base: scoreJaccard}
}

type baseScoreFunc func(query, candidate string) float64

type scorer struct {
	base baseScoreFunc
}

var (
	accessoryTokens = []string{
		"케이스", "필름", "키스킨", "키보드스킨", "파우치", "거치대",
		"case", "film", "keyboard-skin", "pouch", "dock",
	}
	mainProductHints = []string{
		"노트북", "맥북", "laptop", "이어폰", "earphone", "모니터", "monitor",
		"아이폰", "iphone", "갤럭시", "galaxy",
	}
	variantTokens = []string{"pro", "air", "max", "mini", "ultra", "fe"}

	chipRe        = regexp.MustCompile(`(?i)\bM\d+\b`)
	screenSizeRe  = regexp.MustCompile(`\b(1[0-7])(?:\.\d)?\s*(?:인치|inch|")?\b`)
	modelCodeRe   = regexp.MustCompile(`\b[A-Za-z0-9]{3,}\b`)
	unitNumberRe  = regexp.MustCompile(`(?i)\b\d+\s*(GB|TB|인치|Hz|mm)\b`)
	bigNumberRe   = regexp.MustCompile(`\b\d{3,6}\b`)
	namedNumberRe = regexp.MustCompile(`([\p{L}]+)\s+(\d{1,3})\b`)
	yearRe        = regexp.MustCompile(`\b(19|20)\d{2}\b`)

	modelCodeBlacklist = map[string]bool{
		"ios": true, "macos": true, "android": true, "usb": true,
		"wifi": true, "led": true, "oled": true, "lcd": true,
	}
)

// Score implements the full algorithm from the design document, clamped
// to [0, 100].
func (s *scorer) Score(query, candidate string) float64 {
	if strings.TrimSpace(query) == "" || strings.TrimSpace(candidate) == "" {
		return 0
	}

	// Step 1: accessory trap check.
	if isAccessoryTrap(query, candidate) {
		return 0
	}

	score := s.safeBaseScore(query, candidate)

	// Step 3: variant penalty.
	if disjointFromSet(query, candidate, variantTokens) {
		score -= 45
	}

	// Step 4: chip disqualify.
	if qSet, cSet := tokenSet(chipRe.FindAllString(strings.ToUpper(query), -1)), tokenSet(chipRe.FindAllString(strings.ToUpper(candidate), -1)); len(qSet) > 0 && len(cSet) > 0 && !setsEqual(qSet, cSet) {
		return 0
	}

	// Step 5: screen-size disqualify.
	if qSet, cSet := tokenSet(screenSizeRe.FindAllString(query, -1)), tokenSet(screenSizeRe.FindAllString(candidate, -1)); len(qSet) > 0 && len(cSet) > 0 && !setsEqual(qSet, cSet) {
		return 0
	}

	// Step 6: model-code signal.
	score += modelCodeSignal(query, candidate)

	// Step 7: unit-numbers signal.
	score += disjointOverlapSignal(unitNumberRe.FindAllString(query, -1), unitNumberRe.FindAllString(candidate, -1), -22, 6)

	// Step 8: big-numbers signal.
	score += disjointOverlapSignal(bigNumberRe.FindAllString(query, -1), bigNumberRe.FindAllString(candidate, -1), -15, 3)

	// Step 9: named-number pairs.
	score += namedNumberSignal(query, candidate)

	// Step 10: year signal.
	score += yearSignal(query, candidate)

	return clamp(score)
}

func (s *scorer) safeBaseScore(query, candidate string) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			score = scoreJaccard(query, candidate)
		}
	}()

	return s.base(query, candidate)
}

// fuzzyBaseScore wraps github.com/sahilm/fuzzy's subsequence matcher
// into a 0-100 similarity ratio. fuzzy.Find treats query as a fuzzy
// subsequence pattern against candidate; an empty match list means
// some of the query's characters don't appear in candidate order (for
// example a Hangul query against a Latin title), and that pair is scored
// by scoreJaccard instead so partial token overlap still counts.
func fuzzyBaseScore(query, candidate string) float64 {
	lowerCandidate := strings.ToLower(candidate)

	matches := fuzzy.Find(strings.ToLower(query), []string{lowerCandidate})
	if len(matches) == 0 {
		return scoreJaccard(query, candidate)
	}

	m := matches[0]

	candidateLen := len([]rune(lowerCandidate))
	if candidateLen == 0 {
		return 0
	}

	// Coverage: how much of the candidate the matched characters span,
	// weighted by the match's own ranking score so that tightly
	// clustered matches beat scattered ones of equal coverage.
	coverage := float64(len(m.MatchedIndexes)) / float64(candidateLen)
	if coverage > 1 {
		coverage = 1
	}

	ratio := coverage
	if m.Score < 0 {
		ratio *= 0.5
	}

	return ratio * 100
}

// scoreJaccard is the zero-dependency fallback: the max of token-set
// Jaccard similarity and no-space-bigram Jaccard similarity.
func scoreJaccard(query, candidate string) float64 {
	tokenJ := jaccard(tokenSet(tokenize(query)), tokenSet(tokenize(candidate)))
	bigramJ := jaccard(bigramSet(noSpace(query)), bigramSet(noSpace(candidate)))

	if bigramJ > tokenJ {
		return bigramJ * 100
	}
	return tokenJ * 100
}

func isAccessoryTrap(query, candidate string) bool {
	cAccessories := matchedVocabulary(candidate, accessoryTokens)
	if len(cAccessories) == 0 {
		return false
	}

	if hasOverlap(matchedVocabulary(query, accessoryTokens), cAccessories) {
		return false
	}

	return containsAnyFold(query, mainProductHints)
}

func disjointFromSet(query, candidate string, vocabulary []string) bool {
	qHits := matchedVocabulary(query, vocabulary)
	cHits := matchedVocabulary(candidate, vocabulary)

	if len(qHits) == 0 || len(cHits) == 0 {
		return false
	}

	return !setsEqual(qHits, cHits)
}

func matchedVocabulary(text string, vocabulary []string) map[string]bool {
	lower := strings.ToLower(text)
	hits := map[string]bool{}
	for _, v := range vocabulary {
		if strings.Contains(lower, v) {
			hits[v] = true
		}
	}
	return hits
}

func modelCodeSignal(query, candidate string) float64 {
	qCodes := filteredModelCodes(query)
	cCodes := filteredModelCodes(candidate)

	if len(qCodes) == 0 && len(cCodes) == 0 {
		return 0
	}

	if len(qCodes) > 0 && len(cCodes) > 0 {
		if setsEqual(qCodes, cCodes) || hasOverlap(qCodes, cCodes) {
			return 10
		}
		return -40
	}

	if len(qCodes) > 0 && len(cCodes) == 0 {
		return -18
	}

	return 0
}

func filteredModelCodes(text string) map[string]bool {
	out := map[string]bool{}
	for _, m := range modelCodeRe.FindAllString(text, -1) {
		lower := strings.ToLower(m)
		if modelCodeBlacklist[lower] {
			continue
		}
		if !hasDigitAndLetter(m) {
			continue
		}
		out[lower] = true
	}
	return out
}

func hasDigitAndLetter(s string) bool {
	var hasDigit, hasLetter bool
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		}
	}
	return hasDigit && hasLetter
}

func disjointOverlapSignal(qMatches, cMatches []string, disjointPenalty, overlapBonus float64) float64 {
	qSet, cSet := tokenSet(qMatches), tokenSet(cMatches)
	if len(qSet) == 0 || len(cSet) == 0 {
		return 0
	}

	if hasOverlap(qSet, cSet) {
		return overlapBonus
	}

	return disjointPenalty
}

func namedNumberSignal(query, candidate string) float64 {
	qPairs := namedNumberPairs(query)
	cPairs := namedNumberPairs(candidate)

	var score float64
	for key, qNum := range qPairs {
		cNum, ok := cPairs[key]
		if !ok {
			continue
		}
		if qNum == cNum {
			score += 8
		} else {
			score -= 28
		}
	}

	return score
}

func namedNumberPairs(text string) map[string]string {
	out := map[string]string{}
	for _, m := range namedNumberRe.FindAllStringSubmatch(text, -1) {
		out[strings.ToLower(m[1])] = m[2]
	}
	return out
}

func yearSignal(query, candidate string) float64 {
	qYears := tokenSet(yearRe.FindAllString(query, -1))
	cYears := tokenSet(yearRe.FindAllString(candidate, -1))

	if len(qYears) == 0 || len(cYears) == 0 {
		return 0
	}

	if setsEqual(qYears, cYears) {
		return 2
	}

	return -6
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

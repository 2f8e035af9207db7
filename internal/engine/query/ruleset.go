package query

import "regexp"

// tagRule tags normalized text when Match fires; ReplaceFrom/ReplaceTo are
// applied during tag policy application (pipeline step 6). An empty
// ReplaceFrom means the tag carries no textual substitution of its own.
type tagRule struct {
	Name        string
	Match       *regexp.Regexp
	ReplaceFrom string
	ReplaceTo   string
	// DomainOverride, if non-empty, means this replacement only applies
	// under that domain and takes priority over the generic rule with
	// the same Name.
	DomainOverride string
}

// domainPolicy controls what step 7 strips once a domain is chosen.
type domainPolicy struct {
	RemoveColors    bool
	RemoveUnits     bool
	RemoveAccessory bool
}

// ruleset bundles every data table the normalization pipeline consults.
// legacyStrategy uses defaultRuleset(); yamlStrategy builds one from a
// decoded Policy. Both strategies share one pipeline implementation and
// only differ in where the tables come from.
type ruleset struct {
	// domainSignals maps domain name -> token -> weight. Electronics
	// classification (step 4) sums matched weights per domain.
	domainSignals map[string]map[string]int
	// nonITSignal tokens count against electronics classification.
	nonITSignals map[string]int
	// electronicsThreshold: domain wins if its score exceeds the
	// non-IT score by this much.
	electronicsThreshold int

	tagRules      []tagRule
	domainPolicy  map[string]domainPolicy
	hardMappings  map[string]string
	accessoryKeys []string
	colorTokens   []string
	unitPattern   *regexp.Regexp
	synonyms      map[string]string
	brandTokens   []string
	extensionUI   []string
}

var (
	bracketRe     = regexp.MustCompile(`[\[【][^\]】]*[\]】]|[\(（][^\)）]*[\)）]`)
	chipPreserveRe = regexp.MustCompile(`\bM[1-9]\b`)
	separatorRe   = regexp.MustCompile(`[·•|]`)
	hangulRe       = `[\x{AC00}-\x{D7A3}]`
	latinRe        = `[A-Za-z]`
	yearRe        = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	chipTokenRe   = regexp.MustCompile(`\bM\d+\b`)
	singleCapRe   = regexp.MustCompile(`\b[A-BD-Z]\b`)
)

// boundaryHangulLatin matches Hangul immediately followed by Latin (and
// boundaryLatinHangul the reverse), used to insert the missing space
// from step 3.
var (
	boundaryHangulLatin = regexp.MustCompile(`(` + hangulRe + `)(` + latinRe + `)`)
	boundaryLatinHangul = regexp.MustCompile(`(` + latinRe + `)(` + hangulRe + `)`)
)

// defaultRuleset is the legacy strategy's always-available, zero-config
// table set. It carries the core domain signals (rtx, m1, gb, 노트북 vs
// 라면, 샴푸, …) without depending on any externally loaded policy
// document.
func defaultRuleset() ruleset {
	return ruleset{
		domainSignals: map[string]map[string]int{
			"electronics": {
				"rtx": 3, "gtx": 3, "m1": 3, "m2": 3, "m3": 3, "m4": 3,
				"gb": 2, "tb": 2, "ssd": 2, "노트북": 3, "맥북": 3,
				"아이폰": 3, "갤럭시": 2, "모니터": 2, "이어폰": 2,
				"애플": 2, "삼성": 1, "인치": 1,
			},
		},
		nonITSignals: map[string]int{
			"라면": 3, "샴푸": 3, "과자": 2, "음료": 2, "화장품": 2,
			"세제": 2, "치약": 2, "로션": 2,
		},
		electronicsThreshold: 1,
		tagRules: []tagRule{
			{Name: "has-generation", Match: regexp.MustCompile(`\d+세대`), ReplaceFrom: "세대", ReplaceTo: ""},
			{Name: "has-usb-c", Match: regexp.MustCompile(`(?i)usb-?c`), ReplaceFrom: "USB-C", ReplaceTo: " C "},
		},
		domainPolicy: map[string]domainPolicy{
			"electronics": {RemoveColors: true, RemoveUnits: false, RemoveAccessory: true},
			"general":     {RemoveColors: false, RemoveUnits: false, RemoveAccessory: false},
		},
		// hardMappings stay empty in the built-in tables: an identity
		// mapping would hit as a substring and swallow the rest of the
		// query. Real mappings arrive through a loaded Policy.
		hardMappings: map[string]string{},
		accessoryKeys: []string{
			"케이스", "필름", "커버", "충전기", "케이블", "거치대", "파우치",
			"스트랩", "독", "스킨",
			"case", "film", "cover", "charger", "cable", "stand", "pouch",
			"strap", "dock", "skin",
		},
		// colorTokens are matched per whitespace-separated field: boundary
		// insertion splits a field ending in one of these, and color
		// removal drops only whole fields, so a token can never carve up
		// an unrelated word (블루투스 keeps its 블루).
		colorTokens: []string{
			"미드나이트", "스타라이트", "스페이스",
			"실버", "골드", "블랙", "화이트", "그레이", "블루", "퍼플", "핑크",
		},
		unitPattern: regexp.MustCompile(`\d+\s*(GB|TB|gb|tb|인치|Hz|hz)`),
		synonyms: map[string]string{
			"에어": "air", "프로": "pro", "맥스": "max", "미니": "mini",
			"울트라": "ultra",
		},
		brandTokens: []string{
			"apple", "애플", "삼성", "samsung", "lg", "소니", "sony",
		},
		extensionUI: []string{"최저가 비교", "가격비교", "검색하기", "최저가검색"},
	}
}

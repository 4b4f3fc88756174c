package domain

// PartialThreshold is the minimum share of required columns a worksheet must
// carry to count as a partial match.
const PartialThreshold = 0.70

// MatchKind ranks how well a worksheet fits a schema. Higher is better.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchPartial
	MatchExtended
	MatchExact
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchExtended:
		return "extended"
	case MatchPartial:
		return "partial"
	default:
		return "none"
	}
}

// Verdict is the outcome of matching one worksheet against one schema.
// Additional counts observed columns outside the schema and is only
// meaningful for extended and partial matches.
type Verdict struct {
	Kind       MatchKind `json:"kind"`
	Schema     string    `json:"schema,omitempty"`
	Additional int       `json:"additional_columns"`
	Ratio      float64   `json:"match_ratio"`
}

// Matched reports whether the verdict claims the worksheet for a schema.
func (v Verdict) Matched() bool {
	return v.Kind != MatchNone
}

// CheckSchemaMatch classifies filtered worksheet columns against the required
// columns of a schema. The first rule that applies wins: exact, extended,
// partial, none. An empty required set never matches.
func CheckSchemaMatch(required, observed []string) Verdict {
	req := toSet(required)
	if len(req) == 0 {
		return Verdict{Kind: MatchNone}
	}
	obs := toSet(observed)

	common := 0
	for col := range req {
		if _, ok := obs[col]; ok {
			common++
		}
	}
	ratio := float64(common) / float64(len(req))

	switch {
	case common == len(req) && len(obs) == len(req):
		return Verdict{Kind: MatchExact, Ratio: ratio}
	case common == len(req):
		return Verdict{Kind: MatchExtended, Additional: len(obs) - len(req), Ratio: ratio}
	case ratio >= PartialThreshold:
		return Verdict{Kind: MatchPartial, Additional: len(obs) - common, Ratio: ratio}
	default:
		return Verdict{Kind: MatchNone, Ratio: ratio}
	}
}

func toSet(cols []string) map[string]struct{} {
	set := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		set[c] = struct{}{}
	}
	return set
}

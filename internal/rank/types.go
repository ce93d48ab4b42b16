package rank

// #region next-best-action

// Impact is the externally visible expected-impact band of an action.
type Impact string

const (
	ImpactHigh   Impact = "High"
	ImpactMedium Impact = "Medium"
	ImpactLow    Impact = "Low"
)

// NextBestAction is one ranked recommendation. Score is the internal sort
// key and is stripped before external rendering.
type NextBestAction struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Steps          []string `json:"steps"`
	Metric         string   `json:"metric,omitempty"`
	ExpectedImpact Impact   `json:"expectedImpact"`
	Effort         string   `json:"effort"`
	Evidence       []string `json:"evidence"`
	Score          int      `json:"score"`
}

// #endregion next-best-action

// #region candidates

// Lever is a provider-authored improvement action with explicit do/metric
// structure, the richer of the two upstream shapes.
type Lever struct {
	Title  string   `json:"title"`
	Do     []string `json:"do"`
	Metric string   `json:"metric,omitempty"`
}

// Candidates is the tagged union of upstream action sources. Levers win when
// present; LegacyTitles are flat action titles from older reports.
type Candidates struct {
	Levers       []Lever
	LegacyTitles []string
}

// #endregion candidates

// #region evidence-context

// EvidenceContext carries the user signals that bias scoring and back the
// evidence strings.
type EvidenceContext struct {
	WeakTopics        []string
	LastDeltaScorePct *float64
	StrategyBand      string
	ProbeAccuracyAvg  *int
}

// #endregion evidence-context

package report

import "errors"

// #region errors

// ErrInvalidRequest marks malformed input shape. It is the only error class
// the pipeline surfaces; everything else degrades to fallback synthesis.
var ErrInvalidRequest = errors.New("invalid analyze request")

// ErrGenericContent marks provider output that tripped the anti-generic
// filter. Internal to the pipeline: recovered via a single retry.
var ErrGenericContent = errors.New("generic content detected")

// #endregion errors

// #region request

// AnalyzeRequest is the structural input to the pipeline.
type AnalyzeRequest struct {
	UserID      string         `json:"userId"`
	Text        string         `json:"text"`
	Source      string         `json:"source"` // "text" | "pdf"
	Intake      map[string]any `json:"intake,omitempty"`
	HorizonDays int            `json:"horizonDays,omitempty"`
}

// Validate checks the structural request shape.
func (r AnalyzeRequest) Validate() error {
	if r.UserID == "" {
		return errors.Join(ErrInvalidRequest, errors.New("missing userId"))
	}
	if r.Text == "" {
		return errors.Join(ErrInvalidRequest, errors.New("missing text"))
	}
	if r.Source != "text" && r.Source != "pdf" {
		return errors.Join(ErrInvalidRequest, errors.New("source must be text or pdf"))
	}
	return nil
}

// #endregion request

// #region bands

// Band classifies how much trustworthy input underlies a report.
type Band string

const (
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"
)

// SignalQuality scores the upstream signal coverage, 0-100.
type SignalQuality struct {
	Score   int      `json:"score"`
	Band    Band     `json:"band"`
	Missing []string `json:"missing"`
}

// Confidence scores how firm the report's conclusions are, 0-100.
type Confidence struct {
	Score int  `json:"score"`
	Band  Band `json:"band"`
}

// #endregion bands

// #region report

// Pattern is one diagnosed error pattern.
type Pattern struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Evidence string `json:"evidence"`
	Impact   string `json:"impact"`
	Fix      string `json:"fix"`
	Severity int    `json:"severity"` // 1-5
}

// Action is one prescribed next action inside a report.
type Action struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Why           string   `json:"why"`
	DurationMin   int      `json:"durationMin"`
	Difficulty    int      `json:"difficulty"` // 1-5
	Steps         []string `json:"steps"`
	SuccessMetric string   `json:"successMetric"`
}

// Lever is a provider-authored improvement lever carried in the plan.
type Lever struct {
	Title  string   `json:"title"`
	Do     []string `json:"do"`
	Metric string   `json:"metric,omitempty"`
}

// PlanTask is one task inside a plan day.
type PlanTask struct {
	ActionID    string `json:"actionId,omitempty"`
	Title       string `json:"title"`
	DurationMin int    `json:"durationMin"`
	Note        string `json:"note,omitempty"`
}

// PlanDay is one day of the multi-day plan.
type PlanDay struct {
	DayIndex int        `json:"dayIndex"`
	Label    string     `json:"label"`
	Focus    string     `json:"focus"`
	Tasks    []PlanTask `json:"tasks"`
}

// Plan is the multi-day execution plan with its levers and attempt rules.
type Plan struct {
	HorizonDays int       `json:"horizonDays"`
	TopLevers   []Lever   `json:"topLevers"`
	Rules       []string  `json:"rules"`
	Days        []PlanDay `json:"days"`
}

// Probe is a short verification drill tied to an action.
type Probe struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	DurationMin  int    `json:"durationMin"`
	Instructions string `json:"instructions"`
	SuccessCheck string `json:"successCheck"`
}

// Report is the schema-guaranteed coaching output. The pipeline never
// returns one with an empty NextActions list.
type Report struct {
	ReportID      string        `json:"reportId"`
	UserID        string        `json:"userId"`
	CreatedAt     string        `json:"createdAt"`
	Summary       string        `json:"summary"`
	Bottleneck    Bottleneck    `json:"primaryBottleneck"`
	Patterns      []Pattern     `json:"patterns"`
	NextActions   []Action      `json:"nextActions"`
	Plan          Plan          `json:"plan"`
	Probes        []Probe       `json:"probes"`
	Confidence    Confidence    `json:"confidence"`
	SignalQuality SignalQuality `json:"signalQuality"`
}

// #endregion report

package report

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cogniverse/coach-engine/internal/provider"
	"github.com/cogniverse/coach-engine/internal/rank"
)

// #region instructions

const analyzeInstructions = `You are an exam performance coach. Analyze the attempt data and return STRICT JSON only, no prose, matching this shape:
{
  "summary": "2-3 sentences naming the single binding constraint",
  "patterns": [{"title": "...", "evidence": "...", "impact": "...", "fix": "...", "severity": 1}],
  "nextActions": [{"title": "...", "why": "...", "durationMin": 20, "difficulty": 2, "steps": ["..."], "successMetric": "..."}],
  "plan": {"horizonDays": 7, "rules": ["..."], "days": [{"dayIndex": 1, "label": "Day 1", "focus": "...", "tasks": [{"title": "...", "durationMin": 20}]}]},
  "topLevers": [{"title": "...", "do": ["..."], "metric": "..."}]
}
Every action must be concrete and verifiable: named drill, duration, and a measurable success metric. Never output vague advice such as "practice more", "revise", "be confident", "work harder", "manage time better", or "improve accuracy". Ground every claim in the supplied data; if the data is thin, say so in the summary.`

const retryCorrection = `

PREVIOUS ATTEMPT REJECTED: it contained generic advice (%VIOLATIONS%). Replace every vague prescription with a named drill, an exact duration in minutes, and a measurable success check. Return the full JSON again.`

// #endregion instructions

// Pipeline turns raw attempt text into a schema-guaranteed coaching report.
// Generic content triggers one corrective retry, and provider rounds that
// produce nothing parseable degrade to library fallback, never to an error
// or an empty report.
type Pipeline struct {
	gen provider.Generator
	lib FallbackLibrary
	log *zap.Logger
	now func() time.Time
}

// NewPipeline wires a pipeline. A nil generator is allowed and forces
// fallback synthesis for every request.
func NewPipeline(gen provider.Generator, lib FallbackLibrary, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{gen: gen, lib: lib, log: log, now: time.Now}
}

// Analyze runs the full generation pipeline. The only error it returns is
// ErrInvalidRequest; every downstream failure resolves to a fallback report.
func (p *Pipeline) Analyze(ctx context.Context, req AnalyzeRequest) (Report, error) {
	if err := req.Validate(); err != nil {
		return Report{}, err
	}

	quality := AssessSignalQuality(req.Text, req.Intake)
	bottleneck := DetectBottleneck(req.Text, dominantFromIntake(req.Intake))

	if p.gen == nil {
		return p.lib.BuildFallbackReport(req, bottleneck, quality, p.now()), nil
	}

	input := buildProviderInput(req, quality)

	rep, ok := p.generateOnce(ctx, analyzeInstructions, input, req, bottleneck, quality)
	if !ok {
		return p.lib.BuildFallbackReport(req, bottleneck, quality, p.now()), nil
	}

	violations := GenericViolations(rep)
	if len(violations) == 0 {
		return rep, nil
	}

	// One retry with the violations named. Whichever round produced a
	// parseable report wins, retry preferred; the library is only for the
	// case where neither round parsed.
	p.log.Info("generic content detected, retrying once",
		zap.String("user_id", req.UserID),
		zap.Strings("violations", violations))
	correction := strings.Replace(retryCorrection, "%VIOLATIONS%", strings.Join(violations, ", "), 1)
	retry, retryOK := p.generateOnce(ctx, analyzeInstructions+correction, input, req, bottleneck, quality)
	if retryOK {
		if still := GenericViolations(retry); len(still) > 0 {
			p.log.Warn("retry still generic, accepting it anyway",
				zap.String("user_id", req.UserID),
				zap.Strings("violations", still))
		}
		return retry, nil
	}
	p.log.Warn("retry produced no usable report, keeping first result",
		zap.String("user_id", req.UserID))
	return rep, nil
}

// generateOnce runs one provider round trip and normalizes the result.
func (p *Pipeline) generateOnce(ctx context.Context, instructions, input string, req AnalyzeRequest, b Bottleneck, quality SignalQuality) (Report, bool) {
	raw, _, err := p.gen.Generate(ctx, instructions, input)
	if err != nil {
		p.log.Warn("provider call failed",
			zap.String("user_id", req.UserID),
			zap.Error(err))
		return Report{}, false
	}
	cand, ok := parseCandidate(raw)
	if !ok {
		p.log.Warn("provider output missing required fields",
			zap.String("user_id", req.UserID))
		return Report{}, false
	}
	return p.normalize(cand, req, b, quality), true
}

// #region parsing

type rawReport struct {
	Summary          string    `json:"summary"`
	Patterns         []Pattern `json:"patterns"`
	NextActions      []Action  `json:"nextActions"`
	NextActionsSnake []Action  `json:"next_actions"`
	Plan             Plan      `json:"plan"`
	TopLevers        []Lever   `json:"topLevers"`
	TopLeversSnake   []Lever   `json:"top_levers"`
}

// parseCandidate decodes provider JSON and checks the required fields:
// a non-empty summary and at least one next action.
func parseCandidate(raw json.RawMessage) (rawReport, bool) {
	var cand rawReport
	if err := json.Unmarshal(raw, &cand); err != nil {
		return rawReport{}, false
	}
	if len(cand.NextActions) == 0 {
		cand.NextActions = cand.NextActionsSnake
	}
	if len(cand.TopLevers) == 0 {
		cand.TopLevers = cand.TopLeversSnake
	}
	if strings.TrimSpace(cand.Summary) == "" || len(cand.NextActions) == 0 {
		return rawReport{}, false
	}
	return cand, true
}

// #endregion parsing

// #region normalize

// normalize turns a valid candidate into a complete report: IDs assigned,
// numeric fields clamped, plan and probes synthesized when absent.
func (p *Pipeline) normalize(cand rawReport, req AnalyzeRequest, b Bottleneck, quality SignalQuality) Report {
	actions := make([]Action, 0, len(cand.NextActions))
	for i, a := range cand.NextActions {
		if strings.TrimSpace(a.Title) == "" {
			continue
		}
		if a.ID == "" {
			a.ID = rank.Slug(a.Title, "action-"+uuid.New().String()[:8])
		}
		a.DurationMin = clampInt(a.DurationMin, 5, 240, 20)
		a.Difficulty = clampInt(a.Difficulty, 1, 5, 2)
		actions = append(actions, a)
		if i == 5 {
			break
		}
	}
	if len(actions) == 0 {
		actions = p.lib.Actions[b]
	}

	patterns := make([]Pattern, 0, len(cand.Patterns))
	for _, pat := range cand.Patterns {
		if strings.TrimSpace(pat.Title) == "" {
			continue
		}
		if pat.ID == "" {
			pat.ID = rank.Slug(pat.Title, "pattern-"+uuid.New().String()[:8])
		}
		pat.Severity = clampInt(pat.Severity, 1, 5, 3)
		patterns = append(patterns, pat)
	}
	if len(patterns) == 0 {
		patterns = p.lib.Patterns[b]
	}

	plan := cand.Plan
	if len(plan.TopLevers) == 0 {
		plan.TopLevers = cand.TopLevers
	}
	if len(plan.Rules) == 0 {
		plan.Rules = p.lib.Rules[b]
	}
	if len(plan.Days) == 0 {
		synthesized := BuildPlan(req.HorizonDays, actions, plan.Rules)
		if len(plan.TopLevers) > 0 {
			synthesized.TopLevers = plan.TopLevers
		}
		plan = synthesized
	}
	if plan.HorizonDays <= 0 {
		plan.HorizonDays = len(plan.Days)
	}

	return Report{
		ReportID:      "rpt_" + uuid.New().String(),
		UserID:        req.UserID,
		CreatedAt:     p.now().UTC().Format(time.RFC3339),
		Summary:       strings.TrimSpace(cand.Summary),
		Bottleneck:    b,
		Patterns:      patterns,
		NextActions:   actions,
		Plan:          plan,
		Probes:        BuildProbes(actions),
		Confidence:    ConfidenceFrom(quality),
		SignalQuality: quality,
	}
}

func clampInt(v, lo, hi, def int) int {
	if v == 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// #endregion normalize

// #region input

// buildProviderInput packs the request plus the quality assessment into the
// user message the provider sees.
func buildProviderInput(req AnalyzeRequest, quality SignalQuality) string {
	payload := map[string]any{
		"attemptText":    req.Text,
		"source":         req.Source,
		"horizonDays":    req.HorizonDays,
		"missingSignals": quality.Missing,
	}
	if len(req.Intake) > 0 {
		payload["intake"] = req.Intake
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return req.Text
	}
	return string(b)
}

// dominantFromIntake pulls an explicit dominant error type out of intake
// context when the caller supplies one.
func dominantFromIntake(intake map[string]any) string {
	if intake == nil {
		return ""
	}
	if v, ok := intake["dominantErrorType"].(string); ok {
		return v
	}
	return ""
}

// #endregion input

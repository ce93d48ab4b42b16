package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cogniverse/coach-engine/internal/rank"
)

// FallbackLibrary holds hand-authored coaching content keyed by bottleneck.
// It is the deterministic floor under the generation pipeline: when the
// provider is unavailable or keeps producing generic output, reports are
// synthesized from here.
type FallbackLibrary struct {
	Actions  map[Bottleneck][]Action
	Patterns map[Bottleneck][]Pattern
	Rules    map[Bottleneck][]string
}

// #region library-content

// DefaultFallbackLibrary returns the built-in content set. Every bottleneck
// category carries exactly three actions so ranking always has a full slate.
func DefaultFallbackLibrary() FallbackLibrary {
	return FallbackLibrary{
		Actions: map[Bottleneck][]Action{
			BottleneckTime: {
				{
					ID:          "two-pass-pacing-drill",
					Title:       "Two-pass pacing drill",
					Why:         "Most time loss comes from grinding on hard questions in pass one instead of banking the easy marks first.",
					DurationMin: 25,
					Difficulty:  2,
					Steps: []string{
						"Take a 20-question timed set at 80% of normal per-question time",
						"Pass 1: answer only questions you can finish under 60 seconds, mark the rest",
						"Pass 2: return to marked questions with the remaining time",
						"Log how many marks came from each pass",
					},
					SuccessMetric: "At least 70% of attempted questions cleared in pass 1",
				},
				{
					ID:          "hard-time-checkpoints",
					Title:       "Hard time checkpoints",
					Why:         "Without mid-section checkpoints, pacing drift is only discovered when the clock runs out.",
					DurationMin: 30,
					Difficulty:  2,
					Steps: []string{
						"Split the next practice section into three equal blocks",
						"Write target question numbers for the 1/3 and 2/3 time marks",
						"At each checkpoint, skip forward immediately if behind target",
						"Record how far ahead or behind you were at each checkpoint",
					},
					SuccessMetric: "Within 2 questions of target at both checkpoints",
				},
				{
					ID:          "deliberate-skip-protocol",
					Title:       "Deliberate skip protocol",
					Why:         "Skipping late is the same as skipping never; the decision has to happen in the first 30 seconds.",
					DurationMin: 20,
					Difficulty:  3,
					Steps: []string{
						"On a 15-question timed set, decide skip or attempt within 30 seconds per question",
						"Tally every question where you broke the 30-second decision rule",
						"Review the skipped questions untimed afterwards",
					},
					SuccessMetric: "Zero decisions taking longer than 30 seconds",
				},
			},
			BottleneckCareless: {
				{
					ID:          "twenty-second-verification-rule",
					Title:       "20-second verification rule",
					Why:         "Careless marks are usually recoverable in the last seconds of a question, not in a vague end-of-section recheck.",
					DurationMin: 20,
					Difficulty:  1,
					Steps: []string{
						"On a 15-question set, reserve the final 20 seconds of each question for verification",
						"Re-read the question stem and confirm the asked quantity matches your answer",
						"Check sign, unit, and option letter before moving on",
					},
					SuccessMetric: "Careless errors on the set cut to at most 1",
				},
				{
					ID:          "calm-accuracy-block",
					Title:       "Calm accuracy block",
					Why:         "Accuracy under zero time pressure establishes the real error floor; anything above it is rush-induced.",
					DurationMin: 30,
					Difficulty:  1,
					Steps: []string{
						"Solve 10 questions untimed with the explicit goal of 10/10",
						"Write one line per question on what could have gone wrong",
						"Compare the error count against your last timed set",
					},
					SuccessMetric: "At least 9/10 correct untimed",
				},
				{
					ID:          "three-line-error-checklist",
					Title:       "3-line error checklist",
					Why:         "A personal checklist built from your own last mistakes beats generic carefulness advice.",
					DurationMin: 15,
					Difficulty:  1,
					Steps: []string{
						"List your last 5 careless errors and name the exact slip in each",
						"Compress them into a 3-line checklist",
						"Run the checklist before submitting each answer in your next set",
					},
					SuccessMetric: "Checklist applied on every question of the next timed set",
				},
			},
			BottleneckConcept: {
				{
					ID:          "concept-rebuild-sprint",
					Title:       "Concept rebuild sprint",
					Why:         "Conceptual misses cluster; rebuilding the single weakest topic moves more marks than broad review.",
					DurationMin: 40,
					Difficulty:  3,
					Steps: []string{
						"Pick the one topic with the most conceptual errors in your last attempt",
						"Re-derive its core results from scratch without notes",
						"Solve 8 questions on that topic only, easiest first",
						"Mark any step where you had to look something up",
					},
					SuccessMetric: "At least 6/8 correct with no look-ups on the final 4",
				},
				{
					ID:          "trigger-based-formula-sheet",
					Title:       "Trigger-based formula sheet",
					Why:         "Knowing a formula and recognizing when to use it are different skills; the trigger column trains the second.",
					DurationMin: 25,
					Difficulty:  2,
					Steps: []string{
						"For the weak topic, write each formula next to the question cue that triggers it",
						"Cover the formula column and recall from triggers alone",
						"Repeat until recall is clean twice in a row",
					},
					SuccessMetric: "100% trigger-to-formula recall on two consecutive passes",
				},
				{
					ID:          "teach-back-drill",
					Title:       "Teach-back drill",
					Why:         "Explaining a solution out loud exposes the exact step where understanding is fake.",
					DurationMin: 20,
					Difficulty:  2,
					Steps: []string{
						"Take 3 questions you got wrong conceptually",
						"Explain each full solution out loud as if teaching it",
						"Note every point where the explanation stalls and re-study only those",
					},
					SuccessMetric: "All 3 explanations delivered without stalling",
				},
			},
			BottleneckAnxiety: {
				{
					ID:          "scripted-first-five-minutes",
					Title:       "Scripted first five minutes",
					Why:         "Panic compounds from an unstructured start; a fixed opening script removes the first decision cliff.",
					DurationMin: 15,
					Difficulty:  1,
					Steps: []string{
						"Write a fixed script for your first 5 exam minutes: breathing, section order, first-question type",
						"Rehearse the script at the start of your next two practice sets",
						"Note your composure at the 10-minute mark each time",
					},
					SuccessMetric: "Script executed without deviation on both sets",
				},
				{
					ID:          "pressure-graded-sets",
					Title:       "Pressure-graded sets",
					Why:         "Exposure to gradually increasing time pressure builds tolerance that untimed practice never does.",
					DurationMin: 30,
					Difficulty:  2,
					Steps: []string{
						"Solve a 10-question set at 120% of normal time, then one at 100%, then one at 85%",
						"Record accuracy at each pressure level",
						"Stop and reset with 4 slow breaths whenever you notice racing",
					},
					SuccessMetric: "Accuracy drop from 120% to 85% pacing within 10 points",
				},
				{
					ID:          "blank-out-reset-routine",
					Title:       "Blank-out reset routine",
					Why:         "A rehearsed 30-second reset turns a freeze into a pause instead of a spiral.",
					DurationMin: 10,
					Difficulty:  1,
					Steps: []string{
						"Define a 30-second reset: pen down, one slow breath cycle, re-read the stem once",
						"Trigger it deliberately twice during your next practice set",
						"Log whether you re-entered the question cleanly",
					},
					SuccessMetric: "Reset used on cue both times with clean re-entry",
				},
			},
			BottleneckGeneral: {
				{
					ID:          "decision-sprint",
					Title:       "Decision sprint",
					Why:         "When the blocker is unclear, a fast attempt-or-skip sprint surfaces whether time, accuracy, or selection is the real cost.",
					DurationMin: 25,
					Difficulty:  2,
					Steps: []string{
						"Take a 20-question timed set and classify each outcome: correct, careless, concept, skipped",
						"Tally the four buckets at the end",
						"Pick the largest non-correct bucket as your next focus",
					},
					SuccessMetric: "All 20 outcomes classified with a clear largest bucket",
				},
				{
					ID:          "next-mock-rules-card",
					Title:       "Next-mock rules card",
					Why:         "Three written attempt rules carried into the next mock beat any amount of unstructured intention.",
					DurationMin: 15,
					Difficulty:  1,
					Steps: []string{
						"Write exactly 3 attempt rules for your next mock, each testable",
						"Include one skip rule and one time checkpoint",
						"After the mock, grade yourself on each rule",
					},
					SuccessMetric: "All 3 rules graded with evidence after the mock",
				},
				{
					ID:          "ten-minute-error-review",
					Title:       "10-minute error review",
					Why:         "A short same-day review converts each mistake into one reusable lesson while the context is fresh.",
					DurationMin: 10,
					Difficulty:  1,
					Steps: []string{
						"Within an hour of any practice set, spend 10 minutes on errors only",
						"Write one line per error: what happened and the rule that prevents it",
						"Add new rules to your running checklist",
					},
					SuccessMetric: "Every error from the set has a one-line prevention rule",
				},
			},
		},
		Patterns: map[Bottleneck][]Pattern{
			BottleneckTime: {
				{
					ID:       "time-sink-questions",
					Title:    "Time sinking on hard questions",
					Evidence: "Signals point to time pressure: unattempted questions or overrun against the section clock.",
					Impact:   "Easy marks at the end of sections go unattempted while hard questions absorb the clock.",
					Fix:      "Adopt a two-pass attempt order with hard checkpoints and a 30-second skip decision.",
					Severity: 4,
				},
			},
			BottleneckCareless: {
				{
					ID:       "execution-slips",
					Title:    "Execution slips on known material",
					Evidence: "Errors concentrate on questions answered quickly and marked careless rather than conceptual.",
					Impact:   "Marks are lost on questions you can solve, which caps the score below your actual level.",
					Fix:      "Run a fixed per-question verification routine built from your own last slips.",
					Severity: 3,
				},
			},
			BottleneckConcept: {
				{
					ID:       "topic-concept-gaps",
					Title:    "Concept gaps in specific topics",
					Evidence: "Errors cluster by topic and persist even without time pressure.",
					Impact:   "Entire question families are unreliable regardless of pacing or care.",
					Fix:      "Rebuild the single weakest topic from first principles before broad practice.",
					Severity: 5,
				},
			},
			BottleneckAnxiety: {
				{
					ID:       "pressure-degradation",
					Title:    "Performance degradation under pressure",
					Evidence: "Reported panic or blanking with accuracy well below untimed baseline.",
					Impact:   "Prepared material fails to convert into marks inside exam conditions.",
					Fix:      "Script the exam opening and train with graded time pressure.",
					Severity: 4,
				},
			},
			BottleneckGeneral: {
				{
					ID:       "unlocated-bottleneck",
					Title:    "Bottleneck not yet located",
					Evidence: "The available input does not isolate a single dominant error source.",
					Impact:   "Effort spreads across fixes instead of concentrating on the binding constraint.",
					Fix:      "Run one classification sprint to bucket every outcome, then target the largest bucket.",
					Severity: 2,
				},
			},
		},
		Rules: map[Bottleneck][]string{
			BottleneckTime: {
				"Decide attempt-or-skip within 30 seconds of reading any question",
				"At the 1/3 and 2/3 time marks, skip forward immediately if behind the target question",
				"Never spend more than 2x average time on a single question in pass 1",
			},
			BottleneckCareless: {
				"Reserve the last 20 seconds of every question for verification",
				"Confirm the asked quantity, sign, and unit before marking any answer",
				"Re-read the stem once before final submission on flagged questions",
			},
			BottleneckConcept: {
				"Skip questions from unrebuilt topics in pass 1 and bank marks elsewhere",
				"Attempt rebuilt-topic questions easiest first to confirm the fix holds",
				"Flag any look-up moment during practice as a rebuild target",
			},
			BottleneckAnxiety: {
				"Open every session with the scripted first five minutes",
				"Trigger the 30-second reset at the first sign of racing",
				"Bank three easy questions before attempting anything hard",
			},
			BottleneckGeneral: {
				"Classify every outcome immediately after each set",
				"Carry exactly 3 written attempt rules into the next mock",
				"Review errors within one hour of finishing",
			},
		},
	}
}

// #endregion library-content

// #region synthesis

// summaryFor builds the one-line fallback summary for a bottleneck.
func summaryFor(b Bottleneck, quality SignalQuality) string {
	core := map[Bottleneck]string{
		BottleneckTime:     "Your binding constraint is pacing: marks are being lost to the clock, not to ability.",
		BottleneckCareless: "Your binding constraint is execution: you know the material but leak marks through slips.",
		BottleneckConcept:  "Your binding constraint is conceptual: specific topics fail regardless of pacing or care.",
		BottleneckAnxiety:  "Your binding constraint is pressure response: performance drops sharply inside exam conditions.",
		BottleneckGeneral:  "The dominant constraint is not yet isolated; the first job is one classification sprint.",
	}[b]
	if quality.Band == BandLow {
		return core + " Input signal is thin, so treat this as a starting hypothesis and log your next attempt in detail."
	}
	return core
}

// BuildPlan lays actions out across the horizon. Each day carries one
// primary action plus a shorter secondary task, and the final day is a
// review block. Horizon defaults to 7 and is clamped to 3..14.
func BuildPlan(horizonDays int, actions []Action, rules []string) Plan {
	if horizonDays <= 0 {
		horizonDays = 7
	}
	if horizonDays < 3 {
		horizonDays = 3
	}
	if horizonDays > 14 {
		horizonDays = 14
	}
	if len(actions) == 0 {
		// An injected library can be empty for a category; a review-only
		// plan keeps the schema guarantee without inventing drills.
		return Plan{
			HorizonDays: horizonDays,
			Rules:       rules,
			Days: []PlanDay{{
				DayIndex: 1,
				Label:    "Day 1",
				Focus:    "Review and consolidate",
				Tasks: []PlanTask{
					{Title: "Review every logged error and write a one-line prevention rule for each", DurationMin: 30},
				},
			}},
		}
	}
	days := make([]PlanDay, 0, horizonDays)
	for i := 0; i < horizonDays; i++ {
		if i == horizonDays-1 {
			days = append(days, PlanDay{
				DayIndex: i + 1,
				Label:    fmt.Sprintf("Day %d", i+1),
				Focus:    "Review and consolidate",
				Tasks: []PlanTask{
					{Title: "Review every logged error from the week and update your rules card", DurationMin: 30},
					{Title: "Re-run the hardest drill from earlier in the plan", DurationMin: 20},
				},
			})
			continue
		}
		primary := actions[i%len(actions)]
		secondary := actions[(i+1)%len(actions)]
		days = append(days, PlanDay{
			DayIndex: i + 1,
			Label:    fmt.Sprintf("Day %d", i+1),
			Focus:    primary.Title,
			Tasks: []PlanTask{
				{ActionID: primary.ID, Title: primary.Title, DurationMin: primary.DurationMin},
				{ActionID: secondary.ID, Title: secondary.Title + " (light pass)", DurationMin: max(10, secondary.DurationMin/2), Note: "short version"},
			},
		})
	}
	levers := make([]Lever, 0, len(actions))
	for _, a := range actions {
		levers = append(levers, Lever{Title: a.Title, Do: a.Steps, Metric: a.SuccessMetric})
	}
	return Plan{HorizonDays: horizonDays, TopLevers: levers, Rules: rules, Days: days}
}

// BuildProbes derives short verification drills from actions. At most five
// probes, each sized to roughly 60% of its action.
func BuildProbes(actions []Action) []Probe {
	probes := make([]Probe, 0, len(actions))
	for _, a := range actions {
		if len(probes) == 5 {
			break
		}
		dur := a.DurationMin * 6 / 10
		if dur < 5 {
			dur = 5
		}
		probes = append(probes, Probe{
			ID:           "probe-" + a.ID,
			Title:        "Probe: " + a.Title,
			DurationMin:  dur,
			Instructions: "Run a compressed version of the drill and record the outcome honestly.",
			SuccessCheck: a.SuccessMetric,
		})
	}
	return probes
}

// BuildFallbackReport synthesizes a complete report from library content.
// Same request and bottleneck always yield the same content.
func (lib FallbackLibrary) BuildFallbackReport(req AnalyzeRequest, b Bottleneck, quality SignalQuality, now time.Time) Report {
	actions := lib.Actions[b]
	if len(actions) == 0 {
		actions = lib.Actions[BottleneckGeneral]
	}
	patterns := lib.Patterns[b]
	if len(patterns) == 0 {
		patterns = lib.Patterns[BottleneckGeneral]
	}
	rules := lib.Rules[b]
	if len(rules) == 0 {
		rules = lib.Rules[BottleneckGeneral]
	}
	return Report{
		ReportID:      "rpt_" + uuid.New().String(),
		UserID:        req.UserID,
		CreatedAt:     now.UTC().Format(time.RFC3339),
		Summary:       summaryFor(b, quality),
		Bottleneck:    b,
		Patterns:      patterns,
		NextActions:   actions,
		Plan:          BuildPlan(req.HorizonDays, actions, rules),
		Probes:        BuildProbes(actions),
		Confidence:    ConfidenceFrom(quality),
		SignalQuality: quality,
	}
}

// Levers converts a plan's top levers into ranking candidates.
func Levers(p Plan) rank.Candidates {
	levers := make([]rank.Lever, 0, len(p.TopLevers))
	for _, l := range p.TopLevers {
		levers = append(levers, rank.Lever{Title: l.Title, Do: l.Do, Metric: l.Metric})
	}
	return rank.Candidates{Levers: levers}
}

// #endregion synthesis

package rank

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// #region constants

const (
	topN            = 3
	leverBase       = 100
	legacyBase      = 90
	positionDecay   = 6
	strugglingBoost = 8
	topicBoostEach  = 3
	topicBoostCap   = 9
)

// #endregion constants

// #region rank

// Actions normalizes the upstream candidates into a common shape, scores and
// deduplicates them, and returns the top 3 with evidence strings. Earlier
// upstream positions retain priority through a decaying base score; users
// with a negative score delta get a recovery boost; weak-topic matches in
// title+steps add up to +9.
func Actions(cands Candidates, evidence EvidenceContext) []NextBestAction {
	base := buildEvidenceBase(evidence)

	var actions []NextBestAction
	switch {
	case len(cands.Levers) > 0:
		for idx, lever := range cands.Levers {
			title := lever.Title
			if title == "" {
				title = fmt.Sprintf("Action %d", idx+1)
			}
			actions = append(actions, NextBestAction{
				ID:             Slug(title, fmt.Sprintf("action-%d", idx+1)),
				Title:          title,
				Steps:          lever.Do,
				Metric:         lever.Metric,
				ExpectedImpact: impactFromDelta(evidence.LastDeltaScorePct, idx),
				Effort:         "20-30 min",
				Evidence:       truncate(append([]string{"From latest strategy plan"}, base...), 3),
				Score:          score(leverBase-idx*positionDecay, title, lever.Do, evidence),
			})
		}
	case len(cands.LegacyTitles) > 0:
		for idx, raw := range cands.LegacyTitles {
			title := raw
			if title == "" {
				title = fmt.Sprintf("Action %d", idx+1)
			}
			actions = append(actions, NextBestAction{
				ID:             Slug(title, fmt.Sprintf("action-%d", idx+1)),
				Title:          title,
				Steps:          []string{},
				ExpectedImpact: impactFromDelta(evidence.LastDeltaScorePct, idx),
				Effort:         "15-25 min",
				Evidence:       truncate(append([]string{"From latest analysis"}, base...), 3),
				Score:          score(legacyBase-idx*positionDecay, title, nil, evidence),
			})
		}
	}

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Score > actions[j].Score
	})
	if len(actions) > topN {
		actions = actions[:topN]
	}
	return actions
}

// #endregion rank

// #region scoring

func score(base int, title string, steps []string, evidence EvidenceContext) int {
	s := base
	if evidence.LastDeltaScorePct != nil && *evidence.LastDeltaScorePct < 0 {
		s += strugglingBoost
	}

	haystack := strings.ToLower(strings.Join(append([]string{title}, steps...), " "))
	matches := 0
	for _, topic := range evidence.WeakTopics {
		if topic == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(topic)) {
			matches++
		}
	}
	boost := matches * topicBoostEach
	if boost > topicBoostCap {
		boost = topicBoostCap
	}
	return s + boost
}

// impactFromDelta maps the last score delta onto the impact band. Struggling
// users see the top candidate as High; improving or unknown users see
// Medium at the top.
func impactFromDelta(delta *float64, idx int) Impact {
	if delta != nil && *delta < 0 {
		if idx == 0 {
			return ImpactHigh
		}
		return ImpactMedium
	}
	if idx == 0 {
		return ImpactMedium
	}
	return ImpactLow
}

// #endregion scoring

// #region evidence

// buildEvidenceBase assembles evidence strings in fixed order: score-delta
// direction, up to 2 weak topics, probe accuracy, low-confidence note.
func buildEvidenceBase(e EvidenceContext) []string {
	var out []string
	if e.LastDeltaScorePct != nil {
		if *e.LastDeltaScorePct < 0 {
			out = append(out, "Recent score dipped vs last mock")
		} else if *e.LastDeltaScorePct > 0 {
			out = append(out, "Recent score improved vs last mock")
		}
	}
	if len(e.WeakTopics) > 0 {
		shown := e.WeakTopics
		if len(shown) > 2 {
			shown = shown[:2]
		}
		out = append(out, "Weak topics: "+strings.Join(shown, ", "))
	}
	if e.ProbeAccuracyAvg != nil {
		out = append(out, fmt.Sprintf("Probe accuracy avg: %d%%", *e.ProbeAccuracyAvg))
	}
	if e.StrategyBand == "low" {
		out = append(out, "Low signal confidence in strategy")
	}
	return out
}

func truncate(ss []string, n int) []string {
	if len(ss) > n {
		return ss[:n]
	}
	return ss
}

// #endregion evidence

// #region slug

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives a stable id from a title: lowercase, non-alphanumeric runs
// collapsed to single hyphens, trimmed, capped at 64 chars.
func Slug(title, fallback string) string {
	s := nonAlnum.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = fallback
	}
	if len(s) > 64 {
		s = s[:64]
	}
	return s
}

// #endregion slug

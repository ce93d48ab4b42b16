package report

import (
	"regexp"
	"strconv"
	"strings"
)

// #region signal-quality

// trackedSignals is the fixed set of input facets the quality score grades
// coverage over. Order is the reporting order of the missing list.
var trackedSignals = []struct {
	name    string
	present func(lowerText string, intake map[string]any) bool
}{
	{"overallScore", func(t string, _ map[string]any) bool {
		return strings.ContainsAny(t, "0123456789")
	}},
	{"accuracy", func(t string, _ map[string]any) bool {
		return strings.Contains(t, "%") || strings.Contains(t, "accuracy") || strings.Contains(t, "correct")
	}},
	{"sectionalBreakdown", func(t string, _ map[string]any) bool {
		return strings.Contains(t, "section") || strings.Contains(t, "subject")
	}},
	{"timing", func(t string, _ map[string]any) bool {
		return strings.Contains(t, "time") || strings.Contains(t, "min") || strings.Contains(t, "pace")
	}},
	{"attemptDetail", func(t string, _ map[string]any) bool {
		return strings.Contains(t, "attempt") || strings.Contains(t, "skipped") || strings.Contains(t, "question")
	}},
	{"errorTypes", func(t string, _ map[string]any) bool {
		return strings.Contains(t, "careless") || strings.Contains(t, "concept") ||
			strings.Contains(t, "silly") || strings.Contains(t, "guess") || strings.Contains(t, "misread")
	}},
	{"examContext", func(_ string, intake map[string]any) bool {
		return len(intake) > 0
	}},
}

// AssessSignalQuality grades how much of the tracked signal set the input
// covers. Score is 100 minus the missing fraction scaled to 100.
func AssessSignalQuality(text string, intake map[string]any) SignalQuality {
	lower := strings.ToLower(text)
	missing := make([]string, 0, len(trackedSignals))
	for _, sig := range trackedSignals {
		if !sig.present(lower, intake) {
			missing = append(missing, sig.name)
		}
	}
	score := 100 - (len(missing)*100)/len(trackedSignals)
	return SignalQuality{Score: score, Band: bandFor(score), Missing: missing}
}

func bandFor(score int) Band {
	switch {
	case score < 50:
		return BandLow
	case score < 75:
		return BandMedium
	default:
		return BandHigh
	}
}

// #endregion signal-quality

// #region confidence

// ConfidenceFrom derives report confidence from signal quality. Confidence
// is capped below quality so a thin input never yields a firm report.
func ConfidenceFrom(quality SignalQuality) Confidence {
	var score int
	switch quality.Band {
	case BandHigh:
		score = 78
	case BandMedium:
		score = 64
	default:
		score = 46
	}
	return Confidence{Score: score, Band: bandFor(score)}
}

// #endregion confidence

// #region score-extraction

var scorePctPattern = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)\s*%`)

// ExtractScorePct pulls the first percentage out of attempt text. It seeds
// the per-user score-delta signal; nil when the text carries no plausible
// percentage.
func ExtractScorePct(text string) *float64 {
	m := scorePctPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v > 100 {
		return nil
	}
	return &v
}

// #endregion score-extraction

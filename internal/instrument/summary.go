package instrument

import (
	"encoding/json"
	"fmt"
)

// #region build-summary

// BuildSummary aggregates a finished attempt's question logs in one pass.
// timer may be nil when the client supplied no clock data.
func BuildSummary(template Template, questions []QuestionLog, timer *Timer) Summary {
	s := Summary{
		TotalQuestions: template.TotalQuestions(),
		ErrorCounts: map[ErrorType]int{
			ErrorConcept:   0,
			ErrorTime:      0,
			ErrorCareless:  0,
			ErrorSelection: 0,
			ErrorUnknown:   0,
		},
	}

	for _, log := range questions {
		s.TotalSpentSec += log.TimeSpentSec
		if log.Status == StatusSkipped {
			s.SkippedCount++
		} else {
			s.AttemptedCount++
		}
		switch log.Correctness {
		case Correct:
			s.CorrectCount++
		case Incorrect:
			s.IncorrectCount++
			errType := log.ErrorType
			if errType == "" {
				errType = ErrorUnknown
			}
			s.ErrorCounts[errType]++
		default:
			s.UnknownCount++
		}
	}

	avg := 0.0
	if s.AttemptedCount > 0 {
		avg = float64(s.TotalSpentSec) / float64(s.AttemptedCount)
		s.AvgPerAttemptedSec = int(avg + 0.5)
	}

	s.DominantErrorType = dominantErrorType(s.ErrorCounts)
	s.TimePressureProxy = timePressureProxy(template, timer, avg, s.TotalSpentSec)

	return s
}

// dominantErrorType returns the error type with the highest non-zero count.
// Ties break by enumeration order: concept, time, careless, selection,
// unknown. No incorrect logs at all means "unknown".
func dominantErrorType(counts map[ErrorType]int) ErrorType {
	best := ErrorUnknown
	bestCount := 0
	for _, t := range errorTypeOrder {
		if counts[t] > bestCount {
			best = t
			bestCount = counts[t]
		}
	}
	return best
}

// timePressureProxy triangulates three independent pressure signals: a
// negative clock (drift or overrun past zero), per-question stalling above
// 1.25x the expected average, and aggregate overrun past 1.1x the budget.
func timePressureProxy(template Template, timer *Timer, avgPerAttempted float64, totalSpentSec int) bool {
	remainingSec := 0
	totalTimeSec := 0
	if timer != nil {
		remainingSec = timer.RemainingSec
		totalTimeSec = timer.TotalTimeSec
	}

	if remainingSec < 0 {
		return true
	}

	expectedAvgSec := 0.0
	if template.TotalQuestions() > 0 {
		expectedAvgSec = float64(totalTimeSec) / float64(template.TotalQuestions())
	}
	if expectedAvgSec > 0 && avgPerAttempted > expectedAvgSec*1.25 {
		return true
	}

	if totalTimeSec > 0 && float64(totalSpentSec) > float64(totalTimeSec)*1.1 {
		return true
	}

	return false
}

// #endregion build-summary

// #region finished-event

// FinishedPayload folds a summary into the instrument_finished event payload
// consumed by the reducer. Nested values are plain JSON shapes (maps and
// float64) so applying the event in memory and replaying it from the log
// produce identical envelopes.
func FinishedPayload(attemptID string, template Template, summary Summary) map[string]any {
	errorSignals := make(map[string]any, len(summary.ErrorCounts))
	for errType, count := range summary.ErrorCounts {
		errorSignals[string(errType)] = float64(count)
	}
	return map[string]any{
		"attemptId":         attemptID,
		"template":          asJSONMap(template),
		"summary":           asJSONMap(summary),
		"dominantErrorType": string(summary.DominantErrorType),
		"errorSignals":      errorSignals,
		"timePressureProxy": summary.TimePressureProxy,
	}
}

func asJSONMap(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

// SummaryText renders the one-line summary that seeds report generation.
func SummaryText(s Summary) string {
	return fmt.Sprintf(
		"Instrumented attempt: %d attempted, %d skipped, %d correct, %d incorrect, %d unknown. Dominant error type: %s. Avg time per attempted question: %ds.",
		s.AttemptedCount, s.SkippedCount, s.CorrectCount, s.IncorrectCount, s.UnknownCount,
		s.DominantErrorType, s.AvgPerAttemptedSec,
	)
}

// #endregion finished-event

// #region dedupe

// DedupeQuestions enforces the one-log-per-question invariant: later entries
// replace earlier ones for the same (sectionIndex, questionIndex) key.
func DedupeQuestions(questions []QuestionLog) []QuestionLog {
	byKey := make(map[string]int, len(questions))
	out := make([]QuestionLog, 0, len(questions))
	for _, q := range questions {
		key := fmt.Sprintf("%d:%d", q.SectionIndex, q.QuestionIndex)
		if idx, seen := byKey[key]; seen {
			out[idx] = q
			continue
		}
		byKey[key] = len(out)
		out = append(out, q)
	}
	return out
}

// #endregion dedupe

package reducer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cogniverse/coach-engine/internal/events"
	"github.com/cogniverse/coach-engine/internal/state"
)

// #region apply

// ApplyEvent computes the next envelope from the current envelope and one
// normalized event. Pure: the same (state, event) always yields the same
// result (modulo updatedAt), which makes replay and testing deterministic.
// It never fails for a recognized event; malformed payload fields degrade
// to partial writes rather than aborting the whole update.
func ApplyEvent(st state.UserState, ev events.Record) state.UserState {
	next := st
	next.Signals = copyMap(st.Signals)
	next.Facts = copyMap(st.Facts)
	next.Preferences = copyMap(st.Preferences)

	switch ev.Type {
	case events.TypeMockAnalyzed:
		next.Facts["lastMock"] = map[string]any{
			"ts":             ev.TS,
			"source":         ev.Payload["source"],
			"extractedChars": ev.Payload["extractedChars"],
			"summary":        ev.Payload["summary"],
		}
		if pct, ok := floatField(ev.Payload, "scorePct"); ok {
			if prev, ok := floatField(next.Signals, "lastScorePct"); ok {
				next.Signals["lastDeltaScorePct"] = pct - prev
			}
			next.Signals["lastScorePct"] = pct
		}

	case events.TypePlanGenerated:
		next.Facts["lastPlan"] = map[string]any{
			"ts":          ev.TS,
			"horizonDays": ev.Payload["horizonDays"],
			"actionCount": ev.Payload["actionCount"],
		}
		if topics := stringList(ev.Payload["weakTopics"]); len(topics) > 0 {
			// Stored as []any so an envelope that lived in memory matches
			// one reloaded from JSON.
			vals := make([]any, len(topics))
			for i, topic := range topics {
				vals[i] = topic
			}
			next.Facts["weakTopics"] = vals
		}

	case events.TypeActionStarted, events.TypeActionCompleted, events.TypeActionSkipped:
		if actionID, ok := ev.Payload["actionId"].(string); ok && actionID != "" {
			statusMap := copyMap(asMap(next.Facts["actionStatus"]))
			statusMap[actionID] = map[string]any{
				"status": strings.TrimPrefix(string(ev.Type), "action_"),
				"ts":     ev.TS,
			}
			next.Facts["actionStatus"] = statusMap
		}

	case events.TypeUserFeedback:
		feedback := map[string]any{"ts": ev.TS}
		for k, v := range ev.Payload {
			feedback[k] = v
		}
		next.Signals["feedback"] = feedback

	case events.TypeChatMessage:
		next.Facts["lastChatMessage"] = map[string]any{
			"ts":      ev.TS,
			"role":    ev.Payload["role"],
			"content": ev.Payload["content"],
		}

	case events.TypeIntakeUpdated:
		intake := copyMap(asMap(next.Facts["intake"]))
		for k, v := range ev.Payload {
			intake[k] = v
		}
		next.Facts["intake"] = intake

	case events.TypeInstrumentQuestion:
		applyQuestionUpdate(&next, ev)

	case events.TypeInstrumentFinished:
		applyInstrumentFinished(&next, ev)

	default:
		// Normalized but unrecognized here: record, never silently drop.
		next.Facts["lastUnknownEvent"] = map[string]any{
			"ts":      ev.TS,
			"type":    string(ev.Type),
			"payload": ev.Payload,
		}
	}

	recent := make([]string, 0, state.HistoryCap)
	recent = append(recent, ev.EventID)
	recent = append(recent, st.History.RecentEventIDs...)
	if len(recent) > state.HistoryCap {
		recent = recent[:state.HistoryCap]
	}
	next.History = state.History{RecentEventIDs: recent}
	next.Version = st.Version + 1
	next.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)

	return next
}

// #endregion apply

// #region instrument-events

func applyQuestionUpdate(next *state.UserState, ev events.Record) {
	key, _ := ev.Payload["questionKey"].(string)
	if key == "" {
		section, okS := intField(ev.Payload, "sectionIndex")
		question, okQ := intField(ev.Payload, "questionIndex")
		if !okS || !okQ {
			return
		}
		key = fmt.Sprintf("%d:%d", section, question)
	}

	log := copyMap(ev.Payload)
	if _, ok := log["updatedAt"].(string); !ok {
		log["updatedAt"] = ev.TS
	}
	next.Facts["mode2.q."+key] = log
}

func applyInstrumentFinished(next *state.UserState, ev events.Record) {
	if summary, ok := ev.Payload["summary"]; ok {
		next.Facts["mode2.summary"] = summary
	}
	if template, ok := ev.Payload["template"]; ok {
		next.Facts["mode2.template"] = template
	}
	if dominant, ok := ev.Payload["dominantErrorType"]; ok {
		next.Facts["mode2.dominantErrorType"] = dominant
	}
	if proxy, ok := ev.Payload["timePressureProxy"]; ok {
		next.Signals["timePressure.proxy"] = proxy
	}
	if counts := asMap(ev.Payload["errorSignals"]); counts != nil {
		for errType, count := range counts {
			next.Signals["errors."+errType+".count"] = count
		}
	}
	if summary := asMap(ev.Payload["summary"]); summary != nil {
		attempted, okA := floatField(summary, "attemptedCount")
		correct, okC := floatField(summary, "correctCount")
		if okA && okC && attempted > 0 {
			// Rolling average over instrumented attempts, the engine's
			// probe signal.
			cur := math.Round(correct / attempted * 100)
			if prev, ok := floatField(next.Signals, "probe.accuracyAvg"); ok {
				cur = math.Round((prev + cur) / 2)
			}
			next.Signals["probe.accuracyAvg"] = cur
		}
	}
	next.Facts["mode2.completedAt"] = ev.TS
}

// #endregion instrument-events

// #region helpers

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

func intField(payload map[string]any, key string) (int, bool) {
	switch n := payload[key].(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func floatField(payload map[string]any, key string) (float64, bool) {
	switch n := payload[key].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// stringList normalizes a payload list field: in-memory events carry
// []string, replayed events carry []any.
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// #endregion helpers

package reducer

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/cogniverse/coach-engine/internal/events"
	"github.com/cogniverse/coach-engine/internal/state"
)

func record(id string, typ events.Type, payload map[string]any) events.Record {
	return events.Record{
		EventID: id,
		UserID:  "user-1",
		Type:    typ,
		TS:      "2026-01-01T00:00:00Z",
		Payload: payload,
	}
}

func TestApplyEventDeterministic(t *testing.T) {
	st := state.DefaultState("user-1")
	ev := record("evt_1", events.TypeMockAnalyzed, map[string]any{"source": "text", "summary": "pacing issue"})

	r1 := ApplyEvent(st, ev)
	r2 := ApplyEvent(st, ev)

	if !reflect.DeepEqual(r1.Facts, r2.Facts) || !reflect.DeepEqual(r1.Signals, r2.Signals) {
		t.Fatal("same input must produce same envelope")
	}
	if r1.Version != r2.Version {
		t.Fatalf("versions differ: %d vs %d", r1.Version, r2.Version)
	}
}

func TestApplyEventDoesNotMutateInput(t *testing.T) {
	st := state.DefaultState("user-1")
	st.Facts["existing"] = "value"

	_ = ApplyEvent(st, record("evt_1", events.TypeIntakeUpdated, map[string]any{"exam": "upsc"}))

	if len(st.Facts) != 1 || st.Version != 1 || len(st.History.RecentEventIDs) != 0 {
		t.Fatalf("input state mutated: %+v", st)
	}
}

func TestApplyEventVersionAndHistory(t *testing.T) {
	st := state.DefaultState("user-1")

	st = ApplyEvent(st, record("evt_1", events.TypeChatMessage, map[string]any{"role": "user", "content": "hi"}))
	st = ApplyEvent(st, record("evt_2", events.TypeChatMessage, map[string]any{"role": "coach", "content": "hello"}))

	if st.Version != 3 {
		t.Fatalf("expected version 3, got %d", st.Version)
	}
	// Most recent first.
	if st.History.RecentEventIDs[0] != "evt_2" || st.History.RecentEventIDs[1] != "evt_1" {
		t.Fatalf("wrong history order: %v", st.History.RecentEventIDs)
	}
}

func TestHistoryCappedAt25(t *testing.T) {
	st := state.DefaultState("user-1")
	for i := 0; i < 30; i++ {
		st = ApplyEvent(st, record(fmt.Sprintf("evt_%d", i), events.TypeUserFeedback, map[string]any{"helpful": true}))
	}
	if len(st.History.RecentEventIDs) != state.HistoryCap {
		t.Fatalf("expected %d ids, got %d", state.HistoryCap, len(st.History.RecentEventIDs))
	}
	if st.History.RecentEventIDs[0] != "evt_29" {
		t.Fatalf("newest not first: %s", st.History.RecentEventIDs[0])
	}
	if st.History.RecentEventIDs[24] != "evt_5" {
		t.Fatalf("oldest kept wrong: %s", st.History.RecentEventIDs[24])
	}
}

func TestMockAnalyzedWritesLastMock(t *testing.T) {
	st := ApplyEvent(state.DefaultState("user-1"), record("evt_1", events.TypeMockAnalyzed, map[string]any{
		"source": "pdf", "extractedChars": 1200, "summary": "time trouble",
	}))

	lastMock, ok := st.Facts["lastMock"].(map[string]any)
	if !ok {
		t.Fatalf("lastMock missing: %v", st.Facts)
	}
	if lastMock["source"] != "pdf" || lastMock["summary"] != "time trouble" {
		t.Fatalf("wrong lastMock: %v", lastMock)
	}
	if lastMock["ts"] != "2026-01-01T00:00:00Z" {
		t.Fatalf("ts not carried: %v", lastMock["ts"])
	}
}

func TestMockAnalyzedScoreDelta(t *testing.T) {
	st := state.DefaultState("user-1")

	st = ApplyEvent(st, record("evt_1", events.TypeMockAnalyzed, map[string]any{"source": "text", "scorePct": 70.0}))
	if _, ok := st.Signals["lastDeltaScorePct"]; ok {
		t.Fatalf("delta must not exist after first score: %v", st.Signals)
	}
	if st.Signals["lastScorePct"] != 70.0 {
		t.Fatalf("lastScorePct not written: %v", st.Signals)
	}

	st = ApplyEvent(st, record("evt_2", events.TypeMockAnalyzed, map[string]any{"source": "text", "scorePct": 58.0}))
	if st.Signals["lastDeltaScorePct"] != -12.0 {
		t.Fatalf("expected delta -12, got %v", st.Signals["lastDeltaScorePct"])
	}
	if st.Signals["lastScorePct"] != 58.0 {
		t.Fatalf("lastScorePct not advanced: %v", st.Signals)
	}

	// A mock without a score leaves both signals alone.
	st = ApplyEvent(st, record("evt_3", events.TypeMockAnalyzed, map[string]any{"source": "pdf"}))
	if st.Signals["lastDeltaScorePct"] != -12.0 || st.Signals["lastScorePct"] != 58.0 {
		t.Fatalf("scoreless mock disturbed signals: %v", st.Signals)
	}
}

func TestPlanGeneratedWeakTopics(t *testing.T) {
	st := ApplyEvent(state.DefaultState("user-1"), record("evt_1", events.TypePlanGenerated, map[string]any{
		"horizonDays": 7,
		"actionCount": 3,
		"weakTopics":  []string{"Clock absorbed by early questions", "Execution slips"},
	}))

	topics, ok := st.Facts["weakTopics"].([]any)
	if !ok || len(topics) != 2 {
		t.Fatalf("weakTopics not written: %v", st.Facts["weakTopics"])
	}
	if topics[0] != "Clock absorbed by early questions" {
		t.Fatalf("wrong topic: %v", topics[0])
	}

	// Replayed payloads carry []any; same result.
	replayed := ApplyEvent(state.DefaultState("user-1"), record("evt_1", events.TypePlanGenerated, map[string]any{
		"weakTopics": []any{"Clock absorbed by early questions", "Execution slips"},
	}))
	if !reflect.DeepEqual(replayed.Facts["weakTopics"], st.Facts["weakTopics"]) {
		t.Fatalf("in-memory and replayed topics differ: %v vs %v",
			st.Facts["weakTopics"], replayed.Facts["weakTopics"])
	}
}

func TestInstrumentFinishedProbeAccuracy(t *testing.T) {
	st := state.DefaultState("user-1")

	st = ApplyEvent(st, record("evt_1", events.TypeInstrumentFinished, map[string]any{
		"summary": map[string]any{"attemptedCount": 10.0, "correctCount": 6.0},
	}))
	if st.Signals["probe.accuracyAvg"] != 60.0 {
		t.Fatalf("expected 60, got %v", st.Signals["probe.accuracyAvg"])
	}

	st = ApplyEvent(st, record("evt_2", events.TypeInstrumentFinished, map[string]any{
		"summary": map[string]any{"attemptedCount": 10.0, "correctCount": 8.0},
	}))
	// Rolling average: (60 + 80) / 2.
	if st.Signals["probe.accuracyAvg"] != 70.0 {
		t.Fatalf("expected 70, got %v", st.Signals["probe.accuracyAvg"])
	}

	// Zero attempts never divides.
	st = ApplyEvent(st, record("evt_3", events.TypeInstrumentFinished, map[string]any{
		"summary": map[string]any{"attemptedCount": 0.0, "correctCount": 0.0},
	}))
	if st.Signals["probe.accuracyAvg"] != 70.0 {
		t.Fatalf("zero-attempt summary disturbed average: %v", st.Signals["probe.accuracyAvg"])
	}
}

func TestActionEventsTargetSingleKey(t *testing.T) {
	st := state.DefaultState("user-1")
	st = ApplyEvent(st, record("evt_1", events.TypeActionStarted, map[string]any{"actionId": "drill-a"}))
	st = ApplyEvent(st, record("evt_2", events.TypeActionCompleted, map[string]any{"actionId": "drill-a"}))
	st = ApplyEvent(st, record("evt_3", events.TypeActionSkipped, map[string]any{"actionId": "drill-b"}))

	status := st.Facts["actionStatus"].(map[string]any)
	a := status["drill-a"].(map[string]any)
	if a["status"] != "completed" {
		t.Fatalf("expected completed, got %v", a["status"])
	}
	b := status["drill-b"].(map[string]any)
	if b["status"] != "skipped" {
		t.Fatalf("expected skipped, got %v", b["status"])
	}
}

func TestActionEventWithoutIDIsNoOpOnFacts(t *testing.T) {
	st := ApplyEvent(state.DefaultState("user-1"), record("evt_1", events.TypeActionStarted, map[string]any{}))
	if _, ok := st.Facts["actionStatus"]; ok {
		t.Fatal("actionStatus written without actionId")
	}
	if st.Version != 2 {
		t.Fatalf("version must still advance, got %d", st.Version)
	}
}

func TestIntakeUpdatedMerges(t *testing.T) {
	st := state.DefaultState("user-1")
	st = ApplyEvent(st, record("evt_1", events.TypeIntakeUpdated, map[string]any{"exam": "upsc", "hoursPerDay": 4}))
	st = ApplyEvent(st, record("evt_2", events.TypeIntakeUpdated, map[string]any{"hoursPerDay": 6}))

	intake := st.Facts["intake"].(map[string]any)
	if intake["exam"] != "upsc" {
		t.Fatalf("earlier intake key lost: %v", intake)
	}
	if intake["hoursPerDay"] != 6 {
		t.Fatalf("later intake key not applied: %v", intake)
	}
}

func TestInstrumentQuestionKey(t *testing.T) {
	st := ApplyEvent(state.DefaultState("user-1"), record("evt_1", events.TypeInstrumentQuestion, map[string]any{
		"sectionIndex": 1, "questionIndex": 4, "status": "attempted",
	}))
	if _, ok := st.Facts["mode2.q.1:4"]; !ok {
		t.Fatalf("question key missing: %v", st.Facts)
	}
}

func TestInstrumentFinishedProjection(t *testing.T) {
	st := ApplyEvent(state.DefaultState("user-1"), record("evt_1", events.TypeInstrumentFinished, map[string]any{
		"summary":           map[string]any{"attemptedCount": 10},
		"template":          map[string]any{"sectionCount": 1},
		"dominantErrorType": "time",
		"timePressureProxy": true,
		"errorSignals":      map[string]any{"time": 4, "careless": 1},
	}))

	if st.Facts["mode2.dominantErrorType"] != "time" {
		t.Fatalf("dominant missing: %v", st.Facts)
	}
	if st.Facts["mode2.completedAt"] != "2026-01-01T00:00:00Z" {
		t.Fatalf("completedAt missing: %v", st.Facts["mode2.completedAt"])
	}
	if st.Signals["timePressure.proxy"] != true {
		t.Fatalf("proxy signal missing: %v", st.Signals)
	}
	if st.Signals["errors.time.count"] != 4 {
		t.Fatalf("error count signal missing: %v", st.Signals)
	}
}

func TestUnrecognizedTypeRecorded(t *testing.T) {
	st := ApplyEvent(state.DefaultState("user-1"), record("evt_1", events.Type("legacy_event"), map[string]any{"k": "v"}))

	last, ok := st.Facts["lastUnknownEvent"].(map[string]any)
	if !ok {
		t.Fatalf("lastUnknownEvent missing: %v", st.Facts)
	}
	if last["type"] != "legacy_event" {
		t.Fatalf("wrong type recorded: %v", last["type"])
	}
}

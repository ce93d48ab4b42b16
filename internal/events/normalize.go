package events

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// #region normalize

// NormalizeEvent converts a loosely-typed input into a Record. It assigns
// eventId and ts when absent and rejects types outside the closed taxonomy.
// Pure transform: callers are responsible for persistence.
func NormalizeEvent(userID string, input Input) (Record, error) {
	t := Type(input.Type)
	if !knownTypes[t] {
		return Record{}, fmt.Errorf("normalize %q: %w", input.Type, ErrUnknownEventType)
	}

	ts := input.TS
	if ts == "" {
		ts = time.Now().UTC().Format(time.RFC3339Nano)
	}

	payload := input.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	payload = sanitizePayload(t, payload, ts)

	ctx := input.Context
	if ctx == nil {
		ctx = map[string]any{}
	}

	return Record{
		EventID:   "evt_" + uuid.New().String(),
		UserID:    userID,
		Type:      t,
		TS:        ts,
		Payload:   payload,
		Context:   ctx,
		RequestID: input.RequestID,
	}, nil
}

// #endregion normalize

// #region sanitize

var (
	statusOptions      = map[string]bool{"attempted": true, "skipped": true}
	confidenceOptions  = map[string]bool{"low": true, "med": true, "high": true}
	correctnessOptions = map[string]bool{"correct": true, "incorrect": true, "unknown": true}
	errorTypeOptions   = map[string]bool{"concept": true, "time": true, "careless": true, "selection": true, "unknown": true}
)

// sanitizePayload coerces the fields of type-specific payloads into their
// expected shapes. Unknown fields pass through untouched: strict validation
// belongs upstream and downstream, not here.
func sanitizePayload(t Type, payload map[string]any, ts string) map[string]any {
	if t != TypeInstrumentQuestion {
		return payload
	}

	out := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	out["sectionIndex"] = coerceInt(payload["sectionIndex"], 0)
	out["questionIndex"] = coerceInt(payload["questionIndex"], 0)
	out["timeSpentSec"] = coerceInt(payload["timeSpentSec"], 0)
	out["status"] = coerceEnum(payload["status"], statusOptions, "attempted")
	out["confidence"] = coerceEnum(payload["confidence"], confidenceOptions, "med")
	out["correctness"] = coerceEnum(payload["correctness"], correctnessOptions, "unknown")
	out["errorType"] = coerceEnum(payload["errorType"], errorTypeOptions, "unknown")
	if _, ok := out["updatedAt"].(string); !ok {
		out["updatedAt"] = ts
	}
	return out
}

func coerceInt(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	return fallback
}

func coerceEnum(v any, allowed map[string]bool, fallback string) string {
	if s, ok := v.(string); ok && allowed[s] {
		return s
	}
	return fallback
}

// #endregion sanitize

package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cogniverse/coach-engine/internal/events"
	"github.com/cogniverse/coach-engine/internal/instrument"
	"github.com/cogniverse/coach-engine/internal/rank"
	"github.com/cogniverse/coach-engine/internal/reducer"
	"github.com/cogniverse/coach-engine/internal/report"
	"github.com/cogniverse/coach-engine/internal/state"
)

// #region analyze

type analyzeBody struct {
	Text        string         `json:"text"`
	Source      string         `json:"source"`
	Intake      map[string]any `json:"intake"`
	HorizonDays int            `json:"horizonDays"`
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var body analyzeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "malformed JSON body")
		return
	}
	if body.Source == "" {
		body.Source = "text"
	}
	uid := userID(c)

	rep, err := s.pipe.Analyze(c.Request.Context(), report.AnalyzeRequest{
		UserID:      uid,
		Text:        body.Text,
		Source:      body.Source,
		Intake:      body.Intake,
		HorizonDays: body.HorizonDays,
	})
	if err != nil {
		if errors.Is(err, report.ErrInvalidRequest) {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
		s.log.Error("analyze failed", zap.String("user_id", uid), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "INTERNAL", "analysis failed")
		return
	}

	st, err := s.store.Get(uid)
	if err != nil {
		s.log.Error("state load failed", zap.String("user_id", uid), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "INTERNAL", "state unavailable")
		return
	}

	mockPayload := map[string]any{
		"source":         body.Source,
		"extractedChars": len(body.Text),
		"summary":        rep.Summary,
	}
	if pct := report.ExtractScorePct(body.Text); pct != nil {
		mockPayload["scorePct"] = *pct
	}
	st, err = s.recordEvent(st, uid, events.TypeMockAnalyzed, mockPayload)
	if err == nil {
		st, err = s.recordEvent(st, uid, events.TypePlanGenerated, planPayload(rep))
	}
	if err == nil {
		err = s.store.Put(st)
	}
	if err != nil {
		s.log.Error("state persist failed", zap.String("user_id", uid), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "INTERNAL", "state persist failed")
		return
	}

	ranked := rank.Actions(candidatesFromReport(rep), evidenceFromReport(rep, st))
	c.JSON(http.StatusOK, gin.H{
		"report":      rep,
		"nextActions": ranked,
		"state":       state.ToSnapshot(st),
	})
}

// #endregion analyze

// #region instrument-finish

type finishBody struct {
	AttemptID   string                   `json:"attemptId"`
	Template    instrument.Template      `json:"template"`
	Questions   []instrument.QuestionLog `json:"questions"`
	Timer       *instrument.Timer        `json:"timer"`
	Snapshot    *state.Snapshot          `json:"stateSnapshot"`
	HorizonDays int                      `json:"horizonDays"`
}

func (s *Server) handleInstrumentFinish(c *gin.Context) {
	var body finishBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "malformed JSON body")
		return
	}
	if body.Template.TotalQuestions() <= 0 || len(body.Questions) == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "template and questions are required")
		return
	}
	if body.AttemptID == "" {
		body.AttemptID = "att_" + uuid.New().String()
	}
	uid := userID(c)

	st, err := s.store.Get(uid)
	if err != nil {
		s.log.Error("state load failed", zap.String("user_id", uid), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "INTERNAL", "state unavailable")
		return
	}
	// Anonymous clients may carry their own snapshot; reconcile it with the
	// server copy. Authenticated users always use the server-held state.
	if IsAnonymous(uid) && body.Snapshot != nil {
		st = reducer.MergeState(st, state.FromSnapshot(*body.Snapshot, uid))
	}

	summary := instrument.BuildSummary(body.Template, instrument.DedupeQuestions(body.Questions), body.Timer)

	st, err = s.recordEvent(st, uid, events.TypeInstrumentFinished,
		instrument.FinishedPayload(body.AttemptID, body.Template, summary))
	if err != nil {
		s.log.Error("event record failed", zap.String("user_id", uid), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "INTERNAL", "event record failed")
		return
	}

	rep, err := s.pipe.Analyze(c.Request.Context(), report.AnalyzeRequest{
		UserID:      uid,
		Text:        instrument.SummaryText(summary),
		Source:      "text",
		Intake:      map[string]any{"dominantErrorType": string(summary.DominantErrorType)},
		HorizonDays: body.HorizonDays,
	})
	if err != nil {
		s.log.Error("analyze failed", zap.String("user_id", uid), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "INTERNAL", "analysis failed")
		return
	}

	st, err = s.recordEvent(st, uid, events.TypePlanGenerated, planPayload(rep))
	if err == nil {
		err = s.store.Put(st)
	}
	if err != nil {
		s.log.Error("state persist failed", zap.String("user_id", uid), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "INTERNAL", "state persist failed")
		return
	}

	ranked := rank.Actions(candidatesFromReport(rep), evidenceFromReport(rep, st))
	c.JSON(http.StatusOK, gin.H{
		"attemptId":   body.AttemptID,
		"summary":     summary,
		"report":      rep,
		"nextActions": ranked,
		"state":       state.ToSnapshot(st),
	})
}

// #endregion instrument-finish

// #region next-actions

func (s *Server) handleNextActions(c *gin.Context) {
	uid := userID(c)
	// The envelope is per user; exam scoping rides inside intake facts. The
	// parameter is normalized and echoed so clients can key their caches,
	// and it falls back to the stored intake exam when absent.
	exam := strings.ToLower(strings.TrimSpace(c.Query("exam")))

	st, err := s.store.Get(uid)
	if err != nil {
		s.log.Error("state load failed", zap.String("user_id", uid), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "INTERNAL", "state unavailable")
		return
	}
	if exam == "" {
		if intake, ok := st.Facts["intake"].(map[string]any); ok {
			if v, ok := intake["exam"].(string); ok {
				exam = strings.ToLower(strings.TrimSpace(v))
			}
		}
	}

	dominant, _ := st.Facts["mode2.dominantErrorType"].(string)
	bottleneck := report.DetectBottleneck("", dominant)
	actions := s.lib.Actions[bottleneck]
	if len(actions) == 0 {
		actions = s.lib.Actions[report.BottleneckGeneral]
	}

	levers := make([]rank.Lever, 0, len(actions))
	for _, a := range actions {
		levers = append(levers, rank.Lever{Title: a.Title, Do: a.Steps, Metric: a.SuccessMetric})
	}

	ranked := rank.Actions(rank.Candidates{Levers: levers}, evidenceFromState(st))
	c.JSON(http.StatusOK, gin.H{
		"exam":        exam,
		"nextActions": ranked,
		"state":       state.ToSnapshot(st),
	})
}

// #endregion next-actions

// #region helpers

// recordEvent normalizes, logs, and applies one event, returning the
// advanced state.
func (s *Server) recordEvent(st state.UserState, uid string, typ events.Type, payload map[string]any) (state.UserState, error) {
	rec, err := events.NormalizeEvent(uid, events.Input{Type: string(typ), Payload: payload})
	if err != nil {
		return st, err
	}
	if err := s.store.LogEvent(rec); err != nil {
		return st, err
	}
	return reducer.ApplyEvent(st, rec), nil
}

// planPayload builds the plan_generated event payload. Pattern titles ride
// along as weak topics so later ranking sees where the last report found
// trouble.
func planPayload(rep report.Report) map[string]any {
	payload := map[string]any{
		"horizonDays": rep.Plan.HorizonDays,
		"actionCount": len(rep.NextActions),
	}
	topics := make([]string, 0, 3)
	for _, p := range rep.Patterns {
		if len(topics) == 3 {
			break
		}
		topics = append(topics, p.Title)
	}
	if len(topics) > 0 {
		payload["weakTopics"] = topics
	}
	return payload
}

// candidatesFromReport prefers the plan's levers; legacy action titles are
// the fallback candidate source.
func candidatesFromReport(rep report.Report) rank.Candidates {
	if len(rep.Plan.TopLevers) > 0 {
		return report.Levers(rep.Plan)
	}
	titles := make([]string, 0, len(rep.NextActions))
	for _, a := range rep.NextActions {
		titles = append(titles, a.Title)
	}
	return rank.Candidates{LegacyTitles: titles}
}

func evidenceFromReport(rep report.Report, st state.UserState) rank.EvidenceContext {
	ev := evidenceFromState(st)
	ev.StrategyBand = string(rep.SignalQuality.Band)
	return ev
}

// evidenceFromState extracts ranking evidence from the state envelope:
// intake weak topics, pattern-derived weak topics, the score delta, and the
// rolling probe accuracy, all written by the reducer.
func evidenceFromState(st state.UserState) rank.EvidenceContext {
	var ev rank.EvidenceContext
	if intake, ok := st.Facts["intake"].(map[string]any); ok {
		ev.WeakTopics = append(ev.WeakTopics, stringValues(intake["weakTopics"])...)
	}
	ev.WeakTopics = append(ev.WeakTopics, stringValues(st.Facts["weakTopics"])...)
	if v, ok := st.Signals["lastDeltaScorePct"].(float64); ok {
		ev.LastDeltaScorePct = &v
	}
	if v, ok := st.Signals["probe.accuracyAvg"].(float64); ok {
		avg := int(v)
		ev.ProbeAccuracyAvg = &avg
	}
	return ev
}

func stringValues(v any) []string {
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

package instrument

import "testing"

func TestBuildSummaryCountsPartition(t *testing.T) {
	template := Template{SectionCount: 2, QuestionsPerSection: 5, TotalTimeMin: 20}
	questions := []QuestionLog{
		{SectionIndex: 0, QuestionIndex: 0, Status: StatusAttempted, Correctness: Correct, TimeSpentSec: 60},
		{SectionIndex: 0, QuestionIndex: 1, Status: StatusAttempted, Correctness: Incorrect, ErrorType: ErrorConcept, TimeSpentSec: 90},
		{SectionIndex: 0, QuestionIndex: 2, Status: StatusSkipped, Correctness: CorrectnessUnset, TimeSpentSec: 10},
		{SectionIndex: 0, QuestionIndex: 3, Status: StatusAttempted, Correctness: CorrectnessUnset, TimeSpentSec: 30},
	}

	s := BuildSummary(template, questions, nil)

	if s.AttemptedCount != 3 || s.SkippedCount != 1 {
		t.Fatalf("wrong attempt partition: %d attempted, %d skipped", s.AttemptedCount, s.SkippedCount)
	}
	if s.CorrectCount+s.IncorrectCount+s.UnknownCount != len(questions) {
		t.Fatal("correctness buckets must partition the logs")
	}
	if s.TotalQuestions != 10 {
		t.Fatalf("expected 10 total questions, got %d", s.TotalQuestions)
	}
	if s.TotalSpentSec != 190 {
		t.Fatalf("expected 190 spent, got %d", s.TotalSpentSec)
	}
	// 190/3 = 63.3 rounds to 63.
	if s.AvgPerAttemptedSec != 63 {
		t.Fatalf("expected avg 63, got %d", s.AvgPerAttemptedSec)
	}
}

func TestBuildSummaryNoAttempts(t *testing.T) {
	template := Template{SectionCount: 1, QuestionsPerSection: 5, TotalTimeMin: 10}
	questions := []QuestionLog{
		{SectionIndex: 0, QuestionIndex: 0, Status: StatusSkipped},
		{SectionIndex: 0, QuestionIndex: 1, Status: StatusSkipped},
	}

	s := BuildSummary(template, questions, nil)
	if s.AvgPerAttemptedSec != 0 {
		t.Fatalf("expected avg 0 with no attempts, got %d", s.AvgPerAttemptedSec)
	}
	if s.DominantErrorType != ErrorUnknown {
		t.Fatalf("expected unknown dominant, got %s", s.DominantErrorType)
	}
}

func TestErrorCountsOnlyForIncorrect(t *testing.T) {
	template := Template{SectionCount: 1, QuestionsPerSection: 4, TotalTimeMin: 10}
	questions := []QuestionLog{
		// errorType on a correct answer must be ignored
		{Status: StatusAttempted, Correctness: Correct, ErrorType: ErrorTime},
		{QuestionIndex: 1, Status: StatusAttempted, Correctness: Incorrect, ErrorType: ErrorTime},
		{QuestionIndex: 2, Status: StatusAttempted, Correctness: Incorrect},
	}

	s := BuildSummary(template, questions, nil)
	if s.ErrorCounts[ErrorTime] != 1 {
		t.Fatalf("expected 1 time error, got %d", s.ErrorCounts[ErrorTime])
	}
	// Incorrect without a declared error type counts as unknown.
	if s.ErrorCounts[ErrorUnknown] != 1 {
		t.Fatalf("expected 1 unknown error, got %d", s.ErrorCounts[ErrorUnknown])
	}
}

func TestDominantErrorTypeTieBreak(t *testing.T) {
	template := Template{SectionCount: 1, QuestionsPerSection: 4, TotalTimeMin: 10}
	questions := []QuestionLog{
		{Status: StatusAttempted, Correctness: Incorrect, ErrorType: ErrorTime},
		{QuestionIndex: 1, Status: StatusAttempted, Correctness: Incorrect, ErrorType: ErrorConcept},
	}

	s := BuildSummary(template, questions, nil)
	// Tied counts resolve by fixed order; concept precedes time.
	if s.DominantErrorType != ErrorConcept {
		t.Fatalf("expected concept on tie, got %s", s.DominantErrorType)
	}
}

func TestTimePressureProxy(t *testing.T) {
	template := Template{SectionCount: 1, QuestionsPerSection: 10, TotalTimeMin: 10}

	cases := []struct {
		name      string
		questions []QuestionLog
		timer     *Timer
		want      bool
	}{
		{
			name:      "negative clock",
			questions: []QuestionLog{{Status: StatusAttempted, TimeSpentSec: 30}},
			timer:     &Timer{RemainingSec: -5, TotalTimeSec: 600},
			want:      true,
		},
		{
			name:      "avg above 1.25x expected",
			questions: []QuestionLog{{Status: StatusAttempted, TimeSpentSec: 90}},
			timer:     &Timer{RemainingSec: 100, TotalTimeSec: 600},
			want:      true,
		},
		{
			name: "aggregate overrun past 1.1x budget",
			questions: []QuestionLog{
				{Status: StatusAttempted, TimeSpentSec: 60, Correctness: Correct},
				{QuestionIndex: 1, Status: StatusAttempted, TimeSpentSec: 60, Correctness: Correct},
				{QuestionIndex: 2, Status: StatusAttempted, TimeSpentSec: 60, Correctness: Correct},
				{QuestionIndex: 3, Status: StatusAttempted, TimeSpentSec: 60, Correctness: Correct},
				{QuestionIndex: 4, Status: StatusAttempted, TimeSpentSec: 60, Correctness: Correct},
				{QuestionIndex: 5, Status: StatusAttempted, TimeSpentSec: 60, Correctness: Correct},
				{QuestionIndex: 6, Status: StatusAttempted, TimeSpentSec: 60, Correctness: Correct},
				{QuestionIndex: 7, Status: StatusAttempted, TimeSpentSec: 60, Correctness: Correct},
				{QuestionIndex: 8, Status: StatusAttempted, TimeSpentSec: 60, Correctness: Correct},
				{QuestionIndex: 9, Status: StatusAttempted, TimeSpentSec: 130, Correctness: Correct},
			},
			timer: &Timer{RemainingSec: 0, TotalTimeSec: 600},
			want:  true,
		},
		{
			name:      "comfortable pace",
			questions: []QuestionLog{{Status: StatusAttempted, TimeSpentSec: 40, Correctness: Correct}},
			timer:     &Timer{RemainingSec: 200, TotalTimeSec: 600},
			want:      false,
		},
		{
			name:      "no timer data",
			questions: []QuestionLog{{Status: StatusAttempted, TimeSpentSec: 500}},
			timer:     nil,
			want:      false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := BuildSummary(template, tc.questions, tc.timer)
			if s.TimePressureProxy != tc.want {
				t.Fatalf("expected proxy=%v, got %v", tc.want, s.TimePressureProxy)
			}
		})
	}
}

func TestInstrumentedAttemptEndToEnd(t *testing.T) {
	// 1 section x 10 questions in 10 minutes; all attempted over an
	// effective 15 minutes against a 10-minute clock.
	template := Template{SectionCount: 1, QuestionsPerSection: 10, TotalTimeMin: 10}
	var questions []QuestionLog
	for i := 0; i < 10; i++ {
		q := QuestionLog{
			QuestionIndex: i,
			Status:        StatusAttempted,
			Correctness:   Correct,
			TimeSpentSec:  90,
		}
		if i >= 6 {
			q.Correctness = Incorrect
			q.ErrorType = ErrorTime
		}
		questions = append(questions, q)
	}

	s := BuildSummary(template, questions, &Timer{RemainingSec: 0, TotalTimeSec: 600})

	if s.AttemptedCount != 10 || s.CorrectCount != 6 || s.IncorrectCount != 4 {
		t.Fatalf("wrong counts: %+v", s)
	}
	if s.DominantErrorType != ErrorTime {
		t.Fatalf("expected dominant time, got %s", s.DominantErrorType)
	}
	if !s.TimePressureProxy {
		t.Fatal("expected time pressure proxy true")
	}
}

func TestDedupeQuestionsLaterWins(t *testing.T) {
	questions := []QuestionLog{
		{SectionIndex: 0, QuestionIndex: 0, Status: StatusSkipped},
		{SectionIndex: 0, QuestionIndex: 1, Status: StatusAttempted},
		{SectionIndex: 0, QuestionIndex: 0, Status: StatusAttempted, Correctness: Correct},
	}

	out := DedupeQuestions(questions)
	if len(out) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(out))
	}
	if out[0].Status != StatusAttempted || out[0].Correctness != Correct {
		t.Fatalf("later log did not replace earlier: %+v", out[0])
	}
}

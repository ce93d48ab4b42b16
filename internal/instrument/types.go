package instrument

// #region enums

// Status is the attempt state of one question log.
type Status string

const (
	StatusAttempted Status = "attempted"
	StatusSkipped   Status = "skipped"
)

// Confidence is the student's self-reported confidence for a question.
type Confidence string

const (
	ConfidenceLow  Confidence = "low"
	ConfidenceMed  Confidence = "med"
	ConfidenceHigh Confidence = "high"
)

// Correctness is the marked outcome of a question.
type Correctness string

const (
	Correct          Correctness = "correct"
	Incorrect        Correctness = "incorrect"
	CorrectnessUnset Correctness = "unknown"
)

// ErrorType categorizes why an incorrect answer happened.
type ErrorType string

const (
	ErrorConcept   ErrorType = "concept"
	ErrorTime      ErrorType = "time"
	ErrorCareless  ErrorType = "careless"
	ErrorSelection ErrorType = "selection"
	ErrorUnknown   ErrorType = "unknown"
)

// errorTypeOrder fixes the tie-break order for the dominant error type.
var errorTypeOrder = []ErrorType{ErrorConcept, ErrorTime, ErrorCareless, ErrorSelection, ErrorUnknown}

// #endregion enums

// #region template

// Template describes the shape of one instrumented attempt.
type Template struct {
	SectionCount        int `json:"sectionCount"`
	QuestionsPerSection int `json:"questionsPerSection"`
	TotalTimeMin        int `json:"totalTimeMin"`
}

// TotalQuestions returns the question count the template implies.
func (t Template) TotalQuestions() int {
	return t.SectionCount * t.QuestionsPerSection
}

// #endregion template

// #region question-log

// QuestionLog is one per-question timer/status record. At most one log exists
// per (sectionIndex, questionIndex); later writes replace earlier ones.
type QuestionLog struct {
	SectionIndex  int         `json:"sectionIndex"`
	QuestionIndex int         `json:"questionIndex"`
	Status        Status      `json:"status"`
	Confidence    Confidence  `json:"confidence"`
	Correctness   Correctness `json:"correctness"`
	TimeSpentSec  int         `json:"timeSpentSec"`
	ErrorType     ErrorType   `json:"errorType"`
	UpdatedAt     string      `json:"updatedAt,omitempty"`
}

// Timer carries the attempt clock at finish time.
type Timer struct {
	RemainingSec int `json:"remainingSec"`
	TotalTimeSec int `json:"totalTimeSec"`
}

// #endregion question-log

// #region summary

// Summary is the deterministic aggregate of one finished attempt. It seeds
// the instrument_finished event payload.
type Summary struct {
	AttemptedCount     int               `json:"attemptedCount"`
	SkippedCount       int               `json:"skippedCount"`
	CorrectCount       int               `json:"correctCount"`
	IncorrectCount     int               `json:"incorrectCount"`
	UnknownCount       int               `json:"unknownCount"`
	TotalQuestions     int               `json:"totalQuestions"`
	TotalSpentSec      int               `json:"totalSpentSec"`
	AvgPerAttemptedSec int               `json:"avgPerAttemptedSec"`
	ErrorCounts        map[ErrorType]int `json:"errorCounts"`
	DominantErrorType  ErrorType         `json:"dominantErrorType"`
	TimePressureProxy  bool              `json:"timePressureProxy"`
}

// #endregion summary

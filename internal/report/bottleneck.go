package report

import "strings"

// Bottleneck is the dominant performance blocker category.
type Bottleneck string

const (
	BottleneckTime     Bottleneck = "time"
	BottleneckCareless Bottleneck = "careless"
	BottleneckConcept  Bottleneck = "concept"
	BottleneckAnxiety  Bottleneck = "anxiety"
	BottleneckGeneral  Bottleneck = "general"
)

// #region keyword-tables

var bottleneckKeywords = []struct {
	category Bottleneck
	words    []string
}{
	{BottleneckTime, []string{"time pressure", "ran out of time", "too slow", "pacing", "speed", "couldn't finish", "could not finish", "unattempted"}},
	{BottleneckCareless, []string{"careless", "silly mistake", "silly error", "misread", "calculation error", "calc error", "wrong option"}},
	{BottleneckConcept, []string{"concept", "fundamental", "formula", "theory", "don't understand", "do not understand", "never learned", "weak basics"}},
	{BottleneckAnxiety, []string{"anxiety", "anxious", "panic", "nervous", "stress", "blank out", "blanked", "tilt"}},
}

// #endregion keyword-tables

// DetectBottleneck classifies the dominant blocker from free text plus an
// optional dominant error type signal. The explicit signal wins over
// keyword matching when present.
func DetectBottleneck(text string, dominantErrorType string) Bottleneck {
	switch dominantErrorType {
	case "time":
		return BottleneckTime
	case "careless":
		return BottleneckCareless
	case "concept":
		return BottleneckConcept
	}

	lower := strings.ToLower(text)
	best := BottleneckGeneral
	bestHits := 0
	for _, entry := range bottleneckKeywords {
		hits := 0
		for _, w := range entry.words {
			hits += strings.Count(lower, w)
		}
		if hits > bestHits {
			best = entry.category
			bestHits = hits
		}
	}
	return best
}

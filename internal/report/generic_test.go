package report

import "testing"

func TestGenericViolationsDetectsDenyList(t *testing.T) {
	rep := Report{
		NextActions: []Action{{
			Title: "Daily routine",
			Why:   "You should practice more and Manage Time Better.",
			Steps: []string{"revise the syllabus"},
		}},
	}

	v := GenericViolations(rep)
	if len(v) != 3 {
		t.Fatalf("expected 3 violations, got %v", v)
	}
}

func TestGenericViolationsCaseInsensitive(t *testing.T) {
	rep := Report{Patterns: []Pattern{{Fix: "BE CONFIDENT going in"}}}
	if v := GenericViolations(rep); len(v) != 1 {
		t.Fatalf("expected 1 violation, got %v", v)
	}
}

func TestGenericViolationsDeduplicates(t *testing.T) {
	rep := Report{
		NextActions: []Action{
			{Title: "practice more", Steps: []string{"practice more", "practice more"}},
		},
	}
	if v := GenericViolations(rep); len(v) != 1 {
		t.Fatalf("expected deduplicated single violation, got %v", v)
	}
}

func TestGenericViolationsCleanReport(t *testing.T) {
	rep := Report{
		NextActions: []Action{{
			Title:         "Two-pass pacing drill",
			Why:           "Banks easy marks before hard questions absorb the clock.",
			Steps:         []string{"Timed 20-question set at 80% pace"},
			SuccessMetric: "70% cleared in pass 1",
		}},
	}
	if v := GenericViolations(rep); len(v) != 0 {
		t.Fatalf("clean report flagged: %v", v)
	}
}

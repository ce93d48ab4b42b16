package report

import "strings"

// #region deny-list

// genericPhrases are advice fragments considered content-free. A report
// containing any of them in its prescriptive fields is rejected.
var genericPhrases = []string{
	"practice more",
	"practise more",
	"revise",
	"revision",
	"be confident",
	"stay confident",
	"work harder",
	"study harder",
	"try harder",
	"manage time better",
	"manage your time",
	"improve accuracy",
	"improve your accuracy",
	"stay focused",
	"focus more",
	"be careful",
	"avoid silly mistakes",
	"read carefully",
}

// #endregion deny-list

// GenericViolations scans a report's prescriptive text for deny-listed
// phrases and returns each match once. An empty result means the report
// passes the filter.
func GenericViolations(r Report) []string {
	var fields []string
	for _, p := range r.Patterns {
		fields = append(fields, p.Fix)
	}
	for _, a := range r.NextActions {
		fields = append(fields, a.Title, a.Why, a.SuccessMetric)
		fields = append(fields, a.Steps...)
	}
	for _, l := range r.Plan.TopLevers {
		fields = append(fields, l.Title)
		fields = append(fields, l.Do...)
	}
	for _, d := range r.Plan.Days {
		for _, t := range d.Tasks {
			fields = append(fields, t.Title)
		}
	}

	seen := make(map[string]bool)
	var violations []string
	for _, f := range fields {
		lower := strings.ToLower(f)
		for _, phrase := range genericPhrases {
			if strings.Contains(lower, phrase) && !seen[phrase] {
				seen[phrase] = true
				violations = append(violations, phrase)
			}
		}
	}
	return violations
}

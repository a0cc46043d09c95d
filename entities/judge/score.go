package judge

// Fixed rubric weights. They sum to 1.0 together with the compilability
// share, which is pinned at its maximum because evaluation only runs after
// a successful compile.
const (
	weightCompleteness     = 0.30
	weightStructuralMatch  = 0.25
	weightTextAccuracy     = 0.20
	weightAestheticQuality = 0.15
	compilabilityScore     = 0.10 * 10
)

// Scores holds the judge's named sub-scores on a 1-10 scale plus the
// derived overall value.
type Scores struct {
	Completeness     float64 `json:"completeness"`
	StructuralMatch  float64 `json:"structural_match"`
	TextAccuracy     float64 `json:"text_accuracy"`
	AestheticQuality float64 `json:"aesthetic_quality"`
	Overall          float64 `json:"overall"`
}

// Issue is one severity-tagged problem reported by the judge.
type Issue struct {
	Severity    string `json:"severity"` // "minor" or "major"
	Category    string `json:"category"` // structural | text | aesthetic | missing_element
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

// Evaluation is the normalized judge verdict for one iteration.
type Evaluation struct {
	Scores Scores  `json:"scores"`
	Issues []Issue `json:"issues"`
	Pass   bool    `json:"pass"`
}

// computeOverall derives the weighted overall from sub-scores. Deterministic
// given identical sub-scores; the judge's own overall, if any, is ignored.
func computeOverall(s Scores) float64 {
	return weightCompleteness*s.Completeness +
		weightStructuralMatch*s.StructuralMatch +
		weightTextAccuracy*s.TextAccuracy +
		weightAestheticQuality*s.AestheticQuality +
		compilabilityScore
}

// isPass applies the decision policy: overall at or above the threshold and
// no major issue outstanding.
func isPass(overall, threshold float64, issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == "major" {
			return false
		}
	}
	return overall >= threshold
}

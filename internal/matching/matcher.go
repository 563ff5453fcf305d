// Package matching scores candidate text against a job description by keyword overlap.
package matching

// Recommendation is the tier derived from a score.
type Recommendation string

const (
	StrongFit   Recommendation = "Strong fit"
	Consider    Recommendation = "Consider"
	NeedsReview Recommendation = "Needs review"
)

const (
	strongFitThreshold = 75
	considerThreshold  = 50
)

// Recommend maps a score onto its tier. Lower bounds are inclusive.
func Recommend(score int) Recommendation {
	switch {
	case score >= strongFitThreshold:
		return StrongFit
	case score >= considerThreshold:
		return Consider
	default:
		return NeedsReview
	}
}

// Match is the keyword overlap between a job description and one candidate.
// Matched and Missing follow job-description token order without duplicates.
type Match struct {
	Score   int      `json:"score"`
	Matched []string `json:"matched"`
	Missing []string `json:"missing"`
}

func (m Match) Recommendation() Recommendation {
	return Recommend(m.Score)
}

// Score compares the two texts. Only recall against the job description counts:
// extra words in the candidate text never lower the score.
func Score(jobText, candidateText string) Match {
	return ScoreTokens(Unique(Tokenize(jobText)), Tokenize(candidateText))
}

// ScoreTokens is Score for a pre-tokenized job description, so a batch only
// tokenizes it once. jobTokens must already be deduplicated.
func ScoreTokens(jobTokens []string, candidateTokens []string) Match {
	candidateSet := make(map[string]struct{}, len(candidateTokens))
	for _, token := range candidateTokens {
		candidateSet[token] = struct{}{}
	}

	m := Match{
		Matched: make([]string, 0, len(jobTokens)),
		Missing: make([]string, 0, len(jobTokens)),
	}
	for _, token := range jobTokens {
		if _, ok := candidateSet[token]; ok {
			m.Matched = append(m.Matched, token)
		} else {
			m.Missing = append(m.Missing, token)
		}
	}

	m.Score = percent(len(m.Matched), len(jobTokens))
	return m
}

// Unique drops repeated tokens, keeping the first occurrence.
func Unique(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}

// percent is round-half-up of 100*part/total in integer arithmetic; 0 when total is 0.
func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return (200*part + total) / (2 * total)
}

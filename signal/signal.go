// Package signal contains the independent phishing indicators. Each
// collector scores one aspect of a credential submission on a 0..100
// scale where 100 is maximally trustworthy and 0 maximally suspicious.
package signal

// Kind identifies which collector produced a Result.
type Kind string

const (
	KindDomain     Kind = "domain"
	KindTransport  Kind = "transport"
	KindBreach     Kind = "breach"
	KindForm       Kind = "form"
	KindContent    Kind = "content"
	KindReputation Kind = "reputation"
)

const (
	// NeutralScore is the fail-open score used when a collector cannot
	// observe its input.
	NeutralScore = 50

	minScore = 0
	maxScore = 100
)

// Result is the uniform output of every collector. Treat it as immutable
// once produced: collectors hand back fresh values and nothing in the
// pipeline mutates them afterwards.
type Result struct {
	Kind     Kind
	Score    float64
	Findings []string
	Meta     map[string]any
}

// NewResult builds a Result with the score clamped to [0,100]. Stacked
// deductions may drive a raw score past either bound; clamping here keeps
// the level mapping deterministic.
func NewResult(kind Kind, score float64, findings []string, meta map[string]any) Result {
	return Result{
		Kind:     kind,
		Score:    ClampScore(score),
		Findings: findings,
		Meta:     meta,
	}
}

// Neutral is the fail-open Result for a collector whose dependency is
// unavailable.
func Neutral(kind Kind, findings ...string) Result {
	return NewResult(kind, NeutralScore, findings, map[string]any{"checked": false})
}

// ClampScore bounds a raw score to [0,100].
func ClampScore(s float64) float64 {
	if s < minScore {
		return minScore
	}
	if s > maxScore {
		return maxScore
	}
	return s
}

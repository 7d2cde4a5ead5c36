package signal

import "strings"

// contentPattern is one scare-tactic language pattern. match receives the
// lowercased visible text.
type contentPattern struct {
	finding string
	penalty float64
	match   func(text string) bool
}

var contentPatterns = []contentPattern{
	{
		finding: "page pressures the visitor to verify an account",
		penalty: 10,
		match: func(text string) bool {
			return strings.Contains(text, "verify") && strings.Contains(text, "account")
		},
	},
	{
		finding: "page threatens account suspension or lockout",
		penalty: 15,
		match: func(text string) bool {
			return strings.Contains(text, "suspend") || strings.Contains(text, "locked")
		},
	},
	{
		finding: "page claims unusual activity was detected",
		penalty: 15,
		match: func(text string) bool {
			return strings.Contains(text, "unusual activity")
		},
	},
}

const contentBaseScore = 50

// Content scans the page's visible text for urgency and scare-tactic
// language. Each matched pattern is a separate stackable deduction.
type Content struct{}

// Evaluate lowercases the text once and applies every pattern.
func (Content) Evaluate(visibleText string) Result {
	text := strings.ToLower(visibleText)

	score := float64(contentBaseScore)
	var findings []string
	for _, p := range contentPatterns {
		if p.match(text) {
			score -= p.penalty
			findings = append(findings, p.finding)
		}
	}

	return NewResult(KindContent, score, findings, nil)
}

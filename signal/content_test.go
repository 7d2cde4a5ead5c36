package signal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Hussein-Mazeh/PhishGuard/signal"
)

func TestContentEvaluate(t *testing.T) {
	var cs signal.Content

	tests := []struct {
		name         string
		text         string
		wantScore    float64
		wantFindings int
	}{
		{
			name:      "benign text",
			text:      "Welcome back. Enter your credentials to continue.",
			wantScore: 50,
		},
		{
			name:         "verify account demand",
			text:         "Please VERIFY your Account immediately",
			wantScore:    40,
			wantFindings: 1,
		},
		{
			name:         "verify without account is not enough",
			text:         "verify your email address",
			wantScore:    50,
			wantFindings: 0,
		},
		{
			name:         "suspension threat",
			text:         "your access will be suspended",
			wantScore:    35,
			wantFindings: 1,
		},
		{
			name:         "locked out threat",
			text:         "You have been locked out",
			wantScore:    35,
			wantFindings: 1,
		},
		{
			name:         "unusual activity claim",
			text:         "We detected Unusual Activity on your profile",
			wantScore:    35,
			wantFindings: 1,
		},
		{
			name:         "all patterns stack",
			text:         "Unusual activity! Verify your account now or it will be locked.",
			wantScore:    10, // 50 -10 -15 -15
			wantFindings: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := cs.Evaluate(tt.text)
			assert.Equal(t, tt.wantScore, res.Score)
			assert.Len(t, res.Findings, tt.wantFindings)
		})
	}
}

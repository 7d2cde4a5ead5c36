package signal_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Hussein-Mazeh/PhishGuard/signal"
)

func TestNewResultClampsScore(t *testing.T) {
	tests := []struct {
		name string
		raw  float64
		want float64
	}{
		{"below floor", -50, 0},
		{"above ceiling", 180, 100},
		{"in range", 48.5, 48.5},
		{"at floor", 0, 0},
		{"at ceiling", 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := signal.NewResult(signal.KindDomain, tt.raw, nil, nil)
			assert.Equal(t, tt.want, res.Score)
		})
	}
}

func TestNeutralResult(t *testing.T) {
	res := signal.Neutral(signal.KindBreach, "service down")
	assert.Equal(t, float64(signal.NeutralScore), res.Score)
	assert.Equal(t, false, res.Meta["checked"])
	assert.Equal(t, []string{"service down"}, res.Findings)
}

func TestTransportEvaluate(t *testing.T) {
	var tr signal.Transport

	secure := tr.Evaluate("https")
	assert.Equal(t, float64(70), secure.Score)
	assert.Empty(t, secure.Findings)

	insecure := tr.Evaluate("http")
	assert.Equal(t, float64(10), insecure.Score)
	assert.Contains(t, insecure.Findings, "not using secure transport for a login form")
}

func TestNeutralReputation(t *testing.T) {
	res := signal.NeutralReputation{}.Evaluate(context.Background(), "example.com")
	assert.Equal(t, float64(50), res.Score)
	assert.Empty(t, res.Findings)
	assert.Equal(t, signal.KindReputation, res.Kind)
}

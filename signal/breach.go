package signal

import (
	"context"
	"fmt"

	zxcvbn "github.com/nbutton23/zxcvbn-go"

	"github.com/Hussein-Mazeh/PhishGuard/breach"
)

const (
	breachFoundScore = 0
	breachCleanScore = 80

	// Passwords scoring at or below this zxcvbn level get an advisory
	// finding. Strength never moves the numeric score; the score encodes
	// breach membership only.
	weakStrengthCeiling = 1
)

// Breach checks the submitted password against a known-breach corpus via
// the k-anonymity range protocol. The only network-bound collector.
type Breach struct {
	Client *breach.Client
}

// Evaluate runs the range lookup. A breached password is the strongest
// single phishing indicator we have (score 0); a clean one is a positive
// legitimacy signal (80). Any transport or service failure fails OPEN to
// the neutral score so an outage can never block analysis.
func (b Breach) Evaluate(ctx context.Context, password string) Result {
	if b.Client == nil || password == "" {
		return Neutral(KindBreach, "breach check skipped")
	}

	res, err := b.Client.Check(ctx, password)
	if err != nil {
		return Neutral(KindBreach, "breach database unreachable; check skipped")
	}

	findings, meta := strengthAdvisory(password)
	meta["checked"] = true
	meta["found"] = res.Found

	if res.Found {
		meta["count"] = res.Count
		findings = append([]string{
			fmt.Sprintf("password appears in %d known data breaches", res.Count),
		}, findings...)
		return NewResult(KindBreach, breachFoundScore, findings, meta)
	}

	return NewResult(KindBreach, breachCleanScore, findings, meta)
}

// strengthAdvisory runs a local zxcvbn estimate and reports very weak
// passwords as an advisory finding for the warning payload.
func strengthAdvisory(password string) ([]string, map[string]any) {
	meta := make(map[string]any, 4)
	strength := zxcvbn.PasswordStrength(password, nil)
	meta["strength"] = strength.Score
	if strength.Score <= weakStrengthCeiling {
		return []string{"submitted password is very weak and easily guessed"}, meta
	}
	return nil, meta
}

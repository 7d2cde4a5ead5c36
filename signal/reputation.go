package signal

import "context"

// Reputation is the extension point for external reputation or
// threat-intel services. Implementations must fail open: return the
// neutral Result rather than an error when the backend is unavailable.
type Reputation interface {
	Evaluate(ctx context.Context, host string) Result
}

// NeutralReputation is the shipped placeholder: always neutral, no
// findings. Swapping in a real service requires no aggregator changes.
type NeutralReputation struct{}

// Evaluate returns the neutral score.
func (NeutralReputation) Evaluate(context.Context, string) Result {
	return NewResult(KindReputation, NeutralScore, nil, nil)
}

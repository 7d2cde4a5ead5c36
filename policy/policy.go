// Package policy turns a risk assessment into a block/warn/allow decision
// through an explicit, user-interruptible state machine.
package policy

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Hussein-Mazeh/PhishGuard/risk"
)

// State is the lifecycle of one decision.
// Pending -> {Blocked, AwaitingUserChoice, Allowed};
// AwaitingUserChoice -> {Allowed, Blocked}. Allowed and Blocked are
// terminal.
type State int

const (
	StatePending State = iota
	StateAwaitingUserChoice
	StateAllowed
	StateBlocked
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAwaitingUserChoice:
		return "awaiting-user-choice"
	case StateAllowed:
		return "allowed"
	case StateBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Outcome is what the interceptor acts on. Block and Cancel both suppress
// the submission; Cancel marks a user override of a MEDIUM warning and is
// not logged as a confirmed block.
type Outcome int

const (
	OutcomeAllow Outcome = iota
	OutcomeBlock
	OutcomeCancel
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeBlock:
		return "block"
	case OutcomeCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Choice is the user's answer to a MEDIUM-risk warning.
type Choice int

const (
	ChoiceProceed Choice = iota
	ChoiceCancel
)

// ErrNotAwaiting is returned when Resolve is called on a decision that is
// not waiting for the user.
var ErrNotAwaiting = errors.New("decision is not awaiting a user choice")

// DefaultPromptTimeout bounds how long a warning may stay unanswered
// before the submission is blocked.
const DefaultPromptTimeout = 2 * time.Minute

// Warning is the payload handed to the UI collaborator. The engine never
// renders markup; it only supplies structured facts.
type Warning struct {
	URL      string     `json:"url"`
	Hostname string     `json:"hostname"`
	Level    risk.Level `json:"riskLevel"`
	Score    float64    `json:"riskScore"`
	Findings []string   `json:"findings"`
}

// Policy maps risk levels to decisions.
type Policy struct {
	logger        BlockLogger
	promptTimeout time.Duration
	now           func() time.Time
}

// Option adjusts a Policy.
type Option func(*Policy)

// WithPromptTimeout overrides the unanswered-warning bound.
func WithPromptTimeout(d time.Duration) Option {
	return func(p *Policy) { p.promptTimeout = d }
}

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Policy) { p.now = now }
}

// New returns a Policy that reports confirmed blocks to logger. A nil
// logger discards block records.
func New(logger BlockLogger, opts ...Option) *Policy {
	p := &Policy{
		logger:        logger,
		promptTimeout: DefaultPromptTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = discardLogger{}
	}
	return p
}

// Decision is one submission's trip through the state machine. Methods
// are safe for concurrent use; the terminal transition happens exactly
// once.
type Decision struct {
	warning Warning

	mu      sync.Mutex
	state   State
	outcome Outcome
	done    chan struct{}
	timer   *time.Timer
	logFn   func()
}

// Decide consumes an assessment and returns the resulting decision:
// CRITICAL and HIGH block immediately (and are logged), MEDIUM suspends
// awaiting the user's choice bounded by the prompt timeout, LOW allows.
func (p *Policy) Decide(a risk.Assessment, url, hostname string) *Decision {
	d := &Decision{
		warning: Warning{
			URL:      url,
			Hostname: hostname,
			Level:    a.Level,
			Score:    a.Overall,
			Findings: a.Findings(),
		},
		state: StatePending,
		done:  make(chan struct{}),
	}
	d.logFn = func() {
		// A failed write to the history collaborator must never change
		// the outcome; the block stands either way.
		_ = p.logger.LogBlock(context.Background(), BlockRecord{
			Timestamp: p.now().UTC(),
			URL:       url,
			Hostname:  hostname,
			RiskScore: a.Overall,
			RiskLevel: a.Level,
		})
	}

	switch a.Level {
	case risk.LevelCritical, risk.LevelHigh:
		d.settle(StateBlocked, OutcomeBlock, true)
	case risk.LevelMedium:
		d.mu.Lock()
		d.state = StateAwaitingUserChoice
		d.timer = time.AfterFunc(p.promptTimeout, d.expire)
		d.mu.Unlock()
	default:
		d.settle(StateAllowed, OutcomeAllow, false)
	}
	return d
}

// Warning returns the UI payload for this decision.
func (d *Decision) Warning() Warning { return d.warning }

// State reports the current state.
func (d *Decision) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Resolve applies the user's choice to a decision in
// AwaitingUserChoice: proceed allows the submission, cancel blocks it
// without a log entry (a user override is not a confirmed detection).
func (d *Decision) Resolve(choice Choice) error {
	d.mu.Lock()
	if d.state != StateAwaitingUserChoice {
		d.mu.Unlock()
		return ErrNotAwaiting
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	if choice == ChoiceProceed {
		d.settleLocked(StateAllowed, OutcomeAllow, false)
	} else {
		d.settleLocked(StateBlocked, OutcomeCancel, false)
	}
	d.mu.Unlock()
	return nil
}

// Await blocks until the decision is terminal or ctx expires. A context
// expiry while awaiting the user resolves to Blocked, never to a silent
// bypass.
func (d *Decision) Await(ctx context.Context) (Outcome, error) {
	select {
	case <-d.done:
	case <-ctx.Done():
		d.expire()
		<-d.done
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outcome, nil
}

// expire is the timeout path: an unanswered warning defaults to Blocked
// and is logged like any confirmed block.
func (d *Decision) expire() {
	d.mu.Lock()
	if d.state != StateAwaitingUserChoice {
		d.mu.Unlock()
		return
	}
	d.settleLocked(StateBlocked, OutcomeBlock, true)
	d.mu.Unlock()
}

func (d *Decision) settle(state State, outcome Outcome, logBlock bool) {
	d.mu.Lock()
	d.settleLocked(state, outcome, logBlock)
	d.mu.Unlock()
}

func (d *Decision) settleLocked(state State, outcome Outcome, logBlock bool) {
	if d.state == StateAllowed || d.state == StateBlocked {
		return
	}
	d.state = state
	d.outcome = outcome
	if logBlock && d.logFn != nil {
		d.logFn()
	}
	close(d.done)
}

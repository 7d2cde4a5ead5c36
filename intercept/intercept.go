// Package intercept drives the analysis pipeline for one credential
// submission: recognition, signal collection, aggregation, and acting on
// the policy decision.
package intercept

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/Hussein-Mazeh/PhishGuard/internal/config"
	"github.com/Hussein-Mazeh/PhishGuard/page"
	"github.com/Hussein-Mazeh/PhishGuard/policy"
	"github.com/Hussein-Mazeh/PhishGuard/risk"
	"github.com/Hussein-Mazeh/PhishGuard/signal"

	breachclient "github.com/Hussein-Mazeh/PhishGuard/breach"
)

// Submission is one suspended credential submission. Resume is the
// continuation that re-fires the suppressed native submit; it may be nil
// when the caller relays decisions instead (the native messaging host).
type Submission struct {
	Page page.Snapshot
	Form page.Form

	Resume func() error
}

// Notifier receives user-visible failure notices the engine cannot render
// itself.
type Notifier interface {
	ResumeFailed(url string, err error)
}

// Result is what Intercept hands back. Applicable is false when the form
// is not a login submission (or protection is off): nothing was
// suppressed and no assessment exists.
type Result struct {
	Applicable   bool
	SubmissionID string
	Assessment   risk.Assessment
	Decision     *policy.Decision
}

// Interceptor owns no cross-submission state beyond read-only
// configuration; per-form serialization lives in the flight group and the
// resumption guard.
type Interceptor struct {
	settings config.Settings
	trust    *signal.TrustList

	domainSig    signal.Domain
	transportSig signal.Transport
	formSig      signal.Form
	contentSig   signal.Content
	breachSig    signal.Breach
	reputation   signal.Reputation

	aggregator *risk.Aggregator
	policy     *policy.Policy
	notifier   Notifier

	flight singleflight.Group

	mu       sync.Mutex
	resuming map[string]bool
}

// Option adjusts an Interceptor.
type Option func(*Interceptor)

// WithBreachClient overrides the breach-range client (tests, mirrors).
func WithBreachClient(c *breachclient.Client) Option {
	return func(it *Interceptor) { it.breachSig.Client = c }
}

// WithReputation plugs in an external reputation service.
func WithReputation(r signal.Reputation) Option {
	return func(it *Interceptor) { it.reputation = r }
}

// WithNotifier sets the failure-notice collaborator.
func WithNotifier(n Notifier) Option {
	return func(it *Interceptor) { it.notifier = n }
}

// WithPolicy replaces the decision policy, e.g. to shorten the prompt
// timeout.
func WithPolicy(p *policy.Policy) Option {
	return func(it *Interceptor) { it.policy = p }
}

// New wires the six collectors, the aggregator, and the decision policy
// from the given settings. logger receives confirmed blocks.
func New(settings config.Settings, logger policy.BlockLogger, opts ...Option) (*Interceptor, error) {
	settings = settings.Normalized()

	trust := signal.NewTrustList(settings.TrustedDomains...)
	aggregator, err := risk.NewAggregator(
		risk.DefaultWeights(),
		risk.ThresholdsForSensitivity(settings.Sensitivity),
	)
	if err != nil {
		return nil, fmt.Errorf("build aggregator: %w", err)
	}

	it := &Interceptor{
		settings:   settings,
		trust:      trust,
		domainSig:  signal.Domain{Trust: trust},
		breachSig:  signal.Breach{Client: breachclient.NewClient()},
		reputation: signal.NeutralReputation{},
		aggregator: aggregator,
		policy:     policy.New(logger),
		resuming:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(it)
	}
	return it, nil
}

// Intercept analyzes one submission. Not-applicable submissions (no
// password field, no resolvable identifier, protection disabled, or a
// resumption re-entering the interceptor) pass through untouched.
// Concurrent re-submissions of the same form while an analysis is
// pending share that analysis instead of racing it.
func (it *Interceptor) Intercept(ctx context.Context, sub Submission) (*Result, error) {
	if !it.settings.EnableProtection {
		return &Result{}, nil
	}

	key := it.formKey(sub)
	if it.isResuming(key) {
		return &Result{}, nil
	}

	creds, ok := recognize(sub.Form)
	if !ok {
		return &Result{}, nil
	}

	v, err, _ := it.flight.Do(key, func() (any, error) {
		return it.analyze(ctx, sub, creds)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// analyze runs the pipeline for a recognized submission. The breach
// lookup is the only suspension point and runs concurrently with the
// synchronous collectors.
func (it *Interceptor) analyze(ctx context.Context, sub Submission, creds credentials) (*Result, error) {
	scheme, hostname := splitLocation(sub.Page.URL)
	trusted := it.trust.Contains(hostname)

	var breachCh chan signal.Result
	if it.settings.EnableBreachCheck {
		breachCh = make(chan signal.Result, 1)
		go func() {
			breachCh <- it.breachSig.Evaluate(ctx, creds.password.Value)
		}()
	}

	results := []signal.Result{
		it.domainSig.Evaluate(hostname, scheme),
		it.transportSig.Evaluate(scheme),
		it.formSig.Evaluate(sub.Form, sub.Page.FrameCount, trusted),
		it.contentSig.Evaluate(sub.Page.VisibleText),
		it.reputation.Evaluate(ctx, hostname),
	}
	if breachCh != nil {
		results = append(results, <-breachCh)
	}

	assessment, err := it.aggregator.Aggregate(results)
	if err != nil {
		return nil, fmt.Errorf("aggregate signals: %w", err)
	}

	decision := it.policy.Decide(assessment, sub.Page.URL, hostname)

	res := &Result{
		Applicable:   true,
		SubmissionID: uuid.NewString(),
		Assessment:   assessment,
		Decision:     decision,
	}
	go it.finish(sub, decision)
	return res, nil
}

// finish waits for the terminal outcome and resumes the suppressed
// submission exactly once when it is Allow. The policy's prompt timeout
// bounds the wait.
func (it *Interceptor) finish(sub Submission, decision *policy.Decision) {
	out, _ := decision.Await(context.Background())
	if out != policy.OutcomeAllow {
		return
	}
	it.resume(sub)
}

// resume re-fires the native submission behind the re-entrancy guard so
// the resumed submit is not intercepted again. A resumption failure is
// surfaced to the user, never retried.
func (it *Interceptor) resume(sub Submission) {
	if sub.Resume == nil {
		return
	}

	key := it.formKey(sub)
	it.setResuming(key, true)
	err := sub.Resume()
	it.setResuming(key, false)

	if err != nil && it.notifier != nil {
		it.notifier.ResumeFailed(sub.Page.URL, err)
	}
}

func (it *Interceptor) formKey(sub Submission) string {
	_, hostname := splitLocation(sub.Page.URL)
	return hostname + "|" + sub.Form.Identity
}

func (it *Interceptor) isResuming(key string) bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.resuming[key]
}

func (it *Interceptor) setResuming(key string, v bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if v {
		it.resuming[key] = true
	} else {
		delete(it.resuming, key)
	}
}

// splitLocation extracts scheme and hostname. Unparseable URLs yield
// empty values, which the signals treat as maximally untrustworthy input
// rather than an error that could abort the pipeline.
func splitLocation(rawURL string) (scheme, hostname string) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", ""
	}
	return parsed.Scheme, signal.SanitizeHost(parsed.Hostname())
}

package intercept_test

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hussein-Mazeh/PhishGuard/breach"
	"github.com/Hussein-Mazeh/PhishGuard/intercept"
	"github.com/Hussein-Mazeh/PhishGuard/internal/config"
	"github.com/Hussein-Mazeh/PhishGuard/page"
	"github.com/Hussein-Mazeh/PhishGuard/policy"
	"github.com/Hussein-Mazeh/PhishGuard/risk"
	"github.com/Hussein-Mazeh/PhishGuard/signal"
)

func hashSuffix(pw string) string {
	sum := sha1.Sum([]byte(pw))
	return strings.ToUpper(hex.EncodeToString(sum[:]))[5:]
}

// breachedServer reports pw as present in count breaches, everything else
// as clean.
func breachedServer(t *testing.T, pw string, count int) *breach.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s:%d\r\n", hashSuffix(pw), count)
	}))
	t.Cleanup(srv.Close)
	return breach.NewClient(breach.WithBaseURL(srv.URL + "/range/"))
}

func cleanServer(t *testing.T) *breach.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(srv.Close)
	return breach.NewClient(breach.WithBaseURL(srv.URL + "/range/"))
}

func failingServer(t *testing.T) *breach.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	return breach.NewClient(breach.WithBaseURL(srv.URL + "/range/"))
}

func loginForm(password string) page.Form {
	return page.Form{
		Identity: "login-form",
		Fields: []page.Field{
			{Tag: "input", Type: "email", Name: "email", Value: "victim@example.com"},
			{Tag: "input", Type: "password", Name: "password", Value: password},
		},
	}
}

func newInterceptor(t *testing.T, settings config.Settings, logger policy.BlockLogger, opts ...intercept.Option) *intercept.Interceptor {
	t.Helper()
	it, err := intercept.New(settings, logger, opts...)
	require.NoError(t, err)
	return it
}

func TestScenarioACriticalPhishingPageIsBlocked(t *testing.T) {
	log := &policy.MemoryLog{}
	it := newInterceptor(t, config.Default(), log,
		intercept.WithBreachClient(breachedServer(t, "password123", 5)))

	form := loginForm("password123")
	form.LabelCount = 0

	resumed := false
	res, err := it.Intercept(context.Background(), intercept.Submission{
		Page: page.Snapshot{
			URL:         "http://accounts-secure-login.tk/login",
			VisibleText: "Unusual activity detected! Your account will be locked.",
		},
		Form:   form,
		Resume: func() error { resumed = true; return nil },
	})
	require.NoError(t, err)
	require.True(t, res.Applicable)

	assert.Equal(t, risk.LevelCritical, res.Assessment.Level)
	assert.Equal(t, policy.StateBlocked, res.Decision.State())

	breachRes, ok := res.Assessment.Result(signal.KindBreach)
	require.True(t, ok)
	assert.Equal(t, float64(0), breachRes.Score)
	assert.Equal(t, 5, breachRes.Meta["count"])

	records := log.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "accounts-secure-login.tk", records[0].Hostname)
	assert.Equal(t, risk.LevelCritical, records[0].RiskLevel)

	assert.False(t, resumed, "blocked submissions must never resume")
}

func TestScenarioBLegitimateLoginIsAllowed(t *testing.T) {
	log := &policy.MemoryLog{}
	it := newInterceptor(t, config.Default(), log,
		intercept.WithBreachClient(cleanServer(t)))

	form := loginForm("K7#vast-meadow-41!x")
	form.LabelCount = 2
	form.ForgotPasswordLink = true

	resumed := make(chan struct{})
	res, err := it.Intercept(context.Background(), intercept.Submission{
		Page: page.Snapshot{
			URL:         "https://github.com/login",
			VisibleText: "Sign in to GitHub",
		},
		Form:   form,
		Resume: func() error { close(resumed); return nil },
	})
	require.NoError(t, err)
	require.True(t, res.Applicable)

	assert.Equal(t, risk.LevelLow, res.Assessment.Level)
	assert.InDelta(t, 75.5, res.Assessment.Overall, 1e-9)
	assert.Equal(t, policy.StateAllowed, res.Decision.State())

	select {
	case <-resumed:
	case <-time.After(2 * time.Second):
		t.Fatal("allowed submission was not resumed")
	}
	assert.Empty(t, log.Records())
}

func TestScenarioCBreachOutageLandsInMediumAndUserCancels(t *testing.T) {
	log := &policy.MemoryLog{}
	it := newInterceptor(t, config.Default(), log,
		intercept.WithBreachClient(failingServer(t)))

	res, err := it.Intercept(context.Background(), intercept.Submission{
		Page: page.Snapshot{
			URL:         "https://my-bank-secure.com/signin",
			VisibleText: "Welcome to online banking",
		},
		Form: loginForm("K7#vast-meadow-41!x"),
	})
	require.NoError(t, err)
	require.True(t, res.Applicable)

	breachRes, ok := res.Assessment.Result(signal.KindBreach)
	require.True(t, ok)
	assert.Equal(t, float64(50), breachRes.Score)
	assert.Equal(t, false, breachRes.Meta["checked"])

	assert.Equal(t, risk.LevelMedium, res.Assessment.Level)
	assert.InDelta(t, 48.5, res.Assessment.Overall, 1e-9)
	require.Equal(t, policy.StateAwaitingUserChoice, res.Decision.State())

	require.NoError(t, res.Decision.Resolve(policy.ChoiceCancel))
	assert.Equal(t, policy.StateBlocked, res.Decision.State())
	assert.Empty(t, log.Records(), "user cancel is an override, not a confirmed block")
}

func TestScenarioDNoPasswordFieldPassesThrough(t *testing.T) {
	log := &policy.MemoryLog{}
	it := newInterceptor(t, config.Default(), log,
		intercept.WithBreachClient(cleanServer(t)))

	res, err := it.Intercept(context.Background(), intercept.Submission{
		Page: page.Snapshot{URL: "https://example.com/search"},
		Form: page.Form{
			Identity: "search",
			Fields: []page.Field{
				{Tag: "input", Type: "text", Name: "q", Value: "kittens"},
			},
		},
		Resume: func() error {
			t.Fatal("pass-through submissions must not be resumed by the engine")
			return nil
		},
	})
	require.NoError(t, err)

	assert.False(t, res.Applicable)
	assert.Nil(t, res.Decision)
	assert.Empty(t, log.Records())
}

func TestUnresolvableIdentifierPassesThrough(t *testing.T) {
	it := newInterceptor(t, config.Default(), &policy.MemoryLog{},
		intercept.WithBreachClient(cleanServer(t)))

	res, err := it.Intercept(context.Background(), intercept.Submission{
		Page: page.Snapshot{URL: "https://example.com/unlock"},
		Form: page.Form{
			Identity: "pin-only",
			Fields: []page.Field{
				{Tag: "input", Type: "password", Name: "pin", Value: "0000"},
			},
		},
	})
	require.NoError(t, err)
	assert.False(t, res.Applicable)
}

func TestProtectionDisabledPassesThrough(t *testing.T) {
	settings := config.Default()
	settings.EnableProtection = false

	it := newInterceptor(t, settings, &policy.MemoryLog{})

	res, err := it.Intercept(context.Background(), intercept.Submission{
		Page: page.Snapshot{URL: "http://accounts-secure-login.tk/login"},
		Form: loginForm("password123"),
	})
	require.NoError(t, err)
	assert.False(t, res.Applicable)
}

func TestBreachCheckDisabledSkipsLookupAndRenormalizes(t *testing.T) {
	settings := config.Default()
	settings.EnableBreachCheck = false

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("breach service must not be contacted when the check is disabled")
	}))
	t.Cleanup(srv.Close)

	it := newInterceptor(t, settings, &policy.MemoryLog{},
		intercept.WithBreachClient(breach.NewClient(breach.WithBaseURL(srv.URL+"/range/"))))

	form := loginForm("K7#vast-meadow-41!x")
	form.LabelCount = 2
	form.ForgotPasswordLink = true

	res, err := it.Intercept(context.Background(), intercept.Submission{
		Page: page.Snapshot{URL: "https://github.com/login"},
		Form: form,
	})
	require.NoError(t, err)
	require.True(t, res.Applicable)

	_, hasBreach := res.Assessment.Result(signal.KindBreach)
	assert.False(t, hasBreach)
	// Remaining weights renormalize: (27 + 10.5 + 10.5 + 5 + 2.5) / 0.75.
	assert.InDelta(t, 74.0, res.Assessment.Overall, 1e-9)
	assert.Equal(t, risk.LevelLow, res.Assessment.Level)
}

func TestResumedSubmissionIsNotReintercepted(t *testing.T) {
	it := newInterceptor(t, config.Default(), &policy.MemoryLog{},
		intercept.WithBreachClient(cleanServer(t)))

	form := loginForm("K7#vast-meadow-41!x")
	form.LabelCount = 2
	form.ForgotPasswordLink = true

	sub := intercept.Submission{
		Page: page.Snapshot{URL: "https://github.com/login"},
		Form: form,
	}

	inner := make(chan *intercept.Result, 1)
	sub.Resume = func() error {
		res, err := it.Intercept(context.Background(), sub)
		if err != nil {
			return err
		}
		inner <- res
		return nil
	}

	res, err := it.Intercept(context.Background(), sub)
	require.NoError(t, err)
	require.True(t, res.Applicable)

	select {
	case innerRes := <-inner:
		assert.False(t, innerRes.Applicable, "the resumed submit must pass through the guard")
	case <-time.After(2 * time.Second):
		t.Fatal("submission was never resumed")
	}
}

func TestConcurrentResubmissionSharesOneAnalysis(t *testing.T) {
	const pw = "K7#vast-meadow-41!x"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond) // hold both submissions in flight
	}))
	t.Cleanup(srv.Close)

	it := newInterceptor(t, config.Default(), &policy.MemoryLog{},
		intercept.WithBreachClient(breach.NewClient(breach.WithBaseURL(srv.URL+"/range/"))))

	sub := intercept.Submission{
		Page: page.Snapshot{URL: "https://github.com/login"},
		Form: loginForm(pw),
	}

	var wg sync.WaitGroup
	results := make([]*intercept.Result, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := it.Intercept(context.Background(), sub)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.Same(t, results[0], results[1], "a pending form analysis must be shared, not raced")
}

type recordingNotifier struct {
	mu   sync.Mutex
	urls []string
	errs []error
	ch   chan struct{}
}

func (n *recordingNotifier) ResumeFailed(url string, err error) {
	n.mu.Lock()
	n.urls = append(n.urls, url)
	n.errs = append(n.errs, err)
	n.mu.Unlock()
	n.ch <- struct{}{}
}

func TestResumptionFailureIsSurfacedNotRetried(t *testing.T) {
	notifier := &recordingNotifier{ch: make(chan struct{}, 1)}
	it := newInterceptor(t, config.Default(), &policy.MemoryLog{},
		intercept.WithBreachClient(cleanServer(t)),
		intercept.WithNotifier(notifier))

	form := loginForm("K7#vast-meadow-41!x")
	form.LabelCount = 2
	form.ForgotPasswordLink = true

	attempts := 0
	_, err := it.Intercept(context.Background(), intercept.Submission{
		Page: page.Snapshot{URL: "https://github.com/login"},
		Form: form,
		Resume: func() error {
			attempts++
			return errors.New("form detached")
		},
	})
	require.NoError(t, err)

	select {
	case <-notifier.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("resume failure was not surfaced")
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Equal(t, []string{"https://github.com/login"}, notifier.urls)
	assert.Equal(t, 1, attempts, "resumption is never retried automatically")
}

func TestHighSensitivityEscalatesMediumPages(t *testing.T) {
	settings := config.Default()
	settings.Sensitivity = config.SensitivityHigh

	it := newInterceptor(t, settings, &policy.MemoryLog{},
		intercept.WithBreachClient(failingServer(t)))

	// 48.5 overall: MEDIUM at default thresholds, HIGH at high sensitivity.
	res, err := it.Intercept(context.Background(), intercept.Submission{
		Page: page.Snapshot{URL: "https://my-bank-secure.com/signin"},
		Form: loginForm("K7#vast-meadow-41!x"),
	})
	require.NoError(t, err)
	require.True(t, res.Applicable)
	assert.Equal(t, risk.LevelHigh, res.Assessment.Level)
	assert.Equal(t, policy.StateBlocked, res.Decision.State())
}

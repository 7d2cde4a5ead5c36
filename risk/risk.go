// Package risk combines signal results into a single weighted assessment
// and maps it onto a discrete risk level.
package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/Hussein-Mazeh/PhishGuard/signal"
)

// Level classifies an overall score. Ordered from safest to worst.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// ErrNoResults is returned when Aggregate receives nothing to combine.
var ErrNoResults = errors.New("no signal results to aggregate")

// Weights assigns each signal kind its share of the overall score. A
// valid set sums to 1.0.
type Weights map[signal.Kind]float64

// DefaultWeights returns the production weighting.
func DefaultWeights() Weights {
	return Weights{
		signal.KindDomain:     0.30,
		signal.KindTransport:  0.15,
		signal.KindBreach:     0.25,
		signal.KindForm:       0.15,
		signal.KindContent:    0.10,
		signal.KindReputation: 0.05,
	}
}

const weightSumTolerance = 1e-9

// Validate checks that the weights cover at least one kind, are all
// non-negative, and sum to 1.0.
func (w Weights) Validate() error {
	if len(w) == 0 {
		return errors.New("weights: empty")
	}
	var sum float64
	for kind, weight := range w {
		if weight < 0 {
			return fmt.Errorf("weights: %s is negative", kind)
		}
		sum += weight
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("weights: sum %v, want 1.0", sum)
	}
	return nil
}

// Thresholds are the inclusive lower bounds of the LOW, MEDIUM, and HIGH
// bands; anything below High is CRITICAL.
type Thresholds struct {
	Low    float64
	Medium float64
	High   float64
}

// DefaultThresholds returns the medium-sensitivity bands.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: 70, Medium: 40, High: 20}
}

// ThresholdsForSensitivity shifts the bands by sensitivity. Higher
// sensitivity raises every bound, classifying more pages as risky.
// Unrecognized values fall back to the medium defaults.
func ThresholdsForSensitivity(sensitivity string) Thresholds {
	switch sensitivity {
	case "high":
		return Thresholds{Low: 80, Medium: 50, High: 30}
	case "low":
		return Thresholds{Low: 60, Medium: 30, High: 10}
	default:
		return DefaultThresholds()
	}
}

// Level maps an overall score onto a band, evaluated high-to-low with
// inclusive lower bounds.
func (t Thresholds) Level(overall float64) Level {
	switch {
	case overall >= t.Low:
		return LevelLow
	case overall >= t.Medium:
		return LevelMedium
	case overall >= t.High:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// Assessment is the aggregate verdict for one credential submission.
type Assessment struct {
	Results []signal.Result
	Overall float64
	Level   Level
}

// Findings returns the human-readable findings in presentation order:
// domain, breach, transport, content, form, then anything else.
func (a Assessment) Findings() []string {
	order := []signal.Kind{
		signal.KindDomain,
		signal.KindBreach,
		signal.KindTransport,
		signal.KindContent,
		signal.KindForm,
		signal.KindReputation,
	}
	byKind := make(map[signal.Kind][]string, len(a.Results))
	for _, res := range a.Results {
		byKind[res.Kind] = res.Findings
	}
	var findings []string
	for _, kind := range order {
		findings = append(findings, byKind[kind]...)
	}
	return findings
}

// Result returns the signal result of the given kind, if present.
func (a Assessment) Result(kind signal.Kind) (signal.Result, bool) {
	for _, res := range a.Results {
		if res.Kind == kind {
			return res, true
		}
	}
	return signal.Result{}, false
}

// Aggregator computes weighted assessments. It is a pure function of its
// configuration and inputs: the same results always produce the same
// assessment.
type Aggregator struct {
	weights    Weights
	thresholds Thresholds
}

// NewAggregator validates the weights and returns an aggregator.
func NewAggregator(weights Weights, thresholds Thresholds) (*Aggregator, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{weights: weights, thresholds: thresholds}, nil
}

// Aggregate combines the given results. When a weighted signal is absent
// (breach checking disabled), the remaining weights are renormalized so
// they again sum to 1.0 rather than silently zero-scoring the gap.
// Duplicate kinds and kinds without a weight are rejected.
func (a *Aggregator) Aggregate(results []signal.Result) (Assessment, error) {
	if len(results) == 0 {
		return Assessment{}, ErrNoResults
	}

	seen := make(map[signal.Kind]struct{}, len(results))
	var weighted, weightSum float64
	for _, res := range results {
		if _, dup := seen[res.Kind]; dup {
			return Assessment{}, fmt.Errorf("aggregate: duplicate %s result", res.Kind)
		}
		seen[res.Kind] = struct{}{}

		weight, ok := a.weights[res.Kind]
		if !ok {
			return Assessment{}, fmt.Errorf("aggregate: no weight for %s", res.Kind)
		}
		weighted += res.Score * weight
		weightSum += weight
	}
	if weightSum <= 0 {
		return Assessment{}, errors.New("aggregate: zero total weight")
	}

	overall := signal.ClampScore(weighted / weightSum)
	out := make([]signal.Result, len(results))
	copy(out, results)

	return Assessment{
		Results: out,
		Overall: overall,
		Level:   a.thresholds.Level(overall),
	}, nil
}

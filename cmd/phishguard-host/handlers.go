package main

import (
	"context"
	"encoding/json"

	"github.com/Hussein-Mazeh/PhishGuard/intercept"
	"github.com/Hussein-Mazeh/PhishGuard/internal/config"
	"github.com/Hussein-Mazeh/PhishGuard/page"
	"github.com/Hussein-Mazeh/PhishGuard/policy"
	"github.com/Hussein-Mazeh/PhishGuard/risk"
)

type envelope struct {
	Type string `json:"type"`
}

type analyzeRequest struct {
	Type string        `json:"type"`
	Page page.Snapshot `json:"page"`
	Form page.Form     `json:"form"`
}

type resolveChoiceRequest struct {
	Type         string `json:"type"`
	SubmissionID string `json:"submissionId"`
	Choice       string `json:"choice"`
}

type setSettingsRequest struct {
	Type     string          `json:"type"`
	Settings config.Settings `json:"settings"`
}

type historyRequest struct {
	Type  string `json:"type"`
	Limit int    `json:"limit"`
}

type response struct {
	OK      bool   `json:"ok"`
	Data    any    `json:"data,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type analyzeData struct {
	Applicable   bool       `json:"applicable"`
	Decision     string     `json:"decision,omitempty"` // allow | warn | block
	SubmissionID string     `json:"submissionId,omitempty"`
	RiskLevel    risk.Level `json:"riskLevel,omitempty"`
	RiskScore    float64    `json:"riskScore,omitempty"`
	Findings     []string   `json:"findings,omitempty"`
}

// handleRequest routes an inbound payload to the appropriate handler
// according to the envelope type. Unknown commands get an UNSUPPORTED
// response without mutating any state.
func (h *host) handleRequest(payload []byte) response {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return response{OK: false, Code: "BAD_JSON", Message: "invalid json"}
	}

	switch env.Type {
	case "health":
		return response{OK: true, Data: map[string]string{"version": version}}
	case "getSettings":
		return h.handleGetSettings()
	case "setSettings":
		var req setSettingsRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return response{OK: false, Code: "BAD_JSON", Message: "invalid json"}
		}
		return h.handleSetSettings(req)
	case "analyzeSubmission":
		var req analyzeRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return response{OK: false, Code: "BAD_JSON", Message: "invalid json"}
		}
		return h.handleAnalyze(req)
	case "resolveChoice":
		var req resolveChoiceRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return response{OK: false, Code: "BAD_JSON", Message: "invalid json"}
		}
		return h.handleResolveChoice(req)
	case "getHistory":
		var req historyRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return response{OK: false, Code: "BAD_JSON", Message: "invalid json"}
		}
		return h.handleHistory(req)
	default:
		return response{OK: false, Code: "UNSUPPORTED", Message: "unsupported command"}
	}
}

func (h *host) handleGetSettings() response {
	h.mu.Lock()
	defer h.mu.Unlock()
	return response{OK: true, Data: h.settings}
}

func (h *host) handleSetSettings(req setSettingsRequest) response {
	h.mu.Lock()
	defer h.mu.Unlock()

	settings := req.Settings.Normalized()
	if err := config.Save(h.paths, settings); err != nil {
		return response{OK: false, Code: "SAVE_FAILED", Message: "could not persist settings"}
	}
	h.settings = settings
	if err := h.rebuild(); err != nil {
		return response{OK: false, Code: "INTERNAL", Message: "could not apply settings"}
	}
	return response{OK: true, Data: h.settings}
}

// handleAnalyze runs the full pipeline for one suspended submission.
//
// Behavior:
//  1. Hands the snapshot to the interceptor; not-applicable submissions
//     answer "allow" with applicable=false so the extension releases the
//     original submit untouched.
//  2. Terminal decisions answer allow/block together with the warning
//     payload for the extension's UI.
//  3. An AwaitingUserChoice decision is parked under its submission ID
//     and answered as "warn"; a later resolveChoice settles it. If no
//     choice ever arrives the policy timeout blocks it.
func (h *host) handleAnalyze(req analyzeRequest) response {
	h.mu.Lock()
	it := h.interceptor
	h.mu.Unlock()

	res, err := it.Intercept(context.Background(), intercept.Submission{
		Page: req.Page,
		Form: req.Form,
	})
	if err != nil {
		return response{OK: false, Code: "ANALYZE_FAILED", Message: "analysis failed"}
	}
	if !res.Applicable {
		return response{OK: true, Data: analyzeData{Applicable: false, Decision: "allow"}}
	}

	warning := res.Decision.Warning()
	data := analyzeData{
		Applicable:   true,
		SubmissionID: res.SubmissionID,
		RiskLevel:    warning.Level,
		RiskScore:    warning.Score,
		Findings:     warning.Findings,
	}

	switch res.Decision.State() {
	case policy.StateAllowed:
		data.Decision = "allow"
	case policy.StateBlocked:
		data.Decision = "block"
	default:
		data.Decision = "warn"
		h.park(res.SubmissionID, res.Decision)
	}
	return response{OK: true, Data: data}
}

func (h *host) handleResolveChoice(req resolveChoiceRequest) response {
	h.mu.Lock()
	decision, ok := h.pending[req.SubmissionID]
	delete(h.pending, req.SubmissionID)
	h.mu.Unlock()

	if !ok {
		return response{OK: false, Code: "UNKNOWN_SUBMISSION", Message: "no pending warning for that id"}
	}

	choice := policy.ChoiceCancel
	if req.Choice == "proceed" {
		choice = policy.ChoiceProceed
	}
	if err := decision.Resolve(choice); err != nil {
		// Raced the prompt timeout: the decision is already terminal.
		return response{OK: true, Data: map[string]string{"decision": stateDecision(decision.State())}}
	}
	return response{OK: true, Data: map[string]string{"decision": stateDecision(decision.State())}}
}

func (h *host) handleHistory(req historyRequest) response {
	ctx := context.Background()
	records, err := h.store.Recent(ctx, req.Limit)
	if err != nil {
		return response{OK: false, Code: "DB_ERROR", Message: "history unavailable"}
	}
	total, err := h.store.Count(ctx)
	if err != nil {
		return response{OK: false, Code: "DB_ERROR", Message: "history unavailable"}
	}
	return response{OK: true, Data: map[string]any{"total": total, "blocks": records}}
}

// park keeps an awaiting decision addressable for resolveChoice and
// evicts it once it settles (user choice or prompt timeout).
func (h *host) park(id string, decision *policy.Decision) {
	h.mu.Lock()
	h.pending[id] = decision
	h.mu.Unlock()

	go func() {
		_, _ = decision.Await(context.Background())
		h.mu.Lock()
		delete(h.pending, id)
		h.mu.Unlock()
	}()
}

func stateDecision(s policy.State) string {
	if s == policy.StateAllowed {
		return "allow"
	}
	return "block"
}

package signal

import (
	"github.com/Hussein-Mazeh/PhishGuard/page"
)

const (
	formBaseScore = 50

	labelsBonus       = 10
	rememberMeBonus   = 5
	forgotLinkBonus   = 10
	registerLinkBonus = 5
	framesPenalty     = 20
)

// Form scores structural properties of the submitted form. Legitimate
// login pages tend to carry labels, recovery and registration links;
// credential overlays tend to live inside frames.
type Form struct{}

// Evaluate applies independent, cumulative adjustments. The frame penalty
// is skipped for allowlisted domains, which legitimately embed frames.
func (Form) Evaluate(form page.Form, frameCount int, trusted bool) Result {
	score := float64(formBaseScore)
	var findings []string

	if form.LabelCount >= 2 {
		score += labelsBonus
		findings = append(findings, "form fields are properly labelled")
	}
	if form.RememberMe {
		score += rememberMeBonus
		findings = append(findings, "form offers a remember-me option")
	}
	if form.ForgotPasswordLink {
		score += forgotLinkBonus
		findings = append(findings, "page links to password recovery")
	}
	if form.RegisterLink {
		score += registerLinkBonus
		findings = append(findings, "page links to account registration")
	}
	if frameCount > 0 && !trusted {
		score -= framesPenalty
		findings = append(findings, "page embeds frames on an untrusted domain")
	}

	return NewResult(KindForm, score, findings, nil)
}

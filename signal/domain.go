package signal

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/net/idna"
)

// abuseTLDs are top-level domains disproportionately represented in
// phishing feeds. Presence is a deduction, not a verdict.
var abuseTLDs = map[string]struct{}{
	"tk":  {},
	"ml":  {},
	"ga":  {},
	"cf":  {},
	"gq":  {},
	"top": {},
	"xyz": {},
	"zip": {},
}

const (
	domainBaseScore    = 50
	domainTrustedScore = 90

	loginTokenPenalty   = 20
	secureStringPenalty = 15
	homographPenalty    = 30
	abuseTLDPenalty     = 25
	insecurePenalty     = 40
)

// Domain scores the page origin: trusted allowlist, bait substrings,
// homograph characters, abuse-correlated TLDs, and the transport scheme.
type Domain struct {
	Trust *TrustList
}

// Evaluate scores a hostname/scheme pair. An allowlist hit short-circuits
// every deduction; otherwise deductions are independent and cumulative.
func (d Domain) Evaluate(host, scheme string) Result {
	clean := SanitizeHost(host)

	if d.Trust.Contains(clean) {
		return NewResult(KindDomain, domainTrustedScore,
			[]string{fmt.Sprintf("%s is on the trusted domain list", clean)},
			map[string]any{"trusted": true})
	}

	score := float64(domainBaseScore)
	var findings []string

	if hasHostToken(clean, "login") {
		score -= loginTokenPenalty
		findings = append(findings, `hostname contains the bait word "login"`)
	}
	if strings.Contains(clean, "secure") {
		score -= secureStringPenalty
		findings = append(findings, `hostname contains the bait word "secure"`)
	}
	if reason, ok := homographSuspicion(clean); ok {
		score -= homographPenalty
		findings = append(findings, reason)
	}
	if tld := lastLabel(clean); tld != "" {
		if _, ok := abuseTLDs[tld]; ok {
			score -= abuseTLDPenalty
			findings = append(findings, fmt.Sprintf(".%s domains are frequently abused for phishing", tld))
		}
	}
	if !strings.EqualFold(scheme, "https") {
		score -= insecurePenalty
		findings = append(findings, "page is not served over HTTPS")
	}

	return NewResult(KindDomain, score, findings, map[string]any{"trusted": false})
}

// hasHostToken reports whether word appears as a whole label token in the
// hostname ("login.example.com", "accounts-login.example.com"), not as an
// incidental substring.
func hasHostToken(host, word string) bool {
	for _, token := range strings.FieldsFunc(host, func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	}) {
		if token == word {
			return true
		}
	}
	return false
}

func lastLabel(host string) string {
	if host == "" {
		return ""
	}
	labels := strings.Split(host, ".")
	return labels[len(labels)-1]
}

// homographSuspicion flags hostnames that impersonate ASCII identities
// with look-alike characters: raw punycode labels, mixed Unicode scripts
// within a label, or runes that pass for Latin letters.
func homographSuspicion(host string) (string, bool) {
	if host == "" {
		return "", false
	}

	unicodeHost := host
	if converted, err := idna.Lookup.ToUnicode(host); err == nil && converted != "" {
		unicodeHost = converted
	}

	if strings.Contains(host, "xn--") {
		return "hostname uses punycode-encoded labels", true
	}
	if hasMixedScript(unicodeHost) {
		return "hostname mixes characters from multiple alphabets", true
	}
	if hasLatinLookalike(unicodeHost) {
		return "hostname contains look-alike characters", true
	}
	return "", false
}

// latinLookalikes are the usual homoglyph substitutes for Latin letters
// in phishing hostnames. Single-script spoofs such as an all-Cyrillic
// "scope.com" never mix alphabets, so the mixed-script check alone would
// miss them.
var latinLookalikes = map[rune]rune{
	'а': 'a', // Cyrillic а
	'е': 'e', // Cyrillic е
	'о': 'o', // Cyrillic о
	'р': 'p', // Cyrillic р
	'с': 'c', // Cyrillic с
	'у': 'y', // Cyrillic у
	'х': 'x', // Cyrillic х
	'ѕ': 's', // Cyrillic ѕ
	'і': 'i', // Cyrillic і
	'ј': 'j', // Cyrillic ј
	'ԛ': 'q', // Cyrillic ԛ
	'ԝ': 'w', // Cyrillic ԝ
	'ο': 'o', // Greek ο
	'ι': 'i', // Greek ι
	'ν': 'v', // Greek ν
}

func hasLatinLookalike(host string) bool {
	for _, r := range host {
		if _, ok := latinLookalikes[r]; ok {
			return true
		}
	}
	return false
}

// hasMixedScript reports whether any single label mixes characters from
// multiple scripts, e.g. Cyrillic look-alikes embedded in a Latin name.
// Mixing is judged per label so a non-Latin name under a Latin TLD does
// not count.
func hasMixedScript(host string) bool {
	for _, label := range strings.Split(host, ".") {
		scripts := make(map[string]struct{})
		for _, r := range label {
			script := detectScript(r)
			if script == "" {
				continue
			}
			scripts[script] = struct{}{}
			if len(scripts) >= 2 {
				return true
			}
		}
	}
	return false
}

func detectScript(r rune) string {
	switch {
	case unicode.In(r, unicode.Latin):
		return "latin"
	case unicode.In(r, unicode.Cyrillic):
		return "cyrillic"
	case unicode.In(r, unicode.Greek):
		return "greek"
	case unicode.In(r, unicode.Hiragana):
		return "hiragana"
	case unicode.In(r, unicode.Katakana):
		return "katakana"
	case unicode.In(r, unicode.Han):
		return "han"
	default:
		return ""
	}
}

package signal

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// defaultTrustedDomains are registrable domains whose login pages we never
// second-guess. Additions come from user settings.
var defaultTrustedDomains = []string{
	"google.com",
	"github.com",
	"gitlab.com",
	"microsoft.com",
	"live.com",
	"apple.com",
	"icloud.com",
	"amazon.com",
	"facebook.com",
	"instagram.com",
	"paypal.com",
	"netflix.com",
	"linkedin.com",
	"x.com",
	"twitter.com",
	"dropbox.com",
	"slack.com",
	"zoom.us",
}

// TrustList answers whether a hostname belongs to an allowlisted domain.
type TrustList struct {
	domains map[string]struct{}
}

// NewTrustList builds the allowlist from the built-in entries plus any
// extras. Entries are stored as sanitized hostnames.
func NewTrustList(extra ...string) *TrustList {
	t := &TrustList{domains: make(map[string]struct{})}
	for _, d := range defaultTrustedDomains {
		t.add(d)
	}
	for _, d := range extra {
		t.add(d)
	}
	return t
}

func (t *TrustList) add(domain string) {
	if clean := SanitizeHost(domain); clean != "" {
		t.domains[clean] = struct{}{}
	}
}

// Contains reports whether host equals, is a subdomain of, or resolves to
// the same registrable domain (eTLD+1) as an allowlist entry.
func (t *TrustList) Contains(host string) bool {
	if t == nil {
		return false
	}
	clean := SanitizeHost(host)
	if clean == "" {
		return false
	}
	if _, ok := t.domains[clean]; ok {
		return true
	}
	for domain := range t.domains {
		if strings.HasSuffix(clean, "."+domain) {
			return true
		}
	}
	if etld1, err := publicsuffix.EffectiveTLDPlusOne(clean); err == nil {
		if _, ok := t.domains[strings.ToLower(etld1)]; ok {
			return true
		}
	}
	return false
}

// SanitizeHost normalizes host strings for consistent comparisons: trims
// whitespace and a trailing dot, strips any :port, and lowercases.
func SanitizeHost(host string) string {
	clean := strings.TrimSpace(host)
	clean = strings.TrimSuffix(clean, ".")
	if colon := strings.Index(clean, ":"); colon >= 0 {
		clean = clean[:colon]
	}
	return strings.ToLower(clean)
}

package signal

import "strings"

const (
	transportSecureScore   = 70
	transportInsecureScore = 10
)

// Transport scores whether the login page was delivered over HTTPS. It
// observes the scheme only; certificate validity is out of scope.
type Transport struct{}

// Evaluate returns 70 for HTTPS and 10 otherwise.
func (Transport) Evaluate(scheme string) Result {
	if strings.EqualFold(scheme, "https") {
		return NewResult(KindTransport, transportSecureScore, nil, nil)
	}
	return NewResult(KindTransport, transportInsecureScore,
		[]string{"not using secure transport for a login form"}, nil)
}

package intercept

import (
	"strings"

	"github.com/Hussein-Mazeh/PhishGuard/page"
)

// usernameTokens are matched against the name/id attributes of candidate
// identifier fields, in no particular order within the tier.
var usernameTokens = []string{"username", "email", "login", "user", "userid", "identifier"}

// credentials is the recognized pair that makes a form submission a login
// submission.
type credentials struct {
	password page.Field
	username page.Field
}

// recognize decides whether the form is a login submission: it needs a
// non-empty password-typed input and a resolvable identifier input.
// Anything else is not-applicable, which is a pass-through classification,
// never a phishing verdict.
func recognize(form page.Form) (credentials, bool) {
	pwField, pwIdx, ok := findPasswordField(form)
	if !ok {
		return credentials{}, false
	}
	userField, ok := resolveUsernameField(form, pwIdx)
	if !ok {
		return credentials{}, false
	}
	return credentials{password: pwField, username: userField}, true
}

// findPasswordField returns the first password input carrying a value.
func findPasswordField(form page.Form) (page.Field, int, bool) {
	for i, f := range form.Fields {
		if f.IsPassword() && f.Value != "" {
			return f, i, true
		}
	}
	return page.Field{}, 0, false
}

// resolveUsernameField locates the identifier input by priority:
// autocomplete annotation, then name/id token match, then the first
// text/email input preceding the password field.
func resolveUsernameField(form page.Form, pwIdx int) (page.Field, bool) {
	for _, f := range form.Fields {
		if !f.IsTextual() {
			continue
		}
		if autocompleteIsIdentifier(f.Autocomplete) {
			return f, true
		}
	}
	for _, f := range form.Fields {
		if !f.IsTextual() {
			continue
		}
		if matchesUsernameToken(f.Name) || matchesUsernameToken(f.ID) {
			return f, true
		}
	}
	for i := 0; i < pwIdx; i++ {
		if form.Fields[i].IsTextual() {
			return form.Fields[i], true
		}
	}
	return page.Field{}, false
}

// autocompleteIsIdentifier handles compound autocomplete values such as
// "section-login username".
func autocompleteIsIdentifier(value string) bool {
	for _, part := range strings.Fields(strings.ToLower(value)) {
		if part == "username" || part == "email" {
			return true
		}
	}
	return false
}

// matchesUsernameToken tokenizes an attribute on the usual separators and
// compares whole tokens, so "user_email" matches but "abuser" does not.
func matchesUsernameToken(attr string) bool {
	tokens := strings.FieldsFunc(strings.ToLower(attr), func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || r == '[' || r == ']'
	})
	for _, token := range tokens {
		for _, want := range usernameTokens {
			if token == want {
				return true
			}
		}
	}
	return false
}

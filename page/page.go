// Package page models the snapshot of a web page that the browser
// extension captures at submit time. The engine never touches the live
// DOM; it only sees these snapshots.
package page

import "strings"

// Field describes a single form control as observed by the extension.
// Value is populated only for the credential fields of the submission
// under analysis; all other fields carry an empty Value.
type Field struct {
	Tag          string `json:"tag"`
	Type         string `json:"type"`
	Name         string `json:"name"`
	ID           string `json:"id"`
	Autocomplete string `json:"autocomplete"`
	Label        string `json:"label"`
	Value        string `json:"value"`
}

// Form is the submitted form plus the structural summary the extension
// extracts around it (labels and the usual account-management links).
type Form struct {
	// Identity is a stable key for the form within its page, used to
	// serialize repeated submissions of the same form.
	Identity string `json:"identity"`

	Fields []Field `json:"fields"`

	LabelCount         int  `json:"labelCount"`
	RememberMe         bool `json:"rememberMe"`
	ForgotPasswordLink bool `json:"forgotPasswordLink"`
	RegisterLink       bool `json:"registerLink"`
}

// Snapshot is the page-level context of a submission.
type Snapshot struct {
	URL         string `json:"url"`
	VisibleText string `json:"visibleText"`
	FrameCount  int    `json:"frameCount"`
}

// IsPassword reports whether the field is a password input.
func (f Field) IsPassword() bool {
	return strings.EqualFold(f.Tag, "input") && strings.EqualFold(f.Type, "password")
}

// IsTextual reports whether the field can hold a username or e-mail
// identifier.
func (f Field) IsTextual() bool {
	if !strings.EqualFold(f.Tag, "input") {
		return false
	}
	switch strings.ToLower(f.Type) {
	case "text", "email", "":
		return true
	default:
		return false
	}
}

// Package identity talks to the external identity provider and decides who may
// enter the admin console.
package identity

import "strings"

// Access is the outcome of the admin gate.
type Access int

const (
	// AccessLoading means the provider has not resolved the visitor yet.
	AccessLoading Access = iota
	// AccessAnonymous means nobody is signed in.
	AccessAnonymous
	// AccessNonAdmin means a signed-in user whose email is not the admin email.
	AccessNonAdmin
	// AccessAdmin means the signed-in user is the administrator.
	AccessAdmin
)

func (a Access) String() string {
	switch a {
	case AccessLoading:
		return "loading"
	case AccessAnonymous:
		return "anonymous"
	case AccessNonAdmin:
		return "non_admin"
	case AccessAdmin:
		return "admin"
	}
	return "unknown"
}

// SessionState is what the provider currently knows about a visitor.
type SessionState struct {
	Loaded bool
	User   *User
}

// Classify maps a session state onto exactly one Access value.
// Only a verified primary email matching adminEmail grants AccessAdmin;
// an empty adminEmail grants it to nobody.
func Classify(state SessionState, adminEmail string) Access {
	if !state.Loaded {
		return AccessLoading
	}
	if state.User == nil {
		return AccessAnonymous
	}
	if IsAdminEmail(state.User.VerifiedPrimaryEmail(), adminEmail) {
		return AccessAdmin
	}
	return AccessNonAdmin
}

// IsAdminEmail compares two addresses ignoring case and surrounding whitespace.
func IsAdminEmail(email, adminEmail string) bool {
	email = strings.TrimSpace(email)
	adminEmail = strings.TrimSpace(adminEmail)
	if email == "" || adminEmail == "" {
		return false
	}
	return strings.EqualFold(email, adminEmail)
}

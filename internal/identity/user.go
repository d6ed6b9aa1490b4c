package identity

// EmailAddress is one address attached to a provider user.
type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
	Verification *Verification `json:"verification"`
}

// Verification is the provider's verification record of an email address.
type Verification struct {
	Status string `json:"status"`
}

// Verified reports whether the provider verified the address.
func (e EmailAddress) Verified() bool {
	return e.Verification != nil && e.Verification.Status == "verified"
}

// User is a provider user as returned by GET /v1/users/{id}.
type User struct {
	ID                    string         `json:"id"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
}

// PrimaryEmail returns the primary email address, if any.
func (u *User) PrimaryEmail() (EmailAddress, bool) {
	if u == nil {
		return EmailAddress{}, false
	}
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailAddressID {
			return e, true
		}
	}
	return EmailAddress{}, false
}

// VerifiedPrimaryEmail returns the primary address only when it is verified.
func (u *User) VerifiedPrimaryEmail() string {
	e, ok := u.PrimaryEmail()
	if !ok || !e.Verified() {
		return ""
	}
	return e.EmailAddress
}

// DisplayName returns the full name, falling back to the primary email.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name != "" {
		return name
	}
	e, _ := u.PrimaryEmail()
	return e.EmailAddress
}

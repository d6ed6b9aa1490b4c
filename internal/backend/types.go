package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Age is a person's age as sent by the backend. Numbers and numeric strings
// set Years; any other text is kept in Text and leaves Years at zero.
type Age struct {
	Years int
	Text  string
}

// AgeOf returns an age of n years.
func AgeOf(n int) Age {
	return Age{Years: n}
}

// UnmarshalJSON never fails: unusable values decode to an unknown age.
func (a *Age) UnmarshalJSON(data []byte) error {
	*a = Age{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		if n, err := strconv.Atoi(s); err == nil {
			a.Years = n
			return nil
		}
		a.Text = s
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var f float64
		if err := json.Unmarshal(data, &f); err == nil {
			a.Years = int(f)
		}
	}
	return nil
}

// MarshalJSON writes a number when Years is known, else the raw text or null.
func (a Age) MarshalJSON() ([]byte, error) {
	switch {
	case a.Years > 0:
		return []byte(strconv.Itoa(a.Years)), nil
	case a.Text != "":
		return json.Marshal(a.Text)
	default:
		return []byte("null"), nil
	}
}

// String renders the age, or an empty string when unknown.
func (a Age) String() string {
	if a.Years > 0 {
		return strconv.Itoa(a.Years)
	}
	return a.Text
}

// ID is an identifier the backend may send as a string or a number.
type ID string

// UnmarshalJSON accepts any JSON scalar. Objects, arrays and null decode to "".
func (id *ID) UnmarshalJSON(data []byte) error {
	*id = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*id = ID(strings.TrimSpace(s))
	case '{', '[', 'n':
	default:
		*id = ID(data)
	}
	return nil
}

// PersonRecord is the descriptive data of a registration.
type PersonRecord struct {
	Name              string `json:"name"`
	Age               Age    `json:"age"`
	Gender            string `json:"gender"`
	Height            string `json:"height,omitempty"`
	ContactInfo       string `json:"contact_info"`
	LastSeenDate      string `json:"last_seen_date"`
	LastSeenTime      string `json:"last_seen_time"`
	LastSeenLocation  string `json:"last_seen_location"`
	AdditionalDetails string `json:"additional_details"`
	Reporter          string `json:"reporter,omitempty"`
	ReporterContact   string `json:"reporter_contact,omitempty"`
	AadharNumber      string `json:"aadhar_number,omitempty"`
}

// MatchResult is one candidate returned by a photo search.
type MatchResult struct {
	PersonID         ID      `json:"person_id"`
	Name             string  `json:"name"`
	CaseID           ID      `json:"case_id"`
	ImageURL         string  `json:"image_url"`
	LastSeenLocation string  `json:"last_seen_location"`
	Similarity       float64 `json:"similarity"`
	Age              Age     `json:"age"`
}

// RegistrationReceipt is the backend answer to a registration submission.
type RegistrationReceipt struct {
	RegistrationID string `json:"registration_id"`
	Status         string `json:"status"`
}

// ApprovedPerson is a verified person as listed by the admin endpoints.
type ApprovedPerson struct {
	PersonID  ID     `json:"person_id"`
	Name      string `json:"name"`
	CaseID    ID     `json:"case_id"`
	ImageURL  string `json:"image_url"`
	CreatedAt string `json:"created_at"`
}

// DashboardStats holds the admin dashboard counters.
type DashboardStats struct {
	TotalPersons         int              `json:"total_persons"`
	VerifiedPersons      int              `json:"verified_persons"`
	PendingRegistrations int              `json:"pending_registrations"`
	RecentCases          []ApprovedPerson `json:"recent_cases"`
}

// VerifyResult is the backend answer to an approve/reject decision.
type VerifyResult struct {
	Status   string `json:"status"`
	PersonID string `json:"person_id,omitempty"`
}

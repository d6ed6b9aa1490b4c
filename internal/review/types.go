package review

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/reunite/portal/internal/backend"
)

// Registration is a submitted registration as listed by the admin endpoints.
// Pending and rejected lists share this shape.
type Registration struct {
	ID             string               `json:"registration_id"`
	PersonData     backend.PersonRecord `json:"person_data"`
	PersonImageURL string               `json:"person_image_url"`
	AadharImageURL string               `json:"aadhar_image_url"`
	SubmittedAt    string               `json:"submitted_at"`

	// PersonDataInvalid is set when person_data could not be decoded.
	PersonDataInvalid bool `json:"-"`
}

type registrationWire struct {
	RegistrationID backend.ID      `json:"registration_id"`
	ID             backend.ID      `json:"id"`
	PersonData     json.RawMessage `json:"person_data"`
	PersonImageURL string          `json:"person_image_url"`
	AadharImageURL string          `json:"aadhar_image_url"`
	SubmittedAt    string          `json:"submitted_at"`
	SubmittedAtAlt string          `json:"submittedAt"`
}

// UnmarshalJSON falls back to "id" and "submittedAt" and accepts person_data as
// an object, a JSON-encoded string or null. Malformed person_data yields an
// empty record instead of an error.
func (r *Registration) UnmarshalJSON(data []byte) error {
	var w registrationWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Registration{
		ID:             string(w.RegistrationID),
		PersonImageURL: w.PersonImageURL,
		AadharImageURL: w.AadharImageURL,
		SubmittedAt:    w.SubmittedAt,
	}
	if r.ID == "" {
		r.ID = string(w.ID)
	}
	if r.SubmittedAt == "" {
		r.SubmittedAt = w.SubmittedAtAlt
	}

	rec, err := decodePersonData(w.PersonData)
	if err != nil {
		slog.Warn("could not decode person_data", "registration_id", r.ID, "error", err)
		r.PersonDataInvalid = true
		return nil
	}
	r.PersonData = rec
	return nil
}

func decodePersonData(raw json.RawMessage) (backend.PersonRecord, error) {
	var rec backend.PersonRecord
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return rec, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return rec, err
		}
		if s == "" {
			return rec, nil
		}
		raw = []byte(s)
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return backend.PersonRecord{}, err
	}
	return rec, nil
}

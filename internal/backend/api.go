package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/reunite/portal/internal/attachment"
	"github.com/reunite/portal/internal/constants"
)

// Backend resource paths.
const (
	PathRegister  = "/register"
	PathSearch    = "/search"
	PathDashboard = "/admin/dashboard"
	PathPending   = "/admin/pending"
	PathApproved  = "/admin/approved"
	PathRejected  = "/admin/rejected"
	PathVerify    = "/admin/verify/"
)

func decodeJSON[T any](data []byte, what string) (*T, error) {
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("could not decode %s response: %w", what, err)
	}
	return &result, nil
}

// RegistrationForm builds the multipart body of a registration: every record
// field, the face image under "image" and the optional identity document under
// "aadhar_image".
func RegistrationForm(rec PersonRecord, face, document *attachment.Attachment) *Form {
	return NewForm().
		Set("name", rec.Name).
		Set("age", rec.Age.String()).
		Set("gender", rec.Gender).
		Set("height", rec.Height).
		Set("contact_info", rec.ContactInfo).
		Set("last_seen_date", rec.LastSeenDate).
		Set("last_seen_time", rec.LastSeenTime).
		Set("last_seen_location", rec.LastSeenLocation).
		Set("additional_details", rec.AdditionalDetails).
		Set("reporter", rec.Reporter).
		Set("reporter_contact", rec.ReporterContact).
		Set("aadhar_number", rec.AadharNumber).
		Attach(constants.FieldFaceImage, face).
		Attach(constants.FieldAadharImage, document)
}

// Register submits a registration form.
func (c *Client) Register(ctx context.Context, form *Form) (*RegistrationReceipt, error) {
	data, err := c.Post(ctx, PathRegister, form)
	if err != nil {
		return nil, err
	}
	return decodeJSON[RegistrationReceipt](data, "register")
}

// Search posts a single image and returns the raw response payload.
// The payload shape varies and is left to the caller to reconcile.
func (c *Client) Search(ctx context.Context, img *attachment.Attachment) ([]byte, error) {
	return c.Post(ctx, PathSearch, NewForm().Attach(constants.FieldSearchFile, img))
}

// Dashboard fetches the admin dashboard counters.
func (c *Client) Dashboard(ctx context.Context) (*DashboardStats, error) {
	data, err := c.Get(ctx, PathDashboard)
	if err != nil {
		return nil, err
	}
	return decodeJSON[DashboardStats](data, "dashboard")
}

// Verify approves or rejects a pending registration.
func (c *Client) Verify(ctx context.Context, registrationID string, approve bool) (*VerifyResult, error) {
	resource := PathVerify + url.PathEscape(registrationID) + "?approve=" + strconv.FormatBool(approve)
	data, err := c.Post(ctx, resource, nil)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return &VerifyResult{}, nil
	}
	return decodeJSON[VerifyResult](data, "verify")
}

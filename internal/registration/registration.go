// Package registration drives the missing-person registration form.
package registration

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/reunite/portal/internal/attachment"
	"github.com/reunite/portal/internal/backend"
	"github.com/reunite/portal/internal/metrics"
)

// State of the registration form.
type State string

const (
	StateEditing    State = "editing"
	StateSubmitting State = "submitting"
	StateSubmitted  State = "submitted"
	StateFailed     State = "failed"
)

// User-facing messages.
const (
	MsgFaceImageRequired = "Face image is required."
	MsgSubmitted         = "Registration submitted successfully!"
	MsgFailed            = "Failed to submit registration."
)

var (
	// ErrFaceImageRequired blocks a submission without a face image.
	ErrFaceImageRequired = errors.New("face image is required")
	// ErrBusy is returned while a submission is in flight.
	ErrBusy = errors.New("registration already being submitted")
)

// Registrar submits a registration to the backend.
type Registrar interface {
	Register(ctx context.Context, form *backend.Form) (*backend.RegistrationReceipt, error)
}

// Form is what the visitor entered.
type Form struct {
	Record      backend.PersonRecord
	FaceImage   *attachment.Attachment
	AadharImage *attachment.Attachment
}

// Flow holds one visitor's registration form between requests.
type Flow struct {
	mu        sync.Mutex
	registrar Registrar
	state     State
	form      Form
	receipt   *backend.RegistrationReceipt
	message   string
}

// NewFlow creates a flow in the editing state.
func NewFlow(registrar Registrar) *Flow {
	return &Flow{registrar: registrar, state: StateEditing}
}

// Snapshot is a read-only copy of the flow for rendering.
type Snapshot struct {
	State   State
	Form    Form
	Receipt *backend.RegistrationReceipt
	Message string
}

// Snapshot returns the current state.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{State: f.state, Form: f.form, Receipt: f.receipt, Message: f.message}
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Reset clears the form and returns to editing.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateEditing
	f.form = Form{}
	f.receipt = nil
	f.message = ""
}

// Edit keeps the entered form without submitting it. Attachments missing from
// form are taken from the retained form. Ignored while a submission is in flight.
func (f *Flow) Edit(form Form) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		return
	}
	f.form = f.merge(form)
	f.state = StateEditing
	f.receipt = nil
	f.message = ""
}

func (f *Flow) merge(form Form) Form {
	if form.FaceImage == nil {
		form.FaceImage = f.form.FaceImage
	}
	if form.AadharImage == nil {
		form.AadharImage = f.form.AadharImage
	}
	return form
}

// Submit validates the form and sends it as one multipart request.
//
// Attachments missing from form are taken from the retained form of a previous
// attempt, since browsers cannot re-fill file inputs. Without a face image the
// flow stays in editing and makes no network call.
func (f *Flow) Submit(ctx context.Context, form Form) (*backend.RegistrationReceipt, error) {
	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	form = f.merge(form)
	f.form = form
	f.receipt = nil

	if form.FaceImage == nil {
		f.state = StateEditing
		f.message = MsgFaceImageRequired
		f.mu.Unlock()
		metrics.Registrations.WithLabelValues("invalid").Inc()
		return nil, ErrFaceImageRequired
	}
	f.state = StateSubmitting
	f.message = ""
	f.mu.Unlock()

	payload := backend.RegistrationForm(form.Record, form.FaceImage, form.AadharImage)
	receipt, err := f.registrar.Register(ctx, payload)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		slog.Error("registration submit failed", "name", form.Record.Name, "error", err)
		metrics.Registrations.WithLabelValues(string(StateFailed)).Inc()
		f.state = StateFailed
		f.message = MsgFailed
		return nil, err
	}

	if receipt == nil {
		receipt = &backend.RegistrationReceipt{}
	}
	slog.Info("registration submitted", "registration_id", receipt.RegistrationID, "status", receipt.Status)
	metrics.Registrations.WithLabelValues(string(StateSubmitted)).Inc()
	f.state = StateSubmitted
	f.form = Form{}
	f.receipt = receipt
	f.message = MsgSubmitted
	return receipt, nil
}

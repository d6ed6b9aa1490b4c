package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/reunite/portal/internal/backend"
	"github.com/reunite/portal/internal/config"
	"github.com/reunite/portal/internal/constants"
	"github.com/reunite/portal/internal/registration"
)

const registrationFlowKey = "registration"

// RegisterHandler serves the registration form.
type RegisterHandler struct {
	config    *config.Config
	registrar registration.Registrar
	renderer  *Renderer
}

// NewRegisterHandler creates a new registration handler.
func NewRegisterHandler(cfg *config.Config, registrar registration.Registrar, renderer *Renderer) *RegisterHandler {
	return &RegisterHandler{
		config:    cfg,
		registrar: registrar,
		renderer:  renderer,
	}
}

type registerPage struct {
	Base
	Flow registration.Snapshot
}

func (h *RegisterHandler) flow(r *http.Request) *registration.Flow {
	return sessionValue(r, registrationFlowKey, func() *registration.Flow { return registration.NewFlow(h.registrar) })
}

// Page renders the form with whatever the visitor entered last.
func (h *RegisterHandler) Page(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, "register", registerPage{
		Base: base(r, "Register"),
		Flow: h.flow(r).Snapshot(),
	})
}

// Submit sends the registration. The outcome is kept in the visitor's flow and
// shown after the redirect.
func (h *RegisterHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		setNotice(r, "The upload could not be read.")
		redirectBack(w, r, "/register")
		return
	}

	flow := h.flow(r)
	form, problem := parseRegistrationForm(r)
	if problem != "" {
		setNotice(r, problem)
		flow.Edit(form)
		redirectBack(w, r, "/register")
		return
	}
	if _, err := flow.Submit(r.Context(), form); errors.Is(err, registration.ErrBusy) {
		setNotice(r, "Your registration is already being submitted.")
	}
	redirectBack(w, r, "/register")
}

// parseRegistrationForm reads the record fields and attachments of a parsed
// multipart request. A file that is not a valid image is dropped and reported in
// the returned notice; the text fields are still returned.
func parseRegistrationForm(r *http.Request) (registration.Form, string) {
	form := registration.Form{Record: recordFromRequest(r)}
	var problems []string

	face, err := uploadedFile(r, constants.FieldFaceImage)
	if err != nil {
		problems = append(problems, "The face image must be an image file.")
	}
	form.FaceImage = face

	doc, err := uploadedFile(r, constants.FieldAadharImage)
	if err != nil {
		problems = append(problems, "The Aadhar image must be an image file.")
	}
	form.AadharImage = doc

	return form, strings.Join(problems, " ")
}

func recordFromRequest(r *http.Request) backend.PersonRecord {
	field := func(name string) string { return strings.TrimSpace(r.FormValue(name)) }
	age, _ := strconv.Atoi(field("age"))
	return backend.PersonRecord{
		Name:              field("name"),
		Age:               backend.AgeOf(age),
		Gender:            field("gender"),
		Height:            field("height"),
		ContactInfo:       field("contact_info"),
		LastSeenDate:      field("last_seen_date"),
		LastSeenTime:      field("last_seen_time"),
		LastSeenLocation:  field("last_seen_location"),
		AdditionalDetails: field("additional_details"),
		Reporter:          field("reporter"),
		ReporterContact:   field("reporter_contact"),
		AadharNumber:      field("aadhar_number"),
	}
}

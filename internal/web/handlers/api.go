package handlers

import (
	"errors"
	"net/http"

	"github.com/reunite/portal/internal/backend"
	"github.com/reunite/portal/internal/constants"
	"github.com/reunite/portal/internal/registration"
	"github.com/reunite/portal/internal/search"
)

// APIHandler exposes search and registration as JSON endpoints.
// Every request runs its own flow; nothing is kept between requests.
type APIHandler struct {
	searcher  search.Searcher
	registrar registration.Registrar
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(searcher search.Searcher, registrar registration.Registrar) *APIHandler {
	return &APIHandler{searcher: searcher, registrar: registrar}
}

// MatchResponse is a search match with its display values.
type MatchResponse struct {
	backend.MatchResult
	DisplayName string  `json:"display_name"`
	Percent     float64 `json:"percent"`
	Band        string  `json:"band"`
}

// SearchResponse is the answer of POST /api/v1/search.
type SearchResponse struct {
	State   search.State    `json:"state"`
	Matches []MatchResponse `json:"matches"`
}

// Search runs a face search for the uploaded file.
func (h *APIHandler) Search(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	img, err := uploadedFile(r, constants.FieldSearchFile)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	flow := search.NewFlow(h.searcher)
	if err := flow.Select(img); err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	matches, err := flow.Search(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, search.MsgFailed)
		return
	}

	resp := SearchResponse{State: flow.State(), Matches: make([]MatchResponse, 0, len(matches))}
	for _, m := range matches {
		resp.Matches = append(resp.Matches, MatchResponse{
			MatchResult: m.MatchResult,
			DisplayName: m.DisplayName(),
			Percent:     m.Percent(),
			Band:        string(m.Band()),
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// Register submits a missing-person registration.
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	form, problem := parseRegistrationForm(r)
	if problem != "" {
		respondError(w, http.StatusBadRequest, problem)
		return
	}

	receipt, err := registration.NewFlow(h.registrar).Submit(r.Context(), form)
	switch {
	case errors.Is(err, registration.ErrFaceImageRequired):
		respondError(w, http.StatusBadRequest, registration.MsgFaceImageRequired)
	case err != nil:
		respondError(w, http.StatusBadGateway, registration.MsgFailed)
	default:
		respondJSON(w, http.StatusCreated, receipt)
	}
}

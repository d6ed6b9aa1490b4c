package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/reunite/portal/internal/attachment"
	"github.com/reunite/portal/internal/config"
	"github.com/reunite/portal/internal/constants"
	"github.com/reunite/portal/internal/search"
)

const searchFlowKey = "search"

// SearchHandler serves the photo search page.
type SearchHandler struct {
	config     *config.Config
	searcher   search.Searcher
	renderer   *Renderer
	httpClient *http.Client
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(cfg *config.Config, searcher search.Searcher, renderer *Renderer) *SearchHandler {
	return &SearchHandler{
		config:     cfg,
		searcher:   searcher,
		renderer:   renderer,
		httpClient: http.DefaultClient,
	}
}

type searchPage struct {
	Base
	Flow  search.Snapshot
	Demos []config.DemoImage
}

func (h *SearchHandler) flow(r *http.Request) *search.Flow {
	return sessionValue(r, searchFlowKey, func() *search.Flow { return search.NewFlow(h.searcher) })
}

// Page renders the search page with the visitor's current selection and results.
func (h *SearchHandler) Page(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, "search", searchPage{
		Base:  base(r, "Search"),
		Flow:  h.flow(r).Snapshot(),
		Demos: h.config.Demo.Images,
	})
}

// Submit handles the search form: a new upload or demo choice replaces the
// selection, and action=search runs the search.
func (h *SearchHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		setNotice(r, "The upload could not be read.")
		redirectBack(w, r, "/search")
		return
	}

	flow := h.flow(r)

	if img, err := uploadedFile(r, constants.FieldSearchFile); err != nil {
		setNotice(r, "Please choose an image file.")
	} else if img != nil {
		if err := flow.Select(img); errors.Is(err, search.ErrBusy) {
			setNotice(r, "A search is already running.")
		}
	} else if demoID := r.FormValue("demo"); demoID != "" {
		h.selectDemo(r, flow, demoID)
	}

	if r.FormValue("action") == "search" {
		if _, err := flow.Search(r.Context()); err != nil {
			switch {
			case errors.Is(err, search.ErrNoSelection):
				setNotice(r, "Select an image first.")
			case errors.Is(err, search.ErrBusy):
				setNotice(r, "A search is already running.")
			}
		}
	}

	redirectBack(w, r, "/search")
}

func (h *SearchHandler) selectDemo(r *http.Request, flow *search.Flow, demoID string) {
	demo, ok := h.config.Demo.Find(demoID)
	if !ok {
		setNotice(r, "Unknown demo image.")
		return
	}
	img, err := attachment.Fetch(r.Context(), h.httpClient, h.config.Demo.URL(demo), demo.ID)
	if err != nil {
		slog.Error("failed to load demo image", "demo", demo.ID, "error", err)
		setNotice(r, "The demo image could not be loaded.")
		return
	}
	if err := flow.SelectDemo(demo.ID, img); errors.Is(err, search.ErrBusy) {
		setNotice(r, "A search is already running.")
	}
}

// uploadedFile returns the file posted under field, or nil when none was chosen.
func uploadedFile(r *http.Request, field string) (*attachment.Attachment, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 || files[0].Size == 0 {
		return nil, nil
	}
	return attachment.FromMultipart(files[0])
}

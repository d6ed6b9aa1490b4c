package handlers

import "net/http"

// PagesHandler serves static content pages.
type PagesHandler struct {
	renderer *Renderer
}

// NewPagesHandler creates a new pages handler.
func NewPagesHandler(renderer *Renderer) *PagesHandler {
	return &PagesHandler{renderer: renderer}
}

// Home renders the landing page.
func (h *PagesHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, "home", struct{ Base }{base(r, "Home")})
}

package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reunite/portal/internal/backend"
	"github.com/reunite/portal/internal/config"
	"github.com/reunite/portal/internal/review"
	"github.com/reunite/portal/internal/web/middleware"
)

const pendingSnapshotKey = "admin.pending"

// pendingSnapshot remembers the pending rows an administrator last saw so the
// detail view can be opened from a list. It is per-session navigation state;
// the backend has no single-registration endpoint.
type pendingSnapshot struct {
	mu   sync.Mutex
	rows map[string]review.Registration
}

// replace swaps in the rows of a freshly fetched pending list. Rows no longer
// pending can't be opened afterwards.
func (p *pendingSnapshot) replace(list []review.Registration) {
	rows := make(map[string]review.Registration, len(list))
	for _, reg := range list {
		if reg.ID != "" {
			rows[reg.ID] = reg
		}
	}
	p.mu.Lock()
	p.rows = rows
	p.mu.Unlock()
}

func (p *pendingSnapshot) lookup(id string) (review.Registration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	reg, ok := p.rows[id]
	return reg, ok
}

func (p *pendingSnapshot) forget(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.rows, id)
}

// AdminHandler serves the admin console.
type AdminHandler struct {
	config   *config.Config
	renderer *Renderer
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(cfg *config.Config, renderer *Renderer) *AdminHandler {
	return &AdminHandler{config: cfg, renderer: renderer}
}

type dashboardPage struct {
	Base
	Stats         *backend.DashboardStats
	StatsFailed   bool
	Pending       []review.Registration
	PendingFailed bool
}

type listPage[T any] struct {
	Base
	Query  string
	Failed bool
	Items  []T
}

type reviewPage struct {
	Base
	Registration *review.Registration
}

func (h *AdminHandler) service(w http.ResponseWriter, r *http.Request) *review.Service {
	client := middleware.MustGetAdminClient(r.Context(), w)
	if client == nil {
		return nil
	}
	return review.New(client, h.config.Backend.PendingPath)
}

func snapshot(r *http.Request) *pendingSnapshot {
	return sessionValue(r, pendingSnapshotKey, func() *pendingSnapshot {
		return &pendingSnapshot{rows: make(map[string]review.Registration)}
	})
}

// Dashboard renders the counters and the pending list. Each half renders on
// its own when the other fails.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	svc := h.service(w, r)
	if svc == nil {
		return
	}

	d := svc.Dashboard(r.Context())
	if d.PendingErr == nil {
		snapshot(r).replace(d.Pending)
	}

	h.renderer.Render(w, r, http.StatusOK, "dashboard", dashboardPage{
		Base:          base(r, "Dashboard"),
		Stats:         d.Stats,
		StatsFailed:   d.StatsErr != nil,
		Pending:       d.Pending,
		PendingFailed: d.PendingErr != nil,
	})
}

// Pending lists registrations awaiting review, filtered by the q parameter.
func (h *AdminHandler) Pending(w http.ResponseWriter, r *http.Request) {
	svc := h.service(w, r)
	if svc == nil {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	list, err := svc.Pending(r.Context())
	if err == nil {
		snapshot(r).replace(list)
	}

	h.renderer.Render(w, r, http.StatusOK, "pending", listPage[review.Registration]{
		Base:   base(r, "Pending Registrations"),
		Query:  query,
		Failed: err != nil,
		Items:  review.FilterRegistrations(list, query),
	})
}

// PendingDetail shows one registration from the remembered pending list.
// Opening it without having seen the list renders an invalid-state page.
func (h *AdminHandler) PendingDetail(w http.ResponseWriter, r *http.Request) {
	page := reviewPage{Base: base(r, "Review Registration")}
	if id, ok := registrationID(r); ok {
		if reg, found := snapshot(r).lookup(id); found {
			page.Registration = &reg
		}
	}

	status := http.StatusOK
	if page.Registration == nil {
		status = http.StatusNotFound
	}
	h.renderer.Render(w, r, status, "review", page)
}

// Verify records the approve or reject decision and returns to the pending
// list, where the outcome is shown once.
func (h *AdminHandler) Verify(w http.ResponseWriter, r *http.Request) {
	svc := h.service(w, r)
	if svc == nil {
		return
	}

	id, ok := registrationID(r)
	approve, err := strconv.ParseBool(r.FormValue("approve"))
	if !ok || err != nil {
		setNotice(r, review.NoticeFailed)
		redirectBack(w, r, "/admin/pending")
		return
	}

	notice, err := svc.Verify(r.Context(), id, approve)
	if err == nil {
		snapshot(r).forget(id)
	}
	setNotice(r, notice)
	redirectBack(w, r, "/admin/pending")
}

// Approved lists verified persons, filtered by the q parameter.
func (h *AdminHandler) Approved(w http.ResponseWriter, r *http.Request) {
	svc := h.service(w, r)
	if svc == nil {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	list, err := svc.Approved(r.Context())
	h.renderer.Render(w, r, http.StatusOK, "approved", listPage[backend.ApprovedPerson]{
		Base:   base(r, "Approved Persons"),
		Query:  query,
		Failed: err != nil,
		Items:  review.FilterApproved(list, query),
	})
}

// Rejected lists rejected registrations, filtered by the q parameter.
func (h *AdminHandler) Rejected(w http.ResponseWriter, r *http.Request) {
	svc := h.service(w, r)
	if svc == nil {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	list, err := svc.Rejected(r.Context())
	h.renderer.Render(w, r, http.StatusOK, "rejected", listPage[review.Registration]{
		Base:   base(r, "Rejected Registrations"),
		Query:  query,
		Failed: err != nil,
		Items:  review.FilterRegistrations(list, query),
	})
}

// registrationID reads the id route parameter. Registration ids are UUIDs.
func registrationID(r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

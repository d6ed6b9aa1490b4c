// Package search drives the photo search page: image selection, one backend
// search per request and reconciliation of the result list.
package search

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/reunite/portal/internal/attachment"
	"github.com/reunite/portal/internal/metrics"
	"github.com/reunite/portal/internal/reconcile"
)

// State of the search page.
type State string

const (
	StateIdle         State = "idle"
	StateFileSelected State = "file-selected"
	StateSearching    State = "searching"
	StateResultsShown State = "results-shown"
	StateNoResults    State = "no-results"
	StateFailed       State = "failed"
)

// MsgFailed is shown when a search request fails.
const MsgFailed = "Something went wrong while searching."

var (
	// ErrNoSelection is returned when searching without a selected image.
	ErrNoSelection = errors.New("no image selected")
	// ErrBusy is returned while a search is in flight.
	ErrBusy = errors.New("search already in progress")
)

// Searcher posts an image to the backend and returns the raw payload.
type Searcher interface {
	Search(ctx context.Context, img *attachment.Attachment) ([]byte, error)
}

// Flow holds one visitor's search page between requests.
type Flow struct {
	mu        sync.Mutex
	searcher  Searcher
	state     State
	selection *attachment.Attachment
	demoID    string
	results   []Match
	message   string
}

// NewFlow creates a flow in the idle state.
func NewFlow(searcher Searcher) *Flow {
	return &Flow{searcher: searcher, state: StateIdle}
}

// Snapshot is a read-only copy of the flow for rendering.
type Snapshot struct {
	State     State
	Selection *attachment.Attachment
	DemoID    string
	Results   []Match
	Message   string
}

// Searching reports whether the search button must be disabled.
func (s Snapshot) Searching() bool {
	return s.State == StateSearching
}

// CanSearch reports whether a search can be started.
func (s Snapshot) CanSearch() bool {
	return s.Selection != nil && s.State != StateSearching
}

// Snapshot returns the current state.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{
		State:     f.state,
		Selection: f.selection,
		DemoID:    f.demoID,
		Results:   append([]Match(nil), f.results...),
		Message:   f.message,
	}
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Select makes img the current selection, superseding any previous one.
// Results of an earlier search are cleared. A nil image is ignored.
func (f *Flow) Select(img *attachment.Attachment) error {
	return f.selectImage(img, "")
}

// SelectDemo selects an image from the demo catalog.
func (f *Flow) SelectDemo(id string, img *attachment.Attachment) error {
	return f.selectImage(img, id)
}

func (f *Flow) selectImage(img *attachment.Attachment, demoID string) error {
	if img == nil {
		return ErrNoSelection
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSearching {
		return ErrBusy
	}
	f.selection = img
	f.demoID = demoID
	f.results = nil
	f.message = ""
	f.state = StateFileSelected
	slog.Debug("search image selected", "filename", img.Filename, "bytes", img.Size(), "demo", demoID)
	return nil
}

// Search sends the selected image and records the reconciled matches.
// An empty list is StateNoResults, which is distinct from StateIdle.
func (f *Flow) Search(ctx context.Context) ([]Match, error) {
	f.mu.Lock()
	if f.state == StateSearching {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	if f.selection == nil {
		f.mu.Unlock()
		return nil, ErrNoSelection
	}
	img := f.selection
	f.state = StateSearching
	f.message = ""
	f.mu.Unlock()

	payload, err := f.searcher.Search(ctx, img)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		slog.Error("search failed", "file", img.Filename, "error", err)
		metrics.SearchOutcomes.WithLabelValues(string(StateFailed)).Inc()
		f.state = StateFailed
		f.results = nil
		f.message = MsgFailed
		return nil, err
	}

	f.results = Reconcile(payload)
	if len(f.results) == 0 {
		f.state = StateNoResults
	} else {
		f.state = StateResultsShown
	}
	metrics.SearchOutcomes.WithLabelValues(string(f.state)).Inc()
	return append([]Match(nil), f.results...), nil
}

// Reconcile extracts matches from a search payload: a bare list, then the
// "results", "matches" and "data" fields. Unknown shapes yield no matches.
func Reconcile(payload []byte) []Match {
	matches, skipped := reconcile.Decode[Match](payload, reconcile.SearchShapes()...)
	if skipped > 0 {
		slog.Warn("skipped undecodable search matches", "skipped", skipped)
	}
	return matches
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/reunite/portal/internal/attachment"
	"github.com/reunite/portal/internal/config"
	"github.com/reunite/portal/internal/web/middleware"
)

type fakeSearcher struct {
	mu      sync.Mutex
	payload string
	err     error
	calls   int
}

func (f *fakeSearcher) Search(ctx context.Context, img *attachment.Attachment) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.payload), nil
}

// searchRoundTrip posts body to Submit, follows the redirect and returns the rendered page.
func searchRoundTrip(t *testing.T, handler *SearchHandler, session *middleware.Session, body multipartBody) *httptest.ResponseRecorder {
	t.Helper()
	post := httptest.NewRecorder()
	handler.Submit(post, withSession(body.request(t, "/search"), session))
	assertRedirect(t, post, "/search")

	page := httptest.NewRecorder()
	handler.Page(page, withSession(httptest.NewRequest(http.MethodGet, "/search", nil), session))
	assertStatusCode(t, page, http.StatusOK)
	return page
}

func TestSearchHandler_Page_Idle(t *testing.T) {
	handler := NewSearchHandler(testConfig(), &fakeSearcher{}, testRenderer(t))
	recorder := httptest.NewRecorder()

	handler.Page(recorder, withSession(httptest.NewRequest(http.MethodGet, "/search", nil), &middleware.Session{ID: "s1"}))

	assertStatusCode(t, recorder, http.StatusOK)
	assertBodyContains(t, recorder, "Select an image to search.")
	assertBodyContains(t, recorder, "disabled")
}

func TestSearchHandler_Submit_ShowsMatches(t *testing.T) {
	searcher := &fakeSearcher{payload: `{"matches":[{"name":"Asha","similarity":0.92,"case_id":"C-1"},{"similarity":0.55}]}`}
	handler := NewSearchHandler(testConfig(), searcher, testRenderer(t))
	session := &middleware.Session{ID: "s1"}

	page := searchRoundTrip(t, handler, session, multipartBody{
		fields: map[string]string{"action": "search"},
		files:  map[string][]byte{"file": pngPixel},
	})

	assertBodyContains(t, page, "Asha")
	assertBodyContains(t, page, "92%")
	assertBodyContains(t, page, "92.0% similarity")
	assertBodyContains(t, page, "badge high")
	assertBodyContains(t, page, "Unknown")
	assertBodyContains(t, page, "badge low")
	assertBodyContains(t, page, "data:image/png;base64,")
	if searcher.calls != 1 {
		t.Errorf("expected one backend search, got %d", searcher.calls)
	}
}

func TestSearchHandler_Submit_NoMatches(t *testing.T) {
	handler := NewSearchHandler(testConfig(), &fakeSearcher{payload: `[]`}, testRenderer(t))

	page := searchRoundTrip(t, handler, &middleware.Session{ID: "s1"}, multipartBody{
		fields: map[string]string{"action": "search"},
		files:  map[string][]byte{"file": pngPixel},
	})

	assertBodyContains(t, page, "No matches found.")
}

func TestSearchHandler_Submit_BackendFailure(t *testing.T) {
	handler := NewSearchHandler(testConfig(), &fakeSearcher{err: errors.New("boom")}, testRenderer(t))

	page := searchRoundTrip(t, handler, &middleware.Session{ID: "s1"}, multipartBody{
		fields: map[string]string{"action": "search"},
		files:  map[string][]byte{"file": pngPixel},
	})

	assertBodyContains(t, page, "Something went wrong while searching.")
}

func TestSearchHandler_Submit_WithoutSelection(t *testing.T) {
	searcher := &fakeSearcher{payload: `[]`}
	handler := NewSearchHandler(testConfig(), searcher, testRenderer(t))

	page := searchRoundTrip(t, handler, &middleware.Session{ID: "s1"}, multipartBody{
		fields: map[string]string{"action": "search"},
	})

	assertBodyContains(t, page, "Select an image first.")
	if searcher.calls != 0 {
		t.Errorf("expected no backend call, got %d", searcher.calls)
	}
}

func TestSearchHandler_Submit_NotAnImage(t *testing.T) {
	handler := NewSearchHandler(testConfig(), &fakeSearcher{}, testRenderer(t))

	page := searchRoundTrip(t, handler, &middleware.Session{ID: "s1"}, multipartBody{
		files: map[string][]byte{"file": []byte("plain text")},
	})

	assertBodyContains(t, page, "Please choose an image file.")
}

func TestSearchHandler_Submit_SelectionKeptAcrossRequests(t *testing.T) {
	searcher := &fakeSearcher{payload: `[{"name":"Ravi","similarity":0.7}]`}
	handler := NewSearchHandler(testConfig(), searcher, testRenderer(t))
	session := &middleware.Session{ID: "s1"}

	searchRoundTrip(t, handler, session, multipartBody{
		fields: map[string]string{"action": "select"},
		files:  map[string][]byte{"file": pngPixel},
	})
	page := searchRoundTrip(t, handler, session, multipartBody{
		fields: map[string]string{"action": "search"},
	})

	assertBodyContains(t, page, "Ravi")
	assertBodyContains(t, page, "badge medium")
}

func TestSearchHandler_Submit_Demo(t *testing.T) {
	images := setupMockBackend(t, map[string]http.HandlerFunc{
		"/demo/one.png": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			w.Write(pngPixel)
		},
	})
	cfg := testConfig()
	cfg.Demo = config.DemoConfig{
		BaseURL: images.URL,
		Images:  []config.DemoImage{{ID: "one", Label: "Demo One", Path: "/demo/one.png"}},
	}
	handler := NewSearchHandler(cfg, &fakeSearcher{}, testRenderer(t))
	session := &middleware.Session{ID: "s1"}

	page := searchRoundTrip(t, handler, session, multipartBody{fields: map[string]string{"demo": "one"}})

	assertBodyContains(t, page, "Demo One")
	assertBodyContains(t, page, "outline selected")
	assertBodyContains(t, page, "data:image/jpeg;base64,")

	page = searchRoundTrip(t, handler, session, multipartBody{fields: map[string]string{"demo": "missing"}})
	assertBodyContains(t, page, "Unknown demo image.")
}

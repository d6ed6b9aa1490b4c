package search

import (
	"context"
	"errors"
	"testing"

	"github.com/reunite/portal/internal/attachment"
)

var pngPixel = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89\x00\x00\x00\rIDATx\x9cc\xf8\x0f\x00\x00\x01\x01\x00\x05\x18\xd8N\x00\x00\x00\x00IEND\xaeB`\x82")

type fakeSearcher struct {
	payload []byte
	err     error
	calls   int
	last    *attachment.Attachment
}

func (s *fakeSearcher) Search(ctx context.Context, img *attachment.Attachment) ([]byte, error) {
	s.calls++
	s.last = img
	return s.payload, s.err
}

func image(t *testing.T, name string) *attachment.Attachment {
	t.Helper()
	att, err := attachment.New(name, pngPixel)
	if err != nil {
		t.Fatalf("attachment.New failed: %v", err)
	}
	return att
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		similarity float64
		want       Band
	}{
		{1.0, BandHigh},
		{0.81, BandHigh},
		{0.80, BandMedium},
		{0.61, BandMedium},
		{0.60, BandLow},
		{0.0, BandLow},
	}
	for _, tt := range tests {
		if got := BandFor(tt.similarity); got != tt.want {
			t.Errorf("BandFor(%v) = %s, want %s", tt.similarity, got, tt.want)
		}
	}
}

func TestMatchFormatting(t *testing.T) {
	tests := []struct {
		similarity float64
		badge      string
		label      string
	}{
		{0.92, "92%", "92.0%"},
		{0.875, "88%", "87.5%"},
		{0.0, "0%", "0.0%"},
		{1.0, "100%", "100.0%"},
	}
	for _, tt := range tests {
		m := Match{}
		m.Similarity = tt.similarity
		if got := m.Badge(); got != tt.badge {
			t.Errorf("Badge(%v) = %q, want %q", tt.similarity, got, tt.badge)
		}
		if got := m.PercentLabel(); got != tt.label {
			t.Errorf("PercentLabel(%v) = %q, want %q", tt.similarity, got, tt.label)
		}
	}
}

func TestReconcile_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []string
	}{
		{"bare list", `[{"name":"A","similarity":0.9}]`, []string{"A"}},
		{"results", `{"results":[{"name":"B","similarity":0.7}]}`, []string{"B"}},
		{"matches", `{"matches":[{"name":"C","similarity":0.5},{"name":"D","similarity":0.4}]}`, []string{"C", "D"}},
		{"data", `{"data":[{"name":"E","similarity":0.3}]}`, []string{"E"}},
		{"unusable ages", `{"matches":[{"name":"X","similarity":0.92,"age":"unknown"},{"name":"Y","similarity":0.7,"age":true}]}`, []string{"X", "Y"}},
		{"numeric ids", `[{"person_id":7,"case_id":12,"name":"Z"}]`, []string{"Z"}},
		{"results wins over matches", `{"matches":[{"name":"M"}],"results":[{"name":"R"}]}`, []string{"R"}},
		{"matches not a list", `{"matches":{"name":"X"}}`, nil},
		{"unknown shape", `{"foo":[{"name":"X"}]}`, nil},
		{"malformed", `{"matches":[`, nil},
		{"empty", ``, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile([]byte(tt.payload))
			if len(got) != len(tt.want) {
				t.Fatalf("got %d matches, want %d", len(got), len(tt.want))
			}
			for i, m := range got {
				if m.Name != tt.want[i] {
					t.Errorf("match %d: name = %q, want %q", i, m.Name, tt.want[i])
				}
			}
		})
	}
}

func TestFlow_SearchShowsMatches(t *testing.T) {
	searcher := &fakeSearcher{payload: []byte(`{"matches":[{"name":"X","similarity":0.92}]}`)}
	flow := NewFlow(searcher)

	if flow.State() != StateIdle {
		t.Fatalf("initial state = %s", flow.State())
	}
	if err := flow.Select(image(t, "q.png")); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if flow.State() != StateFileSelected {
		t.Fatalf("state after select = %s", flow.State())
	}

	matches, err := flow.Search(context.Background())
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	m := matches[0]
	if m.DisplayName() != "X" || m.Badge() != "92%" || m.Band() != BandHigh {
		t.Errorf("unexpected match rendering: %s %s %s", m.DisplayName(), m.Badge(), m.Band())
	}
	if flow.State() != StateResultsShown {
		t.Errorf("state = %s, want results-shown", flow.State())
	}
}

func TestFlow_NoResultsDistinctFromIdle(t *testing.T) {
	searcher := &fakeSearcher{payload: []byte(`{"matches":[]}`)}
	flow := NewFlow(searcher)
	_ = flow.Select(image(t, "q.png"))

	matches, err := flow.Search(context.Background())
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %d", len(matches))
	}
	if flow.State() != StateNoResults {
		t.Errorf("state = %s, want no-results", flow.State())
	}
}

func TestFlow_SearchWithoutSelection(t *testing.T) {
	searcher := &fakeSearcher{}
	flow := NewFlow(searcher)

	if _, err := flow.Search(context.Background()); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	if searcher.calls != 0 {
		t.Errorf("expected no backend call, got %d", searcher.calls)
	}
	if err := flow.Select(nil); !errors.Is(err, ErrNoSelection) {
		t.Errorf("Select(nil) = %v, want ErrNoSelection", err)
	}
}

func TestFlow_Failure(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("boom")}
	flow := NewFlow(searcher)
	_ = flow.Select(image(t, "q.png"))

	if _, err := flow.Search(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	snap := flow.Snapshot()
	if snap.State != StateFailed || snap.Message != MsgFailed {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if !snap.CanSearch() {
		t.Error("selection should survive a failed search")
	}
}

func TestFlow_SelectSupersedes(t *testing.T) {
	searcher := &fakeSearcher{payload: []byte(`[{"name":"A","similarity":0.9}]`)}
	flow := NewFlow(searcher)

	first := image(t, "first.png")
	second := image(t, "second.png")
	_ = flow.Select(first)
	_, _ = flow.Search(context.Background())
	_ = flow.SelectDemo("demo-1", second)

	snap := flow.Snapshot()
	if snap.State != StateFileSelected || len(snap.Results) != 0 {
		t.Errorf("new selection should clear results, got %+v", snap)
	}
	if snap.DemoID != "demo-1" {
		t.Errorf("DemoID = %q", snap.DemoID)
	}

	_, _ = flow.Search(context.Background())
	if searcher.last != second {
		t.Error("search should use the latest selection")
	}
}

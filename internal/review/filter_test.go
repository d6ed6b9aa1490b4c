package review

import (
	"testing"

	"github.com/reunite/portal/internal/backend"
)

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"Jiří Novák":      "jiri novak",
		"  Anne-Marie  ":  "anne marie",
		"ÅSHA   Kulkarni": "asha kulkarni",
		"":                "",
	}
	for in, want := range tests {
		if got := NormalizeName(in); got != want {
			t.Errorf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFilterRegistrations(t *testing.T) {
	list := []Registration{
		{ID: "1", PersonData: backend.PersonRecord{Name: "Zoë Fernandes"}},
		{ID: "2", PersonData: backend.PersonRecord{Name: "Ravi Kumar"}},
		{ID: "3"},
	}

	if got := FilterRegistrations(list, ""); len(got) != 3 {
		t.Errorf("empty query should keep all, got %d", len(got))
	}
	got := FilterRegistrations(list, "zoe")
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("unexpected filter result %+v", got)
	}
	if got := FilterRegistrations(list, "nobody"); len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
}

func TestFilterApproved(t *testing.T) {
	list := []backend.ApprovedPerson{{Name: "Asha Rao"}, {Name: "Meera"}}
	got := FilterApproved(list, "RAO")
	if len(got) != 1 || got[0].Name != "Asha Rao" {
		t.Errorf("unexpected filter result %+v", got)
	}
}

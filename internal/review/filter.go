package review

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/reunite/portal/internal/backend"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeName normalizes a name for comparison (lowercase, no diacritics,
// spaces for dashes, collapsed whitespace).
func NormalizeName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}

// NameMatches reports whether name contains query after normalization.
// An empty query matches everything.
func NameMatches(name, query string) bool {
	q := NormalizeName(query)
	if q == "" {
		return true
	}
	return strings.Contains(NormalizeName(name), q)
}

// FilterRegistrations keeps registrations whose person name matches query.
func FilterRegistrations(list []Registration, query string) []Registration {
	if NormalizeName(query) == "" {
		return list
	}
	out := make([]Registration, 0, len(list))
	for _, r := range list {
		if NameMatches(r.PersonData.Name, query) {
			out = append(out, r)
		}
	}
	return out
}

// FilterApproved keeps approved persons whose name matches query.
func FilterApproved(list []backend.ApprovedPerson, query string) []backend.ApprovedPerson {
	if NormalizeName(query) == "" {
		return list
	}
	out := make([]backend.ApprovedPerson, 0, len(list))
	for _, p := range list {
		if NameMatches(p.Name, query) {
			out = append(out, p)
		}
	}
	return out
}

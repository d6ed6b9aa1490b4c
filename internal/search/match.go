package search

import (
	"fmt"
	"math"

	"github.com/reunite/portal/internal/backend"
	"github.com/reunite/portal/internal/constants"
)

// Band is a coarse confidence category for a similarity score.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// BandFor categorizes a similarity: above 0.8 is high, above 0.6 medium, else low.
func BandFor(similarity float64) Band {
	switch {
	case similarity > constants.HighSimilarityThreshold:
		return BandHigh
	case similarity > constants.MediumSimilarityThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

// Percent converts a similarity in [0,1] to a percentage.
func Percent(similarity float64) float64 {
	return similarity * 100
}

// Match is a search candidate ready for display.
type Match struct {
	backend.MatchResult
}

// DisplayName returns the name, or "Unknown" when the backend sent none.
func (m Match) DisplayName() string {
	if m.Name == "" {
		return "Unknown"
	}
	return m.Name
}

// Band returns the confidence band.
func (m Match) Band() Band {
	return BandFor(m.Similarity)
}

// Percent returns the similarity as a percentage.
func (m Match) Percent() float64 {
	return Percent(m.Similarity)
}

// Badge renders the percentage as a whole number, e.g. "92%".
func (m Match) Badge() string {
	return fmt.Sprintf("%d%%", int(math.Round(m.Percent())))
}

// PercentLabel renders the percentage with one decimal, e.g. "92.0%".
func (m Match) PercentLabel() string {
	return fmt.Sprintf("%.1f%%", m.Percent())
}

// BarWidth is the percentage clamped to [0,100] for the similarity bar.
func (m Match) BarWidth() float64 {
	return math.Max(0, math.Min(100, m.Percent()))
}

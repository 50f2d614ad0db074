// Package ranking orders teams for the ranking view.
//
// Ordering: points DESC, then original insertion order (stable). The first
// three positions get a distinguished marker; the rest get an ordinal label.
package ranking

import (
	"slices"
	"strconv"

	"github.com/okian/recicla/internal/domain/model"
)

// Display markers for the top three positions.
const (
	MarkerTrophy = "trophy"
	MarkerMedal  = "medal"

	topThree      = 3
	ordinalSuffix = "º"
)

// Placement is one row of the ranking view.
type Placement struct {
	Position int        `json:"position"` // 1-based
	Team     model.Team `json:"team"`
	Marker   string     `json:"marker,omitempty"` // set for the top three only
	Label    string     `json:"label"`
}

// Sort returns a copy of teams ordered by points descending. Teams with equal
// points keep their relative input order.
func Sort(teams []model.Team) []model.Team {
	out := slices.Clone(teams)
	slices.SortStableFunc(out, func(a, b model.Team) int {
		// higher points rank earlier
		return b.Points - a.Points
	})
	return out
}

// Rank sorts teams and decorates each with its display position.
func Rank(teams []model.Team) []Placement {
	sorted := Sort(teams)
	out := make([]Placement, len(sorted))
	for i, t := range sorted {
		out[i] = Placement{
			Position: i + 1,
			Team:     t,
			Marker:   marker(i),
			Label:    Ordinal(i + 1),
		}
	}
	return out
}

// Ordinal renders a 1-based position in the display locale, e.g. "4º".
func Ordinal(position int) string {
	return strconv.Itoa(position) + ordinalSuffix
}

func marker(index int) string {
	switch {
	case index == 0:
		return MarkerTrophy
	case index < topThree:
		return MarkerMedal
	default:
		return ""
	}
}

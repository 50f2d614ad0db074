// Package aggregate derives home-view totals and environmental-impact
// estimates from the recycling event log. Everything here is a pure function
// of its input; nothing is persisted.
package aggregate

import (
	"math"

	"github.com/okian/recicla/internal/domain/material"
	"github.com/okian/recicla/internal/domain/model"
)

// Heuristic impact factors per recycled item.
const (
	treesPerItem       = 0.02
	waterLitersPerItem = 100.0
	co2KgPerItem       = 3.5
)

// MaterialCount is the number of items recycled for one category.
type MaterialCount struct {
	Material string `json:"material"`
	Icon     string `json:"icon"`
	Count    int    `json:"count"`
	Points   int    `json:"points"`
}

// Snapshot is the derived aggregate of a full event log.
type Snapshot struct {
	TotalItems  int             `json:"total_items"`
	TotalPoints int             `json:"total_points"`
	Materials   []MaterialCount `json:"materials"`
}

// Impact holds the environmental-impact estimates for a number of items.
type Impact struct {
	TreesPreserved   int `json:"trees_preserved"`
	WaterSavedLiters int `json:"water_saved_liters"`
	CO2AvoidedKg     int `json:"co2_avoided_kg"`
}

// Empty returns the all-zero snapshot with every category present.
func Empty() Snapshot {
	return ComputeSnapshot(nil)
}

// ComputeSnapshot counts events per aggregation category (case-insensitive on
// the material name) and sums their points. Events whose material is not an
// aggregation category do not contribute to the totals.
func ComputeSnapshot(events []model.RecyclingEvent) Snapshot {
	cats := material.Categories()
	snap := Snapshot{Materials: make([]MaterialCount, len(cats))}
	for i, c := range cats {
		mc := MaterialCount{Material: c.Name, Icon: c.Icon}
		for _, ev := range events {
			if c.Matches(ev.Material) {
				mc.Count++
				mc.Points += ev.Points
			}
		}
		snap.Materials[i] = mc
		snap.TotalItems += mc.Count
		snap.TotalPoints += mc.Points
	}
	return snap
}

// Count returns the item count for a category name, or 0 if absent.
func (s Snapshot) Count(category string) int {
	for _, m := range s.Materials {
		if m.Material == category {
			return m.Count
		}
	}
	return 0
}

// ComputeImpactMetrics applies the fixed per-item factors and rounds half up.
func ComputeImpactMetrics(totalItems int) Impact {
	n := float64(totalItems)
	return Impact{
		TreesPreserved:   roundHalfUp(n * treesPerItem),
		WaterSavedLiters: roundHalfUp(n * waterLitersPerItem),
		CO2AvoidedKg:     roundHalfUp(n * co2KgPerItem),
	}
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Package model contains domain models passed between layers.
package model

import "time"

// OrphanTeamName is shown for events whose team no longer exists.
const OrphanTeamName = "Equipe"

// Team is a named group accumulating recycling points.
type Team struct {
	ID     string `json:"id"`     // opaque, stable once assigned
	Name   string `json:"name"`   // trimmed display name
	Points int    `json:"points"` // never negative
}

// RecyclingEvent is one recorded act of recycling a material for a team.
// Events are immutable once created.
type RecyclingEvent struct {
	TeamID    string    `json:"team_id"` // weak reference; the team may be gone
	Material  string    `json:"material"`
	Points    int       `json:"points"`
	Timestamp time.Time `json:"timestamp"`
}

// Activity is a recycling event joined with its team's display name.
type Activity struct {
	RecyclingEvent
	TeamName string `json:"team_name"`
	Orphan   bool   `json:"orphan"`
}

// JoinActivity resolves the team name of each event, falling back to
// OrphanTeamName when the team was deleted.
func JoinActivity(events []RecyclingEvent, teams []Team) []Activity {
	names := make(map[string]string, len(teams))
	for _, t := range teams {
		names[t.ID] = t.Name
	}
	out := make([]Activity, 0, len(events))
	for _, ev := range events {
		name, ok := names[ev.TeamID]
		if !ok {
			name = OrphanTeamName
		}
		out = append(out, Activity{RecyclingEvent: ev, TeamName: name, Orphan: !ok})
	}
	return out
}

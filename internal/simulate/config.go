// Package simulate drives a running recicla service over HTTP the way a
// classroom session would: create teams, register recycling from many
// concurrent clients, then check that every team's points match the events
// that were accepted and that the ranking is ordered.
package simulate

import (
	"errors"
	"time"
)

// Config holds configuration for a simulated session.
type Config struct {
	BaseURL string        // Base URL of the service
	Teams   int           // Number of teams to create
	Events  int           // Number of register requests to send
	Workers int           // Number of concurrent clients
	Timeout time.Duration // HTTP request timeout

	// DuplicateEvery resends every n-th request with the same request id.
	// Zero disables duplicates.
	DuplicateEvery int

	// Reset deletes every existing team before the session starts.
	Reset bool

	// Seed makes the material and team choices reproducible. Zero picks a
	// random seed.
	Seed uint64
}

// ErrInvalidConfig is returned for unusable settings.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Stats holds session statistics.
type Stats struct {
	TeamsCreated   int
	EventsSent     int
	EventsAccepted int
	Duplicates     int
	Retries        int
	Failed         int
	PointsAwarded  int
	StartTime      time.Time
	Duration       time.Duration
}

// Team mirrors the team JSON of the API.
type Team struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// Material mirrors the material JSON of the API.
type Material struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// Event mirrors the recycling event JSON of the API.
type Event struct {
	TeamID    string    `json:"team_id"`
	Material  string    `json:"material"`
	Points    int       `json:"points"`
	Timestamp time.Time `json:"timestamp"`
}

type eventRequest struct {
	RequestID string `json:"request_id,omitempty"`
	TeamID    string `json:"team_id"`
	Material  string `json:"material"`
}

type eventAck struct {
	Event     Event `json:"event"`
	Duplicate bool  `json:"duplicate"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

package simulate

import (
	"context"
	"fmt"
)

// verify checks the service state after a session:
//   - every simulated team holds baseline + the points of its accepted events
//   - the team list is ordered by points, highest first
//   - the recent feed is newest first
func verify(ctx context.Context, client *Client, teams []Team, baseline, expected map[string]int, stats *Stats) error {
	got, err := client.Teams(ctx)
	if err != nil {
		return fmt.Errorf("list teams: %w", err)
	}
	byID := make(map[string]Team, len(got))
	for _, t := range got {
		byID[t.ID] = t
	}

	for _, t := range teams {
		have, ok := byID[t.ID]
		if !ok {
			return fmt.Errorf("team %s (%s) is missing", t.ID, t.Name)
		}
		want := baseline[t.ID] + expected[t.ID]
		if have.Points != want {
			return fmt.Errorf("team %s has %d points, accepted events add up to %d", t.Name, have.Points, want)
		}
	}

	for i := 1; i < len(got); i++ {
		if got[i].Points > got[i-1].Points {
			return fmt.Errorf("ranking out of order at %d: %d after %d", i, got[i].Points, got[i-1].Points)
		}
	}

	if stats.EventsAccepted == 0 {
		return nil
	}
	recent, err := client.Recent(ctx, stats.EventsAccepted)
	if err != nil {
		return fmt.Errorf("recent events: %w", err)
	}
	if len(recent) == 0 {
		return fmt.Errorf("no recent events after %d accepted", stats.EventsAccepted)
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].Timestamp.After(recent[i-1].Timestamp) {
			return fmt.Errorf("recent events out of order at %d", i)
		}
	}
	return nil
}

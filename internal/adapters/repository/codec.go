package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/okian/recicla/internal/domain/model"
)

// timestampLayout is an RFC 3339 UTC instant with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

type wireTeam struct {
	ID     string `json:"id"`
	Nome   string `json:"nome"`
	Pontos int    `json:"pontos"`
}

type wireEvent struct {
	TimeID   string `json:"timeId"`
	Material string `json:"material"`
	Pontos   int    `json:"pontos"`
	Data     string `json:"data"`
}

// decodeStrict decodes exactly one JSON value into v.
func decodeStrict(raw string, v any) error {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after value")
	}
	return nil
}

func encodeTeams(teams []model.Team) (string, error) {
	wire := make([]wireTeam, len(teams))
	for i, t := range teams {
		wire[i] = wireTeam{ID: t.ID, Nome: t.Name, Pontos: t.Points}
	}
	return marshal(wire)
}

func decodeTeams(raw string) ([]model.Team, error) {
	var wire []wireTeam
	if err := decodeStrict(raw, &wire); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(wire))
	teams := make([]model.Team, len(wire))
	for i, w := range wire {
		if w.ID == "" {
			return nil, fmt.Errorf("team %d: empty id", i)
		}
		if _, dup := seen[w.ID]; dup {
			return nil, fmt.Errorf("team %d: duplicate id %q", i, w.ID)
		}
		seen[w.ID] = struct{}{}
		if w.Pontos < 0 {
			return nil, fmt.Errorf("team %q: negative points %d", w.ID, w.Pontos)
		}
		teams[i] = model.Team{ID: w.ID, Name: w.Nome, Points: w.Pontos}
	}
	return teams, nil
}

func encodeEvents(events []model.RecyclingEvent) (string, error) {
	wire := make([]wireEvent, len(events))
	for i, ev := range events {
		wire[i] = wireEvent{
			TimeID:   ev.TeamID,
			Material: ev.Material,
			Pontos:   ev.Points,
			Data:     ev.Timestamp.UTC().Format(timestampLayout),
		}
	}
	return marshal(wire)
}

func decodeEvents(raw string) ([]model.RecyclingEvent, error) {
	var wire []wireEvent
	if err := decodeStrict(raw, &wire); err != nil {
		return nil, err
	}
	events := make([]model.RecyclingEvent, len(wire))
	for i, w := range wire {
		switch {
		case w.TimeID == "":
			return nil, fmt.Errorf("event %d: empty team id", i)
		case strings.TrimSpace(w.Material) == "":
			return nil, fmt.Errorf("event %d: empty material", i)
		case w.Pontos <= 0:
			return nil, fmt.Errorf("event %d: non-positive points %d", i, w.Pontos)
		}
		ts, err := time.Parse(time.RFC3339Nano, w.Data)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events[i] = model.RecyclingEvent{
			TeamID:    w.TimeID,
			Material:  w.Material,
			Points:    w.Pontos,
			Timestamp: ts.UTC(),
		}
	}
	return events, nil
}

func encodeLastUpdate(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func decodeLastUpdate(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	if ms < 0 {
		return time.Time{}, fmt.Errorf("negative timestamp %d", ms)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// marshal encodes without HTML escaping so material names stay readable.
func marshal(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/detect"
	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/trip"
)

func sampleLine(t *testing.T, lat float64, speed float64, at time.Time) string {
	t.Helper()
	line, err := json.Marshal(map[string]any{
		"latitude":  lat,
		"longitude": 11.5,
		"timestamp": at.Format(time.RFC3339),
		"accuracy":  5.0,
		"speed":     speed,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(line)
}

func TestReplayDetectsTrip(t *testing.T) {
	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	// 600m straight walk at 1.5 m/s, one fix every 10 seconds.
	var lines []string
	for i := 0; i <= 40; i++ {
		lat := 48.0 + float64(i)*15/111320.0
		lines = append(lines, sampleLine(t, lat, 1.5, base.Add(time.Duration(i*10)*time.Second)))
	}

	var out bytes.Buffer
	err := replay(strings.NewReader(strings.Join(lines, "\n")), &out, "replay", detect.DefaultConfig())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	var result struct {
		Trip       trip.Summary `json:"trip"`
		Meaningful bool         `json:"meaningful"`
	}
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	if !result.Meaningful {
		t.Fatalf("expected meaningful trip")
	}
	if result.Trip.DistanceM < 480 || result.Trip.DistanceM > 540 {
		t.Fatalf("unexpected distance: %v", result.Trip.DistanceM)
	}
	if result.Trip.StartedBy != "auto" {
		t.Fatalf("expected auto start")
	}
}

func TestReplayRejectsMalformedLine(t *testing.T) {
	var out bytes.Buffer
	err := replay(strings.NewReader("{not json}"), &out, "replay", detect.DefaultConfig())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("error should name the line: %v", err)
	}
}

func TestReplayStationaryInputProducesNoTrip(t *testing.T) {
	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, sampleLine(t, 48.0, 0, base.Add(time.Duration(i)*time.Second)))
	}

	var out bytes.Buffer
	if err := replay(strings.NewReader(strings.Join(lines, "\n")), &out, "replay", detect.DefaultConfig()); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %s", out.String())
	}
}

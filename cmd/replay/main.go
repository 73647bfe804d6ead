// Command replay runs recorded sensor samples through the detection engine
// offline. Input is one JSON sensor payload per line, in the same shape the
// ingest endpoint accepts; detected trips are printed as JSON lines.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/detect"
	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/tracking"
	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/trip"
)

func main() {
	input := flag.String("input", "", "sample file, one JSON sensor payload per line (default stdin)")
	user := flag.String("user", "replay", "user id to attribute trips to")
	flag.Parse()

	in := io.Reader(os.Stdin)
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open input: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	if err := replay(in, os.Stdout, *user, detect.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}
}

type printingRecorder struct {
	enc *json.Encoder
}

func (r *printingRecorder) RecordBatch(trip.Summary, []trip.Point) {}

func (r *printingRecorder) TripFinished(summary trip.Summary, _ []trip.Point, meaningful bool) {
	_ = r.enc.Encode(map[string]any{
		"trip":       summary,
		"meaningful": meaningful,
	})
}

func replay(in io.Reader, out io.Writer, userID string, cfg detect.Config) error {
	rec := &printingRecorder{enc: json.NewEncoder(out)}
	machine := detect.NewMachine(userID, detect.NewStore(cfg), rec, zap.NewNop())

	// Replayed trips end at the last sample's timestamp, not at wall time.
	var lastTS time.Time
	machine.SetNow(func() time.Time { return lastTS })
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var req tracking.SensorRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		tick := req.ToInput(lastTS)
		machine.ProcessInput(tick)
		lastTS = tick.Position.Timestamp
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// Flush a trip still active at end of input.
	if st := machine.Snapshot(); st.State == detect.StateActive {
		machine.Stop()
	}
	return nil
}

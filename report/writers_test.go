package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/tgoetz/fitmonitor/decode"
	"github.com/tgoetz/fitmonitor/monitor"
)

func TestWriteMessagesJSONL(t *testing.T) {
	msgs := []decode.DataMessage{
		{Name: "record", Fields: map[string]decode.FieldValue{
			"heart_rate": {Name: "heart_rate", Value: uint8(135)},
		}},
		{Name: "event", Fields: map[string]decode.FieldValue{
			"event": {Name: "event", Value: uint8(0)},
		}},
	}
	var buf bytes.Buffer
	if err := WriteMessagesJSONL(&buf, msgs); err != nil {
		t.Fatalf("WriteMessagesJSONL error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
}

func TestWriteDayStatsJSON(t *testing.T) {
	day := &monitor.DayStats{Day: "2026-01-01", Fields: map[string]*monitor.FieldStats{
		"running_steps": {Mode: monitor.CumulativeStatsMode, Count: 3, Max: 500},
	}}
	var buf bytes.Buffer
	if err := WriteDayStatsJSON(&buf, []*monitor.DayStats{day}); err != nil {
		t.Fatalf("WriteDayStatsJSON error: %v", err)
	}
	if !strings.Contains(buf.String(), "2026-01-01") {
		t.Fatalf("expected day in output: %s", buf.String())
	}
}

func TestWriteCanonicalSamplesCSV(t *testing.T) {
	hr := 140
	dist := 1234.5
	samples := []Sample{
		{Timestamp: "2026-01-01T00:00:00Z", HeartRate: &hr, Distance: &dist},
		{Timestamp: "2026-01-01T00:00:01Z"},
	}
	var buf bytes.Buffer
	if err := WriteCanonicalSamplesCSV(&buf, samples); err != nil {
		t.Fatalf("WriteCanonicalSamplesCSV error: %v", err)
	}
	r := csv.NewReader(strings.NewReader(buf.String()))
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	if len(rows) != 3 { // header + 2 rows
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[1][3] != "140" {
		t.Fatalf("expected heart_rate column '140', got %q", rows[1][3])
	}
	if rows[2][1] != "" {
		t.Fatalf("expected empty distance for second row, got %q", rows[2][1])
	}
}

func TestSamplesFromMessages(t *testing.T) {
	d := 10.5
	msgs := []decode.DataMessage{
		{Name: "record", Fields: map[string]decode.FieldValue{
			"distance": {Name: "distance", Value: d},
		}},
		{Name: "event", Fields: map[string]decode.FieldValue{}},
	}
	samples := SamplesFromMessages(msgs)
	if len(samples) != 1 {
		t.Fatalf("expected 1 sample (non-record messages excluded), got %d", len(samples))
	}
	if samples[0].Distance == nil || *samples[0].Distance != d {
		t.Fatalf("unexpected distance: %v", samples[0].Distance)
	}
}

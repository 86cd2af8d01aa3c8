// Package report renders the decoder/aggregator's two output interfaces
// (SPEC_FULL.md §4.L, §4.N) to JSON Lines, JSON, and CSV. None of the
// decoding or aggregation logic lives here — these are thin, streaming
// consumers of decode.DataMessage and monitor.DayStats.
package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/tgoetz/fitmonitor/decode"
	"github.com/tgoetz/fitmonitor/monitor"
)

// messageLine is the JSONL row shape for one decoded message.
type messageLine struct {
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields"`
}

// WriteMessagesJSONL streams one JSON object per decoded message, in
// order, one per line. Grounded on the teacher's records.jsonl export:
// buffered writer plus a single json.Encoder with HTML escaping disabled
// so field names/strings containing "<", ">", "&" round-trip unescaped.
func WriteMessagesJSONL(w io.Writer, msgs []decode.DataMessage) error {
	bw := bufio.NewWriterSize(w, 64*1024)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, m := range msgs {
		fields := make(map[string]any, len(m.Fields))
		for name, fv := range m.Fields {
			fields[name] = fv.Value
		}
		if err := enc.Encode(messageLine{Message: m.Name, Fields: fields}); err != nil {
			return fmt.Errorf("report: encoding message %s: %w", m.Name, err)
		}
	}
	return bw.Flush()
}

// dayStatsDoc is the JSON shape written by WriteDayStatsJSON.
type dayStatsDoc struct {
	Day    string                 `json:"day"`
	Fields map[string]monitor.View `json:"fields"`
}

// WriteDayStatsJSON writes the aggregator's per-day statistics as an
// indented JSON array, one entry per day in the order given (Aggregator.Days
// returns them sorted by day).
func WriteDayStatsJSON(w io.Writer, days []*monitor.DayStats) error {
	docs := make([]dayStatsDoc, 0, len(days))
	for _, d := range days {
		docs = append(docs, dayStatsDoc{Day: d.Day, Fields: d.Views()})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("report: encoding day stats: %w", err)
	}
	return nil
}

// Sample is one canonical row derived from a "record" message, used by
// both the CSV and Parquet writers.
type Sample struct {
	Timestamp string
	Distance  *float64
	Speed     *float64
	HeartRate *int
	Altitude  *float64
	Power     *int
}

// SamplesFromMessages projects the "record" messages in msgs into
// canonical Samples, in order.
func SamplesFromMessages(msgs []decode.DataMessage) []Sample {
	var out []Sample
	for _, m := range msgs {
		if m.Name != "record" {
			continue
		}
		s := Sample{}
		if fv, ok := m.Fields["timestamp"]; ok {
			s.Timestamp = fmt.Sprint(fv.Value)
		}
		if fv, ok := m.Fields["distance"]; ok && !fv.Invalid {
			if f, ok := fv.Value.(float64); ok {
				s.Distance = &f
			}
		}
		if fv, ok := m.Fields["speed"]; ok && !fv.Invalid {
			if f, ok := fv.Value.(float64); ok {
				s.Speed = &f
			}
		}
		if fv, ok := m.Fields["altitude"]; ok && !fv.Invalid {
			if f, ok := fv.Value.(float64); ok {
				s.Altitude = &f
			}
		}
		if fv, ok := m.Fields["heart_rate"]; ok && !fv.Invalid {
			if v, ok := fv.Value.(uint8); ok {
				n := int(v)
				s.HeartRate = &n
			}
		}
		if fv, ok := m.Fields["power"]; ok && !fv.Invalid {
			if v, ok := fv.Value.(uint16); ok {
				n := int(v)
				s.Power = &n
			}
		}
		out = append(out, s)
	}
	return out
}

// WriteCanonicalSamplesCSV writes the flat-columns CSV rendering of a
// sample set. This is the plain columnar export named in SPEC_FULL.md
// §4.N, not the spreadsheet/highlight writer the spec's Non-goals
// exclude — no styling, formulas, or zone shading.
func WriteCanonicalSamplesCSV(w io.Writer, samples []Sample) error {
	cw := csv.NewWriter(w)
	header := []string{"timestamp", "distance_m", "speed_mps", "heart_rate", "altitude_m", "power_w"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("report: writing csv header: %w", err)
	}
	for _, s := range samples {
		row := []string{
			s.Timestamp,
			formatFloatPtr(s.Distance),
			formatFloatPtr(s.Speed),
			formatIntPtr(s.HeartRate),
			formatFloatPtr(s.Altitude),
			formatIntPtr(s.Power),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.3f", *v)
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

// FieldColumnOrder returns a stable column order for ad hoc field
// rendering (e.g. a future spreadsheet writer), sorted alphabetically.
func FieldColumnOrder(days []*monitor.DayStats) []string {
	names := monitor.FieldNames(days)
	sort.Strings(names)
	return names
}

package monitor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tgoetz/fitmonitor/decode"
)

// DayStats holds every field's accumulated statistics for one calendar
// day, keyed by the decoder's field name (post activity-type rewrite).
type DayStats struct {
	Day    string // YYYY-MM-DD, the UTC calendar day of the message timestamps
	Fields map[string]*FieldStats
}

func newDayStats(day string) *DayStats {
	return &DayStats{Day: day, Fields: make(map[string]*FieldStats)}
}

func (d *DayStats) accumulate(name string, value float64) {
	fs, ok := d.Fields[name]
	if !ok {
		fs = &FieldStats{Mode: modeForField(name)}
		d.Fields[name] = fs
	}
	fs.Accumulate(value)
}

// addDerivedStats computes day-level aggregates that don't come directly
// off a single field: total_steps sums the Max (i.e. the day's running
// total) of every activity-keyed steps field, and total_floors does the
// same for the ascent/floors field, mirroring the source monitoring
// decoder's day-summary pass.
func (d *DayStats) addDerivedStats() {
	var steps, floors float64
	var haveSteps, haveFloors bool
	for name, fs := range d.Fields {
		if strings.HasSuffix(name, "_steps") {
			steps += fs.Max
			haveSteps = true
		}
		if name == "ascent" {
			floors += fs.Max
			haveFloors = true
		}
	}
	if haveSteps {
		d.Fields["total_steps"] = &FieldStats{Mode: CumulativeStatsMode, Count: 1, Max: steps}
	}
	if haveFloors {
		d.Fields["total_floors"] = &FieldStats{Mode: CumulativeStatsMode, Count: 1, Max: floors}
	}
}

// Views projects every field in the day bucket into its read-only View,
// keyed by field name.
func (d *DayStats) Views() map[string]View {
	out := make(map[string]View, len(d.Fields))
	for name, fs := range d.Fields {
		out[name] = fs.Get()
	}
	return out
}

// deviceDayKey identifies one (day, device) bucket.
type deviceDayKey struct {
	day    string
	device uint32
}

// Aggregator is the streaming statistics aggregator (component K):
// consume decoded monitoring messages one at a time via Add, then read
// the accumulated per-day (optionally per-device) statistics.
//
// Aggregator tracks its own "current device" state from device_info
// messages in the stream, rather than requiring the decode package to
// know about bucketing — the decoder's job stops at producing a typed
// message stream.
type Aggregator struct {
	buckets      map[deviceDayKey]*DayStats
	currentDevice uint32
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{buckets: make(map[deviceDayKey]*DayStats)}
}

// Add feeds one decoded message into the aggregator. device_info messages
// update which device subsequent monitoring messages are attributed to;
// monitoring messages update the day bucket for the message's timestamp
// and the currently-tracked device.
func (a *Aggregator) Add(msg decode.DataMessage) {
	if msg.Name == "device_info" {
		if fv, ok := msg.Fields["serial_number"]; ok {
			if v, ok := toUint32(fv.Value); ok {
				a.currentDevice = v
			}
		}
		return
	}
	if msg.GlobalMessageNum != 55 { // monitoring
		return
	}

	ts, ok := messageTimestamp(msg)
	if !ok {
		return
	}
	day := ts.UTC().Format("2006-01-02")
	key := deviceDayKey{day: day, device: a.currentDevice}
	bucket, ok := a.buckets[key]
	if !ok {
		bucket = newDayStats(day)
		a.buckets[key] = bucket
	}

	for name, fv := range msg.Fields {
		if name == "timestamp" || name == "timestamp_16" || fv.Invalid {
			continue
		}
		if f, ok := toFloat(fv.Value); ok {
			bucket.accumulate(name, f)
		}
	}
}

func messageTimestamp(msg decode.DataMessage) (time.Time, bool) {
	fv, ok := msg.Fields["timestamp"]
	if !ok {
		return time.Time{}, false
	}
	t, ok := fv.Value.(time.Time)
	return t, ok
}

// Days returns every day bucket the aggregator has accumulated, merged
// across devices, with derived stats (total_steps, total_floors) applied.
// The result is sorted by day. Per-device buckets are folded with
// mergeAcrossDevices, not merge: two devices' readings for the same day
// are independent observations, not two halves of one recording, so the
// combined value is always the pointwise max, never a sum (see
// FieldStats.mergeAcrossDevices).
func (a *Aggregator) Days() []*DayStats {
	merged := make(map[string]*DayStats)
	var days []string
	for key, bucket := range a.buckets {
		out, ok := merged[key.day]
		if !ok {
			out = newDayStats(key.day)
			merged[key.day] = out
			days = append(days, key.day)
		}
		for name, fs := range bucket.Fields {
			existing, ok := out.Fields[name]
			if !ok {
				out.Fields[name] = &FieldStats{Mode: fs.Mode, Count: fs.Count, Min: fs.Min, Max: fs.Max, Sum: fs.Sum}
				continue
			}
			*existing = existing.mergeAcrossDevices(*fs)
		}
	}
	sort.Strings(days)
	result := make([]*DayStats, 0, len(days))
	for _, day := range days {
		d := merged[day]
		d.addDerivedStats()
		result = append(result, d)
	}
	return result
}

// Merge combines two Aggregators into a new one, associatively and
// commutatively: Merge(a, b) and Merge(b, a) produce the same day/device
// buckets, and Merge(Merge(a, b), c) equals Merge(a, Merge(b, c)). This is
// the hook that lets a caller parse files in parallel and combine results
// (see SPEC_FULL.md §5).
func Merge(a, b *Aggregator) *Aggregator {
	out := NewAggregator()
	for key, bucket := range a.buckets {
		out.buckets[key] = cloneDayStats(bucket)
	}
	for key, bucket := range b.buckets {
		existing, ok := out.buckets[key]
		if !ok {
			out.buckets[key] = cloneDayStats(bucket)
			continue
		}
		for name, fs := range bucket.Fields {
			cur, ok := existing.Fields[name]
			if !ok {
				existing.Fields[name] = cloneFieldStats(fs)
				continue
			}
			*cur = cur.merge(*fs)
		}
	}
	return out
}

func cloneDayStats(d *DayStats) *DayStats {
	out := newDayStats(d.Day)
	for name, fs := range d.Fields {
		out.Fields[name] = cloneFieldStats(fs)
	}
	return out
}

func cloneFieldStats(fs *FieldStats) *FieldStats {
	clone := *fs
	return &clone
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}

func toUint32(v any) (uint32, bool) {
	f, ok := toFloat(v)
	if !ok {
		return 0, false
	}
	return uint32(f), true
}

// FieldNames returns the sorted field names present across a set of day
// buckets, useful for building a stable column order in output writers.
func FieldNames(days []*DayStats) []string {
	seen := make(map[string]bool)
	for _, d := range days {
		for name := range d.Fields {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String renders a compact summary line for a day bucket, for quick
// human-readable output.
func (d *DayStats) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:", d.Day)
	names := make([]string, 0, len(d.Fields))
	for name := range d.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := d.Fields[name].Get()
		fmt.Fprintf(&sb, " %s=%.1f", name, v.Total+v.Avg+v.Max)
	}
	return sb.String()
}

package monitor

import (
	"testing"
	"time"

	"github.com/tgoetz/fitmonitor/decode"
)

func monitoringMessage(ts time.Time, fields map[string]decode.FieldValue) decode.DataMessage {
	f := make(map[string]decode.FieldValue, len(fields)+1)
	for k, v := range fields {
		f[k] = v
	}
	f["timestamp"] = decode.FieldValue{Name: "timestamp", Value: ts}
	return decode.DataMessage{GlobalMessageNum: 55, Name: "monitoring", Fields: f}
}

func TestAggregatorBucketsByDay(t *testing.T) {
	agg := NewAggregator()
	day1 := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)

	agg.Add(monitoringMessage(day1, map[string]decode.FieldValue{
		"running_steps": {Name: "running_steps", Value: uint32(100)},
	}))
	agg.Add(monitoringMessage(day1, map[string]decode.FieldValue{
		"running_steps": {Name: "running_steps", Value: uint32(250)},
	}))
	agg.Add(monitoringMessage(day2, map[string]decode.FieldValue{
		"running_steps": {Name: "running_steps", Value: uint32(50)},
	}))

	days := agg.Days()
	if len(days) != 2 {
		t.Fatalf("expected 2 day buckets, got %d", len(days))
	}
	if days[0].Day != "2026-01-01" || days[1].Day != "2026-01-02" {
		t.Fatalf("days not sorted/labeled correctly: %v %v", days[0].Day, days[1].Day)
	}
	got := days[0].Fields["running_steps"].Get()
	if got.Max != 250 {
		t.Fatalf("expected max 250 (cumulative daily total), got %v", got.Max)
	}
}

func TestDerivedTotalSteps(t *testing.T) {
	agg := NewAggregator()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agg.Add(monitoringMessage(ts, map[string]decode.FieldValue{
		"walking_steps": {Name: "walking_steps", Value: uint32(1000)},
	}))
	agg.Add(monitoringMessage(ts, map[string]decode.FieldValue{
		"running_steps": {Name: "running_steps", Value: uint32(500)},
	}))

	days := agg.Days()
	if len(days) != 1 {
		t.Fatalf("expected 1 day, got %d", len(days))
	}
	total, ok := days[0].Fields["total_steps"]
	if !ok {
		t.Fatal("expected total_steps derived field")
	}
	if total.Max != 1500 {
		t.Fatalf("expected total_steps 1500, got %v", total.Max)
	}
}

func TestDeviceInfoSwitchesCurrentDevice(t *testing.T) {
	agg := NewAggregator()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	agg.Add(decode.DataMessage{
		Name: "device_info",
		Fields: map[string]decode.FieldValue{
			"serial_number": {Name: "serial_number", Value: uint32(42)},
		},
	})
	agg.Add(monitoringMessage(ts, map[string]decode.FieldValue{
		"running_steps": {Name: "running_steps", Value: uint32(10)},
	}))

	if agg.currentDevice != 42 {
		t.Fatalf("expected currentDevice 42, got %d", agg.currentDevice)
	}
	if len(agg.buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(agg.buckets))
	}
	for key := range agg.buckets {
		if key.device != 42 {
			t.Fatalf("expected bucket keyed to device 42, got %d", key.device)
		}
	}
}

func TestMergeIsCommutative(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewAggregator()
	a.Add(monitoringMessage(ts, map[string]decode.FieldValue{
		"running_steps": {Name: "running_steps", Value: uint32(100)},
	}))
	b := NewAggregator()
	b.Add(monitoringMessage(ts, map[string]decode.FieldValue{
		"running_steps": {Name: "running_steps", Value: uint32(300)},
	}))

	ab := Merge(a, b)
	ba := Merge(b, a)

	abDays := ab.Days()
	baDays := ba.Days()
	if len(abDays) != 1 || len(baDays) != 1 {
		t.Fatalf("expected 1 day bucket each, got %d and %d", len(abDays), len(baDays))
	}
	if abDays[0].Fields["running_steps"].Get().Max != baDays[0].Fields["running_steps"].Get().Max {
		t.Fatalf("merge is not commutative: %v vs %v",
			abDays[0].Fields["running_steps"].Get(), baDays[0].Fields["running_steps"].Get())
	}
	if abDays[0].Fields["running_steps"].Get().Max != 400 {
		t.Fatalf("expected merged count 400, got %v", abDays[0].Fields["running_steps"].Get())
	}
}

func TestDaysAcrossDevicesTakesMaxNotSum(t *testing.T) {
	agg := NewAggregator()
	ts := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	agg.Add(decode.DataMessage{
		Name:   "device_info",
		Fields: map[string]decode.FieldValue{"serial_number": {Name: "serial_number", Value: uint32(1)}},
	})
	agg.Add(monitoringMessage(ts, map[string]decode.FieldValue{
		"running_steps": {Name: "running_steps", Value: uint32(4000)},
	}))

	agg.Add(decode.DataMessage{
		Name:   "device_info",
		Fields: map[string]decode.FieldValue{"serial_number": {Name: "serial_number", Value: uint32(2)}},
	})
	agg.Add(monitoringMessage(ts, map[string]decode.FieldValue{
		"running_steps": {Name: "running_steps", Value: uint32(9000)},
	}))

	days := agg.Days()
	if len(days) != 1 {
		t.Fatalf("expected 1 day, got %d", len(days))
	}
	// Two distinct devices observed the same day: §4.K calls for the
	// pointwise max across devices, not a sum, unlike Merge's same-device
	// fold (TestMergeIsCommutative).
	got := days[0].Fields["running_steps"].Get().Max
	if got != 9000 {
		t.Fatalf("expected cross-device max 9000, got %v", got)
	}
}

func TestFieldStatsZeroDoesNotLowerMin(t *testing.T) {
	var fs FieldStats
	fs.Mode = DefaultStatsMode
	fs.Accumulate(10)
	fs.Accumulate(0)
	fs.Accumulate(5)
	if fs.Min != 5 {
		t.Fatalf("expected min 5 (zero should not count), got %v", fs.Min)
	}
}

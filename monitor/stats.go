// Package monitor aggregates a decoded FIT monitoring message stream into
// per-day, per-device field statistics, mirroring the day-bucketed
// accumulation a Garmin monitoring file's consumer performs.
package monitor

import "strings"

// StatsMode is a bitmask selecting which summary values a FieldStats
// projection reports. Distinct fields carry different modes because not
// every aggregate is meaningful for every field: a step count wants its
// cumulative daily total, a heart rate wants min/max/avg, and so on.
type StatsMode uint8

const (
	ModeMin StatsMode = 1 << iota
	ModeMax
	ModeAvg
	ModeTotal
	ModeCumulative
)

// DefaultStatsMode covers the common case (min/max/avg/total) for a
// numeric field whose readings are instantaneous samples rather than a
// running daily total.
const DefaultStatsMode = ModeMin | ModeMax | ModeAvg | ModeTotal

// CumulativeStatsMode is used for fields like "cycles"-derived step/stroke
// counts, whose raw value is already a running total for the day: the
// field's Max *is* the day's total, and Min/Avg are not meaningful.
const CumulativeStatsMode = ModeCumulative | ModeMax

// FieldStats is a streaming {count, min, max, sum} accumulator for one
// field within one day/device bucket.
type FieldStats struct {
	Mode  StatsMode
	Count int
	Min   float64
	Max   float64
	Sum   float64
}

// Accumulate folds one more observed value into the running statistics.
// Matching the source monitoring decoder this is grounded on, a zero
// value never lowers Min — zero commonly means "no reading yet" for a
// cumulative counter field, not a genuine minimum.
func (s *FieldStats) Accumulate(value float64) {
	s.Count++
	s.Sum += value
	if s.Count == 1 {
		s.Max = value
		if value != 0 {
			s.Min = value
		}
		return
	}
	if value > s.Max {
		s.Max = value
	}
	if value != 0 && (s.Min == 0 || value < s.Min) {
		s.Min = value
	}
}

// Avg is the mean of all accumulated values, or 0 if none were recorded.
func (s FieldStats) Avg() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// View is the read-only projection of a FieldStats honoring its Mode: only
// the fields whose mode bit is set are populated, matching the source
// stats-mode convention of suppressing aggregates that don't apply to a
// given field.
type View struct {
	Count int     `json:"count"`
	Min   float64 `json:"min,omitempty"`
	Max   float64 `json:"max,omitempty"`
	Avg   float64 `json:"avg,omitempty"`
	Total float64 `json:"total,omitempty"`
}

// Get projects the accumulator into a View according to its Mode. Unlike
// the monitoring decoder this is grounded on, Get does not reset the
// accumulator: callers that aggregate once per day and read the result
// once don't need the reset, and a non-mutating getter is easier to reason
// about when an Aggregator is merged or read concurrently.
func (s FieldStats) Get() View {
	v := View{Count: s.Count}
	if s.Mode&ModeMin != 0 {
		v.Min = s.Min
	}
	if s.Mode&ModeMax != 0 {
		v.Max = s.Max
	}
	if s.Mode&ModeAvg != 0 {
		v.Avg = s.Avg()
	}
	if s.Mode&(ModeTotal|ModeCumulative) != 0 {
		if s.Mode&ModeCumulative != 0 {
			v.Total = s.Max
		} else {
			v.Total = s.Sum
		}
	}
	return v
}

// merge combines two accumulators for the *same* (day, device) bucket, as
// when two files recorded by one device for the same day are combined
// (the Aggregator-level Merge hook). A cumulative-mode field (a running
// daily total, like a step count) gets its Max values summed — each
// file covers a different part of the day's recording, so the combined
// total is their sum. A non-cumulative field's Max/Min instead widen to
// cover both inputs' observed range, since they describe instantaneous
// samples rather than a running total.
func (s FieldStats) merge(other FieldStats) FieldStats {
	if s.Count == 0 {
		return other
	}
	if other.Count == 0 {
		return s
	}
	out := FieldStats{Mode: s.Mode, Count: s.Count + other.Count, Sum: s.Sum + other.Sum}
	if s.Mode&ModeCumulative != 0 {
		out.Max = s.Max + other.Max
	} else {
		out.Max = s.Max
		if other.Max > out.Max {
			out.Max = other.Max
		}
	}
	out.Min = s.Min
	if other.Min != 0 && (out.Min == 0 || other.Min < out.Min) {
		out.Min = other.Min
	}
	return out
}

// mergeAcrossDevices combines two accumulators for the *same day, across
// distinct devices* — the fold Days() performs when collapsing its
// per-device buckets into one day-level result. Two devices' counters are
// not two halves of the same recording the way two files from one device
// are: they're independent, often overlapping, observations of the same
// day, so the combined value is the pointwise max (the more complete
// reading), never a sum, regardless of the field's cumulative mode.
func (s FieldStats) mergeAcrossDevices(other FieldStats) FieldStats {
	if s.Count == 0 {
		return other
	}
	if other.Count == 0 {
		return s
	}
	out := FieldStats{Mode: s.Mode, Count: s.Count + other.Count, Sum: s.Sum + other.Sum}
	out.Max = s.Max
	if other.Max > out.Max {
		out.Max = other.Max
	}
	out.Min = s.Min
	if other.Min != 0 && (out.Min == 0 || other.Min < out.Min) {
		out.Min = other.Min
	}
	return out
}

// cumulativeFieldBases names the monitoring fields (keyed by their base
// name, before the decoder's activity-keyed rewrite appends "_<activity>")
// whose raw value is a running daily total rather than an instantaneous
// sample.
var cumulativeFieldBases = map[string]bool{
	"cum_active_time": true,
	"active_calories":  true,
	"distance":         true,
	"duration_min":     true,
	"ascent":           true,
	"descent":          true,
}

// modeForField tells Accumulate's caller which StatsMode to assign a field
// the first time it's seen.
func modeForField(name string) StatsMode {
	if isStepsField(name) {
		return CumulativeStatsMode
	}
	for base := range cumulativeFieldBases {
		if name == base || strings.HasPrefix(name, base+"_") {
			return CumulativeStatsMode
		}
	}
	return DefaultStatsMode
}

func isStepsField(name string) bool {
	for _, suffix := range []string{"_steps", "_strokes", "_cycles"} {
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			return true
		}
	}
	return false
}

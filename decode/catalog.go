package decode

import (
	"fmt"
	"strings"
	"time"

	"github.com/tormoder/fit"
)

// UnitPolicy controls metric/English unit conversion performed by the
// Field Catalog's convert step. It is an immutable value passed by the
// caller into Parse, never mutated or held as package state, so that two
// Parse calls with different policies never interfere with each other.
type UnitPolicy struct {
	English bool
}

var fitEpoch = time.Date(1989, 12, 31, 0, 0, 0, 0, time.UTC)

// fieldSemantic names a profile field, its native units, and an optional
// scale/offset conversion from its raw decoded value.
type fieldSemantic struct {
	name   string
	units  string
	scale  func(decoded any, policy UnitPolicy) (any, string, bool)
}

// reservedFields holds the profile-wide reserved field numbers (§6) that
// apply to any message unless that message's own table overrides them.
var reservedFields = map[uint8]fieldSemantic{
	250: {name: "part_index"},
	253: {name: "timestamp", units: "s_since_fit_epoch", scale: scaleTimestamp},
	254: {name: "message_index"},
}

// catalog maps global message number -> field number -> semantic. It is
// package-level but read-only after init; all per-call state (UnitPolicy)
// is threaded through explicitly rather than stored here.
var catalog = map[uint16]map[uint8]fieldSemantic{
	0: { // file_id
		0: {name: "type", scale: enumLookup(fileTypeNames)},
		1: {name: "manufacturer", scale: enumLookup(manufacturerNames)},
		2: {name: "product"}, // resolved after decode from the sibling manufacturer field, see decoder.go
		3: {name: "serial_number"},
		4: {name: "time_created", units: "s_since_fit_epoch", scale: scaleTimestamp},
		5: {name: "number"},
		8: {name: "product_name"},
	},
	3: { // user_profile
		1: {name: "gender", scale: enumLookup(genderNames)},
		3: {name: "height", units: "m", scale: scaleBy(100, 0)},
		4: {name: "weight", units: "kg", scale: scaleBy(100, 0)},
	},
	18: { // session
		2:  {name: "start_time", units: "s_since_fit_epoch", scale: scaleTimestamp},
		7:  {name: "total_elapsed_time", units: "s", scale: scaleBy(1000, 0)},
		8:  {name: "total_timer_time", units: "s", scale: scaleBy(1000, 0)},
		9:  {name: "total_distance", units: "m", scale: scaleDistance(100)},
		12: {name: "sport", scale: enumLookup(sportNames)},
		13: {name: "sub_sport", scale: enumLookup(subSportNames)},
		14: {name: "avg_speed", units: "m/s", scale: scaleSpeed(1000)},
		15: {name: "max_speed", units: "m/s", scale: scaleSpeed(1000)},
		16: {name: "avg_heart_rate", units: "bpm"},
		17: {name: "max_heart_rate", units: "bpm"},
		18: {name: "avg_cadence", units: "rpm"},
		19: {name: "max_cadence", units: "rpm"},
		24: {name: "total_calories", units: "kcal"},
		28: {name: "trigger", scale: enumLookup(sessionTriggerNames)},
	},
	19: { // lap
		2:  {name: "start_time", units: "s_since_fit_epoch", scale: scaleTimestamp},
		7:  {name: "total_elapsed_time", units: "s", scale: scaleBy(1000, 0)},
		8:  {name: "total_timer_time", units: "s", scale: scaleBy(1000, 0)},
		9:  {name: "total_distance", units: "m", scale: scaleDistance(100)},
		24: {name: "lap_trigger", scale: enumLookup(lapTriggerNames)},
	},
	20: { // record
		0: {name: "position_lat", units: "deg", scale: scalePosition},
		1: {name: "position_long", units: "deg", scale: scalePosition},
		2: {name: "altitude", units: "m", scale: scaleAltitude(5, 500)},
		3: {name: "heart_rate", units: "bpm"},
		4: {name: "cadence", units: "rpm"},
		5: {name: "distance", units: "m", scale: scaleDistance(100)},
		6: {name: "speed", units: "m/s", scale: scaleSpeed(1000)},
		7: {name: "power", units: "w"},
	},
	21: { // event
		0: {name: "event", scale: enumLookup(eventNames)},
		1: {name: "event_type", scale: enumLookup(eventTypeNames)},
		2: {name: "data16"},
		3: {name: "data"},
		4: {name: "event_group"},
	},
	23: { // device_info
		0:  {name: "device_index"},
		1:  {name: "device_type"},
		2:  {name: "manufacturer", scale: enumLookup(manufacturerNames)},
		3:  {name: "serial_number"},
		4:  {name: "product"}, // resolved after decode from the sibling manufacturer field, see decoder.go
		5:  {name: "software_version", scale: scaleVersion},
		10: {name: "battery_voltage", units: "V", scale: scaleBatteryVoltage},
		13: {name: "battery_level", units: "%", scale: scalePercent},
		25: {name: "battery_status"},
	},
	55: { // monitoring
		0:  {name: "device_index"},
		3:  {name: "cycles"}, // reserved: subject to the activity-type rewrite, see rewriteMonitoringFields
		4:  {name: "active_time", units: "s"},
		5:  {name: "activity_type"},
		19: {name: "active_calories", units: "kcal"},
		24: {name: "current_activity_type_intensity"},
		26: {name: "timestamp_16"},
		27: {name: "heart_rate", units: "bpm"},
		28: {name: "distance", units: "m", scale: scaleDistance(100)},
		29: {name: "duration_min", units: "min"},
		31: {name: "ascent", units: "m", scale: scaleDistance(1000)},
		32: {name: "descent", units: "m", scale: scaleDistance(1000)},
		33: {name: "moderate_activity_minutes", units: "min"},
		34: {name: "vigorous_activity_minutes", units: "min"},
		36: {name: "cum_active_time", units: "s"},
		39: {name: "active_time_min", units: "min"},
	},
	103: { // monitoring_info
		0: {name: "local_timestamp", units: "s_since_fit_epoch", scale: scaleTimestamp},
		1: {name: "activity_type"},
		3: {name: "cycles_to_distance", scale: scaleBy(5000, 0)},
		4: {name: "cycles_to_calories", scale: scaleBy(5000, 0)},
		5: {name: "resting_metabolic_rate", units: "kcal"},
	},
}

// activityTypeNames mirrors the FIT profile's activity_type enum, the same
// table the monitoring rewrite rule (§4) consults to build field names
// like "running_steps".
var activityTypeNames = map[uint8]string{
	0: "generic", 1: "running", 2: "cycling", 3: "transition",
	4: "fitness_equipment", 5: "swimming", 6: "walking", 7: "sedentary",
	8: "stop_disable", 245: "all",
}

func activityTypeName(v uint8) (string, bool) {
	name, ok := activityTypeNames[v]
	return name, ok
}

// fileTypeNames mirrors FileField.file_types.
var fileTypeNames = map[uint64]string{
	1: "device", 2: "settings", 3: "sport", 4: "activity", 5: "workout",
	6: "course", 7: "schedules", 9: "weight", 10: "totals", 11: "goals",
	14: "blood_pressure", 15: "monitoring_a", 20: "activity_summary",
	28: "monitoring_daily", 32: "monitoring_b", 34: "segment",
	35: "segment_list", 40: "exd_configuration",
}

// manufacturerNames mirrors ManufacturerField.manufacturer.
var manufacturerNames = map[uint64]string{1: "garmin", 15: "dynastream"}

// productNamesByManufacturer resolves ProductField.product's cyclic
// dependency on the manufacturer value: the same numeric product ID means
// a different device depending on which manufacturer assigned it, so the
// product table is keyed by manufacturer name, not flat.
var productNamesByManufacturer = map[string]map[uint64]string{
	"garmin": {1: "hrm1", 2337: "vivoactive_hr"},
}

// genderNames mirrors GenderField.gender.
var genderNames = map[uint64]string{0: "female", 1: "male"}

// sportNames mirrors SportField.type.
var sportNames = map[uint64]string{
	0: "generic", 1: "running", 2: "cycling", 3: "transition", 4: "fitness_equipment", 5: "swimming",
	6: "basketball", 7: "soccer", 8: "tennis", 9: "american_football", 10: "training", 11: "walking",
	12: "cross_country_skiing", 13: "alpine_skiing", 14: "snowboarding", 15: "rowing", 16: "mountaineering", 17: "hiking",
	18: "multisport", 19: "paddling", 20: "flying", 21: "e_biking", 22: "motorcycling", 23: "boating", 24: "driving",
	25: "golf", 26: "hang_gliding", 27: "horseback_riding", 28: "hunting", 29: "fishing", 30: "inline_skating", 31: "rock_climbing",
	32: "sailing", 33: "ice_skating", 34: "sky_diving", 35: "snowshoeing", 36: "snowmobiling", 37: "stand_up_paddleboarding", 38: "surfing",
	39: "wakeboarding", 40: "water_skiing", 41: "kayaking", 42: "rafting", 43: "windsurfing", 44: "kitesurfing", 45: "tactical",
	46: "jumpmaster", 47: "boxing", 48: "floor_climbing",
}

// subSportNames mirrors SubSportField.type (the subset this catalog has a
// use for; the FIT profile's table is much larger).
var subSportNames = map[uint64]string{
	0: "generic", 1: "treadmill", 2: "street", 3: "trail", 4: "track", 5: "spin",
	6: "indoor_cycling", 7: "road", 8: "mountain", 9: "downhill", 10: "recumbent", 11: "cyclocross",
	12: "hand_cycling", 13: "track_cycling", 14: "indoor_rowing", 15: "elliptical", 16: "stair_climbing", 17: "lap_swimming",
	18: "open_water", 254: "all",
}

// eventNames mirrors EventField.event.
var eventNames = map[uint64]string{
	0: "timer", 3: "workout", 4: "workout_step", 5: "power_down", 6: "power_up", 7: "off_course", 8: "session",
	9: "lap", 10: "course_point", 11: "battery", 12: "virtual_partner_pace", 13: "hr_high_alert", 14: "hr_low_alert",
	15: "speed_high_alert", 16: "speed_low_alert", 17: "cad_high_alert", 18: "cad_low_alert", 19: "power_high_alert",
	20: "power_low_alert", 21: "recovery_hr", 22: "battery_low", 23: "time_duration_alert", 24: "distance_duration_alert",
	25: "calorie_duration_alert", 26: "activity", 27: "fitness_equipment", 28: "length", 32: "user_marker",
	33: "sport_point", 36: "calibration", 42: "front_gear_change", 43: "rear_gear_change",
	44: "rider_position_change", 45: "elev_high_alert", 46: "elev_low_alert", 47: "comm_timeout",
}

// eventTypeNames mirrors EventTypeField.type.
var eventTypeNames = map[uint64]string{
	0: "start", 1: "stop", 2: "consecutive_depreciated", 3: "marker", 4: "stop_all", 5: "begin_depreciated",
	6: "end_depreciated", 7: "end_all_depreciated", 8: "stop_disable", 9: "stop_disable_all",
}

// lapTriggerNames mirrors LapTriggerField.type.
var lapTriggerNames = map[uint64]string{
	0: "manual", 1: "time", 2: "distance", 3: "position_start", 4: "position_lap", 5: "position_waypoint",
	6: "position_marked", 7: "session_end", 8: "fitness_equipment",
}

// sessionTriggerNames mirrors SessionTriggerField.type.
var sessionTriggerNames = map[uint64]string{
	0: "activity_end", 1: "manual", 2: "auto_multi_sport", 3: "fitness_equipment",
}

// manufacturerName resolves a raw manufacturer value decoded from a
// message, used as the first phase of the product field's cyclic lookup
// (the manufacturer field's own scale reads the same table through
// enumLookup).
func manufacturerName(raw uint64) (string, bool) {
	name, ok := manufacturerNames[raw]
	return name, ok
}

// productName resolves a raw product value given the manufacturer value
// decoded earlier in the same message, per §9's two-phase cyclic lookup:
// the product ID's meaning depends on which manufacturer assigned it.
func productName(manufacturerRaw uint64, productRaw uint64, haveManufacturer bool) (string, bool) {
	if !haveManufacturer {
		return "", false
	}
	mfg, ok := manufacturerName(manufacturerRaw)
	if !ok {
		return "", false
	}
	table, ok := productNamesByManufacturer[mfg]
	if !ok {
		return "", false
	}
	name, ok := table[productRaw]
	return name, ok
}

// fieldSemanticFor resolves the catalog entry for a field, preferring a
// message-specific override over the reserved-field overlay.
func fieldSemanticFor(global uint16, field uint8) (fieldSemantic, bool) {
	if m, ok := catalog[global]; ok {
		if s, ok := m[field]; ok {
			return s, true
		}
	}
	if s, ok := reservedFields[field]; ok {
		return s, true
	}
	return fieldSemantic{}, false
}

func fallbackFieldName(field uint8) string {
	return fmt.Sprintf("field_%d", field)
}

// MessageName returns the snake_case profile name for a global message
// number (e.g. "file_id", "device_info"), derived from the FIT profile's
// generated enum stringer, or "global_<n>" when the number is unknown.
func MessageName(global uint16) string {
	name := fmt.Sprint(fit.MesgNum(global))
	if strings.HasPrefix(name, "MesgNum(") {
		return fmt.Sprintf("global_%d", global)
	}
	// The stringer yields Go identifiers ("FileId", "DeviceInfo").
	name = strings.TrimPrefix(name, "MesgNum")
	var sb strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// enumLookup builds a scale function for a field whose raw integer value
// names an entry in a fixed enum table (sport, event, file type, ...).
// Unrecognized values fall through to the caller's raw-value fallback
// rather than being reported invalid, matching the source Field classes'
// try/except-to-raw-value behavior.
func enumLookup(table map[uint64]string) func(any, UnitPolicy) (any, string, bool) {
	return func(decoded any, _ UnitPolicy) (any, string, bool) {
		f, ok := toFloat(decoded)
		if !ok {
			return nil, "", false
		}
		name, ok := table[uint64(f)]
		if !ok {
			return nil, "", false
		}
		return name, "", true
	}
}

// scalePosition converts a semicircles reading (the FIT profile's native
// angular unit for position_lat/position_long) to degrees.
func scalePosition(decoded any, _ UnitPolicy) (any, string, bool) {
	f, ok := toFloat(decoded)
	if !ok {
		return nil, "", false
	}
	return f * (180.0 / 2147483648.0), "deg", true
}

func scaleVersion(decoded any, _ UnitPolicy) (any, string, bool) {
	f, ok := toFloat(decoded)
	if !ok {
		return nil, "", false
	}
	return f / 100.0, "", true
}

func scaleBatteryVoltage(decoded any, _ UnitPolicy) (any, string, bool) {
	f, ok := toFloat(decoded)
	if !ok {
		return nil, "", false
	}
	return f / 256.0, "V", true
}

func scalePercent(decoded any, _ UnitPolicy) (any, string, bool) {
	f, ok := toFloat(decoded)
	if !ok {
		return nil, "", false
	}
	return f / 100.0, "%", true
}

func scaleBy(scale, offset float64) func(any, UnitPolicy) (any, string, bool) {
	return func(decoded any, _ UnitPolicy) (any, string, bool) {
		f, ok := toFloat(decoded)
		if !ok {
			return nil, "", false
		}
		return f/scale - offset, "", true
	}
}

func scaleDistance(scale float64) func(any, UnitPolicy) (any, string, bool) {
	return scaleDistanceOffset(scale, 0)
}

func scaleAltitude(scale, offset float64) func(any, UnitPolicy) (any, string, bool) {
	return scaleDistanceOffset(scale, offset)
}

// scaleDistanceOffset converts a raw distance/altitude reading to meters,
// then to feet when the caller's UnitPolicy asks for English units.
func scaleDistanceOffset(scale, offset float64) func(any, UnitPolicy) (any, string, bool) {
	return func(decoded any, policy UnitPolicy) (any, string, bool) {
		f, ok := toFloat(decoded)
		if !ok {
			return nil, "", false
		}
		meters := f/scale - offset
		if policy.English {
			return meters * 3.28084, "ft", true
		}
		return meters, "m", true
	}
}

// scaleSpeed converts a raw speed reading to m/s, then to mph when the
// caller's UnitPolicy asks for English units.
func scaleSpeed(scale float64) func(any, UnitPolicy) (any, string, bool) {
	return func(decoded any, policy UnitPolicy) (any, string, bool) {
		f, ok := toFloat(decoded)
		if !ok {
			return nil, "", false
		}
		mps := f / scale
		if policy.English {
			return mps * 2.23694, "mph", true
		}
		return mps, "m/s", true
	}
}

func scaleTimestamp(decoded any, _ UnitPolicy) (any, string, bool) {
	var raw uint32
	switch v := decoded.(type) {
	case uint32:
		raw = v
	case uint16:
		raw = uint32(v)
	default:
		return nil, "", false
	}
	if raw == 0xFFFFFFFF {
		return nil, "", false
	}
	return fitEpoch.Add(time.Duration(raw) * time.Second).UTC(), "", true
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

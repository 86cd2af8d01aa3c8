package decode

// FieldValue is one decoded field of a DataMessage: its catalog name, the
// converted value (after any scale/offset and unit-policy conversion), the
// unscaled raw decoded value, the converted unit string (empty when the
// field carries no physical unit), and whether it matched its base type's
// invalid sentinel.
type FieldValue struct {
	Name    string
	Value   any
	Raw     any
	Units   string
	Invalid bool
}

// DataMessage is one fully decoded FIT data record: the message name (see
// MessageName, "global_<n>" when unrecognized), the global
// message number it came from, and its fields keyed by catalog name.
//
// Monitoring messages (global 55) have already had their activity-keyed
// fields rewritten and their current_activity_type_intensity byte expanded
// into separate activity_type/intensity fields by the time they reach the
// caller; see rewriteMonitoringFields.
type DataMessage struct {
	GlobalMessageNum uint16
	Name             string
	Fields           map[string]FieldValue
}

// Result is everything Parse produces: the decoded header, the ordered
// sequence of decoded data messages, and any non-fatal warnings recorded
// along the way (ErrBadGlobalMessage is never fatal; see MessageName).
type Result struct {
	Header    FileHeader
	Messages  []DataMessage
	Warnings  []error
	FileCRCOK bool
}

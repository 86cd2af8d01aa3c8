package decode

import "errors"

// Sentinel errors for the FIT decoder's error taxonomy. Callers should use
// errors.Is against these, since Parse wraps them with record-level context
// via fmt.Errorf("...: %w", ...).
var (
	// ErrBadHeader covers a malformed file header: wrong size, wrong
	// ".FIT" data type tag, or a present-but-mismatched header CRC.
	ErrBadHeader = errors.New("decode: bad file header")

	// ErrTruncated means the byte stream ended before a record, field
	// definition, or the trailing file CRC could be fully read.
	ErrTruncated = errors.New("decode: truncated record")

	// ErrDesynchronized means record parsing did not land exactly on
	// the end of the declared data section, or consumed past it.
	ErrDesynchronized = errors.New("decode: desynchronized record stream")

	// ErrUnknownLocalSlot means a data (or compressed-timestamp data)
	// record referenced a local message type with no prior definition
	// message in this stream.
	ErrUnknownLocalSlot = errors.New("decode: data record references undefined local message type")

	// ErrBadFieldDef means a definition message declared a field whose
	// base type byte and size are inconsistent (e.g. size not a
	// multiple of the base type's element size).
	ErrBadFieldDef = errors.New("decode: inconsistent field definition")

	// ErrBadGlobalMessage is reserved for global message numbers the
	// catalog cannot resolve at all; currently non-fatal (see
	// MessageName), kept as a sentinel for callers that
	// want to treat unknown messages as an error.
	ErrBadGlobalMessage = errors.New("decode: unrecognized global message number")
)

// BadEnumWarning is a non-fatal condition recorded on Result.Warnings when
// a monitoring message's activity_type carries a value the activity type
// table doesn't recognize. Decoding continues; the raw enum value is still
// reported. Other enum-typed fields with unrecognized values keep their
// raw value without recording a warning.
type BadEnumWarning struct {
	Message string
	Field   string
	Raw     uint64
}

func (w BadEnumWarning) Error() string {
	return "decode: unrecognized enum value " + w.Field
}

package decode

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/tormoder/fit/dyncrc16"
)

// buildFixture assembles a minimal FIT byte stream from raw record bytes,
// computing the real trailing file CRC the same way the FIT SDK does —
// there is no FIT encoder in this module's dependency set, so fixtures
// are built directly as bytes rather than driven through one.
func buildFixture(t *testing.T, records ...[]byte) []byte {
	t.Helper()

	var data []byte
	for _, r := range records {
		data = append(data, r...)
	}

	header := make([]byte, headerSizeNoCRC)
	header[0] = headerSizeNoCRC
	header[1] = 0x10 // protocol version
	binary.LittleEndian.PutUint16(header[2:4], 2166)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(data)))
	copy(header[8:12], ".FIT")

	out := append(append([]byte{}, header...), data...)
	crc := dyncrc16.Checksum(out)
	crcBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(crcBytes, crc)
	return append(out, crcBytes...)
}

func fieldDefBytes(fields ...FieldDefinition) []byte {
	var b []byte
	for _, f := range fields {
		b = append(b, f.FieldNumber, f.Size, byte(f.BaseType))
	}
	return b
}

func definitionRecord(local uint8, global uint16, fields ...FieldDefinition) []byte {
	b := []byte{mesgDefinitionMask | local, 0x00, 0x00}
	g := make([]byte, 2)
	binary.LittleEndian.PutUint16(g, global)
	b = append(b, g...)
	b = append(b, byte(len(fields)))
	b = append(b, fieldDefBytes(fields...)...)
	return b
}

func u32le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func u16le(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func TestParseFileIDMessage(t *testing.T) {
	def := definitionRecord(0, 0,
		FieldDefinition{FieldNumber: 0, Size: 1, BaseType: BaseEnum},     // type
		FieldDefinition{FieldNumber: 1, Size: 2, BaseType: BaseUint16},   // manufacturer
		FieldDefinition{FieldNumber: 2, Size: 2, BaseType: BaseUint16},   // product
		FieldDefinition{FieldNumber: 3, Size: 4, BaseType: BaseUint32},   // serial_number
	)
	data := []byte{0x00, 0x04} // local 0, type=4 (activity)
	data = append(data, u16le(1)...)    // manufacturer=1 (garmin)
	data = append(data, u16le(2337)...) // product=2337 (vivoactive_hr, under garmin)
	data = append(data, u32le(123456)...)

	fit := buildFixture(t, def, data)

	result, err := Parse(fit, UnitPolicy{})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !result.FileCRCOK {
		t.Fatal("expected valid file CRC")
	}
	if len(result.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(result.Messages))
	}
	msg := result.Messages[0]
	if msg.Name != "file_id" {
		t.Fatalf("expected file_id message, got %q", msg.Name)
	}
	// S3: byte 04 for field "type" converts to "activity", raw 4.
	if v := msg.Fields["type"].Value; v != "activity" {
		t.Fatalf("unexpected type: %v", v)
	}
	if raw := msg.Fields["type"].Raw; raw != uint8(4) {
		t.Fatalf("unexpected type raw: %v", raw)
	}
	if v := msg.Fields["manufacturer"].Value; v != "garmin" {
		t.Fatalf("unexpected manufacturer: %v", v)
	}
	// product is resolved via the two-phase manufacturer-keyed lookup.
	if v := msg.Fields["product"].Value; v != "vivoactive_hr" {
		t.Fatalf("unexpected product: %v", v)
	}
	if v := msg.Fields["serial_number"].Value; v != uint32(123456) {
		t.Fatalf("unexpected serial_number: %v", v)
	}
}

func TestMonitoringCyclesRewrittenToActivitySteps(t *testing.T) {
	// S5: activity_type=running (units=steps), cycles_factor=2.0, cycles
	// raw=150 -> exposes running_steps with value 300.
	def := definitionRecord(0, 55,
		FieldDefinition{FieldNumber: 253, Size: 4, BaseType: BaseUint32}, // timestamp
		FieldDefinition{FieldNumber: 5, Size: 1, BaseType: BaseEnum},     // activity_type
		FieldDefinition{FieldNumber: 3, Size: 4, BaseType: BaseUint32},   // cycles
	)
	ts := uint32(100)
	data := []byte{0x00}
	data = append(data, u32le(ts)...)
	data = append(data, 1) // activity_type = running
	data = append(data, u32le(150)...)

	fit := buildFixture(t, def, data)
	result, err := Parse(fit, UnitPolicy{})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	msg := result.Messages[0]
	fv, ok := msg.Fields["running_steps"]
	if !ok {
		t.Fatalf("expected running_steps field, got %v", msg.Fields)
	}
	if fv.Value != float64(300) {
		t.Fatalf("unexpected running_steps value: %v", fv.Value)
	}
	if fv.Raw != uint32(150) {
		t.Fatalf("unexpected running_steps raw: %v", fv.Raw)
	}
	if _, stillCycles := msg.Fields["cycles"]; stillCycles {
		t.Fatal("cycles field should have been renamed, not left in place")
	}
}

func TestCompressedTimestampReconstruction(t *testing.T) {
	// Local 1 carries an explicit timestamp field and establishes the
	// reference time; local 0 carries only heart_rate and is addressed
	// by subsequent compressed-timestamp headers, which imply the
	// timestamp rather than transmitting it as a field.
	absoluteDef := definitionRecord(1, 20,
		FieldDefinition{FieldNumber: 253, Size: 4, BaseType: BaseUint32},
		FieldDefinition{FieldNumber: 3, Size: 1, BaseType: BaseUint8},
	)
	base := uint32(1000)
	first := []byte{0x01}
	first = append(first, u32le(base)...)
	first = append(first, 120)

	compressedDef := definitionRecord(0, 20,
		FieldDefinition{FieldNumber: 3, Size: 1, BaseType: BaseUint8},
	)

	// base's low 5 bits are 1000 % 32 == 8. A compressed offset of 10,
	// with no wraparound, means 2 seconds elapsed since base.
	compressedHeader := byte(compressedHeaderMask) | byte(10)
	second := []byte{compressedHeader, 121}

	fit := buildFixture(t, absoluteDef, first, compressedDef, second)
	result, err := Parse(fit, UnitPolicy{})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(result.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(result.Messages))
	}
	second0 := result.Messages[1]
	ts, ok := second0.Fields["timestamp"].Value.(time.Time)
	if !ok {
		t.Fatalf("expected timestamp field on compressed record, fields=%v", second0.Fields)
	}
	got := ts.Sub(fitEpoch.Add(time.Duration(base) * time.Second))
	if got != 2*time.Second {
		t.Fatalf("unexpected reconstructed timestamp offset: %v", got)
	}
}

func TestInvalidUint16SentinelDetected(t *testing.T) {
	def := definitionRecord(0, 20,
		FieldDefinition{FieldNumber: 253, Size: 4, BaseType: BaseUint32},
		FieldDefinition{FieldNumber: 6, Size: 2, BaseType: BaseUint16}, // speed
	)
	data := []byte{0x00}
	data = append(data, u32le(1)...)
	data = append(data, 0xFF, 0xFF) // invalid uint16

	fit := buildFixture(t, def, data)
	result, err := Parse(fit, UnitPolicy{})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	fv := result.Messages[0].Fields["speed"]
	if !fv.Invalid {
		t.Fatal("expected speed field to be marked invalid")
	}
}

func TestEnglishUnitPolicyConvertsDistance(t *testing.T) {
	def := definitionRecord(0, 20,
		FieldDefinition{FieldNumber: 253, Size: 4, BaseType: BaseUint32},
		FieldDefinition{FieldNumber: 5, Size: 4, BaseType: BaseUint32}, // distance, scale 100
	)
	data := []byte{0x00}
	data = append(data, u32le(1)...)
	data = append(data, u32le(10000)...) // 100.00 m

	fit := buildFixture(t, def, data)
	result, err := Parse(fit, UnitPolicy{English: true})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	fv := result.Messages[0].Fields["distance"]
	if fv.Units != "ft" {
		t.Fatalf("expected feet units, got %q", fv.Units)
	}
	got, ok := fv.Value.(float64)
	if !ok || got < 328 || got > 329 {
		t.Fatalf("unexpected distance conversion: %v", fv.Value)
	}
}

func TestBadProtocolVersionRejected(t *testing.T) {
	fit := buildFixture(t)
	fit[1] = 0x42 // garbage protocol version
	// header CRC isn't present (12-byte header) so only the protocol
	// version check is exercised here; recompute the trailing file CRC
	// isn't needed since parseHeader rejects before it's checked.
	_, err := Parse(fit, UnitPolicy{})
	if err == nil {
		t.Fatal("expected error for bad protocol version")
	}
	if !errors.Is(err, ErrBadHeader) {
		t.Fatalf("expected ErrBadHeader, got %v", err)
	}
}

func TestTruncatedHeaderRejected(t *testing.T) {
	_, err := Parse([]byte{0x01, 0x02}, UnitPolicy{})
	if err == nil {
		t.Fatal("expected error for truncated header")
	}
}

func TestUnknownLocalSlotRejected(t *testing.T) {
	data := []byte{0x00} // data record referencing local 0, never defined
	fit := buildFixture(t, data)
	_, err := Parse(fit, UnitPolicy{})
	if err == nil {
		t.Fatal("expected error for undefined local message type")
	}
}

package decode

import (
	"encoding/binary"
	"fmt"
)

const (
	compressedHeaderMask       = 0x80
	compressedLocalMesgNumMask = 0x60
	compressedTimeMask         = 0x1F
	mesgDefinitionMask         = 0x40
	devDataMask                = 0x20
	localMesgNumMask           = 0x0F
)

// recordHeader is the single leading byte of every FIT record, decoded
// into its three possible shapes (normal data, definition, compressed
// timestamp data).
type recordHeader struct {
	raw          byte
	compressed   bool
	isDefinition bool
	hasDevFields bool
	localType    uint8
	timeOffset   uint8 // only meaningful when compressed
}

func decodeRecordHeader(b byte) recordHeader {
	switch {
	case b&compressedHeaderMask == compressedHeaderMask:
		return recordHeader{
			raw:        b,
			compressed: true,
			localType:  (b & compressedLocalMesgNumMask) >> 5,
			timeOffset: b & compressedTimeMask,
		}
	case b&mesgDefinitionMask == mesgDefinitionMask:
		return recordHeader{
			raw:          b,
			isDefinition: true,
			hasDevFields: b&devDataMask == devDataMask,
			localType:    b & localMesgNumMask,
		}
	default:
		return recordHeader{
			raw:       b,
			localType: b & localMesgNumMask,
		}
	}
}

// FieldDefinition is one entry of a definition message: which profile
// field number it carries, its wire size, and its base type.
type FieldDefinition struct {
	FieldNumber uint8
	Size        uint8
	BaseType    BaseType
}

// DeveloperFieldDefinition is a developer-data field slot declared by a
// definition message with the developer-data bit set. Developer fields are
// carried through decoding as opaque byte/int values; the catalog does not
// attempt to resolve their semantics (that requires a prior
// field_description/developer_data_id message pair, which this decoder
// records but does not cross-reference automatically).
type DeveloperFieldDefinition struct {
	FieldNumber      uint8
	Size             uint8
	DeveloperDataIdx uint8
}

// localDefinition is the decoder's live binding of a local message slot
// (0-15, or 0-3 when addressed via a compressed timestamp header) to a
// global message number, byte order, and field layout.
type localDefinition struct {
	localType uint8
	global    uint16
	arch      binary.ByteOrder
	fields    []FieldDefinition
	devFields []DeveloperFieldDefinition
}

// byteSize is the number of raw bytes a data record using this definition
// occupies, excluding its own one-byte record header.
func (d localDefinition) byteSize() int {
	n := 0
	for _, f := range d.fields {
		n += int(f.Size)
	}
	for _, f := range d.devFields {
		n += int(f.Size)
	}
	return n
}

// parseDefinitionRecord reads one definition record starting at pos
// (immediately after the already-consumed record header byte) and returns
// the bound localDefinition and the new read position.
func parseDefinitionRecord(data []byte, pos int, hdr recordHeader) (localDefinition, int, error) {
	read := func(n int) ([]byte, error) {
		if pos+n > len(data) {
			return nil, fmt.Errorf("%w: definition record truncated", ErrTruncated)
		}
		out := data[pos : pos+n]
		pos += n
		return out, nil
	}

	if _, err := read(1); err != nil { // reserved byte
		return localDefinition{}, 0, err
	}
	archByte, err := read(1)
	if err != nil {
		return localDefinition{}, 0, err
	}
	var arch binary.ByteOrder
	switch archByte[0] {
	case 0:
		arch = binary.LittleEndian
	case 1:
		arch = binary.BigEndian
	default:
		return localDefinition{}, 0, fmt.Errorf("%w: invalid architecture byte %d", ErrBadFieldDef, archByte[0])
	}

	globalBytes, err := read(2)
	if err != nil {
		return localDefinition{}, 0, err
	}
	global := arch.Uint16(globalBytes)

	numFieldsRaw, err := read(1)
	if err != nil {
		return localDefinition{}, 0, err
	}
	numFields := int(numFieldsRaw[0])

	fields := make([]FieldDefinition, 0, numFields)
	for i := 0; i < numFields; i++ {
		raw, err := read(3)
		if err != nil {
			return localDefinition{}, 0, err
		}
		bt := decompressBaseType(raw[2])
		size := raw[1]
		if spec, ok := bt.spec(); ok && spec.size > 0 && int(size)%spec.size != 0 {
			return localDefinition{}, 0, fmt.Errorf("%w: field %d size %d not a multiple of base size %d",
				ErrBadFieldDef, raw[0], size, spec.size)
		}
		fields = append(fields, FieldDefinition{
			FieldNumber: raw[0],
			Size:        size,
			BaseType:    bt,
		})
	}

	var devFields []DeveloperFieldDefinition
	if hdr.hasDevFields {
		devCountRaw, err := read(1)
		if err != nil {
			return localDefinition{}, 0, err
		}
		devCount := int(devCountRaw[0])
		devFields = make([]DeveloperFieldDefinition, 0, devCount)
		for i := 0; i < devCount; i++ {
			raw, err := read(3)
			if err != nil {
				return localDefinition{}, 0, err
			}
			devFields = append(devFields, DeveloperFieldDefinition{
				FieldNumber:      raw[0],
				Size:             raw[1],
				DeveloperDataIdx: raw[2],
			})
		}
	}

	return localDefinition{
		localType: hdr.localType,
		global:    global,
		arch:      arch,
		fields:    fields,
		devFields: devFields,
	}, pos, nil
}

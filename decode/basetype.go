package decode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// BaseType identifies one of the FIT profile's wire-level scalar types.
// The raw byte on the wire also carries an endian-independent "big endian
// capable" bit (0x80) which decompressBaseType strips before matching
// against these canonical values.
type BaseType uint8

const (
	BaseEnum    BaseType = 0x00
	BaseSint8   BaseType = 0x01
	BaseUint8   BaseType = 0x02
	BaseSint16  BaseType = 0x83
	BaseUint16  BaseType = 0x84
	BaseSint32  BaseType = 0x85
	BaseUint32  BaseType = 0x86
	BaseString  BaseType = 0x07
	BaseFloat32 BaseType = 0x88
	BaseFloat64 BaseType = 0x89
	BaseUint8z  BaseType = 0x0A
	BaseUint16z BaseType = 0x8B
	BaseUint32z BaseType = 0x8C
	BaseByte    BaseType = 0x0D
	BaseSint64  BaseType = 0x8E
	BaseUint64  BaseType = 0x8F
	BaseUint64z BaseType = 0x90
)

type baseSpec struct {
	name          string
	size          int
	signed        bool
	floating      bool
	zeroIsInvalid bool
}

var baseSpecs = map[BaseType]baseSpec{
	BaseEnum:    {name: "enum", size: 1},
	BaseSint8:   {name: "sint8", size: 1, signed: true},
	BaseUint8:   {name: "uint8", size: 1},
	BaseSint16:  {name: "sint16", size: 2, signed: true},
	BaseUint16:  {name: "uint16", size: 2},
	BaseSint32:  {name: "sint32", size: 4, signed: true},
	BaseUint32:  {name: "uint32", size: 4},
	BaseString:  {name: "string", size: 1},
	BaseFloat32: {name: "float32", size: 4, signed: true, floating: true},
	BaseFloat64: {name: "float64", size: 8, signed: true, floating: true},
	BaseUint8z:  {name: "uint8z", size: 1, zeroIsInvalid: true},
	BaseUint16z: {name: "uint16z", size: 2, zeroIsInvalid: true},
	BaseUint32z: {name: "uint32z", size: 4, zeroIsInvalid: true},
	BaseByte:    {name: "byte", size: 1},
	BaseSint64:  {name: "sint64", size: 8, signed: true},
	BaseUint64:  {name: "uint64", size: 8},
	BaseUint64z: {name: "uint64z", size: 8, zeroIsInvalid: true},
}

// decompressBaseType maps the low 5 bits of a field definition's base type
// byte back to the canonical BaseType constant, mirroring the table Garmin
// ships in the FIT SDK profile.
func decompressBaseType(b byte) BaseType {
	switch b & 0x1F {
	case 0x00:
		return BaseEnum
	case 0x01:
		return BaseSint8
	case 0x02:
		return BaseUint8
	case 0x03:
		return BaseSint16
	case 0x04:
		return BaseUint16
	case 0x05:
		return BaseSint32
	case 0x06:
		return BaseUint32
	case 0x07:
		return BaseString
	case 0x08:
		return BaseFloat32
	case 0x09:
		return BaseFloat64
	case 0x0A:
		return BaseUint8z
	case 0x0B:
		return BaseUint16z
	case 0x0C:
		return BaseUint32z
	case 0x0D:
		return BaseByte
	case 0x0E:
		return BaseSint64
	case 0x0F:
		return BaseUint64
	case 0x10:
		return BaseUint64z
	default:
		return BaseType(b & 0x1F)
	}
}

func (bt BaseType) spec() (baseSpec, bool) {
	s, ok := baseSpecs[bt]
	return s, ok
}

// Size reports the wire size in bytes of a single element of this base
// type, or 0 if the base type is not recognized.
func (bt BaseType) Size() int {
	s, ok := baseSpecs[bt]
	if !ok {
		return 0
	}
	return s.size
}

func (bt BaseType) String() string {
	if s, ok := baseSpecs[bt]; ok {
		return s.name
	}
	return fmt.Sprintf("unknown_0x%02X", uint8(bt))
}

// decodeScalar decodes one base-size chunk of raw bytes, returning the
// decoded Go value and whether the raw bytes matched that type's invalid
// sentinel.
func decodeScalar(raw []byte, bt BaseType, arch binary.ByteOrder) (any, bool) {
	switch bt {
	case BaseEnum:
		v := raw[0]
		return v, v == 0xFF
	case BaseSint8:
		v := int8(raw[0])
		return v, v == int8(0x7F)
	case BaseUint8:
		v := raw[0]
		return v, v == 0xFF
	case BaseSint16:
		v := int16(arch.Uint16(raw))
		return v, v == int16(0x7FFF)
	case BaseUint16:
		v := arch.Uint16(raw)
		return v, v == 0xFFFF
	case BaseSint32:
		v := int32(arch.Uint32(raw))
		return v, v == int32(0x7FFFFFFF)
	case BaseUint32:
		v := arch.Uint32(raw)
		return v, v == 0xFFFFFFFF
	case BaseFloat32:
		bits := arch.Uint32(raw)
		return float64(math.Float32frombits(bits)), bits == 0xFFFFFFFF
	case BaseFloat64:
		bits := arch.Uint64(raw)
		return math.Float64frombits(bits), bits == 0xFFFFFFFFFFFFFFFF
	case BaseUint8z:
		v := raw[0]
		return v, v == 0x00
	case BaseUint16z:
		v := arch.Uint16(raw)
		return v, v == 0x0000
	case BaseUint32z:
		v := arch.Uint32(raw)
		return v, v == 0x00000000
	case BaseSint64:
		v := int64(arch.Uint64(raw))
		return v, v == int64(0x7FFFFFFFFFFFFFFF)
	case BaseUint64:
		v := arch.Uint64(raw)
		return v, v == 0xFFFFFFFFFFFFFFFF
	case BaseUint64z:
		v := arch.Uint64(raw)
		return v, v == 0x0000000000000000
	default:
		return bytesToInts(raw), false
	}
}

func bytesToInts(raw []byte) []int {
	out := make([]int, len(raw))
	for i := range raw {
		out[i] = int(raw[i])
	}
	return out
}

func allBytes(raw []byte, value byte) bool {
	if len(raw) == 0 {
		return false
	}
	for _, b := range raw {
		if b != value {
			return false
		}
	}
	return true
}

package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/tormoder/fit/dyncrc16"
)

const (
	headerSizeNoCRC = 12
	headerSizeCRC   = 14

	protocolVersion = 0x10
)

// FileHeader is the fixed 12- or 14-byte preamble of a FIT file: protocol
// version, profile version, the size of the record data section, and the
// ".FIT" magic tag.
type FileHeader struct {
	Size            uint8
	ProtocolVersion uint8
	ProfileVersion  uint16
	DataSize        uint32
	DataType        string

	// HeaderCRCPresent is true when the header carries its own trailing
	// CRC-16 (14-byte header); HeaderCRCValid is only meaningful then,
	// and a stored value of 0 is treated as "not checked" per the FIT
	// SDK convention for older encoders that never filled it in.
	HeaderCRCPresent bool
	HeaderCRCValid   bool
}

// parseHeader reads and validates the file header, returning it along with
// the byte offset where the record data section begins.
func parseHeader(data []byte) (FileHeader, int, error) {
	if len(data) < headerSizeNoCRC {
		return FileHeader{}, 0, fmt.Errorf("%w: need at least %d bytes, have %d", ErrTruncated, headerSizeNoCRC, len(data))
	}
	size := data[0]
	if size != headerSizeNoCRC && size != headerSizeCRC {
		return FileHeader{}, 0, fmt.Errorf("%w: invalid header size %d", ErrBadHeader, size)
	}
	if len(data) < int(size) {
		return FileHeader{}, 0, fmt.Errorf("%w: header declares %d bytes, have %d", ErrTruncated, size, len(data))
	}

	h := FileHeader{
		Size:            size,
		ProtocolVersion: data[1],
		ProfileVersion:  binary.LittleEndian.Uint16(data[2:4]),
		DataSize:        binary.LittleEndian.Uint32(data[4:8]),
		DataType:        string(data[8:12]),
	}
	if h.DataType != ".FIT" {
		return FileHeader{}, 0, fmt.Errorf("%w: data type tag is %q, want \".FIT\"", ErrBadHeader, h.DataType)
	}
	if h.ProtocolVersion != protocolVersion {
		return FileHeader{}, 0, fmt.Errorf("%w: protocol version 0x%02X, want 0x%02X", ErrBadHeader, h.ProtocolVersion, protocolVersion)
	}

	if size == headerSizeCRC {
		h.HeaderCRCPresent = true
		stored := binary.LittleEndian.Uint16(data[12:14])
		if stored == 0 {
			h.HeaderCRCValid = true
		} else {
			h.HeaderCRCValid = stored == dyncrc16.Checksum(data[:12])
			if !h.HeaderCRCValid {
				return FileHeader{}, 0, fmt.Errorf("%w: header CRC mismatch", ErrBadHeader)
			}
		}
	}

	return h, int(size), nil
}

// checkFileCRC validates the trailing file CRC-16, which covers the header
// and the entire record data section.
func checkFileCRC(data []byte, dataStart, dataSize int) (stored, computed uint16, err error) {
	end := dataStart + dataSize
	if len(data) < end+2 {
		return 0, 0, fmt.Errorf("%w: need %d bytes for trailing CRC, have %d", ErrTruncated, end+2, len(data))
	}
	stored = binary.LittleEndian.Uint16(data[end : end+2])
	computed = dyncrc16.Checksum(data[:end])
	return stored, computed, nil
}

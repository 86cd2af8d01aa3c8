package decode

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	globalMonitoring    = 55
	fieldActivityType   = 5
	fieldTimestamp16    = 26
	fieldActivityIntens = 24
)

// activityRewriteFields is the fixed set of monitoring fields that, when
// an activity_type is in scope, get their name suffixed with
// "_"+activity_type_name (e.g. "cum_active_time_running"). See
// SPEC_FULL.md §4's resolution of the monitoring rewrite ambiguity: this
// set and the "cycles" field use two different rewrite rules, keyed by
// field name, and never overlap.
var activityRewriteFields = map[uint8]bool{
	19: true, // active_calories
	28: true, // distance
	29: true, // duration_min
	36: true, // cum_active_time
}

type parser struct {
	data []byte
	pos  int

	definitions map[uint8]localDefinition

	lastTimestamp  uint32 // full 32-bit FIT epoch seconds, from the most recent 253/compressed timestamp
	lastTimeOffset int32  // low 5 bits of lastTimestamp, for compressed-header delta reconstruction

	currentActivityType uint8
	haveActivityType     bool

	warnings []error
}

// Parse decodes a complete FIT byte stream into a Result: the file header,
// the trailing file CRC's validity, and the ordered sequence of decoded
// data messages. policy controls unit conversion for fields with physical
// units (distance, speed, altitude).
func Parse(data []byte, policy UnitPolicy) (*Result, error) {
	header, dataStart, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	dataSize := int(header.DataSize)
	stored, computed, err := checkFileCRC(data, dataStart, dataSize)
	if err != nil {
		return nil, err
	}

	p := &parser{
		data:        data[dataStart : dataStart+dataSize],
		definitions: make(map[uint8]localDefinition),
	}

	var messages []DataMessage
	for p.pos < len(p.data) {
		msg, err := p.parseRecord(policy)
		if err != nil {
			return nil, fmt.Errorf("record at byte %d: %w", p.pos, err)
		}
		if msg != nil {
			messages = append(messages, *msg)
		}
	}
	if p.pos != len(p.data) {
		return nil, fmt.Errorf("%w: consumed %d of %d data bytes", ErrDesynchronized, p.pos, len(p.data))
	}

	return &Result{
		Header:    header,
		Messages:  messages,
		Warnings:  p.warnings,
		FileCRCOK: stored == computed,
	}, nil
}

// parseRecord consumes exactly one record (definition or data, compressed
// or not) and returns the decoded message, or nil for a definition record.
func (p *parser) parseRecord(policy UnitPolicy) (*DataMessage, error) {
	headerByte := p.data[p.pos]
	p.pos++
	hdr := decodeRecordHeader(headerByte)

	if hdr.isDefinition {
		def, newPos, err := parseDefinitionRecord(p.data, p.pos, hdr)
		if err != nil {
			return nil, err
		}
		p.definitions[def.localType] = def
		p.pos = newPos
		return nil, nil
	}

	def, ok := p.definitions[hdr.localType]
	if !ok {
		return nil, fmt.Errorf("%w: local type %d", ErrUnknownLocalSlot, hdr.localType)
	}

	if hdr.compressed {
		p.applyCompressedOffset(hdr.timeOffset)
	}

	return p.parseDataRecord(def, policy, hdr.compressed)
}

// applyCompressedOffset reconstructs a full timestamp from a compressed
// record header's 5-bit seconds offset, per SPEC_FULL.md §4's bitfield
// resolution. If no reference timestamp has been seen yet the offset is
// ignored; the first absolute timestamp field in the stream establishes
// the reference.
func (p *parser) applyCompressedOffset(offset5 uint8) {
	if p.lastTimestamp == 0 {
		return
	}
	delta := (int32(offset5) - p.lastTimeOffset) & compressedTimeMask
	p.lastTimestamp += uint32(delta)
	p.lastTimeOffset = int32(offset5)
}

func (p *parser) parseDataRecord(def localDefinition, policy UnitPolicy, compressed bool) (*DataMessage, error) {
	msg := &DataMessage{
		GlobalMessageNum: def.global,
		Name:             MessageName(def.global),
		Fields:           make(map[string]FieldValue, len(def.fields)),
	}
	if compressed && p.lastTimestamp != 0 {
		msg.Fields["timestamp"] = FieldValue{
			Name:  "timestamp",
			Value: fitEpoch.Add(time.Duration(p.lastTimestamp) * time.Second),
			Raw:   p.lastTimestamp,
		}
	}

	var timestamp16 *uint16
	var activityTypeRaw *uint8
	var activityIntensityRaw *uint8
	var manufacturerRaw uint64
	var haveManufacturer bool
	var productRaw uint64
	var haveProduct bool

	for _, fd := range def.fields {
		n := int(fd.Size)
		if p.pos+n > len(p.data) {
			return nil, fmt.Errorf("%w: field %d of message %s", ErrTruncated, fd.FieldNumber, msg.Name)
		}
		raw := p.data[p.pos : p.pos+n]
		p.pos += n

		decoded, invalid := decodeField(raw, fd, def.arch)

		if fd.FieldNumber == 253 { // reserved timestamp field
			if v, ok := decoded.(uint32); ok && !invalid {
				p.lastTimestamp = v
				p.lastTimeOffset = int32(v & compressedTimeMask)
			}
		}
		if def.global == globalMonitoring {
			switch fd.FieldNumber {
			case fieldTimestamp16:
				if v, ok := decoded.(uint16); ok && !invalid {
					timestamp16 = &v
				}
				continue
			case fieldActivityType:
				if v, ok := decoded.(uint8); ok && !invalid {
					activityTypeRaw = &v
					p.currentActivityType = v
					p.haveActivityType = true
				}
			case fieldActivityIntens:
				if v, ok := decoded.(uint8); ok && !invalid {
					activityIntensityRaw = &v
				}
				continue
			}
		}

		sem, known := fieldSemanticFor(def.global, fd.FieldNumber)
		name := fallbackFieldName(fd.FieldNumber)
		units := ""
		value := decoded
		if known {
			name = sem.name
			units = sem.units
			if sem.scale != nil && !invalid {
				if v, u, ok := sem.scale(decoded, policy); ok {
					value = v
					if u != "" {
						units = u
					}
				}
			}
			// The product enum is keyed by manufacturer (§9's cyclic
			// lookup), so both raw values are captured here and resolved
			// together once the whole message has been decoded.
			if !invalid {
				switch sem.name {
				case "manufacturer":
					if v, ok := toFloat(decoded); ok {
						manufacturerRaw = uint64(v)
						haveManufacturer = true
					}
				case "product":
					if v, ok := toFloat(decoded); ok {
						productRaw = uint64(v)
						haveProduct = true
					}
				}
			}
		}
		msg.Fields[name] = FieldValue{Name: name, Value: value, Raw: decoded, Units: units, Invalid: invalid}
	}

	if len(def.devFields) > 0 {
		for _, dd := range def.devFields {
			n := int(dd.Size)
			if p.pos+n > len(p.data) {
				return nil, fmt.Errorf("%w: developer field %d of message %s", ErrTruncated, dd.FieldNumber, msg.Name)
			}
			raw := p.data[p.pos : p.pos+n]
			p.pos += n
			name := fmt.Sprintf("developer_field_%d_%d", dd.DeveloperDataIdx, dd.FieldNumber)
			msg.Fields[name] = FieldValue{Name: name, Value: bytesToInts(raw), Raw: bytesToInts(raw)}
		}
	}

	if haveProduct {
		if name, ok := productName(manufacturerRaw, productRaw, haveManufacturer); ok {
			fv := msg.Fields["product"]
			fv.Value = name
			msg.Fields["product"] = fv
		}
	}
	if activityTypeRaw != nil {
		if name, ok := activityTypeName(*activityTypeRaw); ok {
			msg.Fields["activity_type"] = FieldValue{Name: "activity_type", Value: name, Raw: *activityTypeRaw}
		} else {
			p.warnings = append(p.warnings, BadEnumWarning{Message: msg.Name, Field: "activity_type", Raw: uint64(*activityTypeRaw)})
		}
	}
	if activityIntensityRaw != nil {
		// current_activity_type_intensity packs activity_type in bits
		// 0-4 and intensity in bits 5-7, per the FIT profile.
		at := *activityIntensityRaw & 0x1F
		intensity := (*activityIntensityRaw >> 5) & 0x07
		if name, ok := activityTypeName(at); ok {
			msg.Fields["activity_type"] = FieldValue{Name: "activity_type", Value: name, Raw: at}
			p.currentActivityType = at
			p.haveActivityType = true
		}
		msg.Fields["intensity"] = FieldValue{Name: "intensity", Value: intensity, Raw: intensity}
	}
	if timestamp16 != nil {
		full := p.reconstructTimestamp16(*timestamp16)
		msg.Fields["timestamp"] = FieldValue{Name: "timestamp", Value: fitEpoch.Add(time.Duration(full) * time.Second), Raw: full}
	}

	if def.global == globalMonitoring {
		p.rewriteMonitoringFields(msg)
	}

	return msg, nil
}

// reconstructTimestamp16 rebuilds a full 32-bit FIT timestamp from a
// monitoring message's compact 16-bit field, rolling the high bits forward
// from the most recently seen full timestamp whenever the low 16 bits
// appear to have wrapped.
func (p *parser) reconstructTimestamp16(ts16 uint16) uint32 {
	full := (p.lastTimestamp &^ 0xFFFF) | uint32(ts16)
	if full < p.lastTimestamp {
		full += 0x10000
	}
	p.lastTimestamp = full
	p.lastTimeOffset = int32(full & compressedTimeMask)
	return full
}

// rewriteMonitoringFields applies the activity-keyed field rename rule
// (§4): "cycles" becomes "<activity>_<units>" (e.g. "running_steps"), and
// the fixed activityRewriteFields set becomes "<field>_<activity>" (e.g.
// "cum_active_time_running"). Fields are only rewritten once an
// activity_type is in scope for this message (its own, or the most
// recently seen one in this file).
func (p *parser) rewriteMonitoringFields(msg *DataMessage) {
	if !p.haveActivityType {
		return
	}
	activity, ok := activityTypeName(p.currentActivityType)
	if !ok {
		return
	}

	if fv, ok := msg.Fields["cycles"]; ok {
		units := cyclesUnitsForActivity(activity)
		base := activity + "_" + units
		delete(msg.Fields, "cycles")
		if f, ok := toFloat(fv.Value); ok {
			fv.Value = f * cyclesFactorForActivity(activity)
		}
		fv.Name = base
		msg.Fields[base] = fv
	}

	for fieldNum := range activityRewriteFields {
		sem, known := fieldSemanticFor(globalMonitoring, fieldNum)
		if !known {
			continue
		}
		fv, present := msg.Fields[sem.name]
		if !present {
			continue
		}
		renamed := sem.name + "_" + activity
		delete(msg.Fields, sem.name)
		fv.Name = renamed
		msg.Fields[renamed] = fv
	}
}

// cyclesUnitsForActivity names the per-activity unit the FIT profile uses
// for the monitoring message's generic "cycles" field.
func cyclesUnitsForActivity(activity string) string {
	switch activity {
	case "running", "walking":
		return "steps"
	case "cycling":
		return "strokes"
	case "swimming":
		return "strokes"
	default:
		return "cycles"
	}
}

// cyclesFactorForActivity is the per-activity multiplier applied to the
// monitoring message's raw "cycles" count before it's exposed under its
// activity-keyed name: a running/walking cycle is one stride, which
// registers two steps, while a cycling/swimming cycle already counts one
// crank revolution/stroke directly (§4, scenario S5).
func cyclesFactorForActivity(activity string) float64 {
	switch activity {
	case "running", "walking":
		return 2.0
	default:
		return 1.0
	}
}

// decodeField decodes a single field's raw bytes into a scalar or array
// value using its field definition's base type and byte order.
func decodeField(raw []byte, fd FieldDefinition, arch binary.ByteOrder) (any, bool) {
	bt := fd.BaseType
	spec, ok := bt.spec()
	if !ok {
		return bytesToInts(raw), false
	}

	if bt == BaseString {
		return decodeNullTerminatedString(raw), len(raw) == 0 || allBytes(raw, 0x00)
	}
	if bt == BaseByte {
		if len(raw) == 1 {
			return raw[0], raw[0] == 0xFF
		}
		return bytesToInts(raw), allBytes(raw, 0xFF)
	}
	if spec.size <= 0 || len(raw)%spec.size != 0 {
		return bytesToInts(raw), false
	}

	count := len(raw) / spec.size
	if count == 1 {
		return decodeScalar(raw, bt, arch)
	}
	values := make([]any, 0, count)
	allInvalid := true
	for i := 0; i < count; i++ {
		v, invalid := decodeScalar(raw[i*spec.size:(i+1)*spec.size], bt, arch)
		values = append(values, v)
		if !invalid {
			allInvalid = false
		}
	}
	return values, allInvalid
}

func decodeNullTerminatedString(raw []byte) string {
	for i, b := range raw {
		if b == 0x00 {
			return string(raw[:i])
		}
	}
	return string(raw)
}

package value

import (
	"fmt"

	"github.com/FlintVN/FlintDebug/pkg/transport"
	"github.com/FlintVN/FlintDebug/pkg/wire"
)

// DefaultTimeout is used for every value-decoding wire operation; none of
// them need a longer timeout than the gate's default.
const DefaultTimeout = transport.DefaultTimeout

// Decoder issues the READ_LOCAL/READ_FIELD/READ_ARRAY/READ_SIZE_AND_TYPE
// commands and decodes their responses into ValueInfo.
type Decoder struct {
	gate *transport.Gate
}

// NewDecoder wraps gate.
func NewDecoder(gate *transport.Gate) *Decoder {
	return &Decoder{gate: gate}
}

// sizeAndValue parses the common "size:u32 | value:u32-or-u64 | [type]?"
// response shape shared by READ_LOCAL and READ_FIELD.
func sizeAndValue(data []byte) (size uint32, raw uint64, typeName string, hasType bool, err error) {
	if len(data) < 4 {
		return 0, 0, "", false, fmt.Errorf("value: response too short for size field: %d bytes", len(data))
	}
	size = wire.Uint32LE(data)
	rest := data[4:]

	width := 4
	if size == 8 {
		width = 8
	}
	if len(rest) < width {
		return 0, 0, "", false, fmt.Errorf("value: response too short for %d-byte value", width)
	}
	if width == 8 {
		raw = wire.Uint64LE(rest)
	} else {
		raw = uint64(wire.Uint32LE(rest))
	}
	rest = rest[width:]

	if len(rest) >= 4 {
		name, n, perr := wire.ParseString(rest)
		if perr == nil {
			typeName = name
			hasType = true
			_ = n
		}
	}
	return size, raw, typeName, hasType, nil
}

// ReadLocal issues READ_LOCAL for localIndex within frameID, decoding the
// result according to descriptor.
func (d *Decoder) ReadLocal(frameID uint32, localIndex uint32, name, descriptor string) (ValueInfo, bool) {
	payload := make([]byte, 8)
	word0 := frameID & 0x7FFFFFFF
	if IsWide(descriptor) {
		word0 |= 0x80000000
	}
	wire.PutUint32LE(payload[0:4], word0)
	wire.PutUint32LE(payload[4:8], localIndex)

	resp, ok := d.gate.SendCmd(wire.CmdReadLocal, payload, DefaultTimeout)
	if !ok || resp.ResponseCode != wire.OK {
		return ValueInfo{}, false
	}
	return decodeValueResponse(name, descriptor, resp.Data)
}

// ReadField issues READ_FIELD for fieldName on the object at reference.
func (d *Decoder) ReadField(reference uint32, fieldName, descriptor string) (ValueInfo, bool) {
	payload := make([]byte, 4)
	wire.PutUint32LE(payload, reference)
	payload = append(payload, wire.PutString(fieldName)...)

	resp, ok := d.gate.SendCmd(wire.CmdReadField, payload, DefaultTimeout)
	if !ok || resp.ResponseCode != wire.OK {
		return ValueInfo{}, false
	}
	return decodeValueResponse(fieldName, descriptor, resp.Data)
}

func decodeValueResponse(name, descriptor string, data []byte) (ValueInfo, bool) {
	size, raw, typeName, hasType, err := sizeAndValue(data)
	if err != nil {
		return ValueInfo{}, false
	}

	vi := ValueInfo{Name: name, Type: descriptor, Size: size, Raw: raw}
	if IsReference(descriptor) {
		vi.Reference = uint32(raw)
		if vi.Reference == 0 {
			vi.Value = "null"
		} else if hasType {
			vi.TypeName = typeName
			vi.Value = ShortClassName(typeName) + "@" + fmt.Sprintf("0x%x", vi.Reference)
		} else {
			vi.Value = SimpleName(descriptor) + "@" + fmt.Sprintf("0x%x", vi.Reference)
		}
	} else {
		vi.Value = FormatPrimitive(descriptor, raw)
	}
	return vi, true
}

// SizeAndType holds a READ_SIZE_AND_TYPE response.
type SizeAndType struct {
	Size     uint32
	TypeName string
}

// ReadSizeAndType issues READ_SIZE_AND_TYPE for reference.
func (d *Decoder) ReadSizeAndType(reference uint32) (SizeAndType, bool) {
	payload := make([]byte, 4)
	wire.PutUint32LE(payload, reference)

	resp, ok := d.gate.SendCmd(wire.CmdReadSizeAndType, payload, DefaultTimeout)
	if !ok || resp.ResponseCode != wire.OK {
		return SizeAndType{}, false
	}
	if len(resp.Data) < 4 {
		return SizeAndType{}, false
	}
	size := wire.Uint32LE(resp.Data)
	name, _, err := wire.ParseString(resp.Data[4:])
	if err != nil {
		return SizeAndType{}, false
	}
	return SizeAndType{Size: size, TypeName: name}, true
}

// formatArrayElement renders one decoded array slot: booleans as
// false/true, chars as quoted runes, and every other integer descriptor
// sign-extended from its element width before display (0xFF at 1 byte
// reads as -1).
func formatArrayElement(elemDesc string, raw uint64, size uint32) string {
	switch elemDesc {
	case "Z":
		return FormatPrimitive("Z", raw)
	case "C":
		return FormatPrimitive("C", raw)
	case "F":
		return FormatPrimitive("F", raw)
	case "D":
		return FormatPrimitive("D", raw)
	default:
		return fmt.Sprintf("%d", SignExtend(raw, size))
	}
}

// readArrayRaw issues READ_ARRAY and returns the raw response bytes,
// trimmed to a whole number of elemSize-byte elements. It is the shared
// primitive behind ReadArray's decoded form and the string materializer's
// direct byte-array read.
func (d *Decoder) readArrayRaw(reference uint32, elemSize, startIndex, length uint32) ([]byte, bool) {
	if elemSize == 0 {
		return nil, false
	}
	payload := make([]byte, 12)
	wire.PutUint32LE(payload[0:4], length)
	wire.PutUint32LE(payload[4:8], startIndex)
	wire.PutUint32LE(payload[8:12], reference)

	resp, ok := d.gate.SendCmd(wire.CmdReadArray, payload, DefaultTimeout)
	if !ok || resp.ResponseCode != wire.OK {
		return nil, false
	}
	n := uint32(len(resp.Data)) / elemSize
	return resp.Data[:n*elemSize], true
}

// ArrayElement is one decoded slot of a READ_ARRAY response.
type ArrayElement struct {
	Index     uint32
	Value     string
	Reference uint32
}

// ReadArray issues READ_ARRAY for [startIndex, startIndex+length) of the
// array at reference, whose elements have descriptor elemDesc. Reference
// elements are returned with Reference set and Value left empty; the
// caller (varref) resolves those lazily via ReadSizeAndType.
func (d *Decoder) ReadArray(reference uint32, elemDesc string, startIndex, length uint32) ([]ArrayElement, bool) {
	elemSize := ElementSize(elemDesc)
	data, ok := d.readArrayRaw(reference, elemSize, startIndex, length)
	if !ok {
		return nil, false
	}

	n := uint32(len(data)) / elemSize
	out := make([]ArrayElement, 0, n)
	for i := uint32(0); i < n; i++ {
		chunk := data[i*elemSize : (i+1)*elemSize]
		var raw uint64
		switch elemSize {
		case 1:
			raw = uint64(chunk[0])
		case 2:
			raw = uint64(wire.Uint16LE(chunk))
		case 8:
			raw = wire.Uint64LE(chunk)
		default:
			raw = uint64(wire.Uint32LE(chunk))
		}

		el := ArrayElement{Index: startIndex + i}
		if IsReference(elemDesc) {
			el.Reference = uint32(raw)
		} else {
			el.Value = formatArrayElement(elemDesc, raw, elemSize)
		}
		out = append(out, el)
	}
	return out, true
}

// Package value implements the value decoder: descriptor-grammar parsing,
// primitive display formatting, element-size computation, and simple-name
// (display) decoding, plus the wire operations (READ_LOCAL, READ_FIELD,
// READ_ARRAY, READ_SIZE_AND_TYPE) that back variable inspection.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueInfo is the decoded representation of a single variable, field, or
// array element.
type ValueInfo struct {
	Name      string
	Type      string // the raw descriptor, e.g. "I", "Ljava/lang/String;", "[I"
	Value     string // the display string
	Raw       uint64 // the raw bits as read; for references, the same handle as Reference
	Size      uint32
	Reference uint32
	// TypeName is the resolved class name, present only when the response
	// carried the optional type-name field (4-byte-wide reference locals,
	// when response length permits). Empty otherwise, including for
	// references whose type must be looked up via READ_SIZE_AND_TYPE.
	TypeName string
}

// IsLeaf reports whether this value has nothing further to expand — the
// front-end contract's variablesReference == 0.
func (v ValueInfo) IsLeaf() bool { return v.Reference == 0 }

// ElementSize returns the per-element byte width for an array whose
// element descriptor is elemDesc.
func ElementSize(elemDesc string) uint32 {
	if len(elemDesc) == 0 {
		return 4
	}
	switch elemDesc[0] {
	case 'Z', 'B':
		return 1
	case 'C', 'S':
		return 2
	case 'J', 'D':
		return 8
	default:
		return 4
	}
}

// IsWide reports whether the descriptor's primitive representation is
// 8 bytes wide (J or D) — used to set READ_LOCAL/READ_FIELD's wantU64 bit.
func IsWide(desc string) bool {
	return desc == "J" || desc == "D"
}

// IsReference reports whether desc denotes a reference type: an object
// (L...;) or an array ([...).
func IsReference(desc string) bool {
	return len(desc) > 0 && (desc[0] == 'L' || desc[0] == '[')
}

// ElementDescriptor strips one array dimension from desc, returning the
// element type's descriptor. It returns desc unchanged if desc does not
// start with '['.
func ElementDescriptor(desc string) string {
	if strings.HasPrefix(desc, "[") {
		return desc[1:]
	}
	return desc
}

// FormatPrimitive renders raw's bits as the primitive descriptor desc
// dictates.
func FormatPrimitive(desc string, raw uint64) string {
	switch desc {
	case "F":
		return formatFloat32(math.Float32frombits(uint32(raw)))
	case "D":
		return formatFloat64(math.Float64frombits(raw))
	case "C":
		return fmt.Sprintf("'%c'", rune(uint16(raw)))
	case "Z":
		if raw != 0 {
			return "true"
		}
		return "false"
	case "J":
		return strconv.FormatInt(int64(raw), 10)
	case "I", "B", "S":
		return strconv.FormatInt(int64(int32(uint32(raw))), 10)
	default:
		return strconv.FormatUint(raw, 10)
	}
}

func formatFloat32(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func formatFloat64(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// SignExtend widens a size-byte, little-endian two's-complement integer
// read from an array element to an int64 ("0xFF → −1" for a byte-sized
// element).
func SignExtend(raw uint64, size uint32) int64 {
	switch size {
	case 1:
		return int64(int8(uint8(raw)))
	case 2:
		return int64(int16(uint16(raw)))
	case 4:
		return int64(int32(uint32(raw)))
	default:
		return int64(raw)
	}
}

// primitiveNames maps a single-letter descriptor code to its display name.
var primitiveNames = map[byte]string{
	'Z': "boolean",
	'C': "char",
	'F': "float",
	'D': "double",
	'B': "byte",
	'S': "short",
	'I': "int",
	'J': "long",
}

// SimpleName decodes a descriptor fragment into its short display name:
// array dimensions become trailing "[]", primitives map to their human
// name, and reference types are shortened to the substring after the last
// '/' or '.'.
func SimpleName(desc string) string {
	dims := 0
	i := 0
	for i < len(desc) && desc[i] == '[' {
		dims++
		i++
	}
	if i >= len(desc) {
		return desc
	}
	var base string
	switch desc[i] {
	case 'L':
		end := strings.IndexByte(desc[i:], ';')
		var cls string
		if end >= 0 {
			cls = desc[i+1 : i+end]
		} else {
			cls = desc[i+1:]
		}
		base = shortenClassName(cls)
	default:
		if name, ok := primitiveNames[desc[i]]; ok {
			base = name
		} else {
			base = desc[i:]
		}
	}
	return base + strings.Repeat("[]", dims)
}

func shortenClassName(cls string) string {
	return ShortClassName(cls)
}

// ShortClassName trims a '/'-or-'.'-separated class name down to the
// substring after its last separator, e.g. "java/lang/Object" -> "Object".
// Unlike SimpleName it takes a plain class name, not a descriptor fragment.
func ShortClassName(cls string) string {
	idx := strings.LastIndexAny(cls, "/.")
	if idx < 0 {
		return cls
	}
	return cls[idx+1:]
}

// ParseParamTypes splits a method descriptor's parameter list, e.g.
// "(ILjava/lang/String;[I)V" -> ["I", "Ljava/lang/String;", "[I"].
func ParseParamTypes(methodDescriptor string) []string {
	open := strings.IndexByte(methodDescriptor, '(')
	closeIdx := strings.IndexByte(methodDescriptor, ')')
	if open < 0 || closeIdx < 0 || closeIdx < open {
		return nil
	}
	params := methodDescriptor[open+1 : closeIdx]
	var out []string
	i := 0
	for i < len(params) {
		start := i
		for i < len(params) && params[i] == '[' {
			i++
		}
		if i >= len(params) {
			break
		}
		switch params[i] {
		case 'L':
			end := strings.IndexByte(params[i:], ';')
			if end < 0 {
				i = len(params)
			} else {
				i += end + 1
			}
		default:
			i++
		}
		out = append(out, params[start:i])
	}
	return out
}

package value

import (
	"strings"
	"unicode/utf16"

	"github.com/FlintVN/FlintDebug/pkg/classloader"
)

const (
	stringClass        = "java/lang/String"
	stringBuilderClass = "java/lang/AbstractStringBuilder"
)

// Materializer resolves a reference to its displayable string form when it
// points at a String or StringBuilder-like object.
type Materializer struct {
	dec *Decoder
	cl  classloader.ClassLoader
}

// NewMaterializer wraps dec/cl.
func NewMaterializer(dec *Decoder, cl classloader.ClassLoader) *Materializer {
	return &Materializer{dec: dec, cl: cl}
}

// TryMaterializeString attempts to render reference (whose resolved class
// is typeName) as a quoted string literal. It returns false, leaving the
// reference to be treated as an ordinary object, if typeName is not a
// String/StringBuilder descendant or if any wire step fails.
func (m *Materializer) TryMaterializeString(reference uint32, typeName string) (string, bool) {
	loader, err := m.cl.Load(typeName)
	if err != nil {
		return "", false
	}
	isBuilder := loader.IsClassOf(stringBuilderClass)
	if !loader.IsClassOf(stringClass) && !isBuilder {
		return "", false
	}

	coderVI, ok := m.dec.ReadField(reference, "coder", "B")
	if !ok {
		return "", false
	}
	coder := byte(coderVI.Raw)

	valueVI, ok := m.dec.ReadField(reference, "value", "[B")
	if !ok || valueVI.Reference == 0 {
		return "", false
	}

	var byteLen uint32
	if isBuilder {
		countVI, ok := m.dec.ReadField(reference, "count", "I")
		if !ok {
			return "", false
		}
		byteLen = uint32(countVI.Raw) << coder
	} else {
		byteLen = valueVI.Size
	}
	if byteLen == 0 {
		return quoteString(""), true
	}

	raw, ok := m.dec.readArrayRaw(valueVI.Reference, 1, 0, byteLen)
	if !ok {
		return "", false
	}

	var s string
	switch coder {
	case 0:
		s = decodeLatin1(raw)
	case 1:
		s = decodeUTF16LE(raw)
	default:
		return "", false
	}
	return quoteString(s), true
}

func decodeLatin1(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(rune(c))
	}
	return sb.String()
}

func decodeUTF16LE(b []byte) string {
	n := len(b) / 2
	units := make([]uint16, n)
	for i := 0; i < n; i++ {
		units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return string(utf16.Decode(units))
}

// quoteString wraps s in double quotes, escaping backslash and quote. The
// backslash pass runs first, so the backslash the quote pass adds is not
// doubled again: a\"b becomes a\\\"b. Running the passes in the other order
// would turn it into a\\\\"b, leaving the quote unescaped.
func quoteString(s string) string {
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}

package value

import (
	"testing"

	"github.com/FlintVN/FlintDebug/pkg/classloader"
	"github.com/FlintVN/FlintDebug/pkg/transport"
	"github.com/FlintVN/FlintDebug/pkg/wire"
)

func TestQuoteString(t *testing.T) {
	cases := map[string]string{
		"":        `""`,
		"hello":   `"hello"`,
		`a\b`:     `"a\\b"`,
		`a"b`:     `"a\"b"`,
		`a\"b`:    `"a\\\"b"`, // backslash escaped first, so the original \" survives as \\\"
	}
	for in, want := range cases {
		if got := quoteString(in); got != want {
			t.Errorf("quoteString(%q) = %q, want %q", in, got, want)
		}
	}
}

// stringifyTransport answers READ_FIELD for "coder"/"value"/"count" and
// READ_ARRAY for the backing byte array, enough to drive
// Materializer.TryMaterializeString end to end.
type stringifyTransport struct {
	onData     func([]byte)
	coder      byte
	byteValue  []byte
	count      int32 // used only when isBuilder
	arrayRef   uint32
}

func (s *stringifyTransport) Connect() error    { return nil }
func (s *stringifyTransport) Disconnect() error { return nil }
func (s *stringifyTransport) IsConnected() bool { return true }

func (s *stringifyTransport) Write(data []byte) bool {
	cmd := wire.MaskCommand(data[0])
	payload := data[4 : len(data)-2]

	var out []byte
	switch cmd {
	case wire.CmdReadField:
		ref := wire.Uint32LE(payload)
		_ = ref
		fieldName, _, _ := wire.ParseString(payload[4:])
		switch fieldName {
		case "coder":
			resp := make([]byte, 4)
			wire.PutUint32LE(resp, 1)
			resp = append(resp, s.coder, 0, 0, 0)
			out = okResponse(cmd, resp)
		case "value":
			resp := make([]byte, 4)
			wire.PutUint32LE(resp, uint32(len(s.byteValue)))
			ref := make([]byte, 4)
			wire.PutUint32LE(ref, s.arrayRef)
			resp = append(resp, ref...)
			out = okResponse(cmd, resp)
		case "count":
			resp := make([]byte, 4)
			wire.PutUint32LE(resp, 4)
			v := make([]byte, 4)
			wire.PutUint32LE(v, uint32(s.count))
			resp = append(resp, v...)
			out = okResponse(cmd, resp)
		}
	case wire.CmdReadArray:
		out = okResponse(cmd, s.byteValue)
	}
	if out != nil {
		s.onData(out)
	}
	return true
}

func (s *stringifyTransport) OnData(cb func([]byte)) { s.onData = cb }
func (s *stringifyTransport) OnError(func(error))    {}
func (s *stringifyTransport) OnClose(func())         {}

var _ transport.Transport = (*stringifyTransport)(nil)

func TestTryMaterializeString_Latin1(t *testing.T) {
	st := &stringifyTransport{coder: 0, byteValue: []byte("hi"), arrayRef: 0x10}
	gate := transport.NewGate(st)
	dec := NewDecoder(gate)

	cl := classloader.NewFakeClassLoader()
	cl.Classes["java/lang/String"] = &classloader.FakeLoader{Name: "java/lang/String"}
	mat := NewMaterializer(dec, cl)

	got, ok := mat.TryMaterializeString(0x1, "java/lang/String")
	if !ok {
		t.Fatalf("TryMaterializeString failed")
	}
	if got != `"hi"` {
		t.Fatalf("got %q, want %q", got, `"hi"`)
	}
}

func TestTryMaterializeString_UTF16(t *testing.T) {
	// "A" encoded as UTF-16LE: 0x41 0x00
	st := &stringifyTransport{coder: 1, byteValue: []byte{0x41, 0x00}, arrayRef: 0x10}
	gate := transport.NewGate(st)
	dec := NewDecoder(gate)

	cl := classloader.NewFakeClassLoader()
	cl.Classes["java/lang/String"] = &classloader.FakeLoader{Name: "java/lang/String"}
	mat := NewMaterializer(dec, cl)

	got, ok := mat.TryMaterializeString(0x1, "java/lang/String")
	if !ok {
		t.Fatalf("TryMaterializeString failed")
	}
	if got != `"A"` {
		t.Fatalf("got %q, want %q", got, `"A"`)
	}
}

func TestTryMaterializeString_NotAStringClass(t *testing.T) {
	st := &stringifyTransport{}
	gate := transport.NewGate(st)
	dec := NewDecoder(gate)

	cl := classloader.NewFakeClassLoader()
	cl.Classes["Main"] = &classloader.FakeLoader{Name: "Main"}
	mat := NewMaterializer(dec, cl)

	if _, ok := mat.TryMaterializeString(0x1, "Main"); ok {
		t.Fatalf("expected false for a class that is not a String/StringBuilder descendant")
	}
}

func TestTryMaterializeString_EmptyString(t *testing.T) {
	st := &stringifyTransport{coder: 0, byteValue: nil, arrayRef: 0x10}
	gate := transport.NewGate(st)
	dec := NewDecoder(gate)

	cl := classloader.NewFakeClassLoader()
	cl.Classes["java/lang/String"] = &classloader.FakeLoader{Name: "java/lang/String"}
	mat := NewMaterializer(dec, cl)

	got, ok := mat.TryMaterializeString(0x1, "java/lang/String")
	if !ok || got != `""` {
		t.Fatalf("got (%q, %v), want (\"\\\"\\\"\", true)", got, ok)
	}
}

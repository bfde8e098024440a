package stack

import (
	"reflect"
	"testing"

	"github.com/FlintVN/FlintDebug/pkg/classloader"
	"github.com/FlintVN/FlintDebug/pkg/wire"
)

func buildFrameResponse(frameIdx, pc uint32, class, method, descriptor string) []byte {
	buf := make([]byte, 0, 64)
	b4 := make([]byte, 4)
	wire.PutUint32LE(b4, frameIdx)
	buf = append(buf, b4...)
	wire.PutUint32LE(b4, pc)
	buf = append(buf, b4...)
	buf = append(buf, paddedField(class)...)
	buf = append(buf, paddedField(method)...)
	buf = append(buf, unterminatedField(descriptor)...)
	return buf
}

func paddedField(s string) []byte {
	b := []byte(s)
	out := make([]byte, 4, 4+len(b)+1)
	wire.PutUint16LE(out[0:2], uint16(len(b)))
	out = append(out, b...)
	out = append(out, 0x00)
	return out
}

func unterminatedField(s string) []byte {
	b := []byte(s)
	out := make([]byte, 4, 4+len(b))
	wire.PutUint16LE(out[0:2], uint16(len(b)))
	out = append(out, b...)
	return out
}

func TestDecodeFrame(t *testing.T) {
	cl := classloader.NewFakeClassLoader()
	cl.Lines["Foo.java:10"] = classloader.LineInfo{
		ClassName:  "Foo",
		MethodName: "main",
		Descriptor: "([Ljava/lang/String;)V",
		PC:         42,
		Line:       10,
		SourcePath: "Foo.java",
		Method: &classloader.MethodInfo{
			Locals: []classloader.LocalVar{
				{Name: "args", Descriptor: "[Ljava/lang/String;", Index: 0, StartPC: 0, Length: 100},
			},
		},
	}

	data := buildFrameResponse(0, 42, "Foo", "main", "([Ljava/lang/String;)V")
	frame, ok := decodeFrame(0, data, cl)
	if !ok {
		t.Fatalf("decodeFrame failed")
	}
	if frame.IsEndFrame {
		t.Fatalf("unexpected isEndFrame")
	}
	if frame.LineInfo.SourcePath != "Foo.java" {
		t.Fatalf("SourcePath = %q, want Foo.java", frame.LineInfo.SourcePath)
	}
	want := []classloader.LocalVar{{Name: "args", Descriptor: "[Ljava/lang/String;", Index: 0, StartPC: 0, Length: 100}}
	if !reflect.DeepEqual(frame.LocalVariables, want) {
		t.Fatalf("LocalVariables = %+v, want %+v", frame.LocalVariables, want)
	}
}

func TestDecodeFrame_IndexMismatch(t *testing.T) {
	cl := classloader.NewFakeClassLoader()
	data := buildFrameResponse(5, 42, "Foo", "main", "()V")
	if _, ok := decodeFrame(0, data, cl); ok {
		t.Fatalf("decodeFrame should fail when currentFrameIdx doesn't match frameID")
	}
}

func TestDecodeFrame_EndFrameBit(t *testing.T) {
	cl := classloader.NewFakeClassLoader()
	cl.Lines["Foo.java:1"] = classloader.LineInfo{
		ClassName: "Foo", MethodName: "main", Descriptor: "()V", PC: 1, SourcePath: "Foo.java",
	}
	data := buildFrameResponse(0x80000000, 1, "Foo", "main", "()V")
	frame, ok := decodeFrame(0, data, cl)
	if !ok {
		t.Fatalf("decodeFrame failed")
	}
	if !frame.IsEndFrame {
		t.Fatalf("expected isEndFrame to be set")
	}
}

func TestToDisplayFrame(t *testing.T) {
	f := Frame{
		FrameID: 0,
		LineInfo: classloader.LineInfo{
			ClassName:  "com/example/Foo",
			MethodName: "run",
			Descriptor: "(ILjava/lang/String;)V",
			PC:         7,
			SourcePath: "Foo.java",
		},
	}
	df := toDisplayFrame(f)
	if df.Source != "Foo.java" {
		t.Fatalf("Source = %q, want Foo.java", df.Source)
	}
	if df.Label != "Foo.run(int, String)" {
		t.Fatalf("Label = %q", df.Label)
	}
	if df.InstructionPointerReference != "7" {
		t.Fatalf("InstructionPointerReference = %q, want 7", df.InstructionPointerReference)
	}
}

package frame

import (
	"bytes"
	"testing"

	"github.com/FlintVN/FlintDebug/pkg/wire"
)

func TestEncodeDecodeOneRoundTrip(t *testing.T) {
	cases := []struct {
		cmd     wire.Command
		payload []byte
	}{
		{wire.CmdReadStatus, []byte{byte(wire.OK)}},
		{wire.CmdReadStatus, []byte{byte(wire.OK), 0x07}},
		{wire.CmdReadLocal, []byte{byte(wire.OK), 0x01, 0x02, 0x03, 0x04}},
	}
	for _, c := range cases {
		encoded := Encode(c.cmd, c.payload)
		resp, err := DecodeOne(encoded)
		if err != nil {
			t.Fatalf("DecodeOne(Encode(%v, %v)): %v", c.cmd, c.payload, err)
		}
		if resp.Cmd != c.cmd {
			t.Fatalf("Cmd = %v, want %v", resp.Cmd, c.cmd)
		}
		if resp.ResponseCode != wire.ResponseCode(c.payload[0]) {
			t.Fatalf("ResponseCode = %v, want %v", resp.ResponseCode, c.payload[0])
		}
		if !bytes.Equal(resp.Data, c.payload[1:]) {
			t.Fatalf("Data = %v, want %v", resp.Data, c.payload[1:])
		}
	}
}

func TestDecodeOne_CRCMismatch(t *testing.T) {
	encoded := Encode(wire.CmdReadStatus, []byte{byte(wire.OK)})
	encoded[len(encoded)-1] ^= 0xFF
	if _, err := DecodeOne(encoded); err == nil {
		t.Fatalf("expected a CRC mismatch error")
	}
}

func TestDecodeOne_TooShort(t *testing.T) {
	if _, err := DecodeOne([]byte{0x01, 0x02, 0x03}); err == nil {
		t.Fatalf("expected a too-short error")
	}
}

func TestDecodeOne_ResponseMarkerBitMasked(t *testing.T) {
	encoded := Encode(wire.CmdReadStatus, []byte{byte(wire.OK)})
	encoded[0] |= 0x80
	// The high bit is part of the CRC'd header, so flipping it after
	// encoding invalidates the CRC; rebuild the trailer to isolate the
	// masking behavior under test.
	total := len(encoded)
	crc := wire.AdditiveCRC16(encoded[:total-2])
	wire.PutUint16LE(encoded[total-2:], crc)

	resp, err := DecodeOne(encoded)
	if err != nil {
		t.Fatalf("DecodeOne: %v", err)
	}
	if resp.Cmd != wire.CmdReadStatus {
		t.Fatalf("Cmd = %#x, want the response-marker bit masked off (%#x)", resp.Cmd, wire.CmdReadStatus)
	}
}

// feedCollector drives a Decoder one byte at a time through Feed, the way
// a transport hands the decoder arbitrarily small chunks, and records every
// dispatched frame.
type feedCollector struct {
	frames []Response
}

func (c *feedCollector) onFrame(r Response) { c.frames = append(c.frames, r) }

func TestDecoder_FeedByteAtATime(t *testing.T) {
	c := &feedCollector{}
	d := NewDecoder(c.onFrame)

	encoded := Encode(wire.CmdReadConsole, []byte{byte(wire.OK), 'h', 'i'})
	for _, b := range encoded {
		d.Feed([]byte{b})
	}

	if len(c.frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(c.frames))
	}
	if c.frames[0].Cmd != wire.CmdReadConsole {
		t.Fatalf("Cmd = %v, want CmdReadConsole", c.frames[0].Cmd)
	}
	if !bytes.Equal(c.frames[0].Data, []byte("hi")) {
		t.Fatalf("Data = %q, want %q", c.frames[0].Data, "hi")
	}
}

func TestDecoder_FeedTwoFramesConcatenated(t *testing.T) {
	c := &feedCollector{}
	d := NewDecoder(c.onFrame)

	a := Encode(wire.CmdReadStatus, []byte{byte(wire.OK), 0x01})
	b := Encode(wire.CmdStepIn, []byte{byte(wire.OK)})
	d.Feed(append(append([]byte{}, a...), b...))

	if len(c.frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(c.frames))
	}
	if c.frames[0].Cmd != wire.CmdReadStatus || c.frames[1].Cmd != wire.CmdStepIn {
		t.Fatalf("frames = %+v", c.frames)
	}
}

func TestDecoder_DropsFrameWithBadCRCAndResyncs(t *testing.T) {
	c := &feedCollector{}
	d := NewDecoder(c.onFrame)

	bad := Encode(wire.CmdReadStatus, []byte{byte(wire.OK)})
	bad[len(bad)-1] ^= 0xFF
	good := Encode(wire.CmdStop, []byte{byte(wire.OK)})

	d.Feed(append(append([]byte{}, bad...), good...))

	if len(c.frames) != 1 {
		t.Fatalf("got %d frames, want 1 (the corrupt frame must be dropped silently)", len(c.frames))
	}
	if c.frames[0].Cmd != wire.CmdStop {
		t.Fatalf("surviving frame Cmd = %v, want CmdStop", c.frames[0].Cmd)
	}
}

func TestDecoder_ResyncsAfterCorruptLengthField(t *testing.T) {
	d := NewDecoder(nil)

	// A header whose declared length is beyond MaxPayloadLen must be
	// rejected and the decoder must drop exactly its oldest buffered byte
	// and keep waiting for a header, rather than getting stuck in stateBody
	// waiting for a length that will never arrive.
	d.Feed([]byte{0x01, 0xFF, 0xFF, 0xFF})

	if d.state != stateHeader {
		t.Fatalf("state = %v, want stateHeader after a corrupt length field", d.state)
	}
	if d.want != headerLen {
		t.Fatalf("want = %d, want headerLen (%d)", d.want, headerLen)
	}
	if len(d.buf) != 3 {
		t.Fatalf("buffered %d bytes after resync, want 3 (one byte dropped)", len(d.buf))
	}
}

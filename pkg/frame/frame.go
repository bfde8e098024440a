// Package frame implements the length-prefixed, CRC-checksummed packet
// framing: a byte-at-a-time decoder state machine in the spirit of the
// USOCK framing spoken over UART, adapted to this protocol's header layout
// (no sync bytes, a 24-bit little-endian length, and a single additive
// 16-bit CRC covering the whole packet rather than separate header/payload
// CRCs).
package frame

import (
	"fmt"

	"github.com/FlintVN/FlintDebug/pkg/wire"
)

// headerLen is cmd(1) + len(3).
const headerLen = 4

// trailerLen is the trailing CRC field.
const trailerLen = 2

// minPacketLen is the smallest legal packet: header + trailer + a single
// response-code payload byte.
const minPacketLen = headerLen + trailerLen + 1

// MaxPayloadLen bounds a single packet's total declared length (header,
// payload and trailer) to keep a corrupt length field from growing the
// accumulation buffer without bound.
const MaxPayloadLen = 1 << 16

// Response is a fully decoded, CRC-validated response frame.
type Response struct {
	Cmd          wire.Command
	ResponseCode wire.ResponseCode
	Data         []byte
}

// Encode builds the wire bytes for cmd with the given payload: the
// response-code byte (if any) is the caller's concern — payload here is
// exactly what follows the length field and precedes the CRC.
func Encode(cmd wire.Command, payload []byte) []byte {
	total := headerLen + len(payload) + trailerLen
	out := make([]byte, headerLen, total)
	out[0] = byte(cmd)
	wire.PutUint24LE(out[1:4], uint32(total))
	out = append(out, payload...)
	crc := wire.AdditiveCRC16(out)
	crcBuf := make([]byte, 2)
	wire.PutUint16LE(crcBuf, crc)
	return append(out, crcBuf...)
}

// decodeState names where the byte-at-a-time accumulator is in a packet.
type decodeState int

const (
	stateHeader decodeState = iota
	stateBody
)

// Decoder accumulates an arbitrary stream of byte chunks into complete,
// CRC-validated frames, byte by byte, driven by a length field instead of
// sync bytes.
type Decoder struct {
	state   decodeState
	buf     []byte
	want    int
	onFrame func(Response)
}

// NewDecoder creates a decoder that invokes onFrame for every frame whose
// CRC validates. Frames that fail CRC are silently dropped.
func NewDecoder(onFrame func(Response)) *Decoder {
	return &Decoder{
		state:   stateHeader,
		buf:     make([]byte, 0, 256),
		want:    headerLen,
		onFrame: onFrame,
	}
}

// Feed delivers a chunk of bytes as they arrive from the transport. It may
// be called with arbitrarily sized chunks, including single bytes or
// multiple frames concatenated together.
func (d *Decoder) Feed(chunk []byte) {
	for _, b := range chunk {
		d.buf = append(d.buf, b)
		if len(d.buf) < d.want {
			continue
		}
		switch d.state {
		case stateHeader:
			total := int(wire.Uint24LE(d.buf[1:4]))
			if total < minPacketLen || total > MaxPayloadLen {
				// Corrupt length field: resync by discarding this byte and
				// restarting header accumulation from the next one.
				d.resyncAfterBadHeader()
				continue
			}
			d.want = total
			d.state = stateBody
		case stateBody:
			d.tryDispatch()
		}
	}
}

// resyncAfterBadHeader drops the oldest buffered byte and keeps waiting for
// a header, resetting to the sync-search state on a malformed frame rather
// than dropping everything buffered so far.
func (d *Decoder) resyncAfterBadHeader() {
	d.buf = d.buf[1:]
	d.want = headerLen
	d.state = stateHeader
}

func (d *Decoder) tryDispatch() {
	total := len(d.buf)
	crcGot := wire.Uint16LE(d.buf[total-2:])
	crcWant := wire.AdditiveCRC16(d.buf[:total-2])
	if crcGot == crcWant {
		cmd := wire.MaskCommand(d.buf[0])
		payload := d.buf[headerLen : total-trailerLen]
		if len(payload) >= 1 {
			resp := Response{
				Cmd:          cmd,
				ResponseCode: wire.ResponseCode(payload[0]),
				Data:         append([]byte(nil), payload[1:]...),
			}
			if d.onFrame != nil {
				d.onFrame(resp)
			}
		}
	}
	d.buf = d.buf[:0]
	d.want = headerLen
	d.state = stateHeader
}

// DecodeOne is a non-streaming convenience, used by tests, to validate an
// already-complete, in-memory frame and extract its response fields.
func DecodeOne(raw []byte) (Response, error) {
	if len(raw) < minPacketLen {
		return Response{}, fmt.Errorf("frame: packet too short: %d bytes", len(raw))
	}
	total := int(wire.Uint24LE(raw[1:4]))
	if total != len(raw) {
		return Response{}, fmt.Errorf("frame: length field %d does not match buffer length %d", total, len(raw))
	}
	crcGot := wire.Uint16LE(raw[total-2:])
	crcWant := wire.AdditiveCRC16(raw[:total-2])
	if crcGot != crcWant {
		return Response{}, fmt.Errorf("frame: CRC mismatch: got 0x%04x want 0x%04x", crcGot, crcWant)
	}
	payload := raw[headerLen : total-trailerLen]
	if len(payload) < 1 {
		return Response{}, fmt.Errorf("frame: empty payload")
	}
	return Response{
		Cmd:          wire.MaskCommand(raw[0]),
		ResponseCode: wire.ResponseCode(payload[0]),
		Data:         append([]byte(nil), payload[1:]...),
	}, nil
}

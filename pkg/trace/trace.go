// Package trace records the raw wire traffic of a debug session as a
// stream of CBOR-encoded records, using github.com/fxamacker/cbor/v2 —
// here to capture a session for later offline replay or bug reports,
// rather than to speak to a device directly.
package trace

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/FlintVN/FlintDebug/pkg/transport"
)

// Direction names which side of the wire a recorded chunk crossed.
type Direction string

const (
	DirectionOut Direction = "out"
	DirectionIn  Direction = "in"
)

// Record is one CBOR-encoded trace entry.
type Record struct {
	Seq       uint64    `cbor:"seq"`
	Direction Direction `cbor:"dir"`
	Timestamp int64     `cbor:"ts"` // UnixNano
	Data      []byte    `cbor:"data"`
}

// Recorder serializes Records to w as a concatenated CBOR stream.
type Recorder struct {
	mu  sync.Mutex
	enc *cbor.Encoder
	seq uint64
}

// NewRecorder wraps w.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{enc: cbor.NewEncoder(w)}
}

// record appends one entry to the trace. Encode errors are logged rather
// than propagated — a tracing failure must never interrupt the session
// it is observing.
func (r *Recorder) record(dir Direction, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	rec := Record{
		Seq:       r.seq,
		Direction: dir,
		Timestamp: time.Now().UnixNano(),
		Data:      append([]byte(nil), data...),
	}
	if err := r.enc.Encode(rec); err != nil {
		log.Printf("trace: failed to encode record %d: %v", rec.Seq, fmt.Errorf("cbor encode: %w", err))
	}
}

// TracingTransport decorates a Transport, recording every byte written and
// every byte delivered through OnData without altering the wire traffic
// itself.
type TracingTransport struct {
	inner transport.Transport
	rec   *Recorder
}

// NewTracingTransport wraps inner, recording its traffic to rec.
func NewTracingTransport(inner transport.Transport, rec *Recorder) *TracingTransport {
	return &TracingTransport{inner: inner, rec: rec}
}

func (t *TracingTransport) Connect() error    { return t.inner.Connect() }
func (t *TracingTransport) Disconnect() error { return t.inner.Disconnect() }
func (t *TracingTransport) IsConnected() bool { return t.inner.IsConnected() }

func (t *TracingTransport) Write(data []byte) bool {
	t.rec.record(DirectionOut, data)
	return t.inner.Write(data)
}

func (t *TracingTransport) OnData(cb func([]byte)) {
	t.inner.OnData(func(chunk []byte) {
		t.rec.record(DirectionIn, chunk)
		cb(chunk)
	})
}

func (t *TracingTransport) OnError(cb func(error)) { t.inner.OnError(cb) }
func (t *TracingTransport) OnClose(cb func())      { t.inner.OnClose(cb) }

var _ transport.Transport = (*TracingTransport)(nil)

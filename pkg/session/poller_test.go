package session

import (
	"testing"

	"github.com/FlintVN/FlintDebug/pkg/frame"
	"github.com/FlintVN/FlintDebug/pkg/transport"
	"github.com/FlintVN/FlintDebug/pkg/wire"
)

// queuedTransport answers each Write with the next queued status byte,
// letting a test drive the poller through a scripted sequence of
// READ_STATUS responses without running its timer loop.
type queuedTransport struct {
	onData   func([]byte)
	statuses []byte
	idx      int
}

func (q *queuedTransport) Connect() error    { return nil }
func (q *queuedTransport) Disconnect() error { return nil }
func (q *queuedTransport) IsConnected() bool { return true }

func (q *queuedTransport) Write(data []byte) bool {
	cmd := wire.MaskCommand(data[0])
	if cmd != wire.CmdReadStatus {
		q.onData(frame.Encode(cmd, []byte{byte(wire.OK)}))
		return true
	}
	status := q.statuses[q.idx]
	q.idx++
	q.onData(frame.Encode(cmd, []byte{byte(wire.OK), status}))
	return true
}

func (q *queuedTransport) OnData(cb func([]byte)) { q.onData = cb }
func (q *queuedTransport) OnError(func(error))    {}
func (q *queuedTransport) OnClose(func())         {}

var _ transport.Transport = (*queuedTransport)(nil)

func TestPollStatus_StopOnException(t *testing.T) {
	qt := &queuedTransport{statuses: []byte{0x00, 0x07}}
	gate := transport.NewGate(qt)
	events := &Events{}

	invalidated := 0
	p := newPoller(gate, qt, events, func() { invalidated++ })

	var stopEvents []StopEvent
	events.OnStop(func(ev StopEvent) { stopEvents = append(stopEvents, ev) })

	p.pollStatus() // establishes baseline 0x00, no event
	if len(stopEvents) != 0 {
		t.Fatalf("baseline poll should not emit a stop event, got %+v", stopEvents)
	}

	p.pollStatus() // 0x00 -> 0x07 (STOP|STOP_SET|EXCP)
	if len(stopEvents) != 1 {
		t.Fatalf("expected exactly one stop event, got %d: %+v", len(stopEvents), stopEvents)
	}
	if stopEvents[0].Reason != "exception" {
		t.Fatalf("Reason = %q, want exception", stopEvents[0].Reason)
	}
	if invalidated != 1 {
		t.Fatalf("invalidateStack called %d times, want 1", invalidated)
	}
}

func TestPollStatus_NoEventWhenStopBitUnchanged(t *testing.T) {
	qt := &queuedTransport{statuses: []byte{0x08, 0x08}} // CONSOLE bit only, twice
	gate := transport.NewGate(qt)
	events := &Events{}
	p := newPoller(gate, qt, events, func() {})

	fired := false
	events.OnStop(func(StopEvent) { fired = true })

	p.pollStatus()
	p.pollStatus()
	if fired {
		t.Fatalf("no stop event expected when STOP bit is unchanged and STOP_SET is clear")
	}
}

func TestPollStatus_DiscardsResetFrame(t *testing.T) {
	qt := &queuedTransport{statuses: []byte{0x00, 0x80}} // second response has RESET set
	gate := transport.NewGate(qt)
	events := &Events{}
	p := newPoller(gate, qt, events, func() {})

	p.pollStatus()
	p.pollStatus()

	if !p.hasStatus || p.lastStatus != wire.Status(0x00) {
		t.Fatalf("a RESET-flagged response must be discarded, lastStatus = %v", p.lastStatus)
	}
}

package transport

import (
	"log"
	"sync"
	"time"

	"github.com/FlintVN/FlintDebug/pkg/frame"
	"github.com/FlintVN/FlintDebug/pkg/wire"
)

// DefaultTimeout is the per-request timeout used when the caller does not
// specify one.
const DefaultTimeout = 200 * time.Millisecond

// Gate serializes request/response traffic over a Transport through a
// binary semaphore, enforcing a single in-flight request at a time. It
// owns the frame decoder and dispatches fully decoded frames to whichever
// sendCmd call is currently waiting.
type Gate struct {
	t   Transport
	dec *frame.Decoder

	sem chan struct{}

	mu         sync.Mutex
	waiting    chan frame.Response
	waitingCmd wire.Command
}

// NewGate wires a Gate around t, installing the frame decoder as t's data
// handler. t must not already have a data handler registered.
func NewGate(t Transport) *Gate {
	g := &Gate{
		t:   t,
		sem: make(chan struct{}, 1),
	}
	g.dec = frame.NewDecoder(g.dispatch)
	t.OnData(g.dec.Feed)
	return g
}

func (g *Gate) dispatch(resp frame.Response) {
	g.mu.Lock()
	ch := g.waiting
	wantCmd := g.waitingCmd
	g.mu.Unlock()

	if ch == nil {
		// No request outstanding: a late response to an already-retired
		// request, or a spurious frame. Drop it.
		return
	}
	if resp.Cmd != wantCmd {
		log.Printf("transport: gate got response for cmd 0x%02x while awaiting 0x%02x, dropping", resp.Cmd, wantCmd)
		return
	}

	g.mu.Lock()
	// Another goroutine may have already retired this slot (timeout raced
	// the response); only deliver if we're still the current waiter.
	if g.waiting == ch {
		g.waiting = nil
	}
	g.mu.Unlock()

	select {
	case ch <- resp:
	default:
		// Receiver already gave up (timeout fired first); drop silently.
	}
}

// SendCmd serializes cmd/payload onto the wire and waits up to timeout for
// the matching response. It returns (response, true) on success and
// (zero, false) on write failure, timeout, or protocol mismatch.
func (g *Gate) SendCmd(cmd wire.Command, payload []byte, timeout time.Duration) (frame.Response, bool) {
	g.sem <- struct{}{}
	defer func() { <-g.sem }()

	respCh := make(chan frame.Response, 1)
	g.mu.Lock()
	g.waiting = respCh
	g.waitingCmd = cmd
	g.mu.Unlock()

	clear := func() {
		g.mu.Lock()
		if g.waiting == respCh {
			g.waiting = nil
		}
		g.mu.Unlock()
	}

	encoded := frame.Encode(cmd, payload)
	if !g.t.Write(encoded) {
		clear()
		return frame.Response{}, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-respCh:
		return resp, true
	case <-timer.C:
		clear()
		return frame.Response{}, false
	}
}

package session

import (
	"sync"
	"time"

	"github.com/FlintVN/FlintDebug/pkg/transport"
	"github.com/FlintVN/FlintDebug/pkg/wire"
)

const statusPollInterval = 100 * time.Millisecond
const consolePollInterval = 300 * time.Millisecond

// poller runs two self-rescheduling periodic tasks: READ_STATUS every
// 100ms with edge-detected stop events, and READ_CONSOLE every 300ms while
// the CONSOLE bit is set, with stdout events. Each task reschedules itself
// only after its previous round-trip completes (fixed delay, not fixed
// rate) and only while the transport still reports connected.
type poller struct {
	gate   *transport.Gate
	t      transport.Transport
	events *Events

	statusInterval  time.Duration
	consoleInterval time.Duration

	invalidateStack func()

	mu         sync.Mutex
	lastStatus wire.Status
	hasStatus  bool

	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func newPoller(gate *transport.Gate, t transport.Transport, events *Events, invalidateStack func()) *poller {
	return newPollerWithIntervals(gate, t, events, invalidateStack, statusPollInterval, consolePollInterval)
}

func newPollerWithIntervals(gate *transport.Gate, t transport.Transport, events *Events, invalidateStack func(), statusInterval, consoleInterval time.Duration) *poller {
	return &poller{
		gate:            gate,
		t:               t,
		events:          events,
		statusInterval:  statusInterval,
		consoleInterval: consoleInterval,
		invalidateStack: invalidateStack,
		stopCh:          make(chan struct{}),
	}
}

// start launches both polling loops. Call once per session lifetime.
func (p *poller) start() {
	p.wg.Add(2)
	go p.statusLoop()
	go p.consoleLoop()
}

// stop cancels both loops.
func (p *poller) stop() {
	p.once.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

func (p *poller) statusLoop() {
	defer p.wg.Done()
	for {
		if !p.t.IsConnected() {
			return
		}
		p.pollStatus()
		select {
		case <-p.stopCh:
			return
		case <-time.After(p.statusInterval):
		}
	}
}

func (p *poller) consoleLoop() {
	defer p.wg.Done()
	for {
		if !p.t.IsConnected() {
			return
		}
		p.mu.Lock()
		shouldPoll := p.hasStatus && p.lastStatus.Has(wire.StatusConsole)
		p.mu.Unlock()
		if shouldPoll {
			p.pollConsole()
		}
		select {
		case <-p.stopCh:
			return
		case <-time.After(p.consoleInterval):
		}
	}
}

func (p *poller) pollStatus() {
	resp, ok := p.gate.SendCmd(wire.CmdReadStatus, nil, transport.DefaultTimeout)
	if !ok || resp.ResponseCode != wire.OK || len(resp.Data) < 1 {
		return
	}
	newStatus := wire.Status(resp.Data[0])
	if newStatus.Has(wire.StatusReset) {
		return
	}

	p.mu.Lock()
	prev := p.lastStatus
	hadPrev := p.hasStatus
	p.lastStatus = newStatus
	p.hasStatus = true
	p.mu.Unlock()

	if !hadPrev {
		return
	}

	switch {
	case newStatus.Has(wire.StatusStopSet | wire.StatusStop):
		reason := ""
		if newStatus.Has(wire.StatusExcp) {
			reason = "exception"
		}
		p.invalidateStack()
		p.events.fireStop(StopEvent{Reason: reason})
	case prev.Has(wire.StatusStop) != newStatus.Has(wire.StatusStop) && newStatus.Has(wire.StatusStop):
		p.invalidateStack()
		p.events.fireStop(StopEvent{})
	}
}

// isStopped reports the target's last known STOP bit. Before the first
// status poll completes, no baseline exists and this conservatively
// reports false.
func (p *poller) isStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasStatus && p.lastStatus.Has(wire.StatusStop)
}

func (p *poller) pollConsole() {
	resp, ok := p.gate.SendCmd(wire.CmdReadConsole, nil, transport.DefaultTimeout)
	if !ok || resp.ResponseCode != wire.OK || len(resp.Data) == 0 {
		return
	}
	p.events.fireStdout(string(resp.Data))
}

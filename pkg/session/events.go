package session

import "sync"

// StopEvent carries the optional reason for a stop event: "exception" when
// the target stopped because of an uncaught exception, empty otherwise.
type StopEvent struct {
	Reason string
}

// Events is the session's event registry: exactly one handler per event
// kind, latest registration wins. Handlers are invoked from the poller's
// or transport's own callback goroutine, never synchronously from within a
// caller's session method.
type Events struct {
	mu       sync.Mutex
	onStop   func(StopEvent)
	onStdout func(string)
	onError  func(error)
	onClose  func()
}

// OnStop registers cb as the sole "stop" handler.
func (e *Events) OnStop(cb func(StopEvent)) {
	e.mu.Lock()
	e.onStop = cb
	e.mu.Unlock()
}

// OnStdout registers cb as the sole "stdout" handler.
func (e *Events) OnStdout(cb func(string)) {
	e.mu.Lock()
	e.onStdout = cb
	e.mu.Unlock()
}

// OnError registers cb as the sole "error" handler.
func (e *Events) OnError(cb func(error)) {
	e.mu.Lock()
	e.onError = cb
	e.mu.Unlock()
}

// OnClose registers cb as the sole "close" handler.
func (e *Events) OnClose(cb func()) {
	e.mu.Lock()
	e.onClose = cb
	e.mu.Unlock()
}

func (e *Events) fireStop(ev StopEvent) {
	e.mu.Lock()
	cb := e.onStop
	e.mu.Unlock()
	if cb != nil {
		cb(ev)
	}
}

func (e *Events) fireStdout(text string) {
	e.mu.Lock()
	cb := e.onStdout
	e.mu.Unlock()
	if cb != nil {
		cb(text)
	}
}

func (e *Events) fireError(err error) {
	e.mu.Lock()
	cb := e.onError
	e.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

func (e *Events) fireClose() {
	e.mu.Lock()
	cb := e.onClose
	e.mu.Unlock()
	if cb != nil {
		cb()
	}
}

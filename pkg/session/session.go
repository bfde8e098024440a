// Package session implements the session facade and the status/console
// poller, wiring the transport gate, breakpoint reconciler, stack walker,
// value decoder, and variable-reference table into the public debug-session
// API.
package session

import (
	"time"

	"github.com/FlintVN/FlintDebug/pkg/breakpoint"
	"github.com/FlintVN/FlintDebug/pkg/classloader"
	"github.com/FlintVN/FlintDebug/pkg/install"
	"github.com/FlintVN/FlintDebug/pkg/stack"
	"github.com/FlintVN/FlintDebug/pkg/transport"
	"github.com/FlintVN/FlintDebug/pkg/value"
	"github.com/FlintVN/FlintDebug/pkg/varref"
	"github.com/FlintVN/FlintDebug/pkg/wire"
)

// restartTimeout and terminateTimeout are the two operations called out
// with a longer-than-default timeout.
const restartTimeout = 5 * time.Second
const terminateTimeout = 5 * time.Second

// Session is the public debug-session facade, constructed around an
// already-created Transport.
type Session struct {
	t      transport.Transport
	gate   *transport.Gate
	events *Events
	poller *poller

	walker *stack.Walker
	bp     *breakpoint.Reconciler
	dec    *value.Decoder
	mat    *value.Materializer
	refs   *varref.Table
	inst   *install.Installer
}

// New constructs a Session around t, resolving class metadata through cl,
// using the default poll intervals (100ms status, 300ms console). Connect
// must be called before issuing any operation.
func New(t transport.Transport, cl classloader.ClassLoader) *Session {
	return NewWithPollIntervals(t, cl, statusPollInterval, consolePollInterval)
}

// NewWithPollIntervals is New with caller-supplied poll intervals, for
// deployments that need to trade status/console latency against traffic on
// constrained transports.
func NewWithPollIntervals(t transport.Transport, cl classloader.ClassLoader, statusInterval, consoleInterval time.Duration) *Session {
	gate := transport.NewGate(t)
	events := &Events{}
	walker := stack.New(gate, cl)
	dec := value.NewDecoder(gate)
	mat := value.NewMaterializer(dec, cl)

	s := &Session{
		t:      t,
		gate:   gate,
		events: events,
		walker: walker,
		bp:     breakpoint.New(gate, cl),
		dec:    dec,
		mat:    mat,
		refs:   varref.New(dec, mat, cl),
		inst:   install.New(gate),
	}
	s.poller = newPollerWithIntervals(gate, t, events, walker.Invalidate, statusInterval, consoleInterval)
	return s
}

// Connect opens the transport and starts the status/console pollers.
func (s *Session) Connect() error {
	if err := s.t.Connect(); err != nil {
		return err
	}
	s.t.OnError(s.events.fireError)
	s.t.OnClose(s.events.fireClose)
	s.poller.start()
	return nil
}

// Disconnect cancels both poll tasks and closes the transport.
func (s *Session) Disconnect() error {
	s.poller.stop()
	return s.t.Disconnect()
}

// OnStop registers the sole "stop" event handler.
func (s *Session) OnStop(cb func(StopEvent)) { s.events.OnStop(cb) }

// OnStdout registers the sole "stdout" event handler.
func (s *Session) OnStdout(cb func(string)) { s.events.OnStdout(cb) }

// OnError registers the sole "error" event handler.
func (s *Session) OnError(cb func(error)) { s.events.OnError(cb) }

// OnClose registers the sole "close" event handler.
func (s *Session) OnClose(cb func()) { s.events.OnClose(cb) }

// IsStopped reports the target's last known STOP state.
func (s *Session) IsStopped() bool { return s.poller.isStopped() }

// Run issues RUN unless the target is already running.
func (s *Session) Run() bool {
	if !s.IsStopped() {
		return true
	}
	resp, ok := s.gate.SendCmd(wire.CmdRun, nil, transport.DefaultTimeout)
	if !ok || resp.ResponseCode != wire.OK {
		return false
	}
	s.walker.Invalidate()
	return true
}

// Stop issues STOP unless the target is already stopped.
func (s *Session) Stop() bool {
	if s.IsStopped() {
		return true
	}
	resp, ok := s.gate.SendCmd(wire.CmdStop, nil, transport.DefaultTimeout)
	if !ok || resp.ResponseCode != wire.OK {
		return false
	}
	s.walker.Invalidate()
	return true
}

func (s *Session) step(cmd wire.Command, useCodeLengthHint bool) bool {
	var hint uint32
	if useCodeLengthHint {
		if frames := s.walker.Frames(); len(frames) > 0 {
			hint = frames[0].LineInfo.CodeLength
		}
	}
	payload := make([]byte, 4)
	wire.PutUint32LE(payload, hint)

	resp, ok := s.gate.SendCmd(cmd, payload, transport.DefaultTimeout)
	s.walker.Invalidate()
	return ok && resp.ResponseCode == wire.OK
}

// StepIn issues STEP_IN with the current top frame's codeLength as a hint.
func (s *Session) StepIn() bool { return s.step(wire.CmdStepIn, true) }

// StepOver issues STEP_OVER with the current top frame's codeLength as a hint.
func (s *Session) StepOver() bool { return s.step(wire.CmdStepOver, true) }

// StepOut issues STEP_OUT with a zero hint.
func (s *Session) StepOut() bool { return s.step(wire.CmdStepOut, false) }

// Restart issues RESTART with the given main class, 5s timeout.
func (s *Session) Restart(mainClass string) bool {
	resp, ok := s.gate.SendCmd(wire.CmdRestart, wire.PutString(mainClass), restartTimeout)
	return ok && resp.ResponseCode == wire.OK
}

// Terminate issues TERMINATE, 5s timeout.
func (s *Session) Terminate(includeDebugger bool) bool {
	var b byte
	if includeDebugger {
		b = 1
	}
	resp, ok := s.gate.SendCmd(wire.CmdTerminate, []byte{b}, terminateTimeout)
	return ok && resp.ResponseCode == wire.OK
}

// SetBreakpoints reconciles source's breakpoints to lines.
func (s *Session) SetBreakpoints(lines []uint32, source string) bool {
	return s.bp.SetBreakpoints(lines, source)
}

// SetExceptionBreakpoints toggles SET_EXCP_MODE.
func (s *Session) SetExceptionBreakpoints(enabled bool) bool {
	return s.bp.SetExceptionBreakpoints(enabled)
}

// ReadExceptionInfo issues READ_EXCP_INFO.
func (s *Session) ReadExceptionInfo() (breakpoint.ExceptionInfo, bool) {
	return s.bp.ReadExceptionInfo()
}

// StackFrameRequest returns the cached, front-end-shaped stack trace.
func (s *Session) StackFrameRequest() ([]stack.DisplayFrame, bool) {
	return s.walker.StackFrameRequest()
}

// ReadLocalVariables clears the variable-reference table and decodes
// frameID's locals. It fails if frameID names no known frame.
func (s *Session) ReadLocalVariables(frameID uint32) ([]varref.FrontEndVar, bool) {
	frame, ok := s.walker.FrameByID(frameID)
	if !ok {
		s.refs.Clear()
		return nil, false
	}
	return s.refs.ReadLocalVariables(frameID, frame.LocalVariables), true
}

// ReadVariable expands a variable-reference handle.
func (s *Session) ReadVariable(reference uint32) ([]varref.FrontEndVar, bool) {
	return s.refs.ReadVariable(reference)
}

// InstallFile uploads data as fileName.
func (s *Session) InstallFile(fileName string, data []byte, progress func(offset, total int)) bool {
	return s.inst.Install(fileName, data, progress)
}

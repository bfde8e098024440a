// Package breakpoint implements the breakpoint reconciler: diffing a
// requested line set against the device-acknowledged set and issuing the
// minimal ADD_BKP/REMOVE_BKP traffic to converge, plus the exception-
// breakpoint toggle and info readback.
package breakpoint

import (
	"strings"
	"sync"

	"github.com/FlintVN/FlintDebug/pkg/classloader"
	"github.com/FlintVN/FlintDebug/pkg/transport"
	"github.com/FlintVN/FlintDebug/pkg/wire"
)

// Breakpoint is one entry of the device-acknowledged set.
type Breakpoint struct {
	SourcePath string
	Line       uint32
	ClassName  string
	MethodName string
	Descriptor string
	PC         uint32
}

// ExceptionInfo is a parsed READ_EXCP_INFO response.
type ExceptionInfo struct {
	TypeName string
	Message  string
}

// Reconciler owns the authoritative currentBreakpoints set and converges it
// to whatever setBreakpoints last requested.
type Reconciler struct {
	gate *transport.Gate
	cl   classloader.ClassLoader

	mu      sync.Mutex
	current []Breakpoint
}

// New wraps gate and cl.
func New(gate *transport.Gate, cl classloader.ClassLoader) *Reconciler {
	return &Reconciler{gate: gate, cl: cl}
}

// Current returns a snapshot of the acknowledged breakpoint set.
func (r *Reconciler) Current() []Breakpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Breakpoint, len(r.current))
	copy(out, r.current)
	return out
}

// SetBreakpoints reconciles sourcePath's breakpoints to exactly lines.
// It issues REMOVE_BKP for lines no longer requested, then ADD_BKP
// for newly requested ones; any failure — a wire failure or an unresolved
// line — short-circuits and returns false, leaving currentBreakpoints as
// whatever was actually acknowledged so far.
func (r *Reconciler) SetBreakpoints(lines []uint32, sourcePath string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := make(map[uint32]bool, len(lines))
	for _, l := range lines {
		wanted[l] = true
	}

	var toRemove []Breakpoint
	var kept []Breakpoint
	existing := make(map[uint32]bool)
	for _, bp := range r.current {
		if bp.SourcePath != sourcePath {
			kept = append(kept, bp)
			continue
		}
		if wanted[bp.Line] {
			kept = append(kept, bp)
			existing[bp.Line] = true
		} else {
			toRemove = append(toRemove, bp)
		}
	}

	for i, bp := range toRemove {
		payload := buildBkpPayload(bp.PC, bp.ClassName, bp.MethodName, bp.Descriptor)
		resp, ok := r.gate.SendCmd(wire.CmdRemoveBkp, payload, transport.DefaultTimeout)
		if !ok || resp.ResponseCode != wire.OK {
			r.current = append(kept, toRemove[i:]...)
			return false
		}
	}
	r.current = kept

	for _, line := range lines {
		if existing[line] {
			continue
		}
		li, ok := r.cl.LineInfoFromLine(line, sourcePath)
		if !ok {
			return false
		}
		className := strings.ReplaceAll(li.ClassName, `\`, "/")

		payload := buildBkpPayload(li.PC, className, li.MethodName, li.Descriptor)
		resp, ok := r.gate.SendCmd(wire.CmdAddBkp, payload, transport.DefaultTimeout)
		if !ok || resp.ResponseCode != wire.OK {
			return false
		}

		r.current = append(r.current, Breakpoint{
			SourcePath: sourcePath,
			Line:       line,
			ClassName:  className,
			MethodName: li.MethodName,
			Descriptor: li.Descriptor,
			PC:         li.PC,
		})
	}

	return true
}

// RemoveAll issues REMOVE_ALL_BKP, unconditionally clearing the
// device-side set on success.
func (r *Reconciler) RemoveAll() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	resp, ok := r.gate.SendCmd(wire.CmdRemoveAllBkp, nil, transport.DefaultTimeout)
	if !ok || resp.ResponseCode != wire.OK {
		return false
	}
	r.current = nil
	return true
}

// SetExceptionBreakpoints toggles SET_EXCP_MODE.
func (r *Reconciler) SetExceptionBreakpoints(enabled bool) bool {
	var b byte
	if enabled {
		b = 1
	}
	resp, ok := r.gate.SendCmd(wire.CmdSetExcpMode, []byte{b}, transport.DefaultTimeout)
	return ok && resp.ResponseCode == wire.OK
}

// ReadExceptionInfo issues READ_EXCP_INFO and decodes its
// `typeName, message` padded-string pair.
func (r *Reconciler) ReadExceptionInfo() (ExceptionInfo, bool) {
	resp, ok := r.gate.SendCmd(wire.CmdReadExcpInfo, nil, transport.DefaultTimeout)
	if !ok || resp.ResponseCode != wire.OK {
		return ExceptionInfo{}, false
	}

	typeName, n, err := wire.ParsePaddedString(resp.Data)
	if err != nil {
		return ExceptionInfo{}, false
	}
	message, _, err := wire.ParsePaddedString(resp.Data[n:])
	if err != nil {
		return ExceptionInfo{}, false
	}
	return ExceptionInfo{TypeName: typeName, Message: message}, true
}

func buildBkpPayload(pc uint32, className, methodName, descriptor string) []byte {
	buf := make([]byte, 4, 4+wire.StringLen(className)+wire.StringLen(methodName)+wire.StringLen(descriptor))
	wire.PutUint32LE(buf, pc)
	buf = append(buf, wire.PutString(className)...)
	buf = append(buf, wire.PutString(methodName)...)
	buf = append(buf, wire.PutString(descriptor)...)
	return buf
}

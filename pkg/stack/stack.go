// Package stack implements the stack walker: decoding READ_STACK_TRACE
// responses into frames, filtering each frame's local-variable table to the
// entries in scope at its pc, and assembling the cached, front-end-shaped
// stack trace.
package stack

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/FlintVN/FlintDebug/pkg/classloader"
	"github.com/FlintVN/FlintDebug/pkg/transport"
	"github.com/FlintVN/FlintDebug/pkg/value"
	"github.com/FlintVN/FlintDebug/pkg/wire"
)

// Frame is one decoded stack level.
type Frame struct {
	FrameID        uint32
	LineInfo       classloader.LineInfo
	IsEndFrame     bool
	LocalVariables []classloader.LocalVar
}

// DisplayFrame is the front-end-shaped rendering of a Frame.
type DisplayFrame struct {
	FrameID                     uint32
	Source                      string
	Label                       string
	InstructionPointerReference string
}

// Walker issues READ_STACK_TRACE and caches the resulting trace until
// Invalidate is called.
type Walker struct {
	gate *transport.Gate
	cl   classloader.ClassLoader

	mu           sync.Mutex
	cachedFrames []Frame
	hasCached    bool
}

// New wraps gate and cl.
func New(gate *transport.Gate, cl classloader.ClassLoader) *Walker {
	return &Walker{gate: gate, cl: cl}
}

// Invalidate discards the cached trace. The session facade calls this on
// every status change to stopped, on run, on stop, and on any step.
func (w *Walker) Invalidate() {
	w.mu.Lock()
	w.hasCached = false
	w.cachedFrames = nil
	w.mu.Unlock()
}

// ReadStackFrame issues READ_STACK_TRACE for frameID and decodes the
// response.
func (w *Walker) ReadStackFrame(frameID uint32) (Frame, bool) {
	payload := make([]byte, 4)
	wire.PutUint32LE(payload, frameID)

	resp, ok := w.gate.SendCmd(wire.CmdReadStackTrace, payload, transport.DefaultTimeout)
	if !ok || resp.ResponseCode != wire.OK {
		return Frame{}, false
	}
	return decodeFrame(frameID, resp.Data, w.cl)
}

func decodeFrame(frameID uint32, data []byte, cl classloader.ClassLoader) (Frame, bool) {
	if len(data) < 8 {
		return Frame{}, false
	}
	currentFrameIdx := wire.Uint32LE(data)
	pc := wire.Uint32LE(data[4:])
	if currentFrameIdx&0x7FFFFFFF != frameID {
		return Frame{}, false
	}
	isEndFrame := currentFrameIdx&0x80000000 != 0

	rest := data[8:]
	className, n, err := wire.ParsePaddedString(rest)
	if err != nil {
		return Frame{}, false
	}
	rest = rest[n:]

	methodName, n, err := wire.ParsePaddedString(rest)
	if err != nil {
		return Frame{}, false
	}
	rest = rest[n:]

	descriptor, _, err := wire.ParsePaddedStringRaw(rest)
	if err != nil {
		return Frame{}, false
	}

	li, ok := cl.LineInfoFromPc(pc, className, methodName, descriptor)
	if !ok || li.SourcePath == "" {
		return Frame{}, false
	}

	var locals []classloader.LocalVar
	if li.Method != nil {
		for _, lv := range li.Method.Locals {
			if lv.InScope(pc) {
				locals = append(locals, lv)
			}
		}
	}

	return Frame{
		FrameID:        frameID,
		LineInfo:       li,
		IsEndFrame:     isEndFrame,
		LocalVariables: locals,
	}, true
}

// Frames returns the raw, walked frame list, walking the target and
// caching the result if it isn't already cached.
func (w *Walker) Frames() []Frame {
	w.mu.Lock()
	if w.hasCached {
		cached := w.cachedFrames
		w.mu.Unlock()
		return cached
	}
	w.mu.Unlock()

	var out []Frame
	for id := uint32(0); ; id++ {
		frame, ok := w.ReadStackFrame(id)
		if !ok {
			break
		}
		out = append(out, frame)
		if frame.IsEndFrame {
			break
		}
	}

	w.mu.Lock()
	w.cachedFrames = out
	w.hasCached = true
	w.mu.Unlock()

	return out
}

// FrameByID returns the cached/walked frame with the given id.
func (w *Walker) FrameByID(frameID uint32) (Frame, bool) {
	for _, f := range w.Frames() {
		if f.FrameID == frameID {
			return f, true
		}
	}
	return Frame{}, false
}

// StackFrameRequest walks frames starting at 0 until isEndFrame or a frame
// whose LineInfo has no resolvable source is reached, caching the result
// until Invalidate, and renders each into its front-end-shaped form.
func (w *Walker) StackFrameRequest() ([]DisplayFrame, bool) {
	frames := w.Frames()
	out := make([]DisplayFrame, 0, len(frames))
	for _, f := range frames {
		out = append(out, toDisplayFrame(f))
	}
	return out, true
}

func toDisplayFrame(f Frame) DisplayFrame {
	li := f.LineInfo
	shortClass := value.ShortClassName(li.ClassName)

	params := value.ParseParamTypes(li.Descriptor)
	paramNames := make([]string, 0, len(params))
	for _, p := range params {
		paramNames = append(paramNames, value.SimpleName(p))
	}

	label := fmt.Sprintf("%s.%s(%s)", shortClass, li.MethodName, strings.Join(paramNames, ", "))
	source := li.ClassName + ".java"
	if idx := strings.LastIndexAny(li.ClassName, "/."); idx >= 0 {
		source = li.ClassName[idx+1:] + ".java"
	}

	return DisplayFrame{
		FrameID:                     f.FrameID,
		Source:                      source,
		Label:                      label,
		InstructionPointerReference: strconv.FormatUint(uint64(li.PC), 10),
	}
}

// Package classloader defines the class-file metadata service the
// debug-session core consumes: line-table resolution, field lists, and
// local-variable scoping. The core never parses class files itself — it
// is handed a ClassLoader and only calls through this interface.
package classloader

// LocalVar is one entry of a method's local-variable table.
type LocalVar struct {
	Name       string
	Descriptor string
	Index      uint16
	StartPC    uint32
	Length     uint32
}

// InScope reports whether pc falls within this local's declared scope
// [StartPC, StartPC+Length).
func (l LocalVar) InScope(pc uint32) bool {
	return pc >= l.StartPC && pc < l.StartPC+l.Length
}

// FieldInfo describes one field of a class.
type FieldInfo struct {
	Name        string
	Descriptor  string
	AccessFlags uint16
}

// MethodInfo carries the per-method metadata a LineInfo needs beyond the
// single (class, method, descriptor, pc, line) tuple: its code length and
// its local-variable table (used by the stack walker to filter locals in
// scope). The stepIn/stepOver hint is read from LineInfo.CodeLength, not
// from this CodeLength.
type MethodInfo struct {
	CodeLength uint32
	Locals     []LocalVar
}

// LineInfo binds a source line to its resolved (class, method, descriptor,
// pc) location.
type LineInfo struct {
	ClassName  string
	MethodName string
	Descriptor string
	PC         uint32
	Line       uint32
	SourcePath string
	CodeLength uint32
	Method     *MethodInfo
}

// Loader is the per-class handle returned by ClassLoader.Load.
type Loader interface {
	// ThisClass returns the fully-qualified, '/'-separated name of the
	// loaded class.
	ThisClass() string
	// IsClassOf reports whether this class is, or descends from, name —
	// used by the value decoder's string-materialization check.
	IsClassOf(name string) bool
	// GetFieldList returns the class's non-static instance fields,
	// including inherited ones when includeInherited is true.
	GetFieldList(includeInherited bool) ([]FieldInfo, error)
}

// ClassLoader is the external class-file metadata service. A single
// instance may be shared across sessions; implementations must be
// side-effect-free under concurrent access since the core never mutates it.
type ClassLoader interface {
	Load(className string) (Loader, error)
	// LineInfoFromLine resolves a source line to its bytecode location.
	// The bool result is false when the line has no resolvable code (e.g.
	// a blank or comment-only line), which the breakpoint reconciler
	// surfaces as a failed add.
	LineInfoFromLine(line uint32, sourcePath string) (LineInfo, bool)
	// LineInfoFromPc resolves a (class, method, descriptor, pc) location
	// back to its source line, used by the stack walker.
	LineInfoFromPc(pc uint32, className, methodName, descriptor string) (LineInfo, bool)
}

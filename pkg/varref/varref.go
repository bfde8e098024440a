// Package varref implements the variable-reference table: a
// session-scoped map from an on-device object/array handle to enough
// metadata to expand it lazily into its fields or elements.
package varref

import (
	"fmt"
	"strings"
	"sync"

	"github.com/FlintVN/FlintDebug/pkg/classloader"
	"github.com/FlintVN/FlintDebug/pkg/value"
)

// FrontEndVar is the `{name, value, variablesReference}` shape the UI side
// of the protocol consumes. VariablesReference == 0 marks a leaf.
type FrontEndVar struct {
	Name               string
	Value              string
	VariablesReference uint32
}

type entry struct {
	Descriptor string // the array/object descriptor, e.g. "[I", "Ljava/lang/Object;"
	TypeName   string // resolved class name; empty if never determined
	Size       uint32 // byte size, meaningful for arrays
}

// Table holds the current readVariable handles. It is cleared at the
// start of every readLocalVariables call and repopulated as batches of
// locals, fields, or array elements are decoded.
type Table struct {
	mu  sync.Mutex
	dec *value.Decoder
	mat *value.Materializer
	cl  classloader.ClassLoader

	entries map[uint32]entry
}

// New wraps the decoder, materializer, and class loader the table needs to
// expand handles.
func New(dec *value.Decoder, mat *value.Materializer, cl classloader.ClassLoader) *Table {
	return &Table{
		dec:     dec,
		mat:     mat,
		cl:      cl,
		entries: make(map[uint32]entry),
	}
}

// Clear discards every registered handle.
func (t *Table) Clear() {
	t.mu.Lock()
	t.entries = make(map[uint32]entry)
	t.mu.Unlock()
}

// ReadLocalVariables clears the table, then reads each of locals out of
// frameID via READ_LOCAL, registering non-leaf results in the table. A
// local that fails to read is substituted with a "not available"
// placeholder rather than failing the whole batch.
func (t *Table) ReadLocalVariables(frameID uint32, locals []classloader.LocalVar) []FrontEndVar {
	t.Clear()

	out := make([]FrontEndVar, 0, len(locals))
	for _, local := range locals {
		vi, ok := t.dec.ReadLocal(frameID, uint32(local.Index), local.Name, local.Descriptor)
		if !ok {
			out = append(out, FrontEndVar{Name: local.Name, Value: "not available", VariablesReference: 0})
			continue
		}
		out = append(out, t.resolveValueInfo(vi))
	}
	return out
}

// ReadVariable expands reference: arrays are walked via READ_ARRAY,
// objects via their non-static field list and READ_FIELD. The bool result
// is false for an unknown or primitive handle.
func (t *Table) ReadVariable(reference uint32) ([]FrontEndVar, bool) {
	t.mu.Lock()
	e, ok := t.entries[reference]
	t.mu.Unlock()
	if !ok || !value.IsReference(e.Descriptor) {
		return nil, false
	}

	if strings.HasPrefix(e.Descriptor, "[") {
		return t.expandArray(reference, e)
	}
	return t.expandObject(reference, e)
}

func (t *Table) expandArray(reference uint32, e entry) ([]FrontEndVar, bool) {
	elemDesc := value.ElementDescriptor(e.Descriptor)
	elemSize := value.ElementSize(elemDesc)
	if elemSize == 0 {
		return nil, false
	}
	count := e.Size / elemSize

	elements, ok := t.dec.ReadArray(reference, elemDesc, 0, count)
	if !ok {
		return nil, false
	}

	out := make([]FrontEndVar, 0, len(elements))
	for _, el := range elements {
		name := fmt.Sprintf("[%d]", el.Index)
		if el.Reference != 0 {
			out = append(out, t.resolveReference(name, el.Reference, elemDesc, ""))
		} else {
			out = append(out, FrontEndVar{Name: name, Value: el.Value, VariablesReference: 0})
		}
	}
	return out, true
}

func (t *Table) expandObject(reference uint32, e entry) ([]FrontEndVar, bool) {
	if e.TypeName == "" {
		return nil, false
	}
	loader, err := t.cl.Load(e.TypeName)
	if err != nil {
		return nil, false
	}
	fields, err := loader.GetFieldList(true)
	if err != nil {
		return nil, false
	}

	out := make([]FrontEndVar, 0, len(fields))
	for _, f := range fields {
		vi, ok := t.dec.ReadField(reference, f.Name, f.Descriptor)
		if !ok {
			out = append(out, FrontEndVar{Name: f.Name, Value: "not available", VariablesReference: 0})
			continue
		}
		out = append(out, t.resolveValueInfo(vi))
	}
	return out, true
}

// resolveValueInfo converts a decoded local/field into its front-end shape,
// attempting string materialization and registering the handle in the
// table when the value is an unresolved, non-string reference.
func (t *Table) resolveValueInfo(vi value.ValueInfo) FrontEndVar {
	if vi.IsLeaf() {
		return FrontEndVar{Name: vi.Name, Value: vi.Value, VariablesReference: 0}
	}

	if vi.TypeName != "" {
		if s, ok := t.mat.TryMaterializeString(vi.Reference, vi.TypeName); ok {
			return FrontEndVar{Name: vi.Name, Value: s, VariablesReference: 0}
		}
	}

	t.mu.Lock()
	t.entries[vi.Reference] = entry{Descriptor: vi.Type, TypeName: vi.TypeName, Size: vi.Size}
	t.mu.Unlock()

	return FrontEndVar{Name: vi.Name, Value: vi.Value, VariablesReference: vi.Reference}
}

// resolveReference handles a bare reference with no display value attached
// yet (an array element): it resolves the type via READ_SIZE_AND_TYPE,
// attempts string materialization, and otherwise registers it and builds
// its display name.
func (t *Table) resolveReference(name string, reference uint32, descriptor, typeName string) FrontEndVar {
	var size uint32
	if typeName == "" {
		if sat, ok := t.dec.ReadSizeAndType(reference); ok {
			typeName = sat.TypeName
			size = sat.Size
		}
	}

	if typeName != "" {
		if s, ok := t.mat.TryMaterializeString(reference, typeName); ok {
			return FrontEndVar{Name: name, Value: s, VariablesReference: 0}
		}
	}

	display := value.SimpleName(descriptor)
	if typeName != "" {
		display = value.ShortClassName(typeName)
	}

	t.mu.Lock()
	t.entries[reference] = entry{Descriptor: descriptor, TypeName: typeName, Size: size}
	t.mu.Unlock()

	return FrontEndVar{
		Name:               name,
		Value:              display + fmt.Sprintf("@0x%x", reference),
		VariablesReference: reference,
	}
}

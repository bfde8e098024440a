package classloader

import "strings"

// FakeClassLoader is a trivial in-memory ClassLoader used by this module's
// own tests (and usable by a caller's integration tests) to stand in for
// the real class-file-parsing service. cmd/flintdebug also wires it, behind
// a CachingClassLoader, since this module has no real implementation.
type FakeClassLoader struct {
	// Lines maps "sourcePath:line" to a resolved LineInfo.
	Lines map[string]LineInfo
	// Classes maps a class name to its fake Loader.
	Classes map[string]*FakeLoader
}

// NewFakeClassLoader creates an empty FakeClassLoader.
func NewFakeClassLoader() *FakeClassLoader {
	return &FakeClassLoader{
		Lines:   make(map[string]LineInfo),
		Classes: make(map[string]*FakeLoader),
	}
}

// AddLine registers the resolution for sourcePath:line.
func (f *FakeClassLoader) AddLine(sourcePath string, line uint32, li LineInfo) {
	f.Lines[lineKey(sourcePath, line)] = li
}

func lineKey(sourcePath string, line uint32) string {
	var b strings.Builder
	b.WriteString(sourcePath)
	b.WriteByte(':')
	b.WriteString(itoa(line))
	return b.String()
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

func (f *FakeClassLoader) Load(className string) (Loader, error) {
	if l, ok := f.Classes[className]; ok {
		return l, nil
	}
	return nil, &notFoundError{className}
}

func (f *FakeClassLoader) LineInfoFromLine(line uint32, sourcePath string) (LineInfo, bool) {
	li, ok := f.Lines[lineKey(sourcePath, line)]
	return li, ok
}

func (f *FakeClassLoader) LineInfoFromPc(pc uint32, className, methodName, descriptor string) (LineInfo, bool) {
	for _, li := range f.Lines {
		if li.PC == pc && li.ClassName == className && li.MethodName == methodName && li.Descriptor == descriptor {
			return li, true
		}
	}
	return LineInfo{}, false
}

type notFoundError struct{ className string }

func (e *notFoundError) Error() string { return "classloader: class not found: " + e.className }

// FakeLoader is FakeClassLoader's Loader implementation.
type FakeLoader struct {
	Name        string
	Super       string
	Fields      []FieldInfo
	Inherited   []FieldInfo
}

func (l *FakeLoader) ThisClass() string { return l.Name }

func (l *FakeLoader) IsClassOf(name string) bool {
	return l.Name == name || l.Super == name
}

func (l *FakeLoader) GetFieldList(includeInherited bool) ([]FieldInfo, error) {
	if !includeInherited {
		return l.Fields, nil
	}
	all := make([]FieldInfo, 0, len(l.Fields)+len(l.Inherited))
	all = append(all, l.Fields...)
	all = append(all, l.Inherited...)
	return all, nil
}

package wasm

import (
	"sort"

	"github.com/google/uuid"
)

// ExportInstance binds a single name to exactly one owned instance of a
// particular kind.
type ExportInstance struct {
	Name     string
	Kind     ExternKind
	Function *FunctionInstance
	Table    *TableInstance
	Memory   *MemoryInstance
	Global   *GlobalInstance
	Tag      *TagInstance
}

// ModuleInstance is a named collection of exports drawn from the instance
// kinds above, bound to the store that owns it.
//
// ID is a process-unique identifier distinct from Name: two module
// instances may share a name across time (unregister, then register the
// new one) but never an ID.
type ModuleInstance struct {
	ID   uuid.UUID
	Name string

	// Types is the declared function-type list of the module this instance
	// was instantiated from, indexed the same way call_indirect's type
	// immediate is: it lets the executor check an indirect call's declared
	// signature without threading the static module through every frame.
	Types []*FunctionType

	// Exports is keyed by name across all kinds; export names are unique
	// within a module instance.
	Exports map[string]*ExportInstance

	// Owned instances. A module instance exclusively owns every instance it
	// allocates during instantiation, exported or not.
	Functions []*FunctionInstance
	Tables    []*TableInstance
	Memories  []*MemoryInstance
	Globals   []*GlobalInstance
	Tags      []*TagInstance
	Data      []*DataInstance
	Elements  []*ElementInstance
}

func NewModuleInstance(name string) *ModuleInstance {
	return &ModuleInstance{
		ID:      uuid.New(),
		Name:    name,
		Exports: map[string]*ExportInstance{},
	}
}

func (m *ModuleInstance) export(e *ExportInstance) {
	m.Exports[e.Name] = e
}

// AddFunction publishes fi under name, replacing any previous function
// exported under that name; the replaced instance remains live so long as
// other references exist. fi is also added to the owned Functions slice so
// its lifetime is tracked even after its export is replaced.
func (m *ModuleInstance) AddFunction(name string, fi *FunctionInstance) {
	m.Functions = append(m.Functions, fi)
	m.export(&ExportInstance{Name: name, Kind: ExternKindFunc, Function: fi})
}

func (m *ModuleInstance) AddTable(name string, ti *TableInstance) {
	m.Tables = append(m.Tables, ti)
	m.export(&ExportInstance{Name: name, Kind: ExternKindTable, Table: ti})
}

func (m *ModuleInstance) AddMemory(name string, mi *MemoryInstance) {
	m.Memories = append(m.Memories, mi)
	m.export(&ExportInstance{Name: name, Kind: ExternKindMemory, Memory: mi})
}

func (m *ModuleInstance) AddGlobal(name string, gi *GlobalInstance) {
	m.Globals = append(m.Globals, gi)
	m.export(&ExportInstance{Name: name, Kind: ExternKindGlobal, Global: gi})
}

func (m *ModuleInstance) AddTag(name string, tg *TagInstance) {
	m.Tags = append(m.Tags, tg)
	m.export(&ExportInstance{Name: name, Kind: ExternKindTag, Tag: tg})
}

func (m *ModuleInstance) FindFunction(name string) *FunctionInstance {
	if e, ok := m.Exports[name]; ok && e.Kind == ExternKindFunc {
		return e.Function
	}
	return nil
}

func (m *ModuleInstance) FindTable(name string) *TableInstance {
	if e, ok := m.Exports[name]; ok && e.Kind == ExternKindTable {
		return e.Table
	}
	return nil
}

func (m *ModuleInstance) FindMemory(name string) *MemoryInstance {
	if e, ok := m.Exports[name]; ok && e.Kind == ExternKindMemory {
		return e.Memory
	}
	return nil
}

func (m *ModuleInstance) FindGlobal(name string) *GlobalInstance {
	if e, ok := m.Exports[name]; ok && e.Kind == ExternKindGlobal {
		return e.Global
	}
	return nil
}

func (m *ModuleInstance) FindTag(name string) *TagInstance {
	if e, ok := m.Exports[name]; ok && e.Kind == ExternKindTag {
		return e.Tag
	}
	return nil
}

// BindExport publishes name for an instance already present in the owned
// slices at index, without touching ownership. Distinct from the Add*
// methods above, which both take ownership and export in one step for
// incrementally built host modules.
func (m *ModuleInstance) BindExport(name string, kind ExternKind, index uint32) {
	switch kind {
	case ExternKindFunc:
		m.export(&ExportInstance{Name: name, Kind: kind, Function: m.Functions[index]})
	case ExternKindTable:
		m.export(&ExportInstance{Name: name, Kind: kind, Table: m.Tables[index]})
	case ExternKindMemory:
		m.export(&ExportInstance{Name: name, Kind: kind, Memory: m.Memories[index]})
	case ExternKindGlobal:
		m.export(&ExportInstance{Name: name, Kind: kind, Global: m.Globals[index]})
	case ExternKindTag:
		m.export(&ExportInstance{Name: name, Kind: kind, Tag: m.Tags[index]})
	}
}

// ExportNames enumerates export names in lexicographic order, so listing is
// deterministic.
func (m *ModuleInstance) ExportNames() []string {
	names := make([]string, 0, len(m.Exports))
	for n := range m.Exports {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

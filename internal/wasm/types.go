package wasm

// FunctionType is the signature of a function: a possibly empty sequence of
// parameter types and a possibly empty sequence of result types.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

// Equals performs the structural comparison call-indirect needs to decide
// between IndirectCallTypeMismatch and a legal call.
func (t *FunctionType) Equals(o *FunctionType) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil {
		return false
	}
	if len(t.Params) != len(o.Params) || len(t.Results) != len(o.Results) {
		return false
	}
	for i, p := range t.Params {
		if p != o.Params[i] {
			return false
		}
	}
	for i, r := range t.Results {
		if r != o.Results[i] {
			return false
		}
	}
	return true
}

// Limits is the `{min, max?}` pair shared by table and memory types.
type Limits struct {
	Min uint32
	Max *uint32 // nil means unbounded
}

// ExternKind classifies an import or export.
type ExternKind byte

const (
	ExternKindFunc ExternKind = iota
	ExternKindTable
	ExternKindMemory
	ExternKindGlobal
	ExternKindTag
)

func (k ExternKind) String() string {
	switch k {
	case ExternKindFunc:
		return "func"
	case ExternKindTable:
		return "table"
	case ExternKindMemory:
		return "memory"
	case ExternKindGlobal:
		return "global"
	case ExternKindTag:
		return "tag"
	default:
		return "unknown"
	}
}

// TableType describes a declared or imported table.
type TableType struct {
	ElemType ValueType
	Limits   Limits
}

// MemoryType describes a declared or imported memory, measured in 64 KiB pages.
type MemoryType struct {
	Limits Limits
}

// GlobalType describes a declared or imported global.
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

// ConstExpr is a constant initializer for a global or an element/data
// segment offset: a literal value, a reference to an already-allocated
// function instance (ref.func), or a read of an imported constant global.
type ConstExpr struct {
	Value    Value
	IsFunc   bool // true if this is `ref.func $i`
	FuncIdx  uint32
	IsGlobal bool // true if this initializes from an imported constant global
	GlobalIdx uint32
}

// Import is a single declared import.
type Import struct {
	Module, Name string
	Kind         ExternKind

	FuncTypeIndex uint32
	TableType     *TableType
	MemoryType    *MemoryType
	GlobalType    *GlobalType
	TagTypeIndex  uint32
}

// LocalFunction is a module-defined (non-imported) function: its declared
// type plus its already-flattened instruction body. See instr.go for Code.
type LocalFunction struct {
	TypeIndex uint32
	Code      *Code
	// LocalTypes are the additional locals declared after the parameters,
	// in declaration order.
	LocalTypes []ValueType
	Name       string
}

// GlobalDecl is a module-defined global.
type GlobalDecl struct {
	Type GlobalType
	Init ConstExpr
}

// TagDecl is a module-defined tag.
type TagDecl struct {
	TypeIndex uint32
}

// SegmentMode classifies an element or data segment.
type SegmentMode byte

const (
	SegmentActive SegmentMode = iota
	SegmentPassive
	SegmentDeclarative
)

// ElementSegment is a module-defined element segment.
type ElementSegment struct {
	Mode       SegmentMode
	TableIndex uint32 // valid only when Mode == SegmentActive
	Offset     ConstExpr
	Type       ValueType
	Init       []ConstExpr // one per element, each either a func ref or null
}

// DataSegment is a module-defined data segment.
type DataSegment struct {
	Mode       SegmentMode
	MemoryIndex uint32 // valid only when Mode == SegmentActive
	Offset     ConstExpr
	Init       []byte
}

// Export is a module-defined export.
type Export struct {
	Name  string
	Kind  ExternKind
	Index uint32 // index into the kind-specific space, imports first
}

// ModuleID identifies a decoded module for diagnostic and deduplication
// purposes (e.g. as a map key in a caller's own module registry). The
// runtime never computes this from raw bytes itself, since it never sees
// raw bytes; a caller that decodes from bytes may assign it however it
// likes, for instance by hashing the source before decoding.
type ModuleID uint64

// Module is the already-decoded, already-validated AST the instantiation
// pipeline consumes. Binary-format concerns belong to the decoder; nothing
// in this package re-interprets bytes.
type Module struct {
	ID ModuleID

	Types     []*FunctionType
	Imports   []*Import
	Functions []*LocalFunction
	Tables    []*TableType
	Memories  []*MemoryType
	Globals   []*GlobalDecl
	Tags      []*TagDecl

	Elements []*ElementSegment
	Data     []*DataSegment

	Exports []*Export

	StartFunctionIndex *uint32
}

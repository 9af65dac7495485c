// Package wasm implements the runtime data model of the execution core:
// typed values, instance kinds (function, table, memory, global, tag, data,
// element), the module instance, and the store.
package wasm

import (
	"fmt"
	"unsafe"
)

// Kind discriminates the scalar and reference kinds a Value can carry. It
// is a plain tag rather than a type hierarchy; instruction dispatch is a
// flat switch on Op (see instr.go).
type Kind byte

const (
	KindI32 Kind = iota
	KindI64
	KindF32
	KindF64
	KindV128
	KindFuncRef
	KindExternRef
)

func (k Kind) String() string {
	switch k {
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindV128:
		return "v128"
	case KindFuncRef:
		return "funcref"
	case KindExternRef:
		return "externref"
	default:
		return "unknown"
	}
}

// RefReferent classifies what a reference type points at.
type RefReferent byte

const (
	// ReferentAnyFunc means the reference may point at a function of any type.
	ReferentAnyFunc RefReferent = iota
	// ReferentTypeIndex means the reference is constrained to functions of a
	// specific declared type index.
	ReferentTypeIndex
	// ReferentExtern means the reference is opaque to the runtime.
	ReferentExtern
)

// ValueType is a scalar kind, or a reference type parameterized by
// (nullable?, referent-kind[, type-index]). Equality is structural on the
// full tuple, which a plain comparable struct gives for free.
type ValueType struct {
	Kind      Kind
	Nullable  bool
	Referent  RefReferent
	TypeIndex uint32 // valid only when Referent == ReferentTypeIndex
}

func I32() ValueType { return ValueType{Kind: KindI32} }
func I64() ValueType { return ValueType{Kind: KindI64} }
func F32() ValueType { return ValueType{Kind: KindF32} }
func F64() ValueType { return ValueType{Kind: KindF64} }
func V128() ValueType { return ValueType{Kind: KindV128} }

// FuncRef returns a funcref value type.
func FuncRef(nullable bool) ValueType {
	return ValueType{Kind: KindFuncRef, Nullable: nullable, Referent: ReferentAnyFunc}
}

// FuncRefTo returns a funcref value type constrained to a specific declared
// function type index.
func FuncRefTo(typeIndex uint32, nullable bool) ValueType {
	return ValueType{Kind: KindFuncRef, Nullable: nullable, Referent: ReferentTypeIndex, TypeIndex: typeIndex}
}

func ExternRef(nullable bool) ValueType {
	return ValueType{Kind: KindExternRef, Nullable: nullable, Referent: ReferentExtern}
}

func (t ValueType) IsRef() bool {
	return t.Kind == KindFuncRef || t.Kind == KindExternRef
}

// AssignableFrom reports whether a value of type `from` may be stored where
// `t` is declared, per the reference-compatibility rules used by table
// set/grow and global set.
func (t ValueType) AssignableFrom(from ValueType) bool {
	if t.Kind != from.Kind {
		return false
	}
	if !t.IsRef() {
		return true
	}
	if t.Referent != from.Referent {
		// A specific-type-index reference may be widened to any-func only
		// when the declared slot itself accepts any-func.
		return t.Referent == ReferentAnyFunc
	}
	if t.Referent == ReferentTypeIndex && t.TypeIndex != from.TypeIndex {
		return false
	}
	return true
}

func (t ValueType) String() string {
	if !t.IsRef() {
		return t.Kind.String()
	}
	n := ""
	if !t.Nullable {
		n = " non-null"
	}
	return fmt.Sprintf("%s%s", t.Kind, n)
}

// Value is the tagged operand the executor pushes and pops. Scalars live in
// Lo (sign/bit-pattern preserving); v128 uses both Lo and Hi as the low and
// high 64-bit lanes. Reference values store their referent as a 64-bit
// token: for externref this is an opaque host-provided handle, for funcref
// it is the bit pattern of a *FunctionInstance pointer (0 meaning null).
type Value struct {
	Type ValueType
	Lo   uint64
	Hi   uint64
}

func ValI32(v int32) Value  { return Value{Type: I32(), Lo: uint64(uint32(v))} }
func ValU32(v uint32) Value { return Value{Type: I32(), Lo: uint64(v)} }
func ValI64(v int64) Value  { return Value{Type: I64(), Lo: uint64(v)} }
func ValU64(v uint64) Value { return Value{Type: I64(), Lo: v} }

func ValF32(bits uint32) Value { return Value{Type: F32(), Lo: uint64(bits)} }
func ValF64(bits uint64) Value { return Value{Type: F64(), Lo: bits} }

func ValV128(lo, hi uint64) Value { return Value{Type: V128(), Lo: lo, Hi: hi} }

// ValNullFuncRef returns the null funcref value of the given declared type.
func ValNullFuncRef(t ValueType) Value { return Value{Type: t} }

// ValFuncRef wraps a function instance as a funcref value. fi must not be nil.
func ValFuncRef(t ValueType, fi *FunctionInstance) Value {
	return Value{Type: t, Lo: uint64(uintptr(unsafe.Pointer(fi)))}
}

func (v Value) IsNullRef() bool { return v.Type.IsRef() && v.Lo == 0 }

// FuncRefInstance recovers the *FunctionInstance a funcref value points at,
// or nil if the value is null.
func (v Value) FuncRefInstance() *FunctionInstance {
	if v.Lo == 0 {
		return nil
	}
	return (*FunctionInstance)(unsafe.Pointer(uintptr(v.Lo)))
}

func (v Value) I32() int32   { return int32(uint32(v.Lo)) }
func (v Value) U32() uint32  { return uint32(v.Lo) }
func (v Value) I64() int64   { return int64(v.Lo) }
func (v Value) U64() uint64  { return v.Lo }
func (v Value) F32Bits() uint32 { return uint32(v.Lo) }
func (v Value) F64Bits() uint64 { return v.Lo }

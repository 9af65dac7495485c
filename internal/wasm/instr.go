package wasm

// Op is a flattened instruction opcode. The AST the executor consumes has
// already had structured control flow (block/loop/if) resolved into plain
// conditional/unconditional jumps by the decoder+validator, keeping the
// interpreter a flat switch over a program counter.
type Op uint16

const (
	OpUnreachable Op = iota
	OpNop
	OpReturn

	// OpBr jumps unconditionally to Instr.A (an index into the same Code.Instrs).
	OpBr
	// OpBrIf pops an i32; if non-zero, jumps to Instr.A.
	OpBrIf
	// OpBrTable pops an i32 index, clamps it into Targets, and jumps there.
	OpBrTable

	OpCall
	OpCallIndirect

	OpDrop
	OpSelect

	OpLocalGet
	OpLocalSet
	OpLocalTee

	OpGlobalGet
	OpGlobalSet

	OpTableGet
	OpTableSet
	OpTableSize
	OpTableGrow
	OpTableInit
	OpElemDrop
	OpTableCopy
	OpTableFill

	OpMemorySize
	OpMemoryGrow
	OpMemoryInit
	OpDataDrop
	OpMemoryCopy
	OpMemoryFill

	OpI32Load
	OpI64Load
	OpF32Load
	OpF64Load
	OpI32Load8S
	OpI32Load8U
	OpI32Load16S
	OpI32Load16U
	OpI64Load8S
	OpI64Load8U
	OpI64Load16S
	OpI64Load16U
	OpI64Load32S
	OpI64Load32U
	OpI32Store
	OpI64Store
	OpF32Store
	OpF64Store
	OpI32Store8
	OpI32Store16
	OpI64Store8
	OpI64Store16
	OpI64Store32

	OpI32Const
	OpI64Const
	OpF32Const
	OpF64Const

	OpRefNull
	OpRefIsNull
	OpRefFunc

	// Numeric ops carry no operands; each value type has its own opcode
	// (e.g. OpI32Add vs OpI64Add), so no Instr field selects the family.
	OpI32Eqz
	OpI32Eq
	OpI32Ne
	OpI32LtS
	OpI32LtU
	OpI32GtS
	OpI32GtU
	OpI32LeS
	OpI32LeU
	OpI32GeS
	OpI32GeU

	OpI64Eqz
	OpI64Eq
	OpI64Ne
	OpI64LtS
	OpI64LtU
	OpI64GtS
	OpI64GtU
	OpI64LeS
	OpI64LeU
	OpI64GeS
	OpI64GeU

	OpF32Eq
	OpF32Ne
	OpF32Lt
	OpF32Gt
	OpF32Le
	OpF32Ge
	OpF64Eq
	OpF64Ne
	OpF64Lt
	OpF64Gt
	OpF64Le
	OpF64Ge

	OpI32Clz
	OpI32Ctz
	OpI32Popcnt
	OpI32Add
	OpI32Sub
	OpI32Mul
	OpI32DivS
	OpI32DivU
	OpI32RemS
	OpI32RemU
	OpI32And
	OpI32Or
	OpI32Xor
	OpI32Shl
	OpI32ShrS
	OpI32ShrU
	OpI32Rotl
	OpI32Rotr

	OpI64Clz
	OpI64Ctz
	OpI64Popcnt
	OpI64Add
	OpI64Sub
	OpI64Mul
	OpI64DivS
	OpI64DivU
	OpI64RemS
	OpI64RemU
	OpI64And
	OpI64Or
	OpI64Xor
	OpI64Shl
	OpI64ShrS
	OpI64ShrU
	OpI64Rotl
	OpI64Rotr

	OpF32Abs
	OpF32Neg
	OpF32Ceil
	OpF32Floor
	OpF32Trunc
	OpF32Nearest
	OpF32Sqrt
	OpF32Add
	OpF32Sub
	OpF32Mul
	OpF32Div
	OpF32Min
	OpF32Max
	OpF32Copysign

	OpF64Abs
	OpF64Neg
	OpF64Ceil
	OpF64Floor
	OpF64Trunc
	OpF64Nearest
	OpF64Sqrt
	OpF64Add
	OpF64Sub
	OpF64Mul
	OpF64Div
	OpF64Min
	OpF64Max
	OpF64Copysign

	OpI32WrapI64
	OpI32TruncF32S
	OpI32TruncF32U
	OpI32TruncF64S
	OpI32TruncF64U
	OpI64ExtendI32S
	OpI64ExtendI32U
	OpI64TruncF32S
	OpI64TruncF32U
	OpI64TruncF64S
	OpI64TruncF64U
	OpF32ConvertI32S
	OpF32ConvertI32U
	OpF32ConvertI64S
	OpF32ConvertI64U
	OpF32DemoteF64
	OpF64ConvertI32S
	OpF64ConvertI32U
	OpF64ConvertI64S
	OpF64ConvertI64U
	OpF64PromoteF32
	OpI32ReinterpretF32
	OpI64ReinterpretF64
	OpF32ReinterpretI32
	OpF64ReinterpretI64

	OpI32Extend8S
	OpI32Extend16S
	OpI64Extend8S
	OpI64Extend16S
	OpI64Extend32S

	OpI32TruncSatF32S
	OpI32TruncSatF32U
	OpI32TruncSatF64S
	OpI32TruncSatF64U
	OpI64TruncSatF32S
	OpI64TruncSatF32U
	OpI64TruncSatF64S
	OpI64TruncSatF64U
)

// Instr is one flattened instruction. The A/B/C operand fields are
// interpreted per Op; Targets is only populated for OpBrTable; Type is only
// read for OpRefNull, as the type of the null reference it pushes (table
// null checks use the table's own element type).
type Instr struct {
	Op   Op
	A, B uint32
	C    uint64 // memory offset immediate, or the i32/i64/f32/f64 const payload
	D    uint64 // high half of a 128-bit const
	Type ValueType
	Targets []uint32
}

// Code is a function body: a flat, already-branch-resolved instruction
// sequence plus its maximum operand-stack depth (computed by the validator,
// used here only to preallocate).
type Code struct {
	Instrs   []Instr
	MaxStack int
}

package executor

import (
	"encoding/binary"
	"math"

	"github.com/wasmedge-go/wasmcore/internal/vmerr"
	"github.com/wasmedge-go/wasmcore/internal/wasm"
)

// callEngine holds context shared across the recursive call chain
// originating from one Executor.Invoke. Go recursion carries the
// call/return control transfer: a guest "call" re-enters call, so the
// native stack doubles as the frame stack and callDepth bounds it.
type callEngine struct {
	ex        *Executor
	callDepth int
}

func (ce *callEngine) call(caller *wasm.ModuleInstance, fi *wasm.FunctionInstance, args []wasm.Value) ([]wasm.Value, error) {
	if err := ce.ex.checkPoint(wasm.OpCall); err != nil {
		return nil, err
	}
	ce.callDepth++
	defer func() { ce.callDepth-- }()
	if ce.callDepth > ce.ex.config.CallStackCeiling {
		return nil, vmerr.NewTrap(vmerr.CallStackExhausted)
	}
	if fi.IsHost() {
		return ce.callHost(caller, fi, args)
	}
	return ce.callGuest(fi, args)
}

func (ce *callEngine) callHost(caller *wasm.ModuleInstance, fi *wasm.FunctionInstance, args []wasm.Value) ([]wasm.Value, error) {
	frame := &Frame{caller: caller, config: ce.ex.config}
	results := make([]wasm.Value, len(fi.Type.Results))
	for i, rt := range fi.Type.Results {
		results[i] = wasm.Value{Type: rt}
	}
	cat, code := fi.Host.Thunk(fi.Host.Data, frame, args, results)
	switch cat {
	case wasm.HostSuccess:
		return results, nil
	case wasm.HostWASM:
		trapCode := vmerr.TrapCode(code & 0xFF)
		if trapCode == vmerr.Terminated {
			return nil, vmerr.NewTerminated(code >> 8)
		}
		return nil, vmerr.NewTrap(trapCode)
	default: // wasm.HostUserLevelError
		return nil, &vmerr.HostError{Category: vmerr.HostUserLevelError, Code: code}
	}
}

func (ce *callEngine) callGuest(fi *wasm.FunctionInstance, args []wasm.Value) ([]wasm.Value, error) {
	lf := fi.Local
	locals := make([]wasm.Value, len(args)+len(lf.LocalTypes))
	copy(locals, args)
	for i, t := range lf.LocalTypes {
		locals[len(args)+i] = wasm.Value{Type: t}
	}

	stack := make([]wasm.Value, 0, lf.Code.MaxStack+8)
	st := &execState{
		ce:     ce,
		module: fi.Module,
		locals: locals,
		stack:  stack,
	}

	instrs := lf.Code.Instrs
	pc := 0
	for pc < len(instrs) {
		in := instrs[pc]
		if err := ce.ex.checkPoint(in.Op); err != nil {
			return nil, err
		}
		next, err := st.exec(in, pc, len(instrs))
		if err != nil {
			return nil, err
		}
		pc = next
	}
	return st.popN(len(fi.Type.Results))
}

// execState carries the mutable state of one guest-function activation:
// its locals and operand stack. Branch targets are plain instruction
// indices, since the AST the core consumes has already had structured
// control flow flattened (see instr.go doc comment).
type execState struct {
	ce     *callEngine
	module *wasm.ModuleInstance
	locals []wasm.Value
	stack  []wasm.Value
}

func (s *execState) push(v wasm.Value) { s.stack = append(s.stack, v) }

func (s *execState) pop() wasm.Value {
	v := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return v
}

// popN pops n values and returns them in push order (oldest first).
func (s *execState) popN(n int) ([]wasm.Value, error) {
	if len(s.stack) < n {
		return nil, vmerr.Structural("operand stack underflow")
	}
	out := make([]wasm.Value, n)
	copy(out, s.stack[len(s.stack)-n:])
	s.stack = s.stack[:len(s.stack)-n]
	return out, nil
}

func (s *execState) popI32() int32   { return s.pop().I32() }
func (s *execState) popU32() uint32  { return s.pop().U32() }
func (s *execState) popI64() int64   { return s.pop().I64() }
func (s *execState) popU64() uint64  { return s.pop().U64() }
func (s *execState) popF32() float32 { return math.Float32frombits(s.pop().F32Bits()) }
func (s *execState) popF64() float64 { return math.Float64frombits(s.pop().F64Bits()) }

func (s *execState) pushI32(v int32)   { s.push(wasm.ValI32(v)) }
func (s *execState) pushU32(v uint32)  { s.push(wasm.ValU32(v)) }
func (s *execState) pushI64(v int64)   { s.push(wasm.ValI64(v)) }
func (s *execState) pushU64(v uint64)  { s.push(wasm.ValU64(v)) }
func (s *execState) pushF32(v float32) { s.push(wasm.ValF32(math.Float32bits(v))) }
func (s *execState) pushF64(v float64) { s.push(wasm.ValF64(math.Float64bits(v))) }
func (s *execState) pushBool(b bool) {
	if b {
		s.pushI32(1)
	} else {
		s.pushI32(0)
	}
}

// memory returns the module's memory at index 0, needed by every
// load/store op, or nil if the module has none; it is never nil for a
// module that declares any memory instruction, since validation guarantees
// that.
func (s *execState) memory() *wasm.MemoryInstance {
	if len(s.module.Memories) == 0 {
		return nil
	}
	return s.module.Memories[0]
}

func le32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func le64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

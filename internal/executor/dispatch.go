package executor

import (
	"math"

	"github.com/wasmedge-go/wasmcore/internal/vmerr"
	"github.com/wasmedge-go/wasmcore/internal/wasm"
)

// exec runs one flattened instruction and returns the next program counter.
// Control-transfer ops return the target index directly; everything else
// returns pc+1. A returned instrsLen value (passed in by the caller as the
// body length) ends the function, letting callGuest's loop and an explicit
// "return" instruction share one exit path.
func (s *execState) exec(in wasm.Instr, pc, instrsLen int) (int, error) {
	switch in.Op {
	case wasm.OpUnreachable:
		return 0, vmerr.NewTrap(vmerr.Unreachable)
	case wasm.OpNop:
		return pc + 1, nil
	case wasm.OpReturn:
		return instrsLen, nil

	case wasm.OpBr:
		return int(in.A), nil
	case wasm.OpBrIf:
		if s.popI32() != 0 {
			return int(in.A), nil
		}
		return pc + 1, nil
	case wasm.OpBrTable:
		idx := s.popU32()
		last := len(in.Targets) - 1
		if int(idx) < last {
			return int(in.Targets[idx]), nil
		}
		return int(in.Targets[last]), nil

	case wasm.OpCall:
		return pc + 1, s.doCall(in.A)
	case wasm.OpCallIndirect:
		return pc + 1, s.doCallIndirect(in.A, in.B)

	case wasm.OpDrop:
		s.pop()
		return pc + 1, nil
	case wasm.OpSelect:
		cond := s.popI32()
		b := s.pop()
		a := s.pop()
		if cond != 0 {
			s.push(a)
		} else {
			s.push(b)
		}
		return pc + 1, nil

	case wasm.OpLocalGet:
		s.push(s.locals[in.A])
		return pc + 1, nil
	case wasm.OpLocalSet:
		s.locals[in.A] = s.pop()
		return pc + 1, nil
	case wasm.OpLocalTee:
		s.locals[in.A] = s.stack[len(s.stack)-1]
		return pc + 1, nil

	case wasm.OpGlobalGet:
		s.push(s.module.Globals[in.A].Get())
		return pc + 1, nil
	case wasm.OpGlobalSet:
		v := s.pop()
		if err := s.module.Globals[in.A].Set(v); err != nil {
			return 0, toTrap(err)
		}
		return pc + 1, nil

	case wasm.OpTableGet:
		idx := s.popU32()
		v, err := s.module.Tables[in.A].Get(idx)
		if err != nil {
			return 0, toTrap(err)
		}
		s.push(v)
		return pc + 1, nil
	case wasm.OpTableSet:
		v := s.pop()
		idx := s.popU32()
		if err := s.module.Tables[in.A].Set(idx, v); err != nil {
			return 0, toTrap(err)
		}
		return pc + 1, nil
	case wasm.OpTableSize:
		s.pushU32(s.module.Tables[in.A].Size())
		return pc + 1, nil
	case wasm.OpTableGrow:
		n := s.popU32()
		init := s.pop()
		old, err := s.module.Tables[in.A].Grow(n, init)
		if err != nil {
			s.pushI32(-1)
		} else {
			s.pushU32(old)
		}
		return pc + 1, nil
	case wasm.OpTableInit:
		return pc + 1, s.doTableInit(in.A, in.B)
	case wasm.OpElemDrop:
		s.module.Elements[in.A].Drop()
		return pc + 1, nil
	case wasm.OpTableCopy:
		return pc + 1, s.doTableCopy(in.A, in.B)
	case wasm.OpTableFill:
		return pc + 1, s.doTableFill(in.A)

	case wasm.OpMemorySize:
		s.pushU32(s.memory().SizePages())
		return pc + 1, nil
	case wasm.OpMemoryGrow:
		n := s.popU32()
		old, err := s.memory().Grow(n)
		if err != nil {
			s.pushI32(-1)
		} else {
			s.pushU32(old)
		}
		return pc + 1, nil
	case wasm.OpMemoryInit:
		return pc + 1, s.doMemoryInit(in.A)
	case wasm.OpDataDrop:
		s.module.Data[in.A].Drop()
		return pc + 1, nil
	case wasm.OpMemoryCopy:
		return pc + 1, s.doMemoryCopy()
	case wasm.OpMemoryFill:
		return pc + 1, s.doMemoryFill()

	case wasm.OpI32Load:
		return pc + 1, s.load(in.C, 4, func(b []byte) { s.pushU32(le32(b)) })
	case wasm.OpI64Load:
		return pc + 1, s.load(in.C, 8, func(b []byte) { s.pushU64(le64(b)) })
	case wasm.OpF32Load:
		return pc + 1, s.load(in.C, 4, func(b []byte) { s.push(wasm.ValF32(le32(b))) })
	case wasm.OpF64Load:
		return pc + 1, s.load(in.C, 8, func(b []byte) { s.push(wasm.ValF64(le64(b))) })
	case wasm.OpI32Load8S:
		return pc + 1, s.load(in.C, 1, func(b []byte) { s.pushI32(int32(int8(b[0]))) })
	case wasm.OpI32Load8U:
		return pc + 1, s.load(in.C, 1, func(b []byte) { s.pushU32(uint32(b[0])) })
	case wasm.OpI32Load16S:
		return pc + 1, s.load(in.C, 2, func(b []byte) { s.pushI32(int32(int16(le32_16(b)))) })
	case wasm.OpI32Load16U:
		return pc + 1, s.load(in.C, 2, func(b []byte) { s.pushU32(uint32(le32_16(b))) })
	case wasm.OpI64Load8S:
		return pc + 1, s.load(in.C, 1, func(b []byte) { s.pushI64(int64(int8(b[0]))) })
	case wasm.OpI64Load8U:
		return pc + 1, s.load(in.C, 1, func(b []byte) { s.pushU64(uint64(b[0])) })
	case wasm.OpI64Load16S:
		return pc + 1, s.load(in.C, 2, func(b []byte) { s.pushI64(int64(int16(le32_16(b)))) })
	case wasm.OpI64Load16U:
		return pc + 1, s.load(in.C, 2, func(b []byte) { s.pushU64(uint64(le32_16(b))) })
	case wasm.OpI64Load32S:
		return pc + 1, s.load(in.C, 4, func(b []byte) { s.pushI64(int64(int32(le32(b)))) })
	case wasm.OpI64Load32U:
		return pc + 1, s.load(in.C, 4, func(b []byte) { s.pushU64(uint64(le32(b))) })

	case wasm.OpI32Store:
		return pc + 1, s.storeN(in.C, 4, func() uint64 { return uint64(s.popU32()) })
	case wasm.OpI64Store:
		return pc + 1, s.storeN(in.C, 8, func() uint64 { return s.popU64() })
	case wasm.OpF32Store:
		return pc + 1, s.storeN(in.C, 4, func() uint64 { return uint64(s.pop().F32Bits()) })
	case wasm.OpF64Store:
		return pc + 1, s.storeN(in.C, 8, func() uint64 { return s.pop().F64Bits() })
	case wasm.OpI32Store8:
		return pc + 1, s.storeN(in.C, 1, func() uint64 { return uint64(s.popU32()) })
	case wasm.OpI32Store16:
		return pc + 1, s.storeN(in.C, 2, func() uint64 { return uint64(s.popU32()) })
	case wasm.OpI64Store8:
		return pc + 1, s.storeN(in.C, 1, func() uint64 { return s.popU64() })
	case wasm.OpI64Store16:
		return pc + 1, s.storeN(in.C, 2, func() uint64 { return s.popU64() })
	case wasm.OpI64Store32:
		return pc + 1, s.storeN(in.C, 4, func() uint64 { return s.popU64() })

	case wasm.OpI32Const:
		s.pushI32(int32(uint32(in.C)))
		return pc + 1, nil
	case wasm.OpI64Const:
		s.pushI64(int64(in.C))
		return pc + 1, nil
	case wasm.OpF32Const:
		s.push(wasm.ValF32(uint32(in.C)))
		return pc + 1, nil
	case wasm.OpF64Const:
		s.push(wasm.ValF64(in.C))
		return pc + 1, nil

	case wasm.OpRefNull:
		s.push(wasm.ValNullFuncRef(in.Type))
		return pc + 1, nil
	case wasm.OpRefIsNull:
		s.pushBool(s.pop().IsNullRef())
		return pc + 1, nil
	case wasm.OpRefFunc:
		fi := s.module.Functions[in.A]
		s.push(wasm.ValFuncRef(wasm.FuncRef(false), fi))
		return pc + 1, nil
	}

	if next, handled, err := s.execNumeric(in, pc); handled {
		return next, err
	}
	return 0, vmerr.Structural("unknown opcode in flattened instruction stream")
}

func (s *execState) doCall(funcIdx uint32) error {
	fi := s.module.Functions[funcIdx]
	args, err := s.popN(len(fi.Type.Params))
	if err != nil {
		return err
	}
	rets, err := s.ce.call(s.module, fi, args)
	if err != nil {
		return err
	}
	for _, r := range rets {
		s.push(r)
	}
	return nil
}

func (s *execState) doCallIndirect(typeIdx, tableIdx uint32) error {
	idx := s.popU32()
	v, err := s.module.Tables[tableIdx].Get(idx)
	if err != nil {
		return vmerr.NewTrap(vmerr.OutOfBounds)
	}
	if v.IsNullRef() {
		return vmerr.NewTrap(vmerr.UninitializedElement)
	}
	fi := v.FuncRefInstance()
	expected := s.module.Types[typeIdx]
	if !fi.Type.Equals(expected) {
		return vmerr.NewTrap(vmerr.IndirectCallTypeMismatch)
	}
	args, err := s.popN(len(fi.Type.Params))
	if err != nil {
		return err
	}
	rets, err := s.ce.call(s.module, fi, args)
	if err != nil {
		return err
	}
	for _, r := range rets {
		s.push(r)
	}
	return nil
}

// tableSpanInBounds reports whether [idx, idx+n) fits in a table of the
// given size. Bulk table/memory ops bounds-check the whole span up front,
// even when n == 0: idx == size is in bounds then, idx > size traps.
func tableSpanInBounds(idx, n, size uint32) bool {
	return uint64(idx)+uint64(n) <= uint64(size)
}

func (s *execState) doTableInit(tableIdx, elemIdx uint32) error {
	n := s.popU32()
	src := s.popU32()
	dst := s.popU32()
	refs := s.module.Elements[elemIdx].Refs()
	table := s.module.Tables[tableIdx]
	if !tableSpanInBounds(src, n, uint32(len(refs))) || !tableSpanInBounds(dst, n, table.Size()) {
		return vmerr.NewTrap(vmerr.OutOfBounds)
	}
	for i := uint32(0); i < n; i++ {
		if err := table.Set(dst+i, refs[src+i]); err != nil {
			return vmerr.NewTrap(vmerr.OutOfBounds)
		}
	}
	return nil
}

func (s *execState) doTableCopy(dstIdx, srcIdx uint32) error {
	n := s.popU32()
	src := s.popU32()
	dst := s.popU32()
	srcTable := s.module.Tables[srcIdx]
	dstTable := s.module.Tables[dstIdx]
	if !tableSpanInBounds(src, n, srcTable.Size()) || !tableSpanInBounds(dst, n, dstTable.Size()) {
		return vmerr.NewTrap(vmerr.OutOfBounds)
	}
	vals := make([]wasm.Value, n)
	for i := uint32(0); i < n; i++ {
		v, err := srcTable.Get(src + i)
		if err != nil {
			return vmerr.NewTrap(vmerr.OutOfBounds)
		}
		vals[i] = v
	}
	for i := uint32(0); i < n; i++ {
		if err := dstTable.Set(dst+i, vals[i]); err != nil {
			return vmerr.NewTrap(vmerr.OutOfBounds)
		}
	}
	return nil
}

func (s *execState) doTableFill(tableIdx uint32) error {
	n := s.popU32()
	v := s.pop()
	dst := s.popU32()
	table := s.module.Tables[tableIdx]
	if !tableSpanInBounds(dst, n, table.Size()) {
		return vmerr.NewTrap(vmerr.OutOfBounds)
	}
	for i := uint32(0); i < n; i++ {
		if err := table.Set(dst+i, v); err != nil {
			return vmerr.NewTrap(vmerr.OutOfBounds)
		}
	}
	return nil
}

func (s *execState) doMemoryInit(dataIdx uint32) error {
	n := s.popU32()
	src := s.popU32()
	dst := s.popU32()
	data := s.module.Data[dataIdx].Bytes()
	mem := s.memory()
	if !tableSpanInBounds(src, n, uint32(len(data))) {
		return vmerr.NewTrap(vmerr.OutOfBounds)
	}
	if _, err := mem.Read(dst, n); err != nil {
		return vmerr.NewTrap(vmerr.OutOfBounds)
	}
	if err := mem.Write(dst, data[src:src+n]); err != nil {
		return vmerr.NewTrap(vmerr.OutOfBounds)
	}
	return nil
}

func (s *execState) doMemoryCopy() error {
	n := s.popU32()
	src := s.popU32()
	dst := s.popU32()
	mem := s.memory()
	buf, err := mem.Read(src, n)
	if err != nil {
		return vmerr.NewTrap(vmerr.OutOfBounds)
	}
	if _, err := mem.Read(dst, n); err != nil {
		return vmerr.NewTrap(vmerr.OutOfBounds)
	}
	tmp := make([]byte, len(buf))
	copy(tmp, buf)
	if err := mem.Write(dst, tmp); err != nil {
		return vmerr.NewTrap(vmerr.OutOfBounds)
	}
	return nil
}

func (s *execState) doMemoryFill() error {
	n := s.popU32()
	val := byte(s.popU32())
	dst := s.popU32()
	mem := s.memory()
	buf, err := mem.Read(dst, n)
	if err != nil {
		return vmerr.NewTrap(vmerr.OutOfBounds)
	}
	for i := range buf {
		buf[i] = val
	}
	return nil
}

// effectiveAddr widens base+offset in 64 bits so an overflowing sum traps
// rather than silently wrapping back into bounds.
func effectiveAddr(base uint32, offsetImm uint64) (uint32, bool) {
	addr := uint64(base) + offsetImm
	if addr > math.MaxUint32 {
		return 0, false
	}
	return uint32(addr), true
}

func (s *execState) load(offsetImm uint64, size uint32, push func([]byte)) error {
	base := s.popU32()
	addr, ok := effectiveAddr(base, offsetImm)
	if !ok {
		return vmerr.NewTrap(vmerr.OutOfBounds)
	}
	b, err := s.memory().Read(addr, size)
	if err != nil {
		return vmerr.NewTrap(vmerr.OutOfBounds)
	}
	push(b)
	return nil
}

func (s *execState) storeN(offsetImm uint64, size uint32, pop func() uint64) error {
	val := pop()
	base := s.popU32()
	addr, ok := effectiveAddr(base, offsetImm)
	if !ok {
		return vmerr.NewTrap(vmerr.OutOfBounds)
	}
	buf := make([]byte, size)
	for i := uint32(0); i < size; i++ {
		buf[i] = byte(val >> (8 * i))
	}
	if err := s.memory().Write(addr, buf); err != nil {
		return vmerr.NewTrap(vmerr.OutOfBounds)
	}
	return nil
}

func le32_16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }

// toTrap maps an internal/wasm instance-level error raised by guest code:
// ErrOutOfBounds becomes the OutOfBounds trap, while type, nullability and
// constant-global errors (which validation rules out) become structural
// errors.
func toTrap(err error) error {
	switch err {
	case wasm.ErrOutOfBounds:
		return vmerr.NewTrap(vmerr.OutOfBounds)
	case wasm.ErrTypeMismatch, wasm.ErrNonNullRequired, wasm.ErrSetConstant:
		return vmerr.Structural(err.Error())
	default:
		return err
	}
}

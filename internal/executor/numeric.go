package executor

import (
	"math"
	"math/bits"

	"github.com/wasmedge-go/wasmcore/internal/moremath"
	"github.com/wasmedge-go/wasmcore/internal/vmerr"
	"github.com/wasmedge-go/wasmcore/internal/wasm"
)

// execNumeric handles every opcode with no side effect beyond the operand
// stack: comparisons, arithmetic, and numeric conversions. Splitting this out
// of exec keeps the control/memory/table dispatch in dispatch.go readable.
func (s *execState) execNumeric(in wasm.Instr, pc int) (next int, handled bool, err error) {
	handled = true
	switch in.Op {
	// --- i32 comparisons ---
	case wasm.OpI32Eqz:
		s.pushBool(s.popI32() == 0)
	case wasm.OpI32Eq:
		b, a := s.popI32(), s.popI32()
		s.pushBool(a == b)
	case wasm.OpI32Ne:
		b, a := s.popI32(), s.popI32()
		s.pushBool(a != b)
	case wasm.OpI32LtS:
		b, a := s.popI32(), s.popI32()
		s.pushBool(a < b)
	case wasm.OpI32LtU:
		b, a := s.popU32(), s.popU32()
		s.pushBool(a < b)
	case wasm.OpI32GtS:
		b, a := s.popI32(), s.popI32()
		s.pushBool(a > b)
	case wasm.OpI32GtU:
		b, a := s.popU32(), s.popU32()
		s.pushBool(a > b)
	case wasm.OpI32LeS:
		b, a := s.popI32(), s.popI32()
		s.pushBool(a <= b)
	case wasm.OpI32LeU:
		b, a := s.popU32(), s.popU32()
		s.pushBool(a <= b)
	case wasm.OpI32GeS:
		b, a := s.popI32(), s.popI32()
		s.pushBool(a >= b)
	case wasm.OpI32GeU:
		b, a := s.popU32(), s.popU32()
		s.pushBool(a >= b)

	// --- i64 comparisons ---
	case wasm.OpI64Eqz:
		s.pushBool(s.popI64() == 0)
	case wasm.OpI64Eq:
		b, a := s.popI64(), s.popI64()
		s.pushBool(a == b)
	case wasm.OpI64Ne:
		b, a := s.popI64(), s.popI64()
		s.pushBool(a != b)
	case wasm.OpI64LtS:
		b, a := s.popI64(), s.popI64()
		s.pushBool(a < b)
	case wasm.OpI64LtU:
		b, a := s.popU64(), s.popU64()
		s.pushBool(a < b)
	case wasm.OpI64GtS:
		b, a := s.popI64(), s.popI64()
		s.pushBool(a > b)
	case wasm.OpI64GtU:
		b, a := s.popU64(), s.popU64()
		s.pushBool(a > b)
	case wasm.OpI64LeS:
		b, a := s.popI64(), s.popI64()
		s.pushBool(a <= b)
	case wasm.OpI64LeU:
		b, a := s.popU64(), s.popU64()
		s.pushBool(a <= b)
	case wasm.OpI64GeS:
		b, a := s.popI64(), s.popI64()
		s.pushBool(a >= b)
	case wasm.OpI64GeU:
		b, a := s.popU64(), s.popU64()
		s.pushBool(a >= b)

	// --- float comparisons ---
	case wasm.OpF32Eq:
		b, a := s.popF32(), s.popF32()
		s.pushBool(a == b)
	case wasm.OpF32Ne:
		b, a := s.popF32(), s.popF32()
		s.pushBool(a != b)
	case wasm.OpF32Lt:
		b, a := s.popF32(), s.popF32()
		s.pushBool(a < b)
	case wasm.OpF32Gt:
		b, a := s.popF32(), s.popF32()
		s.pushBool(a > b)
	case wasm.OpF32Le:
		b, a := s.popF32(), s.popF32()
		s.pushBool(a <= b)
	case wasm.OpF32Ge:
		b, a := s.popF32(), s.popF32()
		s.pushBool(a >= b)
	case wasm.OpF64Eq:
		b, a := s.popF64(), s.popF64()
		s.pushBool(a == b)
	case wasm.OpF64Ne:
		b, a := s.popF64(), s.popF64()
		s.pushBool(a != b)
	case wasm.OpF64Lt:
		b, a := s.popF64(), s.popF64()
		s.pushBool(a < b)
	case wasm.OpF64Gt:
		b, a := s.popF64(), s.popF64()
		s.pushBool(a > b)
	case wasm.OpF64Le:
		b, a := s.popF64(), s.popF64()
		s.pushBool(a <= b)
	case wasm.OpF64Ge:
		b, a := s.popF64(), s.popF64()
		s.pushBool(a >= b)

	// --- i32 arithmetic ---
	case wasm.OpI32Clz:
		s.pushI32(int32(bits.LeadingZeros32(s.popU32())))
	case wasm.OpI32Ctz:
		s.pushI32(int32(bits.TrailingZeros32(s.popU32())))
	case wasm.OpI32Popcnt:
		s.pushI32(int32(bits.OnesCount32(s.popU32())))
	case wasm.OpI32Add:
		b, a := s.popU32(), s.popU32()
		s.pushU32(a + b)
	case wasm.OpI32Sub:
		b, a := s.popU32(), s.popU32()
		s.pushU32(a - b)
	case wasm.OpI32Mul:
		b, a := s.popU32(), s.popU32()
		s.pushU32(a * b)
	case wasm.OpI32DivS:
		b, a := s.popI32(), s.popI32()
		if b == 0 {
			return 0, true, vmerr.NewTrap(vmerr.DivideByZero)
		}
		if a == math.MinInt32 && b == -1 {
			return 0, true, vmerr.NewTrap(vmerr.IntegerOverflow)
		}
		s.pushI32(a / b)
	case wasm.OpI32DivU:
		b, a := s.popU32(), s.popU32()
		if b == 0 {
			return 0, true, vmerr.NewTrap(vmerr.DivideByZero)
		}
		s.pushU32(a / b)
	case wasm.OpI32RemS:
		b, a := s.popI32(), s.popI32()
		if b == 0 {
			return 0, true, vmerr.NewTrap(vmerr.DivideByZero)
		}
		if a == math.MinInt32 && b == -1 {
			s.pushI32(0)
		} else {
			s.pushI32(a % b)
		}
	case wasm.OpI32RemU:
		b, a := s.popU32(), s.popU32()
		if b == 0 {
			return 0, true, vmerr.NewTrap(vmerr.DivideByZero)
		}
		s.pushU32(a % b)
	case wasm.OpI32And:
		b, a := s.popU32(), s.popU32()
		s.pushU32(a & b)
	case wasm.OpI32Or:
		b, a := s.popU32(), s.popU32()
		s.pushU32(a | b)
	case wasm.OpI32Xor:
		b, a := s.popU32(), s.popU32()
		s.pushU32(a ^ b)
	case wasm.OpI32Shl:
		b, a := s.popU32(), s.popU32()
		s.pushU32(a << (b % 32))
	case wasm.OpI32ShrS:
		b, a := s.popU32(), s.popI32()
		s.pushI32(a >> (b % 32))
	case wasm.OpI32ShrU:
		b, a := s.popU32(), s.popU32()
		s.pushU32(a >> (b % 32))
	case wasm.OpI32Rotl:
		b, a := s.popU32(), s.popU32()
		s.pushU32(bits.RotateLeft32(a, int(b)))
	case wasm.OpI32Rotr:
		b, a := s.popU32(), s.popU32()
		s.pushU32(bits.RotateLeft32(a, -int(b)))

	// --- i64 arithmetic ---
	case wasm.OpI64Clz:
		s.pushI64(int64(bits.LeadingZeros64(s.popU64())))
	case wasm.OpI64Ctz:
		s.pushI64(int64(bits.TrailingZeros64(s.popU64())))
	case wasm.OpI64Popcnt:
		s.pushI64(int64(bits.OnesCount64(s.popU64())))
	case wasm.OpI64Add:
		b, a := s.popU64(), s.popU64()
		s.pushU64(a + b)
	case wasm.OpI64Sub:
		b, a := s.popU64(), s.popU64()
		s.pushU64(a - b)
	case wasm.OpI64Mul:
		b, a := s.popU64(), s.popU64()
		s.pushU64(a * b)
	case wasm.OpI64DivS:
		b, a := s.popI64(), s.popI64()
		if b == 0 {
			return 0, true, vmerr.NewTrap(vmerr.DivideByZero)
		}
		if a == math.MinInt64 && b == -1 {
			return 0, true, vmerr.NewTrap(vmerr.IntegerOverflow)
		}
		s.pushI64(a / b)
	case wasm.OpI64DivU:
		b, a := s.popU64(), s.popU64()
		if b == 0 {
			return 0, true, vmerr.NewTrap(vmerr.DivideByZero)
		}
		s.pushU64(a / b)
	case wasm.OpI64RemS:
		b, a := s.popI64(), s.popI64()
		if b == 0 {
			return 0, true, vmerr.NewTrap(vmerr.DivideByZero)
		}
		if a == math.MinInt64 && b == -1 {
			s.pushI64(0)
		} else {
			s.pushI64(a % b)
		}
	case wasm.OpI64RemU:
		b, a := s.popU64(), s.popU64()
		if b == 0 {
			return 0, true, vmerr.NewTrap(vmerr.DivideByZero)
		}
		s.pushU64(a % b)
	case wasm.OpI64And:
		b, a := s.popU64(), s.popU64()
		s.pushU64(a & b)
	case wasm.OpI64Or:
		b, a := s.popU64(), s.popU64()
		s.pushU64(a | b)
	case wasm.OpI64Xor:
		b, a := s.popU64(), s.popU64()
		s.pushU64(a ^ b)
	case wasm.OpI64Shl:
		b, a := s.popU64(), s.popU64()
		s.pushU64(a << (b % 64))
	case wasm.OpI64ShrS:
		b, a := s.popU64(), s.popI64()
		s.pushI64(a >> (b % 64))
	case wasm.OpI64ShrU:
		b, a := s.popU64(), s.popU64()
		s.pushU64(a >> (b % 64))
	case wasm.OpI64Rotl:
		b, a := s.popU64(), s.popU64()
		s.pushU64(bits.RotateLeft64(a, int(b)))
	case wasm.OpI64Rotr:
		b, a := s.popU64(), s.popU64()
		s.pushU64(bits.RotateLeft64(a, -int(b)))

	// --- f32 arithmetic ---
	case wasm.OpF32Abs:
		s.pushF32(float32(math.Abs(float64(s.popF32()))))
	case wasm.OpF32Neg:
		s.pushF32(-s.popF32())
	case wasm.OpF32Ceil:
		s.pushF32(float32(math.Ceil(float64(s.popF32()))))
	case wasm.OpF32Floor:
		s.pushF32(float32(math.Floor(float64(s.popF32()))))
	case wasm.OpF32Trunc:
		s.pushF32(float32(math.Trunc(float64(s.popF32()))))
	case wasm.OpF32Nearest:
		s.pushF32(float32(math.RoundToEven(float64(s.popF32()))))
	case wasm.OpF32Sqrt:
		s.pushF32(float32(math.Sqrt(float64(s.popF32()))))
	case wasm.OpF32Add:
		b, a := s.popF32(), s.popF32()
		s.pushF32(a + b)
	case wasm.OpF32Sub:
		b, a := s.popF32(), s.popF32()
		s.pushF32(a - b)
	case wasm.OpF32Mul:
		b, a := s.popF32(), s.popF32()
		s.pushF32(a * b)
	case wasm.OpF32Div:
		b, a := s.popF32(), s.popF32()
		s.pushF32(a / b)
	case wasm.OpF32Min:
		b, a := s.popF32(), s.popF32()
		s.pushF32(float32(moremath.WasmCompatMin(float64(a), float64(b))))
	case wasm.OpF32Max:
		b, a := s.popF32(), s.popF32()
		s.pushF32(float32(moremath.WasmCompatMax(float64(a), float64(b))))
	case wasm.OpF32Copysign:
		b, a := s.popF32(), s.popF32()
		s.pushF32(float32(math.Copysign(float64(a), float64(b))))

	// --- f64 arithmetic ---
	case wasm.OpF64Abs:
		s.pushF64(math.Abs(s.popF64()))
	case wasm.OpF64Neg:
		s.pushF64(-s.popF64())
	case wasm.OpF64Ceil:
		s.pushF64(math.Ceil(s.popF64()))
	case wasm.OpF64Floor:
		s.pushF64(math.Floor(s.popF64()))
	case wasm.OpF64Trunc:
		s.pushF64(math.Trunc(s.popF64()))
	case wasm.OpF64Nearest:
		s.pushF64(math.RoundToEven(s.popF64()))
	case wasm.OpF64Sqrt:
		s.pushF64(math.Sqrt(s.popF64()))
	case wasm.OpF64Add:
		b, a := s.popF64(), s.popF64()
		s.pushF64(a + b)
	case wasm.OpF64Sub:
		b, a := s.popF64(), s.popF64()
		s.pushF64(a - b)
	case wasm.OpF64Mul:
		b, a := s.popF64(), s.popF64()
		s.pushF64(a * b)
	case wasm.OpF64Div:
		b, a := s.popF64(), s.popF64()
		s.pushF64(a / b)
	case wasm.OpF64Min:
		b, a := s.popF64(), s.popF64()
		s.pushF64(moremath.WasmCompatMin(a, b))
	case wasm.OpF64Max:
		b, a := s.popF64(), s.popF64()
		s.pushF64(moremath.WasmCompatMax(a, b))
	case wasm.OpF64Copysign:
		b, a := s.popF64(), s.popF64()
		s.pushF64(math.Copysign(a, b))

	// --- conversions ---
	case wasm.OpI32WrapI64:
		s.pushI32(int32(s.popU64()))
	case wasm.OpI32TruncF32S:
		v, e := truncToI32(float64(s.popF32()), true)
		if e != nil {
			return 0, true, e
		}
		s.pushI32(v)
	case wasm.OpI32TruncF32U:
		v, e := truncToI32(float64(s.popF32()), false)
		if e != nil {
			return 0, true, e
		}
		s.pushI32(v)
	case wasm.OpI32TruncF64S:
		v, e := truncToI32(s.popF64(), true)
		if e != nil {
			return 0, true, e
		}
		s.pushI32(v)
	case wasm.OpI32TruncF64U:
		v, e := truncToI32(s.popF64(), false)
		if e != nil {
			return 0, true, e
		}
		s.pushI32(v)
	case wasm.OpI64ExtendI32S:
		s.pushI64(int64(s.popI32()))
	case wasm.OpI64ExtendI32U:
		s.pushI64(int64(uint64(s.popU32())))
	case wasm.OpI64TruncF32S:
		v, e := truncToI64(float64(s.popF32()), true)
		if e != nil {
			return 0, true, e
		}
		s.pushI64(v)
	case wasm.OpI64TruncF32U:
		v, e := truncToI64(float64(s.popF32()), false)
		if e != nil {
			return 0, true, e
		}
		s.pushI64(v)
	case wasm.OpI64TruncF64S:
		v, e := truncToI64(s.popF64(), true)
		if e != nil {
			return 0, true, e
		}
		s.pushI64(v)
	case wasm.OpI64TruncF64U:
		v, e := truncToI64(s.popF64(), false)
		if e != nil {
			return 0, true, e
		}
		s.pushI64(v)
	case wasm.OpF32ConvertI32S:
		s.pushF32(float32(s.popI32()))
	case wasm.OpF32ConvertI32U:
		s.pushF32(float32(s.popU32()))
	case wasm.OpF32ConvertI64S:
		s.pushF32(float32(s.popI64()))
	case wasm.OpF32ConvertI64U:
		s.pushF32(float32(s.popU64()))
	case wasm.OpF32DemoteF64:
		s.pushF32(float32(s.popF64()))
	case wasm.OpF64ConvertI32S:
		s.pushF64(float64(s.popI32()))
	case wasm.OpF64ConvertI32U:
		s.pushF64(float64(s.popU32()))
	case wasm.OpF64ConvertI64S:
		s.pushF64(float64(s.popI64()))
	case wasm.OpF64ConvertI64U:
		s.pushF64(float64(s.popU64()))
	case wasm.OpF64PromoteF32:
		s.pushF64(float64(s.popF32()))
	case wasm.OpI32ReinterpretF32:
		s.pushU32(s.pop().F32Bits())
	case wasm.OpI64ReinterpretF64:
		s.pushU64(s.pop().F64Bits())
	case wasm.OpF32ReinterpretI32:
		s.push(wasm.ValF32(s.popU32()))
	case wasm.OpF64ReinterpretI64:
		s.push(wasm.ValF64(s.popU64()))

	case wasm.OpI32Extend8S:
		s.pushI32(int32(int8(s.popU32())))
	case wasm.OpI32Extend16S:
		s.pushI32(int32(int16(s.popU32())))
	case wasm.OpI64Extend8S:
		s.pushI64(int64(int8(s.popU64())))
	case wasm.OpI64Extend16S:
		s.pushI64(int64(int16(s.popU64())))
	case wasm.OpI64Extend32S:
		s.pushI64(int64(int32(s.popU64())))

	case wasm.OpI32TruncSatF32S:
		s.pushI32(satTruncI32(float64(s.popF32()), true))
	case wasm.OpI32TruncSatF32U:
		s.pushI32(satTruncI32(float64(s.popF32()), false))
	case wasm.OpI32TruncSatF64S:
		s.pushI32(satTruncI32(s.popF64(), true))
	case wasm.OpI32TruncSatF64U:
		s.pushI32(satTruncI32(s.popF64(), false))
	case wasm.OpI64TruncSatF32S:
		s.pushI64(satTruncI64(float64(s.popF32()), true))
	case wasm.OpI64TruncSatF32U:
		s.pushI64(satTruncI64(float64(s.popF32()), false))
	case wasm.OpI64TruncSatF64S:
		s.pushI64(satTruncI64(s.popF64(), true))
	case wasm.OpI64TruncSatF64U:
		s.pushI64(satTruncI64(s.popF64(), false))

	default:
		return pc, false, nil
	}
	return pc + 1, true, nil
}

const (
	i32MinF = -2147483648.0
	i32MaxF = 2147483648.0
	u32MaxF = 4294967296.0
	i64MinF = -9223372036854775808.0
	i64MaxF = 9223372036854775808.0
	u64MaxF = 18446744073709551616.0
)

func truncToI32(f float64, signed bool) (int32, error) {
	if math.IsNaN(f) {
		return 0, vmerr.NewTrap(vmerr.InvalidConversion)
	}
	t := math.Trunc(f)
	if signed {
		if t < i32MinF || t >= i32MaxF {
			return 0, vmerr.NewTrap(vmerr.IntegerOverflow)
		}
		return int32(t), nil
	}
	if t < 0 || t >= u32MaxF {
		return 0, vmerr.NewTrap(vmerr.IntegerOverflow)
	}
	return int32(uint32(t)), nil
}

func truncToI64(f float64, signed bool) (int64, error) {
	if math.IsNaN(f) {
		return 0, vmerr.NewTrap(vmerr.InvalidConversion)
	}
	t := math.Trunc(f)
	if signed {
		if t < i64MinF || t >= i64MaxF {
			return 0, vmerr.NewTrap(vmerr.IntegerOverflow)
		}
		return int64(t), nil
	}
	if t < 0 || t >= u64MaxF {
		return 0, vmerr.NewTrap(vmerr.IntegerOverflow)
	}
	return int64(uint64(t)), nil
}

func satTruncI32(f float64, signed bool) int32 {
	if math.IsNaN(f) {
		return 0
	}
	t := math.Trunc(f)
	if signed {
		if t < i32MinF {
			return math.MinInt32
		}
		if t >= i32MaxF {
			return math.MaxInt32
		}
		return int32(t)
	}
	if t < 0 {
		return 0
	}
	if t >= u32MaxF {
		maxU32 := uint32(math.MaxUint32)
		return int32(maxU32)
	}
	return int32(uint32(t))
}

func satTruncI64(f float64, signed bool) int64 {
	if math.IsNaN(f) {
		return 0
	}
	t := math.Trunc(f)
	if signed {
		if t < i64MinF {
			return math.MinInt64
		}
		if t >= i64MaxF {
			return math.MaxInt64
		}
		return int64(t)
	}
	if t < 0 {
		return 0
	}
	if t >= u64MaxF {
		maxU64 := uint64(math.MaxUint64)
		return int64(maxU64)
	}
	return int64(uint64(t))
}

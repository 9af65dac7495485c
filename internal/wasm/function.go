package wasm

import "reflect"

// HostCategory classifies the outcome a host function thunk reports. Its
// values mirror vmerr.HostErrorCategory.
type HostCategory uint8

const (
	HostSuccess HostCategory = iota
	HostWASM
	HostUserLevelError
)

// HostThunk is the logical host function ABI: `thunk(data, callingFrame,
// args, results) -> (category, code)`. CallingFrame is `interface{}` here to
// avoid a dependency from internal/wasm on the executor package; it is
// always a *executor.Frame at runtime and host functions type-assert it
// themselves.
type HostThunk func(data interface{}, callingFrame interface{}, args []Value, results []Value) (HostCategory, uint32)

// HostFunction is a (function type, data pointer, thunk) tuple. The wrapped
// variant is produced by NewWrappedHostFunction, which lets a host register
// a statically typed Go func and have a bridge unpack the dynamic argument
// vector into a reflect.Value call.
type HostFunction struct {
	Type  *FunctionType
	Data  interface{}
	Thunk HostThunk

	// goFunc is set only for the wrapped variant.
	goFunc *reflect.Value
}

// NewWrappedHostFunction adapts a statically typed Go function into the
// dynamic HostThunk contract. fn must be a func whose first parameter
// accepts the calling frame (a *executor.Frame at runtime); additional
// parameters/results are restricted to the types representable as a Value
// (int32, int64, float32, float64, uint64 as externref/funcref token).
func NewWrappedHostFunction(t *FunctionType, fn reflect.Value) *HostFunction {
	hf := &HostFunction{Type: t, goFunc: &fn}
	hf.Thunk = func(_ interface{}, frame interface{}, args []Value, results []Value) (HostCategory, uint32) {
		in := make([]reflect.Value, 0, len(args)+1)
		in = append(in, reflect.ValueOf(frame))
		for _, a := range args {
			in = append(in, reflectArg(a))
		}
		out := fn.Call(in)
		for i, o := range out {
			results[i] = reflectResult(results[i].Type, o)
		}
		return HostSuccess, 0
	}
	return hf
}

func reflectArg(v Value) reflect.Value {
	switch v.Type.Kind {
	case KindI32:
		return reflect.ValueOf(v.I32())
	case KindI64:
		return reflect.ValueOf(v.I64())
	case KindF32:
		return reflect.ValueOf(float32FromBits(v.F32Bits()))
	case KindF64:
		return reflect.ValueOf(float64FromBits(v.F64Bits()))
	default: // funcref/externref/v128: pass the raw token
		return reflect.ValueOf(v.Lo)
	}
}

func reflectResult(t ValueType, rv reflect.Value) Value {
	switch t.Kind {
	case KindI32:
		return ValI32(int32(rv.Int()))
	case KindI64:
		return ValI64(rv.Int())
	case KindF32:
		return ValF32(float32Bits(float32(rv.Float())))
	case KindF64:
		return ValF64(float64Bits(rv.Float()))
	default:
		return Value{Type: t, Lo: rv.Uint()}
	}
}

// FunctionInstance is either a guest function (a reference into its
// enclosing module instance's code section) or a host function. The
// declared function type is immutable once constructed.
type FunctionInstance struct {
	Type *FunctionType

	// Guest function fields. Module is a non-owning back-reference; the
	// function is destroyed only after its module instance, which breaks
	// the otherwise-cyclic ownership between the two.
	Module *ModuleInstance
	Local  *LocalFunction

	// Host function fields.
	Host *HostFunction

	// Index is this function's position in the owning module instance's
	// function index namespace, imports first.
	Index uint32
	// DebugName is the function's human-readable name, for logs and traps.
	DebugName string
}

func (f *FunctionInstance) IsHost() bool { return f.Host != nil }

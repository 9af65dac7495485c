package wasm

// InstanceError is a sentinel instance-level error, distinct from
// vmerr.Trap: table/memory/global instance methods are called both from
// guest bytecode (where the executor turns ErrOutOfBounds into the
// OutOfBounds trap and the others into structural errors) and from the
// host-surface API (which returns them verbatim as typed errors).
type InstanceError string

func (e InstanceError) Error() string { return string(e) }

const (
	ErrOutOfBounds     InstanceError = "out of bounds"
	ErrTypeMismatch    InstanceError = "type mismatch"
	ErrNonNullRequired InstanceError = "non-nullable type cannot hold null"
	ErrSetConstant     InstanceError = "cannot set an immutable global"
)

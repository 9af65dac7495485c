package wasm

// TableInstance is a contiguous, growable sequence of reference values of a
// single reference type.
type TableInstance struct {
	ElemType ValueType
	Min      uint32
	Max      *uint32
	elems    []Value
}

// NewTableInstance allocates a table at its declared min size, filled with
// null references.
func NewTableInstance(t *TableType) *TableInstance {
	ti := &TableInstance{ElemType: t.ElemType, Min: t.Limits.Min, Max: t.Limits.Max}
	ti.elems = make([]Value, t.Limits.Min)
	for i := range ti.elems {
		ti.elems[i] = ValNullFuncRef(t.ElemType)
	}
	return ti
}

func (t *TableInstance) Size() uint32 { return uint32(len(t.elems)) }

// Get returns the value at index i. Fails with ErrOutOfBounds when i >= size.
func (t *TableInstance) Get(i uint32) (Value, error) {
	if i >= t.Size() {
		return Value{}, ErrOutOfBounds
	}
	return t.elems[i], nil
}

// Set writes v at index i: ErrOutOfBounds when i >= size, ErrTypeMismatch
// when v's reference kind is incompatible with the element type, and
// ErrNonNullRequired when the element type is non-nullable and v is null.
func (t *TableInstance) Set(i uint32, v Value) error {
	if i >= t.Size() {
		return ErrOutOfBounds
	}
	if !v.Type.IsRef() {
		return ErrTypeMismatch
	}
	if !t.ElemType.AssignableFrom(v.Type) {
		return ErrTypeMismatch
	}
	if !t.ElemType.Nullable && v.IsNullRef() {
		return ErrNonNullRequired
	}
	t.elems[i] = v
	return nil
}

// Grow grows the table by n elements initialized to init, returning the old
// size on success, or ErrOutOfBounds when size+n > max. init is held to the
// same rules as Set: a non-reference value fails with ErrTypeMismatch, an
// incompatible reference kind fails with ErrTypeMismatch, and a null init
// for a non-nullable element type fails with ErrNonNullRequired. The
// guest-visible table.grow instruction translates the error into -1; this
// host-surface method returns it typed.
func (t *TableInstance) Grow(n uint32, init Value) (old uint32, err error) {
	old = t.Size()
	if n == 0 {
		return old, nil
	}
	if !init.Type.IsRef() {
		return old, ErrTypeMismatch
	}
	if !t.ElemType.AssignableFrom(init.Type) {
		return old, ErrTypeMismatch
	}
	if !t.ElemType.Nullable && init.IsNullRef() {
		return old, ErrNonNullRequired
	}
	newSize := uint64(old) + uint64(n)
	if t.Max != nil && newSize > uint64(*t.Max) {
		return old, ErrOutOfBounds
	}
	grown := make([]Value, newSize)
	copy(grown, t.elems)
	for i := old; i < uint32(newSize); i++ {
		grown[i] = init
	}
	t.elems = grown
	return old, nil
}

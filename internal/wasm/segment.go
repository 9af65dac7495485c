package wasm

// DataInstance is a byte buffer used by bulk memory init/copy instructions.
// Dropping empties it while keeping its identity.
type DataInstance struct {
	bytes   []byte
	dropped bool
}

func NewDataInstance(b []byte) *DataInstance { return &DataInstance{bytes: b} }

func (d *DataInstance) Bytes() []byte {
	if d.dropped {
		return nil
	}
	return d.bytes
}

func (d *DataInstance) Drop() { d.dropped = true; d.bytes = nil }

func (d *DataInstance) Dropped() bool { return d.dropped }

// ElementInstance is a reference buffer used by bulk table init/copy
// instructions, with the same drop semantics as DataInstance.
type ElementInstance struct {
	Type    ValueType
	refs    []Value
	dropped bool
}

func NewElementInstance(t ValueType, refs []Value) *ElementInstance {
	return &ElementInstance{Type: t, refs: refs}
}

func (e *ElementInstance) Refs() []Value {
	if e.dropped {
		return nil
	}
	return e.refs
}

func (e *ElementInstance) Drop() { e.dropped = true; e.refs = nil }

func (e *ElementInstance) Dropped() bool { return e.dropped }

package wasm

const (
	// MemoryPageSize is 64 KiB, the unit memory is measured and grown in.
	MemoryPageSize = 65536
	// MemoryMaxPages is the 32-bit address model's absolute ceiling: 4 GiB
	// of addressable space.
	MemoryMaxPages = 65536
)

// MemoryInstance is a contiguous byte array measured in 64-KiB pages. Every
// access is bounds-checked against the current page count using 64-bit
// arithmetic to avoid wraparound.
type MemoryInstance struct {
	Min, Max *uint32 // Max nil means bounded only by MemoryMaxPages
	buf      []byte
}

func NewMemoryInstance(t *MemoryType) *MemoryInstance {
	m := &MemoryInstance{Min: &t.Limits.Min, Max: t.Limits.Max}
	m.buf = make([]byte, uint64(t.Limits.Min)*MemoryPageSize)
	return m
}

func (m *MemoryInstance) SizePages() uint32 { return uint32(uint64(len(m.buf)) / MemoryPageSize) }

func (m *MemoryInstance) inBounds(offset, length uint64) bool {
	end := offset + length // both are already widened to uint64 by callers
	if end < offset {      // overflow
		return false
	}
	return end <= uint64(len(m.buf))
}

// Read returns a view (not a copy) of length bytes starting at offset, or
// ErrOutOfBounds. The view is write-through: mutating the returned slice
// mutates guest memory.
func (m *MemoryInstance) Read(offset, length uint32) ([]byte, error) {
	off, ln := uint64(offset), uint64(length)
	if !m.inBounds(off, ln) {
		return nil, ErrOutOfBounds
	}
	return m.buf[off : off+ln : off+ln], nil
}

// Write copies src into memory starting at offset, or fails with
// ErrOutOfBounds.
func (m *MemoryInstance) Write(offset uint32, src []byte) error {
	off, ln := uint64(offset), uint64(len(src))
	if !m.inBounds(off, ln) {
		return ErrOutOfBounds
	}
	copy(m.buf[off:off+ln], src)
	return nil
}

// RawPointer returns a zero-copy slice for host access, or nil if the span
// is out of range. The returned slice is invalidated by any subsequent Grow
// on this memory; dereferencing it afterward is undefined.
func (m *MemoryInstance) RawPointer(offset, length uint32) []byte {
	b, err := m.Read(offset, length)
	if err != nil {
		return nil
	}
	return b
}

// Grow increases memory by n pages, returning the old page count on
// success, or ErrOutOfBounds if the new size would exceed Max or
// MemoryMaxPages.
func (m *MemoryInstance) Grow(n uint32) (old uint32, err error) {
	old = m.SizePages()
	if n == 0 {
		return old, nil
	}
	newPages := uint64(old) + uint64(n)
	ceiling := uint64(MemoryMaxPages)
	if m.Max != nil && uint64(*m.Max) < ceiling {
		ceiling = uint64(*m.Max)
	}
	if newPages > ceiling {
		return old, ErrOutOfBounds
	}
	grown := make([]byte, newPages*MemoryPageSize)
	copy(grown, m.buf)
	m.buf = grown
	return old, nil
}

func (m *MemoryInstance) Bytes() []byte { return m.buf }

// Package handle implements the handle manager underpinning the external
// C-style API: opaque 32-bit tokens mapping to internal objects via
// ownership semantics that vary by flavor, packed (typeTag<<24)|sequence.
package handle

import (
	"fmt"
	"sync"

	"github.com/wasmedge-go/wasmcore/internal/vmerr"
)

// Handle is a 32-bit opaque token split [type-tag:8 | sequence:24]. It is
// stable within a process lifetime and is not persistence-safe across
// processes.
type Handle uint32

const seqMask = 0x00FFFFFF
const seqSpace = 1 << 24

func Encode(typeTag byte, seq uint32) Handle {
	return Handle(uint32(typeTag)<<24 | (seq & seqMask))
}

func (h Handle) TypeTag() byte   { return byte(h >> 24) }
func (h Handle) Sequence() uint32 { return uint32(h) & seqMask }

func (h Handle) String() string { return fmt.Sprintf("handle(tag=%d,seq=%d)", h.TypeTag(), h.Sequence()) }

// slotAllocator hands out the next sequence value for a given type tag,
// scanning forward for the next free slot on collision after a 2^24 wrap.
type slotAllocator struct {
	next uint32
}

// allocate returns the next free sequence not present in occupied.
func (a *slotAllocator) allocate(occupied map[uint32]struct{}) (uint32, error) {
	if len(occupied) >= seqSpace {
		return 0, vmerr.HandleSpaceExhausted
	}
	start := a.next
	seq := start
	for {
		if _, taken := occupied[seq]; !taken {
			a.next = (seq + 1) & seqMask
			return seq, nil
		}
		seq = (seq + 1) & seqMask
		if seq == start {
			return 0, vmerr.HandleSpaceExhausted
		}
	}
}

// RefCountedManager holds a shared ownership token per registered object.
// Lookup returns a brand-new handle sharing ownership of the same object and
// bumps its reference count, extending the object's lifetime.
type RefCountedManager struct {
	mu       sync.Mutex
	typeTag  byte
	alloc    slotAllocator
	occupied map[uint32]struct{}
	slots    map[uint32]*sharedSlot
}

type sharedSlot struct {
	obj      interface{}
	refCount int32
}

func NewRefCountedManager(typeTag byte) *RefCountedManager {
	return &RefCountedManager{
		typeTag:  typeTag,
		occupied: map[uint32]struct{}{},
		slots:    map[uint32]*sharedSlot{},
	}
}

// Register creates a fresh shared slot for obj with refCount 1 and returns
// its handle.
func (m *RefCountedManager) Register(obj interface{}) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seq, err := m.alloc.allocate(m.occupied)
	if err != nil {
		return 0, err
	}
	m.occupied[seq] = struct{}{}
	m.slots[seq] = &sharedSlot{obj: obj, refCount: 1}
	return Encode(m.typeTag, seq), nil
}

// Lookup returns the object h addresses, plus a new handle sharing
// ownership of it (refCount bumped). The caller owns the returned handle
// independently of h and must Close it separately.
func (m *RefCountedManager) Lookup(h Handle) (obj interface{}, shared Handle, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[h.Sequence()]
	if !ok || h.TypeTag() != m.typeTag {
		return nil, 0, vmerr.Closed
	}
	seq, err := m.alloc.allocate(m.occupied)
	if err != nil {
		return nil, 0, err
	}
	m.occupied[seq] = struct{}{}
	m.slots[seq] = slot
	slot.refCount++
	return slot.obj, Encode(m.typeTag, seq), nil
}

// Peek returns the object h addresses without extending its lifetime.
func (m *RefCountedManager) Peek(h Handle) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[h.Sequence()]
	if !ok || h.TypeTag() != m.typeTag {
		return nil, vmerr.Closed
	}
	return slot.obj, nil
}

// Close removes h's mapping and decrements its slot's reference count. It
// returns vmerr.Closed if h is no longer present.
func (m *RefCountedManager) Close(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[h.Sequence()]
	if !ok || h.TypeTag() != m.typeTag {
		return vmerr.Closed
	}
	delete(m.slots, h.Sequence())
	delete(m.occupied, h.Sequence())
	slot.refCount--
	if slot.refCount == 0 {
		if closer, ok := slot.obj.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}
	return nil
}

// Len reports the number of live handles, used by tests asserting the
// post-close state matches the pre-registration state.
func (m *RefCountedManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

// ByReferenceManager holds a non-owning pointer per registered object.
// Lookups fail once the backing object is invalidated.
type ByReferenceManager struct {
	mu       sync.Mutex
	typeTag  byte
	alloc    slotAllocator
	occupied map[uint32]struct{}
	objs     map[uint32]interface{}
}

func NewByReferenceManager(typeTag byte) *ByReferenceManager {
	return &ByReferenceManager{
		typeTag:  typeTag,
		occupied: map[uint32]struct{}{},
		objs:     map[uint32]interface{}{},
	}
}

func (m *ByReferenceManager) Register(obj interface{}) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seq, err := m.alloc.allocate(m.occupied)
	if err != nil {
		return 0, err
	}
	m.occupied[seq] = struct{}{}
	m.objs[seq] = obj
	return Encode(m.typeTag, seq), nil
}

func (m *ByReferenceManager) Lookup(h Handle) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objs[h.Sequence()]
	if !ok || h.TypeTag() != m.typeTag {
		return nil, vmerr.Closed
	}
	return obj, nil
}

// Invalidate marks the object behind h destroyed, so future lookups fail
// (e.g. the owner is closing its side of a non-owning reference). Unlike
// Close it reports nothing: an absent h is silently ignored.
func (m *ByReferenceManager) Invalidate(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objs, h.Sequence())
	delete(m.occupied, h.Sequence())
}

func (m *ByReferenceManager) Close(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objs[h.Sequence()]; !ok || h.TypeTag() != m.typeTag {
		return vmerr.Closed
	}
	delete(m.objs, h.Sequence())
	delete(m.occupied, h.Sequence())
	return nil
}

func (m *ByReferenceManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objs)
}

package wasm

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wasmedge-go/wasmcore/internal/vmerr"
)

// Store is the mutable, process-wide registry of module instances. It is
// not a lifetime root: destroying the store drops its share of ownership of
// registered module instances but never invalidates a still-held external
// reference.
//
// Find and ListNames take the read lock, Register/Unregister the write
// lock.
type Store struct {
	mu      sync.RWMutex
	modules map[string]*ModuleInstance
	order   []string

	log *logrus.Entry
}

func NewStore() *Store {
	return &Store{
		modules: map[string]*ModuleInstance{},
		log:     logrus.WithField("component", "store"),
	}
}

// Register adds mi under mi.Name, failing with ModuleNameConflict if that
// name is already present; a store holds at most one module instance per
// name.
func (s *Store) Register(mi *ModuleInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.modules[mi.Name]; exists {
		return fmt.Errorf("%w: %q", vmerr.ModuleNameConflict, mi.Name)
	}
	s.modules[mi.Name] = mi
	s.order = append(s.order, mi.Name)
	s.log.WithField("module", mi.Name).Debug("module registered")
	return nil
}

// Unregister removes the module instance registered under name, if any.
func (s *Store) Unregister(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.modules[name]; !exists {
		return
	}
	delete(s.modules, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.log.WithField("module", name).Debug("module unregistered")
}

// Find looks up a module instance by name.
func (s *Store) Find(name string) (*ModuleInstance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mi, ok := s.modules[name]
	return mi, ok
}

// ListNames enumerates registered module names in insertion order.
func (s *Store) ListNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// FindExport resolves a (module, name, kind) import reference against the
// store, used by the instantiation pipeline's import-resolution step.
func (s *Store) FindExport(module, name string, kind ExternKind) (*ExportInstance, error) {
	mi, ok := s.Find(module)
	if !ok {
		return nil, fmt.Errorf("%w: module %q", vmerr.UnknownImport, module)
	}
	e, ok := mi.Exports[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q.%q", vmerr.UnknownImport, module, name)
	}
	if e.Kind != kind {
		return nil, fmt.Errorf("%w: %q.%q is a %s, not a %s", vmerr.IncompatibleImportType, module, name, e.Kind, kind)
	}
	return e, nil
}

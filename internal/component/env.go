package component

import (
	"fmt"
	"sync"

	"github.com/vk/compreg/internal/resource"
	"github.com/vk/compreg/internal/storage"
)

// Env is what a loader may touch besides the record: the storage collaborator
// and the tables used to resolve names in resource and entity fields.
type Env struct {
	World     *storage.World
	Resources *resource.Table // may be nil when no resource fields are loaded
	Entities  EntityNames     // may be nil when no entity fields are loaded
}

// EntityNames resolves entity names used in configuration.
type EntityNames interface {
	ResolveEntity(name string) (storage.Entity, bool)
	EntityName(e storage.Entity) (string, bool)
}

// NameMap is an EntityNames backed by two maps. It is safe for concurrent use.
type NameMap struct {
	mu       sync.RWMutex
	byName   map[string]storage.Entity
	byEntity map[storage.Entity]string
}

// NewNameMap creates an empty NameMap.
func NewNameMap() *NameMap {
	return &NameMap{
		byName:   make(map[string]storage.Entity),
		byEntity: make(map[storage.Entity]string),
	}
}

// Bind associates name with e. Rebinding a name is an error.
func (m *NameMap) Bind(name string, e storage.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if other, ok := m.byName[name]; ok {
		return fmt.Errorf("entity name %q already bound to %s", name, other)
	}
	m.byName[name] = e
	m.byEntity[e] = name
	return nil
}

// Unbind forgets e.
func (m *NameMap) Unbind(e storage.Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name, ok := m.byEntity[e]; ok {
		delete(m.byName, name)
		delete(m.byEntity, e)
	}
}

func (m *NameMap) ResolveEntity(name string) (storage.Entity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byName[name]
	return e, ok
}

func (m *NameMap) EntityName(e storage.Entity) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.byEntity[e]
	return name, ok
}

// Defaulter is implemented by component types that state defaults for their
// optional fields. SetDefaults runs on a zero value before any field is read.
type Defaulter interface {
	SetDefaults()
}

// Validator is implemented by component types with cross-field rules. It
// runs after every field has been parsed and before anything is committed.
type Validator interface {
	Validate() error
}

// Finalizer is implemented by component types that derive state from their
// parsed fields. Finalize runs on the constructed value right before commit.
type Finalizer interface {
	Finalize()
}

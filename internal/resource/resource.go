// Package resource keeps the table of named assets (textures, meshes and
// anything else a component may point at by name). Components store a Handle;
// the table maps the handle back to what was declared.
package resource

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vk/compreg/internal/typeid"
)

// Handle addresses a registered resource. The zero Handle means "none".
type Handle uint32

// Kind classifies a resource. An empty kind matches any field kind.
type Kind string

const (
	KindAny     Kind = ""
	KindTexture Kind = "texture"
	KindMesh    Kind = "mesh"
)

// Entry describes one registered resource.
type Entry struct {
	Handle Handle
	Name   string
	ID     typeid.StableID
	Kind   Kind
	Path   string
}

// Table maps resource names (by stable id) to handles.
type Table struct {
	mu      sync.RWMutex
	byID    map[typeid.StableID]*Entry
	entries []*Entry
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{byID: make(map[typeid.StableID]*Entry)}
}

// Register adds a resource and returns its handle. Registering a name twice
// is an error.
func (t *Table) Register(name string, kind Kind, path string) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := typeid.Hash(name)
	if existing, ok := t.byID[id]; ok {
		return 0, fmt.Errorf("resource %q already registered (as %q)", name, existing.Name)
	}
	entry := &Entry{
		Handle: Handle(len(t.entries) + 1),
		Name:   name,
		ID:     id,
		Kind:   kind,
		Path:   path,
	}
	t.entries = append(t.entries, entry)
	t.byID[id] = entry
	return entry.Handle, nil
}

// Find resolves a resource by the stable id of its name.
func (t *Table) Find(id typeid.StableID) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.byID[id]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// FindByName is Find(typeid.Hash(name)).
func (t *Table) FindByName(name string) (Entry, bool) {
	return t.Find(typeid.Hash(name))
}

// Lookup returns the entry a handle was issued for.
func (t *Table) Lookup(h Handle) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if h == 0 || int(h) > len(t.entries) {
		return Entry{}, false
	}
	return *t.entries[h-1], true
}

// Entries lists all resources sorted by name.
func (t *Table) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

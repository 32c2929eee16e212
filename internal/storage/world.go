package storage

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/vk/compreg/internal/typeid"
)

// World holds entities and, per component tag, the instances attached to them.
type World struct {
	id uuid.UUID

	mu          sync.RWMutex
	generations []uint32 // indexed by slot; generation of the live or last entity
	alive       []bool
	free        []uint32
	live        int
	pools       map[typeid.Tag]map[Entity]any // values are *T
}

// NewWorld creates an empty world with a fresh identity.
func NewWorld() *World {
	return &World{
		id:    uuid.New(),
		pools: make(map[typeid.Tag]map[Entity]any),
	}
}

// ID identifies this world instance in logs.
func (w *World) ID() uuid.UUID {
	return w.id
}

// Create allocates a new entity with no components.
func (w *World) Create() Entity {
	w.mu.Lock()
	defer w.mu.Unlock()

	var index uint32
	if n := len(w.free); n > 0 {
		index = w.free[n-1]
		w.free = w.free[:n-1]
		w.generations[index]++
	} else {
		index = uint32(len(w.generations))
		// Generations start at 1 so that no live entity equals Null.
		w.generations = append(w.generations, 1)
		w.alive = append(w.alive, false)
	}
	w.alive[index] = true
	w.live++
	return makeEntity(index, w.generations[index])
}

// Destroy removes every component of e and releases its slot. It reports
// whether e was alive.
func (w *World) Destroy(e Entity) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.aliveLocked(e) {
		return false
	}
	for _, pool := range w.pools {
		delete(pool, e)
	}
	w.alive[e.Index()] = false
	w.free = append(w.free, e.Index())
	w.live--
	return true
}

// Alive reports whether e refers to an existing entity.
func (w *World) Alive(e Entity) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.aliveLocked(e)
}

func (w *World) aliveLocked(e Entity) bool {
	idx := e.Index()
	if e == Null || int(idx) >= len(w.generations) {
		return false
	}
	return w.alive[idx] && w.generations[idx] == e.Generation()
}

// Len returns the number of live entities.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.live
}

// Entities returns the live entities ordered by slot.
func (w *World) Entities() []Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]Entity, 0, w.live)
	for idx, ok := range w.alive {
		if ok {
			out = append(out, makeEntity(uint32(idx), w.generations[idx]))
		}
	}
	return out
}

// SetTag stores ptr as e's instance of the component identified by tag,
// replacing any previous instance. ptr must be a pointer to the component
// value; the world keeps it as is.
func (w *World) SetTag(e Entity, tag typeid.Tag, ptr any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.aliveLocked(e) {
		return fmt.Errorf("%s: %w", e, ErrDeadEntity)
	}
	pool, ok := w.pools[tag]
	if !ok {
		pool = make(map[Entity]any)
		w.pools[tag] = pool
	}
	pool[e] = ptr
	return nil
}

// GetTag returns the pointer stored for e under tag.
func (w *World) GetTag(e Entity, tag typeid.Tag) (any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ptr, ok := w.pools[tag][e]
	return ptr, ok
}

// HasTag reports whether e holds a component with the given tag.
func (w *World) HasTag(e Entity, tag typeid.Tag) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.pools[tag][e]
	return ok
}

// RemoveTag detaches the component with the given tag from e. Removing an
// absent component is not an error; the result tells whether anything was
// removed.
func (w *World) RemoveTag(e Entity, tag typeid.Tag) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	pool, ok := w.pools[tag]
	if !ok {
		return false
	}
	if _, ok := pool[e]; !ok {
		return false
	}
	delete(pool, e)
	return true
}

// RemoveAllTag detaches the component with the given tag from every entity
// and returns how many instances were dropped.
func (w *World) RemoveAllTag(tag typeid.Tag) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := len(w.pools[tag])
	delete(w.pools, tag)
	return n
}

// CountTag returns how many entities hold the component with the given tag.
func (w *World) CountTag(tag typeid.Tag) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.pools[tag])
}

// Tags lists the component tags attached to e in ascending order.
func (w *World) Tags(e Entity) []typeid.Tag {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var out []typeid.Tag
	for tag, pool := range w.pools {
		if _, ok := pool[e]; ok {
			out = append(out, tag)
		}
	}
	slices.Sort(out)
	return out
}

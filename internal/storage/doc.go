// Package storage provides a thread-safe, in-memory entity/component store.
//
// # Purpose
//
// The descriptor layer never owns component data. It addresses an external
// store through four primitives per entity and component type:
// insert-or-replace (Set), remove (Remove), get-reference (Get) and
// has-component (Has). World is the store used by the application and the
// tests. It deliberately offers nothing beyond those primitives and entity
// lifetime management: there are no queries, archetypes or systems.
//
// # Entities
//
// An Entity packs a slot index and a generation. Destroying an entity bumps
// the generation of its slot, so stale handles are detected instead of
// aliasing a newer entity. The zero Entity (Null) is never alive.
//
// # Concurrency Model
//
// All methods are safe for concurrent use. A single RWMutex guards the world;
// reads (Has, Get, Alive) share it, writes exclude everyone. Get hands out a
// pointer to the stored value. Callers that mutate through it from several
// goroutines must coordinate per entity themselves.
package storage

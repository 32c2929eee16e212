package storage

import (
	"errors"
	"fmt"
)

// Entity is an opaque handle into a World.
type Entity uint64

// Null is the handle no entity ever has.
const Null Entity = 0

// ErrDeadEntity is returned when an operation targets an entity that was
// destroyed or never created.
var ErrDeadEntity = errors.New("entity is not alive")

func makeEntity(index, generation uint32) Entity {
	return Entity(uint64(generation)<<32 | uint64(index))
}

// Index returns the slot the entity occupies.
func (e Entity) Index() uint32 {
	return uint32(e)
}

// Generation returns how many times the slot had been reused when the
// entity was created.
func (e Entity) Generation() uint32 {
	return uint32(e >> 32)
}

func (e Entity) String() string {
	if e == Null {
		return "entity(null)"
	}
	return fmt.Sprintf("entity(%d:%d)", e.Index(), e.Generation())
}

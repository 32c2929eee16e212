package typeid

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// Tag is a process-local identifier for a Go type. The zero Tag is never
// handed out.
type Tag uint32

// tagTable assigns tags with lock-free reads on the hot path. Types are
// tagged once and looked up constantly.
type tagTable struct {
	byType sync.Map // map[reflect.Type]Tag
	next   atomic.Uint32

	mu    sync.RWMutex
	byTag map[Tag]reflect.Type
}

var tags = &tagTable{byTag: make(map[Tag]reflect.Type)}

// TagOf returns the tag of t, allocating one on first use.
func TagOf(t reflect.Type) Tag {
	if tag, ok := tags.byType.Load(t); ok {
		return tag.(Tag)
	}

	candidate := Tag(tags.next.Add(1))
	actual, loaded := tags.byType.LoadOrStore(t, candidate)
	if loaded {
		// Lost the race; the candidate value is simply skipped.
		return actual.(Tag)
	}

	tags.mu.Lock()
	tags.byTag[candidate] = t
	tags.mu.Unlock()
	return candidate
}

// TagFor returns the tag of T.
func TagFor[T any]() Tag {
	return TagOf(reflect.TypeFor[T]())
}

// TypeOf returns the Go type a tag was allocated for.
func TypeOf(tag Tag) (reflect.Type, bool) {
	tags.mu.RLock()
	defer tags.mu.RUnlock()
	t, ok := tags.byTag[tag]
	return t, ok
}

package storage

import "github.com/vk/compreg/internal/typeid"

// Set inserts value as e's T component, replacing any existing instance
// wholesale.
func Set[T any](w *World, e Entity, value T) error {
	ptr := new(T)
	*ptr = value
	return w.SetTag(e, typeid.TagFor[T](), ptr)
}

// Get returns a pointer to e's T component. The pointer stays valid until the
// component is replaced or removed.
func Get[T any](w *World, e Entity) (*T, bool) {
	ptr, ok := w.GetTag(e, typeid.TagFor[T]())
	if !ok {
		return nil, false
	}
	return ptr.(*T), true
}

// Has reports whether e holds a T component.
func Has[T any](w *World, e Entity) bool {
	return w.HasTag(e, typeid.TagFor[T]())
}

// Remove detaches e's T component if present.
func Remove[T any](w *World, e Entity) bool {
	return w.RemoveTag(e, typeid.TagFor[T]())
}

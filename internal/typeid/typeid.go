package typeid

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// StableID is the content-derived identifier of a named thing (a component
// type, a resource, a signal). It matches entt's 32-bit hashed_string values.
type StableID uint32

// String renders the id as a fixed-width hex literal.
func (id StableID) String() string {
	return fmt.Sprintf("0x%08x", uint32(id))
}

// CoreNamespace is the namespace a component lives in when none is given.
// Components in it are addressed by their bare name.
const CoreNamespace = "core"

// Hash returns the stable id of name.
func Hash(name string) StableID {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return StableID(h.Sum32())
}

// CanonicalName joins a namespace and a name into the string that is hashed
// into a component's stable id. The core namespace is left implicit.
func CanonicalName(namespace, name string) string {
	namespace = strings.Trim(namespace, "/")
	if namespace == "" || namespace == CoreNamespace {
		return name
	}
	return namespace + "/" + name
}

// Of returns the canonical name and stable id for a namespaced name.
func Of(namespace, name string) (string, StableID) {
	canonical := CanonicalName(namespace, name)
	return canonical, Hash(canonical)
}

// SplitName is the inverse of CanonicalName.
func SplitName(canonical string) (namespace, name string) {
	idx := strings.LastIndex(canonical, "/")
	if idx < 0 {
		return CoreNamespace, canonical
	}
	return canonical[:idx], canonical[idx+1:]
}

// HashedString keeps a string next to its stable id so the readable form
// survives for diagnostics.
type HashedString struct {
	Value string
	ID    StableID
}

// NewHashedString hashes s.
func NewHashedString(s string) HashedString {
	return HashedString{Value: s, ID: Hash(s)}
}

func (h HashedString) String() string {
	return h.Value
}

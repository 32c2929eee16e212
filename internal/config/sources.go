package config

import (
	"maps"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// Sources maps every loaded file to the fingerprint of its contents.
type Sources map[string]uint64

// Fingerprint hashes file contents.
func Fingerprint(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Add records the fingerprint of data under path.
func (s Sources) Add(path string, data []byte) {
	s[path] = Fingerprint(data)
}

// Paths returns the recorded paths in sorted order.
func (s Sources) Paths() []string {
	return slices.Sorted(maps.Keys(s))
}

// Diff compares s (the previous load) with next. Changed lists paths present
// in both with different contents, added and removed the rest.
func (s Sources) Diff(next Sources) (changed, added, removed []string) {
	for _, path := range next.Paths() {
		prev, ok := s[path]
		switch {
		case !ok:
			added = append(added, path)
		case prev != next[path]:
			changed = append(changed, path)
		}
	}
	for _, path := range s.Paths() {
		if _, ok := next[path]; !ok {
			removed = append(removed, path)
		}
	}
	return changed, added, removed
}

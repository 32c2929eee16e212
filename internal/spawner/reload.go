package spawner

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/vk/compreg/internal/config"
	"github.com/vk/compreg/internal/ctxlog"
)

// Despawn destroys every entity spawned from source and forgets the source.
// It returns how many entities were destroyed.
func (s *Spawner) Despawn(ctx context.Context, source string) int {
	spawned := s.detach([]string{source})
	n := s.release(spawned)
	ctxlog.FromContext(ctx).Debug("Despawned source.", "source", source, "entities", n)
	return n
}

// detachedSource is a source taken out of the spawner's bookkeeping whose
// entities are still alive, so it can be put back.
type detachedSource struct {
	path        string
	fingerprint uint64
	known       bool
	entities    []Spawned
}

// detach forgets the given sources and unbinds their entity names, leaving
// the entities themselves alive.
func (s *Spawner) detach(paths []string) []detachedSource {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]detachedSource, 0, len(paths))
	for _, path := range paths {
		fp, known := s.sources[path]
		d := detachedSource{path: path, fingerprint: fp, known: known, entities: s.bySource[path]}
		delete(s.bySource, path)
		delete(s.sources, path)
		for _, sp := range d.entities {
			s.names.Unbind(sp.Entity)
		}
		out = append(out, d)
	}
	return out
}

// release destroys detached entities and returns how many there were.
func (s *Spawner) release(detached []detachedSource) int {
	n := 0
	for _, d := range detached {
		for _, sp := range d.entities {
			s.world.Destroy(sp.Entity)
		}
		n += len(d.entities)
	}
	return n
}

// restore puts detached sources back as they were.
func (s *Spawner) restore(detached []detachedSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, d := range detached {
		for _, sp := range d.entities {
			if err := s.names.Bind(sp.Name, sp.Entity); err != nil {
				errs = append(errs, fmt.Errorf("entity '%s' (%s): %w", sp.Name, sp.Source, err))
			}
		}
		if len(d.entities) > 0 {
			s.bySource[d.path] = d.entities
		}
		if d.known {
			s.sources[d.path] = d.fingerprint
		}
	}
	return errors.Join(errs...)
}

// Reload compares next with what was spawned so far by file fingerprint.
// Changed and added files are spawned first; only when that succeeds are
// the old entities of changed and removed files destroyed. A failed reload
// leaves the world as it was. Unchanged files are left alone, so entity
// fields pointing at a reloaded entity keep the old, now dead, handle.
func (s *Spawner) Reload(ctx context.Context, next *config.Model) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	s.mu.Lock()
	changed, added, removed := s.sources.Diff(next.Sources)
	s.mu.Unlock()
	logger.Info("Reloading definitions.", "changed", len(changed), "added", len(added), "removed", len(removed))

	// Names must be free before the new definitions can bind them.
	detached := s.detach(slices.Concat(changed, removed))

	partial := config.NewModel()
	partial.Resources = next.Resources
	for _, path := range slices.Concat(changed, added) {
		partial.Sources[path] = next.Sources[path]
		partial.Entities = append(partial.Entities, next.EntitiesFrom(path)...)
	}

	result, err := s.Spawn(ctx, partial)
	if err != nil {
		if rerr := s.restore(detached); rerr != nil {
			return nil, errors.Join(err, fmt.Errorf("restore previous entities: %w", rerr))
		}
		logger.Warn("Reload failed, previous entities kept.", "error", err)
		return nil, err
	}
	result.Despawned = s.release(detached)
	return result, nil
}

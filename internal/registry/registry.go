package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/vk/compreg/internal/component"
	"github.com/vk/compreg/internal/ctxlog"
	"github.com/vk/compreg/internal/storage"
	"github.com/vk/compreg/internal/typeid"
)

// Module is the interface that all component modules must implement to be
// registered.
type Module interface {
	Register(r *Registry) error
}

// Registry holds the component descriptors of a single application
// instance.
type Registry struct {
	mu    sync.RWMutex
	byID  map[typeid.StableID]*component.Descriptor
	byTag map[typeid.Tag]*component.Descriptor
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		byID:  make(map[typeid.StableID]*component.Descriptor),
		byTag: make(map[typeid.Tag]*component.Descriptor),
	}
}

type registerOptions struct {
	replace bool
	world   *storage.World
}

// RegisterOption changes how Register treats an existing entry.
type RegisterOption func(*registerOptions)

// Replace lets Register overwrite a descriptor with the same stable id or Go
// type instead of failing.
func Replace() RegisterOption {
	return func(o *registerOptions) { o.replace = true }
}

// DetachFrom names the world holding instances of a replaced descriptor.
// When the replacement has a different Go type, those instances can no
// longer be read through it and are removed.
func DetachFrom(w *storage.World) RegisterOption {
	return func(o *registerOptions) { o.world = w }
}

func duplicate(d *component.Descriptor, format string, args ...any) error {
	return &component.Error{
		Op:        "register",
		Kind:      component.ErrDuplicateRegistration,
		Component: d.Name(),
		ID:        d.ID(),
		Err:       fmt.Errorf(format, args...),
	}
}

// Register adds a descriptor. It fails with ErrDuplicateRegistration when
// the stable id or the Go type is already registered, unless Replace is
// given.
func (r *Registry) Register(d *component.Descriptor, opts ...RegisterOption) error {
	if d == nil {
		return errors.New("register: nil descriptor")
	}
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, idTaken := r.byID[d.ID()]
	sameType, tagTaken := r.byTag[d.Tag()]
	if !o.replace {
		if idTaken {
			if prev.Name() != d.Name() {
				return duplicate(d, "stable id collides with %s", prev.Name())
			}
			return duplicate(d, "already registered with type %s", prev.TypeName())
		}
		if tagTaken {
			return duplicate(d, "Go type %s already registered as %s", d.Type(), sameType.Name())
		}
	}

	if idTaken {
		delete(r.byTag, prev.Tag())
		if prev.Tag() != d.Tag() && o.world != nil {
			if n := o.world.RemoveAllTag(prev.Tag()); n > 0 {
				slog.Warn("Removed instances of replaced component type.", "component", d.Name(), "old_type", prev.TypeName(), "count", n)
			}
		}
	}
	if tagTaken && sameType.ID() != d.ID() {
		delete(r.byID, sameType.ID())
	}

	r.byID[d.ID()] = d
	r.byTag[d.Tag()] = d
	slog.Debug("Registered component.", "component", d.Name(), "id", d.ID().String(), "type", d.TypeName(), "replaced", idTaken)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(d *component.Descriptor, opts ...RegisterOption) {
	if err := r.Register(d, opts...); err != nil {
		panic(err)
	}
}

// RegisterModules lets every module register its components.
func (r *Registry) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.Register(r); err != nil {
			return fmt.Errorf("module %T: %w", m, err)
		}
	}
	return nil
}

func unknown(id typeid.StableID, name string) error {
	return &component.Error{Op: "lookup", Kind: component.ErrUnknownComponentID, Component: name, ID: id}
}

// LookupByID returns the descriptor registered under id.
func (r *Registry) LookupByID(id typeid.StableID) (*component.Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return nil, unknown(id, "")
	}
	return d, nil
}

// LookupByName hashes a component name and looks it up. "core/position" and
// "position" name the same component.
func (r *Registry) LookupByName(name string) (*component.Descriptor, error) {
	canonical, id := typeid.Of(typeid.SplitName(name))

	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return nil, unknown(id, canonical)
	}
	return d, nil
}

// LookupByTag returns the descriptor of the Go type with the given runtime
// tag.
func (r *Registry) LookupByTag(tag typeid.Tag) (*component.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byTag[tag]
	return d, ok
}

// Lookup returns the descriptor registered for T.
func Lookup[T any](r *Registry) (*component.Descriptor, bool) {
	return r.LookupByTag(typeid.TagFor[T]())
}

// Unregister removes a descriptor. Every instance of the component in w is
// removed first; the count is returned and logged as a warning. w may be nil
// when no world holds instances.
func (r *Registry) Unregister(ctx context.Context, id typeid.StableID, w *storage.World) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unregisterLocked(ctx, id, w, true)
}

func (r *Registry) unregisterLocked(ctx context.Context, id typeid.StableID, w *storage.World, warn bool) (int, error) {
	d, ok := r.byID[id]
	if !ok {
		return 0, unknown(id, "")
	}

	removed := 0
	if w != nil {
		removed = w.RemoveAllTag(d.Tag())
	}
	delete(r.byID, id)
	delete(r.byTag, d.Tag())

	logger := ctxlog.FromContext(ctx)
	if removed > 0 && warn {
		logger.Warn("Force-removed component instances while unregistering.", "component", d.Name(), "count", removed)
	}
	logger.Debug("Unregistered component.", "component", d.Name(), "id", id.String())
	return removed, nil
}

// Descriptors returns every registered descriptor sorted by name.
func (r *Registry) Descriptors() []*component.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*component.Descriptor, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Close unregisters everything at shutdown, removing all instances from w,
// and returns how many instances were dropped. Unlike Unregister it does not
// warn about them.
func (r *Registry) Close(ctx context.Context, w *storage.World) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for id := range r.byID {
		n, _ := r.unregisterLocked(ctx, id, w, false)
		total += n
	}
	ctxlog.FromContext(ctx).Debug("Registry closed.", "instances_removed", total)
	return total
}

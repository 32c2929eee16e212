// Package core holds the engine-agnostic components every world uses:
// placement, naming, identity and hierarchy.
package core

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/vk/compreg/internal/component"
	"github.com/vk/compreg/internal/registry"
	"github.com/vk/compreg/internal/storage"
	"github.com/vk/compreg/internal/typeid"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Position places an entity on the world plane.
type Position struct {
	X float32 `comp:"x"`
	Y float32 `comp:"y"`
}

// Velocity moves an entity each tick.
type Velocity struct {
	Linear  mgl32.Vec2 `comp:"linear,optional"`
	Angular float32    `comp:"angular,optional"`
}

// Transform is the full 3D placement of an entity.
type Transform struct {
	Translation mgl32.Vec3 `comp:"translation,optional"`
	Rotation    mgl32.Vec3 `comp:"rotation,optional"`
	Scale       mgl32.Vec3 `comp:"scale,optional"`
}

func (t *Transform) SetDefaults() {
	t.Scale = mgl32.Vec3{1, 1, 1}
}

// Name is a human readable label.
type Name struct {
	Value   string   `comp:"value"`
	Aliases []string `comp:"aliases,optional"`
}

// Identity gives an entity an identity that survives restarts.
type Identity struct {
	ID    uuid.UUID           `comp:"id"`
	Group typeid.HashedString `comp:"group,optional"`
}

// Parent links an entity to another one.
type Parent struct {
	Of storage.Entity `comp:"of"`
}

// Hidden marks an entity as not rendered.
type Hidden struct{}

// Lifetime destroys an entity after a number of seconds. Remaining counts
// down at runtime and is not configurable.
type Lifetime struct {
	Seconds   float64 `comp:"seconds"`
	Remaining float64
}

func (l *Lifetime) Validate() error {
	if l.Seconds <= 0 {
		return fmt.Errorf("seconds must be positive, got %g", l.Seconds)
	}
	return nil
}

func (l *Lifetime) Finalize() {
	l.Remaining = l.Seconds
}

// Register registers the package's components with the registry.
func (m *Module) Register(r *registry.Registry) error {
	return errors.Join(
		r.Register(component.MustDefine[Position](typeid.CoreNamespace, "position", component.WithDescription("World position."))),
		r.Register(component.MustDefine[Velocity](typeid.CoreNamespace, "velocity")),
		r.Register(component.MustDefine[Transform](typeid.CoreNamespace, "transform")),
		r.Register(component.MustDefine[Name](typeid.CoreNamespace, "name")),
		r.Register(component.MustDefine[Identity](typeid.CoreNamespace, "identity")),
		r.Register(component.MustDefine[Parent](typeid.CoreNamespace, "parent")),
		r.Register(component.MustDefine[Hidden](typeid.CoreNamespace, "hidden", component.WithDescription("Excluded from rendering."))),
		r.Register(component.MustDefine[Lifetime](typeid.CoreNamespace, "lifetime")),
	)
}

// Package render holds the components a renderer reads. They live in the
// "render" namespace, so definitions address them as "render/<name>".
package render

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vk/compreg/internal/component"
	"github.com/vk/compreg/internal/registry"
	"github.com/vk/compreg/internal/resource"
	"github.com/vk/compreg/internal/storage"
	"github.com/vk/compreg/internal/typeid"
)

// Namespace is the namespace of every component in this package.
const Namespace = "render"

// Flip bits for Sprite.Flip.
const (
	FlipX uint8 = 1 << iota
	FlipY
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Sprite draws a texture at the entity's position.
type Sprite struct {
	Texture resource.Handle `comp:"texture,kind=texture"`
	Tint    mgl32.Vec4      `comp:"tint,optional,kind=rgba"`
	Layer   int16           `comp:"layer,optional"`
	Flip    uint8           `comp:"flip,optional,kind=flags8"`
}

func (s *Sprite) SetDefaults() {
	s.Tint = mgl32.Vec4{1, 1, 1, 1}
}

// Model draws a mesh with one texture per material slot.
type Model struct {
	Mesh      resource.Handle   `comp:"mesh,kind=mesh"`
	Materials []resource.Handle `comp:"materials,optional,elem=texture"`
}

// Camera renders the world from the entity's point of view.
type Camera struct {
	FOV    float32        `comp:"fov,optional"`
	Near   float32        `comp:"near,optional"`
	Far    float32        `comp:"far,optional"`
	Clear  mgl32.Vec3     `comp:"clear,optional,kind=rgb"`
	Follow storage.Entity `comp:"follow,optional"`
}

func (c *Camera) SetDefaults() {
	c.FOV = 60
	c.Near = 0.1
	c.Far = 1000
}

func (c *Camera) Validate() error {
	if c.Near <= 0 || c.Far <= c.Near {
		return fmt.Errorf("clip planes must satisfy 0 < near < far, got near=%g far=%g", c.Near, c.Far)
	}
	if c.FOV <= 0 || c.FOV >= 180 {
		return fmt.Errorf("fov must be between 0 and 180 degrees, got %g", c.FOV)
	}
	return nil
}

// Light is a point light.
type Light struct {
	Color     mgl32.Vec3      `comp:"color,optional,kind=rgb"`
	Intensity float32         `comp:"intensity,optional"`
	Shadows   bool            `comp:"shadows,optional"`
	OnToggle  typeid.StableID `comp:"on-toggle,optional,kind=signal"`
}

func (l *Light) SetDefaults() {
	l.Color = mgl32.Vec3{1, 1, 1}
	l.Intensity = 1
}

// Frame is one step of an Animation.
type Frame struct {
	Texture  resource.Handle `comp:"texture,kind=texture"`
	Duration float32         `comp:"duration,optional"`
}

func (f *Frame) SetDefaults() {
	f.Duration = 0.1
}

// Animation cycles through frames.
type Animation struct {
	Frames []Frame `comp:"frames"`
	Loop   bool    `comp:"loop,optional"`
	Total  float32
}

func (a *Animation) Validate() error {
	if len(a.Frames) == 0 {
		return errors.New("an animation needs at least one frame")
	}
	return nil
}

func (a *Animation) Finalize() {
	a.Total = 0
	for _, f := range a.Frames {
		a.Total += f.Duration
	}
}

// Register registers the package's components with the registry.
func (m *Module) Register(r *registry.Registry) error {
	return errors.Join(
		r.Register(component.MustDefine[Sprite](Namespace, "sprite")),
		r.Register(component.MustDefine[Model](Namespace, "model")),
		r.Register(component.MustDefine[Camera](Namespace, "camera")),
		r.Register(component.MustDefine[Light](Namespace, "light")),
		r.Register(component.MustDefine[Animation](Namespace, "animation")),
	)
}

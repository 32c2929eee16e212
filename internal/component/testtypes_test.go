package component

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vk/compreg/internal/ctxlog"
	"github.com/vk/compreg/internal/resource"
	"github.com/vk/compreg/internal/storage"
	"github.com/vk/compreg/internal/typeid"
)

type position struct {
	X float32 `comp:"x"`
	Y float32 `comp:"y"`
}

type hidden struct{}

type motion struct {
	Speed float64    `comp:"speed,optional"`
	Dir   mgl32.Vec2 `comp:"dir,optional"`
	Tint  mgl32.Vec4 `comp:"tint,optional,kind=rgba"`
	Label string     `comp:"label,optional"`

	ticks int
}

func (m *motion) SetDefaults() {
	m.Speed = 1
	m.Tint = mgl32.Vec4{1, 1, 1, 1}
}

type bounds struct {
	Min int32 `comp:"min"`
	Max int32 `comp:"max"`

	Span int32
}

func (b *bounds) Validate() error {
	if b.Min > b.Max {
		return errors.New("min is greater than max")
	}
	return nil
}

func (b *bounds) Finalize() { b.Span = b.Max - b.Min }

type sprite struct {
	Texture resource.Handle     `comp:"texture,kind=texture"`
	Layers  []string            `comp:"layers,optional"`
	Owner   storage.Entity      `comp:"owner,optional"`
	ID      uuid.UUID           `comp:"id,optional"`
	Group   typeid.HashedString `comp:"group,optional"`
	OnClick typeid.StableID     `comp:"on_click,optional,kind=signal"`
	Flags   uint8               `comp:"flags,optional,kind=flags8"`
}

type waypoint struct {
	At   mgl32.Vec3 `comp:"at"`
	Wait float32    `comp:"wait,optional"`
}

func (w *waypoint) SetDefaults() { w.Wait = 0.5 }

type route struct {
	Points []waypoint `comp:"points"`
	Meta   struct {
		Loop  bool   `comp:"loop,optional"`
		Owner string `comp:"owner"`
	} `comp:"meta,optional"`
}

// fixture bundles a world with the tables loaders resolve names against.
type fixture struct {
	ctx   context.Context
	env   *Env
	names *NameMap
	logs  *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	names := NewNameMap()
	return &fixture{
		ctx:   ctxlog.WithLogger(context.Background(), logger),
		env:   &Env{World: storage.NewWorld(), Resources: resource.NewTable(), Entities: names},
		names: names,
		logs:  &buf,
	}
}

func (f *fixture) entity(t *testing.T, name string) storage.Entity {
	t.Helper()

	e := f.env.World.Create()
	if name != "" {
		require.NoError(t, f.names.Bind(name, e))
	}
	return e
}

type warmup struct {
	Start float32 `comp:"start,optional"`

	Ready bool
}

func (w *warmup) Finalize() { w.Ready = true }

type gauge struct {
	Level int32 `comp:"level,optional"`
}

func (g *gauge) SetDefaults() { g.Level = -1 }

func (g *gauge) Validate() error {
	if g.Level < 0 {
		return errors.New("level must not be negative")
	}
	return nil
}

type scaled struct {
	Scale float32 `comp:"scale,optional"`
	Bias  float32 `comp:"bias,optional"`
}

func (s *scaled) SetDefaults() { s.Scale = 7 }

type layered struct {
	Base   scaled   `comp:"base,optional"`
	Tuned  scaled   `comp:"tuned,optional"`
	Layers []scaled `comp:"layers,optional"`
}

// SetDefaults runs after the nested records got theirs.
func (l *layered) SetDefaults() { l.Tuned.Bias = 2 }

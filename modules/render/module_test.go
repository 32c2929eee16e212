package render

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/compreg/internal/component"
	"github.com/vk/compreg/internal/ctxlog"
	"github.com/vk/compreg/internal/hcl"
	"github.com/vk/compreg/internal/record"
	"github.com/vk/compreg/internal/registry"
	"github.com/vk/compreg/internal/resource"
	"github.com/vk/compreg/internal/storage"
	"github.com/vk/compreg/internal/typeid"
)

func TestManifestMatchesGoTypes(t *testing.T) {
	t.Parallel()

	ctx := ctxlog.Discard(context.Background())
	r := registry.New()
	require.NoError(t, r.RegisterModules(&Module{}))

	model, err := hcl.NewLoader().Load(ctx, "manifest.hcl")
	require.NoError(t, err)

	require.NoError(t, r.Validate(ctx, model, nil))
	assert.Len(t, model.Components, r.Len())
}

type fixture struct {
	ctx  context.Context
	reg  *registry.Registry
	env  *component.Env
	self storage.Entity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	r := registry.New()
	require.NoError(t, r.RegisterModules(&Module{}))
	res := resource.NewTable()
	for name, kind := range map[string]resource.Kind{"idle-1": resource.KindTexture, "idle-2": resource.KindTexture, "crate": resource.KindMesh} {
		_, err := res.Register(name, kind, name+".bin")
		require.NoError(t, err)
	}
	w := storage.NewWorld()
	return &fixture{
		ctx:  ctxlog.Discard(context.Background()),
		reg:  r,
		env:  &component.Env{World: w, Resources: res},
		self: w.Create(),
	}
}

func (f *fixture) load(t *testing.T, name string, fields map[string]any) error {
	t.Helper()

	d, err := f.reg.LookupByName(name)
	require.NoError(t, err)
	return d.Load(f.ctx, f.env, record.MustFromMap(fields), f.self)
}

func TestSprite(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	require.NoError(t, f.load(t, "render/sprite", map[string]any{"texture": "idle-1", "flip": FlipX | FlipY}))

	got, ok := storage.Get[Sprite](f.env.World, f.self)
	require.True(t, ok)
	entry, _ := f.env.Resources.FindByName("idle-1")
	assert.Equal(t, entry.Handle, got.Texture)
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 1}, got.Tint)
	assert.Equal(t, FlipX|FlipY, got.Flip)

	err := f.load(t, "render/sprite", map[string]any{"texture": "crate"})
	assert.ErrorIs(t, err, component.ErrFieldTypeMismatch, "a mesh is not a texture")
}

func TestCamera_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fields  map[string]any
		wantErr string
	}{
		{name: "defaults", fields: map[string]any{}},
		{name: "inverted planes", fields: map[string]any{"near": 10, "far": 1}, wantErr: "0 < near < far"},
		{name: "fov too wide", fields: map[string]any{"fov": 180}, wantErr: "fov must be between"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)

			err := f.load(t, "render/camera", tc.fields)

			if tc.wantErr == "" {
				require.NoError(t, err)
				got, _ := storage.Get[Camera](f.env.World, f.self)
				assert.Equal(t, float32(60), got.FOV)
				return
			}
			require.ErrorIs(t, err, component.ErrInvalidComponent)
			assert.Contains(t, err.Error(), tc.wantErr)
			assert.False(t, storage.Has[Camera](f.env.World, f.self))
		})
	}
}

func TestAnimation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	require.NoError(t, f.load(t, "render/animation", map[string]any{
		"loop": true,
		"frames": []any{
			map[string]any{"texture": "idle-1"},
			map[string]any{"texture": "idle-2", "duration": 0.4},
		},
	}))

	got, ok := storage.Get[Animation](f.env.World, f.self)
	require.True(t, ok)
	require.Len(t, got.Frames, 2)
	assert.InDelta(t, 0.1, got.Frames[0].Duration, 1e-6, "frames take their own defaults")
	assert.InDelta(t, 0.5, got.Total, 1e-6)

	err := f.load(t, "render/animation", map[string]any{"frames": []any{}})
	assert.ErrorIs(t, err, component.ErrInvalidComponent)

	err = f.load(t, "render/animation", map[string]any{"frames": []any{map[string]any{"texture": "missing"}}})
	assert.ErrorIs(t, err, component.ErrUnresolvedReference)
	assert.Contains(t, err.Error(), "frames[0].texture")
}

func TestLight_SignalAndModelMaterials(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	require.NoError(t, f.load(t, "render/light", map[string]any{"on-toggle": "lamp-switch"}))
	require.NoError(t, f.load(t, "render/model", map[string]any{"mesh": "crate", "materials": []any{"idle-1", "idle-2"}}))

	light, _ := storage.Get[Light](f.env.World, f.self)
	assert.Equal(t, typeid.Hash("lamp-switch"), light.OnToggle)
	assert.Equal(t, float32(1), light.Intensity)
	model, _ := storage.Get[Model](f.env.World, f.self)
	assert.Len(t, model.Materials, 2)
}

package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/compreg/internal/component"
	"github.com/vk/compreg/internal/ctxlog"
	"github.com/vk/compreg/internal/record"
	"github.com/vk/compreg/internal/storage"
	"github.com/vk/compreg/internal/typeid"
)

type position struct {
	X float32 `comp:"x"`
	Y float32 `comp:"y"`
}

type velocity struct {
	X float32 `comp:"x"`
	Y float32 `comp:"y"`
}

type hidden struct{}

type positionV2 struct {
	X, Y, Z float32
}

var dynamicTypes = []reflect.Type{
	reflect.TypeFor[struct{ A int }](),
	reflect.TypeFor[struct{ B int }](),
}

func testContext(t *testing.T) (context.Context, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger), &buf
}

func TestRegisterAndLookup(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	r := New()
	pos := component.MustDefine[position]("core", "position")
	vel := component.MustDefine[velocity]("physics", "velocity")

	// --- Act ---
	require.NoError(t, r.Register(pos))
	require.NoError(t, r.Register(vel))

	// --- Assert ---
	assert.Equal(t, 2, r.Len())

	got, err := r.LookupByID(typeid.Hash("position"))
	require.NoError(t, err)
	assert.Same(t, pos, got)

	got, err = r.LookupByName("physics/velocity")
	require.NoError(t, err)
	assert.Same(t, vel, got)

	got, err = r.LookupByName("core/position")
	require.NoError(t, err)
	assert.Same(t, pos, got, "the core namespace is implicit")

	byTag, ok := r.LookupByTag(typeid.TagFor[velocity]())
	require.True(t, ok)
	assert.Same(t, vel, byTag)

	generic, ok := Lookup[position](r)
	require.True(t, ok)
	assert.Same(t, pos, generic)

	names := []string{}
	for _, d := range r.Descriptors() {
		names = append(names, d.Name())
	}
	assert.Equal(t, []string{"physics/velocity", "position"}, names)
}

func TestLookup_Unknown(t *testing.T) {
	t.Parallel()

	r := New()

	_, err := r.LookupByID(typeid.Hash("nope"))
	require.ErrorIs(t, err, component.ErrUnknownComponentID)

	_, err = r.LookupByName("nope")
	require.ErrorIs(t, err, component.ErrUnknownComponentID)
	var cerr *component.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "nope", cerr.Component)

	_, ok := r.LookupByTag(typeid.TagFor[hidden]())
	assert.False(t, ok)
}

func TestRegister_Duplicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		first  *component.Descriptor
		second *component.Descriptor
	}{
		{
			name:   "same stable id, distinct types",
			first:  component.MustDefine[position]("core", "position"),
			second: component.MustDefine[velocity]("core", "position"),
		},
		{
			name:   "same Go type, distinct ids",
			first:  component.MustDefine[position]("core", "position"),
			second: component.MustDefine[position]("core", "location"),
		},
		{
			name:   "same descriptor twice",
			first:  component.MustDefine[hidden]("core", "hidden"),
			second: component.MustDefine[hidden]("core", "hidden"),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := New()
			require.NoError(t, r.Register(tc.first))

			err := r.Register(tc.second)

			require.ErrorIs(t, err, component.ErrDuplicateRegistration)
			got, lookupErr := r.LookupByID(tc.first.ID())
			require.NoError(t, lookupErr)
			assert.Same(t, tc.first, got, "the first registration stays in place")
			assert.Equal(t, 1, r.Len())
		})
	}
}

func TestMustRegister_Panics(t *testing.T) {
	t.Parallel()

	r := New()
	r.MustRegister(component.MustDefine[hidden]("core", "hidden"))

	assert.Panics(t, func() { r.MustRegister(component.MustDefine[hidden]("core", "hidden")) })
	assert.Error(t, r.Register(nil))
}

func TestRegister_Replace(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx, _ := testContext(t)
	r := New()
	w := storage.NewWorld()
	old := component.MustDefine[position]("core", "position")
	require.NoError(t, r.Register(old))
	e := w.Create()
	require.NoError(t, old.Load(ctx, &component.Env{World: w}, record.MustFromMap(map[string]any{"x": 1, "y": 2}), e))

	// --- Act ---
	replacement := component.MustDefine[positionV2]("core", "position")
	err := r.Register(replacement, Replace(), DetachFrom(w))

	// --- Assert ---
	require.NoError(t, err)
	got, err := r.LookupByID(typeid.Hash("position"))
	require.NoError(t, err)
	assert.Same(t, replacement, got)
	_, ok := Lookup[position](r)
	assert.False(t, ok, "the old Go type is no longer dispatchable")
	assert.False(t, old.IsPresent(w, e), "instances of the old type were detached")
	assert.Equal(t, 1, r.Len())
}

func TestRegister_ReplaceMovesGoType(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.Register(component.MustDefine[position]("core", "position")))

	renamed := component.MustDefine[position]("core", "location")
	require.NoError(t, r.Register(renamed, Replace()))

	_, err := r.LookupByName("position")
	require.ErrorIs(t, err, component.ErrUnknownComponentID)
	got, ok := Lookup[position](r)
	require.True(t, ok)
	assert.Same(t, renamed, got)
	assert.Equal(t, 1, r.Len())
}

func TestUnregister_ForceRemovesInstances(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx, logs := testContext(t)
	r := New()
	w := storage.NewWorld()
	marker := component.MustDefine[hidden]("core", "hidden")
	require.NoError(t, r.Register(marker))
	for range 3 {
		require.NoError(t, marker.Manage(ctx, w, w.Create(), component.Add))
	}

	// --- Act ---
	removed, err := r.Unregister(ctx, marker.ID(), w)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Equal(t, 0, w.CountTag(marker.Tag()))
	assert.Equal(t, 0, r.Len())
	assert.Contains(t, logs.String(), "Force-removed component instances while unregistering.")
	assert.Contains(t, logs.String(), "count=3")

	_, err = r.Unregister(ctx, marker.ID(), w)
	require.ErrorIs(t, err, component.ErrUnknownComponentID)
}

func TestClose(t *testing.T) {
	t.Parallel()

	ctx, logs := testContext(t)
	r := New()
	w := storage.NewWorld()
	marker := component.MustDefine[hidden]("core", "hidden")
	pos := component.MustDefine[position]("core", "position")
	require.NoError(t, r.Register(marker))
	require.NoError(t, r.Register(pos))
	require.NoError(t, marker.Manage(ctx, w, w.Create(), component.Add))

	removed := r.Close(ctx, w)

	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, r.Len())
	assert.NotContains(t, logs.String(), "Force-removed")
}

type moduleFunc func(r *Registry) error

func (f moduleFunc) Register(r *Registry) error { return f(r) }

func TestRegisterModules(t *testing.T) {
	t.Parallel()

	r := New()
	ok := moduleFunc(func(r *Registry) error {
		return r.Register(component.MustDefine[position]("core", "position"))
	})
	failing := moduleFunc(func(r *Registry) error {
		return r.Register(component.MustDefine[velocity]("core", "position"))
	})

	require.NoError(t, r.RegisterModules(ok))
	err := r.RegisterModules(failing)

	require.ErrorIs(t, err, component.ErrDuplicateRegistration)
	assert.Contains(t, err.Error(), "moduleFunc")
}

func TestConcurrentLookupsDuringRegistration(t *testing.T) {
	t.Parallel()

	r := New()
	pos := component.MustDefine[position]("core", "position")
	require.NoError(t, r.Register(pos))

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			d, err := r.LookupByID(pos.ID())
			assert.NoError(t, err)
			assert.Same(t, pos, d)
		}()
		go func() {
			defer wg.Done()
			d, err := component.New(component.Spec{
				Name:      fmt.Sprintf("dyn-%d", i),
				Type:      dynamicTypes[i%len(dynamicTypes)],
				Load:      func(context.Context, *component.Env, record.Record, storage.Entity) error { return nil },
				IsPresent: func(*storage.World, storage.Entity) bool { return false },
				Manage:    func(context.Context, *storage.World, storage.Entity, component.ManageOp) error { return nil },
			})
			if !assert.NoError(t, err) {
				return
			}
			err = r.Register(d, Replace())
			assert.True(t, err == nil || errors.Is(err, component.ErrDuplicateRegistration))
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, r.Len(), 2)
}

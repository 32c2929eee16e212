package registry

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/compreg/internal/component"
	"github.com/vk/compreg/internal/config"
	"github.com/zclconf/go-cty/cty"
)

type tinted struct {
	Color mgl32.Vec3 `comp:"color,optional,kind=rgb"`
	Alpha float32    `comp:"alpha,optional"`
	Tags  []string   `comp:"tags,optional"`
	Frame struct {
		W int32 `comp:"w"`
		H int32 `comp:"h"`
	} `comp:"frame"`
}

func (t *tinted) SetDefaults() {
	t.Color = mgl32.Vec3{1, 1, 1}
	t.Alpha = 0.8
}

func ptr(v cty.Value) *cty.Value { return &v }

func tintedManifest() *config.ComponentDefinition {
	return &config.ComponentDefinition{
		Name:      "tinted",
		Namespace: "render",
		Source:    "render.hcl",
		Fields: []*config.FieldDefinition{
			{Name: "color", Type: "rgb", Optional: true, Default: ptr(cty.TupleVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(1), cty.NumberIntVal(1)}))},
			{Name: "alpha", Type: "float", Optional: true, Default: ptr(cty.NumberFloatVal(0.8))},
			{Name: "tags", Type: "list(string)", Optional: true},
			{Name: "frame", Type: "record", Fields: []*config.FieldDefinition{
				{Name: "w", Type: "int32"},
				{Name: "h", Type: "int32"},
			}},
		},
	}
}

func TestValidate_Parity(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx, _ := testContext(t)
	r := New()
	require.NoError(t, r.Register(component.MustDefine[tinted]("render", "tinted")))
	require.NoError(t, r.Register(component.MustDefine[position]("core", "position")))
	model := config.NewModel()
	model.Components["render/tinted"] = tintedManifest()

	// --- Act ---
	err := r.Validate(ctx, model, nil)

	// --- Assert ---
	require.NoError(t, err, "position has no manifest, which is allowed")
}

func TestValidate_Mismatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(def *config.ComponentDefinition)
		wantErr string
	}{
		{
			name: "field missing from Go type",
			mutate: func(def *config.ComponentDefinition) {
				def.Fields = append(def.Fields, &config.FieldDefinition{Name: "blend", Type: "string", Optional: true})
			},
			wantErr: "field 'blend': declared in manifest but not found in Go type tinted",
		},
		{
			name: "field missing from manifest",
			mutate: func(def *config.ComponentDefinition) {
				def.Fields = def.Fields[1:]
			},
			wantErr: "field 'color': Go type tinted has the field but the manifest does not declare it",
		},
		{
			name: "kind mismatch",
			mutate: func(def *config.ComponentDefinition) {
				def.Fields[0].Type = "vec3"
			},
			wantErr: "type mismatch: manifest requires 'vec3' but Go type provides 'rgb'",
		},
		{
			name: "optionality mismatch",
			mutate: func(def *config.ComponentDefinition) {
				def.Fields[2].Optional = false
			},
			wantErr: "field 'tags': optional is false in manifest but true in Go type",
		},
		{
			name: "default mismatch",
			mutate: func(def *config.ComponentDefinition) {
				def.Fields[1].Default = ptr(cty.NumberFloatVal(0.5))
			},
			wantErr: "default mismatch: manifest says 0.5 but Go type defaults to 0.8",
		},
		{
			name: "default not coercible",
			mutate: func(def *config.ComponentDefinition) {
				def.Fields[1].Default = ptr(cty.StringVal("opaque"))
			},
			wantErr: "field 'alpha': invalid default",
		},
		{
			name: "nested field mismatch",
			mutate: func(def *config.ComponentDefinition) {
				def.Fields[3].Fields[1].Type = "float"
			},
			wantErr: "field 'frame.h': type mismatch",
		},
		{
			name: "default on required field",
			mutate: func(def *config.ComponentDefinition) {
				def.Fields[3].Fields[0].Default = ptr(cty.NumberIntVal(1))
			},
			wantErr: "field 'frame.w': required fields cannot have a default",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			ctx, _ := testContext(t)
			r := New()
			require.NoError(t, r.Register(component.MustDefine[tinted]("render", "tinted")))
			def := tintedManifest()
			tc.mutate(def)
			model := config.NewModel()
			model.Components["render/tinted"] = def

			// --- Act ---
			err := r.Validate(ctx, model, nil)

			// --- Assert ---
			require.Error(t, err)
			assert.Contains(t, err.Error(), "registry validation failed")
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidate_UnregisteredManifest(t *testing.T) {
	t.Parallel()

	ctx, _ := testContext(t)
	r := New()
	model := config.NewModel()
	model.Components["render/tinted"] = tintedManifest()
	model.Components["position"] = &config.ComponentDefinition{Name: "position", Source: "core.hcl"}

	err := r.Validate(ctx, model, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "component 'render/tinted' (render.hcl): manifest has no registered Go type")
	assert.Contains(t, err.Error(), "component 'position' (core.hcl)")
}

package hcl

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/compreg/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// writeFiles lays out files (relative path -> content) under a temp dir and
// returns its root.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

const manifests = `
component "position" {
  description = "World position"
  field "x" { type = float }
  field "y" { type = "float" }
}

component "tint" {
  namespace = "render"
  field "color" {
    type     = rgba
    optional = true
    default  = [1, 1, 1, 1]
  }
  field "layers" {
    type     = list(string)
    optional = true
  }
  field "frame" {
    type = record
    field "w" { type = int32 }
    field "h" { type = int32 }
  }
}
`

const definitions = `
resource "hero" {
  kind = "texture"
  path = "img/hero.png"
}

entity "player" {
  component "position" {
    x = 1
    y = 2.5
  }
  component "render/tint" {
    color  = { r = 1, g = 0, b = 0 }
    layers = [upper("bg"), format("fx-%d", 2)]
    frame  = { w = 16, h = 16 }
  }
  component "render/sprite" {
    texture = resource.hero
    owner   = entity.camera
  }
}

entity "camera" {
  component "position" {
    x = 0
    y = 0
  }
  component "hidden" {}
}
`

func TestLoad_ManifestsAndDefinitions(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := writeFiles(t, map[string]string{
		"manifests/core.hcl": manifests,
		"world/main.hcl":     definitions,
		"world/notes.txt":    "ignored",
		"world/empty/README": "ignored",
	})
	ctx := ctxlog.Discard(context.Background())

	// --- Act ---
	model, err := NewLoader().Load(ctx, filepath.Join(root, "manifests"), filepath.Join(root, "world"))

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"position", "render/tint"}, model.ComponentNames())
	assert.Len(t, model.Sources, 2)

	pos := model.Components["position"]
	assert.Equal(t, "core", pos.Namespace)
	assert.Equal(t, "World position", pos.Description)
	require.Len(t, pos.Fields, 2)
	assert.Equal(t, "float", pos.Fields[0].Type)
	assert.Equal(t, "float", pos.Fields[1].Type)

	tint := model.Components["render/tint"]
	color, ok := tint.Field("color")
	require.True(t, ok)
	assert.Equal(t, "rgba", color.Type)
	assert.True(t, color.Optional)
	require.NotNil(t, color.Default)
	assert.Equal(t, 4, color.Default.LengthInt())
	layers, _ := tint.Field("layers")
	assert.Equal(t, "list(string)", layers.Type)
	assert.Nil(t, layers.Default)
	frame, _ := tint.Field("frame")
	require.Len(t, frame.Fields, 2)
	assert.Equal(t, "int32", frame.Fields[0].Type)

	require.Len(t, model.Resources, 1)
	assert.Equal(t, "hero", model.Resources[0].Name)
	assert.Equal(t, "texture", model.Resources[0].Kind)
	assert.Equal(t, "img/hero.png", model.Resources[0].Path)

	require.Len(t, model.Entities, 2)
	player := model.Entities[0]
	assert.Equal(t, "player", player.Name)
	require.Len(t, player.Components, 3)
	assert.Equal(t, "render/tint", player.Components[1].Name)

	body := player.Components[1].Body
	assert.Equal(t, "BG", body.GetAttr("layers").Index(cty.NumberIntVal(0)).AsString())
	assert.Equal(t, "fx-2", body.GetAttr("layers").Index(cty.NumberIntVal(1)).AsString())

	sprite := player.Components[2].Body
	assert.Equal(t, "hero", sprite.GetAttr("texture").AsString())
	assert.Equal(t, "camera", sprite.GetAttr("owner").AsString(), "entities may refer to ones declared later")

	camera := model.Entities[1]
	assert.True(t, camera.Components[1].Body.RawEquals(cty.EmptyObjectVal))
	assert.Len(t, model.EntitiesFrom(camera.Source), 2)
}

func TestLoad_MissingPathIsSkipped(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := writeFiles(t, map[string]string{"a.hcl": `entity "solo" {}`})
	var logs bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&logs, nil)))

	// --- Act ---
	model, err := NewLoader().Load(ctx, filepath.Join(root, "a.hcl"), filepath.Join(root, "a.hcl"), filepath.Join(root, "nope"))

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, model.Entities, 1, "a path given twice is loaded once")
	assert.Contains(t, logs.String(), "Configured path does not exist, skipping.")
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "syntax error",
			files:   map[string]string{"a.hcl": `entity "x" {`},
			wantErr: "failed to parse HCL file",
		},
		{
			name:    "unknown block",
			files:   map[string]string{"a.hcl": `system "gravity" {}`},
			wantErr: "failed to decode HCL file",
		},
		{
			name: "duplicate component manifest",
			files: map[string]string{
				"a.hcl": `component "position" {}`,
				"b.hcl": `component "position" { namespace = "core" }`,
			},
			wantErr: `component "position" declared in both`,
		},
		{
			name: "duplicate entity",
			files: map[string]string{
				"a.hcl": `entity "player" {}`,
				"b.hcl": `entity "player" {}`,
			},
			wantErr: "entity 'player' declared in both",
		},
		{
			name:    "duplicate resource",
			files:   map[string]string{"a.hcl": "resource \"r\" {}\nresource \"r\" {}"},
			wantErr: "resource 'r' declared in both",
		},
		{
			name:    "unknown kind",
			files:   map[string]string{"a.hcl": "component \"c\" {\n  field \"f\" { type = quaternion }\n}"},
			wantErr: `field 'f': unknown field type "quaternion"`,
		},
		{
			name:    "list of lists",
			files:   map[string]string{"a.hcl": "component \"c\" {\n  field \"f\" { type = list(list(int8)) }\n}"},
			wantErr: "lists of lists are not supported",
		},
		{
			name:    "bare list",
			files:   map[string]string{"a.hcl": "component \"c\" {\n  field \"f\" { type = list }\n}"},
			wantErr: "list needs an element type",
		},
		{
			name:    "duplicate field",
			files:   map[string]string{"a.hcl": `component "c" {` + "\n" + `field "f" { type = bool }` + "\n" + `field "f" { type = bool }` + "\n}"},
			wantErr: "field 'f' declared twice",
		},
		{
			name: "unknown entity reference",
			files: map[string]string{"a.hcl": `
entity "a" {
  component "parent" { of = entity.ghost }
}`},
			wantErr: "entity 'a', component 'parent'",
		},
		{
			name: "nested block in component body",
			files: map[string]string{"a.hcl": `
entity "a" {
  component "position" {
    inner { x = 1 }
  }
}`},
			wantErr: "entity 'a', component 'position'",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			root := writeFiles(t, tc.files)

			_, err := NewLoader().Load(ctxlog.Discard(context.Background()), root)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_QuotedListType(t *testing.T) {
	t.Parallel()

	root := writeFiles(t, map[string]string{"a.hcl": `
component "path" {
  field "points" { type = "list(vec2)" }
  field "id" {
    type     = "uuid"
    optional = true
    default  = null
  }
}`})

	model, err := NewLoader().Load(ctxlog.Discard(context.Background()), root)

	require.NoError(t, err)
	def := model.Components["path"]
	assert.Equal(t, "list(vec2)", def.Fields[0].Type)
	assert.Nil(t, def.Fields[1].Default, "a null default states no default")
}

package config

import (
	"maps"
	"slices"

	"github.com/vk/compreg/internal/typeid"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of the loaded files.
type Model struct {
	// Components holds manifests keyed by canonical component name.
	Components map[string]*ComponentDefinition
	Resources  []*ResourceDefinition
	Entities   []*EntityDefinition
	Sources    Sources
}

// NewModel returns an empty model ready to be filled by a Loader.
func NewModel() *Model {
	return &Model{
		Components: make(map[string]*ComponentDefinition),
		Sources:    make(Sources),
	}
}

// ComponentNames returns the manifest names in sorted order.
func (m *Model) ComponentNames() []string {
	return slices.Sorted(maps.Keys(m.Components))
}

// EntitiesFrom returns the entity definitions read from one source file.
func (m *Model) EntitiesFrom(source string) []*EntityDefinition {
	var out []*EntityDefinition
	for _, e := range m.Entities {
		if e.Source == source {
			out = append(out, e)
		}
	}
	return out
}

// --- Component Manifest Models ---

// ComponentDefinition is the manifest of one component type. The registry
// checks it against the Go type registered under the same name.
type ComponentDefinition struct {
	Name        string
	Namespace   string
	Description string
	Fields      []*FieldDefinition // declaration order
	Source      string
}

// CanonicalName is the name the component's stable id is hashed from.
func (d *ComponentDefinition) CanonicalName() string {
	return typeid.CanonicalName(d.Namespace, d.Name)
}

// Field looks up a declared field by name.
func (d *ComponentDefinition) Field(name string) (*FieldDefinition, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// FieldDefinition declares one configurable field.
type FieldDefinition struct {
	Name        string
	Type        string // kind spelling such as "float" or "list(texture)"
	Description string
	Optional    bool
	Default     *cty.Value         // only meaningful for optional fields
	Fields      []*FieldDefinition // nested fields of record and list(record)
}

// --- Definition Models ---

// ResourceDefinition declares a named resource.
type ResourceDefinition struct {
	Name   string
	Kind   string
	Path   string
	Source string
}

// EntityDefinition describes one entity to spawn and the components to
// load onto it, in file order.
type EntityDefinition struct {
	Name       string
	Components []*ComponentInstance
	Source     string
}

// ComponentInstance is one component block inside an entity definition.
type ComponentInstance struct {
	// Name is the component as written, either bare (core namespace) or
	// "namespace/name".
	Name string
	Body cty.Value // evaluated object
}

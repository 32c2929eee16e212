// Package schema holds the gohcl-tagged structs describing the blocks that
// may appear in a definition file. The hcl package decodes into them and
// translates the result into the config model.
package schema

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// --- Component Manifest Schemas ---

// Field declares one configurable field of a component. Record fields and
// lists of records nest further field blocks.
type Field struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Description string         `hcl:"description,optional"`
	Optional    bool           `hcl:"optional,optional"`
	Default     *cty.Value     `hcl:"default,optional"`
	Fields      []*Field       `hcl:"field,block"`
}

// Component is the manifest of a component type.
type Component struct {
	Name        string   `hcl:"name,label"`
	Namespace   string   `hcl:"namespace,optional"`
	Description string   `hcl:"description,optional"`
	Fields      []*Field `hcl:"field,block"`
}

// --- Definition Schemas ---

// Resource declares a named resource that resource, texture and mesh fields
// can point at.
type Resource struct {
	Name string `hcl:"name,label"`
	Kind string `hcl:"kind,optional"`
	Path string `hcl:"path,optional"`
}

// ComponentBlock is one component attached to an entity. Its attributes are
// the configuration record handed to the component's loader.
type ComponentBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// Entity is an entity definition.
type Entity struct {
	Name       string            `hcl:"name,label"`
	Components []*ComponentBlock `hcl:"component,block"`
}

// File is the top-level structure of any definition file. Manifests and
// definitions may share a file.
type File struct {
	Components []*Component `hcl:"component,block"`
	Resources  []*Resource  `hcl:"resource,block"`
	Entities   []*Entity    `hcl:"entity,block"`
}

package component

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/vk/compreg/internal/record"
	"github.com/vk/compreg/internal/storage"
	"github.com/vk/compreg/internal/typeid"
	"github.com/zclconf/go-cty/cty"
)

// Operation slots of a Descriptor.
type (
	LoadFunc      func(ctx context.Context, env *Env, rec record.Record, e storage.Entity) error
	ReadFunc      func(w *storage.World, e storage.Entity) (any, bool)
	PresentFunc   func(w *storage.World, e storage.Entity) bool
	ManageFunc    func(ctx context.Context, w *storage.World, e storage.Entity, op ManageOp) error
	SnapshotFunc  func(env *Env, e storage.Entity) (cty.Value, bool, error)
	DefaultsFunc  func() (cty.Value, error)
	NormalizeFunc func(env *Env, field string, v cty.Value) (cty.Value, error)
)

// Spec is everything needed to build a Descriptor by hand. Define fills one
// in from a tagged struct type; New accepts one written any other way.
type Spec struct {
	Namespace   string
	Name        string
	TypeName    string
	Description string
	Type        reflect.Type // concrete component type, gives the runtime tag and size
	Fields      []FieldSpec

	Load      LoadFunc    // required
	Read      ReadFunc    // nil for marker types
	IsPresent PresentFunc // required
	Manage    ManageFunc  // required
	Snapshot  SnapshotFunc
	Defaults  DefaultsFunc
	Normalize NormalizeFunc
}

// Descriptor is the type-erased metadata and operation set of one component
// type. It is immutable once built and safe for concurrent use.
type Descriptor struct {
	id          typeid.StableID
	tag         typeid.Tag
	name        string
	namespace   string
	typeName    string
	description string
	typ         reflect.Type
	fields      []FieldSpec
	required    bool

	load      LoadFunc
	read      ReadFunc
	present   PresentFunc
	manage    ManageFunc
	snapshot  SnapshotFunc
	defaults  DefaultsFunc
	normalize NormalizeFunc
}

// New checks spec and builds a Descriptor from it.
func New(spec Spec) (*Descriptor, error) {
	var errs []error
	if spec.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if spec.Type == nil {
		errs = append(errs, errors.New("type is required"))
	}
	if spec.Load == nil {
		errs = append(errs, errors.New("load operation is required"))
	}
	if spec.IsPresent == nil {
		errs = append(errs, errors.New("is-present operation is required"))
	}
	if spec.Manage == nil {
		errs = append(errs, errors.New("manage operation is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("component %q: %w", spec.Name, err)
	}

	namespace := spec.Namespace
	if namespace == "" {
		namespace = typeid.CoreNamespace
	}
	name, id := typeid.Of(namespace, spec.Name)
	typeName := spec.TypeName
	if typeName == "" {
		typeName = spec.Type.Name()
	}

	d := &Descriptor{
		id:          id,
		tag:         typeid.TagOf(spec.Type),
		name:        name,
		namespace:   namespace,
		typeName:    typeName,
		description: spec.Description,
		typ:         spec.Type,
		fields:      spec.Fields,
		load:        spec.Load,
		read:        spec.Read,
		present:     spec.IsPresent,
		manage:      spec.Manage,
		snapshot:    spec.Snapshot,
		defaults:    spec.Defaults,
		normalize:   spec.Normalize,
	}
	for _, f := range spec.Fields {
		if !f.Optional {
			d.required = true
		}
	}
	return d, nil
}

func (d *Descriptor) ID() typeid.StableID { return d.id }
func (d *Descriptor) Tag() typeid.Tag     { return d.tag }

// Name is the canonical name hashed into the stable id.
func (d *Descriptor) Name() string { return d.name }

func (d *Descriptor) Namespace() string   { return d.namespace }
func (d *Descriptor) TypeName() string    { return d.typeName }
func (d *Descriptor) Description() string { return d.description }
func (d *Descriptor) Type() reflect.Type  { return d.typ }

// Size is the byte footprint of one instance.
func (d *Descriptor) Size() uintptr { return d.typ.Size() }

// Fields returns the configurable fields in declaration order.
func (d *Descriptor) Fields() []FieldSpec {
	out := make([]FieldSpec, len(d.fields))
	copy(out, d.fields)
	return out
}

// Field looks up a top-level field by name.
func (d *Descriptor) Field(name string) (FieldSpec, bool) {
	for _, f := range d.fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// HasRequiredFields reports whether loading needs at least one field. Such
// types cannot be added with Manage.
func (d *Descriptor) HasRequiredFields() bool { return d.required }

// Readable reports whether the type exposes a read view.
func (d *Descriptor) Readable() bool { return d.read != nil }

// Load parses rec, builds a fresh instance and stores it on e, replacing
// any previous instance. A failed load leaves e untouched.
func (d *Descriptor) Load(ctx context.Context, env *Env, rec record.Record, e storage.Entity) error {
	return d.load(ctx, env, rec, e)
}

// Read returns a pointer to e's instance. It reports false for marker types
// and for entities that do not hold the component.
func (d *Descriptor) Read(w *storage.World, e storage.Entity) (any, bool) {
	if d.read == nil {
		return nil, false
	}
	return d.read(w, e)
}

// IsPresent reports whether e holds the component. It never mutates.
func (d *Descriptor) IsPresent(w *storage.World, e storage.Entity) bool {
	return d.present(w, e)
}

// Manage applies a structural operation. Removing an absent component is a
// no-op.
func (d *Descriptor) Manage(ctx context.Context, w *storage.World, e storage.Entity, op ManageOp) error {
	return d.manage(ctx, w, e, op)
}

// Snapshot renders e's instance as a cty object keyed by field name. The
// bool is false when e does not hold the component.
func (d *Descriptor) Snapshot(env *Env, e storage.Entity) (cty.Value, bool, error) {
	if d.snapshot == nil {
		if d.IsPresent(env.World, e) {
			return cty.EmptyObjectVal, true, nil
		}
		return cty.NilVal, false, nil
	}
	return d.snapshot(env, e)
}

// Defaults renders a defaulted instance the same way Snapshot does.
func (d *Descriptor) Defaults() (cty.Value, error) {
	if d.defaults == nil {
		return cty.EmptyObjectVal, nil
	}
	return d.defaults()
}

// NormalizeField reads v as the named field and renders it back, so a value
// written in a manifest can be compared with Defaults.
func (d *Descriptor) NormalizeField(env *Env, field string, v cty.Value) (cty.Value, error) {
	if d.normalize == nil {
		return v, nil
	}
	return d.normalize(env, field, v)
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s (%s)", d.name, d.id)
}

package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/compreg/internal/component"
	"github.com/vk/compreg/internal/config"
	"github.com/vk/compreg/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Validate performs a strict parity check between component manifests and
// the registered Go types. It checks the presence of every field on both
// sides, kinds, optionality and stated defaults. env resolves names used in
// default values and may be nil.
func (r *Registry) Validate(ctx context.Context, model *config.Model, env *component.Env) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error

	for _, name := range model.ComponentNames() {
		def := model.Components[name]
		d, err := r.LookupByName(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("component '%s' (%s): manifest has no registered Go type", name, def.Source))
			continue
		}

		v := &fieldValidator{component: name, desc: d, env: env}
		errs = append(errs, v.compare("", def.Fields, d.Fields())...)
		logger.Debug("Validated component manifest.", "component", name, "fields", len(def.Fields))
	}

	for _, d := range r.Descriptors() {
		if _, ok := model.Components[d.Name()]; !ok {
			logger.Debug("Registered component has no manifest.", "component", d.Name())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed: %w", errors.Join(errs...))
	}
	return nil
}

type fieldValidator struct {
	component string
	desc      *component.Descriptor
	env       *component.Env
}

func (v *fieldValidator) errorf(path, format string, args ...any) error {
	return fmt.Errorf("component '%s', field '%s': %s", v.component, path, fmt.Sprintf(format, args...))
}

func (v *fieldValidator) compare(parent string, manifest []*config.FieldDefinition, goFields []component.FieldSpec) []error {
	var errs []error

	goByName := make(map[string]component.FieldSpec, len(goFields))
	for _, f := range goFields {
		goByName[f.Name] = f
	}
	declared := make(map[string]struct{}, len(manifest))

	for _, mf := range manifest {
		path := join(parent, mf.Name)
		declared[mf.Name] = struct{}{}

		gf, ok := goByName[mf.Name]
		if !ok {
			errs = append(errs, v.errorf(path, "declared in manifest but not found in Go type %s", v.desc.TypeName()))
			continue
		}
		if mf.Type != gf.TypeString() {
			errs = append(errs, v.errorf(path, "type mismatch: manifest requires '%s' but Go type provides '%s'", mf.Type, gf.TypeString()))
			continue
		}
		if mf.Optional != gf.Optional {
			errs = append(errs, v.errorf(path, "optional is %t in manifest but %t in Go type", mf.Optional, gf.Optional))
		}
		if mf.Default != nil {
			if err := v.compareDefault(parent, path, mf); err != nil {
				errs = append(errs, err)
			}
		}
		if len(mf.Fields) > 0 || len(gf.Fields) > 0 {
			errs = append(errs, v.compare(path, mf.Fields, gf.Fields)...)
		}
	}

	for _, gf := range goFields {
		if _, ok := declared[gf.Name]; !ok {
			errs = append(errs, v.errorf(join(parent, gf.Name), "Go type %s has the field but the manifest does not declare it", v.desc.TypeName()))
		}
	}
	return errs
}

// compareDefault checks a manifest default against the value the Go type
// actually starts with. Both sides go through the field's codec so spelling
// differences do not matter.
func (v *fieldValidator) compareDefault(parent, path string, mf *config.FieldDefinition) error {
	if !mf.Optional {
		return v.errorf(path, "required fields cannot have a default")
	}
	if parent != "" {
		return v.errorf(path, "defaults are only supported on top-level fields")
	}

	got, err := v.desc.NormalizeField(v.env, mf.Name, *mf.Default)
	if err != nil {
		return v.errorf(path, "invalid default: %v", err)
	}
	defaults, err := v.desc.Defaults()
	if err != nil {
		return v.errorf(path, "cannot render Go defaults: %v", err)
	}
	if !defaults.Type().IsObjectType() || !defaults.Type().HasAttribute(mf.Name) {
		return v.errorf(path, "Go type states no default")
	}
	want := defaults.GetAttr(mf.Name)
	if eq := want.Equals(got); !eq.IsKnown() || !eq.True() {
		return v.errorf(path, "default mismatch: manifest says %s but Go type defaults to %s", render(got), render(want))
	}
	return nil
}

func join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func render(v cty.Value) string {
	b, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return v.GoString()
	}
	return string(b)
}

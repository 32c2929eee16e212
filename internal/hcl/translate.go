// This file contains the logic for translating HCL schema structs into the
// format-agnostic configuration model defined in the config package.

package hcl

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/compreg/internal/config"
	"github.com/vk/compreg/internal/ctxlog"
	"github.com/vk/compreg/internal/schema"
	"github.com/vk/compreg/internal/typeid"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// translateComponent converts a component manifest block into the agnostic
// model.
func translateComponent(ctx context.Context, s *schema.Component, source string) (*config.ComponentDefinition, error) {
	logger := ctxlog.FromContext(ctx).With("component", s.Name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Translating component manifest.")

	namespace := s.Namespace
	if namespace == "" {
		namespace = typeid.CoreNamespace
	}
	fields, err := translateFields(ctx, s.Fields)
	if err != nil {
		return nil, fmt.Errorf("in component '%s' (%s): %w", s.Name, source, err)
	}
	return &config.ComponentDefinition{
		Name:        s.Name,
		Namespace:   namespace,
		Description: s.Description,
		Fields:      fields,
		Source:      source,
	}, nil
}

func translateFields(ctx context.Context, in []*schema.Field) ([]*config.FieldDefinition, error) {
	out := make([]*config.FieldDefinition, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, f := range in {
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("field '%s' declared twice", f.Name)
		}
		seen[f.Name] = struct{}{}

		kind, err := typeExprToKind(ctx, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", f.Name, err)
		}
		nested, err := translateFields(ctx, f.Fields)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", f.Name, err)
		}
		def := &config.FieldDefinition{
			Name:        f.Name,
			Type:        kind,
			Description: f.Description,
			Optional:    f.Optional,
			Fields:      nested,
		}
		if f.Default != nil && !f.Default.IsNull() {
			v := *f.Default
			def.Default = &v
		}
		out = append(out, def)
	}
	return out, nil
}

func translateResource(s *schema.Resource, source string) *config.ResourceDefinition {
	return &config.ResourceDefinition{Name: s.Name, Kind: s.Kind, Path: s.Path, Source: source}
}

// translateEntity evaluates every component body of an entity block.
func translateEntity(ctx context.Context, s *schema.Entity, source string, evalCtx *hcl.EvalContext) (*config.EntityDefinition, error) {
	logger := ctxlog.FromContext(ctx).With("entity", s.Name)
	def := &config.EntityDefinition{Name: s.Name, Source: source}

	for _, block := range s.Components {
		body, err := evalBody(block.Body, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("entity '%s', component '%s' (%s): %w", s.Name, block.Name, source, err)
		}
		logger.Debug("Evaluated component body.", "component", block.Name, "attributes", body.LengthInt())
		def.Components = append(def.Components, &config.ComponentInstance{Name: block.Name, Body: body})
	}
	return def, nil
}

// evalBody evaluates the attributes of a component block into one object.
func evalBody(body hcl.Body, evalCtx *hcl.EvalContext) (cty.Value, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	if len(attrs) == 0 {
		return cty.EmptyObjectVal, nil
	}
	vals := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		v, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return cty.NilVal, diags
		}
		if !v.IsWhollyKnown() {
			return cty.NilVal, fmt.Errorf("attribute '%s' is not known at load time", name)
		}
		vals[name] = v
	}
	return cty.ObjectVal(vals), nil
}

// nameIndex collects the names definitions may refer to.
type nameIndex struct {
	resources map[string]string // name -> source
	entities  map[string]string
}

func newNameIndex() *nameIndex {
	return &nameIndex{resources: make(map[string]string), entities: make(map[string]string)}
}

func (n *nameIndex) addResource(name, source string) error {
	if prev, ok := n.resources[name]; ok {
		return fmt.Errorf("resource '%s' declared in both %s and %s", name, prev, source)
	}
	n.resources[name] = source
	return nil
}

func (n *nameIndex) addEntity(name, source string) error {
	if prev, ok := n.entities[name]; ok {
		return fmt.Errorf("entity '%s' declared in both %s and %s", name, prev, source)
	}
	n.entities[name] = source
	return nil
}

func namesObject(names map[string]string) cty.Value {
	if len(names) == 0 {
		return cty.EmptyObjectVal
	}
	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make(map[string]cty.Value, len(keys))
	for _, k := range keys {
		vals[k] = cty.StringVal(k)
	}
	return cty.ObjectVal(vals)
}

// evalContext exposes resource.<name> and entity.<name>, which evaluate to
// the name itself, so a misspelt reference fails at load time.
func (n *nameIndex) evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"resource": namesObject(n.resources),
			"entity":   namesObject(n.entities),
		},
		Functions: map[string]function.Function{
			"upper":  stdlib.UpperFunc,
			"lower":  stdlib.LowerFunc,
			"format": stdlib.FormatFunc,
			"concat": stdlib.ConcatFunc,
			"min":    stdlib.MinFunc,
			"max":    stdlib.MaxFunc,
			"range":  stdlib.RangeFunc,
		},
	}
}

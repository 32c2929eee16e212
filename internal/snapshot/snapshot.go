// Package snapshot renders entity state and the registry's contents for
// humans: entity dumps as JSON or YAML, and a description of every
// registered component.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/vk/compreg/internal/component"
	"github.com/vk/compreg/internal/registry"
	"github.com/vk/compreg/internal/storage"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"sigs.k8s.io/yaml"
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// Named pairs an entity with the name it was defined under.
type Named struct {
	Name   string
	Entity storage.Entity
}

// Entity renders every registered component e holds as one object keyed by
// component name. Components without a registered descriptor are skipped.
func Entity(r *registry.Registry, env *component.Env, e storage.Entity) (cty.Value, error) {
	comps := make(map[string]cty.Value)
	for _, tag := range env.World.Tags(e) {
		d, ok := r.LookupByTag(tag)
		if !ok {
			continue
		}
		v, present, err := d.Snapshot(env, e)
		if err != nil {
			return cty.NilVal, fmt.Errorf("snapshot of %s on %s: %w", d.Name(), e, err)
		}
		if present {
			comps[d.Name()] = v
		}
	}
	if len(comps) == 0 {
		return cty.EmptyObjectVal, nil
	}
	return cty.ObjectVal(comps), nil
}

// Entities renders a list of {name, entity, components} objects sorted by
// name.
func Entities(r *registry.Registry, env *component.Env, entities []Named) (cty.Value, error) {
	sorted := append([]Named(nil), entities...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	out := make([]cty.Value, 0, len(sorted))
	for _, n := range sorted {
		comps, err := Entity(r, env, n.Entity)
		if err != nil {
			return cty.NilVal, err
		}
		out = append(out, cty.ObjectVal(map[string]cty.Value{
			"name":       cty.StringVal(n.Name),
			"entity":     cty.StringVal(n.Entity.String()),
			"components": comps,
		}))
	}
	if len(out) == 0 {
		return cty.EmptyTupleVal, nil
	}
	return cty.TupleVal(out), nil
}

// Encode writes v as indented JSON or as YAML.
func Encode(v cty.Value, f Format) ([]byte, error) {
	raw, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	switch f {
	case FormatJSON:
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	case FormatYAML:
		return yaml.JSONToYAML(raw)
	default:
		return nil, fmt.Errorf("snapshots cannot be written as %q", f)
	}
}

package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/vk/compreg/internal/component"
	"github.com/vk/compreg/internal/registry"
	"github.com/vk/compreg/internal/typeid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"sigs.k8s.io/yaml"
)

// FieldInfo describes one configurable field.
type FieldInfo struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Optional bool        `json:"optional"`
	Fields   []FieldInfo `json:"fields,omitempty"`
}

// ComponentInfo describes one registered component.
type ComponentInfo struct {
	Name        string      `json:"name"`
	Label       string      `json:"label"`
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	Size        uintptr     `json:"size"`
	Readable    bool        `json:"readable"`
	Fields      []FieldInfo `json:"fields"`
}

var titler = cases.Title(language.English)

// Label turns a component name into a display label: "render/sprite-sheet"
// becomes "Sprite Sheet".
func Label(name string) string {
	_, bare := typeid.SplitName(name)
	return titler.String(strings.NewReplacer("-", " ", "_", " ").Replace(bare))
}

// Describe lists every registered component sorted by name.
func Describe(r *registry.Registry) []ComponentInfo {
	descs := r.Descriptors()
	out := make([]ComponentInfo, 0, len(descs))
	for _, d := range descs {
		out = append(out, ComponentInfo{
			Name:        d.Name(),
			Label:       Label(d.Name()),
			ID:          d.ID().String(),
			Type:        d.TypeName(),
			Description: d.Description(),
			Size:        d.Size(),
			Readable:    d.Readable(),
			Fields:      fieldInfos(d.Fields()),
		})
	}
	return out
}

func fieldInfos(specs []component.FieldSpec) []FieldInfo {
	if len(specs) == 0 {
		return nil
	}
	out := make([]FieldInfo, 0, len(specs))
	for _, f := range specs {
		out = append(out, FieldInfo{
			Name:     f.Name,
			Type:     f.TypeString(),
			Optional: f.Optional,
			Fields:   fieldInfos(f.Fields),
		})
	}
	return out
}

// WriteDescription prints infos in the given format.
func WriteDescription(w io.Writer, infos []ComponentInfo, f Format) error {
	switch f {
	case FormatJSON:
		b, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	case FormatYAML:
		b, err := yaml.Marshal(infos)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case FormatText:
		return writeText(w, infos)
	default:
		return fmt.Errorf("unknown output format %q", f)
	}
}

func writeText(w io.Writer, infos []ComponentInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d bytes\n", c.Label, c.Name, c.ID, c.Size)
		if c.Description != "" {
			fmt.Fprintf(tw, "  %s\n", c.Description)
		}
		writeFields(tw, c.Fields, "  ")
	}
	return tw.Flush()
}

func writeFields(w io.Writer, fields []FieldInfo, indent string) {
	for _, f := range fields {
		presence := "required"
		if f.Optional {
			presence = "optional"
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\t\n", indent, f.Name, f.Type, presence)
		writeFields(w, f.Fields, indent+"  ")
	}
}

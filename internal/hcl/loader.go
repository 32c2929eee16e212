package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/compreg/internal/config"
	"github.com/vk/compreg/internal/ctxlog"
	"github.com/vk/compreg/internal/fsutil"
	"github.com/vk/compreg/internal/schema"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// parsedFile is the result of the first pass over one file.
type parsedFile struct {
	path string
	root schema.File
}

// Load orchestrates the entire HCL loading process. It is agnostic to the
// origin of the paths and accepts any valid block from any file.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findAllHCLFiles(ctx, paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := config.NewModel()
	parser := hclparse.NewParser()
	parsed := make([]parsedFile, 0, len(files))

	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		model.Sources.Add(file, src)

		hclFile, diags := parser.ParseHCL(src, file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		pf := parsedFile{path: file}
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &pf.root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		parsed = append(parsed, pf)
	}

	names := newNameIndex()
	for _, pf := range parsed {
		for _, c := range pf.root.Components {
			def, err := translateComponent(ctx, c, pf.path)
			if err != nil {
				return nil, err
			}
			key := def.CanonicalName()
			if prev, ok := model.Components[key]; ok {
				return nil, fmt.Errorf("component %q declared in both %s and %s", key, prev.Source, pf.path)
			}
			model.Components[key] = def
		}
		for _, r := range pf.root.Resources {
			if err := names.addResource(r.Name, pf.path); err != nil {
				return nil, err
			}
			model.Resources = append(model.Resources, translateResource(r, pf.path))
		}
		for _, e := range pf.root.Entities {
			if err := names.addEntity(e.Name, pf.path); err != nil {
				return nil, err
			}
		}
	}

	evalCtx := names.evalContext()
	for _, pf := range parsed {
		for _, e := range pf.root.Entities {
			def, err := translateEntity(ctx, e, pf.path, evalCtx)
			if err != nil {
				return nil, err
			}
			model.Entities = append(model.Entities, def)
		}
	}

	logger.Debug("HCL loading complete.",
		"components", len(model.Components),
		"resources", len(model.Resources),
		"entities", len(model.Entities),
	)
	return model, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl
// files found, without duplicates.
func (l *Loader) findAllHCLFiles(ctx context.Context, paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			allFiles = append(allFiles, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				ctxlog.FromContext(ctx).Warn("Configured path does not exist, skipping.", "path", path)
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if strings.EqualFold(filepath.Ext(path), ".hcl") {
				add(path)
			}
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", path, err)
		}
		for _, p := range found {
			add(p)
		}
	}
	return allFiles, nil
}

package spawner

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/vk/compreg/internal/component"
	"github.com/vk/compreg/internal/config"
	"github.com/vk/compreg/internal/ctxlog"
	"github.com/vk/compreg/internal/record"
	"github.com/vk/compreg/internal/registry"
	"github.com/vk/compreg/internal/resource"
	"github.com/vk/compreg/internal/storage"
	"golang.org/x/sync/errgroup"
)

// Policy decides what happens when an entity fails to load.
type Policy string

const (
	// PolicyAbort cancels the whole spawn on the first failure and destroys
	// every entity it created.
	PolicyAbort Policy = "abort"
	// PolicySkip destroys only the failed entity and keeps going.
	PolicySkip Policy = "skip"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyAbort, PolicySkip:
		return p, nil
	case "":
		return PolicyAbort, nil
	default:
		return "", fmt.Errorf("unknown error policy %q (want abort or skip)", s)
	}
}

// Options tunes a Spawner.
type Options struct {
	Workers int // values below 1 mean one
	Policy  Policy
}

// Spawned is one entity created from a definition.
type Spawned struct {
	Name   string
	Entity storage.Entity
	Source string
}

// Failure is an entity that failed to load under PolicySkip.
type Failure struct {
	Name   string
	Source string
	Err    error
}

// Result summarises one Spawn or Reload.
type Result struct {
	Entities  []Spawned // definition order
	Failures  []Failure
	Resources int // resources newly registered by this call
	Despawned int // entities destroyed by a reload
}

// Spawner builds entities into one world.
type Spawner struct {
	registry  *registry.Registry
	world     *storage.World
	resources *resource.Table
	names     *component.NameMap
	opts      Options

	mu       sync.Mutex
	bySource map[string][]Spawned
	sources  config.Sources
}

// New creates a Spawner over w using the descriptors in r.
func New(r *registry.Registry, w *storage.World, opts Options) *Spawner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Policy == "" {
		opts.Policy = PolicyAbort
	}
	return &Spawner{
		registry:  r,
		world:     w,
		resources: resource.NewTable(),
		names:     component.NewNameMap(),
		opts:      opts,
		bySource:  make(map[string][]Spawned),
		sources:   make(config.Sources),
	}
}

// Env is the environment loaders run against. Snapshots should use it too so
// resource and entity fields render as names.
func (s *Spawner) Env() *component.Env {
	return &component.Env{World: s.world, Resources: s.resources, Entities: s.names}
}

// World returns the world entities are spawned into.
func (s *Spawner) World() *storage.World { return s.world }

// Resources returns the resource table filled from resource definitions.
func (s *Spawner) Resources() *resource.Table { return s.resources }

// Spawned lists every live entity this spawner created, grouped by source
// in path order.
func (s *Spawner) Spawned() []Spawned {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Spawned
	for _, path := range slices.Sorted(maps.Keys(s.bySource)) {
		out = append(out, s.bySource[path]...)
	}
	return out
}

// Spawn registers the model's resources, then creates and loads every
// entity definition.
func (s *Spawner) Spawn(ctx context.Context, model *config.Model) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Spawning entities.", "definitions", len(model.Entities), "workers", s.opts.Workers, "policy", s.opts.Policy)

	result := &Result{}
	n, err := s.registerResources(ctx, model.Resources)
	if err != nil {
		return nil, err
	}
	result.Resources = n

	// Pass 1: entities and names.
	created := make([]Spawned, 0, len(model.Entities))
	for _, def := range model.Entities {
		e := s.world.Create()
		if err := s.names.Bind(def.Name, e); err != nil {
			s.world.Destroy(e)
			s.discard(created)
			return nil, fmt.Errorf("entity '%s' (%s): %w", def.Name, def.Source, err)
		}
		created = append(created, Spawned{Name: def.Name, Entity: e, Source: def.Source})
	}

	// Pass 2: components.
	failed, err := s.loadAll(ctx, model.Entities, created)
	if err != nil {
		s.discard(created)
		return nil, err
	}

	s.mu.Lock()
	for i, sp := range created {
		if f, ok := failed[i]; ok {
			result.Failures = append(result.Failures, f)
			continue
		}
		s.bySource[sp.Source] = append(s.bySource[sp.Source], sp)
		result.Entities = append(result.Entities, sp)
	}
	for path, fp := range model.Sources {
		s.sources[path] = fp
	}
	s.mu.Unlock()

	for _, f := range result.Failures {
		logger.Warn("Skipped entity that failed to load.", "entity", f.Name, "source", f.Source, "error", f.Err)
	}
	logger.Info("Entities spawned.", "count", len(result.Entities), "failed", len(result.Failures))
	return result, nil
}

// loadAll runs pass 2. Under PolicySkip failed entities are destroyed and
// returned keyed by their index in defs; under PolicyAbort the first error
// is returned.
func (s *Spawner) loadAll(ctx context.Context, defs []*config.EntityDefinition, created []Spawned) (map[int]Failure, error) {
	var (
		mu     sync.Mutex
		failed = make(map[int]Failure)
	)

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.opts.Workers)
	for i, def := range defs {
		eg.Go(func() error {
			err := s.loadEntity(egctx, def, created[i].Entity)
			if err == nil {
				return nil
			}
			err = fmt.Errorf("entity '%s' (%s): %w", def.Name, def.Source, err)
			if s.opts.Policy == PolicyAbort {
				return err
			}

			s.destroy(created[i])
			mu.Lock()
			defer mu.Unlock()
			failed[i] = Failure{Name: def.Name, Source: def.Source, Err: err}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return failed, nil
}

// loadEntity loads an entity's components in file order.
func (s *Spawner) loadEntity(ctx context.Context, def *config.EntityDefinition, e storage.Entity) error {
	logger := ctxlog.FromContext(ctx).With("entity", def.Name)
	ctx = ctxlog.WithLogger(ctx, logger)
	env := s.Env()

	for _, inst := range def.Components {
		if err := ctx.Err(); err != nil {
			return err
		}
		d, err := s.registry.LookupByName(inst.Name)
		if err != nil {
			return err
		}
		rec, err := record.New(inst.Body)
		if err != nil {
			return fmt.Errorf("component '%s': %w", inst.Name, err)
		}
		if err := d.Load(ctx, env, rec, e); err != nil {
			return err
		}
	}
	logger.Debug("Entity loaded.", "components", len(def.Components))
	return nil
}

func (s *Spawner) registerResources(ctx context.Context, defs []*config.ResourceDefinition) (int, error) {
	logger := ctxlog.FromContext(ctx)
	var errs []error
	n := 0
	for _, def := range defs {
		if existing, ok := s.resources.FindByName(def.Name); ok {
			if string(existing.Kind) != def.Kind || existing.Path != def.Path {
				errs = append(errs, fmt.Errorf("resource '%s' (%s): already registered with a different kind or path", def.Name, def.Source))
			}
			continue
		}
		h, err := s.resources.Register(def.Name, resource.Kind(def.Kind), def.Path)
		if err != nil {
			errs = append(errs, fmt.Errorf("resource '%s' (%s): %w", def.Name, def.Source, err))
			continue
		}
		logger.Debug("Registered resource.", "resource", def.Name, "handle", h, "kind", def.Kind)
		n++
	}
	return n, errors.Join(errs...)
}

func (s *Spawner) destroy(sp Spawned) {
	s.names.Unbind(sp.Entity)
	s.world.Destroy(sp.Entity)
}

func (s *Spawner) discard(created []Spawned) {
	for _, sp := range created {
		s.destroy(sp)
	}
}

package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vk/compreg/internal/config"
	"github.com/vk/compreg/internal/ctxlog"
	"github.com/vk/compreg/internal/registry"
	"github.com/vk/compreg/internal/spawner"
	"github.com/vk/compreg/internal/storage"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	loader   config.Loader
	registry *registry.Registry
	world    *storage.World
	spawner  *spawner.Spawner

	mu    sync.Mutex
	model *config.Model

	httpServer *http.Server
}

// NewApp is the constructor for the main application. Results (dumps,
// descriptions) go to outW and logs to logW. Without modules the built-in
// ones are registered.
func NewApp(outW, logW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	// Create and populate the registry with Go component types.
	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	if err := reg.RegisterModules(modules...); err != nil {
		return nil, fmt.Errorf("failed to register modules: %w", err)
	}
	logger.Debug("All Go modules registered.", "modules", len(modules), "components", reg.Len())

	a := &App{
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		loader:   loader,
		registry: reg,
		world:    storage.NewWorld(),
	}

	model, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	a.model = model

	policy, err := spawner.ParsePolicy(appConfig.ErrorPolicy)
	if err != nil {
		return nil, err
	}
	a.spawner = spawner.New(reg, a.world, spawner.Options{Workers: appConfig.WorkerCount, Policy: policy})
	logger.Debug("App initialised.", "world", a.world.ID())
	return a, nil
}

// load reads manifests and definitions and checks the manifests against the
// registered Go types.
func (a *App) load(ctx context.Context) (*config.Model, error) {
	var paths []string
	if a.config.ManifestsPath != "" {
		paths = append(paths, a.config.ManifestsPath)
	}
	if a.config.DefinitionsPath != "" {
		paths = append(paths, a.config.DefinitionsPath)
	}

	model, err := a.loader.Load(ctx, paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	a.logger.Debug("Configuration loaded and translated into unified model.", "files", len(model.Sources))

	if err := a.registry.Validate(ctx, model, nil); err != nil {
		return nil, err
	}
	a.logger.Debug("Registry validation passed.")
	return model, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// World returns the world entities are spawned into.
func (a *App) World() *storage.World {
	return a.world
}

// Spawner returns the application's spawner.
func (a *App) Spawner() *spawner.Spawner {
	return a.spawner
}

// Close tears the registry down, removing every component instance.
func (a *App) Close(ctx context.Context) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	removed := a.registry.Close(ctx, a.world)
	a.logger.Debug("Registry closed.", "removed_instances", removed)
}

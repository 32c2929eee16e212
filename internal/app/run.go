package app

import (
	"context"
	"fmt"
	"io"

	"github.com/vk/compreg/internal/ctxlog"
	"github.com/vk/compreg/internal/snapshot"
	"github.com/vk/compreg/internal/spawner"
)

// Run executes the main application logic based on the configuration: it
// either describes the registry or spawns every definition, optionally
// dumps the result, and serves the health check until ctx is done when a
// port is configured.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.Describe {
		format := snapshot.FormatText
		if a.config.Dump != DumpNone {
			format = snapshot.Format(a.config.Dump)
		}
		return snapshot.WriteDescription(a.outW, snapshot.Describe(a.registry), format)
	}

	a.mu.Lock()
	model := a.model
	a.mu.Unlock()

	result, err := a.spawner.Spawn(ctx, model)
	if err != nil {
		return fmt.Errorf("failed to spawn entities: %w", err)
	}
	a.logger.Info("🏁 Spawn finished.",
		"entities", len(result.Entities),
		"failed", len(result.Failures),
		"resources", result.Resources,
		"components", a.registry.Len(),
	)

	if a.config.Dump != DumpNone {
		if err := a.dump(a.outW, snapshot.Format(a.config.Dump)); err != nil {
			return err
		}
	}

	if a.config.HealthcheckPort > 0 {
		a.healthCheckServer(ctx)
		<-ctx.Done()
		if err := a.closeHealthCheckServer(context.WithoutCancel(ctx)); err != nil {
			return err
		}
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// Reload loads the configuration again and respawns the entities of every
// file whose contents changed.
func (a *App) Reload(ctx context.Context) (*spawner.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	model, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	result, err := a.spawner.Reload(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("failed to reload entities: %w", err)
	}

	a.mu.Lock()
	a.model = model
	a.mu.Unlock()
	return result, nil
}

// dump writes a snapshot of every spawned entity.
func (a *App) dump(w io.Writer, format snapshot.Format) error {
	spawned := a.spawner.Spawned()
	named := make([]snapshot.Named, 0, len(spawned))
	for _, sp := range spawned {
		named = append(named, snapshot.Named{Name: sp.Name, Entity: sp.Entity})
	}

	v, err := snapshot.Entities(a.registry, a.spawner.Env(), named)
	if err != nil {
		return err
	}
	out, err := snapshot.Encode(v, format)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package vexport

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"vexport/pkg/export"
	"vexport/pkg/log"
	"vexport/pkg/progress"
	"vexport/pkg/storage"
	"vexport/pkg/system"
	"vexport/pkg/timeline"
)

// App wires the exporter to its environment.
type App struct {
	Env      *storage.ConfigEnv
	Logger   *log.Logger
	Bus      *progress.Bus
	System   *system.System
	Exporter *export.Exporter

	wg *sync.WaitGroup
}

// NewApp loads the environment config and builds the exporter.
func NewApp(envPath string) (*App, error) {
	envYAML, err := os.ReadFile(envPath)
	if err != nil {
		return nil, fmt.Errorf("could not read env.yaml: %w", err)
	}

	env, err := storage.NewConfigEnv(envPath, envYAML)
	if err != nil {
		return nil, fmt.Errorf("could not get environment config: %w", err)
	}

	if err := env.PrepareEnvironment(); err != nil {
		return nil, fmt.Errorf("could not prepare environment: %w", err)
	}

	wg := &sync.WaitGroup{}
	logger, err := log.NewLogger(filepath.Join(env.StorageDir, "logs.db"), wg)
	if err != nil {
		return nil, fmt.Errorf("could not create logger: %w", err)
	}

	bus := progress.NewBus()

	return &App{
		Env:      env,
		Logger:   logger,
		Bus:      bus,
		System:   system.New(),
		Exporter: export.New(env, logger, bus),
		wg:       wg,
	}, nil
}

// Start runs the logger until the context is canceled.
func (a *App) Start(ctx context.Context) {
	a.Logger.Start(ctx)
	go a.Logger.LogToStdout(ctx)
	go a.Logger.LogToDB(ctx) //nolint:errcheck
	go a.System.StatusLoop(ctx)
}

// Wait blocks until background tasks have stopped.
func (a *App) Wait() {
	a.wg.Wait()
}

// ServeProgress exposes the progress websocket on addr. Observers
// like the editor UI connect here, delivery never blocks the driver.
func (a *App) ServeProgress(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/api/progress", progress.Handler(a.Bus))

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		server.Close()
	}()
	return server.ListenAndServe()
}

// ExportProject loads a project file and runs the export.
func (a *App) ExportProject(
	ctx context.Context,
	projectPath string,
	outDir string,
	fastStart bool,
) (*export.Result, error) {
	projectYAML, err := os.ReadFile(projectPath)
	if err != nil {
		return nil, fmt.Errorf("could not read project: %w", err)
	}

	model, settings, err := timeline.ParseProject(projectYAML)
	if err != nil {
		return nil, err
	}

	a.Exporter.Pipeline = buildPipeline(model, a.Logger)

	if outDir == "" {
		outDir = a.Env.StorageDir
	}
	sink := &storage.FileSaver{Dir: outDir, FastStart: fastStart}

	return a.Exporter.Export(ctx, model, settings, sink)
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/invowk/bundlemap/internal/config"
	"github.com/invowk/bundlemap/internal/pipeline"

	"github.com/charmbracelet/log"
)

type (
	// App wires CLI services. Command handlers receive it and write only through
	// its writers and logger.
	App struct {
		Config  config.Provider
		stdout  io.Writer
		stderr  io.Writer
		handler *log.Logger
		logger  *slog.Logger
		verbose bool
	}

	// Dependencies are the injection points of NewApp. Nil fields get production
	// defaults.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// project is a loaded project file.
	project struct {
		cfg  *config.Config
		path string
	}
)

// NewApp creates an App with defaults for missing dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	handler := log.NewWithOptions(deps.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
	})
	return &App{
		Config:  deps.Config,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
		handler: handler,
		logger:  slog.New(handler),
	}
}

func (a *App) setVerbose(v bool) {
	a.verbose = v
	if v {
		a.handler.SetLevel(log.DebugLevel)
	} else {
		a.handler.SetLevel(log.InfoLevel)
	}
}

// loadProject reads the project file selected by the root flags.
func (a *App) loadProject(ctx context.Context, flags *rootFlagValues) (*project, error) {
	cfg, path, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: flags.configPath,
		ProjectDir:     flags.projectDir,
	})
	if err != nil {
		return nil, err
	}
	a.logger.Debug("project loaded", "file", path, "root", cfg.ProjectRoot)
	return &project{cfg: cfg, path: path}, nil
}

// buildContext maps the project onto a pipeline context.
func (a *App) buildContext(p *project) *pipeline.Context {
	return &pipeline.Context{
		Params:           p.cfg.Parameters(),
		Package:          p.cfg.Collector.Package,
		UniqueBundleName: p.cfg.Collector.UniqueBundleName,
		ToolVersion:      Version,
		Logger:           a.logger,
	}
}

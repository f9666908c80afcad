// Package shared holds the context passed to all CLI commands.
package shared

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/go-ports/wordmask/internal/config"
	"github.com/go-ports/wordmask/internal/logging"
	"github.com/go-ports/wordmask/internal/service"
)

// Context carries global CLI state (flags set on the root command).
type Context struct {
	// Home overrides the wordmask home directory.
	// When empty, resolution falls through to WORDMASK_HOME env var → persisted config → ~/.wordmask.
	Home string
}

// ResolveHome returns the effective home directory and where it came from.
func (c *Context) ResolveHome() (home, source string) {
	if c.Home != "" {
		return c.Home, "flag"
	}
	return config.ResolveHome()
}

// Runtime bundles the resolved configuration, logger and service a command
// works with.
type Runtime struct {
	Home    string
	Config  *config.Config
	Logger  *zap.Logger
	Service *service.Service
}

// Open resolves the home and configuration, builds the logger and opens the
// service. Long-running commands (serve, mcp) pass daemon=true; one-shot
// commands only log warnings and errors.
func (c *Context) Open(ctx context.Context, daemon bool) (*Runtime, error) {
	home, _ := c.ResolveHome()
	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, errors.Wrap(err, "create home")
	}
	cfg, err := config.Resolve(home)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if !daemon && logging.ParseLevel(level) < zapcore.WarnLevel {
		level = "warn"
	}
	logger, err := logging.New(level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	svc, err := service.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return &Runtime{Home: home, Config: cfg, Logger: logger, Service: svc}, nil
}

// Close releases the service and flushes the logger.
func (r *Runtime) Close() error {
	err := r.Service.Close()
	_ = r.Logger.Sync()
	return err
}

// UserError replaces a known service error with its caller-facing message
// so the CLI prints "Word already exists" rather than the wrapped chain.
func UserError(err error) error {
	if err == nil {
		return nil
	}
	if msg, ok := service.Message(err); ok {
		return errors.New(msg)
	}
	return err
}

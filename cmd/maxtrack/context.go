package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"maxtrack/internal/config"
	"maxtrack/internal/models"
	"maxtrack/internal/services"
)

type commandContext struct {
	envFileFlag *string
	jsonFlag    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(envFileFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		envFileFlag: envFileFlag,
		jsonFlag:    jsonFlag,
	}
}

// ensureConfig loads the environment file, the configuration and installs
// the default logger, once per process
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if err := loadEnvFile(c.envFile()); err != nil {
			c.configErr = err
			return
		}
		cfg, err := config.Load()
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		slog.SetDefault(newLogger(cfg.LogLevel, cfg.LogFormat))
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) envFile() string {
	if c.envFileFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.envFileFlag)
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// withApp builds the application for one command and closes it afterwards
func (c *commandContext) withApp(ctx context.Context, fn func(*application) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close(context.WithoutCancel(ctx))
	return fn(app)
}

// loadEnvFile loads .env for local development. A missing default file is
// fine; a missing file named with --env-file is not.
func loadEnvFile(path string) error {
	if path == "" {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// parseTrackRef accepts a bare track id or a catalog URL
func parseTrackRef(ref string) (models.MediaKind, string, error) {
	entity, id, err := services.NewURLPatternRegistry().ParseItemReference(ref)
	if err != nil {
		return "", "", err
	}
	if entity == services.EntityAlbum {
		return "", "", fmt.Errorf("%s is an album reference", ref)
	}
	return models.ParseMediaKind(string(entity)), id, nil
}

package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"ttm/internal/api"
	"ttm/internal/config"
	"ttm/internal/daemon"
	"ttm/internal/ledger"
	"ttm/internal/logging"
	"ttm/internal/services"
	"ttm/internal/tracker"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// withBackend runs fn against the daemon API when it answers and against an
// in-process tracker otherwise.
func (c *commandContext) withBackend(cmd *cobra.Command, fn func(context.Context, api.Backend) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	ctx := services.WithOrigin(cmd.Context(), "cli")
	backend, release, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx, backend)
}

func openBackend(ctx context.Context, cfg *config.Config) (api.Backend, func(), error) {
	client, err := api.NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
	if err != nil {
		return nil, nil, fmt.Errorf("api client: %w", err)
	}
	if client != nil {
		pingErr := client.Ping(ctx)
		if pingErr == nil {
			return client, func() {}, nil
		}
		if !api.IsAPIUnavailable(pingErr) {
			return nil, nil, fmt.Errorf("connect to daemon: %w", pingErr)
		}
	}
	return openLocal(ctx, cfg)
}

// openLocal runs the tracker in this process. It holds the daemon lock for
// the lifetime of the command so two processes never own the registry.
func openLocal(ctx context.Context, cfg *config.Config) (api.Backend, func(), error) {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		if cfg.Paths.APIBind == "" {
			return nil, nil, fmt.Errorf("%w; set paths.api_bind to reach it or stop it first", daemon.ErrAlreadyRunning)
		}
		return nil, nil, fmt.Errorf("%w; its API at %s did not answer", daemon.ErrAlreadyRunning, cfg.Paths.APIBind)
	}

	store, err := ledger.Open(cfg)
	if err != nil {
		_ = lock.Unlock()
		return nil, nil, err
	}
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", OutputPaths: []string{"stderr"}})
	if err != nil {
		logger = logging.NewNop()
	}
	svc := tracker.New(cfg, store, tracker.WithLogger(logger))
	release := func() {
		svc.Close()
		_ = store.Close()
		_ = lock.Unlock()
	}
	if _, err := svc.Restore(ctx); err != nil {
		release()
		return nil, nil, err
	}
	return api.NewLocal(svc), release, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dayuer/agentchat/internal/config"
	"github.com/dayuer/agentchat/internal/container"
	"github.com/dayuer/agentchat/internal/registry"
)

// loadConfig reads the config file and applies environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.ApplyEnv(&cfg)
	return &cfg, nil
}

// openContainer loads config and connects the shared services.
func openContainer(ctx context.Context) (*container.Container, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return container.New(ctx, cfg)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadRegistry reads agents.yml.
func loadRegistry(path string) (*registry.Registry, error) {
	reg, err := registry.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading agent registry: %w", err)
	}
	return reg, nil
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/jsonc"
)

// GetConfigPath returns the config file path: $AGENTCHAT_CONFIG, else
// ~/.agentchat/config.json.
func GetConfigPath() string {
	if p := os.Getenv("AGENTCHAT_CONFIG"); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".agentchat", "config.json")
}

// Load reads configuration from a JSON file. Comments and trailing commas
// are accepted.
// If path is empty, uses the default config path.
// If the file doesn't exist, returns DefaultConfig().
func Load(path string) (Config, error) {
	if path == "" {
		path = GetConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, err
	}

	cfg := DefaultConfig() // start with defaults so zero-value fields get filled
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment overrides on cfg.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("MODEL_NAME"); v != "" {
		cfg.Model.Name = v
	}
}

// Save writes configuration to a JSON file.
// If path is empty, uses the default config path.
func Save(cfg Config, path string) error {
	if path == "" {
		path = GetConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// PollInterval is the listener tick.
func (c ChatConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// Cooldown is the pause after an agent publishes.
func (c ChatConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMs) * time.Millisecond
}

// ResponderTimeout bounds one responder call.
func (c ChatConfig) ResponderTimeout() time.Duration {
	return time.Duration(c.ResponderTimeoutSec) * time.Second
}

// BridgeAddr is the bridge listen address.
func (g GatewayConfig) BridgeAddr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

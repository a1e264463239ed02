// Package config handles configuration loading, saving, and schema definition.
package config

// Config is the top-level agentchat configuration.
// Uses json tags in camelCase to match the JSON config file format.
type Config struct {
	Redis   RedisConfig   `json:"redis"`
	Model   ModelConfig   `json:"model"`
	Chat    ChatConfig    `json:"chat"`
	Gateway GatewayConfig `json:"gateway"`
	Agents  AgentsConfig  `json:"agents"`
	Export  ExportConfig  `json:"export"`
}

// RedisConfig holds the shared Redis connection.
type RedisConfig struct {
	URL      string `json:"url,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
}

// ModelConfig selects the LLM backend. Name also determines the channel.
type ModelConfig struct {
	Name        string  `json:"name,omitempty"`
	Provider    string  `json:"provider,omitempty"`
	APIKey      string  `json:"apiKey,omitempty"`
	APIBase     string  `json:"apiBase,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// ChatConfig tunes the turn-taking loop.
type ChatConfig struct {
	PollIntervalMs      int    `json:"pollIntervalMs,omitempty"`
	HistoryWindow       int    `json:"historyWindow,omitempty"`
	RelayName           string `json:"relayName,omitempty"`
	CooldownMs          int    `json:"cooldownMs,omitempty"`
	ResponderTimeoutSec int    `json:"responderTimeoutSec,omitempty"`
	FallbackText        string `json:"fallbackText,omitempty"`
}

// GatewayConfig holds bridge and agent HTTP settings.
type GatewayConfig struct {
	Host          string `json:"host,omitempty"`
	Port          int    `json:"port,omitempty"`
	AgentBasePort int    `json:"agentBasePort,omitempty"`
	StaticDir     string `json:"staticDir,omitempty"` // served at / when set
}

// AgentsConfig points at the agent registry file.
type AgentsConfig struct {
	RegistryFile string `json:"registryFile,omitempty"`
}

// ExportConfig controls transcript archiving.
type ExportConfig struct {
	Dir      string `json:"dir,omitempty"`
	Schedule string `json:"schedule,omitempty"` // cron spec, empty = manual only
	Format   string `json:"format,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Redis: RedisConfig{
			URL: "redis://localhost:6379",
		},
		Model: ModelConfig{
			Name:        "anthropic/claude-3-5-sonnet-latest",
			MaxTokens:   100,
			Temperature: 0.7,
		},
		Chat: ChatConfig{
			PollIntervalMs:      500,
			HistoryWindow:       10,
			RelayName:           "Agent Rebel",
			CooldownMs:          1000,
			ResponderTimeoutSec: 60,
			FallbackText:        "Sorry, I couldn't process that.",
		},
		Gateway: GatewayConfig{
			Host:          "0.0.0.0",
			Port:          7999,
			AgentBasePort: 8001,
		},
		Agents: AgentsConfig{
			RegistryFile: "agents.yml",
		},
		Export: ExportConfig{
			Dir:    "agent-dialogues",
			Format: "markdown",
		},
	}
}

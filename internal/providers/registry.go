package providers

import "strings"

// ProviderSpec describes one OpenAI-compatible backend.
type ProviderSpec struct {
	Name              string   // config value, e.g. "openrouter"
	DisplayName       string   // shown in agent info and status
	Keywords          []string // lowercase model-name keywords
	EnvKey            string   // env var holding the API key
	DefaultAPIBase    string
	IsGateway         bool // routes any model id unchanged
	IsLocal           bool
	DetectByKeyPrefix string
	DetectByBaseKW    string
	StripModelPrefix  bool // drop "vendor/" when calling the vendor directly
}

// Label returns the display name.
func (s *ProviderSpec) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Name
}

// Providers in priority order. Gateways first.
var Providers = []*ProviderSpec{
	{
		Name: "openrouter", DisplayName: "OpenRouter",
		Keywords: []string{"openrouter"}, EnvKey: "OPENROUTER_API_KEY",
		DefaultAPIBase: "https://openrouter.ai/api/v1", IsGateway: true,
		DetectByKeyPrefix: "sk-or-", DetectByBaseKW: "openrouter",
	},
	{
		Name: "ollama", DisplayName: "Local",
		Keywords: []string{"ollama", "llama3"}, IsLocal: true,
		DefaultAPIBase: "http://localhost:11434/v1", DetectByBaseKW: "localhost",
	},
	{
		Name: "anthropic", DisplayName: "Anthropic",
		Keywords: []string{"anthropic", "claude"}, EnvKey: "ANTHROPIC_API_KEY",
		DefaultAPIBase: "https://api.anthropic.com/v1", StripModelPrefix: true,
	},
	{
		Name: "openai", DisplayName: "OpenAI",
		Keywords: []string{"openai", "gpt"}, EnvKey: "OPENAI_API_KEY",
		DefaultAPIBase: "https://api.openai.com/v1", StripModelPrefix: true,
	},
	{
		Name: "deepseek", DisplayName: "DeepSeek",
		Keywords: []string{"deepseek"}, EnvKey: "DEEPSEEK_API_KEY",
		DefaultAPIBase: "https://api.deepseek.com/v1", StripModelPrefix: true,
	},
}

// FindByModel matches a model id against direct (non-gateway) providers.
func FindByModel(model string) *ProviderSpec {
	lower := strings.ToLower(model)
	for _, spec := range Providers {
		if spec.IsGateway || spec.IsLocal {
			continue
		}
		for _, kw := range spec.Keywords {
			if strings.Contains(lower, kw) {
				return spec
			}
		}
	}
	return nil
}

// FindGateway detects a gateway or local backend.
// Priority: explicit name, then api key prefix, then api base keyword.
func FindGateway(providerName, apiKey, apiBase string) *ProviderSpec {
	if providerName != "" {
		if spec := FindByName(providerName); spec != nil && (spec.IsGateway || spec.IsLocal) {
			return spec
		}
	}
	for _, spec := range Providers {
		if spec.DetectByKeyPrefix != "" && strings.HasPrefix(apiKey, spec.DetectByKeyPrefix) {
			return spec
		}
		if spec.DetectByBaseKW != "" && apiBase != "" && strings.Contains(apiBase, spec.DetectByBaseKW) {
			return spec
		}
	}
	return nil
}

// FindByName looks a spec up by its config name.
func FindByName(name string) *ProviderSpec {
	for _, spec := range Providers {
		if spec.Name == name {
			return spec
		}
	}
	return nil
}

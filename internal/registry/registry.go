// Package registry loads the agents.yml roster.
//
// Each entry under "agents" is one agent process. Only active entries are
// started; their system prompt is the entry's own prompt followed by the
// shared meta prompt, with {TODAY} and {MAX_RESPONSE_TOKENS} filled in.
package registry

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dayuer/agentchat/internal/utils"
)

// DefaultMaxResponseTokens fills {MAX_RESPONSE_TOKENS} when no limit is given.
const DefaultMaxResponseTokens = 100

// TodayLayout is how {TODAY} is rendered, e.g. "January 02, 2025".
const TodayLayout = "January 02, 2006"

// AgentSpec is one agent entry. Model settings are optional per-agent
// overrides of the global model config.
type AgentSpec struct {
	Key          string  `yaml:"-" json:"key"`
	Name         string  `yaml:"name,omitempty" json:"name"`
	Active       bool    `yaml:"active" json:"active"`
	SystemPrompt string  `yaml:"system_prompt" json:"systemPrompt"`
	Model        string  `yaml:"model,omitempty" json:"model,omitempty"`
	Temperature  float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens    int     `yaml:"max_tokens,omitempty" json:"maxTokens,omitempty"`
}

// Meta holds roster-wide settings.
type Meta struct {
	Prompt string `yaml:"prompt"`
}

// Registry is a parsed agents.yml. Agents keep file order.
type Registry struct {
	Meta   Meta      `yaml:"meta"`
	Agents agentList `yaml:"agents"`
}

// agentList decodes the "agents" mapping without losing key order, which
// decides port assignment.
type agentList []AgentSpec

func (l *agentList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: agents must be a mapping", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		var spec AgentSpec
		if err := value.Content[i+1].Decode(&spec); err != nil {
			return fmt.Errorf("agent %q: %w", key, err)
		}
		spec.Key = key
		if spec.Name == "" {
			spec.Name = utils.TitleCase(key)
		}
		*l = append(*l, spec)
	}
	return nil
}

// Load reads and parses an agents.yml file. A missing file yields an
// empty registry.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[Registry] ⚠️ %s not found, no agents defined", path)
			return &Registry{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes agents.yml content.
func Parse(data []byte) (*Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse agents.yml: %w", err)
	}
	return &r, nil
}

// ActiveAgents returns the active entries in file order.
func (r *Registry) ActiveAgents() []AgentSpec {
	var out []AgentSpec
	for _, a := range r.Agents {
		if a.Active {
			out = append(out, a)
		}
	}
	return out
}

// Lookup finds an agent by display name or key, ignoring case.
func (r *Registry) Lookup(name string) (AgentSpec, bool) {
	for _, a := range r.Agents {
		if strings.EqualFold(a.Name, name) || strings.EqualFold(a.Key, name) {
			return a, true
		}
	}
	return AgentSpec{}, false
}

// CombinePrompt appends the rendered meta prompt to the agent's own
// system prompt. The parts are concatenated as-is.
func CombinePrompt(meta Meta, spec AgentSpec, today time.Time, maxTokens int) string {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxResponseTokens
	}
	r := strings.NewReplacer(
		"{TODAY}", today.Format(TodayLayout),
		"{MAX_RESPONSE_TOKENS}", strconv.Itoa(maxTokens),
	)
	return spec.SystemPrompt + r.Replace(meta.Prompt)
}

// SystemPrompt is CombinePrompt with this registry's meta prompt.
func (r *Registry) SystemPrompt(spec AgentSpec, today time.Time, maxTokens int) string {
	return CombinePrompt(r.Meta, spec, today, maxTokens)
}

// Template is the agents.yml written by onboard.
const Template = `meta:
  prompt: |

    Today is {TODAY}. You are one voice in a group chat with humans and
    other agents. Keep every reply under {MAX_RESPONSE_TOKENS} tokens and
    speak only for yourself.

agents:
  ada:
    active: true
    system_prompt: You are Ada, a curious mathematician who loves puzzles.
  grace:
    name: Grace
    active: true
    system_prompt: You are Grace, a pragmatic engineer who answers with examples.
  linus:
    active: false
    system_prompt: You are Linus, a blunt reviewer.
`

package agent

import (
	"github.com/dayuer/agentchat/internal/history"
	"github.com/dayuer/agentchat/internal/providers"
)

// ContextBuilder turns channel history into provider messages for one agent.
//
// The agent's own response turns become assistant messages; other agents'
// responses are replayed as attributed user messages.
type ContextBuilder struct {
	AgentName    string
	SystemPrompt string
}

// NewContextBuilder creates a ContextBuilder for an agent.
func NewContextBuilder(name, systemPrompt string) *ContextBuilder {
	return &ContextBuilder{AgentName: name, SystemPrompt: systemPrompt}
}

// BuildMessages constructs the full message list for a responder call.
// The prompt is always the last message.
//
// Every agent records the prompt it answered, so one channel message can
// show up in several entries; user messages are kept once, at their first
// position, and occurrences of the prompt itself are dropped.
func (c *ContextBuilder) BuildMessages(entries []history.Entry, prompt string) []providers.Message {
	var msgs []providers.Message
	if c.SystemPrompt != "" {
		msgs = append(msgs, providers.Message{Role: providers.RoleSystem, Content: c.SystemPrompt})
	}

	seen := map[string]bool{prompt: true}
	addUser := func(content string) {
		if content == "" || seen[content] {
			return
		}
		seen[content] = true
		msgs = append(msgs, providers.Message{Role: providers.RoleUser, Content: content})
	}

	for _, e := range entries {
		for _, t := range e {
			switch turn := t.(type) {
			case history.RequestTurn:
				addUser(turn.UserPrompt())
			case history.ResponseTurn:
				text := turn.Text()
				if text == "" {
					continue
				}
				if turn.AgentSender == "" || turn.AgentSender == c.AgentName {
					msgs = append(msgs, providers.Message{Role: providers.RoleAssistant, Content: text})
				} else {
					addUser(turn.AgentSender + ": " + text)
				}
			}
		}
	}
	return append(msgs, providers.Message{Role: providers.RoleUser, Content: prompt})
}

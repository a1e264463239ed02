// Package export turns channel history into readable transcripts and
// archives them on a schedule.
package export

import (
	"strings"
	"time"

	"github.com/dayuer/agentchat/internal/history"
)

// DefaultSender labels responses whose agent can't be determined.
const DefaultSender = "Assistant"

// Line is one transcript row.
type Line struct {
	Sender    string
	Content   string
	Timestamp time.Time
	Kind      history.TurnKind
}

// Transcript is a channel's history flattened into attributed lines.
type Transcript struct {
	Channel  string
	Exported time.Time
	Lines    []Line
}

// BuildTranscript attributes every turn in entries to a sender.
//
// A request's "Sender: text" prompt is split at the first colon; prompts
// without one are attributed to "user". Responses use their agent_sender
// tag, or else the agent named by the most recent "You are X" system
// prompt. The same prompt recorded by several agents appears once.
func BuildTranscript(channel string, entries []history.Entry, exported time.Time) Transcript {
	t := Transcript{Channel: channel, Exported: exported}
	current := DefaultSender
	seen := make(map[string]bool)

	for _, e := range entries {
		for _, turn := range e {
			switch tt := turn.(type) {
			case history.RequestTurn:
				if name := agentFromSystemPrompt(tt.SystemPrompt()); name != "" {
					current = name
				}
				prompt := tt.UserPrompt()
				if prompt == "" || seen[prompt] {
					continue
				}
				seen[prompt] = true
				sender, content := splitPrompt(prompt)
				t.Lines = append(t.Lines, Line{
					Sender:    sender,
					Content:   content,
					Timestamp: tt.Timestamp,
					Kind:      history.KindRequest,
				})
			case history.ResponseTurn:
				sender := tt.AgentSender
				if sender == "" {
					sender = current
				}
				t.Lines = append(t.Lines, Line{
					Sender:    sender,
					Content:   tt.Text(),
					Timestamp: tt.Timestamp,
					Kind:      history.KindResponse,
				})
			}
		}
	}
	return t
}

func splitPrompt(prompt string) (sender, content string) {
	before, after, ok := strings.Cut(prompt, ":")
	if !ok {
		return "user", strings.TrimSpace(prompt)
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}

// agentFromSystemPrompt finds "You are Name." on its own line.
func agentFromSystemPrompt(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "You are ")
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(rest, ".")
		name, _, _ = strings.Cut(name, ",")
		name = strings.TrimSpace(name)
		first, _, _ := strings.Cut(name, " ")
		switch strings.ToLower(first) {
		case "", "a", "an", "the":
			continue
		}
		return name
	}
	return ""
}

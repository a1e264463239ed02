// Package history is the append-only, length-bounded ledger of turn
// batches per channel. Agents read back the newest entries as
// conversational context.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TurnKind discriminates the Turn union on the wire.
type TurnKind string

const (
	KindRequest  TurnKind = "request"
	KindResponse TurnKind = "response"
)

// Part kinds carried inside turns.
const (
	PartSystemPrompt = "system-prompt"
	PartUserPrompt   = "user-prompt"
	PartText         = "text"
)

// ErrCorruptEntry marks a stored entry that can't be decoded.
var ErrCorruptEntry = errors.New("corrupt history entry")

// Part is one piece of a turn.
type Part struct {
	PartKind string `json:"part_kind"`
	Content  string `json:"content"`
}

// Turn is either a RequestTurn or a ResponseTurn.
type Turn interface {
	Kind() TurnKind
	isTurn()
}

// RequestTurn is what was sent to a responder.
type RequestTurn struct {
	Parts     []Part
	Timestamp time.Time
}

func (RequestTurn) Kind() TurnKind { return KindRequest }
func (RequestTurn) isTurn()        {}

// UserPrompt joins the user-prompt parts.
func (r RequestTurn) UserPrompt() string { return joinParts(r.Parts, PartUserPrompt) }

// SystemPrompt joins the system-prompt parts.
func (r RequestTurn) SystemPrompt() string { return joinParts(r.Parts, PartSystemPrompt) }

// ResponseTurn is what a responder produced. AgentSender names the agent
// that published it.
type ResponseTurn struct {
	Parts       []Part
	ModelName   string
	Timestamp   time.Time
	AgentSender string
}

func (ResponseTurn) Kind() TurnKind { return KindResponse }
func (ResponseTurn) isTurn()        {}

// Text joins the text parts.
func (r ResponseTurn) Text() string { return joinParts(r.Parts, PartText) }

func joinParts(parts []Part, kind string) string {
	var out []string
	for _, p := range parts {
		if p.PartKind == kind {
			out = append(out, p.Content)
		}
	}
	return strings.Join(out, "\n")
}

type turnJSON struct {
	Kind        TurnKind  `json:"kind"`
	Parts       []Part    `json:"parts"`
	ModelName   string    `json:"model_name,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	AgentSender string    `json:"agent_sender,omitempty"`
}

// Entry is one batch of turns, stored as a single list element.
type Entry []Turn

// MarshalJSON encodes the batch as a JSON array of kind-tagged turns.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := make([]turnJSON, 0, len(e))
	for _, t := range e {
		switch v := t.(type) {
		case RequestTurn:
			out = append(out, turnJSON{Kind: KindRequest, Parts: v.Parts, Timestamp: v.Timestamp})
		case ResponseTurn:
			out = append(out, turnJSON{
				Kind:        KindResponse,
				Parts:       v.Parts,
				ModelName:   v.ModelName,
				Timestamp:   v.Timestamp,
				AgentSender: v.AgentSender,
			})
		default:
			return nil, fmt.Errorf("unsupported turn type %T", t)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a JSON array of turns. An unknown kind fails the
// whole entry.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw []turnJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Entry, 0, len(raw))
	for i, t := range raw {
		switch t.Kind {
		case KindRequest:
			out = append(out, RequestTurn{Parts: t.Parts, Timestamp: t.Timestamp})
		case KindResponse:
			out = append(out, ResponseTurn{
				Parts:       t.Parts,
				ModelName:   t.ModelName,
				Timestamp:   t.Timestamp,
				AgentSender: t.AgentSender,
			})
		default:
			return fmt.Errorf("turn %d: unknown kind %q", i, t.Kind)
		}
	}
	*e = out
	return nil
}

// Encode serializes an entry for storage.
func Encode(e Entry) ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a stored entry.
func Decode(data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return e, nil
}

// TagAgent returns a copy of e whose response turns are attributed to name.
func TagAgent(e Entry, name string) Entry {
	out := make(Entry, len(e))
	for i, t := range e {
		if r, ok := t.(ResponseTurn); ok {
			r.AgentSender = name
			t = r
		}
		out[i] = t
	}
	return out
}

// PromptEntry records a channel message nobody has answered yet, as a lone
// request turn.
func PromptEntry(prompt string, at time.Time) Entry {
	return Entry{RequestTurn{
		Parts:     []Part{{PartKind: PartUserPrompt, Content: prompt}},
		Timestamp: at.UTC(),
	}}
}

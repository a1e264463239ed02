package history

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func sampleEntry() Entry {
	return Entry{
		RequestTurn{
			Parts: []Part{
				{PartKind: PartSystemPrompt, Content: "You are Ada."},
				{PartKind: PartUserPrompt, Content: "Rebel: Hello"},
			},
			Timestamp: t0,
		},
		ResponseTurn{
			Parts:     []Part{{PartKind: PartText, Content: "Hi!"}},
			ModelName: "openai/gpt-4o-mini",
			Timestamp: t0.Add(time.Second),
		},
	}
}

func TestEntry_EncodeDecode(t *testing.T) {
	data, err := Encode(sampleEntry())
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, got, 2)

	req, ok := got[0].(RequestTurn)
	require.True(t, ok)
	assert.Equal(t, "Rebel: Hello", req.UserPrompt())
	assert.Equal(t, "You are Ada.", req.SystemPrompt())

	resp, ok := got[1].(ResponseTurn)
	require.True(t, ok)
	assert.Equal(t, "Hi!", resp.Text())
	assert.Equal(t, "openai/gpt-4o-mini", resp.ModelName)
	assert.Empty(t, resp.AgentSender)
}

func TestEntry_WireShape(t *testing.T) {
	data, err := Encode(TagAgent(sampleEntry(), "Ada"))
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 2)
	assert.Equal(t, "request", raw[0]["kind"])
	assert.NotContains(t, raw[0], "agent_sender")
	assert.Equal(t, "response", raw[1]["kind"])
	assert.Equal(t, "Ada", raw[1]["agent_sender"])
	assert.Equal(t, "openai/gpt-4o-mini", raw[1]["model_name"])

	parts := raw[0]["parts"].([]any)
	assert.Equal(t, "system-prompt", parts[0].(map[string]any)["part_kind"])
}

func TestDecode_UnknownKind(t *testing.T) {
	_, err := Decode([]byte(`[{"kind":"tool-call","parts":[]}]`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptEntry))
}

func TestDecode_NotJSON(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.ErrorIs(t, err, ErrCorruptEntry)
}

func TestEncode_Empty(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestTagAgent_DoesNotMutate(t *testing.T) {
	orig := sampleEntry()
	tagged := TagAgent(orig, "Ada")

	assert.Equal(t, "Ada", tagged[1].(ResponseTurn).AgentSender)
	assert.Empty(t, orig[1].(ResponseTurn).AgentSender)
	assert.Equal(t, orig[0], tagged[0])
}

func TestPromptEntry(t *testing.T) {
	e := PromptEntry("Rebel: Hello", t0)
	require.Len(t, e, 1)
	req := e[0].(RequestTurn)
	assert.Equal(t, "Rebel: Hello", req.UserPrompt())
	assert.Empty(t, req.SystemPrompt())
	assert.Equal(t, t0, req.Timestamp)
}

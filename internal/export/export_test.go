package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/agentchat/internal/history"
)

const channel = "chat-2025-01-01-demo"

var at = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func request(system, user string) history.RequestTurn {
	var parts []history.Part
	if system != "" {
		parts = append(parts, history.Part{PartKind: history.PartSystemPrompt, Content: system})
	}
	parts = append(parts, history.Part{PartKind: history.PartUserPrompt, Content: user})
	return history.RequestTurn{Parts: parts, Timestamp: at}
}

func response(text, sender string) history.ResponseTurn {
	return history.ResponseTurn{
		Parts:       []history.Part{{PartKind: history.PartText, Content: text}},
		Timestamp:   at,
		AgentSender: sender,
	}
}

// conversation is what the bridge and two agents record for one exchange.
func conversation() []history.Entry {
	return []history.Entry{
		history.PromptEntry("Rebel: Hello", at),
		{request("", "Rebel: Hello"), response("Hi!", "Ada")},
		{request("You are Grace, an engineer.\nBe brief.", "Rebel: Hello"), response("Hey.", "")},
		{request("", "no sender here"), response("ok: fine", "Ada")},
	}
}

func TestBuildTranscript(t *testing.T) {
	tr := BuildTranscript(channel, conversation(), at)

	type row struct{ sender, content string }
	var got []row
	for _, l := range tr.Lines {
		got = append(got, row{l.Sender, l.Content})
	}
	assert.Equal(t, []row{
		{"Rebel", "Hello"},
		{"Ada", "Hi!"},
		{"Grace", "Hey."},
		{"user", "no sender here"},
		{"Ada", "ok: fine"},
	}, got)
	assert.Equal(t, history.KindRequest, tr.Lines[0].Kind)
	assert.Equal(t, history.KindResponse, tr.Lines[1].Kind)
}

func TestBuildTranscript_UnknownAgent(t *testing.T) {
	tr := BuildTranscript(channel, []history.Entry{
		{request("You are a helpful assistant.", "Bob: hi"), response("hello", "")},
	}, at)
	require.Len(t, tr.Lines, 2)
	assert.Equal(t, DefaultSender, tr.Lines[1].Sender)
}

func TestAgentFromSystemPrompt(t *testing.T) {
	cases := map[string]string{
		"You are Ada.":                    "Ada",
		"Rules first.\n  You are Bob, hi": "Bob",
		"You are the best.":               "",
		"nothing here":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, agentFromSystemPrompt(in), in)
	}
}

func TestRenderMarkdown(t *testing.T) {
	md := RenderMarkdown(BuildTranscript(channel, conversation(), at))
	assert.True(t, strings.HasPrefix(md, "# Chat: "+channel+"\n"))
	assert.Contains(t, md, "**Messages:** 5")
	assert.Contains(t, md, "**Rebel** Hello\n")
	assert.Contains(t, md, "**Ada** Hi!\n")
}

func TestRenderHTML(t *testing.T) {
	out, err := RenderHTML(BuildTranscript(channel, conversation(), at))
	require.NoError(t, err)
	page := string(out)
	assert.Contains(t, page, "<title>"+channel+"</title>")
	assert.Contains(t, page, "<h1>Chat: "+channel+"</h1>")
	assert.Contains(t, page, "<strong>Ada</strong> Hi!")
}

func TestRenderJSON(t *testing.T) {
	out, err := RenderJSON(BuildTranscript(channel, conversation(), at))
	require.NoError(t, err)

	var doc struct {
		Topic        string `json:"topic"`
		MessageCount int    `json:"message_count"`
		Messages     []struct {
			Role      string `json:"role"`
			Content   string `json:"content"`
			Timestamp string `json:"timestamp"`
			Type      string `json:"type"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, channel, doc.Topic)
	assert.Equal(t, 5, doc.MessageCount)
	assert.Equal(t, "Rebel", doc.Messages[0].Role)
	assert.Equal(t, "2025-01-01T12:00:00.000Z", doc.Messages[0].Timestamp)
	assert.Equal(t, "history", doc.Messages[0].Type)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatMarkdown, "md": FormatMarkdown, "HTML": FormatHTML, "json": FormatJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
	assert.Equal(t, "md", FormatMarkdown.Ext())
}

func seededExporter(t *testing.T) *Exporter {
	t.Helper()
	store := history.NewMemoryStore()
	ctx := context.Background()
	for _, e := range conversation() {
		require.NoError(t, store.Append(ctx, channel, e))
	}
	require.NoError(t, store.Append(ctx, "chat-2025-01-02-other", history.PromptEntry("Bob: later", at)))
	exp := NewExporter(store, 0)
	exp.Now = func() time.Time { return at }
	return exp
}

func TestExporter_WriteAll(t *testing.T) {
	exp := seededExporter(t)
	assert.Equal(t, DefaultLimit, exp.Limit)
	dir := filepath.Join(t.TempDir(), "out")

	paths, err := exp.WriteAll(context.Background(), dir, FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, channel+".md"),
		filepath.Join(dir, "chat-2025-01-02-other.md"),
	}, paths)

	data, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Contains(t, string(data), "**Bob** later")
}

func TestExporter_TranscriptLimit(t *testing.T) {
	exp := seededExporter(t)
	exp.Limit = 1

	tr, err := exp.Transcript(context.Background(), channel)
	require.NoError(t, err)
	require.Len(t, tr.Lines, 2)
	assert.Equal(t, "ok: fine", tr.Lines[1].Content)
}

func TestArchiver(t *testing.T) {
	exp := seededExporter(t)
	dir := t.TempDir()
	a := NewArchiver(exp, dir, FormatJSON)

	paths, err := a.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, paths, 2)
	assert.FileExists(t, filepath.Join(dir, channel+".json"))

	assert.Error(t, a.Run(context.Background(), "not a schedule"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, "@hourly") }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

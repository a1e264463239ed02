package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Format is a transcript output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or its file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown export format %q (want markdown, html or json)", s)
}

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	switch f {
	case FormatHTML:
		return "html"
	case FormatJSON:
		return "json"
	}
	return "md"
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Render encodes t in format f.
func Render(t Transcript, f Format) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return []byte(RenderMarkdown(t)), nil
	case FormatHTML:
		return RenderHTML(t)
	case FormatJSON:
		return RenderJSON(t)
	}
	return nil, fmt.Errorf("unknown export format %q", f)
}

// RenderMarkdown writes one "**sender** content" paragraph per line.
func RenderMarkdown(t Transcript) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Chat: %s\n\n", t.Channel)
	fmt.Fprintf(&b, "**Exported:** %s\n", t.Exported.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Messages:** %d\n\n---\n\n", len(t.Lines))
	for _, l := range t.Lines {
		fmt.Fprintf(&b, "**%s** %s\n\n", l.Sender, l.Content)
	}
	return b.String()
}

// RenderHTML converts the markdown transcript into a standalone page.
func RenderHTML(t Transcript) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(RenderMarkdown(t)), &body); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	var out bytes.Buffer
	fmt.Fprintf(&out, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n",
		html.EscapeString(t.Channel))
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

type jsonLine struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
}

type jsonTranscript struct {
	Topic           string     `json:"topic"`
	MessageCount    int        `json:"message_count"`
	ExportTimestamp string     `json:"export_timestamp"`
	Messages        []jsonLine `json:"messages"`
}

// RenderJSON encodes the transcript with its metadata.
func RenderJSON(t Transcript) ([]byte, error) {
	out := jsonTranscript{
		Topic:           t.Channel,
		MessageCount:    len(t.Lines),
		ExportTimestamp: t.Exported.Format("2006-01-02T15:04:05Z07:00"),
		Messages:        make([]jsonLine, 0, len(t.Lines)),
	}
	for _, l := range t.Lines {
		ts := ""
		if !l.Timestamp.IsZero() {
			ts = l.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z")
		}
		out.Messages = append(out.Messages, jsonLine{
			Role:      l.Sender,
			Content:   l.Content,
			Timestamp: ts,
			Type:      "history",
		})
	}
	return json.MarshalIndent(out, "", "  ")
}

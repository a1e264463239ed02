package export

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dayuer/agentchat/internal/history"
	"github.com/dayuer/agentchat/internal/utils"
)

// DefaultLimit is how many history entries a transcript reads.
const DefaultLimit = 50

// Exporter reads channel history for export.
type Exporter struct {
	History history.Store
	Limit   int
	Now     func() time.Time
}

// NewExporter creates an Exporter. limit <= 0 means DefaultLimit.
func NewExporter(store history.Store, limit int) *Exporter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Exporter{History: store, Limit: limit, Now: time.Now}
}

// Channels lists every channel with stored history.
func (e *Exporter) Channels(ctx context.Context) ([]string, error) {
	return e.History.ListChannels(ctx)
}

// Transcript builds the transcript of one channel.
func (e *Exporter) Transcript(ctx context.Context, channel string) (Transcript, error) {
	entries, err := e.History.Recent(ctx, channel, e.Limit)
	if err != nil {
		return Transcript{}, fmt.Errorf("read %s: %w", channel, err)
	}
	return BuildTranscript(channel, entries, e.Now()), nil
}

// WriteChannel renders one channel into dir and returns the file path.
func (e *Exporter) WriteChannel(ctx context.Context, channel, dir string, f Format) (string, error) {
	t, err := e.Transcript(ctx, channel)
	if err != nil {
		return "", err
	}
	data, err := Render(t, f)
	if err != nil {
		return "", err
	}
	if _, err := utils.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, utils.SafeFilename(channel)+"."+f.Ext())
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// WriteAll exports every channel into dir. A failing channel is logged
// and skipped.
func (e *Exporter) WriteAll(ctx context.Context, dir string, f Format) ([]string, error) {
	channels, err := e.Channels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	var paths []string
	for _, ch := range channels {
		path, err := e.WriteChannel(ctx, ch, dir, f)
		if err != nil {
			log.Printf("[Export] ⚠️ %s: %v", ch, err)
			continue
		}
		paths = append(paths, path)
	}
	log.Printf("[Export] ✅ Wrote %d of %d channels to %s", len(paths), len(channels), dir)
	return paths, nil
}

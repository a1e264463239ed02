package history

import (
	"context"
	"log"
)

// DefaultWindow is how many recent entries are read back as context.
const DefaultWindow = 10

// Store keeps each channel's entries in insertion order.
//
// Entries are never trimmed automatically; Trim exists for operators.
type Store interface {
	// Append adds one entry to the tail of the channel's history.
	Append(ctx context.Context, channel string, e Entry) error

	// Recent returns up to n newest entries, oldest first. Entries that
	// fail to decode are skipped.
	Recent(ctx context.Context, channel string, n int) ([]Entry, error)

	// ListChannels returns every channel with stored history, sorted.
	ListChannels(ctx context.Context) ([]string, error)

	// Trim keeps only the newest keep entries.
	Trim(ctx context.Context, channel string, keep int) error

	// Len returns the number of stored entries.
	Len(ctx context.Context, channel string) (int64, error)
}

// decodeAll decodes raw entries, skipping the corrupt ones.
func decodeAll(channel string, raw [][]byte) []Entry {
	out := make([]Entry, 0, len(raw))
	for _, item := range raw {
		e, err := Decode(item)
		if err != nil {
			log.Printf("[History] ⚠️ Skipping invalid entry in %s: %v", channel, err)
			continue
		}
		out = append(out, e)
	}
	return out
}

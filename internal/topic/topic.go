// Package topic derives conversation channel names.
//
// Independently started agent processes rendezvous on the same channel by
// computing the same name from the same day and model id; there is no
// coordination beyond that.
package topic

import (
	"strings"
	"time"
)

const (
	// Prefix starts every channel name.
	Prefix = "chat-"
	// HistorySuffix is appended to a channel name to form its history list key.
	HistorySuffix = "_history"
)

var unsafeChars = strings.NewReplacer("/", "-", ":", "-")

// Sanitize replaces path/URI-unsafe characters in a model id with "-".
// "a/b" and "a:b" sanitize to the same string.
func Sanitize(modelID string) string {
	return unsafeChars.Replace(modelID)
}

// Name returns the channel for a conversation on date with modelID:
// chat-<YYYY-MM-DD>-<sanitized model id>. The date is formatted in its own location.
func Name(date time.Time, modelID string) string {
	return Prefix + date.Format("2006-01-02") + "-" + Sanitize(modelID)
}

// HistoryKey returns the list key holding a channel's history entries.
func HistoryKey(channel string) string {
	return channel + HistorySuffix
}

// ChannelFromKey maps a storage key back to its channel name.
// Both the channel key and its history key resolve to the channel;
// keys that don't look like a channel return false.
func ChannelFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, Prefix) {
		return "", false
	}
	ch := strings.TrimSuffix(key, HistorySuffix)
	if ch == Prefix {
		return "", false
	}
	return ch, true
}

// KeyPattern is the glob used to discover channel-like keys.
func KeyPattern() string {
	return Prefix + "*"
}

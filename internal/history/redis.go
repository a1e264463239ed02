package history

import (
	"context"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dayuer/agentchat/internal/topic"
)

// RedisStore keeps each channel's history in a Redis list at
// topic.HistoryKey(channel). RPUSH gives single-operation atomicity across
// processes; nothing here adds locking on top.
type RedisStore struct {
	client goredis.UniversalClient
}

// NewRedisStore wraps a connected client.
func NewRedisStore(client goredis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Append(ctx context.Context, channel string, e Entry) error {
	data, err := Encode(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	if err := s.client.RPush(ctx, topic.HistoryKey(channel), data).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", topic.HistoryKey(channel), err)
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, channel string, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	items, err := s.client.LRange(ctx, topic.HistoryKey(channel), int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", topic.HistoryKey(channel), err)
	}
	raw := make([][]byte, len(items))
	for i, it := range items {
		raw[i] = []byte(it)
	}
	return decodeAll(channel, raw), nil
}

func (s *RedisStore) ListChannels(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	iter := s.client.Scan(ctx, 0, topic.KeyPattern(), 100).Iterator()
	for iter.Next(ctx) {
		if ch, ok := topic.ChannelFromKey(iter.Val()); ok {
			seen[ch] = struct{}{}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan channels: %w", err)
	}
	out := make([]string, 0, len(seen))
	for ch := range seen {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out, nil
}

func (s *RedisStore) Trim(ctx context.Context, channel string, keep int) error {
	if keep <= 0 {
		return s.client.Del(ctx, topic.HistoryKey(channel)).Err()
	}
	return s.client.LTrim(ctx, topic.HistoryKey(channel), int64(-keep), -1).Err()
}

func (s *RedisStore) Len(ctx context.Context, channel string) (int64, error) {
	return s.client.LLen(ctx, topic.HistoryKey(channel)).Result()
}

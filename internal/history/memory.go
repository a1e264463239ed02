package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store for tests and single-process runs.
type MemoryStore struct {
	mu    sync.RWMutex
	lists map[string][][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{lists: make(map[string][][]byte)}
}

func (s *MemoryStore) Append(_ context.Context, channel string, e Entry) error {
	data, err := Encode(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	s.appendRaw(channel, data)
	return nil
}

func (s *MemoryStore) appendRaw(channel string, data []byte) {
	s.mu.Lock()
	s.lists[channel] = append(s.lists[channel], data)
	s.mu.Unlock()
}

func (s *MemoryStore) Recent(_ context.Context, channel string, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	list := s.lists[channel]
	start := 0
	if len(list) > n {
		start = len(list) - n
	}
	raw := append([][]byte(nil), list[start:]...)
	s.mu.RUnlock()
	return decodeAll(channel, raw), nil
}

func (s *MemoryStore) ListChannels(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.lists))
	for ch := range s.lists {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Trim(_ context.Context, channel string, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[channel]
	if keep <= 0 {
		delete(s.lists, channel)
		return nil
	}
	if len(list) > keep {
		s.lists[channel] = append([][]byte(nil), list[len(list)-keep:]...)
	}
	return nil
}

func (s *MemoryStore) Len(_ context.Context, channel string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.lists[channel])), nil
}

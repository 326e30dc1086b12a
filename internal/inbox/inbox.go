// Package inbox keeps the bounded, most-recent-first list of notifications a
// device has received, together with their read state.
package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"device-push-backend/internal/kv"
)

const (
	// Key is the kv key the inbox is stored under.
	Key = "@notifications"
	// Capacity is the maximum number of entries kept.
	Capacity = 100
)

// Entry is one received notification.
type Entry struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Payload   map[string]any `json:"data,omitempty"`
	IsRead    bool           `json:"isRead"`
	Timestamp time.Time      `json:"timestamp"`
}

// Store is the local inbox. Every operation reads the persisted list, applies
// its change and writes it back while holding one lock, so a failed write
// leaves the previous list in place.
type Store struct {
	kv     kv.Store
	logger *zap.Logger
	now    func() time.Time

	mu sync.Mutex
}

// New creates an inbox over the given key/value store.
func New(store kv.Store, logger *zap.Logger) *Store {
	return &Store{kv: store, logger: logger, now: time.Now}
}

// Insert puts e at the head of the inbox and drops the oldest entries beyond
// Capacity. An empty ID is replaced by a random one and a zero Timestamp by
// the current time.
func (s *Store) Insert(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}

	return s.update(ctx, func(entries []Entry) []Entry {
		out := make([]Entry, 0, min(len(entries)+1, Capacity))
		out = append(out, e)
		for _, old := range entries {
			if len(out) == Capacity {
				break
			}
			out = append(out, old)
		}
		return out
	})
}

// MarkRead flags the entry with the given id as read. Unknown ids are ignored.
func (s *Store) MarkRead(ctx context.Context, id string) error {
	return s.update(ctx, func(entries []Entry) []Entry {
		for i := range entries {
			if entries[i].ID == id {
				entries[i].IsRead = true
			}
		}
		return entries
	})
}

// Delete removes the entry with the given id. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.update(ctx, func(entries []Entry) []Entry {
		out := entries[:0]
		for _, e := range entries {
			if e.ID != id {
				out = append(out, e)
			}
		}
		return out
	})
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(ctx, Key); err != nil {
		return fmt.Errorf("failed to clear notifications: %w", err)
	}
	return nil
}

// List returns a snapshot of the inbox, newest first. A storage failure is
// logged and reported as an empty inbox.
func (s *Store) List(ctx context.Context) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		s.logger.Error("failed to get stored notifications", zap.Error(err))
		return []Entry{}
	}
	return entries
}

// UnreadCount returns the number of entries not yet read.
func (s *Store) UnreadCount(ctx context.Context) int {
	_, unread := s.Counts(ctx)
	return unread
}

// Counts returns the total and unread number of entries.
func (s *Store) Counts(ctx context.Context) (total, unread int) {
	entries := s.List(ctx)
	for _, e := range entries {
		if !e.IsRead {
			unread++
		}
	}
	return len(entries), unread
}

func (s *Store) update(ctx context.Context, apply func([]Entry) []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(apply(entries))
	if err != nil {
		return fmt.Errorf("failed to encode notifications: %w", err)
	}
	if err := s.kv.Set(ctx, Key, raw); err != nil {
		return fmt.Errorf("failed to store notifications: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context) ([]Entry, error) {
	raw, err := s.kv.Get(ctx, Key)
	if errors.Is(err, kv.ErrNotFound) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read notifications: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

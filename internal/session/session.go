// Package session keeps the per-chat conversation history.
package session

import (
	"context"
	"sync"
	"time"
)

// Entry is one exchange appended to a conversation.
type Entry struct {
	MessageID int64     `json:"message_id"`
	User      string    `json:"user"`
	Reply     string    `json:"reply"`
	ExampleID *int64    `json:"example_id,omitempty"`
	At        time.Time `json:"at"`
}

// Store holds conversations keyed by an opaque session key.
// Start and Clear both leave the conversation empty.
type Store interface {
	Start(ctx context.Context, key string) error
	Append(ctx context.Context, key string, entry Entry) error
	// History returns at most limit of the most recent entries, oldest first.
	// A limit <= 0 returns everything.
	History(ctx context.Context, key string, limit int) ([]Entry, error)
	Clear(ctx context.Context, key string) error
}

type Memory struct {
	mu       sync.RWMutex
	sessions map[string][]Entry
	maxLen   int
}

// NewMemory returns an in-process store keeping at most maxLen entries per
// session (unbounded when maxLen <= 0).
func NewMemory(maxLen int) *Memory {
	return &Memory{sessions: make(map[string][]Entry), maxLen: maxLen}
}

func (m *Memory) Start(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = nil
	return nil
}

func (m *Memory) Append(_ context.Context, key string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := append(m.sessions[key], entry)
	if m.maxLen > 0 && len(entries) > m.maxLen {
		entries = entries[len(entries)-m.maxLen:]
	}
	m.sessions[key] = entries
	return nil
}

func (m *Memory) History(_ context.Context, key string, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.sessions[key]
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out, nil
}

func (m *Memory) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}

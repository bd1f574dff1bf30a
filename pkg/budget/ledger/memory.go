package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore implements Store using in-memory state. This is the default
// backend: fast, dependency-free, and suitable for tests and single-process
// deployments. All balances are lost when the process exits.
//
// MemoryStore serializes every operation behind one mutex, which makes the
// multi-key burn trivially atomic.
type MemoryStore struct {
	entries map[string]*Entry
	mu      sync.Mutex
	closed  bool
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*Entry),
	}
}

var _ Store = (*MemoryStore)(nil)

// AuthorizeAndBurn atomically checks and decrements every bucket in refs.
func (m *MemoryStore) AuthorizeAndBurn(ctx context.Context, refs []Ref, cost float64, mode Mode) (*BurnResult, error) {
	if cost < 0 {
		return nil, fmt.Errorf("%w: cost %v", ErrInvalidAmount, cost)
	}
	if err := ctx.Err(); err != nil {
		return nil, Unavailable("authorize", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, Unavailable("authorize", errClosed)
	}

	entries := make([]*Entry, len(refs))
	for i, ref := range refs {
		entries[i] = m.materializeLocked(ref)
	}

	if mode == ModeHalt {
		for _, e := range entries {
			if e.Remaining < cost {
				return &BurnResult{Authorized: false, Entries: copyEntries(entries)}, nil
			}
		}
	}

	for _, e := range entries {
		e.Remaining -= cost
	}

	return &BurnResult{Authorized: true, Entries: copyEntries(entries)}, nil
}

// Topup adds amount to both remaining and limit of one bucket.
func (m *MemoryStore) Topup(ctx context.Context, ref Ref, amount float64) (Entry, error) {
	if amount < 0 {
		return Entry{}, fmt.Errorf("%w: topup %v", ErrInvalidAmount, amount)
	}
	if err := ctx.Err(); err != nil {
		return Entry{}, Unavailable("topup", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Entry{}, Unavailable("topup", errClosed)
	}

	e := m.materializeLocked(ref)
	e.Remaining += amount
	e.Limit += amount

	return *e, nil
}

// Snapshot returns current balances without burning or creating entries.
func (m *MemoryStore) Snapshot(ctx context.Context, refs []Ref) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unavailable("snapshot", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, Unavailable("snapshot", errClosed)
	}

	out := make([]Entry, len(refs))
	for i, ref := range refs {
		if e, ok := m.entries[ref.Key]; ok {
			out[i] = *e
		} else {
			out[i] = Entry{Key: ref.Key, Remaining: ref.Limit, Limit: ref.Limit}
		}
	}
	return out, nil
}

// List returns all entries whose key starts with prefix, sorted by key.
func (m *MemoryStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unavailable("list", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, Unavailable("list", errClosed)
	}

	var out []Entry
	for key, e := range m.entries {
		if strings.HasPrefix(key, prefix) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Close marks the store closed. Subsequent operations fail with ErrUnavailable.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// materializeLocked returns the entry for ref, creating it lazily at
// remaining = limit. Caller must hold the mutex.
func (m *MemoryStore) materializeLocked(ref Ref) *Entry {
	if e, ok := m.entries[ref.Key]; ok {
		return e
	}
	e := &Entry{Key: ref.Key, Remaining: ref.Limit, Limit: ref.Limit}
	m.entries[ref.Key] = e
	return e
}

func copyEntries(entries []*Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = *e
	}
	return out
}

var errClosed = fmt.Errorf("store is closed")

package conversation

import (
	"context"
	"sort"
	"sync"
)

// Index persists conversation records. The turns themselves live in a merkle.Storer.
type Index interface {
	// Save inserts or replaces a conversation record.
	Save(ctx context.Context, c *Conversation) error

	// Get returns a conversation by ID. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*Conversation, error)

	// List returns every conversation, most recently updated first.
	List(ctx context.Context) ([]*Conversation, error)

	// Delete removes a conversation. Returns ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, id string) error

	// Clear removes every conversation.
	Clear(ctx context.Context) error

	// Close releases any resources.
	Close() error
}

// MemoryIndex is an in-memory Index.
type MemoryIndex struct {
	mu            sync.RWMutex
	conversations map[string]Conversation
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{conversations: make(map[string]Conversation)}
}

func (m *MemoryIndex) Save(_ context.Context, c *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[c.ID] = *c
	return nil
}

func (m *MemoryIndex) Get(_ context.Context, id string) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound{ID: id}
	}
	return &c, nil
}

func (m *MemoryIndex) List(_ context.Context) ([]*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Conversation, 0, len(m.conversations))
	for _, c := range m.conversations {
		c := c
		out = append(out, &c)
	}
	sortRecent(out)
	return out, nil
}

func (m *MemoryIndex) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[id]; !ok {
		return ErrNotFound{ID: id}
	}
	delete(m.conversations, id)
	return nil
}

func (m *MemoryIndex) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations = make(map[string]Conversation)
	return nil
}

func (m *MemoryIndex) Close() error {
	return nil
}

// sortRecent orders by UpdatedAt descending, then ID for stable output.
func sortRecent(cs []*Conversation) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].UpdatedAt.Equal(cs[j].UpdatedAt) {
			return cs[i].UpdatedAt.After(cs[j].UpdatedAt)
		}
		return cs[i].ID < cs[j].ID
	})
}

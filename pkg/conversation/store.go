package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/pkg/llm"
	"github.com/papercomputeco/pmassist/pkg/logger"
	"github.com/papercomputeco/pmassist/pkg/merkle"
)

// Store manages conversations: records in an Index, turns in a merkle.Storer.
type Store struct {
	dag    merkle.Storer
	index  Index
	logger *zap.Logger

	now func() time.Time
}

// NewStore creates a Store over the given DAG and index.
func NewStore(dag merkle.Storer, index Index, logger *zap.Logger) *Store {
	return &Store{
		dag:    dag,
		index:  index,
		logger: logger,
		now:    time.Now,
	}
}

// DAG returns the turn storer backing the store.
func (s *Store) DAG() merkle.Storer {
	return s.dag
}

// Create starts a new, empty conversation. An empty title becomes DefaultTitle and is
// replaced by the first user message once one is appended.
func (s *Store) Create(ctx context.Context, title string, category Category) (*Conversation, error) {
	now := s.timestamp()
	c := &Conversation{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		Category:  category,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if c.Title == "" {
		c.Title = DefaultTitle
	}

	if err := s.index.Save(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Debug("conversation created",
		zap.String("id", c.ID),
		zap.String("category", string(c.Category)),
	)
	return c, nil
}

// Get returns a conversation by ID.
func (s *Store) Get(ctx context.Context, id string) (*Conversation, error) {
	return s.index.Get(ctx, id)
}

// List returns every conversation, most recently updated first.
func (s *Store) List(ctx context.Context) ([]*Conversation, error) {
	return s.index.List(ctx)
}

// Delete removes a conversation record. Its nodes stay in the DAG since other
// conversations may share them.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.index.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Debug("conversation deleted", zap.String("id", id))
	return nil
}

// Clear removes every conversation record.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.index.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("all conversations cleared")
	return nil
}

// Append stores turns under the conversation's head and advances the head to the
// last one. Invalid turns are rejected before anything is written.
func (s *Store) Append(ctx context.Context, id string, turns ...llm.Turn) (*Conversation, error) {
	c, err := s.index.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return c, nil
	}

	for i, t := range turns {
		if !t.Valid() {
			return nil, fmt.Errorf("turn %d has invalid role %q", i, t.Role)
		}
	}

	var parent *merkle.Node
	if c.HeadHash != "" {
		parent, err = s.dag.Get(ctx, c.HeadHash)
		if err != nil {
			return nil, fmt.Errorf("failed to load conversation head: %w", err)
		}
	}

	nodes := merkle.Chain(parent, turns...)
	for _, node := range nodes {
		isNew, err := s.dag.Put(ctx, node)
		if err != nil {
			return nil, fmt.Errorf("storing turn node: %w", err)
		}

		s.logger.Debug("stored turn in DAG",
			zap.String("hash", logger.Truncate(node.Hash, 16)),
			zap.String("role", string(node.Turn.Role)),
			zap.Bool("new", isNew),
			zap.String("content_preview", logger.Truncate(node.Turn.Text, 50)),
		)
	}

	if c.Title == DefaultTitle {
		for _, t := range turns {
			if t.Role == llm.RoleUser && strings.TrimSpace(t.Text) != "" {
				c.Title = titleFrom(strings.TrimSpace(t.Text))
				break
			}
		}
	}

	c.HeadHash = nodes[len(nodes)-1].Hash
	c.UpdatedAt = s.timestamp()
	if err := s.index.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Import adds a conversation record copied from another store, keeping its ID and
// timestamps. The head node must already be in the DAG. It reports whether the record
// was new; an existing ID is left untouched.
func (s *Store) Import(ctx context.Context, c *Conversation) (bool, error) {
	_, err := s.index.Get(ctx, c.ID)
	if err == nil {
		return false, nil
	}
	var notFound ErrNotFound
	if !errors.As(err, &notFound) {
		return false, err
	}

	if c.HeadHash != "" {
		ok, err := s.dag.Has(ctx, c.HeadHash)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, fmt.Errorf("conversation %s: head node %s is missing", c.ID, c.HeadHash)
		}
	}

	if err := s.index.Save(ctx, c); err != nil {
		return false, err
	}
	return true, nil
}

// Turns returns the whole conversation, oldest first.
func (s *Store) Turns(ctx context.Context, id string) ([]llm.Turn, error) {
	c, err := s.index.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.HeadHash == "" {
		return []llm.Turn{}, nil
	}

	nodes, err := s.dag.Descendants(ctx, c.HeadHash)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation turns: %w", err)
	}

	turns := make([]llm.Turn, len(nodes))
	for i, n := range nodes {
		turns[i] = n.Turn
	}
	return turns, nil
}

// History returns the last limit turns of the conversation, oldest first. A limit of
// zero or less returns every turn.
func (s *Store) History(ctx context.Context, id string, limit int) ([]llm.Turn, error) {
	turns, err := s.Turns(ctx, id)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

// Close closes the index and the DAG.
func (s *Store) Close() error {
	indexErr := s.index.Close()
	dagErr := s.dag.Close()
	if indexErr != nil {
		return indexErr
	}
	return dagErr
}

func (s *Store) timestamp() time.Time {
	return s.now().Round(0).UTC()
}

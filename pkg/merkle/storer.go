package merkle

import "context"

// Storer defines the interface for persisting and retrieving turn nodes.
// De-duplication happens via content-addressing: the same turn under the same
// parent always has the same hash and is stored once.
type Storer interface {
	// Put stores a node. It reports whether the node was new; storing an
	// existing hash is a no-op.
	Put(ctx context.Context, node *Node) (bool, error)

	// Get retrieves a node by its hash. Returns ErrNotFound if the node doesn't exist.
	Get(ctx context.Context, hash string) (*Node, error)

	// Has checks if a node exists by its hash.
	Has(ctx context.Context, hash string) (bool, error)

	// GetByParent retrieves all nodes that have the given parent hash.
	// Pass nil to get root nodes (nodes with no parent).
	GetByParent(ctx context.Context, parentHash *string) ([]*Node, error)

	// List returns all nodes in insertion order.
	List(ctx context.Context) ([]*Node, error)

	// Roots returns all root nodes (nodes with no parent).
	Roots(ctx context.Context) ([]*Node, error)

	// Leaves returns all leaf nodes (nodes with no children).
	Leaves(ctx context.Context) ([]*Node, error)

	// Ancestry returns the path from a node back to its root (node first, root last).
	Ancestry(ctx context.Context, hash string) ([]*Node, error)

	// Descendants returns the path from root to node (root first, node last).
	Descendants(ctx context.Context, hash string) ([]*Node, error)

	// Depth returns the depth of a node (0 for roots).
	Depth(ctx context.Context, hash string) (int, error)

	// Close closes the store and releases any resources.
	Close() error
}

// ErrNotFound is returned when a node doesn't exist in the store.
type ErrNotFound struct {
	Hash string
}

func (e ErrNotFound) Error() string {
	if e.Hash == "" {
		return "node not found"
	}

	return "node not found: " + e.Hash
}

type getter interface {
	Get(ctx context.Context, hash string) (*Node, error)
}

// ancestry walks parent links from hash to the root.
func ancestry(ctx context.Context, s getter, hash string) ([]*Node, error) {
	var path []*Node
	next := &hash
	for next != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		node, err := s.Get(ctx, *next)
		if err != nil {
			return nil, err
		}

		path = append(path, node)
		next = node.ParentHash
	}
	return path, nil
}

func reversed(nodes []*Node) []*Node {
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[len(nodes)-1-i] = n
	}
	return out
}

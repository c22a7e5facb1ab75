package server

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/pmassist/pkg/llm"
)

// handleDAGStats returns statistics about the turn DAG.
func (s *Server) handleDAGStats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	dag := s.store.DAG()

	nodes, err := dag.List(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list nodes"})
	}

	roots, err := dag.Roots(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get roots"})
	}

	leaves, err := dag.Leaves(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get leaves"})
	}

	return c.JSON(map[string]any{
		"total_nodes": len(nodes),
		"root_count":  len(roots),
		"leaf_count":  len(leaves),
	})
}

// handleGetNode returns a single node by its hash.
func (s *Server) handleGetNode(c *fiber.Ctx) error {
	node, err := s.store.DAG().Get(c.UserContext(), c.Params("hash"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "node not found"})
	}

	return c.JSON(node)
}

// HistoryResponse contains the turns leading up to and including a node.
type HistoryResponse struct {
	// Turns in chronological order
	Turns []HistoryTurn `json:"turns"`
	// HeadHash is the hash of the node that was requested
	HeadHash string `json:"head_hash"`
	// Depth is the number of turns in the history
	Depth int `json:"depth"`
}

// HistoryTurn is a turn with its position in the DAG.
type HistoryTurn struct {
	Hash       string   `json:"hash"`
	ParentHash *string  `json:"parent_hash,omitempty"`
	Role       llm.Role `json:"role"`
	Text       string   `json:"text"`
}

// handleGetHistory returns the path from the root to the given node, oldest first.
func (s *Server) handleGetHistory(c *fiber.Ctx) error {
	history, err := s.buildHistory(c.UserContext(), c.Params("hash"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "node not found"})
	}

	return c.JSON(history)
}

func (s *Server) buildHistory(ctx context.Context, hash string) (*HistoryResponse, error) {
	nodes, err := s.store.DAG().Descendants(ctx, hash)
	if err != nil {
		return nil, err
	}

	turns := make([]HistoryTurn, len(nodes))
	for i, node := range nodes {
		turns[i] = HistoryTurn{
			Hash:       node.Hash,
			ParentHash: node.ParentHash,
			Role:       node.Turn.Role,
			Text:       node.Turn.Text,
		}
	}

	return &HistoryResponse{
		Turns:    turns,
		HeadHash: hash,
		Depth:    len(turns),
	}, nil
}

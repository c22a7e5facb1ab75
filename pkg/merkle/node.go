// Package merkle stores conversation turns as a content-addressed Merkle DAG.
// A conversation is a chain of turn nodes; identical prefixes share nodes and a
// regenerated reply branches from the common ancestor.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/papercomputeco/pmassist/pkg/llm"
)

// Node represents a single content-addressed turn in the DAG
type Node struct {
	// Hash is the content-addressed identifier (SHA-256, hex-encoded)
	Hash string `json:"hash"`

	// ParentHash links to the previous turn.
	// This will be nil for the first turn of a conversation.
	ParentHash *string `json:"parent_hash"`

	// Turn is the hashed payload
	Turn llm.Turn `json:"turn"`
}

type input struct {
	Turn   llm.Turn `json:"turn"`
	Parent string   `json:"parent,omitempty"`
}

// NewNode creates a new node with the computed hash for the provided turn
func NewNode(turn llm.Turn, parent *Node) *Node {
	n := &Node{
		Turn: turn,
	}

	if parent != nil {
		h := parent.Hash
		n.ParentHash = &h
	}

	n.Hash = n.computeHash()
	return n
}

// Chain links turns into a parent-first sequence of nodes hanging off parent.
func Chain(parent *Node, turns ...llm.Turn) []*Node {
	nodes := make([]*Node, 0, len(turns))
	for _, t := range turns {
		parent = NewNode(t, parent)
		nodes = append(nodes, parent)
	}
	return nodes
}

func (n *Node) computeHash() string {
	i := &input{
		Turn: n.Turn,
	}

	if n.ParentHash != nil {
		i.Parent = *n.ParentHash
	}

	// llm.Turn has a fixed field order, so the encoding is canonical
	data, err := json.Marshal(i)
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

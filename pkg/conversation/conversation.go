// Package conversation tracks named chat sessions on top of the turn DAG.
//
// A Conversation is a mutable pointer (HeadHash) into the immutable merkle DAG.
// Appending turns creates new nodes under the current head and advances it, so
// conversations that share a prefix share nodes.
package conversation

import (
	"time"
)

// DefaultTitle is used until the first user message names the conversation.
const DefaultTitle = "New Conversation"

// titleLimit is the maximum number of runes taken from the first user message.
const titleLimit = 50

// Conversation is a named chat session.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  Category  `json:"category,omitempty"`
	HeadHash  string    `json:"head_hash,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrNotFound is returned when a conversation doesn't exist.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	return "conversation not found: " + e.ID
}

// titleFrom derives a conversation title from a user message.
func titleFrom(message string) string {
	runes := []rune(message)
	if len(runes) <= titleLimit {
		return message
	}
	return string(runes[:titleLimit]) + "..."
}

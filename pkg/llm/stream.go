package llm

// Chunk is a single line of a replayed response stream. Text always holds the whole
// prefix delivered so far, not a delta.
type Chunk struct {
	Text  string `json:"text"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`

	// Final chunk carries the exchange metadata
	Rejected     bool         `json:"rejected,omitempty"`
	TableIntent  bool         `json:"table_intent,omitempty"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
}

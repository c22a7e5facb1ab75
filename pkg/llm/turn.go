package llm

// Role is the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Valid reports whether the turn has a known role.
func (t Turn) Valid() bool {
	return t.Role == RoleUser || t.Role == RoleAssistant
}

// RemoteRole maps the turn role onto the remote model's vocabulary.
func (t Turn) RemoteRole() string {
	if t.Role == RoleAssistant {
		return RemoteRoleModel
	}
	return RemoteRoleUser
}

// Exchange is a completed request-response pair, the unit persisted per send.
type Exchange struct {
	Message      string         `json:"message"`
	Reply        string         `json:"reply"`
	Rejected     bool           `json:"rejected"`
	TableIntent  bool           `json:"table_intent"`
	FinishReason FinishReason   `json:"finish_reason,omitempty"`
	Usage        *UsageMetadata `json:"usage,omitempty"`
}

// Turns returns the user and assistant turns of the exchange.
func (e Exchange) Turns() []Turn {
	return []Turn{
		{Role: RoleUser, Text: e.Message},
		{Role: RoleAssistant, Text: e.Reply},
	}
}

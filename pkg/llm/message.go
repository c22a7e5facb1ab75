package llm

import "strings"

// Remote roles. The remote model calls the assistant side "model".
const (
	RemoteRoleUser  = "user"
	RemoteRoleModel = "model"
)

// Part is a single piece of content within a Content entry.
type Part struct {
	Text string `json:"text"`
}

// Content represents a single message in the remote conversation.
type Content struct {
	Role  string `json:"role"`  // "user" or "model"
	Parts []Part `json:"parts"` // Message parts, text only
}

// NewTextContent builds a single-part Content.
func NewTextContent(role, text string) Content {
	return Content{Role: role, Parts: []Part{{Text: text}}}
}

// Text concatenates the text of every part.
func (c Content) Text() string {
	if len(c.Parts) == 1 {
		return c.Parts[0].Text
	}

	var b strings.Builder
	for _, p := range c.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

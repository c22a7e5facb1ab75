package dispatch

import (
	"strings"

	"github.com/papercomputeco/pmassist/pkg/llm"
)

var tableKeywords = []string{
	"table", "competitive analysis", "comparison", "matrix", "framework",
	"market research", "feature comparison", "competitor", "analysis",
	"in table format", "table format", "create table", "show table",
}

// IsTableRequest reports whether the message asks for tabular output.
func IsTableRequest(message string) bool {
	m := strings.ToLower(message)
	for _, kw := range tableKeywords {
		if strings.Contains(m, kw) {
			return true
		}
	}
	return false
}

// BuildContents assembles the remote conversation for one exchange. A fresh
// conversation opens with the system prompt and welcome turns; otherwise only the
// last window valid history turns are sent. The current message always comes last.
func BuildContents(message string, history []llm.Turn, window int) []llm.Content {
	contents := make([]llm.Content, 0, window+3)

	if len(history) == 0 {
		contents = append(contents,
			llm.NewTextContent(llm.RemoteRoleUser, SystemPrompt),
			llm.NewTextContent(llm.RemoteRoleModel, WelcomeMessage),
		)
	}

	recent := history
	if window >= 0 && len(recent) > window {
		recent = recent[len(recent)-window:]
	}
	for _, t := range recent {
		if !t.Valid() {
			continue
		}
		contents = append(contents, llm.NewTextContent(t.RemoteRole(), t.Text))
	}

	text := message
	if IsTableRequest(message) {
		text += TableInstruction
	}
	contents = append(contents, llm.NewTextContent(llm.RemoteRoleUser, text))

	return contents
}

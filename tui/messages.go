package tui

import (
	"github.com/papercomputeco/pmassist/pkg/conversation"
	"github.com/papercomputeco/pmassist/pkg/dispatch"
	"github.com/papercomputeco/pmassist/pkg/llm"
)

// conversationsLoadedMsg carries a fresh sidebar listing.
type conversationsLoadedMsg struct {
	conversations []*conversation.Conversation
	err           error
}

// conversationOpenedMsg carries the turns of the conversation chosen in the sidebar.
type conversationOpenedMsg struct {
	id    string
	turns []llm.Turn
	err   error
}

// conversationDeletedMsg reports a sidebar deletion.
type conversationDeletedMsg struct {
	id  string
	err error
}

// chunkMsg is one replayed prefix of the reply in flight.
type chunkMsg struct {
	seq    int
	prefix string
}

// exchangeDoneMsg ends an exchange. convID is the conversation the exchange was
// stored in, which may have been created for it.
type exchangeDoneMsg struct {
	seq     int
	convID  string
	message string
	result  *dispatch.Result
	err     error
}

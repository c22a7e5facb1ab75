// Package tui is the terminal chat front-end: a conversation sidebar next to a chat
// pane that replays replies as they arrive and renders them as markdown.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/pkg/conversation"
	"github.com/papercomputeco/pmassist/pkg/dispatch"
	"github.com/papercomputeco/pmassist/pkg/llm"
)

const (
	sidebarWidth = 32
	inputHeight  = 3
	statusHeight = 1
)

// Sender runs one exchange. *dispatch.Dispatcher implements it.
type Sender interface {
	Send(ctx context.Context, req dispatch.Request) (*dispatch.Result, error)
}

type focus int

const (
	focusInput focus = iota
	focusSidebar
)

// sendFunc delivers messages from outside the update loop. It is set once the program
// exists and shared by every copy of the model.
type sendFunc struct {
	send func(tea.Msg)
}

func (s *sendFunc) Send(msg tea.Msg) {
	if s.send != nil {
		s.send(msg)
	}
}

// Model is the bubbletea model of the chat front-end.
type Model struct {
	ctx    context.Context
	sender Sender
	store  *conversation.Store
	logger *zap.Logger
	bridge *sendFunc

	width, height int
	focus         focus

	conversations []*conversation.Conversation
	selected      int

	// current is the open conversation; empty until the first message is sent
	current string
	turns   []llm.Turn

	waiting   bool
	streaming string
	seq       int
	cancel    context.CancelFunc
	status    string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	style    string
	renderer *glamour.TermRenderer
}

// New creates the chat model. ctx bounds every exchange started from the UI.
func New(ctx context.Context, sender Sender, store *conversation.Store, logger *zap.Logger) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about roadmaps, PRDs, prioritization..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:      ctx,
		sender:   sender,
		store:    store,
		logger:   logger,
		bridge:   &sendFunc{},
		input:    ti,
		viewport: vp,
		spinner:  sp,
		style:    markdownStyle(),
	}
	m.renderer = newRenderer(m.style, 80)
	m.refresh()
	return m
}

// markdownStyle picks the glamour style matching the terminal background.
func markdownStyle() string {
	if termenv.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

func newRenderer(style string, width int) *glamour.TermRenderer {
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// Init loads the sidebar.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadConversations())
}

func (m Model) loadConversations() tea.Cmd {
	return func() tea.Msg {
		convs, err := m.store.List(m.ctx)
		return conversationsLoadedMsg{conversations: convs, err: err}
	}
}

func (m Model) openConversation(id string) tea.Cmd {
	return func() tea.Msg {
		turns, err := m.store.Turns(m.ctx, id)
		return conversationOpenedMsg{id: id, turns: turns, err: err}
	}
}

func (m Model) deleteConversation(id string) tea.Cmd {
	return func() tea.Msg {
		return conversationDeletedMsg{id: id, err: m.store.Delete(m.ctx, id)}
	}
}

// exchange runs one exchange in the background. Prefixes are forwarded to the program
// as they are replayed; a new conversation is only stored once its first exchange
// succeeds.
func (m Model) exchange(ctx context.Context, seq int, convID, message string) tea.Cmd {
	bridge := m.bridge
	return func() tea.Msg {
		done := exchangeDoneMsg{seq: seq, convID: convID, message: message}

		var history []llm.Turn
		if convID != "" {
			var err error
			history, err = m.store.Turns(ctx, convID)
			if err != nil {
				done.err = err
				return done
			}
		}

		done.result, done.err = m.sender.Send(ctx, dispatch.Request{
			Message: message,
			History: history,
			OnChunk: func(prefix string) {
				bridge.Send(chunkMsg{seq: seq, prefix: prefix})
			},
		})
		if done.err != nil {
			return done
		}

		if done.convID == "" {
			conv, err := m.store.Create(ctx, "", "")
			if err != nil {
				m.logger.Error("failed to create conversation", zap.Error(err))
				return done
			}
			done.convID = conv.ID
		}

		if _, err := m.store.Append(ctx, done.convID, done.result.Exchange(message).Turns()...); err != nil {
			m.logger.Error("failed to store exchange", zap.String("conversation_id", done.convID), zap.Error(err))
		}
		return done
	}
}

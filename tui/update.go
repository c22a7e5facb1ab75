package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/pkg/dispatch"
	"github.com/papercomputeco/pmassist/pkg/llm"
)

// Update handles key presses, window resizes and exchange progress.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case conversationsLoadedMsg:
		if msg.err != nil {
			m.status = "Failed to load conversations: " + msg.err.Error()
			return m, nil
		}
		m.conversations = msg.conversations
		if m.selected >= len(m.conversations) {
			m.selected = max(len(m.conversations)-1, 0)
		}
		return m, nil

	case conversationOpenedMsg:
		if msg.err != nil {
			m.status = "Failed to open conversation: " + msg.err.Error()
			return m, nil
		}
		m.current = msg.id
		m.turns = msg.turns
		m.status = ""
		m.refresh()
		return m, nil

	case conversationDeletedMsg:
		if msg.err != nil {
			m.status = "Failed to delete conversation: " + msg.err.Error()
			return m, nil
		}
		if msg.id == m.current {
			m.reset()
		}
		return m, m.loadConversations()

	case chunkMsg:
		if msg.seq != m.seq || !m.waiting {
			return m, nil
		}
		m.streaming = msg.prefix
		m.refresh()
		return m, nil

	case exchangeDoneMsg:
		return m.finishExchange(msg)

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	if m.focus == focusInput {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case "esc":
		if m.waiting && m.cancel != nil {
			m.cancel()
			m.status = "Cancelling..."
		}
		return m, nil

	case "tab":
		if m.focus == focusInput {
			m.focus = focusSidebar
			m.input.Blur()
		} else {
			m.focus = focusInput
			m.input.Focus()
		}
		return m, nil

	case "ctrl+n":
		if m.waiting {
			return m, nil
		}
		m.reset()
		m.focus = focusInput
		m.input.Focus()
		return m, nil

	case "ctrl+d":
		if m.waiting || len(m.conversations) == 0 {
			return m, nil
		}
		return m, m.deleteConversation(m.conversations[m.selected].ID)
	}

	if m.focus == focusSidebar {
		switch msg.String() {
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.conversations)-1 {
				m.selected++
			}
		case "enter":
			if !m.waiting && len(m.conversations) > 0 {
				return m, m.openConversation(m.conversations[m.selected].ID)
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "enter":
		return m.submit()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit starts an exchange with the input line. Only one exchange runs at a time.
func (m Model) submit() (tea.Model, tea.Cmd) {
	message := strings.TrimSpace(m.input.Value())
	if message == "" || m.waiting {
		return m, nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.seq++
	m.cancel = cancel
	m.waiting = true
	m.streaming = ""
	m.status = ""
	m.turns = append(m.turns, llm.Turn{Role: llm.RoleUser, Text: message})
	m.input.Reset()
	m.refresh()

	return m, tea.Batch(m.spinner.Tick, m.exchange(ctx, m.seq, m.current, message))
}

func (m Model) finishExchange(msg exchangeDoneMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.seq {
		return m, nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.waiting = false
	m.streaming = ""
	m.current = msg.convID

	if msg.err != nil {
		// The user turn was never stored; drop it from the pane
		if n := len(m.turns); n > 0 && m.turns[n-1].Role == llm.RoleUser {
			m.turns = m.turns[:n-1]
		}
		if dispatch.IsCancelled(msg.err) {
			m.status = dispatch.MsgCancelled
		} else {
			m.status = msg.err.Error()
			m.logger.Debug("exchange failed", zap.Error(msg.err))
		}
		if m.input.Value() == "" {
			m.input.SetValue(msg.message)
		}
		m.refresh()
		return m, m.loadConversations()
	}

	m.turns = append(m.turns, llm.Turn{Role: llm.RoleAssistant, Text: msg.result.Text})
	if msg.result.FinishReason == llm.FinishReasonMaxTokens {
		m.status = "Reply truncated at the output limit"
	}
	m.refresh()
	return m, m.loadConversations()
}

// reset clears the chat pane for a new conversation.
func (m *Model) reset() {
	m.current = ""
	m.turns = nil
	m.streaming = ""
	m.status = ""
	m.refresh()
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	chatWidth := max(width-sidebarWidth-2, 20)
	m.viewport.Width = chatWidth
	m.viewport.Height = max(height-inputHeight-statusHeight-2, 3)
	m.input.Width = chatWidth - 4
	m.renderer = newRenderer(m.style, chatWidth-2)
	m.refresh()
}

// refresh re-renders the chat pane and keeps it scrolled to the latest turn.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTurns())
	m.viewport.GotoBottom()
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/papercomputeco/pmassist/pkg/conversation"
	"github.com/papercomputeco/pmassist/pkg/dispatch"
	"github.com/papercomputeco/pmassist/pkg/llm"
)

var (
	accent = lipgloss.AdaptiveColor{Light: "#5A4FCF", Dark: "#9D8CFF"}
	muted  = lipgloss.AdaptiveColor{Light: "#6B6B6B", Dark: "#8A8A8A"}

	sidebarStyle = lipgloss.NewStyle().
			Width(sidebarWidth).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)

	sidebarFocusedStyle = sidebarStyle.BorderForeground(accent)

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(accent)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	itemStyle     = lipgloss.NewStyle()
	mutedStyle    = lipgloss.NewStyle().Foreground(muted)
	userStyle     = lipgloss.NewStyle().Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75"))
)

// View lays the sidebar out next to the chat pane.
func (m Model) View() string {
	chat := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.statusLine(),
		m.input.View(),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), chat)
}

func (m Model) statusLine() string {
	switch {
	case m.waiting:
		return m.spinner.View() + mutedStyle.Render(" Thinking... (esc to cancel)")
	case m.status != "":
		return errorStyle.Render(m.status)
	default:
		return mutedStyle.Render("tab: switch focus  ctrl+n: new  ctrl+d: delete  ctrl+c: quit")
	}
}

// renderSidebar lists the conversations, most recent first.
func (m Model) renderSidebar() string {
	inner := sidebarWidth - 4

	var b strings.Builder
	b.WriteString(titleStyle.Render("Conversations"))
	b.WriteString("\n\n")

	if len(m.conversations) == 0 {
		b.WriteString(mutedStyle.Render("No conversations yet"))
	}
	for i, c := range m.conversations {
		marker := "  "
		style := itemStyle
		if i == m.selected {
			marker = "> "
			if m.focus == focusSidebar {
				style = selectedStyle
			}
		}
		if c.ID == m.current {
			marker = "* "
		}
		b.WriteString(style.Render(ansi.Truncate(marker+c.Title, inner, "…")))
		b.WriteString("\n")
		if label := categoryLabel(c.Category); label != "" {
			b.WriteString(mutedStyle.Render(ansi.Truncate("  "+label, inner, "…")))
			b.WriteString("\n")
		}
	}

	style := sidebarStyle
	if m.focus == focusSidebar {
		style = sidebarFocusedStyle
	}
	if m.height > 2 {
		style = style.Height(m.height - 2)
	}
	return style.Render(b.String())
}

func categoryLabel(c conversation.Category) string {
	for _, info := range conversation.Categories() {
		if info.Name == c {
			return info.Label
		}
	}
	return ""
}

// renderTurns renders the chat pane content. Assistant turns are markdown; the reply
// in flight is shown raw until it completes.
func (m Model) renderTurns() string {
	var b strings.Builder

	if len(m.turns) == 0 && !m.waiting {
		b.WriteString(m.markdown(dispatch.WelcomeMessage))
		b.WriteString(mutedStyle.Render("Try one of these:"))
		b.WriteString("\n")
		for _, info := range conversation.Categories() {
			if len(info.Actions) == 0 {
				continue
			}
			b.WriteString(mutedStyle.Render(fmt.Sprintf("  %s: %s", info.Label, info.Actions[0].Title)))
			b.WriteString("\n")
		}
		return b.String()
	}

	for _, t := range m.turns {
		switch t.Role {
		case llm.RoleUser:
			b.WriteString(userStyle.Render("You"))
			b.WriteString("\n")
			b.WriteString(t.Text)
			b.WriteString("\n\n")
		default:
			b.WriteString(titleStyle.Render("PM Assistant"))
			b.WriteString("\n")
			b.WriteString(m.markdown(t.Text))
		}
	}

	if m.waiting && m.streaming != "" {
		b.WriteString(titleStyle.Render("PM Assistant"))
		b.WriteString("\n")
		b.WriteString(m.streaming)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) markdown(text string) string {
	if m.renderer == nil {
		return text + "\n\n"
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text + "\n\n"
	}
	return out
}

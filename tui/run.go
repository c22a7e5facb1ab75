package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/pkg/conversation"
)

// Run starts the chat front-end and blocks until the user quits.
func Run(ctx context.Context, sender Sender, store *conversation.Store, logger *zap.Logger) error {
	m := New(ctx, sender, store, logger)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	m.bridge.send = p.Send

	_, err := p.Run()
	return err
}

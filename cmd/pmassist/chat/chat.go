package chatcmder

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/pmassist/cmd/pmassist/bootstrap"
	"github.com/papercomputeco/pmassist/tui"
)

const chatLongDesc string = `Open the interactive chat.

Conversations are listed in the sidebar and stored between sessions.

Keys:
  enter    send the message, or open the selected conversation
  esc      cancel the reply in flight
  tab      switch focus between the input and the sidebar
  up/down  select a conversation
  ctrl+n   start a new conversation
  ctrl+d   delete the selected conversation
  ctrl+c   quit`

const chatShortDesc string = "Open the interactive chat"

type chatCommander struct{}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	// Console logs would draw over the UI
	app, err := bootstrap.New(cmd, bootstrap.Options{Quiet: true})
	if err != nil {
		return err
	}
	defer app.Close()

	return tui.Run(cmd.Context(), app.Dispatcher, app.Store, app.Logger)
}

package askcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/pmassist/cmd/pmassist/bootstrap"
	"github.com/papercomputeco/pmassist/pkg/conversation"
	"github.com/papercomputeco/pmassist/pkg/dispatch"
	"github.com/papercomputeco/pmassist/pkg/llm"
)

const askLongDesc string = `Ask the assistant one question.

Off-topic questions get the fixed refusal without a remote call. On a terminal
the reply is rendered as markdown once complete; otherwise it is streamed word by
word. Use --conversation to continue a stored conversation, or --save to start one.

Examples:
  pmassist ask "How should I prioritize my backlog?"
  pmassist ask --save --category research "Draft a user interview script"
  pmassist ask --conversation 6f1c... "Now turn that into a table"`

const askShortDesc string = "Ask the assistant a question"

type askCommander struct {
	conversationID string
	save           bool
	category       string
	raw            bool
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <message...>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&cmder.conversationID, "conversation", "", "Continue the stored conversation with this ID")
	cmd.Flags().BoolVar(&cmder.save, "save", false, "Store the exchange in a new conversation")
	cmd.Flags().StringVar(&cmder.category, "category", "", "Category of the new conversation (with --save)")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Stream plain text even on a terminal")

	return cmd
}

func (c *askCommander) run(ctx context.Context, cmd *cobra.Command, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return fmt.Errorf("message is empty")
	}

	category, err := conversation.ParseCategory(c.category)
	if err != nil {
		return err
	}

	stored := c.conversationID != "" || c.save
	app, err := bootstrap.New(cmd, bootstrap.Options{NoStore: !stored})
	if err != nil {
		return err
	}
	defer app.Close()

	convID := c.conversationID
	var history []llm.Turn
	switch {
	case convID != "":
		history, err = app.Store.Turns(ctx, convID)
		if err != nil {
			return fmt.Errorf("could not load conversation: %w", err)
		}
	case c.save:
		conv, err := app.Store.Create(ctx, "", category)
		if err != nil {
			return fmt.Errorf("could not create conversation: %w", err)
		}
		convID = conv.ID
	}

	out := cmd.OutOrStdout()
	render := !c.raw && isTerminal(out)

	req := dispatch.Request{Message: message, History: history}
	if !render {
		printed := 0
		req.OnChunk = func(prefix string) {
			fmt.Fprint(out, prefix[printed:])
			printed = len(prefix)
		}
	}

	result, err := app.Dispatcher.Send(ctx, req)
	if err != nil {
		return err
	}

	if render {
		fmt.Fprint(out, renderMarkdown(result.Text, out))
	} else {
		fmt.Fprintln(out)
	}

	if convID != "" {
		if _, err := app.Store.Append(ctx, convID, result.Exchange(message).Turns()...); err != nil {
			return fmt.Errorf("could not store exchange: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "conversation: %s\n", convID)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// renderMarkdown renders text for the terminal behind w, falling back to plain text.
func renderMarkdown(text string, w io.Writer) string {
	width := 80
	if f, ok := w.(*os.File); ok {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
			width = min(cols, 120)
		}
	}

	style := "light"
	if termenv.HasDarkBackground() {
		style = "dark"
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text + "\n"
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text + "\n"
	}
	return rendered
}

package conversationscmder

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/cmd/pmassist/bootstrap"
	"github.com/papercomputeco/pmassist/pkg/config"
	"github.com/papercomputeco/pmassist/pkg/conversation"
)

const conversationsShortDesc string = "Manage stored conversations"

type conversationsCommander struct {
	sqlitePath string
}

func NewConversationsCmd() *cobra.Command {
	cmder := &conversationsCommander{}

	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   conversationsShortDesc,
	}

	cmd.PersistentFlags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to the SQLite database (overrides storage.path)")

	cmd.AddCommand(
		cmder.newListCmd(),
		cmder.newDeleteCmd(),
		cmder.newClearCmd(),
		cmder.newMergeCmd(),
	)

	return cmd
}

// open opens the configured store without touching the remote endpoint.
func (c *conversationsCommander) open(cmd *cobra.Command) (*conversation.Store, *zap.Logger, error) {
	cfg, _, err := bootstrap.Config(cmd)
	if err != nil {
		return nil, nil, err
	}
	if c.sqlitePath != "" {
		cfg.Storage.Backend = config.StorageSQLite
		cfg.Storage.Path = c.sqlitePath
	}

	logger := bootstrap.Logger(cmd, cfg, false)
	store, err := bootstrap.Store(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, logger, nil
}

func (c *conversationsCommander) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.list(cmd.Context(), cmd)
		},
	}
}

func (c *conversationsCommander) list(ctx context.Context, cmd *cobra.Command) error {
	store, _, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	convs, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("could not list conversations: %w", err)
	}

	if len(convs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No conversations.")
		return nil
	}

	rows := make([][]string, len(convs))
	for i, conv := range convs {
		rows[i] = []string{
			conv.ID,
			conv.UpdatedAt.Local().Format(time.DateTime),
			string(conv.Category),
			conv.Title,
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "UPDATED", "CATEGORY", "TITLE").
		Rows(rows...)
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return nil
}

func (c *conversationsCommander) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id...>",
		Short: "Delete conversations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.delete(cmd.Context(), cmd, args)
		},
	}
}

func (c *conversationsCommander) delete(ctx context.Context, cmd *cobra.Command, ids []string) error {
	store, _, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, id := range ids {
		if err := store.Delete(ctx, id); err != nil {
			return fmt.Errorf("could not delete %s: %w", id, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
	}
	return nil
}

func (c *conversationsCommander) newClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete every conversation without --yes")
			}
			return c.clear(cmd.Context(), cmd)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")

	return cmd
}

func (c *conversationsCommander) clear(ctx context.Context, cmd *cobra.Command) error {
	store, _, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("could not clear conversations: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "All conversations deleted.")
	return nil
}

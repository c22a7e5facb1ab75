package conversationscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/pmassist/cmd/pmassist/bootstrap"
)

const mergeLongDesc string = `Merge conversations from other pmassist databases into this one.

Content-addressing makes node merging a simple union: turns that already exist
are skipped (deduped by hash). Conversation records are copied by ID; records
already present are left untouched.

Examples:
  pmassist conversations merge ~/laptop/pmassist.db
  pmassist conversations merge --sqlite /tmp/merged.db a.db b.db`

const mergeShortDesc string = "Merge other pmassist databases"

func (c *conversationsCommander) newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge [sources...]",
		Short: mergeShortDesc,
		Long:  mergeLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.merge(cmd.Context(), cmd, args)
		},
	}
}

func (c *conversationsCommander) merge(ctx context.Context, cmd *cobra.Command, sources []string) error {
	target, logger, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer target.Close()

	var totalNew, totalDuped, totalConvs int

	for _, srcPath := range sources {
		source, err := bootstrap.OpenSQLite(srcPath, logger)
		if err != nil {
			return fmt.Errorf("could not open source database %s: %w", srcPath, err)
		}

		nodes, err := source.DAG().List(ctx)
		if err != nil {
			source.Close()
			return fmt.Errorf("could not list nodes from %s: %w", srcPath, err)
		}

		// Nodes are listed in insertion order, so parents land before children
		var srcNew, srcDuped int
		for _, n := range nodes {
			isNew, err := target.DAG().Put(ctx, n)
			if err != nil {
				source.Close()
				return fmt.Errorf("could not put node %s: %w", n.Hash, err)
			}
			if isNew {
				srcNew++
			} else {
				srcDuped++
			}
		}

		convs, err := source.List(ctx)
		if err != nil {
			source.Close()
			return fmt.Errorf("could not list conversations from %s: %w", srcPath, err)
		}

		var srcConvs int
		for _, conv := range convs {
			isNew, err := target.Import(ctx, conv)
			if err != nil {
				source.Close()
				return fmt.Errorf("could not import conversation %s: %w", conv.ID, err)
			}
			if isNew {
				srcConvs++
			}
		}

		totalNew += srcNew
		totalDuped += srcDuped
		totalConvs += srcConvs
		source.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d new nodes, %d already existed, %d new conversations\n",
			srcPath, srcNew, srcDuped, srcConvs)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Merged %d new nodes and %d conversations from %d sources (%d nodes already existed)\n",
		totalNew, totalConvs, len(sources), totalDuped)

	return nil
}

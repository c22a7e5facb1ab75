package classifycmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/cmd/pmassist/bootstrap"
	"github.com/papercomputeco/pmassist/pkg/config"
	"github.com/papercomputeco/pmassist/pkg/topicgate"
)

const classifyLongDesc string = `Run only the Topic Gate on a message and print its verdict.

With the heuristic policy no remote call is made and no API key is needed; the
rule that decided is printed alongside the verdict.

Examples:
  pmassist classify "What's the best carbonara recipe?"
  pmassist classify --history "make it shorter"`

const classifyShortDesc string = "Check whether a message is on-topic"

type classifyCommander struct {
	hasHistory bool
}

func NewClassifyCmd() *cobra.Command {
	cmder := &classifyCommander{}

	cmd := &cobra.Command{
		Use:   "classify <message...>",
		Short: classifyShortDesc,
		Long:  classifyLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().BoolVar(&cmder.hasHistory, "history", false, "Classify as a follow-up in an existing conversation")

	return cmd
}

func (c *classifyCommander) run(ctx context.Context, cmd *cobra.Command, message string) error {
	cfg, _, err := bootstrap.Config(cmd)
	if err != nil {
		return err
	}
	logger := bootstrap.Logger(cmd, cfg, false)
	defer logger.Sync()

	out := cmd.OutOrStdout()

	if topicgate.Policy(cfg.Gate.Policy) == topicgate.PolicyHeuristic {
		decision := topicgate.NewHeuristic(logger).Evaluate(message, c.hasHistory)
		fmt.Fprintf(out, "%s (rule: %s)\n", verdict(decision.Allow), decision.Rule)
		return nil
	}

	gate, err := modelGate(cfg, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (policy: %s)\n", verdict(gate.Allow(ctx, message, c.hasHistory)), cfg.Gate.Policy)
	return nil
}

func modelGate(cfg *config.Config, logger *zap.Logger) (topicgate.Gate, error) {
	client, err := bootstrap.Client(cfg, logger)
	if err != nil {
		return nil, err
	}
	return topicgate.New(cfg.GateConfig(), client, logger)
}

func verdict(allowed bool) string {
	if allowed {
		return "on-topic"
	}
	return "off-topic"
}

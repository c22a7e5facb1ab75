package mcpcmder

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/pmassist/cmd/pmassist/bootstrap"
	"github.com/papercomputeco/pmassist/mcpserver"
)

const mcpLongDesc string = `Serve the assistant as MCP tools over stdio.

Tools:
  ask_pm_assistant  answer a product management question, with optional history
  check_pm_topic    report whether a message is on-topic

Logs go to stderr; stdout carries the protocol.`

const mcpShortDesc string = "Serve MCP tools over stdio"

type mcpCommander struct {
	version string
}

func NewMCPCmd(version string) *cobra.Command {
	cmder := &mcpCommander{version: version}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: mcpShortDesc,
		Long:  mcpLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	return cmd
}

func (c *mcpCommander) run(cmd *cobra.Command) error {
	app, err := bootstrap.New(cmd, bootstrap.Options{NoStore: true})
	if err != nil {
		return err
	}
	defer app.Close()

	return mcpserver.New(app.Dispatcher, app.Gate, c.version, app.Logger).Run(cmd.Context())
}

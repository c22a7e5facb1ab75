package main

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/pmassist/cmd/pmassist/ask"
	"github.com/papercomputeco/pmassist/cmd/pmassist/bootstrap"
	chatcmder "github.com/papercomputeco/pmassist/cmd/pmassist/chat"
	classifycmder "github.com/papercomputeco/pmassist/cmd/pmassist/classify"
	conversationscmder "github.com/papercomputeco/pmassist/cmd/pmassist/conversations"
	mcpcmder "github.com/papercomputeco/pmassist/cmd/pmassist/mcp"
	servecmder "github.com/papercomputeco/pmassist/cmd/pmassist/serve"
)

const pmassistLongDesc string = `pmassist is a product management assistant.

It answers questions about roadmaps, PRDs, prioritization, user research,
metrics and stakeholder communication, and politely declines everything else.

Configuration is read from --config, or ~/.pmassist/config.toml when present.
The Gemini API key is read from PMASSIST_GEMINI_API_KEY.`

const pmassistShortDesc string = "Product management assistant"

func NewPMAssistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "pmassist",
		Short:        pmassistShortDesc,
		Long:         pmassistLongDesc,
		Version:      version,
		SilenceUsage: true,
	}

	bootstrap.AddFlags(cmd)

	cmd.AddCommand(
		askcmder.NewAskCmd(),
		classifycmder.NewClassifyCmd(),
		chatcmder.NewChatCmd(),
		servecmder.NewServeCmd(),
		mcpcmder.NewMCPCmd(version),
		conversationscmder.NewConversationsCmd(),
	)

	return cmd
}

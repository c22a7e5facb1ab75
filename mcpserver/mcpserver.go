// Package mcpserver exposes the assistant as Model Context Protocol tools over stdio.
package mcpserver

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/pkg/dispatch"
	"github.com/papercomputeco/pmassist/pkg/llm"
	"github.com/papercomputeco/pmassist/pkg/topicgate"
)

const (
	AskToolName   = "ask_pm_assistant"
	TopicToolName = "check_pm_topic"
)

// Sender runs one exchange. *dispatch.Dispatcher implements it.
type Sender interface {
	Send(ctx context.Context, req dispatch.Request) (*dispatch.Result, error)
}

// AskInput is the argument of ask_pm_assistant.
type AskInput struct {
	Message string     `json:"message" jsonschema:"the product management question or request"`
	History []llm.Turn `json:"history,omitempty" jsonschema:"earlier turns of the conversation, oldest first"`
}

// AskOutput is the result of ask_pm_assistant.
type AskOutput struct {
	Reply        string `json:"reply"`
	Rejected     bool   `json:"rejected"`
	TableIntent  bool   `json:"table_intent"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// TopicInput is the argument of check_pm_topic.
type TopicInput struct {
	Message    string `json:"message" jsonschema:"the message to classify"`
	HasHistory bool   `json:"has_history,omitempty" jsonschema:"whether the message continues an existing conversation"`
}

// TopicOutput is the result of check_pm_topic.
type TopicOutput struct {
	Allowed bool `json:"allowed"`
}

var errEmptyMessage = errors.New("message is required")

// Server serves the assistant tools.
type Server struct {
	server *mcp.Server
	sender Sender
	gate   topicgate.Gate
	logger *zap.Logger
}

// New creates a Server with both tools registered.
func New(sender Sender, gate topicgate.Gate, version string, logger *zap.Logger) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{Name: "pmassist", Version: version}, nil),
		sender: sender,
		gate:   gate,
		logger: logger,
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        AskToolName,
		Description: "Ask the product management assistant a question. Off-topic questions are declined with a fixed refusal.",
	}, s.ask)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        TopicToolName,
		Description: "Check whether a message is a product management topic the assistant will answer.",
	}, s.checkTopic)

	return s
}

// Run serves over stdin and stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) ask(ctx context.Context, _ *mcp.CallToolRequest, in AskInput) (*mcp.CallToolResult, AskOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return toolError(errEmptyMessage), AskOutput{}, nil
	}

	result, err := s.sender.Send(ctx, dispatch.Request{
		Message: message,
		History: in.History,
	})
	if err != nil {
		s.logger.Warn("tool exchange failed",
			zap.String("tool", AskToolName),
			zap.String("kind", string(dispatch.KindOf(err))),
			zap.Error(err),
		)
		return toolError(err), AskOutput{}, nil
	}

	out := AskOutput{
		Reply:        result.Text,
		Rejected:     result.Rejected,
		TableIntent:  result.TableIntent,
		FinishReason: string(result.FinishReason),
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: result.Text}},
	}, out, nil
}

func (s *Server) checkTopic(ctx context.Context, _ *mcp.CallToolRequest, in TopicInput) (*mcp.CallToolResult, TopicOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return toolError(errEmptyMessage), TopicOutput{}, nil
	}

	allowed := s.gate.Allow(ctx, message, in.HasHistory)

	verdict := "off-topic"
	if allowed {
		verdict = "on-topic"
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: verdict}},
	}, TopicOutput{Allowed: allowed}, nil
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}

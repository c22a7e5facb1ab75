package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/pkg/dispatch"
	"github.com/papercomputeco/pmassist/pkg/llm"
	"github.com/papercomputeco/pmassist/pkg/topicgate"
)

type stubSender struct {
	result *dispatch.Result
	err    error
	last   dispatch.Request
}

func (s *stubSender) Send(_ context.Context, req dispatch.Request) (*dispatch.Result, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func text(res *mcp.CallToolResult) string {
	Expect(res.Content).To(HaveLen(1))
	tc, ok := res.Content[0].(*mcp.TextContent)
	Expect(ok).To(BeTrue())
	return tc.Text
}

func structured[T any](res *mcp.CallToolResult) T {
	var out T
	data, err := json.Marshal(res.StructuredContent)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(data, &out)).To(Succeed())
	return out
}

var _ = Describe("MCP server", func() {
	var (
		ctx     context.Context
		cancel  context.CancelFunc
		sender  *stubSender
		session *mcp.ClientSession
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		sender = &stubSender{result: &dispatch.Result{
			Text:         "| Metric | Target |",
			TableIntent:  true,
			FinishReason: llm.FinishReasonStop,
		}}

		logger := zap.NewNop()
		s := New(sender, topicgate.NewHeuristic(logger), "test", logger)

		clientTransport, serverTransport := mcp.NewInMemoryTransports()
		_, err := s.server.Connect(ctx, serverTransport, nil)
		Expect(err).NotTo(HaveOccurred())

		client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
		session, err = client.Connect(ctx, clientTransport, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		session.Close()
		cancel()
	})

	It("lists both tools", func() {
		res, err := session.ListTools(ctx, nil)
		Expect(err).NotTo(HaveOccurred())

		var names []string
		for _, t := range res.Tools {
			names = append(names, t.Name)
		}
		Expect(names).To(ConsistOf(AskToolName, TopicToolName))
	})

	Describe(AskToolName, func() {
		It("returns the reply and its metadata", func() {
			res, err := session.CallTool(ctx, &mcp.CallToolParams{
				Name: AskToolName,
				Arguments: map[string]any{
					"message": "Create a table of OKRs",
					"history": []map[string]any{
						{"role": "user", "text": "We are planning Q3"},
						{"role": "assistant", "text": "Great, what are the goals?"},
					},
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(text(res)).To(Equal("| Metric | Target |"))

			out := structured[AskOutput](res)
			Expect(out.TableIntent).To(BeTrue())
			Expect(out.FinishReason).To(Equal("STOP"))

			Expect(sender.last.Message).To(Equal("Create a table of OKRs"))
			Expect(sender.last.History).To(Equal([]llm.Turn{
				{Role: llm.RoleUser, Text: "We are planning Q3"},
				{Role: llm.RoleAssistant, Text: "Great, what are the goals?"},
			}))
		})

		It("reports exchange failures as tool errors", func() {
			sender.err = &dispatch.Error{Kind: dispatch.RateLimited, Message: dispatch.MsgRateLimited}

			res, err := session.CallTool(ctx, &mcp.CallToolParams{
				Name:      AskToolName,
				Arguments: map[string]any{"message": "Create a roadmap"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(text(res)).To(Equal(dispatch.MsgRateLimited))
		})

		It("rejects a blank message", func() {
			res, err := session.CallTool(ctx, &mcp.CallToolParams{
				Name:      AskToolName,
				Arguments: map[string]any{"message": "  "},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})
	})

	Describe(TopicToolName, func() {
		DescribeTable("classifies with the gate",
			func(message string, hasHistory, allowed bool) {
				res, err := session.CallTool(ctx, &mcp.CallToolParams{
					Name:      TopicToolName,
					Arguments: map[string]any{"message": message, "has_history": hasHistory},
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(res.IsError).To(BeFalse())
				Expect(structured[TopicOutput](res).Allowed).To(Equal(allowed))
			},
			Entry("domain question", "How should I prioritize my product backlog?", false, true),
			Entry("greeting", "hello", false, false),
			Entry("follow-up", "can you make it shorter", true, true),
		)
	})
})

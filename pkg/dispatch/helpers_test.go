package dispatch_test

import (
	"context"
	"strings"
	"sync"

	"github.com/papercomputeco/pmassist/pkg/llm"
)

// scriptedGenerator answers every call with respond.
type scriptedGenerator struct {
	mu       sync.Mutex
	requests []*llm.GenerateContentRequest
	respond  func(ctx context.Context, req *llm.GenerateContentRequest) (*llm.GenerateContentResponse, error)
}

func (g *scriptedGenerator) GenerateContent(ctx context.Context, req *llm.GenerateContentRequest) (*llm.GenerateContentResponse, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	return g.respond(ctx, req)
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func (g *scriptedGenerator) last() *llm.GenerateContentRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

func reply(text string, reason llm.FinishReason) func(context.Context, *llm.GenerateContentRequest) (*llm.GenerateContentResponse, error) {
	return func(context.Context, *llm.GenerateContentRequest) (*llm.GenerateContentResponse, error) {
		return &llm.GenerateContentResponse{
			Candidates: []llm.Candidate{{
				Content:      llm.NewTextContent(llm.RemoteRoleModel, text),
				FinishReason: reason,
			}},
			UsageMetadata: &llm.UsageMetadata{PromptTokenCount: 100, CandidatesTokenCount: 20, TotalTokenCount: 120},
		}, nil
	}
}

func failWith(err error) func(context.Context, *llm.GenerateContentRequest) (*llm.GenerateContentResponse, error) {
	return func(context.Context, *llm.GenerateContentRequest) (*llm.GenerateContentResponse, error) {
		return nil, err
	}
}

// gateFunc adapts a function to topicgate.Gate.
type gateFunc func(ctx context.Context, message string, hasHistory bool) bool

func (f gateFunc) Allow(ctx context.Context, message string, hasHistory bool) bool {
	return f(ctx, message, hasHistory)
}

// recorder collects chunks delivered to a sink.
type recorder struct {
	mu     sync.Mutex
	chunks []string
}

func (r *recorder) sink(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, prefix)
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.chunks...)
}

func turns(n int) []llm.Turn {
	out := make([]llm.Turn, n)
	for i := range out {
		role := llm.RoleUser
		if i%2 == 1 {
			role = llm.RoleAssistant
		}
		out[i] = llm.Turn{Role: role, Text: "turn " + strings.Repeat("x", i)}
	}
	return out
}

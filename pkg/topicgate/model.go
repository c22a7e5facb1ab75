package topicgate

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/pkg/llm"
	"github.com/papercomputeco/pmassist/pkg/logger"
	"github.com/papercomputeco/pmassist/pkg/metrics"
)

const classifierPrompt = `You are a strict topic classifier for a Product Management assistant.
Decide whether the user's message asks for product management help: product strategy,
roadmapping, prioritization, user research, analytics and metrics, go-to-market,
pricing, stakeholder management, agile execution, or building and growing a product or
business.

Answer with exactly one word: yes or no. No punctuation, no explanation.

A request that mentions a product or business but actually asks for off-domain content is
not a product management question.

Examples:
Message: How should I prioritize features for our next release?
Answer: yes
Message: Create a competitive analysis table for project management tools
Answer: yes
Message: What metrics should I track for a subscription app?
Answer: yes
Message: Give me a carbonara recipe for my food-delivery app
Answer: no
Message: Who won the cricket match yesterday?
Answer: no
Message: Write a poem about my startup
Answer: no
Message: What is the weather in London?
Answer: no

Message: `

// classifierConfig keeps the classification call short and deterministic.
var classifierConfig = llm.GenerationConfig{
	Temperature:     0,
	TopK:            1,
	TopP:            0.1,
	MaxOutputTokens: 5,
	CandidateCount:  1,
}

// Model is the model-assisted policy: one remote yes/no classification per fresh
// message.
type Model struct {
	generator Generator
	logger    *zap.Logger
	failOpen  bool
	cache     *verdictCache
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithFailOpen sets the verdict used when classification fails. True accepts.
func WithFailOpen(failOpen bool) ModelOption {
	return func(m *Model) {
		m.failOpen = failOpen
	}
}

// WithCache enables a verdict cache bounded to size entries.
func WithCache(size int, ttl time.Duration) ModelOption {
	return func(m *Model) {
		if size > 0 {
			m.cache = newVerdictCache(size, ttl)
		}
	}
}

// NewModel creates the model-assisted gate. It fails open unless configured otherwise.
func NewModel(generator Generator, logger *zap.Logger, opts ...ModelOption) *Model {
	m := &Model{
		generator: generator,
		logger:    logger,
		failOpen:  true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Allow implements Gate.
func (m *Model) Allow(ctx context.Context, message string, hasHistory bool) bool {
	if hasHistory {
		return m.verdict(true, "history", message)
	}
	if isFileMetadata(message) {
		return m.verdict(true, "file_metadata", message)
	}

	key := normalize(message)
	if m.cache != nil {
		if allow, ok := m.cache.get(key); ok {
			metrics.GateCacheHits.Inc()
			return m.verdict(allow, "cache", message)
		}
	}

	allow, ok := m.classify(ctx, message)
	if !ok {
		return m.verdict(m.failOpen, "fallback", message)
	}

	if m.cache != nil {
		m.cache.set(key, allow)
	}
	return m.verdict(allow, "classifier", message)
}

// classify issues the remote call. ok is false when no usable answer came back.
func (m *Model) classify(ctx context.Context, message string) (allow bool, ok bool) {
	req := &llm.GenerateContentRequest{
		Contents: []llm.Content{
			llm.NewTextContent(llm.RemoteRoleUser, classifierPrompt+message+"\nAnswer:"),
		},
		GenerationConfig: classifierConfig,
	}

	start := time.Now()
	resp, err := m.generator.GenerateContent(ctx, req)
	if err != nil {
		m.logger.Warn("topic classification failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return false, false
	}
	if resp == nil || len(resp.Candidates) == 0 {
		m.logger.Warn("topic classification returned no candidates")
		return false, false
	}

	answer := resp.Candidates[0].Content.Text()
	allow, ok = parseAnswer(answer)
	if !ok {
		m.logger.Warn("topic classification answer not understood",
			zap.String("answer", logger.Truncate(answer, 50)),
		)
	}
	return allow, ok
}

// parseAnswer reads the first token of a classifier answer.
func parseAnswer(answer string) (allow bool, ok bool) {
	fields := strings.Fields(strings.ToLower(answer))
	if len(fields) == 0 {
		return false, false
	}

	switch strings.TrimRight(fields[0], ".,!?;:\"'`*") {
	case "yes", "y":
		return true, true
	case "no", "n":
		return false, true
	default:
		return false, false
	}
}

func isFileMetadata(message string) bool {
	m := strings.TrimSpace(message)
	for _, prefix := range filePrefixes {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

func (m *Model) verdict(allow bool, reason, message string) bool {
	m.logger.Debug("topic gate verdict",
		zap.String("policy", string(PolicyModel)),
		zap.Bool("allow", allow),
		zap.String("reason", reason),
		zap.String("message_preview", logger.Truncate(message, 50)),
	)
	metrics.RecordGateVerdict(string(PolicyModel), allow)
	return allow
}

// Package topicgate decides whether an incoming message is in the product-management
// domain before any generation call is made.
//
// Two interchangeable policies are provided: a keyword and pattern heuristic that
// never leaves the process, and a model-assisted classifier that issues one short
// remote call. Exactly one is active per deployment.
package topicgate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/pkg/llm"
)

// Gate returns an accept/reject verdict for a message. Implementations never fail:
// internal errors degrade to a configured verdict.
type Gate interface {
	Allow(ctx context.Context, message string, hasHistory bool) bool
}

// Generator is the remote call used by the model-assisted policy.
type Generator interface {
	GenerateContent(ctx context.Context, req *llm.GenerateContentRequest) (*llm.GenerateContentResponse, error)
}

// Policy names a gate implementation.
type Policy string

const (
	PolicyHeuristic Policy = "heuristic"
	PolicyModel     Policy = "model"
)

// Config selects and tunes the gate.
type Config struct {
	Policy Policy

	// FailOpen is the model-assisted verdict when classification fails.
	FailOpen bool

	// CacheSize bounds the verdict cache of the model-assisted policy. Zero disables it.
	CacheSize int
	CacheTTL  time.Duration
}

// New builds the gate named by cfg.Policy. The generator is only required for the
// model-assisted policy.
func New(cfg Config, generator Generator, logger *zap.Logger) (Gate, error) {
	switch cfg.Policy {
	case "", PolicyHeuristic:
		return NewHeuristic(logger), nil
	case PolicyModel:
		if generator == nil {
			return nil, fmt.Errorf("model gate policy requires a generator")
		}
		opts := []ModelOption{WithFailOpen(cfg.FailOpen)}
		if cfg.CacheSize > 0 {
			opts = append(opts, WithCache(cfg.CacheSize, cfg.CacheTTL))
		}
		return NewModel(generator, logger, opts...), nil
	default:
		return nil, fmt.Errorf("unknown gate policy %q", cfg.Policy)
	}
}

func normalize(message string) string {
	return strings.ToLower(strings.TrimSpace(message))
}

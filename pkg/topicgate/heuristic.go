package topicgate

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/pkg/logger"
	"github.com/papercomputeco/pmassist/pkg/metrics"
)

// HistoryCondition restricts a rule to messages with or without prior turns.
type HistoryCondition int

const (
	Always HistoryCondition = iota
	WithHistory
	WithoutHistory
)

func (c HistoryCondition) applies(hasHistory bool) bool {
	switch c {
	case WithHistory:
		return hasHistory
	case WithoutHistory:
		return !hasHistory
	default:
		return true
	}
}

// Rule is one entry of the heuristic table. Match receives the lowercased, trimmed
// message.
type Rule struct {
	Name  string
	When  HistoryCondition
	Match func(normalized string) bool
	Allow bool
}

// Decision is a heuristic verdict together with the rule that produced it.
type Decision struct {
	Allow bool
	Rule  string
}

// DefaultRule names the verdict used when no rule matches.
const DefaultRule = "default_reject"

var defaultRules = []Rule{
	{
		Name:  "too_short",
		When:  Always,
		Match: func(m string) bool { return utf8.RuneCountInString(m) < 3 },
		Allow: false,
	},
	{
		Name: "denylist_exact",
		When: Always,
		Match: func(m string) bool {
			for _, topic := range offTopicExact {
				if m == topic || m == topic+"?" {
					return true
				}
			}
			return false
		},
		Allow: false,
	},
	{
		Name:  "history_offtopic_pattern",
		When:  WithHistory,
		Match: anyPattern(offTopicPatterns),
		Allow: false,
	},
	{
		Name:  "history_lenient",
		When:  WithHistory,
		Match: func(string) bool { return true },
		Allow: true,
	},
	{
		Name: "domain_keyword",
		When: WithoutHistory,
		Match: func(m string) bool {
			for _, kw := range domainKeywords {
				if strings.Contains(m, kw) {
					return true
				}
			}
			return false
		},
		Allow: true,
	},
	{
		Name:  "domain_question",
		When:  WithoutHistory,
		Match: anyPattern(domainQuestions),
		Allow: true,
	},
}

func anyPattern(patterns []*regexp.Regexp) func(string) bool {
	return func(m string) bool {
		for _, p := range patterns {
			if p.MatchString(m) {
				return true
			}
		}
		return false
	}
}

// Heuristic is the local keyword and pattern policy. It makes no remote calls.
type Heuristic struct {
	rules  []Rule
	logger *zap.Logger
}

// NewHeuristic creates the heuristic gate with the built-in rule table.
func NewHeuristic(logger *zap.Logger) *Heuristic {
	return &Heuristic{
		rules:  defaultRules,
		logger: logger,
	}
}

// Rules returns the rule table in evaluation order.
func (h *Heuristic) Rules() []Rule {
	out := make([]Rule, len(h.rules))
	copy(out, h.rules)
	return out
}

// Evaluate runs the rule table. The first applicable matching rule wins; with no
// match the message is rejected.
func (h *Heuristic) Evaluate(message string, hasHistory bool) Decision {
	m := normalize(message)
	for _, r := range h.rules {
		if !r.When.applies(hasHistory) {
			continue
		}
		if r.Match(m) {
			return Decision{Allow: r.Allow, Rule: r.Name}
		}
	}
	return Decision{Allow: false, Rule: DefaultRule}
}

// Allow implements Gate.
func (h *Heuristic) Allow(_ context.Context, message string, hasHistory bool) bool {
	d := h.Evaluate(message, hasHistory)

	h.logger.Debug("topic gate verdict",
		zap.String("policy", string(PolicyHeuristic)),
		zap.Bool("allow", d.Allow),
		zap.String("rule", d.Rule),
		zap.Bool("has_history", hasHistory),
		zap.String("message_preview", logger.Truncate(message, 50)),
	)
	metrics.RecordGateVerdict(string(PolicyHeuristic), d.Allow)
	return d.Allow
}

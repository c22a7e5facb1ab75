// Package dispatch runs one chat exchange end to end: topic gating, context
// assembly, the remote generateContent call, response shaping and paced delivery.
package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/pkg/llm"
	"github.com/papercomputeco/pmassist/pkg/logger"
	"github.com/papercomputeco/pmassist/pkg/metrics"
	"github.com/papercomputeco/pmassist/pkg/replay"
	"github.com/papercomputeco/pmassist/pkg/topicgate"
)

// Generator issues the remote generateContent call.
type Generator interface {
	GenerateContent(ctx context.Context, req *llm.GenerateContentRequest) (*llm.GenerateContentResponse, error)
}

// Sink receives each growing prefix of the reply.
type Sink = replay.Sink

// Request is the input of one exchange.
type Request struct {
	Message string

	// History is the conversation so far, oldest first. It is read, never modified.
	History []llm.Turn

	// OnChunk, when set, receives the reply word by word.
	OnChunk Sink
}

// Result is a completed exchange.
type Result struct {
	Text         string
	Rejected     bool
	TableIntent  bool
	FinishReason llm.FinishReason
	Usage        *llm.UsageMetadata

	// Contents is what was sent to the remote model; empty for rejections.
	Contents []llm.Content
}

// Exchange converts the result into the unit the conversation store persists.
func (r *Result) Exchange(message string) llm.Exchange {
	return llm.Exchange{
		Message:      message,
		Reply:        r.Text,
		Rejected:     r.Rejected,
		TableIntent:  r.TableIntent,
		FinishReason: r.FinishReason,
		Usage:        r.Usage,
	}
}

// Dispatcher executes exchanges. It holds no per-exchange state, so one Dispatcher
// serves concurrent callers.
type Dispatcher struct {
	generator Generator
	logger    *zap.Logger
	hook      StateHook

	mu     sync.RWMutex
	config Config
	gate   topicgate.Gate
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithStateHook registers an observer for exchange state transitions.
func WithStateHook(hook StateHook) Option {
	return func(d *Dispatcher) {
		d.hook = hook
	}
}

// New creates a Dispatcher.
func New(config Config, generator Generator, gate topicgate.Gate, logger *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		generator: generator,
		logger:    logger,
		config:    config,
		gate:      gate,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Reconfigure swaps the tuning and the gate. Exchanges already running keep the
// values they started with.
func (d *Dispatcher) Reconfigure(config Config, gate topicgate.Gate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.config = config
	if gate != nil {
		d.gate = gate
	}
}

func (d *Dispatcher) snapshot() (Config, topicgate.Gate) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config, d.gate
}

// SendMessage runs one exchange and returns the full reply text.
func (d *Dispatcher) SendMessage(ctx context.Context, message string, history []llm.Turn, onChunk Sink) (string, error) {
	res, err := d.Send(ctx, Request{Message: message, History: history, OnChunk: onChunk})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Send runs one exchange and returns the reply with its metadata. Every failure is
// an *Error.
func (d *Dispatcher) Send(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	ex := &exchange{state: StateIdle, hook: d.hook, logger: d.logger}

	res, err := d.send(ctx, ex, req)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = string(KindOf(err))
		if IsCancelled(err) {
			ex.to(StateCancelled)
			d.logger.Debug("exchange cancelled", zap.Duration("duration", time.Since(start)))
		} else {
			d.logger.Warn("exchange failed",
				zap.String("kind", outcome),
				zap.Error(errorCause(err)),
				zap.Duration("duration", time.Since(start)),
			)
		}
	case res.Rejected:
		outcome = "rejected"
	}
	metrics.RecordExchange(outcome)

	if err != nil {
		return nil, err
	}

	ex.to(StateDone)
	d.logger.Info("exchange complete",
		zap.Bool("rejected", res.Rejected),
		zap.Bool("table_intent", res.TableIntent),
		zap.String("finish_reason", string(res.FinishReason)),
		zap.Int("reply_length", len(res.Text)),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func (d *Dispatcher) send(ctx context.Context, ex *exchange, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelledError(err)
	}

	config, gate := d.snapshot()
	hasHistory := len(req.History) > 0

	ex.to(StateGating)
	allowed := gate.Allow(ctx, req.Message, hasHistory)
	if err := ctx.Err(); err != nil {
		return nil, cancelledError(err)
	}

	if !allowed {
		ex.to(StateRejected)
		res := &Result{Text: RefusalMessage, Rejected: true}
		if err := d.deliver(ctx, ex, res.Text, config.RejectionDelay, req.OnChunk); err != nil {
			return nil, err
		}
		return res, nil
	}

	ex.to(StateAccepted)
	ex.to(StateAssembling)
	table := IsTableRequest(req.Message)
	profile := config.profile(table)
	genReq := &llm.GenerateContentRequest{
		Contents:         BuildContents(req.Message, req.History, config.HistoryWindow),
		GenerationConfig: profile.GenerationConfig(),
		SafetySettings:   config.SafetySettings,
	}

	d.logger.Debug("assembled context",
		zap.Int("content_count", len(genReq.Contents)),
		zap.Int("history_turns", len(req.History)),
		zap.Bool("table_intent", table),
		zap.String("profile", profile.Name),
		zap.Int("max_output_tokens", profile.MaxOutputTokens),
		zap.String("message_preview", logger.Truncate(req.Message, 50)),
	)

	ex.to(StateCalling)
	callStart := time.Now()
	resp, err := d.generator.GenerateContent(ctx, genReq)
	metrics.RecordRemoteCall(profile.Name, time.Since(callStart))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, cancelledError(ctxErr)
	}
	if err != nil {
		return nil, remoteError(err)
	}

	ex.to(StateShaping)
	res, shapeErr := d.shape(resp)
	if shapeErr != nil {
		return nil, shapeErr
	}
	res.TableIntent = table
	res.Contents = genReq.Contents

	if err := d.deliver(ctx, ex, res.Text, config.delay(table), req.OnChunk); err != nil {
		return nil, err
	}
	return res, nil
}

// shape turns a successful response into reply text or a typed failure.
func (d *Dispatcher) shape(resp *llm.GenerateContentResponse) (*Result, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, newError(EmptyResponse, MsgEmptyResponse, nil)
	}

	candidate := resp.Candidates[0]
	metrics.RecordFinishReason(string(candidate.FinishReason))

	if resp.UsageMetadata != nil {
		d.logger.Debug("token usage",
			zap.Int("prompt_tokens", resp.UsageMetadata.PromptTokenCount),
			zap.Int("response_tokens", resp.UsageMetadata.CandidatesTokenCount),
			zap.Int("total_tokens", resp.UsageMetadata.TotalTokenCount),
		)
	}

	switch candidate.FinishReason {
	case llm.FinishReasonSafety:
		return nil, newError(SafetyBlocked, MsgSafetyBlocked, nil)
	case llm.FinishReasonRecitation:
		return nil, newError(RecitationBlocked, MsgRecitationBlocked, nil)
	}

	text := candidate.Content.Text()
	if strings.TrimSpace(text) == "" {
		return nil, newError(EmptyResponse, MsgEmptyResponse, nil)
	}

	switch candidate.FinishReason {
	case llm.FinishReasonMaxTokens:
		text += TruncationNotice
	case llm.FinishReasonOther:
		d.logger.Warn("remote model stopped for an unspecified reason, reply may be incomplete",
			zap.Int("reply_length", len(text)),
		)
	}

	return &Result{
		Text:         text,
		FinishReason: candidate.FinishReason,
		Usage:        resp.UsageMetadata,
	}, nil
}

// deliver replays text to the sink, if any.
func (d *Dispatcher) deliver(ctx context.Context, ex *exchange, text string, delay time.Duration, sink Sink) error {
	ex.to(StateDelivering)
	if sink == nil {
		return nil
	}
	if err := (replay.Replayer{Delay: delay}).Replay(ctx, text, sink); err != nil {
		return cancelledError(err)
	}
	return nil
}

// errorCause is the underlying error worth logging, falling back to err itself.
func errorCause(err error) error {
	var de *Error
	if errors.As(err, &de) && de.Err != nil {
		return de.Err
	}
	return err
}

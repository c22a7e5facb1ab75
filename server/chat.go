package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/pkg/conversation"
	"github.com/papercomputeco/pmassist/pkg/dispatch"
	"github.com/papercomputeco/pmassist/pkg/llm"
	"github.com/papercomputeco/pmassist/pkg/logger"
)

// StatusClientClosedRequest is returned when the exchange was cancelled before it finished.
const StatusClientClosedRequest = 499

// ConversationHeader carries the ID of the conversation an exchange was stored in.
const ConversationHeader = "X-Conversation-ID"

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	// ConversationID continues a stored conversation. When empty and History is
	// empty a new conversation is created.
	ConversationID string `json:"conversation_id,omitempty"`

	Message string `json:"message"`

	// History is used instead of the store when no conversation is named.
	// Such exchanges are not persisted.
	History []llm.Turn `json:"history,omitempty"`

	Stream bool `json:"stream,omitempty"`

	// Category tags a newly created conversation.
	Category string `json:"category,omitempty"`
}

// ChatResponse is the non-streaming reply of POST /api/chat.
type ChatResponse struct {
	ConversationID string           `json:"conversation_id,omitempty"`
	Reply          string           `json:"reply"`
	Rejected       bool             `json:"rejected"`
	TableIntent    bool             `json:"table_intent"`
	FinishReason   llm.FinishReason `json:"finish_reason,omitempty"`
}

// handleChat runs one exchange. The history comes from the named conversation, or from
// the request body for stateless callers, and both turns are appended to the
// conversation afterwards. Rejections are stored like any other reply.
func (s *Server) handleChat(c *fiber.Ctx) error {
	startTime := time.Now()

	var req ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		s.logger.Error("failed to parse request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "message is required"})
	}

	s.logger.Debug("received chat request",
		zap.String("conversation_id", req.ConversationID),
		zap.Int("history_count", len(req.History)),
		zap.Bool("stream", req.Stream),
	)

	ctx := c.UserContext()
	convID, created, history, err := s.resolveConversation(ctx, &req)
	if err != nil {
		var notFound conversation.ErrNotFound
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "conversation not found"})
		}
		if errors.Is(err, errBadCategory) {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
		}
		s.logger.Error("failed to load conversation", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to load conversation"})
	}
	if convID != "" {
		c.Set(ConversationHeader, convID)
	}

	ex := exchange{message: req.Message, convID: convID, created: created, history: history}
	if req.Stream {
		return s.handleStreamingChat(c, ex, startTime)
	}
	return s.handleNonStreamingChat(c, ex, startTime)
}

var errBadCategory = errors.New("unknown category")

// exchange is one resolved chat request.
type exchange struct {
	message string
	convID  string
	// created is set when convID was made for this request and holds no turns yet.
	created bool
	history []llm.Turn
}

// resolveConversation returns the conversation to persist into (empty for stateless
// requests), whether it was created for this request, and the history to send.
func (s *Server) resolveConversation(ctx context.Context, req *ChatRequest) (string, bool, []llm.Turn, error) {
	if req.ConversationID != "" {
		history, err := s.store.History(ctx, req.ConversationID, s.config.HistoryLimit)
		if err != nil {
			return "", false, nil, err
		}
		return req.ConversationID, false, history, nil
	}

	if len(req.History) > 0 {
		return "", false, req.History, nil
	}

	category, err := conversation.ParseCategory(req.Category)
	if err != nil {
		return "", false, nil, fmt.Errorf("%w %q", errBadCategory, req.Category)
	}
	conv, err := s.store.Create(ctx, "", category)
	if err != nil {
		return "", false, nil, err
	}
	return conv.ID, true, nil, nil
}

// discard removes a conversation created for an exchange that failed, so failed first
// messages leave no empty records behind.
func (s *Server) discard(ctx context.Context, ex exchange) {
	if !ex.created {
		return
	}
	if err := s.store.Delete(context.WithoutCancel(ctx), ex.convID); err != nil {
		s.logger.Error("failed to discard empty conversation", zap.String("conversation_id", ex.convID), zap.Error(err))
	}
}

// handleNonStreamingChat waits for the whole reply and returns it as one JSON object.
func (s *Server) handleNonStreamingChat(c *fiber.Ctx, ex exchange, startTime time.Time) error {
	ctx := c.UserContext()

	result, err := s.sender.Send(ctx, dispatch.Request{
		Message: ex.message,
		History: ex.history,
	})
	if err != nil {
		s.logger.Warn("exchange failed",
			zap.String("kind", string(dispatch.KindOf(err))),
			zap.Error(err),
		)
		s.discard(ctx, ex)
		return c.Status(statusFor(err)).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	s.logger.Debug("exchange complete",
		zap.String("reply_preview", logger.Truncate(result.Text, 100)),
		zap.Duration("duration", time.Since(startTime)),
	)

	s.persist(ctx, ex.convID, ex.message, result)

	return c.JSON(ChatResponse{
		ConversationID: ex.convID,
		Reply:          result.Text,
		Rejected:       result.Rejected,
		TableIntent:    result.TableIntent,
		FinishReason:   result.FinishReason,
	})
}

// handleStreamingChat replays the reply as NDJSON chunks, each carrying the whole
// prefix so far. The status line is sent before the exchange runs, so failures are
// reported in the error field of the final chunk.
func (s *Server) handleStreamingChat(c *fiber.Ctx, ex exchange, startTime time.Time) error {
	c.Set("Content-Type", "application/x-ndjson")
	c.Set("Transfer-Encoding", "chunked")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		write := func(chunk llm.Chunk) {
			line, err := json.Marshal(chunk)
			if err != nil {
				s.logger.Error("failed to marshal chunk", zap.Error(err))
				return
			}
			w.Write(line)
			w.Write([]byte("\n"))
			if err := w.Flush(); err != nil {
				// The client went away; stop the exchange
				s.logger.Debug("stream flush failed", zap.Error(err))
				cancel()
			}
		}

		result, err := s.sender.Send(ctx, dispatch.Request{
			Message: ex.message,
			History: ex.history,
			OnChunk: func(prefix string) {
				write(llm.Chunk{Text: prefix})
			},
		})
		if err != nil {
			s.logger.Warn("streaming exchange failed",
				zap.String("kind", string(dispatch.KindOf(err))),
				zap.Error(err),
			)
			s.discard(ctx, ex)
			write(llm.Chunk{Done: true, Error: err.Error()})
			return
		}

		s.logger.Debug("streaming complete",
			zap.String("reply_preview", logger.Truncate(result.Text, 200)),
			zap.Duration("duration", time.Since(startTime)),
		)

		s.persist(ctx, ex.convID, ex.message, result)

		write(llm.Chunk{
			Text:         result.Text,
			Done:         true,
			Rejected:     result.Rejected,
			TableIntent:  result.TableIntent,
			FinishReason: result.FinishReason,
		})
	}))

	return nil
}

// persist appends the exchange to the conversation. Storage failures are logged and
// do not fail the request.
func (s *Server) persist(ctx context.Context, convID, message string, result *dispatch.Result) {
	if convID == "" {
		return
	}

	conv, err := s.store.Append(ctx, convID, result.Exchange(message).Turns()...)
	if err != nil {
		s.logger.Error("failed to store exchange", zap.String("conversation_id", convID), zap.Error(err))
		return
	}
	s.logger.Info("exchange stored",
		zap.String("conversation_id", convID),
		zap.String("head_hash", logger.Truncate(conv.HeadHash, 16)),
	)
}

// statusFor maps an exchange failure onto an HTTP status. Remote auth failures are the
// server's misconfiguration, not the caller's, so they surface as bad gateway.
func statusFor(err error) int {
	switch dispatch.KindOf(err) {
	case dispatch.Cancelled:
		return StatusClientClosedRequest
	case dispatch.RateLimited:
		return fiber.StatusTooManyRequests
	case dispatch.InvalidRequest:
		return fiber.StatusBadRequest
	case dispatch.ServiceUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusBadGateway
	}
}

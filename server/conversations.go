package server

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/pkg/conversation"
	"github.com/papercomputeco/pmassist/pkg/llm"
)

// CreateConversationRequest is the body of POST /api/conversations.
type CreateConversationRequest struct {
	Title    string `json:"title,omitempty"`
	Category string `json:"category,omitempty"`
}

// ConversationResponse is a conversation together with its turns.
type ConversationResponse struct {
	*conversation.Conversation
	Turns []llm.Turn `json:"turns"`
}

func (s *Server) handleCategories(c *fiber.Ctx) error {
	return c.JSON(map[string]any{
		"categories": conversation.Categories(),
	})
}

func (s *Server) handleListConversations(c *fiber.Ctx) error {
	convs, err := s.store.List(c.UserContext())
	if err != nil {
		s.logger.Error("failed to list conversations", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list conversations"})
	}

	return c.JSON(map[string]any{
		"count":         len(convs),
		"conversations": convs,
	})
}

func (s *Server) handleCreateConversation(c *fiber.Ctx) error {
	var req CreateConversationRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
		}
	}

	category, err := conversation.ParseCategory(req.Category)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	conv, err := s.store.Create(c.UserContext(), req.Title, category)
	if err != nil {
		s.logger.Error("failed to create conversation", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to create conversation"})
	}

	return c.Status(fiber.StatusCreated).JSON(conv)
}

func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id := c.Params("id")

	conv, err := s.store.Get(ctx, id)
	if err != nil {
		return s.conversationError(c, err)
	}

	turns, err := s.store.Turns(ctx, id)
	if err != nil {
		return s.conversationError(c, err)
	}

	return c.JSON(ConversationResponse{Conversation: conv, Turns: turns})
}

func (s *Server) handleDeleteConversation(c *fiber.Ctx) error {
	if err := s.store.Delete(c.UserContext(), c.Params("id")); err != nil {
		return s.conversationError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleClearConversations(c *fiber.Ctx) error {
	if err := s.store.Clear(c.UserContext()); err != nil {
		s.logger.Error("failed to clear conversations", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to clear conversations"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) conversationError(c *fiber.Ctx, err error) error {
	var notFound conversation.ErrNotFound
	if errors.As(err, &notFound) {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "conversation not found"})
	}
	s.logger.Error("conversation lookup failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to load conversation"})
}

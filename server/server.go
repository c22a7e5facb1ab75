// Package server exposes the dispatcher and the conversation store over HTTP.
package server

import (
	"context"
	"sync"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/papercomputeco/pmassist/pkg/conversation"
	"github.com/papercomputeco/pmassist/pkg/dispatch"
	"github.com/papercomputeco/pmassist/pkg/llm"
)

// Sender runs one exchange. *dispatch.Dispatcher implements it.
type Sender interface {
	Send(ctx context.Context, req dispatch.Request) (*dispatch.Result, error)
}

// Server is the pmassist HTTP API. It is stateless apart from the conversation store:
// every chat request loads history from the store, runs one exchange and appends the
// resulting turns.
type Server struct {
	config Config
	sender Sender
	store  *conversation.Store
	logger *zap.Logger
	server *fiber.App

	limiterMu sync.Mutex
	limiter   *rate.Limiter
}

// New creates a new Server.
func New(config Config, sender Sender, store *conversation.Store, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		sender: sender,
		store:  store,
		logger: logger,
		server: app,
	}
	s.SetRateLimit(config.RateLimit, config.RateBurst)

	// Register routes
	app.Post("/api/chat", s.rateLimited, s.handleChat)

	app.Get("/api/categories", s.handleCategories)
	app.Get("/api/conversations", s.handleListConversations)
	app.Post("/api/conversations", s.handleCreateConversation)
	app.Delete("/api/conversations", s.handleClearConversations)
	app.Get("/api/conversations/:id", s.handleGetConversation)
	app.Delete("/api/conversations/:id", s.handleDeleteConversation)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// DAG inspection endpoints
	app.Get("/dag/stats", s.handleDAGStats)
	app.Get("/dag/node/:hash", s.handleGetNode)
	app.Get("/dag/history/:hash", s.handleGetHistory)

	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.server
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.logger.Info("starting server",
		zap.String("listen", s.config.ListenAddr),
		zap.Float64("rate_limit", s.config.RateLimit),
	)

	return s.server.Listen(s.config.ListenAddr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown() error {
	return s.server.Shutdown()
}

// SetRateLimit replaces the /api/chat limit. A non-positive limit disables it.
func (s *Server) SetRateLimit(limit float64, burst int) {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()

	if limit <= 0 {
		s.limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	if s.limiter == nil {
		s.limiter = rate.NewLimiter(rate.Limit(limit), burst)
		return
	}
	s.limiter.SetLimit(rate.Limit(limit))
	s.limiter.SetBurst(burst)
}

// rateLimited rejects requests beyond the process-wide chat rate.
func (s *Server) rateLimited(c *fiber.Ctx) error {
	s.limiterMu.Lock()
	limiter := s.limiter
	s.limiterMu.Unlock()

	if limiter != nil && !limiter.Allow() {
		s.logger.Warn("chat rate limit exceeded", zap.String("ip", c.IP()))
		return c.Status(fiber.StatusTooManyRequests).JSON(llm.ErrorResponse{Error: "too many requests, please slow down"})
	}
	return c.Next()
}

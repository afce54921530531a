// Package api exposes the HTTP and websocket surface: ticket CRUD for
// the customer widget, technician endpoints behind JWT auth, feedback
// and dashboard, and the relay upgrade endpoint.
package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aidesk-io/aidesk/internal/lifecycle"
	"github.com/aidesk-io/aidesk/internal/middleware"
	"github.com/aidesk-io/aidesk/internal/relay"
	"github.com/aidesk-io/aidesk/internal/repository"
	"github.com/aidesk-io/aidesk/internal/service"
)

// Server wires the HTTP handlers to their collaborators.
type Server struct {
	coordinator *lifecycle.Coordinator
	tickets     repository.TicketRepository
	messages    repository.MessageRepository
	feedbacks   repository.FeedbackRepository
	auth        *service.AuthService
	hub         *relay.Hub
	sanitizer   *bluemonday.Policy
	logger      *log.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets a custom logger.
func WithLogger(l *log.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// NewServer creates the HTTP server facade.
func NewServer(
	coordinator *lifecycle.Coordinator,
	tickets repository.TicketRepository,
	messages repository.MessageRepository,
	feedbacks repository.FeedbackRepository,
	auth *service.AuthService,
	hub *relay.Hub,
	opts ...ServerOption,
) *Server {
	s := &Server{
		coordinator: coordinator,
		tickets:     tickets,
		messages:    messages,
		feedbacks:   feedbacks,
		auth:        auth,
		hub:         hub,
		// Chat messages are plain text; strip every tag.
		sanitizer: bluemonday.StrictPolicy(),
		logger:    log.New(log.Writer(), "[API] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", s.handleRelay)

	api := router.Group("/api")
	api.Use(middleware.RateLimitMiddleware())
	{
		api.POST("/auth/login", s.handleLogin)

		api.POST("/tickets", s.handleCreateTicket)
		api.GET("/tickets/:id", s.handleGetTicket)
		api.GET("/tickets/:id/messages", s.handleListMessages)
		api.POST("/tickets/:id/messages", s.handleClientMessage)

		api.POST("/feedback", s.handleCreateFeedback)

		protected := api.Group("")
		protected.Use(middleware.RequireTechnician(s.auth))
		{
			protected.GET("/tickets", s.handleListTickets)
			protected.POST("/tickets/:id/assume", s.handleAssumeTicket)
			protected.POST("/tickets/:id/resolve", s.handleResolveTicket)
			protected.POST("/tickets/:id/reply", s.handleTechnicianMessage)
			protected.GET("/dashboard", s.handleDashboard)
		}
	}

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{"status": "healthy", "service": "aidesk"})
}

// sanitize strips markup from user-supplied text.
func (s *Server) sanitize(text string) string {
	return s.sanitizer.Sanitize(text)
}

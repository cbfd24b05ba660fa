package api

import (
	"fmt"
	"net/http"

	"tikiti/internal/cache"
	"tikiti/internal/config"
	"tikiti/internal/database"
	"tikiti/internal/external"
	"tikiti/internal/handlers"
	"tikiti/internal/logger"
	"tikiti/internal/messaging"
	"tikiti/internal/middleware"
	"tikiti/internal/repository"
	"tikiti/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the HTTP API server
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	dedupe   *cache.WebhookCache
	services *service.Services
}

// NewServer wires the server and all its dependencies
func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	// The broker and the cache are optional: without them the API still
	// serves, just without domain events and webhook dedup
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Get().Warn("NATS unavailable, domain events disabled", "error", err)
		natsClient = &messaging.NATSClient{}
	}

	dedupe, err := cache.NewWebhookCache(cfg.Redis)
	if err != nil {
		logger.Get().Warn("Redis unavailable, webhook dedup cache disabled", "error", err)
		dedupe = nil
	}

	paymentClient := external.NewPaymentClient(cfg.Payment)
	mailerClient := external.NewMailerClient(cfg.Mailer)

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, natsClient, paymentClient, mailerClient, dedupe, cfg.WebhookSecret)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		dedupe:   dedupe,
		services: services,
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	api := s.router.Group("/api")
	{
		checkout := api.Group("/checkout")
		{
			checkout.POST("", h.CreateCheckout)
			checkout.POST("/cancel", h.CancelCheckout)
		}

		webhooks := api.Group("/webhooks")
		{
			webhooks.POST("/payments", h.PaymentWebhook)
		}

		// Driven by the external scheduler
		sweeps := api.Group("/sweeps")
		sweeps.Use(middleware.BearerAuth(s.config.SweepToken))
		{
			sweeps.POST("/payouts", h.SweepPayouts)
			sweeps.POST("/expiry", h.SweepExpiry)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) healthCheck(c *gin.Context) {
	health := s.db.HealthCheck(c.Request.Context())
	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   health.Status,
		"service":  "tikiti-api",
		"database": health,
	})
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter returns the router for testing
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup closes open connections
func (s *Server) Cleanup() error {
	if err := s.nats.Close(); err != nil {
		logger.Get().Error("Error closing NATS connection", "error", err)
	}

	if err := s.dedupe.Close(); err != nil {
		logger.Get().Error("Error closing Redis connection", "error", err)
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Get().Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}

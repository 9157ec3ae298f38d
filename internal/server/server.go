// Package server contains the HTTP handlers and the middleware chain of the Warbler app.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "warbler/docs" // swagger docs
	"warbler/internal/cache"
	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/notifications"
	"warbler/internal/repository"
	"warbler/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	sessions       *session.Store
	tokens         *middleware.TokenManager
	userRepo       repository.UserRepository
	authService    *service.AuthService
	userService    *service.UserService
	socialService  *service.SocialService
	messageService *service.MessageService
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	stopWiring     context.CancelFunc
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	followRepo := repository.NewFollowRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	hasher := service.NewPasswordHasher(cfg.BcryptCost)

	var storage fiber.Storage
	var revoker middleware.TokenRevoker
	if redisClient != nil {
		storage = cache.NewSessionStorage(redisClient)
		revoker = cache.TokenBlacklist{}
	}

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("warbler-api"),
		sessions:       middleware.NewSessionStore(storage, cfg.IsProduction()),
		tokens:         middleware.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute, revoker),
		userRepo:       userRepo,
		authService:    service.NewAuthService(userRepo, hasher),
		userService:    service.NewUserService(userRepo, msgRepo, followRepo, likeRepo, hasher),
		socialService:  service.NewSocialService(followRepo, userRepo),
		messageService: service.NewMessageService(msgRepo, followRepo, likeRepo, cfg.TimelineLimit),
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
	}

	return server, nil
}

// App returns the configured fiber app, building it on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	app := fiber.New(fiber.Config{
		AppName:      "Warbler",
		ErrorHandler: s.ErrorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Tracing must run before ContextMiddleware so the trace id reaches the logger.
	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and Trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5000,http://127.0.0.1:5000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.config.IsProduction()
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))

	app.Use(middleware.NoCache())

	// The session cookie is encrypted with a key derived from SESSION_SECRET.
	app.Use(encryptcookie.New(encryptcookie.Config{
		Key: middleware.SessionCookieKey(s.config.SessionSecret),
	}))

	app.Use(middleware.Sessions(s.sessions))
	app.Use(middleware.CurrentUser(s.userRepo, s.tokens))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/", s.Home)

	// Auth routes
	app.Get("/signup", s.SignupForm)
	app.Post("/signup", middleware.RateLimit(s.redis, s.config.Env, 5, 10*time.Minute, "signup"), s.Signup)
	app.Get("/login", s.LoginForm)
	app.Post("/login", middleware.RateLimit(s.redis, s.config.Env, 10, 5*time.Minute, "login"), s.Login)
	app.Get("/logout", s.Logout)

	// Bearer token API
	api := app.Group("/api")
	api.Post("/token", middleware.RateLimit(s.redis, s.config.Env, 10, 5*time.Minute, "token"), s.IssueToken)
	api.Post("/token/revoke", middleware.BearerRequired, s.RevokeToken)

	// User routes. Specific paths are registered before /:id.
	users := app.Group("/users")
	users.Get("/", s.ListUsers)
	users.Get("/profile", middleware.AuthRequired, s.EditProfileForm)
	users.Post("/profile", middleware.AuthRequired, s.UpdateProfile)
	users.Post("/delete", middleware.AuthRequired, s.DeleteAccount)
	users.Post("/follow/:id<int>", middleware.AuthRequired, s.Follow)
	users.Post("/stop-following/:id<int>", middleware.AuthRequired, s.StopFollowing)
	users.Get("/:id<int>/following", middleware.AuthRequired, s.ShowFollowing)
	users.Get("/:id<int>/followers", middleware.AuthRequired, s.ShowFollowers)
	users.Get("/:id<int>/liked", s.ShowLiked)
	users.Get("/:id<int>", s.ShowUser)

	// Message routes
	messages := app.Group("/messages")
	messages.Get("/new", middleware.AuthRequired, s.NewMessageForm)
	messages.Post("/new", middleware.AuthRequired,
		middleware.RateLimit(s.redis, s.config.Env, 30, time.Minute, "create_message"), s.CreateMessage)
	messages.Post("/:id<int>/delete", middleware.ForbiddenUnlessAuthenticated, s.DeleteMessage)
	messages.Post("/:id<int>/like", middleware.AuthRequired, s.LikeMessage)
	messages.Get("/:id<int>", s.ShowMessage)

	// Activity notifications over websocket
	app.Get("/ws/notifications", middleware.ForbiddenUnlessAuthenticated,
		requireWebSocketUpgrade, s.NotificationsSocket())
}

// ErrorHandler renders errors as JSON. The message travels in the response
// body only; flashes are reserved for redirects so a failed request never
// leaks its message into a later page view.
func (s *Server) ErrorHandler(c *fiber.Ctx, err error) error {
	status := models.HTTPStatus(err)

	var appErr *models.AppError
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request error",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()))
		if !errors.As(err, &appErr) {
			err = models.NewInternalError(err)
		}
	}

	return models.RespondWithError(c, status, err)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional: without it sessions live in memory.
	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// StartNotifications feeds published activity events to connected
// websockets until ctx is done. Without Redis there is nothing to consume.
func (s *Server) StartNotifications(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	return s.hub.StartWiring(ctx, s.notifier)
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()

	ctx, cancel := context.WithCancel(context.Background())
	s.stopWiring = cancel
	if err := s.StartNotifications(ctx); err != nil {
		middleware.Logger.Error("notification wiring failed", slog.String("error", err.Error()))
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopWiring != nil {
		s.stopWiring()
	}

	// Close notification sockets first; hijacked connections are not
	// tracked by the HTTP server shutdown.
	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down notification hub", slog.String("error", err.Error()))
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}

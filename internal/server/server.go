// Package server contains HTTP handlers and route wiring for the API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stride/internal/cache"
	"stride/internal/config"
	"stride/internal/database"
	"stride/internal/middleware"
	"stride/internal/models"
	"stride/internal/observability"
	"stride/internal/ratelimit"
	"stride/internal/repository"
	"stride/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config          *config.Config
	db              *gorm.DB
	redis           *redis.Client
	app             *fiber.App
	promMiddleware  *fiberprometheus.FiberPrometheus
	tracingShutdown func(context.Context) error

	userRepo    repository.UserRepository
	goalRepo    repository.GoalRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	followRepo  repository.FollowRepository
	kudoRepo    repository.KudoRepository

	limiter        ratelimit.Admitter
	userService    *service.UserService
	goalService    *service.GoalService
	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
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
// Tests and bootstrap layers that establish DB/Redis themselves use this.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	middleware.InitMiddleware(cfg)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("stride-api"),
		userRepo:       repository.NewUserRepository(db),
		goalRepo:       repository.NewGoalRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		followRepo:     repository.NewFollowRepository(db),
		kudoRepo:       repository.NewKudoRepository(db),
	}

	// With Redis available the admission window is shared across instances;
	// otherwise it is per process.
	if redisClient != nil {
		server.limiter = ratelimit.NewRedisLimiter(redisClient, ratelimit.DefaultRules())
	} else {
		server.limiter = ratelimit.New(ratelimit.DefaultRules())
	}

	moderation := service.NewModerationService()

	server.userService = service.NewUserService(server.userRepo, server.followRepo, moderation)
	isAdmin := server.userService.IsAdmin
	server.goalService = service.NewGoalService(server.goalRepo, server.postRepo, server.followRepo,
		moderation, server.limiter, isAdmin, nil)
	server.postService = service.NewPostService(server.postRepo, server.goalRepo, server.kudoRepo,
		server.goalService, moderation, server.limiter, isAdmin)
	server.commentService = service.NewCommentService(server.commentRepo, server.postRepo, server.userRepo,
		moderation, server.limiter, isAdmin, nil)
	server.followService = service.NewFollowService(server.followRepo, server.userRepo, server.limiter)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS before middlewares that can short-circuit, so browser clients
	// still get CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global per-IP guard; the domain sliding-window limiter governs
	// quota-consuming actions separately.
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.HealthCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)

	// Public reads. OptionalAuth personalizes the kudoed flag when a token
	// is present but never rejects.
	api.Get("/posts", middleware.OptionalAuth, s.GetFeed)
	api.Get("/posts/:id/comments", s.GetComments)
	api.Get("/posts/:id", middleware.OptionalAuth, s.GetPost)
	api.Get("/users/:userId/posts", middleware.OptionalAuth, s.GetUserPosts)
	api.Get("/users/:userId/followers", s.GetFollowers)
	api.Get("/users/:userId/following", s.GetFollowing)
	api.Get("/users/:userId", s.GetUserProfile)

	protected := api.Group("", middleware.AuthRequired)

	protected.Put("/users/me", s.UpdateMyProfile)
	protected.Post("/invites", s.CreateInvite)

	goals := protected.Group("/goals")
	goals.Post("/", s.CreateGoal)
	goals.Get("/", s.GetMyGoals)
	// Specific /:id/:resource routes before the generic /:id routes.
	goals.Get("/:id/posts", s.GetGoalPosts)
	goals.Post("/:id/complete", s.CompleteGoal)
	goals.Put("/:id", s.UpdateGoal)
	goals.Delete("/:id", s.DeleteGoal)
	goals.Get("/:id", s.GetGoal)

	posts := protected.Group("/posts")
	posts.Post("/", s.CreatePost)
	posts.Post("/:id/kudoz", s.GiveKudoz)
	posts.Delete("/:id/kudoz", s.RemoveKudoz)
	posts.Post("/:id/comments", s.CreateComment)
	posts.Delete("/:id", s.DeletePost)

	comments := protected.Group("/comments")
	comments.Put("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	users := protected.Group("/users")
	users.Post("/:userId/follow", s.FollowUser)
	users.Delete("/:userId/follow", s.UnfollowUser)
	users.Get("/:userId/follow-status", s.FollowStatus)
}

// HealthCheck reports liveness of the server and its backing stores.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// The API runs without Redis; caching and shared limits degrade.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	if s.config.TracingEnabled {
		shutdown, err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    "stride-api",
			ServiceVersion: "1.0.0",
			Environment:    s.config.Env,
			Enabled:        true,
			Exporter:       s.config.TraceExporter,
			OTLPEndpoint:   s.config.OTLPEndpoint,
			SamplerRatio:   s.config.TraceSampling,
		})
		if err != nil {
			return fmt.Errorf("tracing init failed: %w", err)
		}
		s.tracingShutdown = shutdown
	}

	app := fiber.New(fiber.Config{
		AppName: "Stride API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.ErrorContext(c.UserContext(), "unhandled error", "err", err)
			return models.RespondWithError(c, models.StatusForError(err), err)
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	slog.Info("server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			slog.Error("error shutting down HTTP server", "err", err)
		}
	}

	if s.tracingShutdown != nil {
		if err := s.tracingShutdown(ctx); err != nil {
			slog.Error("error shutting down tracing", "err", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			slog.Error("error closing sql DB", "err", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			slog.Error("error closing redis", "err", rerr)
		}
	}

	slog.Info("server shutdown complete")
	return nil
}

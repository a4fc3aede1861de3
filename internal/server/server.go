// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"estate/internal/audit"
	"estate/internal/auth"
	"estate/internal/bootstrap"
	"estate/internal/cache"
	"estate/internal/config"
	"estate/internal/database"
	"estate/internal/events"
	"estate/internal/featureflags"
	"estate/internal/mailer"
	"estate/internal/middleware"
	"estate/internal/models"
	"estate/internal/repository"
	"estate/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
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
	tokens         *auth.TokenIssuer
	mail           *mailer.Async
	publisher      events.Publisher
	recorder       *audit.Recorder
	featureFlags   *featureflags.Manager

	userService     *service.UserService
	propertyService *service.PropertyService
	saleService     *service.SaleService
	activityService *service.ActivityService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and optionally
// performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if redisClient != nil && cache.GetClient() != redisClient {
		cache.SetClient(redisClient)
	}

	publisher, err := newPublisher(cfg, redisClient)
	if err != nil {
		return nil, fmt.Errorf("event publisher: %w", err)
	}

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("estate-api"),
		tokens:         auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL()),
		mail:           mailer.NewAsync(newSender(cfg), 30*time.Second),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	server.publisher = &events.Gate{Next: publisher, Allow: server.eventsEnabled}

	store := repository.NewStore(db)
	server.userService = service.NewUserService(store, auth.NewBcryptHasher(), server.tokens, server.mail, service.UserOptions{
		ResetTokenTTL: cfg.ResetTokenTTL(),
		FrontendURL:   cfg.FrontendURL,
	})
	server.propertyService = service.NewPropertyService(store)

	policy := service.SaleDeleteRetain
	if cfg.SaleDeleteReleasesProperty {
		policy = service.SaleDeleteRelease
	}
	server.saleService = service.NewSaleService(store, service.SaleOptions{DeletePolicy: policy})
	server.activityService = service.NewActivityService(store, service.ActivityOptions{
		DurationCeiling: cfg.ActivityDurationCeiling,
		Publisher:       server.publisher,
	})
	server.recorder = audit.NewRecorder(server.activityService.Persist, audit.Options{
		BufferSize: cfg.AuditBufferSize,
		Workers:    cfg.AuditWorkers,
	})

	return server, nil
}

func newSender(cfg *config.Config) mailer.Sender {
	if strings.EqualFold(cfg.MailDriver, "smtp") {
		return &mailer.SMTPSender{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}
	}
	return &mailer.LogSender{Logger: middleware.Logger}
}

// newPublisher fans activity events out to Redis pub/sub and Kafka when they
// are configured, and to the log otherwise.
func newPublisher(cfg *config.Config, redisClient *redis.Client) (events.Publisher, error) {
	var sinks events.Multi
	if redisClient != nil {
		sinks = append(sinks, events.NewRedisPublisher(redisClient))
	}
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		kp, err := events.NewKafkaPublisher(brokers, map[string]string{
			events.ActivityRecorded: cfg.KafkaActivityTopic,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, kp)
	}
	if len(sinks) == 0 {
		return &events.LogPublisher{Logger: middleware.Logger}, nil
	}
	return sinks, nil
}

func (s *Server) auditEnabled(userID uuid.UUID) bool {
	return s.featureFlags.EnabledOr(featureflags.ActivityAudit, userID.String(), true)
}

func (s *Server) eventsEnabled(_ string, partitionKey string) bool {
	return s.featureFlags.EnabledOr(featureflags.ActivityEvents, partitionKey, true)
}

// limiterStore returns the Redis client as a rate limit backend, or a nil
// interface when Redis is unavailable.
func (s *Server) limiterStore() redis.Cmdable {
	if s.redis == nil {
		return nil
	}
	return s.redis
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Context Middleware to propagate Request ID and trace ID
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so error responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: !strings.Contains(origins, "*"),
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
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
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	rdb := s.limiterStore()

	// Public routes are registered before the protected group so its
	// middleware never sees them.
	api.Post("/login", middleware.RateLimit(rdb, 10, 5*time.Minute, "login"), middleware.Audit(s.recorder, s.auditEnabled), s.Login)
	api.Post("/users", middleware.RateLimit(rdb, 3, 10*time.Minute, "signup"), s.Signup)
	api.Put("/users/activate/:id", s.ActivateUser)
	api.Post("/users/send-reset-password-link",
		middleware.RateLimit(rdb, 3, 15*time.Minute, "reset_link"), s.SendResetPasswordLink)
	api.Post("/users/reset-password", s.ConfirmPasswordReset)

	protected := api.Group("", middleware.AuthRequired(s.tokens), middleware.Audit(s.recorder, s.auditEnabled))

	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Post("/paginate", s.ListUsers)
	users.Post("/autocomplete", s.AutocompleteUsers)
	users.Put("/:id/password/confirm", s.ResetPasswordByID)
	users.Put("/:id/password", s.ResetPassword)
	users.Put("/:id", s.AlterUser)
	users.Delete("/:id", s.DeactivateUser)

	properties := protected.Group("/properties")
	properties.Post("/", s.CreateProperty)
	properties.Post("/paginate", s.ListProperties)
	properties.Get("/owners/:id/stats", s.GetOwnerStats)
	properties.Post("/:id/activate", s.ActivateProperty)
	properties.Put("/:id", s.AlterProperty)
	properties.Delete("/:id", s.DeactivateProperty)

	sales := protected.Group("/sales")
	sales.Post("/", s.CreateSale)
	sales.Post("/paginate", s.ListSales)
	sales.Put("/:id", s.AlterSale)
	sales.Delete("/:id", s.DeleteSale)

	activities := protected.Group("/activities")
	activities.Post("/", s.CreateActivity)
	activities.Post("/paginate", s.ListActivities)
	activities.Put("/:id", s.AlterActivity)

	protected.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: an
// absent client reports "unavailable" without failing the probe.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
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

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Estate API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.NewApp()

	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	// Drain queued audit entries while the database is still open.
	if s.recorder != nil {
		if err := s.recorder.Close(ctx); err != nil {
			log.Printf("error draining audit recorder: %v", err)
		}
	}
	if s.mail != nil {
		s.mail.Wait()
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			log.Printf("error closing event publisher: %v", err)
		}
	}

	if err := database.Close(s.db); err != nil {
		log.Printf("error closing sql DB: %v", err)
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
		cache.SetClient(nil)
	}

	log.Println("Server shutdown complete")
	return nil
}

package routes

import (
	"context"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutordesk/backend/internal/config"
	"github.com/tutordesk/backend/internal/handlers"
	"github.com/tutordesk/backend/internal/middleware"
	"github.com/tutordesk/backend/internal/services"
	eventws "github.com/tutordesk/backend/internal/websocket"
	"go.uber.org/zap"
)

const storageTimeout = 30 * time.Second

// RegisterRoutes wires services onto the pool and mounts the API. The event
// hub runs until ctx is cancelled.
func RegisterRoutes(ctx context.Context, app *fiber.App, cfg *config.Config, db *pgxpool.Pool, logger *zap.Logger) {
	uow := services.NewPgUnitOfWork(db)

	var storage services.ProofStorage
	if cfg.StorageEnabled() {
		storage = services.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey, storageTimeout)
	} else {
		logger.Warn("proof storage disabled, payment proof uploads will be rejected")
	}

	hub := eventws.NewHub(logger.Named("events"))
	go hub.Run(ctx)

	sessionService := services.NewSessionService(uow, hub, logger.Named("sessions"), cfg.LifecycleRules(), cfg.DefaultSessionPrice)
	paymentService := services.NewPaymentService(uow, storage, hub, logger.Named("payments"), cfg.AdminFlatFee, cfg.DefaultSessionPrice)
	userService := services.NewUserService(uow, logger.Named("users"))

	authHandler := handlers.NewAuthHandler(userService, cfg.JWTSecret, logger)
	sessionHandler := handlers.NewSessionHandler(sessionService, paymentService, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, logger)
	directoryHandler := handlers.NewDirectoryHandler(
		services.NewStudentService(uow),
		services.NewTeacherService(uow),
		userService,
		logger,
	)
	earningsHandler := handlers.NewEarningsHandler(services.NewEarningsService(uow), logger)
	eventsHandler := handlers.NewEventsHandler(hub, cfg.JWTSecret, logger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// The event feed is long-lived, so it sits outside the request timeout.
	api.Use("/v1/ws", eventsHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(eventsHandler.HandleWebSocket))

	timeout := middleware.RequestTimeout(cfg.RequestTimeout)
	requireAuth := middleware.AuthRequired(cfg.JWTSecret)

	auth := api.Group("/auth", timeout)
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", requireAuth, authHandler.Me)

	v1 := api.Group("/v1", timeout, requireAuth)

	sessions := v1.Group("/sessions")
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Post("", sessionHandler.CreateSession)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Patch("/:id", sessionHandler.UpdateSession)
	sessions.Delete("/:id", sessionHandler.DeleteSession)
	sessions.Post("/:id/actions", sessionHandler.ApplyAction)
	sessions.Get("/:id/payments", sessionHandler.ListSessionPayments)

	payments := v1.Group("/payments")
	payments.Get("", paymentHandler.ListPayments)
	payments.Post("", paymentHandler.RecordPayment)
	payments.Patch("/:id", paymentHandler.UpdatePayment)
	payments.Delete("/:id", paymentHandler.DeletePayment)

	students := v1.Group("/students")
	students.Get("", directoryHandler.ListStudents)
	students.Post("", directoryHandler.CreateStudent)
	students.Get("/:id", directoryHandler.GetStudent)
	students.Patch("/:id", directoryHandler.UpdateStudent)
	students.Delete("/:id", directoryHandler.DeleteStudent)

	teachers := v1.Group("/teachers")
	teachers.Get("", directoryHandler.ListTeachers)
	teachers.Post("", directoryHandler.CreateTeacher)
	teachers.Get("/:id", directoryHandler.GetTeacher)
	teachers.Patch("/:id", directoryHandler.UpdateTeacher)
	teachers.Delete("/:id", directoryHandler.DeleteTeacher)

	users := v1.Group("/users")
	users.Get("", directoryHandler.ListUsers)
	users.Post("", directoryHandler.CreateUser)
	users.Get("/:id", directoryHandler.GetUser)

	earnings := v1.Group("/earnings")
	earnings.Get("/me", earningsHandler.MyEarnings)
	earnings.Get("/teachers/:id", earningsHandler.TeacherEarnings)

	v1.Get("/dashboard", earningsHandler.Dashboard)
}

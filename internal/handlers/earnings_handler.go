package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tutordesk/backend/internal/domain"
	"github.com/tutordesk/backend/internal/logging"
	"github.com/tutordesk/backend/internal/models"
	"go.uber.org/zap"
)

type earningsApplicationService interface {
	MyEarnings(ctx context.Context, actor domain.Actor, custom *domain.Period) (*models.EarningsSummary, error)
	TeacherEarnings(ctx context.Context, actor domain.Actor, teacherID uuid.UUID, custom *domain.Period) (*models.EarningsSummary, error)
	Dashboard(ctx context.Context, actor domain.Actor) (*models.DashboardStats, error)
}

type EarningsHandler struct {
	service earningsApplicationService
	logger  *zap.Logger
}

func NewEarningsHandler(service earningsApplicationService, logger *zap.Logger) *EarningsHandler {
	return &EarningsHandler{service: service, logger: logging.OrNop(logger)}
}

func (h *EarningsHandler) MyEarnings(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	custom, err := customPeriod(c)
	if err != nil {
		return mapServiceError(c, h.logger, "Earnings", err)
	}

	summary, err := h.service.MyEarnings(c.UserContext(), actor, custom)
	if err != nil {
		return mapServiceError(c, h.logger, "Earnings", err)
	}
	return c.JSON(fiber.Map{"earnings": summary})
}

func (h *EarningsHandler) TeacherEarnings(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	teacherID, ok := parseUUIDParam(c, "id")
	if !ok {
		return invalidID(c, "teacher")
	}
	custom, err := customPeriod(c)
	if err != nil {
		return mapServiceError(c, h.logger, "Teacher", err)
	}

	summary, err := h.service.TeacherEarnings(c.UserContext(), actor, teacherID, custom)
	if err != nil {
		return mapServiceError(c, h.logger, "Teacher", err)
	}
	return c.JSON(fiber.Map{"earnings": summary})
}

func (h *EarningsHandler) Dashboard(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}

	stats, err := h.service.Dashboard(c.UserContext(), actor)
	if err != nil {
		return mapServiceError(c, h.logger, "Dashboard", err)
	}
	return c.JSON(fiber.Map{"dashboard": stats})
}

// customPeriod reads the optional from/to query range. It returns nil when
// neither bound is given.
func customPeriod(c *fiber.Ctx) (*domain.Period, error) {
	from := strings.TrimSpace(c.Query("from"))
	to := strings.TrimSpace(c.Query("to"))
	if from == "" && to == "" {
		return nil, nil
	}
	period, err := domain.NewPeriod(from, to)
	if err != nil {
		return nil, err
	}
	return &period, nil
}

package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tutordesk/backend/internal/domain"
	"github.com/tutordesk/backend/internal/logging"
	"github.com/tutordesk/backend/internal/models"
	"github.com/tutordesk/backend/internal/repository"
	"github.com/tutordesk/backend/internal/services"
	"go.uber.org/zap"
)

type sessionApplicationService interface {
	ListSessions(ctx context.Context, actor domain.Actor, filter repository.SessionListFilter) ([]models.Session, int, error)
	GetSession(ctx context.Context, actor domain.Actor, sessionID uuid.UUID) (*models.SessionDetail, error)
	CreateSession(ctx context.Context, actor domain.Actor, input services.CreateSessionInput) (*models.Session, error)
	UpdateSession(ctx context.Context, actor domain.Actor, sessionID uuid.UUID, input services.UpdateSessionInput) (*models.Session, error)
	DeleteSession(ctx context.Context, actor domain.Actor, sessionID uuid.UUID) error
	ApplyAction(ctx context.Context, actor domain.Actor, sessionID uuid.UUID, req domain.ActionRequest, expectedVersion int64) (*services.ActionResult, error)
}

type sessionPaymentLister interface {
	ListSessionPayments(ctx context.Context, actor domain.Actor, sessionID uuid.UUID) ([]models.Payment, error)
}

type SessionHandler struct {
	service  sessionApplicationService
	payments sessionPaymentLister
	logger   *zap.Logger
}

func NewSessionHandler(service sessionApplicationService, payments sessionPaymentLister, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{service: service, payments: payments, logger: logging.OrNop(logger)}
}

type createSessionRequest struct {
	Date           string   `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime      string   `json:"start_time" validate:"required,datetime=15:04"`
	EndTime        string   `json:"end_time" validate:"required,datetime=15:04"`
	TeacherID      string   `json:"teacher_id" validate:"required,uuid"`
	StudentID      string   `json:"student_id" validate:"required,uuid"`
	ExpectedAmount *float64 `json:"expected_amount" validate:"omitempty,gte=0"`
	Notes          *string  `json:"notes"`
}

type updateSessionRequest struct {
	Version        int64    `json:"version" validate:"gte=0"`
	Date           *string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime      *string  `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime        *string  `json:"end_time" validate:"omitempty,datetime=15:04"`
	TeacherID      *string  `json:"teacher_id" validate:"omitempty,uuid"`
	StudentID      *string  `json:"student_id" validate:"omitempty,uuid"`
	ExpectedAmount *float64 `json:"expected_amount" validate:"omitempty,gte=0"`
	Notes          *string  `json:"notes"`
}

type sessionActionRequest struct {
	Action    string `json:"action" validate:"required"`
	Version   int64  `json:"version" validate:"gte=0"`
	Party     string `json:"party"`
	Reason    string `json:"reason"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}

	page := readPage(c)

	teacherID, err := parseOptionalUUID(c.Query("teacher_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "teacher_id must be a valid id", "field": "teacher_id"})
	}
	studentID, err := parseOptionalUUID(c.Query("student_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "student_id must be a valid id", "field": "student_id"})
	}

	sessions, total, err := h.service.ListSessions(c.UserContext(), actor, repository.SessionListFilter{
		TeacherID:     teacherID,
		StudentID:     studentID,
		Status:        strings.TrimSpace(c.Query("status")),
		PaymentStatus: strings.TrimSpace(c.Query("payment_status")),
		From:          strings.TrimSpace(c.Query("from")),
		To:            strings.TrimSpace(c.Query("to")),
		Search:        strings.TrimSpace(c.Query("search")),
		Limit:         page.limit,
		Offset:        page.offset(),
	})
	if err != nil {
		return mapServiceError(c, h.logger, "Session", err)
	}

	return c.JSON(fiber.Map{
		"sessions":   sessions,
		"pagination": page.meta(total),
	})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	sessionID, ok := parseUUIDParam(c, "id")
	if !ok {
		return invalidID(c, "session")
	}

	session, err := h.service.GetSession(c.UserContext(), actor, sessionID)
	if err != nil {
		return mapServiceError(c, h.logger, "Session", err)
	}
	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	var req createSessionRequest
	if ok, err := parseRequest(c, &req); !ok {
		return err
	}

	session, err := h.service.CreateSession(c.UserContext(), actor, services.CreateSessionInput{
		Date:           req.Date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		TeacherID:      uuid.MustParse(req.TeacherID),
		StudentID:      uuid.MustParse(req.StudentID),
		ExpectedAmount: req.ExpectedAmount,
		Notes:          req.Notes,
	})
	if err != nil {
		return mapServiceError(c, h.logger, "Session", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) UpdateSession(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	sessionID, ok := parseUUIDParam(c, "id")
	if !ok {
		return invalidID(c, "session")
	}
	var req updateSessionRequest
	if ok, err := parseRequest(c, &req); !ok {
		return err
	}

	input := services.UpdateSessionInput{
		Version:        req.Version,
		Date:           req.Date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		ExpectedAmount: req.ExpectedAmount,
		Notes:          req.Notes,
	}
	if req.TeacherID != nil {
		id := uuid.MustParse(*req.TeacherID)
		input.TeacherID = &id
	}
	if req.StudentID != nil {
		id := uuid.MustParse(*req.StudentID)
		input.StudentID = &id
	}

	session, err := h.service.UpdateSession(c.UserContext(), actor, sessionID, input)
	if err != nil {
		return mapServiceError(c, h.logger, "Session", err)
	}
	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) DeleteSession(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	sessionID, ok := parseUUIDParam(c, "id")
	if !ok {
		return invalidID(c, "session")
	}

	if err := h.service.DeleteSession(c.UserContext(), actor, sessionID); err != nil {
		return mapServiceError(c, h.logger, "Session", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ApplyAction runs one lifecycle action, e.g. {"action":"cancel","party":"student","reason":"sick"}.
func (h *SessionHandler) ApplyAction(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	sessionID, ok := parseUUIDParam(c, "id")
	if !ok {
		return invalidID(c, "session")
	}
	var req sessionActionRequest
	if ok, err := parseRequest(c, &req); !ok {
		return err
	}

	result, err := h.service.ApplyAction(c.UserContext(), actor, sessionID, domain.ActionRequest{
		Action:    domain.Action(strings.TrimSpace(req.Action)),
		Party:     models.CancelParty(strings.TrimSpace(req.Party)),
		Reason:    req.Reason,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}, req.Version)
	if err != nil {
		return mapServiceError(c, h.logger, "Session", err)
	}
	return c.JSON(result)
}

func (h *SessionHandler) ListSessionPayments(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	sessionID, ok := parseUUIDParam(c, "id")
	if !ok {
		return invalidID(c, "session")
	}

	payments, err := h.payments.ListSessionPayments(c.UserContext(), actor, sessionID)
	if err != nil {
		return mapServiceError(c, h.logger, "Session", err)
	}
	return c.JSON(fiber.Map{"payments": payments})
}

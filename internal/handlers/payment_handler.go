package handlers

import (
	"context"
	"errors"
	"io"
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

type paymentApplicationService interface {
	ListPayments(ctx context.Context, actor domain.Actor, filter repository.PaymentListFilter) ([]models.Payment, error)
	RecordPayment(ctx context.Context, actor domain.Actor, input services.RecordPaymentInput) (*models.Payment, error)
	UpdatePayment(ctx context.Context, actor domain.Actor, paymentID uuid.UUID, input services.UpdatePaymentInput) (*models.Payment, error)
	DeletePayment(ctx context.Context, actor domain.Actor, paymentID uuid.UUID) error
}

type PaymentHandler struct {
	service paymentApplicationService
	logger  *zap.Logger
}

func NewPaymentHandler(service paymentApplicationService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, logger: logging.OrNop(logger)}
}

type recordPaymentRequest struct {
	SessionID string  `json:"session_id" form:"session_id" validate:"required,uuid"`
	Date      string  `json:"date" form:"date" validate:"omitempty,datetime=2006-01-02"`
	Amount    float64 `json:"amount" form:"amount" validate:"gt=0,lte=9999999999.99"`
	Method    string  `json:"method" form:"method" validate:"required,oneof=cash bank-transfer gcash"`
	Notes     *string `json:"notes" form:"notes"`
}

type updatePaymentRequest struct {
	Date   *string  `json:"date" form:"date" validate:"omitempty,datetime=2006-01-02"`
	Amount *float64 `json:"amount" form:"amount" validate:"omitempty,gt=0,lte=9999999999.99"`
	Method *string  `json:"method" form:"method" validate:"omitempty,oneof=cash bank-transfer gcash"`
	Notes  *string  `json:"notes" form:"notes"`
}

func (h *PaymentHandler) ListPayments(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}

	teacherID, err := parseOptionalUUID(c.Query("teacher_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "teacher_id must be a valid id", "field": "teacher_id"})
	}
	sessionID, err := parseOptionalUUID(c.Query("session_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "session_id must be a valid id", "field": "session_id"})
	}

	payments, err := h.service.ListPayments(c.UserContext(), actor, repository.PaymentListFilter{
		TeacherID: teacherID,
		SessionID: sessionID,
		Method:    strings.TrimSpace(c.Query("method")),
		From:      strings.TrimSpace(c.Query("from")),
		To:        strings.TrimSpace(c.Query("to")),
		Search:    strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		return mapServiceError(c, h.logger, "Payment", err)
	}
	return c.JSON(fiber.Map{"payments": payments})
}

// RecordPayment accepts JSON, or multipart form data with an optional
// "proof" image file.
func (h *PaymentHandler) RecordPayment(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	var req recordPaymentRequest
	if ok, err := parseRequest(c, &req); !ok {
		return err
	}
	proof, err := readProof(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "field": "proof"})
	}

	payment, err := h.service.RecordPayment(c.UserContext(), actor, services.RecordPaymentInput{
		SessionID: uuid.MustParse(req.SessionID),
		Date:      req.Date,
		Amount:    req.Amount,
		Method:    models.PaymentMethod(req.Method),
		Notes:     req.Notes,
		Proof:     proof,
	})
	if err != nil {
		return mapServiceError(c, h.logger, "Session", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"payment": payment})
}

func (h *PaymentHandler) UpdatePayment(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	paymentID, ok := parseUUIDParam(c, "id")
	if !ok {
		return invalidID(c, "payment")
	}
	var req updatePaymentRequest
	if ok, err := parseRequest(c, &req); !ok {
		return err
	}
	proof, err := readProof(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "field": "proof"})
	}

	input := services.UpdatePaymentInput{
		Date:   req.Date,
		Amount: req.Amount,
		Notes:  req.Notes,
		Proof:  proof,
	}
	if req.Method != nil {
		method := models.PaymentMethod(*req.Method)
		input.Method = &method
	}

	payment, err := h.service.UpdatePayment(c.UserContext(), actor, paymentID, input)
	if err != nil {
		return mapServiceError(c, h.logger, "Payment", err)
	}
	return c.JSON(fiber.Map{"payment": payment})
}

func (h *PaymentHandler) DeletePayment(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}
	paymentID, ok := parseUUIDParam(c, "id")
	if !ok {
		return invalidID(c, "payment")
	}

	if err := h.service.DeletePayment(c.UserContext(), actor, paymentID); err != nil {
		return mapServiceError(c, h.logger, "Payment", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// readProof returns the uploaded proof image of a multipart request, or nil
// when the request carries none.
func readProof(c *fiber.Ctx) (*services.ProofUpload, error) {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	fileHeader, err := c.FormFile("proof")
	if err != nil {
		return nil, nil
	}
	if fileHeader.Size > services.MaxProofSizeBytes {
		return nil, errors.New("proof exceeds 2MB limit")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, errors.New("unable to read proof file")
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, services.MaxProofSizeBytes+1))
	if err != nil {
		return nil, errors.New("unable to read proof file")
	}
	return &services.ProofUpload{Filename: fileHeader.Filename, Content: content}, nil
}

package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/tutordesk/backend/internal/domain"
	"github.com/tutordesk/backend/internal/logging"
	"github.com/tutordesk/backend/internal/models"
	"github.com/tutordesk/backend/internal/services"
	"github.com/tutordesk/backend/pkg/utils"
	"go.uber.org/zap"
)

type authService interface {
	Register(ctx context.Context, input services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	Me(ctx context.Context, actor domain.Actor) (*models.User, error)
}

type AuthHandler struct {
	service   authService
	jwtSecret string
	logger    *zap.Logger
}

func NewAuthHandler(service authService, jwtSecret string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{service: service, jwtSecret: jwtSecret, logger: logging.OrNop(logger)}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if ok, err := parseRequest(c, &req); !ok {
		return err
	}

	user, err := h.service.Register(c.UserContext(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return mapServiceError(c, h.logger, "User", err)
	}
	return h.respondWithToken(c, fiber.StatusCreated, user)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if ok, err := parseRequest(c, &req); !ok {
		return err
	}

	user, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return mapServiceError(c, h.logger, "User", err)
	}
	return h.respondWithToken(c, fiber.StatusOK, user)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return invalidToken(c)
	}

	user, err := h.service.Me(c.UserContext(), actor)
	if err != nil {
		return mapServiceError(c, h.logger, "User", err)
	}
	return c.JSON(fiber.Map{"user": user})
}

func (h *AuthHandler) respondWithToken(c *fiber.Ctx, status int, user *models.User) error {
	token, err := utils.GenerateToken(user.ID.String(), string(user.Role), h.jwtSecret)
	if err != nil {
		h.logger.Error("failed to generate token", zap.String("user_id", user.ID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}

	return c.Status(status).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tutordesk/backend/internal/domain"
	"github.com/tutordesk/backend/internal/models"
	"github.com/tutordesk/backend/internal/services"
	"go.uber.org/zap"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// parseRequest decodes the body into req and runs its validate tags. When ok
// is false the error reply is already written and err is the handler result.
func parseRequest(c *fiber.Ctx, req any) (ok bool, err error) {
	if err := c.BodyParser(req); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return false, validationFailed(c, err)
	}
	return true, nil
}

func validationFailed(c *fiber.Ctx, err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}
	first := fieldErrors[0]
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": fmt.Sprintf("%s %s", first.Field(), describeRule(first)),
		"field": first.Field(),
	})
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "must match " + fe.Param()
	case "uuid":
		return "must be a valid id"
	default:
		return "is invalid"
	}
}

func actorFromContext(c *fiber.Ctx) (domain.Actor, error) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return domain.Actor{}, errors.New("missing user id")
	}
	roleStr, ok := c.Locals("role").(string)
	if !ok {
		return domain.Actor{}, errors.New("missing role")
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return domain.Actor{}, err
	}
	role := models.Role(roleStr)
	if !role.Valid() {
		return domain.Actor{}, fmt.Errorf("unknown role %q", roleStr)
	}
	return domain.Actor{ID: userID, Role: role}, nil
}

func invalidToken(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
}

func parseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func invalidID(c *fiber.Ctx, resource string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid " + resource + " id"})
}

func parseOptionalUUID(raw string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// mapServiceError turns service and domain errors into responses. resource
// names the entity in not-found messages.
func mapServiceError(c *fiber.Ctx, logger *zap.Logger, resource string, err error) error {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		body := fiber.Map{"error": validationErr.Error()}
		if validationErr.Field != "" {
			body["field"] = validationErr.Field
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, services.ErrRegistrationClosed):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	case errors.Is(err, domain.ErrStateConflict),
		errors.Is(err, services.ErrStaleVersion),
		errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": resource + " not found"})
	case errors.Is(err, services.ErrStorageDisabled):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Proof uploads are not configured"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{"error": "Request timed out"})
	default:
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process " + strings.ToLower(resource) + " request"})
	}
}

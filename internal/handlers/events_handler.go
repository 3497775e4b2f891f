package handlers

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tutordesk/backend/internal/domain"
	"github.com/tutordesk/backend/internal/logging"
	"github.com/tutordesk/backend/internal/middleware"
	"github.com/tutordesk/backend/internal/models"
	eventws "github.com/tutordesk/backend/internal/websocket"
	"go.uber.org/zap"
)

// EventsHandler upgrades dashboard connections onto the live session feed.
type EventsHandler struct {
	hub       *eventws.Hub
	jwtSecret string
	logger    *zap.Logger
}

func NewEventsHandler(hub *eventws.Hub, jwtSecret string, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{hub: hub, jwtSecret: jwtSecret, logger: logging.OrNop(logger)}
}

func (h *EventsHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := middleware.ParseClaims(middleware.TokenFromRequest(c), h.jwtSecret)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", claims.Role)
	return c.Next()
}

func (h *EventsHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	role, _ := conn.Locals("role").(string)
	actor := domain.Actor{ID: uuid.MustParse(userID), Role: models.Role(role)}

	client := eventws.NewClient(h.hub, conn, actor)
	if !h.hub.Register(client) {
		_ = conn.Close()
		return
	}
	h.logger.Debug("event feed connected", zap.String("user_id", userID), zap.String("role", role))

	go client.WritePump()
	client.ReadPump()
}

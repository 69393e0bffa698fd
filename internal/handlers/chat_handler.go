package handlers

import (
	"context"
	"errors"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/huddle-app/huddle-backend/internal/middleware"
	"github.com/huddle-app/huddle-backend/internal/models"
	"github.com/huddle-app/huddle-backend/internal/services"
	chatws "github.com/huddle-app/huddle-backend/internal/websocket"
	"github.com/huddle-app/huddle-backend/pkg/utils"
)

type chatApplicationService interface {
	Inbox(ctx context.Context, viewer services.Viewer) ([]models.Conversation, error)
	SendMessage(ctx context.Context, viewer services.Viewer, input services.SendMessageInput) (*models.Message, error)
	ConversationMessages(ctx context.Context, viewer services.Viewer, conversationID string) ([]models.Message, error)
}

type ChatHandler struct {
	service   chatApplicationService
	hub       *chatws.Hub
	jwtSecret string
}

type sendMessageRequest struct {
	ReceiverID   string `json:"receiver_id" validate:"required"`
	ReceiverRole string `json:"receiver_role" validate:"omitempty,oneof=athlete parent coach team league merchant"`
	Content      string `json:"content" validate:"required,max=4000"`
}

func NewChatHandler(service chatApplicationService, hub *chatws.Hub, jwtSecret string) *ChatHandler {
	return &ChatHandler{
		service:   service,
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

func (h *ChatHandler) GetInbox(c *fiber.Ctx) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversations, err := h.service.Inbox(c.Context(), viewer)
	if err != nil {
		return mapChatError(c, err)
	}
	if conversations == nil {
		conversations = []models.Conversation{}
	}

	return c.JSON(fiber.Map{"conversations": conversations})
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req sendMessageRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}

	message, err := h.service.SendMessage(c.Context(), viewer, services.SendMessageInput{
		ReceiverID:   req.ReceiverID,
		ReceiverRole: req.ReceiverRole,
		Content:      req.Content,
	})
	if err != nil {
		return mapChatError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": message})
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID := strings.TrimSpace(c.Params("id"))
	if conversationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	messages, err := h.service.ConversationMessages(c.Context(), viewer, conversationID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"messages": messages})
}

func (h *ChatHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", claims.Role)
	return c.Next()
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	role, _ := conn.Locals("role").(string)
	client := chatws.NewClient(h.hub, conn, services.Viewer{ID: userID, Role: models.Role(role)})

	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump(h.service)
}

func (h *ChatHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		tokenString, _ = middleware.BearerToken(c.Get(fiber.HeaderAuthorization))
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}

func mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, services.ErrRateLimited):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many messages, slow down"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
}

package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ananth-NQI/tablepe-backend/internal/services"
)

// ChatHandler exposes the conversation over JSON for web and app clients
type ChatHandler struct {
	conv   MessageProcessor
	logger *zap.Logger
}

func NewChatHandler(conv MessageProcessor, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{conv: conv, logger: logger}
}

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	SessionKey string `json:"session_key"`
	Text       string `json:"text"`
	Phone      string `json:"phone"`
	MessageID  string `json:"message_id"`
}

// HandleMessage runs one message and returns the reply envelope. A missing
// session key starts a new conversation under a generated key.
func (h *ChatHandler) HandleMessage(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	key := strings.TrimSpace(req.SessionKey)
	if key == "" {
		key = uuid.NewString()
	}

	result, err := h.conv.ProcessMessage(c.UserContext(), services.Message{
		SessionKey: key,
		Text:       req.Text,
		Phone:      req.Phone,
		MessageID:  req.MessageID,
	})
	if err != nil {
		h.logger.Error("failed to process chat message", zap.String("session_key", key), zap.Error(err))
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, services.ErrSessionBusy):
			status = fiber.StatusConflict
		case errors.Is(err, services.ErrCommitFailed):
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"session_key": key,
			"error":       errorText(err),
		})
	}

	return c.JSON(fiber.Map{
		"session_key": key,
		"reply":       result.Reply,
		"session":     result.Session,
	})
}

package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Ananth-NQI/tablepe-backend/internal/services"
)

const (
	apologyText = "😔 Sorry, something went wrong on our side. Please try again in a moment."
	retryText   = "😔 We could not complete that right now. Your cart and booking details are safe, reply *YES* to try again."
	busyText    = "⏳ Still working on your previous message, one moment please."
)

// MessageProcessor runs one inbound message through the conversation
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, msg services.Message) (*services.Result, error)
}

// WhatsAppHandler receives Twilio webhooks and answers through the sender
type WhatsAppHandler struct {
	conv   MessageProcessor
	sender services.MessageSender
	logger *zap.Logger
}

// NewWhatsAppHandler creates the webhook handler. sender may be nil, in which
// case replies are only logged.
func NewWhatsAppHandler(conv MessageProcessor, sender services.MessageSender, logger *zap.Logger) *WhatsAppHandler {
	return &WhatsAppHandler{conv: conv, sender: sender, logger: logger}
}

// TwilioWebhookPayload represents incoming webhook from Twilio
type TwilioWebhookPayload struct {
	MessageSid string `form:"MessageSid"`
	AccountSid string `form:"AccountSid"`
	From       string `form:"From"` // whatsapp:+573012345678
	To         string `form:"To"`
	Body       string `form:"Body"`
	NumMedia   string `form:"NumMedia"`
}

// HandleWebhook processes incoming WhatsApp messages from Twilio
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		h.logger.Warn("invalid webhook payload", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).SendString("Invalid payload")
	}

	from := strings.TrimPrefix(payload.From, "whatsapp:")
	key := strings.TrimPrefix(from, "+")
	if key == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Missing sender")
	}

	h.logger.Debug("whatsapp message",
		zap.String("from", from),
		zap.String("message_sid", payload.MessageSid))

	result, err := h.conv.ProcessMessage(c.UserContext(), services.Message{
		SessionKey: key,
		Text:       payload.Body,
		Phone:      from,
		MessageID:  payload.MessageSid,
	})

	text := ""
	if err != nil {
		text = errorText(err)
		h.logger.Error("failed to process whatsapp message", zap.String("from", from), zap.Error(err))
	} else {
		text = renderReply(result.Reply)
	}

	h.send(from, text)

	// Twilio only needs a 200; the reply goes out through the REST API
	return c.SendStatus(fiber.StatusOK)
}

func (h *WhatsAppHandler) send(to, text string) {
	if h.sender == nil {
		h.logger.Info("reply (no sender configured)", zap.String("to", to), zap.String("text", text))
		return
	}
	if err := h.sender.SendWhatsAppMessage(to, text); err != nil {
		h.logger.Error("failed to send whatsapp reply", zap.String("to", to), zap.Error(err))
	}
}

// errorText maps a processing error to what the user sees
func errorText(err error) string {
	switch {
	case errors.Is(err, services.ErrSessionBusy):
		return busyText
	case errors.Is(err, services.ErrCommitFailed):
		return retryText
	default:
		return apologyText
	}
}

// renderReply flattens quick replies into text, WhatsApp has no buttons
// without approved templates
func renderReply(r services.Reply) string {
	if len(r.QuickReplies) == 0 {
		return r.Text
	}
	var b strings.Builder
	b.WriteString(r.Text)
	b.WriteString("\n")
	for _, q := range r.QuickReplies {
		b.WriteString("\n▫️ ")
		b.WriteString(q)
	}
	return b.String()
}

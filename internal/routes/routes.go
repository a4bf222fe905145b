package routes

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Ananth-NQI/tablepe-backend/internal/config"
	"github.com/Ananth-NQI/tablepe-backend/internal/handlers"
	"github.com/Ananth-NQI/tablepe-backend/internal/middleware"
	"github.com/Ananth-NQI/tablepe-backend/internal/services"
)

// Dependencies are the handlers' collaborators built in main
type Dependencies struct {
	Conversation handlers.MessageProcessor
	Sender       services.MessageSender // nil when Twilio is not configured
	Health       *handlers.HealthHandler
	Logger       *zap.Logger
}

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, cfg *config.Config, deps Dependencies) {
	whatsapp := handlers.NewWhatsAppHandler(deps.Conversation, deps.Sender, deps.Logger)
	chat := handlers.NewChatHandler(deps.Conversation, deps.Logger)

	app.Get("/health", deps.Health.Check)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")
	if !cfg.IsProduction() && cfg.DisableWebhookValidation {
		deps.Logger.Warn("twilio webhook signature validation disabled")
		webhooks.Post("/whatsapp", whatsapp.HandleWebhook)
	} else {
		webhooks.Post("/whatsapp", middleware.ValidateTwilioSignature(cfg.TwilioAuthToken, deps.Logger), whatsapp.HandleWebhook)
	}

	// ========== API ROUTES ==========
	api := app.Group("/api")
	api.Post("/chat", chat.HandleMessage)
}

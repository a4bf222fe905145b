package services

import (
	"encoding/json"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// MessageSender delivers outbound WhatsApp messages
type MessageSender interface {
	SendWhatsAppMessage(to string, message string) error
	SendWhatsAppTemplate(to string, templateSID string, contentVariables map[string]string) error
}

type TwilioService struct {
	client *twilio.RestClient
	from   string // Your Twilio WhatsApp number, "whatsapp:+14155238886"
	logger *zap.Logger
}

// NewTwilioService creates a new Twilio service instance
func NewTwilioService(accountSid, authToken, from string, logger *zap.Logger) (*TwilioService, error) {
	if accountSid == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &TwilioService{
		client: client,
		from:   from,
		logger: logger,
	}, nil
}

// SendWhatsAppMessage sends a WhatsApp message via Twilio. to is E.164.
func (t *TwilioService) SendWhatsAppMessage(to string, message string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:%s", to))
	params.SetBody(message)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		t.logger.Error("❌ Failed to send WhatsApp message", zap.Error(err))
		return err
	}

	t.logger.Info("✅ WhatsApp message sent", zap.String("sid", *resp.Sid))
	return nil
}

// SendWhatsAppTemplate sends an approved content template via Twilio
func (t *TwilioService) SendWhatsAppTemplate(to string, templateSID string, contentVariables map[string]string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:%s", to))
	params.SetContentSid(templateSID)

	// SetContentVariables expects a JSON string
	if len(contentVariables) > 0 {
		variablesJSON, err := json.Marshal(contentVariables)
		if err != nil {
			return fmt.Errorf("failed to marshal content variables: %w", err)
		}
		params.SetContentVariables(string(variablesJSON))
	}

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		t.logger.Error("❌ Failed to send WhatsApp template", zap.String("template", templateSID), zap.Error(err))
		return err
	}
	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, *resp.ErrorMessage)
	}

	t.logger.Info("✅ WhatsApp template sent", zap.String("sid", *resp.Sid), zap.String("template", templateSID))
	return nil
}

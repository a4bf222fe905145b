package services

import (
	"fmt"
	"strings"
)

// TemplateConfig holds template configuration
type TemplateConfig struct {
	SID         string // Twilio Content SID, empty when only plain text is used
	Description string
	Parameters  []string
	// Body is the plain text form; {{1}}, {{2}}... follow Parameters order
	Body string
}

// Template names
const (
	TemplateOrderConfirmed       = "order_confirmed"
	TemplateReservationConfirmed = "reservation_confirmed"
)

// WhatsAppTemplates lists the notification templates
var WhatsAppTemplates = map[string]TemplateConfig{
	TemplateOrderConfirmed: {
		Description: "Order placed confirmation",
		Parameters:  []string{"restaurant", "order_number", "total", "fulfillment"},
		Body:        "🎉 *{{1}}* received your order *{{2}}*.\n\nTotal: *{{3}}*\nFulfillment: {{4}}\n\nThank you!",
	},
	TemplateReservationConfirmed: {
		Description: "Table reservation confirmation",
		Parameters:  []string{"restaurant", "reservation_number", "date", "time", "party_size"},
		Body:        "📅 Your table at *{{1}}* is booked.\n\nCode: *{{2}}*\nDate: {{3}} at {{4}}\nPeople: {{5}}",
	},
}

// TemplateService handles WhatsApp template operations
type TemplateService struct {
	sender    MessageSender
	templates map[string]TemplateConfig
}

// NewTemplateService creates a new template service. sids maps template
// names to approved Content SIDs; templates without one go out as text.
func NewTemplateService(sender MessageSender, sids map[string]string) *TemplateService {
	templates := make(map[string]TemplateConfig, len(WhatsAppTemplates))
	for name, tpl := range WhatsAppTemplates {
		if sid := sids[name]; sid != "" {
			tpl.SID = sid
		}
		templates[name] = tpl
	}
	return &TemplateService{
		sender:    sender,
		templates: templates,
	}
}

// contentVariables validates params and numbers them the way Twilio expects
func (ts *TemplateService) contentVariables(templateName string, params map[string]string) (TemplateConfig, map[string]string, error) {
	template, exists := ts.templates[templateName]
	if !exists {
		return TemplateConfig{}, nil, fmt.Errorf("template '%s' not found", templateName)
	}

	for _, requiredParam := range template.Parameters {
		if _, ok := params[requiredParam]; !ok {
			return TemplateConfig{}, nil, fmt.Errorf("missing required parameter: %s", requiredParam)
		}
	}

	// Twilio uses {{1}}, {{2}}, etc.
	contentVariables := make(map[string]string, len(template.Parameters))
	for i, paramName := range template.Parameters {
		contentVariables[fmt.Sprintf("%d", i+1)] = params[paramName]
	}
	return template, contentVariables, nil
}

// Render returns the plain text form of a template
func (ts *TemplateService) Render(templateName string, params map[string]string) (string, error) {
	template, vars, err := ts.contentVariables(templateName, params)
	if err != nil {
		return "", err
	}
	pairs := make([]string, 0, len(vars)*2)
	for key, value := range vars {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template.Body), nil
}

// SendTemplate sends a WhatsApp template with parameters, falling back to
// plain text when no Content SID is set or the template send fails.
func (ts *TemplateService) SendTemplate(to string, templateName string, params map[string]string) error {
	template, vars, err := ts.contentVariables(templateName, params)
	if err != nil {
		return err
	}

	if template.SID != "" {
		if err := ts.sender.SendWhatsAppTemplate(to, template.SID, vars); err == nil {
			return nil
		}
	}

	body, err := ts.Render(templateName, params)
	if err != nil {
		return err
	}
	return ts.sender.SendWhatsAppMessage(to, body)
}

// GetTemplateInfo returns information about a template
func (ts *TemplateService) GetTemplateInfo(templateName string) (*TemplateConfig, error) {
	template, exists := ts.templates[templateName]
	if !exists {
		return nil, fmt.Errorf("template '%s' not found", templateName)
	}
	return &template, nil
}

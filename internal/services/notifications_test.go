package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ananth-NQI/tablepe-backend/internal/models"
)

type sentMessage struct {
	to   string
	body string
	sid  string
	vars map[string]string
}

// fakeSender records outbound messages instead of calling Twilio
type fakeSender struct {
	sent        []sentMessage
	templateErr error
}

func (f *fakeSender) SendWhatsAppMessage(to string, message string) error {
	f.sent = append(f.sent, sentMessage{to: to, body: message})
	return nil
}

func (f *fakeSender) SendWhatsAppTemplate(to string, templateSID string, contentVariables map[string]string) error {
	if f.templateErr != nil {
		return f.templateErr
	}
	f.sent = append(f.sent, sentMessage{to: to, sid: templateSID, vars: contentVariables})
	return nil
}

func TestRenderTemplate(t *testing.T) {
	ts := NewTemplateService(&fakeSender{}, nil)

	body, err := ts.Render(TemplateOrderConfirmed, map[string]string{
		"restaurant":   "TablePe",
		"order_number": "ORD-ABC234",
		"total":        "$48,000",
		"fulfillment":  "delivery",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "*TablePe*")
	assert.Contains(t, body, "ORD-ABC234")
	assert.Contains(t, body, "$48,000")
	assert.NotContains(t, body, "{{")
}

func TestSendTemplateValidatesParameters(t *testing.T) {
	ts := NewTemplateService(&fakeSender{}, nil)

	err := ts.SendTemplate("+573012345678", TemplateOrderConfirmed, map[string]string{"restaurant": "TablePe"})
	assert.ErrorContains(t, err, "missing required parameter")

	err = ts.SendTemplate("+573012345678", "unknown", nil)
	assert.ErrorContains(t, err, "not found")
}

func TestSendTemplateUsesContentSID(t *testing.T) {
	sender := &fakeSender{}
	ts := NewTemplateService(sender, map[string]string{TemplateReservationConfirmed: "HX123"})

	err := ts.SendTemplate("+573012345678", TemplateReservationConfirmed, map[string]string{
		"restaurant":         "TablePe",
		"reservation_number": "RES-ABC234",
		"date":               "2024-06-13",
		"time":               "19:30",
		"party_size":         "4",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "HX123", sender.sent[0].sid)
	assert.Equal(t, "RES-ABC234", sender.sent[0].vars["2"])
	assert.Equal(t, "4", sender.sent[0].vars["5"])
}

func TestSendTemplateFallsBackToText(t *testing.T) {
	sender := &fakeSender{templateErr: errors.New("template not approved")}
	ts := NewTemplateService(sender, map[string]string{TemplateReservationConfirmed: "HX123"})

	err := ts.SendTemplate("+573012345678", TemplateReservationConfirmed, map[string]string{
		"restaurant":         "TablePe",
		"reservation_number": "RES-ABC234",
		"date":               "2024-06-13",
		"time":               "19:30",
		"party_size":         "4",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Empty(t, sender.sent[0].sid)
	assert.Contains(t, sender.sent[0].body, "RES-ABC234")
}

func TestWhatsAppNotifier(t *testing.T) {
	sender := &fakeSender{}
	n := NewWhatsAppNotifier(NewTemplateService(sender, nil), "TablePe", "57", zap.NewNop())

	err := n.OrderPlaced(context.Background(), "3012345678", &models.Order{
		OrderNumber: "ORD-ABC234",
		Total:       48000,
		Fulfillment: models.FulfillmentDelivery,
	})
	require.NoError(t, err)

	err = n.ReservationConfirmed(context.Background(), "3012345678", &models.Reservation{
		ReservationNumber: "RES-ABC234",
		Date:              "2024-06-13",
		Time:              "19:30",
		PartySize:         4,
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "+573012345678", sender.sent[0].to)
	assert.Contains(t, sender.sent[0].body, "$48,000")
	assert.Contains(t, sender.sent[1].body, "19:30")
}

func TestWhatsAppNotifierStopsOnCancelledContext(t *testing.T) {
	sender := &fakeSender{}
	n := NewWhatsAppNotifier(NewTemplateService(sender, nil), "TablePe", "57", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.OrderPlaced(ctx, "3012345678", &models.Order{OrderNumber: "ORD-ABC234"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sender.sent)
}

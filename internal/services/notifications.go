package services

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/Ananth-NQI/tablepe-backend/internal/models"
)

// Notifier receives fire-and-forget events after a successful commit
type Notifier interface {
	OrderPlaced(ctx context.Context, phone string, order *models.Order) error
	ReservationConfirmed(ctx context.Context, phone string, reservation *models.Reservation) error
}

// WhatsAppNotifier sends commit confirmations through the template service
type WhatsAppNotifier struct {
	templates      *TemplateService
	restaurantName string
	countryCode    string
	logger         *zap.Logger
}

// NewWhatsAppNotifier builds a notifier for 10 digit national numbers
func NewWhatsAppNotifier(templates *TemplateService, restaurantName, countryCode string, logger *zap.Logger) *WhatsAppNotifier {
	return &WhatsAppNotifier{
		templates:      templates,
		restaurantName: restaurantName,
		countryCode:    countryCode,
		logger:         logger,
	}
}

// e164 turns "3012345678" into "+573012345678"
func (n *WhatsAppNotifier) e164(phone string) string {
	return "+" + n.countryCode + phone
}

// OrderPlaced confirms a committed order
func (n *WhatsAppNotifier) OrderPlaced(ctx context.Context, phone string, order *models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := map[string]string{
		"restaurant":   n.restaurantName,
		"order_number": order.OrderNumber,
		"total":        formatMoney(order.Total),
		"fulfillment":  order.Fulfillment,
	}
	if err := n.templates.SendTemplate(n.e164(phone), TemplateOrderConfirmed, params); err != nil {
		return err
	}
	n.logger.Info("📤 Order confirmation sent", zap.String("order_number", order.OrderNumber))
	return nil
}

// ReservationConfirmed confirms a booked table
func (n *WhatsAppNotifier) ReservationConfirmed(ctx context.Context, phone string, reservation *models.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := map[string]string{
		"restaurant":         n.restaurantName,
		"reservation_number": reservation.ReservationNumber,
		"date":               reservation.Date,
		"time":               reservation.Time,
		"party_size":         strconv.Itoa(reservation.PartySize),
	}
	if err := n.templates.SendTemplate(n.e164(phone), TemplateReservationConfirmed, params); err != nil {
		return err
	}
	n.logger.Info("📤 Reservation confirmation sent", zap.String("reservation_number", reservation.ReservationNumber))
	return nil
}

// LogNotifier only logs events, used when Twilio is not configured
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OrderPlaced(ctx context.Context, phone string, order *models.Order) error {
	n.logger.Info("Order placed (notifications disabled)",
		zap.String("order_number", order.OrderNumber),
		zap.Float64("total", order.Total))
	return nil
}

func (n *LogNotifier) ReservationConfirmed(ctx context.Context, phone string, reservation *models.Reservation) error {
	n.logger.Info("Reservation confirmed (notifications disabled)",
		zap.String("reservation_number", reservation.ReservationNumber))
	return nil
}

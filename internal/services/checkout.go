package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Ananth-NQI/tablepe-backend/internal/models"
	"github.com/Ananth-NQI/tablepe-backend/internal/utils"
)

const (
	minAddressLength = 5
	maxNotesLength   = 200
)

var paymentMethods = []struct {
	Key   string
	Label string
}{
	{models.PaymentCash, "💵 Cash"},
	{models.PaymentCard, "💳 Card on delivery"},
	{models.PaymentTransfer, "🏦 Bank transfer"},
}

func paymentLabel(method string) string {
	for _, m := range paymentMethods {
		if m.Key == method {
			return m.Label
		}
	}
	return method
}

// handleCheckout drives stages 7-13. Every checkout stage needs a cart.
func (c *Conversation) handleCheckout(ctx context.Context, s *models.ChatSession, stage int, in input) (Reply, error) {
	if s.Cart.IsEmpty() {
		s.Checkout = models.CheckoutData{}
		return c.enterCart(ctx, s, "")
	}

	switch stage {
	case models.StageAddress:
		return c.handleAddress(ctx, s, in)
	case models.StageConfirmAddress:
		return c.handleConfirmAddress(ctx, s, in)
	case models.StageSaveAddress:
		return c.handleFulfillment(ctx, s, in)
	case models.StagePaymentOptions:
		return c.handlePaymentOptions(ctx, s, in)
	case models.StagePayment:
		return c.handlePayment(ctx, s, in)
	case models.StageNotes:
		return c.handleNotes(ctx, s, in)
	default:
		return c.persistCheckout(ctx, s)
	}
}

// Stage 7: delivery address
func (c *Conversation) enterAddress(ctx context.Context, s *models.ChatSession, prefix string) (Reply, error) {
	if s.Cart.IsEmpty() {
		return c.enterCart(ctx, s, prefix)
	}
	s.Stage = models.StageAddress

	text := prefix + "📍 Where should we deliver your order? Send the full address."
	quick := []string{"Pickup"}

	customer, err := c.currentCustomer(ctx, s)
	if err != nil {
		return Reply{}, err
	}
	if customer != nil && customer.Address != "" {
		text += fmt.Sprintf("\n\nReply *1* to use your saved address: %s", customer.Address)
		quick = append([]string{"Saved address"}, quick...)
	}
	text += "\n\nReply *pickup* to collect it yourself, or *back* for the cart."
	return Reply{Text: text, QuickReplies: quick}, nil
}

func (c *Conversation) handleAddress(ctx context.Context, s *models.ChatSession, in input) (Reply, error) {
	switch {
	case isBack(in):
		return c.enterCart(ctx, s, "")
	case matches(in, "pickup", "pick up", "recoger"):
		s.Checkout.Fulfillment = models.FulfillmentPickup
		s.Checkout.DeliveryAddress = ""
		return c.enterPaymentOptions(s, "🏃 Pickup it is.\n\n"), nil
	}

	address := in.raw
	if matches(in, "1", "saved address") {
		customer, err := c.currentCustomer(ctx, s)
		if err != nil {
			return Reply{}, err
		}
		if customer == nil || customer.Address == "" {
			return c.enterAddress(ctx, s, "❌ You don't have a saved address yet.\n\n")
		}
		address = customer.Address
	}

	if len(address) < minAddressLength {
		return c.enterAddress(ctx, s, "❌ That address looks too short. Please include street and number.\n\n")
	}

	s.Checkout.DeliveryAddress = address
	s.Stage = models.StageConfirmAddress
	return Reply{
		Text:         fmt.Sprintf("📍 Deliver to:\n*%s*\n\nIs that right? Reply *yes* or *no*.", address),
		QuickReplies: []string{"Yes", "No"},
	}, nil
}

// Stage 8: confirm the address and remember it on the customer
func (c *Conversation) handleConfirmAddress(ctx context.Context, s *models.ChatSession, in input) (Reply, error) {
	switch {
	case isYes(in):
		if err := c.rememberAddress(ctx, s); err != nil {
			return Reply{}, err
		}
		return c.enterFulfillment(s), nil
	case isNo(in), isBack(in):
		s.Checkout.DeliveryAddress = ""
		return c.enterAddress(ctx, s, "")
	}
	return Reply{
		Text:         fmt.Sprintf("Please reply *yes* to deliver to %s or *no* to change it.", s.Checkout.DeliveryAddress),
		QuickReplies: []string{"Yes", "No"},
	}, nil
}

func (c *Conversation) rememberAddress(ctx context.Context, s *models.ChatSession) error {
	customer, err := c.currentCustomer(ctx, s)
	if err != nil || customer == nil {
		return err
	}
	if customer.Address == s.Checkout.DeliveryAddress {
		return nil
	}
	customer.Address = s.Checkout.DeliveryAddress
	if err := c.customers.UpdateCustomer(ctx, customer); err != nil {
		return fmt.Errorf("failed to save customer address: %w", err)
	}
	return nil
}

// Stage 9: delivery or pickup
func (c *Conversation) enterFulfillment(s *models.ChatSession) Reply {
	s.Stage = models.StageSaveAddress
	totals := ComputeTotals(s.Cart)
	return Reply{
		Text: fmt.Sprintf("How would you like to receive your order?\n1. 🛵 Delivery (%s)\n2. 🏃 Pickup (no delivery fee)",
			formatMoney(totals.DeliveryCost)),
		QuickReplies: []string{"Delivery", "Pickup"},
	}
}

func (c *Conversation) handleFulfillment(ctx context.Context, s *models.ChatSession, in input) (Reply, error) {
	switch {
	case matches(in, "1", "delivery", "domicilio"):
		s.Checkout.Fulfillment = models.FulfillmentDelivery
		return c.enterPaymentOptions(s, ""), nil
	case matches(in, "2", "pickup", "pick up", "recoger"):
		s.Checkout.Fulfillment = models.FulfillmentPickup
		return c.enterPaymentOptions(s, ""), nil
	case isBack(in):
		return c.enterAddress(ctx, s, "")
	}
	return c.enterFulfillment(s), nil
}

// Stage 10: list the payment methods
func (c *Conversation) enterPaymentOptions(s *models.ChatSession, prefix string) Reply {
	s.Stage = models.StagePaymentOptions
	labels := make([]string, len(paymentMethods))
	for i, m := range paymentMethods {
		labels[i] = m.Label
	}
	return Reply{
		Text:         prefix + "💰 How would you like to pay?\n\n" + numbered(labels),
		QuickReplies: []string{"Cash", "Card", "Transfer"},
	}
}

func (c *Conversation) handlePaymentOptions(ctx context.Context, s *models.ChatSession, in input) (Reply, error) {
	if isBack(in) {
		return c.enterAddress(ctx, s, "")
	}

	method := ""
	if idx, ok := parseSelection(in.lower, len(paymentMethods)); ok {
		method = paymentMethods[idx].Key
	}
	for _, m := range paymentMethods {
		if in.lower == m.Key {
			method = m.Key
		}
	}
	if method == "" {
		return c.enterPaymentOptions(s, "❌ Please choose one of the payment methods.\n\n"), nil
	}

	s.Checkout.PaymentMethod = method
	s.Stage = models.StagePayment
	return Reply{
		Text:         fmt.Sprintf("You will pay with %s. Reply *yes* to continue or *no* to change it.", paymentLabel(method)),
		QuickReplies: []string{"Yes", "No"},
	}, nil
}

// Stage 11: confirm the payment method
func (c *Conversation) handlePayment(ctx context.Context, s *models.ChatSession, in input) (Reply, error) {
	switch {
	case isYes(in):
		if s.Checkout.PaymentMethod == "" {
			return c.enterPaymentOptions(s, ""), nil
		}
		s.Stage = models.StageNotes
		return Reply{
			Text:         "📝 Any notes for the kitchen or the rider? Reply *no* to skip.",
			QuickReplies: []string{"No"},
		}, nil
	case isNo(in), isBack(in):
		s.Checkout.PaymentMethod = ""
		return c.enterPaymentOptions(s, ""), nil
	}
	return Reply{
		Text:         fmt.Sprintf("Please reply *yes* to pay with %s or *no* to change it.", paymentLabel(s.Checkout.PaymentMethod)),
		QuickReplies: []string{"Yes", "No"},
	}, nil
}

// Stage 12: free text notes
func (c *Conversation) handleNotes(ctx context.Context, s *models.ChatSession, in input) (Reply, error) {
	if isBack(in) {
		return c.enterPaymentOptions(s, ""), nil
	}
	if isSkip(in) {
		s.Checkout.Notes = ""
	} else {
		if len(in.raw) > maxNotesLength {
			return Reply{Text: fmt.Sprintf("❌ Notes can be at most %d characters. Please shorten them or reply *no*.", maxNotesLength)}, nil
		}
		s.Checkout.Notes = in.raw
	}
	return c.persistCheckout(ctx, s)
}

// Stage 13: validate and keep the checkout bag, then show the summary
func (c *Conversation) persistCheckout(ctx context.Context, s *models.ChatSession) (Reply, error) {
	s.Stage = models.StageCheckoutSaved
	switch s.Checkout.Missing() {
	case models.StageAddress:
		return c.enterAddress(ctx, s, "")
	case models.StagePayment:
		return c.enterPaymentOptions(s, ""), nil
	}

	if err := ensureOrderNumber(s); err != nil {
		return Reply{}, err
	}
	s.Checkout.Saved = true
	return c.enterSummary(ctx, s)
}

// ensureOrderNumber reserves the order number once per saved checkout
func ensureOrderNumber(s *models.ChatSession) error {
	if s.Checkout.OrderNumber != "" {
		return nil
	}
	number, err := utils.GenerateSecureCode("ORD", 6)
	if err != nil {
		return err
	}
	s.Checkout.OrderNumber = number
	return nil
}

// Stage 14: final summary, guarded by gate 3
func (c *Conversation) enterSummary(ctx context.Context, s *models.ChatSession) (Reply, error) {
	if s.Cart.IsEmpty() {
		return c.enterCart(ctx, s, "")
	}
	if ok, notice, err := c.gate3(ctx, s); err != nil || !ok {
		if err != nil {
			return Reply{}, err
		}
		return c.enterCart(ctx, s, notice)
	}

	s.Stage = models.StageSummary

	var b strings.Builder
	b.WriteString("🧾 *Order summary*\n\n")
	b.WriteString(renderCart(s.Cart))
	if s.Checkout.Fulfillment == models.FulfillmentPickup {
		fmt.Fprintf(&b, "\n\n🏃 Pickup at the restaurant, no delivery fee.\n*To pay: %s*", formatMoney(checkoutTotals(s).Total))
	} else {
		fmt.Fprintf(&b, "\n\n🛵 Delivery to %s", s.Checkout.DeliveryAddress)
	}
	fmt.Fprintf(&b, "\n💰 Payment: %s", paymentLabel(s.Checkout.PaymentMethod))
	if s.Checkout.Notes != "" {
		fmt.Fprintf(&b, "\n📝 Notes: %s", s.Checkout.Notes)
	}
	b.WriteString("\n\n1. ✅ Confirm order\n2. ✏️ Edit cart\n3. ❌ Cancel order")

	return Reply{
		Text:         b.String(),
		QuickReplies: []string{"Confirm order", "Edit cart", "Cancel order"},
		Payload:      newCartPayload(s.Cart),
	}, nil
}

func (c *Conversation) handleSummary(ctx context.Context, s *models.ChatSession, in input) (Reply, error) {
	if s.Cart.IsEmpty() {
		return c.enterCart(ctx, s, "")
	}

	switch {
	case matches(in, "1", "confirm", "confirm order", "yes"):
		ok, notice, err := c.gate3(ctx, s)
		if err != nil {
			return Reply{}, err
		}
		if !ok {
			return c.enterCart(ctx, s, notice)
		}
		s.Stage = models.StageCommit
		return c.commitOrder(ctx, s)
	case matches(in, "2", "edit", "edit cart"):
		return c.enterCart(ctx, s, "")
	case matches(in, "3", "cancel", "cancel order"):
		return c.cancelOrder(s), nil
	}
	return c.enterSummary(ctx, s)
}

// gate3 re-checks the venue and every cart line. Unavailable lines are
// dropped from the cart so the user sees what is left.
func (c *Conversation) gate3(ctx context.Context, s *models.ChatSession) (bool, string, error) {
	open, err := c.validators.VenueOpen(ctx)
	if err != nil {
		return false, "", err
	}
	if !open.OK {
		return false, "🕒 " + open.Reason + " We can't place your order right now, your cart is saved.\n\n", nil
	}

	var removed []string
	cart := s.Cart
	for _, line := range s.Cart.Lines {
		check, _, err := c.validators.ItemActive(ctx, line.ItemID)
		if err != nil {
			return false, "", err
		}
		if !check.OK {
			removed = append(removed, line.Name)
			cart = RemoveLine(cart, line.ItemID)
		}
	}
	if len(removed) > 0 {
		updateCart(s, cart)
		return false, fmt.Sprintf("⚠️ These items are no longer available and were removed from your cart: %s.\n\n",
			strings.Join(removed, ", ")), nil
	}
	return true, "", nil
}

// checkoutTotals is the cart total, without delivery for pickup orders
func checkoutTotals(s *models.ChatSession) models.Totals {
	totals := ComputeTotals(s.Cart)
	if s.Checkout.Fulfillment == models.FulfillmentPickup {
		totals.DeliveryCost = 0
		totals.Total = totals.Subtotal
	}
	return totals
}

// Stage 15: commit
func (c *Conversation) handleCommit(ctx context.Context, s *models.ChatSession, in input) (Reply, error) {
	if s.CustomerID == nil {
		s.Stage = models.StageIdentify
		s.IsRegistered = false
		return c.promptPhone(in, "📞 We need your phone number before placing the order."), nil
	}

	switch {
	case isYes(in):
		if s.Cart.IsEmpty() {
			Reset(s)
			return emptyCartReply(""), nil
		}
		ok, notice, err := c.gate3(ctx, s)
		if err != nil {
			return Reply{}, err
		}
		if !ok {
			return c.enterCart(ctx, s, notice)
		}
		return c.commitOrder(ctx, s)
	case isNo(in), isCancel(in):
		return c.cancelOrder(s), nil
	}

	totals := checkoutTotals(s)
	return Reply{
		Text:         fmt.Sprintf("Reply *yes* to place your order for %s or *no* to cancel it.", formatMoney(totals.Total)),
		QuickReplies: []string{"Yes", "No"},
	}, nil
}

func (c *Conversation) cancelOrder(s *models.ChatSession) Reply {
	s.Cart = ClearCart(s.Cart)
	Reset(s)
	return Reply{
		Text:         "❌ Your order was cancelled and the cart cleared.\n\nSay *hi* whenever you want to start again.",
		QuickReplies: []string{"Hi"},
	}
}

// commitOrder places the order from the cart snapshot. On failure the
// session is untouched and the error wraps ErrCommitFailed.
func (c *Conversation) commitOrder(ctx context.Context, s *models.ChatSession) (Reply, error) {
	if s.CustomerID == nil {
		s.Stage = models.StageIdentify
		s.IsRegistered = false
		return Reply{Text: "📞 We need your 10-digit phone number before placing the order."}, nil
	}
	if err := ensureOrderNumber(s); err != nil {
		return Reply{}, err
	}

	totals := checkoutTotals(s)
	order := &models.Order{
		OrderNumber:     s.Checkout.OrderNumber,
		CustomerID:      *s.CustomerID,
		Status:          models.OrderStatusReceived,
		Fulfillment:     s.Checkout.Fulfillment,
		DeliveryAddress: s.Checkout.DeliveryAddress,
		PaymentMethod:   s.Checkout.PaymentMethod,
		Notes:           s.Checkout.Notes,
		Subtotal:        totals.Subtotal,
		DeliveryCost:    totals.DeliveryCost,
		Total:           totals.Total,
	}
	if order.Fulfillment == "" {
		order.Fulfillment = models.FulfillmentDelivery
	}
	for _, line := range s.Cart.Lines {
		order.Items = append(order.Items, models.OrderItem{
			MenuItemID: line.ItemID,
			Name:       line.Name,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			Subtotal:   line.Subtotal,
		})
	}

	placed, err := c.orders.CreateOrder(ctx, order)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	c.logger.Info("Order placed",
		zap.String("order_number", placed.OrderNumber),
		zap.Uint("customer_id", placed.CustomerID),
		zap.Float64("total", placed.Total))

	phone := s.Phone
	c.notifyAsync("order_confirmed", func(ctx context.Context, n Notifier) error {
		return n.OrderPlaced(ctx, phone, placed)
	})

	s.Cart = ClearCart(s.Cart)
	Reset(s)

	return Reply{
		Text: fmt.Sprintf("🎉 Order *%s* confirmed!\n\nTotal: *%s*\n\nWe'll let you know when it's on its way. Say *hi* to start a new order.",
			placed.OrderNumber, formatMoney(placed.Total)),
		QuickReplies: []string{"Hi"},
		Payload: map[string]interface{}{
			"order_id":     placed.ID,
			"order_number": placed.OrderNumber,
			"total":        placed.Total,
		},
	}, nil
}

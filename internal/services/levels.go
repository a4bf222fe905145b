package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Ananth-NQI/tablepe-backend/internal/models"
	"github.com/Ananth-NQI/tablepe-backend/internal/utils"
)

// Stage 0: greeting and the first venue-open gate.
func (c *Conversation) handleGreeting(ctx context.Context, s *models.ChatSession, in input) (Reply, error) {
	check, err := c.validators.VenueOpen(ctx)
	if err != nil {
		return Reply{}, err
	}

	if !check.OK {
		if wantsReservation(in) || in.lower == "2" {
			return c.startReservation(ctx, s, in)
		}
		return Reply{
			Text: fmt.Sprintf("👋 Welcome to *%s*!\n\n🕒 %s\n\nYou can still book a table for later.\nReply *2* or *reserve* to make a reservation.",
				c.opts.RestaurantName, check.Reason),
			QuickReplies: []string{"Reserve a table"},
		}, nil
	}

	s.Stage = models.StageIdentify
	if s.IsRegistered {
		return c.mainOptions(fmt.Sprintf("👋 Welcome back to *%s*!", c.opts.RestaurantName)), nil
	}
	return c.promptPhone(in, fmt.Sprintf("👋 Welcome to *%s*!", c.opts.RestaurantName)), nil
}

func (c *Conversation) promptPhone(in input, header string) Reply {
	text := header + "\n\n📞 Please send your 10-digit mobile number so we can find your account."
	if hint, err := utils.NormalizePhone(in.phone, c.opts.CountryCode); err == nil {
		text += fmt.Sprintf("\n\nReply *yes* to use %s or type another number.", utils.MaskPhone(hint))
		return Reply{Text: text, QuickReplies: []string{"Yes"}}
	}
	return Reply{Text: text}
}

func (c *Conversation) mainOptions(header string) Reply {
	return Reply{
		Text:         header + "\n\nWhat would you like to do?\n1. 🍽️ Order food\n2. 📅 Reserve a table",
		QuickReplies: []string{"Order food", "Reserve a table"},
	}
}

// Stage 1: capture the phone, resolve the customer, then choose a path.
func (c *Conversation) handleIdentify(ctx context.Context, s *models.ChatSession, in input) (Reply, error) {
	if !s.IsRegistered {
		raw := in.raw
		if isYes(in) && in.phone != "" {
			raw = in.phone
		}
		phone, err := utils.NormalizePhone(raw, c.opts.CountryCode)
		if err != nil {
			return Reply{
				Text: fmt.Sprintf("❌ Invalid phone number: %s.\n\nPlease send your 10-digit mobile number, for example 3012345678.", err.Error()),
			}, nil
		}

		customer, err := c.resolveCustomer(ctx, phone)
		if err != nil {
			return Reply{}, err
		}
		attachCustomer(s, customer)
		if s.ReservationRequested {
			return c.startReservation(ctx, s, in)
		}
		return c.mainOptions(fmt.Sprintf("✅ Thanks, %s!", customer.Name)), nil
	}

	switch {
	case matches(in, "1", "order", "order food", "menu"):
		return c.enterCategories(ctx, s, "")
	case wantsReservation(in) || in.lower == "2":
		return c.startReservation(ctx, s, in)
	}
	return c.mainOptions("Please choose one of the options."), nil
}

// Stage 2: categories.
func (c *Conversation) enterCategories(ctx context.Context, s *models.ChatSession, prefix string) (Reply, error) {
	categories, err := c.catalog.ListCategories(ctx)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to list categories: %w", err)
	}

	s.Stage = models.StageCategories
	s.ClearBrowsing()

	if len(categories) == 0 {
		return Reply{
			Text:         prefix + "😔 Our menu is empty right now. Reply *cart* to see your cart or *reserve* to book a table.",
			QuickReplies: []string{"Cart"},
		}, nil
	}

	names := make([]string, len(categories))
	for i, cat := range categories {
		names[i] = cat.Name
	}
	return Reply{
		Text:         prefix + "📋 *Our Menu*\n\n" + numbered(names) + "\n\nReply with a number to open a category, or *cart* to view your cart.",
		QuickReplies: names,
		Payload:      categories,
	}, nil
}

func (c *Conversation) handleCategories(ctx context.Context, s *models.ChatSession, in input) (Reply, error) {
	if isCartCommand(in) {
		return c.enterCart(ctx, s, "")
	}
	if wantsReservation(in) {
		return c.startReservation(ctx, s, in)
	}

	categories, err := c.catalog.ListCategories(ctx)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to list categories: %w", err)
	}
	idx, ok := parseSelection(in.lower, len(categories))
	if !ok {
		return c.enterCategories(ctx, s, "❌ Please choose a number from the list.\n\n")
	}

	s.SelectedCategoryID = models.UintPtr(categories[idx].ID)
	return c.enterSubcategories(ctx, s, "")
}

// Stage 3: subcategories of the selected category.
func (c *Conversation) enterSubcategories(ctx context.Context, s *models.ChatSession, prefix string) (Reply, error) {
	if s.SelectedCategoryID == nil {
		return c.enterCategories(ctx, s, prefix)
	}
	subcategories, err := c.catalog.ListSubcategories(ctx, *s.SelectedCategoryID)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to list subcategories: %w", err)
	}
	if len(subcategories) == 0 {
		return c.enterCategories(ctx, s, "😔 There is nothing in that category right now.\n\n")
	}

	s.Stage = models.StageSubcategories
	s.SelectedSubcategoryID = nil
	s.PendingItemID = nil

	names := make([]string, len(subcategories))
	for i, sub := range subcategories {
		names[i] = sub.Name
	}
	return Reply{
		Text:         prefix + numbered(names) + "\n\nReply with a number, or *back* for the categories.",
		QuickReplies: names,
		Payload:      subcategories,
	}, nil
}

func (c *Conversation) handleSubcategories(ctx context.Context, s *models.ChatSession, in input) (Reply, error) {
	if s.SelectedCategoryID == nil {
		return c.enterCategories(ctx, s, "")
	}
	if isBack(in) {
		return c.enterCategories(ctx, s, "")
	}
	if isCartCommand(in) {
		return c.enterCart(ctx, s, "")
	}

	subcategories, err := c.catalog.ListSubcategories(ctx, *s.SelectedCategoryID)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to list subcategories: %w", err)
	}
	idx, ok := parseSelection(in.lower, len(subcategories))
	if !ok {
		return c.enterSubcategories(ctx, s, "❌ Please choose a number from the list.\n\n")
	}

	s.SelectedSubcategoryID = models.UintPtr(subcategories[idx].ID)
	return c.enterItems(ctx, s, "")
}

// Stage 4: items of the selected subcategory.
func (c *Conversation) enterItems(ctx context.Context, s *models.ChatSession, prefix string) (Reply, error) {
	if s.SelectedCategoryID == nil || s.SelectedSubcategoryID == nil {
		return c.enterSubcategories(ctx, s, prefix)
	}
	items, err := c.catalog.ListItems(ctx, *s.SelectedCategoryID, *s.SelectedSubcategoryID)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to list items: %w", err)
	}
	if len(items) == 0 {
		return c.enterSubcategories(ctx, s, prefix+"😔 Nothing is available there right now.\n\n")
	}

	s.Stage = models.StageItems
	s.PendingItemID = nil

	lines := make([]string, len(items))
	names := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("%s - %s", item.Name, formatMoney(item.Price))
		names[i] = item.Name
	}
	return Reply{
		Text:         prefix + numbered(lines) + "\n\nReply with a number to add it, *back* for the previous list, or *cart*.",
		QuickReplies: names,
		Payload:      items,
	}, nil
}

func (c *Conversation) handleItems(ctx context.Context, s *models.ChatSession, in input) (Reply, error) {
	if s.SelectedSubcategoryID == nil {
		return c.enterSubcategories(ctx, s, "")
	}
	if isBack(in) {
		return c.enterSubcategories(ctx, s, "")
	}
	if isCartCommand(in) {
		return c.enterCart(ctx, s, "")
	}

	items, err := c.catalog.ListItems(ctx, *s.SelectedCategoryID, *s.SelectedSubcategoryID)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to list items: %w", err)
	}
	idx, ok := parseSelection(in.lower, len(items))
	if !ok {
		return c.enterItems(ctx, s, "❌ Please choose a number from the list.\n\n")
	}

	s.PendingItemID = models.UintPtr(items[idx].ID)
	return c.enterItemDetail(ctx, s, "")
}

// Stage 5: item detail and quantity.
func (c *Conversation) enterItemDetail(ctx context.Context, s *models.ChatSession, prefix string) (Reply, error) {
	if s.PendingItemID == nil {
		return c.enterItems(ctx, s, prefix)
	}
	check, item, err := c.validators.ItemActive(ctx, *s.PendingItemID)
	if err != nil {
		return Reply{}, err
	}
	if !check.OK {
		s.PendingItemID = nil
		return c.enterItems(ctx, s, "⚠️ "+check.Reason+"\n\n")
	}

	s.Stage = models.StageItemDetail

	var b strings.Builder
	fmt.Fprintf(&b, "%s🍽️ *%s*\n", prefix, item.Name)
	if item.Description != "" {
		fmt.Fprintf(&b, "%s\n", item.Description)
	}
	fmt.Fprintf(&b, "\nPrice: %s\n", formatMoney(item.Price))
	if item.DeliveryCost > 0 {
		fmt.Fprintf(&b, "Delivery: %s\n", formatMoney(item.DeliveryCost))
	}
	b.WriteString("\nHow many would you like? Reply with a number, or *back*.")

	return Reply{Text: b.String(), QuickReplies: []string{"1", "2", "3"}, Payload: item}, nil
}

func (c *Conversation) handleItemDetail(ctx context.Context, s *models.ChatSession, in input) (Reply, error) {
	if s.PendingItemID == nil {
		return c.enterItems(ctx, s, "")
	}
	if isBack(in) {
		s.PendingItemID = nil
		return c.enterItems(ctx, s, "")
	}

	qty, err := strconv.Atoi(in.raw)
	if err != nil || qty <= 0 {
		return Reply{
			Text:         "❌ Please reply with a quantity of at least 1, for example *2*. Reply *back* to choose another dish.",
			QuickReplies: []string{"1", "2", "3"},
		}, nil
	}
	if qty > c.opts.MaxQuantity {
		return Reply{
			Text: fmt.Sprintf("❌ You can order up to %d at a time. Please send a smaller quantity.", c.opts.MaxQuantity),
		}, nil
	}

	// Gate 2: the conversation may have been paused since the item was shown
	open, err := c.validators.VenueOpen(ctx)
	if err != nil {
		return Reply{}, err
	}
	if !open.OK {
		s.PendingItemID = nil
		return c.enterItems(ctx, s, "🕒 "+open.Reason+" We can't take orders right now.\n\n")
	}
	check, item, err := c.validators.ItemActive(ctx, *s.PendingItemID)
	if err != nil {
		return Reply{}, err
	}
	if !check.OK {
		s.PendingItemID = nil
		return c.enterItems(ctx, s, "⚠️ "+check.Reason+" Please choose something else.\n\n")
	}

	cart, applied := AddToCart(s.Cart, item, qty, in.messageID)
	updateCart(s, cart)
	s.PendingItemID = nil
	if !applied {
		c.logger.Debug("Duplicate add ignored", zap.String("session_key", s.SessionKey), zap.String("message_id", in.messageID))
	}
	return c.enterCart(ctx, s, fmt.Sprintf("✅ Added %d x %s to your cart.\n\n", qty, item.Name))
}

// Stage 6: cart view.
func (c *Conversation) enterCart(ctx context.Context, s *models.ChatSession, prefix string) (Reply, error) {
	s.Stage = models.StageCart
	s.PendingItemID = nil

	if s.Cart.IsEmpty() {
		return emptyCartReply(prefix), nil
	}
	return Reply{
		Text: prefix + "🛒 *Your cart*\n\n" + renderCart(s.Cart) +
			"\n\n1. ✅ Checkout\n2. 🍽️ Keep browsing\n3. 🗑️ Clear cart\n\nTo change a quantity reply *set <line> <qty>* (0 removes the line).",
		QuickReplies: []string{"Checkout", "Keep browsing", "Clear cart"},
		Payload:      newCartPayload(s.Cart),
	}, nil
}

func emptyCartReply(prefix string) Reply {
	return Reply{
		Text:         prefix + "🛒 Your cart is empty, there is nothing to order yet.\n\n1. 🍽️ Browse the menu\n2. 📅 Reserve a table",
		QuickReplies: []string{"Browse the menu", "Reserve a table"},
		Payload:      newCartPayload(models.Cart{}),
	}
}

func (c *Conversation) handleCart(ctx context.Context, s *models.ChatSession, in input) (Reply, error) {
	if s.Cart.IsEmpty() {
		switch {
		case matches(in, "1", "menu", "browse", "browse the menu"):
			return c.enterCategories(ctx, s, "")
		case wantsReservation(in) || in.lower == "2":
			return c.startReservation(ctx, s, in)
		}
		return c.enterCart(ctx, s, "")
	}

	switch {
	case matches(in, "1", "checkout"):
		return c.enterAddress(ctx, s, "")
	case matches(in, "2", "browse", "keep browsing"):
		return c.enterCategories(ctx, s, "")
	case matches(in, "3", "clear", "clear cart"):
		updateCart(s, ClearCart(s.Cart))
		return c.enterCart(ctx, s, "🗑️ Your cart was cleared.\n\n")
	case strings.HasPrefix(in.lower, "set "):
		return c.handleSetQuantity(ctx, s, in)
	}
	return c.enterCart(ctx, s, "Please choose one of the options.\n\n")
}

// handleSetQuantity parses "set <line> <qty>"
func (c *Conversation) handleSetQuantity(ctx context.Context, s *models.ChatSession, in input) (Reply, error) {
	fields := strings.Fields(in.lower)
	if len(fields) != 3 {
		return c.enterCart(ctx, s, "❌ Use *set <line> <qty>*, for example *set 1 3*.\n\n")
	}
	idx, ok := parseSelection(fields[1], len(s.Cart.Lines))
	qty, err := strconv.Atoi(fields[2])
	if !ok || err != nil || qty < 0 || qty > c.opts.MaxQuantity {
		return c.enterCart(ctx, s, "❌ Use *set <line> <qty>*, for example *set 1 3*.\n\n")
	}

	line := s.Cart.Lines[idx]
	updateCart(s, SetQuantity(s.Cart, line.ItemID, qty))
	if qty == 0 {
		return c.enterCart(ctx, s, fmt.Sprintf("🗑️ Removed %s.\n\n", line.Name))
	}
	return c.enterCart(ctx, s, fmt.Sprintf("✅ %s quantity set to %d.\n\n", line.Name, qty))
}

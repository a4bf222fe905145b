package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Ananth-NQI/tablepe-backend/internal/models"
	"github.com/Ananth-NQI/tablepe-backend/internal/storage"
	"github.com/Ananth-NQI/tablepe-backend/internal/utils"
)

// startReservation opens the reservation form. A booking needs an identity,
// taken from the phone hint when possible.
func (c *Conversation) startReservation(ctx context.Context, s *models.ChatSession, in input) (Reply, error) {
	if !s.IsRegistered {
		phone, err := utils.NormalizePhone(in.phone, c.opts.CountryCode)
		if err != nil {
			s.Stage = models.StageIdentify
			s.ReservationRequested = true
			return Reply{Text: "📅 To book a table we first need your 10-digit mobile number, for example 3012345678."}, nil
		}
		customer, err := c.resolveCustomer(ctx, phone)
		if err != nil {
			return Reply{}, err
		}
		attachCustomer(s, customer)
	}

	s.ClearBrowsing()
	s.ReservationRequested = false
	s.Reservation = &models.ReservationDraft{Step: models.ReservationStepDate}
	return datePrompt(""), nil
}

func datePrompt(prefix string) Reply {
	return Reply{
		Text:         prefix + "📅 *Table reservation*\n\nWhich day would you like to come? Send *today*, *tomorrow* or a date like 2024-12-24.\n\nReply *cancel* at any time to stop.",
		QuickReplies: []string{"Today", "Tomorrow"},
	}
}

func timePrompt(prefix string, d *models.ReservationDraft) Reply {
	return Reply{
		Text: fmt.Sprintf("%s🕒 What time on %s? For example 19:30 or 7:30pm.", prefix, d.Date),
	}
}

func (c *Conversation) partyPrompt(prefix string) Reply {
	return Reply{
		Text:         fmt.Sprintf("%s👥 How many people? (1-%d)", prefix, c.opts.MaxPartySize),
		QuickReplies: []string{"2", "4", "6"},
	}
}

func notesPrompt(prefix string) Reply {
	return Reply{
		Text:         prefix + "📝 Any special request, like a birthday or a high chair? Reply *no* to skip or *back* to pick another table.",
		QuickReplies: []string{"No"},
	}
}

// handleReservation runs one step of the form. The step only moves forward
// on valid input; anything else re-renders the current prompt.
func (c *Conversation) handleReservation(ctx context.Context, s *models.ChatSession, d *models.ReservationDraft, in input) (Reply, error) {
	if isCancel(in) {
		return c.cancelReservation(s), nil
	}

	switch d.Step {
	case models.ReservationStepDate:
		return c.reservationDate(d, in), nil
	case models.ReservationStepTime:
		return c.reservationTime(ctx, d, in)
	case models.ReservationStepParty:
		return c.reservationParty(ctx, d, in)
	case models.ReservationStepTable:
		return c.reservationTable(ctx, d, in)
	case models.ReservationStepNotes:
		return c.reservationNotes(ctx, s, d, in)
	case models.ReservationStepSummary, models.ReservationStepCommit:
		return c.reservationConfirm(ctx, s, d, in)
	}

	c.logger.Warn("Unknown reservation step, restarting form",
		zap.String("session_key", s.SessionKey),
		zap.Int("step", d.Step))
	s.Reservation = &models.ReservationDraft{Step: models.ReservationStepDate}
	return datePrompt("⚠️ Let's start your reservation again.\n\n"), nil
}

// Step 1
func (c *Conversation) reservationDate(d *models.ReservationDraft, in input) Reply {
	now := c.validators.Now()
	date, ok := parseDate(in, now)
	if !ok {
		return datePrompt("❌ I couldn't read that date.\n\n")
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if date.Before(today) {
		return datePrompt("❌ That date has already passed.\n\n")
	}
	if date.After(today.Add(c.opts.BookingHorizon)) {
		return datePrompt(fmt.Sprintf("❌ We take bookings up to %d days ahead.\n\n", int(c.opts.BookingHorizon.Hours()/24)))
	}

	d.Date = date.Format("2006-01-02")
	d.Step = models.ReservationStepTime
	return timePrompt("", d)
}

// Step 2
func (c *Conversation) reservationTime(ctx context.Context, d *models.ReservationDraft, in input) (Reply, error) {
	if isBack(in) {
		d.Step = models.ReservationStepDate
		return datePrompt(""), nil
	}
	hhmm, ok := parseTimeOfDay(in)
	if !ok {
		return timePrompt("❌ I couldn't read that time.\n\n", d), nil
	}

	loc := c.validators.Location()
	at, err := time.ParseInLocation("2006-01-02 15:04", d.Date+" "+hhmm, loc)
	if err != nil {
		return timePrompt("❌ I couldn't read that time.\n\n", d), nil
	}
	if !at.After(c.validators.Now()) {
		return timePrompt("❌ That time has already passed.\n\n", d), nil
	}

	open, err := c.validators.VenueOpenAt(ctx, at)
	if err != nil {
		return Reply{}, err
	}
	if !open.OK {
		return timePrompt(fmt.Sprintf("🕒 We are not open at %s on %s.\n\n", hhmm, d.Date), d), nil
	}

	d.Time = hhmm
	d.Step = models.ReservationStepParty
	return c.partyPrompt(""), nil
}

// Step 3
func (c *Conversation) reservationParty(ctx context.Context, d *models.ReservationDraft, in input) (Reply, error) {
	if isBack(in) {
		d.Step = models.ReservationStepTime
		return timePrompt("", d), nil
	}
	idx, ok := parseSelection(in.lower, c.opts.MaxPartySize)
	if !ok {
		return c.partyPrompt(fmt.Sprintf("❌ Please send a number between 1 and %d.\n\n", c.opts.MaxPartySize)), nil
	}

	d.PartySize = idx + 1
	d.Step = models.ReservationStepTable
	return c.offerTables(ctx, d, "")
}

// offerTables lists the free tables for the draft's slot, capacity first
func (c *Conversation) offerTables(ctx context.Context, d *models.ReservationDraft, prefix string) (Reply, error) {
	tables, err := c.validators.AvailableTables(ctx, d.PartySize, d.Date, d.Time)
	if err != nil {
		return Reply{}, err
	}

	d.TableID = 0
	d.TableLabel = ""
	d.OfferedTables = d.OfferedTables[:0]
	if len(tables) == 0 {
		d.OfferedTables = nil
		return noTablesReply(prefix, d), nil
	}

	lines := make([]string, len(tables))
	for i, t := range tables {
		d.OfferedTables = append(d.OfferedTables, t.ID)
		lines[i] = describeTable(t)
	}
	return Reply{
		Text:    prefix + fmt.Sprintf("🪑 Free tables for %d on %s at %s:\n\n", d.PartySize, d.Date, d.Time) + numbered(lines) + "\n\nReply with a number, or *back* to pick another date.",
		Payload: tables,
	}, nil
}

func describeTable(t models.DiningTable) string {
	if t.Location != "" {
		return fmt.Sprintf("Table %s (%d seats, %s)", t.Label, t.Capacity, t.Location)
	}
	return fmt.Sprintf("Table %s (%d seats)", t.Label, t.Capacity)
}

func noTablesReply(prefix string, d *models.ReservationDraft) Reply {
	return Reply{
		Text: prefix + fmt.Sprintf("😔 We have no free table for %d on %s at %s.\n\n1. 📅 Try another date\n2. 🕒 Try another time\n\nOr reply *cancel*.",
			d.PartySize, d.Date, d.Time),
		QuickReplies: []string{"Another date", "Another time", "Cancel"},
	}
}

// Step 4
func (c *Conversation) reservationTable(ctx context.Context, d *models.ReservationDraft, in input) (Reply, error) {
	if len(d.OfferedTables) == 0 {
		switch {
		case matches(in, "1", "another date"):
			d.Step = models.ReservationStepDate
			return datePrompt(""), nil
		case matches(in, "2", "another time"):
			d.Step = models.ReservationStepTime
			return timePrompt("", d), nil
		}
		return c.offerTables(ctx, d, "")
	}

	if isBack(in) {
		d.OfferedTables = nil
		d.Step = models.ReservationStepDate
		return datePrompt(""), nil
	}

	idx, ok := parseSelection(in.lower, len(d.OfferedTables))
	if !ok {
		return c.offerTables(ctx, d, "❌ Please choose a table number from the list.\n\n")
	}

	table, err := c.tables.GetTable(ctx, d.OfferedTables[idx])
	if errors.Is(err, storage.ErrNotFound) {
		return c.offerTables(ctx, d, "😔 That table is no longer available.\n\n")
	}
	if err != nil {
		return Reply{}, fmt.Errorf("failed to load table: %w", err)
	}

	check, err := c.validators.SlotAvailable(ctx, table, d.PartySize, d.Date, d.Time)
	if err != nil {
		return Reply{}, err
	}
	if !check.OK {
		return c.offerTables(ctx, d, "😔 "+check.Reason+"\n\n")
	}

	d.TableID = table.ID
	d.TableLabel = table.Label
	d.Step = models.ReservationStepNotes
	return notesPrompt(fmt.Sprintf("✅ Table %s it is.\n\n", table.Label)), nil
}

// Step 5
func (c *Conversation) reservationNotes(ctx context.Context, s *models.ChatSession, d *models.ReservationDraft, in input) (Reply, error) {
	if isBack(in) {
		d.Step = models.ReservationStepTable
		return c.offerTables(ctx, d, "")
	}
	if isSkip(in) {
		d.Notes = ""
	} else {
		if len(in.raw) > maxNotesLength {
			return notesPrompt(fmt.Sprintf("❌ Requests can be at most %d characters.\n\n", maxNotesLength)), nil
		}
		d.Notes = in.raw
	}
	d.Step = models.ReservationStepSummary
	return c.reservationSummary(ctx, s, d, "")
}

// Step 6
func (c *Conversation) reservationSummary(ctx context.Context, s *models.ChatSession, d *models.ReservationDraft, prefix string) (Reply, error) {
	if err := c.fillReservationContact(ctx, s, d); err != nil {
		return Reply{}, err
	}
	if err := ensureReservationNumber(d); err != nil {
		return Reply{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s📋 *Reservation summary*\n\n", prefix)
	fmt.Fprintf(&b, "📅 Date: %s\n🕒 Time: %s\n👥 People: %d\n🪑 Table: %s\n", d.Date, d.Time, d.PartySize, d.TableLabel)
	fmt.Fprintf(&b, "👤 Name: %s\n📞 Phone: %s\n", d.CustomerName, d.CustomerPhone)
	if d.Notes != "" {
		fmt.Fprintf(&b, "📝 Notes: %s\n", d.Notes)
	}
	b.WriteString("\nConfirm the reservation? Reply *yes* or *no*.")
	return Reply{Text: b.String(), QuickReplies: []string{"Yes", "No"}, Payload: d}, nil
}

// ensureReservationNumber reserves the confirmation code once per draft
func ensureReservationNumber(d *models.ReservationDraft) error {
	if d.ReservationNumber != "" {
		return nil
	}
	number, err := utils.GenerateSecureCode("RES", 6)
	if err != nil {
		return err
	}
	d.ReservationNumber = number
	return nil
}

// fillReservationContact defaults the contact details from the session
func (c *Conversation) fillReservationContact(ctx context.Context, s *models.ChatSession, d *models.ReservationDraft) error {
	if d.CustomerPhone == "" {
		d.CustomerPhone = s.Phone
	}
	if d.CustomerName != "" {
		return nil
	}
	customer, err := c.currentCustomer(ctx, s)
	if err != nil {
		return err
	}
	if customer != nil {
		d.CustomerName = customer.Name
	} else {
		d.CustomerName = models.DefaultCustomerName(d.CustomerPhone)
	}
	return nil
}

// Steps 6 and 7: explicit confirmation, then commit or cancel
func (c *Conversation) reservationConfirm(ctx context.Context, s *models.ChatSession, d *models.ReservationDraft, in input) (Reply, error) {
	switch {
	case isYes(in):
		d.Step = models.ReservationStepCommit
		return c.commitReservation(ctx, s, d)
	case isNo(in):
		return c.cancelReservation(s), nil
	}
	return c.reservationSummary(ctx, s, d, "Please reply *yes* or *no*.\n\n")
}

func (c *Conversation) cancelReservation(s *models.ChatSession) Reply {
	Reset(s)
	return Reply{
		Text:         "❌ Reservation cancelled. Say *hi* whenever you want to start again.",
		QuickReplies: []string{"Hi"},
	}
}

// commitReservation books the table. The reservation number is saved on the
// draft with the summary, so a retried commit cannot book twice.
func (c *Conversation) commitReservation(ctx context.Context, s *models.ChatSession, d *models.ReservationDraft) (Reply, error) {
	if d.TableID == 0 || d.Date == "" || d.Time == "" || d.PartySize == 0 {
		d.Step = models.ReservationStepDate
		return datePrompt("⚠️ Some details were missing, let's start again.\n\n"), nil
	}
	if err := c.fillReservationContact(ctx, s, d); err != nil {
		return Reply{}, err
	}
	if err := ensureReservationNumber(d); err != nil {
		return Reply{}, err
	}

	reservation := &models.Reservation{
		ReservationNumber: d.ReservationNumber,
		CustomerID:        s.CustomerID,
		TableID:           d.TableID,
		Date:              d.Date,
		Time:              d.Time,
		PartySize:         d.PartySize,
		Notes:             d.Notes,
		CustomerName:      d.CustomerName,
		CustomerPhone:     d.CustomerPhone,
		Status:            models.ReservationStatusConfirmed,
	}

	booked, err := c.tables.CreateReservation(ctx, reservation, storage.ReservationWindow)
	if errors.Is(err, storage.ErrConflict) {
		c.logger.Info("Reservation slot taken at commit",
			zap.Uint("table_id", d.TableID),
			zap.String("date", d.Date),
			zap.String("time", d.Time))
		label := d.TableLabel
		d.ReservationNumber = ""
		d.Step = models.ReservationStepTable
		return c.offerTables(ctx, d, fmt.Sprintf("😔 Table %s was just booked by someone else.\n\n", label))
	}
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	c.logger.Info("Reservation confirmed",
		zap.String("reservation_number", booked.ReservationNumber),
		zap.Uint("table_id", booked.TableID),
		zap.String("date", booked.Date),
		zap.String("time", booked.Time))

	phone := d.CustomerPhone
	c.notifyAsync("reservation_confirmed", func(ctx context.Context, n Notifier) error {
		return n.ReservationConfirmed(ctx, phone, booked)
	})

	Reset(s)
	return Reply{
		Text: fmt.Sprintf("🎉 Your table is booked!\n\nConfirmation code: *%s*\n📅 %s at %s\n👥 %d people\n🪑 Table %s\n\nSee you soon!",
			booked.ReservationNumber, booked.Date, booked.Time, booked.PartySize, d.TableLabel),
		QuickReplies: []string{"Hi"},
		Payload: map[string]interface{}{
			"reservation_id":     booked.ID,
			"reservation_number": booked.ReservationNumber,
		},
	}, nil
}

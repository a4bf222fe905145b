package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ananth-NQI/tablepe-backend/internal/models"
	"github.com/Ananth-NQI/tablepe-backend/internal/storage"
)

// Clock returns the current time. Tests replace it with a fixed clock.
type Clock func() time.Time

// Validation is the outcome of a business check. Reason is shown to the user.
type Validation struct {
	OK     bool
	Reason string
}

func valid() Validation { return Validation{OK: true} }

func invalid(format string, args ...interface{}) Validation {
	return Validation{Reason: fmt.Sprintf(format, args...)}
}

// Validators holds the point-in-time availability checks
type Validators struct {
	schedule storage.ScheduleStore
	catalog  storage.CatalogStore
	tables   storage.TableStore
	location *time.Location
	now      Clock
	window   time.Duration
}

// NewValidators creates the availability checks
func NewValidators(schedule storage.ScheduleStore, catalog storage.CatalogStore, tables storage.TableStore, location *time.Location, now Clock) *Validators {
	if location == nil {
		location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Validators{
		schedule: schedule,
		catalog:  catalog,
		tables:   tables,
		location: location,
		now:      now,
		window:   storage.ReservationWindow,
	}
}

// Now returns the current time in the restaurant's timezone
func (v *Validators) Now() time.Time {
	return v.now().In(v.location)
}

// Location returns the restaurant's timezone
func (v *Validators) Location() *time.Location {
	return v.location
}

// VenueOpen checks the weekly schedule against the current time
func (v *Validators) VenueOpen(ctx context.Context) (Validation, error) {
	return v.VenueOpenAt(ctx, v.Now())
}

// VenueOpenAt checks the weekly schedule against at. A window that closes
// after midnight keeps the venue open into the next day.
func (v *Validators) VenueOpenAt(ctx context.Context, at time.Time) (Validation, error) {
	at = at.In(v.location)
	minute := at.Hour()*60 + at.Minute()

	today, err := v.hoursFor(ctx, at.Weekday())
	if err != nil {
		return Validation{}, err
	}
	if today != nil && !today.IsClosed {
		opens, closes, err := parseWindow(today)
		if err != nil {
			return Validation{}, err
		}
		if closes > opens && minute >= opens && minute < closes {
			return valid(), nil
		}
		if closes <= opens && minute >= opens {
			return valid(), nil
		}
	}

	// Still inside yesterday's overnight window?
	yesterday, err := v.hoursFor(ctx, (at.Weekday()+6)%7)
	if err != nil {
		return Validation{}, err
	}
	if yesterday != nil && !yesterday.IsClosed {
		opens, closes, err := parseWindow(yesterday)
		if err != nil {
			return Validation{}, err
		}
		if closes <= opens && minute < closes {
			return valid(), nil
		}
	}

	return closedReason(today, minute), nil
}

func (v *Validators) hoursFor(ctx context.Context, day time.Weekday) (*models.OpeningHours, error) {
	hours, err := v.schedule.GetOpeningHours(ctx, day)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load opening hours: %w", err)
	}
	return hours, nil
}

func closedReason(today *models.OpeningHours, minute int) Validation {
	switch {
	case today == nil:
		return invalid("We are closed today.")
	case today.IsClosed && today.Note != "":
		return invalid("We are closed today: %s.", today.Note)
	case today.IsClosed:
		return invalid("We are closed today.")
	}
	opens, _, _ := parseWindow(today)
	if minute < opens {
		return invalid("We are not open yet. Today we open at %s and close at %s.", today.OpensAt, today.ClosesAt)
	}
	return invalid("We are already closed. Today's hours were %s to %s.", today.OpensAt, today.ClosesAt)
}

func parseWindow(h *models.OpeningHours) (int, int, error) {
	opens, err := parseClock(h.OpensAt)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid opening time %q: %w", h.OpensAt, err)
	}
	closes, err := parseClock(h.ClosesAt)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid closing time %q: %w", h.ClosesAt, err)
	}
	return opens, closes, nil
}

func parseClock(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ItemActive checks that an item can still be ordered. A missing item is
// treated like an inactive one.
func (v *Validators) ItemActive(ctx context.Context, itemID uint) (Validation, *models.MenuItem, error) {
	item, err := v.catalog.GetMenuItem(ctx, itemID)
	if errors.Is(err, storage.ErrNotFound) {
		return invalid("That item is no longer on the menu."), nil, nil
	}
	if err != nil {
		return Validation{}, nil, fmt.Errorf("failed to load menu item %d: %w", itemID, err)
	}
	if !item.IsOrderable() {
		return invalid("Sorry, %s is not available right now.", item.Name), item, nil
	}
	return valid(), item, nil
}

// SlotAvailable checks capacity and that no blocking reservation on the
// table starts within the reservation window of hhmm on date.
func (v *Validators) SlotAvailable(ctx context.Context, table *models.DiningTable, partySize int, date, hhmm string) (Validation, error) {
	if table.Capacity < partySize {
		return invalid("Table %s seats %d, your party is %d.", table.Label, table.Capacity, partySize), nil
	}
	existing, err := v.tables.ListReservationsForTable(ctx, table.ID, date, models.BlockingReservationStatuses)
	if err != nil {
		return Validation{}, fmt.Errorf("failed to load reservations for table %d: %w", table.ID, err)
	}
	for _, r := range existing {
		if storage.ConflictsWith(r.Time, hhmm, v.window) {
			return invalid("Table %s is already booked at %s.", table.Label, r.Time), nil
		}
	}
	return valid(), nil
}

// AvailableTables lists tables that fit the party and are free at the slot,
// ordered by capacity then label.
func (v *Validators) AvailableTables(ctx context.Context, partySize int, date, hhmm string) ([]models.DiningTable, error) {
	tables, err := v.tables.ListTables(ctx, partySize)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	var free []models.DiningTable
	for i := range tables {
		check, err := v.SlotAvailable(ctx, &tables[i], partySize, date, hhmm)
		if err != nil {
			return nil, err
		}
		if check.OK {
			free = append(free, tables[i])
		}
	}
	return free, nil
}

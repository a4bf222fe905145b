package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/tablepe-backend/internal/models"
	"github.com/Ananth-NQI/tablepe-backend/internal/storage"
)

func newValidators(store *storage.MemoryStore, now time.Time) *Validators {
	return NewValidators(store, store, store, bogota, func() time.Time { return now })
}

// wednesday returns 2024-06-12 at hh:mm in the restaurant zone
func wednesday(hour, minute int) time.Time {
	return time.Date(2024, 6, 12, hour, minute, 0, 0, bogota)
}

func TestVenueOpen(t *testing.T) {
	store := storage.NewMemoryStore()
	store.SetOpeningHours(models.OpeningHours{Weekday: int(time.Wednesday), OpensAt: "11:00", ClosesAt: "22:00"})
	store.SetOpeningHours(models.OpeningHours{Weekday: int(time.Thursday), IsClosed: true, Note: "staff training"})

	tests := []struct {
		name   string
		at     time.Time
		open   bool
		reason string
	}{
		{"inside window", wednesday(12, 0), true, ""},
		{"at opening", wednesday(11, 0), true, ""},
		{"before opening", wednesday(9, 30), false, "not open yet"},
		{"at closing", wednesday(22, 0), false, "already closed"},
		{"closed day with note", wednesday(12, 0).AddDate(0, 0, 1), false, "staff training"},
		{"day without schedule", wednesday(12, 0).AddDate(0, 0, 2), false, "closed today"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newValidators(store, tt.at)
			check, err := v.VenueOpen(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.open, check.OK)
			if tt.reason != "" {
				assert.Contains(t, check.Reason, tt.reason)
			}
		})
	}
}

func TestVenueOpenOvernightWindow(t *testing.T) {
	store := storage.NewMemoryStore()
	store.SetOpeningHours(models.OpeningHours{Weekday: int(time.Friday), OpensAt: "18:00", ClosesAt: "02:00"})
	store.SetOpeningHours(models.OpeningHours{Weekday: int(time.Saturday), IsClosed: true})

	friday := time.Date(2024, 6, 14, 23, 30, 0, 0, bogota)
	v := newValidators(store, friday)

	check, err := v.VenueOpenAt(context.Background(), friday)
	require.NoError(t, err)
	assert.True(t, check.OK)

	check, err = v.VenueOpenAt(context.Background(), friday.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, check.OK, "01:30 saturday is still friday's service")

	check, err = v.VenueOpenAt(context.Background(), friday.Add(3*time.Hour))
	require.NoError(t, err)
	assert.False(t, check.OK)
}

func TestVenueOpenUsesRestaurantZone(t *testing.T) {
	store := storage.NewMemoryStore()
	store.SetOpeningHours(models.OpeningHours{Weekday: int(time.Wednesday), OpensAt: "11:00", ClosesAt: "22:00"})

	// 16:00 UTC is 11:00 in Bogota
	v := newValidators(store, time.Date(2024, 6, 12, 16, 0, 0, 0, time.UTC))
	check, err := v.VenueOpen(context.Background())
	require.NoError(t, err)
	assert.True(t, check.OK)
}

func TestItemActive(t *testing.T) {
	store := storage.NewMemoryStore()
	active := store.AddMenuItem(models.MenuItem{Name: "Arepa", Price: 8000})
	soldOut := store.AddMenuItem(models.MenuItem{Name: "Bandeja", Price: 30000, Status: models.ItemStatusSoldOut})
	v := newValidators(store, wednesday(12, 0))

	check, item, err := v.ItemActive(context.Background(), active.ID)
	require.NoError(t, err)
	assert.True(t, check.OK)
	assert.Equal(t, "Arepa", item.Name)

	check, _, err = v.ItemActive(context.Background(), soldOut.ID)
	require.NoError(t, err)
	assert.False(t, check.OK)
	assert.Contains(t, check.Reason, "Bandeja")

	check, item, err = v.ItemActive(context.Background(), 9999)
	require.NoError(t, err, "a missing item is a business outcome, not an error")
	assert.False(t, check.OK)
	assert.Nil(t, item)
}

func TestSlotAvailable(t *testing.T) {
	store := storage.NewMemoryStore()
	table := store.AddTable(models.DiningTable{Label: "T4", Capacity: 4})
	_, err := store.CreateReservation(context.Background(), &models.Reservation{
		ReservationNumber: "RES-AAAAAA",
		TableID:           table.ID,
		Date:              "2024-06-13",
		Time:              "18:00",
		Status:            models.ReservationStatusPending,
	}, storage.ReservationWindow)
	require.NoError(t, err)
	_, err = store.CreateReservation(context.Background(), &models.Reservation{
		ReservationNumber: "RES-BBBBBB",
		TableID:           table.ID,
		Date:              "2024-06-14",
		Time:              "18:00",
		Status:            models.ReservationStatusCancelled,
	}, storage.ReservationWindow)
	require.NoError(t, err)

	v := newValidators(store, wednesday(12, 0))

	tests := []struct {
		name  string
		party int
		date  string
		time  string
		ok    bool
	}{
		{"90 minutes later conflicts", 2, "2024-06-13", "19:30", false},
		{"90 minutes earlier conflicts", 2, "2024-06-13", "16:30", false},
		{"3 hours later is free", 2, "2024-06-13", "21:00", true},
		{"exactly 2 hours later is free", 2, "2024-06-13", "20:00", true},
		{"other date is free", 2, "2024-06-15", "18:00", true},
		{"cancelled booking does not block", 2, "2024-06-14", "18:00", true},
		{"party too large", 5, "2024-06-15", "18:00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check, err := v.SlotAvailable(context.Background(), table, tt.party, tt.date, tt.time)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, check.OK, check.Reason)
		})
	}
}

func TestAvailableTablesOrdering(t *testing.T) {
	store := storage.NewMemoryStore()
	store.AddTable(models.DiningTable{Label: "B", Capacity: 6})
	store.AddTable(models.DiningTable{Label: "A", Capacity: 6})
	store.AddTable(models.DiningTable{Label: "C", Capacity: 4})
	store.AddTable(models.DiningTable{Label: "D", Capacity: 8, Status: models.TableStatusMaintenance})
	store.AddTable(models.DiningTable{Label: "E", Capacity: 2})
	v := newValidators(store, wednesday(12, 0))

	tables, err := v.AvailableTables(context.Background(), 3, "2024-06-13", "20:00")
	require.NoError(t, err)

	var labels []string
	for _, table := range tables {
		labels = append(labels, table.Label)
	}
	assert.Equal(t, []string{"C", "A", "B"}, labels)
}

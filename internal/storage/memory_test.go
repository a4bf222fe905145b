package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/tablepe-backend/internal/models"
)

func TestMemorySessionLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)

	_, err := store.GetSession(ctx, "chat-1")
	assert.ErrorIs(t, err, ErrNotFound)

	session := models.NewChatSession("chat-1", now.Add(30*time.Minute))
	require.NoError(t, store.CreateSession(ctx, session))
	assert.Error(t, store.CreateSession(ctx, models.NewChatSession("chat-1", now)), "keys are unique")

	loaded, err := store.GetSession(ctx, "chat-1")
	require.NoError(t, err)
	loaded.Stage = models.StageCart
	loaded.Cart.Lines = append(loaded.Cart.Lines, models.CartLine{ItemID: 1, Quantity: 1})

	again, err := store.GetSession(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageGreeting, again.Stage, "callers get copies")
	assert.True(t, again.Cart.IsEmpty())

	require.NoError(t, store.SaveSession(ctx, loaded))
	again, err = store.GetSession(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageCart, again.Stage)

	closed, err := store.CloseIdleSessions(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), closed)

	deleted, err := store.DeleteExpiredSessions(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	assert.ErrorIs(t, store.SaveSession(ctx, loaded), ErrNotFound)
}

func TestMemoryDeleteKeepsOpenSessions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.CreateSession(ctx, models.NewChatSession("chat-1", now.Add(-time.Minute))))

	deleted, err := store.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, deleted, "an expired session that is still open is kept")
}

func TestMemoryCreateReservation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	table := store.AddTable(models.DiningTable{Label: "T4", Capacity: 4})

	first := &models.Reservation{ReservationNumber: "RES-AAAAAA", TableID: table.ID, Date: "2024-06-13", Time: "19:00"}
	created, err := store.CreateReservation(ctx, first, ReservationWindow)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusPending, created.Status)

	retry := &models.Reservation{ReservationNumber: "RES-AAAAAA", TableID: table.ID, Date: "2024-06-13", Time: "19:00"}
	again, err := store.CreateReservation(ctx, retry, ReservationWindow)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID, "same number is the same booking")

	_, err = store.CreateReservation(ctx, &models.Reservation{
		ReservationNumber: "RES-BBBBBB", TableID: table.ID, Date: "2024-06-13", Time: "20:30",
	}, ReservationWindow)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = store.CreateReservation(ctx, &models.Reservation{
		ReservationNumber: "RES-CCCCCC", TableID: table.ID, Date: "2024-06-13", Time: "22:00",
	}, ReservationWindow)
	assert.NoError(t, err)

	_, err = store.CreateReservation(ctx, &models.Reservation{
		ReservationNumber: "RES-DDDDDD", TableID: 999, Date: "2024-06-13", Time: "12:00",
	}, ReservationWindow)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Len(t, store.Reservations(), 2)
}

func TestMemoryExpireStaleReservations(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	table := store.AddTable(models.DiningTable{Label: "T4", Capacity: 4})

	for _, r := range []models.Reservation{
		{ReservationNumber: "RES-OLD", Date: "2024-06-12", Time: "11:00", Status: models.ReservationStatusConfirmed},
		{ReservationNumber: "RES-SEATED", Date: "2024-06-12", Time: "08:00", Status: models.ReservationStatusActive},
		{ReservationNumber: "RES-LATER", Date: "2024-06-12", Time: "19:00", Status: models.ReservationStatusPending},
	} {
		r := r
		r.TableID = table.ID
		_, err := store.CreateReservation(ctx, &r, ReservationWindow)
		require.NoError(t, err)
	}

	expired, err := store.ExpireStaleReservations(ctx, time.Date(2024, 6, 12, 11, 45, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	statuses := map[string]string{}
	for _, r := range store.Reservations() {
		statuses[r.ReservationNumber] = r.Status
	}
	assert.Equal(t, models.ReservationStatusExpired, statuses["RES-OLD"])
	assert.Equal(t, models.ReservationStatusActive, statuses["RES-SEATED"])
	assert.Equal(t, models.ReservationStatusPending, statuses["RES-LATER"])
}

func TestMemoryCreateOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	order := &models.Order{
		OrderNumber: "ORD-AAAAAA",
		CustomerID:  1,
		Total:       48000,
		Items: []models.OrderItem{
			{MenuItemID: 1, Name: "Burger", Quantity: 2},
			{MenuItemID: 2, Name: "Soda", Quantity: 1},
		},
	}
	created, err := store.CreateOrder(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusReceived, created.Status)

	tickets := store.KitchenTickets()
	require.Len(t, tickets, 2)
	for _, ticket := range tickets {
		assert.Equal(t, created.ID, ticket.OrderID)
		assert.Equal(t, models.TicketStatusQueued, ticket.Status)
	}

	_, err = store.CreateOrder(ctx, &models.Order{OrderNumber: "ORD-AAAAAA", Items: order.Items})
	require.NoError(t, err)
	assert.Len(t, store.Orders(), 1)
	assert.Len(t, store.KitchenTickets(), 2, "a retried order is not queued twice")

	_, err = store.CreateOrder(ctx, &models.Order{OrderNumber: "ORD-EMPTY"})
	assert.Error(t, err)
}

func TestMemoryCatalogFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	drinks := store.AddCategory(models.Category{Name: "Drinks", Active: true, SortOrder: 2})
	store.AddCategory(models.Category{Name: "Hidden", Active: false})
	mains := store.AddCategory(models.Category{Name: "Mains", Active: true, SortOrder: 1})
	sub := store.AddSubcategory(models.Subcategory{CategoryID: mains.ID, Name: "Burgers", Active: true})
	burger := store.AddMenuItem(models.MenuItem{CategoryID: mains.ID, SubcategoryID: sub.ID, Name: "Burger"})
	store.AddMenuItem(models.MenuItem{CategoryID: mains.ID, SubcategoryID: sub.ID, Name: "Veggie", Status: models.ItemStatusInactive})

	categories, err := store.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, mains.ID, categories[0].ID)
	assert.Equal(t, drinks.ID, categories[1].ID)

	items, err := store.ListItems(ctx, mains.ID, sub.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.ItemStatusActive, items[0].Status)

	store.SetItemPrice(burger.ID, 22000)
	item, err := store.GetMenuItem(ctx, burger.ID)
	require.NoError(t, err)
	assert.Equal(t, 22000.0, item.Price)

	_, err = store.GetMenuItem(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCustomers(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	customer, err := store.CreateCustomer(ctx, &models.Customer{Phone: "3012345678"})
	require.NoError(t, err)
	assert.Equal(t, "Customer 5678", customer.Name)

	_, err = store.CreateCustomer(ctx, &models.Customer{Phone: "3012345678"})
	assert.Error(t, err)

	customer.Address = "Calle 10 # 20-30"
	require.NoError(t, store.UpdateCustomer(ctx, customer))

	found, err := store.GetCustomerByPhone(ctx, "3012345678")
	require.NoError(t, err)
	assert.Equal(t, "Calle 10 # 20-30", found.Address)

	_, err = store.GetCustomerByPhone(ctx, "3000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConflictsWith(t *testing.T) {
	assert.True(t, ConflictsWith("18:00", "19:30", ReservationWindow))
	assert.True(t, ConflictsWith("19:30", "18:00", ReservationWindow))
	assert.False(t, ConflictsWith("18:00", "20:00", ReservationWindow))
	assert.False(t, ConflictsWith("18:00", "21:00", ReservationWindow))
	assert.True(t, ConflictsWith("bad", "bad", ReservationWindow))
}

func TestSeedDemo(t *testing.T) {
	store := NewMemoryStore()
	SeedDemo(store)
	ctx := context.Background()

	categories, err := store.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Mains", categories[0].Name)

	monday, err := store.GetOpeningHours(ctx, time.Monday)
	require.NoError(t, err)
	assert.True(t, monday.IsClosed)

	tables, err := store.ListTables(ctx, 5)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "T4", tables[0].Label)
}

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Ananth-NQI/tablepe-backend/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a reservation slot is already taken
	ErrConflict = errors.New("slot conflict")
)

// SessionStore persists conversation sessions
type SessionStore interface {
	GetSession(ctx context.Context, key string) (*models.ChatSession, error)
	CreateSession(ctx context.Context, session *models.ChatSession) error
	SaveSession(ctx context.Context, session *models.ChatSession) error
	CloseIdleSessions(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// CatalogStore reads the menu
type CatalogStore interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListSubcategories(ctx context.Context, categoryID uint) ([]models.Subcategory, error)
	ListItems(ctx context.Context, categoryID, subcategoryID uint) ([]models.MenuItem, error)
	GetMenuItem(ctx context.Context, id uint) (*models.MenuItem, error)
}

// ScheduleStore reads the weekly opening hours
type ScheduleStore interface {
	GetOpeningHours(ctx context.Context, weekday time.Weekday) (*models.OpeningHours, error)
}

// CustomerStore manages customer identities keyed by phone
type CustomerStore interface {
	GetCustomer(ctx context.Context, id uint) (*models.Customer, error)
	GetCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, customer *models.Customer) error
}

// TableStore manages tables and reservations
type TableStore interface {
	ListTables(ctx context.Context, minCapacity int) ([]models.DiningTable, error)
	GetTable(ctx context.Context, id uint) (*models.DiningTable, error)
	ListReservationsForTable(ctx context.Context, tableID uint, date string, statuses []string) ([]models.Reservation, error)
	// CreateReservation is atomic and idempotent on ReservationNumber.
	// It returns ErrConflict when the table is taken within the window.
	CreateReservation(ctx context.Context, reservation *models.Reservation, window time.Duration) (*models.Reservation, error)
	ExpireStaleReservations(ctx context.Context, cutoff time.Time) (int64, error)
}

// OrderStore commits orders
type OrderStore interface {
	// CreateOrder writes the order, its items and kitchen tickets as one unit.
	// It is idempotent on OrderNumber.
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
}

// Store is the full set of collaborators
type Store interface {
	SessionStore
	CatalogStore
	ScheduleStore
	CustomerStore
	TableStore
	OrderStore
}

// ReservationWindow is how close two reservations on one table may be
const ReservationWindow = 2 * time.Hour

// ConflictsWith reports whether two HH:MM times on the same date fall within window
func ConflictsWith(a, b string, window time.Duration) bool {
	ta, errA := time.Parse("15:04", a)
	tb, errB := time.Parse("15:04", b)
	if errA != nil || errB != nil {
		return a == b
	}
	diff := ta.Sub(tb)
	if diff < 0 {
		diff = -diff
	}
	return diff < window
}

// slotKey orders reservations by date and time as strings
func slotKey(date, hhmm string) string {
	return date + " " + hhmm
}

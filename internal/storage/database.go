package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Ananth-NQI/tablepe-backend/internal/models"
)

// DatabaseStore implements Store on top of gorm
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a gorm backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Session operations

func (d *DatabaseStore) GetSession(ctx context.Context, key string) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := d.db.WithContext(ctx).Where("session_key = ?", key).First(&session).Error; err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

func (d *DatabaseStore) CreateSession(ctx context.Context, session *models.ChatSession) error {
	if err := d.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (d *DatabaseStore) SaveSession(ctx context.Context, session *models.ChatSession) error {
	if session.ID == 0 {
		return ErrNotFound
	}
	result := d.db.WithContext(ctx).Model(session).
		Select("*").Omit("created_at", "deleted_at").
		Updates(session)
	if result.Error != nil {
		return fmt.Errorf("failed to save session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DatabaseStore) CloseIdleSessions(ctx context.Context, now time.Time) (int64, error) {
	result := d.db.WithContext(ctx).Model(&models.ChatSession{}).
		Where("is_open = ? AND expires_at < ?", true, now).
		Update("is_open", false)
	return result.RowsAffected, result.Error
}

func (d *DatabaseStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result := d.db.WithContext(ctx).Unscoped().
		Where("is_open = ? AND expires_at < ?", false, now).
		Delete(&models.ChatSession{})
	return result.RowsAffected, result.Error
}

// Catalog operations

func (d *DatabaseStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := d.db.WithContext(ctx).Where("active = ?", true).Order("sort_order, id").Find(&categories).Error
	return categories, err
}

func (d *DatabaseStore) ListSubcategories(ctx context.Context, categoryID uint) ([]models.Subcategory, error) {
	var subcategories []models.Subcategory
	err := d.db.WithContext(ctx).
		Where("category_id = ? AND active = ?", categoryID, true).
		Order("sort_order, id").
		Find(&subcategories).Error
	return subcategories, err
}

func (d *DatabaseStore) ListItems(ctx context.Context, categoryID, subcategoryID uint) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := d.db.WithContext(ctx).
		Where("category_id = ? AND subcategory_id = ? AND status = ?", categoryID, subcategoryID, models.ItemStatusActive).
		Order("id").
		Find(&items).Error
	return items, err
}

func (d *DatabaseStore) GetMenuItem(ctx context.Context, id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := d.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// Schedule operations

func (d *DatabaseStore) GetOpeningHours(ctx context.Context, weekday time.Weekday) (*models.OpeningHours, error) {
	var hours models.OpeningHours
	if err := d.db.WithContext(ctx).Where("weekday = ?", int(weekday)).First(&hours).Error; err != nil {
		return nil, notFound(err)
	}
	return &hours, nil
}

// Customer operations

func (d *DatabaseStore) GetCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := d.db.WithContext(ctx).First(&customer, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &customer, nil
}

func (d *DatabaseStore) GetCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	var customer models.Customer
	if err := d.db.WithContext(ctx).Where("phone = ?", phone).First(&customer).Error; err != nil {
		return nil, notFound(err)
	}
	return &customer, nil
}

func (d *DatabaseStore) CreateCustomer(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	if err := d.db.WithContext(ctx).Create(customer).Error; err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return customer, nil
}

func (d *DatabaseStore) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	return d.db.WithContext(ctx).Save(customer).Error
}

// Table operations

func (d *DatabaseStore) ListTables(ctx context.Context, minCapacity int) ([]models.DiningTable, error) {
	var tables []models.DiningTable
	err := d.db.WithContext(ctx).
		Where("capacity >= ? AND status <> ?", minCapacity, models.TableStatusMaintenance).
		Order("capacity, label").
		Find(&tables).Error
	return tables, err
}

func (d *DatabaseStore) GetTable(ctx context.Context, id uint) (*models.DiningTable, error) {
	var table models.DiningTable
	if err := d.db.WithContext(ctx).First(&table, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &table, nil
}

func (d *DatabaseStore) ListReservationsForTable(ctx context.Context, tableID uint, date string, statuses []string) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := d.db.WithContext(ctx).
		Where(`table_id = ? AND "date" = ? AND status IN ?`, tableID, date, statuses).
		Order(`"time"`).
		Find(&reservations).Error
	return reservations, err
}

func (d *DatabaseStore) CreateReservation(ctx context.Context, reservation *models.Reservation, window time.Duration) (*models.Reservation, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Reservation
		err := tx.Where("reservation_number = ?", reservation.ReservationNumber).First(&existing).Error
		if err == nil {
			*reservation = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// Lock the table row so concurrent bookings for it serialize here
		var table models.DiningTable
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&table, reservation.TableID).Error; err != nil {
			return notFound(err)
		}

		var sameDay []models.Reservation
		if err := tx.Where(`table_id = ? AND "date" = ? AND status IN ?`,
			table.ID, reservation.Date, models.BlockingReservationStatuses).
			Find(&sameDay).Error; err != nil {
			return err
		}
		for _, r := range sameDay {
			if ConflictsWith(r.Time, reservation.Time, window) {
				return ErrConflict
			}
		}

		if reservation.Status == "" {
			reservation.Status = models.ReservationStatusPending
		}
		return tx.Create(reservation).Error
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

func (d *DatabaseStore) ExpireStaleReservations(ctx context.Context, cutoff time.Time) (int64, error) {
	result := d.db.WithContext(ctx).Model(&models.Reservation{}).
		Where(`status IN ? AND ("date" || ' ' || "time") < ?`,
			[]string{models.ReservationStatusPending, models.ReservationStatusConfirmed},
			cutoff.Format("2006-01-02 15:04")).
		Update("status", models.ReservationStatusExpired)
	return result.RowsAffected, result.Error
}

// Order operations

func (d *DatabaseStore) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Order
		err := tx.Preload("Items").Where("order_number = ?", order.OrderNumber).First(&existing).Error
		if err == nil {
			*order = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if len(order.Items) == 0 {
			return fmt.Errorf("order %s has no items", order.OrderNumber)
		}

		if order.Status == "" {
			order.Status = models.OrderStatusReceived
		}
		// Creates the order and its items
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		tickets := make([]models.KitchenTicket, 0, len(order.Items))
		for _, item := range order.Items {
			tickets = append(tickets, models.KitchenTicket{
				OrderID:     order.ID,
				OrderItemID: item.ID,
				MenuItemID:  item.MenuItemID,
				Quantity:    item.Quantity,
				Status:      models.TicketStatusQueued,
			})
		}
		return tx.Create(&tickets).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

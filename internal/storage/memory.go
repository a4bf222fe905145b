package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ananth-NQI/tablepe-backend/internal/models"
)

// MemoryStore holds all data in memory for tests and local runs
type MemoryStore struct {
	sessions      map[string]*models.ChatSession
	categories    map[uint]*models.Category
	subcategories map[uint]*models.Subcategory
	items         map[uint]*models.MenuItem
	hours         map[time.Weekday]*models.OpeningHours
	customers     map[uint]*models.Customer
	tables        map[uint]*models.DiningTable
	reservations  map[uint]*models.Reservation
	orders        map[uint]*models.Order
	tickets       []models.KitchenTicket

	// Mutexes for thread safety
	sessionMu  sync.RWMutex
	catalogMu  sync.RWMutex
	customerMu sync.RWMutex
	tableMu    sync.RWMutex
	orderMu    sync.RWMutex

	// Counter for ID generation
	counter uint
	idMu    sync.Mutex
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:      make(map[string]*models.ChatSession),
		categories:    make(map[uint]*models.Category),
		subcategories: make(map[uint]*models.Subcategory),
		items:         make(map[uint]*models.MenuItem),
		hours:         make(map[time.Weekday]*models.OpeningHours),
		customers:     make(map[uint]*models.Customer),
		tables:        make(map[uint]*models.DiningTable),
		reservations:  make(map[uint]*models.Reservation),
		orders:        make(map[uint]*models.Order),
	}
}

func (m *MemoryStore) nextID() uint {
	m.idMu.Lock()
	defer m.idMu.Unlock()
	m.counter++
	return m.counter
}

// Session operations

func (m *MemoryStore) GetSession(ctx context.Context, key string) (*models.ChatSession, error) {
	m.sessionMu.RLock()
	defer m.sessionMu.RUnlock()

	session, exists := m.sessions[key]
	if !exists {
		return nil, ErrNotFound
	}
	return session.Clone(), nil
}

func (m *MemoryStore) CreateSession(ctx context.Context, session *models.ChatSession) error {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	if _, exists := m.sessions[session.SessionKey]; exists {
		return fmt.Errorf("session %s already exists", session.SessionKey)
	}
	session.ID = m.nextID()
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	m.sessions[session.SessionKey] = session.Clone()
	return nil
}

func (m *MemoryStore) SaveSession(ctx context.Context, session *models.ChatSession) error {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	if _, exists := m.sessions[session.SessionKey]; !exists {
		return ErrNotFound
	}
	session.UpdatedAt = time.Now()
	m.sessions[session.SessionKey] = session.Clone()
	return nil
}

func (m *MemoryStore) CloseIdleSessions(ctx context.Context, now time.Time) (int64, error) {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	var closed int64
	for _, session := range m.sessions {
		if session.IsOpen && session.ExpiresAt.Before(now) {
			session.IsOpen = false
			closed++
		}
	}
	return closed, nil
}

func (m *MemoryStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	var deleted int64
	for key, session := range m.sessions {
		if !session.IsOpen && session.ExpiresAt.Before(now) {
			delete(m.sessions, key)
			deleted++
		}
	}
	return deleted, nil
}

// Catalog operations

// AddCategory seeds a category
func (m *MemoryStore) AddCategory(c models.Category) *models.Category {
	m.catalogMu.Lock()
	defer m.catalogMu.Unlock()
	c.ID = m.nextID()
	m.categories[c.ID] = &c
	return &c
}

// AddSubcategory seeds a subcategory
func (m *MemoryStore) AddSubcategory(s models.Subcategory) *models.Subcategory {
	m.catalogMu.Lock()
	defer m.catalogMu.Unlock()
	s.ID = m.nextID()
	m.subcategories[s.ID] = &s
	return &s
}

// AddMenuItem seeds an item
func (m *MemoryStore) AddMenuItem(item models.MenuItem) *models.MenuItem {
	m.catalogMu.Lock()
	defer m.catalogMu.Unlock()
	item.ID = m.nextID()
	if item.Status == "" {
		item.Status = models.ItemStatusActive
	}
	m.items[item.ID] = &item
	return &item
}

// SetItemStatus changes an item's status out of band
func (m *MemoryStore) SetItemStatus(id uint, status string) {
	m.catalogMu.Lock()
	defer m.catalogMu.Unlock()
	if item, ok := m.items[id]; ok {
		item.Status = status
	}
}

// SetItemPrice changes an item's price out of band
func (m *MemoryStore) SetItemPrice(id uint, price float64) {
	m.catalogMu.Lock()
	defer m.catalogMu.Unlock()
	if item, ok := m.items[id]; ok {
		item.Price = price
	}
}

func (m *MemoryStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	m.catalogMu.RLock()
	defer m.catalogMu.RUnlock()

	var result []models.Category
	for _, c := range m.categories {
		if c.Active {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SortOrder != result[j].SortOrder {
			return result[i].SortOrder < result[j].SortOrder
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *MemoryStore) ListSubcategories(ctx context.Context, categoryID uint) ([]models.Subcategory, error) {
	m.catalogMu.RLock()
	defer m.catalogMu.RUnlock()

	var result []models.Subcategory
	for _, s := range m.subcategories {
		if s.Active && s.CategoryID == categoryID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SortOrder != result[j].SortOrder {
			return result[i].SortOrder < result[j].SortOrder
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *MemoryStore) ListItems(ctx context.Context, categoryID, subcategoryID uint) ([]models.MenuItem, error) {
	m.catalogMu.RLock()
	defer m.catalogMu.RUnlock()

	var result []models.MenuItem
	for _, item := range m.items {
		if item.CategoryID != categoryID || item.SubcategoryID != subcategoryID {
			continue
		}
		if item.Status != models.ItemStatusActive {
			continue
		}
		result = append(result, *item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MemoryStore) GetMenuItem(ctx context.Context, id uint) (*models.MenuItem, error) {
	m.catalogMu.RLock()
	defer m.catalogMu.RUnlock()

	item, exists := m.items[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *item
	return &copied, nil
}

// Schedule operations

// SetOpeningHours seeds the schedule for one weekday
func (m *MemoryStore) SetOpeningHours(h models.OpeningHours) {
	m.catalogMu.Lock()
	defer m.catalogMu.Unlock()
	m.hours[time.Weekday(h.Weekday)] = &h
}

func (m *MemoryStore) GetOpeningHours(ctx context.Context, weekday time.Weekday) (*models.OpeningHours, error) {
	m.catalogMu.RLock()
	defer m.catalogMu.RUnlock()

	h, exists := m.hours[weekday]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *h
	return &copied, nil
}

// Customer operations

func (m *MemoryStore) GetCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	m.customerMu.RLock()
	defer m.customerMu.RUnlock()

	c, exists := m.customers[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *MemoryStore) GetCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	m.customerMu.RLock()
	defer m.customerMu.RUnlock()

	for _, c := range m.customers {
		if c.Phone == phone {
			copied := *c
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateCustomer(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	m.customerMu.Lock()
	defer m.customerMu.Unlock()

	for _, c := range m.customers {
		if c.Phone == customer.Phone {
			return nil, fmt.Errorf("customer with phone %s already exists", customer.Phone)
		}
	}
	customer.ID = m.nextID()
	if customer.Name == "" {
		customer.Name = models.DefaultCustomerName(customer.Phone)
	}
	customer.CreatedAt = time.Now()
	stored := *customer
	m.customers[customer.ID] = &stored
	return customer, nil
}

func (m *MemoryStore) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	m.customerMu.Lock()
	defer m.customerMu.Unlock()

	if _, exists := m.customers[customer.ID]; !exists {
		return ErrNotFound
	}
	stored := *customer
	m.customers[customer.ID] = &stored
	return nil
}

// Table operations

// AddTable seeds a table
func (m *MemoryStore) AddTable(t models.DiningTable) *models.DiningTable {
	m.tableMu.Lock()
	defer m.tableMu.Unlock()
	t.ID = m.nextID()
	if t.Status == "" {
		t.Status = models.TableStatusAvailable
	}
	m.tables[t.ID] = &t
	return &t
}

func (m *MemoryStore) ListTables(ctx context.Context, minCapacity int) ([]models.DiningTable, error) {
	m.tableMu.RLock()
	defer m.tableMu.RUnlock()

	var result []models.DiningTable
	for _, t := range m.tables {
		if t.Status == models.TableStatusMaintenance || t.Capacity < minCapacity {
			continue
		}
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Capacity != result[j].Capacity {
			return result[i].Capacity < result[j].Capacity
		}
		return result[i].Label < result[j].Label
	})
	return result, nil
}

func (m *MemoryStore) GetTable(ctx context.Context, id uint) (*models.DiningTable, error) {
	m.tableMu.RLock()
	defer m.tableMu.RUnlock()

	t, exists := m.tables[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (m *MemoryStore) ListReservationsForTable(ctx context.Context, tableID uint, date string, statuses []string) ([]models.Reservation, error) {
	m.tableMu.RLock()
	defer m.tableMu.RUnlock()
	return m.reservationsFor(tableID, date, statuses), nil
}

func (m *MemoryStore) reservationsFor(tableID uint, date string, statuses []string) []models.Reservation {
	var result []models.Reservation
	for _, r := range m.reservations {
		if r.TableID != tableID || r.Date != date || !containsStatus(statuses, r.Status) {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Time < result[j].Time })
	return result
}

func (m *MemoryStore) CreateReservation(ctx context.Context, reservation *models.Reservation, window time.Duration) (*models.Reservation, error) {
	m.tableMu.Lock()
	defer m.tableMu.Unlock()

	for _, r := range m.reservations {
		if r.ReservationNumber == reservation.ReservationNumber {
			copied := *r
			return &copied, nil
		}
	}

	if _, exists := m.tables[reservation.TableID]; !exists {
		return nil, ErrNotFound
	}
	for _, r := range m.reservationsFor(reservation.TableID, reservation.Date, models.BlockingReservationStatuses) {
		if ConflictsWith(r.Time, reservation.Time, window) {
			return nil, ErrConflict
		}
	}

	reservation.ID = m.nextID()
	if reservation.Status == "" {
		reservation.Status = models.ReservationStatusPending
	}
	reservation.CreatedAt = time.Now()
	stored := *reservation
	m.reservations[reservation.ID] = &stored
	return reservation, nil
}

func (m *MemoryStore) ExpireStaleReservations(ctx context.Context, cutoff time.Time) (int64, error) {
	m.tableMu.Lock()
	defer m.tableMu.Unlock()

	limit := cutoff.Format("2006-01-02 15:04")
	var expired int64
	for _, r := range m.reservations {
		if r.Status != models.ReservationStatusPending && r.Status != models.ReservationStatusConfirmed {
			continue
		}
		if slotKey(r.Date, r.Time) < limit {
			r.Status = models.ReservationStatusExpired
			expired++
		}
	}
	return expired, nil
}

// Reservations returns every stored reservation, for inspection
func (m *MemoryStore) Reservations() []models.Reservation {
	m.tableMu.RLock()
	defer m.tableMu.RUnlock()

	var result []models.Reservation
	for _, r := range m.reservations {
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Order operations

func (m *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	for _, o := range m.orders {
		if o.OrderNumber == order.OrderNumber {
			copied := *o
			return &copied, nil
		}
	}
	if len(order.Items) == 0 {
		return nil, fmt.Errorf("order %s has no items", order.OrderNumber)
	}

	order.ID = m.nextID()
	if order.Status == "" {
		order.Status = models.OrderStatusReceived
	}
	order.CreatedAt = time.Now()
	items := make([]models.OrderItem, len(order.Items))
	for i, item := range order.Items {
		item.ID = m.nextID()
		item.OrderID = order.ID
		items[i] = item
		m.tickets = append(m.tickets, models.KitchenTicket{
			OrderID:     order.ID,
			OrderItemID: item.ID,
			MenuItemID:  item.MenuItemID,
			Quantity:    item.Quantity,
			Status:      models.TicketStatusQueued,
		})
	}
	order.Items = items

	stored := *order
	stored.Items = append([]models.OrderItem(nil), items...)
	m.orders[order.ID] = &stored
	return order, nil
}

// Orders returns every stored order, for inspection
func (m *MemoryStore) Orders() []models.Order {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	var result []models.Order
	for _, o := range m.orders {
		result = append(result, *o)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// KitchenTickets returns the fulfillment queue
func (m *MemoryStore) KitchenTickets() []models.KitchenTicket {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()
	return append([]models.KitchenTicket(nil), m.tickets...)
}

func containsStatus(statuses []string, status string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

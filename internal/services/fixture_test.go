package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ananth-NQI/tablepe-backend/internal/models"
	"github.com/Ananth-NQI/tablepe-backend/internal/storage"
)

var bogota = time.FixedZone("COT", -5*60*60)

// recordingNotifier captures notifications sent in the background
type recordingNotifier struct {
	mu           sync.Mutex
	orders       []string
	reservations []string
}

func (n *recordingNotifier) OrderPlaced(ctx context.Context, phone string, order *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order.OrderNumber)
	return nil
}

func (n *recordingNotifier) ReservationConfirmed(ctx context.Context, phone string, reservation *models.Reservation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reservations = append(n.reservations, reservation.ReservationNumber)
	return nil
}

func (n *recordingNotifier) orderCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.orders)
}

func (n *recordingNotifier) reservationCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.reservations)
}

type fixture struct {
	t        *testing.T
	store    *storage.MemoryStore
	sessions *SessionManager
	conv     *Conversation
	notifier *recordingNotifier

	mu  sync.Mutex
	now time.Time
	seq int

	burger, soda           *models.MenuItem
	table2, table4, table6 *models.DiningTable
}

// newFixture seeds a venue open 08:00-22:00 every day, one category with
// two dishes, and tables for 2, 4 and 6 people. The clock starts on
// Wednesday 2024-06-12 at noon.
func newFixture(t *testing.T) *fixture {
	return newFixtureWithStore(t, storage.NewMemoryStore(), nil)
}

func newFixtureWithStore(t *testing.T, mem *storage.MemoryStore, wrap func(*storage.MemoryStore) storage.Store) *fixture {
	f := &fixture{
		t:        t,
		store:    mem,
		notifier: &recordingNotifier{},
		now:      time.Date(2024, 6, 12, 12, 0, 0, 0, bogota),
	}

	for day := 0; day < 7; day++ {
		mem.SetOpeningHours(models.OpeningHours{Weekday: day, OpensAt: "08:00", ClosesAt: "22:00"})
	}
	cat := mem.AddCategory(models.Category{Name: "Mains", Active: true})
	sub := mem.AddSubcategory(models.Subcategory{CategoryID: cat.ID, Name: "Burgers", Active: true})
	f.burger = mem.AddMenuItem(models.MenuItem{CategoryID: cat.ID, SubcategoryID: sub.ID, Name: "Burger", Price: 20000, DeliveryCost: 3000})
	f.soda = mem.AddMenuItem(models.MenuItem{CategoryID: cat.ID, SubcategoryID: sub.ID, Name: "Soda", Price: 5000, DeliveryCost: 1000})
	f.table2 = mem.AddTable(models.DiningTable{Label: "T2", Capacity: 2})
	f.table4 = mem.AddTable(models.DiningTable{Label: "T4", Capacity: 4, Location: "terrace"})
	f.table6 = mem.AddTable(models.DiningTable{Label: "T6", Capacity: 6})

	var store storage.Store = mem
	if wrap != nil {
		store = wrap(mem)
	}

	logger := zap.NewNop()
	validators := NewValidators(store, store, store, bogota, f.clock)
	f.sessions = NewSessionManager(store, NewLocalLocker(50*time.Millisecond), 30*time.Minute, f.clock, logger)
	f.conv = NewConversation(store, f.sessions, validators, f.notifier, ConversationOptions{
		RestaurantName: "TablePe",
		CountryCode:    "57",
	}, logger)
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) setTime(hour, minute int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = time.Date(f.now.Year(), f.now.Month(), f.now.Day(), hour, minute, 0, 0, bogota)
}

// send delivers text with a fresh message id and fails the test on error
func (f *fixture) send(key, text string) *Result {
	f.t.Helper()
	res, err := f.sendErr(key, text, "")
	require.NoError(f.t, err, "message %q", text)
	return res
}

func (f *fixture) sendErr(key, text, phone string) (*Result, error) {
	f.seq++
	return f.conv.ProcessMessage(context.Background(), Message{
		SessionKey: key,
		Text:       text,
		Phone:      phone,
		MessageID:  fmt.Sprintf("SM%04d", f.seq),
	})
}

// sendID delivers text under a caller chosen message id
func (f *fixture) sendID(key, text, messageID string) *Result {
	f.t.Helper()
	res, err := f.conv.ProcessMessage(context.Background(), Message{
		SessionKey: key,
		Text:       text,
		MessageID:  messageID,
	})
	require.NoError(f.t, err, "message %q", text)
	return res
}

func (f *fixture) session(key string) *models.ChatSession {
	f.t.Helper()
	s, err := f.store.GetSession(context.Background(), key)
	require.NoError(f.t, err)
	return s
}

// register drives a new conversation to the main options of stage 1
func (f *fixture) register(key string) {
	f.t.Helper()
	f.send(key, "hi")
	res := f.send(key, "3012345678")
	require.True(f.t, res.Session.IsRegistered)
}

// fillCart registers and adds two burgers and one soda
func (f *fixture) fillCart(key string) {
	f.t.Helper()
	f.register(key)
	f.send(key, "1") // order food
	f.send(key, "1") // Mains
	f.send(key, "1") // Burgers
	f.send(key, "1") // Burger
	f.send(key, "2")
	f.send(key, "2") // keep browsing
	f.send(key, "1")
	f.send(key, "1")
	f.send(key, "2") // Soda
	res := f.send(key, "1")
	require.Equal(f.t, models.StageCart, res.Session.Stage)
	require.Len(f.t, res.Session.Cart.Lines, 2)
}

// toSummary fills the cart and answers every checkout question
func (f *fixture) toSummary(key string) *Result {
	f.t.Helper()
	f.fillCart(key)
	f.send(key, "1")                // checkout
	f.send(key, "Calle 10 # 20-30") // address
	f.send(key, "yes")
	f.send(key, "1") // delivery
	f.send(key, "1") // cash
	f.send(key, "yes")
	res := f.send(key, "no") // no notes
	require.Equal(f.t, models.StageSummary, res.Session.Stage)
	return res
}

// seedSession stores a session directly, bypassing the dispatcher
func (f *fixture) seedSession(s *models.ChatSession) {
	f.t.Helper()
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = f.clock().Add(time.Hour)
	}
	s.IsOpen = true
	require.NoError(f.t, f.store.CreateSession(context.Background(), s))
}

// seedCustomer creates a customer and returns a registered session for it
func (f *fixture) seedCustomer(key, phone string) *models.ChatSession {
	f.t.Helper()
	customer, err := f.store.CreateCustomer(context.Background(), &models.Customer{Phone: phone})
	require.NoError(f.t, err)
	return &models.ChatSession{
		SessionKey:   key,
		CustomerID:   models.UintPtr(customer.ID),
		Phone:        phone,
		IsRegistered: true,
	}
}

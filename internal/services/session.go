package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/Ananth-NQI/tablepe-backend/internal/models"
	"github.com/Ananth-NQI/tablepe-backend/internal/storage"
)

// SessionManager loads, creates and saves conversation sessions
type SessionManager struct {
	store      storage.SessionStore
	locker     Locker
	sessionTTL time.Duration
	now        Clock
	logger     *zap.Logger
}

// NewSessionManager creates a new session manager
func NewSessionManager(store storage.SessionStore, locker Locker, sessionTTL time.Duration, now Clock, logger *zap.Logger) *SessionManager {
	if locker == nil {
		locker = NewLocalLocker(5 * time.Second)
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 30 * time.Minute
	}
	return &SessionManager{
		store:      store,
		locker:     locker,
		sessionTTL: sessionTTL,
		now:        now,
		logger:     logger,
	}
}

// Lock takes the per-session lock
func (sm *SessionManager) Lock(ctx context.Context, key string) (func(), error) {
	return sm.locker.Lock(ctx, key)
}

// LoadOrCreate resolves the session for key, creating a fresh one on first
// contact. The bool reports whether it was created.
func (sm *SessionManager) LoadOrCreate(ctx context.Context, key string) (*models.ChatSession, bool, error) {
	session, err := sm.store.GetSession(ctx, key)
	if err == nil {
		return session, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to load session: %w", err)
	}

	session = models.NewChatSession(key, sm.now().Add(sm.sessionTTL))
	if err := sm.store.CreateSession(ctx, session); err != nil {
		return nil, false, err
	}
	sm.logger.Info("Session created", zap.String("session_key", key))
	return session, true, nil
}

// Save extends the expiry and persists the session. storage.ErrNotFound is
// returned unchanged so the caller can recover.
func (sm *SessionManager) Save(ctx context.Context, session *models.ChatSession) error {
	session.IsOpen = true
	session.ExpiresAt = sm.now().Add(sm.sessionTTL)
	if session.Stage < 0 || session.Stage > models.MaxStage {
		return fmt.Errorf("refusing to save session %s at stage %d", session.SessionKey, session.Stage)
	}
	return sm.store.SaveSession(ctx, session)
}

// Recreate replaces a vanished session with a fresh one under the same key
func (sm *SessionManager) Recreate(ctx context.Context, key string) (*models.ChatSession, error) {
	session := models.NewChatSession(key, sm.now().Add(sm.sessionTTL))
	if err := sm.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Reset moves the session back to the greeting stage and drops every
// scratch field. Identity and cart are kept.
func Reset(session *models.ChatSession) {
	session.Stage = models.StageGreeting
	session.ClearBrowsing()
	session.Checkout = models.CheckoutData{}
	session.Reservation = nil
	session.ReservationRequested = false
}

// updateCart installs next as the session cart. Any change to the lines
// voids the saved checkout and its reserved order number.
func updateCart(session *models.ChatSession, next models.Cart) {
	if !slices.Equal(session.Cart.Lines, next.Lines) {
		session.Checkout.Saved = false
		session.Checkout.OrderNumber = ""
	}
	session.Cart = next
}

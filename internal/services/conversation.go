package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Ananth-NQI/tablepe-backend/internal/models"
	"github.com/Ananth-NQI/tablepe-backend/internal/storage"
	"github.com/Ananth-NQI/tablepe-backend/internal/utils"
)

// ErrCommitFailed wraps collaborator failures while placing an order or a
// reservation. The session is left as it was so the user can retry.
var ErrCommitFailed = errors.New("commit failed")

// Message is one inbound user message
type Message struct {
	SessionKey string `json:"session_key"`
	Text       string `json:"text"`
	Phone      string `json:"phone,omitempty"`      // optional phone hint, e.g. the WhatsApp sender
	MessageID  string `json:"message_id,omitempty"` // provider message id, used to drop retries
}

// Reply is the response envelope shown to the user
type Reply struct {
	Text         string      `json:"text"`
	QuickReplies []string    `json:"quick_replies,omitempty"`
	Payload      interface{} `json:"payload,omitempty"`
}

// Result pairs the reply with the session state after handling
type Result struct {
	Reply   Reply               `json:"reply"`
	Session *models.ChatSession `json:"session"`
}

// ConversationOptions holds the venue specific settings
type ConversationOptions struct {
	RestaurantName string
	CountryCode    string
	MaxQuantity    int
	MaxPartySize   int
	BookingHorizon time.Duration
}

// Conversation is the entry point of the ordering/reservation state machine
type Conversation struct {
	sessions   *SessionManager
	catalog    storage.CatalogStore
	customers  storage.CustomerStore
	tables     storage.TableStore
	orders     storage.OrderStore
	validators *Validators
	notifier   Notifier
	opts       ConversationOptions
	logger     *zap.Logger
}

// NewConversation wires the dispatcher with its collaborators
func NewConversation(
	store storage.Store,
	sessions *SessionManager,
	validators *Validators,
	notifier Notifier,
	opts ConversationOptions,
	logger *zap.Logger,
) *Conversation {
	if opts.RestaurantName == "" {
		opts.RestaurantName = "TablePe"
	}
	if opts.MaxQuantity <= 0 {
		opts.MaxQuantity = 50
	}
	if opts.MaxPartySize <= 0 {
		opts.MaxPartySize = 20
	}
	if opts.BookingHorizon <= 0 {
		opts.BookingHorizon = 60 * 24 * time.Hour
	}
	return &Conversation{
		sessions:   sessions,
		catalog:    store,
		customers:  store,
		tables:     store,
		orders:     store,
		validators: validators,
		notifier:   notifier,
		opts:       opts,
		logger:     logger,
	}
}

// input is the normalized form of a message
type input struct {
	raw       string
	lower     string
	phone     string
	messageID string
}

func newInput(msg Message) input {
	raw := strings.TrimSpace(msg.Text)
	return input{
		raw:       raw,
		lower:     strings.ToLower(raw),
		phone:     msg.Phone,
		messageID: msg.MessageID,
	}
}

// ProcessMessage resolves the session, routes the message to exactly one
// handler and persists the result. Collaborator errors are returned without
// saving, so a retry resumes from the previous state.
func (c *Conversation) ProcessMessage(ctx context.Context, msg Message) (*Result, error) {
	if msg.SessionKey == "" {
		return nil, fmt.Errorf("session key is required")
	}

	unlock, err := c.sessions.Lock(ctx, msg.SessionKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, _, err := c.sessions.LoadOrCreate(ctx, msg.SessionKey)
	if err != nil {
		return nil, err
	}

	if msg.MessageID != "" && msg.MessageID == session.LastMessageID && session.LastReply != nil {
		c.logger.Info("Redelivered message, replaying last reply",
			zap.String("session_key", msg.SessionKey),
			zap.String("message_id", msg.MessageID))
		return &Result{Reply: replayReply(session.LastReply), Session: session}, nil
	}

	reply, err := c.dispatch(ctx, session, newInput(msg))
	if err != nil {
		c.logger.Error("Message handling failed",
			zap.String("session_key", msg.SessionKey),
			zap.Int("stage", session.Stage),
			zap.Error(err))
		return nil, err
	}
	rememberReply(session, msg.MessageID, reply)

	if err := c.sessions.Save(ctx, session); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.logger.Warn("Session vanished before save, starting over", zap.String("session_key", msg.SessionKey))
			fresh, err := c.sessions.Recreate(ctx, msg.SessionKey)
			if err != nil {
				return nil, err
			}
			return &Result{Reply: restartReply(), Session: fresh}, nil
		}
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return &Result{Reply: reply, Session: session}, nil
}

// dispatch routes on the session mode. The reservation form pre-empts the
// main stage whenever a draft exists.
func (c *Conversation) dispatch(ctx context.Context, s *models.ChatSession, in input) (Reply, error) {
	switch mode := s.Mode().(type) {
	case models.ReservationFlow:
		c.logger.Debug("Routing to reservation flow",
			zap.String("session_key", s.SessionKey),
			zap.Int("step", mode.Draft.Step))
		return c.handleReservation(ctx, s, mode.Draft, in)

	case models.MainFlow:
		c.logger.Debug("Routing to main flow",
			zap.String("session_key", s.SessionKey),
			zap.Int("stage", mode.Stage))
		return c.dispatchStage(ctx, s, mode.Stage, in)
	}

	Reset(s)
	return restartReply(), nil
}

func (c *Conversation) dispatchStage(ctx context.Context, s *models.ChatSession, stage int, in input) (Reply, error) {
	if stage != models.StageGreeting && isGreeting(in) {
		Reset(s)
		return c.handleGreeting(ctx, s, in)
	}
	if stage > models.StageIdentify && stage <= models.MaxStage && s.IsRegistered && in.lower == "menu" {
		return c.enterCategories(ctx, s, "")
	}

	switch {
	case stage == models.StageGreeting:
		return c.handleGreeting(ctx, s, in)
	case stage == models.StageIdentify:
		return c.handleIdentify(ctx, s, in)
	case stage == models.StageCategories:
		return c.handleCategories(ctx, s, in)
	case stage == models.StageSubcategories:
		return c.handleSubcategories(ctx, s, in)
	case stage == models.StageItems:
		return c.handleItems(ctx, s, in)
	case stage == models.StageItemDetail:
		return c.handleItemDetail(ctx, s, in)
	case stage == models.StageCart:
		return c.handleCart(ctx, s, in)
	case stage >= models.StageAddress && stage <= models.StageCheckoutSaved:
		return c.handleCheckout(ctx, s, stage, in)
	case stage == models.StageSummary:
		return c.handleSummary(ctx, s, in)
	case stage == models.StageCommit:
		return c.handleCommit(ctx, s, in)
	}

	c.logger.Warn("Unknown stage, restarting conversation",
		zap.String("session_key", s.SessionKey),
		zap.Int("stage", stage))
	Reset(s)
	return restartReply(), nil
}

// rememberReply records the handled message id so a provider redelivery is
// answered from the record instead of advancing the conversation again.
func rememberReply(s *models.ChatSession, messageID string, reply Reply) {
	s.LastMessageID = messageID
	if messageID == "" {
		s.LastReply = nil
		return
	}
	record := &models.ReplyRecord{
		Text:         reply.Text,
		QuickReplies: append([]string(nil), reply.QuickReplies...),
	}
	if reply.Payload != nil {
		if raw, err := json.Marshal(reply.Payload); err == nil {
			record.Payload = raw
		}
	}
	s.LastReply = record
}

func replayReply(r *models.ReplyRecord) Reply {
	reply := Reply{Text: r.Text, QuickReplies: append([]string(nil), r.QuickReplies...)}
	if len(r.Payload) > 0 {
		reply.Payload = r.Payload
	}
	return reply
}

func restartReply() Reply {
	return Reply{
		Text:         "⚠️ Something went wrong with our conversation, so we are restarting.\n\nSay *hi* to begin again.",
		QuickReplies: []string{"Hi"},
	}
}

// resolveCustomer finds the customer by normalized phone or creates one
func (c *Conversation) resolveCustomer(ctx context.Context, phone string) (*models.Customer, error) {
	customer, err := c.customers.GetCustomerByPhone(ctx, phone)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}
	customer, err = c.customers.CreateCustomer(ctx, &models.Customer{Phone: phone})
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	c.logger.Info("Customer created", zap.Uint("customer_id", customer.ID), zap.String("phone", utils.MaskPhone(phone)))
	return customer, nil
}

// attachCustomer links the identity to the session and marks it registered
func attachCustomer(s *models.ChatSession, customer *models.Customer) {
	s.CustomerID = models.UintPtr(customer.ID)
	s.Phone = customer.Phone
	s.IsRegistered = true
}

// currentCustomer loads the linked customer, or nil when none
func (c *Conversation) currentCustomer(ctx context.Context, s *models.ChatSession) (*models.Customer, error) {
	if s.CustomerID == nil {
		return nil, nil
	}
	customer, err := c.customers.GetCustomer(ctx, *s.CustomerID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	return customer, nil
}

// notifyAsync runs fn in the background. Its failure never affects the reply.
func (c *Conversation) notifyAsync(name string, fn func(ctx context.Context, n Notifier) error) {
	if c.notifier == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("Notification panicked", zap.String("notification", name), zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := fn(ctx, c.notifier); err != nil {
			c.logger.Warn("Notification failed", zap.String("notification", name), zap.Error(err))
		}
	}()
}

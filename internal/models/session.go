package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Main flow stages
const (
	StageGreeting       = 0
	StageIdentify       = 1
	StageCategories     = 2
	StageSubcategories  = 3
	StageItems          = 4
	StageItemDetail     = 5
	StageCart           = 6
	StageAddress        = 7
	StageConfirmAddress = 8
	StageSaveAddress    = 9
	StagePaymentOptions = 10
	StagePayment        = 11
	StageNotes          = 12
	StageCheckoutSaved  = 13
	StageSummary        = 14
	StageCommit         = 15

	MaxStage = StageCommit
)

// ChatSession stores the conversation state for one conversant.
// It is reloaded from storage for every inbound message.
type ChatSession struct {
	gorm.Model
	SessionKey   string `json:"session_key" gorm:"uniqueIndex;not null"`
	CustomerID   *uint  `json:"customer_id"`
	Phone        string `json:"phone"`
	Stage        int    `json:"stage" gorm:"default:0"`
	IsRegistered bool   `json:"is_registered" gorm:"default:false"`
	IsOpen       bool   `json:"is_open" gorm:"default:true;index"`

	Cart Cart `json:"cart" gorm:"serializer:json;type:jsonb"`

	// Scratch fields for the browsing stages
	SelectedCategoryID    *uint `json:"selected_category_id"`
	SelectedSubcategoryID *uint `json:"selected_subcategory_id"`
	PendingItemID         *uint `json:"pending_item_id"`

	Checkout    CheckoutData      `json:"checkout" gorm:"serializer:json;type:jsonb"`
	Reservation *ReservationDraft `json:"reservation,omitempty" gorm:"serializer:json;type:jsonb"`

	// ReservationRequested is set while stage 1 collects the phone for a booking
	ReservationRequested bool `json:"reservation_requested,omitempty" gorm:"default:false"`

	// Last handled provider message and the reply sent for it. A redelivery
	// with the same id gets this reply back instead of being handled again.
	LastMessageID string       `json:"last_message_id,omitempty"`
	LastReply     *ReplyRecord `json:"last_reply,omitempty" gorm:"serializer:json;type:jsonb"`

	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
}

// ReplyRecord is a stored copy of a reply envelope
type ReplyRecord struct {
	Text         string          `json:"text"`
	QuickReplies []string        `json:"quick_replies,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// NewChatSession returns a fresh session at the greeting stage.
func NewChatSession(key string, expiresAt time.Time) *ChatSession {
	return &ChatSession{
		SessionKey: key,
		Stage:      StageGreeting,
		IsOpen:     true,
		ExpiresAt:  expiresAt,
	}
}

// SessionMode tells the dispatcher which flow owns the next message.
// It is either MainFlow or ReservationFlow.
type SessionMode interface {
	isSessionMode()
}

// MainFlow is the ordering flow positioned at Stage.
type MainFlow struct {
	Stage int
}

// ReservationFlow is the nested reservation form.
type ReservationFlow struct {
	Draft *ReservationDraft
}

func (MainFlow) isSessionMode()        {}
func (ReservationFlow) isSessionMode() {}

// Mode derives the active flow from the persisted fields.
func (s *ChatSession) Mode() SessionMode {
	if s.Reservation != nil {
		return ReservationFlow{Draft: s.Reservation}
	}
	return MainFlow{Stage: s.Stage}
}

// ClearBrowsing drops the browsing scratch fields.
func (s *ChatSession) ClearBrowsing() {
	s.SelectedCategoryID = nil
	s.SelectedSubcategoryID = nil
	s.PendingItemID = nil
}

// Clone returns a deep copy so callers can mutate freely.
func (s *ChatSession) Clone() *ChatSession {
	if s == nil {
		return nil
	}
	c := *s
	c.CustomerID = cloneUint(s.CustomerID)
	c.SelectedCategoryID = cloneUint(s.SelectedCategoryID)
	c.SelectedSubcategoryID = cloneUint(s.SelectedSubcategoryID)
	c.PendingItemID = cloneUint(s.PendingItemID)
	c.Cart = s.Cart.Clone()
	if s.Reservation != nil {
		d := *s.Reservation
		d.OfferedTables = append([]uint(nil), s.Reservation.OfferedTables...)
		c.Reservation = &d
	}
	if s.LastReply != nil {
		r := *s.LastReply
		r.QuickReplies = append([]string(nil), s.LastReply.QuickReplies...)
		r.Payload = append(json.RawMessage(nil), s.LastReply.Payload...)
		c.LastReply = &r
	}
	return &c
}

func cloneUint(v *uint) *uint {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

// UintPtr is a small helper for optional ids.
func UintPtr(v uint) *uint {
	return &v
}

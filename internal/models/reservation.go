package models

import (
	"time"

	"gorm.io/gorm"
)

// Reservation steps
const (
	ReservationStepDate    = 1
	ReservationStepTime    = 2
	ReservationStepParty   = 3
	ReservationStepTable   = 4
	ReservationStepNotes   = 5
	ReservationStepSummary = 6
	ReservationStepCommit  = 7
)

// ReservationDraft is the scratch state of the nested reservation form.
type ReservationDraft struct {
	Step          int    `json:"step"`
	Date          string `json:"date,omitempty"` // 2006-01-02
	Time          string `json:"time,omitempty"` // 15:04
	PartySize     int    `json:"party_size,omitempty"`
	TableID       uint   `json:"table_id,omitempty"`
	TableLabel    string `json:"table_label,omitempty"`
	Notes         string `json:"notes,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	// OfferedTables keeps the order tables were listed in at step 4.
	OfferedTables     []uint `json:"offered_tables,omitempty"`
	ReservationNumber string `json:"reservation_number,omitempty"`
}

// Reservation represents a table booking
type Reservation struct {
	gorm.Model
	ReservationNumber string `json:"reservation_number" gorm:"uniqueIndex;not null"`
	CustomerID        *uint  `json:"customer_id" gorm:"index"`
	TableID           uint   `json:"table_id" gorm:"index;not null"`
	Date              string `json:"date" gorm:"index;not null"` // 2006-01-02
	Time              string `json:"time" gorm:"not null"`       // 15:04
	PartySize         int    `json:"party_size"`
	Notes             string `json:"notes"`
	CustomerName      string `json:"customer_name"`
	CustomerPhone     string `json:"customer_phone"`
	Status            string `json:"status" gorm:"index;default:'pending'"`
}

// Reservation status constants
const (
	ReservationStatusPending   = "pending"
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusActive    = "active"
	ReservationStatusCompleted = "completed"
	ReservationStatusCancelled = "cancelled"
	ReservationStatusExpired   = "expired"
)

// BlockingReservationStatuses hold a table for their slot.
var BlockingReservationStatuses = []string{
	ReservationStatusPending,
	ReservationStatusConfirmed,
	ReservationStatusActive,
}

// StartsAt combines Date and Time in loc.
func (r *Reservation) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", r.Date+" "+r.Time, loc)
}

// DiningTable is a physical table in the venue
type DiningTable struct {
	gorm.Model
	Label    string `json:"label" gorm:"uniqueIndex;not null"`
	Capacity int    `json:"capacity" gorm:"not null"`
	Location string `json:"location"` // "terrace", "main hall"
	Status   string `json:"status" gorm:"default:'available'"`
}

// Table status constants
const (
	TableStatusAvailable   = "available"
	TableStatusMaintenance = "maintenance"
)

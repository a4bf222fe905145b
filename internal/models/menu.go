package models

import "gorm.io/gorm"

// Category is the top level of the menu
type Category struct {
	gorm.Model
	Name      string `json:"name" gorm:"not null"`
	SortOrder int    `json:"sort_order"`
	Active    bool   `json:"active" gorm:"default:true"`
}

// Subcategory groups items inside a category
type Subcategory struct {
	gorm.Model
	CategoryID uint   `json:"category_id" gorm:"index;not null"`
	Name       string `json:"name" gorm:"not null"`
	SortOrder  int    `json:"sort_order"`
	Active     bool   `json:"active" gorm:"default:true"`
}

// MenuItem is a sellable product
type MenuItem struct {
	gorm.Model
	CategoryID    uint    `json:"category_id" gorm:"index"`
	SubcategoryID uint    `json:"subcategory_id" gorm:"index"`
	Name          string  `json:"name" gorm:"not null"`
	Description   string  `json:"description"`
	Price         float64 `json:"price" gorm:"type:decimal(12,2);not null"`
	DeliveryCost  float64 `json:"delivery_cost" gorm:"type:decimal(12,2);default:0"`
	Status        string  `json:"status" gorm:"default:'active'"`
}

// Item status constants
const (
	ItemStatusActive   = "active"
	ItemStatusInactive = "inactive"
	ItemStatusSoldOut  = "sold_out"
)

// IsOrderable reports whether the item can still be sold
func (m *MenuItem) IsOrderable() bool {
	return m != nil && m.Status == ItemStatusActive
}

// OpeningHours is one row of the weekly schedule
type OpeningHours struct {
	gorm.Model
	Weekday  int    `json:"weekday" gorm:"uniqueIndex"` // time.Weekday
	IsClosed bool   `json:"is_closed"`
	OpensAt  string `json:"opens_at"`  // 15:04
	ClosesAt string `json:"closes_at"` // 15:04, may be before OpensAt for overnight service
	Note     string `json:"note"`
}

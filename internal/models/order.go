package models

import "gorm.io/gorm"

// Order is a committed cart
type Order struct {
	gorm.Model
	OrderNumber     string      `json:"order_number" gorm:"uniqueIndex;not null"`
	CustomerID      uint        `json:"customer_id" gorm:"index;not null"`
	Status          string      `json:"status" gorm:"default:'received'"`
	Fulfillment     string      `json:"fulfillment"`
	DeliveryAddress string      `json:"delivery_address"`
	PaymentMethod   string      `json:"payment_method"`
	Notes           string      `json:"notes"`
	Subtotal        float64     `json:"subtotal" gorm:"type:decimal(12,2)"`
	DeliveryCost    float64     `json:"delivery_cost" gorm:"type:decimal(12,2)"`
	Total           float64     `json:"total" gorm:"type:decimal(12,2)"`
	Items           []OrderItem `json:"items" gorm:"foreignKey:OrderID"`
}

// OrderItem is one line of an order
type OrderItem struct {
	gorm.Model
	OrderID    uint    `json:"order_id" gorm:"index;not null"`
	MenuItemID uint    `json:"menu_item_id" gorm:"not null"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price" gorm:"type:decimal(12,2)"`
	Subtotal   float64 `json:"subtotal" gorm:"type:decimal(12,2)"`
}

// KitchenTicket is a fulfillment queue entry, one per order line
type KitchenTicket struct {
	gorm.Model
	OrderID     uint   `json:"order_id" gorm:"index;not null"`
	OrderItemID uint   `json:"order_item_id"`
	MenuItemID  uint   `json:"menu_item_id"`
	Quantity    int    `json:"quantity"`
	Status      string `json:"status" gorm:"default:'queued'"`
}

// Order status constants
const (
	OrderStatusReceived = "received"
	TicketStatusQueued  = "queued"
)

// Payment methods offered at checkout
const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
)

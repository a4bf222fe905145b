package models

import (
	"fmt"

	"gorm.io/gorm"
)

// Customer is identified by a normalized 10 digit phone number
type Customer struct {
	gorm.Model
	Phone   string `json:"phone" gorm:"uniqueIndex;not null"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// BeforeCreate fills a display name when none was captured
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.Name == "" {
		c.Name = DefaultCustomerName(c.Phone)
	}
	return nil
}

// DefaultCustomerName builds "Customer 5678" from the phone's last digits
func DefaultCustomerName(phone string) string {
	if len(phone) > 4 {
		phone = phone[len(phone)-4:]
	}
	return fmt.Sprintf("Customer %s", phone)
}

package models

// CartLine is one priced product entry. UnitPrice and DeliveryCost are
// captured when the line is added and never refreshed from the catalog.
type CartLine struct {
	ItemID       uint    `json:"item_id"`
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	DeliveryCost float64 `json:"delivery_cost"`
	Subtotal     float64 `json:"subtotal"`
}

// Cart is the ordered list of lines in an in-progress order.
type Cart struct {
	Lines []CartLine `json:"lines"`
	// LastOpID is the id of the last applied mutation, used to drop retried requests.
	LastOpID string `json:"last_op_id,omitempty"`
}

// IsEmpty reports whether there is anything to check out.
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Clone copies the line slice.
func (c Cart) Clone() Cart {
	return Cart{
		Lines:    append([]CartLine(nil), c.Lines...),
		LastOpID: c.LastOpID,
	}
}

// Totals are derived from a cart and never stored.
type Totals struct {
	Subtotal     float64 `json:"subtotal"`
	DeliveryCost float64 `json:"delivery_cost"`
	Total        float64 `json:"total"`
	ItemCount    int     `json:"item_count"`
}

// CheckoutData collects the checkout answers (stages 7-13).
type CheckoutData struct {
	Fulfillment     string `json:"fulfillment,omitempty"`
	DeliveryAddress string `json:"delivery_address,omitempty"`
	PaymentMethod   string `json:"payment_method,omitempty"`
	Notes           string `json:"notes,omitempty"`
	Saved           bool   `json:"saved,omitempty"`
	// OrderNumber is reserved before commit so a retried commit is idempotent.
	OrderNumber string `json:"order_number,omitempty"`
}

const (
	FulfillmentDelivery = "delivery"
	FulfillmentPickup   = "pickup"
)

// Missing returns the first checkout stage whose answer is still absent, or 0.
func (c CheckoutData) Missing() int {
	switch {
	case c.Fulfillment == "":
		return StageAddress
	case c.Fulfillment == FulfillmentDelivery && c.DeliveryAddress == "":
		return StageAddress
	case c.PaymentMethod == "":
		return StagePayment
	}
	return 0
}

package services

import "github.com/Ananth-NQI/tablepe-backend/internal/models"

// The cart functions never mutate their input. Each returns a new cart.

// AddToCart inserts item with qty or merges qty into the existing line.
// A non-empty opID equal to the cart's last applied op is a retried request
// and leaves the cart unchanged. The second return reports whether it applied.
func AddToCart(cart models.Cart, item *models.MenuItem, qty int, opID string) (models.Cart, bool) {
	if item == nil || qty <= 0 {
		return cart.Clone(), false
	}
	if opID != "" && opID == cart.LastOpID {
		return cart.Clone(), false
	}

	next := cart.Clone()
	next.LastOpID = opID
	for i := range next.Lines {
		line := &next.Lines[i]
		if line.ItemID == item.ID {
			line.Quantity += qty
			line.Subtotal = float64(line.Quantity) * line.UnitPrice
			return next, true
		}
	}

	next.Lines = append(next.Lines, models.CartLine{
		ItemID:       item.ID,
		Name:         item.Name,
		Quantity:     qty,
		UnitPrice:    item.Price,
		DeliveryCost: item.DeliveryCost,
		Subtotal:     float64(qty) * item.Price,
	})
	return next, true
}

// SetQuantity sets a line's quantity; qty <= 0 removes the line.
func SetQuantity(cart models.Cart, itemID uint, qty int) models.Cart {
	if qty <= 0 {
		return RemoveLine(cart, itemID)
	}
	next := cart.Clone()
	for i := range next.Lines {
		line := &next.Lines[i]
		if line.ItemID == itemID {
			line.Quantity = qty
			line.Subtotal = float64(qty) * line.UnitPrice
		}
	}
	return next
}

// RemoveLine drops the line for itemID, keeping the order of the rest.
func RemoveLine(cart models.Cart, itemID uint) models.Cart {
	next := models.Cart{LastOpID: cart.LastOpID}
	for _, line := range cart.Lines {
		if line.ItemID != itemID {
			next.Lines = append(next.Lines, line)
		}
	}
	return next
}

// ClearCart empties the cart.
func ClearCart(cart models.Cart) models.Cart {
	return models.Cart{LastOpID: cart.LastOpID}
}

// ComputeTotals sums line subtotals and charges the highest delivery cost
// among the lines once. Delivery costs are not added together.
func ComputeTotals(cart models.Cart) models.Totals {
	var totals models.Totals
	for _, line := range cart.Lines {
		totals.Subtotal += line.Subtotal
		totals.ItemCount += line.Quantity
		if line.DeliveryCost > totals.DeliveryCost {
			totals.DeliveryCost = line.DeliveryCost
		}
	}
	totals.Total = totals.Subtotal + totals.DeliveryCost
	return totals
}

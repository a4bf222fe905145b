package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Ananth-NQI/tablepe-backend/internal/models"
)

var moneyPrinter = message.NewPrinter(language.English)

// formatMoney renders whole currency units with thousands separators: $12,500
func formatMoney(amount float64) string {
	return moneyPrinter.Sprintf("$%d", int64(amount+0.5))
}

// parseSelection maps "1".."n" to a zero based index
func parseSelection(text string, n int) (int, bool) {
	text = strings.TrimSuffix(strings.TrimSpace(text), ".")
	choice, err := strconv.Atoi(text)
	if err != nil || choice < 1 || choice > n {
		return 0, false
	}
	return choice - 1, true
}

func matches(in input, words ...string) bool {
	for _, w := range words {
		if in.lower == w {
			return true
		}
	}
	return false
}

func isGreeting(in input) bool {
	return matches(in, "hi", "hello", "hola", "start", "restart", "inicio")
}

func isYes(in input) bool {
	return matches(in, "yes", "y", "si", "sí", "ok", "confirm", "1")
}

func isNo(in input) bool {
	return matches(in, "no", "n", "2")
}

func isCancel(in input) bool {
	return matches(in, "cancel", "cancelar", "stop", "exit")
}

func isBack(in input) bool {
	return matches(in, "back", "volver")
}

func isCartCommand(in input) bool {
	return matches(in, "cart", "carrito", "my cart")
}

func isSkip(in input) bool {
	return matches(in, "no", "skip", "none", "-", "n/a", "nothing")
}

func wantsReservation(in input) bool {
	return matches(in, "reserve", "reservation", "book", "book a table", "reserve a table", "reservar") ||
		strings.Contains(in.lower, "reserv")
}

// numbered renders a 1-based list
func numbered(lines []string) string {
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%d. %s\n", i+1, line)
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderCart lists the lines and totals
func renderCart(cart models.Cart) string {
	var b strings.Builder
	for i, line := range cart.Lines {
		fmt.Fprintf(&b, "%d. %d x %s - %s\n", i+1, line.Quantity, line.Name, formatMoney(line.Subtotal))
	}
	totals := ComputeTotals(cart)
	fmt.Fprintf(&b, "\nSubtotal: %s\n", formatMoney(totals.Subtotal))
	fmt.Fprintf(&b, "Delivery: %s\n", formatMoney(totals.DeliveryCost))
	fmt.Fprintf(&b, "*Total: %s*", formatMoney(totals.Total))
	return b.String()
}

// cartPayload is the structured form of the cart for rich clients
type cartPayload struct {
	Lines  []models.CartLine `json:"lines"`
	Totals models.Totals     `json:"totals"`
}

func newCartPayload(cart models.Cart) cartPayload {
	return cartPayload{Lines: cart.Lines, Totals: ComputeTotals(cart)}
}

// parseDate accepts YYYY-MM-DD, DD/MM/YYYY, today and tomorrow
func parseDate(in input, now time.Time) (time.Time, bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch in.lower {
	case "today", "hoy":
		return today, true
	case "tomorrow", "mañana", "manana":
		return today.AddDate(0, 0, 1), true
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006", "2/1/2006"} {
		if d, err := time.ParseInLocation(layout, in.raw, now.Location()); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// parseTimeOfDay accepts 19:30, 7:30pm and 7pm and returns HH:MM
func parseTimeOfDay(in input) (string, bool) {
	text := strings.ReplaceAll(in.lower, " ", "")
	text = strings.ReplaceAll(text, ".", "")
	for _, layout := range []string{"15:04", "3:04pm", "3pm"} {
		if t, err := time.Parse(layout, text); err == nil {
			return t.Format("15:04"), true
		}
	}
	return "", false
}

package utils

import (
	"fmt"
	"strings"
	"unicode"
)

// PhoneDigits is the length of a national mobile number
const PhoneDigits = 10

// NormalizePhone strips formatting and the country code prefix and requires
// exactly 10 remaining digits. "+57 301 234 5678" becomes "3012345678".
func NormalizePhone(raw, countryCode string) (string, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "whatsapp:")

	var b strings.Builder
	for _, r := range raw {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", fmt.Errorf("phone number must contain only digits")
		}
	}
	digits := b.String()

	if len(digits) > PhoneDigits && countryCode != "" {
		digits = strings.TrimPrefix(digits, "00")
		digits = strings.TrimPrefix(digits, countryCode)
	}
	if len(digits) != PhoneDigits {
		return "", fmt.Errorf("phone number must have exactly %d digits", PhoneDigits)
	}
	return digits, nil
}

// MaskPhone hides all but the last four digits for logs
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$0", formatMoney(0))
	assert.Equal(t, "$5,000", formatMoney(5000))
	assert.Equal(t, "$1,234,568", formatMoney(1234567.5))
}

func TestParseSelection(t *testing.T) {
	idx, ok := parseSelection("2", 3)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	idx, ok = parseSelection(" 3. ", 3)
	assert.True(t, ok)
	assert.Equal(t, 2, idx)

	for _, text := range []string{"0", "4", "two", ""} {
		_, ok := parseSelection(text, 3)
		assert.False(t, ok, text)
	}
}

func TestParseDate(t *testing.T) {
	now := time.Date(2024, 6, 12, 15, 0, 0, 0, bogota)

	tests := map[string]string{
		"today":      "2024-06-12",
		"Tomorrow":   "2024-06-13",
		"2024-12-24": "2024-12-24",
		"24/12/2024": "2024-12-24",
		"1/7/2024":   "2024-07-01",
	}
	for text, want := range tests {
		got, ok := parseDate(newInput(Message{Text: text}), now)
		if assert.True(t, ok, text) {
			assert.Equal(t, want, got.Format("2006-01-02"), text)
		}
	}

	_, ok := parseDate(newInput(Message{Text: "next week"}), now)
	assert.False(t, ok)
}

func TestParseTimeOfDay(t *testing.T) {
	tests := map[string]string{
		"19:30":   "19:30",
		"7:30pm":  "19:30",
		"7:30 PM": "19:30",
		"7pm":     "19:00",
		"12am":    "00:00",
		"9:05":    "09:05",
	}
	for text, want := range tests {
		got, ok := parseTimeOfDay(newInput(Message{Text: text}))
		if assert.True(t, ok, text) {
			assert.Equal(t, want, got, text)
		}
	}

	for _, text := range []string{"dinner", "25:00", "7.5"} {
		_, ok := parseTimeOfDay(newInput(Message{Text: text}))
		assert.False(t, ok, text)
	}
}

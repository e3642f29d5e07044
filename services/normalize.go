package services

import (
	"math"
	"strconv"
	"strings"
)

// digitMap translates Persian and Arabic-Indic digit glyphs to their
// ASCII equivalents. The price displays use Persian digits; the Arabic
// set appears occasionally depending on the device locale.
var digitMap = map[rune]rune{
	'۰': '0', '۱': '1', '۲': '2', '۳': '3', '۴': '4',
	'۵': '5', '۶': '6', '۷': '7', '۸': '8', '۹': '9',
	'٠': '0', '١': '1', '٢': '2', '٣': '3', '٤': '4',
	'٥': '5', '٦': '6', '٧': '7', '٨': '8', '٩': '9',
}

// ParsePrice converts localized price text to a numeric value. It maps
// Persian/Arabic-Indic digits to ASCII, strips grouping separators and
// currency words, and parses the remainder as a decimal number.
//
// It returns nil when the input holds no finite number. Zero is a
// legitimate price and is returned as a non-nil 0, never conflated with
// "missing".
func ParsePrice(text string) *float64 {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var b strings.Builder
	for _, r := range text {
		if ascii, ok := digitMap[r]; ok {
			b.WriteRune(ascii)
			continue
		}
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.':
			b.WriteRune(r)
		case r == '٫': // Arabic decimal separator
			b.WriteRune('.')
		default:
			// Grouping separators (٬ ، ,) and any unit text are dropped.
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		return nil
	}

	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return &n
}

// NormalizeText trims and collapses whitespace in extracted UI text.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package currency

import (
	"fmt"
	"strings"
)

// Currencies Stripe treats as zero-decimal: amounts are already whole units.
var zeroDecimal = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true,
	"KMF": true, "KRW": true, "MGA": true, "PYG": true, "RWF": true,
	"UGX": true, "VND": true, "VUV": true, "XAF": true, "XOF": true,
	"XPF": true,
}

var symbols = map[string]string{
	"USD": "$",
	"CAD": "$",
	"AUD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// IsZeroDecimal reports whether the currency has no minor unit.
func IsZeroDecimal(code string) bool {
	return zeroDecimal[strings.ToUpper(code)]
}

// Import converts an amount in the smallest currency unit to major units.
func Import(amount int64, code string) float64 {
	if IsZeroDecimal(code) {
		return float64(amount)
	}
	return float64(amount) / 100
}

// Export converts an amount in major units to the smallest currency unit.
func Export(amount float64, code string) int64 {
	if IsZeroDecimal(code) {
		return int64(amount + 0.5)
	}
	return int64(amount*100 + 0.5)
}

// ToMoney formats an amount for display in entry notes.
func ToMoney(amount float64, code string) string {
	code = strings.ToUpper(code)
	symbol, ok := symbols[code]
	if !ok {
		if IsZeroDecimal(code) {
			return fmt.Sprintf("%.0f %s", amount, code)
		}
		return fmt.Sprintf("%.2f %s", amount, code)
	}
	if IsZeroDecimal(code) {
		return fmt.Sprintf("%s%.0f", symbol, amount)
	}
	return fmt.Sprintf("%s%.2f", symbol, amount)
}

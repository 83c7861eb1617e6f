package catalog

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// DefaultMarkup is the flat amount added on top of the wholesale price.
const DefaultMarkup int64 = 1000

// FinalPrice derives the sale price from a locale-formatted wholesale price
// string: decimal comma becomes a dot, embedded spaces are stripped, and the
// markup is added before rounding. Empty or non-numeric input yields 0.
func FinalPrice(wholesale string, markup int64) int64 {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, wholesale)
	clean = strings.ReplaceAll(clean, ",", ".")
	if clean == "" {
		return 0
	}

	value, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(value + float64(markup)))
}

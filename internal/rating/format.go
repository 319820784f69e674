package rating

import (
	"math"
	"strconv"
)

// FormatDelta renders a rating change with an explicit sign and three
// decimals: "+0.043", "-0.043", "0.000".
func FormatDelta(d float64) string {
	r := math.Round(d*1000) / 1000
	if r == 0 {
		return "0.000"
	}
	s := strconv.FormatFloat(r, 'f', 3, 64)
	if r > 0 {
		return "+" + s
	}
	return s
}

package plan

import (
	"fmt"
	"math"
)

// Badge renders "Label: used / cap (pct%)". With no cap only the used amount
// is shown. The percentage stops at 100.
func Badge(label string, used, limit float64) string {
	if limit <= 0 {
		return fmt.Sprintf("%s: %.1f", label, used)
	}
	pct := int(math.Round(used / limit * 100))
	if pct > 100 {
		pct = 100
	}
	return fmt.Sprintf("%s: %.1f / %.0f (%d%%)", label, used, limit, pct)
}

// Fraction returns used/limit clamped to [0, 1], or 0 when there is no cap.
func Fraction(used, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	f := used / limit
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

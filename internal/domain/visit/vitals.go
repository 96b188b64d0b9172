package visit

import (
	"math"
	"strconv"
	"strings"

	"github.com/sga/sga/internal/platform/apperr"
)

// ParseTemperature reads a temperature written with either a comma or a dot
// as the decimal separator. The value must be finite; no range is enforced.
func ParseTemperature(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, apperr.Validation("temperatura is required")
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperr.Validation("temperatura %q is not a valid number", raw)
	}
	return v, nil
}

// FormatTemperature renders a reading the way clinic staff write it.
func FormatTemperature(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', 1, 64), ".", ",", 1) + " °C"
}

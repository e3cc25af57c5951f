package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxPrecision is the largest rounding precision accepted. A float64 carries
// about 15 significant decimal digits, so finer grids cannot be represented.
const MaxPrecision = 15

func checkPrecision(precision int) error {
	if precision < 0 || precision > MaxPrecision {
		return fmt.Errorf("%w: %d (want 0..%d)", ErrInvalidPrecision, precision, MaxPrecision)
	}
	return nil
}

// roundCoordinate rounds v to precision decimal digits, half away from zero.
// It works on the shortest decimal representation of v rather than on the
// binary value, so 23.7925 rounds up like it reads. The returned string is
// the canonical form used in cluster keys ("23.793", "90.42", "0").
func roundCoordinate(v float64, precision int) (float64, string) {
	d := decimal.NewFromFloat(v).Round(int32(precision))
	return d.InexactFloat64(), d.String()
}

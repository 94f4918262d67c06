package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ToString converts a scanned column value to a trimmed string. NULL becomes "".
func ToString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []byte:
		return strings.TrimSpace(string(v))
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// ToDecimal converts a scanned column value to a decimal using explicit type switching.
// Drivers hand DECIMAL columns over as strings or byte slices, which are parsed
// exactly; floats are converted through their shortest representation.
// ok is false for NULL and blank values.
func ToDecimal(val any) (d decimal.Decimal, ok bool, err error) {
	switch v := val.(type) {
	case nil:
		return decimal.Zero, false, nil
	case decimal.Decimal:
		return v, true, nil
	case int64:
		return decimal.NewFromInt(v), true, nil
	case int32:
		return decimal.NewFromInt32(v), true, nil
	case int:
		return decimal.NewFromInt(int64(v)), true, nil
	case float64:
		return decimal.NewFromFloat(v), true, nil
	case float32:
		return decimal.NewFromFloat32(v), true, nil
	}

	s := ToString(val)
	if s == "" {
		return decimal.Zero, false, nil
	}
	d, err = decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return d, true, nil
}

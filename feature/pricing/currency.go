package pricing

import (
	"context"
	"fmt"
	"math"
	"strings"

	"commerce-reconciler/core/reconcile"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	maxMinorUnits = decimal.NewFromInt(math.MaxInt64)
	minMinorUnits = decimal.NewFromInt(math.MinInt64)
)

// CurrencySnapshot is the currency metadata of one run. It is built once and
// never re-read, so precision cannot drift while the run is writing.
type CurrencySnapshot struct {
	// digits is keyed by canonical code.
	digits map[string]int32
	// canonical maps the folded form of every known code and alias to its canonical code.
	canonical map[string]string
}

// LoadCurrencySnapshot reads currency_meta and currency_aliases from the target store.
func LoadCurrencySnapshot(ctx context.Context, db *gorm.DB) (*CurrencySnapshot, error) {
	var metas []CurrencyMeta
	if err := db.WithContext(ctx).Find(&metas).Error; err != nil {
		return nil, fmt.Errorf("failed to load currency metadata: %w", err)
	}
	var aliases []CurrencyAlias
	if err := db.WithContext(ctx).Find(&aliases).Error; err != nil {
		return nil, fmt.Errorf("failed to load currency aliases: %w", err)
	}
	return NewCurrencySnapshot(metas, aliases), nil
}

// NewCurrencySnapshot copies metas and aliases into an immutable snapshot.
func NewCurrencySnapshot(metas []CurrencyMeta, aliases []CurrencyAlias) *CurrencySnapshot {
	s := &CurrencySnapshot{
		digits:    make(map[string]int32, len(metas)),
		canonical: make(map[string]string, len(metas)+len(aliases)),
	}
	for _, m := range metas {
		s.digits[m.Code] = m.DecimalDigits
		s.canonical[fold(m.Code)] = m.Code
	}
	// Aliases win over case-folded codes so "inr" -> "INR" can be stated explicitly.
	for _, a := range aliases {
		s.canonical[fold(a.Alias)] = a.CanonicalCode
	}
	return s
}

func fold(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Canonicalize collapses raw onto the code the target store uses.
// Unknown codes are returned trimmed and otherwise unchanged.
func (s *CurrencySnapshot) Canonicalize(raw string) string {
	if code, ok := s.canonical[fold(raw)]; ok {
		return code
	}
	return strings.TrimSpace(raw)
}

// Digits returns the decimal digits of a canonical code.
func (s *CurrencySnapshot) Digits(code string) (int32, error) {
	d, ok := s.digits[code]
	if !ok {
		return 0, fmt.Errorf("%w: %q", reconcile.ErrUnknownCurrency, code)
	}
	return d, nil
}

// Len returns the number of known canonical currencies.
func (s *CurrencySnapshot) Len() int { return len(s.digits) }

// ToMinorUnits scales amount by 10^digits with banker's rounding at the smallest unit.
func (s *CurrencySnapshot) ToMinorUnits(amount decimal.Decimal, code string) (int64, error) {
	digits, err := s.Digits(code)
	if err != nil {
		return 0, err
	}
	minor := amount.Shift(digits).RoundBank(0)
	if minor.GreaterThan(maxMinorUnits) || minor.LessThan(minMinorUnits) {
		return 0, fmt.Errorf("amount %s %s overflows minor units", amount, code)
	}
	return minor.IntPart(), nil
}

// FromMinorUnits converts minor units back to a decimal amount.
func (s *CurrencySnapshot) FromMinorUnits(minor int64, code string) (decimal.Decimal, error) {
	digits, err := s.Digits(code)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.New(minor, -digits), nil
}

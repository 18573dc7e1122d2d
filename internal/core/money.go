package core

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact base-10 monetary amount. It is never represented as a
// binary float: arithmetic, comparison and persistence all go through the
// underlying decimal. The zero value is zero money and ready to use.
//
// User-entered amounts must be strictly positive (ParseAmount); aggregated
// results such as net position may legitimately be negative.
type Money struct {
	d decimal.Decimal
}

// ZeroMoney returns the zero amount.
func ZeroMoney() Money { return Money{} }

// ParseAmount parses a user-entered amount. It accepts both dot (12.34) and
// comma (12,34) decimal separators and fails with ErrInvalidAmount unless the
// input is a valid decimal strictly greater than zero.
func ParseAmount(s string) (Money, error) {
	m, err := ParseMoney(s)
	if err != nil {
		return Money{}, err
	}
	if !m.IsPositive() {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

// ParseMoney parses a signed decimal string. Internal aggregation results
// (net position, remaining budget) may be negative, so no sign check here.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{d: d}, nil
}

// MoneyFromInt builds an amount of whole currency units.
func MoneyFromInt(units int64) Money {
	return Money{d: decimal.NewFromInt(units)}
}

func (m Money) Add(n Money) Money { return Money{d: m.d.Add(n.d)} }
func (m Money) Sub(n Money) Money { return Money{d: m.d.Sub(n.d)} }
func (m Money) Neg() Money        { return Money{d: m.d.Neg()} }

// MulRatio multiplies by the exact rational num/den. den must be non-zero.
// Used for growth and percentage calculations where float drift would
// accumulate.
func (m Money) MulRatio(num, den int64) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(num)).Div(decimal.NewFromInt(den))}
}

// Cmp compares two amounts: -1 if m < n, 0 if equal, +1 if m > n.
func (m Money) Cmp(n Money) int { return m.d.Cmp(n.d) }

func (m Money) Equal(n Money) bool       { return m.d.Equal(n.d) }
func (m Money) GreaterThan(n Money) bool { return m.d.GreaterThan(n.d) }
func (m Money) LessThan(n Money) bool    { return m.d.LessThan(n.d) }
func (m Money) IsZero() bool             { return m.d.IsZero() }
func (m Money) IsPositive() bool         { return m.d.IsPositive() }
func (m Money) IsNegative() bool         { return m.d.IsNegative() }

// Round2 rounds half-up to two decimal places for display.
func (m Money) Round2() Money { return Money{d: m.d.Round(2)} }

// Ratio returns m/n as a float64 for score and percentage computation only.
// n must be non-zero; callers guard the zero case explicitly.
func (m Money) Ratio(n Money) float64 {
	f, _ := m.d.Div(n.d).Round(6).Float64()
	return f
}

// String returns the exact decimal representation with at least two fraction
// digits, e.g. "12.30" or "0.005".
func (m Money) String() string {
	// The internal exponent may be finer than the value itself, e.g. after a
	// division that happens to land on a whole number.
	if m.d.Equal(m.d.Round(2)) {
		return m.d.StringFixed(2)
	}
	return m.d.String()
}

// MarshalJSON encodes the amount as a quoted decimal string, never a float.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted (or bare) decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value stores the amount as its exact decimal text.
func (m Money) Value() (driver.Value, error) {
	return m.d.String(), nil
}

// Scan reads an amount stored as decimal text.
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = Money{}
		return nil
	case string:
		parsed, err := ParseMoney(v)
		if err != nil {
			return fmt.Errorf("scan money %q: %w", v, err)
		}
		*m = parsed
		return nil
	case []byte:
		return m.Scan(string(v))
	case int64:
		*m = MoneyFromInt(v)
		return nil
	default:
		return fmt.Errorf("scan money: unsupported type %T", src)
	}
}

package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// displayPrecision is the canonical number of fractional digits in reports.
const displayPrecision = 4

// Currency is an exact base-10 fixed-point amount. The zero value is zero.
// Arithmetic never rounds; rounding happens only when rendering.
type Currency struct {
	value decimal.Decimal
}

// ParseCurrency parses a decimal string into a Currency.
func ParseCurrency(raw string) (Currency, error) {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return Currency{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return Currency{value: value}, nil
}

// Add returns the exact sum of two amounts.
func (c Currency) Add(other Currency) Currency {
	return Currency{value: c.value.Add(other.value)}
}

// Sub returns the exact difference of two amounts.
func (c Currency) Sub(other Currency) Currency {
	return Currency{value: c.value.Sub(other.value)}
}

// IsNegative reports whether the amount is below zero.
func (c Currency) IsNegative() bool {
	return c.value.IsNegative()
}

// IsZero reports whether the amount equals zero.
func (c Currency) IsZero() bool {
	return c.value.IsZero()
}

// Cmp compares two amounts: -1 if c < other, 0 if equal, +1 if c > other.
func (c Currency) Cmp(other Currency) int {
	return c.value.Cmp(other.value)
}

// Equal reports numeric equality regardless of internal exponent.
func (c Currency) Equal(other Currency) bool {
	return c.value.Equal(other.value)
}

// String renders the amount rounded to at most four fractional digits.
func (c Currency) String() string {
	return c.value.Round(displayPrecision).String()
}

// MarshalJSON renders the amount as a JSON string to avoid float coercion.
func (c Currency) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (c *Currency) UnmarshalJSON(data []byte) error {
	var value decimal.Decimal
	if err := value.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, data)
	}
	c.value = value
	return nil
}

package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when a value cannot be represented as an Amount.
var ErrInvalidAmount = errors.New("amount: invalid value")

// Amount is a non-negative quantity of the smallest token unit.
// It is a 256-bit unsigned integer; arithmetic is checked and never wraps.
// The zero value is zero and Amount values are comparable with ==.
//
//nolint:recvcheck // Value receivers for arithmetic, pointer receivers for decoding.
type Amount struct {
	u uint256.Int
}

// Zero returns a zero Amount.
func Zero() Amount { return Amount{} }

// NewAmount creates an Amount from a uint64.
func NewAmount(v uint64) Amount {
	var a Amount
	a.u.SetUint64(v)
	return a
}

// MaxAmount returns the largest representable Amount (2^256 - 1).
func MaxAmount() Amount {
	var a Amount
	a.u.SetAllOne()
	return a
}

// ParseAmount parses a base-10 string of token units, e.g. "1000000".
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" || s[0] == '-' || s[0] == '+' {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	u, err := uint256.FromDecimal(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q: %w", ErrInvalidAmount, s, err)
	}

	return Amount{u: *u}, nil
}

// MustParseAmount is like ParseAmount but panics on error.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AmountFromBig converts a big.Int. Negative values and values wider than
// 256 bits are rejected.
func AmountFromBig(b *big.Int) (Amount, error) {
	if b == nil || b.Sign() < 0 {
		return Amount{}, fmt.Errorf("%w: %v", ErrInvalidAmount, b)
	}

	u, overflow := uint256.FromBig(b)
	if overflow {
		return Amount{}, fmt.Errorf("%w: %s exceeds 256 bits", ErrInvalidAmount, b.String())
	}

	return Amount{u: *u}, nil
}

// ParseDisplay parses a human-readable decimal (e.g. "12.5") scaled by the
// given number of decimals into token units. Fractions finer than the
// smallest unit are rejected.
func ParseDisplay(s string, decimals uint8) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q: %w", ErrInvalidAmount, s, err)
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return Amount{}, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, s, decimals)
	}

	return AmountFromBig(scaled.BigInt())
}

// Arithmetic operations

// Add returns a + b. ok is false when the sum does not fit in 256 bits.
func (a Amount) Add(b Amount) (sum Amount, ok bool) {
	_, overflow := sum.u.AddOverflow(&a.u, &b.u)
	return sum, !overflow
}

// Sub returns a - b. ok is false when b > a.
func (a Amount) Sub(b Amount) (diff Amount, ok bool) {
	_, underflow := diff.u.SubOverflow(&a.u, &b.u)
	return diff, !underflow
}

// Sum adds all amounts. ok is false on overflow.
func Sum(amounts ...Amount) (Amount, bool) {
	var total Amount
	for _, a := range amounts {
		var ok bool
		if total, ok = total.Add(a); !ok {
			return Amount{}, false
		}
	}
	return total, true
}

// Comparison methods

// Cmp returns -1, 0 or +1 depending on whether a is less than, equal to or
// greater than b.
func (a Amount) Cmp(b Amount) int { return a.u.Cmp(&b.u) }

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool { return a.u.Lt(&b.u) }

// Equal reports whether a == b.
func (a Amount) Equal(b Amount) bool { return a.u.Eq(&b.u) }

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a.u.IsZero() }

// Conversion and formatting

// BigInt returns the amount as a new big.Int.
func (a Amount) BigInt() *big.Int { return a.u.ToBig() }

// Uint64 returns the amount as a uint64. ok is false if it does not fit.
func (a Amount) Uint64() (v uint64, ok bool) {
	return a.u.Uint64(), a.u.IsUint64()
}

// Decimal returns the amount scaled down by decimals as a decimal.Decimal.
func (a Amount) Decimal(decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(a.u.ToBig(), -int32(decimals))
}

// String returns the base-10 representation in token units.
func (a Amount) String() string { return a.u.Dec() }

// Format renders the amount in major units with exactly decimals places.
// Format(2) of 4900 is "49.00".
func (a Amount) Format(decimals uint8) string {
	return a.Decimal(decimals).StringFixed(int32(decimals))
}

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.u.Dec()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(data []byte) error {
	parsed, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON encodes the amount as a JSON string so values above 2^53
// survive JavaScript consumers.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.u.Dec())
}

// UnmarshalJSON accepts a JSON string or a bare JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	return a.UnmarshalText([]byte(s))
}

// Value implements driver.Valuer. Amounts are stored as decimal strings.
func (a Amount) Value() (driver.Value, error) {
	return a.u.Dec(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidAmount, v)
		}
		*a = NewAmount(uint64(v))
		return nil
	default:
		return fmt.Errorf("amount: cannot scan %T into Amount", src)
	}
}

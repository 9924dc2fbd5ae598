package pricing

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Number is a numeric form field. It keeps the text exactly as entered so the
// editor can show it back, and carries the parsed value when the text is a
// valid decimal. An invalid Number contributes zero to every computation and
// is reported by validation.
type Number struct {
	Raw   string
	Value decimal.Decimal
	Valid bool
}

// Input bounds. decimal accepts any int32 exponent, and arithmetic on
// 1e2000000000 or 1e-2147483647 overflows or never finishes.
const (
	maxDigits   = 30
	maxExponent = 20
)

var errOutOfRange = errors.New("number out of range")

// ParseNumber parses user input. Surrounding whitespace is ignored; an empty
// string is not a number, and neither is one outside the input bounds.
func ParseNumber(s string) Number {
	n := Number{Raw: s}
	v, err := parseDecimal(s)
	if err != nil {
		return n
	}
	n.Value = v
	n.Valid = true
	return n
}

func parseDecimal(s string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return decimal.Zero, errors.New("empty number")
	}
	v, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, err
	}
	if exp := v.Exponent(); exp > maxExponent || exp < -maxExponent || v.NumDigits() > maxDigits {
		return decimal.Zero, errOutOfRange
	}
	return v, nil
}

// outOfRange reports whether raw is a well formed decimal that ParseNumber
// refused because of its size.
func outOfRange(raw string) bool {
	_, err := parseDecimal(raw)
	return errors.Is(err, errOutOfRange)
}

// NumberOf wraps an already known value.
func NumberOf(v decimal.Decimal) Number {
	return Number{Raw: v.String(), Value: v, Valid: true}
}

// NumberFromFloat wraps a float coming from JSON documents returned by the ERP.
func NumberFromFloat(f float64) Number {
	return NumberOf(decimal.NewFromFloat(f))
}

// value returns the parsed value, or zero when the input was not a number.
func (n Number) value() decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	return n.Value
}

func (n Number) String() string { return n.Raw }

// UnmarshalJSON accepts both JSON numbers and strings. Anything else is kept
// as invalid raw text instead of failing the whole document, so the caller
// gets a violation per field.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = Number{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = ParseNumber(s)
		return nil
	}
	*n = ParseNumber(string(data))
	return nil
}

// MarshalJSON writes the raw text back as a string.
func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Raw)
}

package ratecard

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

type valueKind uint8

// maxExponent and maxDigits bound numeric values; String expands the exponent
// into digits, so a few input bytes could otherwise render as megabytes.
const (
	maxExponent = 64
	maxDigits   = 64
)

const (
	kindNull valueKind = iota
	kindNumber
	kindText
)

// Value is the value of a single rate cell: a number, a text value (used for
// operating hours), or null for "not applicable to this vehicle type".
// The zero Value is null.
type Value struct {
	kind valueKind
	num  decimal.Decimal
	text string
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Number returns a numeric Value.
func Number(d decimal.Decimal) Value { return Value{kind: kindNumber, num: d} }

// NumberFromFloat returns a numeric Value from a float.
func NumberFromFloat(f float64) Value { return Number(decimal.NewFromFloat(f)) }

// Text returns a text Value.
func Text(s string) Value { return Value{kind: kindText, text: s} }

// ParseNumber converts raw user input into a numeric Value. Empty input,
// input that does not parse as a number and numbers out of range all yield
// null.
func ParseNumber(raw string) Value {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Null()
	}
	d, err := parseDecimal(raw)
	if err != nil {
		return Null()
	}
	return Number(d)
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent || d.NumDigits() > maxDigits {
		return decimal.Zero, eris.Errorf("ratecard: number %s out of range", truncateString(raw, 32))
	}
	return d, nil
}

// ParseText converts raw user input into a text Value; empty input is null.
func ParseText(raw string) Value {
	if raw == "" {
		return Null()
	}
	return Text(raw)
}

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == kindNull }

// IsNumber reports whether v holds a number.
func (v Value) IsNumber() bool { return v.kind == kindNumber }

// IsText reports whether v holds text.
func (v Value) IsText() bool { return v.kind == kindText }

// Decimal returns the numeric value, or zero for non-numeric values.
func (v Value) Decimal() decimal.Decimal {
	if v.kind != kindNumber {
		return decimal.Zero
	}
	return v.num
}

// String returns the raw textual form; null renders as "".
func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return v.num.String()
	case kindText:
		return v.text
	default:
		return ""
	}
}

// Display returns the form shown in tables; null renders as an em dash.
func (v Value) Display() string {
	if v.kind == kindNull {
		return "—"
	}
	return v.String()
}

// Equal reports whether two values are the same kind and value.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case kindNumber:
		return v.num.Equal(o.num)
	case kindText:
		return v.text == o.text
	default:
		return true
	}
}

// MarshalJSON encodes numbers as JSON numbers, text as strings and null as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNumber:
		return []byte(v.num.String()), nil
	case kindText:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON number, string or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = Null()
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "ratecard: decode text value")
		}
		*v = Text(s)
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		d, err := parseDecimal(string(data))
		if err != nil {
			return eris.Wrap(err, "ratecard: decode numeric value")
		}
		*v = Number(d)
	default:
		return eris.Errorf("ratecard: value must be a number, string or null, got %s", truncate(data, 32))
	}
	return nil
}

func truncate(b []byte, n int) string {
	return truncateString(string(b), n)
}

func truncateString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

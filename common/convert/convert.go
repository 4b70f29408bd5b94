// Package convert holds small type-coercion and human-readable-rendering
// helpers for the engine's REST encoders, where a dollar amount that is
// exact as an 18-decimal uint256 also needs a comma-grouped display string.
package convert

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var errUnhandledType = errors.New("convert: unhandled JSON type")

// FloatFromString converts a string-shaped interface value to a float64.
func FloatFromString(raw interface{}) (float64, error) {
	str, ok := raw.(string)
	if !ok {
		return 0, fmt.Errorf("convert: unable to parse, value not string: %T", raw)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return 0, fmt.Errorf("convert: could not convert value %q: %w", str, err)
	}
	return f, nil
}

// IntFromString converts a string-shaped interface value to an int.
func IntFromString(raw interface{}) (int, error) {
	str, ok := raw.(string)
	if !ok {
		return 0, fmt.Errorf("convert: unable to parse, value not string: %T", raw)
	}
	i, err := strconv.Atoi(strings.TrimSpace(str))
	if err != nil {
		return 0, fmt.Errorf("convert: could not convert value %q: %w", str, err)
	}
	return i, nil
}

// Int64FromString converts a string-shaped interface value to an int64.
func Int64FromString(raw interface{}) (int64, error) {
	str, ok := raw.(string)
	if !ok {
		return 0, fmt.Errorf("convert: unable to parse, value not string: %T", raw)
	}
	i, err := strconv.ParseInt(strings.TrimSpace(str), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("convert: could not convert value %q: %w", str, err)
	}
	return i, nil
}

// TimeFromUnixTimestampFloat converts a millisecond unix timestamp carried as
// a JSON number into a time.Time.
func TimeFromUnixTimestampFloat(raw interface{}) (time.Time, error) {
	f, ok := raw.(float64)
	if !ok {
		return time.Time{}, fmt.Errorf("convert: unable to parse, value not float64: %T", raw)
	}
	return time.UnixMilli(int64(f)), nil
}

// TimeFromUnixTimestampDecimal converts a fractional-second unix timestamp
// into a time.Time, preserving sub-second precision.
func TimeFromUnixTimestampDecimal(input float64) time.Time {
	whole, frac := math.Modf(input)
	return time.Unix(int64(whole), int64(frac*1e9))
}

// UnixTimestampToTime converts a whole-second unix timestamp into a
// time.Time.
func UnixTimestampToTime(t int64) time.Time {
	return time.Unix(t, 0)
}

// UnixTimestampStrToTime parses a whole-second unix timestamp string into a
// time.Time.
func UnixTimestampStrToTime(s string) (time.Time, error) {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("convert: could not parse unix timestamp %q: %w", s, err)
	}
	return time.Unix(i, 0), nil
}

// BoolPtr returns a pointer to condition, for populating optional bool
// fields in request/response structs.
func BoolPtr(condition bool) *bool {
	return &condition
}

// InterfaceToFloat64OrZeroValue type-asserts i to float64, returning 0 if it
// is not one.
func InterfaceToFloat64OrZeroValue(i interface{}) float64 {
	v, _ := i.(float64)
	return v
}

// InterfaceToIntOrZeroValue type-asserts i to int, returning 0 if it is not
// one.
func InterfaceToIntOrZeroValue(i interface{}) int {
	v, _ := i.(int)
	return v
}

// InterfaceToStringOrZeroValue type-asserts i to string, returning "" if it
// is not one.
func InterfaceToStringOrZeroValue(i interface{}) string {
	v, _ := i.(string)
	return v
}

// FloatToHumanFriendlyString renders f rounded to decimals places, with
// trailing zeroes of the decimal part dropped, and the given separators,
// e.g. 1000.5 -> "1,000.5".
func FloatToHumanFriendlyString(f float64, decimals int, decimalSeparator, thousandsSeparator string) string {
	s := strconv.FormatFloat(f, 'f', decimals, 64)
	return numberToHumanFriendlyString(s, decimals, decimalSeparator, thousandsSeparator, false)
}

// DecimalToHumanFriendlyString renders d rounded to decimals places, with
// trailing zeroes of the decimal part dropped, and the given separators.
func DecimalToHumanFriendlyString(d decimal.Decimal, decimals int, decimalSeparator, thousandsSeparator string) string {
	s := d.StringFixed(int32(decimals))
	return numberToHumanFriendlyString(s, decimals, decimalSeparator, thousandsSeparator, false)
}

// IntToHumanFriendlyString renders n grouped by thousandsSeparator.
func IntToHumanFriendlyString(n int64, thousandsSeparator string) string {
	return numberToHumanFriendlyString(strconv.FormatInt(n, 10), 0, "", thousandsSeparator, false)
}

// numberToHumanFriendlyString groups the integer part of valueString by
// thousandsSeparator and trims trailing zeroes from its decimal part.
// isFraction is reserved for callers that pass a bare fractional string.
func numberToHumanFriendlyString(valueString string, _ int, decimalSeparator, thousandsSeparator string, isFraction bool) string {
	_ = isFraction

	isNegative := strings.HasPrefix(valueString, "-")
	if isNegative {
		valueString = valueString[1:]
	}

	integerPart := valueString
	var decimalPart string
	if idx := strings.IndexByte(valueString, '.'); idx != -1 {
		integerPart = valueString[:idx]
		decimalPart = strings.TrimRight(valueString[idx+1:], "0")
	}

	var sb strings.Builder
	if isNegative {
		sb.WriteByte('-')
	}
	sb.WriteString(groupThousands(integerPart, thousandsSeparator))
	if decimalPart != "" {
		sb.WriteString(decimalSeparator)
		sb.WriteString(decimalPart)
	}
	return sb.String()
}

func groupThousands(s, sep string) string {
	if sep == "" || len(s) <= 3 {
		return s
	}
	var groups []string
	for len(s) > 3 {
		groups = append([]string{s[len(s)-3:]}, groups...)
		s = s[:len(s)-3]
	}
	groups = append([]string{s}, groups...)
	return strings.Join(groups, sep)
}

// StringToFloat64 unmarshals a JSON string (or empty string) into a
// float64, matching payloads that quote numeric fields.
type StringToFloat64 float64

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringToFloat64) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	str, ok := raw.(string)
	if !ok {
		return errUnhandledType
	}
	if str == "" {
		*s = 0
		return nil
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return err
	}
	*s = StringToFloat64(f)
	return nil
}

// MarshalJSON implements json.Marshaler, rendering zero as an empty string.
func (s StringToFloat64) MarshalJSON() ([]byte, error) {
	if s == 0 {
		return []byte(`""`), nil
	}
	return json.Marshal(strconv.FormatFloat(float64(s), 'f', -1, 64))
}

// Float64 returns the underlying value.
func (s StringToFloat64) Float64() float64 { return float64(s) }

// Decimal returns the underlying value as a decimal.Decimal.
func (s StringToFloat64) Decimal() decimal.Decimal { return decimal.NewFromFloat(float64(s)) }

// ExchangeTime unmarshals unix timestamps carried as JSON numbers or
// strings, in seconds, milliseconds or nanoseconds, inferred from
// magnitude.
type ExchangeTime time.Time

// UnmarshalJSON implements json.Unmarshaler.
func (t *ExchangeTime) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		if v == "" {
			*t = ExchangeTime(time.Time{})
			return nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("convert: could not parse exchange time %q: %w", v, err)
		}
		*t = ExchangeTime(unixNumberToTime(n))
	case float64:
		*t = ExchangeTime(unixNumberToTime(int64(v)))
	default:
		return fmt.Errorf("convert: unhandled exchange time type %T", raw)
	}
	return nil
}

// Time returns the underlying time.Time.
func (t ExchangeTime) Time() time.Time { return time.Time(t) }

func unixNumberToTime(n int64) time.Time {
	switch {
	case n == 0:
		return time.Time{}
	case n < 1e11:
		return time.Unix(n, 0)
	case n < 1e14:
		return time.UnixMilli(n)
	default:
		return time.Unix(n/1e9, n%1e9)
	}
}

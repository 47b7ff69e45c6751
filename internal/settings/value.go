package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the type carried by a Value.
type Kind int

// Value kinds, matching the types a remote settings service can send.
const (
	KindInvalid Kind = iota
	KindBool
	KindInt64
	KindFloat64
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Value is a tagged settings value. Only the field selected by Kind is
// meaningful.
type Value struct {
	Kind    Kind
	Bool    bool
	Int64   int64
	Float64 float64
	String  string
}

// Int returns an integer Value.
func Int(v int64) Value { return Value{Kind: KindInt64, Int64: v} }

// Float returns a floating point Value.
func Float(v float64) Value { return Value{Kind: KindFloat64, Float64: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// String returns a string Value.
func String(v string) Value { return Value{Kind: KindString, String: v} }

// Format renders the carried value for logs.
func (v Value) Format() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt64:
		return strconv.FormatInt(v.Int64, 10)
	case KindFloat64:
		return strconv.FormatFloat(v.Float64, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.String)
	default:
		return "<invalid>"
	}
}

// MarshalJSON encodes the carried value as a plain JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindBool:
		return json.Marshal(v.Bool)
	case KindInt64:
		return json.Marshal(v.Int64)
	case KindFloat64:
		if math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
			return nil, fmt.Errorf("settings: cannot marshal %v", v.Float64)
		}
		// Keep a fractional part so the receiver decodes a float, not an int.
		s := strconv.FormatFloat(v.Float64, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return []byte(s), nil
	case KindString:
		return json.Marshal(v.String)
	default:
		return nil, errors.New("settings: cannot marshal invalid value")
	}
}

// UnmarshalJSON decodes a JSON scalar via DecodeValue.
func (v *Value) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeValue(data)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// DecodeValue parses a JSON scalar. Numbers written without a fraction or
// exponent become KindInt64, saturated to the int64 range; other numbers
// become KindFloat64. Objects, arrays and null are rejected.
func DecodeValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("decode setting value: %w", err)
	}
	if dec.More() {
		return Value{}, errors.New("decode setting value: trailing data")
	}

	switch x := raw.(type) {
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		return numberValue(x)
	case nil:
		return Value{}, errors.New("decode setting value: null")
	default:
		return Value{}, fmt.Errorf("decode setting value: unsupported type %T", raw)
	}
}

// FromAny converts a decoded TOML or JSON scalar into a Value.
func FromAny(raw any) (Value, error) {
	switch x := raw.(type) {
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case int64:
		return Int(x), nil
	case int:
		return Int(int64(x)), nil
	case float64:
		return Float(x), nil
	case json.Number:
		return numberValue(x)
	default:
		return Value{}, fmt.Errorf("unsupported setting value type %T", raw)
	}
}

// numberValue keeps integer literals integers. One beyond int64 saturates
// at the bound so range checks reject it as out of range.
func numberValue(n json.Number) (Value, error) {
	if !strings.ContainsAny(string(n), ".eE") {
		i, err := strconv.ParseInt(string(n), 10, 64)
		if err == nil || errors.Is(err, strconv.ErrRange) {
			return Int(i), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return Value{}, fmt.Errorf("decode setting value: %w", err)
	}
	return Float(f), nil
}

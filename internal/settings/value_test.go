package settings

import (
	"encoding/json"
	"math"
	"testing"
)

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		in      string
		want    Value
		wantErr bool
	}{
		{`250`, Int(250), false},
		{`-7`, Int(-7), false},
		{`250.0`, Float(250), false},
		{`2.5e2`, Float(250), false},
		{`1e3`, Float(1000), false},
		{`99999999999999999999`, Int(math.MaxInt64), false},
		{`-99999999999999999999`, Int(math.MinInt64), false},
		{`99999999999999999999.0`, Float(1e20), false},
		{`true`, Bool(true), false},
		{`"250"`, String("250"), false},
		{` 42 `, Int(42), false},
		{`null`, Value{}, true},
		{`[1]`, Value{}, true},
		{`{"a":1}`, Value{}, true},
		{`1 2`, Value{}, true},
		{``, Value{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := DecodeValue([]byte(tt.in))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeValue: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestValueJSONKeepsKind(t *testing.T) {
	type message struct {
		Value Value `json:"value"`
	}

	for _, v := range []Value{Int(250), Float(250), Float(0.25), Bool(false), String("x")} {
		data, err := json.Marshal(message{Value: v})
		if err != nil {
			t.Fatalf("marshal %s: %v", v.Format(), err)
		}
		var back message
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if back.Value != v {
			t.Errorf("%s decoded as %+v, want %+v", data, back.Value, v)
		}
	}

	if _, err := json.Marshal(Value{}); err == nil {
		t.Error("marshalling an invalid value should fail")
	}
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		in   any
		want Value
	}{
		{int64(250), Int(250)},
		{250, Int(250)},
		{250.0, Float(250)},
		{"fast", String("fast")},
		{true, Bool(true)},
		{json.Number("12"), Int(12)},
	}
	for _, tt := range tests {
		got, err := FromAny(tt.in)
		if err != nil {
			t.Errorf("FromAny(%#v): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FromAny(%#v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
	if _, err := FromAny([]any{1}); err == nil {
		t.Error("FromAny accepted a slice")
	}
}

package settings

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/smazurov/blinkynode/internal/events"
)

func newTestValidator(t *testing.T) (*Validator, *Store) {
	t.Helper()
	store := NewStore(DefaultLoopDelayMS)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewValidator(store, nil, logger), store
}

func TestApplyLoopDelayMS(t *testing.T) {
	tests := []struct {
		name      string
		value     Value
		want      Status
		wantDelay int32
	}{
		{"lower bound", Int(100), StatusSuccess, 100},
		{"upper bound", Int(60000), StatusSuccess, 60000},
		{"typical", Int(250), StatusSuccess, 250},
		{"below range", Int(50), StatusOutOfRange, DefaultLoopDelayMS},
		{"just below range", Int(99), StatusOutOfRange, DefaultLoopDelayMS},
		{"above range", Int(60001), StatusOutOfRange, DefaultLoopDelayMS},
		{"negative", Int(-5), StatusOutOfRange, DefaultLoopDelayMS},
		{"float", Float(250), StatusFormatInvalid, DefaultLoopDelayMS},
		{"string", String("250"), StatusFormatInvalid, DefaultLoopDelayMS},
		{"bool", Bool(true), StatusFormatInvalid, DefaultLoopDelayMS},
		{"invalid", Value{}, StatusFormatInvalid, DefaultLoopDelayMS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, store := newTestValidator(t)
			if got := v.Apply(KeyLoopDelayMS, tt.value); got != tt.want {
				t.Errorf("Apply = %v, want %v", got, tt.want)
			}
			if got := store.DelayMS(); got != tt.wantDelay {
				t.Errorf("DelayMS = %d, want %d", got, tt.wantDelay)
			}
		})
	}
}

func TestApplyHugeIntegerIsOutOfRange(t *testing.T) {
	for _, raw := range []string{`100000000000000000000`, `-100000000000000000000`} {
		t.Run(raw, func(t *testing.T) {
			value, err := DecodeValue([]byte(raw))
			if err != nil {
				t.Fatalf("DecodeValue: %v", err)
			}
			v, store := newTestValidator(t)
			if got := v.Apply(KeyLoopDelayMS, value); got != StatusOutOfRange {
				t.Errorf("Apply = %v, want %v", got, StatusOutOfRange)
			}
			if got := store.DelayMS(); got != DefaultLoopDelayMS {
				t.Errorf("DelayMS = %d, want %d", got, DefaultLoopDelayMS)
			}
		})
	}
}

func TestApplyLoopDelaySecondsIsIgnored(t *testing.T) {
	for _, value := range []Value{Int(5), Int(-1), Float(0.5), String("x"), Bool(false)} {
		v, store := newTestValidator(t)
		if got := v.Apply(KeyLoopDelayS, value); got != StatusSuccess {
			t.Errorf("Apply(%s) = %v, want SUCCESS", value.Format(), got)
		}
		if store.DelayMS() != DefaultLoopDelayMS {
			t.Errorf("LOOP_DELAY_S changed the delay to %d", store.DelayMS())
		}
		select {
		case <-store.Wake():
			t.Error("LOOP_DELAY_S must not wake the loop")
		default:
		}
	}
}

func TestApplyUnknownKey(t *testing.T) {
	v, store := newTestValidator(t)
	for _, key := range []string{"", "loop_delay_ms", "LOOP_DELAY", "BRIGHTNESS"} {
		if got := v.Apply(key, Int(250)); got != StatusKeyNotRecognized {
			t.Errorf("Apply(%q) = %v, want KEY_NOT_RECOGNIZED", key, got)
		}
	}
	if store.DelayMS() != DefaultLoopDelayMS {
		t.Errorf("unknown key changed the delay to %d", store.DelayMS())
	}
}

func TestWakeCoalesces(t *testing.T) {
	v, store := newTestValidator(t)

	v.Apply(KeyLoopDelayMS, Int(200))
	v.Apply(KeyLoopDelayMS, Int(300))
	v.Apply(KeyLoopDelayMS, Int(400))

	select {
	case <-store.Wake():
	default:
		t.Fatal("expected a pending wake")
	}
	select {
	case <-store.Wake():
		t.Fatal("wakes should collapse into one")
	default:
	}
	if got := store.Delay(); got != 400*time.Millisecond {
		t.Errorf("Delay = %v, want 400ms", got)
	}
}

func TestRejectedUpdateDoesNotWake(t *testing.T) {
	v, store := newTestValidator(t)
	v.Apply(KeyLoopDelayMS, Int(50))
	v.Apply(KeyLoopDelayMS, Float(250.5))

	select {
	case <-store.Wake():
		t.Error("rejected updates must not wake the loop")
	default:
	}
}

func TestApplyPublishesEvent(t *testing.T) {
	bus := events.New()
	store := NewStore(DefaultLoopDelayMS)
	v := NewValidator(store, bus, slog.New(slog.NewTextHandler(io.Discard, nil)))

	received := make(chan events.SettingAppliedEvent, 2)
	defer bus.Subscribe(func(e events.SettingAppliedEvent) { received <- e })()

	v.ApplyFrom(SourceAPI, KeyLoopDelayMS, Int(250))
	v.Apply(KeyLoopDelayMS, Int(50))

	want := []events.SettingAppliedEvent{
		{Key: KeyLoopDelayMS, Status: "SUCCESS", Source: SourceAPI, DelayMS: 250},
		{Key: KeyLoopDelayMS, Status: "VALUE_OUTSIDE_RANGE", Source: SourceCloud, DelayMS: 250},
	}
	for i, w := range want {
		select {
		case got := <-received:
			if got.Key != w.Key || got.Status != w.Status || got.Source != w.Source || got.DelayMS != w.DelayMS {
				t.Errorf("event %d = %+v, want %+v", i, got, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for event %d", i)
		}
	}
}

func TestStatusNames(t *testing.T) {
	for _, s := range []Status{StatusSuccess, StatusKeyNotRecognized, StatusFormatInvalid, StatusOutOfRange} {
		parsed, ok := ParseStatus(s.String())
		if !ok || parsed != s {
			t.Errorf("ParseStatus(%q) = %v, %v", s.String(), parsed, ok)
		}
	}
	if _, ok := ParseStatus("NOPE"); ok {
		t.Error("ParseStatus accepted an unknown name")
	}
	if Status(42).String() != "UNKNOWN" {
		t.Error("unexpected name for out-of-range status")
	}
}

package led

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/smazurov/blinkynode/internal/events"
)

// opLog collects hardware operations from several fakes in order.
type opLog struct {
	ops []string
}

func (l *opLog) add(format string, args ...any) {
	l.ops = append(l.ops, fmt.Sprintf(format, args...))
}

type recordingStrip struct {
	log       *opLog
	pixels    int
	frames    [][]RGB
	openErr   error
	updateErr error
}

func (s *recordingStrip) Open() error { return s.openErr }

func (s *recordingStrip) Len() int { return s.pixels }

func (s *recordingStrip) Update(pixels []RGB) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.frames = append(s.frames, append([]RGB(nil), pixels...))
	s.log.add("push %s", pixels[0])
	return nil
}

func (s *recordingStrip) Close() error { return nil }

type recordingRegister struct {
	log   *opLog
	addr  uint64
	value uint32
}

func (r *recordingRegister) Addr() uint64 { return r.addr }

func (r *recordingRegister) Read() (uint32, error) {
	r.log.add("read %#x", r.addr)
	return r.value, nil
}

func (r *recordingRegister) Write(v uint32) error {
	r.log.add("write %#x %#08x", r.addr, v)
	r.value = v
	return nil
}

func (r *recordingRegister) Close() error { return nil }

func TestIndicatorInitOrderWithPolarityFix(t *testing.T) {
	log := &opLog{}
	strip := &recordingStrip{log: log, pixels: 3}
	reg := &recordingRegister{log: log, value: 0x0008_0040}

	ind := NewIndicator(IndicatorOptions{
		Controller: &mockController{},
		LED:        "status",
		Strip:      strip,
		Polarity: &PolarityFix{
			ControllerBase: 0x3F424000,
			Open: func(addr uint64) (Register, error) {
				reg.addr = addr
				return reg, nil
			},
		},
		Logger: discardLogger(),
	})

	if err := ind.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	want := []string{
		"push off",
		"read 0x3f424008",
		"write 0x3f424008 0x000040",
		"push blue",
	}
	if !reflect.DeepEqual(log.ops, want) {
		t.Errorf("ops = %q\nwant  %q", log.ops, want)
	}
	if reg.value&(1<<SPIDataPolarityBit) != 0 {
		t.Error("bit 19 still set")
	}
	for i, frame := range strip.frames {
		if len(frame) != 3 {
			t.Errorf("frame %d has %d pixels, want the whole strip", i, len(frame))
		}
	}
}

func TestIndicatorInitWithoutPolarityFix(t *testing.T) {
	log := &opLog{}
	strip := &recordingStrip{log: log, pixels: 2}
	ind := NewIndicator(IndicatorOptions{
		Controller: &mockController{},
		LED:        "status",
		Strip:      strip,
		Logger:     discardLogger(),
	})

	if err := ind.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if want := []string{"push off", "push blue"}; !reflect.DeepEqual(log.ops, want) {
		t.Errorf("ops = %q, want %q", log.ops, want)
	}
}

func TestIndicatorStepAlternates(t *testing.T) {
	ctrl := &mockController{}
	strip := &recordingStrip{log: &opLog{}, pixels: 4}
	ind := NewIndicator(IndicatorOptions{
		Controller: ctrl,
		LED:        "status",
		Strip:      strip,
		Logger:     discardLogger(),
	})
	if err := ind.Init(); err != nil {
		t.Fatal(err)
	}
	strip.frames = nil

	for counter := uint32(1); counter <= 4; counter++ {
		if err := ind.Step(counter); err != nil {
			t.Fatalf("Step(%d): %v", counter, err)
		}
	}

	wantColors := []RGB{Blue, Off, Blue, Off}
	for i, frame := range strip.frames {
		for p, px := range frame {
			if px != wantColors[i] {
				t.Errorf("step %d pixel %d = %s, want %s", i+1, p, px, wantColors[i])
			}
		}
	}

	// Init switches the LED on, each step toggles it.
	calls := ctrl.calls()
	wantLED := []bool{true, false, true, false, true}
	if len(calls) != len(wantLED) {
		t.Fatalf("got %d LED calls, want %d", len(calls), len(wantLED))
	}
	for i, c := range calls {
		if c.enabled != wantLED[i] || c.name != "status" {
			t.Errorf("call %d = %+v, want enabled=%v", i, c, wantLED[i])
		}
	}

	on, color, hasStrip := ind.State()
	if !on || color != Off || !hasStrip {
		t.Errorf("State = %v %s %v", on, color, hasStrip)
	}
}

func TestIndicatorStepCounterWraps(t *testing.T) {
	strip := &recordingStrip{log: &opLog{}, pixels: 1}
	ind := NewIndicator(IndicatorOptions{Controller: &mockController{}, LED: "status", Strip: strip, Logger: discardLogger()})
	if err := ind.Init(); err != nil {
		t.Fatal(err)
	}

	var counter uint32 = 0xffff_ffff
	if err := ind.Step(counter); err != nil {
		t.Fatal(err)
	}
	counter++
	if err := ind.Step(counter); err != nil {
		t.Fatal(err)
	}
	n := len(strip.frames)
	if strip.frames[n-2][0] != Blue || strip.frames[n-1][0] != Off {
		t.Errorf("frames around wrap = %s, %s", strip.frames[n-2][0], strip.frames[n-1][0])
	}
}

func TestIndicatorLEDOnly(t *testing.T) {
	ctrl := &mockController{}
	bus := events.New()
	got := make(chan events.IndicatorChangedEvent, 1)
	defer bus.Subscribe(func(e events.IndicatorChangedEvent) { got <- e })()

	ind := NewIndicator(IndicatorOptions{Controller: ctrl, LED: "act", Bus: bus, Logger: discardLogger()})
	if err := ind.Init(); err != nil {
		t.Fatal(err)
	}
	if err := ind.Step(1); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-got:
		if e.Counter != 1 || e.LEDOn || e.Color != "" {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no indicator event")
	}
}

func TestIndicatorErrors(t *testing.T) {
	notReady := fmt.Errorf("LED gone: %w", ErrNotReady)

	tests := []struct {
		name       string
		ctrl       *mockController
		strip      *recordingStrip
		wantNotRdy bool
		failOnInit bool
	}{
		{"LED not ready", &mockController{readyErr: notReady}, nil, true, true},
		{"strip cannot open", &mockController{}, &recordingStrip{log: &opLog{}, pixels: 2, openErr: notReady}, true, true},
		{"strip without pixels", &mockController{}, &recordingStrip{log: &opLog{}}, true, true},
		{"strip push fails", &mockController{}, &recordingStrip{log: &opLog{}, pixels: 2, updateErr: errors.New("io")}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := IndicatorOptions{Controller: tt.ctrl, LED: "status", Logger: discardLogger()}
			if tt.strip != nil {
				opts.Strip = tt.strip
			}
			err := NewIndicator(opts).Init()
			if err == nil {
				t.Fatal("expected Init error")
			}
			if got := errors.Is(err, ErrNotReady); got != tt.wantNotRdy {
				t.Errorf("errors.Is(ErrNotReady) = %v, want %v (%v)", got, tt.wantNotRdy, err)
			}
		})
	}
}

func TestIndicatorStepFailure(t *testing.T) {
	strip := &recordingStrip{log: &opLog{}, pixels: 2}
	ind := NewIndicator(IndicatorOptions{Controller: &mockController{}, LED: "status", Strip: strip, Logger: discardLogger()})
	if err := ind.Init(); err != nil {
		t.Fatal(err)
	}
	strip.updateErr = errors.New("serial write failed")
	if err := ind.Step(1); err == nil {
		t.Error("expected Step error")
	}
}

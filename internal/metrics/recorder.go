package metrics

import (
	"sync"

	"github.com/smazurov/blinkynode/internal/events"
)

// Recorder updates the metrics from bus events.
type Recorder struct {
	bus    *events.Bus
	states map[string]int

	mu     sync.Mutex
	unsubs []func()
}

// NewRecorder creates a recorder. states maps a loop state name to the value
// exported by blinkynode_loop_state; unknown names are ignored.
func NewRecorder(bus *events.Bus, states []string) *Recorder {
	index := make(map[string]int, len(states))
	for i, s := range states {
		index[s] = i
	}
	return &Recorder{bus: bus, states: index}
}

// Start subscribes to the bus and seeds the loop delay gauge.
func (r *Recorder) Start(initialDelayMS int32) {
	SetLoopDelayMS(initialDelayMS)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubs = append(r.unsubs,
		r.bus.Subscribe(func(events.ConnectedEvent) {
			SetCloudConnected(true)
		}),
		r.bus.Subscribe(func(e events.HeartbeatEvent) {
			ObserveHeartbeat(e.Counter, e.Failed())
		}),
		r.bus.Subscribe(func(e events.SettingAppliedEvent) {
			ObserveSettingUpdate(e.Key, e.Status)
			SetLoopDelayMS(e.DelayMS)
		}),
		r.bus.Subscribe(func(e events.IndicatorChangedEvent) {
			SetIndicatorOn(e.LEDOn)
		}),
		r.bus.Subscribe(func(e events.LoopStateEvent) {
			if i, ok := r.states[e.State]; ok {
				SetLoopState(i)
			}
		}),
	)
}

// Stop unsubscribes from the bus.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, unsub := range r.unsubs {
		unsub()
	}
	r.unsubs = nil
}

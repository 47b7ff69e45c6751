package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeConnected uint32 = iota + 1
	TypeHeartbeat
	TypeSettingApplied
	TypeIndicatorChanged
	TypeLoopState
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ConnectedEvent is published once, when the connection gate opens.
type ConnectedEvent struct {
	DeviceID  string    `json:"device_id" example:"bench-01" doc:"Device identifier"`
	Timestamp time.Time `json:"timestamp" doc:"When the gate opened"`
}

// Type returns the event type identifier for ConnectedEvent.
func (e ConnectedEvent) Type() uint32 { return TypeConnected }

// HeartbeatEvent reports one heartbeat attempt. Error is empty on success.
type HeartbeatEvent struct {
	Counter   uint32    `json:"counter" example:"42" doc:"Counter value sent"`
	Error     string    `json:"error,omitempty" doc:"Send failure, if any"`
	Timestamp time.Time `json:"timestamp" doc:"Attempt time"`
}

// Type returns the event type identifier for HeartbeatEvent.
func (e HeartbeatEvent) Type() uint32 { return TypeHeartbeat }

// Failed reports whether the heartbeat could not be sent.
func (e HeartbeatEvent) Failed() bool { return e.Error != "" }

// SettingAppliedEvent reports the outcome of one settings update, accepted
// or not.
type SettingAppliedEvent struct {
	Key       string    `json:"key" example:"LOOP_DELAY_MS" doc:"Setting key"`
	Status    string    `json:"status" example:"SUCCESS" doc:"Validation result"`
	Source    string    `json:"source" example:"cloud" doc:"Where the update came from: cloud, api, config"`
	DelayMS   int32     `json:"delay_ms" example:"250" doc:"Loop delay after the update"`
	Timestamp time.Time `json:"timestamp" doc:"Update time"`
}

// Type returns the event type identifier for SettingAppliedEvent.
func (e SettingAppliedEvent) Type() uint32 { return TypeSettingApplied }

// IndicatorChangedEvent reports the indicator output after a loop step.
type IndicatorChangedEvent struct {
	Counter uint32 `json:"counter" doc:"Counter the step was derived from"`
	LEDOn   bool   `json:"led_on" doc:"Logical state of the discrete LED"`
	Color   string `json:"color,omitempty" example:"blue" doc:"Strip color, empty without a strip"`
}

// Type returns the event type identifier for IndicatorChangedEvent.
func (e IndicatorChangedEvent) Type() uint32 { return TypeIndicatorChanged }

// LoopStateEvent reports a control loop state transition.
type LoopStateEvent struct {
	State     string    `json:"state" example:"running" doc:"New loop state"`
	Timestamp time.Time `json:"timestamp" doc:"Transition time"`
}

// Type returns the event type identifier for LoopStateEvent.
func (e LoopStateEvent) Type() uint32 { return TypeLoopState }

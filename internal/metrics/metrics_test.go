package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smazurov/blinkynode/internal/events"
)

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestObserveHeartbeat(t *testing.T) {
	okBefore := testutil.ToFloat64(heartbeatsTotal.WithLabelValues(ResultOK))
	failedBefore := testutil.ToFloat64(heartbeatsTotal.WithLabelValues(ResultFailed))

	ObserveHeartbeat(10, false)
	ObserveHeartbeat(11, true)

	if got := testutil.ToFloat64(heartbeatsTotal.WithLabelValues(ResultOK)) - okBefore; got != 1 {
		t.Errorf("ok delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(heartbeatsTotal.WithLabelValues(ResultFailed)) - failedBefore; got != 1 {
		t.Errorf("failed delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(heartbeatCounter); got != 11 {
		t.Errorf("heartbeat_counter = %v, want 11", got)
	}
}

func TestRecorder(t *testing.T) {
	bus := events.New()
	states := []string{"initializing", "waiting_for_connection", "running", "stopped", "failed"}

	r := NewRecorder(bus, states)
	r.Start(1000)
	defer r.Stop()

	if got := testutil.ToFloat64(loopDelayMS); got != 1000 {
		t.Errorf("loop_delay_ms = %v, want 1000", got)
	}

	rejected := settingsUpdatesTotal.WithLabelValues("LOOP_DELAY_MS", "VALUE_OUTSIDE_RANGE")
	rejectedBefore := testutil.ToFloat64(rejected)

	bus.Publish(events.ConnectedEvent{DeviceID: "dev-1"})
	bus.Publish(events.LoopStateEvent{State: "running"})
	bus.Publish(events.IndicatorChangedEvent{Counter: 1, LEDOn: true})
	bus.Publish(events.SettingAppliedEvent{Key: "LOOP_DELAY_MS", Status: "SUCCESS", DelayMS: 250})
	bus.Publish(events.SettingAppliedEvent{Key: "LOOP_DELAY_MS", Status: "VALUE_OUTSIDE_RANGE", DelayMS: 250})

	eventually(t, "cloud_connected", func() bool { return testutil.ToFloat64(cloudConnected) == 1 })
	eventually(t, "loop_state", func() bool { return testutil.ToFloat64(loopState) == 2 })
	eventually(t, "indicator_on", func() bool { return testutil.ToFloat64(indicatorOn) == 1 })
	eventually(t, "loop_delay_ms", func() bool { return testutil.ToFloat64(loopDelayMS) == 250 })
	eventually(t, "settings_updates_total", func() bool { return testutil.ToFloat64(rejected)-rejectedBefore == 1 })
}

func TestHandlerExposesMetrics(t *testing.T) {
	SetLoopDelayMS(500)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "blinkynode_loop_delay_ms 500") {
		t.Errorf("metrics output missing loop delay:\n%s", body)
	}
}

// Package metrics provides Prometheus metrics for the agent. Values are fed
// from the event bus by Recorder; the HTTP exposition is Handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blinkynode"

// Heartbeat results.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

var (
	heartbeatsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "heartbeats_total",
		Help:      "Heartbeat attempts by result",
	}, []string{"result"})

	heartbeatCounter = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "heartbeat_counter",
		Help:      "Counter value carried by the last heartbeat",
	})

	loopDelayMS = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "loop_delay_ms",
		Help:      "Current control loop delay in milliseconds",
	})

	settingsUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settings_updates_total",
		Help:      "Settings updates by key and validation status",
	}, []string{"key", "status"})

	cloudConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cloud_connected",
		Help:      "1 once the first cloud connection was established",
	})

	indicatorOn = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "indicator_on",
		Help:      "Logical state of the status LED",
	})

	loopState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "loop_state",
		Help:      "Control loop state: 0 initializing, 1 waiting for connection, 2 running, 3 stopped, 4 failed",
	})
)

// ObserveHeartbeat counts one heartbeat attempt.
func ObserveHeartbeat(counter uint32, failed bool) {
	result := ResultOK
	if failed {
		result = ResultFailed
	}
	heartbeatsTotal.WithLabelValues(result).Inc()
	heartbeatCounter.Set(float64(counter))
}

// SetLoopDelayMS records the current loop delay.
func SetLoopDelayMS(ms int32) {
	loopDelayMS.Set(float64(ms))
}

// ObserveSettingUpdate counts one settings update.
func ObserveSettingUpdate(key, status string) {
	settingsUpdatesTotal.WithLabelValues(key, status).Inc()
}

// SetCloudConnected records the connection flag.
func SetCloudConnected(connected bool) {
	cloudConnected.Set(boolToFloat(connected))
}

// SetIndicatorOn records the LED state.
func SetIndicatorOn(on bool) {
	indicatorOn.Set(boolToFloat(on))
}

// SetLoopState records the loop state index.
func SetLoopState(index int) {
	loopState.Set(float64(index))
}

// Handler returns the Prometheus HTTP handler for every registered metric.
func Handler() http.Handler {
	return promhttp.Handler()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

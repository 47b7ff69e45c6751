// Package models holds the request and response bodies of the HTTP API.
package models

import "time"

// HealthData is the health check body.
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

// HealthResponse wraps HealthData.
type HealthResponse struct {
	Body HealthData
}

// VersionData describes the running build.
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Platform"`
}

// VersionResponse wraps VersionData.
type VersionResponse struct {
	Body VersionData
}

// IndicatorData is the current indicator output.
type IndicatorData struct {
	LEDOn bool   `json:"led_on" doc:"Logical state of the status LED"`
	Strip bool   `json:"strip" doc:"Whether an RGB strip is attached"`
	Color string `json:"color,omitempty" example:"blue" doc:"Current strip color"`
}

// StatusData is a snapshot of the agent.
type StatusData struct {
	DeviceID       string         `json:"device_id" example:"bench-01" doc:"Device identifier"`
	Board          string         `json:"board" example:"Raspberry Pi" doc:"Detected board profile"`
	State          string         `json:"state" example:"running" doc:"Control loop state"`
	Counter        uint32         `json:"counter" example:"42" doc:"Heartbeat counter"`
	DelayMS        int32          `json:"delay_ms" example:"1000" doc:"Loop delay in milliseconds"`
	Connected      bool           `json:"connected" doc:"Whether the first cloud connection was established"`
	CloudConnected bool           `json:"cloud_connected" doc:"Whether the cloud link is up right now"`
	LastHeartbeat  *time.Time     `json:"last_heartbeat,omitempty" doc:"Time of the last delivered heartbeat"`
	LastError      string         `json:"last_error,omitempty" doc:"Most recent loop error"`
	Indicator      *IndicatorData `json:"indicator,omitempty" doc:"Indicator output"`
}

// StatusResponse wraps StatusData.
type StatusResponse struct {
	Body StatusData
}

// SettingsData lists the current settings and their accepted ranges.
type SettingsData struct {
	LoopDelayMS    int32 `json:"LOOP_DELAY_MS" example:"1000" doc:"Loop delay in milliseconds"`
	MinLoopDelayMS int32 `json:"min_loop_delay_ms" example:"100" doc:"Smallest accepted loop delay"`
	MaxLoopDelayMS int32 `json:"max_loop_delay_ms" example:"60000" doc:"Largest accepted loop delay"`
}

// SettingsResponse wraps SettingsData.
type SettingsResponse struct {
	Body SettingsData
}

// SettingResultData reports an accepted setting.
type SettingResultData struct {
	Key     string `json:"key" example:"LOOP_DELAY_MS" doc:"Setting key"`
	Status  string `json:"status" example:"SUCCESS" doc:"Validation result"`
	Code    int    `json:"code" example:"0" doc:"Numeric validation result"`
	DelayMS int32  `json:"delay_ms" example:"250" doc:"Loop delay after the update"`
}

// SettingResultResponse wraps SettingResultData.
type SettingResultResponse struct {
	Body SettingResultData
}

// ServiceStatus contains the status of the agent's systemd unit.
type ServiceStatus struct {
	Service string `json:"service" example:"blinkynode.service" doc:"Unit name"`
	Status  string `json:"status" example:"active" doc:"ActiveState (active, inactive, failed, etc.)"`
}

// ServiceStatusResponse wraps ServiceStatus.
type ServiceStatusResponse struct {
	Body ServiceStatus
}

// ServiceAction contains the result of a unit action.
type ServiceAction struct {
	Service string `json:"service" example:"blinkynode.service" doc:"Unit name"`
	Action  string `json:"action" example:"restart" doc:"Action performed"`
	Success bool   `json:"success" example:"true" doc:"Whether the action was queued"`
}

// ServiceActionResponse wraps ServiceAction.
type ServiceActionResponse struct {
	Body ServiceAction
}

package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// LEDRequest controls one LED.
type LEDRequest struct {
	Body struct {
		Type    string  `json:"type" example:"user" doc:"LED name (board-specific: user, status, act, ...)"`
		Enabled bool    `json:"enabled" example:"true" doc:"Whether the LED should be on or off"`
		Pattern *string `json:"pattern,omitempty" example:"solid" doc:"Optional LED pattern (solid, blink, heartbeat)"`
	}
}

// LEDCapabilities lists what the LED controller can drive.
type LEDCapabilities struct {
	AvailableTypes    []string `json:"available_types" doc:"LED names available on this board"`
	AvailablePatterns []string `json:"available_patterns" doc:"Patterns the controller accepts"`
	StatusLED         string   `json:"status_led,omitempty" example:"user" doc:"LED driven by the control loop"`
}

// LEDCapabilitiesResponse wraps LEDCapabilities.
type LEDCapabilitiesResponse struct {
	Body LEDCapabilities
}

func (s *Server) registerLEDRoutes() {
	if s.options.LEDController == nil {
		s.logger.Debug("LED controller not available, skipping LED routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-leds",
		Method:      http.MethodGet,
		Path:        "/api/leds",
		Summary:     "LED Capabilities",
		Description: "LED names and patterns available on this board",
		Tags:        []string{"leds"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*LEDCapabilitiesResponse, error) {
		return &LEDCapabilitiesResponse{
			Body: LEDCapabilities{
				AvailableTypes:    s.options.LEDController.Available(),
				AvailablePatterns: s.options.LEDController.Patterns(),
				StatusLED:         s.options.StatusLED,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "control-led",
		Method:      http.MethodPost,
		Path:        "/api/leds",
		Summary:     "Control LED",
		Description: "Set an LED's state and optional pattern. The status LED is overwritten by the next loop step.",
		Tags:        []string{"leds"},
		Errors:      []int{400, 401},
		Security:    withAuth(),
	}, func(_ context.Context, input *LEDRequest) (*struct{}, error) {
		pattern := ""
		if input.Body.Pattern != nil {
			pattern = *input.Body.Pattern
		}

		if err := s.options.LEDController.Set(input.Body.Type, input.Body.Enabled, pattern); err != nil {
			return nil, huma.Error400BadRequest("Failed to control LED", err)
		}
		return &struct{}{}, nil
	})
}

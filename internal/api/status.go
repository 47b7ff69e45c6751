package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/blinkynode/internal/api/models"
)

func (s *Server) registerStatusRoutes() {
	if s.options.Loop == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Agent Status",
		Description: "Control loop state, heartbeat counter, loop delay and connection state",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.StatusResponse, error) {
		st := s.options.Loop.Status()

		body := models.StatusData{
			DeviceID:  s.options.DeviceID,
			Board:     s.options.Board,
			State:     string(st.State),
			Counter:   st.Counter,
			DelayMS:   st.DelayMS,
			Connected: st.Connected,
			LastError: st.LastError,
		}
		if !st.LastHeartbeat.IsZero() {
			at := st.LastHeartbeat
			body.LastHeartbeat = &at
		}
		if s.options.Cloud != nil {
			body.CloudConnected = s.options.Cloud.IsConnected()
		}
		if s.options.Indicator != nil {
			on, color, strip := s.options.Indicator.State()
			body.Indicator = &models.IndicatorData{LEDOn: on, Strip: strip}
			if strip {
				body.Indicator.Color = color.String()
			}
		}

		return &models.StatusResponse{Body: body}, nil
	})
}

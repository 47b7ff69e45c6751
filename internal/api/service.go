package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/blinkynode/internal/api/models"
)

func (s *Server) registerServiceRoutes() {
	if s.options.Service == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-service-status",
		Method:      http.MethodGet,
		Path:        "/api/service",
		Summary:     "Service Status",
		Description: "ActiveState of the agent's systemd unit",
		Tags:        []string{"systemd"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.ServiceStatusResponse, error) {
		status, err := s.options.Service.Status(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to get service status", err)
		}
		return &models.ServiceStatusResponse{
			Body: models.ServiceStatus{
				Service: s.options.Service.Service(),
				Status:  status,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "restart-service",
		Method:      http.MethodPost,
		Path:        "/api/service/restart",
		Summary:     "Restart Service",
		Description: "Queue a restart of the agent's systemd unit",
		Tags:        []string{"systemd"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.ServiceActionResponse, error) {
		if err := s.options.Service.Restart(ctx); err != nil {
			return nil, huma.Error500InternalServerError("Failed to restart service", err)
		}
		return &models.ServiceActionResponse{
			Body: models.ServiceAction{
				Service: s.options.Service.Service(),
				Action:  "restart",
				Success: true,
			},
		}, nil
	})
}

package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/blinkynode/internal/api/models"
	"github.com/smazurov/blinkynode/internal/settings"
)

// SettingUpdateRequest carries one setting. The body is read raw so that
// 250 and 250.0 stay distinguishable.
type SettingUpdateRequest struct {
	Key     string `path:"key" example:"LOOP_DELAY_MS" doc:"Setting key"`
	RawBody []byte
}

type settingUpdateBody struct {
	Value json.RawMessage `json:"value"`
}

var settingUpdateSchema = &huma.Schema{
	Type:     huma.TypeObject,
	Required: []string{"value"},
	Properties: map[string]*huma.Schema{
		"value": {Description: "New value: a JSON number, string or boolean"},
	},
}

func (s *Server) registerSettingsRoutes() {
	if s.options.Settings == nil || s.options.Loop == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/api/settings",
		Summary:     "Get Settings",
		Description: "Current settings and accepted ranges",
		Tags:        []string{"settings"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.SettingsResponse, error) {
		return &models.SettingsResponse{
			Body: models.SettingsData{
				LoopDelayMS:    s.options.Loop.Status().DelayMS,
				MinLoopDelayMS: settings.MinLoopDelayMS,
				MaxLoopDelayMS: settings.MaxLoopDelayMS,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-setting",
		Method:      http.MethodPut,
		Path:        "/api/settings/{key}",
		Summary:     "Update Setting",
		Description: "Apply one setting through the same validation as cloud updates",
		Tags:        []string{"settings"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404, 422},
		RequestBody: &huma.RequestBody{
			Required: true,
			Content: map[string]*huma.MediaType{
				"application/json": {Schema: settingUpdateSchema},
			},
		},
	}, func(_ context.Context, input *SettingUpdateRequest) (*models.SettingResultResponse, error) {
		var body settingUpdateBody
		if err := json.Unmarshal(input.RawBody, &body); err != nil {
			return nil, huma.Error400BadRequest(settings.StatusFormatInvalid.String(), err)
		}
		value, err := settings.DecodeValue(body.Value)
		if err != nil {
			return nil, huma.Error400BadRequest(settings.StatusFormatInvalid.String(), err)
		}

		status := s.options.Settings.ApplyFrom(settings.SourceAPI, input.Key, value)
		switch status {
		case settings.StatusSuccess:
		case settings.StatusKeyNotRecognized:
			return nil, huma.Error404NotFound(status.String())
		case settings.StatusFormatInvalid:
			return nil, huma.Error400BadRequest(status.String())
		default:
			return nil, huma.Error422UnprocessableEntity(status.String())
		}

		return &models.SettingResultResponse{
			Body: models.SettingResultData{
				Key:     input.Key,
				Status:  status.String(),
				Code:    int(status),
				DelayMS: s.options.Loop.Status().DelayMS,
			},
		}, nil
	})
}

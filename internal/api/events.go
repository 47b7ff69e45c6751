package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/blinkynode/internal/events"
)

const eventsOperationID = "events-stream"

func (s *Server) registerEventRoutes() {
	if s.eventBus == nil {
		return
	}

	sse.Register(s.api, huma.Operation{
		OperationID: eventsOperationID,
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Live heartbeat, settings, indicator and loop state events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"connected":         events.ConnectedEvent{},
		"heartbeat":         events.HeartbeatEvent{},
		"setting-applied":   events.SettingAppliedEvent{},
		"indicator-changed": events.IndicatorChangedEvent{},
		"loop-state":        events.LoopStateEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 16)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.ConnectedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.HeartbeatEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SettingAppliedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.IndicatorChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.LoopStateEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Current state first, so clients need not wait for a transition.
		if s.options.Loop != nil {
			if err := send.Data(events.LoopStateEvent{
				State:     string(s.options.Loop.Status().State),
				Timestamp: time.Now(),
			}); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}

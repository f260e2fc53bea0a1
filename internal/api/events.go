package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/camnode/internal/events"
)

// registerEventRoutes registers the native Huma SSE endpoint.
func (s *Server) registerEventRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of preview lifecycle, session state and device events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"preview-started":     events.PreviewStartedEvent{},
		"preview-stopped":     events.PreviewStoppedEvent{},
		"device-disconnected": events.DeviceDisconnectedEvent{},
		"device-error":        events.DeviceErrorEvent{},
		"session-state":       events.SessionStateEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.PreviewStartedEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.PreviewStoppedEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.DeviceDisconnectedEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.DeviceErrorEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.SessionStateEvent](s.options.EventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Initial event confirms the subscription before anything happens.
		if err := send.Data(events.SessionStateEvent{
			State:     s.options.Orchestrator.State().String(),
			Timestamp: time.Now().Format(time.RFC3339),
		}); err != nil {
			return
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

package api

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/camnode/internal/camera"
	"github.com/smazurov/camnode/internal/events"
	"github.com/smazurov/camnode/internal/platform"
	"github.com/smazurov/camnode/internal/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	sim := platform.NewSim(logger)
	bus := events.New()
	manager := camera.NewManager(sim, bus, logger)
	orchestrator := session.NewOrchestrator(sim, manager, bus, logger)

	return NewServer(&Options{
		Orchestrator: orchestrator,
		EventBus:     bus,
	})
}

func TestPreviewStatus_TracksOrchestrator(t *testing.T) {
	server := newTestServer(t)

	status := server.previewStatus()
	if status.Body.State != "idle" {
		t.Errorf("State = %q, want %q", status.Body.State, "idle")
	}
	if status.Body.CameraID != "" {
		t.Errorf("CameraID = %q, want empty", status.Body.CameraID)
	}

	if err := server.options.Orchestrator.StartPreview("display:0"); err != nil {
		t.Fatalf("StartPreview: %v", err)
	}

	status = server.previewStatus()
	if status.Body.State != "active" {
		t.Errorf("State = %q, want %q", status.Body.State, "active")
	}
	if status.Body.CameraID != "0" {
		t.Errorf("CameraID = %q, want %q", status.Body.CameraID, "0")
	}

	if err := server.options.Orchestrator.StopPreview(); err != nil {
		t.Fatalf("StopPreview: %v", err)
	}
	status = server.previewStatus()
	if status.Body.State != "idle" {
		t.Errorf("State after stop = %q, want %q", status.Body.State, "idle")
	}
}

func TestPreviewError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "invalid state maps to 409",
			err:  &camera.Error{Code: camera.ErrCodeInvalidState, Message: "preview is active"},
			want: 409,
		},
		{
			name: "no camera maps to 404",
			err:  &camera.Error{Code: camera.ErrCodeNoCamera, Message: "no cameras enumerated"},
			want: 404,
		},
		{
			name: "platform failure maps to 502",
			err:  &camera.Error{Code: camera.ErrCodePlatformCall, Message: "opening camera"},
			want: 502,
		},
		{
			name: "untyped error maps to 502",
			err:  errors.New("boom"),
			want: 502,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := previewError(tt.err)
			var status huma.StatusError
			if !errors.As(mapped, &status) {
				t.Fatalf("previewError returned %T, want huma.StatusError", mapped)
			}
			if status.GetStatus() != tt.want {
				t.Errorf("status = %d, want %d", status.GetStatus(), tt.want)
			}
		})
	}
}

func TestNewServer_RegistersRoutes(t *testing.T) {
	server := newTestServer(t)

	paths := server.GetAPI().OpenAPI().Paths
	for _, path := range []string{"/api/preview", "/api/logs", "/api/events", "/api/version"} {
		if _, ok := paths[path]; !ok {
			t.Errorf("route %s not registered", path)
		}
	}
}

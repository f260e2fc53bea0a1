package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/camnode/internal/camera"
	"github.com/smazurov/camnode/internal/platform"
)

// StartPreviewInput is the request body for starting a preview.
type StartPreviewInput struct {
	Body struct {
		Surface string `json:"surface" example:"display:0" doc:"Display surface reference to render the preview onto"`
	}
}

// PreviewStatus describes the current preview state.
type PreviewStatus struct {
	State    string `json:"state" example:"active" doc:"Orchestrator state"`
	CameraID string `json:"camera_id,omitempty" example:"0" doc:"Opened camera identifier, empty when idle"`
}

// PreviewStatusOutput wraps the preview status response.
type PreviewStatusOutput struct {
	Body PreviewStatus
}

func (s *Server) registerPreviewRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "start-preview",
		Method:      http.MethodPost,
		Path:        "/api/preview",
		Summary:     "Start Preview",
		Description: "Opens the camera, builds the capture session against the given surface and starts a repeating preview request",
		Tags:        []string{"preview"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 502},
	}, func(ctx context.Context, input *StartPreviewInput) (*PreviewStatusOutput, error) {
		if err := s.options.Orchestrator.StartPreview(platform.SurfaceRef(input.Body.Surface)); err != nil {
			return nil, previewError(err)
		}
		return s.previewStatus(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-preview",
		Method:      http.MethodDelete,
		Path:        "/api/preview",
		Summary:     "Stop Preview",
		Description: "Tears down the capture session and releases the camera. A no-op when no preview is running.",
		Tags:        []string{"preview"},
		Security:    withAuth(),
		Errors:      []int{401, 502},
	}, func(ctx context.Context, _ *struct{}) (*PreviewStatusOutput, error) {
		if err := s.options.Orchestrator.StopPreview(); err != nil {
			return nil, huma.Error502BadGateway("Preview teardown was incomplete", err)
		}
		return s.previewStatus(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-preview",
		Method:      http.MethodGet,
		Path:        "/api/preview",
		Summary:     "Preview Status",
		Tags:        []string{"preview"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, _ *struct{}) (*PreviewStatusOutput, error) {
		return s.previewStatus(), nil
	})
}

func (s *Server) previewStatus() *PreviewStatusOutput {
	return &PreviewStatusOutput{
		Body: PreviewStatus{
			State:    s.options.Orchestrator.State().String(),
			CameraID: s.options.Orchestrator.CameraID(),
		},
	}
}

// previewError maps pipeline error codes onto HTTP statuses.
func previewError(err error) error {
	var cerr *camera.Error
	if errors.As(err, &cerr) {
		var details []error
		if cerr.Cause != nil {
			details = append(details, cerr.Cause)
		}
		switch cerr.Code {
		case camera.ErrCodeInvalidState:
			return huma.Error409Conflict(cerr.Message, details...)
		case camera.ErrCodeNoCamera:
			return huma.Error404NotFound(cerr.Message, details...)
		}
	}
	return huma.Error502BadGateway("Platform call failed", err)
}

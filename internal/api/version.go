package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/camnode/internal/version"
)

// VersionOutput wraps the version info response.
type VersionOutput struct {
	Body version.Info
}

func (s *Server) registerVersionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Returns application version and build metadata",
		Tags:        []string{"system"},
	}, func(ctx context.Context, _ *struct{}) (*VersionOutput, error) {
		return &VersionOutput{Body: version.Get()}, nil
	})
}

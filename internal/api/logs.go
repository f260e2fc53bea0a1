package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/camnode/internal/logging"
)

// LogEntry is a single buffered log line as returned by the API.
type LogEntry struct {
	Timestamp  string         `json:"timestamp" example:"2026-01-15T10:30:00Z" doc:"Time the entry was logged"`
	Level      string         `json:"level" example:"INFO" doc:"Log level"`
	Module     string         `json:"module" example:"session" doc:"Module that produced the entry"`
	Message    string         `json:"message" example:"Preview started" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes attached to the entry"`
}

// LogsOutput wraps the recent log history response.
type LogsOutput struct {
	Body struct {
		Entries []LogEntry `json:"entries" doc:"Buffered entries in chronological order"`
		Count   int        `json:"count" example:"42" doc:"Number of entries returned"`
	}
}

func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Returns the in-memory log history buffer",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, _ *struct{}) (*LogsOutput, error) {
		resp := &LogsOutput{}
		resp.Body.Entries = []LogEntry{}

		if buffer := logging.GetBuffer(); buffer != nil {
			for _, entry := range buffer.ReadAll() {
				resp.Body.Entries = append(resp.Body.Entries, LogEntry{
					Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
					Level:      entry.Level,
					Module:     entry.Module,
					Message:    entry.Message,
					Attributes: entry.Attributes,
				})
			}
		}

		resp.Body.Count = len(resp.Body.Entries)
		return resp, nil
	})
}

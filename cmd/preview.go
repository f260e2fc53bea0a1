// Package cmd holds auxiliary cobra commands attached to the CLI root.
package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/smazurov/camnode/internal/camera"
	"github.com/smazurov/camnode/internal/events"
	"github.com/smazurov/camnode/internal/logging"
	"github.com/smazurov/camnode/internal/platform"
	"github.com/smazurov/camnode/internal/session"
	"github.com/spf13/cobra"
)

// CreatePreviewCmd creates the preview command: a one-shot preview run
// without the API server, useful for exercising the capture pipeline from
// a shell.
func CreatePreviewCmd() *cobra.Command {
	var surface string
	var duration time.Duration
	var cameraIDs string
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Run a one-shot timed preview",
		Long: `Opens the first available camera, starts a repeating preview against the ` +
			`given surface, holds it for the requested duration and tears everything down.`,
		Run: func(_ *cobra.Command, _ []string) {
			loggingConfig := logging.Config{
				Level:  "info",
				Format: "text",
			}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("preview")

			var provider platform.Provider
			if cameraIDs != "" {
				provider = platform.NewSim(logger, platform.WithCameras(strings.Split(cameraIDs, ",")...))
			} else {
				provider = platform.New(logger)
			}

			bus := events.New()
			unsubscribe := bus.Subscribe(func(ev events.SessionStateEvent) {
				logger.Info("Session state", "state", ev.State)
			})
			defer unsubscribe()

			manager := camera.NewManager(provider, bus, logger)
			orchestrator := session.NewOrchestrator(provider, manager, bus, logger)

			if err := orchestrator.StartPreview(platform.SurfaceRef(surface)); err != nil {
				logger.Error("Failed to start preview", "error", err)
				os.Exit(1)
			}

			logger.Info("Preview running", "surface", surface, "duration", duration)
			time.Sleep(duration)

			if err := orchestrator.StopPreview(); err != nil {
				logger.Error("Preview teardown was incomplete", "error", err)
				os.Exit(1)
			}

			if sim, ok := provider.(*platform.Sim); ok {
				if live := sim.LiveHandles(); live != 0 {
					logger.Error("Platform handles leaked", "live", live)
					os.Exit(1)
				}
			}
			logger.Info("Preview finished cleanly")
		},
	}

	cmd.Flags().StringVar(&surface, "surface", "display:0", "Display surface reference")
	cmd.Flags().DurationVar(&duration, "duration", 3*time.Second, "How long to hold the preview")
	cmd.Flags().StringVar(&cameraIDs, "camera-ids", "", "Comma-separated camera IDs to simulate (default \"0\")")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}

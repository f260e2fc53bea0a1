package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/pelletier/go-toml/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smazurov/camnode/cmd"
	"github.com/smazurov/camnode/internal/api"
	"github.com/smazurov/camnode/internal/camera"
	"github.com/smazurov/camnode/internal/config"
	"github.com/smazurov/camnode/internal/events"
	"github.com/smazurov/camnode/internal/logging"
	"github.com/smazurov/camnode/internal/platform"
	"github.com/smazurov/camnode/internal/session"
	"github.com/smazurov/camnode/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Platform settings
	PlatformCameraIDs string `help:"Comma-separated camera IDs to simulate" default:"0" toml:"platform.camera_ids" env:"PLATFORM_CAMERA_IDS"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCamera   string `help:"Camera manager logging level" default:"info" toml:"logging.camera" env:"LOGGING_CAMERA"`
	LoggingSession  string `help:"Session orchestrator logging level" default:"info" toml:"logging.session" env:"LOGGING_SESSION"`
	LoggingPlatform string `help:"Platform layer logging level" default:"info" toml:"logging.platform" env:"LOGGING_PLATFORM"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

// loggingSection is the slice of the config file the watcher reloads at
// runtime. Only log levels are hot-applied; everything else needs a restart.
type loggingSection struct {
	Logging struct {
		Level    string `toml:"level"`
		Camera   string `toml:"camera"`
		Session  string `toml:"session"`
		Platform string `toml:"platform"`
		API      string `toml:"api"`
	} `toml:"logging"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		loggingConfig := logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"camera":   opts.LoggingCamera,
				"session":  opts.LoggingSession,
				"platform": opts.LoggingPlatform,
				"api":      opts.LoggingAPI,
			},
		}
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")
		logger.Info("Starting camnode", "version", version.String())

		eventBus := events.New()

		var simOpts []platform.SimOption
		if opts.PlatformCameraIDs != "" {
			simOpts = append(simOpts, platform.WithCameras(strings.Split(opts.PlatformCameraIDs, ",")...))
		}
		provider := platform.NewSim(logging.GetLogger("platform"), simOpts...)

		cameraManager := camera.NewManager(provider, eventBus, logging.GetLogger("camera"))
		orchestrator := session.NewOrchestrator(provider, cameraManager, eventBus, logging.GetLogger("session"))

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Orchestrator:      orchestrator,
			EventBus:          eventBus,
			PrometheusHandler: promhttp.Handler(),
		})

		// Hot-apply log level changes from the config file.
		watcher := config.NewWatcher(opts.Config, func(path string) (loggingSection, error) {
			var section loggingSection
			data, err := os.ReadFile(path)
			if err != nil {
				return section, err
			}
			return section, toml.Unmarshal(data, &section)
		}, logger)

		watcher.OnReload(func(section loggingSection) {
			logger.Info("Config changed, re-applying log levels")
			for module, level := range map[string]string{
				"camera":   section.Logging.Camera,
				"session":  section.Logging.Session,
				"platform": section.Logging.Platform,
				"api":      section.Logging.API,
			} {
				if level != "" {
					logging.SetModuleLevel(module, level)
				}
			}
		})

		hooks.OnStart(func() {
			if startErr := watcher.Start(); startErr != nil {
				logger.Warn("Failed to start config watcher, hot-reload disabled", "error", startErr)
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Release any held camera resources before exit.
			if stopErr := orchestrator.StopPreview(); stopErr != nil {
				logger.Error("Error stopping preview", "error", stopErr)
			}

			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Error("Error stopping config watcher", "error", stopErr)
			}
		})
	})

	previewCmd := cmd.CreatePreviewCmd()
	cli.Root().AddCommand(previewCmd)

	cli.Run()
}

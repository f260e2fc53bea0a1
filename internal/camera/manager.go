// Package camera owns the camera device half of the capture pipeline:
// selecting and opening a physical camera and creating the capture request
// template bound to it.
package camera

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/camnode/internal/events"
	"github.com/smazurov/camnode/internal/metrics"
	"github.com/smazurov/camnode/internal/platform"
)

// Manager opens one camera device and holds its two owned slots: the device
// handle and the capture request template. Device state notifications are
// forwarded to the event bus; they never mutate the slots.
type Manager struct {
	provider platform.Provider
	bus      *events.Bus
	logger   *slog.Logger

	mu      sync.Mutex
	device  platform.Device
	request platform.Request
}

// NewManager creates a device manager on top of a camera service backend.
func NewManager(provider platform.Provider, bus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		provider: provider,
		bus:      bus,
		logger:   logger,
	}
}

// Open connects to the camera service, opens the first enumerated camera and
// creates a capture request template of the given kind. The transient
// service handle is closed before Open returns, whatever the outcome. Any
// failure releases what was already acquired and is returned as an *Error.
func (m *Manager) Open(kind platform.TemplateKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return &Error{Code: ErrCodeInvalidState, Message: "camera already open"}
	}

	svc, err := m.provider.Connect()
	if err != nil {
		return &Error{Code: ErrCodePlatformCall, Message: "connecting to camera service", Cause: err}
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			m.logger.Warn("Failed to close camera service handle", "error", cerr)
		}
	}()

	ids, err := svc.CameraIDs()
	if err != nil {
		return &Error{Code: ErrCodePlatformCall, Message: "enumerating cameras", Cause: err}
	}
	if len(ids) == 0 {
		return &Error{Code: ErrCodeNoCamera, Message: "no camera device detected"}
	}

	// First enumerated camera wins; no capability scoring.
	cameraID := ids[0]
	m.logger.Info("Opening camera",
		"camera_id", cameraID,
		"cameras", len(ids),
		"template", kind.String())

	if chars, cerr := svc.Characteristics(cameraID); cerr != nil {
		// Advisory only; an opaque camera is still usable.
		m.logger.Warn("Failed to fetch camera characteristics", "camera_id", cameraID, "error", cerr)
	} else {
		m.logger.Debug("Camera characteristics",
			"camera_id", cameraID,
			"facing", chars.Facing,
			"orientation", chars.Orientation)
	}

	device, err := svc.OpenDevice(cameraID, platform.DeviceCallbacks{
		OnDisconnected: m.onDisconnected,
		OnError:        m.onError,
	})
	if err != nil {
		return &Error{Code: ErrCodePlatformCall, Message: fmt.Sprintf("opening camera %q", cameraID), Cause: err}
	}

	request, err := device.CreateRequest(kind)
	if err != nil {
		if cerr := device.Close(); cerr != nil {
			m.logger.Warn("Failed to close device after request creation failure",
				"camera_id", cameraID, "error", cerr)
		}
		return &Error{Code: ErrCodePlatformCall, Message: "creating capture request template", Cause: err}
	}

	m.device = device
	m.request = request
	return nil
}

// Device returns the opened device handle, or nil when closed.
func (m *Manager) Device() platform.Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.device
}

// Request returns the capture request template, or nil when closed.
func (m *Manager) Request() platform.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.request
}

// CameraID returns the opened camera's identifier, or "" when closed.
func (m *Manager) CameraID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil {
		return ""
	}
	return m.device.ID()
}

// Close releases the request template and closes the device, in that order.
// Each slot is null-checked and nulled, so repeated calls are no-ops.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error

	if m.request != nil {
		if err := m.request.Release(); err != nil {
			m.logger.Warn("Failed to release capture request", "error", err)
			errs = append(errs, err)
		}
		m.request = nil
	}

	if m.device != nil {
		id := m.device.ID()
		if err := m.device.Close(); err != nil {
			m.logger.Warn("Failed to close camera device", "camera_id", id, "error", err)
			errs = append(errs, err)
		} else {
			m.logger.Info("Camera closed", "camera_id", id)
		}
		m.device = nil
	}

	return errors.Join(errs...)
}

// onDisconnected runs on the platform notification goroutine. Observational
// only: the active session is left as-is until the caller stops it.
func (m *Manager) onDisconnected(cameraID string) {
	m.logger.Warn("Camera disconnected", "camera_id", cameraID)
	metrics.IncDeviceDisconnect()
	m.bus.Publish(events.DeviceDisconnectedEvent{
		CameraID:  cameraID,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// onError runs on the platform notification goroutine. Observational only.
func (m *Manager) onError(cameraID string, code int) {
	m.logger.Error("Camera device error", "camera_id", cameraID, "code", code)
	metrics.IncDeviceError()
	m.bus.Publish(events.DeviceErrorEvent{
		CameraID:  cameraID,
		Code:      code,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

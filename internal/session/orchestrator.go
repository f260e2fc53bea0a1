// Package session drives the capture session state machine: from idle
// through device open and session construction to an active repeating
// preview, and back down in strict reverse order.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/camnode/internal/camera"
	"github.com/smazurov/camnode/internal/events"
	"github.com/smazurov/camnode/internal/metrics"
	"github.com/smazurov/camnode/internal/platform"
)

// State of the orchestrator. Transitional states are only observable while
// StartPreview is in flight.
type State int

// Orchestrator states.
const (
	StateIdle State = iota
	StateDeviceOpening
	StateSessionBuilding
	StateActive
)

// String returns the state name used in logs and the API.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDeviceOpening:
		return "device_opening"
	case StateSessionBuilding:
		return "session_building"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Orchestrator composes a device, a display surface and the session output
// chain into an active repeating preview. It owns the surface, output
// target, session output, container and session slots; the device manager
// owns the device and request slots. A single mutex guards all of them, so
// StartPreview and StopPreview are safe to call from any goroutine.
type Orchestrator struct {
	provider platform.Provider
	camera   *camera.Manager
	bus      *events.Bus
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	surface platform.Surface
	target  platform.OutputTarget
	output  platform.SessionOutput
	outputs platform.OutputContainer
	session platform.Session
}

// NewOrchestrator creates a session orchestrator.
func NewOrchestrator(provider platform.Provider, cam *camera.Manager, bus *events.Bus, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		camera:   cam,
		bus:      bus,
		logger:   logger,
	}
}

// State returns the current orchestrator state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// CameraID returns the opened camera's identifier, or "" when idle.
func (o *Orchestrator) CameraID() string {
	return o.camera.CameraID()
}

// StartPreview builds the full resource chain against the supplied surface
// reference and submits the request template as a repeating request. A
// second StartPreview without an intervening StopPreview is rejected with
// INVALID_STATE rather than leaking the held session. The first failing
// step aborts the chain and tears down whatever was already constructed.
func (o *Orchestrator) StartPreview(ref platform.SurfaceRef) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIdle {
		metrics.IncPreviewFailure(camera.ErrCodeInvalidState)
		return &camera.Error{
			Code:    camera.ErrCodeInvalidState,
			Message: fmt.Sprintf("preview is %s, stop it first", o.state),
		}
	}

	surface, err := o.provider.AcquireSurface(ref)
	if err != nil {
		return o.abortLocked(err, "acquiring display surface")
	}
	o.surface = surface

	o.state = StateDeviceOpening
	if err := o.camera.Open(platform.TemplatePreview); err != nil {
		return o.abortLocked(err, "opening camera")
	}

	o.state = StateSessionBuilding
	target, err := o.provider.NewOutputTarget(o.surface)
	if err != nil {
		return o.abortLocked(err, "creating output target")
	}
	o.target = target

	if err := o.camera.Request().AddTarget(o.target); err != nil {
		return o.abortLocked(err, "attaching output target to request")
	}

	output, err := o.provider.NewSessionOutput(o.surface)
	if err != nil {
		return o.abortLocked(err, "creating session output")
	}
	o.output = output

	outputs, err := o.provider.NewOutputContainer()
	if err != nil {
		return o.abortLocked(err, "creating session output container")
	}
	o.outputs = outputs

	if err := o.outputs.Add(o.output); err != nil {
		return o.abortLocked(err, "adding session output to container")
	}

	sess, err := o.camera.Device().CreateSession(o.outputs, platform.SessionCallbacks{
		OnReady:  o.onSessionReady,
		OnActive: o.onSessionActive,
	})
	if err != nil {
		return o.abortLocked(err, "creating capture session")
	}
	o.session = sess

	if err := o.session.SetRepeating(o.camera.Request()); err != nil {
		return o.abortLocked(err, "submitting repeating request")
	}

	o.state = StateActive
	metrics.SetPreviewActive(true)
	metrics.IncPreviewStart()
	cameraID := o.camera.CameraID()
	o.logger.Info("Preview started", "camera_id", cameraID, "surface", string(ref))
	o.bus.Publish(events.PreviewStartedEvent{
		CameraID:  cameraID,
		Surface:   string(ref),
		Timestamp: time.Now().Format(time.RFC3339),
	})
	return nil
}

// StopPreview tears down the full resource chain. Safe to call from any
// state, including after a partially failed StartPreview; calling it on an
// idle orchestrator is a no-op.
func (o *Orchestrator) StopPreview() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.teardownLocked()
}

// abortLocked converts a failed construction step into a typed error,
// releases the partial resource set and returns to idle.
func (o *Orchestrator) abortLocked(cause error, message string) error {
	err := asPipelineError(cause, message)
	o.logger.Error("Preview start failed", "step", message, "error", cause)
	metrics.IncPreviewFailure(err.Code)
	if terr := o.teardownLocked(); terr != nil {
		o.logger.Warn("Teardown after failed start was incomplete", "error", terr)
	}
	return err
}

// teardownLocked releases every held resource in strict reverse creation
// order: session, container, session output, output target, request and
// device, then the surface. Each slot is independently null-checked and
// nulled so partial construction and repeated calls are safe.
func (o *Orchestrator) teardownLocked() error {
	held := o.session != nil || o.outputs != nil || o.output != nil ||
		o.target != nil || o.surface != nil || o.camera.Device() != nil
	if !held {
		o.state = StateIdle
		return nil
	}

	cameraID := o.camera.CameraID()
	var errs []error
	release := func(step string, fn func() error) {
		if err := fn(); err != nil {
			o.logger.Warn("Teardown step failed", "step", step, "error", err)
			errs = append(errs, err)
		}
	}

	if o.session != nil {
		release("stop_repeating", o.session.StopRepeating)
		release("close_session", o.session.Close)
		o.session = nil
	}
	if o.outputs != nil {
		release("release_container", o.outputs.Release)
		o.outputs = nil
	}
	if o.output != nil {
		release("release_output", o.output.Release)
		o.output = nil
	}
	if o.target != nil {
		release("release_target", o.target.Release)
		o.target = nil
	}
	release("close_camera", o.camera.Close)
	if o.surface != nil {
		release("release_surface", o.surface.Release)
		o.surface = nil
	}

	o.state = StateIdle
	metrics.SetPreviewActive(false)
	o.logger.Info("Preview stopped", "camera_id", cameraID)
	o.bus.Publish(events.PreviewStoppedEvent{
		CameraID:  cameraID,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	return errors.Join(errs...)
}

// onSessionReady runs on the platform notification goroutine. Observational
// only: it must not touch the resource slots.
func (o *Orchestrator) onSessionReady() {
	o.logger.Info("Capture session ready")
	metrics.IncSessionState("ready")
	o.bus.Publish(events.SessionStateEvent{
		State:     "ready",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// onSessionActive runs on the platform notification goroutine.
func (o *Orchestrator) onSessionActive() {
	o.logger.Info("Capture session active")
	metrics.IncSessionState("active")
	o.bus.Publish(events.SessionStateEvent{
		State:     "active",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// asPipelineError passes typed errors through and wraps raw platform
// failures with context.
func asPipelineError(err error, message string) *camera.Error {
	var cerr *camera.Error
	if errors.As(err, &cerr) {
		return cerr
	}
	return &camera.Error{Code: camera.ErrCodePlatformCall, Message: message, Cause: err}
}

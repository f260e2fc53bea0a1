package events

// Event type constants for kelindar/event.
const (
	TypePreviewStarted uint32 = iota + 1
	TypePreviewStopped
	TypeDeviceDisconnected
	TypeDeviceError
	TypeSessionState
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// PreviewStartedEvent is published when a repeating preview stream becomes
// active.
type PreviewStartedEvent struct {
	CameraID  string `json:"camera_id" example:"0" doc:"Opened camera identifier"`
	Surface   string `json:"surface" example:"surface-main" doc:"Display surface reference"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PreviewStartedEvent.
func (e PreviewStartedEvent) Type() uint32 { return TypePreviewStarted }

// PreviewStoppedEvent is published after a full capture session teardown.
type PreviewStoppedEvent struct {
	CameraID  string `json:"camera_id" example:"0" doc:"Camera that was closed"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PreviewStoppedEvent.
func (e PreviewStoppedEvent) Type() uint32 { return TypePreviewStopped }

// DeviceDisconnectedEvent reports a camera yanked out from under an open
// device handle. The session is not recovered automatically.
type DeviceDisconnectedEvent struct {
	CameraID  string `json:"camera_id" example:"0" doc:"Disconnected camera identifier"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceDisconnectedEvent.
func (e DeviceDisconnectedEvent) Type() uint32 { return TypeDeviceDisconnected }

// DeviceErrorEvent reports a device-level error from the camera service.
type DeviceErrorEvent struct {
	CameraID  string `json:"camera_id" example:"0" doc:"Camera reporting the error"`
	Code      int    `json:"code" example:"3" doc:"Platform error code"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceErrorEvent.
func (e DeviceErrorEvent) Type() uint32 { return TypeDeviceError }

// SessionStateEvent reports capture session ready/active transitions as
// delivered by the platform notification thread.
type SessionStateEvent struct {
	State     string `json:"state" example:"active" doc:"Session state: ready or active"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionStateEvent.
func (e SessionStateEvent) Type() uint32 { return TypeSessionState }

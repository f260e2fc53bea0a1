package platform

import "log/slog"

// TemplateKind selects the capture parameter template created for a device.
type TemplateKind int

// Capture request templates.
const (
	TemplatePreview TemplateKind = iota
	TemplateRecord
	TemplateStillCapture
)

// String returns the template name used in logs and journals.
func (k TemplateKind) String() string {
	switch k {
	case TemplatePreview:
		return "preview"
	case TemplateRecord:
		return "record"
	case TemplateStillCapture:
		return "still"
	default:
		return "unknown"
	}
}

// SurfaceRef is an opaque reference to a rendering destination supplied by
// the display surface provider. The core never interprets its contents.
type SurfaceRef string

// Characteristics describes a camera as reported by the backend. Fetching
// them is advisory; callers must tolerate their absence.
type Characteristics struct {
	Facing      string
	Orientation int
}

// DeviceCallbacks receive device state notifications. The backend invokes
// them on its own notification goroutine, concurrently with calls into the
// backend. They must not block and must not touch session resource slots.
type DeviceCallbacks struct {
	OnDisconnected func(cameraID string)
	OnError        func(cameraID string, code int)
}

// SessionCallbacks receive capture session state notifications, delivered
// the same way as DeviceCallbacks.
type SessionCallbacks struct {
	OnReady  func()
	OnActive func()
}

// Provider is a long-lived camera service backend. Connect returns a
// transient service handle that must be closed once enumeration and device
// open are done; surfaces, targets, outputs and containers are created
// directly on the provider.
type Provider interface {
	Connect() (Service, error)
	AcquireSurface(ref SurfaceRef) (Surface, error)
	NewOutputTarget(s Surface) (OutputTarget, error)
	NewSessionOutput(s Surface) (SessionOutput, error)
	NewOutputContainer() (OutputContainer, error)
}

// Service is a transient handle to the camera service, used for enumeration
// and opening devices.
type Service interface {
	CameraIDs() ([]string, error)
	Characteristics(cameraID string) (*Characteristics, error)
	OpenDevice(cameraID string, cb DeviceCallbacks) (Device, error)
	Close() error
}

// Device is an opened camera. It outlives the Service handle that opened it.
type Device interface {
	ID() string
	CreateRequest(kind TemplateKind) (Request, error)
	CreateSession(outputs OutputContainer, cb SessionCallbacks) (Session, error)
	Close() error
}

// Request is a capture request template bound to a device.
type Request interface {
	AddTarget(t OutputTarget) error
	Release() error
}

// Surface is an owned handle to a rendering destination.
type Surface interface {
	Ref() SurfaceRef
	Release() error
}

// OutputTarget binds a capture request to a surface.
type OutputTarget interface {
	Release() error
}

// SessionOutput describes one session output backed by a surface.
type SessionOutput interface {
	Release() error
}

// OutputContainer collects session outputs for session creation.
type OutputContainer interface {
	Add(out SessionOutput) error
	Release() error
}

// Session is an active capture session binding a device to a container.
// It must not outlive either.
type Session interface {
	SetRepeating(req Request) error
	StopRepeating() error
	Close() error
}

// Op identifies a single backend call. The simulator journals every call
// that succeeds; tests use the journal to assert ordering and that each
// handle is released exactly once.
type Op string

// Backend operations.
const (
	OpConnect          Op = "connect"
	OpCloseService     Op = "close_service"
	OpCameraIDs        Op = "camera_ids"
	OpCharacteristics  Op = "characteristics"
	OpOpenDevice       Op = "open_device"
	OpCloseDevice      Op = "close_device"
	OpCreateRequest    Op = "create_request"
	OpReleaseRequest   Op = "release_request"
	OpAcquireSurface   Op = "acquire_surface"
	OpReleaseSurface   Op = "release_surface"
	OpCreateTarget     Op = "create_target"
	OpReleaseTarget    Op = "release_target"
	OpAddTarget        Op = "add_target"
	OpCreateOutput     Op = "create_output"
	OpReleaseOutput    Op = "release_output"
	OpCreateContainer  Op = "create_container"
	OpReleaseContainer Op = "release_container"
	OpAddOutput        Op = "add_output"
	OpCreateSession    Op = "create_session"
	OpCloseSession     Op = "close_session"
	OpSetRepeating     Op = "set_repeating"
	OpStopRepeating    Op = "stop_repeating"
)

// New returns the camera service backend for this host. Only the in-process
// simulator is compiled in today; real service bindings implement Provider
// and get selected here.
func New(logger *slog.Logger) Provider {
	if logger != nil {
		logger.Info("No hardware camera service bindings, using simulator")
	}
	return NewSim(logger)
}

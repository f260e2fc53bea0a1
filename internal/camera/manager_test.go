package camera

import (
	"errors"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/smazurov/camnode/internal/events"
	"github.com/smazurov/camnode/internal/platform"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestManager_OpenSelectsFirstCamera(t *testing.T) {
	sim := platform.NewSim(nil, platform.WithCameras("0", "1"))
	mgr := NewManager(sim, events.New(), testLogger())

	if err := mgr.Open(platform.TemplatePreview); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer mgr.Close()

	if got := mgr.CameraID(); got != "0" {
		t.Errorf("camera id = %q, want %q", got, "0")
	}
	if mgr.Device() == nil || mgr.Request() == nil {
		t.Error("device and request slots must be set after Open")
	}

	want := []platform.Op{
		platform.OpConnect,
		platform.OpCameraIDs,
		platform.OpCharacteristics,
		platform.OpOpenDevice,
		platform.OpCreateRequest,
		platform.OpCloseService,
	}
	if got := sim.Journal(); !slices.Equal(got, want) {
		t.Errorf("journal = %v, want %v", got, want)
	}
}

func TestManager_NoCameraAvailable(t *testing.T) {
	sim := platform.NewSim(nil, platform.WithCameras())
	mgr := NewManager(sim, events.New(), testLogger())

	err := mgr.Open(platform.TemplatePreview)
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Code != ErrCodeNoCamera {
		t.Fatalf("Open error = %v, want code %s", err, ErrCodeNoCamera)
	}

	journal := sim.Journal()
	for _, op := range []platform.Op{platform.OpOpenDevice, platform.OpCreateRequest} {
		if slices.Contains(journal, op) {
			t.Errorf("op %s must not be attempted without cameras", op)
		}
	}
	// The transient service handle still must not leak.
	if n := sim.LiveHandles(); n != 0 {
		t.Errorf("live handles = %d, want 0", n)
	}
}

func TestManager_CharacteristicsFailureIsNonFatal(t *testing.T) {
	sim := platform.NewSim(nil)
	sim.FailOn(platform.OpCharacteristics, errors.New("metadata unavailable"))
	mgr := NewManager(sim, events.New(), testLogger())

	if err := mgr.Open(platform.TemplatePreview); err != nil {
		t.Fatalf("Open should tolerate missing characteristics, got %v", err)
	}
	mgr.Close()
}

func TestManager_OpenFailureReleasesPartial(t *testing.T) {
	tests := []struct {
		name string
		op   platform.Op
	}{
		{"enumeration fails", platform.OpCameraIDs},
		{"device open fails", platform.OpOpenDevice},
		{"request creation fails", platform.OpCreateRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			boom := errors.New("boom")
			sim := platform.NewSim(nil)
			sim.FailOn(tt.op, boom)
			mgr := NewManager(sim, events.New(), testLogger())

			err := mgr.Open(platform.TemplatePreview)
			var cerr *Error
			if !errors.As(err, &cerr) || cerr.Code != ErrCodePlatformCall {
				t.Fatalf("Open error = %v, want code %s", err, ErrCodePlatformCall)
			}
			if !errors.Is(err, boom) {
				t.Errorf("cause %v not preserved in %v", boom, err)
			}
			if n := sim.LiveHandles(); n != 0 {
				t.Errorf("live handles after failed Open = %d, want 0", n)
			}
			if mgr.Device() != nil || mgr.Request() != nil {
				t.Error("slots must stay nil after failed Open")
			}
		})
	}
}

func TestManager_DoubleOpenRejected(t *testing.T) {
	sim := platform.NewSim(nil)
	mgr := NewManager(sim, events.New(), testLogger())

	if err := mgr.Open(platform.TemplatePreview); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer mgr.Close()

	err := mgr.Open(platform.TemplatePreview)
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Code != ErrCodeInvalidState {
		t.Fatalf("second Open error = %v, want code %s", err, ErrCodeInvalidState)
	}
}

func TestManager_CloseIdempotent(t *testing.T) {
	sim := platform.NewSim(nil)
	mgr := NewManager(sim, events.New(), testLogger())

	// Close before any Open is a no-op.
	if err := mgr.Close(); err != nil {
		t.Fatalf("Close on fresh manager: %v", err)
	}

	if err := mgr.Open(platform.TemplatePreview); err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := mgr.Close(); err != nil {
			t.Fatalf("Close #%d: %v", i+1, err)
		}
	}

	if n := sim.LiveHandles(); n != 0 {
		t.Errorf("live handles = %d, want 0", n)
	}

	journal := sim.Journal()
	releases := 0
	for _, op := range journal {
		if op == platform.OpReleaseRequest || op == platform.OpCloseDevice {
			releases++
		}
	}
	if releases != 2 {
		t.Errorf("release ops = %d, want 2 (request + device, once each)", releases)
	}
}

func TestManager_DeviceNotificationsPublished(t *testing.T) {
	sim := platform.NewSim(nil)
	bus := events.New()
	mgr := NewManager(sim, bus, testLogger())

	disconnected := make(chan events.DeviceDisconnectedEvent, 1)
	errored := make(chan events.DeviceErrorEvent, 1)
	defer bus.Subscribe(func(e events.DeviceDisconnectedEvent) { disconnected <- e })()
	defer bus.Subscribe(func(e events.DeviceErrorEvent) { errored <- e })()

	if err := mgr.Open(platform.TemplatePreview); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer mgr.Close()

	sim.Disconnect("0")
	select {
	case e := <-disconnected:
		if e.CameraID != "0" {
			t.Errorf("disconnected camera = %q, want %q", e.CameraID, "0")
		}
	case <-time.After(time.Second):
		t.Fatal("no disconnect event published")
	}

	sim.InjectError("0", 4)
	select {
	case e := <-errored:
		if e.Code != 4 {
			t.Errorf("error code = %d, want 4", e.Code)
		}
	case <-time.After(time.Second):
		t.Fatal("no device error event published")
	}
}

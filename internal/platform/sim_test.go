package platform

import (
	"errors"
	"slices"
	"testing"
	"time"
)

// buildChain runs the full happy-path construction sequence against the
// simulator and returns the created handles.
func buildChain(t *testing.T, sim *Sim) (Surface, Device, Request, OutputTarget, SessionOutput, OutputContainer, Session) {
	t.Helper()

	surface, err := sim.AcquireSurface("surfaceA")
	if err != nil {
		t.Fatalf("AcquireSurface: %v", err)
	}

	svc, err := sim.Connect()
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	ids, err := svc.CameraIDs()
	if err != nil {
		t.Fatalf("CameraIDs: %v", err)
	}
	if len(ids) == 0 {
		t.Fatal("expected at least one camera")
	}
	dev, err := svc.OpenDevice(ids[0], DeviceCallbacks{})
	if err != nil {
		t.Fatalf("OpenDevice: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close service: %v", err)
	}

	req, err := dev.CreateRequest(TemplatePreview)
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	target, err := sim.NewOutputTarget(surface)
	if err != nil {
		t.Fatalf("NewOutputTarget: %v", err)
	}
	if err := req.AddTarget(target); err != nil {
		t.Fatalf("AddTarget: %v", err)
	}
	output, err := sim.NewSessionOutput(surface)
	if err != nil {
		t.Fatalf("NewSessionOutput: %v", err)
	}
	container, err := sim.NewOutputContainer()
	if err != nil {
		t.Fatalf("NewOutputContainer: %v", err)
	}
	if err := container.Add(output); err != nil {
		t.Fatalf("Add output: %v", err)
	}
	sess, err := dev.CreateSession(container, SessionCallbacks{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := sess.SetRepeating(req); err != nil {
		t.Fatalf("SetRepeating: %v", err)
	}

	return surface, dev, req, target, output, container, sess
}

func TestSim_JournalOrder(t *testing.T) {
	sim := NewSim(nil)
	buildChain(t, sim)

	want := []Op{
		OpAcquireSurface,
		OpConnect,
		OpCameraIDs,
		OpOpenDevice,
		OpCloseService,
		OpCreateRequest,
		OpCreateTarget,
		OpAddTarget,
		OpCreateOutput,
		OpCreateContainer,
		OpAddOutput,
		OpCreateSession,
		OpSetRepeating,
	}
	if got := sim.Journal(); !slices.Equal(got, want) {
		t.Errorf("journal = %v, want %v", got, want)
	}
}

func TestSim_LiveHandlesAfterTeardown(t *testing.T) {
	sim := NewSim(nil)
	surface, dev, req, target, output, container, sess := buildChain(t, sim)

	for _, release := range []func() error{
		sess.StopRepeating,
		sess.Close,
		container.Release,
		output.Release,
		target.Release,
		req.Release,
		dev.Close,
		surface.Release,
	} {
		if err := release(); err != nil {
			t.Fatalf("teardown step: %v", err)
		}
	}

	if n := sim.LiveHandles(); n != 0 {
		t.Errorf("live handles = %d, want 0", n)
	}
}

func TestSim_FailureInjection(t *testing.T) {
	boom := errors.New("boom")
	sim := NewSim(nil)
	sim.FailOn(OpOpenDevice, boom)

	svc, err := sim.Connect()
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := svc.OpenDevice("0", DeviceCallbacks{}); !errors.Is(err, boom) {
		t.Errorf("OpenDevice error = %v, want %v", err, boom)
	}
	if slices.Contains(sim.Journal(), OpOpenDevice) {
		t.Error("failed open_device must not be journaled")
	}

	sim.ClearFailures()
	if _, err := svc.OpenDevice("0", DeviceCallbacks{}); err != nil {
		t.Errorf("OpenDevice after ClearFailures: %v", err)
	}
}

func TestSim_DoubleReleaseFails(t *testing.T) {
	sim := NewSim(nil)
	surface, err := sim.AcquireSurface("s")
	if err != nil {
		t.Fatalf("AcquireSurface: %v", err)
	}
	if err := surface.Release(); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if err := surface.Release(); err == nil {
		t.Error("second release should fail")
	}
	if n := sim.LiveHandles(); n != 0 {
		t.Errorf("live handles = %d, want 0", n)
	}
}

func TestSim_CreateAgainstReleasedSurface(t *testing.T) {
	sim := NewSim(nil)
	surface, _ := sim.AcquireSurface("s")
	if err := surface.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := sim.NewOutputTarget(surface); err == nil {
		t.Error("NewOutputTarget against released surface should fail")
	}
	if _, err := sim.NewSessionOutput(surface); err == nil {
		t.Error("NewSessionOutput against released surface should fail")
	}
}

func TestSim_SessionNotifications(t *testing.T) {
	sim := NewSim(nil)

	svc, _ := sim.Connect()
	dev, err := svc.OpenDevice("0", DeviceCallbacks{})
	if err != nil {
		t.Fatalf("OpenDevice: %v", err)
	}
	req, _ := dev.CreateRequest(TemplatePreview)
	container, _ := sim.NewOutputContainer()

	ready := make(chan struct{}, 2)
	active := make(chan struct{}, 1)
	sess, err := dev.CreateSession(container, SessionCallbacks{
		OnReady:  func() { ready <- struct{}{} },
		OnActive: func() { active <- struct{}{} },
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("no ready notification after session creation")
	}

	if err := sess.SetRepeating(req); err != nil {
		t.Fatalf("SetRepeating: %v", err)
	}
	select {
	case <-active:
	case <-time.After(time.Second):
		t.Fatal("no active notification after repeating request")
	}

	if err := sess.StopRepeating(); err != nil {
		t.Fatalf("StopRepeating: %v", err)
	}
	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("no ready notification after stopping repeating request")
	}
}

func TestSim_DeviceNotifications(t *testing.T) {
	sim := NewSim(nil)

	disconnected := make(chan string, 1)
	errored := make(chan int, 1)

	svc, _ := sim.Connect()
	if _, err := svc.OpenDevice("0", DeviceCallbacks{
		OnDisconnected: func(id string) { disconnected <- id },
		OnError:        func(_ string, code int) { errored <- code },
	}); err != nil {
		t.Fatalf("OpenDevice: %v", err)
	}

	sim.Disconnect("0")
	select {
	case id := <-disconnected:
		if id != "0" {
			t.Errorf("disconnected camera = %q, want %q", id, "0")
		}
	case <-time.After(time.Second):
		t.Fatal("no disconnect notification")
	}

	sim.InjectError("0", 3)
	select {
	case code := <-errored:
		if code != 3 {
			t.Errorf("error code = %d, want 3", code)
		}
	case <-time.After(time.Second):
		t.Fatal("no error notification")
	}
}

func TestSim_SecondOpenSameCameraFails(t *testing.T) {
	sim := NewSim(nil)
	svc, _ := sim.Connect()
	if _, err := svc.OpenDevice("0", DeviceCallbacks{}); err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := svc.OpenDevice("0", DeviceCallbacks{}); err == nil {
		t.Error("second open of the same camera should fail")
	}
}

package platform

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Sim is an in-process camera service simulator. It implements Provider with
// the same handle discipline as a real service: every created handle must be
// released exactly once, creating against a released handle fails, and state
// notifications are delivered on a separate goroutine.
//
// The simulator journals every successful call and counts live handles,
// which is also what the capture session tests assert against.
type Sim struct {
	logger *slog.Logger
	delay  time.Duration

	mu       sync.Mutex
	cameras  []string
	chars    map[string]Characteristics
	failures map[Op]error
	journal  []Op
	live     int
	devices  map[string]*simDevice

	wg sync.WaitGroup
}

// SimOption configures the simulator.
type SimOption func(*Sim)

// WithCameras sets the camera IDs the simulator enumerates.
// The default is a single camera "0". An empty list simulates a host
// without cameras.
func WithCameras(ids ...string) SimOption {
	return func(s *Sim) {
		s.cameras = ids
	}
}

// WithCharacteristics sets the characteristics reported for a camera.
func WithCharacteristics(cameraID string, c Characteristics) SimOption {
	return func(s *Sim) {
		s.chars[cameraID] = c
	}
}

// WithNotifyDelay delays state notifications, approximating the latency of
// a real notification thread.
func WithNotifyDelay(d time.Duration) SimOption {
	return func(s *Sim) {
		s.delay = d
	}
}

// NewSim creates a simulator with one camera "0" unless configured otherwise.
func NewSim(logger *slog.Logger, opts ...SimOption) *Sim {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Sim{
		logger:   logger,
		cameras:  []string{"0"},
		chars:    make(map[string]Characteristics),
		failures: make(map[Op]error),
		devices:  make(map[string]*simDevice),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FailOn makes the named operation fail with err until cleared.
func (s *Sim) FailOn(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// ClearFailures removes all injected failures.
func (s *Sim) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[Op]error)
}

// Journal returns the operations that succeeded, in call order.
func (s *Sim) Journal() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.journal)
}

// LiveHandles returns the number of handles created and not yet released.
func (s *Sim) LiveHandles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Disconnect fires the on-disconnected callback for an open camera, the way
// a real service reports a device yanked out from under a session. The
// device handle stays open; recovery is the caller's problem.
func (s *Sim) Disconnect(cameraID string) {
	s.mu.Lock()
	d := s.devices[cameraID]
	s.mu.Unlock()
	if d == nil || d.cb.OnDisconnected == nil {
		return
	}
	s.notify("disconnected", func() { d.cb.OnDisconnected(cameraID) })
}

// InjectError fires the on-error device callback for an open camera.
func (s *Sim) InjectError(cameraID string, code int) {
	s.mu.Lock()
	d := s.devices[cameraID]
	s.mu.Unlock()
	if d == nil || d.cb.OnError == nil {
		return
	}
	s.notify("error", func() { d.cb.OnError(cameraID, code) })
}

// WaitNotifications blocks until all pending notifications are delivered.
func (s *Sim) WaitNotifications() {
	s.wg.Wait()
}

// step checks for an injected failure and journals the call when it goes
// through. Caller holds s.mu.
func (s *Sim) step(op Op) error {
	if err := s.failures[op]; err != nil {
		s.logger.Debug("Injected failure", "op", string(op), "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	s.journal = append(s.journal, op)
	return nil
}

func (s *Sim) notify(event string, fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if s.delay > 0 {
			time.Sleep(s.delay)
		}
		s.logger.Debug("Delivering notification", "event", event)
		fn()
	}()
}

// Connect implements Provider.
func (s *Sim) Connect() (Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.step(OpConnect); err != nil {
		return nil, err
	}
	s.live++
	return &simService{sim: s}, nil
}

// AcquireSurface implements Provider.
func (s *Sim) AcquireSurface(ref SurfaceRef) (Surface, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.step(OpAcquireSurface); err != nil {
		return nil, err
	}
	s.live++
	s.logger.Debug("Surface acquired", "ref", string(ref))
	return &simSurface{sim: s, ref: ref}, nil
}

// NewOutputTarget implements Provider.
func (s *Sim) NewOutputTarget(surf Surface) (OutputTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, err := s.simSurface(surf)
	if err != nil {
		return nil, err
	}
	if err := s.step(OpCreateTarget); err != nil {
		return nil, err
	}
	s.live++
	return &simTarget{sim: s, surface: ss}, nil
}

// NewSessionOutput implements Provider.
func (s *Sim) NewSessionOutput(surf Surface) (SessionOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, err := s.simSurface(surf)
	if err != nil {
		return nil, err
	}
	if err := s.step(OpCreateOutput); err != nil {
		return nil, err
	}
	s.live++
	return &simOutput{sim: s, surface: ss}, nil
}

// NewOutputContainer implements Provider.
func (s *Sim) NewOutputContainer() (OutputContainer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.step(OpCreateContainer); err != nil {
		return nil, err
	}
	s.live++
	return &simContainer{sim: s}, nil
}

func (s *Sim) simSurface(surf Surface) (*simSurface, error) {
	ss, ok := surf.(*simSurface)
	if !ok || ss == nil {
		return nil, fmt.Errorf("surface does not belong to this backend")
	}
	if ss.released {
		return nil, fmt.Errorf("surface already released")
	}
	return ss, nil
}

type simService struct {
	sim    *Sim
	closed bool
}

func (c *simService) CameraIDs() ([]string, error) {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("camera service handle closed")
	}
	if err := c.sim.step(OpCameraIDs); err != nil {
		return nil, err
	}
	return slices.Clone(c.sim.cameras), nil
}

func (c *simService) Characteristics(cameraID string) (*Characteristics, error) {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("camera service handle closed")
	}
	if err := c.sim.step(OpCharacteristics); err != nil {
		return nil, err
	}
	if !slices.Contains(c.sim.cameras, cameraID) {
		return nil, fmt.Errorf("unknown camera %q", cameraID)
	}
	if ch, ok := c.sim.chars[cameraID]; ok {
		return &ch, nil
	}
	return &Characteristics{Facing: "back", Orientation: 90}, nil
}

func (c *simService) OpenDevice(cameraID string, cb DeviceCallbacks) (Device, error) {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("camera service handle closed")
	}
	if err := c.sim.step(OpOpenDevice); err != nil {
		return nil, err
	}
	if !slices.Contains(c.sim.cameras, cameraID) {
		return nil, fmt.Errorf("unknown camera %q", cameraID)
	}
	if _, busy := c.sim.devices[cameraID]; busy {
		return nil, fmt.Errorf("camera %q already open", cameraID)
	}
	d := &simDevice{sim: c.sim, id: cameraID, cb: cb}
	c.sim.devices[cameraID] = d
	c.sim.live++
	c.sim.logger.Debug("Device opened", "camera_id", cameraID)
	return d, nil
}

func (c *simService) Close() error {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	if c.closed {
		return fmt.Errorf("camera service handle closed")
	}
	if err := c.sim.step(OpCloseService); err != nil {
		return err
	}
	c.closed = true
	c.sim.live--
	return nil
}

type simDevice struct {
	sim    *Sim
	id     string
	cb     DeviceCallbacks
	closed bool
}

func (d *simDevice) ID() string { return d.id }

func (d *simDevice) CreateRequest(kind TemplateKind) (Request, error) {
	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("device %q closed", d.id)
	}
	if err := d.sim.step(OpCreateRequest); err != nil {
		return nil, err
	}
	d.sim.live++
	return &simRequest{sim: d.sim, kind: kind}, nil
}

func (d *simDevice) CreateSession(outputs OutputContainer, cb SessionCallbacks) (Session, error) {
	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("device %q closed", d.id)
	}
	sc, ok := outputs.(*simContainer)
	if !ok || sc == nil {
		return nil, fmt.Errorf("container does not belong to this backend")
	}
	if sc.released {
		return nil, fmt.Errorf("container already released")
	}
	if err := d.sim.step(OpCreateSession); err != nil {
		return nil, err
	}
	d.sim.live++
	sess := &simSession{sim: d.sim, device: d, cb: cb}
	if cb.OnReady != nil {
		d.sim.notify("session_ready", cb.OnReady)
	}
	return sess, nil
}

func (d *simDevice) Close() error {
	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()
	if d.closed {
		return fmt.Errorf("device %q closed", d.id)
	}
	if err := d.sim.step(OpCloseDevice); err != nil {
		return err
	}
	d.closed = true
	delete(d.sim.devices, d.id)
	d.sim.live--
	d.sim.logger.Debug("Device closed", "camera_id", d.id)
	return nil
}

type simRequest struct {
	sim      *Sim
	kind     TemplateKind
	targets  []*simTarget
	released bool
}

func (r *simRequest) AddTarget(t OutputTarget) error {
	r.sim.mu.Lock()
	defer r.sim.mu.Unlock()
	if r.released {
		return fmt.Errorf("request already released")
	}
	st, ok := t.(*simTarget)
	if !ok || st == nil || st.released {
		return fmt.Errorf("invalid output target")
	}
	if err := r.sim.step(OpAddTarget); err != nil {
		return err
	}
	r.targets = append(r.targets, st)
	return nil
}

func (r *simRequest) Release() error {
	r.sim.mu.Lock()
	defer r.sim.mu.Unlock()
	if r.released {
		return fmt.Errorf("request already released")
	}
	if err := r.sim.step(OpReleaseRequest); err != nil {
		return err
	}
	r.released = true
	r.sim.live--
	return nil
}

type simSurface struct {
	sim      *Sim
	ref      SurfaceRef
	released bool
}

func (s *simSurface) Ref() SurfaceRef { return s.ref }

func (s *simSurface) Release() error {
	s.sim.mu.Lock()
	defer s.sim.mu.Unlock()
	if s.released {
		return fmt.Errorf("surface already released")
	}
	if err := s.sim.step(OpReleaseSurface); err != nil {
		return err
	}
	s.released = true
	s.sim.live--
	return nil
}

type simTarget struct {
	sim      *Sim
	surface  *simSurface
	released bool
}

func (t *simTarget) Release() error {
	t.sim.mu.Lock()
	defer t.sim.mu.Unlock()
	if t.released {
		return fmt.Errorf("output target already released")
	}
	if err := t.sim.step(OpReleaseTarget); err != nil {
		return err
	}
	t.released = true
	t.sim.live--
	return nil
}

type simOutput struct {
	sim      *Sim
	surface  *simSurface
	released bool
}

func (o *simOutput) Release() error {
	o.sim.mu.Lock()
	defer o.sim.mu.Unlock()
	if o.released {
		return fmt.Errorf("session output already released")
	}
	if err := o.sim.step(OpReleaseOutput); err != nil {
		return err
	}
	o.released = true
	o.sim.live--
	return nil
}

type simContainer struct {
	sim      *Sim
	outputs  []*simOutput
	released bool
}

func (c *simContainer) Add(out SessionOutput) error {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	if c.released {
		return fmt.Errorf("container already released")
	}
	so, ok := out.(*simOutput)
	if !ok || so == nil || so.released {
		return fmt.Errorf("invalid session output")
	}
	if err := c.sim.step(OpAddOutput); err != nil {
		return err
	}
	c.outputs = append(c.outputs, so)
	return nil
}

func (c *simContainer) Release() error {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	if c.released {
		return fmt.Errorf("container already released")
	}
	if err := c.sim.step(OpReleaseContainer); err != nil {
		return err
	}
	c.released = true
	c.sim.live--
	return nil
}

type simSession struct {
	sim       *Sim
	device    *simDevice
	cb        SessionCallbacks
	repeating bool
	closed    bool
}

func (s *simSession) SetRepeating(req Request) error {
	s.sim.mu.Lock()
	defer s.sim.mu.Unlock()
	if s.closed {
		return fmt.Errorf("session closed")
	}
	if s.device.closed {
		return fmt.Errorf("device %q closed", s.device.id)
	}
	sr, ok := req.(*simRequest)
	if !ok || sr == nil || sr.released {
		return fmt.Errorf("invalid capture request")
	}
	if err := s.sim.step(OpSetRepeating); err != nil {
		return err
	}
	s.repeating = true
	if s.cb.OnActive != nil {
		s.sim.notify("session_active", s.cb.OnActive)
	}
	return nil
}

func (s *simSession) StopRepeating() error {
	s.sim.mu.Lock()
	defer s.sim.mu.Unlock()
	if s.closed {
		return fmt.Errorf("session closed")
	}
	if err := s.sim.step(OpStopRepeating); err != nil {
		return err
	}
	s.repeating = false
	if s.cb.OnReady != nil {
		s.sim.notify("session_ready", s.cb.OnReady)
	}
	return nil
}

func (s *simSession) Close() error {
	s.sim.mu.Lock()
	defer s.sim.mu.Unlock()
	if s.closed {
		return fmt.Errorf("session closed")
	}
	if err := s.sim.step(OpCloseSession); err != nil {
		return err
	}
	s.closed = true
	s.repeating = false
	s.sim.live--
	return nil
}

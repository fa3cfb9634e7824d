package kinesis

import (
	"fmt"
	"log"
	"time"
)

const (
	// DefaultPollingInterval is the background refresh period used when the
	// configuration does not specify one
	DefaultPollingInterval = 200 * time.Millisecond

	// busyGraceMargin pads the busy grace window to minimize the chance of
	// a race due to jitter in the polling
	busyGraceMargin = 10 * time.Millisecond
)

// StageConfig holds the construction-time configuration of a stage.  It is
// read during Initialize and immutable afterward.
type StageConfig struct {
	// SerialNo identifies the controller unit
	SerialNo string

	// Channel is the motor channel index; 0 addresses the only channel of
	// a single-channel device
	Channel int

	// Name overrides the synthesized display name when nonempty
	Name string

	// StageType is "Linear" or "Rotational".  Empty picks the default for
	// the device kind.  There is no reliable way to query this from the
	// hardware, so the user must say.
	StageType string

	// DeviceUnitsPerMillimeter scales linear stages.  Zero picks the
	// default for the device kind.  The unit-conversion queries in the
	// vendor API do not work, so this also comes from the user.
	DeviceUnitsPerMillimeter float64

	// DeviceUnitsPerRevolution scales rotational stages.  Zero picks the
	// default for the device kind.
	DeviceUnitsPerRevolution float64

	// PollingInterval is the background refresh period; zero uses
	// DefaultPollingInterval
	PollingInterval time.Duration
}

// Observable names a runtime-observable value a stage exposes to the host
type Observable int

const (
	// ObservablePosition is the current position in physical units,
	// available once Initialize succeeds
	ObservablePosition Observable = iota
)

// FloatProperty is a pair of typed accessors for an observable value.
// Both are plain forwarding calls; out-of-range targets are handled by
// saturation downstream, not rejected here.
type FloatProperty struct {
	Get func() (float64, error)
	Set func(float64) error
}

// SingleAxisStage adapts one motor channel to the generic single-axis
// stage interface: Initialize/Shutdown lifecycle, position get/set in
// physical units, homing, and polled busy detection.
//
// It is driven from a single foreground thread; the background refresh of
// position and status belongs to the transport.
type SingleAxisStage struct {
	registry *Registry
	cfg      StageConfig

	pollingInterval time.Duration
	converter       Converter
	motorDrive      *MotorDrive
	props           map[Observable]FloatProperty

	homed             bool
	initialized       bool
	didEnable         bool
	lastMovementStart time.Time
}

// NewSingleAxisStage returns a stage over the given registry.  Unset
// configuration fields are defaulted from the device kind implied by the
// serial number.  No hardware is touched until Initialize.
func NewSingleAxisStage(registry *Registry, cfg StageConfig) *SingleAxisStage {
	kind := KindOfSerialNo(cfg.SerialNo)
	if cfg.StageType == "" && kind.Rotational() {
		cfg.StageType = StageRotational.String()
	}
	if cfg.DeviceUnitsPerMillimeter == 0 {
		cfg.DeviceUnitsPerMillimeter = kind.DefaultUnitsPerMm()
	}
	if cfg.DeviceUnitsPerRevolution == 0 {
		cfg.DeviceUnitsPerRevolution = kind.DefaultUnitsPerRev()
	}
	interval := cfg.PollingInterval
	if interval == 0 {
		interval = DefaultPollingInterval
	}
	return &SingleAxisStage{
		registry:        registry,
		cfg:             cfg,
		pollingInterval: interval,
	}
}

// connect acquires a fresh handle on the shared connection.  The caller
// owns the handle and must Close it.
func (s *SingleAxisStage) connect() *MotorDrive {
	conn := s.registry.Connect(s.cfg.SerialNo)
	return NewMotorDrive(conn, s.cfg.Channel)
}

// Initialize brings the stage to the Ready state: connect, derive unit
// conversion from configuration, prime and start polling, arm the channel
// if needed, and expose the position observable.  It is idempotent; a
// failure rolls back any partial setup so a later attempt can succeed.
func (s *SingleAxisStage) Initialize() error {
	if s.initialized {
		return nil
	}

	md := s.connect()
	if !md.Connection().IsValid() {
		code := md.Connection().LastError()
		md.Close()
		return CommandError{Code: code}
	}
	s.motorDrive = md

	st, err := ParseStageType(s.cfg.StageType)
	if err != nil {
		s.rollback()
		return err
	}
	scale := s.cfg.DeviceUnitsPerMillimeter
	if st == StageRotational {
		scale = s.cfg.DeviceUnitsPerRevolution
	}
	conv, err := NewConverter(st, scale)
	if err != nil {
		s.rollback()
		return err
	}
	s.converter = conv

	// polling keeps position and status bits up to date.  Request both
	// first so we are current as soon as the loop starts.
	if err := md.RequestPosition(); err != nil {
		s.rollback()
		return err
	}
	if err := md.RequestStatusBits(); err != nil {
		s.rollback()
		return err
	}
	if ok := md.StartPolling(s.pollingInterval); !ok {
		log.Printf("failed to start polling for serial no %s", s.cfg.SerialNo)
	}

	// give the requests above one refresh cycle to land before anything
	// reads the registers
	time.Sleep(s.pollingInterval)

	if !md.Enabled() {
		// at least some devices always start up disabled, so enabling is
		// necessary for those.  Record that we did it so Shutdown knows
		// to reverse it.
		if err := md.Enable(); err != nil {
			s.rollback()
			return err
		}
		s.didEnable = true
	}

	s.props = map[Observable]FloatProperty{
		ObservablePosition: {Get: s.GetPositionUm, Set: s.SetPositionUm},
	}

	s.initialized = true
	return nil
}

func (s *SingleAxisStage) rollback() {
	if s.motorDrive != nil {
		s.motorDrive.Close()
		s.motorDrive = nil
	}
	s.converter = Converter{}
	s.didEnable = false
}

// Shutdown returns the stage to the Uninitialized state, disarming the
// channel if Initialize armed it.  Errors on the way down are logged, not
// propagated; Shutdown always completes and is safe to call repeatedly.
func (s *SingleAxisStage) Shutdown() error {
	if s.motorDrive != nil {
		if s.didEnable {
			if err := s.motorDrive.Disable(); err != nil {
				log.Printf("disable on shutdown failed for serial no %s: %v", s.cfg.SerialNo, err)
			}
		}
		s.motorDrive.StopPolling()
		s.motorDrive.Close()
		s.motorDrive = nil
	}
	s.props = nil
	s.didEnable = false
	s.initialized = false
	return nil
}

// Busy reports whether the stage is moving.  The status bits only refresh
// every polling interval, so for one interval (plus margin) after a move is
// issued we report busy unconditionally; after that the polled bits are
// the truth.
func (s *SingleAxisStage) Busy() bool {
	if !s.initialized {
		return false
	}
	if time.Since(s.lastMovementStart) <= s.pollingInterval+busyGraceMargin {
		return true
	}
	return s.motorDrive.StatusBits().Moving()
}

// GetPositionSteps reads the raw device-unit position
func (s *SingleAxisStage) GetPositionSteps() (int, error) {
	if !s.initialized {
		return 0, ErrNotInitialized
	}
	return s.motorDrive.PositionCounter(), nil
}

// SetPositionSteps starts an absolute move to a device-unit target
func (s *SingleAxisStage) SetPositionSteps(steps int) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if err := s.motorDrive.MoveToPosition(steps); err != nil {
		return err
	}
	s.lastMovementStart = time.Now()
	return nil
}

// GetPositionUm reads the position in physical units (micrometers for
// linear stages, degrees for rotational ones)
func (s *SingleAxisStage) GetPositionUm() (float64, error) {
	steps, err := s.GetPositionSteps()
	if err != nil {
		return 0, err
	}
	return s.converter.ToPhysical(steps), nil
}

// SetPositionUm starts an absolute move to a physical-unit target.  The
// step target saturates at the representable range rather than wrapping.
func (s *SingleAxisStage) SetPositionUm(pos float64) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	return s.SetPositionSteps(s.converter.ToSteps(pos))
}

// Home establishes the absolute zero reference.  Homing once per stage
// lifetime is sufficient; repeat calls succeed without touching hardware.
func (s *SingleAxisStage) Home() error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if !s.motorDrive.CanHome() {
		return ErrUnsupportedCommand
	}
	if s.homed {
		return nil
	}
	if err := s.motorDrive.Home(); err != nil {
		return err
	}
	s.homed = true
	s.lastMovementStart = time.Now()
	return nil
}

// Homed reports whether a homing move has completed successfully since
// construction
func (s *SingleAxisStage) Homed() bool {
	return s.homed
}

// Enable arms the channel
func (s *SingleAxisStage) Enable() error {
	if !s.initialized {
		return ErrNotInitialized
	}
	return s.motorDrive.Enable()
}

// Disable disarms the channel
func (s *SingleAxisStage) Disable() error {
	if !s.initialized {
		return ErrNotInitialized
	}
	return s.motorDrive.Disable()
}

// GetEnabled reports the last known armed state of the channel
func (s *SingleAxisStage) GetEnabled() (bool, error) {
	if !s.initialized {
		return false, ErrNotInitialized
	}
	return s.motorDrive.Enabled(), nil
}

// Property returns the accessors for a runtime observable.  Observables
// become available once Initialize succeeds.
func (s *SingleAxisStage) Property(o Observable) (FloatProperty, bool) {
	p, ok := s.props[o]
	return p, ok
}

// Name returns the display name.  A name given at construction is used
// verbatim; otherwise a throwaway connection is opened to query the model
// number and synthesize ModelNo_SerialNo[-Channel].  If that connection
// fails the name is Error<code>_SerialNo[-Channel].  No hardware resource
// is retained either way.
func (s *SingleAxisStage) Name() string {
	if s.cfg.Name != "" {
		return s.cfg.Name
	}
	md := s.connect()
	defer md.Close()
	return s.makeName(md)
}

func (s *SingleAxisStage) makeName(md *MotorDrive) string {
	var name string
	if md.Connection().IsValid() {
		model, err := md.ModelNo()
		if err != nil {
			name = fmt.Sprintf("Error%d", CodeOf(err))
		} else {
			name = model
		}
	} else {
		name = fmt.Sprintf("Error%d", md.Connection().LastError())
	}
	name += "_" + s.cfg.SerialNo
	if s.cfg.Channel > 0 {
		name += fmt.Sprintf("-%d", s.cfg.Channel)
	}
	return name
}

package kinesis

import (
	"math"
	"sync"
	"time"
)

// SimDevice describes one simulated controller for SimTransport
type SimDevice struct {
	// Model is the hardware model reported, e.g. "BSC202"
	Model string

	// Channels is the number of motor channels; 0 means 1
	Channels int

	// StepsPerSec is the simulated motor velocity; 0 means 1e6
	StepsPerSec float64

	// HomeDuration is how long a homing move takes; 0 means 25ms
	HomeDuration time.Duration

	// NoHome marks hardware without a home switch
	NoHome bool
}

// SimTransport is an in-memory Transport with motors that take time to
// move.  Position and status reads return polled snapshots, refreshed only
// by the polling loop or an explicit request, so the staleness semantics
// match real hardware.
type SimTransport struct {
	mu      sync.Mutex
	devices map[string]*simDevice
}

type simDevice struct {
	SimDevice
	open     bool
	channels []*simChan
}

type simChan struct {
	enabled bool
	homed   bool

	// motion profile; the channel is moving while now < moveEnd
	startPos  float64
	target    float64
	moveStart time.Time
	moveEnd   time.Time
	homing    bool

	// polled snapshot registers
	snapPos    int
	snapStatus StatusBits

	stopPoll chan struct{}
}

// NewSimTransport returns an empty simulator; provision it with AddDevice
func NewSimTransport() *SimTransport {
	return &SimTransport{devices: map[string]*simDevice{}}
}

// AddDevice provisions a simulated controller under the given serial number
func (s *SimTransport) AddDevice(serialNo string, d SimDevice) {
	if d.Channels == 0 {
		d.Channels = 1
	}
	if d.StepsPerSec == 0 {
		d.StepsPerSec = 1e6
	}
	if d.HomeDuration == 0 {
		d.HomeDuration = 25 * time.Millisecond
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[serialNo] = &simDevice{SimDevice: d}
}

func (c *simChan) settle(now time.Time) {
	if c.homing && !now.Before(c.moveEnd) {
		c.homing = false
		c.homed = true
		c.startPos = 0
		c.target = 0
	}
}

func (c *simChan) livePos(now time.Time) float64 {
	c.settle(now)
	if !now.Before(c.moveEnd) {
		return c.target
	}
	frac := float64(now.Sub(c.moveStart)) / float64(c.moveEnd.Sub(c.moveStart))
	return c.startPos + frac*(c.target-c.startPos)
}

func (c *simChan) liveStatus(now time.Time) StatusBits {
	c.settle(now)
	var bits StatusBits
	if c.enabled {
		bits |= StatusEnabled
	}
	if c.homed {
		bits |= StatusHomed
	}
	if now.Before(c.moveEnd) {
		switch {
		case c.homing:
			bits |= StatusHoming
		case c.target >= c.startPos:
			bits |= StatusMovingCW
		default:
			bits |= StatusMovingCCW
		}
	}
	return bits
}

func (c *simChan) refresh(now time.Time) {
	c.snapPos = int(math.Round(c.livePos(now)))
	c.snapStatus = c.liveStatus(now)
}

// getChan returns the channel or a vendor-code error.  Callers hold s.mu.
func (s *SimTransport) getChan(serialNo string, channel int) (*simChan, error) {
	dev, ok := s.devices[serialNo]
	if !ok {
		return nil, CommandError{Code: CodeDeviceNotFound}
	}
	if !dev.open {
		return nil, CommandError{Code: CodeDeviceNotOpened}
	}
	if channel < 1 || channel > len(dev.channels) {
		return nil, CommandError{Code: CodeInvalidChannel}
	}
	return dev.channels[channel-1], nil
}

// Open implements Transport
func (s *SimTransport) Open(serialNo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dev, ok := s.devices[serialNo]
	if !ok {
		return CommandError{Code: CodeDeviceNotFound}
	}
	if dev.open {
		return CommandError{Code: CodeAlreadyOpen}
	}
	dev.open = true
	dev.channels = make([]*simChan, dev.Channels)
	for i := range dev.channels {
		dev.channels[i] = &simChan{}
	}
	return nil
}

// Close implements Transport
func (s *SimTransport) Close(serialNo string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dev, ok := s.devices[serialNo]
	if !ok || !dev.open {
		return
	}
	for _, c := range dev.channels {
		if c.stopPoll != nil {
			close(c.stopPoll)
			c.stopPoll = nil
		}
	}
	dev.open = false
	dev.channels = nil
}

// ModelNo implements Transport
func (s *SimTransport) ModelNo(serialNo string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dev, ok := s.devices[serialNo]
	if !ok {
		return "", CommandError{Code: CodeDeviceNotFound}
	}
	if !dev.open {
		return "", CommandError{Code: CodeDeviceNotOpened}
	}
	return dev.Model, nil
}

// NumChannels implements Transport
func (s *SimTransport) NumChannels(serialNo string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dev, ok := s.devices[serialNo]; ok {
		return dev.Channels
	}
	return 0
}

// EnableChannel implements Transport
func (s *SimTransport) EnableChannel(serialNo string, channel int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.getChan(serialNo, channel)
	if err != nil {
		return err
	}
	c.enabled = true
	return nil
}

// DisableChannel implements Transport
func (s *SimTransport) DisableChannel(serialNo string, channel int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.getChan(serialNo, channel)
	if err != nil {
		return err
	}
	c.enabled = false
	return nil
}

// ChannelEnabled implements Transport
func (s *SimTransport) ChannelEnabled(serialNo string, channel int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.getChan(serialNo, channel)
	if err != nil {
		return false
	}
	return c.enabled
}

// requestRefresh schedules an asynchronous register refresh, imitating the
// round trip to hardware
func (s *SimTransport) requestRefresh(serialNo string, channel int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.getChan(serialNo, channel); err != nil {
		return err
	}
	time.AfterFunc(2*time.Millisecond, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, err := s.getChan(serialNo, channel); err == nil {
			c.refresh(time.Now())
		}
	})
	return nil
}

// RequestPosition implements Transport
func (s *SimTransport) RequestPosition(serialNo string, channel int) error {
	return s.requestRefresh(serialNo, channel)
}

// RequestStatusBits implements Transport
func (s *SimTransport) RequestStatusBits(serialNo string, channel int) error {
	return s.requestRefresh(serialNo, channel)
}

// PositionCounter implements Transport
func (s *SimTransport) PositionCounter(serialNo string, channel int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.getChan(serialNo, channel)
	if err != nil {
		return 0
	}
	return c.snapPos
}

// StatusBits implements Transport
func (s *SimTransport) StatusBits(serialNo string, channel int) StatusBits {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.getChan(serialNo, channel)
	if err != nil {
		return 0
	}
	return c.snapStatus
}

// MoveToPosition implements Transport
func (s *SimTransport) MoveToPosition(serialNo string, channel int, steps int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dev, ok := s.devices[serialNo]
	if !ok {
		return CommandError{Code: CodeDeviceNotFound}
	}
	c, err := s.getChan(serialNo, channel)
	if err != nil {
		return err
	}
	if !c.enabled {
		return CommandError{Code: CodeInvalidOperation}
	}
	now := time.Now()
	start := c.livePos(now)
	dur := time.Duration(math.Abs(float64(steps)-start) / dev.StepsPerSec * float64(time.Second))
	c.startPos = start
	c.target = float64(steps)
	c.moveStart = now
	c.moveEnd = now.Add(dur)
	c.homing = false
	return nil
}

// CanHome implements Transport
func (s *SimTransport) CanHome(serialNo string, channel int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	dev, ok := s.devices[serialNo]
	if !ok {
		return false
	}
	return !dev.NoHome
}

// Home implements Transport
func (s *SimTransport) Home(serialNo string, channel int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dev, ok := s.devices[serialNo]
	if !ok {
		return CommandError{Code: CodeDeviceNotFound}
	}
	if dev.NoHome {
		return CommandError{Code: CodeCannotHome}
	}
	c, err := s.getChan(serialNo, channel)
	if err != nil {
		return err
	}
	if !c.enabled {
		return CommandError{Code: CodeInvalidOperation}
	}
	now := time.Now()
	c.startPos = c.livePos(now)
	c.target = 0
	c.moveStart = now
	c.moveEnd = now.Add(dev.HomeDuration)
	c.homing = true
	return nil
}

// StartPolling implements Transport
func (s *SimTransport) StartPolling(serialNo string, channel int, interval time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.getChan(serialNo, channel)
	if err != nil {
		return false
	}
	if c.stopPoll != nil {
		return true
	}
	stop := make(chan struct{})
	c.stopPoll = stop
	go func() {
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				s.mu.Lock()
				if c, err := s.getChan(serialNo, channel); err == nil {
					c.refresh(time.Now())
				}
				s.mu.Unlock()
			}
		}
	}()
	return true
}

// StopPolling implements Transport
func (s *SimTransport) StopPolling(serialNo string, channel int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.getChan(serialNo, channel)
	if err != nil {
		return
	}
	if c.stopPoll != nil {
		close(c.stopPoll)
		c.stopPoll = nil
	}
}

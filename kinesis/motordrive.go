package kinesis

import "time"

// MotorDrive is a handle to one motor channel of a controller.  It owns a
// reference to the shared Connection and releases it on Close.  Callers
// must check Connection().IsValid() before issuing commands.
type MotorDrive struct {
	conn    *Connection
	channel int
	polling bool
}

// NewMotorDrive wraps a connection and channel index in a command handle.
// A channel of 0 addresses the primary channel of a single-channel device.
func NewMotorDrive(conn *Connection, channel int) *MotorDrive {
	return &MotorDrive{conn: conn, channel: channel}
}

// Connection returns the underlying shared connection
func (m *MotorDrive) Connection() *Connection {
	return m.conn
}

// Channel returns the configured channel index (0 = single-channel device)
func (m *MotorDrive) Channel() int {
	return m.channel
}

// hwChannel maps the 0-based "default channel" convention onto the
// vendor's 1-based addressing
func (m *MotorDrive) hwChannel() int {
	if m.channel == 0 {
		return 1
	}
	return m.channel
}

// ModelNo queries the hardware model of the controller
func (m *MotorDrive) ModelNo() (string, error) {
	return m.conn.transport.ModelNo(m.conn.serialNo)
}

// Enable arms the channel.  Some hardware starts up disarmed and will
// silently ignore motion commands until enabled.
func (m *MotorDrive) Enable() error {
	return m.conn.transport.EnableChannel(m.conn.serialNo, m.hwChannel())
}

// Disable disarms the channel
func (m *MotorDrive) Disable() error {
	return m.conn.transport.DisableChannel(m.conn.serialNo, m.hwChannel())
}

// Enabled reports the last known armed state of the channel
func (m *MotorDrive) Enabled() bool {
	return m.conn.transport.ChannelEnabled(m.conn.serialNo, m.hwChannel())
}

// RequestPosition asks the hardware to refresh the position register.  A
// nonzero return means the request could not even be enqueued and is a
// hard error for the caller.
func (m *MotorDrive) RequestPosition() error {
	return m.conn.transport.RequestPosition(m.conn.serialNo, m.hwChannel())
}

// RequestStatusBits asks the hardware to refresh the status register
func (m *MotorDrive) RequestStatusBits() error {
	return m.conn.transport.RequestStatusBits(m.conn.serialNo, m.hwChannel())
}

// PositionCounter reads the most recently polled position, which may be
// stale by up to one polling interval
func (m *MotorDrive) PositionCounter() int {
	return m.conn.transport.PositionCounter(m.conn.serialNo, m.hwChannel())
}

// StatusBits reads the most recently polled status register
func (m *MotorDrive) StatusBits() StatusBits {
	return m.conn.transport.StatusBits(m.conn.serialNo, m.hwChannel())
}

// MoveToPosition starts an absolute move to a device-unit target and
// returns immediately.  A new move supersedes any in-flight one.
func (m *MotorDrive) MoveToPosition(steps int) error {
	return m.conn.transport.MoveToPosition(m.conn.serialNo, m.hwChannel(), steps)
}

// CanHome reports whether the channel supports homing
func (m *MotorDrive) CanHome() bool {
	return m.conn.transport.CanHome(m.conn.serialNo, m.hwChannel())
}

// Home starts a homing move and returns immediately
func (m *MotorDrive) Home() error {
	return m.conn.transport.Home(m.conn.serialNo, m.hwChannel())
}

// StartPolling begins background refresh of position and status.  Starting
// an already-polling handle is a no-op reporting success; there is never
// more than one polling loop per handle.
func (m *MotorDrive) StartPolling(interval time.Duration) bool {
	if m.polling {
		return true
	}
	ok := m.conn.transport.StartPolling(m.conn.serialNo, m.hwChannel(), interval)
	m.polling = ok
	return ok
}

// StopPolling halts background refresh.  Safe to call when not polling.
func (m *MotorDrive) StopPolling() {
	if !m.polling {
		return
	}
	m.conn.transport.StopPolling(m.conn.serialNo, m.hwChannel())
	m.polling = false
}

// Close stops polling and releases the connection reference.  The handle
// must not be used afterward.
func (m *MotorDrive) Close() {
	m.StopPolling()
	m.conn.Release()
}

/*Package kinesis adapts Thorlabs Kinesis motorized actuators to a generic
single-axis stage interface.

The package is built around three layers:

	1. a Transport, the capability object holding one method per vendor
	   command.  Implementations exist for the APT wire protocol (package
	   apt) and for an in-memory simulator (SimTransport).
	2. a Registry of reference-counted Connections, one per controller
	   serial number, shared by all channels of a multi-channel unit.
	3. a MotorDrive handle per channel, owned by a SingleAxisStage which
	   implements the Initialize/Shutdown/Busy/position/Home state machine.

Position and status are refreshed by background polling rather than
synchronous query/response; reads return a snapshot that may be stale by up
to one polling interval.
*/
package kinesis

import (
	"errors"
	"fmt"
	"time"
)

// ErrOffset is added to raw vendor status codes when they are surfaced to
// the host, keeping them distinct from the host's own error namespace.
const ErrOffset = 10000

// CommandError wraps a nonzero vendor status code.  The code is surfaced
// raw; mapping to a user-visible string happens at the display boundary
// via ErrorText.
type CommandError struct {
	Code int
}

func (e CommandError) Error() string {
	return fmt.Sprintf("kinesis: error %d: %s", e.Code, ErrorText(e.Code))
}

// HostCode returns the offset-encoded form of the vendor code
func (e CommandError) HostCode() int {
	return ErrOffset + e.Code
}

// CodeOf extracts the raw vendor code from an error.  nil maps to zero,
// non-CommandErrors map to CodeIOError.
func CodeOf(err error) int {
	if err == nil {
		return 0
	}
	var ce CommandError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeIOError
}

// ErrNotInitialized is returned by stage operations that require a
// successful Initialize first
var ErrNotInitialized = errors.New("kinesis: stage not initialized")

// ErrUnsupportedCommand is returned when an operation is requested of
// hardware that does not support it, e.g. homing a stage without a
// home switch
var ErrUnsupportedCommand = errors.New("kinesis: command not supported by device")

// Transport is the capability object for one vendor driver: one method per
// vendor command, injected into the Registry instead of living in global
// state.  Methods returning error surface raw vendor codes as CommandError.
//
// The vendor's unit-conversion, settings-request and travel-mode queries are
// deliberately absent; they misbehave on real hardware and scale factors
// come from configuration instead.
type Transport interface {
	// Open establishes communication with the controller
	Open(serialNo string) error

	// Close tears down communication with the controller
	Close(serialNo string)

	// ModelNo returns the hardware model, e.g. "BSC202"
	ModelNo(serialNo string) (string, error)

	// NumChannels returns the number of motor channels on the controller
	NumChannels(serialNo string) int

	// EnableChannel arms a channel so motion commands take effect
	EnableChannel(serialNo string, channel int) error

	// DisableChannel disarms a channel
	DisableChannel(serialNo string, channel int) error

	// ChannelEnabled reports the last known armed state of a channel
	ChannelEnabled(serialNo string, channel int) bool

	// RequestPosition asks the hardware to refresh the position register.
	// The answer lands via the background update mechanism, not here.
	RequestPosition(serialNo string, channel int) error

	// RequestStatusBits asks the hardware to refresh the status register
	RequestStatusBits(serialNo string, channel int) error

	// PositionCounter reads the most recently refreshed position register
	PositionCounter(serialNo string, channel int) int

	// StatusBits reads the most recently refreshed status register
	StatusBits(serialNo string, channel int) StatusBits

	// MoveToPosition starts an absolute move and returns immediately
	MoveToPosition(serialNo string, channel int, steps int) error

	// CanHome reports whether the channel supports homing
	CanHome(serialNo string, channel int) bool

	// Home starts a homing move and returns immediately
	Home(serialNo string, channel int) error

	// StartPolling begins background refresh of position and status at
	// the given interval, reporting success
	StartPolling(serialNo string, channel int, interval time.Duration) bool

	// StopPolling halts background refresh
	StopPolling(serialNo string, channel int)
}

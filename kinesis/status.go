package kinesis

// StatusBits is the vendor status register for a motor channel.  The bit
// layout matches the wire format, so values decoded from hardware can be
// stored without translation.
type StatusBits uint32

const (
	// StatusCWHardLimit is set when the clockwise hardware limit switch is active
	StatusCWHardLimit StatusBits = 1 << 0

	// StatusCCWHardLimit is set when the counterclockwise hardware limit switch is active
	StatusCCWHardLimit StatusBits = 1 << 1

	// StatusMovingCW is set while the motor moves clockwise
	StatusMovingCW StatusBits = 1 << 4

	// StatusMovingCCW is set while the motor moves counterclockwise
	StatusMovingCCW StatusBits = 1 << 5

	// StatusJoggingCW is set while the motor jogs clockwise
	StatusJoggingCW StatusBits = 1 << 6

	// StatusJoggingCCW is set while the motor jogs counterclockwise
	StatusJoggingCCW StatusBits = 1 << 7

	// StatusHoming is set while a homing move is in progress
	StatusHoming StatusBits = 1 << 9

	// StatusHomed is set once the channel has an absolute zero reference
	StatusHomed StatusBits = 1 << 10

	// StatusEnabled is set when the channel is armed
	StatusEnabled StatusBits = 1 << 31
)

// Has reports whether any of the given bits are set
func (s StatusBits) Has(bits StatusBits) bool {
	return s&bits != 0
}

// Moving reports whether the channel is in motion for any reason,
// including jogging and homing
func (s StatusBits) Moving() bool {
	return s.Has(StatusMovingCW | StatusMovingCCW | StatusJoggingCW | StatusJoggingCCW | StatusHoming)
}

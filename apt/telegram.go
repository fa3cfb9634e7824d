/*Package apt speaks the Thorlabs APT communications protocol, the fixed
vendor command set carried by Kinesis controllers over their FTDI serial
(or serial-over-ethernet) links.

messages are framed as a 6-byte little-endian header:

	[msg ID (2)] [param1] [param2] [dest] [source]

long-form messages set the high bit of dest and replace the param bytes
with a data length, followed by that many data bytes.  Benchtop bay
devices are addressed by bay (0x21, 0x22, ...); single-channel units use
the generic USB address 0x50.  There is no checksum.
*/
package apt

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// device addresses
const (
	// HostAddr is the source address of the control PC
	HostAddr = 0x01

	// GenericUSB is the destination for single-channel units
	GenericUSB = 0x50

	longForm = 0x80
)

// Bay returns the destination address of the nth bay of a benchtop
// controller, 1-based
func Bay(n int) byte {
	return byte(0x20 + n)
}

// message IDs used by the motor command set
const (
	MsgModIdentify        = 0x0223
	MsgSetChanEnableState = 0x0210
	MsgReqChanEnableState = 0x0211
	MsgGetChanEnableState = 0x0212
	MsgHWReqInfo          = 0x0005
	MsgHWGetInfo          = 0x0006
	MsgMotMoveHome        = 0x0443
	MsgMotMoveHomed       = 0x0444
	MsgMotMoveAbsolute    = 0x0453
	MsgMotMoveCompleted   = 0x0464
	MsgMotReqPosCounter   = 0x0411
	MsgMotGetPosCounter   = 0x0412
	MsgMotReqStatusBits   = 0x0429
	MsgMotGetStatusBits   = 0x042A
)

// channel enable states carried in param2 of SetChanEnableState
const (
	ChanEnable  = 0x01
	ChanDisable = 0x02
)

// ErrShortTelegram is generated when a data packet is shorter than its
// message type requires
var ErrShortTelegram = errors.New("apt: telegram data too short")

// Telegram is one APT message.  Data is nil for short-form messages.
type Telegram struct {
	ID     uint16
	Param1 byte
	Param2 byte
	Dest   byte
	Src    byte
	Data   []byte
}

// Encode serializes the telegram to wire format
func (t Telegram) Encode() []byte {
	buf := make([]byte, 6, 6+len(t.Data))
	binary.LittleEndian.PutUint16(buf[0:2], t.ID)
	if t.Data != nil {
		binary.LittleEndian.PutUint16(buf[2:4], uint16(len(t.Data)))
		buf[4] = t.Dest | longForm
		buf[5] = t.Src
		return append(buf, t.Data...)
	}
	buf[2] = t.Param1
	buf[3] = t.Param2
	buf[4] = t.Dest
	buf[5] = t.Src
	return buf
}

// Decode reads one telegram from the stream
func Decode(r *bufio.Reader) (Telegram, error) {
	var hdr [6]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Telegram{}, err
	}
	t := Telegram{
		ID:   binary.LittleEndian.Uint16(hdr[0:2]),
		Dest: hdr[4],
		Src:  hdr[5],
	}
	if hdr[4]&longForm != 0 {
		t.Dest = hdr[4] &^ longForm
		length := binary.LittleEndian.Uint16(hdr[2:4])
		t.Data = make([]byte, length)
		if _, err := io.ReadFull(r, t.Data); err != nil {
			return Telegram{}, err
		}
		return t, nil
	}
	t.Param1 = hdr[2]
	t.Param2 = hdr[3]
	return t, nil
}

// SetChanEnableState builds the channel arm/disarm command
func SetChanEnableState(dest, ident byte, enable bool) Telegram {
	state := byte(ChanDisable)
	if enable {
		state = ChanEnable
	}
	return Telegram{ID: MsgSetChanEnableState, Param1: ident, Param2: state, Dest: dest, Src: HostAddr}
}

// ReqChanEnableState builds the channel state query
func ReqChanEnableState(dest, ident byte) Telegram {
	return Telegram{ID: MsgReqChanEnableState, Param1: ident, Dest: dest, Src: HostAddr}
}

// HWReqInfo builds the hardware info query
func HWReqInfo(dest byte) Telegram {
	return Telegram{ID: MsgHWReqInfo, Dest: dest, Src: HostAddr}
}

// HWInfo is the decoded hardware info block
type HWInfo struct {
	SerialNo    uint32
	Model       string
	Type        uint16
	NumChannels int
}

// ParseHWInfo decodes a HWGetInfo data packet
func ParseHWInfo(t Telegram) (HWInfo, error) {
	if len(t.Data) < 84 {
		return HWInfo{}, ErrShortTelegram
	}
	d := t.Data
	return HWInfo{
		SerialNo:    binary.LittleEndian.Uint32(d[0:4]),
		Model:       strings.TrimRight(string(d[4:12]), "\x00 "),
		Type:        binary.LittleEndian.Uint16(d[12:14]),
		NumChannels: int(binary.LittleEndian.Uint16(d[82:84])),
	}, nil
}

// MoveHome builds the homing command
func MoveHome(dest, ident byte) Telegram {
	return Telegram{ID: MsgMotMoveHome, Param1: ident, Dest: dest, Src: HostAddr}
}

// MoveAbsolute builds the absolute move command
func MoveAbsolute(dest, ident byte, pos int32) Telegram {
	data := make([]byte, 6)
	binary.LittleEndian.PutUint16(data[0:2], uint16(ident))
	binary.LittleEndian.PutUint32(data[2:6], uint32(pos))
	return Telegram{ID: MsgMotMoveAbsolute, Dest: dest, Src: HostAddr, Data: data}
}

// ReqPosCounter builds the position register refresh request
func ReqPosCounter(dest, ident byte) Telegram {
	return Telegram{ID: MsgMotReqPosCounter, Param1: ident, Dest: dest, Src: HostAddr}
}

// ParsePosCounter decodes a GetPosCounter data packet to (ident, position)
func ParsePosCounter(t Telegram) (byte, int32, error) {
	if len(t.Data) < 6 {
		return 0, 0, ErrShortTelegram
	}
	ident := byte(binary.LittleEndian.Uint16(t.Data[0:2]))
	pos := int32(binary.LittleEndian.Uint32(t.Data[2:6]))
	return ident, pos, nil
}

// ReqStatusBits builds the status register refresh request
func ReqStatusBits(dest, ident byte) Telegram {
	return Telegram{ID: MsgMotReqStatusBits, Param1: ident, Dest: dest, Src: HostAddr}
}

// ParseStatusBits decodes a GetStatusBits data packet to (ident, status)
func ParseStatusBits(t Telegram) (byte, uint32, error) {
	if len(t.Data) < 6 {
		return 0, 0, ErrShortTelegram
	}
	ident := byte(binary.LittleEndian.Uint16(t.Data[0:2]))
	status := binary.LittleEndian.Uint32(t.Data[2:6])
	return ident, status, nil
}

func (t Telegram) String() string {
	if t.Data != nil {
		return fmt.Sprintf("Telegram{ID: %#04x, Dest: %#02x, Src: %#02x, Data: % x}", t.ID, t.Dest, t.Src, t.Data)
	}
	return fmt.Sprintf("Telegram{ID: %#04x, P1: %#02x, P2: %#02x, Dest: %#02x, Src: %#02x}", t.ID, t.Param1, t.Param2, t.Dest, t.Src)
}

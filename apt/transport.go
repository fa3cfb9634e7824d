package apt

import (
	"bufio"
	"encoding/binary"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/Vanwalleghem/mmdev-ThorlabsKinesis/comm"
	"github.com/Vanwalleghem/mmdev-ThorlabsKinesis/kinesis"
)

// MotherBoard is the destination address of a benchtop rack controller
const MotherBoard = 0x11

// SerConf returns the serial configuration for a Kinesis FTDI link.  No
// read timeout; the reader goroutine owns the connection and blocks.
func SerConf(addr string) *serial.Config {
	return &serial.Config{
		Name:     addr,
		Baud:     115200,
		Size:     8,
		Parity:   serial.ParityNone,
		StopBits: serial.Stop1,
	}
}

// AddrSpec tells the transport where a controller lives and how to
// address it
type AddrSpec struct {
	// Addr is a serial port name, or host:port for a serial-over-ethernet
	// bridge
	Addr string

	// Serial selects a local serial port over a TCP bridge
	Serial bool

	// Bays is nonzero for benchtop controllers whose channels live in
	// addressable bays
	Bays int

	// NoHome marks hardware without a home switch
	NoHome bool
}

// Transport implements kinesis.Transport over the APT wire protocol, one
// link per controller serial number.  Controllers must be Registered
// before they can be opened.
type Transport struct {
	mu    sync.Mutex
	addrs map[string]AddrSpec
	links map[string]*link
}

// New returns an empty Transport; provision it with Register
func New() *Transport {
	return &Transport{
		addrs: map[string]AddrSpec{},
		links: map[string]*link{},
	}
}

// Register associates a controller serial number with its link address
func (t *Transport) Register(serialNo string, spec AddrSpec) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addrs[serialNo] = spec
}

type registers struct {
	pos     int32
	status  uint32
	enabled bool
}

type link struct {
	spec AddrSpec
	conn io.ReadWriteCloser
	done chan struct{}

	wmu sync.Mutex // serializes telegram writes

	mu          sync.Mutex // guards everything below
	model       string
	numChannels int
	regs        map[int]*registers
	pollers     map[int]chan struct{}
}

// dest and ident compute the wire addressing for a channel: bay devices
// are addressed by bay with ident 1, single units by ident on the generic
// USB address
func (l *link) dest(channel int) byte {
	if l.spec.Bays > 0 {
		return Bay(channel)
	}
	return GenericUSB
}

func (l *link) ident(channel int) byte {
	if l.spec.Bays > 0 {
		return 1
	}
	return byte(channel)
}

func (l *link) send(t Telegram) error {
	l.wmu.Lock()
	defer l.wmu.Unlock()
	if _, err := l.conn.Write(t.Encode()); err != nil {
		return kinesis.CommandError{Code: kinesis.CodeIOError}
	}
	return nil
}

func (l *link) reg(channel int) *registers {
	r, ok := l.regs[channel]
	if !ok {
		r = &registers{}
		l.regs[channel] = r
	}
	return r
}

// channelOf resolves which channel a received telegram belongs to.  Bay
// devices answer from their bay address; single units echo the channel
// ident in the data.
func (l *link) channelOf(t Telegram, ident byte) int {
	if l.spec.Bays > 0 && t.Src >= 0x21 && t.Src <= 0x2A {
		return int(t.Src - 0x20)
	}
	return int(ident)
}

func (l *link) readLoop() {
	r := bufio.NewReader(l.conn)
	for {
		t, err := Decode(r)
		if err != nil {
			select {
			case <-l.done:
			default:
				log.Printf("apt: read loop terminated: %v", err)
			}
			return
		}
		l.dispatch(t)
	}
}

func (l *link) dispatch(t Telegram) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch t.ID {
	case MsgMotGetPosCounter:
		ident, pos, err := ParsePosCounter(t)
		if err != nil {
			return
		}
		l.reg(l.channelOf(t, ident)).pos = pos
	case MsgMotGetStatusBits:
		ident, status, err := ParseStatusBits(t)
		if err != nil {
			return
		}
		reg := l.reg(l.channelOf(t, ident))
		reg.status = status
		reg.enabled = kinesis.StatusBits(status).Has(kinesis.StatusEnabled)
	case MsgGetChanEnableState:
		reg := l.reg(l.channelOf(t, t.Param1))
		reg.enabled = t.Param2 == ChanEnable
	case MsgHWGetInfo:
		info, err := ParseHWInfo(t)
		if err != nil {
			return
		}
		l.model = info.Model
		if info.NumChannels > 0 {
			l.numChannels = info.NumChannels
		}
	case MsgMotMoveCompleted, MsgMotMoveHomed:
		// these carry a trailing status update block; fold it in so the
		// registers do not stay stale between polls
		if len(t.Data) >= 14 {
			reg := l.reg(l.channelOf(t, t.Data[0]))
			reg.pos = int32(binary.LittleEndian.Uint32(t.Data[2:6]))
			reg.status = binary.LittleEndian.Uint32(t.Data[10:14])
			reg.enabled = kinesis.StatusBits(reg.status).Has(kinesis.StatusEnabled)
		}
	}
}

func (t *Transport) getLink(serialNo string) (*link, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.links[serialNo]
	if !ok {
		return nil, kinesis.CommandError{Code: kinesis.CodeDeviceNotOpened}
	}
	return l, nil
}

// Open implements kinesis.Transport.  It dials the registered address with
// backoff, starts the reader, and primes the hardware info and channel
// state registers.
func (t *Transport) Open(serialNo string) error {
	t.mu.Lock()
	spec, ok := t.addrs[serialNo]
	if !ok {
		t.mu.Unlock()
		return kinesis.CommandError{Code: kinesis.CodeDeviceNotFound}
	}
	if _, open := t.links[serialNo]; open {
		t.mu.Unlock()
		return kinesis.CommandError{Code: kinesis.CodeAlreadyOpen}
	}
	t.mu.Unlock()

	maker := comm.SerialConnMaker(SerConf(spec.Addr))
	if !spec.Serial {
		// long-lived link; dial without deadlines
		maker = func() (io.ReadWriteCloser, error) {
			return net.DialTimeout("tcp", spec.Addr, 3*time.Second)
		}
	}
	conn, err := comm.BackingOff(maker)()
	if err != nil {
		return kinesis.CommandError{Code: kinesis.CodeNoResponse}
	}

	nch := spec.Bays
	if nch == 0 {
		nch = 1
	}
	l := &link{
		spec:        spec,
		conn:        conn,
		done:        make(chan struct{}),
		numChannels: nch,
		regs:        map[int]*registers{},
		pollers:     map[int]chan struct{}{},
	}
	go l.readLoop()

	infoDest := byte(GenericUSB)
	if spec.Bays > 0 {
		infoDest = MotherBoard
	}
	if err := l.send(HWReqInfo(infoDest)); err != nil {
		conn.Close()
		return err
	}
	for ch := 1; ch <= nch; ch++ {
		if err := l.send(ReqChanEnableState(l.dest(ch), l.ident(ch))); err != nil {
			conn.Close()
			return err
		}
	}

	// wait briefly for the info block so ModelNo works right after Open;
	// proceed degraded if the controller is slow
	deadline := time.Now().Add(250 * time.Millisecond)
	for time.Now().Before(deadline) {
		l.mu.Lock()
		have := l.model != ""
		l.mu.Unlock()
		if have {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.mu.Lock()
	t.links[serialNo] = l
	t.mu.Unlock()
	return nil
}

// Close implements kinesis.Transport
func (t *Transport) Close(serialNo string) {
	t.mu.Lock()
	l, ok := t.links[serialNo]
	if ok {
		delete(t.links, serialNo)
	}
	t.mu.Unlock()
	if !ok {
		return
	}
	l.mu.Lock()
	for ch, stop := range l.pollers {
		close(stop)
		delete(l.pollers, ch)
	}
	l.mu.Unlock()
	close(l.done)
	l.conn.Close()
}

// ModelNo implements kinesis.Transport
func (t *Transport) ModelNo(serialNo string) (string, error) {
	l, err := t.getLink(serialNo)
	if err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model == "" {
		return "", kinesis.CommandError{Code: kinesis.CodeNoResponse}
	}
	return l.model, nil
}

// NumChannels implements kinesis.Transport
func (t *Transport) NumChannels(serialNo string) int {
	l, err := t.getLink(serialNo)
	if err != nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.numChannels
}

// EnableChannel implements kinesis.Transport
func (t *Transport) EnableChannel(serialNo string, channel int) error {
	l, err := t.getLink(serialNo)
	if err != nil {
		return err
	}
	if err := l.send(SetChanEnableState(l.dest(channel), l.ident(channel), true)); err != nil {
		return err
	}
	l.mu.Lock()
	l.reg(channel).enabled = true
	l.mu.Unlock()
	return nil
}

// DisableChannel implements kinesis.Transport
func (t *Transport) DisableChannel(serialNo string, channel int) error {
	l, err := t.getLink(serialNo)
	if err != nil {
		return err
	}
	if err := l.send(SetChanEnableState(l.dest(channel), l.ident(channel), false)); err != nil {
		return err
	}
	l.mu.Lock()
	l.reg(channel).enabled = false
	l.mu.Unlock()
	return nil
}

// ChannelEnabled implements kinesis.Transport
func (t *Transport) ChannelEnabled(serialNo string, channel int) bool {
	l, err := t.getLink(serialNo)
	if err != nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reg(channel).enabled
}

// RequestPosition implements kinesis.Transport
func (t *Transport) RequestPosition(serialNo string, channel int) error {
	l, err := t.getLink(serialNo)
	if err != nil {
		return err
	}
	return l.send(ReqPosCounter(l.dest(channel), l.ident(channel)))
}

// RequestStatusBits implements kinesis.Transport
func (t *Transport) RequestStatusBits(serialNo string, channel int) error {
	l, err := t.getLink(serialNo)
	if err != nil {
		return err
	}
	return l.send(ReqStatusBits(l.dest(channel), l.ident(channel)))
}

// PositionCounter implements kinesis.Transport
func (t *Transport) PositionCounter(serialNo string, channel int) int {
	l, err := t.getLink(serialNo)
	if err != nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(l.reg(channel).pos)
}

// StatusBits implements kinesis.Transport
func (t *Transport) StatusBits(serialNo string, channel int) kinesis.StatusBits {
	l, err := t.getLink(serialNo)
	if err != nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return kinesis.StatusBits(l.reg(channel).status)
}

// MoveToPosition implements kinesis.Transport
func (t *Transport) MoveToPosition(serialNo string, channel int, steps int) error {
	l, err := t.getLink(serialNo)
	if err != nil {
		return err
	}
	return l.send(MoveAbsolute(l.dest(channel), l.ident(channel), int32(steps)))
}

// CanHome implements kinesis.Transport
func (t *Transport) CanHome(serialNo string, channel int) bool {
	l, err := t.getLink(serialNo)
	if err != nil {
		return false
	}
	return !l.spec.NoHome
}

// Home implements kinesis.Transport
func (t *Transport) Home(serialNo string, channel int) error {
	l, err := t.getLink(serialNo)
	if err != nil {
		return err
	}
	return l.send(MoveHome(l.dest(channel), l.ident(channel)))
}

// StartPolling implements kinesis.Transport.  The loop issues position and
// status refresh requests at the interval; replies land via the reader.
func (t *Transport) StartPolling(serialNo string, channel int, interval time.Duration) bool {
	l, err := t.getLink(serialNo)
	if err != nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, running := l.pollers[channel]; running {
		return true
	}
	stop := make(chan struct{})
	l.pollers[channel] = stop
	go func() {
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				if err := l.send(ReqPosCounter(l.dest(channel), l.ident(channel))); err != nil {
					log.Printf("apt: poll of %s channel %d failed: %v", serialNo, channel, err)
					continue
				}
				if err := l.send(ReqStatusBits(l.dest(channel), l.ident(channel))); err != nil {
					log.Printf("apt: poll of %s channel %d failed: %v", serialNo, channel, err)
				}
			}
		}
	}()
	return true
}

// StopPolling implements kinesis.Transport
func (t *Transport) StopPolling(serialNo string, channel int) {
	l, err := t.getLink(serialNo)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if stop, running := l.pollers[channel]; running {
		close(stop)
		delete(l.pollers, channel)
	}
}

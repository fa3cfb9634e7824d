package apt

import (
	"bufio"
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/Vanwalleghem/mmdev-ThorlabsKinesis/kinesis"
)

// fakeController is a minimal single-channel controller behind a TCP
// listener.  It answers info, enable state, position and status queries.
type fakeController struct {
	ln  net.Listener
	pos int32
}

func newFakeController(t *testing.T) *fakeController {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	f := &fakeController{ln: ln, pos: 614400}
	t.Cleanup(func() { ln.Close() })
	go f.serve()
	return f
}

func (f *fakeController) serve() {
	conn, err := f.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	r := bufio.NewReader(conn)
	enabled := false
	for {
		tl, err := Decode(r)
		if err != nil {
			return
		}
		var reply *Telegram
		switch tl.ID {
		case MsgHWReqInfo:
			data := make([]byte, 84)
			binary.LittleEndian.PutUint32(data[0:4], 27000001)
			copy(data[4:12], "KDC101")
			binary.LittleEndian.PutUint16(data[82:84], 1)
			reply = &Telegram{ID: MsgHWGetInfo, Dest: HostAddr, Src: GenericUSB, Data: data}
		case MsgSetChanEnableState:
			enabled = tl.Param2 == ChanEnable
		case MsgReqChanEnableState:
			state := byte(ChanDisable)
			if enabled {
				state = ChanEnable
			}
			reply = &Telegram{ID: MsgGetChanEnableState, Param1: tl.Param1, Param2: state, Dest: HostAddr, Src: GenericUSB}
		case MsgMotMoveAbsolute:
			if len(tl.Data) == 6 {
				f.pos = int32(binary.LittleEndian.Uint32(tl.Data[2:6]))
			}
		case MsgMotReqPosCounter:
			data := make([]byte, 6)
			binary.LittleEndian.PutUint16(data[0:2], uint16(tl.Param1))
			binary.LittleEndian.PutUint32(data[2:6], uint32(f.pos))
			reply = &Telegram{ID: MsgMotGetPosCounter, Dest: HostAddr, Src: GenericUSB, Data: data}
		case MsgMotReqStatusBits:
			data := make([]byte, 6)
			binary.LittleEndian.PutUint16(data[0:2], uint16(tl.Param1))
			status := uint32(0)
			if enabled {
				status |= uint32(kinesis.StatusEnabled)
			}
			binary.LittleEndian.PutUint32(data[2:6], status)
			reply = &Telegram{ID: MsgMotGetStatusBits, Dest: HostAddr, Src: GenericUSB, Data: data}
		}
		if reply != nil {
			if _, err := conn.Write(reply.Encode()); err != nil {
				return
			}
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTransportAgainstFakeController(t *testing.T) {
	fc := newFakeController(t)

	tr := New()
	tr.Register("27000001", AddrSpec{Addr: fc.ln.Addr().String()})

	if err := tr.Open("27000001"); err != nil {
		t.Fatal(err)
	}
	defer tr.Close("27000001")

	model, err := tr.ModelNo("27000001")
	if err != nil {
		t.Fatal(err)
	}
	if model != "KDC101" {
		t.Errorf("ModelNo = %q, want KDC101", model)
	}
	if got := tr.NumChannels("27000001"); got != 1 {
		t.Errorf("NumChannels = %d, want 1", got)
	}

	if err := tr.EnableChannel("27000001", 1); err != nil {
		t.Fatal(err)
	}
	if !tr.ChannelEnabled("27000001", 1) {
		t.Error("channel not enabled after EnableChannel")
	}

	if err := tr.RequestPosition("27000001", 1); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "position register", func() bool {
		return tr.PositionCounter("27000001", 1) == 614400
	})

	if err := tr.RequestStatusBits("27000001", 1); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "status register", func() bool {
		return tr.StatusBits("27000001", 1).Has(kinesis.StatusEnabled)
	})

	// a move lands in the controller and is visible on the next refresh
	if err := tr.MoveToPosition("27000001", 1, 1228800); err != nil {
		t.Fatal(err)
	}
	if !tr.StartPolling("27000001", 1, 5*time.Millisecond) {
		t.Fatal("StartPolling failed")
	}
	waitFor(t, "polled position", func() bool {
		return tr.PositionCounter("27000001", 1) == 1228800
	})
	tr.StopPolling("27000001", 1)
}

func TestTransportErrors(t *testing.T) {
	tr := New()
	err := tr.Open("99999999")
	var ce kinesis.CommandError
	if !errors.As(err, &ce) || ce.Code != kinesis.CodeDeviceNotFound {
		t.Errorf("Open of unregistered serial = %v, want device not found", err)
	}
	if _, err := tr.ModelNo("99999999"); err == nil {
		t.Error("ModelNo on unopened link should error")
	}
	if tr.CanHome("99999999", 1) {
		t.Error("CanHome on unopened link should be false")
	}
}

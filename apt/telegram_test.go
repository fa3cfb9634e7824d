package apt

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEncodeShortForm(t *testing.T) {
	got := SetChanEnableState(Bay(1), 1, true).Encode()
	want := []byte{0x10, 0x02, 0x01, 0x01, 0x21, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("SetChanEnableState = % x, want % x", got, want)
	}

	got = SetChanEnableState(GenericUSB, 1, false).Encode()
	want = []byte{0x10, 0x02, 0x01, 0x02, 0x50, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("SetChanEnableState(disable) = % x, want % x", got, want)
	}

	got = HWReqInfo(GenericUSB).Encode()
	want = []byte{0x05, 0x00, 0x00, 0x00, 0x50, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("HWReqInfo = % x, want % x", got, want)
	}

	got = MoveHome(Bay(2), 1).Encode()
	want = []byte{0x43, 0x04, 0x01, 0x00, 0x22, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("MoveHome = % x, want % x", got, want)
	}
}

func TestEncodeMoveAbsolute(t *testing.T) {
	got := MoveAbsolute(GenericUSB, 1, 0x12345678).Encode()
	want := []byte{
		0x53, 0x04, // MoveAbsolute
		0x06, 0x00, // 6 data bytes
		0xD0,       // GenericUSB | long form
		0x01,       // host
		0x01, 0x00, // channel ident
		0x78, 0x56, 0x34, 0x12, // position, little endian
	}
	if !bytes.Equal(got, want) {
		t.Errorf("MoveAbsolute = % x, want % x", got, want)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	msgs := []Telegram{
		SetChanEnableState(Bay(1), 1, true),
		ReqChanEnableState(GenericUSB, 1),
		MoveAbsolute(Bay(2), 1, -614400),
		ReqStatusBits(GenericUSB, 1),
	}
	var buf bytes.Buffer
	for _, m := range msgs {
		buf.Write(m.Encode())
	}
	r := bufio.NewReader(&buf)
	for i, want := range msgs {
		got, err := Decode(r)
		if err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
		if got.ID != want.ID || got.Dest != want.Dest || got.Src != want.Src {
			t.Errorf("message %d: header %v, want %v", i, got, want)
		}
		if got.Param1 != want.Param1 || got.Param2 != want.Param2 {
			t.Errorf("message %d: params %v, want %v", i, got, want)
		}
		if !bytes.Equal(got.Data, want.Data) {
			t.Errorf("message %d: data % x, want % x", i, got.Data, want.Data)
		}
	}
}

func TestDecodeTruncated(t *testing.T) {
	full := MoveAbsolute(GenericUSB, 1, 1000).Encode()
	for _, n := range []int{0, 3, 6, 9} {
		r := bufio.NewReader(bytes.NewReader(full[:n]))
		if _, err := Decode(r); err == nil {
			t.Errorf("Decode of %d/%d bytes succeeded", n, len(full))
		}
	}
}

func TestParsePosCounter(t *testing.T) {
	data := make([]byte, 6)
	binary.LittleEndian.PutUint16(data[0:2], 1)
	binary.LittleEndian.PutUint32(data[2:6], uint32(0xFFFFFFFF)) // -1
	ident, pos, err := ParsePosCounter(Telegram{ID: MsgMotGetPosCounter, Data: data})
	if err != nil {
		t.Fatal(err)
	}
	if ident != 1 || pos != -1 {
		t.Errorf("ParsePosCounter = (%d, %d), want (1, -1)", ident, pos)
	}

	if _, _, err := ParsePosCounter(Telegram{Data: data[:4]}); err != ErrShortTelegram {
		t.Errorf("short data error = %v, want ErrShortTelegram", err)
	}
}

func TestParseStatusBits(t *testing.T) {
	data := make([]byte, 6)
	binary.LittleEndian.PutUint16(data[0:2], 2)
	binary.LittleEndian.PutUint32(data[2:6], 0x80000010)
	ident, status, err := ParseStatusBits(Telegram{ID: MsgMotGetStatusBits, Data: data})
	if err != nil {
		t.Fatal(err)
	}
	if ident != 2 || status != 0x80000010 {
		t.Errorf("ParseStatusBits = (%d, %#x), want (2, 0x80000010)", ident, status)
	}
}

func TestParseHWInfo(t *testing.T) {
	data := make([]byte, 84)
	binary.LittleEndian.PutUint32(data[0:4], 70000001)
	copy(data[4:12], "BSC202")
	binary.LittleEndian.PutUint16(data[12:14], 0x2C)
	binary.LittleEndian.PutUint16(data[82:84], 2)

	info, err := ParseHWInfo(Telegram{ID: MsgHWGetInfo, Data: data})
	if err != nil {
		t.Fatal(err)
	}
	if info.SerialNo != 70000001 {
		t.Errorf("SerialNo = %d, want 70000001", info.SerialNo)
	}
	if info.Model != "BSC202" {
		t.Errorf("Model = %q, want BSC202", info.Model)
	}
	if info.NumChannels != 2 {
		t.Errorf("NumChannels = %d, want 2", info.NumChannels)
	}

	if _, err := ParseHWInfo(Telegram{Data: data[:83]}); err != ErrShortTelegram {
		t.Errorf("short data error = %v, want ErrShortTelegram", err)
	}
}

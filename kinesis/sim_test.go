package kinesis

import (
	"errors"
	"testing"
	"time"
)

func simCode(t *testing.T, err error, want int) {
	t.Helper()
	var ce CommandError
	if !errors.As(err, &ce) || ce.Code != want {
		t.Fatalf("error = %v, want vendor code %d", err, want)
	}
}

func TestSimOpenErrors(t *testing.T) {
	sim := NewSimTransport()
	sim.AddDevice("70000001", SimDevice{})

	simCode(t, sim.Open("12345678"), CodeDeviceNotFound)
	if err := sim.Open("70000001"); err != nil {
		t.Fatal(err)
	}
	simCode(t, sim.Open("70000001"), CodeAlreadyOpen)
	sim.Close("70000001")
	if err := sim.Open("70000001"); err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
}

func TestSimMoveCompletes(t *testing.T) {
	sim := NewSimTransport()
	sim.AddDevice("70000001", SimDevice{})
	if err := sim.Open("70000001"); err != nil {
		t.Fatal(err)
	}
	defer sim.Close("70000001")

	// motion commands require an armed channel
	simCode(t, sim.MoveToPosition("70000001", 1, 1000), CodeInvalidOperation)

	if err := sim.EnableChannel("70000001", 1); err != nil {
		t.Fatal(err)
	}
	if !sim.StartPolling("70000001", 1, 2*time.Millisecond) {
		t.Fatal("StartPolling failed")
	}
	if err := sim.MoveToPosition("70000001", 1, 1000); err != nil {
		t.Fatal(err)
	}

	// 1000 steps at the default 1e6 steps/sec finishes in about a
	// millisecond; give the polling loop time to observe the rest state
	time.Sleep(30 * time.Millisecond)
	if got := sim.PositionCounter("70000001", 1); got != 1000 {
		t.Errorf("position = %d, want 1000", got)
	}
	status := sim.StatusBits("70000001", 1)
	if status.Moving() {
		t.Error("status reports moving after the move finished")
	}
	if !status.Has(StatusEnabled) {
		t.Error("status missing enabled bit")
	}
}

func TestSimStatusDuringMove(t *testing.T) {
	sim := NewSimTransport()
	sim.AddDevice("70000001", SimDevice{StepsPerSec: 1000}) // 1 step/ms, slow
	if err := sim.Open("70000001"); err != nil {
		t.Fatal(err)
	}
	defer sim.Close("70000001")
	if err := sim.EnableChannel("70000001", 1); err != nil {
		t.Fatal(err)
	}
	if !sim.StartPolling("70000001", 1, 2*time.Millisecond) {
		t.Fatal("StartPolling failed")
	}
	if err := sim.MoveToPosition("70000001", 1, 200); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if !sim.StatusBits("70000001", 1).Moving() {
		t.Error("status does not report moving mid-move")
	}
}

func TestSimHoming(t *testing.T) {
	sim := NewSimTransport()
	sim.AddDevice("70000001", SimDevice{HomeDuration: 10 * time.Millisecond})
	if err := sim.Open("70000001"); err != nil {
		t.Fatal(err)
	}
	defer sim.Close("70000001")
	if err := sim.EnableChannel("70000001", 1); err != nil {
		t.Fatal(err)
	}
	if !sim.StartPolling("70000001", 1, 2*time.Millisecond) {
		t.Fatal("StartPolling failed")
	}
	if !sim.CanHome("70000001", 1) {
		t.Fatal("CanHome = false, want true")
	}
	if err := sim.Home("70000001", 1); err != nil {
		t.Fatal(err)
	}
	time.Sleep(40 * time.Millisecond)
	status := sim.StatusBits("70000001", 1)
	if !status.Has(StatusHomed) {
		t.Error("status missing homed bit after homing")
	}
	if status.Has(StatusHoming) {
		t.Error("status still homing after home completed")
	}
	if got := sim.PositionCounter("70000001", 1); got != 0 {
		t.Errorf("position after homing = %d, want 0", got)
	}
}

func TestSimNoHome(t *testing.T) {
	sim := NewSimTransport()
	sim.AddDevice("49000001", SimDevice{NoHome: true})
	if err := sim.Open("49000001"); err != nil {
		t.Fatal(err)
	}
	defer sim.Close("49000001")
	if err := sim.EnableChannel("49000001", 1); err != nil {
		t.Fatal(err)
	}
	if sim.CanHome("49000001", 1) {
		t.Error("CanHome = true, want false")
	}
	simCode(t, sim.Home("49000001", 1), CodeCannotHome)
}

func TestSimMultiChannel(t *testing.T) {
	sim := NewSimTransport()
	sim.AddDevice("70000001", SimDevice{Channels: 2})
	if err := sim.Open("70000001"); err != nil {
		t.Fatal(err)
	}
	defer sim.Close("70000001")
	if got := sim.NumChannels("70000001"); got != 2 {
		t.Fatalf("NumChannels = %d, want 2", got)
	}
	if err := sim.EnableChannel("70000001", 2); err != nil {
		t.Fatal(err)
	}
	if sim.ChannelEnabled("70000001", 1) {
		t.Error("channel 1 armed by enabling channel 2")
	}
	if !sim.ChannelEnabled("70000001", 2) {
		t.Error("channel 2 not armed")
	}
	simCode(t, sim.EnableChannel("70000001", 3), CodeInvalidChannel)
}

// the full stack over the simulator: stage state machine, unit conversion,
// polled busy detection
func TestStageOverSimulator(t *testing.T) {
	sim := NewSimTransport()
	sim.AddDevice("70000001", SimDevice{Model: "BSC202"})
	s := NewSingleAxisStage(NewRegistry(sim), StageConfig{
		SerialNo:                 "70000001",
		DeviceUnitsPerMillimeter: 1000,
		PollingInterval:          5 * time.Millisecond,
	})
	if err := s.Initialize(); err != nil {
		t.Fatal(err)
	}
	defer s.Shutdown()

	enabled, err := s.GetEnabled()
	if err != nil {
		t.Fatal(err)
	}
	if !enabled {
		t.Fatal("Initialize left the channel disarmed")
	}

	if err := s.SetPositionUm(500); err != nil {
		t.Fatal(err)
	}
	if !s.Busy() {
		t.Error("stage not busy right after commanding a move")
	}
	deadline := time.Now().Add(time.Second)
	for s.Busy() {
		if time.Now().After(deadline) {
			t.Fatal("stage busy past deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}
	pos, err := s.GetPositionUm()
	if err != nil {
		t.Fatal(err)
	}
	if pos != 500 {
		t.Errorf("position after move = %g, want 500", pos)
	}

	if err := s.Home(); err != nil {
		t.Fatal(err)
	}
	for s.Busy() {
		if time.Now().After(deadline) {
			t.Fatal("homing busy past deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}
	pos, err = s.GetPositionUm()
	if err != nil {
		t.Fatal(err)
	}
	if pos != 0 {
		t.Errorf("position after homing = %g, want 0", pos)
	}
	if !s.Homed() {
		t.Error("stage not homed")
	}
}

package kinesis

import (
	"math"
	"testing"
)

func TestParseStageType(t *testing.T) {
	cases := []struct {
		in   string
		want StageType
		err  bool
	}{
		{"", StageLinear, false},
		{"Linear", StageLinear, false},
		{"linear", StageLinear, false},
		{"Rotational", StageRotational, false},
		{"ROTATIONAL", StageRotational, false},
		{"sideways", StageLinear, true},
	}
	for _, c := range cases {
		got, err := ParseStageType(c.in)
		if (err != nil) != c.err {
			t.Errorf("ParseStageType(%q) error = %v, wanted error: %v", c.in, err, c.err)
		}
		if err == nil && got != c.want {
			t.Errorf("ParseStageType(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNewConverterRejectsBadScale(t *testing.T) {
	for _, scale := range []float64{0, -1, -409600} {
		if _, err := NewConverter(StageLinear, scale); err == nil {
			t.Errorf("NewConverter(Linear, %g) should have errored", scale)
		}
	}
}

func TestConverterLinear(t *testing.T) {
	// LabJack 050: 1228800 device units per mm, positions in micrometers
	conv, err := NewConverter(StageLinear, 1228800)
	if err != nil {
		t.Fatal(err)
	}
	if got := conv.ToSteps(500); got != 614400 {
		t.Errorf("ToSteps(500um) = %d, want 614400", got)
	}
	if got := conv.ToPhysical(614400); got != 500 {
		t.Errorf("ToPhysical(614400) = %g, want 500", got)
	}
}

func TestConverterRotational(t *testing.T) {
	// cage rotator: 49152000 device units per revolution, positions in degrees
	conv, err := NewConverter(StageRotational, 49152000)
	if err != nil {
		t.Fatal(err)
	}
	if got := conv.ToSteps(90); got != 12288000 {
		t.Errorf("ToSteps(90deg) = %d, want 12288000", got)
	}
	if got := conv.ToPhysical(12288000); got != 90 {
		t.Errorf("ToPhysical(12288000) = %g, want 90", got)
	}
}

func TestConverterRoundTripWithinOneStep(t *testing.T) {
	conv, err := NewConverter(StageLinear, 409600)
	if err != nil {
		t.Fatal(err)
	}
	stepSize := 1000.0 / 409600.0 // um per device unit
	for _, um := range []float64{0, 0.001, 1.2345, 150000, -37.5} {
		back := conv.ToPhysical(conv.ToSteps(um))
		if math.Abs(back-um) > stepSize {
			t.Errorf("round trip of %g um came back as %g, off by more than one step", um, back)
		}
	}
}

func TestConverterSaturates(t *testing.T) {
	conv, err := NewConverter(StageLinear, 1228800)
	if err != nil {
		t.Fatal(err)
	}
	if got := conv.ToSteps(1e18); got != math.MaxInt32 {
		t.Errorf("ToSteps(1e18) = %d, want MaxInt32", got)
	}
	if got := conv.ToSteps(-1e18); got != math.MinInt32 {
		t.Errorf("ToSteps(-1e18) = %d, want MinInt32", got)
	}
}

func TestKindDefaults(t *testing.T) {
	cases := []struct {
		serial string
		mm     float64
	}{
		{"37000001", 1228800},
		{"49000001", 134737},
		{"45000001", 409600},
		{"24000001", 25050},
		{"99000001", 1000},
	}
	for _, c := range cases {
		k := KindOfSerialNo(c.serial)
		if got := k.DefaultUnitsPerMm(); got != c.mm {
			t.Errorf("serial %s: DefaultUnitsPerMm = %g, want %g", c.serial, got, c.mm)
		}
	}
	if k := KindOfSerialNo("55000001"); !k.Rotational() || k.DefaultUnitsPerRev() != 49152000 {
		t.Error("cage rotator defaults wrong")
	}
	if KindOfSerialNo("70000001").Rotational() {
		t.Error("benchtop stepper should not be rotational")
	}
	if KindOfSerialNo("x") != KindUnknown {
		t.Error("short serial should be unknown")
	}
}

package kinesis

import (
	"fmt"
	"strings"

	"github.com/Vanwalleghem/mmdev-ThorlabsKinesis/util"
)

// StageType distinguishes linear from rotational axes
type StageType int

const (
	// StageLinear is a translation stage; configured in device units per
	// millimeter, positions exchanged in micrometers
	StageLinear StageType = iota

	// StageRotational is a rotation stage; configured in device units per
	// revolution, positions exchanged in degrees
	StageRotational
)

func (s StageType) String() string {
	if s == StageRotational {
		return "Rotational"
	}
	return "Linear"
}

// ParseStageType converts a configuration string to a StageType.
// The empty string is linear, matching the historical default.
func ParseStageType(s string) (StageType, error) {
	switch strings.ToLower(s) {
	case "", "linear":
		return StageLinear, nil
	case "rotational":
		return StageRotational, nil
	default:
		return StageLinear, fmt.Errorf("kinesis: stage type %q not understood, expected Linear or Rotational", s)
	}
}

// Converter translates between physical units and device step counts.
// The configured scale factor is per natural unit (millimeter or
// revolution); the runtime unit is micrometers or degrees, hence the
// divisors below.
type Converter struct {
	unitsPerPhysical float64
}

// NewConverter validates the configured scale factor and returns a
// converter.  A zero or negative factor is a configuration error.
func NewConverter(st StageType, scale float64) (Converter, error) {
	if scale <= 0 {
		return Converter{}, fmt.Errorf("kinesis: device unit scale factor must be positive, got %g", scale)
	}
	if st == StageRotational {
		return Converter{unitsPerPhysical: scale / 360.0}, nil
	}
	return Converter{unitsPerPhysical: scale / 1000.0}, nil
}

// ToSteps converts a physical value to device units, rounding to nearest
// and saturating to the signed 32-bit range
func (c Converter) ToSteps(physical float64) int {
	return util.SatInt32(physical * c.unitsPerPhysical)
}

// ToPhysical converts device units to a physical value
func (c Converter) ToPhysical(steps int) float64 {
	return float64(steps) / c.unitsPerPhysical
}

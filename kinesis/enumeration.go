package kinesis

// DeviceKind classifies a controller by the leading digits of its serial
// number.  It is consulted only to pick default configuration values at
// construction time, never afterward.
type DeviceKind int

const (
	// KindUnknown is any serial number prefix not otherwise classified
	KindUnknown DeviceKind = iota

	// KindBenchtopStepper is a BSC20x benchtop stepper controller
	KindBenchtopStepper

	// KindKCubeStepper is a KST101 stepper cube
	KindKCubeStepper

	// KindKCubeDCServo is a KDC101 DC servo cube
	KindKCubeDCServo

	// KindLabJack050 is an MLJ050 motorized lab jack
	KindLabJack050

	// KindLabJack490 is an MLJ150 motorized lab jack
	KindLabJack490

	// KindLongTravelStage is an LTS150/LTS300 integrated stage
	KindLongTravelStage

	// KindVerticalStage is a VST vertical translation stage
	KindVerticalStage

	// KindCageRotator is a K10CR1 motorized rotation mount
	KindCageRotator
)

var serialPrefixes = map[string]DeviceKind{
	"40": KindBenchtopStepper,
	"70": KindBenchtopStepper,
	"26": KindKCubeStepper,
	"27": KindKCubeDCServo,
	"37": KindLabJack050,
	"49": KindLabJack490,
	"45": KindLongTravelStage,
	"24": KindVerticalStage,
	"55": KindCageRotator,
}

// KindOfSerialNo classifies a controller by serial number prefix
func KindOfSerialNo(serialNo string) DeviceKind {
	if len(serialNo) < 2 {
		return KindUnknown
	}
	if k, ok := serialPrefixes[serialNo[:2]]; ok {
		return k
	}
	return KindUnknown
}

// Rotational reports whether the device kind is a rotation stage.  In
// general the user must say so; only integrated rotators are known here.
func (k DeviceKind) Rotational() bool {
	return k == KindCageRotator
}

// DefaultUnitsPerMm returns the device units per millimeter for integrated
// devices, taken from the vendor application.  The fallback is deliberately
// small to prevent accidents on unknown hardware.
func (k DeviceKind) DefaultUnitsPerMm() float64 {
	switch k {
	case KindLabJack050:
		return 1228800.0
	case KindLabJack490:
		return 134737.0
	case KindLongTravelStage:
		return 409600.0
	case KindVerticalStage:
		return 25050.0
	default:
		return 1000.0
	}
}

// DefaultUnitsPerRev returns the device units per revolution for integrated
// rotators
func (k DeviceKind) DefaultUnitsPerRev() float64 {
	if k == KindCageRotator {
		return 49152000.0
	}
	return 360.0
}

package logic

import "math/bits"

// Output range of the moisture scale. The floor is 20, not 0: readings at the
// dry endpoint map to 20 and only readings drier than it fall toward 0.
const (
	percentFloor = 20
	percentCeil  = 100
)

// Calibration maps raw soil ADC values onto a moisture percentage.
// Endpoints may be given in either order; the larger raw value is always
// treated as the dry end.
type Calibration struct {
	DryRaw     int
	WetRaw     int
	DryPercent int // percent <= DryPercent is DRY
	WetPercent int // percent >= WetPercent is WET
}

// DefaultCalibration returns the reference calibration for a capacitive probe
// on a 12-bit ADC.
func DefaultCalibration() Calibration {
	return Calibration{
		DryRaw:     2400,
		WetRaw:     1200,
		DryPercent: 20,
		WetPercent: 80,
	}
}

// endpoints returns (dry, wet) with dry >= wet.
func (c Calibration) endpoints() (int, int) {
	if c.DryRaw < c.WetRaw {
		return c.WetRaw, c.DryRaw
	}
	return c.DryRaw, c.WetRaw
}

// ComputePercent linearly maps raw from [dry, wet] onto [20, 100] and clamps
// the result to [0, 100]. Integer division truncates toward zero. Distances
// are taken as unsigned 64-bit values so any pair of int endpoints works.
//
// A zero span returns the floor. Arduino's map() would yield -1 there,
// clamped to 0.
func (c Calibration) ComputePercent(raw int) int {
	dry, wet := c.endpoints()
	span := uint64(dry) - uint64(wet)
	if span == 0 {
		return percentFloor
	}
	scale := uint64(percentCeil - percentFloor)

	switch {
	case raw <= wet:
		return percentCeil
	case raw <= dry:
		return percentFloor + int(mulDiv(uint64(dry)-uint64(raw), scale, span))
	default:
		d := uint64(raw) - uint64(dry)
		if d >= span {
			return 0
		}
		return clamp(percentFloor-int(mulDiv(d, scale, span)), 0, percentCeil)
	}
}

// mulDiv returns floor(a*b/d) without overflow. The quotient must fit in
// 64 bits.
func mulDiv(a, b, d uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	q, _ := bits.Div64(hi, lo, d)
	return q
}

// Label classifies a percentage. The thresholds live in percent space and
// are independent of the raw-space alert threshold.
func (c Calibration) Label(percent int) Label {
	if percent <= c.DryPercent {
		return LabelDry
	}
	if percent >= c.WetPercent {
		return LabelWet
	}
	return LabelOK
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

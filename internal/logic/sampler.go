package logic

// SoilReadFunc returns a fresh raw soil ADC value.
type SoilReadFunc func() (int, error)

// Sampler decides each tick whether to take a fresh soil reading or reuse the
// last stable one. Readings taken while the pump runs are unreliable, so the
// last pre-pump reading stands in until the pump stops.
type Sampler struct {
	cal  Calibration
	last Reading
}

// NewSampler creates a Sampler. Until the first pump-off sample the stable
// reading is the zero value (raw 0, percent 0).
func NewSampler(cal Calibration) *Sampler {
	return &Sampler{
		cal:  cal,
		last: Reading{Label: cal.Label(0)},
	}
}

// Sample returns the soil reading for this tick.
//
// With the pump on, the stored reading is returned marked Frozen and read is
// never called. With the pump off, read is called and the result replaces
// the stored reading. A read error leaves the stored reading untouched.
func (s *Sampler) Sample(pumpOn bool, read SoilReadFunc) (Reading, error) {
	if pumpOn {
		r := s.last
		r.Frozen = true
		return r, nil
	}

	raw, err := read()
	if err != nil {
		return Reading{}, err
	}

	pct := s.cal.ComputePercent(raw)
	s.last = Reading{
		Raw:     raw,
		Percent: pct,
		Label:   s.cal.Label(pct),
	}
	return s.last, nil
}

// Last returns the last stable (pump-off) reading.
func (s *Sampler) Last() Reading {
	return s.last
}

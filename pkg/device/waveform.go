package device

import (
	"fmt"
	"math"
)

type SourceType int

const (
	DC SourceType = iota
	SIN
	PULSE
	PWL
)

func (t SourceType) String() string {
	switch t {
	case DC:
		return "DC"
	case SIN:
		return "SIN"
	case PULSE:
		return "PULSE"
	case PWL:
		return "PWL"
	}
	return "UNKNOWN"
}

// Waveform is the time function of an independent source.
type Waveform struct {
	Type SourceType

	DC float64 // level for DC, offset for SIN

	// SIN
	Amplitude float64
	Freq      float64
	Phase     float64 // degrees

	// PULSE
	V1     float64
	V2     float64
	Delay  float64
	Rise   float64
	Fall   float64
	Width  float64
	Period float64

	// PWL
	Times  []float64
	Values []float64
}

func DCWave(value float64) Waveform {
	return Waveform{Type: DC, DC: value}
}

func SinWave(offset, amplitude, freq, phase float64) Waveform {
	return Waveform{Type: SIN, DC: offset, Amplitude: amplitude, Freq: freq, Phase: phase}
}

func PulseWave(v1, v2, delay, rise, fall, width, period float64) Waveform {
	return Waveform{Type: PULSE, V1: v1, V2: v2, Delay: delay, Rise: rise, Fall: fall, Width: width, Period: period}
}

func PWLWave(times, values []float64) (Waveform, error) {
	if len(times) == 0 || len(times) != len(values) {
		return Waveform{}, fmt.Errorf("pwl: %d times for %d values", len(times), len(values))
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return Waveform{}, fmt.Errorf("pwl: time points must increase, %g after %g", times[i], times[i-1])
		}
	}
	return Waveform{Type: PWL, Times: times, Values: values}, nil
}

// Initial is the value at t = 0, used as the operating point level.
func (w *Waveform) Initial() float64 {
	return w.At(0)
}

func (w *Waveform) At(t float64) float64 {
	switch w.Type {
	case DC:
		return w.DC
	case SIN:
		phaseRad := w.Phase * math.Pi / 180.0
		return w.DC + w.Amplitude*math.Sin(2.0*math.Pi*w.Freq*t+phaseRad)
	case PULSE:
		return w.pulse(t)
	case PWL:
		return w.pwl(t)
	}
	return 0
}

func (w *Waveform) pulse(t float64) float64 {
	if t < w.Delay {
		return w.V1
	}

	t -= w.Delay
	if w.Period > 0 {
		t = math.Mod(t, w.Period)
	}

	if t < w.Rise {
		return w.V1 + (w.V2-w.V1)*t/w.Rise
	}
	if t < w.Rise+w.Width {
		return w.V2
	}

	fallStart := w.Rise + w.Width
	if t < fallStart+w.Fall {
		return w.V2 - (w.V2-w.V1)*(t-fallStart)/w.Fall
	}
	return w.V1
}

func (w *Waveform) pwl(t float64) float64 {
	if t <= w.Times[0] {
		return w.Values[0]
	}

	last := len(w.Times) - 1
	if t >= w.Times[last] {
		return w.Values[last]
	}

	i := 1
	for w.Times[i] < t {
		i++
	}
	t1, t2 := w.Times[i-1], w.Times[i]
	v1, v2 := w.Values[i-1], w.Values[i]
	return v1 + (v2-v1)*(t-t1)/(t2-t1)
}

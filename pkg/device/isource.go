package device

import (
	"fmt"

	"github.com/otcova/analog-simulator/pkg/matrix"
)

// CurrentSource drives current from n+ through the source into n-.
type CurrentSource struct {
	BaseDevice
	Wave Waveform
}

var _ Source = (*CurrentSource)(nil)

func NewCurrentSource(name string, nodeNames []string, wave Waveform) *CurrentSource {
	return &CurrentSource{
		BaseDevice: newBaseDevice(name, nodeNames, wave.Initial()),
		Wave:       wave,
	}
}

func NewDCCurrentSource(name string, nodeNames []string, value float64) *CurrentSource {
	return NewCurrentSource(name, nodeNames, DCWave(value))
}

func (i *CurrentSource) GetType() string { return "I" }

func (i *CurrentSource) GetCurrent(t float64) float64 {
	return i.Wave.At(t)
}

func (i *CurrentSource) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(i.Nodes) != 2 {
		return fmt.Errorf("current source %s: requires exactly 2 nodes", i.Name)
	}

	current := i.Value
	if status.Mode == TransientAnalysis {
		current = i.Wave.At(status.Time)
	}
	// leaves n+, enters n-
	stampCurrent(matrix, i.Nodes[0], i.Nodes[1], -current)
	return nil
}

func (i *CurrentSource) SetValue(value float64) {
	i.Value = value
	if i.Wave.Type == DC {
		i.Wave.DC = value
	}
}

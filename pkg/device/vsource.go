package device

import (
	"fmt"

	"github.com/otcova/analog-simulator/pkg/matrix"
)

// VoltageSource forces v(n+) - v(n-). Its branch unknown is the current
// entering n+ from the circuit, so a source delivering power reads negative.
type VoltageSource struct {
	BaseDevice
	Wave      Waveform
	branchIdx int
}

var (
	_ BranchDevice = (*VoltageSource)(nil)
	_ Source       = (*VoltageSource)(nil)
)

func NewVoltageSource(name string, nodeNames []string, wave Waveform) *VoltageSource {
	return &VoltageSource{
		BaseDevice: newBaseDevice(name, nodeNames, wave.Initial()),
		Wave:       wave,
	}
}

func NewDCVoltageSource(name string, nodeNames []string, value float64) *VoltageSource {
	return NewVoltageSource(name, nodeNames, DCWave(value))
}

func (v *VoltageSource) GetType() string { return "V" }

func (v *VoltageSource) GetVoltage(t float64) float64 {
	return v.Wave.At(t)
}

func (v *VoltageSource) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(v.Nodes) != 2 {
		return fmt.Errorf("voltage source %s: requires exactly 2 nodes", v.Name)
	}
	n1, n2 := v.Nodes[0], v.Nodes[1]
	bIdx := v.branchIdx

	// v1 - v2 = V
	if n1 != 0 {
		matrix.AddElement(bIdx, n1, 1)
		matrix.AddElement(n1, bIdx, 1)
	}
	if n2 != 0 {
		matrix.AddElement(bIdx, n2, -1)
		matrix.AddElement(n2, bIdx, -1)
	}

	matrix.AddRHS(bIdx, v.level(status))
	return nil
}

func (v *VoltageSource) level(status *CircuitStatus) float64 {
	if status.Mode == TransientAnalysis {
		return v.Wave.At(status.Time)
	}
	return v.Value
}

func (v *VoltageSource) BranchIndex() int {
	return v.branchIdx
}

func (v *VoltageSource) SetBranchIndex(idx int) {
	v.branchIdx = idx
}

// SetValue overrides the DC level, as a DC sweep does.
func (v *VoltageSource) SetValue(value float64) {
	v.Value = value
	if v.Wave.Type == DC {
		v.Wave.DC = value
	}
}

package device

import (
	"fmt"

	"github.com/otcova/analog-simulator/internal/consts"
	"github.com/otcova/analog-simulator/pkg/matrix"
)

type Resistor struct {
	BaseDevice
	Tc1  float64
	Tc2  float64
	Tnom float64
}

func NewResistor(name string, nodeNames []string, value float64) *Resistor {
	return &Resistor{
		BaseDevice: newBaseDevice(name, nodeNames, value),
		Tnom:       consts.TNOM,
	}
}

func (r *Resistor) GetType() string { return "R" }

func (r *Resistor) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(r.Nodes) != 2 {
		return fmt.Errorf("resistor %s: requires exactly 2 nodes", r.Name)
	}

	res := r.temperatureAdjustedValue(status.Temp)
	if res == 0 {
		return fmt.Errorf("resistor %s: zero resistance", r.Name)
	}
	stampConductance(matrix, r.Nodes[0], r.Nodes[1], 1.0/res)
	return nil
}

// Current through the resistor from node 1 to node 2.
func (r *Resistor) Current(solution []float64, temp float64) float64 {
	return voltageAcross(solution, r.Nodes[0], r.Nodes[1]) / r.temperatureAdjustedValue(temp)
}

func (r *Resistor) temperatureAdjustedValue(temp float64) float64 {
	if temp == 0 {
		return r.Value
	}
	dt := temp - r.Tnom
	factor := 1.0 + r.Tc1*dt + r.Tc2*dt*dt
	return r.Value * factor
}

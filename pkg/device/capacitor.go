package device

import (
	"fmt"

	"github.com/otcova/analog-simulator/pkg/matrix"
	"github.com/otcova/analog-simulator/pkg/solver"
	"github.com/otcova/analog-simulator/pkg/util"
)

// OpenGmin is the smallest shunt an open capacitor stamps at a DC point. It
// sits above the dense pivot tolerance so a node held only by capacitors
// still has a usable diagonal.
const OpenGmin = 10 * solver.PivotTolerance

type Capacitor struct {
	BaseDevice
	Voltage     float64 // accepted voltage at the previous time point
	prevVoltage float64 // and the one before
	current     float64
}

var _ TimeDependent = (*Capacitor)(nil)

func NewCapacitor(name string, nodeNames []string, value float64) *Capacitor {
	return &Capacitor{BaseDevice: newBaseDevice(name, nodeNames, value)}
}

func (c *Capacitor) GetType() string { return "C" }

// companion returns geq and the history current of the integration formula.
func (c *Capacitor) companion(status *CircuitStatus) (float64, float64) {
	k := util.DerivativeCoeffs(status.Method, status.TimeStep)
	hist := c.Value * k[1] * c.Voltage
	if len(k) > 2 {
		hist += c.Value * k[2] * c.prevVoltage
	}
	return c.Value * k[0], hist
}

func (c *Capacitor) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(c.Nodes) != 2 {
		return fmt.Errorf("capacitor %s: requires exactly 2 nodes", c.Name)
	}
	n1, n2 := c.Nodes[0], c.Nodes[1]

	switch status.Mode {
	case TransientAnalysis:
		if status.TimeStep <= 0 {
			return fmt.Errorf("capacitor %s: non-positive time step %g", c.Name, status.TimeStep)
		}
		// i = geq*v + hist
		geq, hist := c.companion(status)
		stampConductance(matrix, n1, n2, geq)
		stampCurrent(matrix, n1, n2, -hist)

	default:
		// Open circuit, kept from floating.
		stampConductance(matrix, n1, n2, max(status.Gmin, OpenGmin))
	}
	return nil
}

func (c *Capacitor) UpdateState(solution []float64, status *CircuitStatus) {
	vd := voltageAcross(solution, c.Nodes[0], c.Nodes[1])
	if status.Mode == TransientAnalysis && status.TimeStep > 0 {
		geq, hist := c.companion(status)
		c.current = geq*vd + hist
		c.prevVoltage = c.Voltage
	} else {
		c.current = 0
		c.prevVoltage = vd
	}
	c.Voltage = vd
}

func (c *Capacitor) Current() float64 {
	return c.current
}

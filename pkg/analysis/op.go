package analysis

import (
	"fmt"

	"github.com/otcova/analog-simulator/pkg/circuit"
	"github.com/otcova/analog-simulator/pkg/device"
)

// OperatingPoint solves the DC bias point. Capacitors are open and inductors
// shorted. Linear circuits take one solve; diodes bring in Newton iteration
// and, when that fails, gmin stepping.
type OperatingPoint struct{ BaseAnalysis }

func NewOP() *OperatingPoint {
	return &OperatingPoint{
		BaseAnalysis: *NewBaseAnalysis(),
	}
}

func (op *OperatingPoint) Setup(ckt *circuit.Circuit) error {
	return op.setup(ckt)
}

func (op *OperatingPoint) Execute() error {
	if op.Circuit == nil {
		return fmt.Errorf("circuit not set")
	}

	if err := op.bias(device.OperatingPointAnalysis); err != nil {
		return fmt.Errorf("operating point: %w", err)
	}

	op.Circuit.SetTimeStep(0)
	op.Circuit.Update()

	op.storeResults(op.Circuit.GetSolution())
	op.logSummary("op")
	return nil
}

func (op *OperatingPoint) storeResults(solution map[string]float64) {
	for name, value := range solution {
		op.results[name] = []float64{value}
	}
}

package device

import (
	"fmt"

	"github.com/otcova/analog-simulator/pkg/matrix"
	"github.com/otcova/analog-simulator/pkg/util"
)

// Inductor carries its current as an MNA branch unknown. Current flows from
// node 1 through the inductor to node 2.
type Inductor struct {
	BaseDevice
	Current     float64 // accepted current at the previous time point
	prevCurrent float64 // and the one before
	branchIdx   int
}

var (
	_ TimeDependent = (*Inductor)(nil)
	_ BranchDevice  = (*Inductor)(nil)
)

func NewInductor(name string, nodeNames []string, value float64) *Inductor {
	return &Inductor{BaseDevice: newBaseDevice(name, nodeNames, value)}
}

func (l *Inductor) GetType() string { return "L" }

func (l *Inductor) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(l.Nodes) != 2 {
		return fmt.Errorf("inductor %s: requires exactly 2 nodes", l.Name)
	}
	n1, n2 := l.Nodes[0], l.Nodes[1]
	bIdx := l.branchIdx

	if n1 != 0 {
		matrix.AddElement(n1, bIdx, 1)
		matrix.AddElement(bIdx, n1, 1)
	}
	if n2 != 0 {
		matrix.AddElement(n2, bIdx, -1)
		matrix.AddElement(bIdx, n2, -1)
	}

	if status.Mode != TransientAnalysis {
		// DC short: v1 - v2 = 0
		return nil
	}
	if status.TimeStep <= 0 {
		return fmt.Errorf("inductor %s: non-positive time step %g", l.Name, status.TimeStep)
	}

	// v1 - v2 = L * (k0*i + k1*i(n-1) + k2*i(n-2))
	k := util.DerivativeCoeffs(status.Method, status.TimeStep)
	hist := l.Value * k[1] * l.Current
	if len(k) > 2 {
		hist += l.Value * k[2] * l.prevCurrent
	}
	matrix.AddElement(bIdx, bIdx, -l.Value*k[0])
	matrix.AddRHS(bIdx, hist)
	return nil
}

func (l *Inductor) UpdateState(solution []float64, status *CircuitStatus) {
	if l.branchIdx <= 0 || l.branchIdx >= len(solution) {
		return
	}
	if status.Mode == TransientAnalysis {
		l.prevCurrent = l.Current
	} else {
		l.prevCurrent = solution[l.branchIdx]
	}
	l.Current = solution[l.branchIdx]
}

func (l *Inductor) BranchIndex() int {
	return l.branchIdx
}

func (l *Inductor) SetBranchIndex(idx int) {
	l.branchIdx = idx
}

package device

import (
	"github.com/otcova/analog-simulator/pkg/matrix"
	"github.com/otcova/analog-simulator/pkg/util"
)

type Device interface {
	GetName() string
	GetType() string
	GetNodeNames() []string
	GetNodes() []int
	Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error
	GetValue() float64
	SetNodes(nodes []int)
}

// BranchDevice owns an extra MNA row holding its branch current.
type BranchDevice interface {
	Device
	BranchIndex() int
	SetBranchIndex(idx int)
}

// Source is an independent source whose DC level can be swept.
type Source interface {
	Device
	SetValue(value float64)
}

type TimeDependent interface {
	// UpdateState latches the accepted solution (1-based, index 0 is ground)
	// as the history for the next time step.
	UpdateState(solution []float64, status *CircuitStatus)
}

// NonLinear devices are linearized around their last operating point and
// restamped on every Newton iteration.
type NonLinear interface {
	Device
	// UpdateVoltages moves the linearization point to solution and reports
	// whether the step had to be limited.
	UpdateVoltages(solution []float64, status *CircuitStatus) bool
}

type BaseDevice struct {
	Name      string
	Nodes     []int
	Value     float64
	NodeNames []string
}

type AnalysisMode int

const (
	OperatingPointAnalysis AnalysisMode = iota
	TransientAnalysis
	DCSweep
)

func (m AnalysisMode) String() string {
	switch m {
	case OperatingPointAnalysis:
		return "op"
	case TransientAnalysis:
		return "tran"
	case DCSweep:
		return "dc"
	}
	return "unknown"
}

type CircuitStatus struct {
	Time     float64
	TimeStep float64
	Gmin     float64
	Mode     AnalysisMode
	Temp     float64 // K
	Method   util.IntegrationMethod
}

func (d *BaseDevice) GetName() string {
	return d.Name
}

func (d *BaseDevice) GetNodes() []int {
	return d.Nodes
}

func (d *BaseDevice) GetNodeNames() []string {
	return d.NodeNames
}

func (d *BaseDevice) GetValue() float64 {
	return d.Value
}

func (d *BaseDevice) SetNodes(nodes []int) {
	d.Nodes = nodes
}

func newBaseDevice(name string, nodeNames []string, value float64) BaseDevice {
	return BaseDevice{
		Name:      name,
		Value:     value,
		NodeNames: nodeNames,
		Nodes:     make([]int, len(nodeNames)),
	}
}

// voltageAcross returns v(n1) - v(n2) from a 1-based solution vector.
func voltageAcross(solution []float64, n1, n2 int) float64 {
	v1, v2 := 0.0, 0.0
	if n1 > 0 && n1 < len(solution) {
		v1 = solution[n1]
	}
	if n2 > 0 && n2 < len(solution) {
		v2 = solution[n2]
	}
	return v1 - v2
}

// stampConductance adds g between n1 and n2, skipping ground.
func stampConductance(m matrix.DeviceMatrix, n1, n2 int, g float64) {
	if n1 != 0 {
		m.AddElement(n1, n1, g)
		if n2 != 0 {
			m.AddElement(n1, n2, -g)
		}
	}
	if n2 != 0 {
		if n1 != 0 {
			m.AddElement(n2, n1, -g)
		}
		m.AddElement(n2, n2, g)
	}
}

// stampCurrent injects i into n1 and draws it out of n2.
func stampCurrent(m matrix.DeviceMatrix, n1, n2 int, i float64) {
	if n1 != 0 {
		m.AddRHS(n1, i)
	}
	if n2 != 0 {
		m.AddRHS(n2, -i)
	}
}

package circuit

import (
	"fmt"
	"strings"

	"github.com/otcova/analog-simulator/internal/consts"
	"github.com/otcova/analog-simulator/pkg/device"
	"github.com/otcova/analog-simulator/pkg/matrix"
	"github.com/otcova/analog-simulator/pkg/netlist"
	"github.com/otcova/analog-simulator/pkg/util"
)

// Circuit maps a netlist onto MNA unknowns: nodes 1..N first, then one
// branch row per voltage source and inductor in netlist order.
type Circuit struct {
	name      string
	nodeMap   map[string]int
	branchMap map[string]int
	nodeNames []string // index i-1 holds node i
	devices   []device.Device
	numNodes  int
	matrix    *matrix.CircuitMatrix
	Status    *device.CircuitStatus
	Time      float64
	timeStep  float64
	method    util.IntegrationMethod
	Temp      float64 // K
}

func New(name string) *Circuit {
	return &Circuit{
		name:      name,
		nodeMap:   make(map[string]int),
		branchMap: make(map[string]int),
		devices:   make([]device.Device, 0),
		Status:    &device.CircuitStatus{},
		Temp:      consts.TNOM,
	}
}

// IsGround reports whether a node name refers to the reference node.
func IsGround(nodeName string) bool {
	return nodeName == "0" || strings.EqualFold(nodeName, "gnd")
}

func (c *Circuit) AssignNodeBranchMaps(elements []netlist.Element) error {
	grounded := false
	for _, elem := range elements {
		for _, nodeName := range elem.Nodes {
			if IsGround(nodeName) {
				grounded = true
				continue
			}
			if _, exists := c.nodeMap[nodeName]; !exists {
				c.nodeMap[nodeName] = len(c.nodeMap) + 1
				c.nodeNames = append(c.nodeNames, nodeName)
			}
		}
	}
	if len(elements) > 0 && !grounded {
		return ErrNoGround
	}

	branchStart := len(c.nodeMap) + 1
	for _, elem := range elements {
		if elem.Type == "V" || elem.Type == "L" {
			c.branchMap[elem.Name] = branchStart
			branchStart++
		}
	}

	c.numNodes = len(c.nodeMap)
	return nil
}

func (c *Circuit) CreateMatrix(opts ...matrix.Option) error {
	matrixSize := len(c.nodeMap) + len(c.branchMap)
	m, err := matrix.NewMatrix(matrixSize, opts...)
	if err != nil {
		return fmt.Errorf("creating %dx%d matrix: %w", matrixSize, matrixSize, err)
	}
	c.matrix = m
	return nil
}

func (c *Circuit) SetupDevices(elements []netlist.Element) error {
	if c.matrix == nil {
		return ErrNotBuilt
	}

	for _, elem := range elements {
		dev, err := netlist.CreateDevice(elem)
		if err != nil {
			return fmt.Errorf("creating device %s: %w", elem.Name, err)
		}

		nodeIndices := make([]int, len(elem.Nodes))
		for i, nodeName := range elem.Nodes {
			if IsGround(nodeName) {
				continue
			}
			nodeIndices[i] = c.nodeMap[nodeName]
		}
		dev.SetNodes(nodeIndices)

		if b, ok := dev.(device.BranchDevice); ok {
			b.SetBranchIndex(c.branchMap[elem.Name])
		}

		c.devices = append(c.devices, dev)
	}

	// Trial stamp catches device errors before any analysis runs.
	if err := c.Stamp(&device.CircuitStatus{Mode: device.OperatingPointAnalysis, Temp: c.Temp}); err != nil {
		return fmt.Errorf("initial stamping failed: %w", err)
	}
	c.matrix.Clear()
	return nil
}

func (c *Circuit) Stamp(status *device.CircuitStatus) error {
	for _, dev := range c.devices {
		if err := dev.Stamp(c.matrix, status); err != nil {
			return fmt.Errorf("stamping device %s: %w", dev.GetName(), err)
		}
	}
	return nil
}

func (c *Circuit) SetTimeStep(dt float64) {
	c.timeStep = dt
}

// SetMethod selects the integration formula Update uses for the step.
func (c *Circuit) SetMethod(method util.IntegrationMethod) {
	c.method = method
}

// Update latches the current solution into every time-dependent device.
func (c *Circuit) Update() {
	solution := c.matrix.Solution()

	c.Status = &device.CircuitStatus{
		Time:     c.Time,
		TimeStep: c.timeStep,
		Mode:     device.TransientAnalysis,
		Temp:     c.Temp,
		Method:   c.method,
	}
	if c.timeStep == 0 {
		c.Status.Mode = device.OperatingPointAnalysis
	}

	for _, dev := range c.devices {
		if td, ok := dev.(device.TimeDependent); ok {
			td.UpdateState(solution, c.Status)
		}
	}
}

// HasNonLinear reports whether any device needs Newton iteration.
func (c *Circuit) HasNonLinear() bool {
	for _, dev := range c.devices {
		if _, ok := dev.(device.NonLinear); ok {
			return true
		}
	}
	return false
}

// UpdateNonLinear relinearizes every nonlinear device around solution and
// reports whether any of them limited its step.
func (c *Circuit) UpdateNonLinear(solution []float64, status *device.CircuitStatus) bool {
	limited := false
	for _, dev := range c.devices {
		if nl, ok := dev.(device.NonLinear); ok {
			if nl.UpdateVoltages(solution, status) {
				limited = true
			}
		}
	}
	return limited
}

// FindSource looks up an independent source by name, case-insensitively.
func (c *Circuit) FindSource(name string) (device.Source, error) {
	for _, dev := range c.devices {
		if !strings.EqualFold(dev.GetName(), name) {
			continue
		}
		if src, ok := dev.(device.Source); ok {
			return src, nil
		}
		return nil, fmt.Errorf("%w: %s is a %s", ErrUnknownSource, name, dev.GetType())
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
}

func (c *Circuit) GetMatrix() *matrix.CircuitMatrix {
	return c.matrix
}

func (c *Circuit) GetNodeMap() map[string]int {
	return c.nodeMap
}

func (c *Circuit) GetBranchMap() map[string]int {
	return c.branchMap
}

func (c *Circuit) GetDevices() []device.Device {
	return c.devices
}

// GetSolution names the current solution: V(node) for every node, I(x) for
// branch devices, resistors, capacitors and diodes.
func (c *Circuit) GetSolution() map[string]float64 {
	solution := make(map[string]float64)
	matrixSolution := c.matrix.Solution()

	for name, idx := range c.nodeMap {
		solution[fmt.Sprintf("V(%s)", name)] = matrixSolution[idx]
	}

	for name, idx := range c.branchMap {
		solution[fmt.Sprintf("I(%s)", name)] = matrixSolution[idx]
	}

	for _, dev := range c.devices {
		switch d := dev.(type) {
		case *device.Resistor:
			solution[fmt.Sprintf("I(%s)", d.GetName())] = d.Current(matrixSolution, c.Temp)
		case *device.Capacitor:
			solution[fmt.Sprintf("I(%s)", d.GetName())] = d.Current()
		case *device.Diode:
			solution[fmt.Sprintf("I(%s)", d.GetName())] = d.Current()
		}
	}

	return solution
}

func (c *Circuit) Destroy() {
	if c.matrix != nil {
		c.matrix.Destroy()
	}
}

func (c *Circuit) Name() string {
	return c.name
}

func (c *Circuit) GetNumNodes() int {
	return c.numNodes
}

// NodeNames lists non-ground nodes in index order.
func (c *Circuit) NodeNames() []string {
	return c.nodeNames
}

func (c *Circuit) GetNodeVoltage(nodeIdx int) float64 {
	if nodeIdx <= 0 || c.matrix == nil {
		return 0
	}

	solution := c.matrix.Solution()
	if nodeIdx >= len(solution) {
		return 0
	}
	return solution[nodeIdx]
}

// FromNetlist maps, sizes and populates a circuit in one go.
func FromNetlist(data *netlist.NetlistData, opts ...matrix.Option) (*Circuit, error) {
	ckt := New(data.Title)
	if err := ckt.AssignNodeBranchMaps(data.Elements); err != nil {
		return nil, fmt.Errorf("error node, branch map: %w", err)
	}
	if err := ckt.CreateMatrix(opts...); err != nil {
		return nil, err
	}
	if err := ckt.SetupDevices(data.Elements); err != nil {
		ckt.Destroy()
		return nil, fmt.Errorf("error device setup: %w", err)
	}
	return ckt, nil
}

package circuit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otcova/analog-simulator/pkg/circuit"
	"github.com/otcova/analog-simulator/pkg/device"
	"github.com/otcova/analog-simulator/pkg/matrix"
	"github.com/otcova/analog-simulator/pkg/netlist"
)

func build(t *testing.T, src string, opts ...matrix.Option) *circuit.Circuit {
	t.Helper()
	data, err := netlist.Parse(src)
	require.NoError(t, err)
	ckt, err := circuit.FromNetlist(data, opts...)
	require.NoError(t, err)
	t.Cleanup(ckt.Destroy)
	return ckt
}

func TestNodeBranchMaps(t *testing.T) {
	ckt := build(t, "maps\nV1 a 0 1\nR1 a b 1k\nL1 b c 1m\nR2 c GND 1k\n")

	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3}, ckt.GetNodeMap())
	assert.Equal(t, map[string]int{"V1": 4, "L1": 5}, ckt.GetBranchMap())
	assert.Equal(t, []string{"a", "b", "c"}, ckt.NodeNames())
	assert.Equal(t, 3, ckt.GetNumNodes())
	assert.Equal(t, 5, ckt.GetMatrix().Size)
	assert.Equal(t, "maps", ckt.Name())
	assert.Len(t, ckt.GetDevices(), 4)
}

func TestNoGround(t *testing.T) {
	data, err := netlist.Parse("floating\nR1 1 2 1k\n")
	require.NoError(t, err)
	_, err = circuit.FromNetlist(data)
	assert.ErrorIs(t, err, circuit.ErrNoGround)
}

func TestSetupBeforeMatrix(t *testing.T) {
	ckt := circuit.New("x")
	assert.ErrorIs(t, ckt.SetupDevices(nil), circuit.ErrNotBuilt)
}

func TestSolution(t *testing.T) {
	for _, backend := range matrix.Backends() {
		t.Run(backend, func(t *testing.T) {
			ckt := build(t, "divider\nV1 1 0 10\nR1 1 2 1k\nR2 2 0 1k\nL1 2 3 1m\nR3 3 0 1meg\n", matrix.WithBackend(backend))

			require.NoError(t, ckt.Stamp(&device.CircuitStatus{Mode: device.OperatingPointAnalysis, Temp: ckt.Temp}))
			require.NoError(t, ckt.GetMatrix().Solve())

			sol := ckt.GetSolution()
			// R2 || R3 through a shorted inductor
			r := 1e3 * 1e6 / (1e3 + 1e6)
			v2 := 10 * r / (1e3 + r)
			assert.InDelta(t, 10, sol["V(1)"], 1e-9)
			assert.InDelta(t, v2, sol["V(2)"], 1e-9)
			assert.InDelta(t, v2, sol["V(3)"], 1e-9)
			assert.InDelta(t, -(10-v2)/1e3, sol["I(V1)"], 1e-12)
			assert.InDelta(t, (10-v2)/1e3, sol["I(R1)"], 1e-12)
			assert.InDelta(t, v2/1e6, sol["I(L1)"], 1e-12)
			assert.Equal(t, sol["V(2)"], ckt.GetNodeVoltage(2))
			assert.Equal(t, 0.0, ckt.GetNodeVoltage(0))
			assert.Equal(t, 0.0, ckt.GetNodeVoltage(99))
		})
	}
}

func TestFindSource(t *testing.T) {
	ckt := build(t, "src\nV1 1 0 1\nI1 1 0 1m\nR1 1 0 1k\n")

	src, err := ckt.FindSource("v1")
	require.NoError(t, err)
	assert.Equal(t, "V1", src.GetName())

	_, err = ckt.FindSource("I1")
	assert.NoError(t, err)

	_, err = ckt.FindSource("R1")
	assert.ErrorIs(t, err, circuit.ErrUnknownSource)
	_, err = ckt.FindSource("V9")
	assert.ErrorIs(t, err, circuit.ErrUnknownSource)
}

func TestUpdateLatchesCapacitor(t *testing.T) {
	ckt := build(t, "rc\nV1 1 0 5\nR1 1 2 1k\nC1 2 0 1u\n")
	require.NoError(t, ckt.Stamp(&device.CircuitStatus{Mode: device.OperatingPointAnalysis, Gmin: 1e-12}))
	require.NoError(t, ckt.GetMatrix().Solve())

	ckt.SetTimeStep(0)
	ckt.Update()

	var c *device.Capacitor
	for _, dev := range ckt.GetDevices() {
		if cc, ok := dev.(*device.Capacitor); ok {
			c = cc
		}
	}
	require.NotNil(t, c)
	assert.InDelta(t, 5, c.Voltage, 1e-6)
	assert.Equal(t, device.OperatingPointAnalysis, ckt.Status.Mode)
}

func TestUpdateNonLinear(t *testing.T) {
	assert.False(t, build(t, "rc\nV1 1 0 5\nR1 1 2 1k\nC1 2 0 1u\n").HasNonLinear())

	ckt := build(t, "d\nV1 1 0 5\nR1 1 2 1k\nD1 2 0\n")
	require.True(t, ckt.HasNonLinear())

	status := &device.CircuitStatus{Mode: device.OperatingPointAnalysis, Gmin: 1e-12, Temp: 300.15}
	// a 5 V jump across the junction is limited, 0.5 V is not
	assert.True(t, ckt.UpdateNonLinear([]float64{0, 5, 5, 0}, status))
	assert.False(t, ckt.UpdateNonLinear([]float64{0, 5, 0.5, 0}, status))
}

package netlist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otcova/analog-simulator/pkg/device"
	"github.com/otcova/analog-simulator/pkg/netlist"
)

func TestParseValue(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want float64
	}{
		{"10", 10},
		{"-2.5", -2.5},
		{".5", 0.5},
		{"1e3", 1000},
		{"4.7k", 4700},
		{"4.7K", 4700},
		{"2meg", 2e6},
		{"2MEG", 2e6},
		{"3m", 3e-3},
		{"10uF", 10e-6},
		{"100n", 100e-9},
		{"5p", 5e-12},
		{"1f", 1e-15},
		{"1G", 1e9},
		{"2T", 2e12},
		{"5V", 5},
		{"1ms", 1e-3},
		{"1s", 1},
	} {
		got, err := netlist.ParseValue(tc.in)
		require.NoError(t, err, tc.in)
		assert.InDelta(t, tc.want, got, 1e-9*max(1, tc.want), tc.in)
	}

	for _, bad := range []string{"", "abc", "1.2.3", "k1", "1 k"} {
		_, err := netlist.ParseValue(bad)
		assert.ErrorIs(t, err, netlist.ErrSyntax, bad)
	}
}

const divider = `Voltage divider
* comment line
V1 in 0 DC 10
R1 in out 1k ; inline comment
R2 out 0
+ 1k
.op
.end
R3 ignored 0 1
`

func TestParseDivider(t *testing.T) {
	data, err := netlist.Parse(divider)
	require.NoError(t, err)

	assert.Equal(t, "Voltage divider", data.Title)
	assert.Equal(t, netlist.AnalysisOP, data.Analysis)
	require.Len(t, data.Elements, 3)

	assert.Equal(t, netlist.Element{
		Type: "V", Name: "V1", Nodes: []string{"in", "0"}, Value: 10,
		Params: map[string]string{"type": "dc"},
	}, data.Elements[0])
	assert.Equal(t, 1000.0, data.Elements[2].Value)
	assert.Equal(t, map[string]int{"in": 0, "0": 1, "out": 2}, data.Nodes)
}

func TestParseTran(t *testing.T) {
	data, err := netlist.Parse("rc\nV1 1 0 PULSE(0 5 0 1n 1n 1u 2u)\nR1 1 2 1k\nC1 2 0 1n\n.tran 10n 5u 1u uic\n")
	require.NoError(t, err)

	assert.Equal(t, netlist.AnalysisTRAN, data.Analysis)
	p := data.TranParam
	assert.InDelta(t, 10e-9, p.TStep, 1e-21)
	assert.InDelta(t, 5e-6, p.TStop, 1e-18)
	assert.InDelta(t, 1e-6, p.TStart, 1e-18)
	assert.Equal(t, p.TStep, p.TMax)
	assert.True(t, p.UIC)
	assert.Equal(t, "pulse", data.Elements[0].Params["type"])
	assert.Equal(t, "0 5 0 1n 1n 1u 2u", data.Elements[0].Params["args"])
}

func TestParseDC(t *testing.T) {
	data, err := netlist.Parse("sweep\nV1 1 0 0\nI1 0 1 1m\nR1 1 0 1k\n.dc V1 0 5 1 I1 0 2m 1m\n")
	require.NoError(t, err)

	assert.Equal(t, netlist.AnalysisDC, data.Analysis)
	assert.True(t, data.DCParam.Nested())
	assert.Equal(t, "V1", data.DCParam.Source1)
	assert.Equal(t, 5.0, data.DCParam.Stop1)
	assert.Equal(t, "I1", data.DCParam.Source2)
	assert.InDelta(t, 1e-3, data.DCParam.Increment2, 1e-18)

	data, err = netlist.Parse("sweep\nV1 1 0 0\nR1 1 0 1k\n.dc V1 0 5 1\n")
	require.NoError(t, err)
	assert.False(t, data.DCParam.Nested())
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
	}{
		{"unknown element", "t\nQ1 1 2 3 model\n"},
		{"short element", "t\nR1 1 0\n"},
		{"bad value", "t\nR1 1 0 abc\n"},
		{"zero resistor", "t\nR1 1 0 0\n"},
		{"self loop", "t\nR1 1 1 1k\n"},
		{"duplicate", "t\nR1 1 0 1k\nr1 1 0 2k\n"},
		{"unknown directive", "t\n.ac dec 10 1 1k\n"},
		{"short tran", "t\n.tran 1n\n"},
		{"tstart past stop", "t\n.tran 1n 1u 2u\n"},
		{"dc arity", "t\n.dc V1 0 1\n"},
		{"dc zero step", "t\n.dc V1 0 1 0\n"},
		{"dc wrong direction", "t\n.dc V1 0 1 -1\n"},
		{"dangling continuation", "t\n+ 1k\n"},
		{"bad source", "t\nV1 1 0 AC 1\n"},
		{"empty sin", "t\nV1 1 0 SIN()\n"},
		{"short diode", "t\nD1 1\n"},
		{"diode stray field", "t\nD1 1 0 DMOD extra\n.model DMOD D\n"},
		{"undefined model", "t\nD1 1 0 DMOD\n"},
		{"model without type", "t\n.model DMOD\n"},
		{"unsupported model type", "t\n.model QMOD NPN(BF=100)\n"},
		{"bad model pair", "t\n.model DMOD D(IS)\n"},
		{"duplicate model", "t\n.model DMOD D\n.model dmod D(N=2)\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := netlist.Parse(tc.input)
			assert.ErrorIs(t, err, netlist.ErrSyntax)
		})
	}
}

func TestParseErrorReportsLine(t *testing.T) {
	_, err := netlist.Parse("t\nR1 1 0 1k\n\n* c\nR2 1 0 bad\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 5")
}

func TestCreateDevice(t *testing.T) {
	data, err := netlist.Parse(`devices
R1 1 0 1k tc1=1m
C1 1 0 1u
L1 1 2 1m
V1 2 0 SIN(1 2 1k)
V2 3 0 PWL(0 0 1m 5)
I1 3 0 PULSE(0 1m)
`)
	require.NoError(t, err)

	devs := make(map[string]device.Device)
	for _, elem := range data.Elements {
		dev, err := netlist.CreateDevice(elem)
		require.NoError(t, err, elem.Name)
		devs[elem.Name] = dev
	}

	r := devs["R1"].(*device.Resistor)
	assert.Equal(t, 1e-3, r.Tc1)
	assert.Equal(t, "C", devs["C1"].GetType())
	assert.Implements(t, (*device.BranchDevice)(nil), devs["L1"])

	v1 := devs["V1"].(*device.VoltageSource)
	assert.Equal(t, device.SIN, v1.Wave.Type)
	assert.Equal(t, 1.0, v1.GetValue())

	v2 := devs["V2"].(*device.VoltageSource)
	assert.Equal(t, []float64{0, 1e-3}, v2.Wave.Times)
	assert.InDelta(t, 2.5, v2.GetVoltage(0.5e-3), 1e-12)

	i1 := devs["I1"].(*device.CurrentSource)
	assert.Equal(t, device.PULSE, i1.Wave.Type)
	assert.Equal(t, 1e-3, i1.Wave.V2)
}

func TestCreateDeviceErrors(t *testing.T) {
	for _, elem := range []netlist.Element{
		{Type: "V", Name: "V1", Nodes: []string{"1", "0"}, Params: map[string]string{"type": "sin", "args": "1 2"}},
		{Type: "V", Name: "V1", Nodes: []string{"1", "0"}, Params: map[string]string{"type": "pulse", "args": "1"}},
		{Type: "V", Name: "V1", Nodes: []string{"1", "0"}, Params: map[string]string{"type": "pulse", "args": "0 1 -1"}},
		{Type: "I", Name: "I1", Nodes: []string{"1", "0"}, Params: map[string]string{"type": "pwl", "args": "0 1 2"}},
		{Type: "I", Name: "I1", Nodes: []string{"1", "0"}, Params: map[string]string{"type": "pwl", "args": "1 1 0 2"}},
		{Type: "I", Name: "I1", Nodes: []string{"1", "0"}, Params: map[string]string{"type": "exp"}},
		{Type: "R", Name: "R1", Nodes: []string{"1", "0"}, Value: 1, Params: map[string]string{"tc2": "x"}},
		{Type: "D", Name: "D1", Nodes: []string{"1", "0"}, Model: map[string]float64{"rs": 10}},
		{Type: "D", Name: "D1", Nodes: []string{"1", "0"}, Model: map[string]float64{"n": 0}},
	} {
		_, err := netlist.CreateDevice(elem)
		assert.ErrorIs(t, err, netlist.ErrSyntax, "%+v", elem)
	}
}

func TestParseDiodeModels(t *testing.T) {
	data, err := netlist.Parse(`diodes
V1 1 0 5
R1 1 2 1k
D1 2 0 DMOD
D2 2 0 dmod n=2
D3 2 0
.model DMOD D(IS=1e-12 N=1.5)
.model SLOW D is=1f xti=2
`)
	require.NoError(t, err)

	require.Len(t, data.Models, 2)
	assert.Equal(t, netlist.Model{Type: "D", Name: "SLOW", Params: map[string]float64{"is": 1e-15, "xti": 2}}, data.Models["slow"])

	// models may follow the element that names them
	d1 := data.Elements[2]
	assert.Equal(t, "D", d1.Type)
	assert.Equal(t, map[string]float64{"is": 1e-12, "n": 1.5}, d1.Model)
	assert.Equal(t, map[string]float64{"is": 1e-12, "n": 2}, data.Elements[3].Model)
	assert.Empty(t, data.Elements[4].Model)

	dev, err := netlist.CreateDevice(data.Elements[3])
	require.NoError(t, err)
	d2 := dev.(*device.Diode)
	assert.Equal(t, 1e-12, d2.Is)
	assert.Equal(t, 2.0, d2.N)

	dev, err = netlist.CreateDevice(data.Elements[4])
	require.NoError(t, err)
	assert.Equal(t, 1e-14, dev.(*device.Diode).Is)
}

package device

import (
	"fmt"
	"math"
	"strings"

	"github.com/otcova/analog-simulator/internal/consts"
	"github.com/otcova/analog-simulator/pkg/matrix"
)

// maxExpArg keeps exp() finite when Newton overshoots.
const maxExpArg = 40.0

// Diode is a junction diode without charge storage. It is linearized around
// vd each Newton iteration: a conductance gd in parallel with a current
// source id - gd*vd.
type Diode struct {
	BaseDevice
	Is   float64 // Saturation current
	N    float64 // Emission coefficient
	Eg   float64 // Energy gap (eV)
	Xti  float64 // Saturation current temperature exponent
	Gmin float64 // Junction shunt conductance
	Tnom float64 // Parameter measurement temperature (K)

	vd float64 // Linearization voltage
	id float64
	gd float64
}

var _ NonLinear = (*Diode)(nil)

func NewDiode(name string, nodeNames []string) *Diode {
	return &Diode{
		BaseDevice: newBaseDevice(name, nodeNames, 0),
		Is:         1e-14,
		N:          1.0,
		Eg:         1.11,
		Xti:        3.0,
		Gmin:       1e-12,
		Tnom:       consts.TNOM,
	}
}

func (d *Diode) GetType() string { return "D" }

// SetModelParameters applies .model values. Keys are lower case.
func (d *Diode) SetModelParameters(params map[string]float64) error {
	for key, value := range params {
		switch strings.ToLower(key) {
		case "is":
			d.Is = value
		case "n":
			d.N = value
		case "eg":
			d.Eg = value
		case "xti":
			d.Xti = value
		case "gmin":
			d.Gmin = value
		default:
			return fmt.Errorf("diode %s: unsupported model parameter %q", d.Name, key)
		}
	}
	if d.Is <= 0 || d.N <= 0 {
		return fmt.Errorf("diode %s: is and n must be positive", d.Name)
	}
	return nil
}

func (d *Diode) thermalVoltage(temp float64) float64 {
	if temp <= 0 {
		temp = d.Tnom
	}
	return consts.BOLTZMANN * temp / consts.CHARGE
}

// saturationCurrent scales Is from Tnom to temp.
func (d *Diode) saturationCurrent(temp float64) float64 {
	if temp <= 0 || temp == d.Tnom {
		return d.Is
	}
	ratio := temp / d.Tnom
	vt := d.thermalVoltage(temp)
	return d.Is * math.Pow(ratio, d.Xti/d.N) * math.Exp((ratio-1)*d.Eg/(d.N*vt))
}

// evaluate returns the junction current and its derivative at vd.
func (d *Diode) evaluate(vd, temp float64) (float64, float64) {
	nvt := d.N * d.thermalVoltage(temp)
	isT := d.saturationCurrent(temp)

	if vd >= -3*nvt {
		e := math.Exp(math.Min(vd/nvt, maxExpArg))
		return isT*(e-1) + d.Gmin*vd, isT*e/nvt + d.Gmin
	}
	// Strong reverse bias
	return -isT + d.Gmin*vd, d.Gmin
}

func (d *Diode) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(d.Nodes) != 2 {
		return fmt.Errorf("diode %s: requires exactly 2 nodes", d.Name)
	}
	n1, n2 := d.Nodes[0], d.Nodes[1]

	d.id, d.gd = d.evaluate(d.vd, status.Temp)
	stampConductance(matrix, n1, n2, d.gd)
	stampCurrent(matrix, n1, n2, -(d.id - d.gd*d.vd))
	return nil
}

// UpdateVoltages moves the linearization point to the new solution. Large
// forward steps are compressed logarithmically, the way SPICE limits pn
// junctions; the return value reports whether that happened.
func (d *Diode) UpdateVoltages(solution []float64, status *CircuitStatus) bool {
	vnew := voltageAcross(solution, d.Nodes[0], d.Nodes[1])
	vold := d.vd

	nvt := d.N * d.thermalVoltage(status.Temp)
	vcrit := nvt * math.Log(nvt/(math.Sqrt2*d.saturationCurrent(status.Temp)))

	limited := false
	if vnew > vcrit && math.Abs(vnew-vold) > 2*nvt {
		if vold > 0 {
			arg := 1 + (vnew-vold)/nvt
			if arg > 0 {
				vnew = vold + nvt*math.Log(arg)
			} else {
				vnew = vcrit
			}
		} else {
			vnew = nvt * math.Log(vnew/nvt)
		}
		limited = true
	}

	d.vd = vnew
	return limited
}

// Current through the junction from anode to cathode at the last
// linearization point.
func (d *Diode) Current() float64 {
	return d.id
}

func (d *Diode) Voltage() float64 {
	return d.vd
}

package consts

const (
	CHARGE    = 1.6021918e-19 // Elementary charge (C)
	BOLTZMANN = 1.3806226e-23 // Boltzmann constant (J/K)
	KELVIN    = 273.15        // 0 degC in K
	TNOM      = KELVIN + 27.0 // Nominal device temperature (K)
)

// CelsiusToKelvin converts a netlist temperature to the device scale.
func CelsiusToKelvin(c float64) float64 {
	return c + KELVIN
}

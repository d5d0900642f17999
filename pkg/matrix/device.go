package matrix

// DeviceMatrix is the stamping surface devices see. Indices are 1-based;
// index 0 is ground and never stamped.
type DeviceMatrix interface {
	AddElement(i, j int, value float64)
	AddRHS(i int, value float64)
}

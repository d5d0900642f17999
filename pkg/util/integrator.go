package util

import (
	"fmt"
	"strings"
)

type IntegrationMethod int

const (
	// BackwardEuler is first order and L-stable. It is the default.
	BackwardEuler IntegrationMethod = iota
	// Gear2 is the second order backward differentiation formula.
	Gear2
)

func (m IntegrationMethod) String() string {
	switch m {
	case BackwardEuler:
		return "be"
	case Gear2:
		return "gear2"
	}
	return "unknown"
}

// Order is the number of past points the method reads.
func (m IntegrationMethod) Order() int {
	if m == Gear2 {
		return 2
	}
	return 1
}

// ParseIntegrationMethod accepts the String forms plus "euler" and "gear".
func ParseIntegrationMethod(s string) (IntegrationMethod, error) {
	switch strings.ToLower(s) {
	case "", "be", "euler":
		return BackwardEuler, nil
	case "gear2", "gear", "bdf2":
		return Gear2, nil
	}
	return BackwardEuler, fmt.Errorf("unknown integration method %q", s)
}

// DerivativeCoeffs returns c such that dx/dt at step n is approximated by
// c[0]*x(n) + c[1]*x(n-1) + ... for a fixed step dt. c[0] is the companion
// conductance scale of a capacitor (C*c[0]) or resistance of an inductor.
func DerivativeCoeffs(method IntegrationMethod, dt float64) []float64 {
	switch method {
	case Gear2:
		return []float64{1.5 / dt, -2 / dt, 0.5 / dt}
	default:
		return []float64{1 / dt, -1 / dt}
	}
}

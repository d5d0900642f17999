package analysis

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/otcova/analog-simulator/pkg/circuit"
	"github.com/otcova/analog-simulator/pkg/device"
	"github.com/otcova/analog-simulator/pkg/matrix"
)

const (
	DefaultGmin    = 1e-12
	DefaultMaxIter = 100

	// gmin stepping starts at size*1e-3*10^gminSteps and divides by ten.
	gminSteps = 10
)

var (
	ErrTooManyPoints = errors.New("analysis: result exceeds the point limit")
	ErrNoConvergence = errors.New("analysis: newton iteration did not converge")
)

type Analysis interface {
	Setup(ckt *circuit.Circuit) error
	Execute() error
	GetResults() map[string][]float64
}

type BaseAnalysis struct {
	Circuit *circuit.Circuit
	Gmin    float64 // shunt conductance on every node equation
	// MaxPoints caps stored points per run; zero means unlimited.
	MaxPoints int
	// Logger receives solve statistics; nil keeps the analysis silent.
	Logger *log.Logger
	// MaxIter bounds Newton iterations per point.
	MaxIter int

	convergence struct {
		abstol float64
		reltol float64
	}

	results map[string][]float64 // key: variable name, value: result by point
}

func NewBaseAnalysis() *BaseAnalysis {
	ba := &BaseAnalysis{
		Gmin:    DefaultGmin,
		MaxIter: DefaultMaxIter,
		results: make(map[string][]float64),
	}
	ba.convergence.abstol = 1e-12
	ba.convergence.reltol = 1e-6
	return ba
}

func (a *BaseAnalysis) setup(ckt *circuit.Circuit) error {
	if ckt == nil || ckt.GetMatrix() == nil {
		return circuit.ErrNotBuilt
	}
	a.Circuit = ckt
	return nil
}

func (a *BaseAnalysis) checkPoints(n int) error {
	if a.MaxPoints > 0 && n > a.MaxPoints {
		return fmt.Errorf("%w: %d points, limit %d", ErrTooManyPoints, n, a.MaxPoints)
	}
	return nil
}

func (a *BaseAnalysis) status(mode device.AnalysisMode) *device.CircuitStatus {
	return &device.CircuitStatus{
		Mode: mode,
		Gmin: a.Gmin,
		Temp: a.Circuit.Temp,
	}
}

// solve assembles the circuit under status and solves it once.
func (a *BaseAnalysis) solve(status *device.CircuitStatus) error {
	ckt := a.Circuit
	mat := ckt.GetMatrix()

	mat.Clear()
	if err := ckt.Stamp(status); err != nil {
		return err
	}
	mat.LoadGmin(status.Gmin, ckt.GetNumNodes())

	if err := mat.Solve(); err != nil {
		return fmt.Errorf("matrix solve error: %w", err)
	}
	return nil
}

// newton solves the circuit under status. Linear circuits take one solve;
// otherwise nonlinear devices are relinearized around each solution until
// two consecutive solutions agree and no device limited its step.
func (a *BaseAnalysis) newton(status *device.CircuitStatus) error {
	ckt := a.Circuit
	if !ckt.HasNonLinear() {
		return a.solve(status)
	}

	var oldSolution []float64
	for iter := range a.MaxIter {
		limited := false
		// First iteration keeps the devices' previous operating point
		if iter > 0 {
			limited = ckt.UpdateNonLinear(oldSolution, status)
		}

		if err := a.solve(status); err != nil {
			return err
		}
		solution := ckt.GetMatrix().Solution()

		if iter > 0 && !limited && a.converged(solution, oldSolution) {
			return nil
		}
		oldSolution = append(oldSolution[:0], solution...)
	}
	return fmt.Errorf("%w in %d iterations", ErrNoConvergence, a.MaxIter)
}

func (a *BaseAnalysis) converged(solution, oldSolution []float64) bool {
	for i := 1; i < len(solution); i++ {
		diff := math.Abs(solution[i] - oldSolution[i])
		tol := a.convergence.reltol*math.Max(math.Abs(solution[i]), math.Abs(oldSolution[i])) + a.convergence.abstol
		if diff > tol {
			return false
		}
	}
	return true
}

// bias finds a DC solution, falling back to gmin stepping when plain
// Newton fails to converge or meets a singular matrix.
func (a *BaseAnalysis) bias(mode device.AnalysisMode) error {
	err := a.newton(a.status(mode))
	if err == nil || !retryable(err) {
		return err
	}
	a.logf("%s: %v, gmin stepping", mode, err)

	gmin := float64(a.Circuit.GetMatrix().Size) * 1e-3 * math.Pow(10, gminSteps)
	for i := 0; i <= gminSteps; i++ {
		status := a.status(mode)
		status.Gmin = max(gmin, a.Gmin)
		if err := a.newton(status); err != nil {
			return fmt.Errorf("gmin stepping failed at %g: %w", status.Gmin, err)
		}
		gmin /= 10
	}

	if err := a.newton(a.status(mode)); err != nil {
		return fmt.Errorf("final solution after gmin stepping: %w", err)
	}
	return nil
}

func retryable(err error) bool {
	return errors.Is(err, ErrNoConvergence) || errors.Is(err, matrix.ErrSingular)
}

func (a *BaseAnalysis) logf(format string, args ...any) {
	if a.Logger != nil {
		a.Logger.Printf(format, args...)
	}
}

func (a *BaseAnalysis) logSummary(name string) {
	mat := a.Circuit.GetMatrix()
	a.logf("%s: %d solves, %dx%d system, backend %s, skip rows %d",
		name, mat.Solves(), mat.Size, mat.Size, mat.BackendName(), mat.LastSkipRows())
}

func (a *BaseAnalysis) StoreTimeResult(time float64, solution map[string]float64) {
	// Ignore a repeated time point
	if times := a.results["TIME"]; len(times) > 0 {
		lastTime := times[len(times)-1]
		if math.Abs(time-lastTime) <= 1e-9*math.Abs(time) {
			return
		}
	}

	a.results["TIME"] = append(a.results["TIME"], time)
	a.storeSolution(solution)
}

// StoreSweepResult appends one DC sweep point. values[i] goes to SWEEP<i+1>.
func (a *BaseAnalysis) StoreSweepResult(values []float64, solution map[string]float64) {
	for i, v := range values {
		key := fmt.Sprintf("SWEEP%d", i+1)
		a.results[key] = append(a.results[key], v)
	}
	a.storeSolution(solution)
}

func (a *BaseAnalysis) storeSolution(solution map[string]float64) {
	for name, value := range solution {
		a.results[name] = append(a.results[name], value)
	}
}

func (a *BaseAnalysis) GetResults() map[string][]float64 {
	return a.results
}

package analysis

import (
	"fmt"
	"math"

	"github.com/otcova/analog-simulator/pkg/circuit"
	"github.com/otcova/analog-simulator/pkg/device"
	"github.com/otcova/analog-simulator/pkg/util"
)

// Transient integrates with a fixed step. Time points are n*h from zero;
// the last step is shortened to land on stopTime.
type Transient struct {
	BaseAnalysis
	// Method is the integration formula. Gear2 starts with one backward
	// Euler step and falls back to it on the shortened last step.
	Method util.IntegrationMethod

	op        *OperatingPoint
	startTime float64
	stopTime  float64
	timeStep  float64
	useUIC    bool
}

func NewTransient(tStart, tStop, tStep, tMax float64, uic bool) *Transient {
	if tMax > 0 && tMax < tStep {
		tStep = tMax
	}

	return &Transient{
		BaseAnalysis: *NewBaseAnalysis(),
		op:           NewOP(),
		startTime:    tStart,
		stopTime:     tStop,
		timeStep:     tStep,
		useUIC:       uic,
	}
}

func (tr *Transient) steps() int {
	return int(math.Ceil(tr.stopTime/tr.timeStep - 1e-9))
}

func (tr *Transient) Setup(ckt *circuit.Circuit) error {
	if tr.timeStep <= 0 || tr.stopTime <= 0 {
		return fmt.Errorf("invalid transient timing: step %g, stop %g", tr.timeStep, tr.stopTime)
	}
	if err := tr.setup(ckt); err != nil {
		return err
	}
	if err := tr.checkPoints(tr.steps() + 1); err != nil {
		return err
	}

	ckt.Time = 0
	if tr.useUIC {
		return nil
	}

	// Initial state from the bias point
	tr.op.Gmin = tr.Gmin
	tr.op.MaxIter = tr.MaxIter
	tr.op.Logger = tr.Logger
	if err := tr.op.Setup(ckt); err != nil {
		return fmt.Errorf("operating point setup error: %w", err)
	}
	if err := tr.op.Execute(); err != nil {
		return fmt.Errorf("operating point analysis error: %w", err)
	}
	return nil
}

func (tr *Transient) Execute() error {
	if tr.Circuit == nil {
		return fmt.Errorf("circuit not set")
	}
	ckt := tr.Circuit

	if !tr.useUIC && tr.startTime == 0 {
		tr.StoreTimeResult(0, ckt.GetSolution())
	}

	prev := 0.0
	n := tr.steps()
	for i := 1; i <= n; i++ {
		t := math.Min(float64(i)*tr.timeStep, tr.stopTime)
		h := t - prev

		status := tr.status(device.TransientAnalysis)
		status.Time = t
		status.TimeStep = h
		status.Method = tr.stepMethod(i, h)
		ckt.Time = t
		ckt.SetTimeStep(h)
		ckt.SetMethod(status.Method)

		if err := tr.newton(status); err != nil {
			return fmt.Errorf("at t=%g: %w", t, err)
		}
		ckt.Update()

		if t >= tr.startTime {
			tr.StoreTimeResult(t, ckt.GetSolution())
		}
		prev = t
	}

	tr.logSummary("tran " + tr.Method.String())
	return nil
}

// stepMethod picks the formula for step i of size h. Multistep formulas
// need Order equal steps of history.
func (tr *Transient) stepMethod(i int, h float64) util.IntegrationMethod {
	if i < tr.Method.Order() || math.Abs(h-tr.timeStep) > 1e-9*tr.timeStep {
		return util.BackwardEuler
	}
	return tr.Method
}

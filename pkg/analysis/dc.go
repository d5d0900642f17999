package analysis

import (
	"fmt"
	"math"

	"github.com/otcova/analog-simulator/pkg/circuit"
	"github.com/otcova/analog-simulator/pkg/device"
)

// Sweep steps one independent source from Start to Stop by Increment.
type Sweep struct {
	Source    string
	Start     float64
	Stop      float64
	Increment float64
}

// Values lists the sweep points. The end point is kept when it lands on
// the grid within rounding.
func (s Sweep) Values() []float64 {
	if s.Increment == 0 || (s.Stop-s.Start)*s.Increment < 0 {
		return []float64{s.Start}
	}
	n := int(math.Floor((s.Stop-s.Start)/s.Increment + 1e-9))
	values := make([]float64, n+1)
	for i := range values {
		values[i] = s.Start + float64(i)*s.Increment
	}
	return values
}

// DCSweep runs an operating point per sweep value. With two sweeps the
// first is the inner loop, as in SPICE.
type DCSweep struct {
	BaseAnalysis
	sweeps    []Sweep
	sources   []device.Source
	sweepVals [][]float64
	origVals  []float64
}

func NewDCSweep(sweeps ...Sweep) *DCSweep {
	dc := &DCSweep{
		BaseAnalysis: *NewBaseAnalysis(),
		sweeps:       sweeps,
		sweepVals:    make([][]float64, len(sweeps)),
	}
	for i, s := range sweeps {
		dc.sweepVals[i] = s.Values()
	}
	return dc
}

func (dc *DCSweep) Setup(ckt *circuit.Circuit) error {
	if len(dc.sweeps) == 0 || len(dc.sweeps) > 2 {
		return fmt.Errorf("unsupported number of sweep sources: %d", len(dc.sweeps))
	}
	if err := dc.setup(ckt); err != nil {
		return err
	}

	points := 1
	for _, vals := range dc.sweepVals {
		points *= len(vals)
	}
	if err := dc.checkPoints(points); err != nil {
		return err
	}

	dc.sources = dc.sources[:0]
	dc.origVals = dc.origVals[:0]
	for _, s := range dc.sweeps {
		src, err := ckt.FindSource(s.Source)
		if err != nil {
			return err
		}
		dc.sources = append(dc.sources, src)
		dc.origVals = append(dc.origVals, src.GetValue())
	}
	return nil
}

func (dc *DCSweep) Execute() error {
	if dc.Circuit == nil || len(dc.sources) != len(dc.sweeps) {
		return fmt.Errorf("circuit not set")
	}
	defer dc.restore()

	var err error
	if len(dc.sweeps) == 1 {
		err = dc.singleSweep()
	} else {
		err = dc.nestedSweep()
	}
	if err != nil {
		return err
	}

	dc.logSummary("dc")
	return nil
}

func (dc *DCSweep) singleSweep() error {
	source := dc.sources[0]
	for _, val := range dc.sweepVals[0] {
		source.SetValue(val)
		if err := dc.point(); err != nil {
			return fmt.Errorf("at %s=%g: %w", source.GetName(), val, err)
		}
		dc.StoreSweepResult([]float64{val}, dc.Circuit.GetSolution())
	}
	return nil
}

func (dc *DCSweep) nestedSweep() error {
	inner, outer := dc.sources[0], dc.sources[1]
	for _, val2 := range dc.sweepVals[1] {
		outer.SetValue(val2)
		for _, val1 := range dc.sweepVals[0] {
			inner.SetValue(val1)
			if err := dc.point(); err != nil {
				return fmt.Errorf("at %s=%g, %s=%g: %w",
					inner.GetName(), val1, outer.GetName(), val2, err)
			}
			dc.StoreSweepResult([]float64{val1, val2}, dc.Circuit.GetSolution())
		}
	}
	return nil
}

func (dc *DCSweep) point() error {
	return dc.bias(device.DCSweep)
}

func (dc *DCSweep) restore() {
	for i, src := range dc.sources {
		src.SetValue(dc.origVals[i])
	}
}

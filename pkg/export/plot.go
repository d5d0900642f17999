package export

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNoAxis is returned when results have no TIME or SWEEP column to plot
// against, as with an operating point.
var ErrNoAxis = errors.New("export: results have no independent variable")

func isIndependent(key string) bool {
	return key == "TIME" || strings.HasPrefix(key, "SWEEP")
}

// IndependentKey returns the column results were computed over: TIME for a
// transient run, SWEEP1 for a DC sweep.
func IndependentKey(results map[string][]float64) (string, bool) {
	for _, k := range Columns(results) {
		if isIndependent(k) {
			return k, true
		}
	}
	return "", false
}

// PlotWaveforms draws keys against xKey and saves the figure; the format
// follows the file extension (.png, .svg, .pdf). With no keys every node
// voltage is drawn.
func PlotWaveforms(path string, results map[string][]float64, xKey string, keys ...string) error {
	xs, ok := results[xKey]
	if !ok || len(xs) == 0 {
		return fmt.Errorf("%w: no %s column", ErrEmpty, xKey)
	}
	if !isIndependent(xKey) {
		return fmt.Errorf("%w: cannot plot against %s", ErrNoAxis, xKey)
	}

	if len(keys) == 0 {
		for _, k := range Columns(results) {
			if strings.HasPrefix(k, "V(") {
				keys = append(keys, k)
			}
		}
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: nothing to plot", ErrEmpty)
	}

	p := plot.New()
	p.Title.Text = "Waveforms"
	p.X.Label.Text = xKey
	p.Add(plotter.NewGrid())

	for i, key := range keys {
		ys, ok := results[key]
		if !ok {
			return fmt.Errorf("%w: no %s column", ErrEmpty, key)
		}
		if len(ys) != len(xs) {
			return fmt.Errorf("%w: %s has %d points, %s has %d", ErrRagged, xKey, len(xs), key, len(ys))
		}

		pts := make(plotter.XYs, len(xs))
		for j := range xs {
			pts[j].X = xs[j]
			pts[j].Y = ys[j]
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("plotting %s: %w", key, err)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i / len(plotutil.DefaultColors))
		p.Add(line)
		p.Legend.Add(key, line)
	}

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("saving plot %s: %w", path, err)
	}
	return nil
}

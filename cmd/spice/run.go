package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/otcova/analog-simulator/internal/config"
	"github.com/otcova/analog-simulator/internal/consts"
	"github.com/otcova/analog-simulator/pkg/analysis"
	"github.com/otcova/analog-simulator/pkg/circuit"
	"github.com/otcova/analog-simulator/pkg/export"
	"github.com/otcova/analog-simulator/pkg/netlist"
	"github.com/otcova/analog-simulator/pkg/util"
)

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run <netlist>",
		Short: "Simulate a netlist",
		Args:  cobra.ExactArgs(1),
		RunE:  runNetlist,
	}
	runCmd.Flags().String("backend", "", "Solver backend: dense, sparse, lu (overrides config)")
	runCmd.Flags().Int("skip-rows", 0, "Leading rows the dense backend skips, -1 = auto (overrides config)")
	runCmd.Flags().String("csv", "", "Write results as CSV (.gz/.zst compress)")
	runCmd.Flags().Bool("gzip", false, "Gzip the CSV output")
	runCmd.Flags().String("plot", "", "Plot waveforms to a .png/.svg/.pdf file (.tran and .dc only)")
	runCmd.Flags().String("method", "", "Transient integration method: be, gear2 (overrides config)")
	return runCmd
}

// loadConfig merges the config file with flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Solver.Backend, _ = flags.GetString("backend")
	}
	if flags.Changed("skip-rows") {
		cfg.Solver.SkipRows, _ = flags.GetInt("skip-rows")
	}
	if flags.Changed("csv") {
		cfg.Output.CSV, _ = flags.GetString("csv")
	}
	if flags.Changed("gzip") {
		cfg.Output.Gzip, _ = flags.GetBool("gzip")
	}
	if flags.Changed("plot") {
		cfg.Output.Plot, _ = flags.GetString("plot")
	}
	if flags.Changed("method") {
		cfg.Analysis.Method, _ = flags.GetString("method")
	}
	return cfg, cfg.Validate()
}

func runNetlist(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	var logger *log.Logger
	if verbose {
		logger = log.New(cmd.ErrOrStderr(), "spice: ", log.LstdFlags)
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading netlist file: %w", err)
	}

	out := cmd.OutOrStdout()
	results, ckt, err := simulate(cfg, string(content), logger)
	if err != nil {
		return err
	}
	defer ckt.Destroy()

	xKey, hasAxis := export.IndependentKey(results)
	if cfg.Output.Plot != "" && !hasAxis {
		return fmt.Errorf("plot %s: %w, use .tran or .dc", cfg.Output.Plot, export.ErrNoAxis)
	}

	if verbose {
		ckt.GetMatrix().PrintSystem(out)
	}
	printResults(out, results)

	if cfg.Output.CSV != "" {
		compression := export.CompressionFor(cfg.Output.CSV)
		if compression == export.None && cfg.Output.Gzip {
			compression = export.Gzip
		}
		if err := export.CreateCSV(cfg.Output.CSV, results, compression); err != nil {
			return err
		}
		log.Printf("Results written to %s", cfg.Output.CSV)
	}

	if cfg.Output.Plot != "" {
		if err := export.PlotWaveforms(cfg.Output.Plot, results, xKey); err != nil {
			return err
		}
		log.Printf("Waveforms plotted to %s", cfg.Output.Plot)
	}
	return nil
}

// simulate parses, builds and analyses a netlist. The caller destroys the
// returned circuit.
func simulate(cfg *config.Config, src string, logger *log.Logger) (map[string][]float64, *circuit.Circuit, error) {
	data, err := netlist.Parse(src)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing netlist: %w", err)
	}
	if logger != nil {
		logger.Printf("%q: %d elements, %d nodes, analysis %s", data.Title, len(data.Elements), len(data.Nodes), data.Analysis)
	}

	ckt, err := circuit.FromNetlist(data, cfg.MatrixOptions()...)
	if err != nil {
		return nil, nil, err
	}
	ckt.Temp = consts.CelsiusToKelvin(cfg.Analysis.Temp)

	analyzer, base := newAnalyzer(data)
	base.Gmin = cfg.Analysis.Gmin
	base.MaxPoints = cfg.Analysis.MaxPoints
	base.MaxIter = cfg.Analysis.MaxIter
	if tr, ok := analyzer.(*analysis.Transient); ok {
		tr.Method = cfg.IntegrationMethod()
	}
	base.Logger = logger

	if err := analyzer.Setup(ckt); err != nil {
		ckt.Destroy()
		return nil, nil, fmt.Errorf("analysis setup failed: %w", err)
	}
	if err := analyzer.Execute(); err != nil {
		ckt.Destroy()
		return nil, nil, fmt.Errorf("analysis execution failed: %w", err)
	}
	return analyzer.GetResults(), ckt, nil
}

func newAnalyzer(data *netlist.NetlistData) (analysis.Analysis, *analysis.BaseAnalysis) {
	switch data.Analysis {
	case netlist.AnalysisTRAN:
		p := data.TranParam
		tr := analysis.NewTransient(p.TStart, p.TStop, p.TStep, p.TMax, p.UIC)
		return tr, &tr.BaseAnalysis

	case netlist.AnalysisDC:
		p := data.DCParam
		sweeps := []analysis.Sweep{{Source: p.Source1, Start: p.Start1, Stop: p.Stop1, Increment: p.Increment1}}
		if p.Nested() {
			sweeps = append(sweeps, analysis.Sweep{Source: p.Source2, Start: p.Start2, Stop: p.Stop2, Increment: p.Increment2})
		}
		dc := analysis.NewDCSweep(sweeps...)
		return dc, &dc.BaseAnalysis
	}

	op := analysis.NewOP()
	return op, &op.BaseAnalysis
}

func printResults(w io.Writer, results map[string][]float64) {
	fmt.Fprintln(w, "\nAnalysis Results:")
	fmt.Fprintln(w, "================")

	columns := export.Columns(results)
	if len(columns) == 0 {
		return
	}

	var xKeys, names []string
	for _, c := range columns {
		if c == "TIME" || strings.HasPrefix(c, "SWEEP") {
			xKeys = append(xKeys, c)
		} else {
			names = append(names, c)
		}
	}

	// Operating point
	if len(xKeys) == 0 {
		for _, name := range names {
			fmt.Fprintf(w, "%s = %s\n", name, util.FormatValueFactor(results[name][0], util.FormatUnit(name)))
		}
		return
	}

	points := len(results[xKeys[0]])
	if xKeys[0] == "TIME" {
		fmt.Fprintf(w, "\nTransient Analysis Results (%d time points):\n", points)
	} else {
		fmt.Fprintf(w, "\nDC Sweep Analysis Results (%d points):\n", points)
	}

	for i := 0; i < points; i++ {
		for _, x := range xKeys {
			if x == "TIME" {
				fmt.Fprintf(w, "%12s  ", util.FormatTime(results[x][i]))
			} else {
				fmt.Fprintf(w, "%s=%s  ", x, util.FormatMagnitude(results[x][i]))
			}
		}
		for _, name := range names {
			fmt.Fprintf(w, "%s=%s  ", name, util.FormatValueFactor(results[name][i], util.FormatUnit(name)))
		}
		fmt.Fprintln(w)
	}
}

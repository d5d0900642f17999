// Package config loads simulator settings.
//
// Precedence, lowest first: built-in defaults, YAML file, environment
// (SPICE_*), command-line flags. Flags are applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/otcova/analog-simulator/pkg/matrix"
	"github.com/otcova/analog-simulator/pkg/util"
)

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Solver   SolverConfig   `yaml:"solver"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Output   OutputConfig   `yaml:"output"`
}

type SolverConfig struct {
	Backend string `yaml:"backend"`
	// SkipRows is passed to the dense backend; -1 detects it per solve.
	SkipRows int `yaml:"skip_rows"`
}

type AnalysisConfig struct {
	Gmin      float64 `yaml:"gmin"`
	Temp      float64 `yaml:"temp"` // degC
	MaxPoints int     `yaml:"max_points"`
	MaxIter   int     `yaml:"max_iter"`
	// Method is the transient integration formula: be or gear2.
	Method string `yaml:"method"`
}

type OutputConfig struct {
	CSV  string `yaml:"csv"`
	Gzip bool   `yaml:"gzip"`
	Plot string `yaml:"plot"`
}

func LoadDefaults() *Config {
	return &Config{
		Solver: SolverConfig{
			Backend:  matrix.BackendDense,
			SkipRows: 0,
		},
		Analysis: AnalysisConfig{
			Gmin:      1e-12,
			Temp:      27,
			MaxPoints: 1_000_000,
			MaxIter:   100,
			Method:    util.BackwardEuler.String(),
		},
	}
}

// LoadFromFile reads path over the defaults and applies the environment. An
// empty path or a missing file yields defaults plus environment.
func LoadFromFile(path string) (*Config, error) {
	config := LoadDefaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	c.Solver.Backend = getEnv("SPICE_BACKEND", c.Solver.Backend)

	if val := os.Getenv("SPICE_SKIP_ROWS"); val != "" {
		rows, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%w: SPICE_SKIP_ROWS=%q", ErrInvalid, val)
		}
		c.Solver.SkipRows = rows
	}
	return nil
}

func (c *Config) Validate() error {
	valid := false
	for _, name := range matrix.Backends() {
		if strings.EqualFold(c.Solver.Backend, name) {
			c.Solver.Backend = name
			valid = true
		}
	}
	if !valid {
		return fmt.Errorf("%w: solver.backend %q, want one of %s",
			ErrInvalid, c.Solver.Backend, strings.Join(matrix.Backends(), ", "))
	}

	if c.Solver.SkipRows < matrix.AutoSkipRows {
		return fmt.Errorf("%w: solver.skip_rows %d", ErrInvalid, c.Solver.SkipRows)
	}
	if c.Analysis.Gmin < 0 {
		return fmt.Errorf("%w: analysis.gmin %g", ErrInvalid, c.Analysis.Gmin)
	}
	if c.Analysis.Temp < -273.15 {
		return fmt.Errorf("%w: analysis.temp %g below absolute zero", ErrInvalid, c.Analysis.Temp)
	}
	if c.Analysis.MaxPoints < 0 {
		return fmt.Errorf("%w: analysis.max_points %d", ErrInvalid, c.Analysis.MaxPoints)
	}
	if c.Analysis.MaxIter <= 0 {
		return fmt.Errorf("%w: analysis.max_iter %d", ErrInvalid, c.Analysis.MaxIter)
	}
	method, err := util.ParseIntegrationMethod(c.Analysis.Method)
	if err != nil {
		return fmt.Errorf("%w: analysis.method: %v", ErrInvalid, err)
	}
	c.Analysis.Method = method.String()
	return nil
}

// IntegrationMethod is the validated analysis.method.
func (c *Config) IntegrationMethod() util.IntegrationMethod {
	method, _ := util.ParseIntegrationMethod(c.Analysis.Method)
	return method
}

// MatrixOptions turns the solver section into matrix options.
func (c *Config) MatrixOptions() []matrix.Option {
	return []matrix.Option{
		matrix.WithBackend(c.Solver.Backend),
		matrix.WithSkipRows(c.Solver.SkipRows),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

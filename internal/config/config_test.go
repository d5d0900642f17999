package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otcova/analog-simulator/internal/config"
	"github.com/otcova/analog-simulator/pkg/matrix"
	"github.com/otcova/analog-simulator/pkg/util"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spice.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	t.Setenv("SPICE_BACKEND", "")
	t.Setenv("SPICE_SKIP_ROWS", "")

	cfg, err := config.LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, config.LoadDefaults(), cfg)
	assert.Equal(t, matrix.BackendDense, cfg.Solver.Backend)
	assert.Equal(t, 27.0, cfg.Analysis.Temp)
	assert.Equal(t, util.BackwardEuler, cfg.IntegrationMethod())

	missing, err := config.LoadFromFile(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, cfg, missing)
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("SPICE_BACKEND", "")
	t.Setenv("SPICE_SKIP_ROWS", "")

	path := writeFile(t, `
solver:
  backend: Sparse
  skip_rows: -1
analysis:
  gmin: 1e-9
  method: GEAR2
output:
  csv: out.csv.gz
  gzip: true
`)
	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, matrix.BackendSparse, cfg.Solver.Backend)
	assert.Equal(t, matrix.AutoSkipRows, cfg.Solver.SkipRows)
	assert.Equal(t, 1e-9, cfg.Analysis.Gmin)
	assert.Equal(t, 27.0, cfg.Analysis.Temp, "unset keys keep defaults")
	assert.Equal(t, "gear2", cfg.Analysis.Method)
	assert.Equal(t, util.Gear2, cfg.IntegrationMethod())
	assert.Equal(t, 100, cfg.Analysis.MaxIter)
	assert.Equal(t, "out.csv.gz", cfg.Output.CSV)
	assert.True(t, cfg.Output.Gzip)
	assert.Len(t, cfg.MatrixOptions(), 2)
}

func TestEnvOverrides(t *testing.T) {
	path := writeFile(t, "solver:\n  backend: sparse\n")

	t.Setenv("SPICE_BACKEND", "lu")
	t.Setenv("SPICE_SKIP_ROWS", "3")
	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, matrix.BackendLU, cfg.Solver.Backend)
	assert.Equal(t, 3, cfg.Solver.SkipRows)

	t.Setenv("SPICE_SKIP_ROWS", "many")
	_, err = config.LoadFromFile(path)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		modify func(*config.Config)
	}{
		{"backend", func(c *config.Config) { c.Solver.Backend = "qr" }},
		{"skip rows", func(c *config.Config) { c.Solver.SkipRows = -2 }},
		{"gmin", func(c *config.Config) { c.Analysis.Gmin = -1 }},
		{"temp", func(c *config.Config) { c.Analysis.Temp = -300 }},
		{"max points", func(c *config.Config) { c.Analysis.MaxPoints = -1 }},
		{"max iter", func(c *config.Config) { c.Analysis.MaxIter = 0 }},
		{"method", func(c *config.Config) { c.Analysis.Method = "rk4" }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.LoadDefaults()
			tc.modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), config.ErrInvalid)
		})
	}
}

func TestBadYAML(t *testing.T) {
	t.Setenv("SPICE_BACKEND", "")
	_, err := config.LoadFromFile(writeFile(t, "solver: [1, 2"))
	assert.Error(t, err)
}

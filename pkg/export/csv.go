// Package export writes analysis results as CSV tables and waveform plots.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	ErrEmpty  = errors.New("export: no results")
	ErrRagged = errors.New("export: result columns differ in length")
)

type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
)

// CompressionFor picks the compression from a file extension.
func CompressionFor(path string) Compression {
	switch lower := strings.ToLower(path); {
	case strings.HasSuffix(lower, ".gz"):
		return Gzip
	case strings.HasSuffix(lower, ".zst"):
		return Zstd
	}
	return None
}

// Columns orders result keys: the independent variable (TIME or SWEEP*)
// first, then node voltages, then currents, each group sorted.
func Columns(results map[string][]float64) []string {
	rank := func(key string) int {
		switch {
		case isIndependent(key):
			return 0
		case strings.HasPrefix(key, "V("):
			return 1
		case strings.HasPrefix(key, "I("):
			return 2
		}
		return 3
	}

	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := rank(keys[i]), rank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func rows(results map[string][]float64, columns []string) (int, error) {
	if len(columns) == 0 {
		return 0, ErrEmpty
	}
	n := len(results[columns[0]])
	for _, c := range columns[1:] {
		if len(results[c]) != n {
			return 0, fmt.Errorf("%w: %s has %d points, %s has %d", ErrRagged, columns[0], n, c, len(results[c]))
		}
	}
	return n, nil
}

func WriteCSV(w io.Writer, results map[string][]float64) error {
	columns := Columns(results)
	n, err := rows(results, columns)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}

	record := make([]string, len(columns))
	for i := 0; i < n; i++ {
		for j, c := range columns {
			record[j] = strconv.FormatFloat(results[c][i], 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// CreateCSV writes results to path, compressed as requested.
func CreateCSV(path string, results map[string][]float64, compression Compression) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var w io.WriteCloser
	switch compression {
	case Gzip:
		w, err = gzip.NewWriterLevel(f, gzip.BestCompression)
	case Zstd:
		w, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	default:
		return WriteCSV(f, results)
	}
	if err != nil {
		return fmt.Errorf("compressing %s: %w", path, err)
	}

	if err := WriteCSV(w, results); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

/*
PURPOSE:
  Writes fit summaries and fitted datasets to CSV files.
  Ensures data integrity by flushing writes immediately.

REQUIREMENTS:
  User-specified:
  - Output to CSV.
  - Export x, y and the fitted curve for plotting elsewhere.

  Implementation-discovered:
  - Summary rows overwrite any previous file (one comparison per file).
  - Parameters are packed as name=value pairs separated by ';' so the column
    count stays fixed across models of different arity.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Consumes: internal/model.FitResult, internal/report.Metrics

ERROR HANDLING:
  - Returns error on file creation or write failure.

IMPLEMENTATION RULES:
  - Use encoding/csv.
  - Flush() after every write (critical for crash resilience).
  - Use Mutex, comparison runs write from several goroutines.

USAGE:
  w, err := output.NewCSVWriter("summary.csv")
  w.Write(res, metrics)
  w.Close()

SELF-HEALING INSTRUCTIONS:
  - If CSV format changes, update header and record conversion.

RELATED FILES:
  - internal/model/types.go
*/

package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/daryltucker/curve-fitter/internal/model"
	"github.com/daryltucker/curve-fitter/internal/report"
)

// SummaryHeader is the first row of every summary file.
var SummaryHeader = []string{
	"function", "algorithm", "timestamp", "duration_s",
	"success", "iterations", "func_evals", "cost",
	"params", "r2", "rmse", "mae", "quality", "error",
}

// CSVWriter handles writing fit summaries to a CSV file.
type CSVWriter struct {
	closer io.Closer
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates a new CSVWriter.
// It overwrites the file if it exists.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	cw, err := NewCSVStream(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	cw.closer = f
	return cw, nil
}

// NewCSVStream writes the header to w and returns a writer for summary rows.
func NewCSVStream(w io.Writer) (*CSVWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryHeader); err != nil {
		return nil, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return &CSVWriter{writer: cw}, nil
}

// Write writes a single summary row. m may be nil when metrics could not be
// computed; fitErr records a failed run.
// It is thread-safe.
func (cw *CSVWriter) Write(r *model.FitResult, m *report.Metrics, fitErr error) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	record := make([]string, 0, len(SummaryHeader))
	record = append(record,
		r.Function,
		r.Algorithm,
		r.Started.Format("2006-01-02T15:04:05Z07:00"),
		fmt.Sprintf("%.4f", r.Duration.Seconds()),
		strconv.FormatBool(r.Diagnostics.Success),
		strconv.Itoa(r.Diagnostics.Iterations),
		strconv.Itoa(r.Diagnostics.FuncEvals),
		formatFloat(r.Diagnostics.Cost),
		packParams(r.ParamNames, r.Params),
	)
	if m != nil {
		record = append(record, formatFloat(m.R2), formatFloat(m.RMSE), formatFloat(m.MAE), m.Quality)
	} else {
		record = append(record, "", "", "", "")
	}
	if fitErr != nil {
		record = append(record, fitErr.Error())
	} else {
		record = append(record, "")
	}

	if err := cw.writer.Write(record); err != nil {
		return err
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

// Close closes the underlying file.
func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	if cw.closer == nil {
		return cw.writer.Error()
	}
	return cw.closer.Close()
}

// WriteDataset writes x, y and, when yFit is non-nil, the fitted values.
func WriteDataset(path string, x, y, yFit []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeDataset(f, x, y, yFit); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeDataset is WriteDataset for an arbitrary writer.
func EncodeDataset(w io.Writer, x, y, yFit []float64) error {
	if len(x) != len(y) || (yFit != nil && len(yFit) != len(x)) {
		return fmt.Errorf("%w: column lengths %d, %d, %d differ", model.ErrInvalidData, len(x), len(y), len(yFit))
	}

	cw := csv.NewWriter(w)
	header := []string{"x", "y"}
	if yFit != nil {
		header = append(header, "y_fit")
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := range x {
		row := []string{formatFloat(x[i]), formatFloat(y[i])}
		if yFit != nil {
			row = append(row, formatFloat(yFit[i]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func packParams(names []string, values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		name := fmt.Sprintf("p%d", i)
		if i < len(names) {
			name = names[i]
		}
		parts[i] = name + "=" + formatFloat(v)
	}
	return strings.Join(parts, ";")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

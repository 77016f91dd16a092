/*
PURPOSE:
  Writes fit results to a JSON Lines file (NDJSON), one record per
  algorithm run.

REQUIREMENTS:
  User-specified:
  - JSON output for easier parsing.

  Implementation-discovered:
  - JSON Lines suits comparison runs: each algorithm appends one record as
    it finishes (append-friendly).
  - Records carry the quality metrics next to the raw result so consumers
    need no second pass.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Consumes: internal/model.FitResult, internal/report.Metrics

ERROR HANDLING:
  - Returns error on file creation or write failure.

IMPLEMENTATION RULES:
  - Use encoding/json.NewEncoder.
  - Thread-safe.

USAGE:
  w, err := output.NewJSONWriter("fits.jsonl")
  w.Write(output.Record{Result: res, Metrics: m})
  w.Close()

RELATED FILES:
  - internal/model/types.go
  - internal/report/metrics.go
*/

package output

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/daryltucker/curve-fitter/internal/model"
	"github.com/daryltucker/curve-fitter/internal/report"
)

// Record is one line of JSON output.
type Record struct {
	Result     *model.FitResult `json:"result"`
	Metrics    *report.Metrics  `json:"metrics,omitempty"`
	TrueParams []float64        `json:"true_params,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// JSONWriter handles writing records to a JSON Lines stream.
type JSONWriter struct {
	closer  io.Closer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter creates a new JSONWriter, truncating path.
func NewJSONWriter(path string) (*JSONWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	jw := NewJSONStream(f)
	jw.closer = f
	return jw, nil
}

// NewJSONStream writes records to w. Close does not close w.
func NewJSONStream(w io.Writer) *JSONWriter {
	return &JSONWriter{encoder: json.NewEncoder(w)}
}

// Write writes a single record as a JSON line.
func (jw *JSONWriter) Write(r Record) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	return jw.encoder.Encode(r)
}

// Close closes the underlying file.
func (jw *JSONWriter) Close() error {
	if jw.closer == nil {
		return nil
	}
	return jw.closer.Close()
}

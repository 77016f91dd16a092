package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/daryltucker/curve-fitter/internal/model"
)

// ReadCSV parses delimited samples. The first two columns are x and y; extra
// columns are ignored. A first row whose first two fields are not numbers is
// taken as a header and returned as the column names.
func ReadCSV(r io.Reader) (x, y []float64, header []string, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %v", model.ErrInvalidData, err)
		}
		line++

		if len(rec) < 2 {
			return nil, nil, nil, fmt.Errorf("%w: line %d has %d column(s), need at least 2", model.ErrInvalidData, line, len(rec))
		}

		xv, xerr := parseField(rec[0])
		yv, yerr := parseField(rec[1])
		if xerr != nil || yerr != nil {
			if line == 1 {
				header = []string{strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])}
				continue
			}
			return nil, nil, nil, fmt.Errorf("%w: line %d: %q, %q are not numbers", model.ErrInvalidData, line, rec[0], rec[1])
		}
		x = append(x, xv)
		y = append(y, yv)
	}

	if len(x) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: no data rows", model.ErrInvalidData)
	}
	return x, y, header, nil
}

func parseField(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// LoadCSV replaces the current sample with the rows read from r.
func (m *Manager) LoadCSV(r io.Reader) error {
	x, y, _, err := ReadCSV(r)
	if err != nil {
		return err
	}
	return m.SetData(x, y)
}

// LoadFile replaces the current sample with the rows of a CSV file.
func (m *Manager) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	if err := m.LoadCSV(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/dpsim/internal/dynamo"
	"github.com/san-kum/dpsim/internal/physics"
	"github.com/san-kum/dpsim/internal/sim"
)

var ErrBadFormat = errors.New("storage: malformed trajectory file")

// WriteCSV writes one row per sample. Values use the shortest
// representation that parses back to the same float64.
func WriteCSV(out io.Writer, traj *sim.Trajectory) error {
	w := csv.NewWriter(out)

	names, cols := traj.Columns()
	if err := w.Write(names); err != nil {
		return err
	}

	row := make([]string, len(cols))
	for i := 0; i < traj.Len(); i++ {
		for j, col := range cols {
			row[j] = strconv.FormatFloat(col[i], 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// ReadCSV parses a file written by WriteCSV. The header must match the
// trajectory columns exactly.
func ReadCSV(in io.Reader, params physics.Params, initial dynamo.State) (*sim.Trajectory, error) {
	r := csv.NewReader(in)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header", ErrBadFormat)
	}

	traj := sim.NewTrajectory(params, initial, len(records)-1)
	names, cols := traj.Columns()

	header := records[0]
	if len(header) != len(names) {
		return nil, fmt.Errorf("%w: %d columns, want %d", ErrBadFormat, len(header), len(names))
	}
	for j, name := range names {
		if header[j] != name {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrBadFormat, j, header[j], name)
		}
	}

	for i, record := range records[1:] {
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: %v", ErrBadFormat, i+1, err)
			}
			cols[j][i] = v
		}
	}
	return traj, nil
}

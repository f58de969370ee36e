package chain

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LoadCSV reads a sub-chain draw matrix from a headerless CSV file: one draw
// per record, one parameter per field.
func LoadCSV(filename string) (*mat.Dense, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not READ sub-chain from %s", filename)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "Could not PARSE sub-chain from %s", filename)
	}
	if len(records) < 1 {
		return nil, errors.Errorf("Sub-chain file %s is empty", filename)
	}

	p := len(records[0])
	flat := make([]float64, 0, len(records)*p)
	for i, rec := range records {
		if len(rec) != p {
			return nil, errors.Errorf("Row %d of %s has %d fields, want %d", i, filename, len(rec), p)
		}
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "Bad value at row %d col %d of %s", i, j, filename)
			}
			flat = append(flat, v)
		}
	}

	return mat.NewDense(len(records), p, flat), nil
}

// SaveCSV writes a draw matrix as a headerless CSV file.
func SaveCSV(filename string, m *mat.Dense) error {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "Could not create output file %s", filename)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	n, p := m.Dims()
	rec := make([]string, p)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			rec[j] = strconv.FormatFloat(m.At(i, j), 'g', -1, 64)
		}
		if err := w.Write(rec); err != nil {
			return errors.Wrapf(err, "Could not write row %d to %s", i, filename)
		}
	}

	w.Flush()
	return errors.Wrapf(w.Error(), "Could not flush output file %s", filename)
}

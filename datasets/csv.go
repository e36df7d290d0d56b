package datasets

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	sn "github.com/sharnoff/splitnet"
)

// ReadCSV reads a Dataset from rows of the form
//	<class>,<value 0>,<value 1>,...
// as in the common CSV distribution of MNIST. Each value is multiplied by 'scale' (e.g. 1/255 for
// pixel intensities). If the first row does not start with an integer, it is taken as a header and
// skipped. Class labels must be in [0, numClasses).
func ReadCSV(r io.Reader, numClasses int, scale float64) (*sn.Dataset, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	var (
		labels []int
		data   []float64
		width  = -1
	)

	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "Failed to read CSV line %d", line)
		}

		label, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, errors.Wrapf(err, "Bad class label on line %d", line)
		}

		if width == -1 {
			width = len(rec) - 1
			if width < 1 {
				return nil, errors.Errorf("Line %d has no features", line)
			}
		} else if len(rec)-1 != width {
			return nil, errors.Errorf("Line %d has %d features, expected %d", line, len(rec)-1, width)
		}

		for i, field := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "Bad value in column %d of line %d", i+1, line)
			}
			data = append(data, v*scale)
		}

		labels = append(labels, label)
	}

	if len(labels) == 0 {
		return nil, errors.New("CSV has no samples")
	}

	y, err := OneHot(labels, numClasses)
	if err != nil {
		return nil, err
	}

	return &sn.Dataset{X: mat.NewDense(len(labels), width, data), Y: y}, nil
}

// ReadCSVFile is ReadCSV on the file at the given path
func ReadCSVFile(path string, numClasses int, scale float64) (*sn.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open dataset %q", path)
	}

	defer f.Close()

	ds, err := ReadCSV(f, numClasses, scale)
	return ds, errors.Wrapf(err, "Reading dataset %q", path)
}

package splitnet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// main_file holds the structure of the Network; blocks and variables get their own files
const main_file string = "main.json"

type mainJSON struct {
	Blocks         []string `json:"blocks"`
	InputSize      int      `json:"input_size"`
	Cost           string   `json:"cost"`
	Rho            float64  `json:"rho"`
	StopTargetGrad bool     `json:"stop_target_gradient"`
	Seeded         bool     `json:"seeded"`

	Penalty *penaltyJSON `json:"penalty,omitempty"`
}

type penaltyJSON struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params"`
}

type matrixJSON struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

func blockFile(i int) string { return fmt.Sprintf("block_%d.json", i) }
func splitFile(l int) string { return fmt.Sprintf("split_%d.json", l) }
func multFile(l int) string  { return fmt.Sprintf("mult_%d.json", l) }

// Save writes the Network to the specified directory, creating it (with permissions 0700) if it
// does not already exist. The blocks, the weight Penalty, split variables and multipliers are
// saved, but not any Solver state.
//
// If 'overwrite' is false and the directory already exists, Save will return error.
func (net *Network) Save(dirPath string, overwrite bool) error {
	if net.stat < finalized {
		return ErrNetNotFinalized
	}

	if _, err := os.Stat(dirPath); err == nil {
		if !overwrite {
			return errors.Errorf("Can't save network, directory %q already exists, and overwrite is not enabled", dirPath)
		}

		if err = os.RemoveAll(dirPath); err != nil {
			return errors.Wrapf(err, "Can't save network, couldn't remove pre-existing directory %q", dirPath)
		}
	}

	if err := os.MkdirAll(dirPath, 0700); err != nil {
		return errors.Wrapf(err, "Couldn't make directory to save network")
	}

	m := mainJSON{
		InputSize:      net.InputSize(),
		Cost:           net.cf.TypeString(),
		Rho:            net.rho,
		StopTargetGrad: net.stopTargetGrad,
		Seeded:         net.stat >= seeded,
	}

	if net.pen != nil {
		mar, ok := net.pen.(json.Marshaler)
		if !ok {
			return errors.Errorf("Can't save penalty, type %q does not implement json.Marshaler", net.pen.TypeString())
		}

		params, err := mar.MarshalJSON()
		if err != nil {
			return errors.Wrapf(err, "Saving penalty %q failed", net.pen.TypeString())
		}
		m.Penalty = &penaltyJSON{Type: net.pen.TypeString(), Params: params}
	}

	for i, b := range net.blocks {
		m.Blocks = append(m.Blocks, b.TypeString())

		mar, ok := b.(Marshaler)
		if !ok {
			return errors.Errorf("Can't save block %d, type %q does not implement Marshaler", i, b.TypeString())
		}

		if err := writeJSON(filepath.Join(dirPath, blockFile(i)), mar); err != nil {
			return errors.Wrapf(err, "Saving block %d failed", i)
		}
	}

	if err := writeJSON(filepath.Join(dirPath, main_file), m); err != nil {
		return err
	}

	if net.stat < seeded {
		return nil
	}

	for l := range net.split {
		if err := writeJSON(filepath.Join(dirPath, splitFile(l)), toJSON(net.split[l])); err != nil {
			return errors.Wrapf(err, "Saving split variable %d failed", l)
		}

		if err := writeJSON(filepath.Join(dirPath, multFile(l)), toJSON(net.mult[l])); err != nil {
			return errors.Wrapf(err, "Saving multipliers %d failed", l)
		}
	}

	return nil
}

// Load recreates a Network from the directory it was saved to. The CostFunction must have the same
// type string as the one the Network was saved with. Block and Penalty types must have been
// registered; for those in the "blocks" and "penalties" subpackages, importing them is enough.
func Load(dirPath string, cf CostFunction) (*Network, error) {
	if cf == nil {
		return nil, NilArgError{"CostFunction"}
	}

	var m mainJSON
	if err := readJSON(filepath.Join(dirPath, main_file), &m); err != nil {
		return nil, err
	}

	if m.Cost != cf.TypeString() {
		return nil, errors.Errorf("Saved network uses cost function %q, given %q", m.Cost, cf.TypeString())
	}

	net := new(Network)
	size := m.InputSize
	for i, typ := range m.Blocks {
		b, err := newBlock(typ)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't load block %d", i)
		}

		mar, ok := b.(Marshaler)
		if !ok {
			return nil, errors.Errorf("Can't load block %d, type %q does not implement Marshaler", i, typ)
		}

		if err = readJSON(filepath.Join(dirPath, blockFile(i)), mar); err != nil {
			return nil, errors.Wrapf(err, "Loading block %d failed", i)
		}

		if b.InputSize() != size {
			return nil, errors.Wrapf(SizeMismatchError{size, b.InputSize(), "block input"}, "Block %d", i)
		}

		size = b.OutputSize()
		net.blocks = append(net.blocks, b)
	}

	if len(net.blocks) == 0 {
		return nil, ErrNoBlocks
	}

	if m.Penalty != nil {
		pen, err := newPenalty(m.Penalty.Type)
		if err != nil {
			return nil, errors.Wrap(err, "Can't load penalty")
		}

		mar, ok := pen.(Marshaler)
		if !ok {
			return nil, errors.Errorf("Can't load penalty, type %q does not implement Marshaler", m.Penalty.Type)
		} else if err = mar.UnmarshalJSON(m.Penalty.Params); err != nil {
			return nil, errors.Wrapf(err, "Loading penalty %q failed", m.Penalty.Type)
		}

		net.pen = pen
	}

	net.cf = cf
	net.rho = m.Rho
	net.stopTargetGrad = m.StopTargetGrad
	net.stat = finalized

	if !m.Seeded {
		return net, nil
	}

	n := net.NumConstraints()
	net.split = make([]*mat.Dense, n)
	net.mult = make([]*mat.Dense, n)
	samples := -1
	for l := 0; l < n; l++ {
		var s, u matrixJSON
		if err := readJSON(filepath.Join(dirPath, splitFile(l)), &s); err != nil {
			return nil, err
		} else if err := readJSON(filepath.Join(dirPath, multFile(l)), &u); err != nil {
			return nil, err
		}

		var err error
		if net.split[l], err = fromJSON(s, net.blocks[l].OutputSize()); err != nil {
			return nil, errors.Wrapf(err, "Split variable %d", l)
		} else if net.mult[l], err = fromJSON(u, net.blocks[l].OutputSize()); err != nil {
			return nil, errors.Wrapf(err, "Multipliers %d", l)
		}

		// every split variable and multiplier has one row per training sample
		if samples == -1 {
			samples = s.Rows
		}
		if s.Rows != samples {
			return nil, errors.Wrapf(SizeMismatchError{samples, s.Rows, "rows"}, "Split variable %d", l)
		} else if u.Rows != samples {
			return nil, errors.Wrapf(SizeMismatchError{samples, u.Rows, "rows"}, "Multipliers %d", l)
		}
	}

	net.stat = seeded
	net.seedGen++
	return net, nil
}

func toJSON(m *mat.Dense) matrixJSON {
	r, c := m.Dims()
	return matrixJSON{Rows: r, Cols: c, Data: mat.DenseCopyOf(m).RawMatrix().Data}
}

func fromJSON(j matrixJSON, cols int) (*mat.Dense, error) {
	if j.Cols != cols {
		return nil, SizeMismatchError{cols, j.Cols, "columns"}
	} else if j.Rows < 1 || len(j.Data) != j.Rows*j.Cols {
		return nil, errors.Errorf("Bad matrix: %d x %d with %d values", j.Rows, j.Cols, len(j.Data))
	}

	return mat.NewDense(j.Rows, j.Cols, j.Data), nil
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to create file %q", path)
	}

	defer f.Close()

	enc := json.NewEncoder(f)
	if err = enc.Encode(v); err != nil {
		return errors.Wrapf(err, "Failed to encode JSON to file %q", path)
	}

	return nil
}

func readJSON(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to open file %q", path)
	}

	defer f.Close()

	dec := json.NewDecoder(f)
	if err = dec.Decode(v); err != nil {
		return errors.Wrapf(err, "Failed to decode JSON from file %q", path)
	}

	return nil
}

package artifacts

import "fmt"

// Features is the transformer output. Dense and CSR both satisfy it.
type Features interface {
	Dims() (rows, cols int)
	ToDense() Dense
}

// Dense is a row-major feature matrix.
type Dense [][]float64

func (d Dense) Dims() (int, int) {
	if len(d) == 0 {
		return 0, 0
	}
	return len(d), len(d[0])
}

func (d Dense) ToDense() Dense {
	return d
}

// CSR is a compressed sparse row matrix.
type CSR struct {
	NumRows int
	NumCols int
	IndPtr  []int
	Indices []int
	Data    []float64
}

func (m *CSR) Dims() (int, int) {
	return m.NumRows, m.NumCols
}

func (m *CSR) ToDense() Dense {
	out := make(Dense, m.NumRows)
	for i := 0; i < m.NumRows; i++ {
		row := make([]float64, m.NumCols)
		for k := m.IndPtr[i]; k < m.IndPtr[i+1]; k++ {
			row[m.Indices[k]] = m.Data[k]
		}
		out[i] = row
	}
	return out
}

// NewCSR compresses a dense matrix, dropping zeros.
func NewCSR(d Dense, cols int) (*CSR, error) {
	m := &CSR{NumRows: len(d), NumCols: cols, IndPtr: make([]int, 1, len(d)+1)}
	for i, row := range d {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), cols)
		}
		for j, v := range row {
			if v == 0 {
				continue
			}
			m.Indices = append(m.Indices, j)
			m.Data = append(m.Data, v)
		}
		m.IndPtr = append(m.IndPtr, len(m.Data))
	}
	return m, nil
}

package sparse

import (
	"fmt"
	"sort"
)

// Coord is one structural position of the system matrix.
type Coord struct {
	Row, Col int
}

// CSR is a square compressed-sparse-row matrix. Column indices within a
// row are sorted ascending and unique.
type CSR struct {
	N      int
	RowPtr []int
	ColInd []int
	Values []float64
}

// Compile builds the pattern for an n×n matrix from a list of coordinates,
// which may repeat. It returns the zero-valued matrix and, for each input
// coordinate, the index of its slot in Values. Accumulating into those
// slots reproduces additive stamping.
func Compile(n int, coords []Coord) (*CSR, []int, error) {
	for _, c := range coords {
		if c.Row < 0 || c.Row >= n || c.Col < 0 || c.Col >= n {
			return nil, nil, fmt.Errorf("sparse: coordinate (%d,%d) outside %dx%d matrix", c.Row, c.Col, n, n)
		}
	}

	order := make([]int, len(coords))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := coords[order[a]], coords[order[b]]
		if ca.Row != cb.Row {
			return ca.Row < cb.Row
		}
		return ca.Col < cb.Col
	})

	m := &CSR{N: n, RowPtr: make([]int, n+1)}
	slots := make([]int, len(coords))
	last := Coord{-1, -1}
	for _, idx := range order {
		c := coords[idx]
		if c != last {
			m.ColInd = append(m.ColInd, c.Col)
			m.RowPtr[c.Row+1]++
			last = c
		}
		slots[idx] = len(m.ColInd) - 1
	}
	for i := 0; i < n; i++ {
		m.RowPtr[i+1] += m.RowPtr[i]
	}
	m.Values = make([]float64, len(m.ColInd))
	return m, slots, nil
}

// NNZ returns the number of stored entries.
func (m *CSR) NNZ() int { return len(m.ColInd) }

// At returns the value at (row, col), zero when the position is not stored.
func (m *CSR) At(row, col int) float64 {
	lo, hi := m.RowPtr[row], m.RowPtr[row+1]
	k := lo + sort.SearchInts(m.ColInd[lo:hi], col)
	if k < hi && m.ColInd[k] == col {
		return m.Values[k]
	}
	return 0
}

// Clone returns a deep copy.
func (m *CSR) Clone() *CSR {
	c := &CSR{
		N:      m.N,
		RowPtr: append([]int(nil), m.RowPtr...),
		ColInd: append([]int(nil), m.ColInd...),
		Values: append([]float64(nil), m.Values...),
	}
	return c
}

// SamePattern reports whether two matrices share dimension and structure.
func (m *CSR) SamePattern(o *CSR) bool {
	if m.N != o.N || len(m.ColInd) != len(o.ColInd) {
		return false
	}
	for i := range m.RowPtr {
		if m.RowPtr[i] != o.RowPtr[i] {
			return false
		}
	}
	for i := range m.ColInd {
		if m.ColInd[i] != o.ColInd[i] {
			return false
		}
	}
	return true
}

// MulVec computes y = A·x.
func (m *CSR) MulVec(x, y []float64) {
	for i := 0; i < m.N; i++ {
		var s float64
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			s += m.Values[k] * x[m.ColInd[k]]
		}
		y[i] = s
	}
}

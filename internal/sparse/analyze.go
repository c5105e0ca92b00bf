package sparse

import (
	"math"
	"sort"
)

const (
	// DefaultRelThreshold is the fraction of the largest magnitude in a
	// column that a pivot candidate must reach.
	DefaultRelThreshold = 1e-3

	// DefaultAbsThreshold is the smallest magnitude accepted as a pivot.
	DefaultAbsThreshold = 0.0
)

// Options tunes pivot selection.
type Options struct {
	RelThreshold float64
	AbsThreshold float64
	DiagPivoting bool
}

// DefaultOptions returns threshold pivoting with diagonal preference.
func DefaultOptions() Options {
	return Options{
		RelThreshold: DefaultRelThreshold,
		AbsThreshold: DefaultAbsThreshold,
		DiagPivoting: true,
	}
}

// Symbolic holds a pivot order and the fill pattern of L and U for one
// matrix structure. It is reused by every numeric factorization of a
// matrix with the same pattern.
type Symbolic struct {
	N int

	rowPtr []int
	colInd []int

	prow []int // pivot row of step k
	pcol []int // pivot column of step k
	qinv []int // step at which a column is eliminated

	lPtr []int
	lIdx []int
	uPtr []int
	uIdx []int // diagonal first in each row
}

type entry struct {
	col int
	val float64
}

type analyzer struct {
	opts    Options
	n       int
	rows    [][]entry
	colRows []map[int]struct{}
	rowDone []bool

	colMax   []float64
	colStamp []int
	step     int

	lRows [][]int
}

// Analyze selects a Markowitz pivot order for a, using its values for
// threshold pivoting, and records the resulting fill pattern.
func Analyze(a *CSR, opts Options) (*Symbolic, error) {
	if opts.RelThreshold <= 0 || opts.RelThreshold > 1 {
		opts.RelThreshold = DefaultRelThreshold
	}

	n := a.N
	an := &analyzer{
		opts:     opts,
		n:        n,
		rows:     make([][]entry, n),
		colRows:  make([]map[int]struct{}, n),
		rowDone:  make([]bool, n),
		colMax:   make([]float64, n),
		colStamp: make([]int, n),
		lRows:    make([][]int, n),
	}
	for c := 0; c < n; c++ {
		an.colRows[c] = make(map[int]struct{})
		an.colStamp[c] = -1
	}
	for r := 0; r < n; r++ {
		for k := a.RowPtr[r]; k < a.RowPtr[r+1]; k++ {
			c := a.ColInd[k]
			an.rows[r] = append(an.rows[r], entry{col: c, val: a.Values[k]})
			an.colRows[c][r] = struct{}{}
		}
	}

	sym := &Symbolic{
		N:      n,
		rowPtr: append([]int(nil), a.RowPtr...),
		colInd: append([]int(nil), a.ColInd...),
		prow:   make([]int, n),
		pcol:   make([]int, n),
		qinv:   make([]int, n),
	}
	uCols := make([][]int, n)

	for step := 0; step < n; step++ {
		an.step = step
		r, c, ok := an.searchPivot()
		if !ok {
			return nil, &SingularError{Step: step, Row: -1, Col: -1}
		}
		sym.prow[step] = r
		sym.pcol[step] = c
		sym.qinv[c] = step

		cols := make([]int, 0, len(an.rows[r]))
		for _, e := range an.rows[r] {
			cols = append(cols, e.col)
		}
		uCols[step] = cols

		an.eliminate(r, c)
	}

	sym.lPtr = make([]int, n+1)
	sym.uPtr = make([]int, n+1)
	for i := 0; i < n; i++ {
		lsteps := an.lRows[sym.prow[i]]
		sym.lIdx = append(sym.lIdx, lsteps...)
		sym.lPtr[i+1] = len(sym.lIdx)

		pos := make([]int, 0, len(uCols[i]))
		for _, c := range uCols[i] {
			pos = append(pos, sym.qinv[c])
		}
		sort.Ints(pos)
		sym.uIdx = append(sym.uIdx, pos...)
		sym.uPtr[i+1] = len(sym.uIdx)
	}
	return sym, nil
}

// searchPivot scans the active submatrix in row order for the candidate
// with the smallest Markowitz product that passes the magnitude thresholds.
// Ties prefer diagonal entries, then relatively larger magnitudes.
func (an *analyzer) searchPivot() (int, int, bool) {
	bestRow, bestCol := -1, -1
	bestProd := math.MaxInt
	bestDiag := false
	bestRatio := 0.0

	for r := 0; r < an.n; r++ {
		if an.rowDone[r] {
			continue
		}
		rc := len(an.rows[r]) - 1
		for _, e := range an.rows[r] {
			prod := markowitzProduct(rc, len(an.colRows[e.col])-1)
			if prod > bestProd {
				continue
			}
			mag := abs(e.val)
			if mag <= an.opts.AbsThreshold || !finite(mag) {
				continue
			}
			cmax := an.columnMax(e.col)
			if mag < an.opts.RelThreshold*cmax {
				continue
			}
			ratio := mag / cmax
			diag := an.opts.DiagPivoting && r == e.col
			better := prod < bestProd ||
				(diag && !bestDiag) ||
				(diag == bestDiag && ratio > bestRatio)
			if better {
				bestRow, bestCol = r, e.col
				bestProd, bestDiag, bestRatio = prod, diag, ratio
			}
		}
	}
	return bestRow, bestCol, bestRow >= 0
}

func (an *analyzer) columnMax(c int) float64 {
	if an.colStamp[c] == an.step {
		return an.colMax[c]
	}
	m := 0.0
	for r := range an.colRows[c] {
		for _, e := range an.rows[r] {
			if e.col == c {
				if v := abs(e.val); v > m {
					m = v
				}
				break
			}
		}
	}
	an.colMax[c] = m
	an.colStamp[c] = an.step
	return m
}

func (an *analyzer) eliminate(pr, pc int) {
	pivotRow := an.rows[pr]
	var pivot float64
	for _, e := range pivotRow {
		if e.col == pc {
			pivot = e.val
			break
		}
	}

	targets := make([]int, 0, len(an.colRows[pc]))
	for r := range an.colRows[pc] {
		if r != pr {
			targets = append(targets, r)
		}
	}
	sort.Ints(targets)

	for _, r := range targets {
		an.lRows[r] = append(an.lRows[r], an.step)
		an.rows[r] = an.updateRow(r, an.rows[r], pivotRow, pc, pivot)
	}

	for _, e := range pivotRow {
		delete(an.colRows[e.col], pr)
	}
	for r := range an.colRows[pc] {
		delete(an.colRows[pc], r)
	}
	an.rowDone[pr] = true
}

// updateRow computes row - f·pivotRow with f = row[pc]/pivot, dropping the
// pivot column and keeping every structural entry, including fill and
// entries that cancel to zero.
func (an *analyzer) updateRow(r int, row, pivotRow []entry, pc int, pivot float64) []entry {
	var f float64
	for _, e := range row {
		if e.col == pc {
			f = e.val / pivot
			break
		}
	}

	out := make([]entry, 0, len(row)+len(pivotRow))
	i, j := 0, 0
	for i < len(row) || j < len(pivotRow) {
		switch {
		case j >= len(pivotRow) || (i < len(row) && row[i].col < pivotRow[j].col):
			if row[i].col != pc {
				out = append(out, row[i])
			}
			i++
		case i >= len(row) || pivotRow[j].col < row[i].col:
			if pivotRow[j].col != pc {
				out = append(out, entry{col: pivotRow[j].col, val: -f * pivotRow[j].val})
				an.colRows[pivotRow[j].col][r] = struct{}{}
			}
			j++
		default:
			if row[i].col != pc {
				out = append(out, entry{col: row[i].col, val: row[i].val - f*pivotRow[j].val})
			}
			i++
			j++
		}
	}
	return out
}

// Order returns the pivot rows and columns in elimination order.
func (s *Symbolic) Order() (rows, cols []int) {
	return append([]int(nil), s.prow...), append([]int(nil), s.pcol...)
}

// Fill returns the number of entries in L and U together, counting the diagonal once.
func (s *Symbolic) Fill() int {
	return len(s.lIdx) + len(s.uIdx)
}

func (s *Symbolic) matches(a *CSR) bool {
	if a.N != s.N || len(a.ColInd) != len(s.colInd) {
		return false
	}
	for i := range s.rowPtr {
		if a.RowPtr[i] != s.rowPtr[i] {
			return false
		}
	}
	for i := range s.colInd {
		if a.ColInd[i] != s.colInd[i] {
			return false
		}
	}
	return true
}

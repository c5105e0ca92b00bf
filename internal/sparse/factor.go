package sparse

// Numeric holds the L and U factors of one matrix for a given Symbolic.
// L is unit lower triangular and stored without its diagonal.
type Numeric struct {
	sym  *Symbolic
	lVal []float64
	uVal []float64
	work []float64
}

// Factor computes the numeric LU factorization of a in the pivot order of
// sym. The structure of a must equal the structure sym was built from.
func Factor(sym *Symbolic, a *CSR) (*Numeric, error) {
	num := &Numeric{
		sym:  sym,
		lVal: make([]float64, len(sym.lIdx)),
		uVal: make([]float64, len(sym.uIdx)),
		work: make([]float64, sym.N),
	}
	if err := num.Refactor(a); err != nil {
		return nil, err
	}
	return num, nil
}

// Refactor recomputes the factors for new values of a matrix with the
// analyzed structure. The pivot order is not revisited.
func (f *Numeric) Refactor(a *CSR) error {
	s := f.sym
	if !s.matches(a) {
		return ErrPattern
	}
	w := f.work

	for i := 0; i < s.N; i++ {
		r := s.prow[i]
		for k := a.RowPtr[r]; k < a.RowPtr[r+1]; k++ {
			w[s.qinv[a.ColInd[k]]] += a.Values[k]
		}

		for p := s.lPtr[i]; p < s.lPtr[i+1]; p++ {
			k := s.lIdx[p]
			l := w[k] / f.uVal[s.uPtr[k]]
			w[k] = 0
			f.lVal[p] = l
			if l == 0 {
				continue
			}
			for q := s.uPtr[k] + 1; q < s.uPtr[k+1]; q++ {
				w[s.uIdx[q]] -= l * f.uVal[q]
			}
		}

		for q := s.uPtr[i]; q < s.uPtr[i+1]; q++ {
			j := s.uIdx[q]
			f.uVal[q] = w[j]
			w[j] = 0
		}

		d := f.uVal[s.uPtr[i]]
		if d == 0 || !finite(d) {
			for j := range w {
				w[j] = 0
			}
			return &SingularError{Step: i, Row: r, Col: s.pcol[i]}
		}
	}
	return nil
}

// Symbolic returns the analysis the factors were computed with.
func (f *Numeric) Symbolic() *Symbolic { return f.sym }

package sparse

// Solve overwrites b with the solution x of A·x = b.
func (f *Numeric) Solve(b []float64) error {
	s := f.sym
	if len(b) < s.N {
		return ErrSize
	}
	y := f.work

	for i := 0; i < s.N; i++ {
		v := b[s.prow[i]]
		for p := s.lPtr[i]; p < s.lPtr[i+1]; p++ {
			v -= f.lVal[p] * y[s.lIdx[p]]
		}
		y[i] = v
	}

	for i := s.N - 1; i >= 0; i-- {
		v := y[i]
		d := s.uPtr[i]
		for q := d + 1; q < s.uPtr[i+1]; q++ {
			v -= f.uVal[q] * y[s.uIdx[q]]
		}
		y[i] = v / f.uVal[d]
	}

	for i := 0; i < s.N; i++ {
		b[s.pcol[i]] = y[i]
		y[i] = 0
	}
	return nil
}

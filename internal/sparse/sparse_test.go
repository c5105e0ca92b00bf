package sparse

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func fromDense(t *testing.T, rows [][]float64) *CSR {
	t.Helper()
	n := len(rows)
	var coords []Coord
	var vals []float64
	for i, row := range rows {
		for j, v := range row {
			if v != 0 {
				coords = append(coords, Coord{Row: i, Col: j})
				vals = append(vals, v)
			}
		}
	}
	m, slots, err := Compile(n, coords)
	require.NoError(t, err)
	for k, s := range slots {
		m.Values[s] += vals[k]
	}
	return m
}

func denseSolve(t *testing.T, rows [][]float64, b []float64) []float64 {
	t.Helper()
	n := len(rows)
	a := mat.NewDense(n, n, nil)
	for i, row := range rows {
		for j, v := range row {
			a.Set(i, j, v)
		}
	}
	var x mat.VecDense
	require.NoError(t, x.SolveVec(a, mat.NewVecDense(n, append([]float64(nil), b...))))
	return x.RawVector().Data
}

func solve(t *testing.T, m *CSR, b []float64) []float64 {
	t.Helper()
	sym, err := Analyze(m, DefaultOptions())
	require.NoError(t, err)
	num, err := Factor(sym, m)
	require.NoError(t, err)
	x := append([]float64(nil), b...)
	require.NoError(t, num.Solve(x))
	return x
}

func TestCompileAggregatesDuplicates(t *testing.T) {
	coords := []Coord{{0, 0}, {1, 1}, {0, 0}, {0, 1}, {1, 0}}
	m, slots, err := Compile(2, coords)
	require.NoError(t, err)

	assert.Equal(t, 4, m.NNZ())
	assert.Equal(t, slots[0], slots[2])
	for k, s := range slots {
		m.Values[s] += float64(k + 1)
	}
	assert.Equal(t, 4.0, m.At(0, 0))
	assert.Equal(t, 4.0, m.At(0, 1))
	assert.Equal(t, 5.0, m.At(1, 0))
	assert.Equal(t, 2.0, m.At(1, 1))
	assert.Equal(t, []int{0, 2, 4}, m.RowPtr)
}

func TestCompileRejectsOutOfRange(t *testing.T) {
	_, _, err := Compile(2, []Coord{{0, 2}})
	assert.Error(t, err)
}

func TestSolveMatchesDense(t *testing.T) {
	// Circuit-like: node rows with ±1 incidence, branch rows with a
	// negative diagonal and a zero diagonal on the node rows.
	rows := [][]float64{
		{0, 0, 1, 0, 0},
		{0, 0, -1, 1, 1},
		{1, -1, -50, 0, 0},
		{0, 1, 0, -1e-3, 0},
		{0, 1, 0, 0, -20},
	}
	b := []float64{0, 1e-3, 0, -2e-6, 0}

	got := solve(t, fromDense(t, rows), b)
	want := denseSolve(t, rows, b)
	assert.InDeltaSlice(t, want, got, 1e-12)
}

func TestSolveRandomDiagonallyDominant(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	const n = 30
	for trial := 0; trial < 5; trial++ {
		rows := make([][]float64, n)
		for i := range rows {
			rows[i] = make([]float64, n)
			sum := 0.0
			for j := 0; j < n; j++ {
				if i != j && rng.Float64() < 0.1 {
					rows[i][j] = rng.NormFloat64()
					if rows[i][j] < 0 {
						sum -= rows[i][j]
					} else {
						sum += rows[i][j]
					}
				}
			}
			rows[i][i] = sum + 1
		}
		b := make([]float64, n)
		for i := range b {
			b[i] = rng.NormFloat64()
		}
		got := solve(t, fromDense(t, rows), b)
		assert.InDeltaSlice(t, denseSolve(t, rows, b), got, 1e-9)
	}
}

func TestAnalyzeSingularStructure(t *testing.T) {
	// A floating node: its row and column are empty.
	rows := [][]float64{
		{1, 0, 0},
		{0, 0, 0},
		{0, 0, 2},
	}
	coords := []Coord{{0, 0}, {2, 2}, {1, 1}}
	m, slots, err := Compile(3, coords)
	require.NoError(t, err)
	m.Values[slots[0]] = rows[0][0]
	m.Values[slots[1]] = rows[2][2]

	_, err = Analyze(m, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSingular))
	var se *SingularError
	assert.True(t, errors.As(err, &se))
}

func TestRefactorSingularValues(t *testing.T) {
	m := fromDense(t, [][]float64{{2, 1}, {1, 3}})
	sym, err := Analyze(m, DefaultOptions())
	require.NoError(t, err)
	num, err := Factor(sym, m)
	require.NoError(t, err)

	singular := m.Clone()
	copy(singular.Values, []float64{1, 1, 1, 1})
	err = num.Refactor(singular)
	assert.ErrorIs(t, err, ErrSingular)
}

func TestRefactorBitIdentical(t *testing.T) {
	rows := [][]float64{
		{4, 1, 0, 0},
		{1, 4, 1, 0},
		{0, 1, 4, 1},
		{0, 0, 1, 4},
	}
	m := fromDense(t, rows)
	sym, err := Analyze(m, DefaultOptions())
	require.NoError(t, err)

	updated := m.Clone()
	for i := range updated.Values {
		updated.Values[i] *= 1.5
	}
	fresh, err := Factor(sym, updated)
	require.NoError(t, err)

	num, err := Factor(sym, m)
	require.NoError(t, err)
	require.NoError(t, num.Refactor(updated))

	assert.Equal(t, fresh.lVal, num.lVal)
	assert.Equal(t, fresh.uVal, num.uVal)

	b1 := []float64{1, 2, 3, 4}
	b2 := append([]float64(nil), b1...)
	require.NoError(t, fresh.Solve(b1))
	require.NoError(t, num.Solve(b2))
	assert.Equal(t, b1, b2)
}

func TestRefactorPatternMismatch(t *testing.T) {
	m := fromDense(t, [][]float64{{2, 1}, {1, 3}})
	sym, err := Analyze(m, DefaultOptions())
	require.NoError(t, err)
	num, err := Factor(sym, m)
	require.NoError(t, err)

	other := fromDense(t, [][]float64{{2, 0}, {0, 3}})
	assert.ErrorIs(t, num.Refactor(other), ErrPattern)
}

func TestSolveShortVector(t *testing.T) {
	m := fromDense(t, [][]float64{{2, 1}, {1, 3}})
	sym, _ := Analyze(m, DefaultOptions())
	num, _ := Factor(sym, m)
	assert.ErrorIs(t, num.Solve([]float64{1}), ErrSize)
}

func TestMulVecResidual(t *testing.T) {
	rows := [][]float64{{3, 0, 1}, {0, 2, 0}, {1, 0, 5}}
	m := fromDense(t, rows)
	b := []float64{1, 2, 3}
	x := solve(t, m, b)
	r := make([]float64, 3)
	m.MulVec(x, r)
	assert.InDeltaSlice(t, b, r, 1e-12)
}

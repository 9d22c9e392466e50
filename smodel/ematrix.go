package smodel

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// smallScale is a small value such that if the product of the
// branch length and the rate is less than it, P is an identity
// matrix.
const smallScale = 1e-30

// eigen is an eigendecomposition of a symmetrized rate matrix. It is
// never modified after creation and can be shared between copies.
type eigen struct {
	vals []float64
	vecs *mat.Dense
}

// EMatrix stores a reversible rate matrix as an eigendecomposition
// to quickly compute P=e^Qt. The matrix is normalized to one expected
// substitution per unit of time. EMatrix is not safe for concurrent
// use.
type EMatrix struct {
	n int
	// Scale is the expected number of substitutions of the
	// matrix before normalization.
	Scale float64
	freq  []float64
	sqrtF []float64
	e     *eigen
	left  *mat.Dense
}

// NewEMatrix creates a new EMatrix for n states.
func NewEMatrix(n int) *EMatrix {
	return &EMatrix{
		n:     n,
		freq:  make([]float64, n),
		sqrtF: make([]float64, n),
		left:  mat.NewDense(n, n, nil),
	}
}

// Copy creates a copy of EMatrix while saving eigendecomposition.
func (m *EMatrix) Copy() *EMatrix {
	newM := NewEMatrix(m.n)
	newM.Scale = m.Scale
	copy(newM.freq, m.freq)
	copy(newM.sqrtF, m.sqrtF)
	newM.e = m.e
	return newM
}

// Set computes the eigendecomposition of the rate matrix with
// Q_ij = S_ij * freq_j, where s is a symmetric matrix of
// exchangeabilities stored by rows.
func (m *EMatrix) Set(s, freq []float64) error {
	n := m.n
	if len(s) != n*n || len(freq) != n {
		return errors.New("wrong exchangeability matrix or frequencies size")
	}
	copy(m.freq, freq)
	for i, f := range freq {
		m.sqrtF[i] = math.Sqrt(f)
	}

	b := mat.NewSymDense(n, nil)
	scale := 0.0
	for i := 0; i < n; i++ {
		row := 0.0
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			row += s[i*n+j] * freq[j]
			if j > i {
				b.SetSym(i, j, s[i*n+j]*m.sqrtF[i]*m.sqrtF[j])
			}
		}
		b.SetSym(i, i, -row)
		scale += freq[i] * row
	}
	if scale < smallScale {
		return errors.New("rate matrix has zero substitution rate")
	}
	b.ScaleSym(1/scale, b)

	var es mat.EigenSym
	if ok := es.Factorize(b, true); !ok {
		return errors.New("eigendecomposition failed")
	}
	e := &eigen{
		vals: es.Values(nil),
		vecs: &mat.Dense{},
	}
	es.VectorsTo(e.vecs)

	m.Scale = scale
	m.e = e
	return nil
}

// Exp computes P=e^Qt and writes it to dst by rows. Negative
// elements caused by rounding are set to zero.
func (m *EMatrix) Exp(dst []float64, t float64) error {
	n := m.n
	if m.e == nil {
		return errors.New("rate matrix is not set")
	}
	if len(dst) != n*n {
		return errors.New("wrong transition matrix size")
	}
	if t < smallScale {
		for i := range dst {
			dst[i] = 0
		}
		for i := 0; i < n; i++ {
			dst[i*n+i] = 1
		}
		return nil
	}
	// This allows infinite branches
	if math.IsInf(t, 1) {
		t = math.MaxFloat64
	}

	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			m.left.Set(i, k, m.e.vecs.At(i, k)*math.Exp(m.e.vals[k]*t)/m.sqrtF[i])
		}
	}
	p := mat.NewDense(n, n, dst)
	p.Mul(m.left, m.e.vecs.T())
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := dst[i*n+j] * m.sqrtF[j]
			if v < 0 {
				v = 0
			}
			dst[i*n+j] = v
		}
	}
	return nil
}

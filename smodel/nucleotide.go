package smodel

// Nucleotide states are ordered A, C, G, T (or U).
const (
	nA = iota
	nC
	nG
	nT
)

const (
	minKappa = 1e-6
	maxKappa = 999
	minTheta = 1e-6
	maxTheta = 1 - 1e-6
	minGTR   = 1e-6
	maxGTR   = 999
)

// isTransition returns true for purine-purine and
// pyrimidine-pyrimidine substitutions.
func isTransition(i, j int) bool {
	return (i == nA && j == nG) || (i == nG && j == nA) ||
		(i == nC && j == nT) || (i == nT && j == nC)
}

// fillSymmetric sets all the off-diagonal exchangeabilities using f.
func fillSymmetric(s []float64, n int, f func(i, j int) float64) {
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				s[i*n+j] = f(i, j)
			}
		}
	}
}

// jc69 is the Jukes-Cantor model, it works for any alphabet.
type jc69 struct {
	n int
}

func (m *jc69) name() string { return "JC69" }

func (m *jc69) addParameters(func(*float64, string, float64, float64)) {}

func (m *jc69) exchangeabilities(s, freq []float64) {
	fillSymmetric(s, m.n, func(i, j int) float64 { return 1 })
}

func (m *jc69) copy() family { return &jc69{n: m.n} }

// k80 is the Kimura two-parameter model.
type k80 struct {
	kappa float64
}

func (m *k80) name() string { return "K80" }

func (m *k80) addParameters(add func(*float64, string, float64, float64)) {
	add(&m.kappa, "kappa", minKappa, maxKappa)
}

func (m *k80) exchangeabilities(s, freq []float64) {
	fillSymmetric(s, 4, func(i, j int) float64 {
		if isTransition(i, j) {
			return m.kappa
		}
		return 1
	})
}

func (m *k80) copy() family { return &k80{kappa: m.kappa} }

// t92 is the Tamura 1992 model; frequencies are defined by the GC
// content theta.
type t92 struct {
	kappa float64
	theta float64
}

func (m *t92) name() string { return "T92" }

func (m *t92) addParameters(add func(*float64, string, float64, float64)) {
	add(&m.kappa, "kappa", minKappa, maxKappa)
	add(&m.theta, "theta", minTheta, maxTheta)
}

func (m *t92) exchangeabilities(s, freq []float64) {
	freq[nA] = (1 - m.theta) / 2
	freq[nT] = (1 - m.theta) / 2
	freq[nC] = m.theta / 2
	freq[nG] = m.theta / 2
	fillSymmetric(s, 4, func(i, j int) float64 {
		if isTransition(i, j) {
			return m.kappa
		}
		return 1
	})
}

func (m *t92) copy() family { return &t92{kappa: m.kappa, theta: m.theta} }

// hky85 is the Hasegawa-Kishino-Yano model with fixed frequencies.
type hky85 struct {
	kappa float64
}

func (m *hky85) name() string { return "HKY85" }

func (m *hky85) addParameters(add func(*float64, string, float64, float64)) {
	add(&m.kappa, "kappa", minKappa, maxKappa)
}

func (m *hky85) exchangeabilities(s, freq []float64) {
	fillSymmetric(s, 4, func(i, j int) float64 {
		if isTransition(i, j) {
			return m.kappa
		}
		return 1
	})
}

func (m *hky85) copy() family { return &hky85{kappa: m.kappa} }

// gtr is the general time reversible model. Exchangeabilities are
// relative to A<->G: a is C<->T, b is A<->T, c is G<->T, d is A<->C,
// e is C<->G.
type gtr struct {
	a, b, c, d, e float64
}

func (m *gtr) name() string { return "GTR" }

func (m *gtr) addParameters(add func(*float64, string, float64, float64)) {
	add(&m.a, "a", minGTR, maxGTR)
	add(&m.b, "b", minGTR, maxGTR)
	add(&m.c, "c", minGTR, maxGTR)
	add(&m.d, "d", minGTR, maxGTR)
	add(&m.e, "e", minGTR, maxGTR)
}

func (m *gtr) exchangeabilities(s, freq []float64) {
	set := func(i, j int, v float64) {
		s[i*4+j] = v
		s[j*4+i] = v
	}
	set(nA, nG, 1)
	set(nC, nT, m.a)
	set(nA, nT, m.b)
	set(nG, nT, m.c)
	set(nA, nC, m.d)
	set(nC, nG, m.e)
}

func (m *gtr) copy() family {
	c := *m
	return &c
}

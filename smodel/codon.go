package smodel

import (
	"bitbucket.org/Davydov/rateshift/bio"
)

const (
	minOmega = 1e-6
	maxOmega = 999
)

// yn98 is the Goldman-Yang/Nielsen-Yang codon model (M0): single
// nucleotide substitutions only, transitions are multiplied by kappa
// and non-synonymous substitutions by omega.
type yn98 struct {
	gcode *bio.GeneticCode
	kappa float64
	omega float64
	// dist and transitions are precomputed codon distances.
	dist        []int
	transitions []int
}

func newYN98(gcode *bio.GeneticCode, kappa, omega float64) *yn98 {
	n := gcode.NCodon()
	m := &yn98{
		gcode:       gcode,
		kappa:       kappa,
		omega:       omega,
		dist:        make([]int, n*n),
		transitions: make([]int, n*n),
	}
	for i1, c1 := range gcode.NumCodon {
		for i2, c2 := range gcode.NumCodon {
			m.dist[i1*n+i2], m.transitions[i1*n+i2] = codonDistance(c1, c2)
		}
	}
	return m
}

func (m *yn98) name() string { return "YN98" }

func (m *yn98) addParameters(add func(*float64, string, float64, float64)) {
	add(&m.kappa, "kappa", minKappa, maxKappa)
	add(&m.omega, "omega", minOmega, maxOmega)
}

func (m *yn98) exchangeabilities(s, freq []float64) {
	n := m.gcode.NCodon()
	for i1 := 0; i1 < n; i1++ {
		for i2 := 0; i2 < n; i2++ {
			k := i1*n + i2
			if i1 == i2 || m.dist[k] > 1 {
				s[k] = 0
				continue
			}
			v := 1.0
			if m.transitions[k] == 1 {
				v *= m.kappa
			}
			if m.gcode.Map[m.gcode.NumCodon[i1]] != m.gcode.Map[m.gcode.NumCodon[i2]] {
				v *= m.omega
			}
			s[k] = v
		}
	}
}

func (m *yn98) copy() family {
	return &yn98{
		gcode:       m.gcode,
		kappa:       m.kappa,
		omega:       m.omega,
		dist:        m.dist,
		transitions: m.transitions,
	}
}

// codonDistance computes distance and number of transitions.
func codonDistance(c1, c2 string) (dist, transitions int) {
	for i := 0; i < len(c1); i++ {
		s1 := c1[i]
		s2 := c2[i]
		if s1 != s2 {
			dist++
			if ((s1 == 'A' || s1 == 'G') && (s2 == 'A' || s2 == 'G')) ||
				((s1 == 'T' || s1 == 'C') && (s2 == 'T' || s2 == 'C')) {
				transitions++
			}
		}
	}
	return
}

// F0 returns equal codon frequencies.
func F0(gcode *bio.GeneticCode) []float64 {
	n := gcode.NCodon()
	cf := make([]float64, n)
	for i := range cf {
		cf[i] = 1 / float64(n)
	}
	return cf
}

// F3X4 computes F3X4-style frequencies based on the alignment.
func F3X4(ali *bio.Alignment) ([]float64, error) {
	poscf, err := ali.PositionFrequencies()
	if err != nil {
		return nil, err
	}
	idx := map[byte]int{'T': 0, 'C': 1, 'A': 2, 'G': 3}
	gcode := ali.Alphabet.GeneticCode()
	cf := make([]float64, gcode.NCodon())

	sum := 0.0
	for ci, cs := range gcode.NumCodon {
		cf[ci] = poscf[0][idx[cs[0]]] * poscf[1][idx[cs[1]]] * poscf[2][idx[cs[2]]]
		sum += cf[ci]
	}
	for ci := range cf {
		cf[ci] /= sum
	}
	return cf, nil
}

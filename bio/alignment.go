package bio

import (
	"errors"
	"fmt"
)

// Alignment is an encoded sequence alignment. Every column keeps its
// 1-based position in the original alignment, so a single-column
// slice still knows where it came from.
type Alignment struct {
	Alphabet  *Alphabet
	Names     []string
	Data      [][]int
	Positions []int
}

// NewAlignment encodes sequences with an alphabet. All sequences must
// have the same length, which must be divisible by the alphabet word
// length.
func NewAlignment(seqs Sequences, alphabet *Alphabet) (*Alignment, error) {
	if len(seqs) == 0 {
		return nil, errors.New("empty alignment")
	}
	wl := alphabet.WordLength()
	length := len(seqs[0].Sequence)
	if length%wl != 0 {
		return nil, fmt.Errorf("sequence length doesn't divide by %d", wl)
	}
	ali := &Alignment{
		Alphabet:  alphabet,
		Names:     make([]string, len(seqs)),
		Data:      make([][]int, len(seqs)),
		Positions: make([]int, length/wl),
	}
	for i := range ali.Positions {
		ali.Positions[i] = i + 1
	}
	seen := make(map[string]bool, len(seqs))
	for i, seq := range seqs {
		if len(seq.Sequence) != length {
			return nil, fmt.Errorf("sequence %q has length %d, expected %d", seq.Name, len(seq.Sequence), length)
		}
		if seen[seq.Name] {
			return nil, fmt.Errorf("duplicate sequence name %q", seq.Name)
		}
		seen[seq.Name] = true
		ali.Names[i] = seq.Name
		row := make([]int, length/wl)
		for j := range row {
			code, err := alphabet.Encode(seq.Sequence[j*wl : (j+1)*wl])
			if err != nil {
				return nil, fmt.Errorf("sequence %q, site %d: %v", seq.Name, j+1, err)
			}
			row[j] = code
		}
		ali.Data[i] = row
	}
	log.Debugf("Encoded %d sequences, %d sites (%s)", ali.NSeqs(), ali.NSites(), alphabet.Name())
	return ali, nil
}

// NSeqs returns the number of sequences.
func (ali *Alignment) NSeqs() int {
	return len(ali.Data)
}

// NSites returns the number of columns.
func (ali *Alignment) NSites() int {
	return len(ali.Positions)
}

// Site returns a single-column alignment for the column i (0-based).
func (ali *Alignment) Site(i int) *Alignment {
	site := &Alignment{
		Alphabet:  ali.Alphabet,
		Names:     ali.Names,
		Data:      make([][]int, len(ali.Data)),
		Positions: []int{ali.Positions[i]},
	}
	for j, row := range ali.Data {
		site.Data[j] = []int{row[i]}
	}
	return site
}

// Row returns the index of the sequence with the given name, or -1.
func (ali *Alignment) Row(name string) int {
	for i, n := range ali.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// NUnknown returns the number of columns containing at least one
// unresolved character.
func (ali *Alignment) NUnknown() (count int) {
	for pos := 0; pos < ali.NSites(); pos++ {
		for _, row := range ali.Data {
			if !ali.Alphabet.IsResolved(row[pos]) {
				count++
				break
			}
		}
	}
	return
}

// NFixed calculates number of constant positions in the alignment.
func (ali *Alignment) NFixed() (f int) {
	f = ali.NSites()
	for pos := 0; pos < ali.NSites(); pos++ {
		for i := 1; i < len(ali.Data); i++ {
			if ali.Data[i][pos] != ali.Data[0][pos] {
				f--
				break
			}
		}
	}
	return
}

// Frequencies computes observed state frequencies. Ambiguous
// characters contribute equally to every compatible state, unknown
// characters are ignored. If nothing is observed frequencies are
// equal.
func (ali *Alignment) Frequencies() []float64 {
	n := ali.Alphabet.Size()
	freq := make([]float64, n)
	total := 0.0
	for _, row := range ali.Data {
		for _, code := range row {
			if code == ali.Alphabet.Unknown() {
				continue
			}
			v := ali.Alphabet.Compatible(code)
			s := 0.0
			for _, x := range v {
				s += x
			}
			for i, x := range v {
				freq[i] += x / s
			}
			total++
		}
	}
	for i := range freq {
		if total == 0 {
			freq[i] = 1 / float64(n)
		} else {
			freq[i] /= total
		}
	}
	return freq
}

// PositionFrequencies computes nucleotide frequencies at the three
// codon positions (rows) for a codon alignment. Columns follow the
// TCAG order. Only resolved codons are counted.
func (ali *Alignment) PositionFrequencies() ([3][4]float64, error) {
	var pf [3][4]float64
	gcode := ali.Alphabet.GeneticCode()
	if gcode == nil {
		return pf, errors.New("position frequencies require a codon alignment")
	}
	idx := map[byte]int{'T': 0, 'C': 1, 'A': 2, 'G': 3}
	for _, row := range ali.Data {
		for _, code := range row {
			if !ali.Alphabet.IsResolved(code) {
				continue
			}
			c := gcode.NumCodon[code]
			for p := 0; p < 3; p++ {
				pf[p][idx[c[p]]]++
			}
		}
	}
	for p := 0; p < 3; p++ {
		s := 0.0
		for _, x := range pf[p] {
			s += x
		}
		for l := range pf[p] {
			if s == 0 {
				pf[p][l] = 0.25
			} else {
				pf[p][l] /= s
			}
		}
	}
	return pf, nil
}

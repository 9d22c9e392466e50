package bio

import (
	"fmt"
	"strings"
)

// Alphabet encodes sequence characters (or codons) into states. Codes
// below Size() are resolved states, larger codes are ambiguity codes
// compatible with several states. Gaps are encoded as unknown
// characters.
//
// Ambiguous codon codes are created on demand by Encode, so an
// alphabet must not be used for encoding from several goroutines.
type Alphabet struct {
	name    string
	wordLen int
	size    int
	codes   map[string]int
	words   []string
	compat  [][]float64
	unknown int
	gcode   *GeneticCode
}

// iupac maps nucleotide ambiguity letters to the letters they may
// stand for.
var iupac = map[byte]string{
	'A': "A", 'C': "C", 'G': "G", 'T': "T", 'U': "T",
	'R': "AG", 'Y': "CT", 'S': "CG", 'W': "AT", 'K': "GT", 'M': "AC",
	'B': "CGT", 'D': "AGT", 'H': "ACT", 'V': "ACG",
	'N': "ACGT", 'X': "ACGT", '-': "ACGT", '?': "ACGT", '.': "ACGT",
}

// nucleotideGaps are the nucleotide characters treated as fully
// unknown.
const nucleotideGaps = "-?.NX"

const aminoAcids = "ARNDCQEGHILKMFPSTWYV"

// newAlphabet creates an alphabet from resolved states. Ambiguity
// codes are added later with addCode.
func newAlphabet(name string, wordLen int, states []string) *Alphabet {
	a := &Alphabet{
		name:    name,
		wordLen: wordLen,
		size:    len(states),
		codes:   make(map[string]int, len(states)*2),
	}
	for i, s := range states {
		v := make([]float64, len(states))
		v[i] = 1
		a.codes[s] = i
		a.words = append(a.words, s)
		a.compat = append(a.compat, v)
	}
	all := make([]bool, len(states))
	for i := range all {
		all[i] = true
	}
	a.unknown = a.addCode(strings.Repeat("-", wordLen), all)
	return a
}

// addCode registers an ambiguity code compatible with a set of
// states and returns its number.
func (a *Alphabet) addCode(word string, states []bool) int {
	if code, ok := a.codes[word]; ok {
		return code
	}
	v := make([]float64, a.size)
	for i, ok := range states {
		if ok {
			v[i] = 1
		}
	}
	code := len(a.words)
	a.codes[word] = code
	a.words = append(a.words, word)
	a.compat = append(a.compat, v)
	return code
}

// NewDNA creates the nucleotide alphabet (A, C, G, T).
func NewDNA() *Alphabet {
	a := newAlphabet("DNA", 1, []string{"A", "C", "G", "T"})
	a.codes["U"] = a.codes["T"]
	a.addNucleotideCodes()
	return a
}

// NewRNA creates the RNA alphabet (A, C, G, U).
func NewRNA() *Alphabet {
	a := newAlphabet("RNA", 1, []string{"A", "C", "G", "U"})
	a.codes["T"] = a.codes["U"]
	a.addNucleotideCodes()
	return a
}

// addNucleotideCodes adds IUPAC ambiguity letters.
func (a *Alphabet) addNucleotideCodes() {
	for _, letter := range []byte("RYSWKMBDHV" + nucleotideGaps) {
		set := iupac[letter]
		if strings.IndexByte(nucleotideGaps, letter) >= 0 {
			a.codes[string(letter)] = a.unknown
			continue
		}
		states := make([]bool, a.size)
		for i := 0; i < len(set); i++ {
			states[strings.IndexByte("ACGT", set[i])] = true
		}
		a.addCode(string(letter), states)
	}
}

// NewProtein creates the 20 amino acids alphabet.
func NewProtein() *Alphabet {
	states := make([]string, len(aminoAcids))
	for i := range aminoAcids {
		states[i] = aminoAcids[i : i+1]
	}
	a := newAlphabet("Protein", 1, states)
	for _, amb := range [...][2]string{{"B", "ND"}, {"Z", "QE"}, {"J", "IL"}} {
		word, set := amb[0], amb[1]
		st := make([]bool, a.size)
		for i := 0; i < len(set); i++ {
			st[strings.IndexByte(aminoAcids, set[i])] = true
		}
		a.addCode(word, st)
	}
	for _, c := range "-?.X*" {
		a.codes[string(c)] = a.unknown
	}
	return a
}

// NewCodon creates a codon alphabet (sense codons only) for a
// genetic code.
func NewCodon(gcode *GeneticCode) *Alphabet {
	a := newAlphabet("Codon", 3, gcode.NumCodon)
	a.gcode = gcode
	return a
}

// Name returns the alphabet name.
func (a *Alphabet) Name() string {
	return a.name
}

// Size returns the number of resolved states.
func (a *Alphabet) Size() int {
	return a.size
}

// WordLength returns the number of sequence letters per state.
func (a *Alphabet) WordLength() int {
	return a.wordLen
}

// GeneticCode returns the genetic code of a codon alphabet or nil.
func (a *Alphabet) GeneticCode() *GeneticCode {
	return a.gcode
}

// Unknown returns the code of a completely unknown character.
func (a *Alphabet) Unknown() int {
	return a.unknown
}

// State returns the word for a code.
func (a *Alphabet) State(code int) string {
	return a.words[code]
}

// IsResolved returns true if the code is a single state.
func (a *Alphabet) IsResolved(code int) bool {
	return code < a.size
}

// Compatible returns a vector with ones for the states compatible with
// the code and zeros elsewhere. The slice must not be modified.
func (a *Alphabet) Compatible(code int) []float64 {
	return a.compat[code]
}

// Encode converts a word (one letter or a codon) into a code.
func (a *Alphabet) Encode(word string) (int, error) {
	word = strings.ToUpper(word)
	if a.gcode != nil {
		word = strings.Replace(word, "U", "T", -1)
	}
	if len(word) != a.wordLen {
		return 0, fmt.Errorf("%s: wrong word length %q", a.name, word)
	}
	if code, ok := a.codes[word]; ok {
		return code, nil
	}
	if a.wordLen == 1 {
		return 0, fmt.Errorf("%s: unknown character %q", a.name, word)
	}
	return a.encodeCodon(word)
}

// encodeCodon resolves a codon with ambiguous or gap nucleotides.
func (a *Alphabet) encodeCodon(word string) (int, error) {
	sets := make([]string, 3)
	unknown := 0
	for i := 0; i < 3; i++ {
		set, ok := iupac[word[i]]
		if !ok {
			return 0, fmt.Errorf("codon: unknown character in %q", word)
		}
		if strings.IndexByte(nucleotideGaps, word[i]) >= 0 {
			unknown++
		}
		sets[i] = set
	}
	if unknown == 3 {
		a.codes[word] = a.unknown
		return a.unknown, nil
	}
	states := make([]bool, a.size)
	n := 0
	for _, l1 := range sets[0] {
		for _, l2 := range sets[1] {
			for _, l3 := range sets[2] {
				if cn, ok := a.gcode.CodonNum[string([]rune{l1, l2, l3})]; ok {
					states[cn] = true
					n++
				}
			}
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("codon: %q is a stop codon in the %s code", word, a.gcode.Name)
	}
	return a.addCode(word, states), nil
}

// AlphabetByName creates an alphabet from its name. Codon alphabets
// require a genetic code.
func AlphabetByName(name string, gcode *GeneticCode) (*Alphabet, error) {
	switch strings.ToLower(name) {
	case "dna":
		return NewDNA(), nil
	case "rna":
		return NewRNA(), nil
	case "protein":
		return NewProtein(), nil
	case "codon":
		if gcode == nil {
			return nil, fmt.Errorf("codon alphabet requires a genetic code")
		}
		return NewCodon(gcode), nil
	}
	return nil, fmt.Errorf("unknown alphabet %q", name)
}

package bio

import (
	"fmt"
	"sort"
	"strings"
)

// nucleotides in the order used to enumerate codons.
var nucleotides = [...]byte{'T', 'C', 'A', 'G'}

// standardCode is the standard genetic code, codon string (capital
// letters) is the key, amino acids (capital letter) are values.
var standardCode = map[string]byte{
	"ATA": 'I', "ATC": 'I', "ATT": 'I', "ATG": 'M',
	"ACA": 'T', "ACC": 'T', "ACG": 'T', "ACT": 'T',
	"AAC": 'N', "AAT": 'N', "AAA": 'K', "AAG": 'K',
	"AGC": 'S', "AGT": 'S', "AGA": 'R', "AGG": 'R',
	"CTA": 'L', "CTC": 'L', "CTG": 'L', "CTT": 'L',
	"CCA": 'P', "CCC": 'P', "CCG": 'P', "CCT": 'P',
	"CAC": 'H', "CAT": 'H', "CAA": 'Q', "CAG": 'Q',
	"CGA": 'R', "CGC": 'R', "CGG": 'R', "CGT": 'R',
	"GTA": 'V', "GTC": 'V', "GTG": 'V', "GTT": 'V',
	"GCA": 'A', "GCC": 'A', "GCG": 'A', "GCT": 'A',
	"GAC": 'D', "GAT": 'D', "GAA": 'E', "GAG": 'E',
	"GGA": 'G', "GGC": 'G', "GGG": 'G', "GGT": 'G',
	"TCA": 'S', "TCC": 'S', "TCG": 'S', "TCT": 'S',
	"TTC": 'F', "TTT": 'F', "TTA": 'L', "TTG": 'L',
	"TAC": 'Y', "TAT": 'Y', "TAA": '*', "TAG": '*',
	"TGC": 'C', "TGT": 'C', "TGA": '*', "TGG": 'W'}

// GeneticCode maps sense codons to amino acids and numbers them.
type GeneticCode struct {
	// ID is the NCBI genetic code id.
	ID int
	// Name is the genetic code name.
	Name string
	// Map is a map, codon string (capital letters) is the key,
	// amino acids (capital letter) are values; '*' is a stop codon.
	Map map[string]byte
	// NumCodon maps codon numbers to sense codons.
	NumCodon []string
	// CodonNum maps sense codons to their numbers.
	CodonNum map[string]int
}

// GeneticCodes are the supported genetic codes indexed by NCBI id.
var GeneticCodes = map[int]*GeneticCode{}

func init() {
	addCode(1, "Standard", nil)
	addCode(2, "VertebrateMitochondrial", map[string]byte{
		"AGA": '*', "AGG": '*', "ATA": 'M', "TGA": 'W'})
	addCode(3, "YeastMitochondrial", map[string]byte{
		"ATA": 'M', "CTT": 'T', "CTC": 'T', "CTA": 'T', "CTG": 'T', "TGA": 'W'})
	addCode(4, "MoldMitochondrial", map[string]byte{"TGA": 'W'})
	addCode(5, "InvertebrateMitochondrial", map[string]byte{
		"AGA": 'S', "AGG": 'S', "ATA": 'M', "TGA": 'W'})
	addCode(9, "EchinodermMitochondrial", map[string]byte{
		"AAA": 'N', "AGA": 'S', "AGG": 'S', "TGA": 'W'})
	addCode(11, "Bacterial", nil)
	addCode(13, "AscidianMitochondrial", map[string]byte{
		"AGA": 'G', "AGG": 'G', "ATA": 'M', "TGA": 'W'})
}

// addCode registers a genetic code which differs from the standard
// one by the given codons.
func addCode(id int, name string, diff map[string]byte) {
	gc := &GeneticCode{
		ID:       id,
		Name:     name,
		Map:      make(map[string]byte, len(standardCode)),
		CodonNum: make(map[string]int, len(standardCode)),
	}
	for codon, aa := range standardCode {
		gc.Map[codon] = aa
	}
	for codon, aa := range diff {
		gc.Map[codon] = aa
	}
	for _, codon := range Codons() {
		if gc.IsStopCodon(codon) {
			continue
		}
		gc.CodonNum[codon] = len(gc.NumCodon)
		gc.NumCodon = append(gc.NumCodon, codon)
	}
	GeneticCodes[id] = gc
}

// Codons returns all 64 codons in TCAG order.
func Codons() []string {
	codons := make([]string, 0, 64)
	for _, l1 := range nucleotides {
		for _, l2 := range nucleotides {
			for _, l3 := range nucleotides {
				codons = append(codons, string([]byte{l1, l2, l3}))
			}
		}
	}
	return codons
}

// NCodon returns the number of sense codons.
func (gc *GeneticCode) NCodon() int {
	return len(gc.NumCodon)
}

// IsStopCodon tests if the string is a stop-codon (DNA alphabet,
// capital letters).
func (gc *GeneticCode) IsStopCodon(codon string) bool {
	return gc.Map[codon] == '*'
}

// Translate returns the amino acid encoded by a codon.
func (gc *GeneticCode) Translate(codon string) byte {
	return gc.Map[codon]
}

// GeneticCodeByName finds a genetic code by its name (case
// insensitive) or by its NCBI id.
func GeneticCodeByName(name string) (*GeneticCode, error) {
	for _, gc := range GeneticCodes {
		if strings.EqualFold(gc.Name, name) || fmt.Sprint(gc.ID) == name {
			return gc, nil
		}
	}
	names := make([]string, 0, len(GeneticCodes))
	for _, gc := range GeneticCodes {
		names = append(names, gc.Name)
	}
	sort.Strings(names)
	return nil, fmt.Errorf("unknown genetic code %q, known codes: %s", name, strings.Join(names, ", "))
}

package bio

import (
	"bytes"
	"math"
	"testing"
)

const fasta1 = `>a
ACGT-N
>b
acgtrg

>c
ACG TAA
`

func TestParseFasta(tst *testing.T) {
	seqs, err := ParseFasta(bytes.NewBufferString(fasta1))
	if err != nil {
		tst.Fatal("Error parsing fasta:", err)
	}
	if len(seqs) != 3 {
		tst.Fatalf("Expected 3 sequences, got %d", len(seqs))
	}
	if seqs[1].Name != "b" || seqs[1].Sequence != "ACGTRG" {
		tst.Error("Wrong second sequence:", seqs[1])
	}
	if seqs[2].Sequence != "ACGTAA" {
		tst.Error("Spaces were not removed:", seqs[2].Sequence)
	}
	if _, err := ParseFasta(bytes.NewBufferString("ACGT\n>a\nACGT")); err == nil {
		tst.Error("Expected an error for sequence w/o prefix")
	}
	if _, err := ParseFasta(bytes.NewBufferString(">\nACGT")); err == nil {
		tst.Error("Expected an error for an empty name")
	}
	if _, err := ParseFasta(bytes.NewBufferString("\n\n")); err == nil {
		tst.Error("Expected an error for an empty file")
	}
}

func TestDNAEncode(tst *testing.T) {
	a := NewDNA()
	if a.Size() != 4 {
		tst.Fatal("Wrong DNA size:", a.Size())
	}
	for i, l := range []string{"A", "C", "G", "T"} {
		code, err := a.Encode(l)
		if err != nil || code != i {
			tst.Errorf("Wrong code for %s: %d (%v)", l, code, err)
		}
	}
	for _, l := range []string{"-", "N", "?"} {
		code, err := a.Encode(l)
		if err != nil || code != a.Unknown() {
			tst.Errorf("%s should be unknown, got %d (%v)", l, code, err)
		}
	}
	code, err := a.Encode("R")
	if err != nil {
		tst.Fatal(err)
	}
	v := a.Compatible(code)
	if v[0] != 1 || v[1] != 0 || v[2] != 1 || v[3] != 0 {
		tst.Error("Wrong compatibility vector for R:", v)
	}
	if _, err := a.Encode("Z"); err == nil {
		tst.Error("Expected an error for Z")
	}
}

func TestProteinUnknown(tst *testing.T) {
	a := NewProtein()
	code, err := a.Encode("N")
	if err != nil || !a.IsResolved(code) {
		tst.Error("N must be asparagine in protein alphabet")
	}
	code, _ = a.Encode("X")
	if code != a.Unknown() {
		tst.Error("X must be unknown in protein alphabet")
	}
}

func TestCodonEncode(tst *testing.T) {
	gc := GeneticCodes[1]
	if gc.NCodon() != 61 {
		tst.Fatal("Standard code must have 61 sense codons, got", gc.NCodon())
	}
	a := NewCodon(gc)
	code, err := a.Encode("ATG")
	if err != nil || a.State(code) != "ATG" {
		tst.Error("Wrong ATG encoding:", code, err)
	}
	if _, err := a.Encode("TAA"); err == nil {
		tst.Error("Expected an error for a stop codon")
	}
	code, err = a.Encode("---")
	if err != nil || code != a.Unknown() {
		tst.Error("--- must be unknown")
	}
	// TAR is a stop codon only, TAY is Tyr.
	code, err = a.Encode("TAY")
	if err != nil {
		tst.Fatal(err)
	}
	n := 0.0
	for _, x := range a.Compatible(code) {
		n += x
	}
	if n != 2 {
		tst.Error("TAY must be compatible with 2 codons, got", n)
	}
	vm := GeneticCodes[2]
	if !vm.IsStopCodon("AGA") || vm.IsStopCodon("TGA") {
		tst.Error("Wrong vertebrate mitochondrial code")
	}
}

func TestAlignmentSite(tst *testing.T) {
	seqs := Sequences{{"a", "ACGT"}, {"b", "AC-T"}}
	ali, err := NewAlignment(seqs, NewDNA())
	if err != nil {
		tst.Fatal(err)
	}
	if ali.NSites() != 4 || ali.NSeqs() != 2 {
		tst.Fatal("Wrong alignment dimensions")
	}
	site := ali.Site(2)
	if site.NSites() != 1 || site.Positions[0] != 3 {
		tst.Error("Wrong site position:", site.Positions)
	}
	if site.Data[1][0] != ali.Alphabet.Unknown() {
		tst.Error("Gap must be unknown")
	}
	if ali.NUnknown() != 1 || ali.NFixed() != 3 {
		tst.Error("Wrong unknown/fixed counts:", ali.NUnknown(), ali.NFixed())
	}
	f := ali.Frequencies()
	// A:2 C:2 G:1 T:2 out of 7
	if math.Abs(f[2]-1.0/7) > 1e-12 || math.Abs(f[0]-2.0/7) > 1e-12 {
		tst.Error("Wrong frequencies:", f)
	}
	if _, err := NewAlignment(Sequences{{"a", "AC"}, {"b", "A"}}, NewDNA()); err == nil {
		tst.Error("Expected an error for sequences of different length")
	}
}

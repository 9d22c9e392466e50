package smodel

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"bitbucket.org/Davydov/rateshift/bio"
)

// Families lists supported model names.
var Families = []string{"JC69", "K80", "T92", "HKY85", "GTR", "YN98"}

// New creates a model by the family name. Arguments set initial
// parameter values (e.g. kappa=2) and the frequencies: "observed"
// (default) or "equal" for nucleotides, "F0", "F3X4" (default) or
// "F61" for codons. The alignment is used for observed frequencies
// and can be nil if they are not required.
func New(name string, args map[string]string, alphabet *bio.Alphabet, ali *bio.Alignment) (Model, error) {
	args = copyArgs(args)
	freqMode := args["frequencies"]
	delete(args, "frequencies")

	var f family
	var freq []float64
	var err error
	nucleotide := alphabet.WordLength() == 1 && alphabet.Size() == 4

	switch strings.ToUpper(name) {
	case "JC69":
		f = &jc69{n: alphabet.Size()}
		freq = equal(alphabet.Size())
		if freqMode != "" {
			return nil, fmt.Errorf("JC69 has equal frequencies")
		}
	case "K80":
		if !nucleotide {
			return nil, fmt.Errorf("K80 requires a nucleotide alphabet, got %s", alphabet.Name())
		}
		f = &k80{kappa: 2}
		freq = equal(4)
		if freqMode != "" {
			return nil, fmt.Errorf("K80 has equal frequencies")
		}
	case "T92":
		if !nucleotide {
			return nil, fmt.Errorf("T92 requires a nucleotide alphabet, got %s", alphabet.Name())
		}
		f = &t92{kappa: 2, theta: 0.5}
		freq = equal(4)
		if freqMode != "" {
			return nil, fmt.Errorf("T92 frequencies are defined by theta")
		}
	case "HKY85", "GTR":
		if !nucleotide {
			return nil, fmt.Errorf("%s requires a nucleotide alphabet, got %s", name, alphabet.Name())
		}
		if strings.ToUpper(name) == "HKY85" {
			f = &hky85{kappa: 2}
		} else {
			f = &gtr{a: 1, b: 1, c: 1, d: 1, e: 1}
		}
		switch strings.ToLower(freqMode) {
		case "", "observed":
			if ali == nil {
				return nil, fmt.Errorf("observed frequencies require an alignment")
			}
			freq = ali.Frequencies()
		case "equal":
			freq = equal(4)
		default:
			return nil, fmt.Errorf("unknown frequencies %q", freqMode)
		}
	case "YN98":
		gcode := alphabet.GeneticCode()
		if gcode == nil {
			return nil, fmt.Errorf("YN98 requires a codon alphabet, got %s", alphabet.Name())
		}
		f = newYN98(gcode, 2, 1)
		switch strings.ToUpper(freqMode) {
		case "F0":
			freq = F0(gcode)
		case "", "F3X4":
			if ali == nil {
				return nil, fmt.Errorf("F3X4 frequencies require an alignment")
			}
			if freq, err = F3X4(ali); err != nil {
				return nil, err
			}
		case "F61":
			if ali == nil {
				return nil, fmt.Errorf("F61 frequencies require an alignment")
			}
			freq = ali.Frequencies()
		default:
			return nil, fmt.Errorf("unknown codon frequencies %q", freqMode)
		}
	default:
		return nil, fmt.Errorf("unknown substitution model %q (supported: %s)",
			name, strings.Join(Families, ", "))
	}

	m := newBaseModel(f, alphabet, freq)
	if err := m.setArgs(args); err != nil {
		return nil, err
	}
	log.Debugf("Created model %s", m)
	return m, nil
}

// setArgs sets initial parameter values.
func (m *BaseModel) setArgs(args map[string]string) error {
	names := make([]string, 0, len(args))
	for k := range args {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		par := m.parameters.Get(m.Namespace() + k)
		if par == nil {
			return fmt.Errorf("%s has no parameter %q", m.Name(), k)
		}
		v, err := strconv.ParseFloat(args[k], 64)
		if err != nil {
			return fmt.Errorf("wrong value for %s: %v", par.Name(), err)
		}
		if !par.ValueInRange(v) {
			return fmt.Errorf("%s=%v is out of range [%v, %v]", par.Name(), v, par.GetMin(), par.GetMax())
		}
		par.Set(v)
	}
	return nil
}

func equal(n int) []float64 {
	f := make([]float64, n)
	for i := range f {
		f[i] = 1 / float64(n)
	}
	return f
}

func copyArgs(args map[string]string) map[string]string {
	c := make(map[string]string, len(args))
	for k, v := range args {
		c[k] = v
	}
	return c
}

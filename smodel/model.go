// Package smodel provides reversible substitution models for
// nucleotides, amino acids and codons.
package smodel

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/op/go-logging"

	"bitbucket.org/Davydov/rateshift/bio"
	"bitbucket.org/Davydov/rateshift/optimize"
)

var log = logging.MustGetLogger("smodel")

const (
	// minFreq is the minimal equilibrium frequency.
	minFreq = 1e-8
	// Rate parameter boundaries.
	minRate = 1e-6
	maxRate = 1e3
)

// ErrRateExists is returned by AddRateParameter if the model already
// has a rate parameter.
var ErrRateExists = errors.New("rate parameter already exists")

// Model is a substitution model. Parameter names are prefixed with
// the model namespace. Models are not safe for concurrent use, use
// Copy for every goroutine.
type Model interface {
	// Name returns the model family name, e.g. HKY85.
	Name() string
	// Namespace returns the parameter name prefix.
	Namespace() string
	Alphabet() *bio.Alphabet
	// NStates returns the number of resolved states.
	NStates() int
	// Parameters returns the model parameters.
	Parameters() optimize.FloatParameters
	// Frequencies returns the equilibrium frequencies.
	Frequencies() []float64
	// Transition computes the transition probability matrix for
	// the time t and writes it by rows to dst.
	Transition(t float64, dst []float64) error
	// Version changes every time a parameter changes.
	Version() uint64
	// AddRateParameter adds the <namespace>rate parameter which
	// scales the normalized rate matrix. It can be only called
	// once.
	AddRateParameter() error
	// HasRate returns true if the rate parameter is present.
	HasRate() bool
	// Rate returns the rate multiplier.
	Rate() float64
	// Copy returns an independent copy.
	Copy() Model
	String() string
}

// family is a substitution model implementation, it provides the
// exchangeabilities and the family-specific parameters.
type family interface {
	// name returns the family name.
	name() string
	// addParameters adds the family parameters.
	addParameters(add func(value *float64, name string, min, max float64))
	// exchangeabilities fills the symmetric exchangeability
	// matrix (by rows) and may update the frequencies.
	exchangeabilities(s, freq []float64)
	// copy returns an independent copy.
	copy() family
}

// BaseModel stores the state shared by all the families:
// frequencies, the rate parameter and the cached eigendecomposition.
type BaseModel struct {
	family

	alphabet   *bio.Alphabet
	n          int
	freq       []float64
	rate       float64
	hasRate    bool
	parameters optimize.FloatParameters

	// version changes with any parameter, qVersion only with
	// parameters changing the rate matrix shape.
	version  uint64
	qVersion uint64
	eVersion uint64

	s  []float64
	em *EMatrix
}

// newBaseModel creates a model of the family with the frequencies.
func newBaseModel(f family, alphabet *bio.Alphabet, freq []float64) *BaseModel {
	n := alphabet.Size()
	m := &BaseModel{
		family:   f,
		alphabet: alphabet,
		n:        n,
		freq:     make([]float64, n),
		rate:     1,
		version:  1,
		qVersion: 1,
		s:        make([]float64, n*n),
		em:       NewEMatrix(n),
	}
	m.setFrequencies(freq)
	m.setupParameters()
	return m
}

// setFrequencies copies frequencies, frequencies below minFreq are
// raised and renormalized.
func (m *BaseModel) setFrequencies(freq []float64) {
	sum := 0.0
	for i, f := range freq {
		if f < minFreq || math.IsNaN(f) {
			f = minFreq
		}
		m.freq[i] = f
		sum += f
	}
	for i := range m.freq {
		m.freq[i] /= sum
	}
}

// setupParameters first deletes all the parameters and then adds
// them.
func (m *BaseModel) setupParameters() {
	m.parameters = nil
	m.family.addParameters(func(value *float64, name string, min, max float64) {
		par := optimize.NewBasicFloatParameter(value, m.Namespace()+name)
		par.SetMin(min)
		par.SetMax(max)
		par.SetOnChange(func() {
			m.version++
			m.qVersion++
		})
		m.parameters.Append(par)
	})
	if m.hasRate {
		par := optimize.NewBasicFloatParameter(&m.rate, m.Namespace()+"rate")
		par.SetMin(minRate)
		par.SetMax(maxRate)
		par.SetOnChange(func() {
			m.version++
		})
		m.parameters.Append(par)
	}
}

func (m *BaseModel) Name() string {
	return m.family.name()
}

func (m *BaseModel) Namespace() string {
	return m.family.name() + "."
}

func (m *BaseModel) Alphabet() *bio.Alphabet {
	return m.alphabet
}

func (m *BaseModel) NStates() int {
	return m.n
}

func (m *BaseModel) Parameters() optimize.FloatParameters {
	return m.parameters
}

// Frequencies returns the equilibrium frequencies. The slice must not
// be modified.
func (m *BaseModel) Frequencies() []float64 {
	if m.eVersion != m.qVersion {
		// some families derive frequencies from parameters
		m.family.exchangeabilities(m.s, m.freq)
	}
	return m.freq
}

func (m *BaseModel) Version() uint64 {
	return m.version
}

func (m *BaseModel) HasRate() bool {
	return m.hasRate
}

func (m *BaseModel) Rate() float64 {
	return m.rate
}

// AddRateParameter adds the rate parameter.
func (m *BaseModel) AddRateParameter() error {
	if m.hasRate {
		return ErrRateExists
	}
	m.hasRate = true
	m.rate = 1
	m.version++
	m.setupParameters()
	return nil
}

// update recomputes the eigendecomposition if needed.
func (m *BaseModel) update() error {
	if m.eVersion == m.qVersion {
		return nil
	}
	for i := range m.s {
		m.s[i] = 0
	}
	m.family.exchangeabilities(m.s, m.freq)
	if err := m.em.Set(m.s, m.freq); err != nil {
		return fmt.Errorf("%s: %v", m.Name(), err)
	}
	m.eVersion = m.qVersion
	log.Debugf("%s: new rate matrix, scale=%v", m.Name(), m.em.Scale)
	return nil
}

// Transition computes P(t) of the rate-scaled normalized matrix.
func (m *BaseModel) Transition(t float64, dst []float64) error {
	if err := m.update(); err != nil {
		return err
	}
	return m.em.Exp(dst, t*m.rate)
}

// Copy creates an independent copy of the model. Eigendecomposition
// is reused.
func (m *BaseModel) Copy() Model {
	newM := &BaseModel{
		family:   m.family.copy(),
		alphabet: m.alphabet,
		n:        m.n,
		freq:     append([]float64(nil), m.freq...),
		rate:     m.rate,
		hasRate:  m.hasRate,
		version:  m.version,
		qVersion: m.qVersion,
		eVersion: m.eVersion,
		s:        make([]float64, len(m.s)),
		em:       m.em.Copy(),
	}
	newM.setupParameters()
	return newM
}

func (m *BaseModel) String() string {
	s := make([]string, 0, len(m.parameters))
	for _, par := range m.parameters {
		s = append(s, strings.TrimPrefix(par.Name(), m.Namespace())+"="+
			strconv.FormatFloat(par.Get(), 'g', 6, 64))
	}
	return m.Name() + "(" + strings.Join(s, ", ") + ")"
}

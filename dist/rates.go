package dist

import (
	"fmt"

	"bitbucket.org/Davydov/rateshift/optimize"
)

// RateDistribution is a discrete distribution of rates among sites.
// Rates have mean one.
type RateDistribution interface {
	// Name is the distribution name, also used as the parameter
	// namespace.
	Name() string
	// NCategories returns the number of rate categories.
	NCategories() int
	// Rates returns category rates.
	Rates() []float64
	// Probabilities returns category probabilities.
	Probabilities() []float64
	// Parameters returns the distribution parameters.
	Parameters() optimize.FloatParameters
	// Version changes every time a parameter changes.
	Version() uint64
	// Copy returns an independent copy.
	Copy() RateDistribution
	// String describes the distribution.
	String() string
}

// Constant is a single category distribution, every site evolves with
// rate one.
type Constant struct{}

// NewConstant creates a constant rate distribution.
func NewConstant() *Constant {
	return &Constant{}
}

func (c *Constant) Name() string                         { return "Constant" }
func (c *Constant) NCategories() int                     { return 1 }
func (c *Constant) Rates() []float64                     { return []float64{1} }
func (c *Constant) Probabilities() []float64             { return []float64{1} }
func (c *Constant) Parameters() optimize.FloatParameters { return nil }
func (c *Constant) Version() uint64                      { return 0 }
func (c *Constant) Copy() RateDistribution               { return &Constant{} }
func (c *Constant) String() string                       { return "Constant" }

const (
	minAlpha = 0.05
	maxAlpha = 500.0
)

// Gamma is the discrete gamma distribution with mean one (shape =
// rate = alpha) and equally probable categories, rates are category
// means.
type Gamma struct {
	n          int
	alpha      float64
	version    uint64
	done       uint64
	rates      []float64
	probs      []float64
	tmp        []float64
	parameters optimize.FloatParameters
}

// NewGamma creates a discrete gamma distribution.
func NewGamma(n int, alpha float64) (*Gamma, error) {
	if n < 1 {
		return nil, fmt.Errorf("number of gamma categories must be positive, got %d", n)
	}
	if alpha < minAlpha || alpha > maxAlpha {
		return nil, fmt.Errorf("gamma alpha must be in [%g, %g], got %g", minAlpha, maxAlpha, alpha)
	}
	g := &Gamma{
		n:       n,
		alpha:   alpha,
		version: 1,
		rates:   make([]float64, n),
		probs:   make([]float64, n),
		tmp:     make([]float64, n),
	}
	for i := range g.probs {
		g.probs[i] = 1 / float64(n)
	}
	g.setupParameters()
	return g, nil
}

func (g *Gamma) setupParameters() {
	g.parameters = nil
	alpha := optimize.NewBasicFloatParameter(&g.alpha, g.Name()+".alpha")
	alpha.SetMin(minAlpha)
	alpha.SetMax(maxAlpha)
	alpha.SetOnChange(func() {
		g.version++
	})
	g.parameters.Append(alpha)
}

func (g *Gamma) Name() string {
	return "Gamma"
}

func (g *Gamma) NCategories() int {
	return g.n
}

// Alpha returns the shape parameter.
func (g *Gamma) Alpha() float64 {
	return g.alpha
}

// Rates computes the category rates if needed.
func (g *Gamma) Rates() []float64 {
	if g.done != g.version {
		DiscreteGamma(g.alpha, g.alpha, g.n, false, g.tmp, g.rates)
		g.done = g.version
	}
	return g.rates
}

func (g *Gamma) Probabilities() []float64 {
	return g.probs
}

func (g *Gamma) Parameters() optimize.FloatParameters {
	return g.parameters
}

func (g *Gamma) Version() uint64 {
	return g.version
}

func (g *Gamma) Copy() RateDistribution {
	newG, err := NewGamma(g.n, g.alpha)
	if err != nil {
		panic(err)
	}
	return newG
}

func (g *Gamma) String() string {
	return fmt.Sprintf("Gamma(n=%d, alpha=%g)", g.n, g.alpha)
}

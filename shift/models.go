package shift

import (
	"bitbucket.org/Davydov/rateshift/bio"
	"bitbucket.org/Davydov/rateshift/dist"
	"bitbucket.org/Davydov/rateshift/likelihood"
	"bitbucket.org/Davydov/rateshift/optimize"
	"bitbucket.org/Davydov/rateshift/smodel"
	"bitbucket.org/Davydov/rateshift/tree"
)

// Kind is the likelihood model variant.
type Kind int

const (
	// OneRate has a single rate on every branch.
	OneRate Kind = iota + 1
	// TwoRate has separate foreground and background rates.
	TwoRate
)

func (k Kind) String() string {
	switch k {
	case OneRate:
		return "one-rate"
	case TwoRate:
		return "two-rate"
	}
	return "unknown"
}

// Suffixes of the two-rate model parameters.
const (
	ForegroundSuffix = "_fg"
	BackgroundSuffix = "_bg"
)

// LikelihoodModel is a site likelihood model with free rate
// parameters. Implementations are not safe for concurrent use.
type LikelihoodModel interface {
	Kind() Kind
	// SetData binds the model to an alignment.
	SetData(ali *bio.Alignment) error
	// Likelihood computes the log likelihood.
	Likelihood() float64
	// Optimizable returns the model with all its parameters.
	Optimizable() optimize.Optimizable
	// RateParameterNames returns the free rate parameter names.
	RateParameterNames() []string
	// Rates returns the current rate parameter values.
	Rates() []float64
	// NFree returns the number of free parameters.
	NFree() int
	// Copy returns an independent copy.
	Copy() LikelihoodModel
}

// rateModel is the part shared by both variants.
type rateModel struct {
	tl    *likelihood.TreeLikelihood
	names []string
}

func (m *rateModel) SetData(ali *bio.Alignment) error {
	return m.tl.SetData(ali)
}

func (m *rateModel) Likelihood() float64 {
	return m.tl.Likelihood()
}

func (m *rateModel) Optimizable() optimize.Optimizable {
	return m.tl
}

func (m *rateModel) RateParameterNames() []string {
	return append([]string(nil), m.names...)
}

func (m *rateModel) Rates() []float64 {
	pars := m.tl.GetFloatParameters()
	rates := make([]float64, len(m.names))
	for i, name := range m.names {
		rates[i] = pars.Get(name).Get()
	}
	return rates
}

func (m *rateModel) NFree() int {
	return len(m.names)
}

func (m *rateModel) clone() rateModel {
	return rateModel{tl: m.tl.Clone(), names: m.names}
}

// OneRateModel applies one substitution model with a free rate
// parameter to every branch.
type OneRateModel struct {
	rateModel
}

func (m *OneRateModel) Kind() Kind {
	return OneRate
}

func (m *OneRateModel) Copy() LikelihoodModel {
	return &OneRateModel{m.clone()}
}

// TwoRateModel applies two copies of a substitution model to the
// foreground and the background branches, each with its own rate
// parameter.
type TwoRateModel struct {
	rateModel
}

func (m *TwoRateModel) Kind() Kind {
	return TwoRate
}

func (m *TwoRateModel) Copy() LikelihoodModel {
	return &TwoRateModel{m.clone()}
}

// BuildModels adds the rate parameter to the base model and creates
// the one-rate and the two-rate models with a constant rate
// distribution. All the non-rate parameters of the copies are equal
// to the base model values at the time of the call. The partition
// must cover every tree branch exactly once.
func BuildModels(base smodel.Model, t *tree.Tree, part BranchPartition) (*OneRateModel, *TwoRateModel, error) {
	if err := part.check(t.BranchIDs()); err != nil {
		return nil, nil, &ModelConstructionError{Model: base.Name(), Err: err}
	}
	if err := base.AddRateParameter(); err != nil {
		return nil, nil, &ModelConstructionError{Model: base.Name(), Err: err}
	}
	rateName := base.Namespace() + "rate"

	oneTL, err := likelihood.NewHomogeneous(t, base.Copy(), dist.NewConstant())
	if err != nil {
		return nil, nil, &ModelConstructionError{Model: base.Name(), Err: err}
	}
	one := &OneRateModel{rateModel{tl: oneTL, names: []string{rateName}}}

	assign := make([]int, t.NNodes())
	for _, id := range part.Background {
		assign[id] = 1
	}
	twoTL, err := likelihood.New(t,
		[]smodel.Model{base.Copy(), base.Copy()},
		[]string{ForegroundSuffix, BackgroundSuffix},
		assign, dist.NewConstant())
	if err != nil {
		return nil, nil, &ModelConstructionError{Model: base.Name(), Err: err}
	}
	two := &TwoRateModel{rateModel{tl: twoTL, names: []string{
		rateName + ForegroundSuffix,
		rateName + BackgroundSuffix,
	}}}

	log.Infof("One-rate model parameter: %s", one.names[0])
	log.Infof("Two-rate model parameters: %s, %s", two.names[0], two.names[1])
	return one, two, nil
}

package shift

import (
	"github.com/rotisserie/eris"

	"bitbucket.org/Davydov/rateshift/bio"
	"bitbucket.org/Davydov/rateshift/optimize"
)

// FitSettings controls the per-site rate optimization.
type FitSettings struct {
	// Tolerance is the absolute and relative tolerance on the log
	// likelihood.
	Tolerance float64
	// MaxIterations is the maximum number of Newton iterations.
	MaxIterations int
}

// DefaultFitSettings returns the per-site optimization settings:
// tolerance 1e-6, at most 10000 iterations.
func DefaultFitSettings() FitSettings {
	return FitSettings{
		Tolerance:     1e-6,
		MaxIterations: 10000,
	}
}

// Fit is the result of a rate optimization.
type Fit struct {
	LnL       float64
	Rates     []float64
	Converged bool
}

// FitSite binds the model to the site and maximizes the likelihood
// over the rate parameters only, starting from start (or the current
// values if start is nil). The model is left at the best point found;
// if the optimizer does not converge the best point is returned with
// Converged=false.
func FitSite(m LikelihoodModel, site *bio.Alignment, start []float64, settings FitSettings) (Fit, error) {
	if err := m.SetData(site); err != nil {
		return Fit{}, eris.Wrapf(err, "binding %v model to the site", m.Kind())
	}
	o, err := optimize.Restrict(m.Optimizable(), m.RateParameterNames())
	if err != nil {
		return Fit{}, eris.Wrapf(err, "%v model", m.Kind())
	}
	if start != nil {
		pars := o.GetFloatParameters()
		if err := pars.SetValues(start); err != nil {
			return Fit{}, eris.Wrapf(err, "%v model starting point", m.Kind())
		}
	}

	n := optimize.NewNewton()
	n.Quiet = true
	n.SetTolerance(settings.Tolerance)
	n.SetOptimizable(o)
	n.Run(settings.MaxIterations)

	return Fit{
		LnL:       n.GetMaxL(),
		Rates:     m.Rates(),
		Converged: n.Converged(),
	}, nil
}

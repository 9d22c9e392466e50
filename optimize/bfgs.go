package optimize

import (
	"errors"

	opt "gonum.org/v1/gonum/optimize"
)

// BFGS is the gonum BFGS optimizer with the finite difference
// gradient.
type BFGS struct {
	BaseOptimizer
	dH     float64
	tol    float64
	status opt.Status
}

// NewBFGS creates a new BFGS optimizer.
func NewBFGS() (bfgs *BFGS) {
	bfgs = &BFGS{
		BaseOptimizer: BaseOptimizer{
			repPeriod: 10,
		},
		dH:  1e-6,
		tol: 1e-6,
	}
	return
}

// SetTolerance sets the tolerance on the objective.
func (b *BFGS) SetTolerance(tol float64) {
	if tol > 0 {
		b.tol = tol
	}
}

// Init is a part of gonum Recorder interface.
func (b *BFGS) Init() error {
	return nil
}

// Record is a part of gonum Recorder interface.
func (b *BFGS) Record(l *opt.Location, op opt.Operation, s *opt.Stats) error {
	if op == opt.MajorIteration {
		b.i = s.MajorIterations
		b.PrintLine(b.parameters, -l.F)
	}
	if b.signalled() {
		return errors.New("exiting by signal")
	}
	return nil
}

// Run starts the optimization.
func (b *BFGS) Run(iterations int) {
	b.converged = false
	b.PrintHeader()
	x0 := b.parameters.Values(nil)
	b.evaluate(x0)
	if len(x0) == 0 {
		b.converged = true
		return
	}

	obj := newBoundedObjective(&b.BaseOptimizer, b.dH)
	settings := &opt.Settings{
		MajorIterations:   iterations,
		GradientThreshold: 1e-3,
		Converger: &opt.FunctionConverge{
			Absolute:   b.tol,
			Relative:   b.tol,
			Iterations: 5,
		},
		Recorder: b,
	}
	res, err := opt.Minimize(opt.Problem{Func: obj.Func, Grad: obj.Grad}, obj.internal(x0), settings, &opt.BFGS{})
	if res != nil {
		b.status = res.Status
	}
	switch {
	case err == nil && res != nil:
		b.converged = finished(res.Status)
	case errors.Is(err, opt.ErrNoProgress):
		b.converged = true
	default:
		log.Warning("Optimization error: ", err)
	}

	b.restoreMax()
	log.Info("Finished BFGS")
	b.PrintFinal()
}

// Summary returns optimization summary.
func (b *BFGS) Summary() interface{} {
	s := b.BaseOptimizer.Summary().(baseOptimizerSummary)
	s.Status = b.status.String()
	return s
}

package optimize

import (
	"errors"

	opt "gonum.org/v1/gonum/optimize"
)

// Newton is a bounded Newton optimizer. Gradient and Hessian are
// computed by finite differences; gonum's Newton method modifies the
// Hessian to be positive definite and uses a line search.
type Newton struct {
	BaseOptimizer
	tol    float64
	dH     float64
	status opt.Status
}

// NewNewton creates a new Newton optimizer.
func NewNewton() *Newton {
	return &Newton{
		BaseOptimizer: BaseOptimizer{
			repPeriod: 1,
		},
		tol: 1e-6,
		dH:  1e-5,
	}
}

// SetTolerance sets the absolute and relative tolerance on the
// objective.
func (n *Newton) SetTolerance(tol float64) {
	if tol > 0 {
		n.tol = tol
	}
}

// Init is a part of gonum Recorder interface.
func (n *Newton) Init() error {
	return nil
}

// Record is a part of gonum Recorder interface.
func (n *Newton) Record(l *opt.Location, op opt.Operation, s *opt.Stats) error {
	if op == opt.MajorIteration {
		n.i = s.MajorIterations
		n.PrintLine(n.parameters, -l.F)
	}
	if n.signalled() {
		return errors.New("exiting by signal")
	}
	return nil
}

// Run starts the optimization.
func (n *Newton) Run(iterations int) {
	n.i = 0
	n.converged = false
	n.PrintHeader()
	if len(n.parameters) == 0 {
		n.evaluate(nil)
		n.converged = true
		return
	}

	b := newBoundedObjective(&n.BaseOptimizer, n.dH)
	x0 := n.parameters.Values(nil)
	n.evaluate(x0)

	problem := opt.Problem{
		Func: b.Func,
		Grad: b.Grad,
		Hess: b.Hess,
	}
	settings := &opt.Settings{
		MajorIterations: iterations,
		Converger: &opt.FunctionConverge{
			Absolute:   n.tol,
			Relative:   n.tol,
			Iterations: 2,
		},
		Recorder: n,
	}

	res, err := opt.Minimize(problem, b.internal(x0), settings, &opt.Newton{})
	if res != nil {
		n.status = res.Status
	}
	switch {
	case err == nil && res != nil:
		n.converged = finished(res.Status)
	case errors.Is(err, opt.ErrNoProgress):
		// the line search cannot improve the point any more
		n.converged = true
	default:
		log.Debugf("Newton optimization error: %v", err)
	}

	n.restoreMax()
	if !n.converged {
		log.Debugf("Newton optimization did not converge (status: %v)", n.status)
	}
}

// finished returns true if the optimizer status means convergence
// and not hitting a limit.
func finished(s opt.Status) bool {
	switch s {
	case opt.Success, opt.FunctionThreshold, opt.FunctionConvergence,
		opt.GradientThreshold, opt.StepConvergence, opt.MethodConverge:
		return true
	}
	return false
}

// Summary returns optimization summary.
func (n *Newton) Summary() interface{} {
	s := n.BaseOptimizer.Summary().(baseOptimizerSummary)
	s.Status = n.status.String()
	return s
}

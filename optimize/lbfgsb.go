package optimize

import (
	"math"

	lbfgsb "github.com/idavydov/go-lbfgsb"
)

// LBFGSB is the limited-memory BFGS optimizer with bounds.
type LBFGSB struct {
	BaseOptimizer
	dH         float64
	tol        float64
	grad       []float64
	stop       bool
	exitStatus lbfgsb.ExitStatus
}

// NewLBFGSB creates a new LBFGSB optimizer.
func NewLBFGSB() (lbfgsb *LBFGSB) {
	lbfgsb = &LBFGSB{
		BaseOptimizer: BaseOptimizer{
			repPeriod: 10,
		},
		dH:  1e-6,
		tol: 1e-9,
	}
	return
}

// SetTolerance sets the function and the gradient tolerance.
func (l *LBFGSB) SetTolerance(tol float64) {
	if tol > 0 {
		l.tol = tol
	}
}

// Logger is called by L-BFGS-B after every iteration.
func (l *LBFGSB) Logger(info *lbfgsb.OptimizationIterationInformation) {
	l.i = info.Iteration
	l.PrintLine(l.parameters, -info.F)
	if l.signalled() {
		l.stop = true
	}
}

// EvaluateFunction returns the negative log likelihood.
func (l *LBFGSB) EvaluateFunction(x []float64) float64 {
	if l.stop {
		// returning NaN makes the optimizer terminate
		return math.NaN()
	}
	L := l.evaluate(x)
	if math.IsInf(L, -1) {
		return math.MaxFloat64
	}
	return -L
}

// EvaluateGradient computes the gradient using central differences,
// switching to one-sided differences at the boundaries.
func (l *LBFGSB) EvaluateGradient(x []float64) (grad []float64) {
	if l.grad == nil {
		l.grad = make([]float64, len(x))
	}
	grad = l.grad
	xh := make([]float64, len(x))
	for i := range x {
		copy(xh, x)
		par := l.parameters[i]
		lo := math.Max(x[i]-l.dH, par.GetMin())
		hi := math.Min(x[i]+l.dH, par.GetMax())
		xh[i] = lo
		l1 := l.EvaluateFunction(xh)
		xh[i] = hi
		l2 := l.EvaluateFunction(xh)
		grad[i] = (l2 - l1) / (hi - lo)
	}
	return
}

// Run starts the optimization.
func (l *LBFGSB) Run(iterations int) {
	l.PrintHeader()
	x0 := l.parameters.Values(nil)
	l.evaluate(x0)
	if len(x0) == 0 {
		l.converged = true
		return
	}

	bounds := make([][2]float64, len(l.parameters))
	for i, par := range l.parameters {
		bounds[i][0] = par.GetMin()
		bounds[i][1] = par.GetMax()
	}

	opt := new(lbfgsb.Lbfgsb)
	opt.SetApproximationSize(10)
	opt.SetFTolerance(l.tol)
	opt.SetGTolerance(l.tol)

	opt.SetBounds(bounds)
	opt.SetLogger(l.Logger)

	_, l.exitStatus = opt.Minimize(l, x0)
	l.converged = l.exitStatus.Code == lbfgsb.SUCCESS && !l.stop

	log.Info("Exit status: ", l.exitStatus)

	l.restoreMax()
	log.Info("Finished LBFGSB")
	l.PrintFinal()
}

// Summary returns optimization summary.
func (l *LBFGSB) Summary() interface{} {
	s := l.BaseOptimizer.Summary().(baseOptimizerSummary)
	s.Status = l.exitStatus.Message
	return s
}

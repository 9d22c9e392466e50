// Package optimize provides parameters and likelihood optimizers.
package optimize

import (
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("optimize")

// Optimizable is a likelihood function of float parameters.
type Optimizable interface {
	// GetFloatParameters returns the parameters to optimize.
	GetFloatParameters() FloatParameters
	// Copy returns an independent copy.
	Copy() Optimizable
	// Likelihood computes the log likelihood for the current
	// parameter values.
	Likelihood() float64
}

// Optimizer maximizes the likelihood of an Optimizable. After Run the
// optimizable is left at the best point found.
type Optimizer interface {
	SetOptimizable(Optimizable)
	WatchSignals(...os.Signal)
	SetReportPeriod(period int)
	SetOutput(io.Writer)
	Run(iterations int)
	GetL() float64
	GetMaxL() float64
	GetMaxLParameters() []float64
	Converged() bool
	Summary() interface{}
}

// BaseOptimizer contains the state shared by all the optimizers:
// iteration counters, the best point and reporting.
type BaseOptimizer struct {
	Optimizable
	parameters FloatParameters
	i          int
	calls      int
	l          float64
	maxL       float64
	maxLPar    []float64
	repPeriod  int
	sig        chan os.Signal
	out        io.Writer
	converged  bool
	Quiet      bool
}

// baseOptimizerSummary is the JSON summary of an optimizer run.
type baseOptimizerSummary struct {
	MaxLnL         float64            `json:"maxLnL"`
	MaxLParameters map[string]float64 `json:"maxLParameters"`
	Iterations     int                `json:"iterations"`
	Calls          int                `json:"likelihoodCalls"`
	Converged      bool               `json:"converged"`
	Status         interface{}        `json:"status,omitempty"`
}

// SetOptimizable sets the function to optimize.
func (o *BaseOptimizer) SetOptimizable(opt Optimizable) {
	o.Optimizable = opt
	o.parameters = opt.GetFloatParameters()
	o.maxL = math.Inf(-1)
	o.maxLPar = nil
}

// WatchSignals makes optimizer stop when one of the signals is
// received.
func (o *BaseOptimizer) WatchSignals(sigs ...os.Signal) {
	o.sig = make(chan os.Signal, 1)
	signal.Notify(o.sig, sigs...)
}

// SetReportPeriod sets the period (in iterations) of trajectory
// lines.
func (o *BaseOptimizer) SetReportPeriod(period int) {
	o.repPeriod = period
}

// SetOutput sets the trajectory output, nil disables it.
func (o *BaseOptimizer) SetOutput(w io.Writer) {
	o.out = w
}

// signalled returns true if a watched signal was received.
func (o *BaseOptimizer) signalled() bool {
	select {
	case s := <-o.sig:
		log.Warningf("Received signal %v, exiting.", s)
		return true
	default:
	}
	return false
}

// evaluate sets parameters and computes the likelihood, remembering
// the best point.
func (o *BaseOptimizer) evaluate(x []float64) float64 {
	if !o.parameters.ValuesInRange(x) {
		return math.Inf(-1)
	}
	o.parameters.SetValues(x)
	l := o.Likelihood()
	o.calls++
	if math.IsNaN(l) {
		l = math.Inf(-1)
	}
	o.l = l
	if l > o.maxL || o.maxLPar == nil {
		o.maxL = l
		o.maxLPar = o.parameters.Values(o.maxLPar)
	}
	return l
}

// restoreMax sets the parameters to the best point found and
// recomputes the likelihood.
func (o *BaseOptimizer) restoreMax() {
	if o.maxLPar == nil {
		return
	}
	o.parameters.SetValues(o.maxLPar)
	o.l = o.Likelihood()
	o.calls++
	if o.l > o.maxL {
		o.maxL = o.l
	}
}

// PrintHeader writes the trajectory header.
func (o *BaseOptimizer) PrintHeader() {
	if !o.Quiet && o.out != nil {
		fmt.Fprintf(o.out, "iteration\tlikelihood\t%s\n", o.parameters.NamesString())
	}
}

// PrintLine writes a trajectory line.
func (o *BaseOptimizer) PrintLine(par FloatParameters, l float64) {
	if !o.Quiet && o.out != nil && (o.repPeriod <= 1 || o.i%o.repPeriod == 0) {
		fmt.Fprintf(o.out, "%d\t%f\t%s\n", o.i, l, par.ValuesString())
	}
}

// PrintFinal logs the final parameter values.
func (o *BaseOptimizer) PrintFinal() {
	if o.Quiet {
		return
	}
	log.Noticef("Maximum likelihood: %v", o.maxL)
	log.Infof("Likelihood function calls: %v", o.calls)
	for _, par := range o.parameters {
		log.Infof("%s=%v", par.Name(), par.Get())
	}
}

// GetL returns the last computed likelihood.
func (o *BaseOptimizer) GetL() float64 {
	return o.l
}

// GetMaxL returns the maximum likelihood found.
func (o *BaseOptimizer) GetMaxL() float64 {
	return o.maxL
}

// GetMaxLParameters returns the parameter values of the maximum.
func (o *BaseOptimizer) GetMaxLParameters() []float64 {
	return o.maxLPar
}

// Converged returns false if the optimizer stopped because of the
// iteration limit or a failure.
func (o *BaseOptimizer) Converged() bool {
	return o.converged
}

// Summary returns optimization summary.
func (o *BaseOptimizer) Summary() interface{} {
	return baseOptimizerSummary{
		MaxLnL:         o.maxL,
		MaxLParameters: o.parameters.ValuesMap(),
		Iterations:     o.i,
		Calls:          o.calls,
		Converged:      o.converged,
	}
}

// NewOptimizer creates an optimizer by its name.
func NewOptimizer(method string, tolerance float64) (Optimizer, error) {
	switch method {
	case "newton":
		n := NewNewton()
		n.SetTolerance(tolerance)
		return n, nil
	case "bfgs":
		b := NewBFGS()
		b.SetTolerance(tolerance)
		return b, nil
	case "lbfgsb":
		l := NewLBFGSB()
		l.SetTolerance(tolerance)
		return l, nil
	case "simplex":
		ds := NewDS()
		ds.SetTolerance(tolerance)
		return ds, nil
	case "none":
		return NewNone(), nil
	}
	return nil, fmt.Errorf("unknown optimization method: %s", method)
}

package optimize

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// boundedObjective maps bounded parameters to an unconstrained space
// for gonum optimizers. Parameters with a positive lower boundary are
// optimized on the log scale; values are clamped to the boundaries
// before the likelihood is computed. The objective is the negative
// log likelihood.
type boundedObjective struct {
	*BaseOptimizer
	logScale []bool
	x        []float64
	dH       float64
}

func newBoundedObjective(o *BaseOptimizer, dH float64) *boundedObjective {
	b := &boundedObjective{
		BaseOptimizer: o,
		logScale:      make([]bool, len(o.parameters)),
		x:             make([]float64, len(o.parameters)),
		dH:            dH,
	}
	for i, par := range o.parameters {
		b.logScale[i] = par.GetMin() > 0
	}
	return b
}

// internal converts parameter values to the optimization space.
func (b *boundedObjective) internal(x []float64) []float64 {
	y := make([]float64, len(x))
	for i, v := range x {
		if b.logScale[i] {
			y[i] = math.Log(v)
		} else {
			y[i] = v
		}
	}
	return y
}

// external converts a point of the optimization space to parameter
// values within boundaries.
func (b *boundedObjective) external(y, x []float64) []float64 {
	if x == nil {
		x = make([]float64, len(y))
	}
	for i, v := range y {
		if b.logScale[i] {
			v = math.Exp(v)
		}
		par := b.parameters[i]
		x[i] = math.Min(math.Max(v, par.GetMin()), par.GetMax())
	}
	return x
}

// Func is the objective function.
func (b *boundedObjective) Func(y []float64) float64 {
	l := b.evaluate(b.external(y, b.x))
	if math.IsInf(l, -1) {
		return math.Inf(1)
	}
	return -l
}

// Grad computes the gradient by central finite differences.
func (b *boundedObjective) Grad(grad, y []float64) {
	fd.Gradient(grad, b.Func, y, &fd.Settings{
		Formula: fd.Central,
		Step:    b.dH,
	})
}

// Hess computes the Hessian by finite differences.
func (b *boundedObjective) Hess(hess *mat.SymDense, y []float64) {
	fd.Hessian(hess, b.Func, y, &fd.Settings{
		Formula: fd.Central,
		Step:    math.Sqrt(b.dH),
	})
}

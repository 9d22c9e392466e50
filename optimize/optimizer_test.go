package optimize

import (
	"math"
	"testing"
)

// quadratic is a likelihood with the maximum at x=2, y=0.5.
type quadratic struct {
	x, y       float64
	parameters FloatParameters
}

func newQuadratic(x, y float64) *quadratic {
	q := &quadratic{x: x, y: y}
	q.setupParameters()
	return q
}

func (q *quadratic) setupParameters() {
	q.parameters = nil
	px := NewBasicFloatParameter(&q.x, "x")
	px.SetMin(1e-3)
	px.SetMax(100)
	py := NewBasicFloatParameter(&q.y, "y")
	py.SetMin(-10)
	py.SetMax(10)
	q.parameters.Append(px)
	q.parameters.Append(py)
}

func (q *quadratic) GetFloatParameters() FloatParameters {
	return q.parameters
}

func (q *quadratic) Copy() Optimizable {
	return newQuadratic(q.x, q.y)
}

func (q *quadratic) Likelihood() float64 {
	return -(q.x-2)*(q.x-2) - 3*(q.y-0.5)*(q.y-0.5)
}

func TestOptimizers(tst *testing.T) {
	for _, method := range []string{"newton", "bfgs", "lbfgsb", "simplex"} {
		q := newQuadratic(1, 1)
		o, err := NewOptimizer(method, 1e-8)
		if err != nil {
			tst.Fatal(err)
		}
		o.SetOptimizable(q)
		o.Run(1000)
		if math.Abs(q.x-2) > 1e-2 || math.Abs(q.y-0.5) > 1e-2 {
			tst.Errorf("%s: wrong maximum x=%v, y=%v", method, q.x, q.y)
		}
		if math.Abs(o.GetMaxL()-q.Likelihood()) > 1e-12 {
			tst.Errorf("%s: optimizable is not at the maximum", method)
		}
		if !o.Converged() {
			tst.Errorf("%s: optimizer did not converge", method)
		}
	}
}

func TestNewtonBoundary(tst *testing.T) {
	// maximum is outside of the x range, optimizer should stop at
	// the boundary
	q := newQuadratic(1, 1)
	q.parameters[0].SetMax(1.5)
	n := NewNewton()
	n.SetOptimizable(q)
	n.Run(1000)
	if math.Abs(q.x-1.5) > 1e-3 {
		tst.Error("Expected x at the upper boundary, got", q.x)
	}
	if !q.parameters.InRange() {
		tst.Error("Parameters are out of range")
	}
}

func TestNewtonIterationLimit(tst *testing.T) {
	q := newQuadratic(50, 8)
	n := NewNewton()
	n.SetOptimizable(q)
	start := q.Likelihood()
	n.Run(1)
	if n.Converged() {
		tst.Error("Newton should not converge in one iteration")
	}
	if q.Likelihood() < start {
		tst.Error("Best found point is worse than the start")
	}
}

func TestNone(tst *testing.T) {
	q := newQuadratic(1, 1)
	o := NewNone()
	o.SetOptimizable(q)
	o.Run(10)
	if o.GetMaxL() != -1.75 || q.x != 1 {
		tst.Error("None optimizer changed parameters or likelihood", o.GetMaxL())
	}
}

func TestRestrict(tst *testing.T) {
	q := newQuadratic(1, 1)
	r, err := Restrict(q, []string{"y"})
	if err != nil {
		tst.Fatal(err)
	}
	if len(r.GetFloatParameters()) != 1 {
		tst.Fatal("Expected one parameter")
	}
	n := NewNewton()
	n.SetOptimizable(r)
	n.Run(100)
	if q.x != 1 {
		tst.Error("Fixed parameter has changed:", q.x)
	}
	if math.Abs(q.y-0.5) > 1e-2 {
		tst.Error("Wrong y:", q.y)
	}
	c := r.Copy()
	c.GetFloatParameters()[0].Set(3)
	if q.y == 3 {
		tst.Error("Copy is not independent")
	}
	if _, err := Restrict(q, []string{"z"}); err == nil {
		tst.Error("Expected an error for an unknown parameter")
	}
	e := Exclude(q, func(name string) bool { return name == "x" })
	if names := e.GetFloatParameters().Names(nil); len(names) != 1 || names[0] != "y" {
		tst.Error("Wrong excluded parameters:", names)
	}
}

func TestAtBoundary(tst *testing.T) {
	q := newQuadratic(1e-3, 0)
	names := q.parameters.AtBoundary(1e-4)
	if len(names) != 1 || names[0] != "x" {
		tst.Error("Expected x at boundary, got", names)
	}
	renamed := Rename(q.parameters[1], "y_fg")
	renamed.Set(2)
	if q.y != 2 || renamed.Name() != "y_fg" {
		tst.Error("Renamed parameter does not share the value")
	}
}

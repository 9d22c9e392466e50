package dist

import (
	"math"
	"testing"
)

const smallDiff = 1e-5

type Settings struct {
	n      int
	a, b   float64
	median bool
}

/*** Tests if a and b are approximately equal ***/
func appreq(a, b float64) bool {
	return math.Abs(a-b) <= smallDiff*math.Max(1, math.Abs(b))
}

/*** Tests that arrays have approximately same values ***/
func cmp(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !appreq(a[i], b[i]) {
			return false
		}
	}
	return true
}

func mean(r []float64) (m float64) {
	for _, v := range r {
		m += v
	}
	return m / float64(len(r))
}

/*** Test discrete gamma ***/
func TestGamma(tst *testing.T) {
	settings := [...]Settings{
		{4, 0.5, 10, false},
		{4, 0.5, 10, true},
		{8, 2, .1, false},
		{7, 15, 1, true},
		{4, 1.16, 3.54, false},
		{4, 1.16, 3.54, true},
	}
	results := [...]([]float64){
		{0.001669, 0.012596, 0.041013, 0.144721},
		{0.001454, 0.014036, 0.046239, 0.138272},
		{3.848344, 7.882645, 11.320993, 14.879554, 18.906079, 23.893507, 31.028044, 48.240834},
		{9.793787, 11.891047, 13.362596, 14.722906, 16.172736, 17.973174, 21.083754},
		{0.054962, 0.170420, 0.334948, 0.750405},
		{0.059239, 0.182032, 0.355645, 0.713819},
	}
	for i, s := range settings {
		freq := make([]float64, s.n)
		r := DiscreteGamma(s.a, s.b, s.n, s.median, freq, nil)
		if !cmp(r, results[i]) {
			tst.Error("Results missmatch:", r, results[i])
		}
	}
}

func TestQuantileChi2(tst *testing.T) {
	// 95% quantile of chi2 with df=1
	if q := QuantileChi2(0.95, 1); math.Abs(q-3.841459) > 1e-5 {
		tst.Error("Wrong chi2 quantile:", q)
	}
}

func TestChiSquareSurvival(tst *testing.T) {
	if p := ChiSquareSurvival(3, 1); math.Abs(p-0.0832645166635504) > 1e-9 {
		tst.Error("Wrong chi2 survival:", p)
	}
	for _, x := range []float64{0, -0.4, math.NaN()} {
		if p := ChiSquareSurvival(x, 1); p != 1 {
			tst.Errorf("Survival(%v) must be 1, got %v", x, p)
		}
	}
}

func TestRateDistributions(tst *testing.T) {
	c := NewConstant()
	if c.NCategories() != 1 || c.Rates()[0] != 1 || len(c.Parameters()) != 0 {
		tst.Error("Wrong constant distribution")
	}

	g, err := NewGamma(4, 0.5)
	if err != nil {
		tst.Fatal(err)
	}
	r := g.Rates()
	if len(r) != 4 || !appreq(mean(r), 1) {
		tst.Error("Gamma rates must have mean one:", r)
	}
	v := g.Version()
	g.Parameters()[0].Set(2)
	if g.Version() == v {
		tst.Error("Version did not change after parameter change")
	}
	r2 := g.Rates()
	if r2[0] <= 0.1 || !appreq(mean(r2), 1) {
		tst.Error("Rates were not recomputed:", r2)
	}

	cp := g.Copy().(*Gamma)
	cp.Parameters()[0].Set(1)
	if g.Alpha() != 2 {
		tst.Error("Copy is not independent")
	}

	if _, err := NewGamma(0, 1); err == nil {
		tst.Error("Expected an error for zero categories")
	}
	if _, err := NewGamma(4, 0); err == nil {
		tst.Error("Expected an error for zero alpha")
	}
}

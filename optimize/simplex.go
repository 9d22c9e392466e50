package optimize

import (
	"math"
	"sort"
)

const (
	// TINY is a small number preventing division by zero.
	TINY = 1e-10
	// SMALL is the likelihood difference for the restart check.
	SMALL = 1e-6
)

// DS is the downhill simplex optimizer (Nelder-Mead).
type DS struct {
	BaseOptimizer
	delta      float64
	ftol       float64
	repeat     bool
	oldL       float64
	points     []Optimizable
	psum       []float64
	parameters []FloatParameters
	l          []float64
	newOpt     Optimizable
	newPar     FloatParameters
}

// NewDS creates a new downhill simplex optimizer.
func NewDS() (ds *DS) {
	ds = &DS{
		delta: 1,
		ftol:  TINY,
	}
	ds.repPeriod = 10
	return
}

// createSimplex creates the starting simplex around the optimizable.
// Steps are capped by the parameter ranges.
func (ds *DS) createSimplex(opt Optimizable, delta float64) {
	parameters := opt.GetFloatParameters()
	ds.points = make([]Optimizable, len(parameters)+1)
	ds.parameters = make([]FloatParameters, len(ds.points))
	ds.l = make([]float64, len(ds.points))
	ds.points[0] = opt
	ds.parameters[0] = parameters
	for i := 1; i < len(ds.points); i++ {
		point := opt.Copy()
		ds.points[i] = point
		ds.parameters[i] = point.GetFloatParameters()
	}
	for i := 0; i < len(parameters); i++ {
		parameter := ds.parameters[i+1][i]
		v := parameter.Get()
		d := delta
		if v+d > parameter.GetMax() {
			d = -math.Min(delta, (v-parameter.GetMin())/2)
		}
		parameter.Set(v + d)
	}
	for i := range ds.points {
		ds.l[i] = ds.likelihood(i)
	}
	ds.newOpt = nil
}

// likelihood computes the likelihood of the i-th point.
func (ds *DS) likelihood(i int) float64 {
	if !ds.parameters[i].InRange() {
		return math.Inf(-1)
	}
	l := ds.points[i].Likelihood()
	ds.calls++
	if math.IsNaN(l) {
		return math.Inf(-1)
	}
	return l
}

// amotry reflects the worst point through the opposite face scaled
// by fac and replaces the worst point if the new one is better.
func (ds *DS) amotry(ilo int, fac float64) float64 {
	if ds.newOpt == nil {
		ds.newOpt = ds.points[0].Copy()
		ds.newPar = ds.newOpt.GetFloatParameters()
	}
	ds.calcPsum()
	ndim := len(ds.newPar)
	fac1 := (1 - fac) / float64(ndim)
	fac2 := fac1 - fac
	for j := 0; j < ndim; j++ {
		ds.newPar[j].Set(ds.psum[j]*fac1 - ds.parameters[ilo][j].Get()*fac2)
	}
	var l float64
	if ds.newPar.InRange() {
		l = ds.newOpt.Likelihood()
		ds.calls++
	} else {
		l = math.Inf(-1)
	}
	if l > ds.l[ilo] {
		ds.points[ilo], ds.newOpt = ds.newOpt, ds.points[ilo]
		ds.parameters[ilo], ds.newPar = ds.newPar, ds.parameters[ilo]
		ds.l[ilo] = l
	}
	return l
}

// calcPsum sums coordinates over the simplex points.
func (ds *DS) calcPsum() {
	ds.psum = make([]float64, len(ds.parameters[0]))
	for i := range ds.psum {
		for _, parameters := range ds.parameters {
			ds.psum[i] += parameters[i].Get()
		}
	}
}

// SetTolerance sets the relative tolerance on the likelihood
// difference across the simplex.
func (ds *DS) SetTolerance(tol float64) {
	ds.ftol = tol
}

// rank returns the indices of the worst, the second worst and the
// best points.
func (ds *DS) rank() (ilo, inlo, ihi int) {
	order := make([]int, len(ds.l))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ds.l[order[a]] < ds.l[order[b]]
	})
	return order[0], order[1], order[len(order)-1]
}

// shrink moves all the points halfway towards the best one.
func (ds *DS) shrink(ihi int) {
	for i := range ds.points {
		if i == ihi {
			continue
		}
		for j, par := range ds.parameters[i] {
			par.Set(0.5 * (par.Get() + ds.parameters[ihi][j].Get()))
		}
		ds.l[i] = ds.likelihood(i)
	}
}

// Run starts the optimization. After convergence the simplex is
// rebuilt around the best point once more; the run stops when the
// restart does not improve the likelihood by more than SMALL.
func (ds *DS) Run(iterations int) {
	ds.converged = false
	ds.repeat = false
	ds.PrintHeader()
	if len(ds.BaseOptimizer.parameters) == 0 {
		ds.evaluate(nil)
		ds.converged = true
		return
	}
	ds.createSimplex(ds.Optimizable.Copy(), ds.delta)

	for ds.i = 1; ds.i <= iterations && !ds.converged; ds.i++ {
		ilo, inlo, ihi := ds.rank()
		llo, lnlo, lhi := ds.l[ilo], ds.l[inlo], ds.l[ihi]
		if lhi > ds.maxL {
			ds.maxL = lhi
			ds.maxLPar = ds.parameters[ihi].Values(ds.maxLPar)
		}
		ds.BaseOptimizer.l = lhi
		if ds.i%ds.repPeriod == 0 {
			log.Debugf("%d: L=%f (%f)", ds.i, lhi, lhi-llo)
			ds.PrintLine(ds.parameters[ihi], lhi)
		}

		rtol := 2 * math.Abs(lhi-llo) / (math.Abs(llo) + math.Abs(lhi) + TINY)
		switch {
		case rtol < ds.ftol && ds.repeat && math.Abs(ds.oldL-lhi) < SMALL:
			ds.converged = true
			continue
		case rtol < ds.ftol:
			ds.repeat = true
			ds.oldL = lhi
			log.Info("Simplex converged, restarting around the best point")
			ds.createSimplex(ds.points[ihi], ds.delta)
			continue
		}

		// reflection, then expansion or contraction
		l := ds.amotry(ilo, -1)
		switch {
		case l >= lhi:
			ds.amotry(ilo, 2)
		case l <= lnlo:
			if ds.amotry(ilo, 0.5) <= llo {
				ds.shrink(ihi)
			}
		}
		if ds.signalled() {
			break
		}
	}
	if !ds.converged {
		log.Warningf("Iterations exceeded (%d)", iterations)
	}

	ds.restoreMax()
	log.Info("Finished downhill simplex")
	ds.PrintFinal()
}

// Package dist implements discrete distributions of substitution
// rates among sites.
package dist

/*
The discretization follows PAML (Yang 1994, J Mol Evol 39:306-314);
quantiles and incomplete gamma integrals come from gonum mathext.
*/

import (
	"math"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"
)

// QuantileChi2 returns z so that Prob{x<z}=prob where x is Chi2
// distributed with df=v.
func QuantileChi2(prob, v float64) float64 {
	return 2 * mathext.GammaIncRegInv(v/2, prob)
}

// QuantileGamma returns quantile for gamma distribution.
func QuantileGamma(prob, alpha, beta float64) float64 {
	return mathext.GammaIncRegInv(alpha, prob) / beta
}

// IncompleteGamma returns the incomplete gamma ratio I(x,alpha) where
// x is the upper limit of the integration and alpha is the shape
// parameter.
func IncompleteGamma(x, alpha float64) float64 {
	return mathext.GammaIncReg(alpha, x)
}

// DiscreteGamma returns discrete gamma distribution G(alpha, beta)
// with K equally probable categories. Category rates are either
// medians (rescaled to keep the mean) or means.
func DiscreteGamma(alpha, beta float64, K int, UseMedian bool, tmp, res []float64) []float64 {
	t := 0.0
	mean := alpha / beta

	if res == nil {
		res = make([]float64, K)
	}
	if tmp == nil {
		tmp = make([]float64, K)
	}
	if K == 1 {
		res[0] = mean
		return res
	}

	if UseMedian {
		for i := 0; i < K; i++ {
			res[i] = QuantileGamma((float64(i)*2.+1)/(2.*float64(K)), alpha, beta)
		}
		for i := 0; i < K; i++ {
			t += res[i]
		}
		for i := 0; i < K; i++ {
			// rescale so that the mean is alpha/beta
			res[i] *= mean * float64(K) / t
		}
	} else {
		// cutting points
		for i := 0; i < K-1; i++ {
			tmp[i] = QuantileGamma((float64(i)+1.0)/float64(K), alpha, beta)
		}
		for i := 0; i < K-1; i++ {
			tmp[i] = IncompleteGamma(tmp[i]*beta, alpha+1)
		}
		res[0] = tmp[0] * mean * float64(K)
		for i := 1; i < K-1; i++ {
			res[i] = (tmp[i] - tmp[i-1]) * mean * float64(K)
		}
		res[K-1] = (1 - tmp[K-2]) * mean * float64(K)
	}

	return res
}

// ChiSquareSurvival returns 1-CDF(x) of the chi-square distribution
// with df degrees of freedom. Non-positive x gives exactly 1.
func ChiSquareSurvival(x, df float64) float64 {
	if x <= 0 || math.IsNaN(x) {
		return 1
	}
	return distuv.ChiSquared{K: df}.Survival(x)
}

package shift

import (
	"bitbucket.org/Davydov/rateshift/dist"
)

// DF is the number of degrees of freedom of the test: the two-rate
// model has one more free parameter.
const DF = 1

// Statistic is the likelihood ratio test of the one-rate (L1) and
// the two-rate (L2) models.
type Statistic struct {
	DiffLnL float64 `json:"diffLnL"`
	Stat    float64 `json:"statistic"`
	PValue  float64 `json:"pValue"`
	AIC1    float64 `json:"aic1"`
	AIC2    float64 `json:"aic2"`
}

// NewStatistic computes the statistic 2*(L2-L1), the chi-square
// p-value and AIC of both models. Non-positive statistic gives
// p-value 1, the difference is reported unchanged.
func NewStatistic(l1, l2 float64) Statistic {
	diff := l2 - l1
	stat := 2 * diff
	return Statistic{
		DiffLnL: diff,
		Stat:    stat,
		PValue:  dist.ChiSquareSurvival(stat, DF),
		AIC1:    2*1 - 2*l1,
		AIC2:    2*2 - 2*l2,
	}
}

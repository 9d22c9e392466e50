// Package report summarizes per-site test results: summary
// statistics, the JSON run summary and the p-value plot.
package report

import (
	"encoding/json"
	"os"

	"github.com/montanaflynn/stats"
	"github.com/op/go-logging"
	"github.com/rotisserie/eris"

	"bitbucket.org/Davydov/rateshift/optimize"
	"bitbucket.org/Davydov/rateshift/shift"
)

var log = logging.MustGetLogger("report")

// SiteSummary describes the distribution of the per-site results.
type SiteSummary struct {
	NSites int `json:"nSites"`
	// NSignificant is the number of sites with p-value below Alpha.
	NSignificant  int     `json:"nSignificant"`
	Alpha         float64 `json:"alpha"`
	NNotConverged int     `json:"nNotConverged"`
	MinPValue     float64 `json:"minPValue"`
	MedianRate    float64 `json:"medianRate"`
	MedianRateFg  float64 `json:"medianRateFg"`
	MedianRateBg  float64 `json:"medianRateBg"`
	MeanDiffLnL   float64 `json:"meanDiffLnL"`
	MaxDiffLnL    float64 `json:"maxDiffLnL"`
	// Significant lists positions of the significant sites.
	Significant []int `json:"significant,omitempty"`
}

// Summarize computes the summary of the site results. Alpha is the
// significance level.
func Summarize(results []shift.SiteResult, alpha float64) (SiteSummary, error) {
	s := SiteSummary{NSites: len(results), Alpha: alpha}
	if len(results) == 0 {
		return s, nil
	}

	var pvals, r, rfg, rbg, diff stats.Float64Data
	for _, res := range results {
		pvals = append(pvals, res.PValue)
		r = append(r, res.Rate)
		rfg = append(rfg, res.RateFg)
		rbg = append(rbg, res.RateBg)
		diff = append(diff, res.DiffLnL)
		if res.PValue < alpha {
			s.NSignificant++
			s.Significant = append(s.Significant, res.Position)
		}
		if !res.Converged {
			s.NNotConverged++
		}
	}

	var err error
	if s.MinPValue, err = pvals.Min(); err != nil {
		return s, eris.Wrap(err, "p-value minimum")
	}
	if s.MedianRate, err = r.Median(); err != nil {
		return s, eris.Wrap(err, "rate median")
	}
	if s.MedianRateFg, err = rfg.Median(); err != nil {
		return s, eris.Wrap(err, "foreground rate median")
	}
	if s.MedianRateBg, err = rbg.Median(); err != nil {
		return s, eris.Wrap(err, "background rate median")
	}
	if s.MeanDiffLnL, err = diff.Mean(); err != nil {
		return s, eris.Wrap(err, "lnL difference mean")
	}
	if s.MaxDiffLnL, err = diff.Max(); err != nil {
		return s, eris.Wrap(err, "lnL difference maximum")
	}
	return s, nil
}

// Summary is the JSON summary of a run.
type Summary struct {
	// Version is the program version.
	Version string `json:"version"`
	// CommandLine is the binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// NThreads is the number of sites processed in parallel.
	NThreads int `json:"nThreads"`
	// Model is the substitution model with the optimized parameters.
	Model string `json:"model"`
	// RateDistribution is the rate distribution across sites.
	RateDistribution string `json:"rateDistribution"`
	// LnL is the whole-alignment log likelihood after optimization.
	LnL float64 `json:"lnL"`
	// Parameters are the optimized parameter values, encoded in the
	// model order.
	Parameters optimize.FloatParameters `json:"parameters"`
	// Optimizer is the optimizer summary.
	Optimizer interface{} `json:"optimizer,omitempty"`
	// Tree is the optimized tree.
	Tree       string `json:"tree"`
	Foreground []int  `json:"foreground"`
	Background []int  `json:"background"`
	// Sites summarizes the per-site tests.
	Sites SiteSummary `json:"sites"`
	// Results are the per-site results, only if requested.
	Results []shift.SiteResult `json:"results,omitempty"`
	// Time is the total running time in seconds.
	Time float64 `json:"time"`
}

// WriteJSON writes v in JSON format to the file.
func WriteJSON(path string, v interface{}) error {
	j, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encoding summary")
	}
	log.Debug(string(j))
	if err := os.WriteFile(path, append(j, '\n'), 0644); err != nil {
		return eris.Wrapf(err, "writing %s", path)
	}
	return nil
}

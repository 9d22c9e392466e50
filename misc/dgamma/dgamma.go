// Dgamma prints the categories of the discrete gamma rate
// distribution and optionally plots the rates against the cumulative
// probability.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"bitbucket.org/Davydov/rateshift/dist"
)

// categories returns the category rates, mean or median based.
func categories(alpha float64, ncat int, useMedian bool) ([]float64, error) {
	g, err := dist.NewGamma(ncat, alpha)
	if err != nil {
		return nil, err
	}
	if useMedian {
		return dist.DiscreteGamma(alpha, alpha, ncat, true, nil, nil), nil
	}
	return g.Rates(), nil
}

func printCategories(w io.Writer, r []float64) {
	fmt.Fprintln(w, "category\trate\tprobability")
	for i, v := range r {
		fmt.Fprintf(w, "%d\t%g\t%g\n", i+1, v, 1/float64(len(r)))
	}
}

func savePlot(r []float64, fn string) error {
	p := plot.New()
	p.X.Label.Text = "rate"
	p.Y.Label.Text = "cumulative probability"

	pts := make(plotter.XYs, len(r))
	x := 0.0
	for i, v := range r {
		pts[i].X = v
		pts[i].Y = x
		x += 1. / float64(len(r))
	}

	if err := plotutil.AddLinePoints(p, "categories", pts); err != nil {
		return err
	}
	return p.Save(4*vg.Inch, 4*vg.Inch, fn)
}

func main() {
	alpha := flag.Float64("alpha", 1, "alpha")
	ncat := flag.Int("ncat", 4, "ncat")
	useMedian := flag.Bool("median", false, "Use median instead of mean")
	plotFn := flag.String("plot", "", "save a plot to the file")
	flag.Parse()

	r, err := categories(*alpha, *ncat, *useMedian)
	if err != nil {
		log.Fatal(err)
	}
	printCategories(os.Stdout, r)

	if *plotFn != "" {
		if err := savePlot(r, *plotFn); err != nil {
			log.Fatal(err)
		}
	}
}

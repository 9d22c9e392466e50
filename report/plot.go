package report

import (
	"image/color"
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"bitbucket.org/Davydov/rateshift/shift"
)

// maxLogP caps -log10(p) for p-values equal to zero.
const maxLogP = 300

// logP returns -log10(p).
func logP(p float64) float64 {
	if p <= 0 {
		return maxLogP
	}
	return math.Min(-math.Log10(p), maxLogP)
}

// NewPlot creates a plot of -log10(p-value) by site position with a
// horizontal line at the significance level alpha.
func NewPlot(results []shift.SiteResult, alpha float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Rate shift test"
	p.X.Label.Text = "position"
	p.Y.Label.Text = "-log10(p-value)"

	pts := make(plotter.XYs, 0, len(results))
	for _, r := range results {
		if math.IsNaN(r.PValue) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(r.Position), Y: logP(r.PValue)})
	}

	if len(pts) == 0 {
		return nil, eris.New("no sites to plot")
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, eris.Wrap(err, "creating scatter plot")
	}
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(2)
	p.Add(s)

	threshold := logP(alpha)
	line := plotter.NewFunction(func(float64) float64 { return threshold })
	line.Color = color.RGBA{R: 200, A: 255}
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(line)
	p.Legend.Add("alpha", line)

	p.Y.Min = 0
	p.Y.Max = math.Max(p.Y.Max, threshold*1.1)
	return p, nil
}

// SavePlot writes the plot to a file, the format (png, svg, pdf,
// eps) is chosen by the extension.
func SavePlot(results []shift.SiteResult, alpha float64, path string) error {
	p, err := NewPlot(results, alpha)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return eris.Wrapf(err, "saving plot %s", path)
	}
	log.Infof("Plot saved to %s", path)
	return nil
}

package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/CARsoftAR/medicionProcesos/internal/analysis"
)

// CreateCapabilityChart draws a normalized histogram of the readings, the
// fitted normal density and the engineering limits, titled with Cp/Cpk.
func CreateCapabilityChart(values []float64, res analysis.Result) ([]byte, error) {
	if len(values) < 2 || res.Summary.StdDev == nil || res.Summary.Mean == nil {
		return nil, fmt.Errorf("not enough readings for a capability chart")
	}
	mean, sd := *res.Summary.Mean, *res.Summary.StdDev
	if !(sd > 0) {
		return nil, fmt.Errorf("readings have no spread")
	}

	p := plot.New()
	p.Title.Text = "Process Capability " + capabilityLabel(res)
	p.X.Label.Text = "Measured Value"
	p.Y.Label.Text = "Density"

	bins := int(math.Ceil(math.Sqrt(float64(len(values)))))
	if bins < 5 {
		bins = 5
	}
	hist, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram: %w", err)
	}
	hist.Normalize(1)
	hist.FillColor = color.RGBA{R: 0x9e, G: 0xc5, B: 0xe6, A: 255}
	hist.LineStyle.Color = seriesColor
	p.Add(hist)

	lo, hi := floatsMinMax(values)
	if res.Limits.Lower != nil {
		lo = math.Min(lo, *res.Limits.Lower)
	}
	if res.Limits.Upper != nil {
		hi = math.Max(hi, *res.Limits.Upper)
	}
	lo = math.Min(lo, mean-4*sd)
	hi = math.Max(hi, mean+4*sd)
	normal := distuv.Normal{Mu: mean, Sigma: sd}
	curve := plotter.NewFunction(normal.Prob)
	curve.Color = centerColor
	curve.Width = vg.Points(1.5)
	curve.XMin, curve.XMax = lo, hi
	p.Add(curve)
	p.Legend.Add("Normal fit", curve)
	p.X.Min, p.X.Max = lo, hi

	top := math.Max(histMax(hist), normal.Prob(mean)) * 1.1
	p.Y.Min, p.Y.Max = 0, top
	if res.Limits.Lower != nil {
		addVertical(p, *res.Limits.Lower, top, specColor, fmt.Sprintf("LSL = %g", *res.Limits.Lower))
	}
	if res.Limits.Upper != nil {
		addVertical(p, *res.Limits.Upper, top, specColor, fmt.Sprintf("USL = %g", *res.Limits.Upper))
	}
	if nom := res.Summary.Nominal; nom != nil {
		addVertical(p, *nom, top, color.Gray{Y: 128}, fmt.Sprintf("Nominal = %g", *nom))
	}
	p.Legend.Top = true
	return render(p, 800, 400)
}

func capabilityLabel(res analysis.Result) string {
	return fmt.Sprintf("(Cp %s, Cpk %s)", formatIndex(res.Capability.Cp), formatIndex(res.Capability.Cpk))
}

func formatIndex(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

func addVertical(p *plot.Plot, x, top float64, c color.Color, label string) {
	l, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: top}})
	if err != nil {
		return
	}
	l.Color = c
	l.LineStyle.DashArray = dashed
	p.Add(l)
	p.Legend.Add(label, l)
}

func histMax(h *plotter.Histogram) float64 {
	top := 0.0
	for _, b := range h.Bins {
		top = math.Max(top, b.Weight)
	}
	return top
}

func floatsMinMax(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

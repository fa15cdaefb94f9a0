package report

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/CARsoftAR/medicionProcesos/internal/analysis"
)

var (
	seriesColor  = color.RGBA{B: 200, A: 255}
	centerColor  = color.RGBA{G: 128, A: 255}
	controlColor = color.RGBA{R: 255, G: 140, A: 255}
	specColor    = color.RGBA{R: 255, A: 255}
	alarmColor   = color.RGBA{R: 200, A: 255}
)

// CreateXBarChart plots subgroup means with the grand mean and the X-bar
// control limits.
func CreateXBarChart(xr *analysis.XRData) ([]byte, error) {
	if xr == nil || xr.Count == 0 {
		return nil, fmt.Errorf("no subgroups to plot")
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("X-bar Chart (n=%d)", xr.SubgroupSize)
	if xr.FactorsApproximated {
		p.Title.Text += " - approximated factors"
	}
	p.X.Label.Text = "Subgroup"
	p.Y.Label.Text = "Subgroup Mean"

	if err := addSeries(p, xr.Means, "Mean", outside(xr.Means, xr.LCLX, xr.UCLX)); err != nil {
		return nil, err
	}
	n := float64(xr.Count)
	addLevel(p, xr.GrandMean, n, centerColor, nil, fmt.Sprintf("Grand mean = %.4f", xr.GrandMean))
	addLevel(p, xr.UCLX, n, controlColor, dashed, fmt.Sprintf("UCL = %.4f", xr.UCLX))
	addLevel(p, xr.LCLX, n, controlColor, dashed, fmt.Sprintf("LCL = %.4f", xr.LCLX))
	finishAxes(p, xr.Count)
	return render(p, 800, 400)
}

// CreateRangeChart plots subgroup ranges with R-bar and the R control limits.
func CreateRangeChart(xr *analysis.XRData) ([]byte, error) {
	if xr == nil || xr.Count == 0 {
		return nil, fmt.Errorf("no subgroups to plot")
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("R Chart (n=%d)", xr.SubgroupSize)
	p.X.Label.Text = "Subgroup"
	p.Y.Label.Text = "Subgroup Range"

	if err := addSeries(p, xr.Ranges, "Range", outside(xr.Ranges, xr.LCLR, xr.UCLR)); err != nil {
		return nil, err
	}
	n := float64(xr.Count)
	addLevel(p, xr.AvgRange, n, centerColor, nil, fmt.Sprintf("R-bar = %.4f", xr.AvgRange))
	addLevel(p, xr.UCLR, n, controlColor, dashed, fmt.Sprintf("UCL = %.4f", xr.UCLR))
	addLevel(p, xr.LCLR, n, controlColor, dashed, fmt.Sprintf("LCL = %.4f", xr.LCLR))
	finishAxes(p, xr.Count)
	return render(p, 800, 400)
}

// CreateIndividualsChart plots every reading against the ±3σ limits, the
// engineering limits and the nominal. Points flagged by a violation are
// drawn in red.
func CreateIndividualsChart(values []float64, res analysis.Result) ([]byte, error) {
	if len(values) == 0 || res.Individuals == nil {
		return nil, fmt.Errorf("not enough readings to plot")
	}
	p := plot.New()
	p.Title.Text = "Individuals Chart"
	p.X.Label.Text = "Piece"
	p.Y.Label.Text = "Measured Value"

	flagged := make(map[int]bool)
	for _, v := range res.Violations {
		if v.Rule != analysis.RuleLowCapability {
			flagged[v.Index] = true
		}
	}
	if err := addSeries(p, values, "Reading", flagged); err != nil {
		return nil, err
	}

	n := float64(len(values))
	ind := res.Individuals
	addLevel(p, ind.Mean, n, centerColor, nil, fmt.Sprintf("Mean = %.4f", ind.Mean))
	addLevel(p, ind.UCL, n, controlColor, dashed, fmt.Sprintf("+3σ = %.4f", ind.UCL))
	addLevel(p, ind.LCL, n, controlColor, dashed, fmt.Sprintf("-3σ = %.4f", ind.LCL))
	if res.Limits.Upper != nil {
		addLevel(p, *res.Limits.Upper, n, specColor, nil, fmt.Sprintf("USL = %g", *res.Limits.Upper))
	}
	if res.Limits.Lower != nil {
		addLevel(p, *res.Limits.Lower, n, specColor, nil, fmt.Sprintf("LSL = %g", *res.Limits.Lower))
	}
	if nom := res.Summary.Nominal; nom != nil && *nom != ind.Mean {
		addLevel(p, *nom, n, color.Gray{Y: 128}, dotted, fmt.Sprintf("Nominal = %g", *nom))
	}
	finishAxes(p, len(values))
	return render(p, 800, 400)
}

var (
	dashed = []vg.Length{vg.Points(5), vg.Points(5)}
	dotted = []vg.Length{vg.Points(2), vg.Points(2)}
)

// addSeries draws ys against 1..len(ys) and marks the zero-based indexes in
// flagged.
func addSeries(p *plot.Plot, ys []float64, label string, flagged map[int]bool) error {
	pts := make(plotter.XYs, len(ys))
	var alarms plotter.XYs
	for i, y := range ys {
		pts[i] = plotter.XY{X: float64(i + 1), Y: y}
		if flagged[i] {
			alarms = append(alarms, pts[i])
		}
	}
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return fmt.Errorf("failed to create line for %s: %w", label, err)
	}
	line.Color = seriesColor
	line.LineStyle.Width = vg.Points(1.5)
	points.Color = seriesColor
	points.Shape = draw.CircleGlyph{}
	p.Add(plotter.NewGrid(), line, points)
	p.Legend.Add(label, line, points)

	if len(alarms) > 0 {
		sc, err := plotter.NewScatter(alarms)
		if err != nil {
			return fmt.Errorf("failed to mark alarms for %s: %w", label, err)
		}
		sc.Color = alarmColor
		sc.Shape = draw.CircleGlyph{}
		sc.Radius = vg.Points(4)
		p.Add(sc)
		p.Legend.Add("Out of control", sc)
	}
	return nil
}

// addLevel draws a horizontal reference line across the chart.
func addLevel(p *plot.Plot, y, xMax float64, c color.Color, dash []vg.Length, label string) {
	l, err := plotter.NewLine(plotter.XYs{{X: 0.5, Y: y}, {X: xMax + 0.5, Y: y}})
	if err != nil {
		return
	}
	l.Color = c
	l.LineStyle.DashArray = dash
	p.Add(l)
	p.Legend.Add(label, l)
}

func finishAxes(p *plot.Plot, count int) {
	p.X.Min = 0.5
	p.X.Max = float64(count) + 0.5
	p.X.Tick.Marker = plot.ConstantTicks(generateTicks(1, count, tickStep(count)))
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = vg.Points(-10)
}

// outside returns the indexes of ys beyond [lo, hi].
func outside(ys []float64, lo, hi float64) map[int]bool {
	out := make(map[int]bool)
	for i, y := range ys {
		if y < lo || y > hi {
			out[i] = true
		}
	}
	return out
}

// tickStep picks a step giving at most about 20 labeled ticks.
func tickStep(count int) int {
	step := 1
	for count/step > 20 {
		switch {
		case step == 1:
			step = 5
		default:
			step *= 2
		}
	}
	return step
}

// generateTicks labels min, then every multiple of step up to max.
func generateTicks(min, max, step int) []plot.Tick {
	if step < 1 {
		step = 1
	}
	ticks := []plot.Tick{{Value: float64(min), Label: fmt.Sprintf("%d", min)}}
	first := (min/step + 1) * step
	for i := first; i <= max; i += step {
		ticks = append(ticks, plot.Tick{Value: float64(i), Label: fmt.Sprintf("%d", i)})
	}
	return ticks
}

func render(p *plot.Plot, width, height float64) ([]byte, error) {
	writer, err := p.WriterTo(vg.Points(width), vg.Points(height), "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create plot writer: %w", err)
	}
	buf := new(bytes.Buffer)
	if _, err := writer.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write plot to buffer: %w", err)
	}
	return buf.Bytes(), nil
}

package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
)

// BoundaryColormap assigns one color per interval between consecutive
// Boundaries. It implements palette.Palette for use with equally spaced
// boundaries on a HeatMap.
type BoundaryColormap struct {
	Boundaries []float64     // N+1 boundaries for N colors
	Bands      []color.Color // N colors
	UnderColor color.Color   // below the first boundary
	OverColor  color.Color   // at or above the last boundary
	NaNColor   color.Color
}

// Colors implements palette.Palette.
func (cm *BoundaryColormap) Colors() []color.Color {
	return cm.Bands
}

// Color returns the color for z.
func (cm *BoundaryColormap) Color(z float64) color.Color {
	if math.IsNaN(z) {
		return cm.NaNColor
	}
	if z < cm.Boundaries[0] {
		return cm.UnderColor
	}
	for i := 0; i < len(cm.Bands); i++ {
		if z >= cm.Boundaries[i] && z < cm.Boundaries[i+1] {
			return cm.Bands[i]
		}
	}
	return cm.OverColor
}

// driftColormap rates a subgroup mean by its offset from the tolerance center in
// half tolerances: green within ±0.25, pale yellow to ±0.75, orange to ±1,
// dark red beyond. The bands match how HeatMap spreads five palette colors
// over [-1, 1].
var driftColormap = BoundaryColormap{
	Boundaries: []float64{-1.0, -0.75, -0.25, 0.25, 0.75, 1.0},
	Bands: []color.Color{
		color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 255},
		color.RGBA{R: 0xdb, G: 0xdb, B: 0x8d, A: 255},
		color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 255},
		color.RGBA{R: 0xdb, G: 0xdb, B: 0x8d, A: 255},
		color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 255},
	},
	UnderColor: color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 255},
	OverColor:  color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 255},
	NaNColor:   color.Gray{Y: 200},
}

// DriftRow is one characteristic of the drift heatmap.
type DriftRow struct {
	Name   string
	Offset []float64 // per subgroup; NaN where undefined
}

// NormalizedDrift expresses subgroup means as offsets from the center of
// [lower, upper] in units of half the tolerance width, so ±1 is the
// engineering limit. It returns nil when either limit is missing or the
// tolerance has no width.
func NormalizedDrift(means []float64, lower, upper *float64) []float64 {
	if lower == nil || upper == nil || *upper <= *lower {
		return nil
	}
	center := (*upper + *lower) / 2
	half := (*upper - *lower) / 2
	out := make([]float64, len(means))
	for i, m := range means {
		out[i] = (m - center) / half
	}
	return out
}

type driftGrid struct {
	rows []DriftRow
	cols int
}

func (g driftGrid) Dims() (c, r int) { return g.cols, len(g.rows) }

func (g driftGrid) Z(c, r int) float64 {
	if c < len(g.rows[r].Offset) {
		return g.rows[r].Offset[c]
	}
	return math.NaN()
}

func (g driftGrid) X(c int) float64 { return float64(c) }
func (g driftGrid) Y(r int) float64 { return float64(r) }

// CreateDriftHeatmap renders characteristics (rows) against subgroups
// (columns), colored by normalized drift from the center of the tolerance.
func CreateDriftHeatmap(rows []DriftRow, plotTitle string) ([]byte, error) {
	cols := 0
	for _, r := range rows {
		if len(r.Offset) > cols {
			cols = len(r.Offset)
		}
	}
	if len(rows) == 0 || cols == 0 {
		return nil, fmt.Errorf("no subgroup data to plot heatmap")
	}
	grid := driftGrid{rows: rows, cols: cols}

	p := plot.New()
	p.Title.Text = plotTitle
	p.X.Label.Text = "Subgroup"
	p.Y.Label.Text = "Characteristic"

	yTicks := make([]plot.Tick, len(rows))
	for i, r := range rows {
		yTicks[i] = plot.Tick{Value: float64(i), Label: r.Name}
	}
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	p.Y.Min = -0.5
	p.Y.Max = float64(len(rows)) - 0.5

	xTicks := make([]plot.Tick, 0)
	step := tickStep(cols)
	for i := 0; i < cols; i += step {
		xTicks = append(xTicks, plot.Tick{Value: float64(i), Label: fmt.Sprintf("%d", i+1)})
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.X.Min = -0.5
	p.X.Max = float64(cols) - 0.5

	cm := driftColormap
	hm := plotter.NewHeatMap(grid, &cm)
	hm.Min = cm.Boundaries[0]
	hm.Max = cm.Boundaries[len(cm.Boundaries)-1]
	hm.Underflow = cm.UnderColor
	hm.Overflow = cm.OverColor
	hm.NaN = cm.NaNColor
	p.Add(hm)

	height := 120 + 30*float64(len(rows))
	return render(p, 1000, height)
}

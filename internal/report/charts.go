package report

import (
	"fmt"

	"github.com/CARsoftAR/medicionProcesos/internal/analysis"
)

// Chart keys used in Section.Charts.
const (
	ChartIndividuals = "individuals"
	ChartXBar        = "xbar"
	ChartRange       = "range"
	ChartCapability  = "capability"
)

// ChartOrder is the order charts appear in a section.
var ChartOrder = []string{ChartIndividuals, ChartXBar, ChartRange, ChartCapability}

// RenderCharts draws every chart the result supports. A chart that cannot be
// drawn (too few readings, no spread) is left out and its reason returned in
// skipped; this is not an error.
func RenderCharts(values []float64, res analysis.Result) (charts map[string][]byte, skipped []string) {
	charts = make(map[string][]byte)
	for _, key := range ChartOrder {
		var img []byte
		var err error
		switch key {
		case ChartIndividuals:
			img, err = CreateIndividualsChart(values, res)
		case ChartXBar:
			img, err = CreateXBarChart(res.XR)
		case ChartRange:
			img, err = CreateRangeChart(res.XR)
		case ChartCapability:
			img, err = CreateCapabilityChart(values, res)
		}
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		charts[key] = img
	}
	return charts, skipped
}

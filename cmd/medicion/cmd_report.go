package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/CARsoftAR/medicionProcesos/internal/report"
	"github.com/CARsoftAR/medicionProcesos/internal/spc"
)

func runReport(cmd *cobra.Command, args []string) error {
	out, err := analyzeSheet(cmd)
	if err != nil {
		return err
	}
	logger.Info("analysis complete", "characteristics", len(out.Characteristics))

	logger.Info("generating charts")
	doc := report.Document{
		Structure:   out.Structure,
		GeneratedAt: time.Now(),
		Thresholds:  cfg.Analysis.Thresholds,
		Sections:    make([]report.Section, 0, len(out.Characteristics)),
	}
	for _, cr := range out.Characteristics {
		doc.Sections = append(doc.Sections, section(cr))
	}

	if heat, err := driftHeatmap(out.Characteristics); err != nil {
		logger.Warn("drift heatmap skipped", "reason", err)
	} else {
		doc.Heatmap = heat
	}

	logger.Info("generating PDF", "path", pdfPath)
	if err := report.BuildPDFReportFile(pdfPath, doc); err != nil {
		return fmt.Errorf("generate PDF report: %w", err)
	}
	logger.Info("PDF report generated", "path", pdfPath)
	fmt.Fprintln(cmd.OutOrStdout(), pdfPath)
	return nil
}

func section(cr spc.CharacteristicResult) report.Section {
	sec := report.Section{
		Name:             cr.Characteristic,
		Kind:             cr.Kind,
		Tolerance:        cr.Tolerance,
		ToleranceMissing: cr.ToleranceMissing,
		Result:           cr.Result,
		PassFail:         cr.PassFail,
	}
	if cr.Result != nil {
		charts, skipped := report.RenderCharts(cr.Values, *cr.Result)
		for _, reason := range skipped {
			logger.Debug("chart skipped", "characteristic", cr.Characteristic, "reason", reason)
		}
		sec.Charts = charts
	}
	return sec
}

// driftHeatmap draws the subgroup means of every characteristic with
// engineering limits, scaled to the tolerance band.
func driftHeatmap(results []spc.CharacteristicResult) ([]byte, error) {
	var rows []report.DriftRow
	for _, cr := range results {
		if cr.Result == nil || cr.Result.XR == nil {
			continue
		}
		offset := report.NormalizedDrift(cr.Result.XR.Means, cr.Result.Limits.Lower, cr.Result.Limits.Upper)
		if offset == nil {
			continue
		}
		rows = append(rows, report.DriftRow{Name: cr.Characteristic, Offset: offset})
	}
	return report.CreateDriftHeatmap(rows, "Subgroup mean drift within tolerance")
}

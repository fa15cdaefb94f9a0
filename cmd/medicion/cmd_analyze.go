package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CARsoftAR/medicionProcesos/internal/parser"
	"github.com/CARsoftAR/medicionProcesos/internal/spc"
)

type analyzeOutput struct {
	Structure       string                     `json:"structure,omitempty"`
	Pieces          []int                      `json:"pieces"`
	Characteristics []spc.CharacteristicResult `json:"characteristics"`
	ParseErrors     []string                   `json:"parse_errors,omitempty"`
	// MissingTolerances lists characteristics analyzed without limits.
	MissingTolerances []string `json:"missing_tolerances,omitempty"`
	// KindMismatches lists characteristics whose readings contradict the
	// kind their tolerance declares.
	KindMismatches []string `json:"kind_mismatches,omitempty"`
}

// loadSheet parses the --csv sheet and the optional --tolerances file.
func loadSheet() (*parser.ParsedMeasurements, *parser.ToleranceFile, error) {
	logger.Info("parsing measurements", "path", csvPath)
	sheet, err := parser.ParseMeasurements(csvPath)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range sheet.ParseErrors {
		logger.Warn("parse warning", "detail", e)
	}
	if len(sheet.Pieces) == 0 {
		return nil, nil, fmt.Errorf("%s: no pieces parsed", csvPath)
	}
	logger.Info("parsed measurements", "pieces", len(sheet.Pieces), "characteristics", len(sheet.Characteristics))

	if tolerancePath == "" {
		logger.Warn("no tolerance file given, analyzing without limits")
		return sheet, nil, nil
	}
	tf, err := parser.ParseTolerances(tolerancePath)
	if err != nil {
		return nil, nil, err
	}
	return sheet, tf, nil
}

// analyzeSheet parses and analyzes the sheet named by the flags.
func analyzeSheet(cmd *cobra.Command) (analyzeOutput, error) {
	c, err := withFlagOverrides(cfg)
	if err != nil {
		return analyzeOutput{}, err
	}
	opts, err := c.AnalysisOptions()
	if err != nil {
		return analyzeOutput{}, err
	}
	sheet, tf, err := loadSheet()
	if err != nil {
		return analyzeOutput{}, err
	}

	results, missing, err := spc.AnalyzeSheet(cmd.Context(), sheet, tf, opts, c.Analysis.Workers)
	if err != nil {
		return analyzeOutput{}, err
	}
	for _, name := range missing {
		logger.Warn("no tolerance for characteristic", "characteristic", name)
	}
	out := analyzeOutput{
		Pieces:            sheet.Pieces,
		Characteristics:   results,
		ParseErrors:       sheet.ParseErrors,
		MissingTolerances: missing,
	}
	for _, cr := range results {
		if cr.KindMismatch {
			logger.Warn("readings contradict the tolerance kind, tolerance ignored",
				"characteristic", cr.Characteristic, "analyzed_as", cr.Kind)
			out.KindMismatches = append(out.KindMismatches, cr.Characteristic)
		}
	}
	if tf != nil {
		out.Structure = tf.Structure
	}
	return out, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	out, err := analyzeSheet(cmd)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

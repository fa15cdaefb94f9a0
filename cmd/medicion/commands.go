package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/CARsoftAR/medicionProcesos/internal/config"
)

var (
	configPath string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger
)

var (
	rootCmd = &cobra.Command{
		Use:   "medicion",
		Short: "Statistical process control for production measurement sheets",
		Long: `medicion analyzes the measurements taken on production pieces:
control charts, Western Electric rules, capability indices and PDF reports.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}

	analyzeCmd = &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a measurement sheet and print the results as JSON",
		Args:  cobra.NoArgs,
		RunE:  runAnalyze, // cmd_analyze.go
	}

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Build a PDF report with control charts for a measurement sheet",
		Args:  cobra.NoArgs,
		RunE:  runReport, // cmd_report.go
	}

	importCmd = &cobra.Command{
		Use:   "import",
		Short: "Import a measurement sheet and its tolerances into the store",
		Args:  cobra.NoArgs,
		RunE:  runImport, // cmd_import.go
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the SPC API",
		Args:  cobra.NoArgs,
		RunE:  runServe, // cmd_serve.go
	}
)

// sheet flags shared by analyze, report and import
var (
	csvPath        string
	tolerancePath  string
	subgroupSize   int
	interpretation string
)

var (
	pdfPath   string
	structure string
	dbPath    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	for _, c := range []*cobra.Command{analyzeCmd, reportCmd, importCmd} {
		c.Flags().StringVar(&csvPath, "csv", "", "measurement sheet (CSV)")
		c.Flags().StringVar(&tolerancePath, "tolerances", "", "tolerance file (YAML)")
		_ = c.MarkFlagRequired("csv")
	}
	for _, c := range []*cobra.Command{analyzeCmd, reportCmd} {
		c.Flags().IntVar(&subgroupSize, "subgroup", 0, "subgroup size for the X-bar/R charts (config value when 0)")
		c.Flags().StringVar(&interpretation, "interpretation", "", "tolerance interpretation: auto, deviation or absolute")
	}

	reportCmd.Flags().StringVar(&pdfPath, "pdf", "spc_report.pdf", "output PDF path")

	importCmd.Flags().StringVar(&structure, "structure", "", "structure (operation) the sheet belongs to; the tolerance file's when empty")
	importCmd.Flags().StringVar(&dbPath, "db", "", "BadgerDB directory (storage.path when empty)")

	rootCmd.AddCommand(analyzeCmd, reportCmd, importCmd, serveCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Log.Level = logLevel
		if err := c.Validate(); err != nil {
			return err
		}
	}
	cfg = c
	logger = config.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	logger.Debug("configuration loaded", "path", configPath)
	return nil
}

// withFlagOverrides returns the config with the --subgroup and
// --interpretation flags applied.
func withFlagOverrides(c config.Config) (config.Config, error) {
	if subgroupSize < 0 {
		return c, fmt.Errorf("--subgroup must be positive, got %d", subgroupSize)
	}
	if subgroupSize > 0 {
		c.Analysis.SubgroupSize = subgroupSize
	}
	if interpretation != "" {
		c.Analysis.Interpretation = interpretation
	}
	return c, c.Validate()
}

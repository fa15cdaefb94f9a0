package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CARsoftAR/medicionProcesos/internal/spc"
	"github.com/CARsoftAR/medicionProcesos/internal/store/badgerstore"
)

func runImport(cmd *cobra.Command, args []string) error {
	sheet, tf, err := loadSheet()
	if err != nil {
		return err
	}
	target := structure
	if target == "" && tf != nil {
		target = tf.Structure
	}
	if target == "" {
		return errors.New("--structure is required when the tolerance file names none")
	}
	path := dbPath
	if path == "" {
		path = cfg.Storage.Path
	}

	db, err := badgerstore.Open(badgerstore.Config{Path: path, SyncWrites: true, Logger: logger})
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := spc.Import(cmd.Context(), db, target, sheet, tf)
	if err != nil {
		return err
	}
	logger.Info("import complete",
		"structure", target,
		"db", path,
		"tolerances", stats.Tolerances,
		"measurements", stats.Measurements)
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d tolerances and %d measurements into %s\n", stats.Tolerances, stats.Measurements, target)
	return nil
}

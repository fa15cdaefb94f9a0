package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/CARsoftAR/medicionProcesos/internal/server"
	"github.com/CARsoftAR/medicionProcesos/internal/spc"
	"github.com/CARsoftAR/medicionProcesos/internal/store"
	"github.com/CARsoftAR/medicionProcesos/internal/store/badgerstore"
)

func openStore() (store.Store, error) {
	if cfg.Storage.InMemory {
		logger.Warn("using in-memory store, measurements are lost on exit")
		return store.NewMemory(), nil
	}
	return badgerstore.Open(badgerstore.Config{Path: cfg.Storage.Path, Logger: logger})
}

func runServe(cmd *cobra.Command, args []string) error {
	opts, err := cfg.AnalysisOptions()
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := spc.NewService(st, st, opts,
		spc.WithWorkers(cfg.Analysis.Workers),
		spc.WithLogger(logger))
	srv := server.New(svc, server.Config{Tolerances: st, Registry: reg, Logger: logger})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout)
}

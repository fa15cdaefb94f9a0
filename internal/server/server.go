// Package server exposes the SPC engine over HTTP for the reporting and
// dashboard layer.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CARsoftAR/medicionProcesos/internal/analysis"
	"github.com/CARsoftAR/medicionProcesos/internal/spc"
	"github.com/CARsoftAR/medicionProcesos/internal/store"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Server holds the HTTP handlers.
type Server struct {
	svc       *spc.Service
	tolerance store.ToleranceStore
	metrics   *Metrics
	gatherer  prometheus.Gatherer
	validate  *validator.Validate
	logger    *slog.Logger
	engine    *gin.Engine
}

// Config holds what New needs besides the service.
type Config struct {
	// Tolerances receives tolerance updates; usually the same store the
	// service reads from.
	Tolerances store.ToleranceStore
	// Registry collects the API metrics. A fresh registry is used when nil.
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

// New builds the router.
func New(svc *spc.Service, cfg Config) *Server {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:       svc,
		tolerance: cfg.Tolerances,
		metrics:   NewMetrics(reg),
		gatherer:  reg,
		validate:  validator.New(),
		logger:    logger,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	engine.GET("/health", s.HandleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	RegisterRoutes(engine.Group("/v1"), s)
	s.engine = engine
	return s
}

// RegisterRoutes mounts the API under rg.
func RegisterRoutes(rg *gin.RouterGroup, s *Server) {
	spcGroup := rg.Group("/spc")
	{
		spcGroup.POST("/analyze", s.HandleAnalyze)
		spcGroup.GET("/:structure", s.HandleAnalyzeStructure)
		spcGroup.GET("/:structure/:characteristic", s.HandleAnalyzeCharacteristic)
	}
	rg.PUT("/tolerances/:structure/:characteristic", s.HandlePutTolerance)
	rg.POST("/measurements/:structure/:characteristic", s.HandleRecordMeasurement)
}

// Handler returns the http.Handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is canceled, then shuts down gracefully
// within shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Version: Version})
}

// HandleAnalyze analyzes a series posted in the request body.
func (s *Server) HandleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_JSON", err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		badRequest(c, "VALIDATION_FAILED", err)
		return
	}
	opts, err := s.options(req.OptionsOverride)
	if err != nil {
		badRequest(c, "VALIDATION_FAILED", err)
		return
	}

	start := time.Now()
	res := analysis.Analyze(req.Series, req.Tolerance, opts)
	s.metrics.analysisSeconds.Observe(time.Since(start).Seconds())
	s.metrics.observe(res)

	c.JSON(http.StatusOK, AnalyzeResponse{ID: uuid.NewString(), Result: res})
}

// HandleAnalyzeCharacteristic analyzes one stored characteristic.
func (s *Server) HandleAnalyzeCharacteristic(c *gin.Context) {
	opts, ok := s.queryOptions(c)
	if !ok {
		return
	}
	key := store.Key{Structure: c.Param("structure"), Characteristic: c.Param("characteristic")}

	start := time.Now()
	cr, err := s.svc.AnalyzeCharacteristic(c.Request.Context(), key, opts)
	s.metrics.analysisSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		s.internalError(c, "analyze characteristic", err)
		return
	}
	if cr.ToleranceMissing && cr.Result != nil && cr.Result.Summary.N == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: fmt.Sprintf("no data for %s/%s", key.Structure, key.Characteristic),
			Code:  "NOT_FOUND",
		})
		return
	}
	s.metrics.observeResult(cr)
	c.JSON(http.StatusOK, CharacteristicResponse{ID: uuid.NewString(), CharacteristicResult: cr})
}

// HandleAnalyzeStructure analyzes every characteristic of a structure.
func (s *Server) HandleAnalyzeStructure(c *gin.Context) {
	opts, ok := s.queryOptions(c)
	if !ok {
		return
	}
	structure := c.Param("structure")

	start := time.Now()
	results, err := s.svc.AnalyzeStructure(c.Request.Context(), structure, opts)
	s.metrics.analysisSeconds.Observe(time.Since(start).Seconds())
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("structure %q has no characteristics", structure), Code: "NOT_FOUND"})
		return
	}
	if err != nil {
		s.internalError(c, "analyze structure", err)
		return
	}
	for _, cr := range results {
		s.metrics.observeResult(cr)
	}
	c.JSON(http.StatusOK, StructureResponse{ID: uuid.NewString(), Structure: structure, Characteristics: results})
}

// HandlePutTolerance stores the tolerance of a characteristic.
func (s *Server) HandlePutTolerance(c *gin.Context) {
	var req ToleranceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_JSON", err)
		return
	}
	key := store.Key{Structure: c.Param("structure"), Characteristic: c.Param("characteristic")}
	t := store.Tolerance{
		Spec: analysis.ToleranceSpec{Nominal: req.Nominal, Minimum: req.Minimum, Maximum: req.Maximum},
		Kind: analysis.KindNumeric,
	}
	if req.PassFail {
		t = store.Tolerance{Kind: analysis.KindPassFail}
	}
	if err := s.tolerance.PutTolerance(c.Request.Context(), key, t); err != nil {
		s.internalError(c, "store tolerance", err)
		return
	}
	c.JSON(http.StatusOK, ToleranceResponse{
		Key:       key,
		Tolerance: t,
		Limits:    analysis.ResolveLimitsWith(t.Spec, s.svc.Options().Interpretation),
	})
}

// HandleRecordMeasurement stores one reading and answers with its
// within-spec status and live alerts.
func (s *Server) HandleRecordMeasurement(c *gin.Context) {
	var req MeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_JSON", err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		badRequest(c, "VALIDATION_FAILED", err)
		return
	}
	key := store.Key{Structure: c.Param("structure"), Characteristic: c.Param("characteristic")}
	rec, err := s.svc.Record(c.Request.Context(), key, store.Measurement{Piece: req.Piece, Value: req.Value, Result: req.Result})
	if errors.Is(err, store.ErrInvalidMeasurement) {
		badRequest(c, "INVALID_MEASUREMENT", err)
		return
	}
	if err != nil {
		s.internalError(c, "record measurement", err)
		return
	}
	s.metrics.observeRecorded(rec.WithinSpec)
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) queryOptions(c *gin.Context) (analysis.Options, bool) {
	var o OptionsOverride
	if err := c.ShouldBindQuery(&o); err != nil {
		badRequest(c, "INVALID_QUERY", err)
		return analysis.Options{}, false
	}
	if err := s.validate.Struct(o); err != nil {
		badRequest(c, "VALIDATION_FAILED", err)
		return analysis.Options{}, false
	}
	opts, err := s.options(o)
	if err != nil {
		badRequest(c, "VALIDATION_FAILED", err)
		return analysis.Options{}, false
	}
	return opts, true
}

// options applies o to the service defaults.
func (s *Server) options(o OptionsOverride) (analysis.Options, error) {
	opts := s.svc.Options()
	if o.SubgroupSize > 0 {
		opts.SubgroupSize = o.SubgroupSize
	}
	if o.Interpretation != "" {
		mode, err := analysis.ParseInterpretation(o.Interpretation)
		if err != nil {
			return analysis.Options{}, err
		}
		opts.Interpretation = mode
	}
	if o.ExcellentThreshold > 0 {
		if opts.Thresholds == (analysis.Thresholds{}) {
			opts.Thresholds = analysis.DefaultThresholds
		}
		if o.ExcellentThreshold <= opts.Thresholds.Acceptable {
			return analysis.Options{}, fmt.Errorf("excellent_threshold must be above %.2f", opts.Thresholds.Acceptable)
		}
		opts.Thresholds.Excellent = o.ExcellentThreshold
	}
	return opts, nil
}

func badRequest(c *gin.Context, code string, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: code})
}

func (s *Server) internalError(c *gin.Context, op string, err error) {
	if errors.Is(err, context.Canceled) {
		c.Status(499)
		return
	}
	s.logger.Error(op+" failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "INTERNAL"})
}

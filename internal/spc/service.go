// Package spc runs the analysis engine over stored or imported inspection
// data, one characteristic at a time, and records new readings.
package spc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/CARsoftAR/medicionProcesos/internal/analysis"
	"github.com/CARsoftAR/medicionProcesos/internal/store"
)

// DefaultWorkers bounds concurrent characteristic analyses when none is set.
const DefaultWorkers = 4

// CharacteristicResult is the analysis of one characteristic.
type CharacteristicResult struct {
	Structure      string                 `json:"structure"`
	Characteristic string                 `json:"characteristic"`
	Kind           analysis.Kind          `json:"kind"`
	Tolerance      analysis.ToleranceSpec `json:"tolerance"`
	// ToleranceMissing is set when no tolerance was found; the analysis then
	// runs without engineering limits.
	ToleranceMissing bool `json:"tolerance_missing"`
	// KindMismatch is set when the readings contradict the kind the
	// tolerance declares; the analysis then follows the readings and
	// ignores the tolerance.
	KindMismatch bool `json:"kind_mismatch,omitempty"`
	// Values is the cleaned numeric series the result was computed from.
	Values []float64 `json:"values,omitempty"`
	// Result is set for numeric characteristics.
	Result *analysis.Result `json:"result,omitempty"`
	// PassFail is set for pass/fail characteristics.
	PassFail *analysis.Conformance `json:"pass_fail,omitempty"`
}

// Analyze runs the engine for one characteristic. Pass/fail characteristics
// are only counted.
func Analyze(name string, kind analysis.Kind, spec analysis.ToleranceSpec, series []*float64, results []*bool, opts analysis.Options) CharacteristicResult {
	cr := CharacteristicResult{
		Characteristic: name,
		Kind:           kind,
		Tolerance:      spec,
	}
	if kind == analysis.KindPassFail {
		c := analysis.SummarizePassFail(results)
		cr.PassFail = &c
		return cr
	}
	cr.Kind = analysis.KindNumeric
	cr.Values = analysis.CleanSeries(series)
	res := analysis.Analyze(series, spec, opts)
	cr.Result = &res
	return cr
}

// Service analyzes characteristics held in a store.
type Service struct {
	measurements store.MeasurementStore
	tolerances   store.ToleranceStore
	opts         analysis.Options
	workers      int
	logger       *slog.Logger
	now          func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithWorkers bounds concurrent analyses in AnalyzeStructure.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService returns a Service reading from ms and ts and analyzing with
// opts unless a call overrides them.
func NewService(ms store.MeasurementStore, ts store.ToleranceStore, opts analysis.Options, options ...Option) *Service {
	s := &Service{
		measurements: ms,
		tolerances:   ts,
		opts:         opts,
		workers:      DefaultWorkers,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Options returns the service's default analysis options.
func (s *Service) Options() analysis.Options {
	return s.opts
}

// tolerance loads the tolerance of key. A missing tolerance is not an error:
// the characteristic is treated as numeric without limits.
func (s *Service) tolerance(ctx context.Context, key store.Key) (store.Tolerance, bool, error) {
	t, err := s.tolerances.Tolerance(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return store.Tolerance{Kind: analysis.KindNumeric}, false, nil
	}
	if err != nil {
		return store.Tolerance{}, false, fmt.Errorf("load tolerance %s/%s: %w", key.Structure, key.Characteristic, err)
	}
	return t, true, nil
}

// AnalyzeCharacteristic loads the series and tolerance of key and analyzes
// them with opts.
func (s *Service) AnalyzeCharacteristic(ctx context.Context, key store.Key, opts analysis.Options) (CharacteristicResult, error) {
	tol, found, err := s.tolerance(ctx, key)
	if err != nil {
		return CharacteristicResult{}, err
	}
	ms, err := s.measurements.Measurements(ctx, key)
	if err != nil {
		return CharacteristicResult{}, fmt.Errorf("load measurements %s/%s: %w", key.Structure, key.Characteristic, err)
	}
	if !found {
		s.logger.Warn("no tolerance defined, analyzing without limits",
			"structure", key.Structure, "characteristic", key.Characteristic)
	}

	cr := Analyze(key.Characteristic, tol.Kind, tol.Spec, store.Series(ms), store.Results(ms), opts)
	cr.Structure = key.Structure
	cr.ToleranceMissing = !found
	return cr, nil
}

// AnalyzeStructure analyzes every characteristic of structure concurrently.
// Results keep the store's characteristic order. ErrNotFound is returned for
// a structure with no characteristics.
func (s *Service) AnalyzeStructure(ctx context.Context, structure string, opts analysis.Options) ([]CharacteristicResult, error) {
	names, err := s.measurements.Characteristics(ctx, structure)
	if err != nil {
		return nil, fmt.Errorf("list characteristics of %s: %w", structure, err)
	}
	if len(names) == 0 {
		return nil, store.ErrNotFound
	}

	results := make([]CharacteristicResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, name := range names {
		g.Go(func() error {
			cr, err := s.AnalyzeCharacteristic(gctx, store.Key{Structure: structure, Characteristic: name}, opts)
			if err != nil {
				return err
			}
			results[i] = cr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.logger.Debug("structure analyzed", "structure", structure, "characteristics", len(results))
	return results, nil
}

// Recorded is the immediate feedback for a stored reading.
type Recorded struct {
	Key         store.Key         `json:"key"`
	Measurement store.Measurement `json:"measurement"`
	Limits      analysis.Limits   `json:"limits"`
	// WithinSpec is nil when the characteristic has no limits at all.
	WithinSpec *bool            `json:"within_spec"`
	Alerts     []analysis.Alert `json:"alerts"`
}

// Record stores m and evaluates it against the characteristic's limits and
// the recent readings.
func (s *Service) Record(ctx context.Context, key store.Key, m store.Measurement) (Recorded, error) {
	if m.RecordedAt.IsZero() {
		m.RecordedAt = s.now().UTC()
	}
	tol, _, err := s.tolerance(ctx, key)
	if err != nil {
		return Recorded{}, err
	}
	if (tol.Kind == analysis.KindPassFail) != (m.Result != nil) {
		return Recorded{}, fmt.Errorf("%w: %s/%s is %s", store.ErrInvalidMeasurement, key.Structure, key.Characteristic, tol.Kind)
	}
	if err := s.measurements.PutMeasurement(ctx, key, m); err != nil {
		return Recorded{}, fmt.Errorf("store measurement: %w", err)
	}

	rec := Recorded{Key: key, Measurement: m, Alerts: make([]analysis.Alert, 0)}
	if tol.Kind == analysis.KindPassFail {
		rec.WithinSpec = m.Result
		return rec, nil
	}

	rec.Limits = analysis.ResolveLimitsWith(tol.Spec, s.opts.Interpretation)
	if rec.Limits.HasLimits() {
		ok := analysis.WithinLimits(*m.Value, rec.Limits)
		rec.WithinSpec = &ok
	}

	ms, err := s.measurements.Measurements(ctx, key)
	if err != nil {
		return Recorded{}, fmt.Errorf("load measurements %s/%s: %w", key.Structure, key.Characteristic, err)
	}
	// Alerts look at the history up to and including this piece, so a
	// correction of an older piece is judged in its own context.
	upTo := make([]store.Measurement, 0, len(ms))
	for _, prev := range ms {
		if prev.Piece <= m.Piece {
			upTo = append(upTo, prev)
		}
	}
	rec.Alerts = analysis.CheckLatest(analysis.CleanSeries(store.Series(upTo)), rec.Limits, tol.Spec.Nominal)
	if len(rec.Alerts) > 0 {
		s.logger.Info("measurement raised alerts",
			"structure", key.Structure, "characteristic", key.Characteristic,
			"piece", m.Piece, "alerts", len(rec.Alerts))
	}
	return rec, nil
}

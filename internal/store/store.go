// Package store defines the measurement and tolerance records the SPC engine
// reads, and an in-memory implementation. The badgerstore subpackage persists
// the same records on disk.
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/CARsoftAR/medicionProcesos/internal/analysis"
)

var (
	// ErrNotFound is returned when no record exists for a key.
	ErrNotFound = errors.New("not found")
	// ErrInvalidMeasurement is returned for a piece number below 1 or a
	// measurement carrying both or neither of a value and a pass/fail result.
	ErrInvalidMeasurement = errors.New("invalid measurement")
)

// Key identifies one characteristic of one inspection structure (a part and
// operation being controlled).
type Key struct {
	Structure      string `json:"structure"`
	Characteristic string `json:"characteristic"`
}

// Measurement is one inspected piece. Numeric characteristics carry Value,
// pass/fail characteristics carry Result.
type Measurement struct {
	Piece      int       `json:"piece"`
	Value      *float64  `json:"value,omitempty"`
	Result     *bool     `json:"result,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Validate reports ErrInvalidMeasurement for malformed records.
func (m Measurement) Validate() error {
	if m.Piece < 1 {
		return ErrInvalidMeasurement
	}
	if (m.Value == nil) == (m.Result == nil) {
		return ErrInvalidMeasurement
	}
	return nil
}

// Tolerance is the stored specification of a characteristic.
type Tolerance struct {
	Spec analysis.ToleranceSpec `json:"spec"`
	Kind analysis.Kind          `json:"kind"`
}

// MeasurementStore supplies measurements in production (piece) order.
type MeasurementStore interface {
	// PutMeasurement stores m, replacing an earlier record for the same piece.
	PutMeasurement(ctx context.Context, key Key, m Measurement) error
	// Measurements returns all records of key ordered by piece.
	Measurements(ctx context.Context, key Key) ([]Measurement, error)
	// Characteristics lists the characteristics of a structure that have
	// measurements or a tolerance, sorted by name.
	Characteristics(ctx context.Context, structure string) ([]string, error)
}

// ToleranceStore supplies the tolerance of a characteristic.
type ToleranceStore interface {
	PutTolerance(ctx context.Context, key Key, t Tolerance) error
	// Tolerance returns ErrNotFound when key has no tolerance.
	Tolerance(ctx context.Context, key Key) (Tolerance, error)
}

// Store is a backend holding both record kinds.
type Store interface {
	MeasurementStore
	ToleranceStore
	Close() error
}

// Series returns the numeric readings of ms in order. Pass/fail records and
// pieces without a value become nil entries.
func Series(ms []Measurement) []*float64 {
	out := make([]*float64, len(ms))
	for i, m := range ms {
		out[i] = m.Value
	}
	return out
}

// Results returns the pass/fail results of ms in order.
func Results(ms []Measurement) []*bool {
	out := make([]*bool, len(ms))
	for i, m := range ms {
		out[i] = m.Result
	}
	return out
}

func sortByPiece(ms []Measurement) {
	sort.Slice(ms, func(i, j int) bool { return ms[i].Piece < ms[j].Piece })
}

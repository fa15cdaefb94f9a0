// Package storetest holds the behavior every store.Store implementation must
// share.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CARsoftAR/medicionProcesos/internal/analysis"
	"github.com/CARsoftAR/medicionProcesos/internal/store"
)

func f(v float64) *float64 { return &v }
func b(v bool) *bool        { return &v }

// Run exercises a fresh store returned by open. open is called once per
// subtest; the returned store is closed afterwards.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("MeasurementsInPieceOrder", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		ctx := context.Background()
		key := store.Key{Structure: "OP-10", Characteristic: "DIAMETRO"}

		for _, p := range []int{3, 1, 12, 2} {
			require.NoError(t, s.PutMeasurement(ctx, key, store.Measurement{Piece: p, Value: f(float64(p))}))
		}
		// replaces piece 2
		require.NoError(t, s.PutMeasurement(ctx, key, store.Measurement{Piece: 2, Value: f(20)}))

		ms, err := s.Measurements(ctx, key)
		require.NoError(t, err)
		pieces := make([]int, len(ms))
		for i, m := range ms {
			pieces[i] = m.Piece
		}
		assert.Equal(t, []int{1, 2, 3, 12}, pieces)
		assert.Equal(t, []float64{1, 20, 3, 12}, analysis.CleanSeries(store.Series(ms)))
	})

	t.Run("KeysDoNotLeak", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		ctx := context.Background()
		a := store.Key{Structure: "OP/10", Characteristic: "A"}
		ab := store.Key{Structure: "OP", Characteristic: "10/A"}

		require.NoError(t, s.PutMeasurement(ctx, a, store.Measurement{Piece: 1, Value: f(1)}))
		require.NoError(t, s.PutMeasurement(ctx, ab, store.Measurement{Piece: 1, Value: f(2)}))

		ms, err := s.Measurements(ctx, a)
		require.NoError(t, err)
		require.Len(t, ms, 1)
		assert.Equal(t, 1.0, *ms[0].Value)

		ms, err = s.Measurements(ctx, store.Key{Structure: "OP-99", Characteristic: "A"})
		require.NoError(t, err)
		assert.Empty(t, ms)
	})

	t.Run("PassFail", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		ctx := context.Background()
		key := store.Key{Structure: "OP-10", Characteristic: "ROSCA"}

		require.NoError(t, s.PutMeasurement(ctx, key, store.Measurement{Piece: 1, Result: b(true)}))
		require.NoError(t, s.PutMeasurement(ctx, key, store.Measurement{Piece: 2, Result: b(false)}))
		ms, err := s.Measurements(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, analysis.Conformance{Approved: 1, Rejected: 1, Total: 2}, analysis.SummarizePassFail(store.Results(ms)))
	})

	t.Run("RejectsInvalidMeasurement", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		ctx := context.Background()
		key := store.Key{Structure: "OP-10", Characteristic: "A"}

		for _, m := range []store.Measurement{
			{Piece: 0, Value: f(1)},
			{Piece: 1},
			{Piece: 1, Value: f(1), Result: b(true)},
		} {
			err := s.PutMeasurement(ctx, key, m)
			assert.True(t, errors.Is(err, store.ErrInvalidMeasurement), "piece %d: %v", m.Piece, err)
		}
	})

	t.Run("Tolerances", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		ctx := context.Background()
		key := store.Key{Structure: "OP-10", Characteristic: "DIAMETRO"}

		_, err := s.Tolerance(ctx, key)
		assert.ErrorIs(t, err, store.ErrNotFound)

		want := store.Tolerance{
			Spec: analysis.ToleranceSpec{Nominal: f(10), Minimum: f(0.2)},
			Kind: analysis.KindNumeric,
		}
		require.NoError(t, s.PutTolerance(ctx, key, want))
		got, err := s.Tolerance(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("Characteristics", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		ctx := context.Background()

		require.NoError(t, s.PutMeasurement(ctx, store.Key{Structure: "OP-10", Characteristic: "B"}, store.Measurement{Piece: 1, Value: f(1)}))
		require.NoError(t, s.PutMeasurement(ctx, store.Key{Structure: "OP-10", Characteristic: "B"}, store.Measurement{Piece: 2, Value: f(1)}))
		require.NoError(t, s.PutTolerance(ctx, store.Key{Structure: "OP-10", Characteristic: "A"}, store.Tolerance{Kind: analysis.KindNumeric}))
		require.NoError(t, s.PutTolerance(ctx, store.Key{Structure: "OP-10", Characteristic: "B"}, store.Tolerance{Kind: analysis.KindNumeric}))
		require.NoError(t, s.PutTolerance(ctx, store.Key{Structure: "OP-20", Characteristic: "C"}, store.Tolerance{Kind: analysis.KindNumeric}))

		names, err := s.Characteristics(ctx, "OP-10")
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, names)

		names, err = s.Characteristics(ctx, "OP-30")
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.Measurements(ctx, store.Key{Structure: "OP-10", Characteristic: "A"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

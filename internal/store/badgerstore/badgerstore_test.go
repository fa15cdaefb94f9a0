package badgerstore

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CARsoftAR/medicionProcesos/internal/store"
	"github.com/CARsoftAR/medicionProcesos/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(Config{InMemory: true})
		require.NoError(t, err)
		return s
	})
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	key := store.Key{Structure: "OP-10", Characteristic: "DIAMETRO"}
	v := 10.02

	s, err := Open(Config{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, s.PutMeasurement(ctx, key, store.Measurement{Piece: 7, Value: &v}))
	require.NoError(t, s.Close())

	s, err = Open(Config{Path: dir})
	require.NoError(t, err)
	defer s.Close()
	ms, err := s.Measurements(ctx, key)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, 7, ms[0].Piece)
	assert.Equal(t, v, *ms[0].Value)
}

func TestMeasurementKeyOrdering(t *testing.T) {
	key := store.Key{Structure: "OP 10", Characteristic: "Ø/DIA"}
	assert.Equal(t, "m/OP%2010/%C3%98%2FDIA/0000000000000000009", string(measurementKey(key, 9)))
	assert.Less(t, string(measurementKey(key, 9)), string(measurementKey(key, 10)))
	assert.Less(t, string(measurementKey(key, math.MaxInt-1)), string(measurementKey(key, math.MaxInt)))
}

func TestMeasurements_LargePieceNumbersKeepOrder(t *testing.T) {
	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	key := store.Key{Structure: "OP-10", Characteristic: "DIAMETRO"}
	pieces := []int{math.MaxInt, 10, math.MaxInt / 3, 9}
	for _, p := range pieces {
		v := float64(p % 100)
		require.NoError(t, s.PutMeasurement(ctx, key, store.Measurement{Piece: p, Value: &v}))
	}

	ms, err := s.Measurements(ctx, key)
	require.NoError(t, err)
	got := make([]int, len(ms))
	for i, m := range ms {
		got[i] = m.Piece
	}
	assert.Equal(t, []int{9, 10, math.MaxInt / 3, math.MaxInt}, got)
}

package spc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CARsoftAR/medicionProcesos/internal/analysis"
	"github.com/CARsoftAR/medicionProcesos/internal/parser"
	"github.com/CARsoftAR/medicionProcesos/internal/store"
)

func f(v float64) *float64 { return &v }
func b(v bool) *bool        { return &v }

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func seed(t *testing.T, s store.Store, structure, name string, values ...float64) {
	t.Helper()
	for i, v := range values {
		require.NoError(t, s.PutMeasurement(context.Background(),
			store.Key{Structure: structure, Characteristic: name},
			store.Measurement{Piece: i + 1, Value: f(v)}))
	}
}

func TestService_AnalyzeCharacteristic(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	key := store.Key{Structure: "OP-10", Characteristic: "DIAMETRO"}
	require.NoError(t, mem.PutTolerance(ctx, key, store.Tolerance{
		Spec: analysis.ToleranceSpec{Nominal: f(10), Minimum: f(0.2), Maximum: f(0.2)},
		Kind: analysis.KindNumeric,
	}))
	seed(t, mem, "OP-10", "DIAMETRO", 10.0, 10.1, 9.95, 10.05, 10.02, 9.98)

	svc := NewService(mem, mem, analysis.DefaultOptions(), WithLogger(quiet))
	cr, err := svc.AnalyzeCharacteristic(ctx, key, svc.Options())
	require.NoError(t, err)

	assert.Equal(t, "OP-10", cr.Structure)
	assert.False(t, cr.ToleranceMissing)
	require.NotNil(t, cr.Result)
	assert.InDelta(t, 9.8, *cr.Result.Limits.Lower, 1e-9)
	assert.InDelta(t, 10.2, *cr.Result.Limits.Upper, 1e-9)
	assert.Len(t, cr.Values, 6)
	assert.Nil(t, cr.PassFail)
}

func TestService_AnalyzeStructure(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seed(t, mem, "OP-10", "B", 1, 2, 3)
	seed(t, mem, "OP-10", "A", 4, 5, 6, 7, 8)
	rosca := store.Key{Structure: "OP-10", Characteristic: "C"}
	require.NoError(t, mem.PutTolerance(ctx, rosca, store.Tolerance{Kind: analysis.KindPassFail}))
	require.NoError(t, mem.PutMeasurement(ctx, rosca, store.Measurement{Piece: 1, Result: b(false)}))

	svc := NewService(mem, mem, analysis.DefaultOptions(), WithWorkers(2), WithLogger(quiet))
	results, err := svc.AnalyzeStructure(ctx, "OP-10", svc.Options())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "A", results[0].Characteristic)
	assert.True(t, results[0].ToleranceMissing)
	require.NotNil(t, results[0].Result.XR)
	assert.Equal(t, 1, results[0].Result.XR.Count)

	assert.Equal(t, "B", results[1].Characteristic)
	assert.True(t, results[1].Result.InsufficientSubgroups)

	assert.Equal(t, analysis.KindPassFail, results[2].Kind)
	assert.Nil(t, results[2].Result)
	assert.Equal(t, &analysis.Conformance{Rejected: 1, Total: 1}, results[2].PassFail)

	_, err = svc.AnalyzeStructure(ctx, "OP-99", svc.Options())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

type failingStore struct {
	*store.Memory
}

func (failingStore) Tolerance(context.Context, store.Key) (store.Tolerance, error) {
	return store.Tolerance{}, errors.New("disk on fire")
}

func TestService_AnalyzeStructure_PropagatesErrors(t *testing.T) {
	mem := store.NewMemory()
	seed(t, mem, "OP-10", "A", 1, 2)
	fs := failingStore{mem}
	svc := NewService(fs, fs, analysis.DefaultOptions(), WithLogger(quiet))
	_, err := svc.AnalyzeStructure(context.Background(), "OP-10", svc.Options())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestService_Record(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	key := store.Key{Structure: "OP-10", Characteristic: "DIAMETRO"}
	require.NoError(t, mem.PutTolerance(ctx, key, store.Tolerance{
		Spec: analysis.ToleranceSpec{Nominal: f(10), Minimum: f(0.2), Maximum: f(0.2)},
		Kind: analysis.KindNumeric,
	}))
	svc := NewService(mem, mem, analysis.DefaultOptions(), WithLogger(quiet))

	values := []float64{10.01, 10.02, 10.03, 10.04, 10.05}
	for i, v := range values {
		rec, err := svc.Record(ctx, key, store.Measurement{Piece: i + 1, Value: f(v)})
		require.NoError(t, err)
		require.NotNil(t, rec.WithinSpec)
		assert.True(t, *rec.WithinSpec)
		assert.False(t, rec.Measurement.RecordedAt.IsZero())
	}

	rec, err := svc.Record(ctx, key, store.Measurement{Piece: 6, Value: f(10.25)})
	require.NoError(t, err)
	assert.False(t, *rec.WithinSpec)
	rules := make([]analysis.Rule, len(rec.Alerts))
	for i, a := range rec.Alerts {
		rules[i] = a.Rule
	}
	assert.Equal(t, []analysis.Rule{analysis.RuleLimitOut, analysis.RuleTrendUp}, rules)

	// Correcting an early piece is judged on the history up to that piece.
	rec, err = svc.Record(ctx, key, store.Measurement{Piece: 2, Value: f(10.0)})
	require.NoError(t, err)
	assert.True(t, *rec.WithinSpec)
	assert.Empty(t, rec.Alerts)

	_, err = svc.Record(ctx, key, store.Measurement{Piece: 7, Result: b(true)})
	assert.ErrorIs(t, err, store.ErrInvalidMeasurement)
}

func TestService_RecordPassFailAndNoLimits(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	rosca := store.Key{Structure: "OP-10", Characteristic: "ROSCA"}
	require.NoError(t, mem.PutTolerance(ctx, rosca, store.Tolerance{Kind: analysis.KindPassFail}))
	svc := NewService(mem, mem, analysis.DefaultOptions(), WithLogger(quiet))

	rec, err := svc.Record(ctx, rosca, store.Measurement{Piece: 1, Result: b(false)})
	require.NoError(t, err)
	require.NotNil(t, rec.WithinSpec)
	assert.False(t, *rec.WithinSpec)

	_, err = svc.Record(ctx, rosca, store.Measurement{Piece: 2, Value: f(1)})
	assert.ErrorIs(t, err, store.ErrInvalidMeasurement)

	free := store.Key{Structure: "OP-10", Characteristic: "LIBRE"}
	rec, err = svc.Record(ctx, free, store.Measurement{Piece: 1, Value: f(3)})
	require.NoError(t, err)
	assert.Nil(t, rec.WithinSpec)
}

const sheetCSV = `piece,DIAMETRO,ALTURA,ROSCA
1,10.00,60.8,OK
2,10.10,60.75,NOK
3,9.95,60.7,OK
4,10.05,,OK
5,10.02,60.72,OK
6,9.98,60.71,OK
`

const sheetTolerances = `
structure: OP-1042
characteristics:
  - name: DIAMETRO
    nominal: 10.0
    minimum: 0.2
    maximum: 0.2
  - name: ROSCA
    pass_fail: true
`

func TestAnalyzeSheetAndImport(t *testing.T) {
	ctx := context.Background()
	sheet, err := parser.ParseMeasurementsReader(strings.NewReader(sheetCSV))
	require.NoError(t, err)
	tf, err := parser.ParseTolerancesReader(strings.NewReader(sheetTolerances))
	require.NoError(t, err)

	results, missing, err := AnalyzeSheet(ctx, sheet, tf, analysis.DefaultOptions(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"ALTURA"}, missing)
	require.Len(t, results, 3)
	assert.Equal(t, "DIAMETRO", results[0].Characteristic)
	assert.Equal(t, "OP-1042", results[0].Structure)
	assert.Equal(t, analysis.Conformance{Approved: 6, Total: 6}, results[0].Result.Conformance)
	assert.True(t, results[1].ToleranceMissing)
	assert.Len(t, results[1].Values, 5)
	assert.Equal(t, &analysis.Conformance{Approved: 5, Rejected: 1, Total: 6}, results[2].PassFail)

	mem := store.NewMemory()
	stats, err := Import(ctx, mem, tf.Structure, sheet, tf)
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Tolerances: 2, Measurements: 17}, stats)

	svc := NewService(mem, mem, analysis.DefaultOptions(), WithLogger(quiet))
	stored, err := svc.AnalyzeStructure(ctx, "OP-1042", svc.Options())
	require.NoError(t, err)
	require.Len(t, stored, 3)
	// Store order is alphabetical.
	assert.Equal(t, "ALTURA", stored[0].Characteristic)
	assert.Equal(t, results[0].Result.Capability, stored[1].Result.Capability)
	assert.Equal(t, results[2].PassFail, stored[2].PassFail)
}

const mismatchCSV = `piece,ROSCA,DIAMETRO,VACIA
1,10.01,OK,
2,10.02,NOK,
3,9.99,OK,
`

const mismatchTolerances = `
structure: OP-7
characteristics:
  - name: ROSCA
    pass_fail: true
  - name: DIAMETRO
    nominal: 10.0
    minimum: 0.2
    maximum: 0.2
  - name: VACIA
    pass_fail: true
`

func TestAnalyzeSheet_KindMismatch(t *testing.T) {
	ctx := context.Background()
	sheet, err := parser.ParseMeasurementsReader(strings.NewReader(mismatchCSV))
	require.NoError(t, err)
	tf, err := parser.ParseTolerancesReader(strings.NewReader(mismatchTolerances))
	require.NoError(t, err)

	results, missing, err := AnalyzeSheet(ctx, sheet, tf, analysis.DefaultOptions(), 2)
	require.NoError(t, err)
	assert.Empty(t, missing)
	require.Len(t, results, 3)

	// Numeric readings under a pass/fail tolerance are analyzed, not dropped.
	rosca := results[0]
	assert.True(t, rosca.KindMismatch)
	assert.Equal(t, analysis.KindNumeric, rosca.Kind)
	assert.Nil(t, rosca.PassFail)
	require.NotNil(t, rosca.Result)
	assert.Equal(t, 3, rosca.Result.Summary.N)

	dia := results[1]
	assert.True(t, dia.KindMismatch)
	assert.Equal(t, &analysis.Conformance{Approved: 2, Rejected: 1, Total: 3}, dia.PassFail)

	// An empty column fits any kind.
	assert.False(t, results[2].KindMismatch)
	assert.Equal(t, analysis.KindPassFail, results[2].Kind)

	mem := store.NewMemory()
	stats, err := Import(ctx, mem, tf.Structure, sheet, tf)
	require.ErrorIs(t, err, ErrKindMismatch)
	assert.Contains(t, err.Error(), "ROSCA")
	assert.Contains(t, err.Error(), "DIAMETRO")
	assert.Equal(t, ImportStats{}, stats)

	names, err := mem.Characteristics(ctx, "OP-7")
	require.NoError(t, err)
	assert.Empty(t, names)
}

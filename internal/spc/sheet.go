package spc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/CARsoftAR/medicionProcesos/internal/analysis"
	"github.com/CARsoftAR/medicionProcesos/internal/parser"
	"github.com/CARsoftAR/medicionProcesos/internal/store"
)

// ErrKindMismatch marks a sheet column whose readings do not match the kind
// its tolerance entry declares.
var ErrKindMismatch = errors.New("tolerance kind does not match sheet readings")

// AnalyzeSheet analyzes every column of a parsed measurement sheet against
// the matching tolerance entry. Columns without an entry run without limits;
// their names are returned in missing. A column whose readings contradict the
// entry's kind is analyzed by what it holds, without the entry, and flagged
// with KindMismatch. Results follow the sheet's column order.
func AnalyzeSheet(ctx context.Context, sheet *parser.ParsedMeasurements, tolerances *parser.ToleranceFile, opts analysis.Options, workers int) (results []CharacteristicResult, missing []string, err error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	structure := ""
	if tolerances != nil {
		structure = tolerances.Structure
	}

	results = make([]CharacteristicResult, len(sheet.Characteristics))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range sheet.Characteristics {
		col := sheet.Columns[name]
		entry, found := lookup(tolerances, name)
		if !found {
			missing = append(missing, name)
		}
		kind := col.Kind
		mismatch := found && kindMismatch(entry, col)
		switch {
		case mismatch:
			entry = parser.ToleranceEntry{}
		case found && entry.Kind() == analysis.KindPassFail:
			kind = analysis.KindPassFail
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cr := Analyze(name, kind, entry.Spec, col.Values, col.Results, opts)
			cr.Structure = structure
			cr.ToleranceMissing = !found
			cr.KindMismatch = mismatch
			results[i] = cr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return results, missing, nil
}

// kindMismatch reports whether col holds readings of the other kind than
// entry declares. A column with no readings at all fits either kind.
func kindMismatch(entry parser.ToleranceEntry, col *parser.Column) bool {
	if entry.Kind() == col.Kind {
		return false
	}
	for _, v := range col.Values {
		if v != nil {
			return true
		}
	}
	for _, r := range col.Results {
		if r != nil {
			return true
		}
	}
	return false
}

func lookup(tf *parser.ToleranceFile, name string) (parser.ToleranceEntry, bool) {
	if tf == nil {
		return parser.ToleranceEntry{}, false
	}
	return tf.Lookup(name)
}

// ImportStats counts what Import wrote.
type ImportStats struct {
	Tolerances   int
	Measurements int
}

// Import writes the tolerances and every measured cell of a sheet under
// structure. Unmeasured cells are skipped. Nothing is written when a column
// contradicts its tolerance kind; the error wraps ErrKindMismatch and names
// every such column.
func Import(ctx context.Context, dst store.Store, structure string, sheet *parser.ParsedMeasurements, tolerances *parser.ToleranceFile) (ImportStats, error) {
	var stats ImportStats
	var mismatched []string
	for _, name := range sheet.Characteristics {
		if entry, found := lookup(tolerances, name); found && kindMismatch(entry, sheet.Columns[name]) {
			mismatched = append(mismatched, fmt.Sprintf("%s (tolerance %s, sheet %s)", name, entry.Kind(), sheet.Columns[name].Kind))
		}
	}
	if len(mismatched) > 0 {
		return stats, fmt.Errorf("%w: %s", ErrKindMismatch, strings.Join(mismatched, ", "))
	}
	if tolerances != nil {
		for _, e := range tolerances.Characteristics {
			key := store.Key{Structure: structure, Characteristic: e.Name}
			if err := dst.PutTolerance(ctx, key, store.Tolerance{Spec: e.Spec, Kind: e.Kind()}); err != nil {
				return stats, fmt.Errorf("import tolerance %s: %w", e.Name, err)
			}
			stats.Tolerances++
		}
	}

	now := time.Now().UTC()
	for _, name := range sheet.Characteristics {
		col := sheet.Columns[name]
		key := store.Key{Structure: structure, Characteristic: name}
		for i, piece := range sheet.Pieces {
			m := store.Measurement{Piece: piece, RecordedAt: now}
			if col.Kind == analysis.KindPassFail {
				m.Result = col.Results[i]
			} else {
				m.Value = col.Values[i]
			}
			if m.Value == nil && m.Result == nil {
				continue
			}
			if err := dst.PutMeasurement(ctx, key, m); err != nil {
				return stats, fmt.Errorf("import %s piece %d: %w", name, piece, err)
			}
			stats.Measurements++
		}
	}
	return stats, nil
}

package parser

import "github.com/CARsoftAR/medicionProcesos/internal/analysis"

// Column is one characteristic of a measurement sheet, one entry per piece in
// ParsedMeasurements.Pieces order. Numeric columns fill Values, pass/fail
// columns fill Results; a nil entry is a piece not yet measured.
type Column struct {
	Name    string
	Kind    analysis.Kind
	Values  []*float64
	Results []*bool
}

// ParsedMeasurements holds a measurement sheet organized by characteristic.
type ParsedMeasurements struct {
	Pieces          []int
	Characteristics []string // header order
	Columns         map[string]*Column
	ParseErrors     []string // non-fatal problems found while parsing
}

func NewParsedMeasurements() *ParsedMeasurements {
	return &ParsedMeasurements{
		Pieces:          make([]int, 0),
		Characteristics: make([]string, 0),
		Columns:         make(map[string]*Column),
		ParseErrors:     make([]string, 0),
	}
}

// PieceHeaders are the accepted names of the first CSV column.
var PieceHeaders = []string{"piece", "pieza", "part"}

// Pass/fail cell markers.
const (
	PassMarker = "OK"
	FailMarker = "NOK"
)

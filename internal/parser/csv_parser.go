package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/CARsoftAR/medicionProcesos/internal/analysis"
)

func isPieceHeader(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, h := range PieceHeaders {
		if name == h {
			return true
		}
	}
	return false
}

type sheetRow struct {
	piece int
	cells []string
}

// ParseMeasurements reads a measurement sheet CSV from filepath.
func ParseMeasurements(filepath string) (*ParsedMeasurements, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()
	return ParseMeasurementsReader(file)
}

// ParseMeasurementsReader parses a sheet whose header is
// "piece,<characteristic>,..." and whose rows hold one inspected piece each.
// Rows are ordered by piece number, which is the production order. Empty
// cells are unmeasured; OK/NOK cells make a column pass/fail. Malformed cells
// become missing values and are reported in ParseErrors.
func ParseMeasurementsReader(r io.Reader) (*ParsedMeasurements, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV data: %w", err)
	}

	parsed := NewParsedMeasurements()

	headerIdx := -1
	for i, row := range allRows {
		if len(row) > 0 && strings.TrimSpace(row[0]) != "" {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		parsed.ParseErrors = append(parsed.ParseErrors, "Warning: CSV has no header row; nothing parsed.")
		return parsed, nil
	}
	header := allRows[headerIdx]
	if !isPieceHeader(header[0]) {
		return nil, fmt.Errorf("first header column must be one of %v, got %q", PieceHeaders, header[0])
	}

	seen := make(map[string]bool)
	for _, name := range header[1:] {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			parsed.ParseErrors = append(parsed.ParseErrors, fmt.Sprintf("Warning: empty or duplicate characteristic header %q ignored.", name))
			parsed.Characteristics = append(parsed.Characteristics, "")
			continue
		}
		seen[name] = true
		parsed.Characteristics = append(parsed.Characteristics, name)
	}

	rows := make([]sheetRow, 0, len(allRows)-headerIdx-1)
	pieces := make(map[int]bool)
	for rowIdx := headerIdx + 1; rowIdx < len(allRows); rowIdx++ {
		row := allRows[rowIdx]
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		piece, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			parsed.ParseErrors = append(parsed.ParseErrors, fmt.Sprintf("Error: CSV row %d has invalid piece number %q, row skipped.", rowIdx+1, row[0]))
			continue
		}
		if pieces[piece] {
			parsed.ParseErrors = append(parsed.ParseErrors, fmt.Sprintf("Warning: piece %d repeated at CSV row %d, keeping the first occurrence.", piece, rowIdx+1))
			continue
		}
		pieces[piece] = true
		rows = append(rows, sheetRow{piece: piece, cells: row[1:]})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].piece < rows[j].piece })

	for _, row := range rows {
		parsed.Pieces = append(parsed.Pieces, row.piece)
	}

	for colIdx, name := range parsed.Characteristics {
		if name == "" {
			continue
		}
		parsed.Columns[name] = buildColumn(name, colIdx, rows, parsed)
	}

	names := parsed.Characteristics[:0]
	for _, name := range parsed.Characteristics {
		if name != "" {
			names = append(names, name)
		}
	}
	parsed.Characteristics = names

	if len(parsed.Pieces) == 0 {
		parsed.ParseErrors = append(parsed.ParseErrors, "Warning: no piece rows parsed.")
	}
	return parsed, nil
}

func buildColumn(name string, colIdx int, rows []sheetRow, parsed *ParsedMeasurements) *Column {
	cells := make([]string, len(rows))
	passFail := false
	for i, row := range rows {
		if colIdx < len(row.cells) {
			cells[i] = strings.TrimSpace(row.cells[colIdx])
		}
		if isPassFailCell(cells[i]) {
			passFail = true
		}
	}

	col := &Column{Name: name, Kind: analysis.KindNumeric}
	if passFail {
		col.Kind = analysis.KindPassFail
		col.Results = make([]*bool, len(rows))
		for i, cell := range cells {
			switch strings.ToUpper(cell) {
			case "":
			case PassMarker:
				ok := true
				col.Results[i] = &ok
			case FailMarker:
				nok := false
				col.Results[i] = &nok
			default:
				parsed.ParseErrors = append(parsed.ParseErrors, fmt.Sprintf("Error: piece %d, characteristic '%s' is pass/fail but holds %q. Treated as not inspected.", rows[i].piece, name, cell))
			}
		}
		return col
	}

	col.Values = make([]*float64, len(rows))
	for i, cell := range cells {
		if cell == "" {
			continue
		}
		val, err := strconv.ParseFloat(cell, 64)
		if err == nil && (math.IsNaN(val) || math.IsInf(val, 0)) {
			err = fmt.Errorf("non-finite value")
		}
		if err != nil {
			parsed.ParseErrors = append(parsed.ParseErrors, fmt.Sprintf("Error converting value '%s' for piece %d, characteristic '%s'. Treated as missing. Error: %v", cell, rows[i].piece, name, err))
			continue
		}
		col.Values[i] = &val
	}
	return col
}

func isPassFailCell(cell string) bool {
	c := strings.ToUpper(cell)
	return c == PassMarker || c == FailMarker
}

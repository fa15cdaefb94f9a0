package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CARsoftAR/medicionProcesos/internal/analysis"
)

const sheet = `piece,DIAMETRO,ALTURA,ROSCA
3,10.05,60.7,OK
1,10.00,60.8,OK
2,,60.75,NOK
4,abc,60.72,
`

func TestParseMeasurementsReader(t *testing.T) {
	parsed, err := ParseMeasurementsReader(strings.NewReader(sheet))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4}, parsed.Pieces)
	assert.Equal(t, []string{"DIAMETRO", "ALTURA", "ROSCA"}, parsed.Characteristics)

	dia := parsed.Columns["DIAMETRO"]
	require.NotNil(t, dia)
	assert.Equal(t, analysis.KindNumeric, dia.Kind)
	require.Len(t, dia.Values, 4)
	assert.Equal(t, 10.00, *dia.Values[0])
	assert.Nil(t, dia.Values[1])
	assert.Equal(t, 10.05, *dia.Values[2])
	assert.Nil(t, dia.Values[3])

	alt := parsed.Columns["ALTURA"]
	assert.Equal(t, []float64{60.8, 60.75, 60.7, 60.72}, analysis.CleanSeries(alt.Values))

	rosca := parsed.Columns["ROSCA"]
	assert.Equal(t, analysis.KindPassFail, rosca.Kind)
	assert.Nil(t, rosca.Values)
	assert.Equal(t, analysis.Conformance{Approved: 2, Rejected: 1, Total: 3}, analysis.SummarizePassFail(rosca.Results))

	require.Len(t, parsed.ParseErrors, 1)
	assert.Contains(t, parsed.ParseErrors[0], "abc")
}

func TestParseMeasurementsReader_BadHeader(t *testing.T) {
	_, err := ParseMeasurementsReader(strings.NewReader("id,A\n1,2\n"))
	assert.Error(t, err)
}

func TestParseMeasurementsReader_SkipsBadRows(t *testing.T) {
	in := "# exported sheet\nPieza,A\nx,1\n1,2\n1,3\n\n2,nan\n"
	parsed, err := ParseMeasurementsReader(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, parsed.Pieces)
	assert.Equal(t, []float64{2}, analysis.CleanSeries(parsed.Columns["A"].Values))
	assert.Len(t, parsed.ParseErrors, 3)
}

func TestParseMeasurementsReader_Empty(t *testing.T) {
	parsed, err := ParseMeasurementsReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, parsed.Pieces)
	assert.NotEmpty(t, parsed.ParseErrors)
}

func TestParseMeasurements_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet.csv")
	require.NoError(t, os.WriteFile(path, []byte(sheet), 0o644))
	parsed, err := ParseMeasurements(path)
	require.NoError(t, err)
	assert.Len(t, parsed.Pieces, 4)

	_, err = ParseMeasurements(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

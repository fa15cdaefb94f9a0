package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byRule(vs []Violation, r Rule) []Violation {
	var out []Violation
	for _, v := range vs {
		if v.Rule == r {
			out = append(out, v)
		}
	}
	return out
}

func TestDetect_TooFewPoints(t *testing.T) {
	assert.Empty(t, Detect(nil))
	assert.Empty(t, Detect([]float64{4.2}))
}

func TestDetect_StableProcess(t *testing.T) {
	assert.Empty(t, Detect([]float64{10.0, 10.1, 9.95, 10.05, 10.02, 9.98}))
}

func TestDetect_Beyond3Sigma(t *testing.T) {
	values := []float64{
		10.0, 10.02, 9.98, 10.01, 9.99, 10.03, 9.97, 10.0, 10.02, 9.98,
		10.01, 9.99, 15.0, 10.0, 10.01, 9.99, 10.02, 9.98, 10.0, 10.01,
	}
	hits := byRule(Detect(values), RuleBeyond3Sigma)
	require.Len(t, hits, 1)
	assert.Equal(t, 12, hits[0].Index)
	assert.Equal(t, SeverityDanger, hits[0].Severity)
	assert.NotEmpty(t, hits[0].Description)
}

func TestDetect_ConstantSeriesUsesEpsilon(t *testing.T) {
	values := []float64{5, 5, 5, 5, 5, 5, 5, 5, 5, 5}
	assert.Empty(t, Detect(values))
}

func TestDetect_Run9(t *testing.T) {
	values := []float64{1, 2, 3, 4, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20}
	hits := byRule(Detect(values), RuleRun9)
	require.Len(t, hits, 1)
	assert.Equal(t, 12, hits[0].Index)
	assert.Equal(t, SeverityWarning, hits[0].Severity)
}

func TestDetect_Run9Only(t *testing.T) {
	values := []float64{9.0, 9.2, 8.9, 9.1, 10.5, 10.4, 10.6, 10.5, 10.45, 10.55, 10.5, 10.6, 10.4, 9.5, 9.0, 8.8, 9.2, 9.1, 9.0}
	got := Detect(values)
	require.Len(t, got, 1)
	assert.Equal(t, RuleRun9, got[0].Rule)
	assert.Equal(t, 12, got[0].Index)
}

func TestDetect_Trend6(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9}
	hits := byRule(Detect(values), RuleTrend6)
	require.Len(t, hits, 1)
	assert.Equal(t, 5, hits[0].Index)
	assert.Equal(t, SeverityWarning, hits[0].Severity)

	down := []float64{9, 8, 7, 6, 5, 4}
	hits = byRule(Detect(down), RuleTrend6)
	require.Len(t, hits, 1)
	assert.Equal(t, 5, hits[0].Index)
	assert.Contains(t, hits[0].Description, "decreasing")
}

func TestDetect_TrendNeedsStrictChange(t *testing.T) {
	values := []float64{1, 2, 3, 3, 4, 5, 6}
	assert.Empty(t, byRule(Detect(values), RuleTrend6))
}

func TestDetect_Alternation14(t *testing.T) {
	values := make([]float64, 0, 16)
	for i := 0; i < 16; i++ {
		values = append(values, 10+float64(i%2))
	}
	hits := byRule(Detect(values), RuleAlternation14)
	require.Len(t, hits, 1)
	assert.Equal(t, 13, hits[0].Index)
	assert.Equal(t, SeverityInfo, hits[0].Severity)

	assert.Empty(t, byRule(Detect(values[:13]), RuleAlternation14))
}

func TestDetect_AlternationBrokenByFlatStep(t *testing.T) {
	values := []float64{10, 11, 10, 11, 10, 11, 11, 10, 11, 10, 11, 10, 11, 10}
	assert.Empty(t, byRule(Detect(values), RuleAlternation14))
}

func TestDetect_DoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 4, 1, 5, 9, 2, 6}
	before := append([]float64(nil), values...)
	Detect(values)
	assert.Equal(t, before, values)
}

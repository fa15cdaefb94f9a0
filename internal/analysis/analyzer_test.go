package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(values ...float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		out[i] = f(values[i])
	}
	return out
}

func TestAnalyze_WithinDeviationTolerance(t *testing.T) {
	res := Analyze(
		series(10.0, 10.1, 9.95, 10.05, 10.02, 9.98),
		ToleranceSpec{Nominal: f(10.0), Minimum: f(0.2), Maximum: f(0.2)},
		DefaultOptions(),
	)

	require.NotNil(t, res.Limits.Lower)
	require.NotNil(t, res.Limits.Upper)
	assert.InDelta(t, 9.8, *res.Limits.Lower, 1e-9)
	assert.InDelta(t, 10.2, *res.Limits.Upper, 1e-9)

	assert.Equal(t, Conformance{Approved: 6, Rejected: 0, Total: 6}, res.Conformance)

	require.NotNil(t, res.Capability.Cp)
	require.NotNil(t, res.Capability.Cpk)
	assert.InDelta(t, 1.2539, *res.Capability.Cp, 1e-4)
	assert.InDelta(t, 1.1494, *res.Capability.Cpk, 1e-4)
	assert.GreaterOrEqual(t, *res.Capability.Cpk, 1.0)
	assert.Equal(t, ClassMarginal, res.CpClass)
	assert.Equal(t, ClassMarginal, res.CpkClass)

	require.NotNil(t, res.XR)
	assert.Equal(t, 1, res.XR.Count)
	assert.InDelta(t, 10.024, res.XR.GrandMean, 1e-9)
	assert.InDelta(t, 0.15, res.XR.AvgRange, 1e-9)
	assert.False(t, res.InsufficientSubgroups)
	assert.False(t, res.InsufficientStatistics)
	assert.Empty(t, res.Violations)

	assert.Equal(t, 6, res.Summary.N)
	assert.InDelta(t, 10.0, *res.Summary.Nominal, 1e-12)
	assert.InDelta(t, 0.053166, *res.Summary.StdDev, 1e-6)
}

func TestAnalyze_OutlierFiresRuleOneOnce(t *testing.T) {
	values := series(
		10.0, 10.02, 9.98, 10.01, 9.99, 10.03, 9.97, 10.0, 10.02, 9.98,
		10.01, 9.99, 15.0, 10.0, 10.01, 9.99, 10.02, 9.98, 10.0, 10.01,
	)
	res := Analyze(values, ToleranceSpec{Nominal: f(10), Minimum: f(0.5), Maximum: f(0.5)}, DefaultOptions())

	hits := byRule(res.Violations, RuleBeyond3Sigma)
	require.Len(t, hits, 1)
	assert.Equal(t, 12, hits[0].Index)
	assert.Equal(t, SeverityDanger, hits[0].Severity)
	assert.Equal(t, 1, res.Conformance.Rejected)
}

func TestAnalyze_DropsMissingReadings(t *testing.T) {
	in := []*float64{f(10), nil, f(10.1), nil, f(9.9)}
	res := Analyze(in, ToleranceSpec{}, Options{SubgroupSize: 3})

	assert.Equal(t, 3, res.Summary.N)
	require.NotNil(t, res.XR)
	assert.Equal(t, 1, res.XR.Count)
	assert.Nil(t, in[1], "input must not be modified")
}

func TestAnalyze_InsufficientData(t *testing.T) {
	res := Analyze(series(10.0), ToleranceSpec{Nominal: f(10), Minimum: f(0.1), Maximum: f(0.1)}, DefaultOptions())
	assert.True(t, res.InsufficientSubgroups)
	assert.True(t, res.InsufficientStatistics)
	assert.Nil(t, res.XR)
	assert.Nil(t, res.Individuals)
	assert.Nil(t, res.Capability.Cp)
	assert.Nil(t, res.Capability.Cpk)
	assert.Equal(t, ClassUnknown, res.CpkClass)
	assert.NotNil(t, res.Violations)
	assert.Empty(t, res.Violations)

	empty := Analyze(nil, ToleranceSpec{}, DefaultOptions())
	assert.Equal(t, 0, empty.Summary.N)
	assert.Nil(t, empty.Summary.Nominal)
	assert.False(t, empty.Limits.HasLimits())
}

func TestAnalyze_ZeroVariance(t *testing.T) {
	res := Analyze(series(10, 10, 10, 10, 10), ToleranceSpec{Minimum: f(9), Maximum: f(11)}, DefaultOptions())
	assert.Nil(t, res.Capability.Cp)
	assert.Nil(t, res.Capability.Cpk)
	assert.Empty(t, res.Violations)
	require.NotNil(t, res.XR)
	assert.Zero(t, res.XR.AvgRange)

	// Results must always serialize: no NaN or Inf leaks out.
	_, err := json.Marshal(res)
	assert.NoError(t, err)
}

func TestAnalyze_NoNominalUsesMeanAsCenter(t *testing.T) {
	res := Analyze(series(1, 2, 3), ToleranceSpec{Minimum: f(0), Maximum: f(4)}, DefaultOptions())
	require.NotNil(t, res.Summary.Nominal)
	assert.InDelta(t, 2.0, *res.Summary.Nominal, 1e-12)
	assert.True(t, res.InsufficientSubgroups)
	assert.False(t, res.InsufficientStatistics)
}

func TestAnalyze_LowCapabilityAlert(t *testing.T) {
	res := Analyze(series(9.8, 10.2, 9.9, 10.1, 10.0, 9.7, 10.3), ToleranceSpec{Nominal: f(10), Minimum: f(0.1), Maximum: f(0.1)}, DefaultOptions())
	require.NotNil(t, res.Capability.Cpk)
	assert.Less(t, *res.Capability.Cpk, 1.0)
	hits := byRule(res.Violations, RuleLowCapability)
	require.Len(t, hits, 1)
	assert.Equal(t, 6, hits[0].Index)
	assert.Equal(t, ClassInadequate, res.CpkClass)
}

func TestAnalyze_ThresholdsAreConfigurable(t *testing.T) {
	values := series(10.0, 10.01, 9.99, 10.0, 10.02, 9.98, 10.01, 9.99)
	spec := ToleranceSpec{Nominal: f(10), Minimum: f(0.07), Maximum: f(0.07)}

	def := Analyze(values, spec, Options{Thresholds: DefaultThresholds})
	dash := Analyze(values, spec, Options{Thresholds: DashboardThresholds})
	require.NotNil(t, def.Capability.Cp)
	cp := *def.Capability.Cp
	require.True(t, cp >= 1.67 && cp < 2.0, "cp=%v", cp)
	assert.Equal(t, ClassExcellent, def.CpClass)
	assert.Equal(t, ClassAcceptable, dash.CpClass)
}

func TestAnalyze_Individuals(t *testing.T) {
	res := Analyze(series(1, 3, 2, 4), ToleranceSpec{}, DefaultOptions())
	require.NotNil(t, res.Individuals)
	assert.InDelta(t, 2.5, res.Individuals.Mean, 1e-12)
	assert.InDelta(t, 5.0/3.0, res.Individuals.MRBar, 1e-12)
	assert.InDelta(t, 3.267*5.0/3.0, res.Individuals.MRUCL, 1e-12)
	assert.Zero(t, res.Individuals.MRLCL)
	assert.InDelta(t, res.Individuals.Mean+3*(*res.Summary.StdDev), res.Individuals.UCL, 1e-12)
}

func TestAnalyze_OverflowingReadingsStayJSONSafe(t *testing.T) {
	cases := map[string][]float64{
		"sum overflows":    {1.7e308, 1.6e308, 1.7e308, 1.65e308, 1.7e308, 1.6e308},
		"spread overflows": {-1.7e308, 1.7e308, -1.7e308, 1.7e308, -1.7e308},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			res := Analyze(series(values...), ToleranceSpec{}, DefaultOptions())

			assert.True(t, res.InsufficientStatistics)
			assert.Nil(t, res.XR)
			assert.True(t, res.InsufficientSubgroups)
			assert.Nil(t, res.Individuals)
			assert.Nil(t, res.Capability.Cpk)
			assert.Equal(t, len(values), res.Summary.N)

			_, err := json.Marshal(res)
			require.NoError(t, err)
		})
	}
}

func TestAggregate_OverflowReturnsNil(t *testing.T) {
	assert.Nil(t, Aggregate([]float64{1.7e308, 1.7e308}, 2))
	assert.NotNil(t, Aggregate([]float64{1, 2}, 2))
}
